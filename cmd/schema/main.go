// Command schema writes the JSON schema for character definition files.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"reflect"

	"github.com/invopop/jsonschema"

	"fightcore/internal/fixmath"
	"fightcore/internal/game"
)

func main() {
	var outPath string
	flag.StringVar(&outPath, "out", "", "path to write the JSON schema")
	flag.Parse()

	if outPath == "" {
		fmt.Fprintln(os.Stderr, "--out is required")
		os.Exit(1)
	}

	if err := writeSchema(outPath, buildSchema()); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write schema: %v\n", err)
		os.Exit(1)
	}
}

var scalarType = reflect.TypeOf(fixmath.Scalar(0))

func buildSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		// Scalars are stored as integers but written as decimal numbers.
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t == scalarType {
				return &jsonschema.Schema{Type: "number"}
			}
			return nil
		},
	}
	schema := reflector.Reflect(new(game.CharacterConfig))
	schema.Title = "Fighter Character"
	schema.Description = "Character tuning data loaded by game.LoadCharacter. Omitted fields keep the stock values."
	return schema
}

func writeSchema(outPath string, schema *jsonschema.Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}

	return nil
}
