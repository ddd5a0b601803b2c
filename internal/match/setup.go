package match

import (
	"fmt"

	"fightcore/internal/config"
	"fightcore/internal/fixmath"
	"fightcore/internal/game"
)

// GameConfig converts the arena section of the app config to the simulation's
// fixed-point form and loads any character files it names. This is the only place
// floats cross into simulation data; the conversion is exact for values with at most
// twelve fractional bits.
func GameConfig(a config.ArenaConfig) (game.Config, error) {
	cfg := game.DefaultConfig()

	ground := fixmath.FromFloat(a.Ground)
	cfg.Arena.Ground = ground
	cfg.Arena.Walls = fixmath.FromFloat(a.Walls)
	cfg.Arena.Gravity = fixmath.FromFloat(a.Gravity)
	cfg.Arena.Start = [2]fixmath.Vec2{
		fixmath.V(fixmath.FromFloat(-a.StartX), ground),
		fixmath.V(fixmath.FromFloat(a.StartX), ground),
	}
	if cfg.Arena.Walls <= 0 {
		return game.Config{}, fmt.Errorf("arena walls must be positive, got %v", a.Walls)
	}

	for i, path := range a.Characters {
		if path == "" {
			continue
		}
		c, err := game.LoadCharacter(path)
		if err != nil {
			return game.Config{}, fmt.Errorf("character for slot %d: %w", i, err)
		}
		cfg.Characters[i] = c
	}
	return cfg, nil
}
