package game

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/xxh3"

	"fightcore/internal/fixmath"
)

// CharacterConfig is the per-character tuning data. Every gameplay value is a fixed
// point Scalar so two peers that loaded the same file simulate identically.
type CharacterConfig struct {
	Name         string         `json:"name"`
	Speed        fixmath.Scalar `json:"speed"`         // horizontal units per time unit
	JumpVelocity fixmath.Scalar `json:"jump_velocity"` // initial upward velocity
	Health       fixmath.Scalar `json:"health"`

	// Hurtbox present on every animation frame
	Hurtbox Box `json:"hurtbox"`

	LightAttack MoveConfig `json:"light_attack"`
}

// DefaultCharacter returns the stock fighter.
func DefaultCharacter() CharacterConfig {
	return CharacterConfig{
		Name:         "default",
		Speed:        fixmath.FromInt(7),
		JumpVelocity: fixmath.FromInt(12),
		Health:       fixmath.FromInt(100),
		Hurtbox: Box{
			Center: fixmath.VFloat(0, 1),
			Size:   fixmath.VFloat(1, 2),
			Props:  BoxProps{Kind: BoxHurt},
		},
		LightAttack: DefaultLightAttack(),
	}
}

// Validate checks the invariants the state machine relies on.
func (c *CharacterConfig) Validate() error {
	switch {
	case c.Name == "":
		return fmt.Errorf("%w: empty name", ErrInvalidCharacter)
	case c.Speed < 0:
		return fmt.Errorf("%w: negative speed", ErrInvalidCharacter)
	case c.Health <= 0:
		return fmt.Errorf("%w: health must be positive", ErrInvalidCharacter)
	case c.LightAttack.TotalTicks() <= 0:
		return fmt.Errorf("%w: light attack has no duration", ErrInvalidCharacter)
	case c.LightAttack.WindUpTicks < 0 || c.LightAttack.ActiveTicks < 0 || c.LightAttack.RecoveryTicks < 0:
		return fmt.Errorf("%w: negative attack phase", ErrInvalidCharacter)
	case int64(c.LightAttack.WindUpTicks)+int64(c.LightAttack.ActiveTicks)+int64(c.LightAttack.RecoveryTicks) >= int64(ModeIndefinite):
		return fmt.Errorf("%w: light attack is too long", ErrInvalidCharacter)
	case c.LightAttack.Hitbox.Props.HitstunTicks < 0 || c.LightAttack.Hitbox.Props.HitstunTicks > MaxHitstunTicks:
		return fmt.Errorf("%w: hitstun must be within [0, %d]", ErrInvalidCharacter, MaxHitstunTicks)
	case c.LightAttack.Hitbox.Props.Kind != BoxHit:
		return fmt.Errorf("%w: light attack hitbox must be a hit box", ErrInvalidCharacter)
	case c.Hurtbox.Props.Kind != BoxHurt:
		return fmt.Errorf("%w: hurtbox must be a hurt box", ErrInvalidCharacter)
	}
	return nil
}

// GetFrameData returns the boxes for anim at elapsed ticks into it. The hurtbox is
// always present; the light attack adds its hitbox during the active phase only.
func (c *CharacterConfig) GetFrameData(anim AnimationID, elapsed Tick) FrameData {
	var fd FrameData
	fd.Add(c.Hurtbox)
	if anim == AnimLightAttack && c.LightAttack.PhaseAt(elapsed) == PhaseActive {
		fd.Add(c.LightAttack.Hitbox)
	}
	return fd
}

// Digest fingerprints the gameplay-relevant fields. Peers compare digests before a
// match so differing frame data is caught before it shows up as a desync.
func (c CharacterConfig) Digest() uint64 {
	var e encoder
	e.str(c.Name)
	e.scalar(c.Speed)
	e.scalar(c.JumpVelocity)
	e.scalar(c.Health)
	e.box(c.Hurtbox)
	e.i32(c.LightAttack.WindUpTicks)
	e.i32(c.LightAttack.ActiveTicks)
	e.i32(c.LightAttack.RecoveryTicks)
	e.box(c.LightAttack.Hitbox)
	return xxh3.Hash(e.buf)
}

// ReadCharacter decodes and validates a character definition.
func ReadCharacter(r io.Reader) (CharacterConfig, error) {
	cfg := DefaultCharacter()
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return CharacterConfig{}, fmt.Errorf("decode character: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return CharacterConfig{}, err
	}
	return cfg, nil
}

// LoadCharacter reads a character definition from a JSON file. Fields missing from
// the file keep their DefaultCharacter values.
func LoadCharacter(path string) (CharacterConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return CharacterConfig{}, fmt.Errorf("open character %s: %w", path, err)
	}
	defer f.Close()
	return ReadCharacter(f)
}
