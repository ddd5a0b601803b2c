package game

import (
	"fmt"
	"strings"
)

// Tick identifies one fixed simulation step. Fields that record "when" hold absolute
// ticks so elapsed time is a subtraction.
type Tick int32

const (
	NullTick  Tick = -1 // never set
	FirstTick Tick = 0
)

// TicksPerUnit is the simulation rate: one time unit is 64 ticks.
const TicksPerUnit = 64

// IsNull reports whether t is the "never set" sentinel.
func (t Tick) IsNull() bool { return t == NullTick }

// InputFlags is the bitset of buttons held during one tick.
type InputFlags uint16

const InputNone InputFlags = 0

const (
	InputLeft InputFlags = 1 << iota
	InputRight
	InputUp
	InputDown
	InputLightAttack
	InputMediumAttack
	InputSpecialAttack
	InputSuperAttack
)

var inputFlagNames = []struct {
	flag InputFlags
	name string
}{
	{InputLeft, "left"},
	{InputRight, "right"},
	{InputUp, "up"},
	{InputDown, "down"},
	{InputLightAttack, "light"},
	{InputMediumAttack, "medium"},
	{InputSpecialAttack, "special"},
	{InputSuperAttack, "super"},
}

func (f InputFlags) String() string {
	if f == InputNone {
		return "none"
	}
	var parts []string
	for _, n := range inputFlagNames {
		if f&n.flag != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "+")
}

// ParseInputFlags parses the "left+light" form produced by String.
func ParseInputFlags(s string) (InputFlags, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "none" {
		return InputNone, nil
	}
	var f InputFlags
	for _, part := range strings.Split(s, "+") {
		found := false
		for _, n := range inputFlagNames {
			if n.name == part {
				f |= n.flag
				found = true
				break
			}
		}
		if !found {
			return InputNone, fmt.Errorf("unknown input flag %q", part)
		}
	}
	return f, nil
}

// PlayerInput is one player's input for one tick. The zero value is "no input".
type PlayerInput struct {
	Flags InputFlags `json:"flags"`
}

// Input builds a PlayerInput from flags.
func Input(flags InputFlags) PlayerInput { return PlayerInput{Flags: flags} }

// Has reports whether every bit in flag is set.
func (in PlayerInput) Has(flag InputFlags) bool {
	return flag != InputNone && in.Flags&flag == flag
}

// InputStatus says how the transport obtained an input. The simulation ignores it.
type InputStatus uint8

const (
	StatusConfirmed    InputStatus = iota // received from the owning peer
	StatusPredicted                       // guessed, may be corrected by a rollback
	StatusDisconnected                    // peer gone, default input substituted
)

func (s InputStatus) String() string {
	switch s {
	case StatusConfirmed:
		return "confirmed"
	case StatusPredicted:
		return "predicted"
	case StatusDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// InputFrame pairs an input with its transport status.
type InputFrame struct {
	Input  PlayerInput `json:"input"`
	Status InputStatus `json:"status"`
}

// Confirmed is shorthand for a confirmed input frame.
func Confirmed(flags InputFlags) InputFrame {
	return InputFrame{Input: Input(flags), Status: StatusConfirmed}
}
