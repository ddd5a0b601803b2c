package game

import "fightcore/internal/fixmath"

// ClankTicks is the fixed stun applied to both fighters when attacks trade.
const ClankTicks = 10

// Arena holds the stage constants shared by both fighters.
type Arena struct {
	Ground  fixmath.Scalar // feet rest at this height
	Walls   fixmath.Scalar // symmetric horizontal bound, ±Walls
	Gravity fixmath.Scalar // vertical acceleration per time unit, negative is down

	// Start positions for slot 0 and 1; slot 0 faces right, slot 1 faces left
	Start [2]fixmath.Vec2
}

// DefaultArena returns the standard stage: ground at -4.5, walls at ±8, fighters
// starting 14 units apart.
func DefaultArena() Arena {
	ground := fixmath.FromFloat(-4.5)
	return Arena{
		Ground:  ground,
		Walls:   fixmath.FromInt(8),
		Gravity: fixmath.FromInt(-30),
		Start: [2]fixmath.Vec2{
			fixmath.V(fixmath.FromInt(-7), ground),
			fixmath.V(fixmath.FromInt(7), ground),
		},
	}
}

// TickDuration is the length of one tick in time units.
var TickDuration = fixmath.FromRatio(1, TicksPerUnit)

// walkThreshold is the speed above which a neutral grounded fighter walks.
var walkThreshold = fixmath.FromFloat(0.01)
