package game

import "fightcore/internal/fixmath"

// AnimationID names the animation a fighter is playing. It only changes through
// FighterState.UpdateAnimation.
type AnimationID uint8

const (
	AnimIdle AnimationID = iota
	AnimWalk
	AnimJump
	AnimLightAttack
)

func (a AnimationID) String() string {
	switch a {
	case AnimIdle:
		return "idle"
	case AnimWalk:
		return "walk"
	case AnimJump:
		return "jump"
	case AnimLightAttack:
		return "light_attack"
	default:
		return "unknown"
	}
}

// AttackPhase defines the stages of an attack animation
type AttackPhase int

const (
	PhaseIdle     AttackPhase = iota // Not attacking
	PhaseWindUp                      // Anticipation, no hitbox yet
	PhaseActive                      // Hitbox out
	PhaseRecovery                    // Follow-through, still committed
)

func (p AttackPhase) String() string {
	switch p {
	case PhaseWindUp:
		return "windup"
	case PhaseActive:
		return "active"
	case PhaseRecovery:
		return "recovery"
	default:
		return "idle"
	}
}

// MoveConfig defines timing and the hitbox for one attack.
type MoveConfig struct {
	// Attack timing (in ticks at 64 TPS)
	WindUpTicks   int32 `json:"windup_ticks"`
	ActiveTicks   int32 `json:"active_ticks"`
	RecoveryTicks int32 `json:"recovery_ticks"`

	// Hitbox shown during the active phase, authored facing right
	Hitbox Box `json:"hitbox"`
}

// TotalTicks returns the full attack duration in ticks.
func (m *MoveConfig) TotalTicks() int32 {
	return m.WindUpTicks + m.ActiveTicks + m.RecoveryTicks
}

// PhaseAt returns the phase for a tick count since the attack started.
func (m *MoveConfig) PhaseAt(elapsed Tick) AttackPhase {
	switch {
	case elapsed < 0:
		return PhaseIdle
	case int32(elapsed) < m.WindUpTicks:
		return PhaseWindUp
	case int32(elapsed) < m.WindUpTicks+m.ActiveTicks:
		return PhaseActive
	case int32(elapsed) < m.TotalTicks():
		return PhaseRecovery
	default:
		return PhaseIdle
	}
}

// DefaultLightAttack is a quick jab: 5 ticks startup, 3 active, 10 recovery.
func DefaultLightAttack() MoveConfig {
	return MoveConfig{
		WindUpTicks:   5,
		ActiveTicks:   3,
		RecoveryTicks: 10,
		Hitbox: Box{
			Center: fixmath.VFloat(1.25, 0.5),
			Size:   fixmath.VFloat(1.5, 0.75),
			Props: BoxProps{
				Kind:         BoxHit,
				Damage:       fixmath.FromInt(8),
				HitstunTicks: 12,
				Knockback:    fixmath.VInt(4, 0),
			},
		},
	}
}
