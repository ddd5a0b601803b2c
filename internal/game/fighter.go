package game

import (
	"math"

	"fightcore/internal/fixmath"
)

// Mode is a fighter's coarse combat state.
type Mode uint8

const (
	ModeNeutral Mode = iota
	ModeAttacking
	ModeHitstun
	ModeBlockstun
	ModeKnockdown
)

func (m Mode) String() string {
	switch m {
	case ModeNeutral:
		return "neutral"
	case ModeAttacking:
		return "attacking"
	case ModeHitstun:
		return "hitstun"
	case ModeBlockstun:
		return "blockstun"
	case ModeKnockdown:
		return "knockdown"
	default:
		return "unknown"
	}
}

// ModeIndefinite is the ModeT value for a mode that lasts until something changes it.
const ModeIndefinite int32 = math.MaxInt32

// MaxHitstunTicks bounds authored hitstun so the timer stays finite.
const MaxHitstunTicks = ModeIndefinite - 2

// AttackKind is the attack being performed. It is only meaningful while Attacking.
type AttackKind uint8

const (
	AttackNone AttackKind = iota
	AttackLight
	AttackMedium
	AttackSpecial
	AttackSuper
)

func (k AttackKind) String() string {
	switch k {
	case AttackLight:
		return "light"
	case AttackMedium:
		return "medium"
	case AttackSpecial:
		return "special"
	case AttackSuper:
		return "super"
	default:
		return "none"
	}
}

// Facing is the horizontal direction a fighter looks.
type Facing uint8

const (
	FacingLeft Facing = iota
	FacingRight
)

func (f Facing) String() string {
	if f == FacingLeft {
		return "left"
	}
	return "right"
}

// Location is derived from position; it is never authoritative state.
type Location uint8

const (
	Grounded Location = iota
	Airborne
)

func (l Location) String() string {
	if l == Airborne {
		return "airborne"
	}
	return "grounded"
}

// FighterState is one combatant's simulation state. It holds no pointers or slices,
// so copying it is a full snapshot.
type FighterState struct {
	Position fixmath.Vec2
	Velocity fixmath.Vec2
	Health   fixmath.Scalar // may go negative; KO rules live elsewhere

	Mode   Mode
	ModeT  int32 // ticks left in Mode, ModeIndefinite for open-ended modes
	Attack AttackKind
	Facing Facing

	// Location tracking for animation and SFX triggers
	LastLocation Location
	LocationSt   Tick

	// Only UpdateAnimation writes these
	anim   AnimationID
	animSt Tick
}

// NewFighter returns a neutral, idle fighter at pos.
func NewFighter(pos fixmath.Vec2, facing Facing, health fixmath.Scalar, a *Arena) FighterState {
	f := FighterState{
		Position: pos,
		Health:   health,
		Mode:     ModeNeutral,
		ModeT:    ModeIndefinite,
		Attack:   AttackNone,
		Facing:   facing,
		anim:     AnimIdle,
		animSt:   FirstTick,
	}
	f.LastLocation = f.Location(a)
	f.LocationSt = FirstTick
	return f
}

// Location reports whether the fighter is above the ground.
func (f *FighterState) Location(a *Arena) Location {
	if f.Position.Y > a.Ground {
		return Airborne
	}
	return Grounded
}

// Animation returns the current animation.
func (f *FighterState) Animation() AnimationID { return f.anim }

// AnimationStart returns the tick the current animation began.
func (f *FighterState) AnimationStart() Tick { return f.animSt }

// AnimationElapsed returns how many ticks the current animation has been playing.
func (f *FighterState) AnimationElapsed(tick Tick) Tick { return tick - f.animSt }

// ApplyInputIntent turns this tick's input into velocity and mode changes. Only a
// neutral fighter acts on input. Right is checked after left so it wins when both
// are held.
func (f *FighterState) ApplyInputIntent(in PlayerInput, c *CharacterConfig, a *Arena) {
	switch f.Mode {
	case ModeNeutral:
		f.Velocity.X = fixmath.Zero
		if in.Has(InputLeft) {
			f.Velocity.X = c.Speed.Neg()
		}
		if in.Has(InputRight) {
			f.Velocity.X = c.Speed
		}
		if in.Has(InputUp) && f.Location(a) == Grounded {
			f.Velocity.Y = c.JumpVelocity
		}
		if in.Has(InputLightAttack) && f.Location(a) == Grounded {
			f.Velocity = fixmath.ZeroVec
			f.Mode = ModeAttacking
			f.Attack = AttackLight
			f.ModeT = c.LightAttack.TotalTicks()
		}
	case ModeKnockdown:
		// getup options are not implemented; knocked down fighters ignore input
	}
}

// UpdatePosition integrates one tick of motion, then clamps to the ground and walls.
// A clamp zeroes only the velocity component pushing into the boundary.
func (f *FighterState) UpdatePosition(a *Arena) {
	if f.Position.Y > a.Ground || f.Velocity.Y > 0 {
		f.Velocity.Y = f.Velocity.Y.Add(a.Gravity.Mul(TickDuration))
	}

	f.Position = f.Position.Add(f.Velocity.Scale(TickDuration))

	if f.Position.Y <= a.Ground {
		f.Position.Y = a.Ground
		if f.Velocity.Y < 0 {
			f.Velocity.Y = fixmath.Zero
		}
	}
	if f.Position.X >= a.Walls {
		f.Position.X = a.Walls
		if f.Velocity.X > 0 {
			f.Velocity.X = fixmath.Zero
		}
	}
	if f.Position.X <= a.Walls.Neg() {
		f.Position.X = a.Walls.Neg()
		if f.Velocity.X < 0 {
			f.Velocity.X = fixmath.Zero
		}
	}
}

// TickStateMachine counts down the mode timer and records location changes. A timer
// reaching zero returns the fighter to neutral.
func (f *FighterState) TickStateMachine(tick Tick, a *Arena) {
	if f.ModeT != ModeIndefinite {
		f.ModeT--
	}
	if f.ModeT <= 0 {
		f.Mode = ModeNeutral
		f.Attack = AttackNone
		f.ModeT = ModeIndefinite
	}
	if loc := f.Location(a); loc != f.LastLocation {
		f.LastLocation = loc
		f.LocationSt = tick
	}
}

// ApplyHit puts the fighter in hitstun. A fighter already in hitstun ignores further
// hits. The stun lasts one tick longer than authored because hits land before the
// same tick's TickStateMachine. Hitstun outside [0, MaxHitstunTicks] is clamped.
func (f *FighterState) ApplyHit(p BoxProps) {
	if f.Mode == ModeHitstun {
		return
	}
	f.Mode = ModeHitstun
	f.Attack = AttackNone
	f.ModeT = min(max(p.HitstunTicks, 0), MaxHitstunTicks) + 1
	f.Health = f.Health.Sub(p.Damage)
	f.Velocity = p.Knockback
}

// ApplyClank stuns both sides of a trade. Unlike ApplyHit it always applies.
func (f *FighterState) ApplyClank() {
	f.Mode = ModeHitstun
	f.Attack = AttackNone
	f.ModeT = ClankTicks
	f.Velocity = fixmath.ZeroVec
}

// UpdateAnimation derives the animation from mode, location and speed. The start
// tick moves only when the animation actually changes.
func (f *FighterState) UpdateAnimation(tick Tick, a *Arena) AnimationID {
	next := AnimIdle
	switch f.Mode {
	case ModeAttacking:
		if f.Attack == AttackLight {
			next = AnimLightAttack
		}
	case ModeNeutral:
		if f.Location(a) == Airborne {
			next = AnimJump
		} else if f.Velocity.Magnitude() > walkThreshold {
			next = AnimWalk
		}
	}
	if next != f.anim {
		f.anim = next
		f.animSt = tick
	}
	return f.anim
}

// AddBoxes writes this tick's boxes into sink in world space. Offsets and knockback
// are authored facing right and mirrored for a left-facing fighter.
func (f *FighterState) AddBoxes(tick Tick, c *CharacterConfig, sink BoxSink, handle int) {
	fd := c.GetFrameData(f.anim, f.AnimationElapsed(tick))
	for i := 0; i < fd.Len(); i++ {
		b := fd.Box(i)
		center, props := b.Center, b.Props
		if f.Facing == FacingLeft {
			center = center.MirrorX()
			props.Knockback = props.Knockback.MirrorX()
		}
		sink.AddBox(handle, f.Position.Add(center), b.Size, props)
	}
}

func (f *FighterState) encode(e *encoder) {
	e.vec(f.Position)
	e.vec(f.Velocity)
	e.scalar(f.Health)
	e.u8(uint8(f.Mode))
	e.i32(f.ModeT)
	e.u8(uint8(f.Attack))
	e.u8(uint8(f.Facing))
	e.u8(uint8(f.LastLocation))
	e.tick(f.LocationSt)
	e.u8(uint8(f.anim))
	e.tick(f.animSt)
}

func (f *FighterState) decode(d *decoder) {
	f.Position = d.vec()
	f.Velocity = d.vec()
	f.Health = d.scalar()
	f.Mode = Mode(d.u8())
	f.ModeT = d.i32()
	f.Attack = AttackKind(d.u8())
	f.Facing = Facing(d.u8())
	f.LastLocation = Location(d.u8())
	f.LocationSt = d.tick()
	f.anim = AnimationID(d.u8())
	f.animSt = d.tick()
}

// valid reports whether every enum holds a known value.
func (f *FighterState) valid() bool {
	return f.Mode <= ModeKnockdown &&
		f.Attack <= AttackSuper &&
		f.Facing <= FacingRight &&
		f.LastLocation <= Airborne &&
		f.anim <= AnimLightAttack
}

// consistent reports whether the mode, timer and attack agree with each other the way
// TickStateMachine leaves them.
func (f *FighterState) consistent() bool {
	if f.Mode == ModeNeutral {
		return f.Attack == AttackNone
	}
	return f.ModeT > 0
}

// fighterEncodedSize is the byte length of one encoded FighterState.
const fighterEncodedSize = 16 + 16 + 8 + 1 + 4 + 1 + 1 + 1 + 4 + 1 + 4
