package game

import "fightcore/internal/fixmath"

// BoxKind distinguishes attacking boxes from vulnerable ones.
type BoxKind uint8

const (
	BoxHurt BoxKind = iota // Can be hit
	BoxHit                 // Deals a hit to overlapping hurtboxes
)

func (k BoxKind) String() string {
	if k == BoxHit {
		return "hit"
	}
	return "hurt"
}

// BoxProps carries what happens when a hitbox connects. Hurtboxes leave the hit
// fields zero.
type BoxProps struct {
	Kind         BoxKind        `json:"kind"`
	Damage       fixmath.Scalar `json:"damage"`
	HitstunTicks int32          `json:"hitstun_ticks"`
	Knockback    fixmath.Vec2   `json:"knockback"` // authored for a right-facing attacker
}

// Box is an axis-aligned rectangle in fighter-local space (center offset from the
// fighter's position, full size).
type Box struct {
	Center fixmath.Vec2 `json:"center"`
	Size   fixmath.Vec2 `json:"size"`
	Props  BoxProps     `json:"props"`
}

// MaxBoxesPerFrame bounds FrameData so lookups never allocate.
const MaxBoxesPerFrame = 4

// FrameData is the set of boxes a fighter presents on one animation frame.
type FrameData struct {
	boxes [MaxBoxesPerFrame]Box
	n     int
}

// Add appends a box. Boxes past MaxBoxesPerFrame are dropped.
func (f *FrameData) Add(b Box) {
	if f.n < MaxBoxesPerFrame {
		f.boxes[f.n] = b
		f.n++
	}
}

// Len returns the number of boxes.
func (f *FrameData) Len() int { return f.n }

// Box returns box i.
func (f *FrameData) Box(i int) Box { return f.boxes[i] }

// BoxSink is the collision query structure boxes are written into. The fighter state
// machine only writes; hit resolution reads from the sink's owner.
type BoxSink interface {
	AddBox(handle int, center, size fixmath.Vec2, props BoxProps)
}
