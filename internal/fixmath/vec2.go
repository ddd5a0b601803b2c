package fixmath

import "fmt"

// Vec2 is a 2D vector of Scalars. It is a value type; copies never alias.
type Vec2 struct {
	X Scalar `json:"x"`
	Y Scalar `json:"y"`
}

// magnitudeLimit bounds each component before squaring so the sum of squares fits in
// 63 bits. It is far outside any arena coordinate.
const magnitudeLimit = Scalar(1) << 31

var (
	ZeroVec  = Vec2{}
	RightVec = Vec2{X: One}
	LeftVec  = Vec2{X: -One}
	UpVec    = Vec2{Y: One}
	DownVec  = Vec2{Y: -One}
)

// V builds a vector from two scalars.
func V(x, y Scalar) Vec2 { return Vec2{X: x, Y: y} }

// VInt builds a vector from integer components.
func VInt(x, y int64) Vec2 { return Vec2{X: FromInt(x), Y: FromInt(y)} }

// VFloat builds a vector from float components (designer data only).
func VFloat(x, y float64) Vec2 { return Vec2{X: FromFloat(x), Y: FromFloat(y)} }

func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X.Add(o.X), v.Y.Add(o.Y)} }
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X.Sub(o.X), v.Y.Sub(o.Y)} }
func (v Vec2) Neg() Vec2       { return Vec2{v.X.Neg(), v.Y.Neg()} }

// Scale multiplies both components by s.
func (v Vec2) Scale(s Scalar) Vec2 { return Vec2{v.X.Mul(s), v.Y.Mul(s)} }

// DivScalar divides both components by s. Division by zero yields the zero vector.
func (v Vec2) DivScalar(s Scalar) Vec2 { return Vec2{v.X.Div(s), v.Y.Div(s)} }

// Dot returns the dot product.
func (v Vec2) Dot(o Vec2) Scalar { return v.X.Mul(o.X).Add(v.Y.Mul(o.Y)) }

// MirrorX flips the horizontal component.
func (v Vec2) MirrorX() Vec2 { return Vec2{v.X.Neg(), v.Y} }

// IsZero reports whether both components are zero.
func (v Vec2) IsZero() bool { return v.X == 0 && v.Y == 0 }

// Magnitude returns the exact floor of the Euclidean length in 52.12. Components
// beyond ±2^19 units are clamped first.
func (v Vec2) Magnitude() Scalar {
	x := uint64(Clamp(v.X, -magnitudeLimit, magnitudeLimit).Abs())
	y := uint64(Clamp(v.Y, -magnitudeLimit, magnitudeLimit).Abs())
	// Raw squares are in 40.24; their root is back in 52.12.
	return Scalar(isqrt(x*x + y*y))
}

// SqrMagnitude returns the squared length.
func (v Vec2) SqrMagnitude() Scalar { return v.Dot(v) }

// Normalize returns the unit vector in v's direction; the zero vector maps to zero.
func (v Vec2) Normalize() Vec2 {
	mag := v.Magnitude()
	if mag == 0 {
		return ZeroVec
	}
	return v.DivScalar(mag)
}

// At returns the component for index 0 (X) or 1 (Y). Any other index returns zero.
func (v Vec2) At(i int) Scalar {
	switch i {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return Zero
	}
}

// WithAt returns a copy with component i replaced. Unknown indices leave v unchanged.
func (v Vec2) WithAt(i int, s Scalar) Vec2 {
	switch i {
	case 0:
		v.X = s
	case 1:
		v.Y = s
	}
	return v
}

func (v Vec2) String() string {
	return fmt.Sprintf("(%s, %s)", v.X, v.Y)
}
