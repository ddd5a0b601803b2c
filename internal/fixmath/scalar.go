// Package fixmath provides deterministic fixed-point arithmetic for gameplay values.
//
// Every value that feeds a checksum is a Scalar: a signed 52.12 fixed-point number
// backed by golang.org/x/image/math/fixed. Integer arithmetic produces identical bits
// on every platform and compiler, which native floats do not guarantee.
//
// Numeric edge cases never fail: division by zero returns zero, overflow saturates,
// and a zero-length vector normalizes to zero.
package fixmath

import (
	"encoding/json"
	"math"
	"math/bits"
	"strconv"

	"golang.org/x/image/math/fixed"
)

// FracBits is the number of fractional bits in a Scalar.
const FracBits = 12

// Scalar is a 52.12 fixed-point number. Compare with the regular Go operators; use
// Add, Sub, Mul and Div for arithmetic so results saturate instead of wrapping.
type Scalar int64

const (
	Zero     Scalar = 0
	One      Scalar = 1 << FracBits
	Half     Scalar = One / 2
	MaxValue Scalar = math.MaxInt64
	MinValue Scalar = math.MinInt64 + 1 // symmetric, so Neg never overflows
)

// FromInt converts an integer to a Scalar, saturating out-of-range values.
func FromInt(n int64) Scalar {
	const limit = int64(MaxValue) >> FracBits
	if n > limit {
		return MaxValue
	}
	if n < -limit {
		return MinValue
	}
	return Scalar(n << FracBits)
}

// FromRatio returns num/den, truncated toward zero. A zero denominator yields zero.
func FromRatio(num, den int64) Scalar {
	return FromInt(num).Div(FromInt(den))
}

// FromFloat converts a float to the nearest Scalar. It exists for loading designer
// data; the conversion itself is exact IEEE arithmetic and therefore reproducible.
// NaN becomes zero and infinities saturate.
func FromFloat(f float64) Scalar {
	switch {
	case math.IsNaN(f):
		return Zero
	case f >= float64(MaxValue)/float64(One):
		return MaxValue
	case f <= float64(MinValue)/float64(One):
		return MinValue
	}
	return Scalar(math.Round(f * float64(One)))
}

// FromRaw reinterprets raw 52.12 bits as a Scalar.
func FromRaw(raw int64) Scalar { return Scalar(raw) }

// Raw returns the underlying 52.12 bits.
func (s Scalar) Raw() int64 { return int64(s) }

// Float64 converts to float64. Only for display and serialization to humans.
func (s Scalar) Float64() float64 { return float64(s) / float64(One) }

// Add returns s+o, saturating at MinValue and MaxValue.
func (s Scalar) Add(o Scalar) Scalar {
	r := s + o
	if (s^r)&(o^r) < 0 {
		if s < 0 {
			return MinValue
		}
		return MaxValue
	}
	return Max(r, MinValue)
}

// Sub returns s-o, saturating at MinValue and MaxValue.
func (s Scalar) Sub(o Scalar) Scalar {
	r := s - o
	if (s^o)&(s^r) < 0 {
		if s < 0 {
			return MinValue
		}
		return MaxValue
	}
	return Max(r, MinValue)
}

// Mul returns s*o rounded to nearest, saturating when the product does not fit.
func (s Scalar) Mul(o Scalar) Scalar {
	hi, _ := bits.Mul64(absU(int64(s)), absU(int64(o)))
	// The 128-bit product must stay below 2^(63+FracBits).
	if hi>>(FracBits-1) != 0 {
		if (s < 0) != (o < 0) {
			return MinValue
		}
		return MaxValue
	}
	return Scalar(fixed.Int52_12(s).Mul(fixed.Int52_12(o)))
}

// Div returns s/o truncated toward zero. Division by zero returns zero and results
// that do not fit saturate.
func (s Scalar) Div(o Scalar) Scalar {
	if o == 0 {
		return Zero
	}
	neg := (s < 0) != (o < 0)
	num, den := absU(int64(s)), absU(int64(o))

	hi, lo := num>>(64-FracBits), num<<FracBits
	if hi >= den {
		if neg {
			return MinValue
		}
		return MaxValue
	}
	q, _ := bits.Div64(hi, lo, den)
	if q > uint64(MaxValue) {
		q = uint64(MaxValue)
	}
	if neg {
		return -Scalar(q)
	}
	return Scalar(q)
}

// Neg returns -s.
func (s Scalar) Neg() Scalar {
	if s == math.MinInt64 {
		return MaxValue
	}
	return -s
}

// Abs returns |s|.
func (s Scalar) Abs() Scalar {
	if s < 0 {
		return s.Neg()
	}
	return s
}

// Floor returns the greatest integer not above s.
func (s Scalar) Floor() int { return fixed.Int52_12(s).Floor() }

// Round returns the nearest integer, halves rounding up.
func (s Scalar) Round() int { return fixed.Int52_12(s).Round() }

// Sqrt returns the square root of s, or zero when s is not positive.
func (s Scalar) Sqrt() Scalar {
	if s <= 0 {
		return Zero
	}
	u := uint64(s)
	if u < 1<<(63-FracBits) {
		return Scalar(isqrt(u << FracBits))
	}
	// Loses the lowest fractional bits for very large inputs.
	return Scalar(isqrt(u) << (FracBits / 2))
}

// Min returns the smaller of a and b.
func Min(a, b Scalar) Scalar {
	if a < b {
		return a
	}
	return b
}

// Max returns the larger of a and b.
func Max(a, b Scalar) Scalar {
	if a > b {
		return a
	}
	return b
}

// Clamp limits s to [lo, hi].
func Clamp(s, lo, hi Scalar) Scalar {
	return Max(lo, Min(hi, s))
}

func (s Scalar) String() string {
	return strconv.FormatFloat(s.Float64(), 'f', -1, 64)
}

// MarshalJSON writes the value as a decimal number.
func (s Scalar) MarshalJSON() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalJSON reads a decimal number.
func (s *Scalar) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*s = FromFloat(f)
	return nil
}

func absU(v int64) uint64 {
	if v < 0 {
		return uint64(-v)
	}
	return uint64(v)
}

// isqrt returns floor(sqrt(n)) using the digit-by-digit method.
func isqrt(n uint64) uint64 {
	var res uint64
	bit := uint64(1) << 62
	for bit > n {
		bit >>= 2
	}
	for bit != 0 {
		if n >= res+bit {
			n -= res + bit
			res = res>>1 + bit
		} else {
			res >>= 1
		}
		bit >>= 2
	}
	return res
}
