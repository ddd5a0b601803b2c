package game

import (
	"encoding/binary"

	"fightcore/internal/fixmath"
)

// encoder appends the canonical little-endian encoding used for checksums and
// character digests. Fields are written in struct order; only strings carry a
// length prefix.
type encoder struct {
	buf []byte
}

func (e *encoder) u8(v uint8)              { e.buf = append(e.buf, v) }
func (e *encoder) i32(v int32)             { e.buf = binary.LittleEndian.AppendUint32(e.buf, uint32(v)) }
func (e *encoder) i64(v int64)             { e.buf = binary.LittleEndian.AppendUint64(e.buf, uint64(v)) }
func (e *encoder) tick(t Tick)             { e.i32(int32(t)) }
func (e *encoder) scalar(s fixmath.Scalar) { e.i64(s.Raw()) }

func (e *encoder) vec(v fixmath.Vec2) {
	e.scalar(v.X)
	e.scalar(v.Y)
}

func (e *encoder) str(s string) {
	e.i32(int32(len(s)))
	e.buf = append(e.buf, s...)
}

func (e *encoder) props(p BoxProps) {
	e.u8(uint8(p.Kind))
	e.scalar(p.Damage)
	e.i32(p.HitstunTicks)
	e.vec(p.Knockback)
}

func (e *encoder) box(b Box) {
	e.vec(b.Center)
	e.vec(b.Size)
	e.props(b.Props)
}

// decoder reads what encoder wrote. A short buffer sets err and yields zeros.
type decoder struct {
	buf []byte
	err error
}

func (d *decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if len(d.buf) < n {
		d.err = ErrBadEncoding
		return nil
	}
	b := d.buf[:n]
	d.buf = d.buf[n:]
	return b
}

func (d *decoder) u8() uint8 {
	if b := d.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (d *decoder) i32() int32 {
	if b := d.take(4); b != nil {
		return int32(binary.LittleEndian.Uint32(b))
	}
	return 0
}

func (d *decoder) i64() int64 {
	if b := d.take(8); b != nil {
		return int64(binary.LittleEndian.Uint64(b))
	}
	return 0
}

func (d *decoder) tick() Tick             { return Tick(d.i32()) }
func (d *decoder) scalar() fixmath.Scalar { return fixmath.FromRaw(d.i64()) }

func (d *decoder) vec() fixmath.Vec2 {
	x := d.scalar()
	y := d.scalar()
	return fixmath.V(x, y)
}
