// Package replay records and plays back the inputs of a match. A replay file is a
// sequence of framed records: one header, one record per tick, and an optional end
// record carrying the final checksum.
package replay

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/google/uuid"

	"fightcore/internal/game"
)

const (
	// Record types
	RecordHeader byte = 0x01
	RecordTick   byte = 0x02
	RecordEnd    byte = 0x03

	// FormatVersion for compatibility checking
	FormatVersion uint16 = 1

	MaxRecordSize = 64 * 1024
	FrameSize     = 8 // 2 + 1 + 1 + 4
)

var (
	ErrCorrupt          = errors.New("replay: corrupt record")
	ErrVersion          = errors.New("replay: unsupported version")
	ErrConfigMismatch   = errors.New("replay: character data differs from the recording")
	ErrChecksumMismatch = errors.New("replay: final checksum differs from the recording")
	ErrHeaderTooLarge   = errors.New("replay: roster does not fit the header encoding")
)

// Frame is the record header.
type Frame struct {
	Version  uint16
	Type     byte
	Reserved byte
	Length   uint32
}

// Header describes the recorded match.
type Header struct {
	MatchID          uuid.UUID
	CreatedUnixNano  int64
	CharacterDigests [game.FighterCount]uint64
	Roster           game.Roster
}

// TickRecord is one tick's inputs, indexed by fighter slot. Missing trailing slots
// were missing when the tick ran.
type TickRecord struct {
	Tick   game.Tick
	Frames []game.InputFrame
}

// EndRecord closes a replay.
type EndRecord struct {
	FinalTick game.Tick
	Checksum  uint64
}

// writeRecord writes a framed record.
func writeRecord(w io.Writer, recType byte, body []byte) error {
	if len(body) > MaxRecordSize {
		return fmt.Errorf("record too large: %d > %d", len(body), MaxRecordSize)
	}

	var frame [FrameSize]byte
	binary.LittleEndian.PutUint16(frame[0:2], FormatVersion)
	frame[2] = recType
	frame[3] = 0
	binary.LittleEndian.PutUint32(frame[4:8], uint32(len(body)))

	if _, err := w.Write(frame[:]); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	if len(body) > 0 {
		if _, err := w.Write(body); err != nil {
			return fmt.Errorf("write body: %w", err)
		}
	}
	return nil
}

// readRecord reads a framed record. A clean end of input before the frame returns
// io.EOF; anything truncated after that is ErrCorrupt.
func readRecord(r io.Reader, body []byte) (byte, []byte, error) {
	var buf [FrameSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, nil, io.EOF
		}
		return 0, nil, fmt.Errorf("%w: short frame: %v", ErrCorrupt, err)
	}

	frame := Frame{
		Version:  binary.LittleEndian.Uint16(buf[0:2]),
		Type:     buf[2],
		Reserved: buf[3],
		Length:   binary.LittleEndian.Uint32(buf[4:8]),
	}
	if frame.Version != FormatVersion {
		return 0, nil, fmt.Errorf("%w: got %d, want %d", ErrVersion, frame.Version, FormatVersion)
	}
	if frame.Length > MaxRecordSize {
		return 0, nil, fmt.Errorf("%w: record too large: %d", ErrCorrupt, frame.Length)
	}

	if cap(body) < int(frame.Length) {
		body = make([]byte, frame.Length)
	}
	body = body[:frame.Length]
	if _, err := io.ReadFull(r, body); err != nil {
		return 0, nil, fmt.Errorf("%w: short body: %v", ErrCorrupt, err)
	}
	return frame.Type, body, nil
}

// check reports whether the roster fits the one-byte slot count and the two-byte
// handle lengths of the header record.
func (h *Header) check() error {
	if n := len(h.Roster.Slots); n > math.MaxUint8 {
		return fmt.Errorf("%w: %d slots, at most %d", ErrHeaderTooLarge, n, math.MaxUint8)
	}
	for i, s := range h.Roster.Slots {
		if len(s.Handle) > math.MaxUint16 {
			return fmt.Errorf("%w: slot %d handle is %d bytes, at most %d", ErrHeaderTooLarge, i, len(s.Handle), math.MaxUint16)
		}
	}
	return nil
}

func encodeHeader(h *Header) []byte {
	b := make([]byte, 0, 64)
	b = append(b, h.MatchID[:]...)
	b = binary.LittleEndian.AppendUint64(b, uint64(h.CreatedUnixNano))
	for _, d := range h.CharacterDigests {
		b = binary.LittleEndian.AppendUint64(b, d)
	}
	b = append(b, byte(len(h.Roster.Slots)))
	for _, s := range h.Roster.Slots {
		b = append(b, byte(s.Kind))
		b = binary.LittleEndian.AppendUint16(b, uint16(len(s.Handle)))
		b = append(b, s.Handle...)
	}
	return b
}

func decodeHeader(body []byte) (Header, error) {
	c := cursor{buf: body}
	var h Header
	copy(h.MatchID[:], c.take(16))
	h.CreatedUnixNano = int64(c.u64())
	for i := range h.CharacterDigests {
		h.CharacterDigests[i] = c.u64()
	}
	n := int(c.u8())
	for i := 0; i < n && c.err == nil; i++ {
		kind := game.PlayerKind(c.u8())
		handle := string(c.take(int(c.u16())))
		h.Roster.Slots = append(h.Roster.Slots, game.PlayerSlot{Kind: kind, Handle: handle})
	}
	if err := c.done(); err != nil {
		return Header{}, fmt.Errorf("header: %w", err)
	}
	return h, nil
}

func appendTick(b []byte, tick game.Tick, frames []game.InputFrame) []byte {
	n := min(len(frames), game.FighterCount)
	b = binary.LittleEndian.AppendUint32(b, uint32(tick))
	b = append(b, byte(n))
	for _, f := range frames[:n] {
		b = binary.LittleEndian.AppendUint16(b, uint16(f.Input.Flags))
		b = append(b, byte(f.Status))
	}
	return b
}

func decodeTick(body []byte) (TickRecord, error) {
	c := cursor{buf: body}
	rec := TickRecord{Tick: game.Tick(int32(c.u32()))}
	n := int(c.u8())
	if n > game.FighterCount {
		return TickRecord{}, fmt.Errorf("%w: %d input slots", ErrCorrupt, n)
	}
	rec.Frames = make([]game.InputFrame, n)
	for i := range rec.Frames {
		rec.Frames[i].Input = game.Input(game.InputFlags(c.u16()))
		rec.Frames[i].Status = game.InputStatus(c.u8())
	}
	if err := c.done(); err != nil {
		return TickRecord{}, fmt.Errorf("tick: %w", err)
	}
	return rec, nil
}

func appendEnd(b []byte, e EndRecord) []byte {
	b = binary.LittleEndian.AppendUint32(b, uint32(e.FinalTick))
	return binary.LittleEndian.AppendUint64(b, e.Checksum)
}

func decodeEnd(body []byte) (EndRecord, error) {
	c := cursor{buf: body}
	e := EndRecord{FinalTick: game.Tick(int32(c.u32())), Checksum: c.u64()}
	if err := c.done(); err != nil {
		return EndRecord{}, fmt.Errorf("end: %w", err)
	}
	return e, nil
}

// cursor reads little-endian fields and remembers the first short read.
type cursor struct {
	buf []byte
	err error
}

func (c *cursor) take(n int) []byte {
	if c.err != nil {
		return nil
	}
	if n > len(c.buf) {
		c.err = ErrCorrupt
		c.buf = nil
		return nil
	}
	out := c.buf[:n]
	c.buf = c.buf[n:]
	return out
}

func (c *cursor) u8() uint8 {
	if b := c.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (c *cursor) u16() uint16 {
	if b := c.take(2); b != nil {
		return binary.LittleEndian.Uint16(b)
	}
	return 0
}

func (c *cursor) u32() uint32 {
	if b := c.take(4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

func (c *cursor) u64() uint64 {
	if b := c.take(8); b != nil {
		return binary.LittleEndian.Uint64(b)
	}
	return 0
}

// done fails on a short read or trailing bytes.
func (c *cursor) done() error {
	if c.err != nil {
		return c.err
	}
	if len(c.buf) != 0 {
		return fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, len(c.buf))
	}
	return nil
}
