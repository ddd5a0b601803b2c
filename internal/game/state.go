package game

import (
	"fmt"
	"hash/fnv"
)

// FighterCount is the number of combatants in a match.
const FighterCount = 2

// EncodedStateSize is the length of GameState's canonical encoding.
const EncodedStateSize = 4 + FighterCount*fighterEncodedSize

// GameState is everything the checksum covers. It is a plain value: assignment is a
// deep copy, which is what rollback checkpoints rely on.
type GameState struct {
	Tick     Tick
	Fighters [FighterCount]FighterState
}

// NewGameState builds the opening position: slot 0 on the left facing right, slot 1
// mirrored on the right facing left.
func NewGameState(a *Arena, chars *[FighterCount]CharacterConfig) GameState {
	return GameState{
		Tick: FirstTick,
		Fighters: [FighterCount]FighterState{
			NewFighter(a.Start[0], FacingRight, chars[0].Health, a),
			NewFighter(a.Start[1], FacingLeft, chars[1].Health, a),
		},
	}
}

// AppendBinary appends the canonical little-endian encoding. Derived values such as
// Location are not encoded.
func (s *GameState) AppendBinary(b []byte) []byte {
	e := encoder{buf: b}
	e.tick(s.Tick)
	for i := range s.Fighters {
		s.Fighters[i].encode(&e)
	}
	return e.buf
}

// MarshalBinary returns the canonical encoding.
func (s *GameState) MarshalBinary() ([]byte, error) {
	return s.AppendBinary(make([]byte, 0, EncodedStateSize)), nil
}

// UnmarshalBinary restores a state from its canonical encoding.
func (s *GameState) UnmarshalBinary(data []byte) error {
	if len(data) != EncodedStateSize {
		return fmt.Errorf("%w: %d bytes, want %d", ErrBadEncoding, len(data), EncodedStateSize)
	}
	var next GameState
	d := decoder{buf: data}
	next.Tick = d.tick()
	for i := range next.Fighters {
		next.Fighters[i].decode(&d)
	}
	if d.err != nil {
		return d.err
	}
	for i := range next.Fighters {
		if !next.Fighters[i].valid() {
			return fmt.Errorf("%w: fighter %d has an out-of-range enum", ErrBadEncoding, i)
		}
		if !next.Fighters[i].consistent() {
			return fmt.Errorf("%w: fighter %d has an expired mode timer or a stray attack", ErrBadEncoding, i)
		}
	}
	*s = next
	return nil
}

// Checksum folds the canonical encoding through 64-bit FNV-1a.
func (s GameState) Checksum() uint64 {
	var buf [EncodedStateSize]byte
	h := fnv.New64a()
	h.Write(s.AppendBinary(buf[:0]))
	return h.Sum64()
}
