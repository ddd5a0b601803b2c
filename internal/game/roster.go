package game

import (
	"fmt"

	"github.com/samber/lo"
)

// PlayerKind classifies a roster slot.
type PlayerKind uint8

const (
	PlayerLocal PlayerKind = iota
	PlayerRemote
	PlayerSpectator
)

func (k PlayerKind) String() string {
	switch k {
	case PlayerLocal:
		return "local"
	case PlayerRemote:
		return "remote"
	case PlayerSpectator:
		return "spectator"
	default:
		return "unknown"
	}
}

// PlayerSlot is one roster entry. Handle is the transport-level identity.
type PlayerSlot struct {
	Kind   PlayerKind `json:"kind"`
	Handle string     `json:"handle"`
}

// Roster is the ordered participant list, fixed before the match starts. The first
// non-spectator is fighter slot 0, the second is slot 1.
type Roster struct {
	Slots []PlayerSlot `json:"slots"`
}

// LocalVersus is a roster of two local players, for offline play and tests.
func LocalVersus() Roster {
	return Roster{Slots: []PlayerSlot{
		{Kind: PlayerLocal, Handle: "p1"},
		{Kind: PlayerLocal, Handle: "p2"},
	}}
}

// Players returns the non-spectator slots in fighter order.
func (r Roster) Players() []PlayerSlot {
	return lo.Filter(r.Slots, func(s PlayerSlot, _ int) bool {
		return s.Kind != PlayerSpectator
	})
}

// Validate checks the roster has exactly two fighters and unique, non-empty handles.
func (r Roster) Validate() error {
	if n := len(r.Players()); n != FighterCount {
		return fmt.Errorf("%w: need 2 players, have %d", ErrInvalidRoster, n)
	}
	for _, s := range r.Slots {
		if s.Kind > PlayerSpectator {
			return fmt.Errorf("%w: unknown kind %d for %q", ErrInvalidRoster, s.Kind, s.Handle)
		}
		if s.Handle == "" {
			return fmt.Errorf("%w: empty handle", ErrInvalidRoster)
		}
	}
	handles := lo.Map(r.Slots, func(s PlayerSlot, _ int) string { return s.Handle })
	if dups := lo.FindDuplicates(handles); len(dups) > 0 {
		return fmt.Errorf("%w: duplicate handle %q", ErrInvalidRoster, dups[0])
	}
	return nil
}

// Clone returns a copy that shares no memory with r.
func (r Roster) Clone() Roster {
	return Roster{Slots: append([]PlayerSlot(nil), r.Slots...)}
}

// FighterSlot returns the fighter index for a transport handle, or -1 when the handle
// is unknown or a spectator.
func (r Roster) FighterSlot(handle string) int {
	_, idx, ok := lo.FindIndexOf(r.Players(), func(s PlayerSlot) bool {
		return s.Handle == handle
	})
	if !ok {
		return -1
	}
	return idx
}
