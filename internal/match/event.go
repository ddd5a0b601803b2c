package match

import (
	"encoding/json"
	"time"

	"fightcore/internal/game"
)

// EventType enum for event classification
type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTypeMatchStart
	EventTypeMatchEnd
	EventTypeHit
	EventTypeClank
	EventTypeRollback
	EventTypeDesync
	EventTypeLateInput // confirmed input arrived after its checkpoint was gone
)

// EventVersion for backwards compatibility when reading old logs
const EventVersion uint8 = 1

// Event is one line of the event log.
type Event struct {
	Version   uint8           `json:"version"`
	Type      EventType       `json:"type"`
	Timestamp int64           `json:"timestamp"` // Unix nano
	Sequence  uint64          `json:"sequence"`  // Monotonic sequence
	MatchID   string          `json:"matchId"`
	Tick      game.Tick       `json:"tick"`
	Subject   string          `json:"subject,omitempty"` // Player handle, used for rate limiting
	Payload   json.RawMessage `json:"payload,omitempty"`
}

func (t EventType) String() string {
	switch t {
	case EventTypeMatchStart:
		return "match_start"
	case EventTypeMatchEnd:
		return "match_end"
	case EventTypeHit:
		return "hit"
	case EventTypeClank:
		return "clank"
	case EventTypeRollback:
		return "rollback"
	case EventTypeDesync:
		return "desync"
	case EventTypeLateInput:
		return "late_input"
	default:
		return "unknown"
	}
}

// MarshalText writes the name rather than the number so the log stays readable.
func (t EventType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// UnmarshalText accepts the names written by MarshalText.
func (t *EventType) UnmarshalText(b []byte) error {
	for c := EventTypeMatchStart; c <= EventTypeLateInput; c++ {
		if c.String() == string(b) {
			*t = c
			return nil
		}
	}
	*t = EventTypeUnknown
	return nil
}

// Typed payloads for different event types

// MatchStartPayload describes the match being started.
type MatchStartPayload struct {
	Players          []string  `json:"players"`
	CharacterDigests [2]uint64 `json:"characterDigests"`
}

// MatchEndPayload is written when the runner closes.
type MatchEndPayload struct {
	FinalTick     game.Tick `json:"finalTick"`
	Checksum      uint64    `json:"checksum"`
	Health        [2]string `json:"health"`
	Rollbacks     uint64    `json:"rollbacks"`
	Resimulated   uint64    `json:"resimulated"`
	DesyncsLogged uint64    `json:"desyncs"`
}

// HitPayload contains hit details.
type HitPayload struct {
	Attacker int    `json:"attacker"`
	Victim   int    `json:"victim"`
	Damage   string `json:"damage"`
	VictimHP string `json:"victimHp"`
}

// RollbackPayload records a resimulation.
type RollbackPayload struct {
	From  game.Tick `json:"from"`
	To    game.Tick `json:"to"`
	Cause string    `json:"cause"`
}

// DesyncPayload records a checksum mismatch with a remote peer.
type DesyncPayload struct {
	Local  uint64 `json:"local"`
	Remote uint64 `json:"remote"`
}

// LateInputPayload records a correction that could not be applied.
type LateInputPayload struct {
	Slot  int    `json:"slot"`
	Input string `json:"input"`
}

// EncodePayload marshals a payload to JSON bytes
func EncodePayload(payload interface{}) json.RawMessage {
	if payload == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}

// NewEvent creates a new event with the current timestamp
func NewEvent(eventType EventType, matchID string, tick game.Tick, subject string, payload interface{}) Event {
	return Event{
		Version:   EventVersion,
		Type:      eventType,
		Timestamp: time.Now().UnixNano(),
		MatchID:   matchID,
		Tick:      tick,
		Subject:   subject,
		Payload:   EncodePayload(payload),
	}
}
