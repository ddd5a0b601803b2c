package match

import (
	"sync/atomic"
	"time"

	"fightcore/internal/game"
)

// RecentChecksums is how many per-tick checksums a snapshot carries.
const RecentChecksums = 32

// FighterSnapshot is a display copy of one fighter. Floats are for humans only;
// nothing reads them back into the simulation.
type FighterSnapshot struct {
	Handle    string  `json:"handle"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	VX        float64 `json:"vx"`
	VY        float64 `json:"vy"`
	Health    float64 `json:"health"`
	Mode      string  `json:"mode"`
	ModeT     int32   `json:"modeT"`
	Attack    string  `json:"attack"`
	Facing    string  `json:"facing"`
	Animation string  `json:"animation"`
}

// TickChecksum pairs a tick with the checksum of the state at its start.
type TickChecksum struct {
	Tick     game.Tick `json:"tick"`
	Checksum uint64    `json:"checksum"`
}

// MatchSnapshot is an immutable view of a match for readers outside the runner
// goroutine. Published snapshots are never modified.
type MatchSnapshot struct {
	Sequence  uint64    `json:"sequence"`
	Timestamp time.Time `json:"timestamp"`
	MatchID   string    `json:"matchId"`
	Tick      game.Tick `json:"tick"`
	Checksum  uint64    `json:"checksum"`

	Fighters [game.FighterCount]FighterSnapshot `json:"fighters"`

	Rollbacks   uint64 `json:"rollbacks"`
	Resimulated uint64 `json:"resimulated"`
	Desyncs     uint64 `json:"desyncs"`

	// Oldest first
	Checksums []TickChecksum `json:"checksums"`
}

// SnapshotPool hands the latest snapshot from the runner to any number of readers
// without locks.
type SnapshotPool struct {
	latest   atomic.Pointer[MatchSnapshot]
	sequence atomic.Uint64
}

// NewSnapshotPool creates an empty pool.
func NewSnapshotPool() *SnapshotPool {
	return &SnapshotPool{}
}

// Publish stamps snap and makes it the latest. The caller must not touch snap
// afterwards.
func (p *SnapshotPool) Publish(snap *MatchSnapshot) {
	snap.Sequence = p.sequence.Add(1)
	snap.Timestamp = time.Now()
	p.latest.Store(snap)
}

// Latest returns the most recent snapshot, or nil before the first Publish.
func (p *SnapshotPool) Latest() *MatchSnapshot {
	return p.latest.Load()
}

func fighterSnapshot(handle string, f *game.FighterState) FighterSnapshot {
	return FighterSnapshot{
		Handle:    handle,
		X:         f.Position.X.Float64(),
		Y:         f.Position.Y.Float64(),
		VX:        f.Velocity.X.Float64(),
		VY:        f.Velocity.Y.Float64(),
		Health:    f.Health.Float64(),
		Mode:      f.Mode.String(),
		ModeT:     f.ModeT,
		Attack:    f.Attack.String(),
		Facing:    f.Facing.String(),
		Animation: f.Animation().String(),
	}
}
