// Package match drives a game.Simulation for one match: it keeps rollback
// checkpoints, applies late corrections from remote peers, compares checksums, and
// publishes snapshots, metrics and events for everything outside the simulation
// goroutine.
package match

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"

	"fightcore/internal/config"
	"fightcore/internal/game"
)

// InputSource supplies the local inputs for each tick. Returning io.EOF ends the
// match normally.
type InputSource interface {
	Inputs(tick game.Tick) ([]game.InputFrame, error)
}

// InputSourceFunc adapts a function to InputSource.
type InputSourceFunc func(tick game.Tick) ([]game.InputFrame, error)

func (f InputSourceFunc) Inputs(tick game.Tick) ([]game.InputFrame, error) { return f(tick) }

// Recorder receives each tick's inputs once they can no longer be corrected.
type Recorder interface {
	WriteTick(tick game.Tick, frames []game.InputFrame) error
}

// finisher is implemented by recorders that store the final checksum.
type finisher interface {
	Finish(finalTick game.Tick, checksum uint64) error
}

// Option configures a Runner.
type Option func(*Runner)

// WithSimConfig sets tick rate and checkpoint depth.
func WithSimConfig(cfg config.SimConfig) Option {
	return func(r *Runner) { r.cfg = cfg }
}

// WithEventLog sends match events to el. The caller owns its lifecycle.
func WithEventLog(el *EventLog) Option {
	return func(r *Runner) { r.events = el }
}

// WithIntake lets remote peers feed confirmed inputs through in.
func WithIntake(in *Intake) Option {
	return func(r *Runner) { r.intake = in }
}

// WithRecorder records finalized inputs, typically to a replay file.
func WithRecorder(rec Recorder) Option {
	return func(r *Runner) { r.recorder = rec }
}

// WithSnapshots publishes snapshots to pool instead of a private one.
func WithSnapshots(pool *SnapshotPool) Option {
	return func(r *Runner) { r.snapshots = pool }
}

// WithMatchID overrides the generated match id.
func WithMatchID(id uuid.UUID) Option {
	return func(r *Runner) { r.id = id }
}

type pendingInputs struct {
	frames [game.FighterCount]game.InputFrame
	has    [game.FighterCount]bool
}

// Runner is the single owner of a Simulation. None of its methods are safe for
// concurrent use; other goroutines talk to it through Intake and SnapshotPool.
type Runner struct {
	id  uuid.UUID
	cfg config.SimConfig
	sim *game.Simulation

	roster  game.Roster
	handles [game.FighterCount]string
	remote  [game.FighterCount]bool

	histories [game.FighterCount]game.InputHistory
	ring      checkpointRing
	pending   map[game.Tick]pendingInputs

	events    *EventLog
	intake    *Intake
	snapshots *SnapshotPool
	recorder  Recorder
	recorded  game.Tick // next tick owed to the recorder
	recordErr error

	resimulating bool
	closed       bool

	rollbacks   uint64
	resimulated uint64
	desyncs     uint64
}

// NewRunner initializes a simulation for roster and takes ownership of it.
func NewRunner(cfg game.Config, roster game.Roster, opts ...Option) (*Runner, error) {
	r := &Runner{
		id:      uuid.New(),
		cfg:     config.DefaultSim(),
		pending: make(map[game.Tick]pendingInputs),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.snapshots == nil {
		r.snapshots = NewSnapshotPool()
	}

	sim := game.NewSimulation(cfg)
	if err := sim.Init(roster); err != nil {
		return nil, fmt.Errorf("init simulation: %w", err)
	}
	r.sim = sim
	r.roster = roster.Clone()
	r.ring = newCheckpointRing(r.cfg.CheckpointDepth)

	players := r.roster.Players()
	for i := range r.handles {
		r.handles[i] = players[i].Handle
		r.remote[i] = players[i].Kind == game.PlayerRemote
	}

	r.events.EmitSimple(EventTypeMatchStart, r.MatchID(), r.sim.Tick(), "", MatchStartPayload{
		Players:          r.handles[:],
		CharacterDigests: [2]uint64{cfg.Characters[0].Digest(), cfg.Characters[1].Digest()},
	})
	log.Printf("🥊 Match %s: %s vs %s (checkpoint depth %d)", r.MatchID(), r.handles[0], r.handles[1], r.ring.depth())

	r.publish()
	return r, nil
}

// Step simulates the next tick with inputs indexed by fighter slot.
func (r *Runner) Step(inputs []game.InputFrame) error {
	if r.closed {
		return ErrClosed
	}
	start := time.Now()
	r.advance(inputs)
	tickDuration.Observe(time.Since(start).Seconds())
	r.publish()
	return nil
}

// advance checkpoints the current tick, then simulates it.
func (r *Runner) advance(inputs []game.InputFrame) {
	tick := r.sim.Tick()
	cp := r.ring.slot(tick)
	if cp.valid && cp.tick != tick {
		// The slot is being reused, so its tick can no longer be corrected.
		r.record(cp)
	}

	*cp = checkpoint{
		tick:      tick,
		state:     r.sim.State(),
		histories: r.histories,
		provided:  min(len(inputs), game.FighterCount),
		valid:     true,
	}
	copy(cp.inputs[:], inputs)
	cp.checksum = cp.state.Checksum()

	for i := range r.histories {
		var in game.PlayerInput
		if i < len(inputs) {
			in = inputs[i].Input
		}
		r.histories[i].Push(in)
	}

	r.sim.Advance(cp.frames())

	// Resimulated hits were already reported when the tick first ran
	if !r.resimulating {
		r.reportHits()
	}
}

// Rollback replaces the inputs of ticks tick, tick+1, ... with corrected and
// resimulates up to the current tick. Slots missing from a correction are treated
// as missing inputs.
func (r *Runner) Rollback(tick game.Tick, corrected [][]game.InputFrame) error {
	if r.closed {
		return ErrClosed
	}
	now := r.sim.Tick()
	if end := tick + game.Tick(len(corrected)); end > now {
		return fmt.Errorf("%w: corrections reach tick %d, current tick is %d", ErrRollbackAhead, end-1, now)
	}
	if tick == now {
		return nil
	}
	if r.ring.get(tick) == nil {
		return fmt.Errorf("%w: tick %d, current tick %d, depth %d", ErrRollbackTooFar, tick, now, r.ring.depth())
	}

	for i, frames := range corrected {
		cp := r.ring.get(tick + game.Tick(i))
		cp.inputs = [game.FighterCount]game.InputFrame{}
		cp.provided = min(len(frames), game.FighterCount)
		copy(cp.inputs[:], frames)
	}

	start := time.Now()
	r.resimulate(tick, "correction")
	tickDuration.Observe(time.Since(start).Seconds())
	r.publish()
	return nil
}

// resimulate restores the checkpoint at from and replays every stored tick up to
// the current one.
func (r *Runner) resimulate(from game.Tick, cause string) {
	now := r.sim.Tick()
	cp := r.ring.get(from)
	r.sim.Restore(cp.state)
	r.histories = cp.histories

	r.resimulating = true
	for t := from; t < now; t++ {
		c := r.ring.get(t)
		in := c.inputs
		r.advance(in[:c.provided])
	}
	r.resimulating = false

	n := uint64(now - from)
	r.rollbacks++
	r.resimulated += n
	rollbacksTotal.Inc()
	resimulatedTicks.Add(float64(n))

	r.events.EmitSimple(EventTypeRollback, r.MatchID(), now, "", RollbackPayload{From: from, To: now, Cause: cause})
}

// Reconcile drains the intake. Inputs for future ticks are held until their tick;
// inputs for past ticks that differ from what was simulated trigger a rollback to
// the earliest of them.
func (r *Runner) Reconcile() error {
	if r.closed {
		return ErrClosed
	}
	if r.intake == nil {
		return nil
	}
	subs := r.intake.Drain()
	if len(subs) == 0 {
		return nil
	}

	now := r.sim.Tick()
	earliest := game.NullTick
	for _, s := range subs {
		slot := r.roster.FighterSlot(s.Peer)
		if slot < 0 {
			continue
		}
		confirmed := game.InputFrame{Input: s.Input, Status: game.StatusConfirmed}

		if s.Tick >= now {
			if int(s.Tick-now) >= r.ring.depth() {
				continue
			}
			p := r.pending[s.Tick]
			p.frames[slot] = confirmed
			p.has[slot] = true
			r.pending[s.Tick] = p
			continue
		}

		cp := r.ring.get(s.Tick)
		if cp == nil {
			lateInputs.Inc()
			r.events.EmitSimple(EventTypeLateInput, r.MatchID(), s.Tick, s.Peer, LateInputPayload{Slot: slot, Input: s.Input.Flags.String()})
			continue
		}
		if slot < cp.provided && cp.inputs[slot].Input == s.Input {
			cp.inputs[slot].Status = game.StatusConfirmed
			continue
		}
		cp.inputs[slot] = confirmed
		cp.provided = max(cp.provided, slot+1)
		if earliest.IsNull() || s.Tick < earliest {
			earliest = s.Tick
		}
	}

	if !earliest.IsNull() {
		start := time.Now()
		r.resimulate(earliest, "late input")
		tickDuration.Observe(time.Since(start).Seconds())
		r.publish()
	}
	return nil
}

// withRemote fills remote slots with held confirmed inputs, or predicts them by
// repeating the last input the slot played.
func (r *Runner) withRemote(local []game.InputFrame) []game.InputFrame {
	tick := r.sim.Tick()
	var out [game.FighterCount]game.InputFrame
	n := copy(out[:], local)

	p, held := r.pending[tick]
	delete(r.pending, tick)
	for slot := range out {
		if !r.remote[slot] {
			continue
		}
		if held && p.has[slot] {
			out[slot] = p.frames[slot]
		} else {
			out[slot] = game.InputFrame{Input: r.histories[slot].Get(0), Status: game.StatusPredicted}
		}
		n = max(n, slot+1)
	}
	return out[:n]
}

// Run steps the match at the configured tick rate until ctx is cancelled or source
// returns io.EOF. Remote slots are filled from the intake.
func (r *Runner) Run(ctx context.Context, source InputSource) error {
	ticker := time.NewTicker(r.cfg.TickInterval())
	defer ticker.Stop()

	log.Printf("▶️ Match %s running at %d ticks/s", r.MatchID(), r.cfg.TickRate)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if err := r.Reconcile(); err != nil {
			return err
		}
		frames, err := source.Inputs(r.sim.Tick())
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("input source at tick %d: %w", r.sim.Tick(), err)
		}
		if err := r.Step(r.withRemote(frames)); err != nil {
			return err
		}
	}
}

// ChecksumAt returns the checksum of the state at the start of tick. Only the
// current tick and those still in the checkpoint window are known.
func (r *Runner) ChecksumAt(tick game.Tick) (uint64, bool) {
	if tick == r.sim.Tick() {
		return r.sim.Checksum(), true
	}
	cp := r.ring.get(tick)
	if cp == nil {
		return 0, false
	}
	return cp.checksum, true
}

// VerifyRemote compares a peer's checksum for tick against ours.
func (r *Runner) VerifyRemote(tick game.Tick, remote uint64) error {
	local, ok := r.ChecksumAt(tick)
	if !ok {
		return fmt.Errorf("%w %d", ErrUnknownTick, tick)
	}
	if local == remote {
		return nil
	}

	r.desyncs++
	desyncsTotal.Inc()
	log.Printf("⚠️ Desync in match %s at tick %d: local %016x, remote %016x", r.MatchID(), tick, local, remote)
	r.events.EmitSimple(EventTypeDesync, r.MatchID(), tick, "", DesyncPayload{Local: local, Remote: remote})
	return fmt.Errorf("%w at tick %d: local %016x, remote %016x", ErrDesync, tick, local, remote)
}

// Close flushes the remaining inputs to the recorder and shuts the simulation
// down. It returns the first recording error, if any.
func (r *Runner) Close() error {
	if r.closed {
		return r.recordErr
	}

	now := r.sim.Tick()
	for t := r.recorded; t < now; t++ {
		if cp := r.ring.get(t); cp != nil {
			r.record(cp)
		}
	}

	st := r.sim.State()
	sum := st.Checksum()
	if f, ok := r.recorder.(finisher); ok && r.recordErr == nil {
		if err := f.Finish(now, sum); err != nil {
			r.recordErr = fmt.Errorf("finish recording: %w", err)
		}
	}
	r.events.EmitSimple(EventTypeMatchEnd, r.MatchID(), now, "", MatchEndPayload{
		FinalTick:     now,
		Checksum:      sum,
		Health:        [2]string{st.Fighters[0].Health.String(), st.Fighters[1].Health.String()},
		Rollbacks:     r.rollbacks,
		Resimulated:   r.resimulated,
		DesyncsLogged: r.desyncs,
	})
	log.Printf("🏁 Match %s ended at tick %d (checksum %016x, %d rollbacks)", r.MatchID(), now, sum, r.rollbacks)

	r.closed = true
	r.sim.Shutdown()
	clear(r.pending)
	return r.recordErr
}

func (r *Runner) record(cp *checkpoint) {
	r.recorded = cp.tick + 1
	if r.recorder == nil || r.recordErr != nil {
		return
	}
	if err := r.recorder.WriteTick(cp.tick, cp.frames()); err != nil {
		r.recordErr = fmt.Errorf("record tick %d: %w", cp.tick, err)
		log.Printf("⚠️ Replay recording stopped: %v", r.recordErr)
	}
}

func (r *Runner) reportHits() {
	rep := r.sim.LastReport()
	if !rep.Any() {
		return
	}
	if rep.Clank {
		r.events.EmitSimple(EventTypeClank, r.MatchID(), rep.Tick, "", nil)
		return
	}
	st := r.sim.State()
	for atk, h := range rep.Hits {
		if !h.Applied {
			continue
		}
		victim := game.FighterCount - 1 - atk
		r.events.EmitSimple(EventTypeHit, r.MatchID(), rep.Tick, r.handles[atk], HitPayload{
			Attacker: atk,
			Victim:   victim,
			Damage:   h.Damage.String(),
			VictimHP: st.Fighters[victim].Health.String(),
		})
	}
}

func (r *Runner) publish() {
	if r.closed {
		return
	}
	st := r.sim.State()
	snap := &MatchSnapshot{
		MatchID:     r.MatchID(),
		Tick:        st.Tick,
		Checksum:    st.Checksum(),
		Rollbacks:   r.rollbacks,
		Resimulated: r.resimulated,
		Desyncs:     r.desyncs,
	}
	for i := range st.Fighters {
		snap.Fighters[i] = fighterSnapshot(r.handles[i], &st.Fighters[i])
	}

	from := max(st.Tick-RecentChecksums+1, 0)
	snap.Checksums = make([]TickChecksum, 0, RecentChecksums)
	for t := from; t < st.Tick; t++ {
		if cp := r.ring.get(t); cp != nil {
			snap.Checksums = append(snap.Checksums, TickChecksum{Tick: t, Checksum: cp.checksum})
		}
	}
	snap.Checksums = append(snap.Checksums, TickChecksum{Tick: st.Tick, Checksum: snap.Checksum})

	r.snapshots.Publish(snap)
	currentTick.Set(float64(st.Tick))
}

// MatchID identifies the match in logs, events and replays.
func (r *Runner) MatchID() string { return r.id.String() }

// UUID returns the match id in binary form.
func (r *Runner) UUID() uuid.UUID { return r.id }

// Tick returns the tick the next Step will simulate.
func (r *Runner) Tick() game.Tick { return r.sim.Tick() }

// State returns a copy of the current state.
func (r *Runner) State() game.GameState { return r.sim.State() }

// Roster returns the match roster.
func (r *Runner) Roster() game.Roster { return r.roster.Clone() }

// History returns a copy of a fighter's input history, or an empty one for an
// unknown slot.
func (r *Runner) History(slot int) game.InputHistory {
	if slot < 0 || slot >= game.FighterCount {
		return game.InputHistory{}
	}
	return r.histories[slot]
}

// Snapshots returns the pool the runner publishes to.
func (r *Runner) Snapshots() *SnapshotPool { return r.snapshots }

// Rollbacks returns how many rollbacks have run.
func (r *Runner) Rollbacks() uint64 { return r.rollbacks }
