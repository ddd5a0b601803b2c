package game

import (
	"fmt"

	"fightcore/internal/fixmath"
	"fightcore/internal/game/physics"
)

// Config is the static data a simulation runs with. Both peers must use identical
// configs; compare CharacterConfig.Digest values before a match.
type Config struct {
	Arena      Arena
	Characters [FighterCount]CharacterConfig
}

// DefaultConfig returns the default arena with two default characters.
func DefaultConfig() Config {
	return Config{
		Arena:      DefaultArena(),
		Characters: [FighterCount]CharacterConfig{DefaultCharacter(), DefaultCharacter()},
	}
}

// Simulation owns one match's GameState and advances it a tick at a time.
//
// Lifecycle: NewSimulation, Init with the roster, any number of Advance calls, then
// Shutdown. It is single-threaded; callers serialize every call.
type Simulation struct {
	cfg    Config
	roster Roster
	ready  bool

	state  GameState
	world  *physics.World[BoxProps]
	report TickReport
}

// NewSimulation creates a simulation that is not yet playable. Its tick reads
// NullTick until Init.
func NewSimulation(cfg Config) *Simulation {
	return &Simulation{
		cfg:   cfg,
		state: GameState{Tick: NullTick},
	}
}

// Init fixes the roster and builds the opening state.
func (s *Simulation) Init(r Roster) error {
	if s.ready {
		return ErrAlreadyInit
	}
	if err := r.Validate(); err != nil {
		return err
	}
	for i := range s.cfg.Characters {
		if err := s.cfg.Characters[i].Validate(); err != nil {
			return fmt.Errorf("slot %d: %w", i, err)
		}
	}
	s.roster = r.Clone()
	s.world = physics.NewWorld[BoxProps](FighterCount * MaxBoxesPerFrame)
	s.state = NewGameState(&s.cfg.Arena, &s.cfg.Characters)
	s.report = TickReport{}
	s.ready = true
	return nil
}

// Shutdown releases the match. The simulation must be Init-ed again before reuse.
func (s *Simulation) Shutdown() {
	s.ready = false
	s.roster = Roster{}
	s.world = nil
	s.state = GameState{Tick: NullTick}
	s.report = TickReport{}
}

// Ready reports whether Init has succeeded and Shutdown has not been called since.
func (s *Simulation) Ready() bool { return s.ready }

func (s *Simulation) mustBeReady() {
	if !s.ready {
		panic(ErrRosterNotEstablished)
	}
}

// Advance simulates exactly one tick. inputs is indexed by fighter slot; a missing
// slot means no new intent for that fighter, and the tick advances regardless.
func (s *Simulation) Advance(inputs []InputFrame) {
	s.mustBeReady()

	tick := s.state.Tick
	arena := &s.cfg.Arena
	fighters := &s.state.Fighters

	for i := range fighters {
		if i < len(inputs) {
			fighters[i].ApplyInputIntent(inputs[i].Input, &s.cfg.Characters[i], arena)
		}
	}
	for i := range fighters {
		fighters[i].UpdatePosition(arena)
	}

	s.world.Clear()
	for i := range fighters {
		fighters[i].AddBoxes(tick, &s.cfg.Characters[i], s, i)
	}
	s.report = s.resolveHits(tick)

	for i := range fighters {
		fighters[i].TickStateMachine(tick, arena)
	}
	for i := range fighters {
		fighters[i].UpdateAnimation(tick, arena)
	}

	s.state.Tick++
}

// AddBox registers a box for the current tick. It implements BoxSink.
func (s *Simulation) AddBox(handle int, center, size fixmath.Vec2, props BoxProps) {
	s.mustBeReady()
	s.world.AddBox(handle, center, size, props)
}

// Boxes returns the boxes a fighter registered on the last Advance.
func (s *Simulation) Boxes(slot int) []physics.Box[BoxProps] {
	s.mustBeReady()
	return s.world.Boxes(slot)
}

// State returns a deep copy of the current state.
func (s *Simulation) State() GameState { return s.state }

// Restore installs a previously captured state. Advancing from it behaves exactly
// as advancing from the moment it was captured.
func (s *Simulation) Restore(st GameState) {
	s.mustBeReady()
	s.state = st
	s.report = TickReport{}
}

// Tick returns the tick the next Advance will simulate.
func (s *Simulation) Tick() Tick { return s.state.Tick }

// Checksum fingerprints the current state for desync detection.
func (s *Simulation) Checksum() uint64 { return s.state.Checksum() }

// Roster returns a copy of the established roster.
func (s *Simulation) Roster() Roster { return s.roster.Clone() }

// Config returns the static match data.
func (s *Simulation) Config() Config { return s.cfg }

// LastReport describes what the hit step did on the most recent Advance.
func (s *Simulation) LastReport() TickReport { return s.report }
