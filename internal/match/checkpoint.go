package match

import "fightcore/internal/game"

// checkpoint is everything needed to replay one tick: the state and histories before
// it ran and the inputs it ran with.
type checkpoint struct {
	tick      game.Tick
	state     game.GameState
	histories [game.FighterCount]game.InputHistory
	inputs    [game.FighterCount]game.InputFrame
	provided  int // inputs[:provided] were passed to Advance; the rest were missing
	checksum  uint64
	valid     bool
}

func (c *checkpoint) frames() []game.InputFrame {
	return c.inputs[:c.provided]
}

// checkpointRing keeps the last len(slots) ticks, indexed by tick.
type checkpointRing struct {
	slots []checkpoint
}

func newCheckpointRing(depth int) checkpointRing {
	if depth < 1 {
		depth = 1
	}
	return checkpointRing{slots: make([]checkpoint, depth)}
}

func (r *checkpointRing) slot(t game.Tick) *checkpoint {
	return &r.slots[int(t)%len(r.slots)]
}

// get returns the checkpoint for t, or nil if it was never taken or has been
// overwritten.
func (r *checkpointRing) get(t game.Tick) *checkpoint {
	if t < 0 {
		return nil
	}
	c := r.slot(t)
	if !c.valid || c.tick != t {
		return nil
	}
	return c
}

func (r *checkpointRing) depth() int { return len(r.slots) }
