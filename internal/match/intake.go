package match

import (
	"sync"

	"golang.org/x/time/rate"

	"fightcore/internal/config"
	"fightcore/internal/game"
)

// Submission is one confirmed input received from a peer.
type Submission struct {
	Peer  string           `json:"peer"`
	Tick  game.Tick        `json:"tick"`
	Input game.PlayerInput `json:"input"`
}

// Intake stages network inputs in a fixed-size ring. It is safe for concurrent
// producers and a single consumer, the runner goroutine.
type Intake struct {
	mu    sync.Mutex
	data  []Submission
	head  int
	tail  int
	count int

	peerRate  rate.Limit
	peerBurst int
	limiters  map[string]*rate.Limiter
}

// NewIntake constructs an intake sized and rate limited from cfg.
func NewIntake(cfg config.SimConfig) *Intake {
	capacity := cfg.IntakeCapacity
	if capacity < 1 {
		capacity = 1
	}
	burst := cfg.PeerInputBurst
	if burst < 1 {
		burst = 1
	}
	return &Intake{
		data:      make([]Submission, capacity),
		peerRate:  rate.Limit(cfg.PeerInputRate),
		peerBurst: burst,
		limiters:  make(map[string]*rate.Limiter),
	}
}

// Push stages a submission. It fails with ErrRateLimited when the peer is sending
// faster than its allowance and ErrIntakeFull when the runner has fallen behind.
func (in *Intake) Push(s Submission) error {
	in.mu.Lock()
	defer in.mu.Unlock()

	lim, ok := in.limiters[s.Peer]
	if !ok {
		lim = rate.NewLimiter(in.peerRate, in.peerBurst)
		in.limiters[s.Peer] = lim
	}
	if !lim.Allow() {
		intakeRejected.WithLabelValues("rate_limit").Inc()
		return ErrRateLimited
	}
	if in.count == len(in.data) {
		intakeRejected.WithLabelValues("overflow").Inc()
		return ErrIntakeFull
	}
	in.data[in.tail] = s
	in.tail = (in.tail + 1) % len(in.data)
	in.count++
	return nil
}

// Drain returns all staged submissions in FIFO order and clears the ring.
func (in *Intake) Drain() []Submission {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.count == 0 {
		return nil
	}
	out := make([]Submission, in.count)
	for i := range out {
		out[i] = in.data[(in.head+i)%len(in.data)]
	}
	in.head = 0
	in.tail = 0
	in.count = 0
	return out
}

// Len reports the number of staged submissions.
func (in *Intake) Len() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.count
}

// Forget drops a peer's limiter, for when it disconnects.
func (in *Intake) Forget(peer string) {
	in.mu.Lock()
	delete(in.limiters, peer)
	in.mu.Unlock()
}
