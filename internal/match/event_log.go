package match

import (
	"bufio"
	"encoding/json"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"fightcore/internal/config"
	"fightcore/internal/game"
)

const (
	BatchFlushSize        = 64                     // Events per batch write
	BatchFlushInterval    = 100 * time.Millisecond // How often to flush
	SubjectLimiterCleanup = 5 * time.Minute        // Cleanup interval for per-subject limiters
)

// EventLog provides bounded, rate-limited event logging with backpressure.
// Emit never blocks the simulation goroutine on disk.
type EventLog struct {
	cfg config.EventLogConfig

	// Circular buffer; when full the oldest event is dropped
	mu     sync.Mutex
	buffer []Event
	head   int
	count  int
	seq    uint64

	// Rate limiting for DoS protection
	globalLimiter   *rate.Limiter
	subjectLimiters sync.Map // map[string]*subjectLimiterEntry

	// Async writer
	writerWg sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
	running  atomic.Bool

	// File output
	file   *os.File
	out    *bufio.Writer
	fileMu sync.Mutex

	// Stats for monitoring
	droppedCount atomic.Uint64
	totalCount   atomic.Uint64
	writtenCount atomic.Uint64
}

// subjectLimiterEntry tracks per-subject rate limiting
type subjectLimiterEntry struct {
	limiter  *rate.Limiter
	lastUsed atomic.Int64 // unix nano
}

// NewEventLog creates a new bounded event log
func NewEventLog(cfg config.EventLogConfig) *EventLog {
	if cfg.BufferSize < 1 {
		cfg.BufferSize = config.DefaultEventLog().BufferSize
	}
	if cfg.MaxPerSec < 1 {
		cfg.MaxPerSec = config.DefaultEventLog().MaxPerSec
	}
	if cfg.MaxPerSubject < 1 {
		cfg.MaxPerSubject = config.DefaultEventLog().MaxPerSubject
	}
	return &EventLog{
		cfg:           cfg,
		buffer:        make([]Event, cfg.BufferSize),
		globalLimiter: rate.NewLimiter(rate.Limit(cfg.MaxPerSec), max(cfg.MaxPerSec/10, 1)),
		stopChan:      make(chan struct{}),
	}
}

// Start opens the configured file and begins the async writer goroutines.
// An empty path keeps events in memory only.
func (el *EventLog) Start() error {
	if el.running.Load() {
		return nil
	}

	if el.cfg.Path != "" {
		file, err := os.OpenFile(el.cfg.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		el.file = file
		el.out = bufio.NewWriter(file)
	}

	el.running.Store(true)
	el.writerWg.Add(2)
	go el.writerLoop()
	go el.cleanupLoop()

	return nil
}

// Stop flushes what is buffered and shuts down the writer.
func (el *EventLog) Stop() {
	el.stopOnce.Do(func() {
		el.running.Store(false)
		close(el.stopChan)
		el.writerWg.Wait()

		el.fileMu.Lock()
		if el.file != nil {
			el.out.Flush()
			el.file.Close()
		}
		el.fileMu.Unlock()
	})
}

// Emit adds an event with rate limiting.
// Returns false if rate limited or not running.
func (el *EventLog) Emit(event Event) bool {
	if el == nil || !el.running.Load() {
		return false
	}

	if !el.globalLimiter.Allow() {
		el.droppedCount.Add(1)
		eventLogDropped.Inc()
		return false
	}

	// Per-subject limit keeps one noisy peer from starving the log
	if event.Subject != "" && !el.subjectLimiter(event.Subject).Allow() {
		el.droppedCount.Add(1)
		eventLogDropped.Inc()
		return false
	}

	el.mu.Lock()
	if el.count == len(el.buffer) {
		// Drop oldest events (rolling window)
		el.head = (el.head + 1) % len(el.buffer)
		el.count--
		el.droppedCount.Add(1)
		eventLogDropped.Inc()
	}
	el.seq++
	event.Sequence = el.seq
	el.buffer[(el.head+el.count)%len(el.buffer)] = event
	el.count++
	el.mu.Unlock()

	el.totalCount.Add(1)
	eventLogTotal.Inc()
	return true
}

// EmitSimple builds and emits an event in one call.
func (el *EventLog) EmitSimple(eventType EventType, matchID string, tick game.Tick, subject string, payload interface{}) bool {
	if el == nil {
		return false
	}
	return el.Emit(NewEvent(eventType, matchID, tick, subject, payload))
}

func (el *EventLog) subjectLimiter(subject string) *rate.Limiter {
	now := time.Now().UnixNano()
	if entry, ok := el.subjectLimiters.Load(subject); ok {
		e := entry.(*subjectLimiterEntry)
		e.lastUsed.Store(now)
		return e.limiter
	}

	entry := &subjectLimiterEntry{
		limiter: rate.NewLimiter(rate.Limit(el.cfg.MaxPerSubject), max(el.cfg.MaxPerSubject/10, 1)),
	}
	entry.lastUsed.Store(now)
	actual, _ := el.subjectLimiters.LoadOrStore(subject, entry)
	return actual.(*subjectLimiterEntry).limiter
}

// writerLoop batches and writes events to disk asynchronously
func (el *EventLog) writerLoop() {
	defer el.writerWg.Done()

	ticker := time.NewTicker(BatchFlushInterval)
	defer ticker.Stop()

	batch := make([]Event, 0, BatchFlushSize)

	for {
		select {
		case <-el.stopChan:
			// Final flush drains everything
			for {
				batch = el.collectBatch(batch[:0])
				if len(batch) == 0 {
					return
				}
				el.flushBatch(batch)
			}

		case <-ticker.C:
			batch = el.collectBatch(batch[:0])
			if len(batch) > 0 {
				el.flushBatch(batch)
			}
		}
	}
}

// cleanupLoop removes stale subject limiters to prevent memory leak
func (el *EventLog) cleanupLoop() {
	defer el.writerWg.Done()

	ticker := time.NewTicker(SubjectLimiterCleanup)
	defer ticker.Stop()

	for {
		select {
		case <-el.stopChan:
			return
		case <-ticker.C:
			el.cleanupSubjectLimiters(time.Now().Add(-SubjectLimiterCleanup))
		}
	}
}

func (el *EventLog) cleanupSubjectLimiters(cutoff time.Time) {
	el.subjectLimiters.Range(func(key, value interface{}) bool {
		entry := value.(*subjectLimiterEntry)
		if entry.lastUsed.Load() < cutoff.UnixNano() {
			el.subjectLimiters.Delete(key)
		}
		return true
	})
}

// collectBatch moves up to BatchFlushSize events out of the ring
func (el *EventLog) collectBatch(batch []Event) []Event {
	el.mu.Lock()
	defer el.mu.Unlock()

	for el.count > 0 && len(batch) < BatchFlushSize {
		batch = append(batch, el.buffer[el.head])
		el.buffer[el.head] = Event{}
		el.head = (el.head + 1) % len(el.buffer)
		el.count--
	}
	return batch
}

// flushBatch writes events to disk (append-only, newline-delimited JSON)
func (el *EventLog) flushBatch(batch []Event) {
	el.fileMu.Lock()
	defer el.fileMu.Unlock()

	if el.out == nil {
		el.writtenCount.Add(uint64(len(batch)))
		return
	}

	enc := json.NewEncoder(el.out)
	for _, event := range batch {
		if err := enc.Encode(event); err != nil {
			continue
		}
		el.writtenCount.Add(1)
	}
	el.out.Flush()
}

// EventLogStats is a point-in-time view of the log counters.
type EventLogStats struct {
	Total   uint64 `json:"total"`
	Dropped uint64 `json:"dropped"`
	Written uint64 `json:"written"`
	Pending int    `json:"pending"`
}

// Stats returns the log counters.
func (el *EventLog) Stats() EventLogStats {
	if el == nil {
		return EventLogStats{}
	}
	el.mu.Lock()
	pending := el.count
	el.mu.Unlock()
	return EventLogStats{
		Total:   el.totalCount.Load(),
		Dropped: el.droppedCount.Load(),
		Written: el.writtenCount.Load(),
		Pending: pending,
	}
}
