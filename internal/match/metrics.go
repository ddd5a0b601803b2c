package match

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics with bounded cardinality (no per-player or per-match labels)
var (
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "match_tick_duration_seconds",
		Help:    "Time spent simulating one tick, including rollback resimulation",
		Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.0156},
	})

	currentTick = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "match_tick",
		Help: "Tick the next step will simulate",
	})

	rollbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "match_rollbacks_total",
		Help: "Rollbacks performed",
	})

	resimulatedTicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "match_resimulated_ticks_total",
		Help: "Ticks simulated again after a rollback",
	})

	desyncsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "match_desyncs_total",
		Help: "Remote checksums that did not match the local state",
	})

	intakeRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "match_intake_rejected_total",
		Help: "Network inputs refused before reaching the simulation",
	}, []string{"reason"}) // Bounded: "rate_limit", "overflow"

	lateInputs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "match_late_inputs_total",
		Help: "Corrections older than the checkpoint window",
	})

	eventLogTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "event_log_total",
		Help: "Total events logged",
	})

	eventLogDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "event_log_dropped_total",
		Help: "Events dropped due to rate limiting or buffer full",
	})
)
