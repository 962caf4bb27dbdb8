package spawn

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metric outcome labels.
const (
	outcomeCompleted = "completed"
	outcomeTimedOut  = "timed_out"
	outcomeError     = "error"
)

var (
	spawnTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "probe_spawn_total",
			Help: "Total number of spawned shell commands by outcome",
		},
		[]string{"outcome"},
	)

	spawnDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "probe_spawn_duration_seconds",
			Help:    "Wall time of spawned shell commands in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 2.5, 5},
		},
		[]string{"outcome"},
	)
)

func observeSpawn(outcome string, elapsed time.Duration) {
	spawnTotal.WithLabelValues(outcome).Inc()
	spawnDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}
