// Package metrics exposes Prometheus instruments for the orchestration
// core. Registration uses the default registry; exposition is the
// embedder's concern.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RoundsTotal counts completed rounds by status.
	RoundsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "forager",
		Name:      "rounds_total",
		Help:      "Research rounds completed, by round status.",
	}, []string{"status"})

	// TasksTotal counts settled tasks by capability and terminal state.
	TasksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "forager",
		Name:      "tasks_total",
		Help:      "Tasks settled, by capability and terminal state.",
	}, []string{"capability", "state"})

	// RoundDuration observes wall time per round.
	RoundDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "forager",
		Name:      "round_duration_seconds",
		Help:      "Wall time of a research round.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	// FusedEntries observes the size of fused result lists.
	FusedEntries = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "forager",
		Name:      "fused_entries",
		Help:      "Number of deduplicated entries per fused result.",
		Buckets:   prometheus.LinearBuckets(0, 5, 10),
	})
)
