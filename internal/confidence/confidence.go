// Package confidence reduces a fused ranking and its task outcomes to a
// single scalar confidence in [0,1].
package confidence

import "github.com/kestrelbio/forager/pkg/models"

// DefaultTopN is the default number of fused entries considered.
const DefaultTopN = 10

// failurePenaltyWeight scales the penalty applied per failed fraction.
// Missing or failed sources reduce confidence rather than being ignored.
const failurePenaltyWeight = 0.5

// Scorer derives overall confidence from fused entries and task outcomes.
type Scorer struct {
	topN int
}

// New creates a Scorer considering the top n fused entries.
// Non-positive n falls back to DefaultTopN.
func New(n int) *Scorer {
	if n <= 0 {
		n = DefaultTopN
	}
	return &Scorer{topN: n}
}

// TopN returns the number of entries considered.
func (s *Scorer) TopN() int {
	return s.topN
}

// Score computes the overall confidence. When the top-ranked entries
// carry per-source confidences, their mean is the base; otherwise the
// base is corroboration breadth: the fraction of tasks that completed
// and contributed at least one finding to the top entries. The base is
// then penalized by the fraction of tasks that ended Failed or TimedOut
// and clamped to [0,1].
func (s *Scorer) Score(fused []models.FusedEntry, outcomes []models.TaskOutcome) float64 {
	if len(fused) == 0 {
		return 0
	}

	top := fused
	if len(top) > s.topN {
		top = top[:s.topN]
	}

	base, ok := meanConfidence(top)
	if !ok {
		base = corroborationBreadth(top, outcomes)
	}

	failed := failedFraction(outcomes)
	return clamp01(base * (1 - failurePenaltyWeight*failed))
}

// meanConfidence averages the per-source confidences present in the top
// entries. Returns false when no source supplied any.
func meanConfidence(top []models.FusedEntry) (float64, bool) {
	sum := 0.0
	n := 0
	for _, e := range top {
		for _, c := range e.Confidences {
			sum += c
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// corroborationBreadth is the fraction of dispatched tasks that both
// completed and contributed to the top entries. Contribution is matched
// on capability tags, not agent names: an agent named differently from
// its capability still counts.
func corroborationBreadth(top []models.FusedEntry, outcomes []models.TaskOutcome) float64 {
	if len(outcomes) == 0 {
		return 0
	}

	contributing := make(map[string]bool)
	for _, e := range top {
		for _, c := range e.Capabilities {
			contributing[c] = true
		}
	}

	n := 0
	for _, o := range outcomes {
		if o.State == models.TaskCompleted && contributing[string(o.Capability)] {
			n++
		}
	}
	return float64(n) / float64(len(outcomes))
}

func failedFraction(outcomes []models.TaskOutcome) float64 {
	if len(outcomes) == 0 {
		return 0
	}
	failed := 0
	for _, o := range outcomes {
		if o.State == models.TaskFailed || o.State == models.TaskTimedOut {
			failed++
		}
	}
	return float64(failed) / float64(len(outcomes))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
