// Package fusion merges ranked evidence lists into one deduplicated,
// totally-ordered ranking using Reciprocal Rank Fusion.
package fusion

import (
	"sort"

	"github.com/kestrelbio/forager/pkg/models"
)

// DefaultK is the default RRF smoothing constant. At 60, a single
// rank-1 item cannot dominate agreement among several sources.
const DefaultK = 60

// Engine computes reciprocal rank fusion over ranked evidence lists.
type Engine struct {
	k int
}

// New creates an Engine with the given smoothing constant.
// Non-positive k falls back to DefaultK.
func New(k int) *Engine {
	if k <= 0 {
		k = DefaultK
	}
	return &Engine{k: k}
}

// K returns the smoothing constant in use.
func (e *Engine) K() int {
	return e.k
}

// accumulator collects the per-key contributions during fusion.
// Ranks are kept as a multiset and only reduced to a score once the
// multiset is complete: float64 addition is not associative, so summing
// in input-list order would let two mathematically tied keys diverge by
// an ulp and flip under a permutation of the inputs.
type accumulator struct {
	ranks        []int
	bestRank     int
	bestSource   string
	title        string
	payload      models.Payload
	sources      []string
	capabilities []string
	confidences  []float64
}

// score sums the reciprocal rank contributions in ascending rank order,
// so the result is a pure function of the rank multiset.
func (a *accumulator) score(k int) float64 {
	sort.Ints(a.ranks)
	s := 0.0
	for _, r := range a.ranks {
		s += 1.0 / float64(k+r)
	}
	return s
}

// Fuse merges the given ranked lists into one fused ranking. Each input
// list is one source's ordering; duplicate keys within a single list are
// ignored after their first occurrence. The output is deterministic and
// independent of the order in which lists are supplied: ties in score
// are broken by corroboration count, then best single-list rank, then
// lexicographic key order.
func (e *Engine) Fuse(lists [][]models.Evidence) []models.FusedEntry {
	acc := make(map[string]*accumulator)

	for _, list := range lists {
		seen := make(map[string]bool, len(list))
		for _, ev := range list {
			if ev.Key == "" || ev.Rank < 1 || seen[ev.Key] {
				continue
			}
			seen[ev.Key] = true

			a, ok := acc[ev.Key]
			if !ok {
				a = &accumulator{bestRank: ev.Rank, bestSource: ev.Source, title: ev.Title, payload: ev.Payload}
				acc[ev.Key] = a
			}
			a.ranks = append(a.ranks, ev.Rank)
			a.sources = append(a.sources, ev.Source)
			if ev.Capability != "" {
				a.capabilities = append(a.capabilities, string(ev.Capability))
			}
			if ev.Confidence != nil {
				a.confidences = append(a.confidences, *ev.Confidence)
			}
			// The representative title and payload come from the best-ranked
			// contributor; ties resolve to the lexicographically first source
			// so the choice does not depend on input order.
			if ev.Rank < a.bestRank || (ev.Rank == a.bestRank && ev.Source < a.bestSource) {
				a.bestRank = ev.Rank
				a.bestSource = ev.Source
				a.title = ev.Title
				a.payload = ev.Payload
			}
		}
	}

	fused := make([]models.FusedEntry, 0, len(acc))
	for key, a := range acc {
		sort.Strings(a.sources)
		sort.Float64s(a.confidences)
		fused = append(fused, models.FusedEntry{
			Key:          key,
			Title:        a.title,
			Score:        a.score(e.k),
			Sources:      a.sources,
			Capabilities: dedupeSorted(a.capabilities),
			BestRank:     a.bestRank,
			Confidences:  a.confidences,
			Payload:      a.payload,
		})
	}

	sort.Slice(fused, func(i, j int) bool {
		a, b := fused[i], fused[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if len(a.Sources) != len(b.Sources) {
			return len(a.Sources) > len(b.Sources)
		}
		if a.BestRank != b.BestRank {
			return a.BestRank < b.BestRank
		}
		return a.Key < b.Key
	})

	return fused
}

func dedupeSorted(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	sort.Strings(in)
	out := in[:1]
	for _, s := range in[1:] {
		if s != out[len(out)-1] {
			out = append(out, s)
		}
	}
	return out
}
