package fusion

import (
	"math/rand"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/kestrelbio/forager/pkg/models"
)

func TestFusionProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("fused ordering is independent of input list order", prop.ForAll(
		func(seed int64) bool {
			lists := [][]models.Evidence{
				list("a", "x", "y", "q"),
				list("b", "y", "z"),
				list("c", "z", "x", "w"),
				list("d", "w", "q", "y", "x"),
			}
			e := New(60)
			base := keys(e.Fuse(lists))

			r := rand.New(rand.NewSource(seed))
			shuffled := make([][]models.Evidence, len(lists))
			copy(shuffled, lists)
			r.Shuffle(len(shuffled), func(i, j int) {
				shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
			})

			got := keys(e.Fuse(shuffled))
			if len(got) != len(base) {
				return false
			}
			for i := range base {
				if got[i] != base[i] {
					return false
				}
			}
			return true
		},
		gen.Int64(),
	))

	properties.Property("increasing k compresses the rank-1 to rank-10 score gap", prop.ForAll(
		func(k int) bool {
			gap := func(k int) float64 {
				return 1.0/float64(k+1) - 1.0/float64(k+10)
			}
			return gap(k+1) < gap(k)
		},
		gen.IntRange(1, 10000),
	))

	properties.Property("more corroborating lists never score lower, all else equal", prop.ForAll(
		func(more, fewer, rank int) bool {
			if fewer > more {
				more, fewer = fewer, more
			}
			// "hi" appears at the same rank in `more` lists, "lo" in `fewer`.
			var lists [][]models.Evidence
			for i := 0; i < more; i++ {
				lists = append(lists, []models.Evidence{{Source: sourceName("m", i), Key: "hi", Title: "hi", Rank: rank}})
			}
			for i := 0; i < fewer; i++ {
				lists = append(lists, []models.Evidence{{Source: sourceName("f", i), Key: "lo", Title: "lo", Rank: rank}})
			}

			fused := New(60).Fuse(lists)
			scores := make(map[string]float64, 2)
			for _, f := range fused {
				scores[f.Key] = f.Score
			}
			return scores["hi"] >= scores["lo"]
		},
		gen.IntRange(1, 6),
		gen.IntRange(1, 6),
		gen.IntRange(1, 20),
	))

	properties.TestingRun(t)
}

func sourceName(prefix string, i int) string {
	return prefix + string(rune('a'+i))
}
