package similarity

import (
	"sort"

	"github.com/ChrisMcGann/PepTwins/pkg/core"
)

// DefaultTwinThreshold is the score above which two peptides count as twins.
const DefaultTwinThreshold = 0.7

// Collision is a peptide whose spectrum is too similar to the queried one.
type Collision struct {
	Name     string
	Sequence string
	Charge   int
	Score    float64
}

// Colliding returns the peptides that score above threshold against
// sequence/charge. Only scored rows count. Partners with the queried
// sequence are ignored; each partner is listed once with its best score.
// The list is ordered by descending score, then name.
func Colliding(results []Result, sequence string, charge int, threshold float64) []Collision {
	best := make(map[string]Collision)
	consider := func(self, other string, score float64) {
		seq, c, ok := core.SplitName(self)
		if !ok || seq != sequence || c != charge {
			return
		}
		oseq, oc, ok := core.SplitName(other)
		if !ok || oseq == sequence {
			return
		}
		if prev, seen := best[other]; seen && prev.Score >= score {
			return
		}
		best[other] = Collision{Name: other, Sequence: oseq, Charge: oc, Score: score}
	}

	for _, r := range results {
		if r.Status != StatusOK || r.Score <= threshold {
			continue
		}
		consider(r.Name1, r.Name2, r.Score)
		consider(r.Name2, r.Name1, r.Score)
	}

	out := make([]Collision, 0, len(best))
	for _, c := range best {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Name < out[j].Name
	})
	return out
}
