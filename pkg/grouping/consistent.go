package grouping

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/ChrisMcGann/PepTwins/pkg/core"
	"github.com/ChrisMcGann/PepTwins/pkg/tolerance"
)

// Group is a set of provenance indices that are mutually confusable by mass
// and iRT chaining. Members are sorted ascending.
type Group struct {
	ID      int
	Members []int
}

// groupKey buckets candidate groups before an exact Equals check.
type groupKey struct {
	card     uint64
	min, max uint32
}

// groupArena owns every group of one grouping run. Groups are addressed by
// their integer id; memberOf maps a provenance index to the ids containing it.
type groupArena struct {
	sets     []*roaring.Bitmap
	memberOf map[int][]int
	buckets  map[groupKey][]int
}

func newGroupArena() *groupArena {
	return &groupArena{
		memberOf: make(map[int][]int),
		buckets:  make(map[groupKey][]int),
	}
}

// add stores members as a group unless an identical group already exists.
func (a *groupArena) add(members []int) int {
	set := roaring.New()
	for _, m := range members {
		set.Add(uint32(m))
	}
	key := groupKey{card: set.GetCardinality(), min: set.Minimum(), max: set.Maximum()}
	for _, id := range a.buckets[key] {
		if a.sets[id].Equals(set) {
			return id
		}
	}

	id := len(a.sets)
	a.sets = append(a.sets, set)
	a.buckets[key] = append(a.buckets[key], id)
	it := set.Iterator()
	for it.HasNext() {
		m := int(it.Next())
		a.memberOf[m] = append(a.memberOf[m], id)
	}
	return id
}

// ConsistentGroups partitions the records into mass clusters, refines each
// cluster into iRT subgroups and returns a non-redundant cover of the input.
//
// Mass clusters grow from each record (in mass order) while the gap to the
// anchor stays within tolerance; clusters contained in another cluster are
// dropped. A ppm tolerance is converted to an absolute width at the smallest
// mass in the table. Within a cluster, records sorted by iRT are chained the
// same way on the iRT axis. Identical subgroups are merged, then any group
// whose every member is still covered by another retained group is removed,
// smallest groups first.
func ConsistentGroups(records []core.PeptideRecord, massTol tolerance.Spec, irtTol float64) ([]Group, error) {
	if err := validateInputs(records, massTol, irtTol); err != nil {
		return nil, err
	}
	for _, r := range records {
		if uint64(r.Index) > math.MaxUint32 {
			return nil, &core.InputError{Field: "records", Message: fmt.Sprintf("index %d out of range", r.Index)}
		}
	}

	arena := newGroupArena()
	for _, cluster := range massClusters(records, massTol) {
		for _, sub := range irtSubgroups(cluster, irtTol) {
			members := make([]int, len(sub))
			for i, r := range sub {
				members[i] = r.Index
			}
			arena.add(members)
		}
	}

	retained := arena.pruneRedundant()

	groups := make([]Group, 0, len(retained))
	for _, id := range retained {
		arr := arena.sets[id].ToArray()
		members := make([]int, len(arr))
		for i, m := range arr {
			members[i] = int(m)
		}
		groups = append(groups, Group{Members: members})
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return slices.Compare(groups[i].Members, groups[j].Members) < 0
	})
	for i := range groups {
		groups[i].ID = i
	}
	return groups, nil
}

// massClusters returns the maximal anchor-chained clusters in mass order.
func massClusters(records []core.PeptideRecord, massTol tolerance.Spec) [][]core.PeptideRecord {
	sorted := slices.Clone(records)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Mass != sorted[j].Mass {
			return sorted[i].Mass < sorted[j].Mass
		}
		return sorted[i].Index < sorted[j].Index
	})

	tol := massTol.Absolute(sorted[0].Mass)

	var clusters [][]core.PeptideRecord
	prevEnd := 0
	end := 0
	for i := range sorted {
		if end < i+1 {
			end = i + 1
		}
		for end < len(sorted) && sorted[end].Mass-sorted[i].Mass <= tol {
			end++
		}
		// [i, end) is a subset of the previous window unless it reaches further.
		if end > prevEnd {
			clusters = append(clusters, sorted[i:end])
		}
		prevEnd = end
	}
	return clusters
}

// irtSubgroups splits a cluster into consecutive iRT chains. Each chain keeps
// accepting records while they stay within irtTol of its first member.
func irtSubgroups(cluster []core.PeptideRecord, irtTol float64) [][]core.PeptideRecord {
	byIRT := slices.Clone(cluster)
	sort.SliceStable(byIRT, func(i, j int) bool {
		if byIRT[i].IRT != byIRT[j].IRT {
			return byIRT[i].IRT < byIRT[j].IRT
		}
		return byIRT[i].Index < byIRT[j].Index
	})

	var out [][]core.PeptideRecord
	start := 0
	for i := 1; i <= len(byIRT); i++ {
		if i == len(byIRT) || byIRT[i].IRT-byIRT[start].IRT > irtTol {
			out = append(out, byIRT[start:i])
			start = i
		}
	}
	return out
}

// pruneRedundant drops groups whose members all co-occur in some other
// retained group and returns the ids that survive, in id order.
func (a *groupArena) pruneRedundant() []int {
	coverage := make(map[int]int, len(a.memberOf))
	for m, ids := range a.memberOf {
		coverage[m] = len(ids)
	}

	visit := make([]int, len(a.sets))
	for i := range visit {
		visit[i] = i
	}
	sort.SliceStable(visit, func(i, j int) bool {
		return a.sets[visit[i]].GetCardinality() < a.sets[visit[j]].GetCardinality()
	})

	dropped := make([]bool, len(a.sets))
	for _, id := range visit {
		redundant := true
		it := a.sets[id].Iterator()
		for it.HasNext() {
			if coverage[int(it.Next())] < 2 {
				redundant = false
				break
			}
		}
		if !redundant {
			continue
		}
		dropped[id] = true
		it = a.sets[id].Iterator()
		for it.HasNext() {
			coverage[int(it.Next())]--
		}
	}

	var kept []int
	for id, d := range dropped {
		if !d {
			kept = append(kept, id)
		}
	}
	return kept
}

// GroupPairs expands groups into the candidate pairs of their members,
// without duplicates and sorted by (I, J).
func GroupPairs(groups []Group) []CandidatePair {
	seen := make(map[CandidatePair]struct{})
	var out []CandidatePair
	for _, g := range groups {
		for a := 0; a < len(g.Members); a++ {
			for b := a + 1; b < len(g.Members); b++ {
				p := NewCandidatePair(g.Members[a], g.Members[b])
				if _, dup := seen[p]; dup {
					continue
				}
				seen[p] = struct{}{}
				out = append(out, p)
			}
		}
	}
	sortPairs(out)
	return out
}
