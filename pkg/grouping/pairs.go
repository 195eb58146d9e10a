// Package grouping finds peptides that are confusable at the precursor level:
// close in m/z and in indexed retention time.
package grouping

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/ChrisMcGann/PepTwins/pkg/core"
	"github.com/ChrisMcGann/PepTwins/pkg/tolerance"
)

// radiusSlack widens the Euclidean prefilter so that rounding in the squared
// distance never drops a pair sitting exactly on a tolerance boundary.
const radiusSlack = 1e-9

// CandidatePair is an unordered pair of provenance indices stored as I < J.
type CandidatePair struct {
	I, J int
}

// NewCandidatePair returns the canonical (min, max) form of a pair.
func NewCandidatePair(a, b int) CandidatePair {
	if a > b {
		a, b = b, a
	}
	return CandidatePair{I: a, J: b}
}

// point is one peptide in (mass, iRT) space.
type point struct {
	pos       int // position in the record slice
	mass, irt float64
}

func (p point) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(point)
	if d == 0 {
		return p.mass - q.mass
	}
	return p.irt - q.irt
}

func (p point) Dims() int { return 2 }

func (p point) Distance(c kdtree.Comparable) float64 {
	q := c.(point)
	dm, dr := p.mass-q.mass, p.irt-q.irt
	return dm*dm + dr*dr
}

type points []point

func (p points) Index(i int) kdtree.Comparable         { return p[i] }
func (p points) Len() int                              { return len(p) }
func (p points) Pivot(d kdtree.Dim) int                { return plane{points: p, Dim: d}.Pivot() }
func (p points) Slice(start, end int) kdtree.Interface { return p[start:end] }

type plane struct {
	kdtree.Dim
	points
}

func (p plane) Less(i, j int) bool {
	if p.Dim == 0 {
		return p.points[i].mass < p.points[j].mass
	}
	return p.points[i].irt < p.points[j].irt
}
func (p plane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.points = p.points[start:end]
	return p
}
func (p plane) Swap(i, j int) { p.points[i], p.points[j] = p.points[j], p.points[i] }

// queryRadius is the Euclidean radius that encloses the exact acceptance box
// around a point of the given mass.
func queryRadius(mass float64, massTol tolerance.Spec, irtTol float64) float64 {
	dm := massTol.Absolute(mass)
	r := math.Sqrt(dm*dm + irtTol*irtTol)
	return r*(1+radiusSlack) + radiusSlack
}

// FindPairs returns every pair of records that lies within massTol on the
// mass axis and irtTol on the iRT axis. A k-d tree radius query provides a
// superset of candidates that is then checked with the exact per-axis
// predicate. In ppm mode the record with the smaller provenance index is the
// reference operand. The result is sorted by (I, J).
func FindPairs(records []core.PeptideRecord, massTol tolerance.Spec, irtTol float64) []CandidatePair {
	if len(records) < 2 {
		return nil
	}

	pts := make(points, len(records))
	for i, r := range records {
		pts[i] = point{pos: i, mass: r.Mass, irt: r.IRT}
	}
	// kdtree.New reorders its input.
	tree := kdtree.New(append(points(nil), pts...), false)
	irt := tolerance.Abs(irtTol)

	seen := make(map[CandidatePair]struct{})
	var out []CandidatePair
	for _, q := range pts {
		ri := records[q.pos]
		r := queryRadius(ri.Mass, massTol, irtTol)
		keep := kdtree.NewDistKeeper(r * r)
		tree.NearestSet(keep, q)

		for _, c := range keep.Heap {
			rj := records[c.Comparable.(point).pos]
			if ri.Index >= rj.Index {
				continue
			}
			if !tolerance.WithinBoth(massTol, irt, ri.Mass, ri.IRT, rj.Mass, rj.IRT) {
				continue
			}
			p := CandidatePair{I: ri.Index, J: rj.Index}
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}

	sortPairs(out)
	return out
}

// BruteForcePairs is the quadratic reference for FindPairs.
func BruteForcePairs(records []core.PeptideRecord, massTol tolerance.Spec, irtTol float64) []CandidatePair {
	irt := tolerance.Abs(irtTol)
	var out []CandidatePair
	for a := range records {
		for b := range records {
			ri, rj := records[a], records[b]
			if ri.Index >= rj.Index {
				continue
			}
			if tolerance.WithinBoth(massTol, irt, ri.Mass, ri.IRT, rj.Mass, rj.IRT) {
				out = append(out, CandidatePair{I: ri.Index, J: rj.Index})
			}
		}
	}
	sortPairs(out)
	return out
}

func sortPairs(ps []CandidatePair) {
	sort.Slice(ps, func(a, b int) bool {
		if ps[a].I != ps[b].I {
			return ps[a].I < ps[b].I
		}
		return ps[a].J < ps[b].J
	})
}
