// Package similarity aligns fragment peak lists and scores them with the
// normalized spectral angle.
package similarity

import (
	"fmt"
	"math"
	"sort"

	"github.com/ChrisMcGann/PepTwins/pkg/core"
)

// AlignTolerance is the m/z window used to put two peaks in the same bin. A
// peak joins a bin when it is within Tolerance of the anchor or within PPM of
// it, whichever is wider; anchor is the m/z of the peak that opened the bin.
type AlignTolerance struct {
	Tolerance float64
	PPM       float64
}

// DefaultAlignTolerance matches peaks within 10 ppm.
var DefaultAlignTolerance = AlignTolerance{Tolerance: 0, PPM: 10}

// Window returns the absolute window width around anchor.
func (t AlignTolerance) Window(anchor float64) float64 {
	return math.Max(t.Tolerance, t.PPM*anchor/1e6)
}

// Validate returns an InputError for negative or non-finite windows.
func (t AlignTolerance) Validate() error {
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"alignment.tolerance", t.Tolerance},
		{"alignment.ppm", t.PPM},
	} {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) || f.value < 0 {
			return &core.InputError{Field: f.name, Message: fmt.Sprintf("must be a finite number >= 0, got %v", f.value)}
		}
	}
	return nil
}

// AlignedPeak is one side of an alignment bin. Absent slots have Present set
// to false and MZ set to NaN.
type AlignedPeak struct {
	MZ        float64
	Intensity float64
	Present   bool
}

var absent = AlignedPeak{MZ: math.NaN()}

// Alignment holds two peak lists projected onto a shared bin axis.
// X[i] and Y[i] belong to the same bin.
type Alignment struct {
	X, Y []AlignedPeak
}

// Len returns the number of bins.
func (a Alignment) Len() int { return len(a.X) }

// Matched returns the number of bins with a peak on both sides.
func (a Alignment) Matched() int {
	n := 0
	for i := range a.X {
		if a.X[i].Present && a.Y[i].Present {
			n++
		}
	}
	return n
}

type side uint8

const (
	sideX side = iota
	sideY
)

type mergedPeak struct {
	core.Peak
	side side
}

type bin struct {
	anchor float64
	slots  [2]AlignedPeak
}

// aligner holds the bin table of a single Align call.
type aligner struct {
	tol  AlignTolerance
	bins []bin
	live int // bins before live can no longer accept peaks
}

func (al *aligner) place(p mergedPeak) {
	// Anchors are created in ascending order and anchor+window grows with
	// the anchor, so dead bins always form a prefix.
	for al.live < len(al.bins) {
		b := al.bins[al.live]
		if b.anchor+al.tol.Window(b.anchor) >= p.MZ {
			break
		}
		al.live++
	}

	for i := al.live; i < len(al.bins); i++ {
		b := &al.bins[i]
		if b.slots[p.side].Present {
			continue
		}
		if math.Abs(p.MZ-b.anchor) <= al.tol.Window(b.anchor) {
			b.slots[p.side] = AlignedPeak{MZ: p.MZ, Intensity: p.Intensity, Present: true}
			return
		}
	}

	nb := bin{anchor: p.MZ, slots: [2]AlignedPeak{absent, absent}}
	nb.slots[p.side] = AlignedPeak{MZ: p.MZ, Intensity: p.Intensity, Present: true}
	al.bins = append(al.bins, nb)
}

// Align merges x and y into one ascending m/z sequence and assigns every peak
// to the first bin, in creation order, whose anchor lies within the window
// and whose slot for that side is still free. Otherwise the peak opens a new
// bin. Assignment is greedy: first match wins.
//
// Every input peak lands in exactly one bin, so len(X) == len(Y) and the
// number of bins is at most len(x)+len(y). Inputs need not be sorted.
func Align(x, y core.PeakList, tol AlignTolerance) Alignment {
	merged := make([]mergedPeak, 0, len(x)+len(y))
	for _, p := range x {
		merged = append(merged, mergedPeak{Peak: p, side: sideX})
	}
	for _, p := range y {
		merged = append(merged, mergedPeak{Peak: p, side: sideY})
	}
	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].MZ != merged[j].MZ {
			return merged[i].MZ < merged[j].MZ
		}
		return merged[i].side < merged[j].side
	})

	al := &aligner{tol: tol, bins: make([]bin, 0, len(merged))}
	for _, p := range merged {
		al.place(p)
	}

	out := Alignment{
		X: make([]AlignedPeak, len(al.bins)),
		Y: make([]AlignedPeak, len(al.bins)),
	}
	for i, b := range al.bins {
		out.X[i] = b.slots[sideX]
		out.Y[i] = b.slots[sideY]
	}
	return out
}
