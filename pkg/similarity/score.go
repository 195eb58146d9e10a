package similarity

import (
	"fmt"
	"math"

	"github.com/ChrisMcGann/PepTwins/pkg/core"
)

// Weights are the exponents applied to m/z and intensity before the dot
// product: w = mz^MZ * intensity^Intensity.
type Weights struct {
	MZ        float64
	Intensity float64
}

// DefaultWeights takes the square root of intensities and ignores m/z.
var DefaultWeights = Weights{MZ: 0, Intensity: 0.5}

// Validate returns an InputError when an exponent is not a finite number.
func (w Weights) Validate() error {
	if math.IsNaN(w.MZ) || math.IsInf(w.MZ, 0) || math.IsNaN(w.Intensity) || math.IsInf(w.Intensity, 0) {
		return &core.InputError{Field: "scoring", Message: fmt.Sprintf("weights must be finite numbers, got m/z %v and intensity %v", w.MZ, w.Intensity)}
	}
	return nil
}

func (w Weights) weight(p AlignedPeak) float64 {
	if !p.Present {
		return 0
	}
	return math.Pow(p.MZ, w.MZ) * math.Pow(p.Intensity, w.Intensity)
}

// NormalizedDotProduct returns (Σwx*wy)² / (Σwx² * Σwy²), clamped to [0, 1].
// It fails with core.ErrUndefinedScore when either side has zero total
// weight or when no bin holds a peak on both sides.
func NormalizedDotProduct(a Alignment, w Weights) (float64, error) {
	if len(a.X) != len(a.Y) {
		return 0, &core.InputError{Field: "alignment", Message: fmt.Sprintf("sides differ in length (%d vs %d)", len(a.X), len(a.Y))}
	}

	var xy, xx, yy float64
	matched := 0
	for i := range a.X {
		wx, wy := w.weight(a.X[i]), w.weight(a.Y[i])
		xy += wx * wy
		xx += wx * wx
		yy += wy * wy
		if a.X[i].Present && a.Y[i].Present {
			matched++
		}
	}

	switch {
	case xx == 0 || yy == 0:
		return 0, fmt.Errorf("%w: zero total weight", core.ErrUndefinedScore)
	case matched == 0:
		return 0, fmt.Errorf("%w: no matched peaks", core.ErrUndefinedScore)
	}

	dot := xy * xy / (xx * yy)
	if math.IsNaN(dot) || math.IsInf(dot, 0) {
		return 0, fmt.Errorf("%w: non-finite dot product", core.ErrUndefinedScore)
	}
	return math.Min(1, math.Max(0, dot)), nil
}

// Score returns the spectral angle similarity 1 - 2*acos(dot)/π in [0, 1],
// where 1 means identical spectra.
func Score(a Alignment, w Weights) (float64, error) {
	dot, err := NormalizedDotProduct(a, w)
	if err != nil {
		return 0, err
	}
	return 1 - 2*math.Acos(dot)/math.Pi, nil
}
