// Package core provides the data model shared by the grouping and similarity
// packages: peptide records, peak lists, spectra and the error taxonomy.
package core

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Spectrum represents a single predicted or measured fragment spectrum with
// the precursor metadata needed for twin analysis.
type Spectrum struct {
	// Required fields
	Sequence    string  // Peptide sequence, may carry [UNIMOD:n] tags
	Charge      int     // Precursor charge state
	PrecursorMZ float64 // Precursor m/z
	Peaks       []Peak  // Fragment peaks

	// Optional metadata
	RetentionTime   *float64 // iRT
	CollisionEnergy *float64 // Normalized collision energy
	Modifications   []Modification

	// Internal tracking
	SourceFormat string
}

// Peak represents a single m/z, intensity pair.
type Peak struct {
	MZ         float64
	Intensity  float64
	Annotation string // Ion annotation (e.g., "y3", "b2^2")
}

// PeakList is an m/z-ordered sequence of peaks belonging to one spectrum.
type PeakList []Peak

// Modification represents a peptide modification with position and mass shift.
type Modification struct {
	Mass     float64
	Position int    // 0-based residue position; -1 for N-term
	Name     string // e.g. "UNIMOD:4"
}

// ValidationError represents an error found during spectrum validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", e.Field, e.Message)
}

// Validate checks that a spectrum can enter the analysis.
func (s *Spectrum) Validate() error {
	var errs []string

	if s.Sequence == "" {
		errs = append(errs, "sequence is required")
	}
	if s.Charge <= 0 {
		errs = append(errs, "charge must be positive")
	}
	if math.IsNaN(s.PrecursorMZ) || math.IsInf(s.PrecursorMZ, 0) || s.PrecursorMZ <= 0 {
		errs = append(errs, "precursor m/z must be positive")
	}
	if s.RetentionTime == nil {
		errs = append(errs, "iRT is required")
	} else if math.IsNaN(*s.RetentionTime) || math.IsInf(*s.RetentionTime, 0) {
		errs = append(errs, "iRT must be finite")
	}

	for i, peak := range s.Peaks {
		if math.IsNaN(peak.MZ) || math.IsInf(peak.MZ, 0) {
			errs = append(errs, fmt.Sprintf("peak %d has invalid m/z", i))
		}
		if math.IsNaN(peak.Intensity) || math.IsInf(peak.Intensity, 0) {
			errs = append(errs, fmt.Sprintf("peak %d has invalid intensity", i))
		}
		if peak.MZ <= 0 {
			errs = append(errs, fmt.Sprintf("peak %d m/z must be positive", i))
		}
		if peak.Intensity < 0 {
			errs = append(errs, fmt.Sprintf("peak %d intensity must be non-negative", i))
		}
	}

	if !s.ArePeaksSorted() {
		errs = append(errs, "peaks must be sorted by m/z")
	}

	if len(errs) > 0 {
		return &ValidationError{
			Field:   s.Name(),
			Message: strings.Join(errs, "; "),
		}
	}

	return nil
}

// ArePeaksSorted checks if peaks are sorted by m/z in ascending order.
func (s *Spectrum) ArePeaksSorted() bool {
	return PeakList(s.Peaks).IsSorted()
}

// SortPeaks sorts peaks by m/z in ascending order.
func (s *Spectrum) SortPeaks() {
	sort.SliceStable(s.Peaks, func(i, j int) bool {
		return s.Peaks[i].MZ < s.Peaks[j].MZ
	})
}

// Name returns the spectrum name in format "Sequence/Charge"
func (s *Spectrum) Name() string {
	return fmt.Sprintf("%s/%d", s.Sequence, s.Charge)
}

// IsSorted reports whether the list is in ascending m/z order.
func (pl PeakList) IsSorted() bool {
	for i := 1; i < len(pl); i++ {
		if pl[i].MZ < pl[i-1].MZ {
			return false
		}
	}
	return true
}

// MZs returns the m/z column.
func (pl PeakList) MZs() []float64 {
	out := make([]float64, len(pl))
	for i, p := range pl {
		out[i] = p.MZ
	}
	return out
}

// Intensities returns the intensity column.
func (pl PeakList) Intensities() []float64 {
	out := make([]float64, len(pl))
	for i, p := range pl {
		out[i] = p.Intensity
	}
	return out
}

// NewPeakList zips parallel m/z and intensity arrays into a sorted PeakList.
// The arrays must have the same length.
func NewPeakList(mzs, intensities []float64) (PeakList, error) {
	if len(mzs) != len(intensities) {
		return nil, &InputError{
			Field:   "peaks",
			Message: fmt.Sprintf("m/z and intensity arrays differ in length (%d vs %d)", len(mzs), len(intensities)),
		}
	}
	pl := make(PeakList, len(mzs))
	for i := range mzs {
		pl[i] = Peak{MZ: mzs[i], Intensity: intensities[i]}
	}
	sort.SliceStable(pl, func(i, j int) bool { return pl[i].MZ < pl[j].MZ })
	return pl, nil
}
