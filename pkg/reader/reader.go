// Package reader opens spectral libraries and loads them into a core.Library.
package reader

import (
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/ChrisMcGann/PepTwins/pkg/core"
	"github.com/ChrisMcGann/PepTwins/pkg/filter"
	"github.com/ChrisMcGann/PepTwins/pkg/logger"
	"github.com/ChrisMcGann/PepTwins/pkg/reader/msp"
	"github.com/ChrisMcGann/PepTwins/pkg/reader/sptxt"
)

// SpectrumReader streams spectra from a library file.
type SpectrumReader interface {
	Next() bool
	Spectrum() *core.Spectrum
	Err() error
}

// DetectFormat returns the library format implied by a file extension.
func DetectFormat(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".msp":
		return "msp", nil
	case ".sptxt":
		return "sptxt", nil
	default:
		return "", fmt.Errorf("cannot auto-detect format from extension '%s', please specify --from", ext)
	}
}

// New returns a reader for the given format.
func New(r io.Reader, format string, modDB *core.ModDatabase) (SpectrumReader, error) {
	switch strings.ToLower(format) {
	case "msp":
		return msp.NewReader(r, modDB), nil
	case "sptxt":
		return sptxt.NewReader(r), nil
	default:
		return nil, &core.InputError{Field: "format", Message: fmt.Sprintf("invalid input format '%s', must be msp or sptxt", format)}
	}
}

// LoadOptions controls LoadLibrary.
type LoadOptions struct {
	Filter *filter.Config
	Logger *logger.Logger
}

// LoadStats counts what LoadLibrary kept and skipped.
type LoadStats struct {
	Loaded  int
	Skipped int
}

// LoadLibrary reads every spectrum, drops zero-intensity peaks, applies the
// filter and validates the result. A spectrum without a usable precursor m/z
// or iRT cannot enter the peptide table and fails the load with an
// InputError. Spectra with other defects, such as bad peaks, are skipped with
// a warning. Provenance indices are assigned in load order. A read error
// aborts the load.
func LoadLibrary(sr SpectrumReader, opts LoadOptions) (*core.Library, LoadStats, error) {
	log := logger.OrNop(opts.Logger)
	lib := core.NewLibrary()
	var stats LoadStats

	for sr.Next() {
		spec := sr.Spectrum()

		if err := checkPrecursor(spec); err != nil {
			return nil, stats, err
		}

		filter.RemoveZeroIntensityPeaks(spec)
		if !opts.Filter.IsZero() {
			if err := opts.Filter.Apply(spec); err != nil {
				return nil, stats, fmt.Errorf("failed to filter spectrum %s: %w", spec.Name(), err)
			}
		}

		if err := spec.Validate(); err != nil {
			log.Warn("skipping invalid spectrum", "name", spec.Name(), "error", err)
			stats.Skipped++
			continue
		}

		lib.Add(spec)
		stats.Loaded++
		if stats.Loaded%10000 == 0 {
			log.Info("loading spectra", "loaded", stats.Loaded)
		}
	}

	if err := sr.Err(); err != nil {
		return nil, stats, fmt.Errorf("error reading input file: %w", err)
	}
	if lib.Len() == 0 {
		return nil, stats, &core.InputError{Field: "library", Message: "no valid spectra"}
	}
	return lib, stats, nil
}

// checkPrecursor reports a spectrum that lacks the mass or iRT of its record.
func checkPrecursor(spec *core.Spectrum) error {
	if mz := spec.PrecursorMZ; math.IsNaN(mz) || math.IsInf(mz, 0) || mz <= 0 {
		return &core.InputError{Field: "mass", Message: fmt.Sprintf("spectrum %s has no valid precursor m/z", spec.Name())}
	}
	if spec.RetentionTime == nil {
		return &core.InputError{Field: "iRT", Message: fmt.Sprintf("spectrum %s has no iRT", spec.Name())}
	}
	if rt := *spec.RetentionTime; math.IsNaN(rt) || math.IsInf(rt, 0) {
		return &core.InputError{Field: "iRT", Message: fmt.Sprintf("spectrum %s has invalid iRT %v", spec.Name(), rt)}
	}
	return nil
}
