// Package filter trims fragment peak lists before they are aligned and scored.
package filter

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/ChrisMcGann/PepTwins/pkg/core"
)

// Config holds filtering configuration. The zero value keeps every peak.
type Config struct {
	TopN              int      // Keep only the N most intense peaks (0 = no limit)
	RelativeIntensity float64  // Keep peaks at or above this fraction of the base peak (0 = no cutoff)
	IonTypes          []string // Keep only these ion series, e.g. "b", "y" (nil = all)
}

// IsZero reports whether the config leaves spectra untouched.
func (c *Config) IsZero() bool {
	return c == nil || (c.TopN == 0 && c.RelativeIntensity == 0 && len(c.IonTypes) == 0)
}

// Validate checks the filter parameters.
func (c *Config) Validate() error {
	if c.TopN < 0 {
		return &core.InputError{Field: "filter.top_n", Message: fmt.Sprintf("must be >= 0, got %d", c.TopN)}
	}
	if math.IsNaN(c.RelativeIntensity) || c.RelativeIntensity < 0 || c.RelativeIntensity > 1 {
		return &core.InputError{Field: "filter.relative_intensity", Message: fmt.Sprintf("must be within [0, 1], got %v", c.RelativeIntensity)}
	}
	for _, t := range c.IonTypes {
		if strings.TrimSpace(t) == "" {
			return &core.InputError{Field: "filter.ion_types", Message: "empty ion type"}
		}
	}
	return nil
}

// Apply applies all configured filters to a spectrum: ion type, relative
// intensity, then top-N. Peaks are left sorted by m/z.
func (c *Config) Apply(spec *core.Spectrum) error {
	if err := c.Validate(); err != nil {
		return err
	}

	if len(c.IonTypes) > 0 {
		c.filterByIonType(spec)
	}
	if c.RelativeIntensity > 0 {
		c.filterByIntensity(spec)
	}
	if c.TopN > 0 {
		c.filterTopN(spec)
	}

	spec.SortPeaks()
	return nil
}

// filterByIonType keeps only annotated peaks of an allowed ion series.
func (c *Config) filterByIonType(spec *core.Spectrum) {
	var filtered []core.Peak
	for _, peak := range spec.Peaks {
		if matchesIonType(peak.Annotation, c.IonTypes) {
			filtered = append(filtered, peak)
		}
	}
	spec.Peaks = filtered
}

func matchesIonType(annotation string, ionTypes []string) bool {
	ion, err := parseIonAnnotation(annotation)
	if err != nil {
		return false
	}
	for _, t := range ionTypes {
		if strings.EqualFold(strings.TrimSpace(t), ion.ionType) {
			return true
		}
	}
	return false
}

// filterByIntensity removes peaks below RelativeIntensity times the base peak.
func (c *Config) filterByIntensity(spec *core.Spectrum) {
	if len(spec.Peaks) == 0 {
		return
	}

	maxIntensity := 0.0
	for _, peak := range spec.Peaks {
		if peak.Intensity > maxIntensity {
			maxIntensity = peak.Intensity
		}
	}
	threshold := c.RelativeIntensity * maxIntensity

	var filtered []core.Peak
	for _, peak := range spec.Peaks {
		if peak.Intensity >= threshold {
			filtered = append(filtered, peak)
		}
	}
	spec.Peaks = filtered
}

// filterTopN keeps only the N most intense peaks. Ties go to the lower m/z.
func (c *Config) filterTopN(spec *core.Spectrum) {
	if len(spec.Peaks) <= c.TopN {
		return
	}

	peaks := make([]core.Peak, len(spec.Peaks))
	copy(peaks, spec.Peaks)
	sort.SliceStable(peaks, func(i, j int) bool {
		if peaks[i].Intensity != peaks[j].Intensity {
			return peaks[i].Intensity > peaks[j].Intensity
		}
		return peaks[i].MZ < peaks[j].MZ
	})
	spec.Peaks = peaks[:c.TopN]
}

type ionAnnotation struct {
	ionType  string
	position int
	charge   int
}

var ionAnnotationRe = regexp.MustCompile(`^"?([a-zA-Z])(\d+)(?:\^(\d+))?`)

// parseIonAnnotation parses annotations like "y3", "b2^2", "y10^3/0.1ppm".
func parseIonAnnotation(annotation string) (*ionAnnotation, error) {
	matches := ionAnnotationRe.FindStringSubmatch(annotation)
	if matches == nil {
		return nil, fmt.Errorf("invalid ion annotation format: %s", annotation)
	}

	info := &ionAnnotation{ionType: strings.ToLower(matches[1]), charge: 1}
	if _, err := fmt.Sscanf(matches[2], "%d", &info.position); err != nil {
		return nil, fmt.Errorf("invalid position in annotation %s: %w", annotation, err)
	}
	if matches[3] != "" {
		if _, err := fmt.Sscanf(matches[3], "%d", &info.charge); err != nil {
			return nil, fmt.Errorf("invalid charge in annotation %s: %w", annotation, err)
		}
	}
	return info, nil
}

// RemoveZeroIntensityPeaks removes peaks with zero or negative intensity.
func RemoveZeroIntensityPeaks(spec *core.Spectrum) {
	var filtered []core.Peak
	for _, peak := range spec.Peaks {
		if peak.Intensity > 0 {
			filtered = append(filtered, peak)
		}
	}
	spec.Peaks = filtered
}
