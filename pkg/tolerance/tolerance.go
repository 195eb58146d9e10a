// Package tolerance provides the closeness predicates used to compare
// precursor masses and retention times.
package tolerance

import (
	"fmt"
	"math"
	"strings"

	"github.com/ChrisMcGann/PepTwins/pkg/core"
)

// Mode selects how a tolerance value is interpreted.
type Mode int

const (
	// Absolute compares raw differences: |a-b| <= value.
	Absolute Mode = iota
	// PPM scales the value by the first operand: |a-b| <= a*value/1e6.
	PPM
)

func (m Mode) String() string {
	switch m {
	case Absolute:
		return "absolute"
	case PPM:
		return "ppm"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode maps a user supplied mode name to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "absolute", "abs", "da", "th":
		return Absolute, nil
	case "ppm":
		return PPM, nil
	default:
		return 0, &core.InputError{Field: "tolerance mode", Message: fmt.Sprintf("unsupported mode '%s', must be absolute or ppm", s)}
	}
}

// Spec is a tolerance value tagged with its mode.
type Spec struct {
	Value float64
	Mode  Mode
}

// Abs returns an absolute tolerance.
func Abs(v float64) Spec { return Spec{Value: v, Mode: Absolute} }

// PPMOf returns a ppm tolerance.
func PPMOf(v float64) Spec { return Spec{Value: v, Mode: PPM} }

// Validate rejects negative or non-finite values and unknown modes.
func (s Spec) Validate() error {
	if math.IsNaN(s.Value) || math.IsInf(s.Value, 0) || s.Value < 0 {
		return &core.InputError{Field: "tolerance", Message: fmt.Sprintf("value must be a finite number >= 0, got %v", s.Value)}
	}
	if s.Mode != Absolute && s.Mode != PPM {
		return &core.InputError{Field: "tolerance mode", Message: fmt.Sprintf("unsupported mode %s", s.Mode)}
	}
	return nil
}

// Absolute returns the absolute window width at reference magnitude ref.
func (s Spec) Absolute(ref float64) float64 {
	if s.Mode == PPM {
		return ref * s.Value / 1e6
	}
	return s.Value
}

// Within reports whether b is within tolerance of a. In ppm mode the window
// is relative to a, so Within(a, b) and Within(b, a) may differ.
func (s Spec) Within(a, b float64) bool {
	return math.Abs(a-b) <= s.Absolute(a)
}

func (s Spec) String() string {
	if s.Mode == PPM {
		return fmt.Sprintf("%g ppm", s.Value)
	}
	return fmt.Sprintf("%g", s.Value)
}

// WithinBoth applies the mass and iRT predicates to two (mass, iRT) points.
// Both axes must hold; the first point is the reference for ppm.
func WithinBoth(mass, irt Spec, m1, r1, m2, r2 float64) bool {
	return mass.Within(m1, m2) && irt.Within(r1, r2)
}
