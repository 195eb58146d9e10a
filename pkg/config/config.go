// Package config holds the analysis parameters of a PepTwins run.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ChrisMcGann/PepTwins/pkg/core"
	"github.com/ChrisMcGann/PepTwins/pkg/filter"
	"github.com/ChrisMcGann/PepTwins/pkg/similarity"
	"github.com/ChrisMcGann/PepTwins/pkg/tolerance"
)

// Grouping methods.
const (
	MethodPairs      = "pairs"
	MethodConsistent = "consistent"
)

type Grouping struct {
	MassTolerance float64 `yaml:"mass_tolerance"`
	MassMode      string  `yaml:"mass_mode"`
	IRTTolerance  float64 `yaml:"irt_tolerance"`
	Method        string  `yaml:"method"`
}

type Alignment struct {
	Tolerance float64 `yaml:"tolerance"`
	PPM       float64 `yaml:"ppm"`
}

type Scoring struct {
	MZWeight        float64 `yaml:"mz_weight"`
	IntensityWeight float64 `yaml:"intensity_weight"`
	TwinThreshold   float64 `yaml:"twin_threshold"`
}

type Filter struct {
	TopN              int      `yaml:"top_n"`
	RelativeIntensity float64  `yaml:"relative_intensity"`
	IonTypes          []string `yaml:"ion_types"`
}

// Config is the full analysis configuration.
type Config struct {
	Grouping  Grouping  `yaml:"grouping"`
	Alignment Alignment `yaml:"alignment"`
	Scoring   Scoring   `yaml:"scoring"`
	Filter    Filter    `yaml:"filter"`
	Workers   int       `yaml:"workers"`
}

// Default returns the parameters used when no file is given.
func Default() Config {
	return Config{
		Grouping: Grouping{
			MassTolerance: 10,
			MassMode:      tolerance.PPM.String(),
			IRTTolerance:  5,
			Method:        MethodPairs,
		},
		Alignment: Alignment{
			Tolerance: similarity.DefaultAlignTolerance.Tolerance,
			PPM:       similarity.DefaultAlignTolerance.PPM,
		},
		Scoring: Scoring{
			MZWeight:        similarity.DefaultWeights.MZ,
			IntensityWeight: similarity.DefaultWeights.Intensity,
			TwinThreshold:   similarity.DefaultTwinThreshold,
		},
		Workers: 1,
	}
}

// Load reads a YAML file on top of Default. An empty path returns Default.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := Decode(bytes.NewReader(data))
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Decode reads YAML from r on top of Default and validates the result.
// Unknown keys are rejected.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every parameter and returns the first problem as an
// InputError.
func (c Config) Validate() error {
	if _, err := c.MassTolerance(); err != nil {
		return err
	}
	if err := tolerance.Abs(c.Grouping.IRTTolerance).Validate(); err != nil {
		return fmt.Errorf("grouping.irt_tolerance: %w", err)
	}
	switch c.Grouping.Method {
	case MethodPairs, MethodConsistent:
	default:
		return &core.InputError{Field: "grouping.method", Message: fmt.Sprintf("unknown method '%s', must be %s or %s", c.Grouping.Method, MethodPairs, MethodConsistent)}
	}

	if err := c.AlignTolerance().Validate(); err != nil {
		return err
	}
	if err := c.Weights().Validate(); err != nil {
		return err
	}
	if t := c.Scoring.TwinThreshold; math.IsNaN(t) || t < 0 || t > 1 {
		return &core.InputError{Field: "scoring.twin_threshold", Message: fmt.Sprintf("must be within [0, 1], got %v", t)}
	}
	if err := c.FilterConfig().Validate(); err != nil {
		return err
	}
	if c.Workers < 1 {
		return &core.InputError{Field: "workers", Message: fmt.Sprintf("must be >= 1, got %d", c.Workers)}
	}
	return nil
}

// MassTolerance returns the grouping mass tolerance as a tolerance.Spec.
func (c Config) MassTolerance() (tolerance.Spec, error) {
	mode, err := tolerance.ParseMode(c.Grouping.MassMode)
	if err != nil {
		return tolerance.Spec{}, err
	}
	spec := tolerance.Spec{Value: c.Grouping.MassTolerance, Mode: mode}
	if err := spec.Validate(); err != nil {
		return tolerance.Spec{}, fmt.Errorf("grouping.mass_tolerance: %w", err)
	}
	return spec, nil
}

// AlignTolerance returns the peak alignment window.
func (c Config) AlignTolerance() similarity.AlignTolerance {
	return similarity.AlignTolerance{Tolerance: c.Alignment.Tolerance, PPM: c.Alignment.PPM}
}

// Weights returns the scoring exponents.
func (c Config) Weights() similarity.Weights {
	return similarity.Weights{MZ: c.Scoring.MZWeight, Intensity: c.Scoring.IntensityWeight}
}

// FilterConfig returns the peak filter settings.
func (c Config) FilterConfig() *filter.Config {
	types := make([]string, 0, len(c.Filter.IonTypes))
	for _, t := range c.Filter.IonTypes {
		types = append(types, strings.TrimSpace(t))
	}
	return &filter.Config{
		TopN:              c.Filter.TopN,
		RelativeIntensity: c.Filter.RelativeIntensity,
		IonTypes:          types,
	}
}

// Marshal renders the configuration as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
