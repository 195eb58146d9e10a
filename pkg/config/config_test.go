package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisMcGann/PepTwins/pkg/core"
	"github.com/ChrisMcGann/PepTwins/pkg/similarity"
	"github.com/ChrisMcGann/PepTwins/pkg/tolerance"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	mass, err := cfg.MassTolerance()
	require.NoError(t, err)
	assert.Equal(t, tolerance.PPMOf(10), mass)
	assert.Equal(t, similarity.DefaultAlignTolerance, cfg.AlignTolerance())
	assert.Equal(t, similarity.DefaultWeights, cfg.Weights())
	assert.True(t, cfg.FilterConfig().IsZero())
}

func TestDecodeOverridesDefaults(t *testing.T) {
	cfg, err := Decode(strings.NewReader(`
grouping:
  mass_tolerance: 0.02
  mass_mode: absolute
  method: consistent
filter:
  top_n: 12
  ion_types: [b, " y"]
workers: 4
`))
	require.NoError(t, err)

	mass, err := cfg.MassTolerance()
	require.NoError(t, err)
	assert.Equal(t, tolerance.Abs(0.02), mass)
	assert.Equal(t, MethodConsistent, cfg.Grouping.Method)
	assert.Equal(t, 5.0, cfg.Grouping.IRTTolerance, "unset keys keep defaults")
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, []string{"b", "y"}, cfg.FilterConfig().IonTypes)
	assert.Equal(t, 12, cfg.FilterConfig().TopN)
}

func TestDecodeEmpty(t *testing.T) {
	cfg, err := Decode(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name  string
		yaml  string
		input bool // expect an InputError rather than a YAML error
	}{
		{"unknown key", "grouping:\n  mass_tol: 1\n", false},
		{"bad mode", "grouping:\n  mass_mode: percent\n", true},
		{"negative mass tolerance", "grouping:\n  mass_tolerance: -1\n", true},
		{"negative iRT tolerance", "grouping:\n  irt_tolerance: -2\n", true},
		{"unknown method", "grouping:\n  method: magic\n", true},
		{"negative ppm", "alignment:\n  ppm: -3\n", true},
		{"infinite weight", "scoring:\n  intensity_weight: .inf\n", true},
		{"threshold above one", "scoring:\n  twin_threshold: 1.5\n", true},
		{"bad filter", "filter:\n  relative_intensity: 2\n", true},
		{"no workers", "workers: 0\n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.yaml))
			require.Error(t, err)
			assert.Equal(t, tt.input, core.IsInputError(err))
		})
	}
}

func TestLoad(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	path := filepath.Join(t.TempDir(), "peptwins.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: 3\n"), 0o644))
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Workers)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestMarshalRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Filter.IonTypes = []string{"y"}
	data, err := cfg.Marshal()
	require.NoError(t, err)

	back, err := Decode(strings.NewReader(string(data)))
	require.NoError(t, err)
	assert.Equal(t, cfg, back)
}
