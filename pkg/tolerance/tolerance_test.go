package tolerance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisMcGann/PepTwins/pkg/core"
)

func TestWithin(t *testing.T) {
	tests := []struct {
		name string
		spec Spec
		a, b float64
		want bool
	}{
		{"absolute inside", Abs(0.01), 500.0, 500.0005, true},
		{"absolute boundary", Abs(0.5), 10.0, 10.5, true},
		{"absolute outside", Abs(0.01), 500.0, 500.02, false},
		{"absolute zero tolerance equal", Abs(0), 3.0, 3.0, true},
		{"ppm inside", PPMOf(10), 1000.0, 1000.009, true},
		{"ppm outside", PPMOf(10), 1000.0, 1000.011, false},
		{"negative values", Abs(0.5), -2.0, -2.4, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.spec.Within(tt.a, tt.b))
		})
	}
}

func TestWithinPPMIsRelativeToFirstOperand(t *testing.T) {
	s := PPMOf(1000) // 0.1%
	// window from 100 is 0.1, from 100.1 is 0.1001
	assert.False(t, s.Within(100, 100.1001))
	assert.True(t, s.Within(100.1001, 100))
}

func TestWithinBoth(t *testing.T) {
	mass, irt := Abs(0.01), Abs(0.5)
	assert.True(t, WithinBoth(mass, irt, 500.0, 10.0, 500.0005, 10.2))
	assert.False(t, WithinBoth(mass, irt, 500.0, 10.0, 500.0005, 10.6))
	assert.False(t, WithinBoth(mass, irt, 500.0, 10.0, 600.0, 10.0))
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("PPM")
	require.NoError(t, err)
	assert.Equal(t, PPM, m)

	m, err = ParseMode(" absolute ")
	require.NoError(t, err)
	assert.Equal(t, Absolute, m)

	_, err = ParseMode("percent")
	require.Error(t, err)
	assert.True(t, core.IsInputError(err))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Abs(0).Validate())
	assert.NoError(t, PPMOf(10).Validate())
	assert.Error(t, Abs(-1).Validate())
	assert.Error(t, Spec{Value: 1, Mode: Mode(9)}.Validate())
}

func TestAbsolute(t *testing.T) {
	assert.InDelta(t, 0.005, PPMOf(10).Absolute(500), 1e-12)
	assert.Equal(t, 0.3, Abs(0.3).Absolute(500))
}
