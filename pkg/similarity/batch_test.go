package similarity

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ChrisMcGann/PepTwins/pkg/core"
	"github.com/ChrisMcGann/PepTwins/pkg/grouping"
	"github.com/ChrisMcGann/PepTwins/pkg/logger"
)

func testLibrary() *core.Library {
	lib := core.NewLibrary()
	lib.AddRecord(core.PeptideRecord{Index: 0, Name: "PEPTIDEK/2", Mass: 500.0, IRT: 10.0},
		peaks(100.0, 50.0, 200.0, 10.0))
	lib.AddRecord(core.PeptideRecord{Index: 1, Name: "PEPTLDEK/2", Mass: 500.0005, IRT: 10.2},
		peaks(100.0005, 40.0, 300.0, 5.0))
	lib.AddRecord(core.PeptideRecord{Index: 2, Name: "PEPTIDEK/3", Mass: 333.7, IRT: 10.1},
		peaks(100.0, 50.0, 200.0, 10.0))
	lib.AddRecord(core.PeptideRecord{Index: 3, Name: "AAAAK/1", Mass: 500.001, IRT: 10.3},
		peaks(700.0, 10.0))
	// no spectrum
	lib.AddRecord(core.PeptideRecord{Index: 4, Name: "MISSINGK/2", Mass: 500.0, IRT: 10.0}, nil)
	return lib
}

func TestProcessSpectraPairs(t *testing.T) {
	lib := testLibrary()
	pairs := []grouping.CandidatePair{{I: 0, J: 1}, {I: 0, J: 2}, {I: 0, J: 3}, {I: 1, J: 4}}

	results, err := ProcessSpectraPairs(context.Background(), pairs, lib, lib, BatchOptions{})
	require.NoError(t, err)
	require.Len(t, results, len(pairs))

	for i, r := range results {
		assert.Equal(t, pairs[i].I, r.Index1)
		assert.Equal(t, pairs[i].J, r.Index2)
	}

	ok := results[0]
	assert.Equal(t, StatusOK, ok.Status)
	assert.Empty(t, ok.Reason)
	assert.Greater(t, ok.Score, 0.0)
	assert.Less(t, ok.Score, 1.0)
	assert.Equal(t, "PEPTIDEK/2", ok.Name1)
	assert.Equal(t, "PEPTLDEK/2", ok.Name2)
	assert.Equal(t, 500.0005, ok.Mass2)
	assert.Equal(t, 10.2, ok.IRT2)
	assert.True(t, ok.SameSequence)

	identical := results[1]
	assert.Equal(t, StatusOK, identical.Status)
	assert.InDelta(t, 1.0, identical.Score, 1e-6)
	assert.True(t, identical.SameSequence)

	disjoint := results[2]
	assert.Equal(t, StatusUndefined, disjoint.Status)
	assert.Contains(t, disjoint.Reason, core.ErrUndefinedScore.Error())
	assert.False(t, disjoint.SameSequence)

	missing := results[3]
	assert.Equal(t, StatusFailed, missing.Status)
	assert.Equal(t, (&core.LookupError{Index: 4}).Error(), missing.Reason)
	assert.Equal(t, "MISSINGK/2", missing.Name2)
}

func TestProcessSpectraPairsParallelMatchesSequential(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	lib := core.NewLibrary()
	for i := 0; i < 60; i++ {
		pl := make(core.PeakList, 5+rng.Intn(20))
		for k := range pl {
			pl[k] = core.Peak{MZ: 100 + float64(rng.Intn(400)) + rng.Float64()*0.001, Intensity: rng.Float64() * 100}
		}
		var peaksOrNil core.PeakList
		if i%17 != 0 {
			peaksOrNil = pl
		}
		lib.AddRecord(core.PeptideRecord{Index: i, Name: fmt.Sprintf("PEP%dK/2", i), Mass: 500, IRT: 0}, peaksOrNil)
	}
	var pairs []grouping.CandidatePair
	for i := 0; i < 60; i++ {
		for j := i + 1; j < 60; j += 3 {
			pairs = append(pairs, grouping.CandidatePair{I: i, J: j})
		}
	}

	seq, err := ProcessSpectraPairs(context.Background(), pairs, lib, lib, BatchOptions{Workers: 1})
	require.NoError(t, err)
	par, err := ProcessSpectraPairs(context.Background(), pairs, lib, lib, BatchOptions{Workers: 8})
	require.NoError(t, err)
	assert.Equal(t, seq, par)
}

func TestProcessSpectraPairsCancelled(t *testing.T) {
	lib := testLibrary()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ProcessSpectraPairs(ctx, []grouping.CandidatePair{{I: 0, J: 1}}, lib, lib, BatchOptions{Workers: 2})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestProcessSpectraPairsRejectsInvalidOptions(t *testing.T) {
	lib := testLibrary()
	pairs := []grouping.CandidatePair{{I: 0, J: 1}}
	tests := []struct {
		name string
		opts BatchOptions
	}{
		{"negative ppm", BatchOptions{Align: &AlignTolerance{PPM: -1}}},
		{"NaN tolerance", BatchOptions{Align: &AlignTolerance{Tolerance: math.NaN(), PPM: 10}}},
		{"infinite ppm", BatchOptions{Align: &AlignTolerance{PPM: math.Inf(1)}}},
		{"NaN intensity weight", BatchOptions{Weights: &Weights{Intensity: math.NaN()}}},
		{"infinite m/z weight", BatchOptions{Weights: &Weights{MZ: math.Inf(-1), Intensity: 0.5}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := ProcessSpectraPairs(context.Background(), pairs, lib, lib, tt.opts)
			require.Error(t, err)
			assert.True(t, core.IsInputError(err))
			assert.Nil(t, results)
		})
	}
}

func TestProcessSpectraPairsWithoutRecords(t *testing.T) {
	lib := testLibrary()
	results, err := ProcessSpectraPairs(context.Background(), []grouping.CandidatePair{{I: 0, J: 2}}, lib, nil, BatchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Empty(t, results[0].Name1)
	assert.False(t, results[0].SameSequence)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
}

func TestProcessSpectraPairsLogsFailures(t *testing.T) {
	obs, logs := observer.New(zapcore.DebugLevel)
	lib := testLibrary()

	_, err := ProcessSpectraPairs(context.Background(), []grouping.CandidatePair{{I: 1, J: 4}}, lib, lib,
		BatchOptions{Logger: logger.NewWithCore(obs)})
	require.NoError(t, err)

	assert.Equal(t, 1, logs.FilterMessage("pair failed").Len())
	summary := logs.FilterMessage("scored pairs").All()
	require.Len(t, summary, 1)
	assert.Equal(t, int64(1), summary[0].ContextMap()["failed"])
}

func TestStatusRoundTrip(t *testing.T) {
	for _, s := range []Status{StatusOK, StatusUndefined, StatusFailed} {
		got, err := ParseStatus(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	_, err := ParseStatus("maybe")
	assert.Error(t, err)
}
