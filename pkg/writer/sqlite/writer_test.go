package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisMcGann/PepTwins/pkg/core"
	"github.com/ChrisMcGann/PepTwins/pkg/grouping"
	"github.com/ChrisMcGann/PepTwins/pkg/similarity"
)

func testLibrary(t *testing.T) *core.Library {
	t.Helper()
	lib := core.NewLibrary()
	peaks, err := core.NewPeakList([]float64{100.5, 200.25}, []float64{10, 20})
	require.NoError(t, err)
	lib.AddRecord(core.PeptideRecord{Index: 0, Name: "PEPTIDEK/2", Mass: 465.74, IRT: 35.5}, peaks)
	lib.AddRecord(core.PeptideRecord{Index: 1, Name: "PEPTLDEK/2", Mass: 465.74, IRT: 35.9}, peaks)
	lib.AddRecord(core.PeptideRecord{Index: 2, Name: "AAK/1", Mass: 289.2, IRT: 10}, nil)
	return lib
}

func TestWriterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twins.db")
	lib := testLibrary(t)
	pairs := []grouping.CandidatePair{{I: 0, J: 1}, {I: 1, J: 2}}
	results := []similarity.Result{
		{Index1: 0, Index2: 1, Score: 0.93, Status: similarity.StatusOK, Name1: "PEPTIDEK/2", Name2: "PEPTLDEK/2", Mass1: 465.74, Mass2: 465.74, IRT1: 35.5, IRT2: 35.9, SameSequence: true},
		{Index1: 1, Index2: 2, Score: 0.5, Status: similarity.StatusFailed, Reason: "no spectrum for index 2", Name1: "PEPTLDEK/2", Name2: "AAK/1"},
	}

	w, err := NewWriter(path, "lib.msp", []byte("workers: 1\n"))
	require.NoError(t, err)
	require.NoError(t, w.WriteLibrary(lib))
	require.NoError(t, w.WritePairs(pairs))
	require.NoError(t, w.WriteGroups([]grouping.Group{{ID: 0, Members: []int{0, 1}}}))
	require.NoError(t, w.WriteResults(results))
	runID := w.RunID()
	require.NoError(t, w.Close())

	r, err := OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	runs, err := r.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, runID, runs[0].ID)
	assert.Equal(t, "lib.msp", runs[0].Source)
	assert.Equal(t, "workers: 1\n", runs[0].Parameters)

	id, err := r.ResolveRun("")
	require.NoError(t, err)
	assert.Equal(t, runID, id)

	gotPairs, err := r.Pairs(id)
	require.NoError(t, err)
	assert.Equal(t, pairs, gotPairs)

	gotResults, err := r.Results(id)
	require.NoError(t, err)
	require.Len(t, gotResults, 2)
	assert.Equal(t, results[0], gotResults[0])
	assert.Equal(t, similarity.StatusFailed, gotResults[1].Status)
	assert.Zero(t, gotResults[1].Score, "scores of failed rows are not stored")
	assert.Equal(t, "no spectrum for index 2", gotResults[1].Reason)

	gotLib, err := r.Library(id)
	require.NoError(t, err)
	assert.Equal(t, lib.Records(), gotLib.Records())
	want, _ := lib.Peaks(0)
	got, ok := gotLib.Peaks(0)
	require.True(t, ok)
	assert.Equal(t, want, got)
	_, ok = gotLib.Peaks(2)
	assert.False(t, ok)
}

func TestResolveRunLatest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twins.db")

	var ids []string
	for i := 0; i < 2; i++ {
		w, err := NewWriter(path, "lib.msp", nil)
		require.NoError(t, err)
		ids = append(ids, w.RunID())
		require.NoError(t, w.Close())
	}
	assert.NotEqual(t, ids[0], ids[1])

	r, err := OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	id, err := r.ResolveRun("")
	require.NoError(t, err)
	assert.Equal(t, ids[1], id)

	id, err = r.ResolveRun(ids[0])
	require.NoError(t, err)
	assert.Equal(t, ids[0], id)

	_, err = r.ResolveRun("missing")
	assert.ErrorIs(t, err, ErrNoRun)
}

func TestReadResults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twins.db")
	w, err := NewWriter(path, "lib.msp", nil)
	require.NoError(t, err)
	require.NoError(t, w.WriteResults([]similarity.Result{{Index1: 3, Index2: 4, Score: 0.8, Status: similarity.StatusOK}}))
	require.NoError(t, w.Close())

	id, results, err := ReadResults(path, "")
	require.NoError(t, err)
	assert.Equal(t, w.RunID(), id)
	require.Len(t, results, 1)
	assert.Equal(t, 0.8, results[0].Score)
}

func TestDecodeFloat64s(t *testing.T) {
	peaks := core.PeakList{{MZ: 1.5, Intensity: 2}, {MZ: 3.25, Intensity: 4}}
	mzs, err := decodeFloat64s(encodePeaksFloat64(peaks, true))
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 3.25}, mzs)

	_, err = decodeFloat64s([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestOpenReaderMissingFile(t *testing.T) {
	_, err := OpenReader(filepath.Join(t.TempDir(), "missing.db"))
	assert.Error(t, err)
}
