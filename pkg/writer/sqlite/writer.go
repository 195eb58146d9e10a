// Package sqlite stores the peptides, candidate pairs, groups and similarity
// results of analysis runs in a SQLite database.
package sqlite

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/ChrisMcGann/PepTwins/pkg/core"
	"github.com/ChrisMcGann/PepTwins/pkg/grouping"
	"github.com/ChrisMcGann/PepTwins/pkg/similarity"
)

// Date format for RunTable (ISO 8601)
const runDateFormat = time.RFC3339

const schema = `
CREATE TABLE IF NOT EXISTS RunTable (
	RunId TEXT PRIMARY KEY,
	CreationDate TEXT,
	Source TEXT,
	Parameters TEXT
);

CREATE TABLE IF NOT EXISTS PeptideTable (
	RunId TEXT REFERENCES RunTable(RunId),
	PeptideIndex INTEGER,
	Name TEXT,
	Sequence TEXT,
	Charge INTEGER,
	PrecursorMZ DOUBLE,
	IRT DOUBLE,
	blobMass BLOB,
	blobIntensity BLOB,
	PRIMARY KEY (RunId, PeptideIndex)
);

CREATE TABLE IF NOT EXISTS PairTable (
	RunId TEXT REFERENCES RunTable(RunId),
	Index1 INTEGER,
	Index2 INTEGER
);

CREATE TABLE IF NOT EXISTS GroupTable (
	RunId TEXT REFERENCES RunTable(RunId),
	GroupId INTEGER,
	PeptideIndex INTEGER
);

CREATE TABLE IF NOT EXISTS SimilarityTable (
	RunId TEXT REFERENCES RunTable(RunId),
	Index1 INTEGER,
	Index2 INTEGER,
	Peptide1 TEXT,
	Peptide2 TEXT,
	Mass1 DOUBLE,
	Mass2 DOUBLE,
	IRT1 DOUBLE,
	IRT2 DOUBLE,
	Score DOUBLE,
	Status TEXT,
	Reason TEXT,
	SameSequence BOOL
);
`

// Writer appends one analysis run to a SQLite database
type Writer struct {
	db         *sql.DB
	outputPath string
	runID      string
}

// NewWriter opens (or creates) the database and registers a new run.
// params is stored verbatim, typically the YAML configuration.
func NewWriter(outputPath, source string, params []byte) (*Writer, error) {
	db, err := sql.Open("sqlite3", outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	w := &Writer{
		db:         db,
		outputPath: outputPath,
		runID:      uuid.NewString(),
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	_, err = db.Exec(`INSERT INTO RunTable (RunId, CreationDate, Source, Parameters) VALUES (?, ?, ?, ?)`,
		w.runID, time.Now().UTC().Format(runDateFormat), source, string(params))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}

	return w, nil
}

// RunID returns the identifier of the run being written.
func (w *Writer) RunID() string {
	return w.runID
}

// insertAll runs one prepared statement per row inside a transaction.
func (w *Writer) insertAll(query string, n int, args func(i int) []any) error {
	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	stmt, err := tx.Prepare(query)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if _, err := stmt.Exec(args(i)...); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert row %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// WriteLibrary stores every record and its peak list.
func (w *Writer) WriteLibrary(lib *core.Library) error {
	records := lib.Records()
	err := w.insertAll(`
		INSERT INTO PeptideTable (
			RunId, PeptideIndex, Name, Sequence, Charge, PrecursorMZ, IRT, blobMass, blobIntensity
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, len(records), func(i int) []any {
		rec := records[i]
		seq, charge, _ := core.SplitName(rec.Name)

		var mzBlob, intBlob []byte
		if peaks, ok := lib.Peaks(rec.Index); ok {
			mzBlob = encodePeaksFloat64(peaks, true)
			intBlob = encodePeaksFloat64(peaks, false)
		}
		return []any{w.runID, rec.Index, rec.Name, seq, charge, rec.Mass, rec.IRT, mzBlob, intBlob}
	})
	if err != nil {
		return fmt.Errorf("failed to write peptides: %w", err)
	}
	return nil
}

// WritePairs stores candidate pairs.
func (w *Writer) WritePairs(pairs []grouping.CandidatePair) error {
	err := w.insertAll(`INSERT INTO PairTable (RunId, Index1, Index2) VALUES (?, ?, ?)`,
		len(pairs), func(i int) []any {
			return []any{w.runID, pairs[i].I, pairs[i].J}
		})
	if err != nil {
		return fmt.Errorf("failed to write pairs: %w", err)
	}
	return nil
}

// WriteGroups stores one row per group member.
func (w *Writer) WriteGroups(groups []grouping.Group) error {
	type member struct{ group, index int }
	var rows []member
	for _, g := range groups {
		for _, m := range g.Members {
			rows = append(rows, member{g.ID, m})
		}
	}

	err := w.insertAll(`INSERT INTO GroupTable (RunId, GroupId, PeptideIndex) VALUES (?, ?, ?)`,
		len(rows), func(i int) []any {
			return []any{w.runID, rows[i].group, rows[i].index}
		})
	if err != nil {
		return fmt.Errorf("failed to write groups: %w", err)
	}
	return nil
}

// WriteResults stores similarity rows. Scores of rows that are not OK are
// stored as NULL.
func (w *Writer) WriteResults(results []similarity.Result) error {
	err := w.insertAll(`
		INSERT INTO SimilarityTable (
			RunId, Index1, Index2, Peptide1, Peptide2, Mass1, Mass2, IRT1, IRT2,
			Score, Status, Reason, SameSequence
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, len(results), func(i int) []any {
		r := results[i]
		var score any
		if r.Status == similarity.StatusOK {
			score = r.Score
		}
		return []any{
			w.runID, r.Index1, r.Index2, r.Name1, r.Name2, r.Mass1, r.Mass2, r.IRT1, r.IRT2,
			score, r.Status.String(), r.Reason, r.SameSequence,
		}
	})
	if err != nil {
		return fmt.Errorf("failed to write similarity results: %w", err)
	}
	return nil
}

// encodePeaksFloat64 encodes peak data as little-endian float64 blob
func encodePeaksFloat64(peaks core.PeakList, useMZ bool) []byte {
	buf := make([]byte, len(peaks)*8)
	for i, peak := range peaks {
		value := peak.Intensity
		if useMZ {
			value = peak.MZ
		}
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(value))
	}
	return buf
}

// decodeFloat64s is the inverse of encodePeaksFloat64.
func decodeFloat64s(blob []byte) ([]float64, error) {
	if len(blob)%8 != 0 {
		return nil, fmt.Errorf("blob length %d is not a multiple of 8", len(blob))
	}
	out := make([]float64, len(blob)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(blob[i*8:]))
	}
	return out, nil
}

// Close closes the database connection
func (w *Writer) Close() error {
	if err := w.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
