package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/ChrisMcGann/PepTwins/pkg/core"
	"github.com/ChrisMcGann/PepTwins/pkg/grouping"
	"github.com/ChrisMcGann/PepTwins/pkg/similarity"
)

// ErrNoRun is returned when the database holds no matching run.
var ErrNoRun = errors.New("no analysis run found")

// Run describes one stored analysis run.
type Run struct {
	ID           string
	CreationDate string
	Source       string
	Parameters   string
}

// Reader reads runs back from a database written by Writer.
type Reader struct {
	db *sql.DB
}

// OpenReader opens an existing database read-only.
func OpenReader(path string) (*Reader, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &Reader{db: db}, nil
}

// Runs lists the stored runs, oldest first.
func (r *Reader) Runs() ([]Run, error) {
	rows, err := r.db.Query(`SELECT RunId, CreationDate, Source, Parameters FROM RunTable ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.CreationDate, &run.Source, &run.Parameters); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ResolveRun returns runID if it exists, or the latest run when runID is empty.
func (r *Reader) ResolveRun(runID string) (string, error) {
	var id string
	var err error
	if runID == "" {
		err = r.db.QueryRow(`SELECT RunId FROM RunTable ORDER BY rowid DESC LIMIT 1`).Scan(&id)
	} else {
		err = r.db.QueryRow(`SELECT RunId FROM RunTable WHERE RunId = ?`, runID).Scan(&id)
	}
	if errors.Is(err, sql.ErrNoRows) {
		if runID == "" {
			return "", ErrNoRun
		}
		return "", fmt.Errorf("%w: %s", ErrNoRun, runID)
	}
	if err != nil {
		return "", fmt.Errorf("failed to query run: %w", err)
	}
	return id, nil
}

// Results returns the similarity rows of a run in insertion order.
func (r *Reader) Results(runID string) ([]similarity.Result, error) {
	rows, err := r.db.Query(`
		SELECT Index1, Index2, Peptide1, Peptide2, Mass1, Mass2, IRT1, IRT2,
			Score, Status, Reason, SameSequence
		FROM SimilarityTable WHERE RunId = ? ORDER BY rowid
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	var out []similarity.Result
	for rows.Next() {
		var (
			res    similarity.Result
			score  sql.NullFloat64
			status string
		)
		err := rows.Scan(&res.Index1, &res.Index2, &res.Name1, &res.Name2, &res.Mass1, &res.Mass2,
			&res.IRT1, &res.IRT2, &score, &status, &res.Reason, &res.SameSequence)
		if err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		if res.Status, err = similarity.ParseStatus(status); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		res.Score = score.Float64
		out = append(out, res)
	}
	return out, rows.Err()
}

// Pairs returns the candidate pairs of a run.
func (r *Reader) Pairs(runID string) ([]grouping.CandidatePair, error) {
	rows, err := r.db.Query(`SELECT Index1, Index2 FROM PairTable WHERE RunId = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pairs: %w", err)
	}
	defer rows.Close()

	var out []grouping.CandidatePair
	for rows.Next() {
		var p grouping.CandidatePair
		if err := rows.Scan(&p.I, &p.J); err != nil {
			return nil, fmt.Errorf("failed to scan pair: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Library rebuilds the records and peak lists of a run.
func (r *Reader) Library(runID string) (*core.Library, error) {
	rows, err := r.db.Query(`
		SELECT PeptideIndex, Name, PrecursorMZ, IRT, blobMass, blobIntensity
		FROM PeptideTable WHERE RunId = ? ORDER BY rowid
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query peptides: %w", err)
	}
	defer rows.Close()

	lib := core.NewLibrary()
	for rows.Next() {
		var (
			rec             core.PeptideRecord
			mzBlob, intBlob []byte
		)
		if err := rows.Scan(&rec.Index, &rec.Name, &rec.Mass, &rec.IRT, &mzBlob, &intBlob); err != nil {
			return nil, fmt.Errorf("failed to scan peptide: %w", err)
		}

		var peaks core.PeakList
		if mzBlob != nil {
			mzs, err := decodeFloat64s(mzBlob)
			if err != nil {
				return nil, fmt.Errorf("peptide %d: %w", rec.Index, err)
			}
			intensities, err := decodeFloat64s(intBlob)
			if err != nil {
				return nil, fmt.Errorf("peptide %d: %w", rec.Index, err)
			}
			if peaks, err = core.NewPeakList(mzs, intensities); err != nil {
				return nil, fmt.Errorf("peptide %d: %w", rec.Index, err)
			}
		}
		lib.AddRecord(rec, peaks)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return lib, nil
}

// Close closes the database connection
func (r *Reader) Close() error {
	return r.db.Close()
}

// ReadResults opens path and returns the similarity rows of runID, or of the
// latest run when runID is empty, together with the resolved run id.
func ReadResults(path, runID string) (string, []similarity.Result, error) {
	r, err := OpenReader(path)
	if err != nil {
		return "", nil, err
	}
	defer r.Close()

	id, err := r.ResolveRun(runID)
	if err != nil {
		return "", nil, err
	}
	results, err := r.Results(id)
	if err != nil {
		return "", nil, err
	}
	return id, results, nil
}
