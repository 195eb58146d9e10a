package similarity

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/ChrisMcGann/PepTwins/pkg/core"
	"github.com/ChrisMcGann/PepTwins/pkg/grouping"
	"github.com/ChrisMcGann/PepTwins/pkg/logger"
)

// SpectrumLookup returns the peak list stored under a provenance index.
type SpectrumLookup interface {
	Peaks(index int) (core.PeakList, bool)
}

// RecordLookup returns the peptide record stored under a provenance index.
type RecordLookup interface {
	Record(index int) (core.PeptideRecord, bool)
}

// Status classifies a result row.
type Status int

const (
	StatusOK Status = iota
	// StatusUndefined marks a degenerate score (see core.ErrUndefinedScore).
	StatusUndefined
	// StatusFailed marks a pair whose spectra could not be looked up.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusUndefined:
		return "undefined"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// ParseStatus is the inverse of Status.String.
func ParseStatus(s string) (Status, error) {
	switch s {
	case "ok":
		return StatusOK, nil
	case "undefined":
		return StatusUndefined, nil
	case "failed":
		return StatusFailed, nil
	default:
		return 0, fmt.Errorf("unknown status '%s'", s)
	}
}

// Result is the similarity of one candidate pair. Score is only meaningful
// when Status is StatusOK; otherwise Reason explains the failure.
type Result struct {
	Index1, Index2 int
	Score          float64
	Status         Status
	Reason         string

	Name1, Name2 string
	Mass1, Mass2 float64
	IRT1, IRT2   float64
	SameSequence bool
}

// BatchOptions configures ProcessSpectraPairs. Zero values select the
// defaults: 10 ppm alignment, DefaultWeights, one worker, no logging.
type BatchOptions struct {
	Align   *AlignTolerance
	Weights *Weights
	Workers int
	Logger  *logger.Logger
}

func (o BatchOptions) withDefaults() BatchOptions {
	if o.Align == nil {
		t := DefaultAlignTolerance
		o.Align = &t
	}
	if o.Weights == nil {
		w := DefaultWeights
		o.Weights = &w
	}
	if o.Workers < 1 {
		o.Workers = 1
	}
	o.Logger = logger.OrNop(o.Logger)
	return o
}

// ProcessSpectraPairs aligns and scores every pair, returning one Result per
// pair in input order. Missing spectra and degenerate scores are recorded on
// the affected row and do not stop the batch. With more than one worker,
// pairs are scored concurrently; the output is identical to a sequential
// run. Invalid options fail with an InputError before any pair is scored;
// otherwise the only error returned is the context's.
func ProcessSpectraPairs(ctx context.Context, pairs []grouping.CandidatePair, spectra SpectrumLookup, records RecordLookup, opts BatchOptions) ([]Result, error) {
	opts = opts.withDefaults()
	if err := opts.Align.Validate(); err != nil {
		return nil, err
	}
	if err := opts.Weights.Validate(); err != nil {
		return nil, err
	}
	results := make([]Result, len(pairs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, p := range pairs {
		if gctx.Err() != nil {
			break
		}
		i, p := i, p // per-iteration copies (pre-Go 1.22 loop semantics)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = scorePair(p, spectra, records, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to score pairs: %w", err)
	}
	// gctx is always done after Wait; the caller's context tells whether
	// the batch was cut short.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("failed to score pairs: %w", err)
	}

	var undefined, failed int
	for _, r := range results {
		switch r.Status {
		case StatusUndefined:
			undefined++
		case StatusFailed:
			failed++
		}
	}
	opts.Logger.Info("scored pairs", "pairs", len(results), "undefined", undefined, "failed", failed)
	return results, nil
}

func scorePair(p grouping.CandidatePair, spectra SpectrumLookup, records RecordLookup, opts BatchOptions) Result {
	res := Result{Index1: p.I, Index2: p.J}
	if records != nil {
		if r, ok := records.Record(p.I); ok {
			res.Name1, res.Mass1, res.IRT1 = r.Name, r.Mass, r.IRT
		}
		if r, ok := records.Record(p.J); ok {
			res.Name2, res.Mass2, res.IRT2 = r.Name, r.Mass, r.IRT
		}
		res.SameSequence = sameSequence(res.Name1, res.Name2)
	}

	x, ok := spectra.Peaks(p.I)
	if !ok {
		return failedResult(res, &core.LookupError{Index: p.I}, opts.Logger)
	}
	y, ok := spectra.Peaks(p.J)
	if !ok {
		return failedResult(res, &core.LookupError{Index: p.J}, opts.Logger)
	}

	score, err := Score(Align(x, y, *opts.Align), *opts.Weights)
	switch {
	case errors.Is(err, core.ErrUndefinedScore):
		res.Status = StatusUndefined
		res.Reason = err.Error()
		opts.Logger.Debug("undefined score", "index1", p.I, "index2", p.J, "reason", res.Reason)
	case err != nil:
		return failedResult(res, err, opts.Logger)
	default:
		res.Score = score
	}
	return res
}

func failedResult(res Result, err error, log *logger.Logger) Result {
	res.Status = StatusFailed
	res.Reason = err.Error()
	log.Warn("pair failed", "index1", res.Index1, "index2", res.Index2, "error", err)
	return res
}

func sameSequence(name1, name2 string) bool {
	s1, _, ok1 := core.SplitName(name1)
	s2, _, ok2 := core.SplitName(name2)
	if !ok1 || !ok2 {
		return false
	}
	return core.SameSequenceIL(s1, s2)
}
