package cmd

import (
	"encoding/csv"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/PepTwins/pkg/config"
	"github.com/ChrisMcGann/PepTwins/pkg/core"
	"github.com/ChrisMcGann/PepTwins/pkg/grouping"
	"github.com/ChrisMcGann/PepTwins/pkg/similarity"
	"github.com/ChrisMcGann/PepTwins/pkg/tolerance"
	"github.com/ChrisMcGann/PepTwins/pkg/writer/sqlite"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Score the spectral similarity of every candidate pair",
	Long: `Find candidate pairs (or consistent groups), align their fragment spectra
and compute the normalized spectral contrast angle of every pair.

Examples:
  # Score candidate pairs with 4 workers
  peptwins analyze --in library.msp --out twins.csv --workers 4

  # Score all pairs inside consistent groups and keep the run in a database
  peptwins analyze --in library.msp --out twins.csv --method consistent --db twins.db

  # Only b and y ions, top 20 peaks
  peptwins analyze --in library.sptxt --out twins.csv --ion-types b,y --top-n 20`,
	RunE: runAnalyze,
}

func init() {
	addLibraryFlags(analyzeCmd)
	addScoringFlags(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	mass, err := cfg.MassTolerance()
	if err != nil {
		return err
	}
	lib, err := loadLibrary(cfg, log)
	if err != nil {
		return err
	}
	printTolerances(cfg, mass)
	fmt.Printf("Method: %s\n", cfg.Grouping.Method)

	pairs, groups, err := candidates(cfg, lib, mass)
	if err != nil {
		return err
	}
	fmt.Printf("Candidate pairs: %d\n", len(pairs))

	align := cfg.AlignTolerance()
	weights := cfg.Weights()
	results, err := similarity.ProcessSpectraPairs(cmd.Context(), pairs, lib, lib, similarity.BatchOptions{
		Align:   &align,
		Weights: &weights,
		Workers: cfg.Workers,
		Logger:  log,
	})
	if err != nil {
		return err
	}

	if err := createCSV(outputFile, func(w *csv.Writer) error { return writeResultsCSV(w, results) }); err != nil {
		return err
	}

	if databaseFile != "" {
		err := withStore(cfg, lib, func(w *sqlite.Writer) error {
			if err := w.WritePairs(pairs); err != nil {
				return err
			}
			if err := w.WriteGroups(groups); err != nil {
				return err
			}
			return w.WriteResults(results)
		})
		if err != nil {
			return err
		}
	}

	printResultSummary(results, cfg.Scoring.TwinThreshold)
	fmt.Printf("Output: %s\n", outputFile)
	return nil
}

// candidates returns the pairs to score. With the consistent method it also
// returns the groups the pairs were drawn from.
func candidates(cfg config.Config, lib *core.Library, mass tolerance.Spec) ([]grouping.CandidatePair, []grouping.Group, error) {
	if cfg.Grouping.Method == config.MethodConsistent {
		groups, err := grouping.ConsistentGroups(lib.Records(), mass, cfg.Grouping.IRTTolerance)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to group peptides: %w", err)
		}
		fmt.Printf("Groups: %d\n", len(groups))
		return grouping.GroupPairs(groups), groups, nil
	}

	rows, err := grouping.ProcessPeptideCombinations(lib.Records(), mass, cfg.Grouping.IRTTolerance)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find pairs: %w", err)
	}
	return grouping.Pairs(rows), nil, nil
}

func printResultSummary(results []similarity.Result, threshold float64) {
	var scored, undefined, failed, twins int
	for _, r := range results {
		switch r.Status {
		case similarity.StatusOK:
			scored++
			if r.Score > threshold && !r.SameSequence {
				twins++
			}
		case similarity.StatusUndefined:
			undefined++
		case similarity.StatusFailed:
			failed++
		}
	}

	fmt.Printf("\nAnalysis complete!\n")
	fmt.Printf("Scored: %d pairs\n", scored)
	if undefined > 0 {
		fmt.Printf("Undefined: %d pairs (no shared peaks or empty spectra)\n", undefined)
	}
	if failed > 0 {
		fmt.Printf("Failed: %d pairs\n", failed)
	}
	fmt.Printf("Twins above %g: %d\n", threshold, twins)
}
