package cmd

import (
	"encoding/csv"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/PepTwins/pkg/config"
	"github.com/ChrisMcGann/PepTwins/pkg/core"
	"github.com/ChrisMcGann/PepTwins/pkg/grouping"
	"github.com/ChrisMcGann/PepTwins/pkg/writer/sqlite"
)

var pairsCmd = &cobra.Command{
	Use:   "pairs",
	Short: "List candidate pairs close in precursor m/z and iRT",
	Long: `List every pair of peptides whose precursor m/z and iRT are both within
tolerance of each other.

Examples:
  # 10 ppm and 5 iRT units
  peptwins pairs --in library.msp --out pairs.csv

  # Absolute mass tolerance, stored in a database as well
  peptwins pairs --in library.msp --out pairs.csv --mass-tol 0.02 --mass-mode absolute --db twins.db`,
	RunE: runPairs,
}

func init() {
	addLibraryFlags(pairsCmd)
}

func runPairs(cmd *cobra.Command, args []string) error {
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

	rows, err := grouping.ProcessPeptideCombinations(lib.Records(), mass, cfg.Grouping.IRTTolerance)
	if err != nil {
		return fmt.Errorf("failed to find pairs: %w", err)
	}

	if err := createCSV(outputFile, func(w *csv.Writer) error { return writePairsCSV(w, rows) }); err != nil {
		return err
	}

	if databaseFile != "" {
		err := withStore(cfg, lib, func(w *sqlite.Writer) error {
			return w.WritePairs(grouping.Pairs(rows))
		})
		if err != nil {
			return err
		}
	}

	fmt.Printf("\nPairs: %d\n", len(rows))
	fmt.Printf("Output: %s\n", outputFile)
	return nil
}

// withStore opens --db, registers a run, stores the library and calls write.
func withStore(cfg config.Config, lib *core.Library, write func(w *sqlite.Writer) error) error {
	params, err := cfg.Marshal()
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}

	w, err := sqlite.NewWriter(databaseFile, inputFile, params)
	if err != nil {
		return fmt.Errorf("failed to create output database: %w", err)
	}
	defer w.Close()

	if err := w.WriteLibrary(lib); err != nil {
		return err
	}
	if err := write(w); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	fmt.Printf("Database: %s (run %s)\n", databaseFile, w.RunID())
	return nil
}
