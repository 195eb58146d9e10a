package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/PepTwins/pkg/similarity"
	"github.com/ChrisMcGann/PepTwins/pkg/writer/sqlite"
)

var (
	resultsFile string
	runID       string
	sequence    string
	charge      int
	threshold   float64
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "List the twins of one peptide in stored results",
	Long: `Read the results of an analyze run (CSV or SQLite database) and list the
peptides whose spectra score above the threshold against the given peptide.

Examples:
  peptwins check --results twins.csv --sequence PEPTIDEK --charge 2
  peptwins check --results twins.db --sequence PEPTIDEK --charge 2 --threshold 0.8`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVarP(&resultsFile, "results", "r", "", "Results file: CSV from analyze or a SQLite database (required)")
	checkCmd.Flags().StringVar(&runID, "run", "", "Run id in the database (default: latest run)")
	checkCmd.Flags().StringVarP(&sequence, "sequence", "s", "", "Peptide sequence (required)")
	checkCmd.Flags().IntVarP(&charge, "charge", "z", 0, "Precursor charge (required)")
	checkCmd.Flags().Float64Var(&threshold, "threshold", similarity.DefaultTwinThreshold, "Similarity above which two peptides are twins")

	checkCmd.MarkFlagRequired("results")
	checkCmd.MarkFlagRequired("sequence")
	checkCmd.MarkFlagRequired("charge")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	results, err := readResults(resultsFile)
	if err != nil {
		return err
	}

	seq := strings.ToUpper(strings.TrimSpace(sequence))
	twins := similarity.Colliding(results, seq, charge, cfg.Scoring.TwinThreshold)
	if len(twins) == 0 {
		fmt.Printf("%s/%d has no twins above %g\n", seq, charge, cfg.Scoring.TwinThreshold)
		return nil
	}

	fmt.Printf("%s/%d has %d twin(s) above %g:\n", seq, charge, len(twins), cfg.Scoring.TwinThreshold)
	for _, t := range twins {
		fmt.Printf("  %-30s %.4f\n", t.Name, t.Score)
	}
	return nil
}

// readResults loads result rows from a CSV file or, for .db/.sqlite files,
// from the requested run of a database.
func readResults(path string) ([]similarity.Result, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		id, results, err := sqlite.ReadResults(path, runID)
		if err != nil {
			return nil, fmt.Errorf("failed to read results: %w", err)
		}
		fmt.Printf("Run: %s\n", id)
		return results, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open results file: %w", err)
	}
	defer f.Close()

	results, err := readResultsCSV(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read results %s: %w", path, err)
	}
	return results, nil
}
