// Package cmd provides CLI command implementations
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/PepTwins/pkg/config"
	"github.com/ChrisMcGann/PepTwins/pkg/core"
	"github.com/ChrisMcGann/PepTwins/pkg/logger"
	"github.com/ChrisMcGann/PepTwins/pkg/reader"
	"github.com/ChrisMcGann/PepTwins/pkg/similarity"
	"github.com/ChrisMcGann/PepTwins/pkg/tolerance"
)

var (
	// Global flags
	configFile string
	logMode    string

	// Library flags shared by pairs, groups and analyze
	inputFile    string
	inputFormat  string
	modsFile     string
	outputFile   string
	databaseFile string
	massTol      float64
	massMode     string
	irtTol       float64
	topN         int
	cutoff       float64
	ionTypes     string

	// Scoring flags
	method          string
	alignPPM        float64
	alignTol        float64
	mzWeight        float64
	intensityWeight float64
	workers         int
)

var rootCmd = &cobra.Command{
	Use:   "peptwins",
	Short: "PepTwins - find peptides with confusable spectra",
	Long: `PepTwins looks for "spectral twins" in peptide spectral libraries: peptides
whose precursor m/z and indexed retention time fall within tolerance of each
other and whose fragment spectra are highly similar.

Supported workflows:
- Candidate pairs by precursor m/z and iRT (k-d tree search)
- Consistent groups of mutually confusable peptides
- Spectral similarity of every candidate pair
- Checking a peptide against stored results`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML configuration file (flags override its values)")
	rootCmd.PersistentFlags().StringVar(&logMode, "log-mode", "", "Log mode: prod, debug (default: warnings only)")

	rootCmd.AddCommand(pairsCmd)
	rootCmd.AddCommand(groupsCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(checkCmd)
}

// addLibraryFlags registers the input, output and grouping flags.
func addLibraryFlags(c *cobra.Command) {
	c.Flags().StringVarP(&inputFile, "in", "i", "", "Input spectral library (required)")
	c.Flags().StringVarP(&inputFormat, "from", "f", "", "Input format: msp, sptxt (auto-detect if not specified)")
	c.Flags().StringVar(&modsFile, "mods", "", "CSV of extra modifications (mod,massshift)")
	c.Flags().StringVarP(&outputFile, "out", "o", "", "Output CSV file (required)")
	c.Flags().StringVar(&databaseFile, "db", "", "Also store the run in this SQLite database")
	c.Flags().Float64Var(&massTol, "mass-tol", 10, "Precursor m/z tolerance")
	c.Flags().StringVar(&massMode, "mass-mode", "ppm", "Mass tolerance mode: ppm or absolute")
	c.Flags().Float64Var(&irtTol, "irt-tol", 5, "iRT tolerance")
	c.Flags().IntVar(&topN, "top-n", 0, "Keep only top N most intense peaks (0 = no limit)")
	c.Flags().Float64Var(&cutoff, "cutoff", 0, "Relative intensity cutoff as a fraction of the base peak (0 = no cutoff)")
	c.Flags().StringVar(&ionTypes, "ion-types", "", "Comma-separated ion types to keep (e.g., 'b,y')")

	c.MarkFlagRequired("in")
	c.MarkFlagRequired("out")
}

// addScoringFlags registers the alignment and scoring flags.
func addScoringFlags(c *cobra.Command) {
	c.Flags().StringVar(&method, "method", config.MethodPairs, "Candidate selection: pairs or consistent")
	c.Flags().Float64Var(&alignPPM, "align-ppm", 10, "Peak alignment window in ppm")
	c.Flags().Float64Var(&alignTol, "align-tol", 0, "Absolute peak alignment window, used when wider than the ppm window")
	c.Flags().Float64Var(&mzWeight, "mz-weight", 0, "Exponent applied to peak m/z")
	c.Flags().Float64Var(&intensityWeight, "intensity-weight", 0.5, "Exponent applied to peak intensity")
	c.Flags().IntVarP(&workers, "workers", "j", 1, "Number of scoring workers")
	c.Flags().Float64Var(&threshold, "threshold", similarity.DefaultTwinThreshold, "Similarity above which two peptides are twins")
}

// loadConfig reads --config and applies every flag the user set.
func loadConfig(c *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return config.Config{}, err
	}

	flags := c.Flags()
	if flags.Changed("mass-tol") {
		cfg.Grouping.MassTolerance = massTol
	}
	if flags.Changed("mass-mode") {
		cfg.Grouping.MassMode = massMode
	}
	if flags.Changed("irt-tol") {
		cfg.Grouping.IRTTolerance = irtTol
	}
	if flags.Changed("method") {
		cfg.Grouping.Method = method
	}
	if flags.Changed("top-n") {
		cfg.Filter.TopN = topN
	}
	if flags.Changed("cutoff") {
		cfg.Filter.RelativeIntensity = cutoff
	}
	if flags.Changed("ion-types") {
		cfg.Filter.IonTypes = splitList(ionTypes)
	}
	if flags.Changed("align-ppm") {
		cfg.Alignment.PPM = alignPPM
	}
	if flags.Changed("align-tol") {
		cfg.Alignment.Tolerance = alignTol
	}
	if flags.Changed("mz-weight") {
		cfg.Scoring.MZWeight = mzWeight
	}
	if flags.Changed("intensity-weight") {
		cfg.Scoring.IntensityWeight = intensityWeight
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	}
	if flags.Changed("threshold") {
		cfg.Scoring.TwinThreshold = threshold
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func newLogger() (*logger.Logger, error) {
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return log, nil
}

// loadModDatabase returns the built-in modifications plus --mods.
func loadModDatabase() (*core.ModDatabase, error) {
	modDB := core.DefaultModDatabase()
	if modsFile == "" {
		return modDB, nil
	}
	f, err := os.Open(modsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open modifications file: %w", err)
	}
	defer f.Close()
	if err := modDB.LoadFromCSV(f); err != nil {
		return nil, fmt.Errorf("failed to load modifications file: %w", err)
	}
	return modDB, nil
}

// loadLibrary opens --in and loads every valid spectrum.
func loadLibrary(cfg config.Config, log *logger.Logger) (*core.Library, error) {
	if _, err := os.Stat(inputFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("input file does not exist: %s", inputFile)
	}

	format := inputFormat
	if format == "" {
		var err error
		if format, err = reader.DetectFormat(inputFile); err != nil {
			return nil, err
		}
	}

	modDB, err := loadModDatabase()
	if err != nil {
		return nil, err
	}

	inFile, err := os.Open(inputFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer inFile.Close()

	sr, err := reader.New(inFile, format, modDB)
	if err != nil {
		return nil, err
	}

	fmt.Printf("Reading %s (%s)...\n", inputFile, format)
	lib, stats, err := reader.LoadLibrary(sr, reader.LoadOptions{Filter: cfg.FilterConfig(), Logger: log})
	if err != nil {
		return nil, err
	}
	fmt.Printf("Loaded: %d spectra\n", stats.Loaded)
	if stats.Skipped > 0 {
		fmt.Printf("Skipped: %d spectra (validation errors)\n", stats.Skipped)
	}
	return lib, nil
}

func printTolerances(cfg config.Config, mass tolerance.Spec) {
	fmt.Printf("Mass tolerance: %s\n", mass)
	fmt.Printf("iRT tolerance: %g\n", cfg.Grouping.IRTTolerance)
}
