package cmd

import (
	"encoding/csv"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/PepTwins/pkg/grouping"
	"github.com/ChrisMcGann/PepTwins/pkg/writer/sqlite"
)

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "Partition peptides into consistent m/z and iRT groups",
	Long: `Cluster peptides by precursor m/z, split each cluster by iRT and write a
non-redundant set of groups covering every peptide.

Example:
  peptwins groups --in library.msp --out groups.csv --irt-tol 2`,
	RunE: runGroups,
}

func init() {
	addLibraryFlags(groupsCmd)
}

func runGroups(cmd *cobra.Command, args []string) error {
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

	groups, err := grouping.ConsistentGroups(lib.Records(), mass, cfg.Grouping.IRTTolerance)
	if err != nil {
		return fmt.Errorf("failed to group peptides: %w", err)
	}

	if err := createCSV(outputFile, func(w *csv.Writer) error { return writeGroupsCSV(w, groups, lib) }); err != nil {
		return err
	}

	if databaseFile != "" {
		err := withStore(cfg, lib, func(w *sqlite.Writer) error {
			return w.WriteGroups(groups)
		})
		if err != nil {
			return err
		}
	}

	multi := 0
	for _, g := range groups {
		if len(g.Members) > 1 {
			multi++
		}
	}
	fmt.Printf("\nGroups: %d (%d with more than one peptide)\n", len(groups), multi)
	fmt.Printf("Output: %s\n", outputFile)
	return nil
}
