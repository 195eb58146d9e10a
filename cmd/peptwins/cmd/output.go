package cmd

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/ChrisMcGann/PepTwins/pkg/core"
	"github.com/ChrisMcGann/PepTwins/pkg/grouping"
	"github.com/ChrisMcGann/PepTwins/pkg/similarity"
)

var (
	pairHeader   = []string{"index1", "index2", "peptide 1", "peptide 2", "m/z 1", "m/z 2", "iRT 1", "iRT 2"}
	resultHeader = append(append([]string{}, pairHeader...), "similarity_score", "status", "reason", "same_sequence")
	groupHeader  = []string{"group_id", "index", "peptide", "m/z", "iRT"}
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// createCSV creates path and passes a CSV writer to write.
func createCSV(path string, write func(w *csv.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := write(w); err != nil {
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

func writePairsCSV(w *csv.Writer, rows []grouping.PairRow) error {
	if err := w.Write(pairHeader); err != nil {
		return err
	}
	for _, r := range rows {
		err := w.Write([]string{
			strconv.Itoa(r.I), strconv.Itoa(r.J), r.Peptide1, r.Peptide2,
			formatFloat(r.Mass1), formatFloat(r.Mass2), formatFloat(r.IRT1), formatFloat(r.IRT2),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func writeGroupsCSV(w *csv.Writer, groups []grouping.Group, lib *core.Library) error {
	if err := w.Write(groupHeader); err != nil {
		return err
	}
	for _, g := range groups {
		for _, m := range g.Members {
			rec, _ := lib.Record(m)
			err := w.Write([]string{
				strconv.Itoa(g.ID), strconv.Itoa(m), rec.Name, formatFloat(rec.Mass), formatFloat(rec.IRT),
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// writeResultsCSV writes one row per result. The score column is empty for
// rows that were not scored.
func writeResultsCSV(w *csv.Writer, results []similarity.Result) error {
	if err := w.Write(resultHeader); err != nil {
		return err
	}
	for _, r := range results {
		score := ""
		if r.Status == similarity.StatusOK {
			score = formatFloat(r.Score)
		}
		err := w.Write([]string{
			strconv.Itoa(r.Index1), strconv.Itoa(r.Index2), r.Name1, r.Name2,
			formatFloat(r.Mass1), formatFloat(r.Mass2), formatFloat(r.IRT1), formatFloat(r.IRT2),
			score, r.Status.String(), r.Reason, strconv.FormatBool(r.SameSequence),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// readResultsCSV parses a file written by writeResultsCSV.
func readResultsCSV(r io.Reader) ([]similarity.Result, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(resultHeader)

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	for i, col := range resultHeader {
		if header[i] != col {
			return nil, fmt.Errorf("unexpected column %d '%s', want '%s'", i+1, header[i], col)
		}
	}

	var out []similarity.Result
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		res, err := parseResultRow(rec)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, res)
	}
	return out, nil
}

func parseResultRow(rec []string) (similarity.Result, error) {
	var (
		res similarity.Result
		err error
	)
	ints := []struct {
		dst *int
		s   string
	}{{&res.Index1, rec[0]}, {&res.Index2, rec[1]}}
	for _, f := range ints {
		if *f.dst, err = strconv.Atoi(f.s); err != nil {
			return res, fmt.Errorf("invalid index '%s': %w", f.s, err)
		}
	}
	res.Name1, res.Name2 = rec[2], rec[3]

	floats := []struct {
		dst *float64
		s   string
	}{{&res.Mass1, rec[4]}, {&res.Mass2, rec[5]}, {&res.IRT1, rec[6]}, {&res.IRT2, rec[7]}}
	for _, f := range floats {
		if *f.dst, err = strconv.ParseFloat(f.s, 64); err != nil {
			return res, fmt.Errorf("invalid number '%s': %w", f.s, err)
		}
	}

	if res.Status, err = similarity.ParseStatus(rec[9]); err != nil {
		return res, err
	}
	if rec[8] != "" {
		if res.Score, err = strconv.ParseFloat(rec[8], 64); err != nil {
			return res, fmt.Errorf("invalid score '%s': %w", rec[8], err)
		}
	}
	res.Reason = rec[10]
	if res.SameSequence, err = strconv.ParseBool(rec[11]); err != nil {
		return res, fmt.Errorf("invalid same_sequence '%s': %w", rec[11], err)
	}
	return res, nil
}
