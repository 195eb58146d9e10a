package grouping

import (
	"fmt"

	"github.com/ChrisMcGann/PepTwins/pkg/core"
	"github.com/ChrisMcGann/PepTwins/pkg/tolerance"
)

// PairRow is a candidate pair with the name, mass and iRT of both members.
type PairRow struct {
	CandidatePair
	Peptide1, Peptide2 string
	Mass1, Mass2       float64
	IRT1, IRT2         float64
}

// ProcessPeptideCombinations validates the record table and tolerances, finds
// all candidate pairs and attaches display columns to each one.
func ProcessPeptideCombinations(records []core.PeptideRecord, massTol tolerance.Spec, irtTol float64) ([]PairRow, error) {
	if err := validateInputs(records, massTol, irtTol); err != nil {
		return nil, err
	}

	byIndex := indexRecords(records)
	pairs := FindPairs(records, massTol, irtTol)

	rows := make([]PairRow, 0, len(pairs))
	for _, p := range pairs {
		a, b := byIndex[p.I], byIndex[p.J]
		rows = append(rows, PairRow{
			CandidatePair: p,
			Peptide1:      a.Name,
			Peptide2:      b.Name,
			Mass1:         a.Mass,
			Mass2:         b.Mass,
			IRT1:          a.IRT,
			IRT2:          b.IRT,
		})
	}
	return rows, nil
}

// Pairs strips the display columns.
func Pairs(rows []PairRow) []CandidatePair {
	out := make([]CandidatePair, len(rows))
	for i, r := range rows {
		out[i] = r.CandidatePair
	}
	return out
}

func validateInputs(records []core.PeptideRecord, massTol tolerance.Spec, irtTol float64) error {
	if err := core.ValidateRecords(records); err != nil {
		return err
	}
	if err := massTol.Validate(); err != nil {
		return fmt.Errorf("mass tolerance: %w", err)
	}
	if err := tolerance.Abs(irtTol).Validate(); err != nil {
		return fmt.Errorf("iRT tolerance: %w", err)
	}
	return nil
}

func indexRecords(records []core.PeptideRecord) map[int]core.PeptideRecord {
	m := make(map[int]core.PeptideRecord, len(records))
	for _, r := range records {
		m[r.Index] = r
	}
	return m
}
