package core

import (
	"fmt"
	"math"
)

// PeptideRecord is one row of the peptide table: a precursor m/z and an
// indexed retention time, tagged with its position in the loaded table.
type PeptideRecord struct {
	Index int     // provenance index
	Name  string  // "SEQUENCE/CHARGE"
	Mass  float64 // precursor m/z
	IRT   float64
}

// ValidateRecords checks a record table before grouping. Provenance indices
// must be unique and non-negative; masses finite and positive; iRT finite.
func ValidateRecords(records []PeptideRecord) error {
	if len(records) == 0 {
		return &InputError{Field: "records", Message: "peptide table is empty"}
	}
	seen := make(map[int]struct{}, len(records))
	for i, r := range records {
		if r.Index < 0 {
			return &InputError{Field: "records", Message: fmt.Sprintf("row %d has negative index %d", i, r.Index)}
		}
		if _, dup := seen[r.Index]; dup {
			return &InputError{Field: "records", Message: fmt.Sprintf("duplicate index %d", r.Index)}
		}
		seen[r.Index] = struct{}{}
		if math.IsNaN(r.Mass) || math.IsInf(r.Mass, 0) || r.Mass <= 0 {
			return &InputError{Field: "mass", Message: fmt.Sprintf("row %d (%s) has invalid mass %v", i, r.Name, r.Mass)}
		}
		if math.IsNaN(r.IRT) || math.IsInf(r.IRT, 0) {
			return &InputError{Field: "iRT", Message: fmt.Sprintf("row %d (%s) has invalid iRT %v", i, r.Name, r.IRT)}
		}
	}
	return nil
}

// Library holds the records of one analysis run and the peak list of every
// record, addressed by provenance index. It is read-only once built.
type Library struct {
	records []PeptideRecord
	byIndex map[int]int
	peaks   map[int]PeakList
}

// NewLibrary creates an empty library.
func NewLibrary() *Library {
	return &Library{
		byIndex: make(map[int]int),
		peaks:   make(map[int]PeakList),
	}
}

// Add appends a spectrum and returns the provenance index assigned to it.
func (l *Library) Add(spec *Spectrum) int {
	idx := len(l.records)
	irt := 0.0
	if spec.RetentionTime != nil {
		irt = *spec.RetentionTime
	}
	l.records = append(l.records, PeptideRecord{
		Index: idx,
		Name:  spec.Name(),
		Mass:  spec.PrecursorMZ,
		IRT:   irt,
	})
	l.byIndex[idx] = idx
	l.peaks[idx] = PeakList(spec.Peaks)
	return idx
}

// AddRecord registers a record with an optional peak list. A nil peak list
// leaves the record without a spectrum.
func (l *Library) AddRecord(rec PeptideRecord, peaks PeakList) {
	l.byIndex[rec.Index] = len(l.records)
	l.records = append(l.records, rec)
	if peaks != nil {
		l.peaks[rec.Index] = peaks
	}
}

// Records returns the record table in load order.
func (l *Library) Records() []PeptideRecord {
	return l.records
}

// Len returns the number of records.
func (l *Library) Len() int {
	return len(l.records)
}

// Record returns the record with the given provenance index.
func (l *Library) Record(index int) (PeptideRecord, bool) {
	pos, ok := l.byIndex[index]
	if !ok {
		return PeptideRecord{}, false
	}
	return l.records[pos], true
}

// Peaks returns the peak list of the given provenance index.
func (l *Library) Peaks(index int) (PeakList, bool) {
	pl, ok := l.peaks[index]
	return pl, ok
}
