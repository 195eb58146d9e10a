package sptxt

import (
	"strings"
	"testing"
)

const library = `### SpectraST library
### ===
Name: n[43]AAC[160]LVGELLR/3
LibID: 0
MW: 1330.69
PrecursorMZ: 443.9000
Status: Normal
Comment: CollisionEnergy=30 RetentionTime=1820.5,1800.1,1840.2 iRT=44.2 Parent=443.900
NumPeaks: 3
300.1000	2000.0	y3/0.01,b2/0.3	2/2 0.0
175.1190	10000.0	y1/0.00	2/2 0.0
401.2000	500.0	?	1/2 0.0

Name: PEPTIDEK/2
PrecursorMZ: 465.7382
Comment: RetentionTime=600.0
NumPeaks: 1
147.11	100.0	y1/0.0
`

func TestReader(t *testing.T) {
	r := NewReader(strings.NewReader(library))

	if !r.Next() {
		t.Fatalf("Next() = false, err = %v", r.Err())
	}
	spec := r.Spectrum()
	if spec.Sequence != "n[43]AAC[160]LVGELLR" || spec.Charge != 3 {
		t.Errorf("got %s", spec.Name())
	}
	if spec.PrecursorMZ != 443.9 {
		t.Errorf("PrecursorMZ = %v, want 443.9", spec.PrecursorMZ)
	}
	if spec.RetentionTime == nil || *spec.RetentionTime != 44.2 {
		t.Errorf("RetentionTime = %v, want iRT 44.2", spec.RetentionTime)
	}
	if len(spec.Peaks) != 3 || !spec.ArePeaksSorted() {
		t.Fatalf("Peaks = %v, want 3 sorted", spec.Peaks)
	}
	if spec.Peaks[1].Annotation != "y3" {
		t.Errorf("annotation = %q, want y3", spec.Peaks[1].Annotation)
	}

	if len(spec.Modifications) != 2 {
		t.Fatalf("Modifications = %+v, want 2", spec.Modifications)
	}
	nterm, cys := spec.Modifications[0], spec.Modifications[1]
	if nterm.Position != -1 || nterm.Mass != 42 {
		t.Errorf("N-term mod = %+v, want +42 at -1", nterm)
	}
	if cys.Position != 2 || cys.Mass != 57 {
		t.Errorf("cysteine mod = %+v, want +57 at 2", cys)
	}

	if !r.Next() {
		t.Fatalf("second Next() = false, err = %v", r.Err())
	}
	second := r.Spectrum()
	if second.RetentionTime == nil || *second.RetentionTime != 600 {
		t.Errorf("RetentionTime = %v, want 600", second.RetentionTime)
	}

	if r.Next() {
		t.Error("expected end of library")
	}
	if err := r.Err(); err != nil {
		t.Errorf("Err() = %v", err)
	}
}

func TestReaderBadName(t *testing.T) {
	r := NewReader(strings.NewReader("Name: PEPTIDEK\nNumPeaks: 0\n"))
	if r.Next() {
		t.Fatal("Next() = true for malformed name")
	}
	if r.Err() == nil {
		t.Error("expected an error")
	}
}
