package msp

import (
	"math"
	"strings"
	"testing"

	"github.com/ChrisMcGann/PepTwins/pkg/core"
)

const msciLibrary = `Name: PEPTIDEK/2
MW: 465.738200
Collision_energy: 28.00
iRT: 35.500000
Num peaks: 3
147.11	1.000000
98.06	0.150000
276.16	0.400000

Name: AC[UNIMOD:4]DK/2
Collision_energy: 28.00
iRT: -4.250000
Num peaks: 1
120.50	0.500000
`

const nistLibrary = `Name: LGGNEQVTR/2
MW: 972.4894
Comment: Parent=487.2520 Collision_energy=35 iRT=12.4 Mods=0
Num peaks: 2
175.1190	10000	"y1/0.1ppm"
288.2030	5000	"y2^2/0.2ppm"
`

const matchmsLibrary = `COMPOUND_NAME: SDPYGIIR/2
CHARGE: 2+
NOMINAL_MASS: 460.7452
IRT: 55.1
COLLISION_ENERGY: 30
NUM PEAKS: 2
175.12 100
288.20 40

COMPOUND_NAME: SDPYGLIR/2
NOMINAL_MASS: 460.7452
IRT: 55.3
175.12 80
400.25 20
`

func readAll(t *testing.T, input string) []*core.Spectrum {
	t.Helper()
	r := NewReader(strings.NewReader(input), nil)
	var out []*core.Spectrum
	for r.Next() {
		out = append(out, r.Spectrum())
	}
	if err := r.Err(); err != nil {
		t.Fatalf("Err() = %v", err)
	}
	return out
}

func TestReaderMSCILayout(t *testing.T) {
	specs := readAll(t, msciLibrary)
	if len(specs) != 2 {
		t.Fatalf("read %d spectra, want 2", len(specs))
	}

	first := specs[0]
	if first.Sequence != "PEPTIDEK" || first.Charge != 2 {
		t.Errorf("got %s, want PEPTIDEK/2", first.Name())
	}
	if first.PrecursorMZ != 465.7382 {
		t.Errorf("PrecursorMZ = %v, want 465.7382", first.PrecursorMZ)
	}
	if first.RetentionTime == nil || *first.RetentionTime != 35.5 {
		t.Errorf("RetentionTime = %v, want 35.5", first.RetentionTime)
	}
	if first.CollisionEnergy == nil || *first.CollisionEnergy != 28 {
		t.Errorf("CollisionEnergy = %v, want 28", first.CollisionEnergy)
	}
	if len(first.Peaks) != 3 || !first.ArePeaksSorted() || first.Peaks[0].MZ != 98.06 {
		t.Errorf("Peaks = %v, want 3 sorted peaks starting at 98.06", first.Peaks)
	}

	// No MW: the precursor m/z is computed from the modified sequence.
	second := specs[1]
	if second.Sequence != "AC[UNIMOD:4]DK" {
		t.Errorf("Sequence = %s", second.Sequence)
	}
	if len(second.Modifications) != 1 || second.Modifications[0].Position != 1 {
		t.Errorf("Modifications = %+v, want one on position 1", second.Modifications)
	}
	want := core.CalculatePeptideMass("ACDK", 2, second.Modifications)
	if math.Abs(second.PrecursorMZ-want) > 1e-9 {
		t.Errorf("PrecursorMZ = %v, want %v", second.PrecursorMZ, want)
	}
	if second.RetentionTime == nil || *second.RetentionTime != -4.25 {
		t.Errorf("RetentionTime = %v, want -4.25", second.RetentionTime)
	}
}

func TestReaderNISTComment(t *testing.T) {
	specs := readAll(t, nistLibrary)
	if len(specs) != 1 {
		t.Fatalf("read %d spectra, want 1", len(specs))
	}
	spec := specs[0]
	if spec.PrecursorMZ != 487.2520 {
		t.Errorf("PrecursorMZ = %v, want Parent value 487.2520", spec.PrecursorMZ)
	}
	if spec.RetentionTime == nil || *spec.RetentionTime != 12.4 {
		t.Errorf("RetentionTime = %v, want 12.4", spec.RetentionTime)
	}
	if spec.Peaks[0].Annotation != "y1" || spec.Peaks[1].Annotation != "y2^2" {
		t.Errorf("annotations = %q, %q", spec.Peaks[0].Annotation, spec.Peaks[1].Annotation)
	}
}

func TestReaderMatchmsLayout(t *testing.T) {
	specs := readAll(t, matchmsLibrary)
	if len(specs) != 2 {
		t.Fatalf("read %d spectra, want 2", len(specs))
	}
	for i, want := range []string{"SDPYGIIR/2", "SDPYGLIR/2"} {
		if specs[i].Name() != want {
			t.Errorf("spectrum %d = %s, want %s", i, specs[i].Name(), want)
		}
		if specs[i].PrecursorMZ != 460.7452 {
			t.Errorf("spectrum %d PrecursorMZ = %v", i, specs[i].PrecursorMZ)
		}
		if len(specs[i].Peaks) != 2 {
			t.Errorf("spectrum %d has %d peaks, want 2", i, len(specs[i].Peaks))
		}
	}
	if *specs[1].RetentionTime != 55.3 {
		t.Errorf("RetentionTime = %v, want 55.3", *specs[1].RetentionTime)
	}
}

func TestReaderOpenEndedPeaksWithoutBlankLine(t *testing.T) {
	input := "Name: AAK/1\niRT: 1\n100.0 1\n200.0 2\nName: CCK/1\niRT: 2\n300.0 3\n"
	specs := readAll(t, input)
	if len(specs) != 2 {
		t.Fatalf("read %d spectra, want 2", len(specs))
	}
	if len(specs[0].Peaks) != 2 || len(specs[1].Peaks) != 1 {
		t.Errorf("peak counts = %d, %d, want 2, 1", len(specs[0].Peaks), len(specs[1].Peaks))
	}
	if specs[1].Name() != "CCK/1" {
		t.Errorf("second spectrum = %s, want CCK/1", specs[1].Name())
	}
}

func TestReaderErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"bad peak", "Name: AAK/1\nNum peaks: 1\nabc def\n"},
		{"bad num peaks", "Name: AAK/1\nNum peaks: many\n"},
		{"bad iRT", "Name: AAK/1\niRT: soon\n"},
		{"unknown modification", "Name: AX[Nope]K/2\niRT: 1\n"},
		{"missing name", "iRT: 3\nNum peaks: 1\n100 1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReader(strings.NewReader(tt.input), nil)
			for r.Next() {
			}
			if r.Err() == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestReaderEmpty(t *testing.T) {
	if specs := readAll(t, "\n\n"); len(specs) != 0 {
		t.Errorf("read %d spectra from empty input", len(specs))
	}
}
