package core

import (
	"math"
	"testing"
)

func TestCalculatePeptideMass(t *testing.T) {
	tests := []struct {
		name          string
		sequence      string
		charge        int
		modifications []Modification
		wantMZ        float64
		tolerance     float64
	}{
		{
			name:      "simple peptide charge 1",
			sequence:  "AAA",
			charge:    1,
			wantMZ:    232.129,
			tolerance: 0.01,
		},
		{
			name:      "simple peptide charge 2",
			sequence:  "AAA",
			charge:    2,
			wantMZ:    116.568,
			tolerance: 0.01,
		},
		{
			name:     "peptide with modification",
			sequence: "PEPTIDE",
			charge:   2,
			modifications: []Modification{
				{Mass: 57.021464, Position: 0},
			},
			wantMZ:    429.2,
			tolerance: 1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculatePeptideMass(tt.sequence, tt.charge, tt.modifications)
			if math.Abs(got-tt.wantMZ) > tt.tolerance {
				t.Errorf("CalculatePeptideMass() = %.3f, want %.3f (within %.3f)", got, tt.wantMZ, tt.tolerance)
			}
		})
	}
}

func TestCalculateNeutralMass(t *testing.T) {
	got := CalculateNeutralMass("AAA", nil)
	if math.Abs(got-231.121) > 0.01 {
		t.Errorf("CalculateNeutralMass() = %.3f, want 231.121", got)
	}
}

func TestPrecursorMZ(t *testing.T) {
	db := DefaultModDatabase()

	tests := []struct {
		name     string
		sequence string
		charge   int
		want     float64
		wantErr  bool
	}{
		{"bare", "AAA", 1, CalculatePeptideMass("AAA", 1, nil), false},
		{"carbamidomethyl", "AC[UNIMOD:4]K", 2, CalculatePeptideMass("ACK", 2, []Modification{{Mass: 57.021464}}), false},
		{"n-term TMT", "[UNIMOD:737]-PEPK", 2, CalculatePeptideMass("PEPK", 2, []Modification{{Mass: 229.162932}}), false},
		{"mass tag", "M[+15.994915]K", 1, CalculatePeptideMass("MK", 1, []Modification{{Mass: 15.994915}}), false},
		{"unknown tag", "M[UNIMOD:99999]K", 1, 0, true},
		{"unterminated tag", "M[UNIMOD:35K", 1, 0, true},
		{"zero charge", "AAA", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PrecursorMZ(tt.sequence, tt.charge, db)
			if (err != nil) != tt.wantErr {
				t.Fatalf("PrecursorMZ() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("PrecursorMZ() = %.6f, want %.6f", got, tt.want)
			}
		})
	}
}

func TestParseModifiedSequencePositions(t *testing.T) {
	bare, mods, err := DefaultModDatabase().ParseModifiedSequence("[UNIMOD:1]-AM[UNIMOD:35]K")
	if err != nil {
		t.Fatalf("ParseModifiedSequence() error = %v", err)
	}
	if bare != "AMK" {
		t.Errorf("bare = %s, want AMK", bare)
	}
	if len(mods) != 2 {
		t.Fatalf("expected 2 modifications, got %d", len(mods))
	}
	if mods[0].Position != -1 || mods[1].Position != 1 {
		t.Errorf("positions = %d,%d, want -1,1", mods[0].Position, mods[1].Position)
	}
}

func TestRoundFloat(t *testing.T) {
	tests := []struct {
		name      string
		val       float64
		precision int
		want      float64
	}{
		{"round to 2 decimals", 3.14159, 2, 3.14},
		{"round to 4 decimals", 3.14159, 4, 3.1416},
		{"round to 0 decimals", 3.6, 0, 4.0},
		{"round negative", -3.14159, 2, -3.14},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RoundFloat(tt.val, tt.precision)
			if got != tt.want {
				t.Errorf("RoundFloat() = %v, want %v", got, tt.want)
			}
		})
	}
}
