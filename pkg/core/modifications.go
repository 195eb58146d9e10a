package core

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ModDatabase stores modification definitions keyed by "UNIMOD:n" accession
// or by common name.
type ModDatabase struct {
	mods map[string]float64 // key -> mass shift
}

// NewModDatabase creates an empty modification database
func NewModDatabase() *ModDatabase {
	return &ModDatabase{
		mods: make(map[string]float64),
	}
}

// LoadFromCSV loads modifications from a CSV file (format: mod,massshift[,aa])
func (db *ModDatabase) LoadFromCSV(r io.Reader) error {
	scanner := bufio.NewScanner(r)

	// header
	scanner.Scan()

	lineNum := 1
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Split(line, ",")
		if len(parts) < 2 {
			return fmt.Errorf("line %d: invalid format, expected at least 2 comma-separated fields", lineNum)
		}

		modName := strings.TrimSpace(parts[0])
		massStr := strings.TrimSpace(parts[1])

		mass, err := strconv.ParseFloat(massStr, 64)
		if err != nil {
			return fmt.Errorf("line %d: invalid mass value '%s': %w", lineNum, massStr, err)
		}

		db.mods[modName] = mass
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading CSV: %w", err)
	}

	return nil
}

// GetMass returns the mass shift for a modification key
func (db *ModDatabase) GetMass(name string) (float64, bool) {
	mass, ok := db.mods[name]
	return mass, ok
}

// Add adds or updates a modification
func (db *ModDatabase) Add(name string, mass float64) {
	db.mods[name] = mass
}

// ParseModifiedSequence splits a ProForma-style sequence like
// "[UNIMOD:737]-PEPC[UNIMOD:4]K" into the bare residues and a modification
// list. Tags may hold an accession, a name or a signed mass.
func (db *ModDatabase) ParseModifiedSequence(modified string) (string, []Modification, error) {
	var (
		bare strings.Builder
		mods []Modification
	)

	pos := 0
	for i := 0; i < len(modified); {
		c := modified[i]
		switch {
		case c == '[':
			end := strings.IndexByte(modified[i:], ']')
			if end < 0 {
				return "", nil, fmt.Errorf("unterminated modification tag in '%s'", modified)
			}
			tag := modified[i+1 : i+end]
			mass, err := db.resolve(tag)
			if err != nil {
				return "", nil, err
			}
			i += end + 1

			position := pos - 1
			if i < len(modified) && modified[i] == '-' {
				// N-terminal tag: "[X]-SEQ"
				position = -1
				i++
			}
			mods = append(mods, Modification{Mass: mass, Position: position, Name: tag})
		case c == '-':
			i++
		case c >= 'A' && c <= 'Z':
			bare.WriteByte(c)
			pos++
			i++
		default:
			return "", nil, fmt.Errorf("unexpected character '%c' in sequence '%s'", c, modified)
		}
	}

	return bare.String(), mods, nil
}

func (db *ModDatabase) resolve(tag string) (float64, error) {
	if tag == "" {
		return 0, nil
	}
	if mass, ok := db.GetMass(tag); ok {
		return mass, nil
	}
	mass, err := strconv.ParseFloat(tag, 64)
	if err != nil {
		return 0, fmt.Errorf("unknown modification '%s'", tag)
	}
	return mass, nil
}

// DefaultModDatabase returns a ModDatabase pre-loaded with the UNIMOD
// accessions supported by common prediction models.
func DefaultModDatabase() *ModDatabase {
	db := NewModDatabase()

	for acc, mass := range map[int]float64{
		1:    42.010565,  // Acetyl
		2:    -0.984016,  // Amidated
		3:    226.077598, // Biotin
		4:    57.021464,  // Carbamidomethyl
		5:    43.005814,  // Carbamyl
		6:    58.005479,  // Carboxymethyl
		7:    0.984016,   // Deamidated
		21:   79.966331,  // Phospho
		23:   -18.010565, // Dehydrated
		24:   71.037114,  // Propionamide
		28:   -17.026549, // Gln->pyro-Glu
		34:   14.01565,   // Methyl
		35:   15.994915,  // Oxidation
		36:   28.0313,    // Dimethyl
		37:   42.04695,   // Trimethyl
		40:   79.956815,  // Sulfo
		43:   203.079373, // HexNAc
		58:   56.026215,  // Propionyl
		64:   100.016044, // Succinyl
		121:  114.042927, // GG
		122:  27.994915,  // Formyl
		214:  144.102063, // iTRAQ4plex
		259:  8.014199,   // Label:13C(6)15N(2)
		267:  10.008269,  // Label:13C(6)15N(4)
		354:  44.985078,  // Nitro
		730:  304.205360, // iTRAQ8plex
		737:  229.162932, // TMT6plex
		747:  86.000394,  // Malonyl
		1289: 70.041865,  // Butyryl
		1363: 68.026215,  // Crotonyl
		1848: 114.031694, // Glutaryl
		2016: 304.207146, // TMTpro
	} {
		db.Add(fmt.Sprintf("UNIMOD:%d", acc), mass)
	}

	db.Add("Acetyl", 42.010565)
	db.Add("Carbamidomethyl", 57.021464)
	db.Add("Oxidation", 15.994915)
	db.Add("Phospho", 79.966331)
	db.Add("Deamidated", 0.984016)
	db.Add("TMT6plex", 229.162932)
	db.Add("TMTpro", 304.207146)

	return db
}
