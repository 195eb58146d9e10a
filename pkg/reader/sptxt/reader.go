// Package sptxt provides a streaming reader for SpectraST (SPTXT) libraries.
package sptxt

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/PepTwins/pkg/core"
)

// Reader provides streaming access to SPTXT format files
type Reader struct {
	scanner     *bufio.Scanner
	lineNum     int
	currentSpec *core.Spectrum
	err         error
}

// NewReader creates a new SPTXT reader
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &Reader{scanner: scanner}
}

// Next advances to the next spectrum. Returns false when no more spectra or error.
func (r *Reader) Next() bool {
	r.currentSpec = nil
	if r.err != nil {
		return false
	}

	spec, err := r.readSpectrum()
	if err != nil {
		if err != io.EOF {
			r.err = err
		}
		return false
	}

	r.currentSpec = spec
	return true
}

// Spectrum returns the current spectrum
func (r *Reader) Spectrum() *core.Spectrum {
	return r.currentSpec
}

// Err returns any error encountered during reading
func (r *Reader) Err() error {
	return r.err
}

// readSpectrum reads a single spectrum entry from the SPTXT file
func (r *Reader) readSpectrum() (*core.Spectrum, error) {
	spec := &core.Spectrum{
		SourceFormat: "sptxt",
		Peaks:        []core.Peak{},
	}

	numPeaks := -1
	peaksRead := 0

	for r.scanner.Scan() {
		r.lineNum++
		line := strings.TrimSpace(r.scanner.Text())

		if line == "" || strings.HasPrefix(line, "###") {
			continue
		}

		if numPeaks < 0 {
			key, value, ok := strings.Cut(line, ": ")
			if !ok {
				continue
			}
			switch key {
			case "Name":
				if err := parseName(spec, value); err != nil {
					return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
				}
			case "PrecursorMZ":
				if mz, err := strconv.ParseFloat(value, 64); err == nil {
					spec.PrecursorMZ = mz
				}
			case "Comment":
				parseComment(spec, value)
			case "NumPeaks":
				n, err := strconv.Atoi(value)
				if err != nil {
					return nil, fmt.Errorf("line %d: invalid num peaks: %w", r.lineNum, err)
				}
				numPeaks = n
				if n == 0 {
					return spec, nil
				}
			}
			continue
		}

		peak, err := parsePeak(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
		}
		spec.Peaks = append(spec.Peaks, peak)
		peaksRead++
		if peaksRead >= numPeaks {
			spec.SortPeaks()
			return spec, nil
		}
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}

	// Truncated final entry.
	if spec.Sequence != "" {
		spec.SortPeaks()
		return spec, nil
	}

	return nil, io.EOF
}

// parseName extracts the sequence, charge and modifications from a name like
// "n[43]AAC[160]LVGELLR/3". The sequence keeps the SpectraST notation.
func parseName(spec *core.Spectrum, name string) error {
	seq, charge, ok := core.SplitName(name)
	if !ok {
		return fmt.Errorf("invalid name format '%s', expected 'SEQUENCE/CHARGE'", name)
	}

	mods, err := parseInlineModifications(seq)
	if err != nil {
		return fmt.Errorf("failed to parse modifications from sequence: %w", err)
	}

	spec.Sequence = seq
	spec.Charge = charge
	spec.Modifications = mods
	return nil
}

var inlineModRe = regexp.MustCompile(`([a-zA-Z]?)\[(\d+(?:\.\d+)?)\]`)

// parseInlineModifications turns the nominal residue masses of SpectraST
// tags into nominal mass shifts: C[160] is +57 on cysteine, n[43] is +42 on
// the N-terminus.
func parseInlineModifications(rawSeq string) ([]core.Modification, error) {
	var mods []core.Modification
	position := 0
	lastIdx := 0

	for _, match := range inlineModRe.FindAllStringSubmatchIndex(rawSeq, -1) {
		position += countResidues(rawSeq[lastIdx:match[0]])

		aa := rawSeq[match[2]:match[3]]
		total, err := strconv.ParseFloat(rawSeq[match[4]:match[5]], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid modification mass '%s': %w", rawSeq[match[4]:match[5]], err)
		}

		switch aa {
		case "n", "":
			mods = append(mods, core.Modification{Mass: total - 1, Position: -1, Name: fmt.Sprintf("n[%.0f]", total)})
		case "c":
			mods = append(mods, core.Modification{Mass: total - 17, Position: position - 1, Name: fmt.Sprintf("c[%.0f]", total)})
		default:
			residue := core.CalculateNeutralMass(aa, nil) - core.CalculateNeutralMass("", nil)
			mods = append(mods, core.Modification{
				Mass:     total - math.Round(residue),
				Position: position,
				Name:     fmt.Sprintf("%s[%.0f]", aa, total),
			})
			position++
		}

		lastIdx = match[1]
	}

	return mods, nil
}

func countResidues(s string) int {
	n := 0
	for _, c := range s {
		if c >= 'A' && c <= 'Z' {
			n++
		}
	}
	return n
}

// parseComment extracts metadata from Comment field
func parseComment(spec *core.Spectrum, comment string) {
	for _, field := range strings.Fields(comment) {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}

		switch key {
		case "Parent":
			if mz, err := strconv.ParseFloat(value, 64); err == nil && spec.PrecursorMZ == 0 {
				spec.PrecursorMZ = mz
			}
		case "CollisionEnergy":
			if ce, err := strconv.ParseFloat(value, 64); err == nil {
				spec.CollisionEnergy = &ce
			}
		case "iRT", "RetentionTime":
			// May be a comma-separated list; the first value is the median.
			if rt, err := strconv.ParseFloat(strings.Split(value, ",")[0], 64); err == nil {
				if key == "iRT" || spec.RetentionTime == nil {
					spec.RetentionTime = &rt
				}
			}
		}
	}
}

// parsePeak parses a single peak line
// Format: "mz\tintensity\tannotation\t..." or similar
func parsePeak(line string) (core.Peak, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return core.Peak{}, fmt.Errorf("invalid peak format, expected at least 2 fields")
	}

	mz, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return core.Peak{}, fmt.Errorf("invalid m/z value: %w", err)
	}

	intensity, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return core.Peak{}, fmt.Errorf("invalid intensity value: %w", err)
	}

	peak := core.Peak{
		MZ:        mz,
		Intensity: intensity,
	}

	if len(fields) >= 3 {
		annotation := fields[2]
		if idx := strings.Index(annotation, "/"); idx > 0 {
			annotation = annotation[:idx]
		}
		if idx := strings.IndexByte(annotation, ','); idx > 0 {
			annotation = annotation[:idx]
		}
		peak.Annotation = annotation
	}

	return peak, nil
}
