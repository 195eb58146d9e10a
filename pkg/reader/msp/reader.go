// Package msp provides a streaming reader for MSP spectral libraries as
// written by MSCI, Prosit/NIST and matchms.
package msp

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/PepTwins/pkg/core"
)

// Reader provides streaming access to MSP format files
type Reader struct {
	scanner     *bufio.Scanner
	modDB       *core.ModDatabase
	lineNum     int
	pending     string // header line that ended the previous entry
	currentSpec *core.Spectrum
	err         error
}

// NewReader creates a new MSP reader. A nil modDB selects
// core.DefaultModDatabase.
func NewReader(r io.Reader, modDB *core.ModDatabase) *Reader {
	if modDB == nil {
		modDB = core.DefaultModDatabase()
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &Reader{
		scanner: scanner,
		modDB:   modDB,
	}
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

// entry accumulates one MSP block.
type entry struct {
	spec      *core.Spectrum
	started   bool
	numPeaks  int // -1 until a "Num peaks" header is seen
	peaksRead int
	inPeaks   bool
	parent    bool // precursor m/z came from a Comment Parent= field
}

func (e *entry) complete() bool {
	return e.inPeaks && e.numPeaks >= 0 && e.peaksRead >= e.numPeaks
}

// readSpectrum reads a single entry. An entry ends after its declared number
// of peaks, at a blank line once content has been read, or at EOF.
func (r *Reader) readSpectrum() (*core.Spectrum, error) {
	e := &entry{
		spec:     &core.Spectrum{SourceFormat: "msp", Peaks: []core.Peak{}},
		numPeaks: -1,
	}

	for {
		line, ok := r.nextLine()
		if !ok {
			break
		}

		if line == "" || strings.HasPrefix(line, "#") {
			if e.started {
				return r.finish(e)
			}
			continue
		}
		e.started = true

		if !e.inPeaks && !startsWithDigit(line) {
			if err := r.parseHeader(e, line); err != nil {
				return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
			}
			if e.inPeaks && e.numPeaks == 0 {
				return r.finish(e)
			}
			continue
		}

		if !startsWithDigit(line) {
			// Header of the next entry after an open-ended peak list.
			r.pending = line
			return r.finish(e)
		}

		// Peak lines may appear without a "Num peaks" header.
		e.inPeaks = true
		peak, err := parsePeak(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
		}
		e.spec.Peaks = append(e.spec.Peaks, peak)
		e.peaksRead++
		if e.complete() {
			return r.finish(e)
		}
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	if e.started {
		return r.finish(e)
	}
	return nil, io.EOF
}

func (r *Reader) nextLine() (string, bool) {
	if r.pending != "" {
		line := r.pending
		r.pending = ""
		return line, true
	}
	if !r.scanner.Scan() {
		return "", false
	}
	r.lineNum++
	return strings.TrimSpace(r.scanner.Text()), true
}

func startsWithDigit(line string) bool {
	return line[0] >= '0' && line[0] <= '9'
}

// parseHeader handles one "Key: value" line. Keys are case-insensitive.
func (r *Reader) parseHeader(e *entry, line string) error {
	key, value, ok := strings.Cut(line, ":")
	if !ok {
		return nil
	}
	key = strings.ToLower(strings.TrimSpace(key))
	value = strings.TrimSpace(value)
	spec := e.spec

	switch key {
	case "name", "compound_name":
		return parseName(spec, value)
	case "mw", "nominal_mass", "precursormz", "precursor_mz", "pepmass":
		fields := strings.Fields(value)
		if len(fields) == 0 {
			return fmt.Errorf("empty precursor m/z")
		}
		mz, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return fmt.Errorf("invalid precursor m/z '%s': %w", value, err)
		}
		// NIST files carry the neutral mass in MW and the m/z in Parent=.
		if !e.parent {
			spec.PrecursorMZ = mz
		}
	case "irt", "retentiontime":
		rt, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid iRT '%s': %w", value, err)
		}
		spec.RetentionTime = &rt
	case "collision_energy", "collisionenergy":
		ce, err := strconv.ParseFloat(value, 64)
		if err == nil {
			spec.CollisionEnergy = &ce
		}
	case "charge":
		c, err := strconv.Atoi(strings.TrimRight(value, "+"))
		if err != nil {
			return fmt.Errorf("invalid charge '%s': %w", value, err)
		}
		if spec.Charge == 0 {
			spec.Charge = c
		}
	case "comment":
		parseComment(e, value)
	case "num peaks", "numpeaks", "num_peaks":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid num peaks: %w", err)
		}
		e.numPeaks = n
		e.inPeaks = true
	}
	return nil
}

// parseName extracts sequence and charge from a "SEQUENCE/CHARGE" name. A
// name without a charge keeps the whole value as the sequence.
func parseName(spec *core.Spectrum, name string) error {
	seq, charge, ok := core.SplitName(name)
	if !ok {
		if strings.Contains(name, "/") {
			return fmt.Errorf("invalid name format '%s', expected 'SEQUENCE/CHARGE'", name)
		}
		spec.Sequence = name
		return nil
	}
	spec.Sequence = seq
	spec.Charge = charge
	return nil
}

// parseComment extracts metadata from NIST/Prosit style key=value comments,
// e.g. "Parent=414.71 Collision_energy=35 iRT=61.01".
func parseComment(e *entry, comment string) {
	spec := e.spec
	for _, field := range strings.Fields(comment) {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}

		switch key {
		case "Parent":
			if mz, err := strconv.ParseFloat(value, 64); err == nil {
				spec.PrecursorMZ = mz
				e.parent = true
			}
		case "Collision_energy", "CollisionEnergy":
			if ce, err := strconv.ParseFloat(value, 64); err == nil {
				spec.CollisionEnergy = &ce
			}
		case "iRT", "RetentionTime":
			if rt, err := strconv.ParseFloat(strings.Split(value, ",")[0], 64); err == nil && spec.RetentionTime == nil {
				spec.RetentionTime = &rt
			}
		}
	}
}

// finish fills the fields derivable from the sequence and sorts the peaks.
func (r *Reader) finish(e *entry) (*core.Spectrum, error) {
	spec := e.spec
	if spec.Sequence == "" {
		return nil, fmt.Errorf("line %d: entry without a name", r.lineNum)
	}

	if strings.ContainsRune(spec.Sequence, '[') {
		_, mods, err := r.modDB.ParseModifiedSequence(spec.Sequence)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
		}
		spec.Modifications = mods
	}
	if spec.PrecursorMZ == 0 && spec.Charge > 0 {
		mz, err := core.PrecursorMZ(spec.Sequence, spec.Charge, r.modDB)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
		}
		spec.PrecursorMZ = mz
	}
	if !spec.ArePeaksSorted() {
		spec.SortPeaks()
	}
	return spec, nil
}

// parsePeak parses a single peak line (format: "mz\tintensity\t\"annotation\"")
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
		annotation := strings.Trim(fields[2], "\"")
		if idx := strings.Index(annotation, "/"); idx > 0 {
			annotation = annotation[:idx]
		}
		peak.Annotation = annotation
	}

	return peak, nil
}
