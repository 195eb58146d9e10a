package core

import (
	"strconv"
	"strings"
)

// SplitName splits a "SEQUENCE/CHARGE" name. ok is false when the name
// carries no parsable charge.
func SplitName(name string) (sequence string, charge int, ok bool) {
	i := strings.LastIndexByte(name, '/')
	if i < 0 {
		return name, 0, false
	}
	c, err := strconv.Atoi(name[i+1:])
	if err != nil {
		return name, 0, false
	}
	return name[:i], c, true
}

// SameSequenceIL reports whether two sequences are identical when isoleucine
// and leucine are treated as the same residue.
func SameSequenceIL(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		x, y := a[i], b[i]
		if x == y {
			continue
		}
		if (x == 'I' || x == 'L') && (y == 'I' || y == 'L') {
			continue
		}
		return false
	}
	return true
}
