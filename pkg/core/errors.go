package core

import (
	"errors"
	"fmt"
)

// ErrUndefinedScore is returned when a similarity score cannot be computed,
// e.g. because one side carries no weight or no peaks were matched.
var ErrUndefinedScore = errors.New("undefined similarity")

// InputError reports a malformed record table or an unsupported parameter.
// It aborts the whole run.
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid input %s: %s", e.Field, e.Message)
}

// LookupError reports a provenance index without a spectrum.
type LookupError struct {
	Index int
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("no spectrum for index %d", e.Index)
}

// IsInputError reports whether err is or wraps an InputError.
func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}
