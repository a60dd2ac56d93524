package prototype

import (
	"errors"
	"strings"
)

// ErrPermission indicates an attempted mutation of a read-only prototype or a
// failed lock check. Callers match it with errors.Is.
var ErrPermission = errors.New("permission denied")

// ValidationError reports structural prototype defects: missing key, parent
// cycles, unknown parents, self-parenting, missing base typeclass, malformed
// lock strings. All problems found in one pass are reported together.
type ValidationError struct {
	Problems []string
}

// NewValidationError builds a ValidationError from one or more problems.
func NewValidationError(problems ...string) *ValidationError {
	return &ValidationError{Problems: problems}
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Problems) == 0 {
		return "prototype validation failed"
	}
	return "Error: " + strings.Join(e.Problems, "\nError: ")
}
