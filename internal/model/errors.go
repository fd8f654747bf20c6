package model

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an update, toggle or delete targets an
// identifier that no longer exists. Store state is unchanged in that case.
var ErrNotFound = errors.New("not found")

// ValidationError reports a rule that would violate its invariants. It is
// surfaced before any mutation is applied.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
