package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound: the referenced supplier or master hotel does not exist.
	ErrNotFound = errors.New("hotelmap: not found")

	// ErrConflict: a mutating transition lost a concurrency race. The caller
	// should refresh and retry; the engine never retries silently.
	ErrConflict = errors.New("hotelmap: mapping changed concurrently")
)

// ValidationError rejects a record before normalization; batch imports report
// it per record.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("hotelmap: invalid %s: %s", e.Field, e.Reason)
}

func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
