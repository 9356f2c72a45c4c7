// Package repair downloads catalog records and keeps repairing them until
// the local file validates or the retry budget runs out.
package repair

import (
	"errors"
	"fmt"
)

// ErrNotFound reports a missing local file at validation time.
var ErrNotFound = errors.New("local file not found")

// SizeMismatchError reports a file whose size differs from the catalog.
type SizeMismatchError struct {
	Expected int64
	Actual   int64
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("size mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// HashMismatchError reports a file whose digest differs from the catalog.
type HashMismatchError struct {
	Expected string
	Actual   string
}

func (e *HashMismatchError) Error() string {
	return fmt.Sprintf("hash mismatch: expected %s, got %s", e.Expected, e.Actual)
}

// TransportError reports a network or protocol failure during download.
// It triggers backoff-and-retry.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error for %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ExhaustedRetriesError is the terminal per-record failure after all
// attempts are used. It is never fatal to the batch.
type ExhaustedRetriesError struct {
	Name     string
	Attempts int
	LastErr  error
}

func (e *ExhaustedRetriesError) Error() string {
	if e.LastErr != nil {
		return fmt.Sprintf("%s: failed after %d attempts: %v", e.Name, e.Attempts, e.LastErr)
	}
	return fmt.Sprintf("%s: failed after %d attempts", e.Name, e.Attempts)
}

func (e *ExhaustedRetriesError) Unwrap() error {
	return e.LastErr
}
