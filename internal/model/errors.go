package model

import (
	"errors"
	"fmt"
)

// ValidationError reports a malformed row, a missing required field, or an
// unrecognized domain type / period label. It is recovered at row granularity
// and never aborts a batch.
type ValidationError struct {
	Field  string
	Value  string
	Row    int // zero-based row index within the batch, -1 when not row-scoped
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Row >= 0 {
		return fmt.Sprintf("row %d: field %q (%q): %s", e.Row, e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("field %q (%q): %s", e.Field, e.Value, e.Reason)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

var (
	// ErrNotFound signals no current record exists under a natural key.
	ErrNotFound = errors.New("record not found")

	// ErrVersionConflict signals an optimistic-concurrency write lost the race;
	// callers re-read and retry.
	ErrVersionConflict = errors.New("version conflict")

	// ErrStoreUnavailable signals the backing store is unreachable or timed out.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrConflictRetryExhausted signals the per-record conflict retry budget ran
	// out on a hot natural key.
	ErrConflictRetryExhausted = errors.New("conflict retries exhausted")

	// ErrResetInProgress signals an upload arrived while a reset holds the
	// exclusive lock. Callers may retry after the reset completes.
	ErrResetInProgress = errors.New("reset in progress")
)
