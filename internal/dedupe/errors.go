package dedupe

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidOptions is returned when options fail validation.
	ErrInvalidOptions = errors.New("invalid dedupe options")

	// ErrMissingID is returned when a batch record has no id.
	ErrMissingID = errors.New("record has no id")

	// ErrDuplicateID is returned when two batch records share an id.
	ErrDuplicateID = errors.New("duplicate record id")
)

// RecordError locates a structural problem with one record of a batch.
type RecordError struct {
	Batch string // Batch key
	Index int    // Position in the batch (0-indexed)
	ID    string
	Err   error
}

func (e *RecordError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("batch %q record %d: %v", e.Batch, e.Index, e.Err)
	}
	return fmt.Sprintf("batch %q record %d (%s): %v", e.Batch, e.Index, e.ID, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}
