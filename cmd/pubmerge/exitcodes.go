package main

import (
	"errors"

	"github.com/matsen/pubmerge/internal/config"
	"github.com/matsen/pubmerge/internal/dedupe"
)

// Exit codes
const (
	ExitSuccess       = 0 // Success
	ExitError         = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError   = 2 // Configuration error (bad thresholds, unknown mode)
	ExitDataError     = 3 // Data error (unreadable input, duplicate record ids)
	ExitReviewPending = 4 // Outputs written, but review groups remain undecided
)

// exitError carries an explicit exit code through cobra.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

// exitCodeFor maps an error returned by a command to the process exit code.
func exitCodeFor(err error) int {
	var ee *exitError
	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &ee):
		return ee.code
	case errors.Is(err, config.ErrInvalidConfig), errors.Is(err, dedupe.ErrInvalidOptions):
		return ExitConfigError
	case errors.Is(err, dedupe.ErrDuplicateID), errors.Is(err, dedupe.ErrMissingID):
		return ExitDataError
	}
	return ExitError
}
