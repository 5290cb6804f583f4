// Package persistence provides standardized error types for storage operations.
package persistence

import (
	"errors"
	"fmt"
)

// ErrRunNotFound indicates no snapshot exists for the given run identifier.
var ErrRunNotFound = errors.New("run not found")

// RunError wraps run-storage errors with operation context.
type RunError struct {
	Op    string // operation being performed, e.g. "SaveRun"
	RunID string
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%s failed for run %s: %v", e.Op, e.RunID, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

func (e *RunError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func NewRunError(op, runID string, err error) *RunError {
	return &RunError{Op: op, RunID: runID, Err: err}
}

// IsRunNotFound checks if an error indicates a missing run snapshot.
func IsRunNotFound(err error) bool {
	return errors.Is(err, ErrRunNotFound)
}
