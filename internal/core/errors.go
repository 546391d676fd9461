package core

import (
	"errors"
	"fmt"
)

// StepError wraps an error returned by user step code. It is kept as a
// distinct type from infrastructure errors (database failures,
// serialization failures at the framework layer) so the two taxonomies
// are never confused by errors.Is/As.
type StepError struct {
	err error
}

// NewStepError wraps err as a step-level error, unless it is already
// one.
func NewStepError(err error) *StepError {
	var se *StepError
	if errors.As(err, &se) {
		return se
	}
	return &StepError{err: err}
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step error: %s", e.err)
}

func (e *StepError) Unwrap() error {
	return e.err
}
