package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewStepError_WrapsOnce(t *testing.T) {
	base := errors.New("boom")
	se := NewStepError(base)
	assert.Equal(t, base, se.Unwrap())
	assert.Contains(t, se.Error(), "boom")

	// Wrapping an already-wrapped StepError returns it unchanged rather
	// than nesting.
	se2 := NewStepError(se)
	assert.Same(t, se, se2)
}

func TestStepError_ErrorsAs(t *testing.T) {
	err := NewStepError(errors.New("database is down"))
	var target *StepError
	assert.True(t, errors.As(err, &target))
	assert.Equal(t, err, target)
}
