package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOutcome_Done(t *testing.T) {
	o := Done[int]()
	assert.True(t, o.IsDone())
}

func TestOutcome_Next(t *testing.T) {
	o := Next(42)
	assert.False(t, o.IsDone())
	next, delay := o.NextStep()
	assert.Equal(t, 42, next)
	assert.Zero(t, delay)
}

func TestOutcome_NextDelayed(t *testing.T) {
	o := NextDelayed("stage-2", 5*time.Minute)
	assert.False(t, o.IsDone())
	next, delay := o.NextStep()
	assert.Equal(t, "stage-2", next)
	assert.Equal(t, 5*time.Minute, delay)
}

func TestDefaultRetryPolicy(t *testing.T) {
	var p DefaultRetryPolicy
	assert.Equal(t, 0, p.RetryLimit())
	assert.Equal(t, time.Second, p.RetryDelay())
}
