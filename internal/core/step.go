// Package core defines the generic step contract shared by the
// executor and dispatcher: the user-facing Step interface, its
// Outcome, the per-step retry policy, and the Handle passed to user
// code. It has no dependency on store or the dispatch loop itself —
// Handle reaches the database through the narrow DB interface.
package core

import (
	"context"
	"time"
)

// RetryPolicy supplies the per-step-type retry limit and delay. Step
// implementations normally get this for free by embedding
// DefaultRetryPolicy and overriding only what they need to change.
type RetryPolicy interface {
	RetryLimit() int
	RetryDelay() time.Duration
}

// DefaultRetryPolicy gives RetryLimit()=0 and RetryDelay()=1s, matching
// the reference implementation's trait defaults. Embed it in a step
// type to satisfy RetryPolicy without boilerplate.
type DefaultRetryPolicy struct{}

func (DefaultRetryPolicy) RetryLimit() int           { return 0 }
func (DefaultRetryPolicy) RetryDelay() time.Duration { return time.Second }

// Step is the contract a user's step type must satisfy. S is the
// concrete step type itself (a closed tagged-union member), so a
// single step type's Step method can transition to any other type in
// its own union by returning that sibling from Next.
type Step[S any] interface {
	RetryPolicy
	// Step executes this step and returns the next action: Done,
	// Next(step[, delay]), or an error (a step-level failure, distinct
	// from infrastructure errors).
	Step(ctx context.Context, h *Handle) (Outcome[S], error)
}
