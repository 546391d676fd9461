package pgtask

import (
	"time"

	"github.com/pgtask-dev/pgtask/internal/core"
)

// RetryPolicy supplies the per-step-type retry limit and delay.
type RetryPolicy = core.RetryPolicy

// DefaultRetryPolicy gives RetryLimit()=0 and RetryDelay()=1s. Embed it
// in a step type to satisfy RetryPolicy without writing both methods.
type DefaultRetryPolicy = core.DefaultRetryPolicy

// Step is the contract a user's step type must satisfy. S is the
// concrete step type itself, so a single step type's Step method can
// transition to any sibling in its own tagged union by returning it
// from Next.
//
//	type ChargeOrder struct {
//		pgtask.DefaultRetryPolicy
//		OrderID string `json:"order_id"`
//	}
//
//	func (s ChargeOrder) Step(ctx context.Context, h *pgtask.Handle) (pgtask.Outcome[ChargeOrder], error) {
//		if err := charge(ctx, h.Pool(), s.OrderID); err != nil {
//			return pgtask.Outcome[ChargeOrder]{}, err
//		}
//		return pgtask.Done[ChargeOrder](), nil
//	}
type Step[S any] = core.Step[S]

// Outcome is what a Step returns on success: either the task is done,
// or it transitions to a successor step, optionally after a delay.
type Outcome[S any] = core.Outcome[S]

// Done reports that the task is complete; its row is removed.
func Done[S any]() Outcome[S] {
	return core.Done[S]()
}

// Next transitions to step, to run as soon as it is picked up.
func Next[S any](step S) Outcome[S] {
	return core.Next[S](step)
}

// NextDelayed transitions to step, eligible for dispatch only after
// delay has elapsed.
func NextDelayed[S any](step S, delay time.Duration) Outcome[S] {
	return core.NextDelayed[S](step, delay)
}

// StepError wraps an error returned by user step code, keeping it
// distinct from infrastructure errors (database failures, decode
// failures) for errors.Is/As purposes.
type StepError = core.StepError
