// Package pgtask is a durable, PostgreSQL-backed task runner.
//
// A task is a multi-step state machine: each step executes, then either
// completes the task, transitions to a successor step (immediately or
// after a delay), or fails into bounded retry. State between steps is
// persisted as a JSON document in the pg_task table, so a worker crash
// leaves every in-flight task safely recoverable at restart.
//
// Basic usage:
//
//	type OrderStep struct {
//		pgtask.DefaultRetryPolicy
//		Stage string `json:"stage"`
//		OrderID string `json:"order_id"`
//	}
//
//	func (s OrderStep) Step(ctx context.Context, h *pgtask.Handle) (pgtask.Outcome[OrderStep], error) {
//		switch s.Stage {
//		case "charge":
//			return pgtask.Next(OrderStep{Stage: "ship", OrderID: s.OrderID}), nil
//		case "ship":
//			return pgtask.Done[OrderStep](), nil
//		}
//		return pgtask.Outcome[OrderStep]{}, fmt.Errorf("unknown stage %q", s.Stage)
//	}
//
//	w := pgtask.NewWorker[OrderStep](store).WithConcurrency(4)
//	go w.Run(ctx)
//	id, err := pgtask.EnqueueNow(ctx, store, OrderStep{Stage: "charge", OrderID: "o-1"})
package pgtask
