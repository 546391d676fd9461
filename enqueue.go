package pgtask

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pgtask-dev/pgtask/internal/store"
)

// EnqueueNow schedules step to run as soon as a worker picks it up.
func EnqueueNow[S any](ctx context.Context, st *store.Store, step S) (uuid.UUID, error) {
	return EnqueueAt(ctx, st, step, time.Now())
}

// EnqueueAfter schedules step to become eligible for dispatch once
// delay has elapsed.
func EnqueueAfter[S any](ctx context.Context, st *store.Store, step S, delay time.Duration) (uuid.UUID, error) {
	return EnqueueAt(ctx, st, step, time.Now().Add(delay))
}

// EnqueueAt schedules step to become eligible for dispatch at the
// given time. Any step type for which the dispatching Worker's S can
// successfully json.Unmarshal the encoded document may be enqueued this
// way, including a sibling variant of S's tagged union.
func EnqueueAt[S any](ctx context.Context, st *store.Store, step S, at time.Time) (uuid.UUID, error) {
	doc, err := json.Marshal(step)
	if err != nil {
		return uuid.Nil, fmt.Errorf("pgtask: encode step: %w", err)
	}
	return st.Enqueue(ctx, doc, at)
}
