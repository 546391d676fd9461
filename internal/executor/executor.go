// Package executor runs a single step of a single task to completion:
// decode, invoke, and transactionally record one of complete / next-step
// / retry / fail. It never loops over steps — a Next outcome is picked
// up again by the dispatcher once the Store's change notification
// fires.
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pgtask-dev/pgtask/internal/core"
	"github.com/pgtask-dev/pgtask/internal/events"
	"github.com/pgtask-dev/pgtask/internal/metrics"
	"github.com/pgtask-dev/pgtask/internal/store"
)

// TaskStore is the subset of *store.Store the executor needs to record
// a step's outcome. Declared here as an interface, rather than taking
// *store.Store directly, so tests can exercise Run against a fake
// without a live database.
type TaskStore interface {
	core.DB
	RecordComplete(ctx context.Context, id uuid.UUID) error
	RecordNextStep(ctx context.Context, id uuid.UUID, stepDoc []byte, delay time.Duration) error
	RecordRetry(ctx context.Context, id uuid.UUID, retryDelay time.Duration) error
	RecordFail(ctx context.Context, id uuid.UUID, errMsg string) (tried int, stepDoc []byte, err error)
}

// Deps bundles the executor's ambient collaborators so Run's signature
// stays stable as new sinks are added.
type Deps struct {
	Store     TaskStore
	Log       zerolog.Logger
	Publisher events.Publisher // may be nil
}

// Run decodes task.Step as S, invokes its Step method, and records the
// outcome. Panics inside user step code are recovered and treated as a
// step-level error, not an infrastructure crash — a single
// misbehaving handler must not take down the executor goroutine pool.
func Run[S core.Step[S]](ctx context.Context, d Deps, task store.Task) {
	start := time.Now()
	stepType := fmt.Sprintf("%T", *new(S))
	log := d.Log.With().Str("task_id", task.ID.String()).Logger()

	attempt := ""
	if task.Tried > 0 {
		attempt = fmt.Sprintf(" %s attempt to", ordinal(task.Tried+1))
	}
	log.Info().Msgf("run step%s %s", attempt, string(task.Step))

	var step S
	if err := json.Unmarshal(task.Step, &step); err != nil {
		park(ctx, d, task, stepType, fmt.Errorf("decode step: %w", err), start)
		return
	}

	outcome, err := invoke[S](ctx, d, step, task)
	if err != nil {
		processStepError(ctx, d, task, stepType, step.RetryLimit(), step.RetryDelay(), err, start)
		return
	}

	if outcome.IsDone() {
		if err := d.Store.RecordComplete(ctx, task.ID); err != nil {
			log.Error().Err(err).Msg("failed to record completion")
			return
		}
		log.Info().Msg("task completed")
		metrics.RecordCompletion(stepType, time.Since(start).Seconds())
		publish(ctx, d, events.EventTaskComplete, task, stepType, nil)
		return
	}

	next, delay := outcome.NextStep()
	doc, err := json.Marshal(next)
	if err != nil {
		park(ctx, d, task, stepType, fmt.Errorf("encode next step: %w", err), start)
		return
	}
	if err := d.Store.RecordNextStep(ctx, task.ID, doc, delay); err != nil {
		log.Error().Err(err).Msg("failed to record next step")
		return
	}
	log.Debug().Msgf("moved to the next step %s", string(doc))
	metrics.RecordCompletion(stepType, time.Since(start).Seconds())
	publish(ctx, d, events.EventTaskStarted, task, stepType, map[string]interface{}{"next_step": string(doc)})
}

// invoke calls step.Step, recovering a panic into a step-level error so
// it flows through the same retry/park path as a returned error.
func invoke[S core.Step[S]](ctx context.Context, d Deps, step S, task store.Task) (outcome core.Outcome[S], err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("step panicked: %v", r)
		}
	}()
	h := core.NewHandle(d.Store)
	return step.Step(ctx, h)
}

// processStepError consults tried vs retry_limit and either reschedules
// a retry or parks the task.
func processStepError(ctx context.Context, d Deps, task store.Task, stepType string, retryLimit int, retryDelay time.Duration, stepErr error, start time.Time) {
	se := core.NewStepError(stepErr)
	log := d.Log.With().Str("task_id", task.ID.String()).Logger()

	if task.Tried < retryLimit {
		if err := d.Store.RecordRetry(ctx, task.ID, retryDelay); err != nil {
			log.Error().Err(err).Msg("failed to record retry")
			return
		}
		log.Debug().Msgf("scheduled %s of %d retries in %s on error: %s", ordinal(task.Tried+1), retryLimit, retryDelay, se)
		metrics.RecordRetry(stepType, time.Since(start).Seconds())
		publish(ctx, d, events.EventTaskRetrying, task, stepType, map[string]interface{}{"error": se.Error()})
		return
	}
	park(ctx, d, task, stepType, se, start)
}

// park records a step or decode error as a permanent failure.
func park(ctx context.Context, d Deps, task store.Task, stepType string, err error, start time.Time) {
	log := d.Log.With().Str("task_id", task.ID.String()).Logger()
	tried, doc, recErr := d.Store.RecordFail(ctx, task.ID, err.Error())
	if recErr != nil {
		log.Error().Err(recErr).Msg("failed to record park")
		return
	}
	log.Error().Msgf("resulted in an error at step %s on %s attempt: %s", string(doc), ordinal(tried+1), err)
	metrics.RecordParked(stepType, time.Since(start).Seconds())
	publish(ctx, d, events.EventTaskParked, task, stepType, map[string]interface{}{"error": err.Error()})
}

func publish(ctx context.Context, d Deps, eventType events.EventType, task store.Task, stepType string, extra map[string]interface{}) {
	if d.Publisher == nil {
		return
	}
	_ = d.Publisher.Publish(ctx, events.NewEvent(eventType, events.TaskEventData(task.ID.String(), stepType, task.Tried, extra)))
}
