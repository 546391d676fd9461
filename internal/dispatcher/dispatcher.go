// Package dispatcher implements the core wakeup loop: subscribe, try to
// claim the next eligible task, and either run it or wait — for a
// notification if nothing is eligible, for the clock if the next task
// is scheduled in the future. This is the only place in the module that
// decides what runs next; the executor only runs what it is handed.
package dispatcher

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/rs/zerolog"

	"github.com/pgtask-dev/pgtask/internal/core"
	"github.com/pgtask-dev/pgtask/internal/events"
	"github.com/pgtask-dev/pgtask/internal/executor"
	"github.com/pgtask-dev/pgtask/internal/metrics"
	"github.com/pgtask-dev/pgtask/internal/notifier"
	"github.com/pgtask-dev/pgtask/internal/store"
)

// Config controls worker-side behavior that has no bearing on
// persisted state.
type Config struct {
	Concurrency      int
	ReconnectBackoff time.Duration
}

func (c Config) withDefaults() Config {
	if c.Concurrency <= 0 {
		c.Concurrency = runtime.NumCPU()
	}
	if c.ReconnectBackoff <= 0 {
		c.ReconnectBackoff = 5 * time.Second
	}
	return c
}

// Dispatcher runs the claim-and-dispatch loop for step type S. One
// Dispatcher corresponds to one Worker; S is fixed for its lifetime,
// matching the spec's single-step-type-per-process model.
type Dispatcher[S core.Step[S]] struct {
	store     *store.Store
	notifier  *notifier.Notifier
	log       zerolog.Logger
	publisher events.Publisher
	cfg       Config

	sem chan struct{}
}

// New builds a Dispatcher bound to st, notified of changes via n. The
// notifier is expected to be constructed against the same DSN as st and
// not yet Listen-ing; Run calls Listen itself.
func New[S core.Step[S]](st *store.Store, n *notifier.Notifier, log zerolog.Logger, pub events.Publisher, cfg Config) *Dispatcher[S] {
	cfg = cfg.withDefaults()
	return &Dispatcher[S]{
		store:     st,
		notifier:  n,
		log:       log,
		publisher: pub,
		cfg:       cfg,
		sem:       make(chan struct{}, cfg.Concurrency),
	}
}

// Run clears any is_running rows left by a previous crashed process,
// starts the change-notification subscription, and loops claiming and
// dispatching tasks until ctx is canceled. It returns only on ctx
// cancellation (or an unrecoverable startup failure).
func (d *Dispatcher[S]) Run(ctx context.Context) error {
	n, err := d.store.UnlockAll(ctx)
	if err != nil {
		return fmt.Errorf("dispatcher: unlock_all: %w", err)
	}
	if n > 0 {
		d.log.Warn().Int64("rows", n).Msg("cleared is_running on rows left by a previous process")
	}

	if err := d.notifier.Listen(ctx); err != nil {
		return fmt.Errorf("dispatcher: listen: %w", err)
	}

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		select {
		case d.sem <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}

		task, err := d.recvTask(ctx)
		if err != nil {
			<-d.sem
			if ctx.Err() != nil {
				return ctx.Err()
			}
			d.log.Error().Err(err).Msg("recv_task failed, backing off")
			d.waitForReconnect(ctx)
			continue
		}
		if task == nil {
			<-d.sem
			continue // ctx canceled mid-wait; loop will exit above
		}

		metrics.SetActiveExecutors(len(d.sem))
		go func(t store.Task) {
			defer func() {
				<-d.sem
				metrics.SetActiveExecutors(len(d.sem))
			}()
			executor.Run[S](ctx, executor.Deps{Store: d.store, Log: d.log, Publisher: d.publisher}, t)
		}(*task)
	}
}

// recvTask implements the spec's recv_task: subscribe before beginning
// the transaction so a notification landing between a failed fetch and
// the wait is never missed, fetch the closest eligible task, and either
// claim it (wakeup_at due) or release the row lock and wait (wakeup_at
// in the future, or no rows at all). Returns (nil, nil) if ctx was
// canceled while waiting, signaling the caller to re-check ctx.
func (d *Dispatcher[S]) recvTask(ctx context.Context) (*store.Task, error) {
	for {
		waiter := d.notifier.Subscribe()

		tx, task, err := d.store.FetchClosest(ctx)
		if err != nil {
			return nil, err
		}

		if task == nil {
			if err := tx.Commit(ctx); err != nil {
				return nil, fmt.Errorf("commit (no task): %w", err)
			}
			waiter.WaitForever(ctx)
			if ctx.Err() != nil {
				return nil, nil
			}
			continue
		}

		if delay := time.Until(task.WakeupAt); delay > 0 {
			if err := tx.Rollback(ctx); err != nil {
				return nil, fmt.Errorf("rollback (future task): %w", err)
			}
			waiter.WaitFor(ctx, delay)
			if ctx.Err() != nil {
				return nil, nil
			}
			continue
		}

		if err := d.store.MarkRunning(ctx, tx, task.ID); err != nil {
			_ = tx.Rollback(ctx)
			return nil, err
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("commit (claim): %w", err)
		}
		return task, nil
	}
}

// waitForReconnect backs off on a fixed interval, probing the database
// in between, so a transient outage (the pool itself, not just the
// notifier's LISTEN connection) doesn't spin recvTask in a tight loop.
func (d *Dispatcher[S]) waitForReconnect(ctx context.Context) {
	t := time.NewTimer(d.cfg.ReconnectBackoff)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
		return
	}
	if err := d.store.Ping(ctx); err != nil {
		d.log.Debug().Err(err).Msg("dispatcher reconnect probe failed, still waiting")
	}
}
