package pgtask

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/pgtask-dev/pgtask/internal/core"
	"github.com/pgtask-dev/pgtask/internal/dispatcher"
	"github.com/pgtask-dev/pgtask/internal/events"
	"github.com/pgtask-dev/pgtask/internal/notifier"
	"github.com/pgtask-dev/pgtask/internal/store"
)

// Worker runs the dispatch loop for a single step type S against one
// Store. Construct with NewWorker, configure with the With* methods,
// then call Run.
type Worker[S core.Step[S]] struct {
	store     *store.Store
	log       zerolog.Logger
	publisher events.Publisher
	cfg       dispatcher.Config
}

// NewWorker builds a Worker over st. Defaults: concurrency =
// runtime.NumCPU(), reconnect backoff = 5s, a disabled logger, and no
// event publisher (events are simply not published).
func NewWorker[S core.Step[S]](st *store.Store) *Worker[S] {
	return &Worker[S]{
		store: st,
		log:   zerolog.Nop(),
	}
}

// WithConcurrency bounds how many steps this worker runs at once.
func (w *Worker[S]) WithConcurrency(n int) *Worker[S] {
	w.cfg.Concurrency = n
	return w
}

// WithReconnectBackoff sets the fixed delay between database
// reconnect attempts after recvTask fails.
func (w *Worker[S]) WithReconnectBackoff(d time.Duration) *Worker[S] {
	w.cfg.ReconnectBackoff = d
	return w
}

// WithLogger attaches a structured logger.
func (w *Worker[S]) WithLogger(log zerolog.Logger) *Worker[S] {
	w.log = log
	return w
}

// WithPublisher attaches an event sink for task lifecycle transitions,
// consumed by the admin API's WebSocket hub.
func (w *Worker[S]) WithPublisher(pub events.Publisher) *Worker[S] {
	w.publisher = pub
	return w
}

// Run clears any stale is_running rows, subscribes to change
// notifications, and dispatches tasks of type S until ctx is canceled.
func (w *Worker[S]) Run(ctx context.Context) error {
	n := notifier.New(w.store.DSN(), w.log, w.cfg.ReconnectBackoff, w.store.Ping)
	d := dispatcher.New[S](w.store, n, w.log, w.publisher, w.cfg)
	return d.Run(ctx)
}
