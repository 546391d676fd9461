// Package notifier implements the change-notification side of the
// dispatcher's wakeup path: a single long-lived LISTEN subscription,
// fanned out to many ephemeral waiters as an edge-triggered signal.
package notifier

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const channel = "pg_task_changed"

// Notifier owns one LISTEN connection per worker process and
// broadcasts every notification to current subscribers.
type Notifier struct {
	dsn string
	log zerolog.Logger

	mu  sync.Mutex
	sig chan struct{} // closed and replaced on every notification

	reconnectBackoff time.Duration
	probe            func(ctx context.Context) error
}

// New creates a Notifier for the given DSN. probe is called during
// reconnection backoff to detect when the database is reachable again;
// it may be nil, in which case the notifier simply retries LISTEN
// itself on the configured backoff.
func New(dsn string, log zerolog.Logger, reconnectBackoff time.Duration, probe func(ctx context.Context) error) *Notifier {
	if reconnectBackoff <= 0 {
		reconnectBackoff = 5 * time.Second
	}
	return &Notifier{
		dsn:              dsn,
		log:              log,
		sig:              make(chan struct{}),
		reconnectBackoff: reconnectBackoff,
		probe:            probe,
	}
}

// Waiter is a one-shot handle bound to the signal generation in effect
// when Subscribe returned. Any notification delivered after that point
// — including ones that arrive before a Wait call — is observed.
type Waiter struct {
	sig <-chan struct{}
}

// Subscribe captures the current signal generation. Callers MUST call
// Subscribe before any operation that could miss a notification (e.g.
// before beginning the dispatcher's fetch transaction), so that a
// notification landing between the failed fetch and the wait is never
// lost.
func (n *Notifier) Subscribe() *Waiter {
	n.mu.Lock()
	defer n.mu.Unlock()
	return &Waiter{sig: n.sig}
}

// WaitForever blocks until the signal generation captured at Subscribe
// time fires, or ctx is canceled.
func (w *Waiter) WaitForever(ctx context.Context) {
	select {
	case <-w.sig:
	case <-ctx.Done():
	}
}

// WaitFor blocks until the signal fires or d elapses, whichever first.
// The return gives no indication which happened; callers re-query the
// store either way.
func (w *Waiter) WaitFor(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-w.sig:
	case <-t.C:
	case <-ctx.Done():
	}
}

// Listen establishes the LISTEN subscription and starts the background
// receiver goroutine that drains notifications and re-arms the signal.
// The first connection is attempted once: if it fails, Listen returns
// the error. Reconnection with backoff applies only to a subscription
// that drops after Listen has succeeded.
func (n *Notifier) Listen(ctx context.Context) error {
	conn, err := n.connect(ctx)
	if err != nil {
		return err
	}
	go n.run(ctx, conn)
	return nil
}

func (n *Notifier) connect(ctx context.Context) (*pgx.Conn, error) {
	conn, err := pgx.Connect(ctx, n.dsn)
	if err != nil {
		return nil, fmt.Errorf("notifier: connect: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+channel); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("notifier: listen: %w", err)
	}
	return conn, nil
}

func (n *Notifier) run(ctx context.Context, conn *pgx.Conn) {
	defer conn.Close(ctx)
	for {
		_, err := conn.WaitForNotification(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			n.log.Warn().Err(err).Msg("notifier subscription dropped, reconnecting")
			conn.Close(ctx)
			conn = n.reconnect(ctx)
			if conn == nil {
				return // ctx canceled while reconnecting
			}
			continue
		}
		n.fire()
	}
}

// reconnect retries Listen on a fixed backoff, optionally probing the
// database in between, until a subscription is re-established or ctx
// is canceled.
func (n *Notifier) reconnect(ctx context.Context) *pgx.Conn {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(n.reconnectBackoff):
		}
		if n.probe != nil {
			if err := n.probe(ctx); err != nil {
				n.log.Debug().Err(err).Msg("notifier probe failed, still waiting")
				continue
			}
		}
		conn, err := n.connect(ctx)
		if err != nil {
			n.log.Debug().Err(err).Msg("notifier reconnect failed")
			continue
		}
		n.log.Info().Msg("notifier subscription restored")
		return conn
	}
}

// fire broadcasts to every current waiter by closing the signal channel
// and installing a fresh one for the next generation.
func (n *Notifier) fire() {
	n.mu.Lock()
	defer n.mu.Unlock()
	close(n.sig)
	n.sig = make(chan struct{})
}
