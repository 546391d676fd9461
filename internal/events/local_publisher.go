package events

import (
	"context"
	"sync"

	"github.com/pgtask-dev/pgtask/internal/logger"
)

// LocalPublisher implements Publisher as an in-process fan-out: the
// dispatcher and executor call Publish directly on task-lifecycle
// transitions (NOTIFY's payload carries no semantics per the Store
// contract, so events are produced at the call sites that already know
// what happened, not derived from the change-notification channel).
// Subscribers register a filter of event types and receive a private
// buffered channel.
type LocalPublisher struct {
	mu   sync.RWMutex
	subs map[int]*subscription
	next int
}

type subscription struct {
	types    map[EventType]struct{}
	ch       chan *Event
	closeOne sync.Once
}

func (s *subscription) close() {
	s.closeOne.Do(func() { close(s.ch) })
}

// NewLocalPublisher creates an empty, ready-to-use publisher.
func NewLocalPublisher() *LocalPublisher {
	return &LocalPublisher{subs: make(map[int]*subscription)}
}

// Publish fans event out to every subscriber whose filter matches (or
// who subscribed to no types, meaning "all").
func (p *LocalPublisher) Publish(ctx context.Context, event *Event) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, sub := range p.subs {
		if len(sub.types) > 0 {
			if _, ok := sub.types[event.Type]; !ok {
				continue
			}
		}
		select {
		case sub.ch <- event:
		default:
			logger.Warn().Str("event_type", string(event.Type)).Msg("event channel full, dropping event")
		}
	}
	return nil
}

// Subscribe registers a new subscriber for the given event types (all
// types if none given) and returns a channel of matching events. The
// channel is closed when ctx is canceled.
func (p *LocalPublisher) Subscribe(ctx context.Context, eventTypes ...EventType) (<-chan *Event, error) {
	types := make(map[EventType]struct{}, len(eventTypes))
	for _, t := range eventTypes {
		types[t] = struct{}{}
	}

	p.mu.Lock()
	id := p.next
	p.next++
	sub := &subscription{types: types, ch: make(chan *Event, 100)}
	p.subs[id] = sub
	p.mu.Unlock()

	go func() {
		<-ctx.Done()
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
		sub.close()
	}()

	return sub.ch, nil
}

// Close unregisters all subscribers, closing their channels.
func (p *LocalPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, sub := range p.subs {
		sub.close()
		delete(p.subs, id)
	}
	return nil
}

// PublishTaskEvent is a helper to publish task-related events.
func (p *LocalPublisher) PublishTaskEvent(ctx context.Context, eventType EventType, taskID, stepType string, tried int, extra map[string]interface{}) error {
	return p.Publish(ctx, NewEvent(eventType, TaskEventData(taskID, stepType, tried, extra)))
}

// PublishWorkerEvent is a helper to publish worker-related events.
func (p *LocalPublisher) PublishWorkerEvent(ctx context.Context, eventType EventType, workerID, state string, extra map[string]interface{}) error {
	return p.Publish(ctx, NewEvent(eventType, WorkerEventData(workerID, state, extra)))
}
