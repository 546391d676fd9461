package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalPublisher_PublishSubscribe(t *testing.T) {
	p := NewLocalPublisher()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := p.Subscribe(ctx, EventTaskComplete)
	require.NoError(t, err)

	require.NoError(t, p.Publish(ctx, NewEvent(EventTaskStarted, nil)))
	require.NoError(t, p.Publish(ctx, NewEvent(EventTaskComplete, map[string]interface{}{"task_id": "t-1"})))

	select {
	case ev := <-ch:
		assert.Equal(t, EventTaskComplete, ev.Type)
		assert.Equal(t, "t-1", ev.Data["task_id"])
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestLocalPublisher_SubscribeAllWhenNoTypesGiven(t *testing.T) {
	p := NewLocalPublisher()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := p.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, p.Publish(ctx, NewEvent(EventTaskParked, nil)))

	select {
	case ev := <-ch:
		assert.Equal(t, EventTaskParked, ev.Type)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestLocalPublisher_ClosesChannelOnContextCancel(t *testing.T) {
	p := NewLocalPublisher()
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := p.Subscribe(ctx)
	require.NoError(t, err)

	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel was not closed after context cancellation")
	}
}

func TestLocalPublisher_Close(t *testing.T) {
	p := NewLocalPublisher()
	ch, err := p.Subscribe(context.Background())
	require.NoError(t, err)

	require.NoError(t, p.Close())

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel was not closed")
	}
}

func TestLocalPublisher_PublishTaskAndWorkerEventHelpers(t *testing.T) {
	p := NewLocalPublisher()
	ctx := context.Background()
	ch, err := p.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, p.PublishTaskEvent(ctx, EventTaskRetrying, "t-2", "order.charge", 1, nil))
	ev := <-ch
	assert.Equal(t, EventTaskRetrying, ev.Type)
	assert.Equal(t, "t-2", ev.Data["task_id"])

	require.NoError(t, p.PublishWorkerEvent(ctx, EventWorkerJoined, "w-1", "active", nil))
	ev = <-ch
	assert.Equal(t, EventWorkerJoined, ev.Type)
	assert.Equal(t, "w-1", ev.Data["worker_id"])
}
