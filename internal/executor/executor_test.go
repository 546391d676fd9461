package executor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgtask-dev/pgtask/internal/core"
	"github.com/pgtask-dev/pgtask/internal/events"
	"github.com/pgtask-dev/pgtask/internal/store"
)

// fakeStore records every Record* call it receives so tests can assert
// on what the executor decided, without a live database.
type fakeStore struct {
	mu sync.Mutex

	completed  []uuid.UUID
	nextSteps  []fakeNextStep
	retries    []fakeRetry
	fails      []fakeFail
	failTried  int
	failDoc    []byte
	failErr    error
	recordErrs map[string]error // method name -> error to return
}

type fakeNextStep struct {
	id    uuid.UUID
	doc   []byte
	delay time.Duration
}

type fakeRetry struct {
	id    uuid.UUID
	delay time.Duration
}

type fakeFail struct {
	id     uuid.UUID
	errMsg string
}

func newFakeStore() *fakeStore {
	return &fakeStore{recordErrs: make(map[string]error)}
}

func (f *fakeStore) Pool() *pgxpool.Pool { return nil }

func (f *fakeStore) RecordComplete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.recordErrs["complete"]; err != nil {
		return err
	}
	f.completed = append(f.completed, id)
	return nil
}

func (f *fakeStore) RecordNextStep(ctx context.Context, id uuid.UUID, stepDoc []byte, delay time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.recordErrs["next"]; err != nil {
		return err
	}
	f.nextSteps = append(f.nextSteps, fakeNextStep{id: id, doc: stepDoc, delay: delay})
	return nil
}

func (f *fakeStore) RecordRetry(ctx context.Context, id uuid.UUID, retryDelay time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.recordErrs["retry"]; err != nil {
		return err
	}
	f.retries = append(f.retries, fakeRetry{id: id, delay: retryDelay})
	return nil
}

func (f *fakeStore) RecordFail(ctx context.Context, id uuid.UUID, errMsg string) (int, []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.recordErrs["fail"]; err != nil {
		return 0, nil, err
	}
	f.fails = append(f.fails, fakeFail{id: id, errMsg: errMsg})
	return f.failTried, f.failDoc, nil
}

// countStep is a single step type used to exercise Run's
// decode/invoke/outcome paths: Behavior selects the outcome, error or
// panic it produces; "next" moves to a countStep with Behavior "done".
type countStep struct {
	core.DefaultRetryPolicy
	Behavior string `json:"behavior"`
}

const (
	behaviorDone  = "done"
	behaviorNext  = "next"
	behaviorErr   = "err"
	behaviorPanic = "panic"
)

func (s countStep) Step(ctx context.Context, h *core.Handle) (core.Outcome[countStep], error) {
	switch s.Behavior {
	case behaviorDone:
		return core.Done[countStep](), nil
	case behaviorNext:
		return core.Next(countStep{Behavior: behaviorDone}), nil
	case behaviorErr:
		return core.Outcome[countStep]{}, errors.New("boom")
	case behaviorPanic:
		panic("step panicked on purpose")
	default:
		return core.Outcome[countStep]{}, errors.New("unknown behavior")
	}
}

func newTask(t *testing.T, behavior string, tried int) store.Task {
	t.Helper()
	return store.Task{
		ID:       uuid.New(),
		Step:     []byte(`{"behavior":"` + behavior + `"}`),
		Tried:    tried,
		WakeupAt: time.Now(),
	}
}

func TestRun_Done(t *testing.T) {
	fs := newFakeStore()
	d := Deps{Store: fs, Log: zerolog.Nop()}
	task := newTask(t, behaviorDone, 0)

	Run[countStep](context.Background(), d, task)

	require.Len(t, fs.completed, 1)
	assert.Equal(t, task.ID, fs.completed[0])
	assert.Empty(t, fs.nextSteps)
	assert.Empty(t, fs.fails)
}

func TestRun_Next(t *testing.T) {
	fs := newFakeStore()
	d := Deps{Store: fs, Log: zerolog.Nop()}
	task := newTask(t, behaviorNext, 0)

	Run[countStep](context.Background(), d, task)

	require.Len(t, fs.nextSteps, 1)
	assert.Equal(t, task.ID, fs.nextSteps[0].id)
	assert.Contains(t, string(fs.nextSteps[0].doc), behaviorDone)
}

func TestRun_ErrorWithNoRetryLimitParks(t *testing.T) {
	fs := newFakeStore()
	d := Deps{Store: fs, Log: zerolog.Nop()}
	task := newTask(t, behaviorErr, 0)

	// countStep embeds DefaultRetryPolicy (limit 0), so tried(0) is not
	// < limit(0) — it parks on the first error.
	Run[countStep](context.Background(), d, task)

	require.Len(t, fs.fails, 1)
	assert.Contains(t, fs.fails[0].errMsg, "boom")
}

func TestRun_PanicIsTreatedAsStepError(t *testing.T) {
	fs := newFakeStore()
	fs.failTried = 0
	fs.failDoc = []byte(`{"behavior":"panic"}`)
	d := Deps{Store: fs, Log: zerolog.Nop()}
	task := newTask(t, behaviorPanic, 0)

	require.NotPanics(t, func() {
		Run[countStep](context.Background(), d, task)
	})

	require.Len(t, fs.fails, 1)
	assert.Contains(t, fs.fails[0].errMsg, "step panicked")
}

func TestRun_DecodeErrorParks(t *testing.T) {
	fs := newFakeStore()
	d := Deps{Store: fs, Log: zerolog.Nop()}
	task := store.Task{ID: uuid.New(), Step: []byte(`not json`), Tried: 0, WakeupAt: time.Now()}

	Run[countStep](context.Background(), d, task)

	require.Len(t, fs.fails, 1)
	assert.Contains(t, fs.fails[0].errMsg, "decode step")
}

func TestRun_PublishesEventsWhenPublisherSet(t *testing.T) {
	fs := newFakeStore()
	pub := events.NewLocalPublisher()
	defer pub.Close()

	ch, err := pub.Subscribe(context.Background(), events.EventTaskComplete)
	require.NoError(t, err)

	d := Deps{Store: fs, Log: zerolog.Nop(), Publisher: pub}
	task := newTask(t, behaviorDone, 0)

	Run[countStep](context.Background(), d, task)

	select {
	case ev := <-ch:
		assert.Equal(t, events.EventTaskComplete, ev.Type)
		assert.Equal(t, task.ID.String(), ev.Data["task_id"])
	case <-time.After(time.Second):
		t.Fatal("expected a task.completed event")
	}
}

type retryableStep struct {
	Behavior string `json:"behavior"`
}

func (retryableStep) RetryLimit() int           { return 2 }
func (retryableStep) RetryDelay() time.Duration { return time.Millisecond }
func (s retryableStep) Step(ctx context.Context, h *core.Handle) (core.Outcome[retryableStep], error) {
	return core.Outcome[retryableStep]{}, errors.New("still failing")
}

func TestRun_RetriesUnderLimitThenParks(t *testing.T) {
	fs := newFakeStore()
	d := Deps{Store: fs, Log: zerolog.Nop()}

	task := store.Task{ID: uuid.New(), Step: []byte(`{"behavior":"x"}`), Tried: 0, WakeupAt: time.Now()}
	Run[retryableStep](context.Background(), d, task)
	require.Len(t, fs.retries, 1)
	require.Empty(t, fs.fails)

	task.Tried = 2 // at the limit now
	Run[retryableStep](context.Background(), d, task)
	require.Len(t, fs.fails, 1)
}
