package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetricsRegistration(t *testing.T) {
	// promauto already registers these at package init; just verify
	// they exist and are usable.
	assert.NotNil(t, TasksEnqueued)
	assert.NotNil(t, TasksCompleted)
	assert.NotNil(t, TasksParked)
	assert.NotNil(t, StepDuration)
	assert.NotNil(t, TaskRetries)

	assert.NotNil(t, QueueReady)
	assert.NotNil(t, QueueParked)

	assert.NotNil(t, ActiveExecutors)
	assert.NotNil(t, DispatcherReconnects)
	assert.NotNil(t, NotifierReconnects)

	assert.NotNil(t, HTTPRequestDuration)
	assert.NotNil(t, HTTPRequestsTotal)

	assert.NotNil(t, WebSocketConnections)
	assert.NotNil(t, WebSocketMessages)
}

func TestRecordEnqueue(t *testing.T) {
	TasksEnqueued.Reset()

	RecordEnqueue("order.charge")
	RecordEnqueue("order.charge")
	RecordEnqueue("order.ship")

	assert.Equal(t, float64(2), testCounterValue(t, TasksEnqueued.WithLabelValues("order.charge")))
	assert.Equal(t, float64(1), testCounterValue(t, TasksEnqueued.WithLabelValues("order.ship")))
}

func TestRecordCompletion(t *testing.T) {
	TasksCompleted.Reset()
	StepDuration.Reset()

	RecordCompletion("order.ship", 0.05)
	RecordCompletion("order.ship", 0.1)

	assert.Equal(t, float64(2), testCounterValue(t, TasksCompleted.WithLabelValues("order.ship")))
}

func TestRecordParked(t *testing.T) {
	TasksParked.Reset()

	RecordParked("order.charge", 0.01)

	assert.Equal(t, float64(1), testCounterValue(t, TasksParked.WithLabelValues("order.charge")))
}

func TestRecordRetry(t *testing.T) {
	TaskRetries.Reset()

	RecordRetry("order.charge", 0.2)
	RecordRetry("order.charge", 0.2)

	assert.Equal(t, float64(2), testCounterValue(t, TaskRetries.WithLabelValues("order.charge")))
}

func TestSetQueueDepth(t *testing.T) {
	SetQueueDepth(42, 3)

	assert.Equal(t, float64(42), testGaugeValue(t, QueueReady))
	assert.Equal(t, float64(3), testGaugeValue(t, QueueParked))
}

func TestSetActiveExecutors(t *testing.T) {
	SetActiveExecutors(5)
	assert.Equal(t, float64(5), testGaugeValue(t, ActiveExecutors))

	SetActiveExecutors(0)
	assert.Equal(t, float64(0), testGaugeValue(t, ActiveExecutors))
}

func TestRecordHTTPRequest(t *testing.T) {
	HTTPRequestDuration.Reset()
	HTTPRequestsTotal.Reset()

	RecordHTTPRequest("GET", "/admin/tasks", "200", 0.05)
	RecordHTTPRequest("POST", "/admin/parked/retry", "204", 0.1)

	assert.Equal(t, float64(1), testCounterValue(t, HTTPRequestsTotal.WithLabelValues("GET", "/admin/tasks", "200")))
}

func TestSetWebSocketConnections(t *testing.T) {
	SetWebSocketConnections(0)
	SetWebSocketConnections(10)

	assert.Equal(t, float64(10), testGaugeValue(t, WebSocketConnections))
}

func TestRecordWebSocketMessage(t *testing.T) {
	WebSocketMessages.Reset()

	RecordWebSocketMessage("task.completed")
	RecordWebSocketMessage("task.parked")

	assert.Equal(t, float64(1), testCounterValue(t, WebSocketMessages.WithLabelValues("task.completed")))
}
