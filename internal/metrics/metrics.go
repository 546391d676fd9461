// Package metrics exposes Prometheus instrumentation for the task
// runner: dispatch/executor throughput, queue depth, and the admin
// API's HTTP and WebSocket surfaces.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Task metrics
	TasksEnqueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgtask_tasks_enqueued_total",
			Help: "Total number of tasks enqueued",
		},
		[]string{"step_type"},
	)

	TasksCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgtask_tasks_completed_total",
			Help: "Total number of tasks completed",
		},
		[]string{"step_type"},
	)

	TasksParked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgtask_tasks_parked_total",
			Help: "Total number of tasks parked due to a step or decode error",
		},
		[]string{"step_type"},
	)

	StepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pgtask_step_duration_seconds",
			Help:    "Step execution duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~16s
		},
		[]string{"step_type"},
	)

	TaskRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgtask_task_retries_total",
			Help: "Total number of step retries",
		},
		[]string{"step_type"},
	)

	// Queue metrics
	QueueReady = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pgtask_queue_ready",
			Help: "Current number of tasks eligible for dispatch",
		},
	)

	QueueParked = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pgtask_queue_parked",
			Help: "Current number of parked tasks",
		},
	)

	// Worker/dispatcher metrics
	ActiveExecutors = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pgtask_active_executors",
			Help: "Current number of in-flight step executors",
		},
	)

	DispatcherReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pgtask_dispatcher_reconnects_total",
			Help: "Total number of times the dispatcher re-probed the database after a connectivity loss",
		},
	)

	NotifierReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pgtask_notifier_reconnects_total",
			Help: "Total number of times the change notifier re-established its LISTEN subscription",
		},
	)

	// HTTP metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pgtask_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgtask_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// WebSocket metrics
	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pgtask_websocket_connections",
			Help: "Current number of WebSocket connections",
		},
	)

	WebSocketMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgtask_websocket_messages_total",
			Help: "Total number of WebSocket messages sent",
		},
		[]string{"type"},
	)
)

// RecordEnqueue records a task being enqueued.
func RecordEnqueue(stepType string) {
	TasksEnqueued.WithLabelValues(stepType).Inc()
}

// RecordCompletion records a step-to-completion transition and its
// duration.
func RecordCompletion(stepType string, duration float64) {
	TasksCompleted.WithLabelValues(stepType).Inc()
	StepDuration.WithLabelValues(stepType).Observe(duration)
}

// RecordParked records a task being parked.
func RecordParked(stepType string, duration float64) {
	TasksParked.WithLabelValues(stepType).Inc()
	StepDuration.WithLabelValues(stepType).Observe(duration)
}

// RecordRetry records a step retry.
func RecordRetry(stepType string, duration float64) {
	TaskRetries.WithLabelValues(stepType).Inc()
	StepDuration.WithLabelValues(stepType).Observe(duration)
}

// SetQueueDepth updates the ready/parked gauges from a poll of the store.
func SetQueueDepth(ready, parked int) {
	QueueReady.Set(float64(ready))
	QueueParked.Set(float64(parked))
}

// SetActiveExecutors sets the in-flight executor gauge.
func SetActiveExecutors(n int) {
	ActiveExecutors.Set(float64(n))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration)
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
}

// SetWebSocketConnections sets the WebSocket connections gauge.
func SetWebSocketConnections(count int) {
	WebSocketConnections.Set(float64(count))
}

// RecordWebSocketMessage records a WebSocket message.
func RecordWebSocketMessage(msgType string) {
	WebSocketMessages.WithLabelValues(msgType).Inc()
}
