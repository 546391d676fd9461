package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// AdminClient is a hand-rolled HTTP client for the pgtask admin API:
// task inspection, queue depth, and parked-task management, plus a
// WebSocket client for the real-time event feed. There is no generic
// task-creation endpoint to wrap — enqueueing is the Go-level
// pgtask.EnqueueNow/After/At call, not a REST operation.
type AdminClient struct {
	baseURL string
	opts    *options
	ws      *WebSocketClient
}

// New creates a new AdminClient.
func New(baseURL string, opts ...Option) (*AdminClient, error) {
	baseURL = strings.TrimSuffix(baseURL, "/")

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	return &AdminClient{baseURL: baseURL, opts: o}, nil
}

// ConnectWebSocket establishes a WebSocket connection for real-time events.
func (c *AdminClient) ConnectWebSocket(ctx context.Context) error {
	if c.ws != nil && c.ws.IsConnected() {
		return nil
	}
	c.ws = newWebSocketClient(c.baseURL, c.opts.apiKey)
	return c.ws.Connect(ctx)
}

// Events returns a channel that receives WebSocket events.
// Must call ConnectWebSocket first.
func (c *AdminClient) Events() <-chan *Event {
	if c.ws == nil {
		ch := make(chan *Event)
		close(ch)
		return ch
	}
	return c.ws.Events()
}

// CloseWebSocket closes the WebSocket connection.
func (c *AdminClient) CloseWebSocket() error {
	if c.ws == nil {
		return nil
	}
	return c.ws.Close()
}

// SubscribeEvents sends a subscription request for specific event
// types. The admin server logs such requests without applying them, so
// the connection keeps receiving every event type.
func (c *AdminClient) SubscribeEvents(eventTypes ...EventType) error {
	if c.ws == nil {
		return fmt.Errorf("websocket not connected")
	}
	return c.ws.Subscribe(eventTypes...)
}

// TaskResponse mirrors the admin API's JSON view of a pg_task row.
type TaskResponse struct {
	ID        string          `json:"id"`
	Step      json.RawMessage `json:"step"`
	Tried     int             `json:"tried"`
	WakeupAt  string          `json:"wakeup_at"`
	IsRunning bool            `json:"is_running"`
	Error     *string         `json:"error,omitempty"`
	UpdatedAt string          `json:"updated_at"`
	Status    string          `json:"status"`
}

// QueueStats is the response body of GET /admin/queues.
type QueueStats struct {
	Ready  int64 `json:"ready"`
	Parked int64 `json:"parked"`
}

// HealthResponse is the response body of GET /admin/health.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Error    string `json:"error,omitempty"`
}

// ParkedList is the response body of GET /admin/parked.
type ParkedList struct {
	Tasks []TaskResponse `json:"tasks"`
	Count int            `json:"count"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// GetTask retrieves a task by its ID.
func (c *AdminClient) GetTask(ctx context.Context, taskID string) (*TaskResponse, error) {
	var out TaskResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/tasks/"+taskID, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetQueueStatistics returns the current ready/parked task counts.
func (c *AdminClient) GetQueueStatistics(ctx context.Context) (*QueueStats, error) {
	var out QueueStats
	if err := c.doJSON(ctx, http.MethodGet, "/admin/queues", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CheckHealth checks the health of the admin API server.
func (c *AdminClient) CheckHealth(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	if err := c.doJSON(ctx, http.MethodGet, "/admin/health", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListParkedTasks returns the currently parked tasks.
func (c *AdminClient) ListParkedTasks(ctx context.Context) (*ParkedList, error) {
	var out ParkedList
	if err := c.doJSON(ctx, http.MethodGet, "/admin/parked", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RetryParkedTask clears a parked task's error and resets its retry
// count so the dispatcher picks it up again.
func (c *AdminClient) RetryParkedTask(ctx context.Context, taskID string) error {
	return c.doJSON(ctx, http.MethodPost, "/admin/parked/"+taskID+"/retry", nil)
}

// PurgeParkedTask permanently removes a parked task.
func (c *AdminClient) PurgeParkedTask(ctx context.Context, taskID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/admin/parked/"+taskID, nil)
}

func (c *AdminClient) doJSON(ctx context.Context, method, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.opts.apiKey != "" {
		req.Header.Set("X-API-Key", c.opts.apiKey)
	}
	for k, v := range c.opts.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.opts.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Message != "" {
			return fmt.Errorf("%s: %s", resp.Status, errResp.Message)
		}
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
