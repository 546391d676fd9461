package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pgtask-dev/pgtask/internal/logger"
	"github.com/pgtask-dev/pgtask/internal/store"
)

// TaskHandler exposes read-only task inspection over the Store. The
// admin API has no compile-time knowledge of any Step[S] type, so it
// can only report a task's raw persisted state, not decode or
// re-enqueue it — producing tasks is the Go-level Enqueue API
// (pgtask.EnqueueNow/After/At), not a REST endpoint.
type TaskHandler struct {
	store *store.Store
}

// NewTaskHandler creates a new task handler.
func NewTaskHandler(st *store.Store) *TaskHandler {
	return &TaskHandler{store: st}
}

// TaskResponse is the JSON view of a pg_task row.
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

func toTaskResponse(d *store.TaskDetail) TaskResponse {
	status := "ready"
	switch {
	case d.Error != nil:
		status = "parked"
	case d.IsRunning:
		status = "running"
	}
	return TaskResponse{
		ID:        d.ID.String(),
		Step:      json.RawMessage(d.Step),
		Tried:     d.Tried,
		WakeupAt:  d.WakeupAt.Format("2006-01-02T15:04:05.000Z07:00"),
		IsRunning: d.IsRunning,
		Error:     d.Error,
		UpdatedAt: d.UpdatedAt.Format("2006-01-02T15:04:05.000Z07:00"),
		Status:    status,
	}
}

// Get handles GET /api/v1/tasks/{taskID}
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "taskID")
	id, err := uuid.Parse(raw)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "task ID must be a valid uuid")
		return
	}

	detail, err := h.store.GetTask(r.Context(), id)
	if err != nil {
		if err == store.ErrNotFound {
			h.respondError(w, http.StatusNotFound, "task not found")
			return
		}
		logger.Error().Err(err).Str("task_id", id.String()).Msg("failed to get task")
		h.respondError(w, http.StatusInternalServerError, "failed to get task")
		return
	}

	h.respondJSON(w, http.StatusOK, toTaskResponse(detail))
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (h *TaskHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error().Err(err).Msg("failed to encode JSON response")
	}
}

func (h *TaskHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
}
