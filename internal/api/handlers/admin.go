package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pgtask-dev/pgtask/internal/logger"
	"github.com/pgtask-dev/pgtask/internal/store"
)

// AdminHandler handles admin API requests over the Store: health, queue
// depth, and parked-task management.
type AdminHandler struct {
	store *store.Store
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(st *store.Store) *AdminHandler {
	return &AdminHandler{store: st}
}

// HealthCheck handles GET /admin/health
func (h *AdminHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		h.respondJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":   "unhealthy",
			"database": "disconnected",
			"error":    err.Error(),
		})
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "healthy",
		"database": "connected",
	})
}

// GetQueues handles GET /admin/queues
func (h *AdminHandler) GetQueues(w http.ResponseWriter, r *http.Request) {
	ready, err := h.store.CountReady(r.Context())
	if err != nil {
		logger.Error().Err(err).Msg("failed to count ready tasks")
		h.respondError(w, http.StatusInternalServerError, "failed to get queue statistics")
		return
	}

	parked, err := h.store.CountParked(r.Context())
	if err != nil {
		logger.Error().Err(err).Msg("failed to count parked tasks")
		h.respondError(w, http.StatusInternalServerError, "failed to get queue statistics")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"ready":  ready,
		"parked": parked,
	})
}

// ListParked handles GET /admin/parked
func (h *AdminHandler) ListParked(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.store.ListParked(r.Context(), 100)
	if err != nil {
		logger.Error().Err(err).Msg("failed to list parked tasks")
		h.respondError(w, http.StatusInternalServerError, "failed to list parked tasks")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"tasks": tasks,
		"count": len(tasks),
	})
}

// RetryParked handles POST /admin/parked/{taskID}/retry
func (h *AdminHandler) RetryParked(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseTaskID(w, r)
	if !ok {
		return
	}

	if err := h.store.RetryParked(r.Context(), id); err != nil {
		if err == store.ErrNotFound {
			h.respondError(w, http.StatusNotFound, "parked task not found")
			return
		}
		logger.Error().Err(err).Str("task_id", id.String()).Msg("failed to retry parked task")
		h.respondError(w, http.StatusInternalServerError, "failed to retry task")
		return
	}

	logger.Info().Str("task_id", id.String()).Msg("parked task retried manually")
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "task re-queued",
		"task_id": id.String(),
	})
}

// PurgeParked handles DELETE /admin/parked/{taskID}
func (h *AdminHandler) PurgeParked(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseTaskID(w, r)
	if !ok {
		return
	}

	if err := h.store.PurgeParked(r.Context(), id); err != nil {
		if err == store.ErrNotFound {
			h.respondError(w, http.StatusNotFound, "parked task not found")
			return
		}
		logger.Error().Err(err).Str("task_id", id.String()).Msg("failed to purge parked task")
		h.respondError(w, http.StatusInternalServerError, "failed to purge task")
		return
	}

	logger.Info().Str("task_id", id.String()).Msg("parked task purged")
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "task purged",
		"task_id": id.String(),
	})
}

func (h *AdminHandler) parseTaskID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "taskID")
	id, err := uuid.Parse(raw)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "task ID must be a valid uuid")
		return uuid.Nil, false
	}
	return id, true
}

func (h *AdminHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error().Err(err).Msg("failed to encode JSON response")
	}
}

func (h *AdminHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]interface{}{
		"error":   http.StatusText(status),
		"message": message,
	})
}
