package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgtask-dev/pgtask/internal/logger"
	"github.com/pgtask-dev/pgtask/internal/store"
)

func init() {
	logger.Init("error", false)
}

func TestTaskHandler_respondJSON(t *testing.T) {
	h := &TaskHandler{}

	w := httptest.NewRecorder()
	data := map[string]string{"message": "hello"}

	h.respondJSON(w, http.StatusOK, data)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var response map[string]string
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, "hello", response["message"])
}

func TestTaskHandler_respondError(t *testing.T) {
	h := &TaskHandler{}

	w := httptest.NewRecorder()
	h.respondError(w, http.StatusBadRequest, "invalid input")

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, "Bad Request", response.Error)
	assert.Equal(t, "invalid input", response.Message)
}

func TestTaskHandler_Get_InvalidID(t *testing.T) {
	h := &TaskHandler{}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks/not-a-uuid", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("taskID", "not-a-uuid")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	w := httptest.NewRecorder()

	h.Get(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Contains(t, response.Message, "uuid")
}

func TestErrorResponse_Struct(t *testing.T) {
	resp := ErrorResponse{
		Error:   "Not Found",
		Message: "task not found",
	}

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded ErrorResponse
	err = json.Unmarshal(data, &decoded)
	require.NoError(t, err)

	assert.Equal(t, resp.Error, decoded.Error)
	assert.Equal(t, resp.Message, decoded.Message)
}

func TestToTaskResponse_Ready(t *testing.T) {
	id := uuid.New()
	now := time.Now().UTC()
	detail := &store.TaskDetail{
		ID:        id,
		Step:      []byte(`{"stage":"first"}`),
		Tried:     0,
		WakeupAt:  now,
		IsRunning: false,
		Error:     nil,
		UpdatedAt: now,
	}

	resp := toTaskResponse(detail)

	assert.Equal(t, id.String(), resp.ID)
	assert.Equal(t, "ready", resp.Status)
	assert.Nil(t, resp.Error)
	assert.JSONEq(t, `{"stage":"first"}`, string(resp.Step))
}

func TestToTaskResponse_Running(t *testing.T) {
	detail := &store.TaskDetail{
		ID:        uuid.New(),
		Step:      []byte(`{}`),
		IsRunning: true,
		WakeupAt:  time.Now(),
		UpdatedAt: time.Now(),
	}

	resp := toTaskResponse(detail)

	assert.Equal(t, "running", resp.Status)
}

func TestToTaskResponse_Parked(t *testing.T) {
	errMsg := "boom"
	detail := &store.TaskDetail{
		ID:        uuid.New(),
		Step:      []byte(`{}`),
		Tried:     3,
		Error:     &errMsg,
		WakeupAt:  time.Now(),
		UpdatedAt: time.Now(),
	}

	resp := toTaskResponse(detail)

	assert.Equal(t, "parked", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "boom", *resp.Error)
}
