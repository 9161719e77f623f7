package manager

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreylabs/drey/pkg/task"
)

func postJSON(t *testing.T, api *API, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	api.Router().ServeHTTP(rec, req)
	return rec
}

func TestSubmitTaskDispatchesToWorker(t *testing.T) {
	worker := newFakeWorker(t)
	m := New(Config{Workers: []string{worker.endpoint()}})
	api := NewAPI(m, "localhost:0")

	event := scheduledEvent("submitted")
	rec := postJSON(t, api, "/tasks", event)

	require.Equal(t, http.StatusCreated, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, event.TaskID.String(), body["task_id"])
	assert.Equal(t, worker.endpoint(), body["worker"])

	require.Len(t, worker.receivedEvents(), 1)
	assert.Len(t, m.Tasks(), 1)
}

func TestSubmitTaskValidation(t *testing.T) {
	worker := newFakeWorker(t)
	m := New(Config{Workers: []string{worker.endpoint()}})
	api := NewAPI(m, "localhost:0")

	tests := []struct {
		name  string
		event *task.Event
	}{
		{
			name: "missing image",
			event: &task.Event{
				TaskID: uuid.New(),
				Type:   "scheduled",
				Task:   task.Task{ID: uuid.New(), Name: "imageless", State: task.Scheduled},
			},
		},
		{
			name: "missing task id",
			event: &task.Event{
				TaskID: uuid.New(),
				Type:   "scheduled",
				Task:   task.Task{Name: "idless", State: task.Scheduled, Image: "nginx"},
			},
		},
		{
			name:  "missing everything",
			event: &task.Event{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, api, "/tasks", tt.event)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}

	assert.Empty(t, worker.receivedEvents())
	assert.Empty(t, m.Tasks())
}

func TestSubmitTaskRejectsUnknownState(t *testing.T) {
	worker := newFakeWorker(t)
	m := New(Config{Workers: []string{worker.endpoint()}})
	api := NewAPI(m, "localhost:0")

	payload := map[string]any{
		"task_id":    uuid.New().String(),
		"event_type": "scheduled",
		"task": map[string]any{
			"id":    uuid.New().String(),
			"name":  "weird",
			"state": "Imaginary",
			"image": "nginx:latest",
		},
	}

	rec := postJSON(t, api, "/tasks", payload)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetTasksAndWorkers(t *testing.T) {
	worker := newFakeWorker(t)
	endpoint := worker.endpoint()
	m := New(Config{Workers: []string{endpoint}})
	api := NewAPI(m, "localhost:0")

	event := scheduledEvent("listed")
	rec := postJSON(t, api, "/tasks", event)
	require.Equal(t, http.StatusCreated, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	getRec := httptest.NewRecorder()
	api.Router().ServeHTTP(getRec, req)

	require.Equal(t, http.StatusOK, getRec.Code)
	var tasks []*task.Task
	require.NoError(t, json.Unmarshal(getRec.Body.Bytes(), &tasks))
	require.Len(t, tasks, 1)
	assert.Equal(t, event.TaskID, tasks[0].ID)

	req = httptest.NewRequest(http.MethodGet, "/workers", nil)
	workersRec := httptest.NewRecorder()
	api.Router().ServeHTTP(workersRec, req)

	require.Equal(t, http.StatusOK, workersRec.Code)
	var workers map[string][]string
	require.NoError(t, json.Unmarshal(workersRec.Body.Bytes(), &workers))
	assert.Equal(t, []string{endpoint}, workers["workers"])
}
