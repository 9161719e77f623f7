package manager

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreylabs/drey/pkg/task"
)

// fakeWorker is an httptest stand-in for a worker endpoint. It records
// received events and serves a canned task list.
type fakeWorker struct {
	srv *httptest.Server

	mu       sync.Mutex
	received []task.Event
	tasks    []*task.Task
}

func newFakeWorker(t *testing.T) *fakeWorker {
	t.Helper()
	f := &fakeWorker{}

	mux := http.NewServeMux()
	mux.HandleFunc("/tasks", func(w http.ResponseWriter, r *http.Request) {
		f.handle(w, r)
	})
	mux.HandleFunc("/tasks/", func(w http.ResponseWriter, r *http.Request) {
		f.handle(w, r)
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeWorker) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method {
	case http.MethodPost:
		var event task.Event
		if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.received = append(f.received, event)
		w.WriteHeader(http.StatusCreated)
	case http.MethodGet:
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(f.tasks)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeWorker) endpoint() string {
	return strings.TrimPrefix(f.srv.URL, "http://")
}

func (f *fakeWorker) receivedEvents() []task.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]task.Event(nil), f.received...)
}

func (f *fakeWorker) setTasks(tasks []*task.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = tasks
}

func scheduledEvent(name string) *task.Event {
	t := &task.Task{
		ID:    uuid.New(),
		Name:  name,
		State: task.Scheduled,
		Image: "hello-world:latest",
	}
	return NewEvent(t, "scheduled")
}

func TestSelectWorkerRoundRobinSequence(t *testing.T) {
	m := New(Config{Workers: []string{"a:1", "b:2", "c:3"}})

	var got []string
	for i := 0; i < 4; i++ {
		w, err := m.SelectWorker()
		require.NoError(t, err)
		got = append(got, w)
	}

	// Cursor starts at 0 and advances before returning, wrapping after
	// the last index.
	assert.Equal(t, []string{"b:2", "c:3", "a:1", "b:2"}, got)
}

func TestSelectWorkerEmptyPool(t *testing.T) {
	m := New(Config{})

	_, err := m.SelectWorker()
	assert.ErrorIs(t, err, ErrNoWorkersAvailable)
}

func TestSendWorkEmptyPendingIsNoOp(t *testing.T) {
	worker := newFakeWorker(t)
	m := New(Config{Workers: []string{worker.endpoint()}})

	require.NoError(t, m.SendWork(context.Background()))
	assert.Empty(t, worker.receivedEvents())
	assert.Empty(t, m.Events())
}

func TestSendWorkHappyPath(t *testing.T) {
	worker := newFakeWorker(t)
	endpoint := worker.endpoint()
	m := New(Config{Workers: []string{endpoint}})

	event := scheduledEvent("dispatchee")
	m.AddTask(event)
	require.Equal(t, 1, m.PendingCount())

	require.NoError(t, m.SendWork(context.Background()))
	assert.Zero(t, m.PendingCount())

	// Event log records the dispatch.
	events := m.Events()
	require.Len(t, events, 1)
	assert.Equal(t, event.TaskID, events[0].TaskID)

	// Assignment indices agree in both directions.
	assigned, ok := m.TaskWorker(event.TaskID)
	require.True(t, ok)
	assert.Equal(t, endpoint, assigned)
	assert.Equal(t, []uuid.UUID{event.TaskID}, m.WorkerTasks(endpoint))

	// Task db holds the dispatched snapshot.
	tasks := m.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, task.Scheduled, tasks[0].State)

	// The worker received the event body.
	received := worker.receivedEvents()
	require.Len(t, received, 1)
	assert.Equal(t, event.TaskID, received[0].TaskID)
	assert.Equal(t, "dispatchee", received[0].Task.Name)
}

// Dispatch is LIFO: SendWork pops the tail of pending.
func TestSendWorkPopsTail(t *testing.T) {
	worker := newFakeWorker(t)
	m := New(Config{Workers: []string{worker.endpoint()}})

	first := scheduledEvent("first")
	second := scheduledEvent("second")
	m.AddTask(first)
	m.AddTask(second)

	require.NoError(t, m.SendWork(context.Background()))

	received := worker.receivedEvents()
	require.Len(t, received, 1)
	assert.Equal(t, second.TaskID, received[0].TaskID)
	assert.Equal(t, 1, m.PendingCount())
}

// A send failure surfaces as an error but the indices stay updated; the
// reconciler is the convergence mechanism, not rollback.
func TestSendWorkFailureKeepsIndices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	endpoint := strings.TrimPrefix(srv.URL, "http://")

	m := New(Config{Workers: []string{endpoint}})

	event := scheduledEvent("unlucky")
	m.AddTask(event)

	err := m.SendWork(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWorkerCommunication)

	_, ok := m.TaskWorker(event.TaskID)
	assert.True(t, ok, "indices survive a failed send")
	require.Len(t, m.Events(), 1)
	assert.Zero(t, m.PendingCount(), "event is not re-enqueued")
}

func TestSendWorkUnreachableWorkerIsNetworkError(t *testing.T) {
	m := New(Config{Workers: []string{"127.0.0.1:1"}})

	m.AddTask(scheduledEvent("lost"))

	err := m.SendWork(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestUpdateTasksFoldsInRemoteState(t *testing.T) {
	worker := newFakeWorker(t)
	m := New(Config{Workers: []string{worker.endpoint()}})

	event := scheduledEvent("tracked")
	m.AddTask(event)
	require.NoError(t, m.SendWork(context.Background()))

	started := time.Now().Add(-time.Minute)
	finished := time.Now()
	remote := event.Task
	remote.State = task.Running
	remote.ContainerID = "container-42"
	remote.StartTime = &started
	remote.FinishTime = &finished
	worker.setTasks([]*task.Task{&remote})

	require.NoError(t, m.UpdateTasks(context.Background()))

	tasks := m.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, task.Running, tasks[0].State)
	assert.Equal(t, "container-42", tasks[0].ContainerID)
	require.NotNil(t, tasks[0].StartTime)
	assert.WithinDuration(t, started, *tasks[0].StartTime, time.Second)
}

// When the remote state matches the local state the record is untouched,
// even though the remote carries fresher runtime fields.
func TestUpdateTasksIgnoresUnchangedState(t *testing.T) {
	worker := newFakeWorker(t)
	m := New(Config{Workers: []string{worker.endpoint()}})

	event := scheduledEvent("static")
	m.AddTask(event)
	require.NoError(t, m.SendWork(context.Background()))

	remote := event.Task
	remote.ContainerID = "container-ignored"
	worker.setTasks([]*task.Task{&remote})

	require.NoError(t, m.UpdateTasks(context.Background()))

	tasks := m.Tasks()
	require.Len(t, tasks, 1)
	assert.Empty(t, tasks[0].ContainerID)
}

func TestUpdateTasksIgnoresUnknownTasks(t *testing.T) {
	worker := newFakeWorker(t)
	m := New(Config{Workers: []string{worker.endpoint()}})

	worker.setTasks([]*task.Task{{
		ID:    uuid.New(),
		Name:  "stranger",
		State: task.Running,
		Image: "nginx:latest",
	}})

	require.NoError(t, m.UpdateTasks(context.Background()))
	assert.Empty(t, m.Tasks())
}

func TestUpdateTasksContinuesPastFailingWorker(t *testing.T) {
	dead := "127.0.0.1:1"
	alive := newFakeWorker(t)

	m := New(Config{Workers: []string{dead, alive.endpoint()}})

	event := scheduledEvent("survivor")
	m.AddTask(event)

	// Dispatch lands on the live worker (cursor starts at 0, first
	// selection is index 1).
	require.NoError(t, m.SendWork(context.Background()))

	remote := event.Task
	remote.State = task.Running
	remote.ContainerID = "container-7"
	alive.setTasks([]*task.Task{&remote})

	err := m.UpdateTasks(context.Background())
	require.Error(t, err, "the dead worker still reports its failure")

	tasks := m.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, task.Running, tasks[0].State, "live worker state still folded in")
}
