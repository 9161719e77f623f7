package manager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dreylabs/drey/pkg/client"
	"github.com/dreylabs/drey/pkg/events"
	"github.com/dreylabs/drey/pkg/health"
	"github.com/dreylabs/drey/pkg/log"
	"github.com/dreylabs/drey/pkg/metrics"
	"github.com/dreylabs/drey/pkg/scheduler"
	"github.com/dreylabs/drey/pkg/store"
	"github.com/dreylabs/drey/pkg/task"
)

// Manager assigns tasks to workers and tracks every dispatch across three
// correlated indices: the event log, the per-worker task lists, and the
// task-to-worker assignment. A single mutex covers the index update batch
// so the indices never disagree after a dispatch.
type Manager struct {
	mu sync.Mutex

	// pending holds submitted events awaiting dispatch. Events append at
	// the tail and SendWork pops the tail, so dispatch order is LIFO.
	pending []*task.Event

	taskDB  *store.TaskStore
	eventDB *store.EventStore

	workers       []string
	workerTaskMap map[string][]uuid.UUID
	taskWorkerMap map[uuid.UUID]string

	rr     *scheduler.RoundRobin
	client *client.Client
	broker *events.Broker
	logger zerolog.Logger
}

// Config holds manager construction options.
type Config struct {
	// Workers is the static list of worker endpoints, host:port each
	Workers []string

	// Broker receives dispatch lifecycle events when non-nil
	Broker *events.Broker
}

// New creates a manager over the given worker pool.
func New(cfg Config) *Manager {
	workerTaskMap := make(map[string][]uuid.UUID, len(cfg.Workers))
	for _, w := range cfg.Workers {
		workerTaskMap[w] = nil
	}

	return &Manager{
		taskDB:        store.NewTaskStore(),
		eventDB:       store.NewEventStore(),
		workers:       append([]string(nil), cfg.Workers...),
		workerTaskMap: workerTaskMap,
		taskWorkerMap: make(map[uuid.UUID]string),
		rr:            scheduler.NewRoundRobin(),
		client:        client.New(),
		broker:        cfg.Broker,
		logger:        log.WithComponent("manager"),
	}
}

// Workers returns the configured worker endpoints.
func (m *Manager) Workers() []string {
	return append([]string(nil), m.workers...)
}

// Tasks returns a snapshot of the manager's task database.
func (m *Manager) Tasks() []*task.Task {
	return m.taskDB.List()
}

// Events returns a snapshot of the dispatch log.
func (m *Manager) Events() []*task.Event {
	return m.eventDB.List()
}

// TaskWorker returns the endpoint a task was dispatched to.
func (m *Manager) TaskWorker(id uuid.UUID) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.taskWorkerMap[id]
	return w, ok
}

// WorkerTasks returns the ids dispatched to an endpoint.
func (m *Manager) WorkerTasks(endpoint string) []uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]uuid.UUID(nil), m.workerTaskMap[endpoint]...)
}

// AddTask appends an event to the pending dispatch list.
func (m *Manager) AddTask(event *task.Event) {
	m.mu.Lock()
	m.pending = append(m.pending, event)
	metrics.PendingEvents.Set(float64(len(m.pending)))
	m.mu.Unlock()

	m.publish(events.EventTaskSubmitted, event.TaskID.String(), "", event.Type)
}

// SelectWorker advances the round-robin cursor and returns the selected
// endpoint. The cursor advances whether or not the subsequent send
// succeeds; a failed dispatch never rewinds the rotation.
func (m *Manager) SelectWorker() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selectWorkerLocked()
}

func (m *Manager) selectWorkerLocked() (string, error) {
	idx := m.rr.Next(len(m.workers))
	if idx < 0 {
		return "", ErrNoWorkersAvailable
	}
	return m.workers[idx], nil
}

// SendWork dispatches one pending event: select a worker, record the
// dispatch in all three indices atomically, then send the event. Indices
// are not rolled back on send failure; the periodic reconciler is the
// mechanism that reconverges manager state with reality.
func (m *Manager) SendWork(ctx context.Context) error {
	m.mu.Lock()

	if len(m.pending) == 0 {
		m.mu.Unlock()
		m.logger.Debug().Msg("No pending tasks to send")
		return nil
	}

	worker, err := m.selectWorkerLocked()
	if err != nil {
		m.mu.Unlock()
		return err
	}

	event := m.pending[len(m.pending)-1]
	m.pending = m.pending[:len(m.pending)-1]
	metrics.PendingEvents.Set(float64(len(m.pending)))

	m.eventDB.Put(event)
	m.workerTaskMap[worker] = append(m.workerTaskMap[worker], event.TaskID)
	m.taskWorkerMap[event.TaskID] = worker
	m.taskDB.Put(&event.Task)

	m.mu.Unlock()

	if err := m.client.SendEvent(ctx, worker, event); err != nil {
		metrics.DispatchesTotal.WithLabelValues("error").Inc()
		m.logger.Error().
			Err(err).
			Str("task_id", event.TaskID.String()).
			Str("worker", worker).
			Msg("Failed to send event")

		if errors.Is(err, client.ErrBadStatus) {
			return fmt.Errorf("%w: %v", ErrWorkerCommunication, err)
		}
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	metrics.DispatchesTotal.WithLabelValues("ok").Inc()
	m.publish(events.EventTaskDispatched, event.TaskID.String(), worker, event.Type)
	m.logger.Info().
		Str("task_id", event.TaskID.String()).
		Str("worker", worker).
		Msg("Event sent")
	return nil
}

// UpdateTasks polls every worker and folds observed task state back into
// the manager's database. Remote records unknown to the dispatch log are
// ignored; locally known tasks missing from a worker are never deleted.
func (m *Manager) UpdateTasks(ctx context.Context) error {
	var errs []error

	for _, worker := range m.workers {
		m.logger.Debug().Str("worker", worker).Msg("Checking worker")

		tasks, err := m.client.ListTasks(ctx, worker)
		if err != nil {
			m.logger.Error().Err(err).Str("worker", worker).Msg("Failed to fetch tasks")
			errs = append(errs, err)
			continue
		}

		for _, remote := range tasks {
			m.foldIn(remote)
		}
	}

	return errors.Join(errs...)
}

// foldIn overlays a remote task observation onto the local record. The
// merged record is installed only when the remote state differs from the
// local state.
func (m *Manager) foldIn(remote *task.Task) {
	if _, ok := m.eventDB.Get(remote.ID); !ok {
		return
	}

	local, ok := m.taskDB.Get(remote.ID)
	if !ok {
		return
	}

	if local.State == remote.State {
		return
	}

	merged := *local
	merged.ContainerID = remote.ContainerID
	merged.StartTime = remote.StartTime
	merged.FinishTime = remote.FinishTime
	merged.State = remote.State
	m.taskDB.Put(&merged)

	m.logger.Info().
		Str("task_id", remote.ID.String()).
		Str("state", remote.State.String()).
		Msg("Task updated from worker")
}

// CheckWorkers sweeps the pool's health endpoints and reports workers
// that cannot be reached. The pool is static, so the sweep is purely
// observational.
func (m *Manager) CheckWorkers(ctx context.Context) {
	for _, worker := range m.workers {
		checker := health.NewHTTPChecker(fmt.Sprintf("http://%s/healthz", worker))
		result := checker.Check(ctx)
		if result.Healthy {
			continue
		}

		m.logger.Warn().
			Str("worker", worker).
			Str("reason", result.Message).
			Dur("check_duration", result.Duration).
			Msg("Worker unreachable")
		m.publish(events.EventWorkerUnreachable, "", worker, result.Message)
	}
}

// PendingCount returns the number of events awaiting dispatch.
func (m *Manager) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// NewEvent builds a dispatch event around a task in its desired state.
func NewEvent(t *task.Task, eventType string) *task.Event {
	now := time.Now()
	return &task.Event{
		TaskID:    t.ID,
		Type:      eventType,
		Timestamp: &now,
		Task:      *t,
	}
}

func (m *Manager) publish(eventType events.Type, taskID, worker, message string) {
	if m.broker == nil {
		return
	}
	m.broker.Publish(&events.Event{
		Type:    eventType,
		TaskID:  taskID,
		Worker:  worker,
		Message: message,
	})
}
