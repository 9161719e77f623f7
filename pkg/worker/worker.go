package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-collections/collections/queue"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dreylabs/drey/pkg/events"
	"github.com/dreylabs/drey/pkg/log"
	"github.com/dreylabs/drey/pkg/metrics"
	"github.com/dreylabs/drey/pkg/runtime"
	"github.com/dreylabs/drey/pkg/stats"
	"github.com/dreylabs/drey/pkg/store"
	"github.com/dreylabs/drey/pkg/task"
)

// loopPeriod is the sleep between iterations of the background loops.
const loopPeriod = 5 * time.Second

// Worker owns a queue of incoming tasks and the authoritative database of
// task records on this node. A single mutex serializes the queue, the task
// counter and each reconciliation step across HTTP handlers and background
// loops; database reads (GetTasks, Task) go through the store's own lock.
type Worker struct {
	name string

	mu        sync.Mutex
	queue     *queue.Queue
	db        *store.TaskStore
	taskCount uint64

	runtime runtime.Factory
	broker  *events.Broker
	logger  zerolog.Logger
}

// Config holds worker construction options.
type Config struct {
	// Name identifies the worker in logs and events
	Name string

	// Runtime builds the container runtime for each task operation.
	// Defaults to the Docker client factory.
	Runtime runtime.Factory

	// Broker receives task lifecycle events when non-nil
	Broker *events.Broker
}

// New creates a worker.
func New(cfg Config) *Worker {
	rt := cfg.Runtime
	if rt == nil {
		rt = runtime.DockerFactory
	}

	return &Worker{
		name:    cfg.Name,
		queue:   queue.New(),
		db:      store.NewTaskStore(),
		runtime: rt,
		broker:  cfg.Broker,
		logger:  log.WithComponent("worker"),
	}
}

// Name returns the worker's identifier.
func (w *Worker) Name() string {
	return w.name
}

// AddTask enqueues a task at the tail of the queue.
func (w *Worker) AddTask(t *task.Task) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.queue.Enqueue(t)
	w.taskCount++
	metrics.TasksQueued.Set(float64(w.queue.Len()))
}

// GetTasks returns a snapshot of the task database in unspecified order.
func (w *Worker) GetTasks() []*task.Task {
	return w.db.List()
}

// Task returns a copy of the persisted record for id, if present.
func (w *Worker) Task(id uuid.UUID) (*task.Task, bool) {
	return w.db.Get(id)
}

// TaskCount returns the number of tasks ever enqueued on this worker.
func (w *Worker) TaskCount() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.taskCount
}

// QueueLen returns the number of tasks waiting in the queue.
func (w *Worker) QueueLen() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.queue.Len()
}

// CollectStats refreshes host info and returns a stats sample.
func (w *Worker) CollectStats() stats.SystemStats {
	return stats.Collect(w.TaskCount())
}

// RunTask consumes the head of the queue and drives one reconciliation
// step: validate the requested transition against the persisted record,
// invoke the runtime, and reflect the result into the database.
func (w *Worker) RunTask(ctx context.Context) (*runtime.Response, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.queue.Len() == 0 {
		return nil, wrapRuntimeErr(ErrNoTasksInQueue)
	}

	queued := w.queue.Dequeue().(*task.Task)
	metrics.TasksQueued.Set(float64(w.queue.Len()))

	persisted, ok := w.db.Get(queued.ID)
	if !ok {
		w.db.Put(queued)
		persisted = queued
	}

	if !task.ValidStateTransition(persisted.State, queued.State) {
		err := fmt.Errorf("%w: task %s cannot move from %s to %s",
			ErrInvalidStateTransition, queued.ID, persisted.State, queued.State)
		return nil, wrapRuntimeErr(err)
	}

	switch queued.State {
	case task.Scheduled:
		return w.startTask(ctx, queued)
	case task.Completed:
		return w.stopTask(ctx, queued)
	default:
		err := fmt.Errorf("%w: task %s requested unhandled state %s",
			ErrInvalidStateTransition, queued.ID, queued.State)
		return nil, wrapRuntimeErr(err)
	}
}

// startTask drives a Scheduled task into Running via the runtime.
func (w *Worker) startTask(ctx context.Context, t *task.Task) (*runtime.Response, error) {
	now := time.Now()
	t.StartTime = &now

	cfg := task.NewConfig(t)

	rt, err := w.runtime()
	if err != nil {
		return nil, wrapRuntimeErr(fmt.Errorf("%w: %v", ErrDockerClient, err))
	}
	defer rt.Close()

	resp, err := rt.Run(ctx, cfg)
	if err != nil {
		t.State = task.Failed
		w.db.Put(t)
		w.publish(events.EventTaskFailed, t, err.Error())
		return nil, fmt.Errorf("start task %s: %w", t.ID, err)
	}

	finished := time.Now()
	t.FinishTime = &finished
	t.State = task.Running
	t.ContainerID = resp.ContainerID
	w.db.Put(t)
	w.publish(events.EventTaskStarted, t, resp.ContainerID)

	w.logger.Info().
		Str("task_id", t.ID.String()).
		Str("container_id", resp.ContainerID).
		Msg("Task started")
	return resp, nil
}

// stopTask drives a task into Completed by stopping its container.
func (w *Worker) stopTask(ctx context.Context, t *task.Task) (*runtime.Response, error) {
	rt, err := w.runtime()
	if err != nil {
		return nil, wrapRuntimeErr(fmt.Errorf("%w: %v", ErrDockerClient, err))
	}
	defer rt.Close()

	if t.ContainerID == "" {
		return nil, wrapRuntimeErr(fmt.Errorf("%w: task %s has no container", ErrDockerClient, t.ID))
	}

	resp, err := rt.Stop(ctx, t.ContainerID)
	if err != nil {
		return nil, fmt.Errorf("stop task %s: %w", t.ID, err)
	}

	now := time.Now()
	t.State = task.Completed
	t.FinishTime = &now
	w.db.Put(t)
	w.publish(events.EventTaskCompleted, t, resp.ContainerID)

	w.logger.Info().
		Str("task_id", t.ID.String()).
		Str("container_id", resp.ContainerID).
		Msg("Task stopped")
	return resp, nil
}

// RunTasks is the background reconciliation loop. Each period it executes
// one queued task if any is waiting, logging the outcome and continuing on
// error. It exits at the next iteration boundary once ctx is done.
func (w *Worker) RunTasks(ctx context.Context) {
	ticker := time.NewTicker(loopPeriod)
	defer ticker.Stop()

	w.logger.Info().Msg("Run loop started")

	for {
		select {
		case <-ticker.C:
			if w.QueueLen() == 0 {
				w.logger.Debug().Msg("No tasks in queue")
				continue
			}

			if _, err := w.RunTask(ctx); err != nil {
				metrics.TaskRunsTotal.WithLabelValues("error").Inc()
				w.logger.Error().Err(err).Msg("Task run failed")
			} else {
				metrics.TaskRunsTotal.WithLabelValues("ok").Inc()
				w.logger.Info().Msg("Task run succeeded")
			}
			w.updateTaskGauges()

		case <-ctx.Done():
			w.logger.Info().Msg("Run loop stopped")
			return
		}
	}
}

// CollectStatsLoop periodically refreshes host telemetry.
func (w *Worker) CollectStatsLoop(ctx context.Context) {
	ticker := time.NewTicker(loopPeriod)
	defer ticker.Stop()

	w.logger.Info().Msg("Stats loop started")

	for {
		select {
		case <-ticker.C:
			s := w.CollectStats()
			w.logger.Debug().
				Float64("cpu_usage", s.CPUUsage).
				Uint64("used_memory_mb", s.UsedMemory).
				Uint64("task_count", s.TaskCount).
				Msg("Collected stats")

		case <-ctx.Done():
			w.logger.Info().Msg("Stats loop stopped")
			return
		}
	}
}

func (w *Worker) updateTaskGauges() {
	counts := map[task.State]int{}
	for _, t := range w.db.List() {
		counts[t.State]++
	}
	for _, s := range []task.State{task.Pending, task.Scheduled, task.Running, task.Completed, task.Failed} {
		metrics.TasksTotal.WithLabelValues(s.String()).Set(float64(counts[s]))
	}
}

func (w *Worker) publish(eventType events.Type, t *task.Task, message string) {
	if w.broker == nil {
		return
	}
	w.broker.Publish(&events.Event{
		Type:    eventType,
		TaskID:  t.ID.String(),
		Worker:  w.name,
		Message: message,
	})
}

// wrapRuntimeErr attaches the runtime client marker to worker errors that
// surface through runtime-returning operations.
func wrapRuntimeErr(err error) error {
	if errors.Is(err, runtime.ErrClient) {
		return err
	}
	return fmt.Errorf("%w: %w", runtime.ErrClient, err)
}
