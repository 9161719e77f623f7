package store

import (
	"sync"

	"github.com/google/uuid"

	"github.com/dreylabs/drey/pkg/task"
)

// TaskStore holds task records keyed by task id.
type TaskStore struct {
	mu    sync.RWMutex
	tasks map[uuid.UUID]task.Task
}

// NewTaskStore creates an empty task store.
func NewTaskStore() *TaskStore {
	return &TaskStore{tasks: make(map[uuid.UUID]task.Task)}
}

// Put inserts or replaces the record for t.ID.
func (s *TaskStore) Put(t *task.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.ID] = *t
}

// Get returns a copy of the record for id, if present.
func (s *TaskStore) Get(id uuid.UUID) (*task.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, false
	}
	return &t, true
}

// List returns a snapshot of all records in unspecified order.
func (s *TaskStore) List() []*task.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*task.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		t := t
		out = append(out, &t)
	}
	return out
}

// Len returns the number of records.
func (s *TaskStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

// EventStore holds dispatch events keyed by task id.
type EventStore struct {
	mu     sync.RWMutex
	events map[uuid.UUID]task.Event
}

// NewEventStore creates an empty event store.
func NewEventStore() *EventStore {
	return &EventStore{events: make(map[uuid.UUID]task.Event)}
}

// Put inserts or replaces the event for e.TaskID.
func (s *EventStore) Put(e *task.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[e.TaskID] = *e
}

// Get returns a copy of the event for id, if present.
func (s *EventStore) Get(id uuid.UUID) (*task.Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[id]
	if !ok {
		return nil, false
	}
	return &e, true
}

// List returns a snapshot of all events in unspecified order.
func (s *EventStore) List() []*task.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*task.Event, 0, len(s.events))
	for _, e := range s.events {
		e := e
		out = append(out, &e)
	}
	return out
}

// Len returns the number of events.
func (s *EventStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}
