package store

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreylabs/drey/pkg/task"
)

func TestTaskStorePutGet(t *testing.T) {
	s := NewTaskStore()
	id := uuid.New()

	_, ok := s.Get(id)
	assert.False(t, ok)

	s.Put(&task.Task{ID: id, Name: "web", State: task.Scheduled})

	got, ok := s.Get(id)
	require.True(t, ok)
	assert.Equal(t, "web", got.Name)
	assert.Equal(t, task.Scheduled, got.State)
	assert.Equal(t, 1, s.Len())
}

// Reads are snapshots: mutating a returned record never changes the store.
func TestTaskStoreSnapshotIsolation(t *testing.T) {
	s := NewTaskStore()
	id := uuid.New()
	s.Put(&task.Task{ID: id, Name: "web", State: task.Scheduled})

	got, ok := s.Get(id)
	require.True(t, ok)
	got.State = task.Failed

	again, ok := s.Get(id)
	require.True(t, ok)
	assert.Equal(t, task.Scheduled, again.State)

	list := s.List()
	require.Len(t, list, 1)
	list[0].Name = "changed"

	final, ok := s.Get(id)
	require.True(t, ok)
	assert.Equal(t, "web", final.Name)
}

func TestTaskStoreListAll(t *testing.T) {
	s := NewTaskStore()
	ids := map[uuid.UUID]bool{}
	for i := 0; i < 5; i++ {
		id := uuid.New()
		ids[id] = true
		s.Put(&task.Task{ID: id})
	}

	list := s.List()
	assert.Len(t, list, 5)
	for _, got := range list {
		assert.True(t, ids[got.ID])
	}
}

func TestEventStorePutGet(t *testing.T) {
	s := NewEventStore()
	id := uuid.New()

	s.Put(&task.Event{TaskID: id, Type: "scheduled", Task: task.Task{ID: id}})

	got, ok := s.Get(id)
	require.True(t, ok)
	assert.Equal(t, "scheduled", got.Type)
	assert.Equal(t, id, got.Task.ID)

	_, ok = s.Get(uuid.New())
	assert.False(t, ok)
	assert.Equal(t, 1, s.Len())
}
