package store

import (
	"context"
	"fmt"
	"sync"

	"task-dispatch/tasks"
)

// Compile-time check to ensure MemoryTaskStore implements TaskStore interface
var _ TaskStore = (*MemoryTaskStore)(nil)

// MemoryTaskStore keeps scheduled-task records in process memory.
// A dispatcher restart loses the records, the same way an aggregator restart
// loses accumulated results; neither is persisted in this design.
type MemoryTaskStore struct {
	mu      sync.RWMutex
	records map[string]*tasks.Record
}

// NewMemoryTaskStore creates and initializes a new MemoryTaskStore.
func NewMemoryTaskStore() *MemoryTaskStore {
	return &MemoryTaskStore{
		records: make(map[string]*tasks.Record),
	}
}

// Save adds a new record to the store.
// It enforces task ID uniqueness: an ID is assigned exactly once, so a second
// Save for the same ID indicates a scheduler bug.
func (s *MemoryTaskStore) Save(_ context.Context, rec *tasks.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.TaskID]; exists {
		return fmt.Errorf("task with ID %s already exists", rec.TaskID)
	}

	s.records[rec.TaskID] = rec
	return nil
}

// Get retrieves a record by task ID.
// It returns a copy to prevent callers from mutating stored state.
func (s *MemoryTaskStore) Get(_ context.Context, taskID string) (*tasks.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[taskID]
	if !ok {
		return nil, fmt.Errorf("task with ID %s not found", taskID)
	}

	copied := *rec
	return &copied, nil
}

// UpdateState transitions the stored record's lifecycle state.
func (s *MemoryTaskStore) UpdateState(_ context.Context, taskID string, state tasks.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[taskID]
	if !ok {
		return fmt.Errorf("task with ID %s not found", taskID)
	}

	return rec.SetState(state)
}
