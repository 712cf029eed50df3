package task

import (
	"context"
	"sort"
	"sync"
)

// Compile-time check that MemoryRepository implements Repository.
var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository is an in-memory implementation of Repository.
// Records are lost on restart.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewMemoryRepository creates a new in-memory task repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		records: make(map[string]*Record),
	}
}

// Save stores a clone of rec.
func (r *MemoryRepository) Save(_ context.Context, rec *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[rec.TaskID] = rec.Clone()
	return nil
}

// FindByID returns a clone of the stored record.
func (r *MemoryRepository) FindByID(_ context.Context, taskID string) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[taskID]
	if !ok {
		return nil, ErrTaskNotFound
	}
	return rec.Clone(), nil
}

// List returns clones of all records, newest first.
func (r *MemoryRepository) List(_ context.Context) ([]*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*Record, 0, len(r.records))
	for _, rec := range r.records {
		result = append(result, rec.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// Delete removes a record.
func (r *MemoryRepository) Delete(_ context.Context, taskID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[taskID]; !ok {
		return ErrTaskNotFound
	}
	delete(r.records, taskID)
	return nil
}
