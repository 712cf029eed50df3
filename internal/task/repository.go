package task

import (
	"context"
	"errors"
)

// ErrTaskNotFound is returned when a task cannot be found by ID.
var ErrTaskNotFound = errors.New("task not found")

// Repository defines the interface for task record persistence.
type Repository interface {
	// Save persists a record. Existing records with the same TaskID are replaced.
	Save(ctx context.Context, rec *Record) error

	// FindByID retrieves a record by task ID.
	// Returns ErrTaskNotFound if the record does not exist.
	FindByID(ctx context.Context, taskID string) (*Record, error)

	// List returns all records.
	List(ctx context.Context) ([]*Record, error)

	// Delete removes a record.
	// Returns ErrTaskNotFound if the record does not exist.
	Delete(ctx context.Context, taskID string) error
}
