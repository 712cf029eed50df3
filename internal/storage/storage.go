// Package storage provides temporary spooling and persistent object storage
// used to mirror generated videos into the application's own bucket.
package storage

import (
	"context"
	"io"
)

// Storage defines the interface for temporary and persistent file storage.
type Storage interface {
	// SaveTemp saves data to a temporary file and returns the file path.
	// The name parameter is used as a hint for the filename.
	SaveTemp(ctx context.Context, name string, data io.Reader) (path string, err error)

	// LoadTemp opens a temporary file.
	// The caller is responsible for closing the returned ReadCloser.
	LoadTemp(ctx context.Context, path string) (io.ReadCloser, error)

	// CleanupTemp removes the specified temporary files.
	// It continues cleanup even if some files fail to delete.
	CleanupTemp(ctx context.Context, paths []string) error

	// Upload stores data under key and returns its public URL.
	// Returns ErrUploadNotConfigured when no object store is configured.
	Upload(ctx context.Context, key, contentType string, data io.Reader) (url string, err error)
}
