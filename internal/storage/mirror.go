package storage

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// DefaultVideoContentType is used when the source omits Content-Type.
const DefaultVideoContentType = "video/mp4"

// Opener fetches a remote file. *proxy.Resolver satisfies it.
type Opener interface {
	Open(ctx context.Context, target string) (*http.Response, error)
}

// Mirror copies provider media into Storage.
// Concurrent calls for the same task share one upload, and finished uploads
// are remembered for the life of the process.
type Mirror struct {
	store  Storage
	opener Opener
	logger *slog.Logger

	group singleflight.Group
	mu    sync.RWMutex
	done  map[string]string
}

// NewMirror creates a Mirror that downloads through opener and uploads to store.
func NewMirror(store Storage, opener Opener, logger *slog.Logger) *Mirror {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mirror{
		store:  store,
		opener: opener,
		logger: logger,
		done:   make(map[string]string),
	}
}

// MirrorKey returns the object key for a task's media.
func MirrorKey(provider, taskID string) string {
	clean := strings.NewReplacer("/", "_", "\\", "_", "..", "_")
	return "videos/" + clean.Replace(provider) + "/" + clean.Replace(taskID) + ".mp4"
}

// Archive downloads mediaURL and uploads it under MirrorKey(provider, taskID),
// returning the stored object's URL.
func (m *Mirror) Archive(ctx context.Context, provider, taskID, mediaURL string) (string, error) {
	key := MirrorKey(provider, taskID)
	if u, ok := m.lookup(key); ok {
		return u, nil
	}

	v, err, shared := m.group.Do(key, func() (any, error) {
		if u, ok := m.lookup(key); ok {
			return u, nil
		}
		u, err := m.archive(ctx, key, mediaURL)
		if err != nil {
			return "", err
		}
		m.mu.Lock()
		m.done[key] = u
		m.mu.Unlock()
		return u, nil
	})
	if err != nil {
		return "", fmt.Errorf("mirror %s: %w", key, err)
	}
	if shared {
		m.logger.Debug("mirror upload shared", slog.String("key", key))
	}
	return v.(string), nil
}

func (m *Mirror) lookup(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.done[key]
	return u, ok
}

// archive spools the download to disk so the upload body is seekable.
func (m *Mirror) archive(ctx context.Context, key, mediaURL string) (string, error) {
	resp, err := m.opener.Open(ctx, mediaURL)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" || strings.HasPrefix(contentType, "application/octet-stream") {
		contentType = DefaultVideoContentType
	}

	path, err := m.store.SaveTemp(ctx, "mirror", resp.Body)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := m.store.CleanupTemp(context.WithoutCancel(ctx), []string{path}); err != nil {
			m.logger.Warn("failed to clean up mirror spool", slog.String("path", path), slog.String("error", err.Error()))
		}
	}()

	f, err := m.store.LoadTemp(ctx, path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	u, err := m.store.Upload(ctx, key, contentType, f)
	if err != nil {
		return "", err
	}
	m.logger.Info("media archived", slog.String("key", key), slog.String("url", u))
	return u, nil
}
