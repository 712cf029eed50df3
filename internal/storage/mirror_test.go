package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingStorage spools to disk and records uploads in memory.
type recordingStorage struct {
	*LocalStorage
	mu      sync.Mutex
	uploads map[string]string
	types   map[string]string
	err     error
}

func newRecordingStorage(t *testing.T) *recordingStorage {
	return &recordingStorage{
		LocalStorage: setupTestStorage(t),
		uploads:      make(map[string]string),
		types:        make(map[string]string),
	}
}

func (s *recordingStorage) Upload(_ context.Context, key, contentType string, data io.Reader) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if _, ok := data.(io.Seeker); !ok {
		return "", errors.New("upload body must be seekable")
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads[key] = string(b)
	s.types[key] = contentType
	return "https://bucket.example.com/" + key, nil
}

type fakeOpener struct {
	opens   atomic.Int32
	release chan struct{}
	header  http.Header
	err     error
}

func (o *fakeOpener) Open(ctx context.Context, target string) (*http.Response, error) {
	o.opens.Add(1)
	if o.release != nil {
		<-o.release
	}
	if o.err != nil {
		return nil, o.err
	}
	h := o.header
	if h == nil {
		h = http.Header{}
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     h,
		Body:       io.NopCloser(strings.NewReader("bytes of " + target)),
	}, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestMirrorKey(t *testing.T) {
	assert.Equal(t, "videos/evolink/task-1.mp4", MirrorKey("evolink", "task-1"))
	assert.Equal(t, "videos/replicate/a_b.mp4", MirrorKey("replicate", "a/b"))
	assert.Equal(t, "videos/evolink/__x.mp4", MirrorKey("evolink", "../x"))
}

func TestMirror_Archive(t *testing.T) {
	store := newRecordingStorage(t)
	opener := &fakeOpener{header: http.Header{"Content-Type": []string{"video/webm"}}}
	m := NewMirror(store, opener, quietLogger())

	u, err := m.Archive(context.Background(), "evolink", "t1", "https://cdn/v.webm")
	require.NoError(t, err)
	assert.Equal(t, "https://bucket.example.com/videos/evolink/t1.mp4", u)
	assert.Equal(t, "bytes of https://cdn/v.webm", store.uploads["videos/evolink/t1.mp4"])
	assert.Equal(t, "video/webm", store.types["videos/evolink/t1.mp4"])

	matches, _ := os.ReadDir(store.TempDir())
	assert.Empty(t, matches, "spool files are removed after upload")
}

func TestMirror_Archive_DefaultContentType(t *testing.T) {
	store := newRecordingStorage(t)
	m := NewMirror(store, &fakeOpener{}, quietLogger())

	_, err := m.Archive(context.Background(), "replicate", "p1", "https://replicate.delivery/v")
	require.NoError(t, err)
	assert.Equal(t, DefaultVideoContentType, store.types["videos/replicate/p1.mp4"])
}

func TestMirror_Archive_RemembersResult(t *testing.T) {
	store := newRecordingStorage(t)
	opener := &fakeOpener{}
	m := NewMirror(store, opener, quietLogger())

	first, err := m.Archive(context.Background(), "evolink", "t1", "https://cdn/v.mp4")
	require.NoError(t, err)
	second, err := m.Archive(context.Background(), "evolink", "t1", "https://cdn/v.mp4")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), opener.opens.Load())
}

func TestMirror_Archive_ConcurrentCallsShareUpload(t *testing.T) {
	store := newRecordingStorage(t)
	opener := &fakeOpener{release: make(chan struct{})}
	m := NewMirror(store, opener, quietLogger())

	const callers = 8
	results := make([]string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			u, err := m.Archive(context.Background(), "evolink", "t1", "https://cdn/v.mp4")
			assert.NoError(t, err)
			results[i] = u
		}(i)
	}

	close(opener.release)
	wg.Wait()

	assert.Equal(t, int32(1), opener.opens.Load())
	for _, u := range results {
		assert.Equal(t, "https://bucket.example.com/videos/evolink/t1.mp4", u)
	}
}

func TestMirror_Archive_Errors(t *testing.T) {
	t.Run("download fails", func(t *testing.T) {
		m := NewMirror(newRecordingStorage(t), &fakeOpener{err: errors.New("404")}, quietLogger())

		_, err := m.Archive(context.Background(), "evolink", "t1", "https://cdn/v.mp4")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "download")
	})

	t.Run("upload fails and is retried next time", func(t *testing.T) {
		store := newRecordingStorage(t)
		store.err = ErrUploadNotConfigured
		opener := &fakeOpener{}
		m := NewMirror(store, opener, quietLogger())

		_, err := m.Archive(context.Background(), "evolink", "t1", "https://cdn/v.mp4")
		assert.ErrorIs(t, err, ErrUploadNotConfigured)

		store.err = nil
		_, err = m.Archive(context.Background(), "evolink", "t1", "https://cdn/v.mp4")
		require.NoError(t, err)
		assert.Equal(t, int32(2), opener.opens.Load())
	})
}
