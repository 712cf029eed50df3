package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/videogen-api/internal/generator"
)

func TestNewRecord(t *testing.T) {
	rec := NewRecord("t1", "evolink", generator.KindTextToVideo)

	assert.Equal(t, "t1", rec.TaskID)
	assert.Equal(t, "evolink", rec.Provider)
	assert.Equal(t, generator.StatusPending, rec.Status)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.Equal(t, rec.CreatedAt, rec.UpdatedAt)
	assert.False(t, rec.IsTerminal())
}

func TestRecord_Observe_Transitions(t *testing.T) {
	tests := []struct {
		name    string
		from    generator.Status
		to      generator.Status
		wantErr bool
	}{
		{"pending to processing", generator.StatusPending, generator.StatusProcessing, false},
		{"pending to succeeded steps through processing", generator.StatusPending, generator.StatusSucceeded, false},
		{"pending to failed", generator.StatusPending, generator.StatusFailed, false},
		{"processing to succeeded", generator.StatusProcessing, generator.StatusSucceeded, false},
		{"processing to cancelled", generator.StatusProcessing, generator.StatusCancelled, false},
		{"processing back to pending", generator.StatusProcessing, generator.StatusPending, true},
		{"succeeded to processing", generator.StatusSucceeded, generator.StatusProcessing, true},
		{"failed to succeeded", generator.StatusFailed, generator.StatusSucceeded, true},
		{"cancelled to failed", generator.StatusCancelled, generator.StatusFailed, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := NewRecord("t1", "evolink", generator.KindTextToVideo)
			rec.Status = tt.from

			err := rec.Observe(generator.TaskStatus{Status: tt.to})
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTransition)
				assert.Equal(t, tt.from, rec.Status, "rejected updates leave the record unchanged")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, rec.Status)
			assert.Equal(t, tt.to.IsTerminal(), !rec.CompletedAt.IsZero())
		})
	}
}

func TestRecord_Observe_Fields(t *testing.T) {
	rec := NewRecord("t1", "evolink", generator.KindTextToVideo)

	require.NoError(t, rec.Observe(generator.TaskStatus{Status: generator.StatusProcessing, Progress: 40}))
	assert.Equal(t, float64(40), rec.Progress)

	require.NoError(t, rec.Observe(generator.TaskStatus{Status: generator.StatusProcessing, Progress: 20}))
	assert.Equal(t, float64(40), rec.Progress, "progress never goes backwards")

	require.NoError(t, rec.Observe(generator.TaskStatus{
		Status:    generator.StatusSucceeded,
		Progress:  100,
		MediaURL:  "https://cdn/v.mp4",
		PosterURL: "https://cdn/c.jpg",
	}))
	assert.Equal(t, "https://cdn/v.mp4", rec.MediaURL)
	assert.Equal(t, "https://cdn/c.jpg", rec.PosterURL)
	assert.Equal(t, float64(100), rec.Progress)

	require.NoError(t, rec.Observe(generator.TaskStatus{Status: generator.StatusSucceeded, MediaURL: "https://cdn/other.mp4"}))
	assert.Equal(t, "https://cdn/v.mp4", rec.MediaURL, "first resolved URL is kept")
}

func TestRecord_Observe_LateMediaURL(t *testing.T) {
	rec := NewRecord("t1", "evolink", generator.KindTextToVideo)

	require.NoError(t, rec.Observe(generator.TaskStatus{Status: generator.StatusSucceeded}))
	assert.Empty(t, rec.MediaURL)

	require.NoError(t, rec.Observe(generator.TaskStatus{Status: generator.StatusSucceeded, MediaURL: "https://cdn/late.mp4"}))
	assert.Equal(t, "https://cdn/late.mp4", rec.MediaURL)
}

func TestRecord_Observe_Error(t *testing.T) {
	rec := NewRecord("t1", "replicate", generator.KindImageToVideo)

	require.NoError(t, rec.Observe(generator.TaskStatus{
		Status: generator.StatusFailed,
		Error:  &generator.TaskError{Code: "E001"},
	}))
	assert.Equal(t, "E001", rec.Error)
	assert.True(t, rec.IsTerminal())
}

func TestRecord_Clone(t *testing.T) {
	rec := NewRecord("t1", "evolink", generator.KindTextToVideo)
	rec.SetMirrorURL("https://bucket/videos/evolink/t1.mp4")

	clone := rec.Clone()
	clone.MirrorURL = "changed"
	clone.Status = generator.StatusFailed

	assert.Equal(t, "https://bucket/videos/evolink/t1.mp4", rec.MirrorURL)
	assert.Equal(t, generator.StatusPending, rec.Status)
}
