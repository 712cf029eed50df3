// Package task keeps track of generation tasks handed to providers.
// A Record remembers which provider owns a task and the last status observed
// for it, moving through the same state machine as generator.Status.
package task

import (
	"errors"
	"sync"
	"time"

	"github.com/maauso/videogen-api/internal/generator"
)

// ErrInvalidTransition is returned when an observed status would move a
// record backwards or out of a terminal state.
var ErrInvalidTransition = errors.New("invalid state transition")

// Record is the registry entry for one provider task.
type Record struct {
	mu sync.RWMutex

	// TaskID is the provider-assigned identifier.
	TaskID string
	// Provider is the name of the provider that owns the task.
	Provider string
	// Kind is the generation mode the task was created with.
	Kind generator.Kind
	// Status is the last accepted status.
	Status generator.Status
	// Progress is the last reported progress (0-100).
	Progress float64
	// MediaURL is the provider media URL once succeeded.
	MediaURL string
	// PosterURL is the provider cover image, if any.
	PosterURL string
	// MirrorURL is the S3 copy of the media, if mirroring is enabled.
	MirrorURL string
	// Error is the provider failure message.
	Error string
	// CreatedAt is when the record was created.
	CreatedAt time.Time
	// UpdatedAt is when the record was last changed.
	UpdatedAt time.Time
	// CompletedAt is when the record reached a terminal state.
	CompletedAt time.Time
}

// NewRecord creates a record for a task that was just accepted by provider.
func NewRecord(taskID, provider string, kind generator.Kind) *Record {
	now := time.Now()
	return &Record{
		TaskID:    taskID,
		Provider:  provider,
		Kind:      kind,
		Status:    generator.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Observe applies a status reported by the provider.
//
// A pending record may jump straight to succeeded; it is stepped through
// processing. Any other transition the state machine forbids leaves the
// record untouched and returns ErrInvalidTransition.
func (r *Record) Observe(st generator.TaskStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if st.Status != r.Status {
		if err := r.transitionLocked(st.Status); err != nil {
			return err
		}
	} else if r.Status.IsTerminal() && r.MediaURL != "" {
		return nil
	}

	if st.Progress > r.Progress {
		r.Progress = min(st.Progress, 100)
	}
	if st.Status == generator.StatusSucceeded {
		if r.MediaURL == "" {
			r.MediaURL = st.MediaURL
		}
		if r.PosterURL == "" {
			r.PosterURL = st.PosterURL
		}
	}
	if st.Error != nil {
		r.Error = st.Error.Message
		if r.Error == "" {
			r.Error = st.Error.Code
		}
	}
	r.UpdatedAt = time.Now()
	return nil
}

func (r *Record) transitionLocked(to generator.Status) error {
	from := r.Status
	if !generator.CanTransition(from, to) {
		stepped := from == generator.StatusPending &&
			generator.CanTransition(from, generator.StatusProcessing) &&
			generator.CanTransition(generator.StatusProcessing, to)
		if !stepped {
			return ErrInvalidTransition
		}
	}

	r.Status = to
	if to.IsTerminal() {
		r.CompletedAt = time.Now()
	}
	return nil
}

// SetMirrorURL records where the media was mirrored to.
func (r *Record) SetMirrorURL(u string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.MirrorURL = u
	r.UpdatedAt = time.Now()
}

// GetStatus returns the current status (thread-safe).
func (r *Record) GetStatus() generator.Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.Status
}

// IsTerminal returns true if the record is in a terminal state.
func (r *Record) IsTerminal() bool {
	return r.GetStatus().IsTerminal()
}

// Clone creates a copy of the record for safe reads.
func (r *Record) Clone() *Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return &Record{
		TaskID:      r.TaskID,
		Provider:    r.Provider,
		Kind:        r.Kind,
		Status:      r.Status,
		Progress:    r.Progress,
		MediaURL:    r.MediaURL,
		PosterURL:   r.PosterURL,
		MirrorURL:   r.MirrorURL,
		Error:       r.Error,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		CompletedAt: r.CompletedAt,
	}
}
