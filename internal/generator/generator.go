// Package generator provides the provider-neutral model for video generation
// and the adapters that translate it to each upstream provider.
// Evolink is the primary provider and Replicate the fallback; the
// Orchestrator walks them in that order.
package generator

import "context"

// Kind selects the generation mode.
type Kind string

// Supported generation modes.
const (
	KindTextToVideo  Kind = "text-to-video"
	KindImageToVideo Kind = "image-to-video"
)

// IsValid returns true if the kind is a supported generation mode.
func (k Kind) IsValid() bool {
	return k == KindTextToVideo || k == KindImageToVideo
}

// Status represents the status of a generation task.
type Status string

// Common task statuses across providers.
const (
	StatusPending    Status = "pending"    // Task accepted but not yet running
	StatusProcessing Status = "processing" // Task is currently rendering
	StatusSucceeded  Status = "succeeded"  // Task finished successfully
	StatusFailed     Status = "failed"     // Task failed with error
	StatusCancelled  Status = "cancelled"  // Task was cancelled
)

// IsTerminal returns true if the status represents a final state.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// validTransitions defines which status transitions are allowed.
var validTransitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusFailed, StatusCancelled},
	StatusProcessing: {StatusSucceeded, StatusFailed, StatusCancelled},
	StatusSucceeded:  {},
	StatusFailed:     {},
	StatusCancelled:  {},
}

// CanTransition reports whether a task may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Defaults applied by adapters when the request leaves a field unset.
const (
	DefaultDurationSeconds = 5
	DefaultAspectRatio     = "16:9"
	DefaultQuality         = "720p"
	DefaultImagePrompt     = "Animate this image"
)

// Options holds provider specific knobs. Adapters ignore the ones their
// provider does not understand.
type Options struct {
	GenerateAudio *bool          // Ask the provider to synthesize audio
	PromptExtend  *bool          // Let the provider rewrite the prompt
	ShotType      string         // "single" or "multi"
	AudioURL      string         // Driving audio track
	CallbackURL   string         // Provider webhook
	Extra         map[string]any // Passed through to providers with an open input schema
}

// Request is a provider-neutral generation request.
type Request struct {
	Kind            Kind
	Prompt          string
	SourceImages    []string
	DurationSeconds int
	AspectRatio     string
	Quality         string
	Options         Options
}

// Validate checks the fields required by the request kind.
// Provider specific limits are checked by each adapter.
func (r Request) Validate() error {
	switch r.Kind {
	case KindTextToVideo:
		if r.Prompt == "" {
			return validationf("prompt is required for %s", r.Kind)
		}
	case KindImageToVideo:
		if len(r.SourceImages) == 0 {
			return validationf("at least one source image is required for %s", r.Kind)
		}
		for i, img := range r.SourceImages {
			if img == "" {
				return validationf("source image %d is empty", i)
			}
		}
	default:
		return validationf("unsupported kind %q", r.Kind)
	}
	if r.DurationSeconds < 0 {
		return validationf("duration must not be negative")
	}
	return nil
}

// Result is the outcome of a successful create call.
type Result struct {
	Provider         string  `json:"provider"`
	TaskID           string  `json:"taskId"`
	Status           Status  `json:"status"`
	EstimatedSeconds int     `json:"estimatedSeconds,omitempty"`
	CreditsReserved  float64 `json:"creditsReserved,omitempty"`
	// FallbackErrors lists upstream failures of higher priority providers
	// that were tried before this one.
	FallbackErrors []string `json:"fallbackErrors,omitempty"`
}

// TaskError is the failure reported by a provider for a task.
type TaskError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// TaskStatus is the outcome of a status call.
type TaskStatus struct {
	TaskID          string     `json:"taskId"`
	Provider        string     `json:"provider"`
	Status          Status     `json:"status"`
	Progress        float64    `json:"progress"`
	MediaURL        string     `json:"mediaUrl,omitempty"` // Only set when Status is StatusSucceeded
	PosterURL       string     `json:"posterUrl,omitempty"`
	DurationSeconds float64    `json:"durationSeconds,omitempty"`
	Width           int        `json:"width,omitempty"`
	Height          int        `json:"height,omitempty"`
	Error           *TaskError `json:"error,omitempty"`
}

// Unresolved reports a task that succeeded but whose media URL could not be
// located in the provider payload.
func (t TaskStatus) Unresolved() bool {
	return t.Status == StatusSucceeded && t.MediaURL == ""
}

// Generator defines the interface for video generation providers.
type Generator interface {
	// Name returns the provider identifier used for routing status calls.
	Name() string

	// Configured reports whether credentials for the provider are present.
	Configured() bool

	// Create submits a generation task.
	Create(ctx context.Context, req Request) (Result, error)

	// Status fetches the current state of a task.
	Status(ctx context.Context, taskID string) (TaskStatus, error)
}

// Canceller is implemented by generators whose provider can stop a task.
type Canceller interface {
	Cancel(ctx context.Context, taskID string) (bool, error)
}
