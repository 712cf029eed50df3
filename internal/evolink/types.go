// Package evolink provides an HTTP client for the Evolink video generation API.
package evolink

import "encoding/json"

// Status represents the status of an Evolink generation task.
type Status string

// Evolink task statuses aligned with the Evolink API.
const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// IsTerminal returns true if the status is a terminal state.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// ModelParams holds model specific knobs nested under model_params.
type ModelParams struct {
	ShotType string `json:"shot_type,omitempty"`
}

// GenerationRequest is the request body for POST /videos/generations.
type GenerationRequest struct {
	Model         string       `json:"model"`
	Prompt        string       `json:"prompt"`
	AspectRatio   string       `json:"aspect_ratio,omitempty"`
	Quality       string       `json:"quality,omitempty"`
	Duration      int          `json:"duration,omitempty"`
	PromptExtend  *bool        `json:"prompt_extend,omitempty"`
	ModelParams   *ModelParams `json:"model_params,omitempty"`
	GenerateAudio *bool        `json:"generate_audio,omitempty"`
	AudioURL      string       `json:"audio_url,omitempty"`
	CallbackURL   string       `json:"callback_url,omitempty"`
	ImageURL      string       `json:"image_url,omitempty"`
	ImageURLs     []string     `json:"image_urls,omitempty"`
}

// TaskInfo describes scheduling details of a created task.
type TaskInfo struct {
	CanCancel     bool `json:"can_cancel"`
	EstimatedTime int  `json:"estimated_time"`
}

// Usage describes the billing estimate of a created task.
type Usage struct {
	BillingRule     string  `json:"billing_rule"`
	CreditsReserved float64 `json:"credits_reserved"`
	UserGroup       string  `json:"user_group"`
}

// GenerationResponse is the response from POST /videos/generations.
type GenerationResponse struct {
	ID       string   `json:"id"`
	Created  int64    `json:"created"`
	Model    string   `json:"model"`
	Object   string   `json:"object"`
	Status   Status   `json:"status"`
	Progress float64  `json:"progress"`
	TaskInfo TaskInfo `json:"task_info"`
	Usage    Usage    `json:"usage"`
}

// TaskResult is the result object of a completed task.
type TaskResult struct {
	VideoURL string  `json:"video_url"`
	CoverURL string  `json:"cover_url"`
	Duration float64 `json:"duration"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
}

// TaskError is the error object of a failed task.
type TaskError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// UnmarshalJSON accepts both the documented object form and a bare string.
func (e *TaskError) UnmarshalJSON(data []byte) error {
	var msg string
	if err := json.Unmarshal(data, &msg); err == nil {
		e.Message = msg
		return nil
	}
	type plain TaskError
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*e = TaskError(p)
	return nil
}

// TaskResponse is the response from the task status and detail endpoints.
// Raw holds the undecoded body so callers can search it for fields the
// typed view does not know about.
type TaskResponse struct {
	ID       string          `json:"id"`
	Status   Status          `json:"status"`
	Progress float64         `json:"progress"`
	Result   json.RawMessage `json:"result,omitempty"`
	Error    *TaskError      `json:"error,omitempty"`
	Raw      json.RawMessage `json:"-"`
}

// DecodedResult decodes Result into its typed form.
// Missing or oddly shaped results yield the zero value.
func (r TaskResponse) DecodedResult() TaskResult {
	var out TaskResult
	if len(r.Result) > 0 {
		_ = json.Unmarshal(r.Result, &out)
	}
	return out
}

// cancelResponse is the response from the cancel endpoint.
type cancelResponse struct {
	Success bool `json:"success"`
}
