// Package replicate provides an HTTP client for the Replicate predictions API.
package replicate

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// Status represents the status of a Replicate prediction.
type Status string

// Replicate prediction statuses aligned with the Replicate API.
const (
	StatusStarting   Status = "starting"
	StatusProcessing Status = "processing"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
	StatusCanceled   Status = "canceled" // Replicate uses the American spelling
)

// IsTerminal returns true if the status is a terminal state.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusCanceled:
		return true
	default:
		return false
	}
}

// Metrics holds timing information reported for a prediction.
type Metrics struct {
	PredictTime float64 `json:"predict_time"`
}

// Prediction is the prediction object returned by create and get calls.
// Output and Error are kept raw because their shape depends on the model.
type Prediction struct {
	ID        string          `json:"id"`
	Model     string          `json:"model"`
	Version   string          `json:"version"`
	Status    Status          `json:"status"`
	Output    json.RawMessage `json:"output,omitempty"`
	Error     json.RawMessage `json:"error,omitempty"`
	Logs      string          `json:"logs,omitempty"`
	Metrics   Metrics         `json:"metrics"`
	CreatedAt string          `json:"created_at"`
	Raw       json.RawMessage `json:"-"`
}

// ErrorMessage flattens the prediction error into a single string.
// Replicate reports it as a string, but objects with a message field appear
// for some models.
func (p Prediction) ErrorMessage() string {
	if len(p.Error) == 0 {
		return ""
	}
	res := gjson.ParseBytes(p.Error)
	switch {
	case res.Type == gjson.Null:
		return ""
	case res.Type == gjson.String:
		return res.Str
	case res.IsObject():
		if msg := res.Get("message"); msg.Exists() {
			return msg.String()
		}
		if detail := res.Get("detail"); detail.Exists() {
			return detail.String()
		}
	}
	return res.Raw
}
