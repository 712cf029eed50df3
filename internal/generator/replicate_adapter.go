package generator

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/tidwall/sjson"

	"github.com/maauso/videogen-api/internal/mediaurl"
	"github.com/maauso/videogen-api/internal/replicate"
)

// ReplicateProviderName identifies the Replicate adapter.
const ReplicateProviderName = "replicate"

// Replicate models used for each generation kind.
const (
	ReplicateTextModel  = "wan-video/wan-2.5-t2v"
	ReplicateImageModel = "wan-video/wan-2.5-i2v"
)

var replicateLimits = constraints{
	durations:    []int{5, 10},
	minImages:    1,
	maxImages:    1,
	aspectRatios: []string{"16:9", "9:16", "1:1"},
	qualities:    []string{"480p", "720p", "1080p"},
}

// ReplicateAdapter adapts the Replicate client to the Generator interface.
// Replicate has no cancel operation exposed here, so the adapter does not
// implement Canceller.
type ReplicateAdapter struct {
	client replicate.Client
}

// NewReplicateAdapter creates a new Replicate generator adapter.
// A nil client yields an adapter that reports itself as not configured.
func NewReplicateAdapter(client replicate.Client) *ReplicateAdapter {
	return &ReplicateAdapter{client: client}
}

// Name implements Generator.
func (a *ReplicateAdapter) Name() string { return ReplicateProviderName }

// Configured implements Generator.
func (a *ReplicateAdapter) Configured() bool { return a.client != nil }

// Create starts a Replicate prediction.
func (a *ReplicateAdapter) Create(ctx context.Context, req Request) (Result, error) {
	req = withDefaults(req)
	if err := replicateLimits.check(ReplicateProviderName, req); err != nil {
		return Result{}, err
	}
	if !a.Configured() {
		return Result{}, fmt.Errorf("%w: missing API token", ErrConfiguration)
	}

	model, input, err := buildReplicateInput(req)
	if err != nil {
		return Result{}, err
	}

	pred, err := a.client.CreatePrediction(ctx, model, input, webhookURL(req.Options.CallbackURL))
	if err != nil {
		return Result{}, upstream(err)
	}

	status, ok := replicateStatus(pred.Status)
	if !ok {
		status = StatusPending
	}
	return Result{
		Provider: ReplicateProviderName,
		TaskID:   pred.ID,
		Status:   status,
	}, nil
}

func buildReplicateInput(req Request) (string, []byte, error) {
	model := ReplicateTextModel
	prompt := req.Prompt
	if req.Kind == KindImageToVideo {
		model = ReplicateImageModel
		if prompt == "" {
			prompt = DefaultImagePrompt
		}
	}

	input := []byte(`{}`)
	set := func(path string, value any) {
		if out, err := sjson.SetBytes(input, path, value); err == nil {
			input = out
		}
	}

	set("prompt", prompt)
	set("duration", req.DurationSeconds)
	set("resolution", req.Quality)
	if req.Kind == KindImageToVideo {
		set("image", req.SourceImages[0])
	} else {
		set("aspect_ratio", req.AspectRatio)
	}
	if req.Options.AudioURL != "" {
		set("audio", req.Options.AudioURL)
	}
	if req.Options.PromptExtend != nil {
		set("enable_prompt_expansion", *req.Options.PromptExtend)
	}

	keys := make([]string, 0, len(req.Options.Extra))
	for k := range req.Options.Extra {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		out, err := sjson.SetBytes(input, escapePath(k), req.Options.Extra[k])
		if err != nil {
			return "", nil, validationf("replicate: option %q: %v", k, err)
		}
		input = out
	}
	return model, input, nil
}

// Status fetches the current state of a Replicate prediction.
func (a *ReplicateAdapter) Status(ctx context.Context, taskID string) (TaskStatus, error) {
	if taskID == "" {
		return TaskStatus{}, validationf("task id is required")
	}
	if !a.Configured() {
		return TaskStatus{}, fmt.Errorf("%w: missing API token", ErrConfiguration)
	}

	pred, err := a.client.GetPrediction(ctx, taskID)
	if err != nil {
		return TaskStatus{}, upstream(err)
	}

	status, ok := replicateStatus(pred.Status)
	if !ok {
		return TaskStatus{}, fmt.Errorf("%w: replicate: unknown prediction status %q", ErrUpstream, pred.Status)
	}

	out := TaskStatus{
		TaskID:   taskID,
		Provider: ReplicateProviderName,
		Status:   status,
	}
	switch status {
	case StatusPending:
		out.Progress = 0
	case StatusProcessing:
		out.Progress = 50
	default:
		out.Progress = 100
	}

	switch status {
	case StatusSucceeded:
		out.MediaURL = mediaurl.ExtractJSON(pred.Output)
	case StatusFailed, StatusCancelled:
		if msg := pred.ErrorMessage(); msg != "" {
			out.Error = &TaskError{Message: msg}
		}
	}
	return out, nil
}

func replicateStatus(s replicate.Status) (Status, bool) {
	switch s {
	case replicate.StatusStarting:
		return StatusPending, true
	case replicate.StatusProcessing:
		return StatusProcessing, true
	case replicate.StatusSucceeded:
		return StatusSucceeded, true
	case replicate.StatusFailed:
		return StatusFailed, true
	case replicate.StatusCanceled:
		return StatusCancelled, true
	default:
		return "", false
	}
}

// webhookURL returns callback only when Replicate can reach it.
func webhookURL(callback string) string {
	if !strings.HasPrefix(callback, "http") {
		return ""
	}
	u, err := url.Parse(callback)
	if err != nil {
		return ""
	}
	switch u.Hostname() {
	case "", "localhost", "127.0.0.1":
		return ""
	}
	return callback
}

// escapePath makes an option name safe to use as a literal sjson key.
func escapePath(key string) string {
	r := strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`, "|", `\|`, "#", `\#`, "@", `\@`)
	return r.Replace(key)
}
