package generator

import (
	"context"
	"fmt"

	"github.com/maauso/videogen-api/internal/evolink"
	"github.com/maauso/videogen-api/internal/mediaurl"
)

// EvolinkProviderName identifies the Evolink adapter.
const EvolinkProviderName = "evolink"

// Profile selects the Evolink model family.
type Profile string

// Supported Evolink model profiles.
const (
	ProfileSeedance Profile = "seedance"
	ProfileWan      Profile = "wan"
)

// IsValid returns true if the profile is known.
func (p Profile) IsValid() bool {
	_, ok := evolinkProfiles[p]
	return ok
}

type evolinkProfile struct {
	textModel  string
	imageModel string
	limits     constraints
	multiImage bool // images go in image_urls instead of image_url
	audio      bool // model accepts generate_audio
	wanKnobs   bool // model accepts prompt_extend and model_params
}

var evolinkProfiles = map[Profile]evolinkProfile{
	ProfileSeedance: {
		textModel:  "seedance-1.5-pro-text-to-video",
		imageModel: "seedance-1.5-pro-image-to-video",
		limits: constraints{
			minDuration:  4,
			maxDuration:  12,
			minImages:    1,
			maxImages:    2,
			aspectRatios: []string{"16:9", "9:16", "1:1", "4:3", "3:4", "21:9", "adaptive"},
			qualities:    []string{"480p", "720p", "1080p"},
		},
		multiImage: true,
		audio:      true,
	},
	ProfileWan: {
		textModel:  "wan2.6-text-to-video",
		imageModel: "wan2.6-image-to-video",
		limits: constraints{
			durations:    []int{5, 10, 15},
			minImages:    1,
			maxImages:    1,
			aspectRatios: []string{"16:9", "9:16", "1:1", "4:3", "3:4"},
			qualities:    []string{"720p", "1080p"},
		},
		wanKnobs: true,
	},
}

// EvolinkAdapter adapts the Evolink client to the Generator interface.
type EvolinkAdapter struct {
	client  evolink.Client
	profile evolinkProfile
}

// NewEvolinkAdapter creates a new Evolink generator adapter.
// A nil client yields an adapter that reports itself as not configured.
// Unknown profiles fall back to seedance.
func NewEvolinkAdapter(client evolink.Client, profile Profile) *EvolinkAdapter {
	p, ok := evolinkProfiles[profile]
	if !ok {
		p = evolinkProfiles[ProfileSeedance]
	}
	return &EvolinkAdapter{client: client, profile: p}
}

// Name implements Generator.
func (a *EvolinkAdapter) Name() string { return EvolinkProviderName }

// Configured implements Generator.
func (a *EvolinkAdapter) Configured() bool { return a.client != nil }

// Create submits a generation task to Evolink.
func (a *EvolinkAdapter) Create(ctx context.Context, req Request) (Result, error) {
	req = withDefaults(req)
	if err := a.profile.limits.check(EvolinkProviderName, req); err != nil {
		return Result{}, err
	}
	if !a.Configured() {
		return Result{}, fmt.Errorf("%w: missing API key", ErrConfiguration)
	}

	resp, err := a.client.CreateGeneration(ctx, a.buildRequest(req))
	if err != nil {
		return Result{}, upstream(err)
	}

	status, ok := evolinkStatus(resp.Status)
	if !ok {
		status = StatusPending
	}
	return Result{
		Provider:         EvolinkProviderName,
		TaskID:           resp.ID,
		Status:           status,
		EstimatedSeconds: resp.TaskInfo.EstimatedTime,
		CreditsReserved:  resp.Usage.CreditsReserved,
	}, nil
}

func (a *EvolinkAdapter) buildRequest(req Request) evolink.GenerationRequest {
	out := evolink.GenerationRequest{
		Model:       a.profile.textModel,
		Prompt:      req.Prompt,
		AspectRatio: req.AspectRatio,
		Quality:     req.Quality,
		Duration:    req.DurationSeconds,
		AudioURL:    req.Options.AudioURL,
		CallbackURL: req.Options.CallbackURL,
	}

	if req.Kind == KindImageToVideo {
		out.Model = a.profile.imageModel
		if out.Prompt == "" {
			out.Prompt = DefaultImagePrompt
		}
		if a.profile.multiImage {
			out.ImageURLs = req.SourceImages
		} else {
			out.ImageURL = req.SourceImages[0]
		}
	}

	if a.profile.audio {
		out.GenerateAudio = boolOr(req.Options.GenerateAudio, true)
	}
	if a.profile.wanKnobs {
		out.PromptExtend = boolOr(req.Options.PromptExtend, true)
		shot := req.Options.ShotType
		if shot == "" {
			shot = "single"
		}
		out.ModelParams = &evolink.ModelParams{ShotType: shot}
	}
	return out
}

// Status fetches the current state of an Evolink task.
func (a *EvolinkAdapter) Status(ctx context.Context, taskID string) (TaskStatus, error) {
	if taskID == "" {
		return TaskStatus{}, validationf("task id is required")
	}
	if !a.Configured() {
		return TaskStatus{}, fmt.Errorf("%w: missing API key", ErrConfiguration)
	}

	resp, err := a.client.GetTask(ctx, taskID)
	if err != nil {
		return TaskStatus{}, upstream(err)
	}

	status, ok := evolinkStatus(resp.Status)
	if !ok {
		return TaskStatus{}, fmt.Errorf("%w: evolink: unknown task status %q", ErrUpstream, resp.Status)
	}

	out := TaskStatus{
		TaskID:   taskID,
		Provider: EvolinkProviderName,
		Status:   status,
		Progress: resp.Progress,
	}
	if resp.Error != nil {
		out.Error = &TaskError{Code: resp.Error.Code, Message: resp.Error.Message}
	}
	if status != StatusSucceeded {
		return out, nil
	}

	out.Progress = 100
	fillEvolinkResult(&out, resp)
	if out.MediaURL == "" {
		// Completed tasks sometimes omit the URL from the status payload;
		// the detail endpoint is asked once. Failure there leaves the task
		// succeeded but unresolved.
		if detail, err := a.client.GetGeneration(ctx, taskID); err == nil {
			fillEvolinkResult(&out, detail)
		}
	}
	return out, nil
}

// Cancel asks Evolink to stop a task.
func (a *EvolinkAdapter) Cancel(ctx context.Context, taskID string) (bool, error) {
	if taskID == "" {
		return false, validationf("task id is required")
	}
	if !a.Configured() {
		return false, fmt.Errorf("%w: missing API key", ErrConfiguration)
	}
	ok, err := a.client.Cancel(ctx, taskID)
	if err != nil {
		return false, upstream(err)
	}
	return ok, nil
}

// fillEvolinkResult copies media details from resp into out without
// overwriting fields already set.
func fillEvolinkResult(out *TaskStatus, resp evolink.TaskResponse) {
	res := resp.DecodedResult()
	if out.MediaURL == "" {
		out.MediaURL = evolinkMediaURL(resp, res)
	}
	if out.PosterURL == "" && mediaurl.Qualifies(res.CoverURL) {
		out.PosterURL = res.CoverURL
	}
	if out.DurationSeconds == 0 {
		out.DurationSeconds = res.Duration
	}
	if out.Width == 0 && out.Height == 0 {
		out.Width, out.Height = res.Width, res.Height
	}
}

func evolinkMediaURL(resp evolink.TaskResponse, res evolink.TaskResult) string {
	if mediaurl.Qualifies(res.VideoURL) {
		return res.VideoURL
	}
	if u := mediaurl.ExtractJSON(resp.Result); u != "" {
		return u
	}
	return mediaurl.ExtractJSON(resp.Raw)
}

func evolinkStatus(s evolink.Status) (Status, bool) {
	switch s {
	case evolink.StatusPending:
		return StatusPending, true
	case evolink.StatusProcessing:
		return StatusProcessing, true
	case evolink.StatusCompleted:
		return StatusSucceeded, true
	case evolink.StatusFailed:
		return StatusFailed, true
	case evolink.StatusCancelled:
		return StatusCancelled, true
	default:
		return "", false
	}
}

func boolOr(v *bool, def bool) *bool {
	if v != nil {
		return v
	}
	return &def
}
