// Package server provides the HTTP surface of the video generation API.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

import "github.com/maauso/videogen-api/internal/generator"

// CreateVideoRequest is the HTTP request body for starting a generation.
type CreateVideoRequest struct {
	// Type selects the generation mode.
	Type string `json:"type" validate:"required,oneof=text-to-video image-to-video"`
	// Prompt describes the video. Required for text-to-video.
	Prompt string `json:"prompt" validate:"max=5000"`
	// ImageURL is a single source image, merged ahead of ImageURLs.
	ImageURL string `json:"imageUrl"`
	// ImageURLs are the source images for image-to-video.
	ImageURLs []string `json:"imageUrls" validate:"omitempty,dive,required"`
	// AspectRatio such as "16:9". Defaults to 16:9.
	AspectRatio string `json:"aspectRatio" validate:"omitempty,max=16"`
	// Quality such as "720p". Defaults to 720p.
	Quality string `json:"quality" validate:"omitempty,max=16"`
	// Duration in seconds. Defaults to 5.
	Duration int `json:"duration" validate:"omitempty,min=1,max=60"`
	// PromptExtend lets the provider rewrite the prompt.
	PromptExtend *bool `json:"promptExtend"`
	// ShotType is "single" or "multi".
	ShotType string `json:"shotType" validate:"omitempty,oneof=single multi"`
	// GenerateAudio asks the provider to synthesize audio.
	GenerateAudio *bool `json:"generateAudio"`
	// AudioURL is a driving audio track.
	AudioURL string `json:"audioUrl" validate:"omitempty,url"`
	// CallbackURL receives provider webhooks.
	CallbackURL string `json:"callbackUrl" validate:"omitempty,url"`
	// Options are passed through to providers with an open input schema.
	Options map[string]any `json:"options"`
}

// toDomain converts the DTO into a generator request.
func (r CreateVideoRequest) toDomain() generator.Request {
	images := make([]string, 0, len(r.ImageURLs)+1)
	if r.ImageURL != "" {
		images = append(images, r.ImageURL)
	}
	for _, u := range r.ImageURLs {
		if u != r.ImageURL {
			images = append(images, u)
		}
	}
	if len(images) == 0 {
		images = nil
	}

	return generator.Request{
		Kind:            generator.Kind(r.Type),
		Prompt:          r.Prompt,
		SourceImages:    images,
		DurationSeconds: r.Duration,
		AspectRatio:     r.AspectRatio,
		Quality:         r.Quality,
		Options: generator.Options{
			GenerateAudio: r.GenerateAudio,
			PromptExtend:  r.PromptExtend,
			ShotType:      r.ShotType,
			AudioURL:      r.AudioURL,
			CallbackURL:   r.CallbackURL,
			Extra:         r.Options,
		},
	}
}

// CreateVideoResponse is the HTTP response after a provider accepted a task.
type CreateVideoResponse struct {
	Success         bool     `json:"success"`
	Provider        string   `json:"provider"`
	TaskID          string   `json:"taskId"`
	Status          string   `json:"status"`
	EstimatedTime   int      `json:"estimatedTime,omitempty"`
	CreditsReserved float64  `json:"creditsReserved,omitempty"`
	FallbackErrors  []string `json:"fallbackErrors,omitempty"`
}

// TaskErrorResponse is the provider failure attached to a status response.
type TaskErrorResponse struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// VideoStatusResponse is the HTTP response for a status query.
type VideoStatusResponse struct {
	Success  bool    `json:"success"`
	Provider string  `json:"provider"`
	TaskID   string  `json:"taskId"`
	Status   string  `json:"status"`
	Progress float64 `json:"progress"`
	// VideoURL is only present when Status is succeeded.
	VideoURL string  `json:"videoUrl,omitempty"`
	CoverURL string  `json:"coverUrl,omitempty"`
	Duration float64 `json:"duration,omitempty"`
	Width    int     `json:"width,omitempty"`
	Height   int     `json:"height,omitempty"`
	// Unresolved marks a succeeded task whose media URL could not be found.
	Unresolved bool               `json:"unresolved,omitempty"`
	MirrorURL  string             `json:"mirrorUrl,omitempty"`
	Error      *TaskErrorResponse `json:"error,omitempty"`
}

// CancelVideoResponse is the HTTP response for a cancel request.
type CancelVideoResponse struct {
	Success   bool   `json:"success"`
	Provider  string `json:"provider,omitempty"`
	TaskID    string `json:"taskId"`
	Cancelled bool   `json:"cancelled"`
}

// ProvidersResponse lists the configured providers in priority order.
type ProvidersResponse struct {
	Success   bool                     `json:"success"`
	Providers []generator.ProviderInfo `json:"providers"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Success is always false.
	Success bool `json:"success"`
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
	// Details carries the underlying cause, if any.
	Details string `json:"details,omitempty"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
