package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/maauso/videogen-api/internal/generator"
	"github.com/maauso/videogen-api/internal/proxy"
	"github.com/maauso/videogen-api/internal/task"
)

// defaultMaxBodyBytes bounds the size of JSON request bodies.
const defaultMaxBodyBytes = 1 << 20

// VideoService is the use-case layer behind the video endpoints.
type VideoService interface {
	Create(ctx context.Context, req generator.Request) (generator.Result, error)
	Refresh(ctx context.Context, taskID, provider string) (generator.TaskStatus, *task.Record, error)
	Cancel(ctx context.Context, taskID, provider string) (string, bool, error)
	Providers() []generator.ProviderInfo
}

// FileOpener opens proxied files.
type FileOpener interface {
	Open(ctx context.Context, target string) (*http.Response, error)
}

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	service      VideoService
	files        FileOpener
	validator    *validator.Validate
	logger       *slog.Logger
	maxBodyBytes int64
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithMaxBodyBytes sets the maximum accepted JSON body size.
func WithMaxBodyBytes(n int64) HandlerOption {
	return func(h *Handlers) {
		if n > 0 {
			h.maxBodyBytes = n
		}
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service VideoService, files FileOpener, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		service:      service,
		files:        files,
		validator:    validator.New(),
		logger:       logger,
		maxBodyBytes: defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// ListProviders handles GET /v1/providers requests.
func (h *Handlers) ListProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ProvidersResponse{
		Success:   true,
		Providers: h.service.Providers(),
	})
}

// CreateVideo handles POST /v1/videos requests.
func (h *Handlers) CreateVideo(w http.ResponseWriter, r *http.Request) {
	var req CreateVideoRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBodyBytes)).Decode(&req); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("request_id", RequestIDFromContext(r.Context())),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON", err.Error())
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("request_id", RequestIDFromContext(r.Context())),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid request", "VALIDATION_ERROR", err.Error())
		return
	}

	res, err := h.service.Create(r.Context(), req.toDomain())
	if err != nil {
		h.writeServiceError(w, r, "failed to create video", err)
		return
	}

	writeJSON(w, http.StatusAccepted, CreateVideoResponse{
		Success:         true,
		Provider:        res.Provider,
		TaskID:          res.TaskID,
		Status:          string(res.Status),
		EstimatedTime:   res.EstimatedSeconds,
		CreditsReserved: res.CreditsReserved,
		FallbackErrors:  res.FallbackErrors,
	})
}

// GetVideo handles GET /v1/videos/{taskId} requests.
func (h *Handlers) GetVideo(w http.ResponseWriter, r *http.Request) {
	taskID := r.PathValue("taskId")
	provider := r.URL.Query().Get("provider")

	st, rec, err := h.service.Refresh(r.Context(), taskID, provider)
	if err != nil {
		h.writeServiceError(w, r, "failed to get task status", err)
		return
	}

	resp := VideoStatusResponse{
		Success:    true,
		Provider:   rec.Provider,
		TaskID:     taskID,
		Status:     string(st.Status),
		Progress:   st.Progress,
		CoverURL:   st.PosterURL,
		Duration:   st.DurationSeconds,
		Width:      st.Width,
		Height:     st.Height,
		Unresolved: st.Unresolved(),
		MirrorURL:  rec.MirrorURL,
	}
	if st.Status == generator.StatusSucceeded {
		resp.VideoURL = st.MediaURL
	}
	if st.Error != nil {
		resp.Error = &TaskErrorResponse{Code: st.Error.Code, Message: st.Error.Message}
	}
	writeJSON(w, http.StatusOK, resp)
}

// CancelVideo handles POST /v1/videos/{taskId}/cancel requests.
func (h *Handlers) CancelVideo(w http.ResponseWriter, r *http.Request) {
	taskID := r.PathValue("taskId")
	provider := r.URL.Query().Get("provider")

	provider, ok, err := h.service.Cancel(r.Context(), taskID, provider)
	if err != nil {
		h.writeServiceError(w, r, "failed to cancel task", err)
		return
	}

	writeJSON(w, http.StatusOK, CancelVideoResponse{
		Success:   true,
		Provider:  provider,
		TaskID:    taskID,
		Cancelled: ok,
	})
}

// ProxyFile handles GET /v1/files requests by streaming the target file.
func (h *Handlers) ProxyFile(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("url")
	if target == "" {
		writeError(w, http.StatusBadRequest, "missing url parameter", "MISSING_URL", "")
		return
	}

	resp, err := h.files.Open(r.Context(), target)
	if err != nil {
		var statusErr *proxy.UpstreamStatusError
		switch {
		case errors.Is(err, proxy.ErrInvalidTarget):
			writeError(w, http.StatusBadRequest, "invalid url parameter", "INVALID_URL", err.Error())
		case errors.Is(err, proxy.ErrNotResolved):
			writeError(w, http.StatusNotFound, "failed to resolve file id", "FILE_NOT_RESOLVED", err.Error())
		case errors.As(err, &statusErr):
			writeError(w, statusErr.StatusCode, err.Error(), "UPSTREAM_STATUS", "")
		default:
			h.logger.Error("file proxy failed",
				slog.String("request_id", RequestIDFromContext(r.Context())),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "internal server error", "PROXY_FAILED", err.Error())
		}
		return
	}
	defer resp.Body.Close()

	w.Header().Set("Content-Type", proxy.ContentType(resp))
	if resp.ContentLength >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(resp.ContentLength, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, resp.Body); err != nil {
		h.logger.Warn("file proxy stream interrupted",
			slog.String("request_id", RequestIDFromContext(r.Context())),
			slog.String("error", err.Error()),
		)
	}
}

// writeServiceError maps domain errors to HTTP responses.
func (h *Handlers) writeServiceError(w http.ResponseWriter, r *http.Request, message string, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL_ERROR"
	details := err.Error()

	var noProvider *generator.NoProviderError
	switch {
	case errors.As(err, &noProvider):
		message = "all video generation providers failed"
		code = "NO_PROVIDER_AVAILABLE"
		details = noProvider.Details()
	case errors.Is(err, generator.ErrValidation):
		status, code = http.StatusBadRequest, "VALIDATION_ERROR"
	case errors.Is(err, generator.ErrUnsupportedProvider):
		status, code = http.StatusBadRequest, "UNSUPPORTED_PROVIDER"
	case errors.Is(err, generator.ErrCancelUnsupported):
		status, code = http.StatusBadRequest, "CANCEL_UNSUPPORTED"
	case errors.Is(err, task.ErrProviderRequired):
		status, code = http.StatusBadRequest, "PROVIDER_REQUIRED"
	case errors.Is(err, task.ErrTaskNotFound):
		status, code = http.StatusNotFound, "TASK_NOT_FOUND"
	case errors.Is(err, generator.ErrConfiguration):
		code = "PROVIDER_NOT_CONFIGURED"
	case errors.Is(err, generator.ErrUpstream):
		code = "UPSTREAM_ERROR"
	}

	attrs := []any{
		slog.String("request_id", RequestIDFromContext(r.Context())),
		slog.String("code", code),
		slog.String("error", err.Error()),
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error(message, attrs...)
	} else {
		h.logger.Warn(message, attrs...)
	}

	writeError(w, status, message, code, details)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code, details string) {
	writeJSON(w, status, ErrorResponse{
		Success: false,
		Error:   message,
		Code:    code,
		Details: details,
	})
}
