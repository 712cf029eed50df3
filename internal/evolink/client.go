package evolink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// DefaultBaseURL is the public Evolink API root.
const DefaultBaseURL = "https://api.evolink.ai/v1"

// maxErrorBody caps how much of an upstream error body ends up in messages.
const maxErrorBody = 512

// Static errors for Evolink client operations.
var (
	// ErrAPIKeyNotSet is returned when no API key is provided.
	ErrAPIKeyNotSet = errors.New("evolink: API key is not set")
	// ErrTaskIDRequired is returned when the task ID is not provided.
	ErrTaskIDRequired = errors.New("evolink: task ID is required")
	// ErrNoTaskIDReturned is returned when the create response contains no task ID.
	ErrNoTaskIDReturned = errors.New("evolink: create failed: no task ID returned")
	// ErrServerError is returned when the server returns a 5xx status code.
	ErrServerError = errors.New("evolink: server error")
	// ErrRateLimited is returned when the server returns a 429 status code.
	ErrRateLimited = errors.New("evolink: rate limited")
	// ErrRequestFailed is returned when the request fails with any other non-2xx status code.
	ErrRequestFailed = errors.New("evolink: request failed")
	// ErrMalformedResponse is returned when a 2xx body cannot be decoded.
	ErrMalformedResponse = errors.New("evolink: malformed response")
)

// StatusError carries the status code and body of a non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s with status %d: %s", e.sentinel().Error(), e.StatusCode, e.Body)
}

// Unwrap maps the status code onto the package sentinels.
func (e *StatusError) Unwrap() error {
	return e.sentinel()
}

func (e *StatusError) sentinel() error {
	switch {
	case e.StatusCode >= 500:
		return ErrServerError
	case e.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return ErrRequestFailed
	}
}

// Client defines the interface for interacting with the Evolink API.
type Client interface {
	// CreateGeneration creates a video generation task.
	CreateGeneration(ctx context.Context, req GenerationRequest) (GenerationResponse, error)

	// GetTask fetches the current state of a task.
	GetTask(ctx context.Context, taskID string) (TaskResponse, error)

	// GetGeneration fetches the generation detail record of a task, which
	// carries the result when the task endpoint omits it.
	GetGeneration(ctx context.Context, taskID string) (TaskResponse, error)

	// Cancel asks Evolink to stop a task.
	Cancel(ctx context.Context, taskID string) (bool, error)
}

// HTTPClient is the HTTP implementation of the Evolink Client interface.
type HTTPClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// ClientOption is a function that configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(hc *HTTPClient) {
		hc.httpClient = c
	}
}

// WithBaseURL sets a custom base URL for the Evolink API.
func WithBaseURL(u string) ClientOption {
	return func(hc *HTTPClient) {
		if u != "" {
			hc.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// NewClient creates a new Evolink HTTP client.
// The client sets no timeout of its own; deadlines come from the caller's context.
func NewClient(apiKey string, opts ...ClientOption) (*HTTPClient, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	c := &HTTPClient{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the API root the client talks to.
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// CreateGeneration creates a video generation task.
func (c *HTTPClient) CreateGeneration(ctx context.Context, req GenerationRequest) (GenerationResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return GenerationResponse{}, fmt.Errorf("evolink: marshal request: %w", err)
	}

	raw, err := c.do(ctx, http.MethodPost, c.baseURL+"/videos/generations", body)
	if err != nil {
		return GenerationResponse{}, err
	}

	var resp GenerationResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return GenerationResponse{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if resp.ID == "" {
		return GenerationResponse{}, ErrNoTaskIDReturned
	}
	return resp, nil
}

// GetTask fetches the current state of a task.
func (c *HTTPClient) GetTask(ctx context.Context, taskID string) (TaskResponse, error) {
	return c.getTask(ctx, "/tasks/", taskID)
}

// GetGeneration fetches the generation detail record of a task.
func (c *HTTPClient) GetGeneration(ctx context.Context, taskID string) (TaskResponse, error) {
	return c.getTask(ctx, "/videos/generations/", taskID)
}

func (c *HTTPClient) getTask(ctx context.Context, prefix, taskID string) (TaskResponse, error) {
	if taskID == "" {
		return TaskResponse{}, ErrTaskIDRequired
	}

	raw, err := c.do(ctx, http.MethodGet, c.baseURL+prefix+url.PathEscape(taskID), nil)
	if err != nil {
		return TaskResponse{}, err
	}

	var resp TaskResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return TaskResponse{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	resp.Raw = raw
	return resp, nil
}

// Cancel asks Evolink to stop a task.
func (c *HTTPClient) Cancel(ctx context.Context, taskID string) (bool, error) {
	if taskID == "" {
		return false, ErrTaskIDRequired
	}

	raw, err := c.do(ctx, http.MethodPost, c.baseURL+"/videos/generations/"+url.PathEscape(taskID)+"/cancel", nil)
	if err != nil {
		return false, err
	}

	var resp cancelResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return false, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return resp.Success, nil
}

// do performs a single HTTP request and returns the body of a 2xx response.
func (c *HTTPClient) do(ctx context.Context, method, target string, body []byte) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("evolink: create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("evolink: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("evolink: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(respBody))}
	}
	return respBody, nil
}

func truncate(s string) string {
	if len(s) <= maxErrorBody {
		return s
	}
	return s[:maxErrorBody] + "..."
}

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)
