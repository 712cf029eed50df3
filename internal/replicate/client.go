package replicate

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

	"github.com/tidwall/sjson"
)

// DefaultBaseURL is the public Replicate API root.
const DefaultBaseURL = "https://api.replicate.com/v1"

const maxErrorBody = 512

// Static errors for Replicate client operations.
var (
	// ErrTokenNotSet is returned when no API token is provided.
	ErrTokenNotSet = errors.New("replicate: API token is not set")
	// ErrModelRequired is returned when the model is empty or not owner/name.
	ErrModelRequired = errors.New("replicate: model must be owner/name or owner/name:version")
	// ErrPredictionIDRequired is returned when the prediction ID is not provided.
	ErrPredictionIDRequired = errors.New("replicate: prediction ID is required")
	// ErrNoPredictionIDReturned is returned when the create response contains no ID.
	ErrNoPredictionIDReturned = errors.New("replicate: create failed: no prediction ID returned")
	// ErrServerError is returned when the server returns a 5xx status code.
	ErrServerError = errors.New("replicate: server error")
	// ErrRateLimited is returned when the server returns a 429 status code.
	ErrRateLimited = errors.New("replicate: rate limited")
	// ErrRequestFailed is returned when the request fails with any other non-2xx status code.
	ErrRequestFailed = errors.New("replicate: request failed")
	// ErrMalformedResponse is returned when a 2xx body cannot be decoded.
	ErrMalformedResponse = errors.New("replicate: malformed response")
)

// StatusError carries the status code and body of a non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s with status %d: %s", e.Unwrap().Error(), e.StatusCode, e.Body)
}

// Unwrap maps the status code onto the package sentinels.
func (e *StatusError) Unwrap() error {
	switch {
	case e.StatusCode >= 500:
		return ErrServerError
	case e.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return ErrRequestFailed
	}
}

// Client defines the interface for interacting with the Replicate API.
type Client interface {
	// CreatePrediction starts a prediction for model with the given JSON input.
	// webhook is attached only when non-empty.
	CreatePrediction(ctx context.Context, model string, input []byte, webhook string) (Prediction, error)

	// GetPrediction fetches the current state of a prediction.
	GetPrediction(ctx context.Context, id string) (Prediction, error)
}

// HTTPClient is the HTTP implementation of the Replicate Client interface.
type HTTPClient struct {
	token      string
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

// WithBaseURL sets a custom base URL for the Replicate API.
func WithBaseURL(u string) ClientOption {
	return func(hc *HTTPClient) {
		if u != "" {
			hc.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// NewClient creates a new Replicate HTTP client.
func NewClient(token string, opts ...ClientOption) (*HTTPClient, error) {
	if token == "" {
		return nil, ErrTokenNotSet
	}

	c := &HTTPClient{
		token:      token,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// CreatePrediction starts a prediction.
// "owner/name" targets the model's latest version through the models
// endpoint; "owner/name:version" pins a version through /predictions.
func (c *HTTPClient) CreatePrediction(ctx context.Context, model string, input []byte, webhook string) (Prediction, error) {
	name, version, _ := strings.Cut(model, ":")
	if !strings.Contains(name, "/") {
		return Prediction{}, ErrModelRequired
	}
	if len(input) == 0 {
		input = []byte(`{}`)
	}

	body, err := sjson.SetRawBytes([]byte(`{}`), "input", input)
	if err != nil {
		return Prediction{}, fmt.Errorf("replicate: build request: %w", err)
	}

	target := c.baseURL + "/models/" + name + "/predictions"
	if version != "" {
		target = c.baseURL + "/predictions"
		if body, err = sjson.SetBytes(body, "version", version); err != nil {
			return Prediction{}, fmt.Errorf("replicate: build request: %w", err)
		}
	}

	if webhook != "" {
		if body, err = sjson.SetBytes(body, "webhook", webhook); err != nil {
			return Prediction{}, fmt.Errorf("replicate: build request: %w", err)
		}
		if body, err = sjson.SetBytes(body, "webhook_events_filter", []string{"completed"}); err != nil {
			return Prediction{}, fmt.Errorf("replicate: build request: %w", err)
		}
	}

	pred, err := c.prediction(ctx, http.MethodPost, target, body)
	if err != nil {
		return Prediction{}, err
	}
	if pred.ID == "" {
		return Prediction{}, ErrNoPredictionIDReturned
	}
	return pred, nil
}

// GetPrediction fetches the current state of a prediction.
func (c *HTTPClient) GetPrediction(ctx context.Context, id string) (Prediction, error) {
	if id == "" {
		return Prediction{}, ErrPredictionIDRequired
	}
	return c.prediction(ctx, http.MethodGet, c.baseURL+"/predictions/"+url.PathEscape(id), nil)
}

func (c *HTTPClient) prediction(ctx context.Context, method, target string, body []byte) (Prediction, error) {
	raw, err := c.do(ctx, method, target, body)
	if err != nil {
		return Prediction{}, err
	}

	var pred Prediction
	if err := json.Unmarshal(raw, &pred); err != nil {
		return Prediction{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	pred.Raw = raw
	return pred, nil
}

// do performs a single HTTP request and returns the body of a 2xx response.
func (c *HTTPClient) do(ctx context.Context, method, target string, body []byte) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("replicate: create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("replicate: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("replicate: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := string(respBody)
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody] + "..."
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: msg}
	}
	return respBody, nil
}

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)
