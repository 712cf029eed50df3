// Package proxy streams provider-hosted files to clients.
//
// A target is either an http(s) URL, fetched directly, or a bare Evolink file
// id that is resolved through the files API. The provider credential is only
// sent to the provider's own host.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/maauso/videogen-api/internal/mediaurl"
)

// DefaultContentType is reported when upstream omits Content-Type.
const DefaultContentType = "application/octet-stream"

// maxJSONBody bounds how much of a JSON file descriptor is read.
const maxJSONBody = 1 << 20

// Static errors for the proxy.
var (
	// ErrInvalidTarget is returned for an empty target, or a bare id when no
	// file provider is configured.
	ErrInvalidTarget = errors.New("invalid url parameter")
	// ErrNotResolved is returned when no file endpoint yields content for an id.
	ErrNotResolved = errors.New("failed to resolve file id")
)

// UpstreamStatusError reports a non-2xx answer for a direct URL.
type UpstreamStatusError struct {
	StatusCode int
	Status     string
}

func (e *UpstreamStatusError) Error() string {
	return fmt.Sprintf("failed to fetch file: %s", e.Status)
}

// Resolver opens proxy targets.
type Resolver struct {
	baseURL    string
	apiKey     string
	host       string
	httpClient *http.Client
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Resolver) {
		r.httpClient = c
	}
}

// NewResolver creates a Resolver. baseURL and apiKey describe the file
// provider; either may be empty, in which case only direct URLs are served.
func NewResolver(baseURL, apiKey string, opts ...Option) *Resolver {
	r := &Resolver{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{},
	}
	if u, err := url.Parse(r.baseURL); err == nil {
		r.host = u.Host
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolvesIDs reports whether bare file ids can be resolved.
func (r *Resolver) ResolvesIDs() bool {
	return r.baseURL != "" && r.apiKey != "" && r.host != ""
}

// Candidates returns the endpoints tried, in order, for a file id.
func (r *Resolver) Candidates(id string) []string {
	escaped := url.PathEscape(id)
	return []string{
		r.baseURL + "/files/" + escaped,
		r.baseURL + "/files/" + escaped + "/download",
	}
}

// Open fetches target and returns the upstream response with an unread body.
// The caller must close the body.
func (r *Resolver) Open(ctx context.Context, target string) (*http.Response, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, fmt.Errorf("%w: url is required", ErrInvalidTarget)
	}

	if IsHTTPURL(target) {
		resp, err := r.fetch(ctx, target)
		if err != nil {
			return nil, err
		}
		if !success(resp) {
			resp.Body.Close()
			return nil, &UpstreamStatusError{StatusCode: resp.StatusCode, Status: resp.Status}
		}
		return resp, nil
	}

	if !r.ResolvesIDs() {
		return nil, fmt.Errorf("%w: %q is not an http(s) URL", ErrInvalidTarget, target)
	}

	for _, candidate := range r.Candidates(target) {
		resp, err := r.fetch(ctx, candidate)
		if err != nil {
			return nil, err
		}
		if !success(resp) {
			resp.Body.Close()
			continue
		}
		if !isJSON(resp.Header.Get("Content-Type")) {
			return resp, nil
		}

		resolved, err := resolveDescriptor(resp)
		if err != nil || resolved == "" {
			continue
		}
		file, err := r.fetch(ctx, resolved)
		if err != nil {
			return nil, err
		}
		if !success(file) {
			file.Body.Close()
			continue
		}
		return file, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrNotResolved, target)
}

func (r *Resolver) fetch(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("proxy: create request: %w", err)
	}
	if r.ResolvesIDs() && req.URL.Host == r.host {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("proxy: fetch %s: %w", req.URL.Host, err)
	}
	return resp, nil
}

// resolveDescriptor reads a JSON file descriptor and closes its body.
func resolveDescriptor(resp *http.Response) (string, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxJSONBody))
	if err != nil {
		return "", err
	}
	return mediaurl.ExtractURLJSON(body), nil
}

// ContentType returns the upstream content type or DefaultContentType.
func ContentType(resp *http.Response) string {
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return DefaultContentType
}

// IsHTTPURL reports whether s parses as an absolute http or https URL.
func IsHTTPURL(s string) bool {
	return mediaurl.IsHTTPURL(s)
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(contentType, "application/json")
	}
	return mt == "application/json"
}

func success(resp *http.Response) bool {
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
