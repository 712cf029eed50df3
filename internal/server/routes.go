package server

import (
	"log/slog"
	"net/http"
	"time"
)

// Config contains server configuration options.
type Config struct {
	// AllowedOrigins is the list of allowed CORS origins.
	AllowedOrigins []string
	// RateLimitPerMinute caps requests per client IP; 0 disables the limit.
	RateLimitPerMinute int
	// TrustProxyHeaders keys the rate limit on X-Forwarded-For.
	TrustProxyHeaders bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		AllowedOrigins:     []string{"*"},
		RateLimitPerMinute: 60,
	}
}

// NewRouter creates a new HTTP router with all routes configured.
// It uses Go 1.22+ ServeMux with method-based routing.
func NewRouter(h *Handlers, logger *slog.Logger, cfg Config) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /v1/providers", h.ListProviders)
	mux.HandleFunc("POST /v1/videos", h.CreateVideo)
	mux.HandleFunc("GET /v1/videos/{taskId}", h.GetVideo)
	mux.HandleFunc("POST /v1/videos/{taskId}/cancel", h.CancelVideo)
	mux.HandleFunc("GET /v1/files", h.ProxyFile)

	chain := ChainMiddleware(
		RequestIDMiddleware(),
		RecoveryMiddleware(logger),
		LoggingMiddleware(logger),
		CORSMiddleware(cfg.AllowedOrigins),
		RateLimitMiddleware(cfg.RateLimitPerMinute, time.Minute, cfg.TrustProxyHeaders),
	)

	return chain(mux)
}
