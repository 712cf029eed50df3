// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrUnknownEvolinkModel is returned when EVOLINK_MODEL names an unknown profile.
	ErrUnknownEvolinkModel = errors.New("config: EVOLINK_MODEL must be seedance or wan")
	// ErrMirrorNeedsS3 is returned when MIRROR_TO_S3 is set without S3_BUCKET and S3_REGION.
	ErrMirrorNeedsS3 = errors.New("config: MIRROR_TO_S3 requires S3_BUCKET and S3_REGION")
	// ErrInvalidPort is returned for a port outside 1-65535.
	ErrInvalidPort = errors.New("config: PORT must be between 1 and 65535")
)

// Config holds all configuration for the application.
// Provider credentials are optional; a provider without them is skipped.
type Config struct {
	// Server settings
	Port               int      `env:"PORT, default=8080" json:"port"`
	AllowedOrigins     []string `env:"ALLOWED_ORIGINS, default=*" json:"allowed_origins"`
	RateLimitPerMinute int      `env:"RATE_LIMIT_PER_MINUTE, default=60" json:"rate_limit_per_minute"` // 0 disables
	TrustProxyHeaders  bool     `env:"TRUST_PROXY_HEADERS, default=false" json:"trust_proxy_headers"`

	// Evolink settings
	EvolinkAPIKey  string `env:"EVOLINK_API_KEY" json:"-"` // Masked in JSON
	EvolinkBaseURL string `env:"EVOLINK_API_BASE_URL, default=https://api.evolink.ai/v1" json:"evolink_api_base_url"`
	EvolinkModel   string `env:"EVOLINK_MODEL, default=seedance" json:"evolink_model"`

	// Replicate settings
	ReplicateAPIToken string `env:"REPLICATE_API_TOKEN" json:"-"` // Masked in JSON
	ReplicateBaseURL  string `env:"REPLICATE_API_BASE_URL, default=https://api.replicate.com/v1" json:"replicate_api_base_url"`

	// Storage settings
	TempDir    string `env:"TEMP_DIR, default=/tmp/videogen" json:"temp_dir"`
	MirrorToS3 bool   `env:"MIRROR_TO_S3, default=false" json:"mirror_to_s3"`

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// EvolinkConfigured returns true if an Evolink API key is set.
func (c *Config) EvolinkConfigured() bool {
	return c.EvolinkAPIKey != ""
}

// ReplicateConfigured returns true if a Replicate API token is set.
func (c *Config) ReplicateConfigured() bool {
	return c.ReplicateAPIToken != ""
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// MirrorEnabled returns true if succeeded media should be copied to S3.
func (c *Config) MirrorEnabled() bool {
	return c.MirrorToS3 && c.S3Enabled()
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}

	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.EvolinkModel = strings.ToLower(strings.TrimSpace(cfg.EvolinkModel))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that envconfig cannot express.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return ErrInvalidPort
	}
	switch c.EvolinkModel {
	case "seedance", "wan":
	default:
		return ErrUnknownEvolinkModel
	}
	if c.MirrorToS3 && !c.S3Enabled() {
		return ErrMirrorNeedsS3
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	return c.NewLoggerTo(os.Stdout)
}

// NewLoggerTo is NewLogger writing to w.
func (c *Config) NewLoggerTo(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(c.LogLevel)}

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, EvolinkAPIKey: %s, EvolinkBaseURL: %s, EvolinkModel: %s, ReplicateAPIToken: %s, ReplicateBaseURL: %s, TempDir: %s, MirrorToS3: %t, S3Bucket: %s, S3Region: %s, S3Endpoint: %s, RateLimitPerMinute: %d, TrustProxyHeaders: %t, LogFormat: %s, LogLevel: %s}",
		c.Port,
		mask(c.EvolinkAPIKey),
		c.EvolinkBaseURL,
		c.EvolinkModel,
		mask(c.ReplicateAPIToken),
		c.ReplicateBaseURL,
		c.TempDir,
		c.MirrorToS3,
		c.S3Bucket,
		c.S3Region,
		c.S3Endpoint,
		c.RateLimitPerMinute,
		c.TrustProxyHeaders,
		c.LogFormat,
		c.LogLevel,
	)
}

func mask(secret string) string {
	if secret == "" {
		return "<unset>"
	}
	return "****"
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
