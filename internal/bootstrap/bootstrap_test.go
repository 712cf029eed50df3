package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/videogen-api/internal/config"
	"github.com/maauso/videogen-api/internal/generator"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Port:             8080,
		EvolinkBaseURL:   "https://api.evolink.ai/v1",
		EvolinkModel:     "seedance",
		ReplicateBaseURL: "https://api.replicate.com/v1",
		TempDir:          t.TempDir(),
	}
}

func TestNewDependencies_NoCredentials(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	deps, err := NewDependencies(context.Background(), testConfig(t), logger)
	require.NoError(t, err)

	providers := deps.VideoService.Providers()
	require.Len(t, providers, 2)
	assert.Equal(t, "evolink", providers[0].Name)
	assert.Equal(t, "replicate", providers[1].Name)
	assert.False(t, providers[0].Configured)
	assert.False(t, providers[1].Configured)
	assert.False(t, deps.Files.ResolvesIDs())

	_, err = deps.VideoService.Create(context.Background(), generator.Request{
		Kind:   generator.KindTextToVideo,
		Prompt: "a fox",
	})
	assert.ErrorIs(t, err, generator.ErrNoProviderAvailable)
}

func TestNewDependencies_WithCredentials(t *testing.T) {
	cfg := testConfig(t)
	cfg.EvolinkAPIKey = "ek"
	cfg.ReplicateAPIToken = "rt"
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	deps, err := NewDependencies(context.Background(), cfg, logger)
	require.NoError(t, err)

	providers := deps.Orchestrator.Providers()
	assert.True(t, providers[0].Configured)
	assert.True(t, providers[0].CanCancel)
	assert.True(t, providers[1].Configured)
	assert.False(t, providers[1].CanCancel)
	assert.True(t, deps.Files.ResolvesIDs())
	assert.NotNil(t, deps.Storage)
}
