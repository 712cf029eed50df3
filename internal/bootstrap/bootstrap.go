// Package bootstrap provides dependency initialization for the video generation API.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maauso/videogen-api/internal/config"
	"github.com/maauso/videogen-api/internal/evolink"
	"github.com/maauso/videogen-api/internal/generator"
	"github.com/maauso/videogen-api/internal/proxy"
	"github.com/maauso/videogen-api/internal/replicate"
	"github.com/maauso/videogen-api/internal/storage"
	"github.com/maauso/videogen-api/internal/task"
)

// Dependencies holds all initialized dependencies for the HTTP server and CLI.
type Dependencies struct {
	VideoService *task.Service
	Orchestrator *generator.Orchestrator
	Files        *proxy.Resolver
	Storage      storage.Storage
}

// NewDependencies creates and initializes all dependencies for the application.
// Providers without credentials are still registered so they show up as
// unconfigured and are skipped by the fallback chain.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	var evolinkClient evolink.Client
	if cfg.EvolinkConfigured() {
		c, err := evolink.NewClient(cfg.EvolinkAPIKey, evolink.WithBaseURL(cfg.EvolinkBaseURL))
		if err != nil {
			return nil, fmt.Errorf("create Evolink client: %w", err)
		}
		evolinkClient = c
	} else {
		logger.Warn("Evolink API key not set, provider disabled")
	}

	var replicateClient replicate.Client
	if cfg.ReplicateConfigured() {
		c, err := replicate.NewClient(cfg.ReplicateAPIToken, replicate.WithBaseURL(cfg.ReplicateBaseURL))
		if err != nil {
			return nil, fmt.Errorf("create Replicate client: %w", err)
		}
		replicateClient = c
	} else {
		logger.Warn("Replicate API token not set, provider disabled")
	}

	orch := generator.NewOrchestrator(logger,
		generator.NewEvolinkAdapter(evolinkClient, generator.Profile(cfg.EvolinkModel)),
		generator.NewReplicateAdapter(replicateClient),
	)

	files := proxy.NewResolver(cfg.EvolinkBaseURL, cfg.EvolinkAPIKey)

	store, err := initStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	var opts []task.ServiceOption
	if cfg.MirrorEnabled() {
		opts = append(opts, task.WithArchiver(storage.NewMirror(store, files, logger)))
		logger.Info("mirroring succeeded videos to S3", slog.String("bucket", cfg.S3Bucket))
	}

	svc := task.NewService(orch, task.NewMemoryRepository(), logger, opts...)

	return &Dependencies{
		VideoService: svc,
		Orchestrator: orch,
		Files:        files,
		Storage:      store,
	}, nil
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(ctx, cfg.TempDir, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.TempDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("temp_dir", cfg.TempDir),
	)
	return localStore, nil
}
