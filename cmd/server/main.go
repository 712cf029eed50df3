// Package main provides the entry point for the video generation API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"github.com/maauso/videogen-api/internal/bootstrap"
	"github.com/maauso/videogen-api/internal/config"
	"github.com/maauso/videogen-api/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var envFile string
	flag.StringVar(&envFile, "env-file", ".env", "Optional dotenv file loaded before reading the environment")
	flag.Parse()

	// A missing dotenv file is fine; real environment variables still apply.
	envErr := godotenv.Load(envFile)

	ctx := context.Background()

	// Load configuration from environment
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Create structured logger
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		logger.Warn("failed to load env file",
			slog.String("path", envFile),
			slog.String("error", envErr.Error()),
		)
	}

	logger.Info("starting video generation API",
		slog.Int("port", cfg.Port),
		slog.String("log_format", cfg.LogFormat),
		slog.String("log_level", cfg.LogLevel),
		slog.String("evolink_model", cfg.EvolinkModel),
		slog.Bool("evolink_configured", cfg.EvolinkConfigured()),
		slog.Bool("replicate_configured", cfg.ReplicateConfigured()),
		slog.Bool("s3_enabled", cfg.S3Enabled()),
		slog.Bool("mirror_enabled", cfg.MirrorEnabled()),
	)
	logger.Debug("effective configuration", slog.String("config", cfg.String()))

	// Initialize dependencies using bootstrap
	deps, err := bootstrap.NewDependencies(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}

	// Initialize HTTP handlers and router
	handlers := server.NewHandlers(deps.VideoService, deps.Files, logger)
	router := server.NewRouter(handlers, logger, server.Config{
		AllowedOrigins:     cfg.AllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustProxyHeaders:  cfg.TrustProxyHeaders,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // File proxying streams whole videos
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown handling
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening",
			slog.String("addr", srv.Addr),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server failed: %w", err)
		}
	}()

	// Wait for shutdown signal or error
	select {
	case sig := <-shutdownCh:
		logger.Info("received shutdown signal",
			slog.String("signal", sig.String()),
		)
	case err := <-errCh:
		return err
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	logger.Info("shutting down server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	logger.Info("waiting for background mirroring")
	deps.VideoService.Wait()

	logger.Info("server stopped gracefully")
	return nil
}
