// Package main provides a command line client that drives the providers
// directly, without the HTTP server.
//
// Usage:
//
//	videogen generate --prompt "a red fox in snow" [--wait]
//	videogen generate --type image-to-video --image https://... --duration 10
//	videogen status <task-id> --provider evolink
//	videogen cancel <task-id> --provider evolink
//	videogen providers
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/maauso/videogen-api/internal/bootstrap"
	"github.com/maauso/videogen-api/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		fmt.Fprint(stdout, usage)
		return nil
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(stderr, "warning: failed to load .env: %v\n", err)
	}

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	// Logs go to stderr so stdout stays machine readable.
	logger := cfg.NewLoggerTo(stderr)
	slog.SetDefault(logger)

	deps, err := bootstrap.NewDependencies(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}
	defer deps.VideoService.Wait()

	return execute(ctx, deps.VideoService, args, stdout)
}

const usage = `videogen drives Evolink and Replicate video generation.

Commands:
  generate   start a generation (falls back across providers)
  status     print the status of a task
  cancel     cancel a task (Evolink only)
  providers  list providers in priority order

Run "videogen <command> --help" for command flags.
`
