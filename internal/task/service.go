package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/maauso/videogen-api/internal/generator"
)

// ErrProviderRequired is returned when a status or cancel call names no
// provider and the task is not in the registry.
var ErrProviderRequired = errors.New("provider is required for unknown task")

// Orchestrator is the subset of generator.Orchestrator used by Service.
type Orchestrator interface {
	Generate(ctx context.Context, req generator.Request) (generator.Result, error)
	Status(ctx context.Context, taskID, provider string) (generator.TaskStatus, error)
	Cancel(ctx context.Context, taskID, provider string) (bool, error)
	Providers() []generator.ProviderInfo
}

// Archiver copies finished media into the application's own storage.
type Archiver interface {
	Archive(ctx context.Context, provider, taskID, mediaURL string) (string, error)
}

// Service coordinates provider calls with the task registry.
type Service struct {
	orchestrator Orchestrator
	repo         Repository
	archiver     Archiver
	logger       *slog.Logger

	wg sync.WaitGroup
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithArchiver enables mirroring of succeeded media.
func WithArchiver(a Archiver) ServiceOption {
	return func(s *Service) {
		s.archiver = a
	}
}

// NewService creates a new Service.
func NewService(orchestrator Orchestrator, repo Repository, logger *slog.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		orchestrator: orchestrator,
		repo:         repo,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Providers lists the registered providers in priority order.
func (s *Service) Providers() []generator.ProviderInfo {
	return s.orchestrator.Providers()
}

// Create submits req and registers the resulting task.
func (s *Service) Create(ctx context.Context, req generator.Request) (generator.Result, error) {
	res, err := s.orchestrator.Generate(ctx, req)
	if err != nil {
		return generator.Result{}, err
	}

	rec := NewRecord(res.TaskID, res.Provider, req.Kind)
	if res.Status != generator.StatusPending {
		// Only pending and processing reach here; failed creates are errors.
		_ = rec.Observe(generator.TaskStatus{Status: res.Status})
	}
	if err := s.repo.Save(ctx, rec); err != nil {
		s.logger.Error("failed to save task record",
			slog.String("task_id", res.TaskID),
			slog.String("error", err.Error()),
		)
		return generator.Result{}, fmt.Errorf("save task: %w", err)
	}

	s.logger.Info("task registered",
		slog.String("task_id", res.TaskID),
		slog.String("provider", res.Provider),
		slog.String("kind", string(req.Kind)),
	)
	return res, nil
}

// Refresh fetches the current status of taskID and folds it into the
// registry. provider may be empty when the task is registered.
func (s *Service) Refresh(ctx context.Context, taskID, provider string) (generator.TaskStatus, *Record, error) {
	rec, provider, err := s.resolve(ctx, taskID, provider)
	if err != nil {
		return generator.TaskStatus{}, nil, err
	}

	st, err := s.orchestrator.Status(ctx, taskID, provider)
	if err != nil {
		return generator.TaskStatus{}, nil, err
	}

	if err := rec.Observe(st); err != nil {
		s.logger.Warn("ignoring status update",
			slog.String("task_id", taskID),
			slog.String("provider", provider),
			slog.String("from", string(rec.GetStatus())),
			slog.String("to", string(st.Status)),
			slog.String("error", err.Error()),
		)
	}
	if st.Unresolved() {
		s.logger.Warn("task succeeded without a media URL",
			slog.String("task_id", taskID),
			slog.String("provider", provider),
		)
	}

	if err := s.repo.Save(ctx, rec); err != nil {
		return generator.TaskStatus{}, nil, fmt.Errorf("save task: %w", err)
	}

	s.maybeMirror(ctx, rec)
	return st, rec.Clone(), nil
}

// Cancel asks the owning provider to stop taskID and returns the provider
// the request was routed to.
func (s *Service) Cancel(ctx context.Context, taskID, provider string) (string, bool, error) {
	_, provider, err := s.resolve(ctx, taskID, provider)
	if err != nil {
		return "", false, err
	}
	ok, err := s.orchestrator.Cancel(ctx, taskID, provider)
	if err != nil {
		return provider, false, err
	}
	s.logger.Info("task cancel requested",
		slog.String("task_id", taskID),
		slog.String("provider", provider),
		slog.Bool("accepted", ok),
	)
	return provider, ok, nil
}

// Get returns the registry record for taskID.
func (s *Service) Get(ctx context.Context, taskID string) (*Record, error) {
	return s.repo.FindByID(ctx, taskID)
}

// Wait blocks until background mirroring has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// resolve finds the record and provider for taskID. Tasks the registry has
// never seen are adopted when the caller names the provider.
func (s *Service) resolve(ctx context.Context, taskID, provider string) (*Record, string, error) {
	if taskID == "" {
		return nil, "", fmt.Errorf("%w: task id is required", generator.ErrValidation)
	}

	rec, err := s.repo.FindByID(ctx, taskID)
	switch {
	case err == nil:
		if provider == "" {
			provider = rec.Provider
		}
		if provider != rec.Provider {
			return nil, "", fmt.Errorf("%w: task %s belongs to %s", generator.ErrValidation, taskID, rec.Provider)
		}
		return rec, provider, nil
	case errors.Is(err, ErrTaskNotFound):
		if provider == "" {
			return nil, "", fmt.Errorf("%w: %s", ErrProviderRequired, taskID)
		}
		return NewRecord(taskID, provider, ""), provider, nil
	default:
		return nil, "", fmt.Errorf("find task: %w", err)
	}
}

func (s *Service) maybeMirror(ctx context.Context, rec *Record) {
	if s.archiver == nil {
		return
	}
	snap := rec.Clone()
	if snap.Status != generator.StatusSucceeded || snap.MediaURL == "" || snap.MirrorURL != "" {
		return
	}

	s.wg.Add(1)
	go func(ctx context.Context) {
		defer s.wg.Done()

		u, err := s.archiver.Archive(ctx, snap.Provider, snap.TaskID, snap.MediaURL)
		if err != nil {
			s.logger.Error("mirror failed",
				slog.String("task_id", snap.TaskID),
				slog.String("provider", snap.Provider),
				slog.String("error", err.Error()),
			)
			return
		}

		stored, err := s.repo.FindByID(ctx, snap.TaskID)
		if err != nil {
			return
		}
		stored.SetMirrorURL(u)
		if err := s.repo.Save(ctx, stored); err != nil {
			s.logger.Error("failed to save mirror url",
				slog.String("task_id", snap.TaskID),
				slog.String("error", err.Error()),
			)
			return
		}
		s.logger.Info("media mirrored",
			slog.String("task_id", snap.TaskID),
			slog.String("url", u),
		)
	}(context.WithoutCancel(ctx))
}
