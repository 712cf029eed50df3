package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ProviderInfo describes a registered provider.
type ProviderInfo struct {
	Name       string `json:"name"`
	Priority   int    `json:"priority"`
	Configured bool   `json:"configured"`
	CanCancel  bool   `json:"canCancel"`
}

// Orchestrator tries generators in priority order and routes task
// operations to the provider that owns the task.
type Orchestrator struct {
	generators []Generator
	byName     map[string]Generator
	logger     *slog.Logger
}

// NewOrchestrator creates an orchestrator. Priority follows argument order.
func NewOrchestrator(logger *slog.Logger, generators ...Generator) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	byName := make(map[string]Generator, len(generators))
	for _, g := range generators {
		byName[g.Name()] = g
	}
	return &Orchestrator{
		generators: generators,
		byName:     byName,
		logger:     logger,
	}
}

// Generate submits req to the first provider that accepts it.
//
// A validation error from the first provider tried is returned as-is.
// Configuration and upstream errors move on to the next provider. Once an
// earlier provider has failed, a fallback's narrower limits are recorded as
// one more attempt so the outage stays visible; when all of them fail the
// returned error is a *NoProviderError.
func (o *Orchestrator) Generate(ctx context.Context, req Request) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, err
	}

	var attempts []Attempt
	var trail []string
	for _, g := range o.generators {
		name := g.Name()
		if !g.Configured() {
			attempts = append(attempts, Attempt{
				Provider: name,
				Err:      fmt.Errorf("%w: missing credentials", ErrConfiguration),
			})
			o.logger.Debug("skipping unconfigured provider", "provider", name)
			continue
		}

		res, err := o.create(ctx, g, req)
		if err == nil {
			res.FallbackErrors = trail
			o.logger.Info("generation task created",
				"provider", name,
				"task_id", res.TaskID,
				"status", res.Status,
				"fallbacks", len(trail),
			)
			return res, nil
		}
		if errors.Is(err, ErrValidation) && len(attempts) == 0 {
			return Result{}, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, fmt.Errorf("generate: %w", ctxErr)
		}

		attempts = append(attempts, Attempt{Provider: name, Err: err})
		if !errors.Is(err, ErrConfiguration) {
			trail = append(trail, name+": "+err.Error())
		}
		o.logger.Warn("provider failed, trying next", "provider", name, "error", err)
	}

	return Result{}, &NoProviderError{Attempts: attempts}
}

// create calls g.Create and turns a task that is already failed or
// cancelled into an upstream error carrying the provider's reason.
func (o *Orchestrator) create(ctx context.Context, g Generator, req Request) (Result, error) {
	res, err := g.Create(ctx, req)
	if err != nil {
		return Result{}, err
	}
	if res.Status != StatusFailed && res.Status != StatusCancelled {
		return res, nil
	}

	detail := "no detail available"
	st, err := g.Status(ctx, res.TaskID)
	switch {
	case err != nil:
		o.logger.Debug("failure detail lookup failed", "provider", g.Name(), "task_id", res.TaskID, "error", err)
	case st.Error != nil && st.Error.Message != "":
		detail = st.Error.Message
	case st.Error != nil && st.Error.Code != "":
		detail = st.Error.Code
	}
	return Result{}, fmt.Errorf("%w: task %s on create: %s", ErrUpstream, res.Status, detail)
}

// Status fetches the state of taskID from the named provider. There is no
// fallback: a task lives on exactly one provider.
func (o *Orchestrator) Status(ctx context.Context, taskID, provider string) (TaskStatus, error) {
	g, err := o.lookup(provider)
	if err != nil {
		return TaskStatus{}, err
	}
	st, err := g.Status(ctx, taskID)
	if err != nil {
		return TaskStatus{}, err
	}
	if st.Status != StatusSucceeded {
		st.MediaURL = ""
	}
	return st, nil
}

// Cancel asks the named provider to stop taskID.
func (o *Orchestrator) Cancel(ctx context.Context, taskID, provider string) (bool, error) {
	g, err := o.lookup(provider)
	if err != nil {
		return false, err
	}
	c, ok := g.(Canceller)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrCancelUnsupported, provider)
	}
	return c.Cancel(ctx, taskID)
}

// Providers lists registered providers in priority order.
func (o *Orchestrator) Providers() []ProviderInfo {
	out := make([]ProviderInfo, 0, len(o.generators))
	for i, g := range o.generators {
		_, canCancel := g.(Canceller)
		out = append(out, ProviderInfo{
			Name:       g.Name(),
			Priority:   i + 1,
			Configured: g.Configured(),
			CanCancel:  canCancel,
		})
	}
	return out
}

func (o *Orchestrator) lookup(provider string) (Generator, error) {
	g, ok := o.byName[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, provider)
	}
	return g, nil
}
