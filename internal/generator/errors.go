package generator

import (
	"errors"
	"fmt"
	"strings"
)

// Error taxonomy shared by adapters and the orchestrator.
var (
	// ErrValidation is returned when a request violates provider constraints.
	// It is never retried against another provider.
	ErrValidation = errors.New("invalid request")
	// ErrConfiguration is returned when provider credentials are missing.
	ErrConfiguration = errors.New("provider not configured")
	// ErrUpstream is returned when a provider call fails or returns a malformed body.
	ErrUpstream = errors.New("upstream provider error")
	// ErrUnsupportedProvider is returned for an unknown provider name.
	ErrUnsupportedProvider = errors.New("unsupported provider")
	// ErrNoProviderAvailable is returned when every provider failed.
	ErrNoProviderAvailable = errors.New("no provider available")
	// ErrCancelUnsupported is returned when the provider cannot cancel tasks.
	ErrCancelUnsupported = errors.New("provider does not support cancel")
)

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func upstream(err error) error {
	return fmt.Errorf("%w: %w", ErrUpstream, err)
}

// Attempt records one provider's failure during Generate.
type Attempt struct {
	Provider string
	Err      error
}

// NoProviderError aggregates the failures of every provider tried by Generate.
type NoProviderError struct {
	Attempts []Attempt
}

func (e *NoProviderError) Error() string {
	if len(e.Attempts) == 0 {
		return ErrNoProviderAvailable.Error() + ": no providers registered"
	}
	return ErrNoProviderAvailable.Error() + ": " + e.Details()
}

// Details joins every attempt as "provider: reason" separated by " | ".
func (e *NoProviderError) Details() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, a.Provider+": "+a.Err.Error())
	}
	return strings.Join(parts, " | ")
}

// Is makes errors.Is(err, ErrNoProviderAvailable) hold.
func (e *NoProviderError) Is(target error) bool {
	return target == ErrNoProviderAvailable
}

// Unwrap exposes the individual attempt errors.
func (e *NoProviderError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}
	return errs
}
