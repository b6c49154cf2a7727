// Package ai converts free-text clinical notes into structured sections by
// calling an external language-model provider. The provider is unreliable by
// nature, so everything here is built around bounded retries, per-attempt
// timeouts, and repair of incomplete responses.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// CompletionRequest describes one call to the model provider.
type CompletionRequest struct {
	SystemPrompt string
	UserText     string
	Timeout      time.Duration
	JSONMode     bool
}

// Provider is the abstract model-provider contract. Implementations return
// the raw response text; transient failures (rate limits, availability) are
// reported as *TransientError so callers can retry, anything else is final.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// ErrProviderUnavailable indicates the provider is not configured or not
// reachable at all. Surfaced to callers as a service-unavailable condition.
var ErrProviderUnavailable = errors.New("model provider unavailable")

// ErrProviderExhausted indicates every retry attempt failed transiently.
// Also a service-unavailable condition for callers.
var ErrProviderExhausted = errors.New("model provider retries exhausted")

// TransientError wraps a retryable provider failure: rate limiting, upstream
// overload, network errors, or an unparseable response.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient provider error: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err may succeed on retry.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsUnavailable reports whether err means the provider cannot serve requests
// at all, either unconfigured or with its retry budget spent.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrProviderUnavailable) || errors.Is(err, ErrProviderExhausted)
}
