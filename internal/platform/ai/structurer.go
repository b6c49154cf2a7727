package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const (
	// autoFill is substituted for any required section the model omitted.
	autoFill = "Not documented (Auto-filled)"

	defaultMaxAttempts    = 3
	defaultRequestTimeout = 20 * time.Second
	summaryTimeout        = 25 * time.Second

	summaryUnavailable = "Clinical summary unavailable (AI not configured)."
	summaryFailed      = "Summary generation failed."
)

// Structurer turns raw clinical text into a structured section map by
// prompting the provider in JSON mode. Transient provider failures are
// retried with a linear backoff; permanent failures abort immediately.
type Structurer struct {
	provider    Provider
	logger      zerolog.Logger
	maxAttempts int
	backoffBase time.Duration
	timeout     time.Duration
}

// StructurerOption configures a Structurer.
type StructurerOption func(*Structurer)

// WithMaxAttempts overrides the retry budget for transient failures.
func WithMaxAttempts(n int) StructurerOption {
	return func(s *Structurer) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithBackoffBase overrides the backoff unit. Tests use a tiny value.
func WithBackoffBase(d time.Duration) StructurerOption {
	return func(s *Structurer) { s.backoffBase = d }
}

// WithRequestTimeout overrides the per-attempt completion timeout.
func WithRequestTimeout(d time.Duration) StructurerOption {
	return func(s *Structurer) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func NewStructurer(provider Provider, logger zerolog.Logger, opts ...StructurerOption) *Structurer {
	s := &Structurer{
		provider:    provider,
		logger:      logger.With().Str("component", "structurer").Logger(),
		maxAttempts: defaultMaxAttempts,
		backoffBase: time.Second,
		timeout:     defaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Structure prompts the provider with the note-type template and parses the
// JSON reply into a section map, repairing any missing required sections.
// Transient errors (timeouts, rate limits, malformed JSON) consume one
// attempt each; the error returned after the budget is spent wraps
// ErrProviderExhausted.
func (s *Structurer) Structure(ctx context.Context, text, noteType string) (map[string]string, error) {
	prompt := promptFor(noteType)
	required := RequiredKeys(noteType)

	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		content, err := s.provider.Complete(ctx, CompletionRequest{
			SystemPrompt: prompt,
			UserText:     text,
			Timeout:      s.timeout,
			JSONMode:     true,
		})
		if err == nil {
			var parsed map[string]any
			if jsonErr := json.Unmarshal([]byte(content), &parsed); jsonErr != nil {
				err = &TransientError{Err: fmt.Errorf("parse structured reply: %w", jsonErr)}
			} else {
				return Repair(parsed, required), nil
			}
		}

		if !IsTransient(err) {
			return nil, err
		}
		lastErr = err
		s.logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", s.maxAttempts).
			Str("note_type", noteType).
			Msg("structuring attempt failed")

		if attempt < s.maxAttempts {
			if err := sleepCtx(ctx, time.Duration(attempt)*s.backoffBase); err != nil {
				return nil, err
			}
		}
	}

	s.logger.Error().
		Err(lastErr).
		Int("attempts", s.maxAttempts).
		Str("note_type", noteType).
		Msg("structuring retries exhausted")
	return nil, fmt.Errorf("%w after %d attempts: %v", ErrProviderExhausted, s.maxAttempts, lastErr)
}

// Repair normalizes a parsed reply into a complete section map. Missing
// required sections are auto-filled, non-string values are coerced to text,
// and extra sections the model volunteered are preserved.
func Repair(parsed map[string]any, required []string) map[string]string {
	out := make(map[string]string, len(required))
	for key, value := range parsed {
		out[key] = coerce(value)
	}
	// Only absent keys are filled; a section the model answered with an
	// empty string stays empty.
	for _, key := range required {
		if _, ok := out[key]; !ok {
			out[key] = autoFill
		}
	}
	return out
}

func coerce(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case map[string]any, []any:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	default:
		return fmt.Sprint(v)
	}
}

// Summarize produces a brief clinical summary of a patient's note history.
// It is a single best-effort call with no retries; failures degrade to a
// fixed fallback string rather than an error.
func (s *Structurer) Summarize(ctx context.Context, historyText string) string {
	content, err := s.provider.Complete(ctx, CompletionRequest{
		SystemPrompt: summaryPrompt,
		UserText:     historyText,
		Timeout:      summaryTimeout,
	})
	if err != nil {
		if IsUnavailable(err) {
			return summaryUnavailable
		}
		s.logger.Warn().Err(err).Msg("summary generation failed")
		return summaryFailed
	}
	return content
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
