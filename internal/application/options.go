package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bnema/collab-lifecycle/internal/domain"
	"github.com/rs/zerolog"
)

const (
	DefaultMaxAttempts = 3

	retryBaseDelay = 20 * time.Millisecond
)

type settings struct {
	logger      zerolog.Logger
	maxAttempts int
}

type Option func(*settings)

// WithLogger sets the operator log sink. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithMaxAttempts bounds how often one atomic store call is tried when the
// store reports a transient failure.
func WithMaxAttempts(attempts int) Option {
	return func(s *settings) {
		if attempts > 0 {
			s.maxAttempts = attempts
		}
	}
}

func newSettings(opts []Option) settings {
	s := settings{logger: zerolog.Nop(), maxAttempts: DefaultMaxAttempts}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// retry runs fn until it succeeds, fails with a non-transient error or runs
// out of attempts. The last transient error is returned as is, joined with the
// context error when ctx ends between attempts.
func retry[T any](ctx context.Context, s settings, op string, fn func() (T, error)) (T, error) {
	var (
		result T
		err    error
	)
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		result, err = fn()
		if err == nil || !domain.IsTransient(err) {
			return result, err
		}
		if attempt == s.maxAttempts {
			break
		}

		s.logger.Warn().Err(err).Str("op", op).Int("attempt", attempt).Msg("transient store error, retrying")

		timer := time.NewTimer(time.Duration(attempt) * retryBaseDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			var zero T
			return zero, fmt.Errorf("%s: %w", op, errors.Join(ctx.Err(), err))
		case <-timer.C:
		}
	}

	s.logger.Error().Err(err).Str("op", op).Int("attempts", s.maxAttempts).Msg("store unavailable")
	return result, err
}
