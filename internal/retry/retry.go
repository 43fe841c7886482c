// Package retry repeats an operation with exponential backoff until it
// succeeds, fails permanently, runs out of attempts or the context ends.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	defaultInitialDelay = 10 * time.Millisecond
	defaultMaxDelay     = 500 * time.Millisecond
)

// Config represents retry configuration.
type Config struct {
	MaxAttempts    int           // Maximum number of attempts; 0 retries until ctx is done
	InitialBackoff time.Duration // Initial backoff duration (default: 10ms)
	MaxBackoff     time.Duration // Maximum backoff duration (default: 500ms)
	// Retryable decides whether an error is worth another attempt.
	// Nil retries every error not marked with Permanent.
	Retryable func(error) bool
}

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err so that Do returns it without retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do calls fn until it returns nil. The returned error wraps the last error
// from fn, or is ctx.Err() joined with it when the context ended first.
func Do(ctx context.Context, fn func() error, cfg Config) error {
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = defaultInitialDelay
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = defaultMaxDelay
	}

	var lastErr error
	for attempt := 0; cfg.MaxAttempts <= 0 || attempt < cfg.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if cfg.Retryable != nil && !cfg.Retryable(err) {
			return err
		}

		if cfg.MaxAttempts > 0 && attempt == cfg.MaxAttempts-1 {
			break
		}

		timer := time.NewTimer(calculateBackoff(attempt, cfg.InitialBackoff, cfg.MaxBackoff))
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return errors.Join(ctx.Err(), lastErr)
		}
	}

	return fmt.Errorf("all %d attempts failed: %w", cfg.MaxAttempts, lastErr)
}

// calculateBackoff calculates the backoff duration for a given attempt.
// Uses exponential backoff: 2^attempt * initial
// Capped at maxBackoff if the result exceeds it.
func calculateBackoff(attempt int, initial, max time.Duration) time.Duration {
	if attempt > 30 {
		return max
	}
	backoff := time.Duration(1<<uint(attempt)) * initial

	if backoff > max || backoff <= 0 {
		return max
	}

	return backoff
}
