package middleware

import (
	"context"
	"fmt"

	logx "github.com/chative/appointment-assistant/pkg/logger"
)

// RetryError is returned once every attempt has failed.
type RetryError struct {
	Attempts int
	Err      error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("all %d attempts failed: %v", e.Attempts, e.Err)
}

func (e *RetryError) Unwrap() error {
	return e.Err
}

// Retry calls op up to maxAttempts times and stops at the first success.
// It returns the number of attempts made. A cancelled context stops further
// attempts; the returned RetryError still carries the last operation error.
func Retry[T any](ctx context.Context, maxAttempts int, op func(context.Context) (T, error)) (T, int, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var zero T
	var lastErr error
	attempt := 0
	for attempt < maxAttempts {
		if err := ctx.Err(); err != nil {
			if lastErr == nil {
				lastErr = err
			}
			break
		}
		attempt++

		v, err := op(ctx)
		if err == nil {
			if attempt > 1 {
				logx.Info().Int("attempt", attempt).Msg("Retry succeeded")
			}
			return v, attempt, nil
		}
		lastErr = err
		logx.Warn().Err(err).Int("attempt", attempt).Int("max_attempts", maxAttempts).Msg("Attempt failed")
	}

	logx.Error().Err(lastErr).Int("attempts", attempt).Msg("All attempts failed")
	return zero, attempt, &RetryError{Attempts: attempt, Err: lastErr}
}
