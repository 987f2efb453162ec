package database

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

const (
	defaultRetryAttempts = 3
	defaultRetryBaseWait = time.Second
	retryJitterFraction  = 0.25
)

// retryBackoff returns 1s, 2s, 4s, ... for attempt 0, 1, 2, ... with ±25%
// jitter.
func retryBackoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := defaultRetryBaseWait << attempt
	jitter := time.Duration(float64(base) * retryJitterFraction * (2*rand.Float64() - 1)) // #nosec G404 -- jitter only
	return base + jitter
}

// connectWithRetry calls connect up to defaultRetryAttempts times, sleeping
// with exponential backoff between failures. It is only used while a
// process starts; request paths never retry.
func connectWithRetry(ctx context.Context, what string, logger *slog.Logger, connect func(context.Context) error) error {
	return retry(ctx, what, defaultRetryAttempts, retryBackoff, logger, connect)
}

func retry(ctx context.Context, what string, attempts int, backoff func(int) time.Duration, logger *slog.Logger, fn func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if lastErr = fn(ctx); lastErr == nil {
			return nil
		}
		if attempt == attempts-1 {
			break
		}

		wait := backoff(attempt)
		if logger != nil {
			logger.WarnContext(ctx, what+" connection failed, retrying",
				slog.Int("attempt", attempt+1),
				slog.Int("max_attempts", attempts),
				slog.Duration("backoff", wait),
				slog.String("error", lastErr.Error()),
			)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("connect to %s: %w", what, ctx.Err())
		case <-timer.C:
		}
	}
	return fmt.Errorf("connect to %s after %d attempts: %w", what, attempts, lastErr)
}
