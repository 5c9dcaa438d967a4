package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

const (
	maxAttempts = 3
	baseBackoff = 1 * time.Second
)

// withRetry runs op up to maxAttempts times with exponential backoff between
// attempts. Only transient failures are retried; a permanent failure or a
// dead context returns immediately.
func withRetry(ctx context.Context, name string, op func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isTransient(lastErr) {
			return lastErr
		}
		if attempt == maxAttempts {
			break
		}

		delay := baseBackoff << (attempt - 1)
		log.Warn().
			Err(lastErr).
			Str("op", name).
			Int("attempt", attempt).
			Dur("backoff", delay).
			Msg("Transient failure, backing off before retry")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", name, maxAttempts, lastErr)
}

// isTransient reports whether a failure is worth retrying. API errors are
// judged by status code; anything that is not an API error is assumed to be
// a network hiccup. Context cancellation is never transient.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == 429 || apiErr.Code >= 500
	}
	return true
}
