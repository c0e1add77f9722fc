package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ErrNoKeys is returned when a client has no API keys configured at all.
var ErrNoKeys = errors.New("no API keys configured")

const maxAttemptsPerKey = 3

// dedupeKeys trims and deduplicates keys, preserving order. The resulting
// slice is treated as read-only configuration for the client's lifetime.
func dedupeKeys(keys []string) []string {
	seen := make(map[string]bool, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

// keyHint returns a loggable prefix of an API key.
func keyHint(key string) string {
	if len(key) <= 8 {
		return key
	}
	return key[:8] + "..."
}

// runWithKeys drives the key/attempt failover loop shared by both backend
// families. Keys are tried in their configured order; the first key whose
// attempt succeeds wins for this call, and no state carries over to the next
// call. Per key the attempt runs up to maxAttemptsPerKey times with
// exponential backoff on retryable failures; a terminal failure (bad key,
// quota spent) abandons the key immediately. retryDelay may override the
// exponential schedule when the backend advises a wait (nil to disable).
func runWithKeys(
	ctx context.Context,
	keys []string,
	baseDelay time.Duration,
	logger *slog.Logger,
	retryDelay func(err error, fallback time.Duration) time.Duration,
	attempt func(ctx context.Context, key string) error,
) error {
	if len(keys) == 0 {
		return ErrNoKeys
	}

	var lastErr error
	for _, key := range keys {
		for try := 1; try <= maxAttemptsPerKey; try++ {
			err := attempt(ctx, key)
			if err == nil {
				return nil
			}
			var ee emitError
			if errors.As(err, &ee) {
				return ee.err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err

			reason := Classify(err)
			logger.Warn("provider attempt failed",
				"key", keyHint(key),
				"attempt", try,
				"reason", reason.String(),
				"error", err,
			)

			if reason.Terminal() {
				break // this key cannot succeed, move on
			}
			if try == maxAttemptsPerKey {
				break
			}
			if !reason.Retryable() {
				break
			}

			delay := baseDelay << (try - 1)
			if retryDelay != nil {
				delay = retryDelay(err, delay)
			}
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return fmt.Errorf("all API keys failed: %w", lastErr)
}
