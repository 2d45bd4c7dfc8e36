package retry

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
)

// Config controls the backoff schedule.
type Config struct {
	Attempts   int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
}

// DefaultConfig suits short outbound calls such as quote fetches.
func DefaultConfig() Config {
	return Config{
		Attempts:   3,
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   30 * time.Second,
		Multiplier: 2.0,
	}
}

// Do runs fn up to cfg.Attempts times with exponential backoff between
// attempts. retryable decides whether a failure is worth another try;
// anything it rejects returns immediately. The context cancels the wait
// between attempts, not fn itself.
func Do(ctx context.Context, cfg Config, fn func() error, retryable func(error) bool) error {
	var lastErr error

	for attempt := 0; attempt < cfg.Attempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable(err) {
			return fmt.Errorf("non-retryable error: %w", err)
		}

		if attempt == cfg.Attempts-1 {
			break
		}

		delay := time.Duration(float64(cfg.BaseDelay) * math.Pow(cfg.Multiplier, float64(attempt)))
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("giving up after %d attempts: %w", cfg.Attempts, lastErr)
}

var transientFragments = []string{
	"connection refused",
	"connection reset",
	"timeout",
	"temporary failure",
	"service unavailable",
	"internal server error",
	"too many requests",
	"rate limited",
	"network is unreachable",
	"no route to host",
}

// IsTemporaryError reports whether the error text looks like a transient
// infrastructure failure. Callers with typed errors should prefer their own
// predicate; this is the fallback for errors that only carry a message.
func IsTemporaryError(err error) bool {
	if err == nil {
		return false
	}
	text := strings.ToLower(err.Error())
	for _, fragment := range transientFragments {
		if strings.Contains(text, fragment) {
			return true
		}
	}
	return false
}
