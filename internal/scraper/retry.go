package scraper

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"time"
)

// permanentError marks a failure that retrying cannot fix (404, 403, 401).
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so RetryWithBackoff stops immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// RetryWithBackoff calls fn up to maxRetries+1 times. The delay before
// retry n is initialDelay * 2^n with ±25% jitter. A Permanent error ends
// the loop at once and is returned unwrapped.
func RetryWithBackoff(ctx context.Context, maxRetries int, initialDelay time.Duration, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if attempt == maxRetries {
			break
		}

		if err := Sleep(ctx, backoff(initialDelay, attempt)); err != nil {
			return err
		}
	}
	return lastErr
}

func backoff(initial time.Duration, attempt int) time.Duration {
	delay := initial << attempt
	half := int64(delay) / 2
	if half <= 0 {
		return delay
	}
	n, err := rand.Int(rand.Reader, big.NewInt(half))
	if err != nil {
		return delay
	}
	return delay - delay/4 + time.Duration(n.Int64())
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
