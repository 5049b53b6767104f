package util

import (
	"context"
	"time"
)

// Retry invokes fn until it returns nil, giving up after maxAttempts
// failures. The wait between attempts doubles starting from baseDelay; a
// cancelled context cuts the wait short and returns ctx.Err(). When every
// attempt fails, the last attempt's error is returned.
func Retry(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func() error) error {
	wait := baseDelay
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}

	return lastErr
}
