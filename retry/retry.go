// Package retry implements the capped exponential-backoff retry loop shared
// by model calls and tool dispatch: base 1s, factor 2, capped at 60s, up to
// a caller-supplied attempt bound.
package retry

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

const (
	baseDelay = time.Second
	capDelay  = 60 * time.Second
	factor    = 2
)

// Backoff returns the delay before retry attempt n (1-indexed: the delay
// before the second call), capped at capDelay.
func Backoff(attempt int) time.Duration {
	d := baseDelay
	for i := 1; i < attempt; i++ {
		d *= factor
		if d >= capDelay {
			return capDelay
		}
	}
	return d
}

// Do calls fn, retrying while retryable(err) is true, up to maxRetries
// additional attempts (maxRetries=3 permits up to 4 total calls). limiter,
// if non-nil, is waited on before each retry attempt to pace concurrent
// callers away from a thundering-herd reconnect against a recovering
// dependency. Do returns fn's last error, or nil on the first success.
func Do(ctx context.Context, maxRetries int, limiter *rate.Limiter, retryable func(error) bool, fn func() error) error {
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			if limiter != nil {
				if werr := limiter.Wait(ctx); werr != nil {
					return werr
				}
			}
			select {
			case <-time.After(Backoff(attempt)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		err = fn()
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
	}
	return err
}
