package journal

import (
	"context"
	"time"

	"github.com/cenkalti/backoff"
)

// retryPolicy allows retries extra attempts spaced by exponential backoff.
// backoff.WithMaxRetries treats zero as unlimited, so zero maps to
// StopBackOff here.
func retryPolicy(ctx context.Context, min, max time.Duration, retries int) backoff.BackOff {
	if retries <= 0 {
		return backoff.WithContext(&backoff.StopBackOff{}, ctx)
	}
	boff := backoff.NewExponentialBackOff()
	boff.InitialInterval = min
	if max > 0 {
		boff.MaxInterval = max
	}
	boff.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(boff, uint64(retries)), ctx)
}
