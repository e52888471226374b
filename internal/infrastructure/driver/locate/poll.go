package locate

import (
	"context"
	"time"
)

const DefaultPollInterval = 100 * time.Millisecond

// Poll calls find until it returns at least one match, fails, or wait has
// elapsed. This is what a WebDriver implicit wait does server side; engines
// without one run it client side.
func Poll[T any](ctx context.Context, wait, interval time.Duration, find func(ctx context.Context) ([]T, error)) ([]T, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	deadline := time.Now().Add(wait)

	for {
		found, err := find(ctx)
		if err != nil || len(found) > 0 {
			return found, err
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return found, nil
		}
		if remaining < interval {
			interval = remaining
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}
