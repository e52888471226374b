// Package wait repeats an action until a condition holds or a deadline passes.
package wait

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"

	"pagedrill/internal/application/port/output"
	"pagedrill/internal/domain/entity"
)

const (
	DefaultTimeout  = 60 * time.Second
	DefaultInterval = 500 * time.Millisecond
)

type Action func(ctx context.Context) error

type Condition func(ctx context.Context) bool

type Option func(*Retry)

// Timeout bounds the whole loop. Non-positive values are ignored.
func Timeout(d time.Duration) Option {
	return func(r *Retry) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// Interval sets a constant delay between attempts.
func Interval(d time.Duration) Option {
	return func(r *Retry) {
		if d > 0 {
			r.newBackOff = func() backoff.BackOff { return backoff.NewConstantBackOff(d) }
		}
	}
}

// Backoff supplies the delay policy. backoff.Stop ends the loop early.
func Backoff(newBackOff func() backoff.BackOff) Option {
	return func(r *Retry) {
		if newBackOff != nil {
			r.newBackOff = newBackOff
		}
	}
}

// MaxAttempts caps the number of attempts; zero means deadline only.
func MaxAttempts(n int) Option {
	return func(r *Retry) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

func Logger(log output.LoggerPort) Option {
	return func(r *Retry) { r.log = log }
}

// Retry is immutable once built; Doing returns a copy.
type Retry struct {
	timeout     time.Duration
	newBackOff  func() backoff.BackOff
	maxAttempts int
	action      Action
	log         output.LoggerPort
}

func WithRetry(opts ...Option) Retry {
	r := Retry{
		timeout:    DefaultTimeout,
		newBackOff: func() backoff.BackOff { return backoff.NewConstantBackOff(DefaultInterval) },
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// Doing sets the side effect run before every check.
func (r Retry) Doing(action Action) Retry {
	r.action = action
	return r
}

// Until runs the action then the condition until the condition holds. It
// returns entity.ErrRetryExhausted when the deadline passes, the attempt cap
// is reached or the backoff stops; the last action error is wrapped too.
func (r Retry) Until(ctx context.Context, cond Condition) error {
	start := time.Now()
	deadline := start.Add(r.timeout)
	bo := r.newBackOff()
	bo.Reset()

	var lastErr error
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if r.action != nil {
			if err := r.action(ctx); err != nil {
				lastErr = err
				r.debug("retry action failed", "attempt", attempt, "error", err)
			}
		}
		if cond(ctx) {
			r.debug("retry condition met", "attempt", attempt, "elapsed", time.Since(start))
			return nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return r.exhausted(attempt, start, "deadline passed", lastErr)
		}
		if r.maxAttempts > 0 && attempt >= r.maxAttempts {
			return r.exhausted(attempt, start, "attempt limit reached", lastErr)
		}
		delay := bo.NextBackOff()
		if delay == backoff.Stop {
			return r.exhausted(attempt, start, "backoff stopped", lastErr)
		}
		if delay > remaining {
			delay = remaining
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (r Retry) exhausted(attempts int, start time.Time, reason string, lastErr error) error {
	elapsed := time.Since(start)
	if r.log != nil {
		r.log.Warn("retry exhausted", "attempts", attempts, "elapsed", elapsed, "reason", reason)
	}
	if lastErr != nil {
		return fmt.Errorf("%w after %d attempts in %s (%s): %w", entity.ErrRetryExhausted, attempts, elapsed.Round(time.Millisecond), reason, lastErr)
	}
	return fmt.Errorf("%w after %d attempts in %s (%s)", entity.ErrRetryExhausted, attempts, elapsed.Round(time.Millisecond), reason)
}

func (r Retry) debug(msg string, args ...any) {
	if r.log != nil {
		r.log.Debug(msg, args...)
	}
}
