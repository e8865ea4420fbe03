package retry

import (
	"context"
	"errors"
	"time"

	"shortforge/internal/config"
)

// Policy bounds the retries made against a single credential.
type Policy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
	// Sleep waits between attempts; tests replace it to avoid real delays.
	Sleep func(ctx context.Context, d time.Duration) error
}

// PolicyFromConfig converts the [retry] config section.
func PolicyFromConfig(cfg config.Retry) Policy {
	return Policy{
		Attempts:  cfg.Attempts,
		BaseDelay: time.Duration(cfg.BaseDelayMilli) * time.Millisecond,
		MaxDelay:  time.Duration(cfg.MaxDelayMilli) * time.Millisecond,
	}
}

// Backoff runs op up to policy.Attempts times, doubling the delay from
// BaseDelay and capping it at MaxDelay. Only retryable failures are retried;
// the last error is returned unchanged.
func Backoff[T any](ctx context.Context, policy Policy, op func(ctx context.Context) (T, error)) (T, error) {
	attempts := policy.Attempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := policy.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var zero T
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return zero, lastErr
			}
			return zero, err
		}
		value, err := op(ctx)
		if err == nil {
			return value, nil
		}
		lastErr = err
		if attempt == attempts || !IsRetryable(err) {
			break
		}
		if err := sleep(ctx, policy.delayFor(err, attempt)); err != nil {
			return zero, lastErr
		}
	}
	return zero, lastErr
}

// delayFor honours a server-provided Retry-After hint, capped by MaxDelay.
func (p Policy) delayFor(err error, attempt int) time.Duration {
	var hinted interface{ RetryAfter() time.Duration }
	if errors.As(err, &hinted) {
		if d := hinted.RetryAfter(); d > 0 {
			if p.MaxDelay > 0 && d > p.MaxDelay {
				return p.MaxDelay
			}
			return d
		}
	}
	return p.delay(attempt)
}

func (p Policy) delay(attempt int) time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}
	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if p.MaxDelay > 0 && delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
