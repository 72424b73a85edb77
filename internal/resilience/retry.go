package resilience

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Policy bounds a retried call: how many attempts, and how the delay
// between them grows. The delay doubles per attempt up to MaxDelay.
type Policy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
	// Jitter stretches each delay by up to this fraction so concurrent
	// branches retrying against the same provider spread out.
	Jitter float64
}

// ProviderPolicy is the default for data-provider calls. Three attempts
// keeps the worst case well under the synthesis step that follows.
func ProviderPolicy() Policy {
	return Policy{
		Attempts:  3,
		BaseDelay: 400 * time.Millisecond,
		MaxDelay:  10 * time.Second,
		Jitter:    0.2,
	}
}

// Retry runs fn up to p.Attempts times, retrying only failures that
// Temporary classifies as recoverable. name labels the provider in retry
// logs. Context cancellation stops the loop immediately with the last
// error seen.
func Retry[T any](ctx context.Context, name string, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	if p.Attempts < 1 {
		p.Attempts = 1
	}

	var zero T
	var lastErr error
	for attempt := 1; ; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil || !Temporary(err) || attempt >= p.Attempts {
			return zero, lastErr
		}

		zap.L().Warn("resilience: retrying provider call",
			zap.String("provider", name),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		timer := time.NewTimer(p.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}
}

// delay returns the backoff before attempt+1: BaseDelay doubled per
// completed attempt, capped, then stretched by random jitter.
func (p Policy) delay(attempt int) time.Duration {
	d := p.BaseDelay << (attempt - 1)
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	if p.Jitter > 0 {
		d += time.Duration(rand.Float64() * p.Jitter * float64(d))
	}
	return d
}
