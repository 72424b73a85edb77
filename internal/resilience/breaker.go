package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrOpen is returned when a call is shed because the breaker is open.
var ErrOpen = eris.New("resilience: breaker open")

// Breaker sheds calls to a provider after a run of consecutive
// failures. While open it rejects everything until the cooldown
// elapses, then lets a single probe through: a successful probe closes
// the breaker, a failed one restarts the cooldown.
type Breaker struct {
	name     string
	trip     int
	cooldown time.Duration

	mu       sync.Mutex
	failures int
	open     bool
	probing  bool
	openedAt time.Time

	now func() time.Time
}

// NewBreaker creates a breaker that opens after trip consecutive
// failures and stays open for cooldown between probes.
func NewBreaker(name string, trip int, cooldown time.Duration) *Breaker {
	return &Breaker{
		name:     name,
		trip:     trip,
		cooldown: cooldown,
		now:      time.Now,
	}
}

// WithNow sets a fixed clock for testing.
func (b *Breaker) WithNow(now func() time.Time) *Breaker {
	b.now = now
	return b
}

// Open reports whether the breaker is currently shedding calls.
func (b *Breaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open && b.now().Sub(b.openedAt) < b.cooldown
}

// Guard runs fn through the breaker. An open breaker returns ErrOpen
// without invoking fn; any other error is fn's own.
func Guard[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := b.admit(); err != nil {
		return zero, err
	}

	val, err := fn(ctx)
	b.record(err)
	if err != nil {
		return zero, err
	}
	return val, nil
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return nil
	}
	if b.probing || b.now().Sub(b.openedAt) < b.cooldown {
		return ErrOpen
	}
	// Cooldown elapsed: admit exactly one probe.
	b.probing = true
	return nil
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		if b.open {
			zap.L().Info("resilience: breaker closed",
				zap.String("provider", b.name),
			)
		}
		b.open = false
		b.probing = false
		b.failures = 0
		return
	}

	b.failures++
	if b.probing {
		// Failed probe: restart the cooldown.
		b.probing = false
		b.openedAt = b.now()
		return
	}
	if !b.open && b.failures >= b.trip {
		b.open = true
		b.openedAt = b.now()
		zap.L().Warn("resilience: breaker opened",
			zap.String("provider", b.name),
			zap.Int("consecutive_failures", b.failures),
		)
	}
}
