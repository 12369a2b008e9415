package gateway

import (
	"context"
	"sync"
	"time"
)

// TokenBucket is a per-source rate limiter. Tokens refill continuously
// at rpm/60 per second up to a capacity of rpm; Take consumes one token
// or blocks until the next one becomes available. There is no
// busy-spin: the wait duration is computed from the refill rate.
//
// Buckets are never shared across gateway instances unless wired
// together explicitly; a test gateway gets its own bucket state.
type TokenBucket struct {
	mu           sync.Mutex
	capacity     float64
	refillPerSec float64
	tokens       float64
	last         time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewTokenBucket creates a full bucket for the given requests-per-minute.
func NewTokenBucket(rpm int) *TokenBucket {
	b := &TokenBucket{
		capacity:     float64(rpm),
		refillPerSec: float64(rpm) / 60.0,
		tokens:       float64(rpm),
		now:          time.Now,
		sleep:        sleepContext,
	}
	b.last = b.now()
	return b
}

// Take consumes one token, blocking until one is available or the
// context is done. This is the only intentional blocking point of the
// gateway besides retry backoff.
func (b *TokenBucket) Take(ctx context.Context) error {
	for {
		b.mu.Lock()
		now := b.now()
		elapsed := now.Sub(b.last).Seconds()
		b.tokens += elapsed * b.refillPerSec
		if b.tokens > b.capacity {
			b.tokens = b.capacity
		}
		b.last = now

		if b.tokens >= 1 {
			b.tokens--
			b.mu.Unlock()
			return nil
		}

		wait := time.Duration((1 - b.tokens) / b.refillPerSec * float64(time.Second))
		b.mu.Unlock()

		if err := b.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
