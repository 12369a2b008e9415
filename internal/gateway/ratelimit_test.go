package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock drives a bucket deterministically: sleeping advances the
// clock instead of blocking.
type fakeClock struct {
	now    time.Time
	slept  []time.Duration
	sleeps int
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	c.now = c.now.Add(d)
	c.slept = append(c.slept, d)
	c.sleeps++
	return nil
}

func newTestBucket(rpm int, clock *fakeClock) *TokenBucket {
	b := NewTokenBucket(rpm)
	b.now = clock.Now
	b.sleep = clock.Sleep
	b.last = clock.Now()
	b.tokens = b.capacity
	return b
}

func TestTokenBucketBurstThenPaced(t *testing.T) {
	clock := newFakeClock()
	b := newTestBucket(10, clock)
	ctx := context.Background()

	// The first rpm takes drain the initial burst without waiting.
	for i := 0; i < 10; i++ {
		require.NoError(t, b.Take(ctx))
	}
	assert.Equal(t, 0, clock.sleeps, "burst capacity should not block")

	// Each further take waits roughly one refill interval (6s at 10rpm).
	for i := 0; i < 5; i++ {
		require.NoError(t, b.Take(ctx))
	}
	assert.Equal(t, 5, clock.sleeps)
	for _, d := range clock.slept {
		assert.InDelta(t, 6*time.Second, d, float64(50*time.Millisecond))
	}
}

func TestTokenBucketRefillsWhileIdle(t *testing.T) {
	clock := newFakeClock()
	b := newTestBucket(60, clock)
	ctx := context.Background()

	for i := 0; i < 60; i++ {
		require.NoError(t, b.Take(ctx))
	}

	// 30s of idle at 60rpm refills 30 tokens.
	clock.now = clock.now.Add(30 * time.Second)
	for i := 0; i < 30; i++ {
		require.NoError(t, b.Take(ctx))
	}
	assert.Equal(t, 0, clock.sleeps)

	require.NoError(t, b.Take(ctx))
	assert.Equal(t, 1, clock.sleeps)
}

func TestTokenBucketCapsAtCapacity(t *testing.T) {
	clock := newFakeClock()
	b := newTestBucket(10, clock)
	ctx := context.Background()

	// A long idle period must not accumulate more than one burst.
	clock.now = clock.now.Add(time.Hour)
	for i := 0; i < 10; i++ {
		require.NoError(t, b.Take(ctx))
	}
	assert.Equal(t, 0, clock.sleeps)

	require.NoError(t, b.Take(ctx))
	assert.Equal(t, 1, clock.sleeps)
}

func TestTokenBucketTakeHonorsContext(t *testing.T) {
	b := NewTokenBucket(1)
	b.tokens = 0
	b.last = time.Now()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := b.Take(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
