package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_Allow(t *testing.T) {
	limiter := New(5, time.Minute)

	for i := range 5 {
		assert.True(t, limiter.Allow("ticker"), "frame %d should be allowed", i+1)
	}
	assert.False(t, limiter.Allow("ticker"), "frame 6 should be blocked")
	assert.False(t, limiter.Allow("get-balance"), "global bucket is shared")

	m := limiter.Metrics()
	assert.Equal(t, int64(7), m.Requests)
	assert.Equal(t, int64(5), m.Allowed)
	assert.Equal(t, int64(2), m.Denied)
}

func TestLimiter_EventBucket(t *testing.T) {
	limiter := New(100, time.Minute)
	limiter.SetEventLimit("place-order", 2, time.Minute)

	assert.True(t, limiter.Allow("place-order"))
	assert.True(t, limiter.Allow("place-order"))
	assert.False(t, limiter.Allow("place-order"))
	assert.True(t, limiter.Allow("ticker"), "other events only use the global bucket")
	assert.Equal(t, 1, limiter.Metrics().Buckets)
}

func TestLimiter_DeniedEventReturnsGlobalToken(t *testing.T) {
	limiter := New(3, time.Minute)
	limiter.SetEventLimit("place-order", 1, time.Minute)

	assert.True(t, limiter.Allow("place-order"))
	assert.False(t, limiter.Allow("place-order"))
	assert.True(t, limiter.Allow("ticker"))
	assert.True(t, limiter.Allow("ticker"))
	assert.False(t, limiter.Allow("ticker"))
}

func TestLimiter_SetEventLimitUpdates(t *testing.T) {
	limiter := New(100, time.Minute)
	limiter.SetEventLimit("cancel-order", 1, time.Minute)
	limiter.SetEventLimit("cancel-order", 3, time.Minute)

	assert.Equal(t, 1, limiter.Metrics().Buckets)
}

func TestLimiter_Wait(t *testing.T) {
	limiter := New(5, 100*time.Millisecond)

	for range 5 {
		require.NoError(t, limiter.Wait(context.Background(), "ticker"))
	}
}

func TestLimiter_Wait_ContextCancellation(t *testing.T) {
	tests := []struct {
		name    string
		limiter func() *Limiter
		event   string
	}{
		{"global", func() *Limiter { return New(1, time.Hour) }, "ticker"},
		{"event", func() *Limiter {
			l := New(100, time.Second)
			l.SetEventLimit("place-order", 1, time.Hour)
			return l
		}, "place-order"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter := tt.limiter()
			require.NoError(t, limiter.Wait(context.Background(), tt.event))

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
			defer cancel()

			err := limiter.Wait(ctx, tt.event)
			assert.Error(t, err)
			assert.Contains(t, err.Error(), "rate limit")
			assert.Equal(t, int64(1), limiter.Metrics().Denied)
		})
	}
}

func TestLimiter_Unlimited(t *testing.T) {
	limiter := New(0, time.Second)

	for range 1000 {
		assert.True(t, limiter.Allow("ticker"))
	}
}

func TestLimiter_Concurrent(t *testing.T) {
	limiter := New(100, time.Minute)

	var wg sync.WaitGroup
	var allowed atomic.Int64
	for range 200 {
		wg.Go(func() {
			if limiter.Allow("ticker") {
				allowed.Add(1)
			}
		})
	}
	wg.Wait()

	assert.Equal(t, int64(100), allowed.Load())
	assert.Equal(t, int64(200), limiter.Metrics().Requests)
}
