// Package ratelimit throttles outbound frames. Every frame draws from a
// global bucket; events with their own limit also draw from a per-event bucket.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is safe for concurrent use.
type Limiter struct {
	global *rate.Limiter

	mu      sync.RWMutex
	buckets map[string]*rate.Limiter

	waited  atomic.Int64
	allowed atomic.Int64
	denied  atomic.Int64
}

// New allows requests frames per period on the global bucket, with a burst of
// the full allowance.
func New(requests int, period time.Duration) *Limiter {
	return &Limiter{
		global:  rate.NewLimiter(every(requests, period), requests),
		buckets: make(map[string]*rate.Limiter),
	}
}

func every(requests int, period time.Duration) rate.Limit {
	if requests <= 0 || period <= 0 {
		return rate.Inf
	}
	return rate.Limit(float64(requests) / period.Seconds())
}

// SetEventLimit gives event its own bucket on top of the global one.
func (l *Limiter) SetEventLimit(event string, requests int, period time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if b, ok := l.buckets[event]; ok {
		b.SetLimit(every(requests, period))
		b.SetBurst(requests)
		return
	}
	l.buckets[event] = rate.NewLimiter(every(requests, period), requests)
}

func (l *Limiter) bucket(event string) *rate.Limiter {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.buckets[event]
}

// Wait blocks until a frame for event may be sent or ctx is done.
func (l *Limiter) Wait(ctx context.Context, event string) error {
	l.waited.Add(1)
	if err := l.global.Wait(ctx); err != nil {
		l.denied.Add(1)
		return fmt.Errorf("rate limit: %w", err)
	}
	if b := l.bucket(event); b != nil {
		if err := b.Wait(ctx); err != nil {
			l.denied.Add(1)
			return fmt.Errorf("rate limit %s: %w", event, err)
		}
	}
	l.allowed.Add(1)
	return nil
}

// Allow reports whether a frame for event may be sent now, consuming a token
// when it may.
func (l *Limiter) Allow(event string) bool {
	l.waited.Add(1)

	now := time.Now()
	g := l.global.ReserveN(now, 1)
	if !g.OK() || g.DelayFrom(now) > 0 {
		g.CancelAt(now)
		l.denied.Add(1)
		return false
	}
	if b := l.bucket(event); b != nil && !b.AllowN(now, 1) {
		g.CancelAt(now)
		l.denied.Add(1)
		return false
	}
	l.allowed.Add(1)
	return true
}

// Metrics returns a point-in-time snapshot of the counters.
func (l *Limiter) Metrics() Metrics {
	l.mu.RLock()
	n := len(l.buckets)
	l.mu.RUnlock()

	return Metrics{
		Requests: l.waited.Load(),
		Allowed:  l.allowed.Load(),
		Denied:   l.denied.Load(),
		Buckets:  n,
	}
}

// Metrics counts limiter decisions.
type Metrics struct {
	Requests int64
	Allowed  int64
	Denied   int64
	Buckets  int
}
