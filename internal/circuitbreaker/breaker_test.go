package circuitbreaker

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newBreaker(fail, success int) (*Breaker, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1448034533, 0)}
	b := New(Config{FailThreshold: fail, SuccessThreshold: success, Timeout: time.Minute}).WithClock(clock.Now)
	return b, clock
}

func TestState_String(t *testing.T) {
	tests := []struct {
		name  string
		state State
		want  string
	}{
		{"closed", StateClosed, "CLOSED"},
		{"open", StateOpen, "OPEN"},
		{"half_open", StateHalfOpen, "HALF_OPEN"},
		{"unknown", State(9), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.state.String())
		})
	}
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b, _ := newBreaker(3, 1)

	b.Failure()
	b.Failure()
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, 2, b.Failures())
	assert.True(t, b.Allow())

	b.Failure()
	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())
	assert.Equal(t, int64(1), b.Metrics().Rejected)
}

func TestBreaker_SuccessResetsFailures(t *testing.T) {
	b, _ := newBreaker(2, 1)

	b.Failure()
	b.Success()
	b.Failure()

	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, 1, b.Failures())
}

func TestBreaker_HalfOpen(t *testing.T) {
	tests := []struct {
		name    string
		success int
		probes  []bool
		want    State
	}{
		{"probe_succeeds", 1, []bool{true}, StateClosed},
		{"probe_fails", 1, []bool{false}, StateOpen},
		{"needs_two", 2, []bool{true}, StateHalfOpen},
		{"two_probes", 2, []bool{true, true}, StateClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, clock := newBreaker(1, tt.success)
			b.Failure()
			assert.False(t, b.Allow())

			clock.Advance(time.Minute)
			assert.True(t, b.Allow())
			assert.Equal(t, StateHalfOpen, b.State())

			for _, ok := range tt.probes {
				if ok {
					b.Success()
				} else {
					b.Failure()
				}
			}
			assert.Equal(t, tt.want, b.State())
		})
	}
}

func TestBreaker_Reset(t *testing.T) {
	b, _ := newBreaker(1, 1)
	b.Failure()
	assert.Equal(t, StateOpen, b.State())

	b.Reset()
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow())
	assert.Equal(t, 2, b.Metrics().StateChanges)
}

func TestBreaker_ZeroConfig(t *testing.T) {
	b := New(Config{})

	b.Failure()
	assert.Equal(t, StateOpen, b.State())
	assert.True(t, b.Allow(), "zero timeout allows an immediate probe")
}

func TestBreaker_Concurrent(t *testing.T) {
	b, _ := newBreaker(1000, 1)

	var wg sync.WaitGroup
	for range 100 {
		wg.Go(func() {
			b.Allow()
			b.Failure()
		})
	}
	wg.Wait()

	assert.Equal(t, 100, b.Failures())
}
