package resilience

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBackend = errors.New("connection refused")

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func tripAfter(n uint32) func(Counts) bool {
	return func(c Counts) bool { return c.ConsecutiveFailures >= n }
}

func fail(b *Breaker, times int) {
	for i := 0; i < times; i++ {
		_ = b.Call(func() error { return errBackend })
	}
}

func TestBreakerStateTransitions(t *testing.T) {
	tests := []struct {
		name     string
		requests []bool // true = success
		want     State
	}{
		{"stays closed on successes", []bool{true, true, true}, StateClosed},
		{"opens after consecutive failures", []bool{false, false, false}, StateOpen},
		{"success resets the streak", []bool{false, false, true, false, false}, StateClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New("test", Settings{ReadyToTrip: tripAfter(3)})
			for _, ok := range tt.requests {
				_ = b.Call(func() error {
					if ok {
						return nil
					}
					return errBackend
				})
			}
			assert.Equal(t, tt.want, b.State())
		})
	}
}

func TestDoReturnsValue(t *testing.T) {
	b := New("test", Settings{})

	v, err := Do(b, func() (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	counts := b.Counts()
	assert.Equal(t, uint32(1), counts.Requests)
	assert.Equal(t, uint32(1), counts.TotalSuccesses)

	_, err = Do(b, func() (int, error) { return 0, errBackend })
	assert.ErrorIs(t, err, errBackend)
	counts = b.Counts()
	assert.Equal(t, uint32(2), counts.Requests)
	assert.Equal(t, uint32(1), counts.ConsecutiveFailures)
	assert.Zero(t, counts.ConsecutiveSuccesses)
}

func TestOpenBreakerFailsFast(t *testing.T) {
	b := New("test", Settings{ReadyToTrip: tripAfter(2)})
	fail(b, 2)
	require.Equal(t, StateOpen, b.State())

	called := false
	err := b.Call(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestHalfOpenProbesThenCloses(t *testing.T) {
	clk := newClock()
	var transitions []string
	b := New("test", Settings{
		MaxRequests: 2,
		Timeout:     30 * time.Second,
		ReadyToTrip: tripAfter(2),
		Now:         clk.Now,
		OnStateChange: func(_ string, from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})

	fail(b, 2)
	clk.Advance(29 * time.Second)
	assert.Equal(t, StateOpen, b.State())
	clk.Advance(2 * time.Second)
	assert.Equal(t, StateHalfOpen, b.State())

	require.NoError(t, b.Call(func() error { return nil }))
	require.NoError(t, b.Call(func() error { return nil }))
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, transitions)
}

func TestHalfOpenLimitsProbes(t *testing.T) {
	clk := newClock()
	b := New("test", Settings{MaxRequests: 1, Timeout: time.Second, ReadyToTrip: tripAfter(1), Now: clk.Now})
	fail(b, 1)
	clk.Advance(2 * time.Second)

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = b.Call(func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	err := b.Call(func() error { return nil })
	assert.ErrorIs(t, err, ErrTooManyRequests)
	close(release)
}

func TestHalfOpenFailureReopens(t *testing.T) {
	clk := newClock()
	b := New("test", Settings{Timeout: time.Second, ReadyToTrip: tripAfter(1), Now: clk.Now})
	fail(b, 1)
	clk.Advance(2 * time.Second)
	require.Equal(t, StateHalfOpen, b.State())

	fail(b, 1)
	assert.Equal(t, StateOpen, b.State())
}

func TestIntervalClearsCounts(t *testing.T) {
	clk := newClock()
	b := New("test", Settings{Interval: time.Minute, ReadyToTrip: tripAfter(3), Now: clk.Now})

	fail(b, 2)
	clk.Advance(2 * time.Minute)
	fail(b, 2)
	assert.Equal(t, StateClosed, b.State(), "failures in different intervals do not add up")
}

func TestPanicCountsAsFailure(t *testing.T) {
	b := New("test", Settings{ReadyToTrip: tripAfter(1)})

	assert.Panics(t, func() {
		_ = b.Call(func() error { panic("boom") })
	})
	assert.Equal(t, StateOpen, b.State())
}

func TestIsSuccessfulFiltersErrors(t *testing.T) {
	errMissing := errors.New("missing")
	b := New("store", Settings{
		ReadyToTrip: tripAfter(1),
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errMissing)
		},
	})

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, b.Call(func() error { return errMissing }), errMissing)
	}
	assert.Equal(t, StateClosed, b.State())

	fail(b, 1)
	assert.Equal(t, StateOpen, b.State())
	assert.ErrorIs(t, b.Call(func() error { return nil }), ErrCircuitOpen)
}
