package clients

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quote-injection-service/internal/platform/config"
)

// fakeClock is a settable time source for breaker tests.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(maxFailures, halfOpen int) (*Breaker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)}

	b := NewBreaker(config.CircuitBreakerConfig{
		MaxFailures:   maxFailures,
		Timeout:       30 * time.Second,
		HalfOpenLimit: halfOpen,
	})
	b.now = clock.now

	return b, clock
}

func trip(b *Breaker, n int) {
	for range n {
		b.Failure()
	}
}

func TestBreaker_Transitions(t *testing.T) {
	tests := []struct {
		name string
		run  func(b *Breaker, clock *fakeClock)
		want State
	}{
		{
			name: "starts closed",
			run:  func(*Breaker, *fakeClock) {},
			want: StateClosed,
		},
		{
			name: "stays closed below the failure threshold",
			run:  func(b *Breaker, _ *fakeClock) { trip(b, 2) },
			want: StateClosed,
		},
		{
			name: "opens at the failure threshold",
			run:  func(b *Breaker, _ *fakeClock) { trip(b, 3) },
			want: StateOpen,
		},
		{
			name: "a success resets the consecutive count",
			run: func(b *Breaker, _ *fakeClock) {
				trip(b, 2)
				b.Success()
				trip(b, 2)
			},
			want: StateClosed,
		},
		{
			name: "half-open after the timeout",
			run: func(b *Breaker, clock *fakeClock) {
				trip(b, 3)
				clock.advance(30 * time.Second)
				b.Allow()
			},
			want: StateHalfOpen,
		},
		{
			name: "closes after enough trial successes",
			run: func(b *Breaker, clock *fakeClock) {
				trip(b, 3)
				clock.advance(time.Minute)
				b.Allow()
				b.Success()
				b.Allow()
				b.Success()
			},
			want: StateClosed,
		},
		{
			name: "one trial failure reopens",
			run: func(b *Breaker, clock *fakeClock) {
				trip(b, 3)
				clock.advance(time.Minute)
				b.Allow()
				b.Success()
				b.Allow()
				b.Failure()
			},
			want: StateOpen,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, clock := newTestBreaker(3, 2)
			tt.run(b, clock)
			assert.Equal(t, tt.want, b.State())
		})
	}
}

func TestBreaker_AllowWhileOpen(t *testing.T) {
	b, clock := newTestBreaker(1, 1)
	b.Failure()

	assert.False(t, b.Allow())

	clock.advance(29 * time.Second)
	assert.False(t, b.Allow())

	clock.advance(time.Second)
	assert.True(t, b.Allow(), "first call after the timeout is the trial call")
	assert.False(t, b.Allow(), "only HalfOpenLimit trial calls at a time")

	b.Success()
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow())
}

func TestBreaker_ReopenRestartsTimeout(t *testing.T) {
	b, clock := newTestBreaker(1, 1)
	b.Failure()

	clock.advance(30 * time.Second)
	require.True(t, b.Allow())
	b.Failure()

	clock.advance(10 * time.Second)
	assert.False(t, b.Allow())

	at, ok := b.RetryAt()
	require.True(t, ok)
	assert.Equal(t, clock.t.Add(20*time.Second), at)
}

func TestBreaker_RetryAt(t *testing.T) {
	b, clock := newTestBreaker(1, 1)

	_, ok := b.RetryAt()
	assert.False(t, ok)

	b.Failure()

	at, ok := b.RetryAt()
	require.True(t, ok)
	assert.Equal(t, clock.t.Add(30*time.Second), at)
}

func TestBreaker_OnStateChange(t *testing.T) {
	b, clock := newTestBreaker(1, 1)

	var got []string
	b.OnStateChange(func(from, to State) {
		got = append(got, from.String()+"->"+to.String())
	})

	b.Failure()
	clock.advance(time.Minute)
	b.Allow()
	b.Success()

	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, got)
}

func TestBreaker_ListenerMayReadState(t *testing.T) {
	b, _ := newTestBreaker(1, 1)

	var seen State
	b.OnStateChange(func(State, State) { seen = b.State() })

	b.Failure()
	assert.Equal(t, StateOpen, seen)
}

func TestBreaker_ZeroConfigFallbacks(t *testing.T) {
	b := NewBreaker(config.CircuitBreakerConfig{})

	b.Failure()
	assert.Equal(t, StateClosed, b.State(), "an unconfigured breaker must not trip on one error")

	trip(b, fallbackMaxFailures-1)
	assert.Equal(t, StateOpen, b.State())
}

func TestBreaker_Concurrent(t *testing.T) {
	b := NewBreaker(config.CircuitBreakerConfig{MaxFailures: 50, Timeout: time.Second, HalfOpenLimit: 5})

	var wg sync.WaitGroup
	for i := range 500 {
		wg.Go(func() {
			if !b.Allow() {
				return
			}

			if i%3 == 0 {
				b.Failure()
			} else {
				b.Success()
			}
		})
	}

	wg.Wait()

	assert.Contains(t, []State{StateClosed, StateOpen, StateHalfOpen}, b.State())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(42).String())
}
