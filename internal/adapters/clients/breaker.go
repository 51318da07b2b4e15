package clients

import (
	"sync"
	"time"

	"github.com/jsamuelsen/quote-injection-service/internal/platform/config"
)

// State is a breaker position.
type State int

// Breaker states.
const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// A zero MaxFailures would trip on the first error, so unset fields fall back to these.
const (
	fallbackMaxFailures   = 5
	fallbackOpenTimeout   = 30 * time.Second
	fallbackHalfOpenLimit = 1
)

// Breaker stops calls to a store that keeps failing.
//
// MaxFailures consecutive failures open it. Once Timeout has passed since it
// opened, up to HalfOpenLimit trial calls are let through; that many successes
// close it again and a single failure reopens it.
type Breaker struct {
	mu       sync.Mutex
	cfg      config.CircuitBreakerConfig
	state    State
	failures int
	passed   int // half-open trial calls that succeeded
	inFlight int // half-open trial calls not yet reported
	openedAt time.Time

	listener func(from, to State)
	now      func() time.Time
}

// NewBreaker returns a closed breaker.
func NewBreaker(cfg config.CircuitBreakerConfig) *Breaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = fallbackMaxFailures
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = fallbackOpenTimeout
	}

	if cfg.HalfOpenLimit <= 0 {
		cfg.HalfOpenLimit = fallbackHalfOpenLimit
	}

	return &Breaker{cfg: cfg, now: time.Now}
}

// OnStateChange registers fn to run after every transition. It runs outside
// the breaker's lock, on the goroutine that caused the transition.
func (b *Breaker) OnStateChange(fn func(from, to State)) {
	b.mu.Lock()
	b.listener = fn
	b.mu.Unlock()
}

// Allow reports whether a call may go out now. A true result must be followed
// by exactly one Success or Failure.
func (b *Breaker) Allow() bool {
	b.mu.Lock()

	var moved func()

	allowed := false

	switch b.state {
	case StateClosed:
		allowed = true
	case StateOpen:
		if b.now().Sub(b.openedAt) >= b.cfg.Timeout {
			moved = b.moveTo(StateHalfOpen)
			b.inFlight = 1
			allowed = true
		}
	case StateHalfOpen:
		if b.inFlight < b.cfg.HalfOpenLimit {
			b.inFlight++
			allowed = true
		}
	}

	b.mu.Unlock()
	notify(moved)

	return allowed
}

// Success reports a call that reached the store and got an answer.
func (b *Breaker) Success() {
	b.mu.Lock()

	var moved func()

	switch b.state {
	case StateClosed:
		b.failures = 0
	case StateHalfOpen:
		b.inFlight--
		b.passed++
		if b.passed >= b.cfg.HalfOpenLimit {
			moved = b.moveTo(StateClosed)
		}
	}

	b.mu.Unlock()
	notify(moved)
}

// Failure reports a call that could not reach the store.
func (b *Breaker) Failure() {
	b.mu.Lock()

	var moved func()

	switch b.state {
	case StateClosed:
		b.failures++
		if b.failures >= b.cfg.MaxFailures {
			moved = b.moveTo(StateOpen)
		}
	case StateHalfOpen:
		b.inFlight--
		moved = b.moveTo(StateOpen)
	}

	b.mu.Unlock()
	notify(moved)
}

// State returns the current position.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.state
}

// RetryAt reports when an open breaker lets the next trial call through. ok is
// false unless the breaker is open.
func (b *Breaker) RetryAt() (at time.Time, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateOpen {
		return time.Time{}, false
	}

	return b.openedAt.Add(b.cfg.Timeout), true
}

// moveTo switches state and resets the counters. It returns the listener
// call to make once the lock is released. Callers hold b.mu.
func (b *Breaker) moveTo(to State) func() {
	from := b.state
	if from == to {
		return nil
	}

	b.state = to
	b.failures = 0
	b.passed = 0

	if to == StateOpen {
		b.openedAt = b.now()
		b.inFlight = 0
	}

	if fn := b.listener; fn != nil {
		return func() { fn(from, to) }
	}

	return nil
}

func notify(fn func()) {
	if fn != nil {
		fn()
	}
}
