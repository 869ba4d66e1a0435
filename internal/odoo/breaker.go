package odoo

import (
	"sync"
	"time"
)

// breakerState is the circuit breaker state machine position.
type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case breakerClosed:
		return "closed"
	case breakerOpen:
		return "open"
	case breakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker guards the backend transport: after enough consecutive transport
// failures it rejects calls immediately for a cooldown period, then lets a
// probe through. Only transport faults count as failures; backend faults
// (access denied, validation) mean the backend is alive. Safe for
// concurrent use.
type Breaker struct {
	mu               sync.Mutex
	state            breakerState
	failures         int
	probeSuccesses   int
	failureThreshold int
	successThreshold int
	cooldown         time.Duration
	openedAt         time.Time
}

// NewBreaker creates a breaker that opens after failureThreshold
// consecutive transport failures and closes again after successThreshold
// successful probes following the cooldown.
func NewBreaker(failureThreshold, successThreshold int, cooldown time.Duration) *Breaker {
	if failureThreshold < 1 {
		failureThreshold = 5
	}
	if successThreshold < 1 {
		successThreshold = 2
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breaker{
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		cooldown:         cooldown,
	}
}

// Allow reports whether a call may proceed. When the cooldown of an open
// breaker has elapsed the breaker moves to half-open and lets the call
// through as a probe.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == breakerOpen {
		if time.Since(b.openedAt) > b.cooldown {
			b.state = breakerHalfOpen
			b.probeSuccesses = 0
			return true
		}
		return false
	}
	return true
}

// Record feeds the outcome of one call back into the state machine.
func (b *Breaker) Record(err error) {
	transportFailure := err != nil && FaultKindOf(err) == FaultTransport

	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case breakerClosed:
		if transportFailure {
			b.failures++
			if b.failures >= b.failureThreshold {
				b.state = breakerOpen
				b.openedAt = time.Now()
			}
		} else {
			b.failures = 0
		}
	case breakerHalfOpen:
		if transportFailure {
			b.state = breakerOpen
			b.openedAt = time.Now()
		} else {
			b.probeSuccesses++
			if b.probeSuccesses >= b.successThreshold {
				b.state = breakerClosed
				b.failures = 0
			}
		}
	}
}

// State returns the breaker state name for diagnostics and metrics.
func (b *Breaker) State() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == breakerOpen && time.Since(b.openedAt) > b.cooldown {
		b.state = breakerHalfOpen
		b.probeSuccesses = 0
	}
	return b.state.String()
}
