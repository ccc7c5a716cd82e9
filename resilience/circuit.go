package resilience

import (
	"context"
	"sync"
	"time"
)

// State is the position of a CircuitBreaker.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

var stateNames = [...]string{
	StateClosed:   "closed",
	StateOpen:     "open",
	StateHalfOpen: "half-open",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// CircuitBreakerConfig tunes when the upstream is considered down.
type CircuitBreakerConfig struct {
	// MaxFailures consecutive failures open the circuit. Default 5.
	MaxFailures int
	// ResetTimeout is how long the circuit stays open before a probe is
	// let through. Default 30s.
	ResetTimeout time.Duration
	// HalfOpenMaxRequests caps concurrent probes. Default 1.
	HalfOpenMaxRequests int

	// OnStateChange runs under the breaker's lock and must not call back
	// into it.
	OnStateChange func(from, to State)

	// IsFailure reports whether err counts against the circuit. Nil counts
	// every error. Domain errors such as NOT_FOUND should not.
	IsFailure func(err error) bool
}

// CircuitBreaker stops calling an upstream that keeps failing. Results of
// calls admitted before a state change are ignored.
type CircuitBreaker struct {
	config CircuitBreakerConfig
	now    func() time.Time

	mu         sync.Mutex
	state      State
	generation uint64
	failures   int
	probes     int
	openedAt   time.Time
}

func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.MaxFailures <= 0 {
		config.MaxFailures = 5
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = 30 * time.Second
	}
	if config.HalfOpenMaxRequests <= 0 {
		config.HalfOpenMaxRequests = 1
	}
	if config.IsFailure == nil {
		config.IsFailure = func(err error) bool { return err != nil }
	}
	return &CircuitBreaker{config: config, now: time.Now}
}

// Execute runs op, or returns ErrCircuitOpen without calling it.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(context.Context) error) error {
	gen, err := cb.before()
	if err != nil {
		return err
	}
	err = op(ctx)
	cb.after(gen, cb.config.IsFailure(err))
	return err
}

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentLocked()
}

// Snapshot returns the state and the consecutive failure count.
func (cb *CircuitBreaker) Snapshot() (State, int) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentLocked(), cb.failures
}

// Reset forces the circuit closed.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.setLocked(StateClosed)
	cb.failures = 0
}

func (cb *CircuitBreaker) before() (uint64, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.currentLocked() {
	case StateOpen:
		return 0, ErrCircuitOpen
	case StateHalfOpen:
		if cb.probes >= cb.config.HalfOpenMaxRequests {
			return 0, ErrCircuitOpen
		}
		cb.probes++
	}
	return cb.generation, nil
}

func (cb *CircuitBreaker) after(gen uint64, failed bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if gen != cb.generation {
		return
	}
	if !failed {
		cb.failures = 0
		if cb.state == StateHalfOpen {
			cb.setLocked(StateClosed)
		}
		return
	}
	cb.failures++
	if cb.state == StateHalfOpen || cb.failures >= cb.config.MaxFailures {
		cb.setLocked(StateOpen)
	}
}

// currentLocked moves an expired open circuit to half-open.
func (cb *CircuitBreaker) currentLocked() State {
	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) >= cb.config.ResetTimeout {
		cb.setLocked(StateHalfOpen)
	}
	return cb.state
}

func (cb *CircuitBreaker) setLocked(to State) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	cb.generation++
	cb.probes = 0
	if to == StateOpen {
		cb.openedAt = cb.now()
	}
	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(from, to)
	}
}
