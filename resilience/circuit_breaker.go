package resilience

import (
	"errors"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

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

// ErrCircuitOpen is returned without calling through while the breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerConfig configures a circuit breaker.
type CircuitBreakerConfig struct {
	Name string `yaml:"-" mapstructure:"-"`
	// MaxFailures consecutive failures open the circuit.
	MaxFailures int `yaml:"max_failures" mapstructure:"max_failures"`
	// Timeout is how long the circuit stays open before probing.
	Timeout          time.Duration `yaml:"timeout" mapstructure:"timeout"`
	HalfOpenMaxCalls int           `yaml:"half_open_max_calls" mapstructure:"half_open_max_calls"`

	OnStateChange func(name string, from, to State) `yaml:"-" mapstructure:"-"`
	// Now is the clock. Defaults to time.Now.
	Now func() time.Time `yaml:"-" mapstructure:"-"`
}

// DefaultCircuitBreakerConfig returns the defaults used for backend calls.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxFailures:      5,
		Timeout:          30 * time.Second,
		HalfOpenMaxCalls: 1,
	}
}

// CircuitBreaker fails fast after repeated backend failures.
type CircuitBreaker struct {
	cfg CircuitBreakerConfig

	mu            sync.Mutex
	state         State
	failures      int
	successes     int
	halfOpenCalls int
	openedAt      time.Time
}

// NewCircuitBreaker creates a circuit breaker in the closed state.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.HalfOpenMaxCalls <= 0 {
		cfg.HalfOpenMaxCalls = 1
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &CircuitBreaker{cfg: cfg}
}

// Execute runs fn unless the circuit is open.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.allow() {
		return ErrCircuitOpen
	}
	err := fn()
	cb.record(err)
	return err
}

// State returns the current state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.current()
}

// Reset closes the circuit and clears counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.transition(StateClosed)
	cb.failures = 0
}

func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.current() {
	case StateClosed:
		return true
	case StateHalfOpen:
		if cb.halfOpenCalls < cb.cfg.HalfOpenMaxCalls {
			cb.halfOpenCalls++
			return true
		}
	}
	return false
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	state := cb.current()
	if err == nil {
		switch state {
		case StateClosed:
			cb.failures = 0
		case StateHalfOpen:
			cb.successes++
			if cb.successes >= cb.cfg.HalfOpenMaxCalls {
				cb.transition(StateClosed)
			}
		}
		return
	}

	cb.failures++
	if state == StateHalfOpen || cb.failures >= cb.cfg.MaxFailures {
		cb.openedAt = cb.cfg.Now()
		cb.transition(StateOpen)
	}
}

// current must be called with mu held.
func (cb *CircuitBreaker) current() State {
	if cb.state == StateOpen && cb.cfg.Now().Sub(cb.openedAt) >= cb.cfg.Timeout {
		cb.transition(StateHalfOpen)
	}
	return cb.state
}

func (cb *CircuitBreaker) transition(to State) {
	if cb.state == to {
		return
	}
	from := cb.state
	cb.state = to
	cb.successes = 0
	cb.halfOpenCalls = 0
	if to == StateClosed {
		cb.failures = 0
	}
	if cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(cb.cfg.Name, from, to)
	}
}
