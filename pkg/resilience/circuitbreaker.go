package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"voice-dialogue-demo/backend/pkg/logger"
)

// ErrCircuitOpen is returned without calling the protected function while the breaker is open.
var ErrCircuitOpen = errors.New("circuit open")

// State represents the current state of a circuit breaker
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
)

// Config holds configuration for a circuit breaker
type Config struct {
	Name string
	// FailureThreshold consecutive failures open the circuit
	FailureThreshold uint
	// SuccessThreshold consecutive half-open successes close it again
	SuccessThreshold uint
	// OpenTimeout is how long the circuit stays open before probing
	OpenTimeout time.Duration
	// IsFailure decides which errors count against the circuit. Defaults to
	// every error except caller cancellation.
	IsFailure func(error) bool
}

// DefaultConfig returns a default circuit breaker configuration
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		OpenTimeout:      30 * time.Second,
	}
}

// Stats is a point-in-time view of a breaker for health output.
type Stats struct {
	Name          string    `json:"name"`
	State         State     `json:"state"`
	Requests      uint64    `json:"requests"`
	Failures      uint64    `json:"failures"`
	Rejected      uint64    `json:"rejected"`
	LastFailureAt time.Time `json:"last_failure_at,omitempty"`
}

// CircuitBreaker short-circuits calls to a dependency after repeated failures
type CircuitBreaker struct {
	cfg Config
	log *logger.Logger
	now func() time.Time

	mu          sync.Mutex
	state       State
	failures    uint
	successes   uint
	probing     bool
	openedUntil time.Time
	stats       Stats
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(cfg Config, log *logger.Logger) *CircuitBreaker {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold == 0 {
		cfg.SuccessThreshold = 1
	}
	if cfg.OpenTimeout == 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = func(err error) bool { return !errors.Is(err, context.Canceled) }
	}
	if log == nil {
		log = logger.GetGlobal()
	}

	return &CircuitBreaker{
		cfg:   cfg,
		log:   log,
		now:   time.Now,
		state: StateClosed,
		stats: Stats{Name: cfg.Name, State: StateClosed},
	}
}

// Execute runs fn through the circuit breaker
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if !cb.allow() {
		cb.log.Warn("Circuit breaker rejected call", "name", cb.cfg.Name)
		return ErrCircuitOpen
	}

	start := cb.now()
	err := fn(ctx)
	cb.record(err)

	if err != nil {
		cb.log.Debug("Circuit breaker recorded error",
			"name", cb.cfg.Name,
			"error", err.Error(),
			"duration", cb.now().Sub(start).String(),
		)
	}
	return err
}

func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.now().Before(cb.openedUntil) {
			cb.stats.Rejected++
			return false
		}
		cb.setState(StateHalfOpen)
		cb.successes = 0
		fallthrough
	case StateHalfOpen:
		// one probe at a time
		if cb.probing {
			cb.stats.Rejected++
			return false
		}
		cb.probing = true
	}

	cb.stats.Requests++
	return true
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	halfOpen := cb.state == StateHalfOpen
	cb.probing = false

	if err != nil && cb.cfg.IsFailure(err) {
		cb.stats.Failures++
		cb.stats.LastFailureAt = cb.now()
		cb.failures++
		if halfOpen || cb.failures >= cb.cfg.FailureThreshold {
			cb.open()
		}
		return
	}

	if halfOpen {
		cb.successes++
		if cb.successes >= cb.cfg.SuccessThreshold {
			cb.failures = 0
			cb.setState(StateClosed)
		}
		return
	}
	cb.failures = 0
}

func (cb *CircuitBreaker) open() {
	cb.openedUntil = cb.now().Add(cb.cfg.OpenTimeout)
	cb.setState(StateOpen)
	cb.log.Warn("Circuit breaker opened",
		"name", cb.cfg.Name,
		"failures", cb.failures,
		"retry_at", cb.openedUntil.Format(time.RFC3339),
	)
}

func (cb *CircuitBreaker) setState(s State) {
	if cb.state != s {
		cb.log.Info("Circuit breaker state change", "name", cb.cfg.Name, "from", cb.state, "to", s)
	}
	cb.state = s
	cb.stats.State = s
}

// State returns the current state of the circuit breaker
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Stats returns a copy of the breaker counters.
func (cb *CircuitBreaker) Stats() Stats {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.stats
}
