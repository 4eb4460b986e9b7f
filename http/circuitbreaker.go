package http

import (
	"errors"
	"sync"
	"time"
)

// CircuitState is the current mode of one upstream's circuit.
type CircuitState int

const (
	// CircuitClosed lets requests through normally.
	CircuitClosed CircuitState = iota
	// CircuitOpen fails requests fast without touching the upstream.
	CircuitOpen
	// CircuitHalfOpen lets a limited number of probe requests through.
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

const (
	// DefaultFailureThreshold is the consecutive-failure count that opens a circuit.
	DefaultFailureThreshold = 5
	// DefaultRecoveryTimeout is how long an open circuit rests before probing.
	DefaultRecoveryTimeout = 30 * time.Second
	// DefaultHalfOpenMaxRequests caps probe requests while half-open.
	DefaultHalfOpenMaxRequests = 1
)

// ErrCircuitOpen is returned when an upstream's circuit is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerConfig configures failure tracking per upstream domain.
type CircuitBreakerConfig struct {
	// FailureThreshold is the consecutive-failure count that opens the circuit.
	FailureThreshold int
	// RecoveryTimeout is how long the circuit stays open before allowing probes.
	RecoveryTimeout time.Duration
	// HalfOpenMaxRequests caps concurrent probes while half-open.
	HalfOpenMaxRequests int
	// IsTransientError decides whether a failure counts against the circuit.
	// Permanent errors (a 404 for a deleted video, a 401 from fal.run with a
	// bad key) say nothing about upstream health and are ignored. If nil,
	// every error counts.
	IsTransientError func(error) bool
}

// DefaultCircuitBreakerConfig returns the defaults used for the module's
// upstreams (youtube.com endpoints, the fal.run TTS API). HTTP-aware
// transience classification is on by default so client errors never trip
// the breaker.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold:    DefaultFailureThreshold,
		RecoveryTimeout:     DefaultRecoveryTimeout,
		HalfOpenMaxRequests: DefaultHalfOpenMaxRequests,
		IsTransientError:    IsTransientHTTPError,
	}
}

// circuit is the tracked state for one upstream domain.
type circuit struct {
	state             CircuitState
	consecutiveErrors int
	lastError         time.Time
	lastStateChange   time.Time
	halfOpenRequests  int
}

// CircuitBreaker keeps one circuit per upstream domain so a YouTube
// outage cannot take TTS synthesis down with it, and vice versa.
type CircuitBreaker struct {
	circuits map[string]*circuit
	mu       sync.RWMutex
	config   CircuitBreakerConfig
}

// NewCircuitBreaker creates a circuit breaker. Zero config fields fall
// back to the defaults.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultFailureThreshold
	}
	if cfg.RecoveryTimeout <= 0 {
		cfg.RecoveryTimeout = DefaultRecoveryTimeout
	}
	if cfg.HalfOpenMaxRequests <= 0 {
		cfg.HalfOpenMaxRequests = DefaultHalfOpenMaxRequests
	}

	return &CircuitBreaker{
		circuits: make(map[string]*circuit),
		config:   cfg,
	}
}

// Allow reports whether a request to the domain may proceed. It returns
// nil to proceed or ErrCircuitOpen to fail fast.
func (cb *CircuitBreaker) Allow(domain string) error {
	if cb == nil {
		return nil
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	c := cb.circuitFor(domain)

	switch c.state {
	case CircuitClosed:
		return nil

	case CircuitOpen:
		if time.Since(c.lastStateChange) >= cb.config.RecoveryTimeout {
			// Rest period over; this request becomes the first probe
			c.state = CircuitHalfOpen
			c.lastStateChange = time.Now()
			c.halfOpenRequests = 1
			return nil
		}
		return ErrCircuitOpen

	case CircuitHalfOpen:
		if c.halfOpenRequests < cb.config.HalfOpenMaxRequests {
			c.halfOpenRequests++
			return nil
		}
		return ErrCircuitOpen

	default:
		return nil
	}
}

// RecordSuccess notes a successful request. A success while half-open
// closes the circuit.
func (cb *CircuitBreaker) RecordSuccess(domain string) {
	if cb == nil {
		return
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	c := cb.circuitFor(domain)

	switch c.state {
	case CircuitHalfOpen:
		c.state = CircuitClosed
		c.lastStateChange = time.Now()
		c.consecutiveErrors = 0
		c.halfOpenRequests = 0

	case CircuitClosed:
		c.consecutiveErrors = 0
	}
}

// RecordFailure notes a failed request. Reaching the failure threshold
// opens the circuit; a failed half-open probe reopens it immediately.
func (cb *CircuitBreaker) RecordFailure(domain string, err error) {
	if cb == nil {
		return
	}

	// Permanent errors don't indicate upstream health
	if cb.config.IsTransientError != nil && !cb.config.IsTransientError(err) {
		return
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	c := cb.circuitFor(domain)

	switch c.state {
	case CircuitClosed:
		c.consecutiveErrors++
		c.lastError = time.Now()

		if c.consecutiveErrors >= cb.config.FailureThreshold {
			c.state = CircuitOpen
			c.lastStateChange = time.Now()
		}

	case CircuitHalfOpen:
		c.state = CircuitOpen
		c.lastStateChange = time.Now()
		c.consecutiveErrors++
	}
}

// GetState returns the domain's current circuit state.
func (cb *CircuitBreaker) GetState(domain string) CircuitState {
	if cb == nil {
		return CircuitClosed
	}

	cb.mu.RLock()
	defer cb.mu.RUnlock()

	c, exists := cb.circuits[domain]
	if !exists {
		return CircuitClosed
	}
	return cb.effectiveState(c)
}

// GetStats returns the domain's circuit state and failure counters.
func (cb *CircuitBreaker) GetStats(domain string) CircuitStats {
	if cb == nil {
		return CircuitStats{State: CircuitClosed}
	}

	cb.mu.RLock()
	defer cb.mu.RUnlock()

	c, exists := cb.circuits[domain]
	if !exists {
		return CircuitStats{State: CircuitClosed}
	}

	return CircuitStats{
		State:             cb.effectiveState(c),
		ConsecutiveErrors: c.consecutiveErrors,
		LastError:         c.lastError,
		LastStateChange:   c.lastStateChange,
	}
}

// effectiveState folds the time-based open-to-half-open transition into
// reads that don't hold the write lock.
func (cb *CircuitBreaker) effectiveState(c *circuit) CircuitState {
	if c.state == CircuitOpen && time.Since(c.lastStateChange) >= cb.config.RecoveryTimeout {
		return CircuitHalfOpen
	}
	return c.state
}

// CircuitStats is a read-only snapshot of one domain's circuit.
type CircuitStats struct {
	State             CircuitState
	ConsecutiveErrors int
	LastError         time.Time
	LastStateChange   time.Time
}

// Reset closes the circuit for one domain.
func (cb *CircuitBreaker) Reset(domain string) {
	if cb == nil {
		return
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	delete(cb.circuits, domain)
}

// ResetAll closes every circuit.
func (cb *CircuitBreaker) ResetAll() {
	if cb == nil {
		return
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.circuits = make(map[string]*circuit)
}

// circuitFor returns the domain's circuit, creating it closed if new.
// Caller must hold the write lock.
func (cb *CircuitBreaker) circuitFor(domain string) *circuit {
	c, exists := cb.circuits[domain]
	if !exists {
		c = &circuit{
			state:           CircuitClosed,
			lastStateChange: time.Now(),
		}
		cb.circuits[domain] = c
	}
	return c
}

// IsTransientHTTPError classifies an error for circuit accounting:
// rate limits, 5xx responses, and network failures are transient;
// other 4xx responses are permanent.
func IsTransientHTTPError(err error) bool {
	if err == nil {
		return false
	}

	var rateLimitErr *RateLimitError
	if errors.As(err, &rateLimitErr) {
		return true
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.StatusCode >= 500 {
			return true
		}
		if httpErr.StatusCode == 429 {
			return true
		}
		return false
	}

	// Network errors and timeouts
	return true
}
