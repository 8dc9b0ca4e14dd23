// Package circuit protects the reasoning oracle with a circuit breaker.
// Repeated oracle failures open the breaker and the engine degrades to
// NO_TRADE without burning API calls until the cooldown passes.
package circuit

import (
	"fmt"
	"sync"
	"time"
)

// BreakerState represents the circuit breaker state
type BreakerState string

const (
	StateClosed   BreakerState = "closed"    // Normal operation
	StateOpen     BreakerState = "open"      // Oracle calls suspended
	StateHalfOpen BreakerState = "half_open" // Testing recovery with one call
)

// Config holds circuit breaker configuration
type Config struct {
	MaxConsecutiveFailures int           `json:"max_consecutive_failures"`
	Cooldown               time.Duration `json:"cooldown"`
}

// DefaultConfig returns safe defaults
func DefaultConfig() Config {
	return Config{
		MaxConsecutiveFailures: 3,
		Cooldown:               5 * time.Minute,
	}
}

// Breaker tracks consecutive oracle failures and suspends calls once
// the threshold is reached.
type Breaker struct {
	config              Config
	state               BreakerState
	consecutiveFailures int
	lastTripTime        time.Time
	tripReason          string
	mu                  sync.Mutex
	onTrip              func(reason string)
}

// NewBreaker creates a circuit breaker
func NewBreaker(config Config) *Breaker {
	if config.MaxConsecutiveFailures <= 0 {
		config.MaxConsecutiveFailures = DefaultConfig().MaxConsecutiveFailures
	}
	if config.Cooldown <= 0 {
		config.Cooldown = DefaultConfig().Cooldown
	}
	return &Breaker{config: config, state: StateClosed}
}

// OnTrip sets the callback invoked when the breaker opens
func (b *Breaker) OnTrip(handler func(reason string)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onTrip = handler
}

// Allow reports whether an oracle call may proceed. An open breaker
// moves to half-open after the cooldown, admitting one probe call.
func (b *Breaker) Allow(now time.Time) (bool, string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen {
		elapsed := now.Sub(b.lastTripTime)
		if elapsed < b.config.Cooldown {
			remaining := b.config.Cooldown - elapsed
			return false, fmt.Sprintf("oracle breaker open, cooldown remaining %v (reason: %s)",
				remaining.Round(time.Second), b.tripReason)
		}
		b.state = StateHalfOpen
	}

	return true, ""
}

// RecordSuccess closes the breaker after a successful oracle call
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consecutiveFailures = 0
	b.state = StateClosed
	b.tripReason = ""
}

// RecordFailure counts a failed oracle call, tripping the breaker when
// the threshold is reached. A half-open probe failure trips immediately.
func (b *Breaker) RecordFailure(now time.Time, err error) {
	b.mu.Lock()

	b.consecutiveFailures++
	shouldTrip := b.state == StateHalfOpen || b.consecutiveFailures >= b.config.MaxConsecutiveFailures
	var handler func(string)
	var reason string
	if shouldTrip && b.state != StateOpen {
		b.state = StateOpen
		b.lastTripTime = now
		b.tripReason = fmt.Sprintf("%d consecutive oracle failures, last: %v", b.consecutiveFailures, err)
		reason = b.tripReason
		handler = b.onTrip
	}
	b.mu.Unlock()

	if handler != nil {
		handler(reason)
	}
}

// State returns the current breaker state
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
