// Package breaker guards the engine's Redis read-through cache with a
// sony/gobreaker circuit breaker: once Redis starts failing, callers
// fall back to querying the in-memory engine directly instead of piling
// up blocked round-trips against a dead cache.
package breaker

import (
	"time"

	cb "github.com/sony/gobreaker"
	"github.com/rs/zerolog/log"
)

// StateChangeFunc is notified whenever the breaker transitions state;
// internal/metrics.Registry.RecordBreakerStateChange satisfies it.
type StateChangeFunc func(toState string)

// Breaker wraps a named gobreaker.CircuitBreaker around cache calls.
type Breaker struct {
	cb *cb.CircuitBreaker
}

// New builds a breaker that trips after 3 consecutive failures, or
// after a 5% failure rate over at least 20 requests in its rolling
// interval, and stays open for 30 seconds before probing again.
func New(name string, onStateChange StateChangeFunc) *Breaker {
	settings := cb.Settings{
		Name:     name,
		Interval: 60 * time.Second,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts cb.Counts) bool {
			if counts.ConsecutiveFailures >= 3 {
				return true
			}
			if counts.Requests < 20 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) > 0.05
		},
		OnStateChange: func(name string, from, to cb.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("cache breaker state change")
			if onStateChange != nil {
				onStateChange(to.String())
			}
		},
	}
	return &Breaker{cb: cb.NewCircuitBreaker(settings)}
}

// Execute runs fn through the breaker, short-circuiting to an error
// without calling fn while the breaker is open.
func (b *Breaker) Execute(fn func() (any, error)) (any, error) {
	return b.cb.Execute(fn)
}

// State returns the breaker's current state name.
func (b *Breaker) State() string {
	return b.cb.State().String()
}
