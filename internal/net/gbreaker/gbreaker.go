// Package gbreaker wraps github.com/sony/gobreaker for the hedge
// order-entry REST path. The Venue Adapter's market-data and quoting
// order-entry paths use the hand-rolled internal/net/circuit breaker;
// the hedge path gets its own, independently-tripped gobreaker instance
// per spec §4.5/§5 so that a quoting-venue REST outage can never mask a
// hedge-venue outage sharing the same process.
package gbreaker

import (
	"context"
	"time"

	cb "github.com/sony/gobreaker"
)

type Breaker struct {
	cb *cb.CircuitBreaker
}

// New builds a breaker tuned for order-entry REST calls: trips after 3
// consecutive failures, or a >5% failure rate once at least 20 requests
// have been observed in the rolling interval.
func New(name string) *Breaker {
	st := cb.Settings{Name: name}
	st.Interval = 60 * time.Second
	st.Timeout = 30 * time.Second
	st.ReadyToTrip = func(counts cb.Counts) bool {
		if counts.ConsecutiveFailures >= 3 {
			return true
		}
		if counts.Requests < 20 {
			return false
		}
		return float64(counts.TotalFailures)/float64(counts.Requests) > 0.05
	}
	return &Breaker{cb: cb.NewCircuitBreaker(st)}
}

// Execute runs fn through the breaker, returning gobreaker.ErrOpenState
// or gobreaker.ErrTooManyRequests when the breaker refuses the call.
func (b *Breaker) Execute(ctx context.Context, fn func(context.Context) (any, error)) (any, error) {
	return b.cb.Execute(func() (any, error) {
		return fn(ctx)
	})
}

func (b *Breaker) State() cb.State { return b.cb.State() }
