package quality

import (
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/kpeterson/optflow/internal/telemetry"
)

// Breaker holds one sony/gobreaker.CircuitBreaker per data provider, keyed
// by provider name in a sync.Map since the breaker is process-wide and
// contention is limited to state transitions — the library the
// jordigilh-kubernaut pack repo uses for the identical CLOSED/OPEN/HALF_OPEN
// machine, in place of a hand-rolled mutex+counters struct.
type Breaker struct {
	failureThreshold uint32
	openTimeout      time.Duration
	breakers         sync.Map // provider string -> *gobreaker.CircuitBreaker[struct{}]
}

// NewBreaker builds a Breaker. failureThreshold and openTimeout come from
// config (BREAKER_FAILURE_THRESHOLD, BREAKER_OPEN_TIMEOUT_SECONDS).
func NewBreaker(failureThreshold uint32, openTimeout time.Duration) *Breaker {
	return &Breaker{failureThreshold: failureThreshold, openTimeout: openTimeout}
}

func (b *Breaker) forProvider(provider string) *gobreaker.CircuitBreaker[struct{}] {
	if cb, ok := b.breakers.Load(provider); ok {
		return cb.(*gobreaker.CircuitBreaker[struct{}])
	}

	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        provider,
		MaxRequests: 1,
		Timeout:     b.openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= b.failureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			telemetry.BreakerStateChangesTotal.WithLabelValues(name, to.String()).Inc()
		},
	})

	actual, _ := b.breakers.LoadOrStore(provider, cb)
	return actual.(*gobreaker.CircuitBreaker[struct{}])
}

// Allow reports whether provider's breaker currently permits a call, without
// actually issuing one — the gate calls this before scoring quotes sourced
// from provider, since the provider fetch itself happens upstream of the
// gate.
func (b *Breaker) Allow(provider string) bool {
	cb := b.forProvider(provider)
	return cb.State() != gobreaker.StateOpen
}

// RecordSuccess reports a successful provider call, closing the breaker on a
// HALF_OPEN probe or keeping it CLOSED.
func (b *Breaker) RecordSuccess(provider string) {
	cb := b.forProvider(provider)
	_, _ = cb.Execute(func() (struct{}, error) { return struct{}{}, nil })
}

// RecordFailure reports a failed provider call, counting toward the
// ReadyToTrip threshold.
func (b *Breaker) RecordFailure(provider string) {
	cb := b.forProvider(provider)
	_, _ = cb.Execute(func() (struct{}, error) { return struct{}{}, errBreakerProbe })
}

// State reports the current breaker state for provider.
func (b *Breaker) State(provider string) string {
	return b.forProvider(provider).State().String()
}

// States returns every provider's current breaker state, the provider_health
// section of GET /system/health. Providers that have never been recorded
// against don't appear.
func (b *Breaker) States() map[string]string {
	out := make(map[string]string)
	b.breakers.Range(func(key, value any) bool {
		out[key.(string)] = value.(*gobreaker.CircuitBreaker[struct{}]).State().String()
		return true
	})
	return out
}

var errBreakerProbe = breakerProbeError{}

type breakerProbeError struct{}

func (breakerProbeError) Error() string { return "quality: recorded provider failure" }
