// Package clock abstracts wall-clock time so the scheduler, job queue, and
// historical validation engine can be driven deterministically in tests.
package clock

import (
	"sync"
	"time"
)

// chicago is loaded once; every trading-day computation in the system goes
// through it so cadence windows and idempotency keys agree on a single
// timezone regardless of the host's local zone.
var chicago = mustLoadLocation("America/Chicago")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		// A missing tzdata entry is a deployment defect, not a runtime
		// condition callers can recover from.
		panic("clock: loading location " + name + ": " + err.Error())
	}
	return loc
}

// ChicagoLocation returns the America/Chicago *time.Location used for every
// trading-day boundary in the system.
func ChicagoLocation() *time.Location {
	return chicago
}

// TradingDay returns the YYYY-MM-DD calendar date of t in America/Chicago.
// It is the fragment used by C4/C5 idempotency keys and by cadence checks.
func TradingDay(t time.Time) string {
	return t.In(chicago).Format("2006-01-02")
}

// Clock is the sole source of "now" for any code whose output must be
// reproducible in tests: the job queue, the scheduler, and the historical
// validation engine all take a Clock instead of calling time.Now directly.
type Clock interface {
	Now() time.Time
}

// Real returns the wall clock.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Fake is a test double supporting manual advancement, grounded on the
// MockClock/Advance pattern used for deterministic CRD-creation tests in the
// kubernaut retrieval pack.
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

// NewFake creates a Fake clock pinned at t.
func NewFake(t time.Time) *Fake {
	return &Fake{now: t}
}

// Now implements Clock.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance moves the fake clock forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// Set pins the fake clock at t.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t
}
