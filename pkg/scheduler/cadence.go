// Package scheduler implements the /tasks/* cron-triggered endpoints (C5):
// shared-secret verification, idempotent enqueue keyed by trading day, and
// cadence-based expected/late/never-run classification for C12.
package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"
)

// ExpectedStatus classifies whether an endpoint's last successful run is on
// schedule.
type ExpectedStatus string

const (
	StatusOK       ExpectedStatus = "ok"
	StatusLate     ExpectedStatus = "late"
	StatusNeverRun ExpectedStatus = "never_run"
)

// Endpoint pairs a /tasks/* route with its cron cadence and a grace window
// tolerating ordinary scheduling jitter before it's considered late.
type Endpoint struct {
	Name  string
	Spec  string
	Grace time.Duration
}

// Cadence resolves a parsed cron.Schedule per endpoint and classifies
// whether the last successful run is on time.
type Cadence struct {
	parser    cron.Parser
	schedules map[string]cron.Schedule
	endpoints map[string]Endpoint
}

// NewCadence parses every endpoint's cron spec up front so a malformed spec
// fails at wiring time, not at request time.
func NewCadence(endpoints []Endpoint) (*Cadence, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedules := make(map[string]cron.Schedule, len(endpoints))
	byName := make(map[string]Endpoint, len(endpoints))

	for _, e := range endpoints {
		sched, err := parser.Parse(e.Spec)
		if err != nil {
			return nil, err
		}
		schedules[e.Name] = sched
		byName[e.Name] = e
	}

	return &Cadence{parser: parser, schedules: schedules, endpoints: byName}, nil
}

// PreviousActivation returns the most recent time endpoint's cron schedule
// would have fired at or before now.
func (c *Cadence) PreviousActivation(endpoint string, now time.Time) (time.Time, bool) {
	sched, ok := c.schedules[endpoint]
	if !ok {
		return time.Time{}, false
	}

	cursor := now.Add(-7 * 24 * time.Hour)
	var last time.Time
	for {
		next := sched.Next(cursor)
		if next.After(now) {
			break
		}
		last = next
		cursor = next
	}
	if last.IsZero() {
		return time.Time{}, false
	}
	return last, true
}

// ExpectedStatus compares now against endpoint's previous activation plus
// its grace window.
func (c *Cadence) ExpectedStatus(endpoint string, lastSuccessAt *time.Time, now time.Time) ExpectedStatus {
	if lastSuccessAt == nil {
		return StatusNeverRun
	}

	prev, ok := c.PreviousActivation(endpoint, now)
	if !ok {
		return StatusOK
	}

	grace := c.endpoints[endpoint].Grace
	if lastSuccessAt.Before(prev) && now.Sub(prev) > grace {
		return StatusLate
	}
	return StatusOK
}
