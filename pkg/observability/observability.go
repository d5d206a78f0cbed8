// Package observability assembles the /ops/health aggregate (C12): whether
// any user's go-live machine is paused on a fail-fast reset, how fresh the
// last suggestion generation cycle is, whether every scheduled job is
// running on cadence, and a rolling count of rejected cross-user access
// attempts.
package observability

import (
	"context"
	"time"

	dto "github.com/prometheus/client_model/go"

	"github.com/kpeterson/optflow/internal/telemetry"
	"github.com/kpeterson/optflow/pkg/gateway"
	"github.com/kpeterson/optflow/pkg/scheduler"
)

// PauseState reports whether the system-wide fail-fast pause is engaged.
type PauseState struct {
	Paused          bool  `json:"paused"`
	AffectedMachines int64 `json:"affected_machines"`
}

// DataFreshness reports how long ago the most recent suggestion cycle
// finished.
type DataFreshness struct {
	LastCompletedAt *time.Time `json:"last_completed_at"`
	AgeSeconds      *float64   `json:"age_seconds"`
}

// JobHealth is one scheduled endpoint's cadence classification.
type JobHealth struct {
	Name          string                   `json:"name"`
	LastSuccessAt *time.Time               `json:"last_success_at"`
	Status        scheduler.ExpectedStatus `json:"status"`
}

// Integrity reports the rolling count of rejected cross-user access
// attempts observed by this process since it started.
type Integrity struct {
	ViolationsTotal float64 `json:"violations_total"`
}

// Health is the full /ops/health response body.
type Health struct {
	PauseState                PauseState    `json:"pause_state"`
	DataFreshness             DataFreshness `json:"data_freshness"`
	Jobs                      []JobHealth   `json:"jobs"`
	Integrity                 Integrity     `json:"integrity"`
	SuggestionsCountLastCycle int64         `json:"suggestions_count_last_cycle"`
}

// generatorJobs are the job names whose completion drives data_freshness
// and the suggestions-per-cycle count; both open and close cycles produce
// suggestions.
var generatorJobs = []string{"suggestions.open", "suggestions.close"}

// Snapshot assembles the current Health view.
type Snapshot struct {
	gateway *gateway.Gateway
	cadence *scheduler.Cadence
	now     func() time.Time
}

// NewSnapshot builds a Snapshot assembler.
func NewSnapshot(g *gateway.Gateway, cadence *scheduler.Cadence, now func() time.Time) *Snapshot {
	return &Snapshot{gateway: g, cadence: cadence, now: now}
}

// Build gathers the aggregate. It tolerates partial failures in any one
// sub-query by surfacing that section's zero value (for a job entry, status
// "error") rather than failing the whole snapshot, since /ops/health must stay up even when one signal is
// degraded.
func (s *Snapshot) Build(ctx context.Context) (Health, error) {
	now := s.now()

	var h Health

	pausedCount, err := s.gateway.CountValidationStatesInState(ctx, "FAIL_FAST_RESET")
	if err == nil {
		h.PauseState = PauseState{Paused: pausedCount > 0, AffectedMachines: pausedCount}
	}

	var latest *time.Time
	for _, jobName := range generatorJobs {
		t, err := s.gateway.LatestJobFinishedAt(ctx, jobName)
		if err != nil || t == nil {
			continue
		}
		if latest == nil || t.After(*latest) {
			latest = t
		}
	}
	h.DataFreshness.LastCompletedAt = latest
	if latest != nil {
		age := now.Sub(*latest).Seconds()
		h.DataFreshness.AgeSeconds = &age

		count, err := s.gateway.CountSuggestionsCreatedSince(ctx, *latest)
		if err == nil {
			h.SuggestionsCountLastCycle = count
		}
	}

	h.Jobs = s.jobHealth(ctx, now)

	var m dto.Metric
	if err := telemetry.IntegrityViolationsTotal.Write(&m); err == nil {
		h.Integrity.ViolationsTotal = m.GetCounter().GetValue()
	}

	return h, nil
}

func (s *Snapshot) jobHealth(ctx context.Context, now time.Time) []JobHealth {
	// names mirrors the job names of the scheduler cadence wired in internal/app.
	names := []string{"suggestions.open", "suggestions.close", "weekly_report", "universe_sync",
		"learning_ingest", "strategy_autotune", "plaid_backfill_history"}
	out := make([]JobHealth, 0, len(names))
	for _, name := range names {
		lastSuccess, err := s.gateway.LatestJobFinishedAt(ctx, name)
		if err != nil {
			out = append(out, JobHealth{Name: name, Status: scheduler.ExpectedStatus("error")})
			continue
		}
		status := s.cadence.ExpectedStatus(name, lastSuccess, now)
		out = append(out, JobHealth{Name: name, LastSuccessAt: lastSuccess, Status: status})
	}
	return out
}
