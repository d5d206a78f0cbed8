// Package golive implements the go-live readiness state machine (C11): the
// paper-trading warmup/streak/reset transitions that gate a user's
// overall_ready flag.
package golive

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kpeterson/optflow/internal/apperror"
	"github.com/kpeterson/optflow/internal/clock"
	"github.com/kpeterson/optflow/internal/config"
	"github.com/kpeterson/optflow/internal/db"
	"github.com/kpeterson/optflow/internal/telemetry"
	"github.com/kpeterson/optflow/pkg/gateway"
	"github.com/kpeterson/optflow/pkg/notify"
)

// State is one of the machine's named states.
type State string

const (
	StateInit           State = "INIT"
	StatePaperWarmup    State = "PAPER_WARMUP"
	StatePaperStreak    State = "PAPER_STREAK"
	StateReadyForLive   State = "READY_FOR_LIVE"
	StateFailFastReset  State = "FAIL_FAST_RESET"
)

// CheckpointResult is one paper-trading checkpoint's outcome.
type CheckpointResult struct {
	Passed       bool
	DrawdownPct  float64
	LossPct      float64
	Reason       string
}

// Machine applies §4.10's transition table under a per-user row lock, so
// every transition (including the atomic fail-fast reset) commits as a
// single unit.
type Machine struct {
	pool     *pgxpool.Pool
	cfg      *config.Config
	notifier *notify.Notifier
	clock    clock.Clock
}

// NewMachine wires a Machine from its collaborators.
func NewMachine(pool *pgxpool.Pool, cfg *config.Config, notifier *notify.Notifier, c clock.Clock) *Machine {
	return &Machine{pool: pool, cfg: cfg, notifier: notifier, clock: c}
}

// FailFastPredicate reports whether a checkpoint breach is severe enough to
// trigger an immediate window reset rather than just resetting the streak.
func FailFastPredicate(drawdownPct, lossPct float64, cfg *config.Config) bool {
	return drawdownPct > cfg.FailFastDrawdownPct || lossPct > cfg.FailFastLossPct
}

// RecordCheckpoint applies one paper-trading checkpoint result to userID's
// state, inside a single transaction locking the row for its duration.
func (m *Machine) RecordCheckpoint(ctx context.Context, userID uuid.UUID, result CheckpointResult) (db.ValidationState, error) {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return db.ValidationState{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	gw := gateway.New(tx)
	now := m.clock.Now()

	state, err := gw.GetValidationStateForUpdate(ctx, userID)
	switch {
	case apperror.CodeOf(err) == apperror.NotFound:
		state = initState(userID, now, m.cfg)
	case err != nil:
		return db.ValidationState{}, fmt.Errorf("locking validation state: %w", err)
	}

	if state.State == string(StateInit) {
		state.State = string(StatePaperWarmup)
		state.PaperWindowStart = now
		state.PaperWindowEnd = now.AddDate(0, 0, m.cfg.PaperWindowDays)
	}

	var journalTitle string

	switch {
	case result.Passed:
		state.PaperConsecutivePasses++
		state.State = string(StatePaperStreak)
		journalTitle = "Streak Advanced"

		if state.PaperConsecutivePasses >= state.PaperCheckpointTarget &&
			state.HistoricalLastResult != nil && state.HistoricalLastResult.Passed {
			state.State = string(StateReadyForLive)
			journalTitle = "Ready For Live"
			telemetry.ReadyForLiveTotal.Inc()
		}

	case FailFastPredicate(result.DrawdownPct, result.LossPct, m.cfg):
		state.State = string(StateFailFastReset)
		state.PaperWindowStart = now
		state.PaperWindowEnd = now.AddDate(0, 0, m.cfg.PaperWindowDays)
		state.PaperConsecutivePasses = 0
		state.PaperFailFastTriggered = true
		reason := result.Reason
		if reason == "" {
			reason = "performance threshold breached"
		}
		state.PaperFailFastReason = &reason
		journalTitle = "Window Reset Triggered"
		telemetry.FailFastResetsTotal.Inc()

	default:
		state.PaperConsecutivePasses = 0
		state.State = string(StatePaperWarmup)
		journalTitle = "Streak Reset"
	}

	state.OverallReady = state.State == string(StateReadyForLive) && !state.PaperFailFastTriggered

	updated, err := gw.UpsertValidationState(ctx, state)
	if err != nil {
		return db.ValidationState{}, fmt.Errorf("updating validation state: %w", err)
	}

	if err := gw.AppendValidationJournalEntry(ctx, journalEntry(userID, journalTitle, result)); err != nil {
		return db.ValidationState{}, fmt.Errorf("appending journal entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return db.ValidationState{}, fmt.Errorf("committing transaction: %w", err)
	}

	m.notify(ctx, journalTitle, updated)
	return updated, nil
}

// ManualReset forces userID back to PAPER_WARMUP regardless of current
// state, clearing the fail-fast flag and restarting the window.
func (m *Machine) ManualReset(ctx context.Context, userID uuid.UUID) (db.ValidationState, error) {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return db.ValidationState{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	gw := gateway.New(tx)
	now := m.clock.Now()

	state, err := gw.GetValidationStateForUpdate(ctx, userID)
	switch {
	case apperror.CodeOf(err) == apperror.NotFound:
		state = initState(userID, now, m.cfg)
	case err != nil:
		return db.ValidationState{}, fmt.Errorf("locking validation state: %w", err)
	}

	state.State = string(StatePaperWarmup)
	state.PaperWindowStart = now
	state.PaperWindowEnd = now.AddDate(0, 0, m.cfg.PaperWindowDays)
	state.PaperConsecutivePasses = 0
	state.PaperFailFastTriggered = false
	state.PaperFailFastReason = nil
	state.OverallReady = false

	updated, err := gw.UpsertValidationState(ctx, state)
	if err != nil {
		return db.ValidationState{}, fmt.Errorf("updating validation state: %w", err)
	}

	if err := gw.AppendValidationJournalEntry(ctx, journalEntry(userID, "Manual Reset", CheckpointResult{})); err != nil {
		return db.ValidationState{}, fmt.Errorf("appending journal entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return db.ValidationState{}, fmt.Errorf("committing transaction: %w", err)
	}
	return updated, nil
}

func (m *Machine) notify(ctx context.Context, title string, state db.ValidationState) {
	if m.notifier == nil || !m.notifier.IsEnabled() {
		return
	}
	switch title {
	case "Ready For Live":
		_ = m.notifier.PostReadyForLive(ctx, state.UserID.String())
	case "Window Reset Triggered":
		reason := ""
		if state.PaperFailFastReason != nil {
			reason = *state.PaperFailFastReason
		}
		_ = m.notifier.PostFailFastReset(ctx, state.UserID.String(), reason)
	}
}

func initState(userID uuid.UUID, now time.Time, cfg *config.Config) db.ValidationState {
	return db.ValidationState{
		UserID:                userID,
		PaperWindowStart:      now,
		PaperWindowEnd:        now.AddDate(0, 0, cfg.PaperWindowDays),
		PaperCheckpointTarget: cfg.PaperCheckpointTarget,
		State:                 string(StateInit),
	}
}

func journalEntry(userID uuid.UUID, title string, result CheckpointResult) db.ValidationJournalEntry {
	return db.ValidationJournalEntry{
		ID:      uuid.New(),
		UserID:  userID,
		Title:   title,
		Summary: fmt.Sprintf("checkpoint passed=%v drawdown_pct=%.2f loss_pct=%.2f", result.Passed, result.DrawdownPct, result.LossPct),
	}
}
