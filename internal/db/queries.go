package db

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx, letting Queries run
// inside or outside a transaction without duplicating call sites.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries is the hand-written sqlc-shaped query layer described in
// internal/db's package doc.
type Queries struct {
	db DBTX
}

// New builds a Queries bound to dbtx — either a pool for standalone calls or
// a tx when the caller needs multiple statements to commit atomically.
func New(dbtx DBTX) *Queries {
	return &Queries{db: dbtx}
}

// --- Holdings ---------------------------------------------------------

func (q *Queries) ListHoldingsForUser(ctx context.Context, userID uuid.UUID) ([]Holding, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, user_id, symbol, asset_type, quantity, cost_basis,
		       current_price, greeks, sector, updated_at
		FROM holdings
		WHERE user_id = $1
		ORDER BY symbol ASC`, userID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []Holding
	for rows.Next() {
		var h Holding
		if err := rows.Scan(&h.ID, &h.UserID, &h.Symbol, &h.AssetType, &h.Quantity,
			&h.CostBasis, &h.CurrentPrice, &h.Greeks, &h.Sector, &h.UpdatedAt); err != nil {
			return nil, mapError(err)
		}
		out = append(out, h)
	}
	return out, mapError(rows.Err())
}

func (q *Queries) UpsertHolding(ctx context.Context, h Holding) (Holding, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO holdings (id, user_id, symbol, asset_type, quantity, cost_basis,
		                       current_price, greeks, sector, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		ON CONFLICT (user_id, symbol) DO UPDATE
		SET asset_type = EXCLUDED.asset_type,
		    quantity = EXCLUDED.quantity,
		    cost_basis = EXCLUDED.cost_basis,
		    current_price = EXCLUDED.current_price,
		    greeks = EXCLUDED.greeks,
		    sector = EXCLUDED.sector,
		    updated_at = now()
		RETURNING id, user_id, symbol, asset_type, quantity, cost_basis,
		          current_price, greeks, sector, updated_at`,
		h.ID, h.UserID, h.Symbol, h.AssetType, h.Quantity, h.CostBasis,
		h.CurrentPrice, h.Greeks, h.Sector)

	var out Holding
	err := row.Scan(&out.ID, &out.UserID, &out.Symbol, &out.AssetType, &out.Quantity,
		&out.CostBasis, &out.CurrentPrice, &out.Greeks, &out.Sector, &out.UpdatedAt)
	return out, mapError(err)
}

// --- Credentials --------------------------------------------------------

func (q *Queries) InsertCredential(ctx context.Context, c Credential) (Credential, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO credentials (id, user_id, provider_id, ciphertext, created_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (user_id, provider_id) DO UPDATE SET ciphertext = EXCLUDED.ciphertext
		RETURNING id, user_id, provider_id, ciphertext, created_at`,
		c.ID, c.UserID, c.ProviderID, c.Ciphertext)

	var out Credential
	err := row.Scan(&out.ID, &out.UserID, &out.ProviderID, &out.Ciphertext, &out.CreatedAt)
	return out, mapError(err)
}

func (q *Queries) GetCredential(ctx context.Context, userID uuid.UUID, providerID string) (Credential, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, user_id, provider_id, ciphertext, created_at
		FROM credentials
		WHERE user_id = $1 AND provider_id = $2`, userID, providerID)

	var out Credential
	err := row.Scan(&out.ID, &out.UserID, &out.ProviderID, &out.Ciphertext, &out.CreatedAt)
	return out, mapError(err)
}

func (q *Queries) DeleteCredential(ctx context.Context, userID uuid.UUID, providerID string) error {
	_, err := q.db.Exec(ctx, `DELETE FROM credentials WHERE user_id = $1 AND provider_id = $2`, userID, providerID)
	return mapError(err)
}

// --- Suggestions ---------------------------------------------------------

func (q *Queries) InsertSuggestion(ctx context.Context, s Suggestion) (Suggestion, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO suggestions (id, user_id, window, strategy, symbol, display_symbol,
		                          legs, limit_price, metrics, iv_rank, iv_regime, score,
		                          status, blocked_reason, blocked_detail, marketdata_quality,
		                          sizing, trace_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, now())
		RETURNING id, user_id, window, strategy, symbol, display_symbol, legs, limit_price,
		          metrics, iv_rank, iv_regime, score, status, blocked_reason, blocked_detail,
		          marketdata_quality, sizing, trace_id, created_at, refreshed_at`,
		s.ID, s.UserID, s.Window, s.Strategy, s.Symbol, s.DisplaySymbol, legsJSON(s.Legs),
		s.LimitPrice, metricsJSON(s.Metrics), s.IVRank, s.IVRegime, s.Score, s.Status,
		s.BlockedReason, s.BlockedDetail, s.MarketdataQuality, sizingJSON(s.Sizing), s.TraceID)

	return scanSuggestion(row)
}

func (q *Queries) GetSuggestion(ctx context.Context, id uuid.UUID) (Suggestion, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, user_id, window, strategy, symbol, display_symbol, legs, limit_price,
		       metrics, iv_rank, iv_regime, score, status, blocked_reason, blocked_detail,
		       marketdata_quality, sizing, trace_id, created_at, refreshed_at
		FROM suggestions WHERE id = $1`, id)
	return scanSuggestion(row)
}

func (q *Queries) GetSuggestionForUser(ctx context.Context, userID, id uuid.UUID) (Suggestion, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, user_id, window, strategy, symbol, display_symbol, legs, limit_price,
		       metrics, iv_rank, iv_regime, score, status, blocked_reason, blocked_detail,
		       marketdata_quality, sizing, trace_id, created_at, refreshed_at
		FROM suggestions WHERE id = $1 AND user_id = $2`, id, userID)
	return scanSuggestion(row)
}

func (q *Queries) ListSuggestionsForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Suggestion, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, user_id, window, strategy, symbol, display_symbol, legs, limit_price,
		       metrics, iv_rank, iv_regime, score, status, blocked_reason, blocked_detail,
		       marketdata_quality, sizing, trace_id, created_at, refreshed_at
		FROM suggestions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []Suggestion
	for rows.Next() {
		s, err := scanSuggestionRow(rows)
		if err != nil {
			return nil, mapError(err)
		}
		out = append(out, s)
	}
	return out, mapError(rows.Err())
}

func (q *Queries) ListSuggestionsByWindowAndDay(ctx context.Context, userID uuid.UUID, window SuggestionWindow, tradingDay string) ([]Suggestion, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, user_id, window, strategy, symbol, display_symbol, legs, limit_price,
		       metrics, iv_rank, iv_regime, score, status, blocked_reason, blocked_detail,
		       marketdata_quality, sizing, trace_id, created_at, refreshed_at
		FROM suggestions
		WHERE user_id = $1 AND window = $2
		  AND created_at::date = $3::date
		ORDER BY score DESC`, userID, window, tradingDay)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []Suggestion
	for rows.Next() {
		s, err := scanSuggestionRow(rows)
		if err != nil {
			return nil, mapError(err)
		}
		out = append(out, s)
	}
	return out, mapError(rows.Err())
}

func (q *Queries) UpdateSuggestionStatus(ctx context.Context, userID, id uuid.UUID, status SuggestionStatus) (Suggestion, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE suggestions
		SET status = $3, refreshed_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING id, user_id, window, strategy, symbol, display_symbol, legs, limit_price,
		          metrics, iv_rank, iv_regime, score, status, blocked_reason, blocked_detail,
		          marketdata_quality, sizing, trace_id, created_at, refreshed_at`,
		id, userID, status)
	return scanSuggestion(row)
}

func (q *Queries) UpdateSuggestionDismissal(ctx context.Context, userID, id uuid.UUID, reason string) (Suggestion, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE suggestions
		SET status = $3, blocked_reason = $4, refreshed_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING id, user_id, window, strategy, symbol, display_symbol, legs, limit_price,
		          metrics, iv_rank, iv_regime, score, status, blocked_reason, blocked_detail,
		          marketdata_quality, sizing, trace_id, created_at, refreshed_at`,
		id, userID, StatusDismissed, reason)
	return scanSuggestion(row)
}

// UpdateSuggestionQuality rewrites the fields a quote refresh can change:
// the quality gate's verdict, the resulting status/blocked fields, the
// score penalty a downrank/defer applies, and sizing (since a clamp depends
// on current capital_required). Everything else about the suggestion is
// left untouched.
func (q *Queries) UpdateSuggestionQuality(ctx context.Context, userID, id uuid.UUID, status SuggestionStatus, blockedReason, blockedDetail *string, marketdataQuality json.RawMessage, score float64, sizing SizingMetadata) (Suggestion, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE suggestions
		SET status = $3, blocked_reason = $4, blocked_detail = $5,
		    marketdata_quality = $6, score = $7, sizing = $8, refreshed_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING id, user_id, window, strategy, symbol, display_symbol, legs, limit_price,
		          metrics, iv_rank, iv_regime, score, status, blocked_reason, blocked_detail,
		          marketdata_quality, sizing, trace_id, created_at, refreshed_at`,
		id, userID, status, blockedReason, blockedDetail, marketdataQuality, score, sizingJSON(sizing))
	return scanSuggestion(row)
}

// --- Job queue -----------------------------------------------------------

func (q *Queries) InsertJobRun(ctx context.Context, j JobRun) (JobRun, bool, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO job_runs (id, job_name, idempotency_key, status, attempt_count, max_attempts,
		                       scheduled_for, run_after, payload, created_at)
		VALUES ($1, $2, $3, $4, 0, $5, $6, $7, $8, now())
		ON CONFLICT (job_name, idempotency_key) WHERE idempotency_key IS NOT NULL
		DO NOTHING
		RETURNING id, job_name, idempotency_key, status, attempt_count, max_attempts,
		          scheduled_for, run_after, started_at, finished_at, duration_ms, payload,
		          result, error, worker_id, created_at`,
		j.ID, j.JobName, j.IdempotencyKey, JobPending, j.MaxAttempts, j.ScheduledFor, j.RunAfter, j.Payload)

	out, err := scanJobRun(row)
	if err != nil {
		if ae, ok := asNotFound(err); ok {
			_ = ae
			existing, ferr := q.GetJobRunByIdempotencyKey(ctx, j.JobName, j.IdempotencyKey)
			return existing, false, ferr
		}
		return JobRun{}, false, err
	}
	return out, true, nil
}

func (q *Queries) GetJobRunByIdempotencyKey(ctx context.Context, jobName string, idempotencyKey *string) (JobRun, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, job_name, idempotency_key, status, attempt_count, max_attempts,
		       scheduled_for, run_after, started_at, finished_at, duration_ms, payload,
		       result, error, worker_id, created_at
		FROM job_runs
		WHERE job_name = $1 AND idempotency_key = $2`, jobName, idempotencyKey)
	return scanJobRun(row)
}

// ClaimJobRows claims up to batch pending rows whose run_after has elapsed,
// using FOR UPDATE SKIP LOCKED so concurrent workers never block each other.
func (q *Queries) ClaimJobRows(ctx context.Context, workerID string, batch int) ([]JobRun, error) {
	rows, err := q.db.Query(ctx, `
		UPDATE job_runs
		SET status = $1, started_at = now(), worker_id = $2
		WHERE id IN (
			SELECT id FROM job_runs
			WHERE status = $3 AND run_after <= now()
			ORDER BY run_after ASC
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, job_name, idempotency_key, status, attempt_count, max_attempts,
		          scheduled_for, run_after, started_at, finished_at, duration_ms, payload,
		          result, error, worker_id, created_at`,
		JobProcessing, workerID, JobPending, batch)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []JobRun
	for rows.Next() {
		j, err := scanJobRunRow(rows)
		if err != nil {
			return nil, mapError(err)
		}
		out = append(out, j)
	}
	return out, mapError(rows.Err())
}

func (q *Queries) UpdateJobRunCompleted(ctx context.Context, id uuid.UUID, attemptCount int, result []byte, durationMs int64) (bool, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE job_runs
		SET status = $1, finished_at = now(), result = $2, duration_ms = $3
		WHERE id = $4 AND status = $5 AND attempt_count = $6`,
		JobCompleted, result, durationMs, id, JobProcessing, attemptCount)
	if err != nil {
		return false, mapError(err)
	}
	return tag.RowsAffected() == 1, nil
}

func (q *Queries) UpdateJobRunFailedRetryable(ctx context.Context, id uuid.UUID, attemptCount int, errMsg string, runAfter time.Time) (bool, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE job_runs
		SET status = $1, attempt_count = attempt_count + 1, error = $2, run_after = $3
		WHERE id = $4 AND status = $5 AND attempt_count = $6`,
		JobPending, errMsg, runAfter, id, JobProcessing, attemptCount)
	if err != nil {
		return false, mapError(err)
	}
	return tag.RowsAffected() == 1, nil
}

func (q *Queries) UpdateJobRunFailedTerminal(ctx context.Context, id uuid.UUID, attemptCount int, errMsg string) (bool, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE job_runs
		SET status = $1, finished_at = now(), error = $2
		WHERE id = $3 AND status = $4 AND attempt_count = $5`,
		JobFailed, errMsg, id, JobProcessing, attemptCount)
	if err != nil {
		return false, mapError(err)
	}
	return tag.RowsAffected() == 1, nil
}

func (q *Queries) UpdateJobRunDeadLettered(ctx context.Context, id uuid.UUID, attemptCount int, errMsg string) (bool, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE job_runs
		SET status = $1, attempt_count = attempt_count + 1, finished_at = now(), error = $2
		WHERE id = $3 AND status = $4 AND attempt_count = $5`,
		JobDeadLettered, errMsg, id, JobProcessing, attemptCount)
	if err != nil {
		return false, mapError(err)
	}
	return tag.RowsAffected() == 1, nil
}

// ReclaimExpiredLeases resets processing rows whose lease has expired back
// to pending, incrementing attempt_count so a stuck worker does not retry
// forever without tripping max_attempts.
func (q *Queries) ReclaimExpiredLeases(ctx context.Context, leaseTimeout time.Duration) (int64, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE job_runs
		SET status = $1, attempt_count = attempt_count + 1, worker_id = NULL,
		    error = 'lease expired'
		WHERE status = $2 AND started_at < now() - $3::interval`,
		JobPending, JobProcessing, leaseTimeout.String())
	if err != nil {
		return 0, mapError(err)
	}
	return tag.RowsAffected(), nil
}

// --- Validation state & journal -------------------------------------------

func (q *Queries) GetValidationState(ctx context.Context, userID uuid.UUID) (ValidationState, error) {
	row := q.db.QueryRow(ctx, `
		SELECT user_id, paper_window_start, paper_window_end, paper_consecutive_passes,
		       paper_checkpoint_target, paper_fail_fast_triggered, paper_fail_fast_reason,
		       historical_last_run_at, historical_last_result, overall_ready, state, updated_at
		FROM validation_state WHERE user_id = $1`, userID)
	return scanValidationState(row)
}

// GetValidationStateForUpdate locks userID's row for the duration of the
// enclosing transaction, the serialization point the go-live state machine
// relies on to make every transition atomic.
func (q *Queries) GetValidationStateForUpdate(ctx context.Context, userID uuid.UUID) (ValidationState, error) {
	row := q.db.QueryRow(ctx, `
		SELECT user_id, paper_window_start, paper_window_end, paper_consecutive_passes,
		       paper_checkpoint_target, paper_fail_fast_triggered, paper_fail_fast_reason,
		       historical_last_run_at, historical_last_result, overall_ready, state, updated_at
		FROM validation_state WHERE user_id = $1 FOR UPDATE`, userID)
	return scanValidationState(row)
}

func (q *Queries) UpsertValidationState(ctx context.Context, v ValidationState) (ValidationState, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO validation_state (user_id, paper_window_start, paper_window_end,
		                               paper_consecutive_passes, paper_checkpoint_target,
		                               paper_fail_fast_triggered, paper_fail_fast_reason,
		                               historical_last_run_at, historical_last_result,
		                               overall_ready, state, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now())
		ON CONFLICT (user_id) DO UPDATE SET
		    paper_window_start = EXCLUDED.paper_window_start,
		    paper_window_end = EXCLUDED.paper_window_end,
		    paper_consecutive_passes = EXCLUDED.paper_consecutive_passes,
		    paper_checkpoint_target = EXCLUDED.paper_checkpoint_target,
		    paper_fail_fast_triggered = EXCLUDED.paper_fail_fast_triggered,
		    paper_fail_fast_reason = EXCLUDED.paper_fail_fast_reason,
		    historical_last_run_at = EXCLUDED.historical_last_run_at,
		    historical_last_result = EXCLUDED.historical_last_result,
		    overall_ready = EXCLUDED.overall_ready,
		    state = EXCLUDED.state,
		    updated_at = now()
		RETURNING user_id, paper_window_start, paper_window_end, paper_consecutive_passes,
		          paper_checkpoint_target, paper_fail_fast_triggered, paper_fail_fast_reason,
		          historical_last_run_at, historical_last_result, overall_ready, state, updated_at`,
		v.UserID, v.PaperWindowStart, v.PaperWindowEnd, v.PaperConsecutivePasses,
		v.PaperCheckpointTarget, v.PaperFailFastTriggered, v.PaperFailFastReason,
		v.HistoricalLastRunAt, historicalResultJSON(v.HistoricalLastResult), v.OverallReady, v.State)
	return scanValidationState(row)
}

func (q *Queries) AppendValidationJournalEntry(ctx context.Context, e ValidationJournalEntry) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO validation_journal (id, user_id, created_at, title, summary, details)
		VALUES ($1, $2, now(), $3, $4, $5)`,
		e.ID, e.UserID, e.Title, e.Summary, e.Details)
	return mapError(err)
}

func (q *Queries) ListValidationJournal(ctx context.Context, userID uuid.UUID, limit, offset int) ([]ValidationJournalEntry, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, user_id, created_at, title, summary, details
		FROM validation_journal
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []ValidationJournalEntry
	for rows.Next() {
		var e ValidationJournalEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.CreatedAt, &e.Title, &e.Summary, &e.Details); err != nil {
			return nil, mapError(err)
		}
		out = append(out, e)
	}
	return out, mapError(rows.Err())
}

// --- Observability (C12) ---------------------------------------------------

// CountValidationStatesInState counts users whose go-live machine currently
// sits in the given state, e.g. FAIL_FAST_RESET for the pause_state
// aggregate.
func (q *Queries) CountValidationStatesInState(ctx context.Context, state string) (int64, error) {
	row := q.db.QueryRow(ctx, `SELECT count(*) FROM validation_state WHERE state = $1`, state)
	var n int64
	err := row.Scan(&n)
	return n, mapError(err)
}

// LatestJobFinishedAt returns the most recent finished_at among completed
// runs of jobName, or nil if none have completed yet.
func (q *Queries) LatestJobFinishedAt(ctx context.Context, jobName string) (*time.Time, error) {
	row := q.db.QueryRow(ctx, `
		SELECT max(finished_at) FROM job_runs WHERE job_name = $1 AND status = $2`,
		jobName, JobCompleted)

	var finishedAt *time.Time
	err := row.Scan(&finishedAt)
	return finishedAt, mapError(err)
}

// CountSuggestionsCreatedSince counts suggestions persisted at or after
// since, the suggestions.count_last_cycle aggregate.
func (q *Queries) CountSuggestionsCreatedSince(ctx context.Context, since time.Time) (int64, error) {
	row := q.db.QueryRow(ctx, `SELECT count(*) FROM suggestions WHERE created_at >= $1`, since)
	var n int64
	err := row.Scan(&n)
	return n, mapError(err)
}

// SuggestionOutcomeCounts aggregates suggestion outcomes since a cutoff, the
// source data for GET /system/health's veto_rate_7d (notExecutable/total)
// and partial_outcomes_pct (downranked-or-deferred-but-still-executable /
// total).
func (q *Queries) SuggestionOutcomeCounts(ctx context.Context, since time.Time) (total, notExecutable, partial int64, err error) {
	row := q.db.QueryRow(ctx, `
		SELECT count(*),
		       count(*) FILTER (WHERE status = $2),
		       count(*) FILTER (WHERE status = $3 AND blocked_reason IS NOT NULL)
		FROM suggestions
		WHERE created_at >= $1`,
		since, StatusNotExecutable, StatusExecutable)
	err = row.Scan(&total, &notExecutable, &partial)
	return total, notExecutable, partial, mapError(err)
}

// ListActiveUserIDs returns every user with at least one holding, the
// fan-out set for system-wide cron jobs (suggestion generation, strategy
// autotune, Plaid backfill) that have no single-user scope of their own.
func (q *Queries) ListActiveUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := q.db.Query(ctx, `SELECT DISTINCT user_id FROM holdings ORDER BY user_id`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, mapError(err)
		}
		out = append(out, id)
	}
	return out, mapError(rows.Err())
}

// --- Strategy config -------------------------------------------------------

// GetActiveStrategyConfig returns userID's current strategy snapshot, or a
// mapped NotFound if the user has never completed a training run.
func (q *Queries) GetActiveStrategyConfig(ctx context.Context, userID uuid.UUID) (StrategyConfig, error) {
	row := q.db.QueryRow(ctx, `
		SELECT user_id, parameters, streak, snapshot_id, updated_at
		FROM strategy_configs WHERE user_id = $1`, userID)

	var out StrategyConfig
	err := row.Scan(&out.UserID, &out.Parameters, &out.Streak, &out.SnapshotID, &out.UpdatedAt)
	return out, mapError(err)
}

// UpsertStrategyConfig replaces userID's active strategy snapshot, called by
// the autotune loop on every accepted parameter snapshot.
func (q *Queries) UpsertStrategyConfig(ctx context.Context, s StrategyConfig) (StrategyConfig, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO strategy_configs (user_id, parameters, streak, snapshot_id, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (user_id) DO UPDATE SET
		    parameters = EXCLUDED.parameters,
		    streak = EXCLUDED.streak,
		    snapshot_id = EXCLUDED.snapshot_id,
		    updated_at = now()
		RETURNING user_id, parameters, streak, snapshot_id, updated_at`,
		s.UserID, s.Parameters, s.Streak, s.SnapshotID)

	var out StrategyConfig
	err := row.Scan(&out.UserID, &out.Parameters, &out.Streak, &out.SnapshotID, &out.UpdatedAt)
	return out, mapError(err)
}

// --- Historical runs & analytics ------------------------------------------

func (q *Queries) InsertHistoricalRun(ctx context.Context, h HistoricalRun) (HistoricalRun, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO historical_runs (id, user_id, symbol, window_days, instrument_type,
		                              parameters, return_pct, max_drawdown, win_rate,
		                              trades_count, passed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now())
		RETURNING id, user_id, symbol, window_days, instrument_type, parameters, return_pct,
		          max_drawdown, win_rate, trades_count, passed, created_at`,
		h.ID, h.UserID, h.Symbol, h.WindowDays, h.InstrumentType, h.Parameters,
		h.ReturnPct, h.MaxDrawdown, h.WinRate, h.TradesCount, h.Passed)

	var out HistoricalRun
	err := row.Scan(&out.ID, &out.UserID, &out.Symbol, &out.WindowDays, &out.InstrumentType,
		&out.Parameters, &out.ReturnPct, &out.MaxDrawdown, &out.WinRate, &out.TradesCount,
		&out.Passed, &out.CreatedAt)
	return out, mapError(err)
}

func (q *Queries) InsertAnalyticsEvent(ctx context.Context, a AnalyticsEvent) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO analytics_events (id, event_name, category, properties, created_at)
		VALUES ($1, $2, $3, $4, now())`,
		a.ID, a.EventName, a.Category, a.Properties)
	return mapError(err)
}
