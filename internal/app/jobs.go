package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/kpeterson/optflow/internal/apperror"
	"github.com/kpeterson/optflow/internal/audit"
	"github.com/kpeterson/optflow/internal/clock"
	"github.com/kpeterson/optflow/internal/config"
	"github.com/kpeterson/optflow/internal/db"
	"github.com/kpeterson/optflow/internal/secret"
	"github.com/kpeterson/optflow/pkg/autotune"
	"github.com/kpeterson/optflow/pkg/gateway"
	"github.com/kpeterson/optflow/pkg/golive"
	"github.com/kpeterson/optflow/pkg/suggestion"
	"github.com/kpeterson/optflow/pkg/validation"
)

// jobHandlers binds every registered job name to the domain collaborator it
// drives. One struct keeps the worker's Register calls in app.go terse
// without scattering closures that each capture a different subset of
// dependencies.
type jobHandlers struct {
	gateway     *gateway.Gateway
	generator   *suggestion.Generator
	engine      *validation.Engine
	autotune    *autotune.Loop
	live        *golive.Machine
	cfg         *config.Config
	secretStore *secret.Store
	auditWriter *audit.Writer
	logger      *slog.Logger
	clock       clock.Clock
}

func newJobHandlers(gw *gateway.Gateway, generator *suggestion.Generator, engine *validation.Engine, loop *autotune.Loop, live *golive.Machine, cfg *config.Config, secretStore *secret.Store, auditWriter *audit.Writer, logger *slog.Logger, c clock.Clock) *jobHandlers {
	return &jobHandlers{
		gateway:     gw,
		generator:   generator,
		engine:      engine,
		autotune:    loop,
		live:        live,
		cfg:         cfg,
		secretStore: secretStore,
		auditWriter: auditWriter,
		logger:      logger,
		clock:       c,
	}
}

// portfolioValue sums a user's mark-to-market holdings, the figure every
// suggestion's capital sizing is clamped against.
func (j *jobHandlers) portfolioValue(ctx context.Context, userID uuid.UUID) (float64, error) {
	holdings, err := j.gateway.ListHoldings(ctx, userID)
	if err != nil {
		return 0, err
	}
	var total float64
	for _, h := range holdings {
		total += h.CurrentPrice * h.Quantity
	}
	return total, nil
}

// generateForEveryUser drives the generator for window across every user
// with at least one holding — the fan-out a cron-triggered, user-scoped
// operation needs.
func (j *jobHandlers) generateForEveryUser(ctx context.Context, window db.SuggestionWindow) ([]byte, error) {
	userIDs, err := j.gateway.ListActiveUserIDs(ctx)
	if err != nil {
		return nil, err
	}

	generated := 0
	for _, userID := range userIDs {
		portfolioValue, err := j.portfolioValue(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("user %s: computing portfolio value: %w", userID, err)
		}
		suggestions, err := j.generator.Generate(ctx, userID, window, portfolioValue)
		if err != nil {
			return nil, fmt.Errorf("user %s: generating suggestions: %w", userID, err)
		}
		generated += len(suggestions)
	}

	return json.Marshal(map[string]int{"users": len(userIDs), "suggestions": generated})
}

func (j *jobHandlers) suggestionsOpen(ctx context.Context, _ db.JobRun) ([]byte, error) {
	return j.generateForEveryUser(ctx, db.WindowMorningLimit)
}

func (j *jobHandlers) suggestionsClose(ctx context.Context, _ db.JobRun) ([]byte, error) {
	return j.generateForEveryUser(ctx, db.WindowMiddayEntry)
}

// weeklyReport, universeSync and learningIngest have no domain component of
// their own: the digest email, the symbol-universe refresh, and the
// learning pipeline's feature ingestion are all external-collaborator
// territory (the web UI and the optimizer, per the non-goals). Each handler
// records the cycle as an analytics event so C12's cadence tracking has a
// completed JobRun to key off of, and nothing more.
func (j *jobHandlers) weeklyReport(ctx context.Context, run db.JobRun) ([]byte, error) {
	return j.noopCycle(ctx, run, "weekly_report")
}

func (j *jobHandlers) universeSync(ctx context.Context, run db.JobRun) ([]byte, error) {
	return j.noopCycle(ctx, run, "universe_sync")
}

func (j *jobHandlers) learningIngest(ctx context.Context, run db.JobRun) ([]byte, error) {
	return j.noopCycle(ctx, run, "learning_ingest")
}

func (j *jobHandlers) noopCycle(_ context.Context, run db.JobRun, name string) ([]byte, error) {
	details, _ := json.Marshal(map[string]string{"job_run_id": run.ID.String()})
	j.auditWriter.LogAnalytics(audit.AnalyticsEvent{
		EventName:  name,
		Category:   "cycle",
		Properties: details,
	})
	return json.Marshal(map[string]string{"status": "completed"})
}

// strategyAutotuneParams is the slice of a strategy config's stored
// parameters the autotune cron needs to re-run validation against the
// symbol a user is already trained on.
type strategyAutotuneParams struct {
	Symbol        string  `json:"symbol"`
	WindowDays    int     `json:"window_days"`
	GoalReturnPct float64 `json:"goal_return_pct"`
}

// strategyAutotune re-validates every user's active strategy snapshot on
// its weekly cadence, advancing the accept streak or resetting it exactly
// as a user-triggered mode=historical,train=true run would. Users who have
// never completed a training run have nothing to re-tune and are skipped.
func (j *jobHandlers) strategyAutotune(ctx context.Context, _ db.JobRun) ([]byte, error) {
	userIDs, err := j.gateway.ListActiveUserIDs(ctx)
	if err != nil {
		return nil, err
	}

	tuned, skipped := 0, 0
	for _, userID := range userIDs {
		cfg, err := j.gateway.GetActiveStrategyConfig(ctx, userID)
		if err != nil {
			if apperror.CodeOf(err) == apperror.NotFound {
				skipped++
				continue
			}
			return nil, fmt.Errorf("user %s: loading strategy config: %w", userID, err)
		}

		var p strategyAutotuneParams
		if err := json.Unmarshal(cfg.Parameters, &p); err != nil {
			return nil, fmt.Errorf("user %s: decoding strategy parameters: %w", userID, err)
		}

		_, err = j.autotune.Run(ctx, userID, uint64(p.WindowDays)*31+uint64(len(p.Symbol)), autotune.TrainParams{
			TrainTargetStreak: j.cfg.AutotuneTargetStreak,
			TrainMaxAttempts:  j.cfg.AutotuneMaxAttempts,
			Initial:           autotune.ParamSnapshot{"goal_return_pct": p.GoalReturnPct},
			Validation: validation.Params{
				Symbol:        p.Symbol,
				WindowDays:    p.WindowDays,
				GoalReturnPct: p.GoalReturnPct,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("user %s: running autotune: %w", userID, err)
		}
		tuned++
	}

	return json.Marshal(map[string]int{"tuned": tuned, "skipped": skipped})
}

// plaidBackfillHistory decrypts the caller's stored broker credential and
// would hand it to the Plaid client to pull transaction history; the broker
// integration itself is out of this repo's scope, so this only proves the
// credential round-trips through the encryption store intact.
func (j *jobHandlers) plaidBackfillHistory(ctx context.Context, run db.JobRun) ([]byte, error) {
	userIDs, err := j.gateway.ListActiveUserIDs(ctx)
	if err != nil {
		return nil, err
	}

	synced := 0
	for _, userID := range userIDs {
		cred, err := j.gateway.GetCredential(ctx, userID, "plaid")
		if err != nil {
			continue
		}
		if _, err := j.secretStore.Open(cred.Ciphertext); err != nil {
			j.logger.Error("plaid backfill: credential failed to decrypt", "user_id", userID, "error", err)
			continue
		}
		synced++
	}

	return json.Marshal(map[string]int{"credentials_synced": synced})
}

// historicalPayload mirrors validation.Historical — the worker side of the
// "validation.run" job decodes the same wire shape the HTTP handler
// marshaled, so it's duplicated here rather than imported to keep the job
// payload decoupled from the HTTP request-validation tags.
type historicalPayload struct {
	Symbol              string  `json:"symbol"`
	WindowDays          int     `json:"window_days"`
	InstrumentType      string  `json:"instrument_type"`
	OptionRight         string  `json:"option_right,omitempty"`
	OptionDTE           int     `json:"option_dte,omitempty"`
	OptionMoneyness     float64 `json:"option_moneyness,omitempty"`
	UseRollingContracts bool    `json:"use_rolling_contracts,omitempty"`
	StrictOptionMode    bool    `json:"strict_option_mode,omitempty"`
	SegmentTolerancePct float64 `json:"segment_tolerance_pct,omitempty"`
	ConcurrentRuns      int     `json:"concurrent_runs"`
	GoalReturnPct       float64 `json:"goal_return_pct"`
	Autotune            bool    `json:"autotune,omitempty"`
	Train               bool    `json:"train,omitempty"`
	TrainTargetStreak   int     `json:"train_target_streak,omitempty"`
	TrainMaxAttempts    int     `json:"train_max_attempts,omitempty"`
}

type runPayload struct {
	UserID uuid.UUID `json:"user_id"`
	Run    struct {
		Mode       string             `json:"mode"`
		Historical *historicalPayload `json:"historical,omitempty"`
	} `json:"run"`
}

func (j *jobHandlers) validationRun(ctx context.Context, run db.JobRun) ([]byte, error) {
	var payload runPayload
	if err := json.Unmarshal(run.Payload, &payload); err != nil {
		return nil, apperror.Wrap(apperror.Validation, "decoding validation.run payload", err)
	}

	if payload.Run.Mode == "paper" {
		return j.runPaperCheckpoint(ctx, payload.UserID)
	}
	return j.runHistorical(ctx, payload.UserID, payload.Run.Historical)
}

func (j *jobHandlers) runPaperCheckpoint(ctx context.Context, userID uuid.UUID) ([]byte, error) {
	holdings, err := j.gateway.ListHoldings(ctx, userID)
	if err != nil {
		return nil, err
	}

	var totalCost, totalValue float64
	var losing int
	for _, h := range holdings {
		totalCost += h.CostBasis * h.Quantity
		totalValue += h.CurrentPrice * h.Quantity
		if h.CurrentPrice < h.CostBasis {
			losing++
		}
	}

	var drawdownPct float64
	if totalCost > 0 && totalValue < totalCost {
		drawdownPct = (totalCost - totalValue) / totalCost
	}
	var lossPct float64
	if len(holdings) > 0 {
		lossPct = float64(losing) / float64(len(holdings))
	}

	reason := "checkpoint passed"
	passed := !golive.FailFastPredicate(drawdownPct, lossPct, j.cfg)
	if !passed {
		reason = fmt.Sprintf("drawdown %.2f%% or loss rate %.2f%% breached threshold", drawdownPct*100, lossPct*100)
	}

	state, err := j.live.RecordCheckpoint(ctx, userID, golive.CheckpointResult{
		Passed:      passed,
		DrawdownPct: drawdownPct,
		LossPct:     lossPct,
		Reason:      reason,
	})
	if err != nil {
		return nil, err
	}
	return json.Marshal(state)
}

func (j *jobHandlers) runHistorical(ctx context.Context, userID uuid.UUID, h *historicalPayload) ([]byte, error) {
	if h == nil {
		return nil, apperror.New(apperror.Validation, "historical params required for mode=historical")
	}

	params := validation.Params{
		Symbol:              h.Symbol,
		WindowDays:          h.WindowDays,
		InstrumentType:      validation.InstrumentType(h.InstrumentType),
		OptionRight:         validation.OptionRight(h.OptionRight),
		OptionDTE:           h.OptionDTE,
		OptionMoneyness:     h.OptionMoneyness,
		UseRollingContracts: h.UseRollingContracts,
		StrictOptionMode:    h.StrictOptionMode,
		SegmentTolerancePct: h.SegmentTolerancePct,
		ConcurrentRuns:      h.ConcurrentRuns,
		GoalReturnPct:       h.GoalReturnPct,
	}

	if h.Train {
		outcome, err := j.autotune.Run(ctx, userID, uint64(h.WindowDays)*31+uint64(len(h.Symbol)), autotune.TrainParams{
			TrainTargetStreak: h.TrainTargetStreak,
			TrainMaxAttempts:  h.TrainMaxAttempts,
			Initial:           autotune.ParamSnapshot{"goal_return_pct": h.GoalReturnPct},
			Validation:        params,
		})
		if err != nil {
			return nil, err
		}
		return json.Marshal(outcome)
	}

	result, err := j.engine.Run(ctx, params)
	if err != nil {
		return nil, err
	}

	parameters, _ := json.Marshal(params)
	if _, err := j.gateway.InsertHistoricalRun(ctx, db.HistoricalRun{
		ID:             uuid.New(),
		UserID:         userID,
		Symbol:         h.Symbol,
		WindowDays:     h.WindowDays,
		InstrumentType: h.InstrumentType,
		Parameters:     parameters,
		ReturnPct:      result.Best,
		MaxDrawdown:    result.MaxDrawdown,
		WinRate:        result.WinRate,
		TradesCount:    result.TradesCount,
		Passed:         result.Passed,
	}); err != nil {
		return nil, err
	}

	state, err := j.gateway.GetValidationState(ctx, userID)
	if err != nil {
		return nil, err
	}
	finishedAt := j.clock.Now()
	state.HistoricalLastRunAt = &finishedAt
	state.HistoricalLastResult = &db.HistoricalLastResult{Passed: result.Passed, ReturnPct: result.Best}
	if _, err := j.gateway.UpsertValidationState(ctx, state); err != nil {
		return nil, err
	}

	title := "Historical Failed"
	if result.Passed {
		title = "Historical Passed"
	}
	summary := fmt.Sprintf("best=%.2f%% median=%.2f%% worst=%.2f%%", result.Best, result.Median, result.Worst)
	if err := j.gateway.AppendValidationJournalEntry(ctx, db.ValidationJournalEntry{
		ID:      uuid.New(),
		UserID:  userID,
		Title:   title,
		Summary: summary,
	}); err != nil {
		return nil, err
	}

	return json.Marshal(result)
}
