package suggestion

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/kpeterson/optflow/internal/clock"
	"github.com/kpeterson/optflow/internal/db"
	"github.com/kpeterson/optflow/pkg/gateway"
	"github.com/kpeterson/optflow/pkg/quality"
	"github.com/kpeterson/optflow/pkg/strategy"
)

// tracer names the span emitted around each Generate call, the same
// package-level tracer convention the retrieval pack uses for worker-loop
// instrumentation. It resolves to a noop implementation until the process
// wiring installs a real TracerProvider via the otel SDK.
var tracer = otel.Tracer("optflow/suggestion")

// SizingConfig carries the per-trade and per-portfolio risk caps a
// suggestion's sizing is clamped against.
type SizingConfig struct {
	MaxRiskPctPerTrade  float64
	MaxRiskPctPortfolio float64
}

// QuoteSource supplies the latest quote for a candidate's symbol — the
// market data fetch itself is out of this repo's scope; the generator only
// needs quotes to run them through the quality gate.
type QuoteSource interface {
	LatestQuote(ctx context.Context, symbol string) (quality.Quote, string, error)
}

// Generator builds the suggestion set for a user/window/trading-day.
type Generator struct {
	gateway   *gateway.Gateway
	candidate strategy.CandidateSource
	quotes    QuoteSource
	gate      *quality.Gate
	sizing    SizingConfig
	clock     clock.Clock
}

// NewGenerator wires a Generator from its collaborators.
func NewGenerator(gw *gateway.Gateway, candidate strategy.CandidateSource, quotes QuoteSource, gate *quality.Gate, sizing SizingConfig, c clock.Clock) *Generator {
	return &Generator{gateway: gw, candidate: candidate, quotes: quotes, gate: gate, sizing: sizing, clock: c}
}

// Generate runs the full seven-step pipeline for one user/window/trading-day
// and persists the resulting suggestions. It is safe to re-invoke: it
// recomputes the whole window's suggestion set and upserts, so at-least-once
// delivery from the job queue never double-applies.
func (g *Generator) Generate(ctx context.Context, userID uuid.UUID, window db.SuggestionWindow, portfolioValue float64) ([]db.Suggestion, error) {
	ctx, span := tracer.Start(ctx, "suggestion.Generate")
	defer span.End()
	traceID := span.SpanContext().TraceID().String()

	holdings, err := g.gateway.ListHoldings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading holdings: %w", err)
	}

	params := strategy.Params{SnapshotID: "default"}
	if cfg, err := g.gateway.GetActiveStrategyConfig(ctx, userID); err == nil {
		params.SnapshotID = cfg.SnapshotID
		params.Values = decodeParamValues(cfg.Parameters)
	}

	candidates, err := g.candidate.FindCandidates(ctx, holdings, params)
	if err != nil {
		return nil, fmt.Errorf("finding candidates: %w", err)
	}

	built := make([]db.Suggestion, 0, len(candidates))
	for _, c := range candidates {
		s, err := g.buildSuggestion(ctx, userID, window, portfolioValue, traceID, c)
		if err != nil {
			return nil, fmt.Errorf("building suggestion for %s: %w", c.Symbol, err)
		}
		built = append(built, s)
	}

	rankSuggestions(built)

	out := make([]db.Suggestion, 0, len(built))
	for _, s := range built {
		persisted, err := g.gateway.InsertSuggestion(ctx, s)
		if err != nil {
			return nil, fmt.Errorf("persisting suggestion for %s: %w", s.Symbol, err)
		}
		out = append(out, persisted)
	}

	return out, nil
}

func (g *Generator) buildSuggestion(ctx context.Context, userID uuid.UUID, window db.SuggestionWindow, portfolioValue float64, traceID string, c strategy.Candidate) (db.Suggestion, error) {
	s := db.Suggestion{
		ID:            uuid.New(),
		UserID:        userID,
		Window:        window,
		Strategy:      c.Strategy,
		Symbol:        c.Symbol,
		DisplaySymbol: c.DisplaySymbol,
		Legs:          c.Legs,
		LimitPrice:    c.LimitPrice,
		Metrics:       c.Metrics,
		IVRank:        c.IVRank,
		IVRegime:      c.IVRegime,
		Score:         c.Score,
		TraceID:       traceID,
	}

	quote, provider, err := g.quotes.LatestQuote(ctx, c.Symbol)
	if err != nil {
		return db.Suggestion{}, err
	}

	results := g.gate.Evaluate(g.clock.Now(), provider, []quality.Quote{quote})
	decision := quality.Aggregate(results)
	s.MarketdataQuality = marketdataQualityJSON(results)

	switch decision.EffectiveAction {
	case quality.ActionSkipFatal:
		s.Status = db.StatusNotExecutable
		s.BlockedReason = decision.BlockedReason
		s.BlockedDetail = decision.BlockedDetail
		return s, nil
	case quality.ActionDefer, quality.ActionDownrank:
		s.Score *= 0.5
		s.BlockedReason = decision.BlockedReason
		s.BlockedDetail = decision.BlockedDetail
	}

	applySizing(&s, portfolioValue, g.sizing)
	s.Status = db.StatusExecutable
	return s, nil
}

// RefreshQuote re-runs the quality gate for one already-generated suggestion
// against a fresh quote, the handler behind POST
// /suggestions/{id}/refresh-quote. It never recomputes candidate economics
// or sizing — only the market-data verdict and the score penalty a
// downrank/defer applies.
func (g *Generator) RefreshQuote(ctx context.Context, userID, id uuid.UUID) (db.Suggestion, error) {
	current, err := g.gateway.GetSuggestion(ctx, userID, id)
	if err != nil {
		return db.Suggestion{}, err
	}

	quote, provider, err := g.quotes.LatestQuote(ctx, current.Symbol)
	if err != nil {
		return db.Suggestion{}, err
	}

	results := g.gate.Evaluate(g.clock.Now(), provider, []quality.Quote{quote})
	decision := quality.Aggregate(results)
	marketdataQuality := marketdataQualityJSON(results)

	status := current.Status
	score := current.Score
	var blockedReason, blockedDetail *string

	switch decision.EffectiveAction {
	case quality.ActionSkipFatal:
		status = db.StatusNotExecutable
		blockedReason = decision.BlockedReason
		blockedDetail = decision.BlockedDetail
	case quality.ActionDefer, quality.ActionDownrank:
		status = db.StatusExecutable
		// Halve only on the transition into a blocked state — a suggestion
		// already downranked by a prior refresh keeps its score instead of
		// being halved again on every poll.
		if current.BlockedReason == nil {
			score = current.Score * 0.5
		}
		blockedReason = decision.BlockedReason
		blockedDetail = decision.BlockedDetail
	case quality.ActionAccept:
		status = db.StatusExecutable
	}

	return g.gateway.UpdateSuggestionQuality(ctx, userID, id, status, blockedReason, blockedDetail, marketdataQuality, score, current.Sizing)
}

// applySizing computes and clamps capital_required / max_loss_total against
// the per-trade and per-portfolio risk caps, recording ClampReason when a
// cap binds.
func applySizing(s *db.Suggestion, portfolioValue float64, cfg SizingConfig) {
	capitalRequired := s.Metrics.MaxLoss
	maxLossTotal := s.Metrics.MaxLoss
	riskMultiplier := 1.0

	perTradeCap := portfolioValue * cfg.MaxRiskPctPerTrade
	portfolioCap := portfolioValue * cfg.MaxRiskPctPortfolio

	var clampReason *string
	if perTradeCap > 0 && capitalRequired > perTradeCap {
		riskMultiplier = perTradeCap / capitalRequired
		capitalRequired = perTradeCap
		maxLossTotal *= riskMultiplier
		reason := "per_trade_cap"
		clampReason = &reason
	}
	if portfolioCap > 0 && capitalRequired > portfolioCap {
		riskMultiplier = portfolioCap / s.Metrics.MaxLoss
		capitalRequired = portfolioCap
		maxLossTotal = s.Metrics.MaxLoss * riskMultiplier
		reason := "portfolio_cap"
		clampReason = &reason
	}

	s.Sizing = db.SizingMetadata{
		CapitalRequired: capitalRequired,
		MaxLossTotal:    maxLossTotal,
		RiskMultiplier:  riskMultiplier,
		ClampReason:     clampReason,
	}
}

// rankSuggestions sorts by the §4.6 key, descending: (¬blocked, score, ev,
// -max_loss_total), ties broken by (symbol, id) ascending.
func rankSuggestions(suggestions []db.Suggestion) {
	sort.SliceStable(suggestions, func(i, j int) bool {
		a, b := suggestions[i], suggestions[j]

		aBlocked := a.Status == db.StatusNotExecutable
		bBlocked := b.Status == db.StatusNotExecutable
		if aBlocked != bBlocked {
			return !aBlocked // unblocked sorts first
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Metrics.EV != b.Metrics.EV {
			return a.Metrics.EV > b.Metrics.EV
		}
		if a.Sizing.MaxLossTotal != b.Sizing.MaxLossTotal {
			return a.Sizing.MaxLossTotal < b.Sizing.MaxLossTotal
		}
		if a.Symbol != b.Symbol {
			return a.Symbol < b.Symbol
		}
		return a.ID.String() < b.ID.String()
	})
}
