package strategy

import (
	"context"

	"github.com/kpeterson/optflow/internal/db"
)

// Reference is a deterministic stand-in CandidateSource good enough to
// drive tests: it proposes one single-leg equity candidate per holding,
// scored by the holding's unrealized P/L, with no options-pricing math. It
// documents the shape a real candidate search must fill, not a production
// strategy.
type Reference struct{}

// NewReference builds a Reference candidate source.
func NewReference() *Reference {
	return &Reference{}
}

// FindCandidates implements CandidateSource.
func (r *Reference) FindCandidates(_ context.Context, holdings []db.Holding, params Params) ([]Candidate, error) {
	candidates := make([]Candidate, 0, len(holdings))

	for _, h := range holdings {
		if h.AssetType != db.AssetEquity {
			continue
		}

		unrealized := (h.CurrentPrice - h.CostBasis) * h.Quantity
		score := normalizeScore(unrealized, h.CostBasis*h.Quantity)

		candidates = append(candidates, Candidate{
			Strategy:      "reference_hold",
			Symbol:        h.Symbol,
			DisplaySymbol: h.Symbol,
			Legs: []db.Leg{
				{Action: db.LegSell, Type: db.LegEquity, Quantity: h.Quantity},
			},
			LimitPrice: h.CurrentPrice,
			Metrics: db.Metrics{
				EV:        unrealized,
				WinRate:   0.5,
				Kelly:     0,
				MaxLoss:   h.CostBasis * h.Quantity,
				MaxProfit: unrealized,
			},
			Score: score,
		})
	}

	return candidates, nil
}

// normalizeScore maps an unrealized P/L relative to cost basis into [0, 1],
// so the generator's ranking key behaves sanely without a real pricing model.
func normalizeScore(unrealized, costBasis float64) float64 {
	if costBasis == 0 {
		return 0.5
	}
	ratio := unrealized / costBasis
	switch {
	case ratio > 1:
		return 1
	case ratio < -1:
		return 0
	default:
		return (ratio + 1) / 2
	}
}
