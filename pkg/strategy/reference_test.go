package strategy

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/kpeterson/optflow/internal/db"
)

func TestReferenceSkipsNonEquityHoldings(t *testing.T) {
	r := NewReference()
	holdings := []db.Holding{
		{ID: uuid.New(), Symbol: "AAPL", AssetType: db.AssetOption, Quantity: 1, CostBasis: 100, CurrentPrice: 110},
		{ID: uuid.New(), Symbol: "MSFT", AssetType: db.AssetEquity, Quantity: 10, CostBasis: 100, CurrentPrice: 120},
	}

	candidates, err := r.FindCandidates(context.Background(), holdings, Params{})
	if err != nil {
		t.Fatalf("FindCandidates() error: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("len(candidates) = %d, want 1", len(candidates))
	}
	if candidates[0].Symbol != "MSFT" {
		t.Fatalf("Symbol = %s, want MSFT", candidates[0].Symbol)
	}
}

func TestNormalizeScoreClampsToUnitRange(t *testing.T) {
	tests := []struct {
		unrealized, costBasis, want float64
	}{
		{200, 100, 1},
		{-200, 100, 0},
		{0, 100, 0.5},
		{50, 0, 0.5},
	}
	for _, tt := range tests {
		got := normalizeScore(tt.unrealized, tt.costBasis)
		if got != tt.want {
			t.Errorf("normalizeScore(%v, %v) = %v, want %v", tt.unrealized, tt.costBasis, got, tt.want)
		}
	}
}
