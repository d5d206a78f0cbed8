package suggestion

import (
	"testing"

	"github.com/google/uuid"

	"github.com/kpeterson/optflow/internal/db"
)

func TestRankSuggestionsUnblockedBeforeBlocked(t *testing.T) {
	blocked := db.Suggestion{ID: uuid.New(), Symbol: "AAPL", Status: db.StatusNotExecutable, Score: 0.9}
	open := db.Suggestion{ID: uuid.New(), Symbol: "MSFT", Status: db.StatusExecutable, Score: 0.1}

	suggestions := []db.Suggestion{blocked, open}
	rankSuggestions(suggestions)

	if suggestions[0].Symbol != "MSFT" {
		t.Fatalf("suggestions[0] = %s, want MSFT (unblocked sorts first regardless of score)", suggestions[0].Symbol)
	}
}

func TestRankSuggestionsTieBreaksBySymbolThenID(t *testing.T) {
	idLow := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	idHigh := uuid.MustParse("00000000-0000-0000-0000-000000000002")

	a := db.Suggestion{ID: idHigh, Symbol: "AAPL", Status: db.StatusExecutable, Score: 0.5}
	b := db.Suggestion{ID: idLow, Symbol: "AAPL", Status: db.StatusExecutable, Score: 0.5}

	suggestions := []db.Suggestion{a, b}
	rankSuggestions(suggestions)

	if suggestions[0].ID != idLow {
		t.Fatalf("suggestions[0].ID = %s, want the lexicographically lower id", suggestions[0].ID)
	}
}

func TestApplySizingClampsToPerTradeCap(t *testing.T) {
	s := &db.Suggestion{Metrics: db.Metrics{MaxLoss: 1000}}
	applySizing(s, 10000, SizingConfig{MaxRiskPctPerTrade: 0.02, MaxRiskPctPortfolio: 0.5})

	if s.Sizing.CapitalRequired != 200 {
		t.Fatalf("CapitalRequired = %v, want 200 (2%% of 10000)", s.Sizing.CapitalRequired)
	}
	if s.Sizing.ClampReason == nil || *s.Sizing.ClampReason != "per_trade_cap" {
		t.Fatalf("ClampReason = %v, want per_trade_cap", s.Sizing.ClampReason)
	}
}

func TestApplySizingNoClampWhenUnderCaps(t *testing.T) {
	s := &db.Suggestion{Metrics: db.Metrics{MaxLoss: 50}}
	applySizing(s, 10000, SizingConfig{MaxRiskPctPerTrade: 0.02, MaxRiskPctPortfolio: 0.5})

	if s.Sizing.ClampReason != nil {
		t.Fatalf("ClampReason = %v, want nil", s.Sizing.ClampReason)
	}
	if s.Sizing.CapitalRequired != 50 {
		t.Fatalf("CapitalRequired = %v, want 50", s.Sizing.CapitalRequired)
	}
}
