package quality

import (
	"testing"
	"time"
)

func TestEvaluateOneCodes(t *testing.T) {
	g := NewGate(300*time.Second, 0.05, nil)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		q    Quote
		want Code
	}{
		{"no quote", Quote{Symbol: "AAPL", AsOf: now, Bid: 0, Ask: 0}, CodeFailNoQuote},
		{"crossed", Quote{Symbol: "AAPL", AsOf: now, Bid: 10, Ask: 9}, CodeFailCrossed},
		{"stale exactly at threshold is fresh", Quote{Symbol: "AAPL", AsOf: now.Add(-300 * time.Second), Bid: 10, Ask: 10.1}, CodeOK},
		{"stale one second past threshold", Quote{Symbol: "AAPL", AsOf: now.Add(-301 * time.Second), Bid: 10, Ask: 10.1}, CodeWarnStale},
		{"wide spread", Quote{Symbol: "AAPL", AsOf: now, Bid: 10, Ask: 11}, CodeWarnWideSpread},
		{"ok", Quote{Symbol: "AAPL", AsOf: now, Bid: 10, Ask: 10.05}, CodeOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := g.evaluateOne(now, tt.q)
			if got.Code != tt.want {
				t.Fatalf("evaluateOne(%+v) = %s, want %s", tt.q, got.Code, tt.want)
			}
		})
	}
}

func TestEvaluateProviderOpenShortCircuits(t *testing.T) {
	b := NewBreaker(1, time.Minute)
	b.RecordFailure("ibkr")

	g := NewGate(300*time.Second, 0.05, b)
	now := time.Now()
	results := g.Evaluate(now, "ibkr", []Quote{{Symbol: "AAPL", AsOf: now, Bid: 10, Ask: 10.05}})

	if results["AAPL"].Code != CodeFailProviderOpen {
		t.Fatalf("Code = %s, want %s", results["AAPL"].Code, CodeFailProviderOpen)
	}
}

func TestAggregateAnyFailWinsOverWarn(t *testing.T) {
	results := map[string]SymbolResult{
		"AAPL": {Symbol: "AAPL", Code: CodeFailCrossed},
		"MSFT": {Symbol: "MSFT", Code: CodeWarnStale},
	}
	d := Aggregate(results)
	if d.EffectiveAction != ActionSkipFatal {
		t.Fatalf("EffectiveAction = %s, want %s", d.EffectiveAction, ActionSkipFatal)
	}
}

func TestAggregateSingleWarnDownranks(t *testing.T) {
	results := map[string]SymbolResult{
		"AAPL": {Symbol: "AAPL", Code: CodeWarnStale},
		"MSFT": {Symbol: "MSFT", Code: CodeOK},
	}
	d := Aggregate(results)
	if d.EffectiveAction != ActionDownrank {
		t.Fatalf("EffectiveAction = %s, want %s", d.EffectiveAction, ActionDownrank)
	}
}

func TestAggregateCombinedWarnsDefer(t *testing.T) {
	results := map[string]SymbolResult{
		"AAPL": {Symbol: "AAPL", Code: CodeWarnStale},
		"MSFT": {Symbol: "MSFT", Code: CodeWarnWideSpread},
	}
	d := Aggregate(results)
	if d.EffectiveAction != ActionDefer {
		t.Fatalf("EffectiveAction = %s, want %s", d.EffectiveAction, ActionDefer)
	}
}

func TestAggregateAllOKAccepts(t *testing.T) {
	results := map[string]SymbolResult{
		"AAPL": {Symbol: "AAPL", Code: CodeOK},
		"MSFT": {Symbol: "MSFT", Code: CodeOK},
	}
	d := Aggregate(results)
	if d.EffectiveAction != ActionAccept {
		t.Fatalf("EffectiveAction = %s, want %s", d.EffectiveAction, ActionAccept)
	}
	if d.BlockedReason != nil {
		t.Fatalf("BlockedReason = %v, want nil", d.BlockedReason)
	}
}
