// Package quality implements the market-data quality gate (C6): per-symbol
// quote evaluation, the any-FAIL/any-WARN/all-OK aggregation policy, a
// per-provider circuit breaker, and a Redis-backed quote cache fronting the
// (out-of-scope) market data provider client.
package quality

import (
	"time"
)

// Code is a per-symbol quality verdict.
type Code string

const (
	CodeOK               Code = "OK"
	CodeWarnStale        Code = "WARN_STALE"
	CodeWarnWideSpread   Code = "WARN_WIDE_SPREAD"
	CodeFailCrossed      Code = "FAIL_CROSSED"
	CodeFailNoQuote      Code = "FAIL_NO_QUOTE"
	CodeFailProviderOpen Code = "FAIL_PROVIDER_OPEN"
)

func (c Code) isFail() bool {
	return c == CodeFailCrossed || c == CodeFailNoQuote || c == CodeFailProviderOpen
}

func (c Code) isWarn() bool {
	return c == CodeWarnStale || c == CodeWarnWideSpread
}

// Quote is the latest observed bid/ask for a symbol.
type Quote struct {
	Symbol string
	AsOf   time.Time
	Bid    float64
	Ask    float64
}

// SymbolResult is one symbol's quality verdict and score.
type SymbolResult struct {
	Symbol string
	Code   Code
	Score  float64
}

// EffectiveAction is the action the generator applies to a suggestion after
// aggregating its symbols' quality results.
type EffectiveAction string

const (
	ActionAccept    EffectiveAction = "accept"
	ActionDownrank  EffectiveAction = "downrank"
	ActionDefer     EffectiveAction = "defer"
	ActionSkipFatal EffectiveAction = "skip_fatal"
)

// Decision is the aggregated outcome across a suggestion's symbols.
type Decision struct {
	EffectiveAction EffectiveAction
	BlockedReason   *string
	BlockedDetail   *string
}

// Gate evaluates quotes against configured staleness and spread policy and
// checks each symbol's provider circuit breaker before scoring it.
type Gate struct {
	staleAfter      time.Duration
	wideSpreadPct   float64
	breakers        *Breaker
}

// NewGate builds a Gate. staleAfter and wideSpreadPct come from config
// (STALE_AFTER_SECONDS, WIDE_SPREAD_PCT).
func NewGate(staleAfter time.Duration, wideSpreadPct float64, breakers *Breaker) *Gate {
	return &Gate{staleAfter: staleAfter, wideSpreadPct: wideSpreadPct, breakers: breakers}
}

// Evaluate scores every quote's symbol independently against now.
func (g *Gate) Evaluate(now time.Time, provider string, quotes []Quote) map[string]SymbolResult {
	results := make(map[string]SymbolResult, len(quotes))

	if g.breakers != nil && !g.breakers.Allow(provider) {
		for _, q := range quotes {
			results[q.Symbol] = SymbolResult{Symbol: q.Symbol, Code: CodeFailProviderOpen, Score: 0}
		}
		return results
	}

	for _, q := range quotes {
		results[q.Symbol] = g.evaluateOne(now, q)
	}
	return results
}

func (g *Gate) evaluateOne(now time.Time, q Quote) SymbolResult {
	if q.Bid == 0 && q.Ask == 0 {
		return SymbolResult{Symbol: q.Symbol, Code: CodeFailNoQuote, Score: 0}
	}
	if q.Bid > q.Ask {
		return SymbolResult{Symbol: q.Symbol, Code: CodeFailCrossed, Score: 0}
	}

	// now.Sub(t) > staleAfter is strictly greater-than: exactly at the
	// threshold is still fresh.
	if now.Sub(q.AsOf) > g.staleAfter {
		return SymbolResult{Symbol: q.Symbol, Code: CodeWarnStale, Score: 0.5}
	}

	mid := (q.Bid + q.Ask) / 2
	if mid > 0 {
		spreadPct := (q.Ask - q.Bid) / mid
		if spreadPct > g.wideSpreadPct {
			return SymbolResult{Symbol: q.Symbol, Code: CodeWarnWideSpread, Score: 0.6}
		}
	}

	return SymbolResult{Symbol: q.Symbol, Code: CodeOK, Score: 1.0}
}

// Aggregate implements the any-FAIL/any-WARN/all-OK policy table verbatim:
// any FAIL skips the suggestion as fatal; any WARN downranks it (repeated or
// combined WARNs defer instead); all OK accepts it.
func Aggregate(results map[string]SymbolResult) Decision {
	var failCount, warnCount int
	var firstFailCode Code
	var firstWarnCode Code

	for _, r := range results {
		switch {
		case r.Code.isFail():
			failCount++
			if firstFailCode == "" {
				firstFailCode = r.Code
			}
		case r.Code.isWarn():
			warnCount++
			if firstWarnCode == "" {
				firstWarnCode = r.Code
			}
		}
	}

	if failCount > 0 {
		reason := "quality_fail"
		detail := string(firstFailCode)
		return Decision{EffectiveAction: ActionSkipFatal, BlockedReason: &reason, BlockedDetail: &detail}
	}

	if warnCount > 1 {
		reason := "quality_warn_combined"
		detail := string(firstWarnCode)
		return Decision{EffectiveAction: ActionDefer, BlockedReason: &reason, BlockedDetail: &detail}
	}

	if warnCount == 1 {
		reason := "quality_warn"
		detail := string(firstWarnCode)
		return Decision{EffectiveAction: ActionDownrank, BlockedReason: &reason, BlockedDetail: &detail}
	}

	return Decision{EffectiveAction: ActionAccept}
}
