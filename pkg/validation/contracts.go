package validation

import "math"

// Contract is one option chain entry a rolling-contract simulation selects
// from at each simulated day.
type Contract struct {
	DTE       int
	Moneyness float64
	Bid       float64
	Ask       float64
}

// RollContracts selects, among the chain entries whose DTE equals targetDTE,
// the one whose moneyness is closest to targetMoneyness. gap is true when none
// of those entries falls within tolerancePct of the target moneyness, which
// includes a chain with no entry at targetDTE — the caller decides whether a
// gap drops the segment or disqualifies the run based on strict_option_mode.
func RollContracts(chain []Contract, targetDTE int, targetMoneyness float64, tolerancePct float64) (Contract, bool) {
	var (
		best     Contract
		bestDist = math.MaxFloat64
		found    bool
	)

	for _, c := range chain {
		if c.DTE != targetDTE {
			continue
		}

		dist := math.Abs(c.Moneyness - targetMoneyness)
		tolerance := math.Abs(targetMoneyness) * tolerancePct
		if dist > tolerance {
			continue
		}

		if dist < bestDist {
			best = c
			bestDist = dist
			found = true
		}
	}

	return best, !found
}
