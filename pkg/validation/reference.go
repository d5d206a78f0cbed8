package validation

import (
	"context"
	"math/rand/v2"
)

// ReferenceSimulator is a deterministic stand-in Simulator good enough to
// drive tests: it walks WindowDays steps of a simple random walk seeded
// entirely from the injected rng, with no real pricing or chain data. It
// documents the shape a real backtest simulator must fill, not a production
// model.
type ReferenceSimulator struct{}

// NewReferenceSimulator builds a ReferenceSimulator.
func NewReferenceSimulator() *ReferenceSimulator {
	return &ReferenceSimulator{}
}

// Simulate implements Simulator.
func (r *ReferenceSimulator) Simulate(_ context.Context, rng *rand.Rand, p Params) (RunOutcome, error) {
	equity := 100.0
	peak := equity
	maxDrawdown := 0.0
	wins, trades := 0, 0

	for day := 0; day < p.WindowDays; day++ {
		if p.InstrumentType == InstrumentOption && p.UseRollingContracts {
			_, gap := RollContracts(syntheticChain(rng, p.OptionDTE), p.OptionDTE, p.OptionMoneyness, p.SegmentTolerancePct)
			if gap {
				if p.StrictOptionMode {
					return RunOutcome{DisqualifyReason: "no contract within tolerance"}, nil
				}
				continue
			}
		}

		step := (rng.Float64() - 0.48) * 2
		equity *= 1 + step/100
		trades++
		if step > 0 {
			wins++
		}
		if equity > peak {
			peak = equity
		}
		if dd := (peak - equity) / peak; dd > maxDrawdown {
			maxDrawdown = dd
		}
	}

	winRate := 0.0
	if trades > 0 {
		winRate = float64(wins) / float64(trades)
	}

	return RunOutcome{
		ReturnPct:   (equity - 100) / 100 * 100,
		MaxDrawdown: maxDrawdown * 100,
		WinRate:     winRate,
		TradesCount: trades,
	}, nil
}

func syntheticChain(rng *rand.Rand, dte int) []Contract {
	return []Contract{
		{DTE: dte, Moneyness: 1.0 + (rng.Float64()-0.5)*0.02, Bid: 1, Ask: 1.1},
	}
}
