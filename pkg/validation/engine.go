// Package validation implements the historical backtest engine (C9):
// deterministic, single-RNG-threaded simulation over a symbol/window,
// optional rolling-contract selection for options, and multi-run
// aggregation against a goal return.
package validation

import (
	"context"
	"fmt"
	"math/rand/v2"

	"golang.org/x/sync/errgroup"
)

// InstrumentType selects the simulated instrument.
type InstrumentType string

const (
	InstrumentEquity InstrumentType = "equity"
	InstrumentOption InstrumentType = "option"
)

// OptionRight is call or put.
type OptionRight string

const (
	RightCall OptionRight = "call"
	RightPut  OptionRight = "put"
)

// Params mirrors the historical request body verbatim.
type Params struct {
	Symbol              string
	WindowDays          int
	InstrumentType      InstrumentType
	OptionRight         OptionRight
	OptionDTE           int
	OptionMoneyness     float64
	UseRollingContracts bool
	StrictOptionMode    bool
	SegmentTolerancePct float64
	ConcurrentRuns      int
	GoalReturnPct       float64
	Seed                uint64
}

// seed derives a deterministic seed from (symbol, window_days) when
// Params.Seed is left unset, so unseeded runs are still reproducible given
// the same inputs.
func (p Params) seed() uint64 {
	if p.Seed != 0 {
		return p.Seed
	}
	h := uint64(14695981039346656037) // FNV-1a offset basis
	for _, b := range []byte(p.Symbol) {
		h ^= uint64(b)
		h *= 1099511628211
	}
	h ^= uint64(p.WindowDays)
	h *= 1099511628211
	return h
}

// RunOutcome is a single simulated run's result.
type RunOutcome struct {
	ReturnPct        float64
	MaxDrawdown      float64
	WinRate          float64
	TradesCount      int
	DisqualifyReason string
}

// Result aggregates ConcurrentRuns outcomes against GoalReturnPct.
type Result struct {
	Best             float64
	Median           float64
	Worst            float64
	MaxDrawdown      float64 // worst (largest) drawdown seen across all runs
	WinRate          float64 // mean win rate across all runs
	TradesCount      int     // total simulated trades across all runs
	Passed           bool
	DisqualifyReason string
	Runs             []RunOutcome
}

// Simulator runs one seeded simulation. The real price-path/contract-chain
// data is an external collaborator; Simulator is the seam Engine depends on.
type Simulator interface {
	Simulate(ctx context.Context, rng *rand.Rand, p Params) (RunOutcome, error)
}

// Engine drives Simulator across ConcurrentRuns sub-seeds and aggregates.
type Engine struct {
	sim Simulator
}

// NewEngine builds an Engine over sim.
func NewEngine(sim Simulator) *Engine {
	return &Engine{sim: sim}
}

// Run fans ConcurrentRuns instances out with errgroup, each given a distinct
// sub-seed derived deterministically from the parent seed and its index so
// the whole batch stays reproducible, and aggregates the outcomes.
func (e *Engine) Run(ctx context.Context, p Params) (Result, error) {
	runs := p.ConcurrentRuns
	if runs < 1 {
		runs = 1
	}

	outcomes := make([]RunOutcome, runs)
	parentSeed := p.seed()

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < runs; i++ {
		i := i
		g.Go(func() error {
			subSeed := parentSeed*31 + uint64(i)
			rng := rand.New(rand.NewPCG(subSeed, subSeed))

			outcome, err := e.sim.Simulate(gctx, rng, p)
			if err != nil {
				return fmt.Errorf("run %d: %w", i, err)
			}
			outcomes[i] = outcome
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	return Aggregate(outcomes, p.GoalReturnPct), nil
}

// Aggregate reduces run outcomes to best/median/worst return_pct and a
// binary passed against goalReturnPct. A disqualifying segment in any run
// (strict_option_mode=true and a gap beyond tolerance) fails the whole
// batch, since the run that hit it can never satisfy the goal.
func Aggregate(outcomes []RunOutcome, goalReturnPct float64) Result {
	returns := make([]float64, len(outcomes))
	var maxDrawdown, winRateSum float64
	var tradesTotal int
	for i, o := range outcomes {
		returns[i] = o.ReturnPct
		if o.DisqualifyReason != "" {
			return Result{Passed: false, DisqualifyReason: o.DisqualifyReason, Runs: outcomes}
		}
		if o.MaxDrawdown > maxDrawdown {
			maxDrawdown = o.MaxDrawdown
		}
		winRateSum += o.WinRate
		tradesTotal += o.TradesCount
	}

	best, median, worst := summarize(returns)
	return Result{
		Best:        best,
		Median:      median,
		Worst:       worst,
		MaxDrawdown: maxDrawdown,
		WinRate:     winRateSum / float64(len(outcomes)),
		TradesCount: tradesTotal,
		Passed:      worst >= goalReturnPct,
		Runs:        outcomes,
	}
}

func summarize(returns []float64) (best, median, worst float64) {
	sorted := append([]float64(nil), returns...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1] > sorted[j]; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}

	worst = sorted[0]
	best = sorted[len(sorted)-1]
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		median = (sorted[mid-1] + sorted[mid]) / 2
	} else {
		median = sorted[mid]
	}
	return best, median, worst
}
