package autotune

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/kpeterson/optflow/internal/db"
	"github.com/kpeterson/optflow/pkg/gateway"
	"github.com/kpeterson/optflow/pkg/validation"
)

// TrainParams configures one Loop.Run invocation.
type TrainParams struct {
	TrainTargetStreak int
	TrainMaxAttempts  int
	Initial           ParamSnapshot
	Validation        validation.Params
}

// LoopOutcome summarizes how a training run ended.
type LoopOutcome struct {
	Accepted bool
	Attempts int
	Streak   int
	Final    ParamSnapshot
}

// Loop is a thin driver around StateMachine: it calls validation.Engine.Run
// once per step, reusing C9 wholesale, and journals every rejected snapshot.
type Loop struct {
	engine  *validation.Engine
	gateway *gateway.Gateway
}

// NewLoop wires a Loop from its collaborators.
func NewLoop(engine *validation.Engine, gw *gateway.Gateway) *Loop {
	return &Loop{engine: engine, gateway: gw}
}

// Run drives the training loop for userID, terminating on streak >=
// TrainTargetStreak or attempts >= TrainMaxAttempts, whichever comes first.
// On acceptance it writes the winning snapshot as the user's active
// StrategyConfig, consumed by the suggestion generator's next run.
func (l *Loop) Run(ctx context.Context, userID uuid.UUID, seed uint64, p TrainParams) (LoopOutcome, error) {
	rng := rand.New(rand.NewPCG(seed, seed))
	sm := NewStateMachine(rng, p.Initial, p.TrainTargetStreak)

	current := p.Initial
	var outcome Outcome

	for attempt := 0; attempt < p.TrainMaxAttempts; attempt++ {
		params := p.Validation
		params.Seed = seed*31 + uint64(attempt)

		result, err := l.engine.Run(ctx, params)
		if err != nil {
			return LoopOutcome{}, fmt.Errorf("training attempt %d: %w", attempt, err)
		}

		outcome = Outcome{Passed: result.Passed, Snapshot: current, ReturnPct: result.Worst}

		if !result.Passed {
			l.journalRejected(ctx, userID, current, result.Worst)
		}

		next, done := sm.Step(outcome)
		if done {
			if err := l.acceptSnapshot(ctx, userID, current, sm.Streak()); err != nil {
				return LoopOutcome{}, err
			}
			return LoopOutcome{Accepted: true, Attempts: attempt + 1, Streak: sm.Streak(), Final: current}, nil
		}
		current = next
	}

	return LoopOutcome{Accepted: false, Attempts: p.TrainMaxAttempts, Streak: sm.Streak(), Final: current}, nil
}

func (l *Loop) journalRejected(ctx context.Context, userID uuid.UUID, snapshot ParamSnapshot, returnPct float64) {
	details, _ := json.Marshal(map[string]any{"snapshot": snapshot, "return_pct": returnPct})
	_ = l.gateway.AppendValidationJournalEntry(ctx, db.ValidationJournalEntry{
		ID:      uuid.New(),
		UserID:  userID,
		Title:   "Autotune Rejected",
		Summary: fmt.Sprintf("return_pct=%.2f below goal", returnPct),
		Details: details,
	})
}

func (l *Loop) acceptSnapshot(ctx context.Context, userID uuid.UUID, snapshot ParamSnapshot, streak int) error {
	params, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshaling accepted snapshot: %w", err)
	}

	_, err = l.gateway.UpsertStrategyConfig(ctx, db.StrategyConfig{
		UserID:     userID,
		Parameters: params,
		Streak:     streak,
		SnapshotID: fmt.Sprintf("%x", snapshot.Hash()),
	})
	return err
}
