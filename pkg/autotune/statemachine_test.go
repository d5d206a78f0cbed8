package autotune

import (
	"math/rand/v2"
	"testing"
)

func TestHashIsOrderIndependent(t *testing.T) {
	a := ParamSnapshot{"x": 1, "y": 2}
	b := ParamSnapshot{"y": 2, "x": 1}

	if a.Hash() != b.Hash() {
		t.Fatal("maps with identical key/value pairs should hash identically regardless of construction order")
	}
}

func TestHashDiffersOnValueChange(t *testing.T) {
	a := ParamSnapshot{"x": 1}
	b := ParamSnapshot{"x": 1.0001}

	if a.Hash() == b.Hash() {
		t.Fatal("snapshots with different values should hash differently")
	}
}

func TestStepStreakAdvancesOnRepeatedPass(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	initial := ParamSnapshot{"x": 1}
	sm := NewStateMachine(rng, initial, 3)

	// First pass is against the initial snapshot tracked at construction.
	next, done := sm.Step(Outcome{Passed: true, Snapshot: initial})
	if done {
		t.Fatal("should not be done after only one pass with target streak 3")
	}
	if sm.Streak() != 1 {
		t.Fatalf("Streak() = %d, want 1", sm.Streak())
	}
	_ = next
}

func TestStepFailureResetsStreak(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	initial := ParamSnapshot{"x": 1}
	sm := NewStateMachine(rng, initial, 3)

	sm.Step(Outcome{Passed: true, Snapshot: initial})
	if sm.Streak() != 1 {
		t.Fatalf("Streak() = %d, want 1", sm.Streak())
	}

	sm.Step(Outcome{Passed: false, Snapshot: initial})
	if sm.Streak() != 0 {
		t.Fatalf("Streak() after failure = %d, want 0", sm.Streak())
	}
}

func TestStepReportsDoneAtTargetStreak(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	initial := ParamSnapshot{"x": 1}
	sm := NewStateMachine(rng, initial, 2)

	tested := initial
	next, done := sm.Step(Outcome{Passed: true, Snapshot: tested})
	if done {
		t.Fatal("should not be done after only one pass with target streak 2")
	}

	// The driver always tests whatever Step last handed back, so the
	// second outcome's Snapshot is that perturbed value, not the original.
	tested = next
	_, done = sm.Step(Outcome{Passed: true, Snapshot: tested})
	if !done {
		t.Fatal("expected done=true once streak reaches target")
	}
}
