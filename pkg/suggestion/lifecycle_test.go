package suggestion

import (
	"testing"

	"github.com/kpeterson/optflow/internal/db"
)

func TestTransitionCreatedToExecutable(t *testing.T) {
	next, ok := Transition("", EventMarkExecutable)
	if !ok || next != db.StatusExecutable {
		t.Fatalf("Transition = (%s, %v), want (%s, true)", next, ok, db.StatusExecutable)
	}
}

func TestTransitionExecutableToStaged(t *testing.T) {
	next, ok := Transition(db.StatusExecutable, EventStage)
	if !ok || next != db.StatusStaged {
		t.Fatalf("Transition = (%s, %v), want (%s, true)", next, ok, db.StatusStaged)
	}
}

func TestTransitionTerminalStatesRejectEvents(t *testing.T) {
	for _, terminal := range []db.SuggestionStatus{db.StatusCompleted, db.StatusDismissed} {
		if _, ok := Transition(terminal, EventStage); ok {
			t.Fatalf("Transition(%s, stage) should not be allowed", terminal)
		}
	}
}

func TestTransitionNotExecutableCannotStage(t *testing.T) {
	if _, ok := Transition(db.StatusNotExecutable, EventStage); ok {
		t.Fatal("NOT_EXECUTABLE must not transition directly to STAGED")
	}
}

func TestIsValidDismissReason(t *testing.T) {
	if !IsValidDismissReason("too_risky") {
		t.Fatal("too_risky should be valid")
	}
	if IsValidDismissReason("because_i_said_so") {
		t.Fatal("unrecognized reason should be invalid")
	}
}
