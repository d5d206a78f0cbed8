// Package suggestion implements the generator (C7) and its lifecycle state
// machine: produces 0..N priced, quality-gated, sized trade suggestions per
// user/window/trading-day and governs their created -> staged -> terminal
// transitions.
package suggestion

import "github.com/kpeterson/optflow/internal/db"

// Event names an external trigger applied to a suggestion's lifecycle.
type Event string

const (
	EventMarkExecutable    Event = "mark_executable"
	EventMarkNotExecutable Event = "mark_not_executable"
	EventStage             Event = "stage"
	EventComplete          Event = "complete"
	EventDismiss           Event = "dismiss"
)

// DismissReason enumerates the allowed reason tags for EventDismiss.
type DismissReason string

const (
	DismissTooRisky   DismissReason = "too_risky"
	DismissBadPrice   DismissReason = "bad_price"
	DismissWrongTime  DismissReason = "wrong_timing"
	DismissOther      DismissReason = "other"
)

// IsValidDismissReason reports whether reason is one of the allowed tags.
func IsValidDismissReason(reason string) bool {
	switch DismissReason(reason) {
	case DismissTooRisky, DismissBadPrice, DismissWrongTime, DismissOther:
		return true
	default:
		return false
	}
}

// transitions is the explicit, unit-testable-in-isolation table backing the
// status machine: created -> (EXECUTABLE | NOT_EXECUTABLE) ->
// (STAGED -> COMPLETED) | DISMISSED.
var transitions = map[db.SuggestionStatus]map[Event]db.SuggestionStatus{
	"": {
		EventMarkExecutable:    db.StatusExecutable,
		EventMarkNotExecutable: db.StatusNotExecutable,
	},
	db.StatusExecutable: {
		EventStage:   db.StatusStaged,
		EventDismiss: db.StatusDismissed,
	},
	db.StatusNotExecutable: {
		EventDismiss: db.StatusDismissed,
	},
	db.StatusStaged: {
		EventComplete: db.StatusCompleted,
		EventDismiss:  db.StatusDismissed,
	},
}

// Transition looks up the next status for (current, event). ok is false for
// any transition not present in the table — terminal states (COMPLETED,
// DISMISSED) accept no further events.
func Transition(current db.SuggestionStatus, event Event) (next db.SuggestionStatus, ok bool) {
	byEvent, exists := transitions[current]
	if !exists {
		return "", false
	}
	next, ok = byEvent[event]
	return next, ok
}
