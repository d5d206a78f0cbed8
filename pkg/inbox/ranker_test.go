package inbox

import (
	"testing"
	"time"
)

func TestIsStaleBoundary(t *testing.T) {
	r := &Ranker{staleAfterSeconds: 300}
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	exactlyMet := now.Add(-300 * time.Second)
	if r.IsStale(now, exactlyMet) {
		t.Fatal("exactly stale_after_seconds elapsed should not be stale yet")
	}

	oneSecondLater := now.Add(-301 * time.Second)
	if !r.IsStale(now, oneSecondLater) {
		t.Fatal("one second past stale_after_seconds should be stale")
	}
}

func TestIsTodayUsesCalendarDate(t *testing.T) {
	now := time.Date(2024, 3, 15, 23, 59, 0, 0, time.UTC)
	sameDay := time.Date(2024, 3, 15, 0, 1, 0, 0, time.UTC)
	priorDay := time.Date(2024, 3, 14, 23, 59, 0, 0, time.UTC)

	if !isToday(sameDay, now) {
		t.Fatal("expected sameDay to be today")
	}
	if isToday(priorDay, now) {
		t.Fatal("expected priorDay not to be today")
	}
}
