package scheduler

import (
	"testing"
	"time"
)

func mustCadence(t *testing.T) *Cadence {
	t.Helper()
	c, err := NewCadence([]Endpoint{
		{Name: "suggestions.open", Spec: "0 6 * * *", Grace: 30 * time.Minute},
	})
	if err != nil {
		t.Fatalf("NewCadence() error: %v", err)
	}
	return c
}

func TestPreviousActivationFindsLastFireTime(t *testing.T) {
	c := mustCadence(t)
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	prev, ok := c.PreviousActivation("suggestions.open", now)
	if !ok {
		t.Fatal("expected a previous activation")
	}
	want := time.Date(2024, 3, 15, 6, 0, 0, 0, time.UTC)
	if !prev.Equal(want) {
		t.Fatalf("PreviousActivation = %s, want %s", prev, want)
	}
}

func TestExpectedStatusNeverRun(t *testing.T) {
	c := mustCadence(t)
	status := c.ExpectedStatus("suggestions.open", nil, time.Now())
	if status != StatusNeverRun {
		t.Fatalf("ExpectedStatus = %s, want %s", status, StatusNeverRun)
	}
}

func TestExpectedStatusOKWithinGrace(t *testing.T) {
	c := mustCadence(t)
	now := time.Date(2024, 3, 15, 6, 10, 0, 0, time.UTC)
	lastSuccess := time.Date(2024, 3, 15, 6, 1, 0, 0, time.UTC)

	status := c.ExpectedStatus("suggestions.open", &lastSuccess, now)
	if status != StatusOK {
		t.Fatalf("ExpectedStatus = %s, want %s", status, StatusOK)
	}
}

func TestExpectedStatusLateAfterGrace(t *testing.T) {
	c := mustCadence(t)
	now := time.Date(2024, 3, 16, 7, 0, 0, 0, time.UTC)
	lastSuccess := time.Date(2024, 3, 14, 6, 1, 0, 0, time.UTC)

	status := c.ExpectedStatus("suggestions.open", &lastSuccess, now)
	if status != StatusLate {
		t.Fatalf("ExpectedStatus = %s, want %s", status, StatusLate)
	}
}
