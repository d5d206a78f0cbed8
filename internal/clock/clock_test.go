package clock

import (
	"testing"
	"time"
)

func TestTradingDayUsesChicagoTime(t *testing.T) {
	// 03:30 UTC on 2024-03-15 is still 2024-03-14 evening in Chicago (CDT, UTC-5).
	utc := time.Date(2024, 3, 15, 3, 30, 0, 0, time.UTC)
	if got, want := TradingDay(utc), "2024-03-14"; got != want {
		t.Fatalf("TradingDay(%s) = %s, want %s", utc, got, want)
	}

	later := time.Date(2024, 3, 15, 16, 0, 0, 0, time.UTC)
	if got, want := TradingDay(later), "2024-03-15"; got != want {
		t.Fatalf("TradingDay(%s) = %s, want %s", later, got, want)
	}
}

func TestFakeClockAdvance(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	fc := NewFake(start)

	if !fc.Now().Equal(start) {
		t.Fatalf("Now() = %s, want %s", fc.Now(), start)
	}

	fc.Advance(90 * time.Second)
	want := start.Add(90 * time.Second)
	if !fc.Now().Equal(want) {
		t.Fatalf("Now() after Advance = %s, want %s", fc.Now(), want)
	}

	fc.Set(start)
	if !fc.Now().Equal(start) {
		t.Fatalf("Now() after Set = %s, want %s", fc.Now(), start)
	}
}
