package audit

import (
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
)

func TestLogJournalDropsWhenBufferFull(t *testing.T) {
	w := &Writer{
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		journal: make(chan JournalEntry, 1),
	}

	w.LogJournal(JournalEntry{UserID: uuid.New(), Title: "first"})
	w.LogJournal(JournalEntry{UserID: uuid.New(), Title: "second"})

	if len(w.journal) != 1 {
		t.Fatalf("expected buffer to hold exactly 1 entry, got %d", len(w.journal))
	}
	got := <-w.journal
	if got.Title != "first" {
		t.Fatalf("expected the first entry to survive, got %q", got.Title)
	}
}

func TestLogAnalyticsDropsWhenBufferFull(t *testing.T) {
	w := &Writer{
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		analytics: make(chan AnalyticsEvent, 1),
	}

	w.LogAnalytics(AnalyticsEvent{EventName: "first"})
	w.LogAnalytics(AnalyticsEvent{EventName: "second"})

	if len(w.analytics) != 1 {
		t.Fatalf("expected buffer to hold exactly 1 event, got %d", len(w.analytics))
	}
}
