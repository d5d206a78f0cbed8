// Package audit appends the validation journal and analytics-event trails
// (C12) without ever blocking the caller: entries are buffered on a channel
// and flushed by a background goroutine, the same shape as the teacher's
// audit_log writer.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kpeterson/optflow/internal/db"
)

// JournalEntry is a single validation-journal row to be written.
type JournalEntry struct {
	UserID  uuid.UUID
	Title   string
	Summary string
	Details json.RawMessage
}

// AnalyticsEvent is a single analytics-event row to be written.
type AnalyticsEvent struct {
	EventName  string
	Category   string
	Properties json.RawMessage
}

// Writer is an async, buffered writer for both trails.
// Entries are sent to an internal channel and flushed by a background goroutine.
type Writer struct {
	pool      *pgxpool.Pool
	logger    *slog.Logger
	journal   chan JournalEntry
	analytics chan AnalyticsEvent
	wg        sync.WaitGroup
}

const (
	bufferSize    = 256
	flushInterval = 2 * time.Second
	flushBatch    = 32
)

// NewWriter creates an audit Writer. Call Start to begin processing entries.
func NewWriter(pool *pgxpool.Pool, logger *slog.Logger) *Writer {
	return &Writer{
		pool:      pool,
		logger:    logger,
		journal:   make(chan JournalEntry, bufferSize),
		analytics: make(chan AnalyticsEvent, bufferSize),
	}
}

// Start begins the background goroutine that flushes entries to the
// database and returns immediately. The goroutine stops when ctx is
// cancelled (after flushing the entries it has already batched) or when
// Close closes the channels (after draining them).
func (w *Writer) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()
}

// Close waits for all pending entries to be flushed.
func (w *Writer) Close() {
	close(w.journal)
	close(w.analytics)
	w.wg.Wait()
}

// LogJournal enqueues a journal entry for async writing. It never blocks the
// caller; if the buffer is full the entry is dropped and a warning is logged.
func (w *Writer) LogJournal(entry JournalEntry) {
	select {
	case w.journal <- entry:
	default:
		w.logger.Warn("validation journal buffer full, dropping entry", "title", entry.Title)
	}
}

// LogAnalytics enqueues an analytics event for async writing, same
// never-block, drop-on-full policy as LogJournal.
func (w *Writer) LogAnalytics(event AnalyticsEvent) {
	select {
	case w.analytics <- event:
	default:
		w.logger.Warn("analytics event buffer full, dropping entry", "event_name", event.EventName)
	}
}

// run is the background loop that drains both channels.
func (w *Writer) run(ctx context.Context) {
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	journalBatch := make([]JournalEntry, 0, flushBatch)
	analyticsBatch := make([]AnalyticsEvent, 0, flushBatch)

	flush := func() {
		if len(journalBatch) > 0 {
			w.flushJournal(journalBatch)
			journalBatch = journalBatch[:0]
		}
		if len(analyticsBatch) > 0 {
			w.flushAnalytics(analyticsBatch)
			analyticsBatch = analyticsBatch[:0]
		}
	}

	journalClosed, analyticsClosed := false, false
	for !(journalClosed && analyticsClosed) {
		select {
		case e, ok := <-w.journal:
			if !ok {
				journalClosed = true
				w.journal = nil
				continue
			}
			journalBatch = append(journalBatch, e)
			if len(journalBatch) >= flushBatch {
				flush()
			}
		case e, ok := <-w.analytics:
			if !ok {
				analyticsClosed = true
				w.analytics = nil
				continue
			}
			analyticsBatch = append(analyticsBatch, e)
			if len(analyticsBatch) >= flushBatch {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-ctx.Done():
			flush()
			return
		}
	}
	flush()
}

func (w *Writer) flushJournal(entries []JournalEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	q := db.New(w.pool)
	for _, e := range entries {
		err := q.AppendValidationJournalEntry(ctx, db.ValidationJournalEntry{
			ID:      uuid.New(),
			UserID:  e.UserID,
			Title:   e.Title,
			Summary: e.Summary,
			Details: e.Details,
		})
		if err != nil {
			w.logger.Error("writing validation journal entry", "error", err, "title", e.Title)
		}
	}
}

func (w *Writer) flushAnalytics(events []AnalyticsEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	q := db.New(w.pool)
	for _, e := range events {
		err := q.InsertAnalyticsEvent(ctx, db.AnalyticsEvent{
			ID:         uuid.New(),
			EventName:  e.EventName,
			Category:   e.Category,
			Properties: e.Properties,
		})
		if err != nil {
			w.logger.Error("writing analytics event", "error", err, "event_name", e.EventName)
		}
	}
}
