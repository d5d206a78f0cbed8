// Package inbox composes a user's suggestion inbox (C8): the hero pick, the
// remaining active queue, today's completed set, and the batch stager that
// transitions EXECUTABLE suggestions to STAGED.
package inbox

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kpeterson/optflow/internal/db"
	"github.com/kpeterson/optflow/pkg/gateway"
)

// Meta summarizes the inbox as a whole.
type Meta struct {
	TotalEVAvailable  float64
	DeployableCapital float64
	StaleAfterSeconds int
}

// Inbox is the composed response for GET /inbox.
type Inbox struct {
	Hero      *db.Suggestion
	Queue     []db.Suggestion
	Completed []db.Suggestion
	Meta      Meta
}

// Ranker builds a user's Inbox from one consistent read.
type Ranker struct {
	gateway           *gateway.Gateway
	staleAfterSeconds int
}

// NewRanker builds a Ranker. staleAfterSeconds comes from config
// (STALE_AFTER_SECONDS, default 300).
func NewRanker(gw *gateway.Gateway, staleAfterSeconds int) *Ranker {
	return &Ranker{gateway: gw, staleAfterSeconds: staleAfterSeconds}
}

// Build reads every suggestion for userID (the generator already writes at
// most one active set per window/trading-day, so a bounded recent page is a
// consistent enough snapshot for inbox composition) and buckets it. The hero
// is the top-ranked EXECUTABLE suggestion (highest score, then highest EV,
// then lowest max_loss_total); the rest of the active set is the queue.
func (r *Ranker) Build(ctx context.Context, userID uuid.UUID, now time.Time) (Inbox, error) {
	suggestions, err := r.gateway.ListSuggestions(ctx, userID, 500, 0)
	if err != nil {
		return Inbox{}, err
	}

	var (
		active    []db.Suggestion
		completed []db.Suggestion
		totalEV   float64
		deployable float64
	)

	for _, s := range suggestions {
		switch s.Status {
		case db.StatusExecutable, db.StatusStaged:
			active = append(active, s)
			if s.Status == db.StatusExecutable {
				totalEV += s.Metrics.EV
				deployable += s.Sizing.CapitalRequired
			}
		case db.StatusCompleted, db.StatusDismissed:
			if isToday(s.CreatedAt, now) {
				completed = append(completed, s)
			}
		}
	}

	heroIdx := -1
	for i, s := range active {
		if s.Status != db.StatusExecutable {
			continue
		}
		if heroIdx >= 0 {
			h := active[heroIdx]
			if s.Score < h.Score || (s.Score == h.Score && (s.Metrics.EV < h.Metrics.EV ||
				(s.Metrics.EV == h.Metrics.EV && s.Sizing.MaxLossTotal >= h.Sizing.MaxLossTotal))) {
				continue
			}
		}
		heroIdx = i
	}

	var hero *db.Suggestion
	queue := make([]db.Suggestion, 0, len(active))
	for i, s := range active {
		if i == heroIdx {
			heroCopy := active[i]
			hero = &heroCopy
			continue
		}
		queue = append(queue, s)
	}

	return Inbox{
		Hero:      hero,
		Queue:     queue,
		Completed: completed,
		Meta: Meta{
			TotalEVAvailable:  totalEV,
			DeployableCapital: deployable,
			StaleAfterSeconds: r.staleAfterSeconds,
		},
	}, nil
}

func isToday(t, now time.Time) bool {
	ty, tm, td := t.Date()
	ny, nm, nd := now.Date()
	return ty == ny && tm == nm && td == nd
}

// IsStale reports whether a suggestion last touched at refreshedOrCreatedAt
// is stale as of now. The boundary is strict: exactly stale_after_seconds
// elapsed is still fresh, one second later it is stale.
func (r *Ranker) IsStale(now, refreshedOrCreatedAt time.Time) bool {
	return now.Sub(refreshedOrCreatedAt) > time.Duration(r.staleAfterSeconds)*time.Second
}
