package scheduler

import (
	"crypto/hmac"
	"encoding/json"
	"net/http"

	"github.com/kpeterson/optflow/internal/clock"
	"github.com/kpeterson/optflow/internal/httpserver"
	"github.com/kpeterson/optflow/pkg/queue"
)

// aliasGroups maps every /tasks/* route, including the deprecated pair, to a
// shared job name and idempotency namespace — per the open-question
// resolution, firing the deprecated and replacement endpoint for the same
// trading day collapses to one JobRun.
var aliasGroups = map[string]string{
	"/tasks/morning-brief":        "suggestions.open",
	"/tasks/suggestions/open":     "suggestions.open",
	"/tasks/midday-scan":          "suggestions.close",
	"/tasks/suggestions/close":    "suggestions.close",
	"/tasks/weekly-report":        "weekly_report",
	"/tasks/universe/sync":        "universe_sync",
	"/tasks/learning/ingest":      "learning_ingest",
	"/tasks/strategy/autotune":    "strategy_autotune",
	"/tasks/plaid/backfill-history": "plaid_backfill_history",
}

// Handler dispatches /tasks/* requests into the job queue.
type Handler struct {
	queue      *queue.Queue
	cronSecret string
	clock      clock.Clock
}

// NewHandler builds a Handler. cronSecret is the shared secret every caller
// must present via X-Cron-Secret.
func NewHandler(q *queue.Queue, cronSecret string, c clock.Clock) *Handler {
	return &Handler{queue: q, cronSecret: cronSecret, clock: c}
}

// Dispatch handles a single /tasks/* route, keyed by its registered path.
func (h *Handler) Dispatch(route string) http.HandlerFunc {
	jobName, ok := aliasGroups[route]
	if !ok {
		panic("scheduler: unregistered /tasks route " + route)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if !h.verifySecret(r.Header.Get("X-Cron-Secret")) {
			httpserver.RespondError(w, http.StatusUnauthorized, "auth_failed", "invalid or missing X-Cron-Secret")
			return
		}

		now := h.clock.Now()
		idempotencyKey := jobName + ":" + clock.TradingDay(now)

		run, created, err := h.queue.Enqueue(r.Context(), queue.Spec{
			JobName:        jobName,
			Payload:        json.RawMessage(`{}`),
			IdempotencyKey: &idempotencyKey,
			RunAfter:       now,
		})
		if err != nil {
			httpserver.RespondErr(w, err)
			return
		}

		status := http.StatusAccepted
		if !created {
			status = http.StatusConflict
		}
		httpserver.Respond(w, status, map[string]string{"job_id": run.ID.String()})
	}
}

// verifySecret does a constant-time comparison so timing does not leak how
// much of the secret a caller guessed correctly.
func (h *Handler) verifySecret(presented string) bool {
	if h.cronSecret == "" || presented == "" {
		return false
	}
	return hmac.Equal([]byte(h.cronSecret), []byte(presented))
}
