package quality

import (
	"net/http"

	"github.com/kpeterson/optflow/internal/clock"
	"github.com/kpeterson/optflow/internal/httpserver"
)

// Handler exposes GET /system/health, the market-data quality gate's
// self-reported health (breaker states, cache hit rate, recent veto rate).
type Handler struct {
	gate   *Gate
	counts OutcomeCounter
	clock  clock.Clock
}

// NewHandler builds a quality Handler.
func NewHandler(gate *Gate, counts OutcomeCounter, c clock.Clock) *Handler {
	return &Handler{gate: gate, counts: counts, clock: c}
}

// HandleSystemHealth serves GET /system/health.
func (h *Handler) HandleSystemHealth(w http.ResponseWriter, r *http.Request) {
	health, err := HealthReport(r.Context(), h.gate, h.counts, h.clock.Now())
	if err != nil {
		httpserver.RespondErr(w, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, health)
}
