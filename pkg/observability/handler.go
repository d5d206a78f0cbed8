package observability

import (
	"net/http"

	"github.com/kpeterson/optflow/internal/httpserver"
)

// Handler exposes GET /ops/health.
type Handler struct {
	snapshot *Snapshot
}

// NewHandler builds an observability Handler.
func NewHandler(snapshot *Snapshot) *Handler {
	return &Handler{snapshot: snapshot}
}

// HandleOpsHealth serves GET /ops/health.
func (h *Handler) HandleOpsHealth(w http.ResponseWriter, r *http.Request) {
	health, err := h.snapshot.Build(r.Context())
	if err != nil {
		httpserver.RespondErr(w, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, health)
}
