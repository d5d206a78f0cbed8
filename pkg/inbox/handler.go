package inbox

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kpeterson/optflow/internal/auth"
	"github.com/kpeterson/optflow/internal/clock"
	"github.com/kpeterson/optflow/internal/httpserver"
)

// Handler exposes the inbox HTTP surface: reading the composed inbox and
// batch-staging suggestions out of it.
type Handler struct {
	ranker *Ranker
	stager *Stager
	clock  clock.Clock
}

// NewHandler builds an inbox Handler.
func NewHandler(ranker *Ranker, stager *Stager, c clock.Clock) *Handler {
	return &Handler{ranker: ranker, stager: stager, clock: c}
}

// Routes mounts the inbox endpoints onto a chi.Router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleGet)
	r.Post("/stage-batch", h.handleStageBatch)
	return r
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	identity := auth.FromContext(r.Context())
	in, err := h.ranker.Build(r.Context(), identity.UserID, h.clock.Now())
	if err != nil {
		httpserver.RespondErr(w, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, in)
}

// stageBatchRequest is the POST /inbox/stage-batch body.
type stageBatchRequest struct {
	SuggestionIDs []uuid.UUID `json:"suggestion_ids" validate:"required,min=1,dive,required"`
}

// stageBatchResponse is the POST /inbox/stage-batch body.
type stageBatchResponse struct {
	Staged []uuid.UUID   `json:"staged"`
	Failed []StageResult `json:"failed"`
}

func (h *Handler) handleStageBatch(w http.ResponseWriter, r *http.Request) {
	var req stageBatchRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	identity := auth.FromContext(r.Context())
	staged, failed := h.stager.StageBatch(r.Context(), identity.UserID, req.SuggestionIDs)

	if staged == nil {
		staged = []uuid.UUID{}
	}
	if failed == nil {
		failed = []StageResult{}
	}
	httpserver.Respond(w, http.StatusOK, stageBatchResponse{Staged: staged, Failed: failed})
}
