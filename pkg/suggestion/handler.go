package suggestion

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kpeterson/optflow/internal/apperror"
	"github.com/kpeterson/optflow/internal/auth"
	"github.com/kpeterson/optflow/internal/httpserver"
	"github.com/kpeterson/optflow/pkg/gateway"
)

// Handler exposes the per-suggestion HTTP surface: dismissing one and
// forcing a quote refresh against it.
type Handler struct {
	gateway   *gateway.Gateway
	generator *Generator
}

// NewHandler builds a suggestion Handler.
func NewHandler(gw *gateway.Gateway, generator *Generator) *Handler {
	return &Handler{gateway: gw, generator: generator}
}

// Routes mounts the per-suggestion endpoints onto a chi.Router, expecting to
// be mounted at /suggestions/{id}.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Route("/{id}", func(r chi.Router) {
		r.Post("/dismiss", h.handleDismiss)
		r.Post("/refresh-quote", h.handleRefreshQuote)
	})
	return r
}

func suggestionID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "id"))
}

type dismissRequest struct {
	Reason string `json:"reason" validate:"required"`
}

func (h *Handler) handleDismiss(w http.ResponseWriter, r *http.Request) {
	id, err := suggestionID(r)
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid suggestion ID")
		return
	}

	var req dismissRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}
	if !IsValidDismissReason(req.Reason) {
		httpserver.RespondError(w, http.StatusUnprocessableEntity, "validation_error", "unrecognized dismiss reason")
		return
	}

	identity := auth.FromContext(r.Context())
	current, err := h.gateway.GetSuggestion(r.Context(), identity.UserID, id)
	if err != nil {
		httpserver.RespondErr(w, err)
		return
	}
	if _, ok := Transition(current.Status, EventDismiss); !ok {
		httpserver.RespondErr(w, apperror.New(apperror.Validation, "suggestion cannot be dismissed from its current status"))
		return
	}

	updated, err := h.gateway.UpdateSuggestionDismissal(r.Context(), identity.UserID, id, req.Reason)
	if err != nil {
		httpserver.RespondErr(w, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, updated)
}

func (h *Handler) handleRefreshQuote(w http.ResponseWriter, r *http.Request) {
	id, err := suggestionID(r)
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid suggestion ID")
		return
	}

	identity := auth.FromContext(r.Context())
	updated, err := h.generator.RefreshQuote(r.Context(), identity.UserID, id)
	if err != nil {
		httpserver.RespondErr(w, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, updated)
}
