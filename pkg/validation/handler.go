package validation

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kpeterson/optflow/internal/auth"
	"github.com/kpeterson/optflow/internal/clock"
	"github.com/kpeterson/optflow/internal/httpserver"
	"github.com/kpeterson/optflow/pkg/gateway"
	"github.com/kpeterson/optflow/pkg/queue"
)

// Mode selects whether a /validation/run request drives the live paper-
// trading checkpoint path or a historical backtest.
type Mode string

const (
	ModePaper      Mode = "paper"
	ModeHistorical Mode = "historical"
)

// RunRequest is the POST /validation/run body.
type RunRequest struct {
	Mode       Mode        `json:"mode" validate:"required,oneof=paper historical"`
	Historical *Historical `json:"historical,omitempty" validate:"required_if=Mode historical"`
}

// Historical carries a backtest's parameters plus the optional autotune
// training loop controls.
type Historical struct {
	Symbol               string  `json:"symbol" validate:"required"`
	WindowDays           int     `json:"window_days" validate:"required,gt=0"`
	InstrumentType       string  `json:"instrument_type" validate:"required,oneof=equity option"`
	OptionRight          string  `json:"option_right,omitempty" validate:"omitempty,oneof=call put"`
	OptionDTE            int     `json:"option_dte,omitempty"`
	OptionMoneyness      float64 `json:"option_moneyness,omitempty"`
	UseRollingContracts  bool    `json:"use_rolling_contracts,omitempty"`
	StrictOptionMode     bool    `json:"strict_option_mode,omitempty"`
	SegmentTolerancePct  float64 `json:"segment_tolerance_pct,omitempty"`
	ConcurrentRuns       int     `json:"concurrent_runs" validate:"required,gt=0"`
	GoalReturnPct        float64 `json:"goal_return_pct"`
	Autotune             bool    `json:"autotune,omitempty"`
	Train                bool    `json:"train,omitempty"`
	TrainTargetStreak    int     `json:"train_target_streak,omitempty"`
	TrainMaxAttempts     int     `json:"train_max_attempts,omitempty"`
}

// jobPayload is what the worker-side handler for the "validation.run" job
// name decodes; it just wraps RunRequest with the caller's identity.
type jobPayload struct {
	UserID uuid.UUID  `json:"user_id"`
	Run    RunRequest `json:"run"`
}

// Handler exposes the validation HTTP surface: submitting a run and reading
// back state/journal.
type Handler struct {
	queue   *queue.Queue
	gateway *gateway.Gateway
	clock   clock.Clock
}

// NewHandler builds a validation Handler.
func NewHandler(q *queue.Queue, gw *gateway.Gateway, c clock.Clock) *Handler {
	return &Handler{queue: q, gateway: gw, clock: c}
}

// Routes mounts the validation endpoints onto a chi.Router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/run", h.handleRun)
	r.Get("/status", h.handleStatus)
	r.Get("/journal", h.handleJournal)
	return r
}

func (h *Handler) handleRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	identity := auth.FromContext(r.Context())
	payload, err := json.Marshal(jobPayload{UserID: identity.UserID, Run: req})
	if err != nil {
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to encode run request")
		return
	}

	run, created, err := h.queue.Enqueue(r.Context(), queue.Spec{
		JobName:  "validation.run",
		Payload:  payload,
		RunAfter: h.clock.Now(),
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

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	identity := auth.FromContext(r.Context())
	state, err := h.gateway.GetValidationState(r.Context(), identity.UserID)
	if err != nil {
		httpserver.RespondErr(w, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, state)
}

func (h *Handler) handleJournal(w http.ResponseWriter, r *http.Request) {
	identity := auth.FromContext(r.Context())

	limit := httpserver.DefaultPageSize
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "limit must be a positive integer")
			return
		}
		if n > httpserver.MaxPageSize {
			n = httpserver.MaxPageSize
		}
		limit = n
	}

	entries, err := h.gateway.ListValidationJournal(r.Context(), identity.UserID, limit, 0)
	if err != nil {
		httpserver.RespondErr(w, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, entries)
}
