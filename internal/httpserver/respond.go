package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/kpeterson/optflow/internal/apperror"
)

// Respond writes a JSON response with the given status code.
func Respond(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

// ErrorResponse is the standard JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// RespondError writes a JSON error response.
func RespondError(w http.ResponseWriter, status int, code, message string) {
	Respond(w, status, ErrorResponse{Error: code, Message: message})
}

// RespondErr classifies err via apperror and writes the matching status and
// code, the single place every handler funnels a returned error through.
func RespondErr(w http.ResponseWriter, err error) {
	ae, ok := apperror.As(err)
	if !ok {
		RespondError(w, http.StatusInternalServerError, string(apperror.Internal), "internal error")
		return
	}
	RespondError(w, apperror.HTTPStatus(ae.Code), string(ae.Code), ae.Message)
}
