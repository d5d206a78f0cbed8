package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/kpeterson/optflow/internal/telemetry"
)

// Middleware returns an HTTP middleware that authenticates the caller and
// stores the resulting Identity in the request context.
//
// In production (isProduction == true) the only accepted scheme is
// Authorization: Bearer <jwt>, verified with verifier. The X-Test-Mode-User
// header is refused outright in production — seeing it there is itself a
// suspicious event, logged and counted as an integrity violation.
//
// Outside production, X-Test-Mode-User: <uuid> impersonates that user
// without verifying a token, so local development and CI don't need to mint
// real JWTs.
func Middleware(verifier *Verifier, isProduction bool, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if testUser := r.Header.Get("X-Test-Mode-User"); testUser != "" {
				if isProduction {
					logger.Warn("X-Test-Mode-User header presented in production", "remote_addr", r.RemoteAddr)
					telemetry.IntegrityViolationsTotal.Inc()
					respondErr(w, http.StatusUnauthorized, "unauthorized", "test-mode authentication is not available")
					return
				}

				userID, err := uuid.Parse(testUser)
				if err != nil {
					respondErr(w, http.StatusUnauthorized, "unauthorized", "X-Test-Mode-User must be a UUID")
					return
				}

				ctx := NewContext(r.Context(), &Identity{UserID: userID, Method: MethodTest})
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				respondErr(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
				return
			}
			rawToken := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))

			userID, err := verifier.Verify(rawToken)
			if err != nil {
				logger.Warn("JWT verification failed", "error", err)
				respondErr(w, http.StatusUnauthorized, "unauthorized", "invalid token")
				return
			}

			ctx := NewContext(r.Context(), &Identity{UserID: userID, Method: MethodJWT})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects any request that reached it without an Identity in
// context, a defense-in-depth check for handlers mounted without Middleware.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if FromContext(r.Context()) == nil {
			respondErr(w, http.StatusUnauthorized, "unauthorized", "no authenticated identity")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func respondErr(w http.ResponseWriter, status int, errStr, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   errStr,
		"message": message,
	})
}
