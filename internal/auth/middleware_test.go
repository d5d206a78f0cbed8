package auth

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := FromContext(r.Context())
		if id == nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(id.UserID.String()))
	})
}

func TestMiddlewareAcceptsValidBearerToken(t *testing.T) {
	v, _ := NewVerifier(testSecret)
	userID := uuid.New()
	tok := signToken(t, testSecret, userID.String(), time.Now().Add(time.Hour))

	mw := Middleware(v, true, testLogger())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()

	mw(okHandler()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != userID.String() {
		t.Fatalf("got %q, want %q", rec.Body.String(), userID.String())
	}
}

func TestMiddlewareRejectsMissingAuth(t *testing.T) {
	v, _ := NewVerifier(testSecret)
	mw := Middleware(v, true, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestMiddlewareAllowsTestModeHeaderOutsideProduction(t *testing.T) {
	v, _ := NewVerifier(testSecret)
	mw := Middleware(v, false, testLogger())

	userID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Test-Mode-User", userID.String())
	rec := httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != userID.String() {
		t.Fatalf("got %q, want %q", rec.Body.String(), userID.String())
	}
}

func TestMiddlewareRejectsTestModeHeaderInProduction(t *testing.T) {
	v, _ := NewVerifier(testSecret)
	mw := Middleware(v, true, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Test-Mode-User", uuid.New().String())
	rec := httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
