package http

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"litcite/internal/contextutil"
)

func TestLoggerMiddleware(t *testing.T) {
	var got *slog.Logger
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = contextutil.LoggerFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()

	LoggerMiddleware(next).ServeHTTP(w, req)

	if got == nil {
		t.Fatal("request context should carry a logger")
	}
	if got == slog.Default() {
		t.Error("context logger should carry request attributes, not be the bare default")
	}
}

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("adds headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.Header.Set("Origin", "http://example.com")
		w := httptest.NewRecorder()

		CORS(next).ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://example.com" {
			t.Errorf("Access-Control-Allow-Origin = %q", got)
		}
	})

	t.Run("wildcard without origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		w := httptest.NewRecorder()

		CORS(next).ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
		}
	})

	t.Run("preflight short-circuits", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/cite", nil)
		w := httptest.NewRecorder()

		CORS(next).ServeHTTP(w, req)

		if w.Code != http.StatusNoContent {
			t.Errorf("status = %d, want 204", w.Code)
		}
	})
}
