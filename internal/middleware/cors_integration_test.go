package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// TestCORS_IntegrationWithMiddlewareStack exercises CORS behind RequestID
// the way the server chains them.
func TestCORS_IntegrationWithMiddlewareStack(t *testing.T) {
	cfg := DefaultCORSConfig([]string{"http://localhost:3000"})

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	wrapped := RequestID(CORS(cfg)(handler))

	t.Run("preflight request with request ID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/dashboard", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		req.Header.Set("Access-Control-Request-Method", "GET")
		rr := httptest.NewRecorder()

		wrapped.ServeHTTP(rr, req)

		if rr.Code != http.StatusNoContent {
			t.Errorf("status = %d, want %d", rr.Code, http.StatusNoContent)
		}
		if origin := rr.Header().Get("Access-Control-Allow-Origin"); origin != "http://localhost:3000" {
			t.Errorf("Access-Control-Allow-Origin = %q", origin)
		}
		if reqID := rr.Header().Get("X-Request-ID"); reqID == "" {
			t.Error("expected X-Request-ID header to be set")
		}
	})

	t.Run("actual request passes through", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		rr := httptest.NewRecorder()

		wrapped.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", rr.Code, http.StatusOK)
		}
		if body := rr.Body.String(); body != "OK" {
			t.Errorf("body = %q, want OK", body)
		}
		if reqID := rr.Header().Get("X-Request-ID"); reqID == "" {
			t.Error("expected X-Request-ID header to be set")
		}
	})

	t.Run("unauthorized origin blocked before the handler", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
		req.Header.Set("Origin", "http://malicious.com")
		rr := httptest.NewRecorder()

		wrapped.ServeHTTP(rr, req)

		if rr.Code != http.StatusForbidden {
			t.Errorf("status = %d, want %d", rr.Code, http.StatusForbidden)
		}
		if reqID := rr.Header().Get("X-Request-ID"); reqID == "" {
			t.Error("expected X-Request-ID header even for rejected requests")
		}
	})
}
