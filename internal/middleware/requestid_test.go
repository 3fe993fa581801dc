package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func requestIDTarget(captured *string) http.Handler {
	return RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*captured = GetRequestID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
}

func TestRequestID_GeneratesWhenAbsent(t *testing.T) {
	var fromCtx string
	handler := requestIDTarget(&fromCtx)

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	echoed := rr.Header().Get(RequestIDHeader)
	if echoed == "" {
		t.Fatal("expected a generated X-Request-ID on the response")
	}
	if fromCtx != echoed {
		t.Errorf("context ID %q does not match response header %q", fromCtx, echoed)
	}
}

func TestRequestID_CallerSuppliedIDs(t *testing.T) {
	tests := []struct {
		name string
		id   string
		keep bool
	}{
		{"uuid", "550e8400-e29b-41d4-a716-446655440000", true},
		{"simple token", "trace-4711.retry_2", true},
		{"log injection", "ok\nlevel=ERROR forged line", false},
		{"special characters", "id;drop table", false},
		{"over length bound", strings.Repeat("a", maxRequestIDLength+1), false},
		{"at length bound", strings.Repeat("a", maxRequestIDLength), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var fromCtx string
			handler := requestIDTarget(&fromCtx)

			req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
			req.Header.Set(RequestIDHeader, tt.id)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			echoed := rr.Header().Get(RequestIDHeader)
			if echoed == "" {
				t.Fatal("expected an X-Request-ID on the response")
			}
			if tt.keep && echoed != tt.id {
				t.Errorf("valid ID %q was replaced with %q", tt.id, echoed)
			}
			if !tt.keep && echoed == tt.id {
				t.Errorf("unsafe ID %q was echoed verbatim", tt.id)
			}
			if fromCtx != echoed {
				t.Errorf("context ID %q does not match response header %q", fromCtx, echoed)
			}
		})
	}
}

func TestGetRequestID_OutsideMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	if got := GetRequestID(req.Context()); got != "" {
		t.Errorf("GetRequestID outside the middleware = %q, want empty", got)
	}
}
