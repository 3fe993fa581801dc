// Integration tests demonstrating Request ID middleware usage.
package middleware_test

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/itsearth/pulse/internal/middleware"
)

func TestRequestID_BasicUsage(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := middleware.GetRequestID(r.Context())
		if requestID == "" {
			t.Error("expected request ID in context")
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Request ID: " + requestID))
	})
	wrapped := middleware.RequestID(handler)

	req1 := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	rr1 := httptest.NewRecorder()
	wrapped.ServeHTTP(rr1, req1)

	if rr1.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header in response")
	}

	customID := "550e8400-e29b-41d4-a716-446655440000"
	req2 := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	req2.Header.Set("X-Request-ID", customID)
	rr2 := httptest.NewRecorder()
	wrapped.ServeHTTP(rr2, req2)

	if rr2.Header().Get("X-Request-ID") != customID {
		t.Errorf("expected X-Request-ID %q, got %q", customID, rr2.Header().Get("X-Request-ID"))
	}
}

func TestIntegration_RequestIDWithLogging(t *testing.T) {
	var logBuf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logBuf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if middleware.GetRequestID(r.Context()) == "" {
			t.Error("expected request ID in context, got empty string")
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	wrapped := middleware.RequestID(
		middleware.Logging(logger)(handler),
	)

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	rr := httptest.NewRecorder()
	wrapped.ServeHTTP(rr, req)

	responseID := rr.Header().Get("X-Request-ID")
	if responseID == "" {
		t.Error("expected X-Request-ID header in response")
	}

	logOutput := logBuf.String()
	if !strings.Contains(logOutput, "request_id=") {
		t.Errorf("expected log to contain request_id field, got: %s", logOutput)
	}
	if !strings.Contains(logOutput, responseID) {
		t.Errorf("expected log to contain request ID %s, got: %s", responseID, logOutput)
	}
}

func TestIntegration_RequestIDSecurity(t *testing.T) {
	tests := []struct {
		name       string
		incomingID string
		wantDiff   bool
	}{
		{
			name:       "log injection attempt",
			incomingID: "test\nmalicious-log-entry",
			wantDiff:   true,
		},
		{
			name:       "special characters",
			incomingID: "test@#$%^&*()",
			wantDiff:   true,
		},
		{
			name:       "too long",
			incomingID: strings.Repeat("a", 200),
			wantDiff:   true,
		},
		{
			name:       "valid UUID",
			incomingID: "550e8400-e29b-41d4-a716-446655440000",
			wantDiff:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
			wrapped := middleware.RequestID(handler)

			req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
			req.Header.Set("X-Request-ID", tt.incomingID)
			rr := httptest.NewRecorder()
			wrapped.ServeHTTP(rr, req)

			responseID := rr.Header().Get("X-Request-ID")
			if responseID == "" {
				t.Error("expected X-Request-ID in response")
			}

			if tt.wantDiff && responseID == tt.incomingID {
				t.Errorf("expected invalid ID %q to be replaced", tt.incomingID)
			}
			if !tt.wantDiff && responseID != tt.incomingID {
				t.Errorf("expected valid ID %q to be preserved, got %q", tt.incomingID, responseID)
			}
		})
	}
}

func TestIntegration_CompleteMiddlewareStack(t *testing.T) {
	var logBuf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logBuf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if middleware.GetRequestID(r.Context()) == "" {
			t.Error("request ID not available in handler")
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Success"))
	})

	stack := middleware.RequestID(
		middleware.Logging(logger)(handler),
	)

	req := httptest.NewRequest(http.MethodGet, "/api/locations/Tokyo", nil)
	rr := httptest.NewRecorder()
	stack.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}

	logOutput := logBuf.String()
	for _, field := range []string{
		"method=GET",
		"path=/api/locations/Tokyo",
		"status=200",
		"request_id=",
	} {
		if !strings.Contains(logOutput, field) {
			t.Errorf("expected log to contain %q, got: %s", field, logOutput)
		}
	}
}

func BenchmarkRequestID_NewID(b *testing.B) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	wrapped := middleware.RequestID(handler)
	req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rr := httptest.NewRecorder()
		wrapped.ServeHTTP(rr, req)
	}
}

func BenchmarkRequestID_ExistingID(b *testing.B) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	wrapped := middleware.RequestID(handler)
	req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	req.Header.Set("X-Request-ID", "550e8400-e29b-41d4-a716-446655440000")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rr := httptest.NewRecorder()
		wrapped.ServeHTTP(rr, req)
	}
}
