package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func profilingTarget(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(body))
	})
}

func TestProfiling_Disabled(t *testing.T) {
	wrapped := Profiling(ProfilingConfig{
		Enabled:     false,
		Environment: "development",
	})(profilingTarget("ok"))

	req := httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil)
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if body := rec.Body.String(); body != "ok" {
		t.Errorf("body = %q, want pass-through to next handler", body)
	}
}

func TestProfiling_EnabledInDevelopment(t *testing.T) {
	wrapped := Profiling(ProfilingConfig{
		Enabled:     true,
		Environment: "development",
	})(profilingTarget("should not reach here"))

	req := httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil)
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, "pprof") {
		t.Errorf("expected pprof index page, got %q", body)
	}
}

func TestProfiling_BlockedInProduction(t *testing.T) {
	wrapped := Profiling(ProfilingConfig{
		Enabled:     true,
		Environment: "production",
	})(profilingTarget("ok"))

	req := httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil)
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	if body := rec.Body.String(); body != "ok" {
		t.Errorf("body = %q, profiling should be blocked in production", body)
	}
}

func TestProfiling_GoroutineProfile(t *testing.T) {
	wrapped := Profiling(ProfilingConfig{
		Enabled:     true,
		Environment: "development",
	})(profilingTarget("should not reach here"))

	req := httptest.NewRequest(http.MethodGet, "/debug/pprof/goroutine", nil)
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestProfiling_NonProfilingRoute(t *testing.T) {
	wrapped := Profiling(ProfilingConfig{
		Enabled:     true,
		Environment: "development",
	})(profilingTarget("normal route"))

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	if body := rec.Body.String(); body != "normal route" {
		t.Errorf("body = %q, want pass-through for non-profiling routes", body)
	}
}
