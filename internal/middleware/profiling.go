// Package middleware provides HTTP middleware for the API server.
package middleware

import (
	"log/slog"
	"net/http"
	"net/http/pprof"
	"strings"
)

// ProfilingConfig configures the profiling middleware. Profiling endpoints
// expose runtime internals and must stay off outside development.
type ProfilingConfig struct {
	Enabled     bool
	Environment string
}

// Profiling exposes pprof endpoints at /debug/pprof/* when enabled. A
// production environment disables them regardless of the Enabled flag.
func Profiling(config ProfilingConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !config.Enabled {
			return next
		}

		if config.Environment == "production" || config.Environment == "prod" {
			slog.Error("profiling cannot be enabled in production, ignoring",
				"environment", config.Environment,
			)
			return next
		}

		slog.Warn("profiling endpoints enabled",
			"environment", config.Environment,
			"endpoints", "/debug/pprof/*",
		)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, "/debug/pprof") {
				next.ServeHTTP(w, r)
				return
			}

			switch r.URL.Path {
			case "/debug/pprof/cmdline":
				pprof.Cmdline(w, r)
			case "/debug/pprof/profile":
				pprof.Profile(w, r)
			case "/debug/pprof/symbol":
				pprof.Symbol(w, r)
			case "/debug/pprof/trace":
				pprof.Trace(w, r)
			default:
				pprof.Index(w, r)
			}
		})
	}
}
