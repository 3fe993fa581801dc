package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/itsearth/pulse/internal/analytics"
	"github.com/itsearth/pulse/internal/middleware"
)

// DashboardHandlers serves the aggregation read API.
type DashboardHandlers struct {
	agg    *analytics.Aggregator
	logger *slog.Logger
}

// NewDashboardHandlers creates dashboard handlers backed by the aggregator.
func NewDashboardHandlers(agg *analytics.Aggregator, logger *slog.Logger) *DashboardHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &DashboardHandlers{agg: agg, logger: logger}
}

// Dashboard handles GET /api/dashboard?range=24h.
// The range parameter accepts 24h, 7d, 30d, or 90d and defaults to 24h.
func (h *DashboardHandlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	rng, err := analytics.ParseRange(r.URL.Query().Get("range"))
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidRange)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidRange,
			fmt.Sprintf("Unsupported time range %q; use 24h, 7d, 30d, or 90d", r.URL.Query().Get("range")))
		return
	}

	dashboard, err := h.agg.Dashboard(r.Context(), rng)
	if err != nil {
		h.logger.Error("dashboard aggregation failed",
			slog.String("range", string(rng)),
			slog.String("error", err.Error()))
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to build dashboard")
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(dashboard); err != nil {
		h.logger.Error("failed to encode dashboard response", slog.String("error", err.Error()))
	}
}
