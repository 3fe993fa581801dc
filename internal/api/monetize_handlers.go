package api

import (
	"log/slog"
	"net/http"

	"github.com/itsearth/pulse/internal/analytics"
	"github.com/itsearth/pulse/internal/middleware"
)

// MonetizeHandlers serves the data-package catalog and revenue reads. Both
// are pure reads over persisted insight history; deriving and persisting
// new insights stays a dashboard-build side effect.
type MonetizeHandlers struct {
	agg    *analytics.Aggregator
	logger *slog.Logger
}

// NewMonetizeHandlers creates monetization handlers backed by the aggregator.
func NewMonetizeHandlers(agg *analytics.Aggregator, logger *slog.Logger) *MonetizeHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &MonetizeHandlers{agg: agg, logger: logger}
}

// Packages handles GET /api/packages.
func (h *MonetizeHandlers) Packages(w http.ResponseWriter, r *http.Request) {
	section, ok := h.read(w, r)
	if !ok {
		return
	}
	writeJSON(w, h.logger, map[string]any{"packages": section.Packages})
}

// Revenue handles GET /api/revenue.
func (h *MonetizeHandlers) Revenue(w http.ResponseWriter, r *http.Request) {
	section, ok := h.read(w, r)
	if !ok {
		return
	}
	writeJSON(w, h.logger, section.Revenue)
}

func (h *MonetizeHandlers) read(w http.ResponseWriter, r *http.Request) (*analytics.MonetizationSection, bool) {
	if r.Method != http.MethodGet {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return nil, false
	}

	section, err := h.agg.Monetization(r.Context())
	if err != nil {
		h.logger.Error("monetization read failed", slog.String("error", err.Error()))
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to read insight history")
		return nil, false
	}
	return section, true
}
