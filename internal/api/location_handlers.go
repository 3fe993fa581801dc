package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/itsearth/pulse/internal/analytics"
	"github.com/itsearth/pulse/internal/middleware"
)

// LocationHandlers serves the per-location analytics reads.
type LocationHandlers struct {
	agg    *analytics.Aggregator
	logger *slog.Logger
}

// NewLocationHandlers creates location handlers backed by the aggregator.
func NewLocationHandlers(agg *analytics.Aggregator, logger *slog.Logger) *LocationHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocationHandlers{agg: agg, logger: logger}
}

// splitLocationPath extracts the location name and optional trailing
// segment from a /api/locations/{name}[/segment] path.
func splitLocationPath(path string) (name, rest string) {
	trimmed := strings.TrimPrefix(path, "/api/locations/")
	if trimmed == path {
		return "", ""
	}
	if idx := strings.Index(trimmed, "/"); idx != -1 {
		return trimmed[:idx], trimmed[idx+1:]
	}
	return trimmed, ""
}

// Location routes GET /api/locations/{name} and
// GET /api/locations/{name}/heatmap.
func (h *LocationHandlers) Location(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	name, rest := splitLocationPath(r.URL.Path)
	if name == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Location name is required")
		return
	}

	rng, err := analytics.ParseRange(r.URL.Query().Get("range"))
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidRange)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidRange,
			fmt.Sprintf("Unsupported time range %q; use 24h, 7d, 30d, or 90d", r.URL.Query().Get("range")))
		return
	}

	switch rest {
	case "":
		h.detail(w, r, name, rng)
	case "heatmap":
		h.heatmap(w, r, name, rng)
	default:
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Unknown location resource")
	}
}

func (h *LocationHandlers) detail(w http.ResponseWriter, r *http.Request, name string, rng analytics.Range) {
	detail, err := h.agg.Location(r.Context(), name, rng)
	if err != nil {
		if errors.Is(err, analytics.ErrNoData) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound,
				fmt.Sprintf("No records for location %q in this window", name))
			return
		}
		h.logger.Error("location aggregation failed",
			slog.String("location", name),
			slog.String("error", err.Error()))
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to aggregate location")
		return
	}

	writeJSON(w, h.logger, detail)
}

func (h *LocationHandlers) heatmap(w http.ResponseWriter, r *http.Request, name string, rng analytics.Range) {
	buckets, err := h.agg.Heatmap(r.Context(), name, rng)
	if err != nil {
		h.logger.Error("heatmap read failed",
			slog.String("location", name),
			slog.String("error", err.Error()))
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to read activity heatmap")
		return
	}

	writeJSON(w, h.logger, map[string]any{
		"location": name,
		"range":    rng,
		"buckets":  buckets,
	})
}

// writeJSON writes a 200 JSON response, logging encode failures.
func writeJSON(w http.ResponseWriter, logger *slog.Logger, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}
