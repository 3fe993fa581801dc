package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/itsearth/pulse/internal/analytics"
	"github.com/itsearth/pulse/internal/monetize"
	"github.com/itsearth/pulse/internal/store"
)

func newMonetizeHandlers(t *testing.T) (*MonetizeHandlers, *store.Memory) {
	t.Helper()
	mem := store.NewMemory(discardLogger())
	agg := analytics.NewAggregator(mem, nil, nil, discardLogger())
	return NewMonetizeHandlers(agg, discardLogger()), mem
}

func seedInsights(t *testing.T, mem *store.Memory) {
	t.Helper()
	now := time.Now()
	for _, in := range []monetize.Insight{
		{
			InsightType:     monetize.InsightLocationTrends,
			DataCategory:    monetize.CategoryMobility,
			GeographicScope: "global",
			TimePeriod:      "24h",
			MarketValue:     1500,
			CreatedAt:       now.Add(-time.Hour),
		},
		{
			InsightType:     monetize.InsightNetworkQuality,
			DataCategory:    monetize.CategoryConnectivity,
			GeographicScope: "global",
			TimePeriod:      "24h",
			MarketValue:     2250,
			CreatedAt:       now.AddDate(0, 0, -5),
		},
	} {
		rec := in
		if err := mem.InsertInsight(context.Background(), &rec); err != nil {
			t.Fatalf("seed insight: %v", err)
		}
	}
}

func TestPackages(t *testing.T) {
	h, mem := newMonetizeHandlers(t)
	seedInsights(t, mem)

	req := httptest.NewRequest(http.MethodGet, "/api/packages", nil)
	w := httptest.NewRecorder()
	h.Packages(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body.String())
	}

	var resp struct {
		Packages []monetize.Package `json:"packages"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Packages) != 2 {
		t.Fatalf("packages = %d, want 2", len(resp.Packages))
	}
	names := map[string]bool{}
	for _, p := range resp.Packages {
		names[p.Name] = true
		if p.Price == 0 {
			t.Errorf("package %q has zero price", p.Name)
		}
	}
	if !names["Location Trends - Global Edition"] || !names["Network Quality - Global Edition"] {
		t.Errorf("unexpected package names: %v", names)
	}
}

func TestPackagesEmptyHistory(t *testing.T) {
	h, _ := newMonetizeHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/api/packages", nil)
	w := httptest.NewRecorder()
	h.Packages(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp struct {
		Packages []monetize.Package `json:"packages"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Packages) != 0 {
		t.Errorf("packages = %d, want 0", len(resp.Packages))
	}
}

func TestRevenue(t *testing.T) {
	h, mem := newMonetizeHandlers(t)
	seedInsights(t, mem)

	req := httptest.NewRequest(http.MethodGet, "/api/revenue", nil)
	w := httptest.NewRecorder()
	h.Revenue(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body.String())
	}

	var report monetize.RevenueReport
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if report.TotalValue != 3750 {
		t.Errorf("total value = %v, want 3750", report.TotalValue)
	}
	if report.PackageCount != 2 {
		t.Errorf("package count = %d, want 2", report.PackageCount)
	}
	if report.ByCategory[monetize.CategoryConnectivity] != 2250 {
		t.Errorf("connectivity revenue = %v, want 2250", report.ByCategory[monetize.CategoryConnectivity])
	}
}

func TestRevenueStoreUnavailable(t *testing.T) {
	h, mem := newMonetizeHandlers(t)
	mem.SetAvailable(false)

	req := httptest.NewRequest(http.MethodGet, "/api/revenue", nil)
	w := httptest.NewRecorder()
	h.Revenue(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("error body is not the standard envelope: %v", err)
	}
	if resp.Error.Code != ErrCodeInternal {
		t.Errorf("error code = %q, want %q", resp.Error.Code, ErrCodeInternal)
	}
}

func TestPackagesMethodNotAllowed(t *testing.T) {
	h, _ := newMonetizeHandlers(t)

	req := httptest.NewRequest(http.MethodPost, "/api/packages", nil)
	w := httptest.NewRecorder()
	h.Packages(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", w.Code)
	}
}
