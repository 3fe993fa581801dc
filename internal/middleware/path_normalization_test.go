package middleware

import (
	"testing"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected string
	}{
		{
			name:     "root path",
			path:     "/",
			expected: "/",
		},
		{
			name:     "dashboard",
			path:     "/api/dashboard",
			expected: "/api/dashboard",
		},
		{
			name:     "packages",
			path:     "/api/packages",
			expected: "/api/packages",
		},
		{
			name:     "revenue",
			path:     "/api/revenue",
			expected: "/api/revenue",
		},
		{
			name:     "health endpoint",
			path:     "/health",
			expected: "/health",
		},
		{
			name:     "readiness endpoint",
			path:     "/health/ready",
			expected: "/health/ready",
		},
		{
			name:     "metrics endpoint",
			path:     "/metrics",
			expected: "/metrics",
		},
		{
			name:     "location by name",
			path:     "/api/locations/Tokyo",
			expected: "/api/locations/{name}",
		},
		{
			name:     "location with space",
			path:     "/api/locations/New York",
			expected: "/api/locations/{name}",
		},
		{
			name:     "location heatmap",
			path:     "/api/locations/Berlin/heatmap",
			expected: "/api/locations/{name}/heatmap",
		},
		{
			name:     "locations collection with empty name",
			path:     "/api/locations/",
			expected: "/api/locations/",
		},
		{
			name:     "unknown location subresource",
			path:     "/api/locations/Tokyo/forecast",
			expected: "/api/locations/Tokyo/forecast",
		},
		{
			name:     "unknown route",
			path:     "/unknown/path",
			expected: "/unknown/path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := normalizePath(tt.path)
			if result != tt.expected {
				t.Errorf("normalizePath(%q) = %q, want %q", tt.path, result, tt.expected)
			}
		})
	}
}

func TestNormalizePath_CardinalityControl(t *testing.T) {
	paths := []string{
		"/api/locations/Tokyo",
		"/api/locations/Berlin",
		"/api/locations/New York",
		"/api/locations/São Paulo",
	}

	expected := "/api/locations/{name}"
	seen := make(map[string]bool)

	for _, path := range paths {
		result := normalizePath(path)
		if result != expected {
			t.Errorf("normalizePath(%q) = %q, want %q", path, result, expected)
		}
		seen[result] = true
	}

	if len(seen) != 1 {
		t.Errorf("expected all location paths to normalize to one pattern, got %d: %v", len(seen), seen)
	}
}
