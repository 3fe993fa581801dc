package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, context.Background(), http.StatusBadRequest, ErrCodeInvalidRange, "Unsupported time range")

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error.Code != ErrCodeInvalidRange {
		t.Errorf("code = %q, want %q", resp.Error.Code, ErrCodeInvalidRange)
	}
	if resp.Error.Message != "Unsupported time range" {
		t.Errorf("message = %q", resp.Error.Message)
	}
}

func TestStatusCodeMapping(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeInvalidRange, http.StatusBadRequest},
		{ErrCodeBadRequest, http.StatusBadRequest},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeInternal, http.StatusInternalServerError},
		{"something_unknown", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := StatusCodeMapping(tt.code); got != tt.want {
			t.Errorf("StatusCodeMapping(%q) = %d, want %d", tt.code, got, tt.want)
		}
	}
}
