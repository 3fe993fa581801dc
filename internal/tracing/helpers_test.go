package tracing

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestStartDBSpan(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		table     string
		operation DBOperation
	}{
		{"query with table", "social_engagement_analytics", DBOperationQuery},
		{"insert with table", "network_performance_analytics", DBOperationInsert},
		{"update with table", "location_activity_heatmap", DBOperationUpdate},
		{"upsert with table", "location_activity_heatmap", DBOperationUpsert},
		{"query without table", "", DBOperationQuery},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spanRecorder := tracetest.NewSpanRecorder()
			tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spanRecorder))
			otel.SetTracerProvider(tp)
			defer tp.Shutdown(context.Background())

			_, endSpan := StartDBSpan(ctx, tt.table, tt.operation)
			endSpan(nil)

			spans := spanRecorder.Ended()
			if len(spans) != 1 {
				t.Fatalf("expected 1 span, got %d", len(spans))
			}

			span := spans[0]

			expectedName := string(tt.operation)
			if tt.table != "" {
				expectedName = expectedName + " " + tt.table
			}
			if span.Name() != expectedName {
				t.Errorf("expected span name %q, got %q", expectedName, span.Name())
			}

			hasDBSystem := false
			hasDBTable := false
			for _, attr := range span.Attributes() {
				switch attr.Key {
				case "db.system":
					hasDBSystem = true
					if attr.Value.AsString() != "postgresql" {
						t.Errorf("expected db.system=postgresql, got %s", attr.Value.AsString())
					}
				case "db.operation":
					if attr.Value.AsString() != string(tt.operation) {
						t.Errorf("expected db.operation=%s, got %s", tt.operation, attr.Value.AsString())
					}
				case "db.sql.table":
					hasDBTable = true
					if attr.Value.AsString() != tt.table {
						t.Errorf("expected db.sql.table=%s, got %s", tt.table, attr.Value.AsString())
					}
				}
			}
			if !hasDBSystem {
				t.Error("missing db.system attribute")
			}
			if tt.table != "" && !hasDBTable {
				t.Error("missing db.sql.table attribute")
			}
			if tt.table == "" && hasDBTable {
				t.Error("unexpected db.sql.table attribute for empty table")
			}
		})
	}
}

func TestStartDBSpan_RecordsError(t *testing.T) {
	spanRecorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spanRecorder))
	otel.SetTracerProvider(tp)
	defer tp.Shutdown(context.Background())

	_, endSpan := StartDBSpan(context.Background(), "monetization_insights", DBOperationInsert)
	endSpan(errors.New("connection refused"))

	spans := spanRecorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}

	span := spans[0]
	if span.Status().Code != codes.Error {
		t.Errorf("expected error status, got %v", span.Status().Code)
	}
	if len(span.Events()) == 0 {
		t.Error("expected a recorded error event")
	}
}

func TestStartSpan(t *testing.T) {
	spanRecorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spanRecorder))
	otel.SetTracerProvider(tp)
	defer tp.Shutdown(context.Background())

	ctx, endSpan := StartSpan(context.Background(), "collect cycle")
	AddEvent(ctx, "location processed", attribute.String("location", "Tokyo"))
	SetAttributes(ctx, attribute.Int("locations", 10))
	endSpan(nil)

	spans := spanRecorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}

	span := spans[0]
	if span.Name() != "collect cycle" {
		t.Errorf("expected span name %q, got %q", "collect cycle", span.Name())
	}
	if len(span.Events()) != 1 {
		t.Fatalf("expected 1 event, got %d", len(span.Events()))
	}
	if span.Events()[0].Name != "location processed" {
		t.Errorf("unexpected event name %q", span.Events()[0].Name)
	}

	hasLocations := false
	for _, attr := range span.Attributes() {
		if attr.Key == "locations" && attr.Value.AsInt64() == 10 {
			hasLocations = true
		}
	}
	if !hasLocations {
		t.Error("missing locations attribute set via SetAttributes")
	}
}
