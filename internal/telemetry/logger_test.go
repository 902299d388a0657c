package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestNewLogger_AddsTraceContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf)

	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	logger.InfoContext(ctx, "inside span")
	span.End()

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode log record: %v", err)
	}
	if record["trace_id"] != span.SpanContext().TraceID().String() {
		t.Fatalf("want trace_id %s, got %v", span.SpanContext().TraceID(), record["trace_id"])
	}
	if record["span_id"] != span.SpanContext().SpanID().String() {
		t.Fatalf("want span_id %s, got %v", span.SpanContext().SpanID(), record["span_id"])
	}
}

func TestNewLogger_WithoutSpan(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf).With("component", "test").Info("plain")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode log record: %v", err)
	}
	if _, ok := record["trace_id"]; ok {
		t.Fatal("unexpected trace_id outside a span")
	}
	if record["component"] != "test" {
		t.Fatalf("want component attr, got %v", record["component"])
	}
}

func TestNewTracerProvider_NoEndpoint(t *testing.T) {
	tp, err := NewTracerProvider(context.Background(), "", "products-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tp.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
