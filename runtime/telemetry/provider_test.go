package telemetry

import (
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestTracer_NilProvider(t *testing.T) {
	if Tracer(nil) == nil {
		t.Fatal("expected non-nil tracer")
	}
}

func TestTracer_WithProvider(t *testing.T) {
	if Tracer(noop.NewTracerProvider()) == nil {
		t.Fatal("expected non-nil tracer")
	}
}

func TestSetupPropagation(t *testing.T) {
	orig := otel.GetTextMapPropagator()
	defer otel.SetTextMapPropagator(orig)

	SetupPropagation()

	found := false
	for _, f := range otel.GetTextMapPropagator().Fields() {
		if f == "traceparent" {
			found = true
			break
		}
	}
	if !found {
		t.Error("expected propagator to handle 'traceparent'")
	}
}

func TestNewTracerProvider(t *testing.T) {
	// The exporter connects lazily, so an unreachable endpoint is fine here.
	tp, err := NewTracerProvider(t.Context(), "http://localhost:0/v1/traces", "test-service")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer func() { _ = tp.Shutdown(t.Context()) }()

	var _ trace.TracerProvider = tp
}

func TestSetup_Disabled(t *testing.T) {
	orig := otel.GetTracerProvider()

	tp, shutdown, err := Setup(t.Context(), "", "promptkiosk")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := tp.(noop.TracerProvider); !ok {
		t.Errorf("expected noop provider, got %T", tp)
	}
	if err := shutdown(t.Context()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
	if otel.GetTracerProvider() != orig {
		t.Error("disabled setup must not replace the global provider")
	}
}
