// Package xlog wires structured logging and tracing for one generation
// session. It mirrors the runtime telemetry shape the rest of this
// generator's domain uses: a small Logger interface callers can stub in
// tests, and spans created through go.opentelemetry.io/otel/trace so a host
// embedding this generator in a larger build pipeline gets the same trace
// propagation story as the rest of its pipeline. No metrics/exporters are
// wired here; spans are no-ops unless the host supplies a real
// TracerProvider.
package xlog

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Logger captures the structured logging calls this generator makes.
// Implementations typically delegate to the host's own logger; tests can
// provide a lightweight stub.
type Logger interface {
	Debug(ctx context.Context, msg string, keyvals ...any)
	Info(ctx context.Context, msg string, keyvals ...any)
	Warn(ctx context.Context, msg string, keyvals ...any)
	Error(ctx context.Context, msg string, keyvals ...any)
}

// NopLogger discards every call. Used when the host supplies no Logger.
type NopLogger struct{}

func (NopLogger) Debug(context.Context, string, ...any) {}
func (NopLogger) Info(context.Context, string, ...any)  {}
func (NopLogger) Warn(context.Context, string, ...any)  {}
func (NopLogger) Error(context.Context, string, ...any) {}

const tracerName = "github.com/win32gen/win32gen"

// StartSpan starts a span named name under the global TracerProvider
// (a no-op provider until the host sets one via otel.SetTracerProvider).
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, opts...)
}

// EndSpan records err (if non-nil) on span and ends it, matching the
// runtime's record-error-then-end convention for every traced call site.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
