// Package telemetry provides the structured logging and tracing interfaces
// used throughout MagicTunnel. Implementations typically delegate to
// goa.design/clue/log and OpenTelemetry, but the interfaces are intentionally
// small so callers and tests can supply lightweight stubs.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Logger captures structured logging. Keyvals are alternating key/value
// pairs, e.g. Logger.Info(ctx, "dispatched", "tool", name, "attempt", 2).
type Logger interface {
	Debug(ctx context.Context, msg string, keyvals ...any)
	Info(ctx context.Context, msg string, keyvals ...any)
	Warn(ctx context.Context, msg string, keyvals ...any)
	Error(ctx context.Context, msg string, keyvals ...any)
}

// Tracer abstracts span creation so callers remain agnostic of the underlying
// OpenTelemetry provider.
type Tracer interface {
	Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, Span)
	Span(ctx context.Context) Span
}

// Span represents an in-flight tracing span.
type Span interface {
	End(opts ...trace.SpanEndOption)
	AddEvent(name string, attrs ...any)
	SetStatus(code codes.Code, description string)
	RecordError(err error, opts ...trace.EventOption)
}
