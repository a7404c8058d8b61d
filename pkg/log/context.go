package log

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

type contextKey struct{}

var loggerContextKey = contextKey{}

// ContextWithLogger attaches the logger to the context. A nil logger is
// replaced with a NoopLogger.
func ContextWithLogger(ctx context.Context, lg Logger) context.Context {
	if lg == nil {
		lg = NewNoopLogger()
	}
	return context.WithValue(ctx, loggerContextKey, lg)
}

// FromContext retrieves the logger stored in the context, falling back to a
// NoopLogger. When the context carries a valid OpenTelemetry span, the
// returned logger is enriched with the trace and span ids so that log lines
// can be correlated with traces.
func FromContext(ctx context.Context) Logger {
	lg, ok := ctx.Value(loggerContextKey).(Logger)
	if !ok {
		return NewNoopLogger()
	}

	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return lg
	}
	return lg.WithKV("traceId", sc.TraceID().String()).WithKV("spanId", sc.SpanID().String())
}
