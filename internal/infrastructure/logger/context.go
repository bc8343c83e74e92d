package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const (
	loggerKey    contextKey = "logger"
	requestIDKey contextKey = "request_id"
	actorKey     contextKey = "actor"
)

// actorFields is what the log line needs to know about the caller
type actorFields struct {
	id   string
	role string
}

// WithContext returns a new context with the logger attached
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext retrieves the logger from context, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithRequestID stores the request id for log correlation
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestID retrieves the request id from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithActor stores the authenticated caller for log correlation
func WithActor(ctx context.Context, actorID, role string) context.Context {
	return context.WithValue(ctx, actorKey, actorFields{id: actorID, role: role})
}

// GetActorID retrieves the caller id from context
func GetActorID(ctx context.Context) string {
	if a, ok := ctx.Value(actorKey).(actorFields); ok {
		return a.id
	}
	return ""
}

// Fields returns the correlation fields carried by ctx: trace and span ids
// of the active span, request id and actor.
func Fields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 5)

	if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
		fields = append(fields,
			zap.String("trace_id", spanCtx.TraceID().String()),
			zap.String("span_id", spanCtx.SpanID().String()),
		)
	}
	if requestID := GetRequestID(ctx); requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	if a, ok := ctx.Value(actorKey).(actorFields); ok {
		fields = append(fields, zap.String("actor_id", a.id))
		if a.role != "" {
			fields = append(fields, zap.String("actor_role", a.role))
		}
	}
	return fields
}

// L returns the context's logger enriched with its correlation fields.
// Usage: logger.L(ctx).Info("sale created", zap.String("sale_id", id))
func L(ctx context.Context) *zap.Logger {
	return FromContext(ctx).With(Fields(ctx)...)
}
