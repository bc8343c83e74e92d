package telemetry

import (
	"context"
	"errors"
	"net/http"

	"github.com/retailcore/backoffice/internal/domain/shared"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope for business spans
const TracerName = "retail-backoffice"

// StartSpan starts an internal span named {service}.{method}. The caller ends it.
//
//	ctx, span := telemetry.StartSpan(ctx, "sale", "create", attribute.Int("items", n))
//	defer span.End()
func StartSpan(ctx context.Context, service, method string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, service+"."+method,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// StartClientSpan starts a span for a call to a remote service
func StartClientSpan(ctx context.Context, peer, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("peer.service", peer))
	return otel.Tracer(TracerName).Start(ctx, peer+"."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
}

// RecordError marks the span failed. Business refusals (stock, state,
// validation) are recorded as events and leave the span status unset.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) && domainErr.Code != shared.CodeFiscalAuthority {
		span.AddEvent("business_refusal", trace.WithAttributes(attribute.String("error.code", domainErr.Code)))
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// InjectHTTP writes the trace context of ctx into outgoing request headers
func InjectHTTP(ctx context.Context, header http.Header) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(header))
}
