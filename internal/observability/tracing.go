package observability

import (
	"context"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer wraps an OpenTelemetry tracer with resolution-specific span creation methods.
type Tracer struct {
	tracer      trace.Tracer
	serviceName string
}

// NewTracer creates a new Tracer using the given TracerProvider.
func NewTracer(tp trace.TracerProvider, serviceName string) *Tracer {
	return &Tracer{
		tracer:      tp.Tracer(TracerName),
		serviceName: serviceName,
	}
}

// StartSpan starts a new span with the given name and attributes.
func (t *Tracer) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartResolution starts a span covering the resolution of one identifier.
// target is the scoping entity type or operation and may be empty.
func (t *Tracer) StartResolution(ctx context.Context, element, identifier, target string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		ElementAttr(element),
		IdentifierAttr(identifier),
	}
	if target != "" {
		attrs = append(attrs, TargetAttr(target))
	}
	return t.tracer.Start(ctx, "odata.resolve", trace.WithAttributes(attrs...))
}

// StartModelLoad starts a span for loading a model document.
func (t *Tracer) StartModelLoad(ctx context.Context, path string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "odata.model.load", trace.WithAttributes(
		attribute.String("odata.model.path", path),
	))
}

// StartRequest starts a span for an HTTP request.
func (t *Tracer) StartRequest(ctx context.Context, r *http.Request) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "odata.request", trace.WithAttributes(
		attribute.String("http.method", r.Method),
		attribute.String("http.url", r.URL.String()),
		attribute.String("http.route", r.URL.Path),
	))
}

// SetHTTPStatus sets the HTTP status code on the current span.
func (t *Tracer) SetHTTPStatus(ctx context.Context, statusCode int) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.Int("http.status_code", statusCode))
	if statusCode >= 400 {
		span.SetStatus(codes.Error, http.StatusText(statusCode))
	}
}

// StartDBQuery starts a span for an audit store query.
func (t *Tracer) StartDBQuery(ctx context.Context, operation string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "db.query", trace.WithAttributes(
		attribute.String("db.operation", operation),
	))
}

// RecordError records an error on the span.
func (t *Tracer) RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// LoggerWithTrace returns a logger enriched with trace context.
func LoggerWithTrace(ctx context.Context, logger *slog.Logger) *slog.Logger {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return logger
	}
	return logger.With(
		slog.String(LogFieldTraceID, span.SpanContext().TraceID().String()),
		slog.String(LogFieldSpanID, span.SpanContext().SpanID().String()),
	)
}
