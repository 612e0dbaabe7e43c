package observability

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nlstn/odata-resolver/internal/resolver"
)

// ResolutionObserver records resolution events as metrics, span events and
// debug log lines. Its context supplies the active span and trace ids.
type ResolutionObserver struct {
	ctx     context.Context
	metrics *Metrics
	logger  *slog.Logger
}

var _ resolver.Observer = (*ResolutionObserver)(nil)

// Observer returns a resolver.Observer bound to ctx.
func (c *Config) Observer(ctx context.Context) *ResolutionObserver {
	if ctx == nil {
		ctx = context.Background()
	}
	return &ResolutionObserver{
		ctx:     ctx,
		metrics: c.Metrics(),
		logger:  LoggerWithTrace(ctx, c.logger()),
	}
}

// ObserveResolution implements resolver.Observer.
func (o *ResolutionObserver) ObserveResolution(e resolver.Event) {
	element := string(e.Element)
	outcome := e.Outcome.String()

	var errorKind string
	if e.Err != nil {
		errorKind = resolver.KindOf(e.Err).String()
	}
	o.metrics.RecordResolution(o.ctx, element, outcome, errorKind, e.Matches)

	span := trace.SpanFromContext(o.ctx)
	if span.IsRecording() {
		attrs := []attribute.KeyValue{
			ElementAttr(element),
			IdentifierAttr(e.Identifier),
			OutcomeAttr(outcome),
			attribute.Int(AttrMatches, e.Matches),
		}
		if e.Target != "" {
			attrs = append(attrs, TargetAttr(e.Target))
		}
		if errorKind != "" {
			attrs = append(attrs, ErrorKindAttr(errorKind))
		}
		span.AddEvent("resolution", trace.WithAttributes(attrs...))
	}

	if e.Err != nil {
		o.logger.Debug("resolution failed",
			slog.String(LogFieldElement, element),
			slog.String(LogFieldIdentifier, e.Identifier),
			slog.String(LogFieldError, e.Err.Error()))
	}
}
