package observability

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the resolution metric instruments.
type Metrics struct {
	resolutionCount   metric.Int64Counter
	resolutionMatches metric.Int64Histogram
	failureCount      metric.Int64Counter
	requestDuration   metric.Float64Histogram
	dbQueryDuration   metric.Float64Histogram
}

// NewMetrics creates a new Metrics instance with the given MeterProvider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(MeterName)
	m := &Metrics{}

	var errs []error
	var err error

	m.resolutionCount, err = meter.Int64Counter(
		"odata.resolve.count",
		metric.WithDescription("Number of identifier resolutions by element kind and outcome"),
		metric.WithUnit("{resolution}"),
	)
	errs = append(errs, err)

	m.resolutionMatches, err = meter.Int64Histogram(
		"odata.resolve.matches",
		metric.WithDescription("Number of elements returned per resolution"),
		metric.WithUnit("{element}"),
	)
	errs = append(errs, err)

	m.failureCount, err = meter.Int64Counter(
		"odata.resolve.failures",
		metric.WithDescription("Number of failed resolutions by error kind"),
		metric.WithUnit("{error}"),
	)
	errs = append(errs, err)

	m.requestDuration, err = meter.Float64Histogram(
		"odata.request.duration",
		metric.WithDescription("Duration of resolution requests in milliseconds"),
		metric.WithUnit("ms"),
	)
	errs = append(errs, err)

	m.dbQueryDuration, err = meter.Float64Histogram(
		"odata.db.query.duration",
		metric.WithDescription("Duration of audit store queries in milliseconds"),
		metric.WithUnit("ms"),
	)
	errs = append(errs, err)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordResolution records one resolution outcome.
func (m *Metrics) RecordResolution(ctx context.Context, element, outcome, errorKind string, matches int) {
	attrs := metric.WithAttributes(ElementAttr(element), OutcomeAttr(outcome))
	m.resolutionCount.Add(ctx, 1, attrs)
	m.resolutionMatches.Record(ctx, int64(matches), metric.WithAttributes(ElementAttr(element)))
	if errorKind != "" {
		m.failureCount.Add(ctx, 1, metric.WithAttributes(ElementAttr(element), ErrorKindAttr(errorKind)))
	}
}

// RecordRequest records metrics for a completed HTTP resolution request.
func (m *Metrics) RecordRequest(ctx context.Context, element string, statusCode int, duration time.Duration) {
	attrs := metric.WithAttributes(
		ElementAttr(element),
		attribute.Int("http.status_code", statusCode),
	)
	m.requestDuration.Record(ctx, float64(duration.Microseconds())/1000, attrs)
}

// RecordDBQuery records metrics for an audit store query.
func (m *Metrics) RecordDBQuery(ctx context.Context, operation string, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String("db.operation", operation))
	m.dbQueryDuration.Record(ctx, float64(duration.Microseconds())/1000, attrs)
}
