// Package observability provides OpenTelemetry-based instrumentation for
// identifier resolution.
//
// It supports distributed tracing, metrics collection, Server-Timing headers
// and trace-enriched structured logging.
//
// All observability features are opt-in. When not configured, no-op
// implementations are used.
package observability

import "go.opentelemetry.io/otel/attribute"

// Instrumentation identity constants
const (
	// TracerName is the instrumentation name for tracing.
	TracerName = "github.com/nlstn/odata-resolver"
	// MeterName is the instrumentation name for metrics.
	MeterName = "github.com/nlstn/odata-resolver"
)

// Resolution attribute keys.
const (
	AttrElement    = "odata.resolve.element"
	AttrIdentifier = "odata.resolve.identifier"
	AttrTarget     = "odata.resolve.target"
	AttrOutcome    = "odata.resolve.outcome"
	AttrMatches    = "odata.resolve.matches"
	AttrErrorKind  = "odata.resolve.error_kind"

	AttrModelFingerprint = "odata.model.fingerprint"
)

// Log field keys for structured logging with trace context.
const (
	LogFieldTraceID    = "trace_id"
	LogFieldSpanID     = "span_id"
	LogFieldElement    = "element"
	LogFieldIdentifier = "identifier"
	LogFieldDuration   = "duration_ms"
	LogFieldError      = "error"
)

// ElementAttr creates an attribute for the kind of element being resolved.
func ElementAttr(element string) attribute.KeyValue {
	return attribute.String(AttrElement, element)
}

// IdentifierAttr creates an attribute for the identifier text.
func IdentifierAttr(identifier string) attribute.KeyValue {
	return attribute.String(AttrIdentifier, identifier)
}

// TargetAttr creates an attribute for the scoping type or operation.
func TargetAttr(target string) attribute.KeyValue {
	return attribute.String(AttrTarget, target)
}

// OutcomeAttr creates an attribute for the resolution outcome.
func OutcomeAttr(outcome string) attribute.KeyValue {
	return attribute.String(AttrOutcome, outcome)
}

// ErrorKindAttr creates an attribute for the resolution error kind.
func ErrorKindAttr(kind string) attribute.KeyValue {
	return attribute.String(AttrErrorKind, kind)
}
