package observability

import (
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Config holds the observability configuration.
type Config struct {
	// TracerProvider is the OpenTelemetry tracer provider.
	// If nil, tracing is disabled.
	TracerProvider trace.TracerProvider

	// MeterProvider is the OpenTelemetry meter provider.
	// If nil, metrics collection is disabled.
	MeterProvider metric.MeterProvider

	// ServiceName is used to identify this service in traces and metrics.
	ServiceName string

	// ServiceVersion is the version of this service.
	ServiceVersion string

	// EnableDetailedDBTracing enables tracing for individual audit store queries.
	EnableDetailedDBTracing bool

	// EnableServerTiming enables the Server-Timing HTTP response header.
	EnableServerTiming bool

	// Logger receives resolution debug output. slog.Default() when nil.
	Logger *slog.Logger

	tracer  *Tracer
	metrics *Metrics
}

// Option is a functional option for configuring observability.
type Option func(*Config)

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Config) {
		c.TracerProvider = tp
	}
}

// WithMeterProvider sets the meter provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *Config) {
		c.MeterProvider = mp
	}
}

// WithServiceName sets the service name for identification.
func WithServiceName(name string) Option {
	return func(c *Config) {
		c.ServiceName = name
	}
}

// WithServiceVersion sets the service version for identification.
func WithServiceVersion(version string) Option {
	return func(c *Config) {
		c.ServiceVersion = version
	}
}

// WithDetailedDBTracing enables audit store query tracing.
func WithDetailedDBTracing() Option {
	return func(c *Config) {
		c.EnableDetailedDBTracing = true
	}
}

// WithServerTiming enables the Server-Timing HTTP response header.
func WithServerTiming() Option {
	return func(c *Config) {
		c.EnableServerTiming = true
	}
}

// WithLogger sets the logger used for resolution debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// NewConfig creates a new observability configuration with the given options.
func NewConfig(opts ...Option) *Config {
	cfg := &Config{
		ServiceName: "odata-resolver",
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return cfg
}

// Initialize sets up the tracer and metrics based on configuration.
// This should be called after all options are set.
func (c *Config) Initialize() error {
	if c.TracerProvider != nil {
		c.tracer = NewTracer(c.TracerProvider, c.ServiceName)
	} else {
		c.tracer = NewNoopTracer()
	}

	if c.MeterProvider != nil {
		m, err := NewMetrics(c.MeterProvider)
		if err != nil {
			return err
		}
		c.metrics = m
	} else {
		c.metrics = NewNoopMetrics()
	}

	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return nil
}

// Tracer returns the configured tracer, or a no-op tracer if not configured.
func (c *Config) Tracer() *Tracer {
	if c == nil || c.tracer == nil {
		return NewNoopTracer()
	}
	return c.tracer
}

// Metrics returns the configured metrics, or a no-op metrics if not configured.
func (c *Config) Metrics() *Metrics {
	if c == nil || c.metrics == nil {
		return NewNoopMetrics()
	}
	return c.metrics
}

// IsEnabled returns true if any observability features are configured.
func (c *Config) IsEnabled() bool {
	return c != nil && (c.TracerProvider != nil || c.MeterProvider != nil)
}

// ServerTimingEnabled returns true if Server-Timing header is enabled.
func (c *Config) ServerTimingEnabled() bool {
	return c != nil && c.EnableServerTiming
}

func (c *Config) logger() *slog.Logger {
	if c == nil || c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}
