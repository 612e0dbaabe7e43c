package observability

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// HTTPMiddleware returns an HTTP middleware that instruments requests with tracing.
// It uses otelhttp for span propagation and HTTP semantic attributes.
func HTTPMiddleware(cfg *Config) func(http.Handler) http.Handler {
	if cfg == nil || cfg.TracerProvider == nil {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "odata.resolve.http",
			otelhttp.WithTracerProvider(cfg.TracerProvider),
			otelhttp.WithMeterProvider(cfg.MeterProvider),
		)
	}
}
