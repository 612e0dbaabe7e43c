package observability

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	servertiming "github.com/mitchellh/go-server-timing"
)

// ServerTimingMetric wraps the server-timing library's Metric type.
type ServerTimingMetric struct {
	metric *servertiming.Metric
}

// Stop stops the timing metric.
func (m *ServerTimingMetric) Stop() {
	if m != nil && m.metric != nil {
		m.metric.Stop()
	}
}

// StartServerTiming starts a server-timing metric with the given name.
// If the context carries no timing header, a no-op metric is returned.
func StartServerTiming(ctx context.Context, name string) *ServerTimingMetric {
	timing := servertiming.FromContext(ctx)
	if timing == nil {
		return &ServerTimingMetric{}
	}

	return &ServerTimingMetric{
		metric: timing.NewMetric(name).Start(),
	}
}

// StartServerTimingWithDesc starts a server-timing metric with the given name and description.
func StartServerTimingWithDesc(ctx context.Context, name, description string) *ServerTimingMetric {
	timing := servertiming.FromContext(ctx)
	if timing == nil {
		return &ServerTimingMetric{}
	}

	return &ServerTimingMetric{
		metric: timing.NewMetric(name).WithDesc(description).Start(),
	}
}

// ServerTimingMiddleware attaches a Server-Timing header to every response
// when enabled, and reports accumulated audit store time as the "db" metric.
func ServerTimingMiddleware(cfg *Config) func(http.Handler) http.Handler {
	if !cfg.ServerTimingEnabled() {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return func(next http.Handler) http.Handler {
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithDBTimeAccumulator(r.Context())
			next.ServeHTTP(&dbTimingWriter{ResponseWriter: w, ctx: ctx}, r.WithContext(ctx))
		})
		return servertiming.Middleware(inner, nil)
	}
}

// dbTimingWriter adds the "db" metric just before the header is written.
type dbTimingWriter struct {
	http.ResponseWriter
	ctx     context.Context
	flushed bool
}

func (w *dbTimingWriter) WriteHeader(code int) {
	if !w.flushed {
		w.flushed = true
		if acc := DBTimeAccumulatorFromContext(w.ctx); acc != nil && acc.Duration() > 0 {
			if timing := servertiming.FromContext(w.ctx); timing != nil {
				m := timing.NewMetric("db").WithDesc("audit store")
				m.Duration = acc.Duration()
			}
		}
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *dbTimingWriter) Write(b []byte) (int, error) {
	if !w.flushed {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// DBTimeAccumulator sums database time spent on behalf of one request.
// It is safe for concurrent use.
type DBTimeAccumulator struct {
	nanos atomic.Int64
}

// Add adds d to the total.
func (a *DBTimeAccumulator) Add(d time.Duration) {
	a.nanos.Add(int64(d))
}

// Duration returns the accumulated total.
func (a *DBTimeAccumulator) Duration() time.Duration {
	return time.Duration(a.nanos.Load())
}

type dbTimeKey struct{}

// WithDBTimeAccumulator returns a context carrying a fresh accumulator.
func WithDBTimeAccumulator(ctx context.Context) context.Context {
	return context.WithValue(ctx, dbTimeKey{}, &DBTimeAccumulator{})
}

// DBTimeAccumulatorFromContext returns the accumulator stored in ctx, or nil.
func DBTimeAccumulatorFromContext(ctx context.Context) *DBTimeAccumulator {
	acc, _ := ctx.Value(dbTimeKey{}).(*DBTimeAccumulator) //nolint:errcheck
	return acc
}

// AddDBTime adds d to the accumulator in ctx. It is a no-op without one.
func AddDBTime(ctx context.Context, d time.Duration) {
	if acc := DBTimeAccumulatorFromContext(ctx); acc != nil {
		acc.Add(d)
	}
}
