package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestNewConfig(t *testing.T) {
	cfg := NewConfig(
		WithServiceName("test-service"),
		WithServiceVersion("1.2.3"),
		WithDetailedDBTracing(),
		WithServerTiming(),
	)

	if cfg.ServiceName != "test-service" {
		t.Errorf("expected service name 'test-service', got '%s'", cfg.ServiceName)
	}
	if cfg.ServiceVersion != "1.2.3" {
		t.Errorf("expected service version '1.2.3', got '%s'", cfg.ServiceVersion)
	}
	if !cfg.EnableDetailedDBTracing {
		t.Error("expected detailed DB tracing to be enabled")
	}
	if !cfg.ServerTimingEnabled() {
		t.Error("expected server timing to be enabled")
	}
}

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()
	if cfg.ServiceName != "odata-resolver" {
		t.Errorf("expected default service name, got '%s'", cfg.ServiceName)
	}
	if cfg.IsEnabled() {
		t.Error("expected observability to be disabled without providers")
	}
}

func TestConfigInitialize(t *testing.T) {
	cfg := NewConfig(
		WithTracerProvider(tracenoop.NewTracerProvider()),
		WithMeterProvider(noop.NewMeterProvider()),
	)

	if err := cfg.Initialize(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Tracer() == nil {
		t.Error("expected tracer to be initialized")
	}
	if cfg.Metrics() == nil {
		t.Error("expected metrics to be initialized")
	}
	if cfg.Logger == nil {
		t.Error("expected logger to default after Initialize")
	}
	if !cfg.IsEnabled() {
		t.Error("expected observability to be enabled")
	}
}

func TestNilConfig(t *testing.T) {
	var cfg *Config
	if cfg.Tracer() == nil {
		t.Error("expected noop tracer from nil config")
	}
	if cfg.Metrics() == nil {
		t.Error("expected noop metrics from nil config")
	}
	if cfg.IsEnabled() || cfg.ServerTimingEnabled() {
		t.Error("nil config must report everything disabled")
	}
}

func TestHTTPMiddlewarePassthrough(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	})

	handler := HTTPMiddleware(nil)(next)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/resolve/type", nil))

	if !called {
		t.Error("expected wrapped handler to be called")
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
}

func TestHTTPMiddlewareWithTracing(t *testing.T) {
	cfg := NewConfig(WithTracerProvider(tracenoop.NewTracerProvider()))
	if err := cfg.Initialize(); err != nil {
		t.Fatal(err)
	}

	handler := HTTPMiddleware(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/resolve/type", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestServerTimingMiddlewareDisabled(t *testing.T) {
	handler := ServerTimingMiddleware(NewConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if DBTimeAccumulatorFromContext(r.Context()) != nil {
			t.Error("expected no accumulator when server timing is disabled")
		}
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Header().Get("Server-Timing") != "" {
		t.Error("expected no Server-Timing header")
	}
}

func TestServerTimingMiddlewareReportsDBTime(t *testing.T) {
	handler := ServerTimingMiddleware(NewConfig(WithServerTiming()))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := StartServerTiming(r.Context(), "resolve")
		AddDBTime(r.Context(), 5*time.Millisecond)
		m.Stop()
		_, _ = w.Write([]byte("ok"))
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	header := rec.Header().Get("Server-Timing")
	if !strings.Contains(header, "resolve") {
		t.Errorf("expected resolve metric in header, got %q", header)
	}
	if !strings.Contains(header, "db") {
		t.Errorf("expected db metric in header, got %q", header)
	}
}

func TestServerTimingNoContext(t *testing.T) {
	m := StartServerTiming(context.Background(), "resolve")
	m.Stop()
	StartServerTimingWithDesc(context.Background(), "resolve", "identifier").Stop()
	(&ServerTimingMetric{}).Stop()
}

func TestDBTimeAccumulator(t *testing.T) {
	acc := &DBTimeAccumulator{}
	acc.Add(10 * time.Millisecond)
	acc.Add(20 * time.Millisecond)
	acc.Add(30 * time.Millisecond)

	if got := acc.Duration(); got != 60*time.Millisecond {
		t.Errorf("expected 60ms, got %v", got)
	}
}

func TestDBTimeAccumulatorConcurrent(t *testing.T) {
	acc := &DBTimeAccumulator{}

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				acc.Add(time.Millisecond)
			}
			done <- struct{}{}
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	if got := acc.Duration(); got != time.Second {
		t.Errorf("expected 1s, got %v", got)
	}
}

func TestAddDBTime(t *testing.T) {
	if DBTimeAccumulatorFromContext(context.Background()) != nil {
		t.Error("expected nil accumulator from background context")
	}
	AddDBTime(context.Background(), time.Millisecond)

	ctx := WithDBTimeAccumulator(context.Background())
	AddDBTime(ctx, 50*time.Millisecond)
	AddDBTime(ctx, 100*time.Millisecond)

	acc := DBTimeAccumulatorFromContext(ctx)
	if acc == nil {
		t.Fatal("accumulator should not be nil")
	}
	if got := acc.Duration(); got != 150*time.Millisecond {
		t.Errorf("expected 150ms, got %v", got)
	}
}

type auditRow struct {
	ID         int `gorm:"primarykey"`
	Identifier string
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}
	if err := db.AutoMigrate(&auditRow{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func TestServerTimingCallbacksIntegration(t *testing.T) {
	db := openTestDB(t)
	if err := RegisterServerTimingCallbacks(db); err != nil {
		t.Fatalf("failed to register callbacks: %v", err)
	}

	ctx := WithDBTimeAccumulator(context.Background())
	if err := db.WithContext(ctx).Create(&auditRow{ID: 1, Identifier: "Products"}).Error; err != nil {
		t.Fatalf("failed to create: %v", err)
	}

	acc := DBTimeAccumulatorFromContext(ctx)
	first := acc.Duration()
	if first == 0 {
		t.Error("expected non-zero database time after Create")
	}

	var rows []auditRow
	if err := db.WithContext(ctx).Find(&rows).Error; err != nil {
		t.Fatalf("failed to find: %v", err)
	}
	if acc.Duration() <= first {
		t.Errorf("expected duration to grow after Find, got before=%v after=%v", first, acc.Duration())
	}
}

func TestGORMCallbacksSkippedWithoutTracing(t *testing.T) {
	db := openTestDB(t)
	if err := RegisterGORMCallbacks(db, NewConfig(WithDetailedDBTracing())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if db.Callback().Query().Get("odata:before_query") != nil {
		t.Error("expected no tracing callback without a tracer provider")
	}
}

func TestGORMCallbacksRegistered(t *testing.T) {
	db := openTestDB(t)
	cfg := NewConfig(
		WithTracerProvider(tracenoop.NewTracerProvider()),
		WithMeterProvider(noop.NewMeterProvider()),
		WithDetailedDBTracing(),
	)
	if err := cfg.Initialize(); err != nil {
		t.Fatal(err)
	}
	if err := RegisterGORMCallbacks(db, cfg); err != nil {
		t.Fatalf("failed to register callbacks: %v", err)
	}
	if db.Callback().Create().Get("odata:after_create") == nil {
		t.Error("expected create callback to be registered")
	}

	if err := db.Create(&auditRow{ID: 7, Identifier: "Featured"}).Error; err != nil {
		t.Fatalf("failed to create: %v", err)
	}
	var row auditRow
	if err := db.First(&row, 7).Error; err != nil {
		t.Fatalf("failed to read back: %v", err)
	}
	if row.Identifier != "Featured" {
		t.Errorf("expected Featured, got %q", row.Identifier)
	}
}
