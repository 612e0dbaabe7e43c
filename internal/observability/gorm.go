package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const (
	gormSpanKey        = "odata:gorm:span"
	gormStartTimeKey   = "odata:gorm:start"
	gormTimingStartKey = "odata:gorm:timing_start"
	gormTimingPrefix   = "odata_server_timing"
)

type callbackRegistrar interface {
	Register(name string, fn func(*gorm.DB)) error
}

// gormHook pairs the before and after registration points of one GORM processor.
type gormHook struct {
	name      string
	operation string
	before    callbackRegistrar
	after     callbackRegistrar
}

func gormHooks(db *gorm.DB) []gormHook {
	cb := db.Callback()
	return []gormHook{
		{"query", "SELECT", cb.Query().Before("gorm:query"), cb.Query().After("gorm:query")},
		{"create", "INSERT", cb.Create().Before("gorm:create"), cb.Create().After("gorm:create")},
		{"update", "UPDATE", cb.Update().Before("gorm:update"), cb.Update().After("gorm:update")},
		{"delete", "DELETE", cb.Delete().Before("gorm:delete"), cb.Delete().After("gorm:delete")},
		{"row", "ROW", cb.Row().Before("gorm:row"), cb.Row().After("gorm:row")},
		{"raw", "RAW", cb.Raw().Before("gorm:raw"), cb.Raw().After("gorm:raw")},
	}
}

// RegisterGORMCallbacks registers GORM callbacks for audit store query tracing.
// This should be called after GORM is initialized and observability is configured.
func RegisterGORMCallbacks(db *gorm.DB, cfg *Config) error {
	if cfg == nil || cfg.TracerProvider == nil || !cfg.EnableDetailedDBTracing {
		return nil
	}

	tracer := cfg.Tracer()
	for _, h := range gormHooks(db) {
		spanName := "db." + h.name
		operation := h.operation
		if err := h.before.Register("odata:before_"+h.name, func(db *gorm.DB) {
			startSpan(db, tracer, spanName)
		}); err != nil {
			return err
		}
		if err := h.after.Register("odata:after_"+h.name, func(db *gorm.DB) {
			endSpan(db, tracer, cfg, operation)
		}); err != nil {
			return err
		}
	}
	return nil
}

// RegisterServerTimingCallbacks registers GORM callbacks that add the duration
// of each statement to the request's DBTimeAccumulator.
// They work without OpenTelemetry.
func RegisterServerTimingCallbacks(db *gorm.DB) error {
	for _, h := range gormHooks(db) {
		if err := h.before.Register(gormTimingPrefix+":before_"+h.name, beforeTiming); err != nil {
			return err
		}
		if err := h.after.Register(gormTimingPrefix+":after_"+h.name, afterTiming); err != nil {
			return err
		}
	}
	return nil
}

func beforeTiming(db *gorm.DB) {
	db.InstanceSet(gormTimingStartKey, time.Now())
}

func afterTiming(db *gorm.DB) {
	startTime, ok := instanceTime(db, gormTimingStartKey)
	if !ok {
		return
	}
	if db.Statement != nil && db.Statement.Context != nil {
		AddDBTime(db.Statement.Context, time.Since(startTime))
	}
}

func instanceTime(db *gorm.DB, key string) (time.Time, bool) {
	v, ok := db.InstanceGet(key)
	if !ok {
		return time.Time{}, false
	}
	t, ok := v.(time.Time)
	return t, ok
}

func startSpan(db *gorm.DB, tracer *Tracer, spanName string) {
	ctx := db.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, span := tracer.StartSpan(ctx, spanName,
		attribute.String("db.system", db.Dialector.Name()),
	)

	db.Statement.Context = ctx
	db.InstanceSet(gormSpanKey, span)
	db.InstanceSet(gormStartTimeKey, time.Now())
}

func endSpan(db *gorm.DB, tracer *Tracer, cfg *Config, operation string) {
	spanVal, ok := db.InstanceGet(gormSpanKey)
	if !ok {
		return
	}
	span, ok := spanVal.(trace.Span)
	if !ok {
		return
	}
	defer span.End()

	if db.Statement != nil {
		if table := db.Statement.Table; table != "" {
			span.SetAttributes(attribute.String("db.sql.table", table))
		}
		span.SetAttributes(attribute.Int64("db.rows_affected", db.RowsAffected))
	}

	tracer.RecordError(span, db.Error)

	if startTime, ok := instanceTime(db, gormStartTimeKey); ok {
		cfg.Metrics().RecordDBQuery(db.Statement.Context, operation, time.Since(startTime))
	}
}
