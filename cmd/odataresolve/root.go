package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	odata "github.com/nlstn/odata-resolver"
	"github.com/nlstn/odata-resolver/internal/audit"
	"github.com/nlstn/odata-resolver/internal/observability"
)

const defaultAuditPath = "odataresolve-audit.db"

// options holds the persistent flags shared by every subcommand.
type options struct {
	modelPath       string
	caseInsensitive bool
	alternateKeys   bool
	enumAsString    bool
	unqualified     bool
	legacyIndex     bool
	logLevel        string
	otel            bool
	serverTiming    bool
	dbTracing       bool
	auditDB         string
	auditDSN        string
	auditMisses     bool

	stderr io.Writer
}

func newRootCmd() *cobra.Command {
	opts := &options{stderr: os.Stderr}
	cmd := &cobra.Command{
		Use:           "odataresolve",
		Short:         "Resolve OData identifiers against a model description",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	f := cmd.PersistentFlags()
	f.StringVarP(&opts.modelPath, "model", "m", "", "Path to the YAML model description")
	f.BoolVarP(&opts.caseInsensitive, "case-insensitive", "i", false, "Fall back to case-insensitive matching")
	f.BoolVar(&opts.alternateKeys, "alternate-keys", false, "Try alternate keys when the primary key does not match")
	f.BoolVar(&opts.enumAsString, "enum-as-string", false, "Accept string literals where enum values are expected")
	f.BoolVar(&opts.unqualified, "unqualified", false, "Resolve operations by their unqualified name")
	f.BoolVar(&opts.legacyIndex, "legacy-index", false, "Fold case with upper-case index keys")
	f.StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	f.BoolVar(&opts.otel, "otel", false, "Report traces and metrics to the global OpenTelemetry providers")
	f.BoolVar(&opts.serverTiming, "server-timing", false, "Add Server-Timing headers to HTTP responses")
	f.BoolVar(&opts.dbTracing, "db-tracing", false, "Trace audit store queries (requires --otel)")
	f.StringVar(&opts.auditDB, "audit-db", "", "Record failed resolutions in a database: sqlite or postgres")
	f.StringVar(&opts.auditDSN, "audit-dsn", "", "Audit database DSN. For postgres, falls back to DATABASE_URL")
	f.BoolVar(&opts.auditMisses, "audit-misses", false, "Also record resolutions that found nothing")

	cmd.AddCommand(newResolveCmd(opts), newServeCmd(opts), newAuditCmd(opts))
	return cmd
}

// app is the state assembled from options for one command run.
type app struct {
	logger   *slog.Logger
	obs      *observability.Config
	model    odata.Model
	resolver *odata.Resolver
	store    *audit.Store
}

// open builds the logger, observability, model, resolver and, when
// requested, the audit store. needModel is false for commands that only read
// the audit database.
func (o *options) open(ctx context.Context, needModel bool) (*app, error) {
	log, err := newLogger(o.logLevel, o.stderr)
	if err != nil {
		return nil, err
	}

	obsOpts := []observability.Option{
		observability.WithServiceName("odataresolve"),
		observability.WithLogger(log),
	}
	if o.otel {
		obsOpts = append(obsOpts,
			observability.WithTracerProvider(otel.GetTracerProvider()),
			observability.WithMeterProvider(otel.GetMeterProvider()))
	}
	if o.serverTiming {
		obsOpts = append(obsOpts, observability.WithServerTiming())
	}
	if o.dbTracing {
		obsOpts = append(obsOpts, observability.WithDetailedDBTracing())
	}
	obs := observability.NewConfig(obsOpts...)
	if err := obs.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}

	a := &app{logger: log, obs: obs}

	if needModel {
		if o.modelPath == "" {
			return nil, errors.New("a model is required; use --model")
		}
		a.model, err = loadModel(ctx, obs, o.modelPath)
		if err != nil {
			return nil, err
		}

		resolverOpts := []odata.Option{
			odata.WithCaseInsensitive(o.caseInsensitive),
			odata.WithAlternateKeys(o.alternateKeys),
			odata.WithEnumAsString(o.enumAsString),
			odata.WithUnqualifiedOperations(o.unqualified),
			odata.WithLogger(log),
			odata.WithIndexCache(odata.NewIndexCache(log)),
		}
		if o.legacyIndex {
			resolverOpts = append(resolverOpts, odata.WithLegacyUpperCaseIndex())
		}
		a.resolver = odata.NewResolver(resolverOpts...)
	}

	if o.auditDB != "" {
		a.store, err = o.openAudit(obs, log)
		if err != nil {
			return nil, err
		}
		if a.resolver != nil {
			a.resolver = a.resolver.With(odata.WithObserver(a.store))
		}
	}
	return a, nil
}

// close flushes and closes the audit store.
func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return a.store.Close(ctx)
}

func loadModel(ctx context.Context, obs *observability.Config, path string) (odata.Model, error) {
	_, span := obs.Tracer().StartModelLoad(ctx, path)
	defer span.End()

	model, err := odata.LoadModelFile(path)
	if err != nil {
		obs.Tracer().RecordError(span, err)
		return nil, err
	}
	return model, nil
}

func (o *options) auditDialector() (gorm.Dialector, error) {
	switch o.auditDB {
	case "sqlite":
		dsn := o.auditDSN
		if dsn == "" {
			dsn = defaultAuditPath
		}
		return sqlite.Open(dsn), nil
	case "postgres":
		dsn := o.auditDSN
		if dsn == "" {
			dsn = os.Getenv("DATABASE_URL")
		}
		if dsn == "" {
			return nil, errors.New("PostgreSQL DSN required. Use --audit-dsn or set the DATABASE_URL environment variable")
		}
		return postgres.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported audit database %q; use sqlite or postgres", o.auditDB)
	}
}

func (o *options) openAudit(obs *observability.Config, log *slog.Logger) (*audit.Store, error) {
	dialector, err := o.auditDialector()
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to audit database: %w", err)
	}
	if err := observability.RegisterServerTimingCallbacks(db); err != nil {
		return nil, fmt.Errorf("failed to register timing callbacks: %w", err)
	}
	if err := observability.RegisterGORMCallbacks(db, obs); err != nil {
		return nil, fmt.Errorf("failed to register tracing callbacks: %w", err)
	}
	return audit.New(db, audit.Config{RecordMisses: o.auditMisses, Logger: log})
}

func newLogger(level string, w io.Writer) (*slog.Logger, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l})), nil
}
