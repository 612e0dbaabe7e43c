package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	odata "github.com/nlstn/odata-resolver"
	"github.com/nlstn/odata-resolver/internal/audit"
	"github.com/nlstn/odata-resolver/internal/etag"
	"github.com/nlstn/odata-resolver/internal/observability"
	"github.com/nlstn/odata-resolver/internal/preference"
	"github.com/nlstn/odata-resolver/internal/response"
	"github.com/nlstn/odata-resolver/internal/skiptoken"
	"github.com/nlstn/odata-resolver/internal/version"
)

const (
	shutdownTimeout = 10 * time.Second
	auditPageSize   = 50
)

func newServeCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve resolutions over HTTP",
		Long: `Serve resolutions over HTTP.

Routes:
  GET /resolve/{kind}?name=...&type=...&key=...&op=...&value=...&arg.<name>=...
  GET /audit?$top=N&$skiptoken=...
  GET /audit/summary
  GET /healthz`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			retention, _ := cmd.Flags().GetDuration("audit-retention")

			a, err := opts.open(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := a.close(); cerr != nil {
					a.logger.Warn("failed to close audit store", "error", cerr)
				}
			}()
			return serve(cmd.Context(), a, addr, retention)
		},
	}

	cmd.Flags().String("addr", ":8080", "Address to listen on")
	cmd.Flags().Duration("audit-retention", 0, "Prune audit records older than this; 0 keeps everything")
	return cmd
}

// serve runs the HTTP server until ctx is cancelled, then shuts it down
// gracefully.
func serve(ctx context.Context, a *app, addr string, retention time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           newHandler(a),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if a.store != nil && retention > 0 {
		g.Go(func() error {
			pruneLoop(gctx, a, retention)
			return nil
		})
	}
	return g.Wait()
}

// pruneLoop deletes expired audit records once per retention period, at most
// hourly.
func pruneLoop(ctx context.Context, a *app, retention time.Duration) {
	interval := retention
	if interval > time.Hour {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := a.store.Prune(ctx, time.Now().Add(-retention))
			if err != nil {
				a.logger.Warn("failed to prune audit records", "error", err)
				continue
			}
			if n > 0 {
				a.logger.Debug("pruned audit records", "count", n)
			}
		}
	}
}

func newHandler(a *app) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /resolve/{kind}", a.handleResolve)
	mux.HandleFunc("GET /audit", a.handleAuditRecent)
	mux.HandleFunc("GET /audit/summary", a.handleAuditSummary)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	var h http.Handler = mux
	h = negotiateVersion(h)
	h = observability.ServerTimingMiddleware(a.obs)(h)
	h = observability.HTTPMiddleware(a.obs)(h)
	return h
}

// negotiateVersion stores the protocol version selected by OData-MaxVersion
// in the request context.
func negotiateVersion(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v, err := version.Negotiate(r.Header.Get("OData-MaxVersion"))
		if err != nil {
			_ = response.WriteError(w, r, http.StatusBadRequest, "Unsupported OData-MaxVersion", err.Error()) //nolint:errcheck
			return
		}
		next.ServeHTTP(w, r.WithContext(version.WithVersion(r.Context(), v)))
	})
}

func (a *app) handleResolve(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	req := requestFromQuery(r)

	tag := a.etagFor(r)
	if !etag.NoneMatch(r.Header.Get("If-None-Match"), tag) {
		w.Header().Set("ETag", tag)
		response.SetODataVersionHeader(w, r)
		w.WriteHeader(http.StatusNotModified)
		a.obs.Metrics().RecordRequest(ctx, req.Kind, http.StatusNotModified, time.Since(start))
		return
	}

	timing := observability.StartServerTimingWithDesc(ctx, "resolve", req.Kind)
	res, err := a.resolve(ctx, req)
	timing.Stop()

	status := http.StatusOK
	if err != nil {
		status = a.writeError(w, r, err)
	} else {
		w.Header().Set("ETag", tag)
		if werr := response.WriteJSON(w, r, status, res); werr != nil {
			a.logger.Debug("failed to write response", "error", werr)
		}
	}

	a.obs.Tracer().SetHTTPStatus(ctx, status)
	a.obs.Metrics().RecordRequest(ctx, req.Kind, status, time.Since(start))
}

func requestFromQuery(r *http.Request) request {
	q := r.URL.Query()
	req := request{
		Kind:     r.PathValue("kind"),
		Name:     q.Get("name"),
		Type:     q.Get("type"),
		Key:      q.Get("key"),
		Operator: q.Get("op"),
		Value:    q.Get("value"),
	}
	if req.Operator == "" {
		req.Operator = "eq"
	}
	for k, v := range q {
		if name, ok := strings.CutPrefix(k, "arg."); ok && name != "" && len(v) > 0 {
			if req.Args == nil {
				req.Args = make(map[string]string)
			}
			req.Args[name] = v[0]
		}
	}
	return req
}

// etagFor tags a resolution response. The tag covers everything the
// response depends on: the model, the effective policy and the query.
func (a *app) etagFor(r *http.Request) string {
	cfg := a.resolverFor(r.Context()).Config()
	policy := fmt.Sprintf("ci=%t ak=%t es=%t uq=%t",
		cfg.CaseInsensitive, cfg.AlternateKeys, cfg.EnumAsString, cfg.UnqualifiedOperations)
	return etag.Generate(a.resolver.ModelFingerprint(a.model),
		r.PathValue("kind"), policy, r.URL.Query().Encode())
}

// auditPage is a page of audit records in OData collection form.
type auditPage struct {
	NextLink string         `json:"@odata.nextLink,omitempty"`
	Value    []audit.Record `json:"value"`
}

func (a *app) handleAuditRecent(w http.ResponseWriter, r *http.Request) {
	if a.store == nil {
		a.writeError(w, r, odata.NotFoundError("audit store", "audit"))
		return
	}
	q := r.URL.Query()

	limit := auditPageSize
	if s := q.Get("$top"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			a.writeError(w, r, badRequest("invalid $top %q", s))
			return
		}
		limit = n
	}
	pref := preference.ParsePrefer(r)
	limit = pref.PageSize(limit)

	var after skiptoken.SkipToken
	if s := q.Get("$skiptoken"); s != "" {
		token, err := skiptoken.Decode(s)
		if err != nil {
			a.writeError(w, r, badRequest("invalid $skiptoken: %v", err))
			return
		}
		after = *token
	}

	records, err := a.store.Page(r.Context(), limit, after.CreatedAt, after.ID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	page := auditPage{Value: records}
	if len(records) == limit {
		last := records[len(records)-1]
		token, err := skiptoken.Encode(&skiptoken.SkipToken{CreatedAt: last.CreatedAt, ID: last.ID})
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		next := url.Values{"$top": {strconv.Itoa(limit)}, "$skiptoken": {token}}
		page.NextLink = r.URL.Path + "?" + next.Encode()
	}
	if applied := pref.GetPreferenceApplied(limit); applied != "" {
		w.Header().Set("Preference-Applied", applied)
	}
	_ = response.WriteJSON(w, r, http.StatusOK, page) //nolint:errcheck
}

func (a *app) handleAuditSummary(w http.ResponseWriter, r *http.Request) {
	if a.store == nil {
		a.writeError(w, r, odata.NotFoundError("audit store", "audit"))
		return
	}
	counts, err := a.store.Summary(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	_ = response.WriteJSON(w, r, http.StatusOK, map[string]interface{}{"value": counts}) //nolint:errcheck
}

// writeError writes err as an OData error body and returns the status used.
func (a *app) writeError(w http.ResponseWriter, r *http.Request, err error) int {
	oe := odata.AsODataError(err)
	body := &response.ODataError{
		Code:    string(oe.Code),
		Message: oe.Message,
		Target:  oe.Target,
	}
	for _, d := range oe.Details {
		body.Details = append(body.Details, response.ODataErrorDetail{Code: d.Code, Target: d.Target, Message: d.Message})
	}
	if werr := response.WriteODataError(w, r, oe.StatusCode, body); werr != nil {
		a.logger.Debug("failed to write error response", "error", werr)
	}
	return oe.StatusCode
}
