package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	odata "github.com/nlstn/odata-resolver"
	"github.com/nlstn/odata-resolver/internal/audit"
	"github.com/nlstn/odata-resolver/internal/observability"
	"github.com/nlstn/odata-resolver/internal/response"
)

func withAudit(t *testing.T, a *app) *app {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, observability.RegisterServerTimingCallbacks(db))

	store, err := audit.New(db, audit.Config{Logger: a.logger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(context.Background()) })

	a.store = store
	a.resolver = a.resolver.With(odata.WithObserver(store))
	return a
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func odataVersion(w *httptest.ResponseRecorder) string {
	if v := w.Header()[response.HeaderODataVersion]; len(v) > 0 {
		return v[0]
	}
	return ""
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) response.ODataError {
	t.Helper()
	var body struct {
		Error response.ODataError `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error
}

func TestHandleResolve(t *testing.T) {
	h := newHandler(testApp(t, odata.WithCaseInsensitive(true)))

	w := get(t, h, "/resolve/navigation-source?name=products")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "4.01", odataVersion(w))
	assert.Contains(t, w.Header().Get("Server-Timing"), "resolve")

	var res result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Len(t, res.Matches, 1)
	assert.Equal(t, "Products", res.Matches[0].Name)
	assert.Equal(t, "EntitySet", res.Matches[0].Kind)
}

func TestHandleResolveKeyAndArguments(t *testing.T) {
	h := newHandler(testApp(t, odata.WithEnumAsString(true)))

	q := url.Values{"name": {"Products"}, "key": {"(ID=5)"}}
	w := get(t, h, "/resolve/key?"+q.Encode())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Len(t, res.Keys, 1)
	assert.Equal(t, "5", res.Keys[0].Value)

	q = url.Values{"name": {"Shop.Rate"}, "type": {"Shop.Product"}, "arg.rating": {"3"}, "arg.color": {"'Red'"}}
	w = get(t, h, "/resolve/parameters?"+q.Encode())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res = result{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Len(t, res.Arguments, 2)
}

func TestHandleResolveErrors(t *testing.T) {
	h := newHandler(testApp(t, odata.WithCaseInsensitive(true)))

	w := get(t, h, "/resolve/type?name=Shop.Missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, string(odata.ErrorCodeNotFound), decodeError(t, w).Code)

	w = get(t, h, "/resolve/property?name=name&type=Shop.Customer")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, "name", body.Target)
	require.Len(t, body.Details, 1)
	assert.Equal(t, "AmbiguousMatch", body.Details[0].Code)

	q := url.Values{"name": {"Products"}, "key": {"(1,2)"}}
	w = get(t, h, "/resolve/key?"+q.Encode())
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "KeyCountMismatch", decodeError(t, w).Details[0].Code)

	w = get(t, h, "/resolve/widget?name=x")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/resolve/type?name=Shop.Color", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestHandleAudit(t *testing.T) {
	a := withAudit(t, testApp(t, odata.WithAlternateKeys(true)))
	h := newHandler(a)

	w := get(t, h, "/resolve/key?"+url.Values{"name": {"Products"}, "key": {"(Missing=1)"}}.Encode())
	require.Equal(t, http.StatusBadRequest, w.Code)
	w = get(t, h, "/resolve/key?"+url.Values{"name": {"Products"}, "key": {"(Nope=1)"}}.Encode())
	require.Equal(t, http.StatusBadRequest, w.Code)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, a.store.Flush(ctx))

	w = get(t, h, "/audit?$top=1")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Header().Get("Server-Timing"), "db")
	recent := decodePage(t, w)
	require.Len(t, recent.Value, 1)
	assert.Equal(t, "KeyOrAlternateKeyMismatch", recent.Value[0].ErrorKind)
	require.NotEmpty(t, recent.NextLink)

	w = get(t, h, "/audit/summary")
	require.Equal(t, http.StatusOK, w.Code)
	var summary struct {
		Value []audit.Count `json:"value"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	require.Len(t, summary.Value, 1)
	assert.EqualValues(t, 2, summary.Value[0].Total)

	w = get(t, h, "/audit?$top=x")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = get(t, h, "/audit?$skiptoken=garbage")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func decodePage(t *testing.T, w *httptest.ResponseRecorder) auditPage {
	t.Helper()
	var page auditPage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	return page
}

func TestHandleAuditPaging(t *testing.T) {
	a := withAudit(t, testApp(t))
	h := newHandler(a)

	for _, name := range []string{"A", "B", "C"} {
		w := get(t, h, "/resolve/key?"+url.Values{"name": {"Products"}, "key": {"(" + name + "=1)"}}.Encode())
		require.Equal(t, http.StatusBadRequest, w.Code)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, a.store.Flush(ctx))

	seen := map[string]bool{}
	next := "/audit?$top=2"
	pages := 0
	for next != "" {
		w := get(t, h, next)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		page := decodePage(t, w)
		for _, rec := range page.Value {
			assert.False(t, seen[rec.ID], "record %s returned twice", rec.ID)
			seen[rec.ID] = true
		}
		next = page.NextLink
		pages++
		require.LessOrEqual(t, pages, 3)
	}
	assert.Len(t, seen, 3)
	assert.Equal(t, 2, pages)
}

func TestHandleAuditMaxPageSize(t *testing.T) {
	a := withAudit(t, testApp(t))
	h := newHandler(a)

	for _, name := range []string{"A", "B"} {
		get(t, h, "/resolve/key?"+url.Values{"name": {"Products"}, "key": {"(" + name + "=1)"}}.Encode())
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, a.store.Flush(ctx))

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/audit", nil)
	r.Header.Set("Prefer", "odata.maxpagesize=1")
	h.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "odata.maxpagesize=1", w.Header().Get("Preference-Applied"))
	page := decodePage(t, w)
	assert.Len(t, page.Value, 1)
	assert.Contains(t, page.NextLink, "%24top=1")
}

func TestHandleResolveETag(t *testing.T) {
	h := newHandler(testApp(t, odata.WithCaseInsensitive(true)))

	w := get(t, h, "/resolve/navigation-source?name=products")
	require.Equal(t, http.StatusOK, w.Code)
	tag := w.Header().Get("ETag")
	require.True(t, strings.HasPrefix(tag, `W/"`), tag)

	w = httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/resolve/navigation-source?name=products", nil)
	r.Header.Set("If-None-Match", tag)
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusNotModified, w.Code)
	assert.Empty(t, w.Body.String())
	assert.Equal(t, tag, w.Header().Get("ETag"))
	assert.Equal(t, "4.01", odataVersion(w))

	w = get(t, h, "/resolve/navigation-source?name=Products")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEqual(t, tag, w.Header().Get("ETag"))

	w = get(t, h, "/resolve/type?name=Shop.Missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, w.Header().Get("ETag"))
}

func TestHandleResolveMaxVersion(t *testing.T) {
	h := newHandler(testApp(t, odata.WithCaseInsensitive(true)))

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/resolve/navigation-source?name=products", nil)
	r.Header.Set("OData-MaxVersion", "4.0")
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "4.0", odataVersion(w))

	w = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodGet, "/resolve/navigation-source?name=Products", nil)
	r.Header.Set("OData-MaxVersion", "4.0")
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodGet, "/resolve/navigation-source?name=Products", nil)
	r.Header.Set("OData-MaxVersion", "3.0")
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleAuditDisabled(t *testing.T) {
	h := newHandler(testApp(t))

	w := get(t, h, "/audit")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = get(t, h, "/healthz")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRequestFromQuery(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/resolve/promote?name=Price&type=Shop.Product&value=1&arg.a=1&arg.=2&other=3", nil)
	r.SetPathValue("kind", "promote")

	req := requestFromQuery(r)
	assert.Equal(t, "promote", req.Kind)
	assert.Equal(t, "eq", req.Operator)
	assert.Equal(t, map[string]string{"a": "1"}, req.Args)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	a := testApp(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- serve(ctx, a, "127.0.0.1:0", 0) }()
	cancel()

	select {
	case err := <-done:
		if err != nil && !strings.Contains(err.Error(), "closed") {
			t.Fatalf("serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}
