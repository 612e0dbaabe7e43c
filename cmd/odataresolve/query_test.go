package main

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	odata "github.com/nlstn/odata-resolver"
	"github.com/nlstn/odata-resolver/internal/observability"
)

const shopModel = "../../internal/modelfile/testdata/shop.yaml"

func testApp(t *testing.T, opts ...odata.Option) *app {
	t.Helper()
	model, err := odata.LoadModelFile(shopModel)
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	obs := observability.NewConfig(observability.WithLogger(log), observability.WithServerTiming())
	require.NoError(t, obs.Initialize())

	return &app{
		logger:   log,
		obs:      obs,
		model:    model,
		resolver: odata.NewResolver(append([]odata.Option{odata.WithLogger(log)}, opts...)...),
	}
}

func TestRunNames(t *testing.T) {
	a := testApp(t, odata.WithCaseInsensitive(true))

	tests := []struct {
		req  request
		want match
	}{
		{request{Kind: kindNavigationSource, Name: "featured"}, match{Name: "Featured", Kind: "Singleton", Type: "Shop.Product"}},
		{request{Kind: kindProperty, Name: "price", Type: "Shop.Product"}, match{Name: "Price", Kind: "structural", Type: "Edm.Decimal"}},
		{request{Kind: kindProperty, Name: "lines", Type: "shop.product"}, match{Name: "Lines", Kind: "navigation", Type: "Collection(Shop.OrderLine)"}},
		{request{Kind: kindType, Name: "shop.color"}, match{Name: "Color", FullName: "Shop.Color", Kind: "Enum"}},
		{request{Kind: kindTerm, Name: "common.label"}, match{Name: "Label", FullName: "Common.Label", Kind: "Term", Type: "Edm.String"}},
		{request{Kind: kindOperationImport, Name: "reset"}, match{Name: "Reset", FullName: "Shop.Reset", Kind: "ActionImport"}},
		{request{Kind: kindUnboundOperation, Name: "Shop.TopProducts"}, match{Name: "TopProducts", FullName: "Shop.TopProducts", Kind: "Function"}},
		{request{Kind: kindBoundOperation, Name: "Shop.RateAll", Type: "Collection(Shop.Product)"}, match{Name: "RateAll", FullName: "Shop.RateAll", Kind: "Function"}},
	}

	for _, tt := range tests {
		t.Run(tt.req.Kind+"/"+tt.req.Name, func(t *testing.T) {
			res, err := a.resolve(context.Background(), tt.req)
			require.NoError(t, err)
			require.Len(t, res.Matches, 1)
			assert.Equal(t, tt.want, res.Matches[0])
		})
	}
}

func TestRunNotFound(t *testing.T) {
	a := testApp(t)

	for _, req := range []request{
		{Kind: kindNavigationSource, Name: "featured"},
		{Kind: kindType, Name: "Shop.Missing"},
		{Kind: kindBoundOperation, Name: "Rate", Type: "Shop.Product"},
		{Kind: kindOperationImport, Name: "Nothing"},
	} {
		_, err := a.resolve(context.Background(), req)
		assert.True(t, odata.IsNotFoundError(err), "%s %s: %v", req.Kind, req.Name, err)
	}
}

func TestRunBadRequests(t *testing.T) {
	a := testApp(t)

	for name, req := range map[string]request{
		"unknown kind":      {Kind: "widget", Name: "x"},
		"missing name":      {Kind: kindType},
		"missing type":      {Kind: kindProperty, Name: "ID"},
		"missing binding":   {Kind: kindBoundOperation, Name: "Shop.Rate"},
		"unknown operator":  {Kind: kindPromote, Name: "Price", Type: "Shop.Product", Operator: "like", Value: "1"},
		"malformed key":     {Kind: kindKey, Name: "Products", Key: "(ID=1"},
		"malformed literal": {Kind: kindParameters, Name: "Shop.TopProducts", Args: map[string]string{"count": "'open"}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := a.resolve(context.Background(), req)
			require.Error(t, err)
			assert.Equal(t, 400, odata.MapErrorToHTTPStatus(err))
		})
	}
}

func TestRunAmbiguousProperty(t *testing.T) {
	a := testApp(t, odata.WithCaseInsensitive(true))

	_, err := a.resolve(context.Background(), request{Kind: kindProperty, Name: "name", Type: "Shop.Customer"})
	assert.True(t, odata.IsAmbiguousMatch(err))
}

func TestRunKeys(t *testing.T) {
	a := testApp(t, odata.WithAlternateKeys(true), odata.WithEnumAsString(true))

	res, err := a.resolve(context.Background(), request{Kind: kindKey, Name: "OrderLines", Key: "(LineNo=2,OrderID=7)"})
	require.NoError(t, err)
	assert.Equal(t, "Shop.OrderLine", res.Target)
	require.Len(t, res.Keys, 2)
	assert.Equal(t, keyValue{Name: "OrderID", Property: "OrderID", Type: "Edm.Int32", Value: "7"}, res.Keys[0])
	assert.Equal(t, "LineNo", res.Keys[1].Name)

	res, err = a.resolve(context.Background(), request{Kind: kindKey, Name: "Products", Key: "(Sku='Chair')"})
	require.NoError(t, err)
	require.Len(t, res.Keys, 1)
	assert.Equal(t, "Sku", res.Keys[0].Name)
	assert.Equal(t, "Name", res.Keys[0].Property)

	res, err = a.resolve(context.Background(), request{Kind: kindKey, Type: "Shop.Swatch", Key: "('Blue')"})
	require.NoError(t, err)
	assert.Equal(t, "Shop.Color'Blue'", res.Keys[0].Value)

	_, err = a.resolve(context.Background(), request{Kind: kindKey, Name: "Products", Key: "(Missing=1)"})
	assert.ErrorIs(t, err, odata.ErrKeyOrAlternateKeyMismatch)
}

func TestRunParameters(t *testing.T) {
	a := testApp(t, odata.WithEnumAsString(true), odata.WithUnqualifiedOperations(true))

	res, err := a.resolve(context.Background(), request{
		Kind: kindParameters,
		Name: "Rate",
		Type: "Shop.Product",
		Args: map[string]string{"color": "'Blue'", "rating": "5"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Shop.Rate", res.Matches[0].FullName)
	require.Len(t, res.Arguments, 2)
	assert.Equal(t, "rating", res.Arguments[0].Parameter)
	assert.Equal(t, "color", res.Arguments[1].Parameter)
	assert.Equal(t, "Shop.Color'Blue'", res.Arguments[1].Value)

	_, err = a.resolve(context.Background(), request{
		Kind: kindParameters,
		Name: "Rate",
		Type: "Shop.Product",
		Args: map[string]string{"stars": "5"},
	})
	assert.ErrorIs(t, err, odata.ErrUnknownParameterName)
}

func TestRunPromote(t *testing.T) {
	a := testApp(t)

	res, err := a.resolve(context.Background(), request{Kind: kindPromote, Name: "Price", Type: "Shop.Product", Operator: "gt", Value: "42"})
	require.NoError(t, err)
	require.NotNil(t, res.Promotion)
	assert.Equal(t, "Edm.Decimal", res.Promotion.Type)
	assert.Equal(t, "Price", res.Promotion.Left)
	assert.Equal(t, "cast(42,Edm.Decimal)", res.Promotion.Right)

	_, err = a.resolve(context.Background(), request{Kind: kindPromote, Name: "Color", Type: "Shop.Product", Operator: "eq", Value: "'Red'"})
	assert.Error(t, err)
}

func TestParseArgs(t *testing.T) {
	args, err := parseArgs([]string{"rating=5", " color = 'Blue' "})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"rating": "5", "color": "'Blue'"}, args)

	_, err = parseArgs([]string{"=5"})
	assert.Error(t, err)
	_, err = parseArgs([]string{"rating"})
	assert.Error(t, err)

	args, err = parseArgs(nil)
	assert.NoError(t, err)
	assert.Nil(t, args)
}
