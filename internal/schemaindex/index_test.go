package schemaindex

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlstn/odata-resolver/internal/edm"
)

type fixture struct {
	model     *edm.EdmModel
	reference *edm.EdmModel
	product   *edm.EntityType
	address   *edm.ComplexType
	term      *edm.Term
	rate      *edm.Operation
}

func newFixture() fixture {
	address := edm.NewComplexType("Common", "Address", nil)
	deep := edm.NewModel().AddElements(edm.NewComplexType("Deep", "Hidden", nil))
	reference := edm.NewModel(deep).AddElements(address)

	product := edm.NewEntityType("Shop", "Product", nil)
	id := product.AddStructuralProperty("ID", edm.PrimitiveRef(edm.PrimitiveInt32, false))
	product.AddKeys(id)

	term := edm.NewTerm("Shop", "Description", edm.PrimitiveRef(edm.PrimitiveString, true), "")
	rate := edm.NewFunction("Shop", "Rate", true, false)
	rate.AddParameter("bindingParameter", edm.NewTypeReference(product, false))

	container := edm.NewEntityContainer("Shop", "Default")
	container.AddEntitySet("Products", product)
	container.AddEntitySet("PRODUCTS", product)
	container.AddSingleton("Featured", product)
	container.AddOperationImport("TopProducts", edm.NewFunction("Shop", "TopProducts", false, false), "Products")

	model := edm.NewModel(reference).AddElements(product, term, rate).SetEntityContainer(container)
	return fixture{model: model, reference: reference, product: product, address: address, term: term, rate: rate}
}

func TestBuildFindsElementsCaseInsensitively(t *testing.T) {
	f := newFixture()
	ix := Build(f.model)

	types := ix.FindSchemaTypes("shop.PRODUCT")
	require.Len(t, types, 1)
	assert.Same(t, f.product, types[0])

	terms := ix.FindTerms("SHOP.description")
	require.Len(t, terms, 1)
	assert.Same(t, f.term, terms[0])

	ops := ix.FindOperations("shop.rate")
	require.Len(t, ops, 1)
	assert.Same(t, f.rate, ops[0])

	assert.Len(t, ix.FindNavigationSources("products"), 2)
	assert.Len(t, ix.FindNavigationSources("featured"), 1)
	assert.Len(t, ix.FindOperationImports("topproducts"), 1)
}

func TestBuildIncludesReferencedModelsOneLevel(t *testing.T) {
	f := newFixture()
	ix := Build(f.model)

	found := ix.FindSchemaTypes("common.address")
	require.Len(t, found, 1)
	assert.Same(t, f.address, found[0])

	assert.Empty(t, ix.FindSchemaTypes("Deep.Hidden"), "references of references are not indexed")
}

func TestBuildIncludesPrimitiveTypes(t *testing.T) {
	ix := Build(edm.NewModel())
	found := ix.FindSchemaTypes("edm.int32")
	require.Len(t, found, 1)
	assert.Equal(t, "Edm.Int32", found[0].FullName())
}

func TestLookupsNeverFailOnMissingNames(t *testing.T) {
	ix := Build(newFixture().model)
	assert.Empty(t, ix.FindSchemaTypes("Shop.Missing"))
	assert.Empty(t, ix.FindOperations("Shop.Missing"))
	assert.Empty(t, ix.FindTerms("Shop.Missing"))
	assert.Empty(t, ix.FindNavigationSources("Missing"))
	assert.Empty(t, ix.FindOperationImports("Missing"))
}

func TestWithoutContainerElements(t *testing.T) {
	ix := Build(newFixture().model, WithoutContainerElements())
	assert.False(t, ix.IncludesContainer())
	assert.Empty(t, ix.FindNavigationSources("Products"))
	assert.Len(t, ix.FindSchemaTypes("Shop.Product"), 1)
}

func TestNormalizersAgree(t *testing.T) {
	model := newFixture().model
	folded := Build(model)
	upper := Build(model, WithUpperCaseKeys())

	for _, name := range []string{"shop.product", "SHOP.PRODUCT", "Common.ADDRESS", "edm.string", "Shop.Missing"} {
		assert.Equal(t, folded.FindSchemaTypes(name), upper.FindSchemaTypes(name), name)
	}
	for _, name := range []string{"products", "FEATURED", "topProducts"} {
		assert.Equal(t, folded.FindNavigationSources(name), upper.FindNavigationSources(name), name)
		assert.Equal(t, folded.FindOperationImports(name), upper.FindOperationImports(name), name)
	}
}

func TestNormalizersAgreeOnUnicode(t *testing.T) {
	model := edm.NewModel().AddElements(
		edm.NewComplexType("Geo", "Straße", nil),
		edm.NewComplexType("Units", "Kelvin", nil),
	)
	folded := Build(model)
	upper := Build(model, WithUpperCaseKeys())

	tests := []struct {
		name string
		want int
	}{
		{"Geo.Straße", 1},
		{"GEO.STRASSE", 1},
		{"geo.strasse", 1},
		{"Units.\u212Aelvin", 1},
		{"UNITS.KELVIN", 1},
		{"Geo.Strase", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, folded.FindSchemaTypes(tt.name), tt.want)
			assert.Equal(t, folded.FindSchemaTypes(tt.name), upper.FindSchemaTypes(tt.name))
		})
	}
	assert.Equal(t, FoldCase("Straße") == FoldCase("STRASSE"), UpperCase("Straße") == UpperCase("STRASSE"))
}

func TestBuildIsIdempotent(t *testing.T) {
	model := newFixture().model
	first := Build(model)
	second := Build(model)

	assert.Equal(t, first.Fingerprint(), second.Fingerprint())
	assert.Equal(t, first.Stats(), second.Stats())
	assert.Equal(t, first.FindNavigationSources("products"), second.FindNavigationSources("products"))

	model.AddElements(edm.NewComplexType("Shop", "Added", nil))
	assert.NotEqual(t, first.Fingerprint(), Build(model).Fingerprint())
}

func TestReturnedSlicesAreCopies(t *testing.T) {
	ix := Build(newFixture().model)
	found := ix.FindNavigationSources("products")
	found[0] = nil
	assert.NotNil(t, ix.FindNavigationSources("products")[0])
}

func TestFindSingle(t *testing.T) {
	errDup := errors.New("duplicate")
	dup := func() error { return errDup }

	got, err := FindSingle([]string{}, dup)
	assert.NoError(t, err)
	assert.Equal(t, "", got)

	got, err = FindSingle([]string{"a"}, dup)
	assert.NoError(t, err)
	assert.Equal(t, "a", got)

	_, err = FindSingle([]string{"a", "b"}, dup)
	assert.ErrorIs(t, err, errDup)
}

func TestEqualFold(t *testing.T) {
	assert.True(t, EqualFold("Products", "PRODUCTS"))
	assert.True(t, EqualFold("Straße", "STRASSE"))
	assert.False(t, EqualFold("Products", "Product"))
}

func TestCacheBuildsOncePerModel(t *testing.T) {
	f := newFixture()
	cache := NewCache(nil)

	var wg sync.WaitGroup
	results := make([]*Index, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = cache.Get(f.model)
		}(i)
	}
	wg.Wait()

	for _, ix := range results {
		assert.Same(t, results[0], ix)
	}
	assert.Equal(t, 1, cache.Len())

	other := cache.Get(f.reference)
	assert.NotSame(t, results[0], other)
	assert.Equal(t, 2, cache.Len())

	cache.Invalidate(f.model)
	rebuilt := cache.Get(f.model)
	assert.NotSame(t, results[0], rebuilt)
	assert.Equal(t, results[0].Fingerprint(), rebuilt.Fingerprint())
}
