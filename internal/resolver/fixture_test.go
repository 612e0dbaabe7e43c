package resolver

import (
	"io"
	"log/slog"

	"github.com/nlstn/odata-resolver/internal/edm"
	"github.com/nlstn/odata-resolver/internal/literal"
)

type shop struct {
	model *edm.EdmModel

	color        *edm.EnumType
	product      *edm.EntityType
	special      *edm.EntityType
	customer     *edm.EntityType
	orderLine    *edm.EntityType
	swatch       *edm.EntityType
	address      *edm.ComplexType
	description  *edm.Term
	label        *edm.Term
	rate         *edm.Operation
	rateAll      *edm.Operation
	reset        *edm.Operation
	discount     *edm.Operation
	discountCaps *edm.Operation

	products    *edm.EntitySet
	productsAll *edm.EntitySet
	featured    *edm.Singleton
}

func newShop() *shop {
	s := &shop{}

	s.address = edm.NewComplexType("Common", "Address", nil)
	s.label = edm.NewTerm("Common", "Label", edm.PrimitiveRef(edm.PrimitiveString, true), "")
	common := edm.NewModel().AddElements(s.address, s.label)

	s.color = edm.MustEnumType("Shop", "Color", false,
		edm.EnumMember{Name: "Red", Value: 1},
		edm.EnumMember{Name: "Green", Value: 2},
		edm.EnumMember{Name: "Blue", Value: 4},
	)
	colorRef := edm.NewTypeReference(s.color, false)

	s.product = edm.NewEntityType("Shop", "Product", nil)
	id := s.product.AddStructuralProperty("ID", edm.PrimitiveRef(edm.PrimitiveInt32, false))
	code := s.product.AddStructuralProperty("Code", edm.PrimitiveRef(edm.PrimitiveString, false))
	s.product.AddStructuralProperty("Name", edm.PrimitiveRef(edm.PrimitiveString, true))
	s.product.AddStructuralProperty("Color", colorRef)
	s.product.AddStructuralProperty("Price", edm.PrimitiveRef(edm.PrimitiveDecimal, false))
	s.product.AddKeys(id)
	s.product.AddAlternateKey(edm.KeyAlias{Alias: "Code", Property: code})

	s.special = edm.NewEntityType("Shop", "SpecialProduct", s.product)
	s.special.AddStructuralProperty("Discount", edm.PrimitiveRef(edm.PrimitiveDouble, false))

	s.customer = edm.NewEntityType("Shop", "Customer", nil)
	s.customer.AddKeys(s.customer.AddStructuralProperty("ID", edm.PrimitiveRef(edm.PrimitiveInt32, false)))
	s.customer.AddStructuralProperty("Name", edm.PrimitiveRef(edm.PrimitiveString, false))
	s.customer.AddStructuralProperty("NAME", edm.PrimitiveRef(edm.PrimitiveString, false))

	s.orderLine = edm.NewEntityType("Shop", "OrderLine", nil)
	s.orderLine.AddKeys(
		s.orderLine.AddStructuralProperty("OrderID", edm.PrimitiveRef(edm.PrimitiveInt32, false)),
		s.orderLine.AddStructuralProperty("LineNo", edm.PrimitiveRef(edm.PrimitiveInt16, false)),
	)

	s.swatch = edm.NewEntityType("Shop", "Swatch", nil)
	s.swatch.AddKeys(s.swatch.AddStructuralProperty("Color", colorRef))

	s.description = edm.NewTerm("Shop", "Description", edm.PrimitiveRef(edm.PrimitiveString, true), "")

	s.rate = edm.NewFunction("Shop", "Rate", true, false)
	s.rate.AddParameter("bindingParameter", edm.NewTypeReference(s.product, false))
	s.rate.AddParameter("rating", edm.PrimitiveRef(edm.PrimitiveInt32, false))
	s.rate.AddOptionalParameter("color", colorRef)

	s.rateAll = edm.NewFunction("Shop", "RateAll", true, false)
	s.rateAll.AddParameter("bindingParameter", edm.NewTypeReference(edm.CollectionOf(s.product), false))

	s.reset = edm.NewAction("Shop", "Reset", false)

	s.discount = edm.NewAction("Shop", "Discount", true)
	s.discount.AddParameter("bindingParameter", edm.NewTypeReference(s.product, false))
	s.discountCaps = edm.NewAction("Shop", "DISCOUNT", true)
	s.discountCaps.AddParameter("bindingParameter", edm.NewTypeReference(s.product, false))

	container := edm.NewEntityContainer("Shop", "Default")
	s.products = container.AddEntitySet("Products", s.product)
	s.productsAll = container.AddEntitySet("PRODUCTS", s.product)
	s.featured = container.AddSingleton("Featured", s.product)
	container.AddEntitySet("Customers", s.customer)
	container.AddOperationImport("TopProducts", edm.NewFunction("Shop", "TopProducts", false, false), "Products")

	s.model = edm.NewModel(common).
		AddElements(s.color, s.product, s.special, s.customer, s.orderLine, s.swatch, s.description,
			s.rate, s.rateAll, s.reset, s.discount, s.discountCaps).
		SetEntityContainer(container)
	return s
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newResolver(cfg Config) *Resolver {
	cfg.Logger = quietLogger()
	return New(cfg)
}

var convert LiteralConverter = literal.Convert
