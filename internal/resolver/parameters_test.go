package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlstn/odata-resolver/internal/edm"
	"github.com/nlstn/odata-resolver/internal/query"
)

func int32Literal(t *testing.T, n int64) *query.LiteralExpr {
	t.Helper()
	v, err := edm.ParseValue(edm.PrimitiveInt32, n, edm.Facets{})
	require.NoError(t, err)
	return query.NewValueLiteral(v, "", edm.PrimitiveRef(edm.PrimitiveInt32, false))
}

func TestParametersFollowDeclaredOrder(t *testing.T) {
	s := newShop()
	rating := int32Literal(t, 5)
	color := query.NewStringLiteral("Red")

	bindings, err := newResolver(Config{}).ResolveOperationParameters(s.rate, map[string]query.ASTNode{
		"color":  color,
		"rating": rating,
	})
	require.NoError(t, err)
	require.Len(t, bindings, 2)
	assert.Equal(t, "rating", bindings[0].Parameter.Name())
	assert.Same(t, rating, bindings[0].Value)
	assert.Equal(t, "color", bindings[1].Parameter.Name())
	assert.Same(t, color, bindings[1].Value, "strings stay strings without enum coercion")
}

func TestUnknownParameterName(t *testing.T) {
	s := newShop()
	_, err := newResolver(Config{}).ResolveOperationParameters(s.rate, map[string]query.ASTNode{
		"rating": int32Literal(t, 5),
		"RATING": int32Literal(t, 6),
	})
	require.ErrorIs(t, err, ErrUnknownParameterName)

	var re *ResolutionError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "RATING", re.Identifier)
	assert.Equal(t, "Shop.Rate", re.Target)
	assert.Contains(t, re.Error(), "Shop.Rate")
}

func TestCaseInsensitiveParameters(t *testing.T) {
	s := newShop()
	r := newResolver(Config{CaseInsensitive: true})

	bindings, err := r.ResolveOperationParameters(s.rate, map[string]query.ASTNode{"RATING": int32Literal(t, 5)})
	require.NoError(t, err)
	require.Len(t, bindings, 1)
	assert.Equal(t, "rating", bindings[0].Parameter.Name())

	_, err = r.ResolveOperationParameters(s.rate, map[string]query.ASTNode{
		"rating": int32Literal(t, 5),
		"Rating": int32Literal(t, 6),
	})
	assert.ErrorIs(t, err, ErrAmbiguousMatch, "two arguments for one parameter")

	_, err = r.ResolveOperationParameters(s.rate, map[string]query.ASTNode{"stars": int32Literal(t, 5)})
	assert.ErrorIs(t, err, ErrUnknownParameterName)
}

func TestEnumParameterCoercion(t *testing.T) {
	s := newShop()
	r := newResolver(Config{EnumAsString: true})

	bindings, err := r.ResolveOperationParameters(s.rate, map[string]query.ASTNode{
		"rating": int32Literal(t, 5),
		"color":  query.NewStringLiteral("Green"),
	})
	require.NoError(t, err)
	require.Len(t, bindings, 2)

	lit, ok := bindings[1].Value.(*query.LiteralExpr)
	require.True(t, ok)
	assert.Equal(t, edm.EnumValue{Type: s.color, Value: 2}, lit.Value)
	assert.Same(t, s.color, lit.Type.Definition)
	assert.Equal(t, "Green", lit.LiteralText)

	unknown := query.NewStringLiteral("Purple")
	bindings, err = r.ResolveOperationParameters(s.rate, map[string]query.ASTNode{"color": unknown})
	require.NoError(t, err)
	require.Len(t, bindings, 1)
	assert.Same(t, unknown, bindings[0].Value, "unknown members are not coerced")

	rating := query.NewStringLiteral("5")
	bindings, err = r.ResolveOperationParameters(s.rate, map[string]query.ASTNode{"rating": rating})
	require.NoError(t, err)
	assert.Same(t, rating, bindings[0].Value, "only enum parameters are coerced")
}

func TestEnumParameterCoercionHonoursCaseFlag(t *testing.T) {
	s := newShop()
	input := func() map[string]query.ASTNode {
		return map[string]query.ASTNode{"color": query.NewStringLiteral("green")}
	}

	bindings, err := newResolver(Config{EnumAsString: true}).ResolveOperationParameters(s.rate, input())
	require.NoError(t, err)
	assert.Equal(t, edm.PrimitiveString, bindings[0].Value.TypeRef().PrimitiveKind())

	bindings, err = newResolver(Config{EnumAsString: true, CaseInsensitive: true}).ResolveOperationParameters(s.rate, input())
	require.NoError(t, err)
	assert.True(t, bindings[0].Value.TypeRef().IsEnum())
}
