package literal

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/nlstn/odata-resolver/internal/edm"
	"github.com/nlstn/odata-resolver/internal/query"
)

// TypeFinder looks up a schema type by qualified name.
type TypeFinder func(qualifiedName string) (edm.SchemaType, error)

// ParseConstant parses a free-standing literal whose type is inferred from its
// syntax, as in filter expressions and function arguments. Integers become
// Edm.Int32 when they fit and Edm.Int64 otherwise; an M suffix selects
// Edm.Decimal and a fraction or exponent selects Edm.Double. Type-prefixed
// enum literals are looked up with find, which may be nil.
func ParseConstant(text string, find TypeFinder) (*query.LiteralExpr, error) {
	text = strings.TrimSpace(text)
	switch {
	case text == "":
		return nil, syntaxError(text, "constant")
	case text == "null":
		return query.NewNullLiteral(), nil
	case text == "true" || text == "false":
		return constant(edm.PrimitiveBoolean, text, text)
	case IsQuoted(text):
		s, err := Unquote(text)
		if err != nil {
			return nil, err
		}
		return query.NewStringLiteral(s), nil
	case isGUIDText(text):
		return constant(edm.PrimitiveGuid, text, text)
	}

	if prefix, _, ok := splitTypedLiteral(text); ok {
		return parseTypedConstant(prefix, text, find)
	}
	return parseNumber(text)
}

func parseTypedConstant(prefix, text string, find TypeFinder) (*query.LiteralExpr, error) {
	if find == nil {
		return nil, fmt.Errorf("%w: cannot resolve type '%s'", ErrSyntax, prefix)
	}
	typ, err := find(prefix)
	if err != nil {
		return nil, err
	}
	enum, ok := typ.(*edm.EnumType)
	if !ok {
		return nil, fmt.Errorf("%w: '%s' is not an enum type", ErrSyntax, prefix)
	}
	v, err := ParseEnum(enum, text)
	if err != nil {
		return nil, err
	}
	return query.NewEnumLiteral(v), nil
}

func parseNumber(text string) (*query.LiteralExpr, error) {
	last := text[len(text)-1]
	switch {
	case last == 'M' || last == 'm':
		return constant(edm.PrimitiveDecimal, text[:len(text)-1], text)
	case isIntegerText(text):
		n, err := strconv.ParseInt(strings.TrimPrefix(text, "+"), 10, 64)
		if err != nil {
			return nil, syntaxError(text, "integer")
		}
		if n >= math.MinInt32 && n <= math.MaxInt32 {
			return constant(edm.PrimitiveInt32, strconv.FormatInt(n, 10), text)
		}
		return constant(edm.PrimitiveInt64, strconv.FormatInt(n, 10), text)
	case text == "INF" || text == "-INF" || text == "NaN":
		return constant(edm.PrimitiveDouble, text, text)
	default:
		return constant(edm.PrimitiveDouble, trimSuffix(text, "Dd"), text)
	}
}

func constant(kind edm.PrimitiveKind, value, text string) (*query.LiteralExpr, error) {
	v, err := edm.ParseValue(kind, value, edm.Facets{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	return query.NewValueLiteral(v, text, edm.PrimitiveRef(kind, false)), nil
}

func isGUIDText(text string) bool {
	if len(text) != 36 {
		return false
	}
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch i {
		case 8, 13, 18, 23:
			if c != '-' {
				return false
			}
		default:
			if !strings.ContainsRune("0123456789abcdefABCDEF", rune(c)) {
				return false
			}
		}
	}
	return true
}
