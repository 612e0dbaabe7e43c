// Package literal converts OData URI literal text into typed values. Convert
// is the default key conversion callback handed to the resolver.
package literal

import (
	"strings"

	"github.com/nlstn/odata-resolver/internal/edm"
)

// Convert converts literal text to a value of typ. It returns an edm.Value
// for primitive targets or an edm.EnumValue for enum targets, and false when
// the text is not a valid literal of typ. Null is never a valid key value.
func Convert(typ edm.TypeReference, text string) (interface{}, bool) {
	text = strings.TrimSpace(text)
	if text == "" || text == "null" || typ.IsNil() {
		return nil, false
	}

	switch typ.Kind() {
	case edm.TypeKindEnum:
		v, err := ParseEnum(typ.AsEnum(), text)
		if err != nil {
			return nil, false
		}
		return v, true
	case edm.TypeKindPrimitive:
		v, err := ParsePrimitive(typ.PrimitiveKind(), text, typ.Facets)
		if err != nil {
			return nil, false
		}
		return v, true
	default:
		return nil, false
	}
}

// ParsePrimitive parses text in URI literal form as a value of kind.
func ParsePrimitive(kind edm.PrimitiveKind, text string, facets edm.Facets) (edm.Value, error) {
	switch kind {
	case edm.PrimitiveString:
		s, err := Unquote(text)
		if err != nil {
			return nil, err
		}
		return edm.ParseValue(kind, s, facets)
	case edm.PrimitiveDecimal:
		return edm.ParseValue(kind, trimSuffix(text, "Mm"), facets)
	case edm.PrimitiveDouble:
		return edm.ParseValue(kind, trimSuffix(text, "Dd"), facets)
	case edm.PrimitiveSingle:
		return edm.ParseValue(kind, trimSuffix(text, "Ff"), facets)
	case edm.PrimitiveByte, edm.PrimitiveSByte, edm.PrimitiveInt16, edm.PrimitiveInt32, edm.PrimitiveInt64:
		if !isIntegerText(text) {
			return nil, syntaxError(text, kind.String())
		}
		return edm.ParseValue(kind, strings.TrimPrefix(text, "+"), facets)
	default:
		return edm.ParseValue(kind, text, facets)
	}
}

// ParseEnum parses a type-prefixed enum literal such as Shop.Color'Red'. The
// prefix must be the full name of t.
func ParseEnum(t *edm.EnumType, text string) (edm.EnumValue, error) {
	if t == nil {
		return edm.EnumValue{}, syntaxError(text, "enum")
	}
	prefix, quoted, ok := splitTypedLiteral(text)
	if !ok || prefix != t.FullName() {
		return edm.EnumValue{}, syntaxError(text, t.FullName())
	}
	content, err := Unquote(quoted)
	if err != nil {
		return edm.EnumValue{}, err
	}
	v, ok := t.ParseMember(content, false)
	if !ok {
		return edm.EnumValue{}, syntaxError(text, t.FullName())
	}
	return v, nil
}

// IsQuoted reports whether text is enclosed in single quotes.
func IsQuoted(text string) bool {
	return len(text) >= 2 && text[0] == '\'' && text[len(text)-1] == '\''
}

// Quote encloses s in single quotes, doubling embedded quotes.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Unquote strips the enclosing single quotes of text and collapses doubled
// quotes. A lone quote inside the content is a syntax error.
func Unquote(text string) (string, error) {
	if !IsQuoted(text) {
		return "", syntaxError(text, "string")
	}
	inner := text[1 : len(text)-1]
	var b strings.Builder
	b.Grow(len(inner))
	for i := 0; i < len(inner); i++ {
		c := inner[i]
		if c == '\'' {
			if i+1 >= len(inner) || inner[i+1] != '\'' {
				return "", syntaxError(text, "string")
			}
			i++
		}
		b.WriteByte(c)
	}
	return b.String(), nil
}

// splitTypedLiteral splits Prefix'content' into its prefix and quoted part.
func splitTypedLiteral(text string) (prefix, quoted string, ok bool) {
	i := strings.IndexByte(text, '\'')
	if i <= 0 || !IsQuoted(text[i:]) {
		return "", "", false
	}
	return text[:i], text[i:], true
}

func trimSuffix(text, suffixes string) string {
	switch text {
	case "INF", "-INF", "NaN":
		return text
	}
	if n := len(text); n > 1 && strings.IndexByte(suffixes, text[n-1]) >= 0 {
		return text[:n-1]
	}
	return text
}

func isIntegerText(text string) bool {
	if text != "" && (text[0] == '-' || text[0] == '+') {
		text = text[1:]
	}
	if text == "" {
		return false
	}
	for i := 0; i < len(text); i++ {
		if text[i] < '0' || text[i] > '9' {
			return false
		}
	}
	return true
}
