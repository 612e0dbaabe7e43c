package literal

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSyntax is returned for malformed literal or key segment text.
var ErrSyntax = errors.New("literal: syntax error")

func syntaxError(text, typeName string) error {
	return fmt.Errorf("%w: '%s' is not a valid %s literal", ErrSyntax, text, typeName)
}

// KeySegment is a parsed key predicate. Exactly one of Positional and Named
// is set. Literal texts keep their quotes.
type KeySegment struct {
	Positional []string
	Named      map[string]string
}

// IsNamed reports whether the segment used Name=value pairs.
func (k KeySegment) IsNamed() bool { return k.Named != nil }

// ParseKeySegment parses a key predicate such as (1), ('a',2) or
// (ID=1,Code='x'). The enclosing parentheses are optional.
func ParseKeySegment(segment string) (KeySegment, error) {
	s := strings.TrimSpace(segment)
	if strings.HasPrefix(s, "(") {
		if !strings.HasSuffix(s, ")") {
			return KeySegment{}, fmt.Errorf("%w: unbalanced parentheses in key '%s'", ErrSyntax, segment)
		}
		s = s[1 : len(s)-1]
	}
	if strings.TrimSpace(s) == "" {
		return KeySegment{Positional: []string{}}, nil
	}

	parts, err := splitKeyPairs(s)
	if err != nil {
		return KeySegment{}, err
	}

	named := 0
	for _, part := range parts {
		if _, _, ok := splitPair(part); ok {
			named++
		}
	}
	switch named {
	case 0:
		positional := make([]string, 0, len(parts))
		for _, part := range parts {
			positional = append(positional, strings.TrimSpace(part))
		}
		return KeySegment{Positional: positional}, nil
	case len(parts):
		values := make(map[string]string, len(parts))
		for _, part := range parts {
			name, value, _ := splitPair(part)
			if _, dup := values[name]; dup {
				return KeySegment{}, fmt.Errorf("%w: duplicate key name '%s'", ErrSyntax, name)
			}
			values[name] = value
		}
		return KeySegment{Named: values}, nil
	default:
		return KeySegment{}, fmt.Errorf("%w: key '%s' mixes named and positional values", ErrSyntax, segment)
	}
}

// splitPair splits Name=value outside quotes.
func splitPair(part string) (name, value string, ok bool) {
	inQuote := false
	for i := 0; i < len(part); i++ {
		switch part[i] {
		case '\'':
			inQuote = !inQuote
		case '=':
			if !inQuote {
				name = strings.TrimSpace(part[:i])
				value = strings.TrimSpace(part[i+1:])
				return name, value, name != ""
			}
		}
	}
	return "", "", false
}

// splitKeyPairs splits on commas outside single quotes. Doubled quotes inside
// a quoted literal close and reopen the quote, which leaves the state intact.
func splitKeyPairs(input string) ([]string, error) {
	var pairs []string
	var current strings.Builder
	inQuote := false

	for _, ch := range input {
		switch {
		case ch == '\'':
			inQuote = !inQuote
			current.WriteRune(ch)
		case ch == ',' && !inQuote:
			pairs = append(pairs, current.String())
			current.Reset()
		default:
			current.WriteRune(ch)
		}
	}
	if inQuote {
		return nil, fmt.Errorf("%w: unclosed quote in key part", ErrSyntax)
	}
	pairs = append(pairs, current.String())

	for _, p := range pairs {
		if strings.TrimSpace(p) == "" {
			return nil, fmt.Errorf("%w: empty value in key '%s'", ErrSyntax, input)
		}
	}
	return pairs, nil
}
