package resolver

import (
	"log/slog"

	"github.com/nlstn/odata-resolver/internal/edm"
	"github.com/nlstn/odata-resolver/internal/literal"
	"github.com/nlstn/odata-resolver/internal/schemaindex"
)

// keyResolver binds literals to the declared primary key.
type keyResolver struct {
	caseInsensitive bool
	logger          *slog.Logger
}

func (k *keyResolver) ResolvePositionalKeys(typ *edm.EntityType, literals []string, convert LiteralConverter) ([]KeyValue, error) {
	if typ == nil {
		return nil, nil
	}
	key := typ.Key()
	if len(literals) != len(key) {
		return nil, keyError(KindKeyCountMismatch, typ.FullName())
	}

	out := make([]KeyValue, 0, len(key))
	for i, prop := range key {
		v, ok := convert(prop.Type(), literals[i])
		if !ok || v == nil {
			return nil, conversionFailure(ElementKey, prop.Name(), literals[i], prop.Type().FullName(), typ.FullName())
		}
		out = append(out, KeyValue{Name: prop.Name(), Property: prop, Value: v})
	}
	return out, nil
}

func (k *keyResolver) ResolveNamedKeys(typ *edm.EntityType, named map[string]string, convert LiteralConverter) ([]KeyValue, error) {
	if typ == nil {
		return nil, nil
	}
	key := typ.Key()
	aliases := make([]edm.KeyAlias, len(key))
	for i, prop := range key {
		aliases[i] = edm.KeyAlias{Alias: prop.Name(), Property: prop}
	}

	out, matched, err := k.bind(typ, aliases, named, convert)
	if err != nil {
		return nil, err
	}
	if !matched {
		return nil, keyError(KindKeyMismatch, typ.FullName())
	}
	return out, nil
}

// bind maps every alias of one key set to a supplied literal and converts
// it. It reports false without error when the supplied names do not fit the
// set. Ambiguous names and failed conversions are errors.
func (k *keyResolver) bind(typ *edm.EntityType, aliases []edm.KeyAlias, named map[string]string, convert LiteralConverter) ([]KeyValue, bool, error) {
	if len(aliases) == 0 || len(named) != len(aliases) {
		return nil, false, nil
	}

	out := make([]KeyValue, 0, len(aliases))
	for _, a := range aliases {
		text, ok, err := k.lookup(named, a.Alias)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, nil
		}
		v, ok := convert(a.Property.Type(), text)
		if !ok || v == nil {
			return nil, false, conversionFailure(ElementKey, a.Alias, text, a.Property.Type().FullName(), typ.FullName())
		}
		out = append(out, KeyValue{Name: a.Alias, Property: a.Property, Value: v})
	}
	return out, true, nil
}

// lookup finds the literal supplied for name, exactly and then, when
// enabled, case-insensitively.
func (k *keyResolver) lookup(named map[string]string, name string) (string, bool, error) {
	if text, ok := named[name]; ok {
		return text, true, nil
	}
	if !k.caseInsensitive {
		return "", false, nil
	}

	var matches []string
	for supplied, text := range named {
		if schemaindex.EqualFold(supplied, name) {
			matches = append(matches, text)
		}
	}
	switch len(matches) {
	case 0:
		return "", false, nil
	case 1:
		k.logger.Debug("case-insensitive fallback",
			slog.String("element", string(ElementKey)),
			slog.String("identifier", name),
		)
		return matches[0], true, nil
	default:
		return "", false, ambiguous(ElementKey, name)
	}
}

// alternateKeyResolver tries the declared alternate keys, in declaration
// order, when named literals do not match the primary key. The first key set
// that binds completely wins.
type alternateKeyResolver struct {
	primary *keyResolver
	logger  *slog.Logger
}

func (a *alternateKeyResolver) ResolvePositionalKeys(typ *edm.EntityType, literals []string, convert LiteralConverter) ([]KeyValue, error) {
	return a.primary.ResolvePositionalKeys(typ, literals, convert)
}

func (a *alternateKeyResolver) ResolveNamedKeys(typ *edm.EntityType, named map[string]string, convert LiteralConverter) ([]KeyValue, error) {
	if typ == nil {
		return nil, nil
	}
	out, err := a.primary.ResolveNamedKeys(typ, named, convert)
	if err == nil {
		return out, nil
	}
	if KindOf(err) != KindKeyMismatch {
		return nil, err
	}

	for i, alt := range typ.AlternateKeys() {
		out, matched, err := a.primary.bind(typ, alt, named, convert)
		if err != nil {
			return nil, err
		}
		if matched {
			a.logger.Debug("alternate key matched",
				slog.String("entity_type", typ.FullName()),
				slog.Int("alternate_key", i),
			)
			return out, nil
		}
	}
	return nil, keyError(KindKeyOrAlternateKeyMismatch, typ.FullName())
}

// enumKeyResolver prefixes quoted literals of enum key properties with the
// enum's full name, so 'Red' converts like Shop.Color'Red'. With
// caseInsensitive set, member names are matched ignoring case and passed on
// in their declared spelling.
type enumKeyResolver struct {
	next            KeyResolver
	caseInsensitive bool
	logger          *slog.Logger
}

func (e *enumKeyResolver) ResolvePositionalKeys(typ *edm.EntityType, literals []string, convert LiteralConverter) ([]KeyValue, error) {
	return e.next.ResolvePositionalKeys(typ, literals, e.wrap(convert))
}

func (e *enumKeyResolver) ResolveNamedKeys(typ *edm.EntityType, named map[string]string, convert LiteralConverter) ([]KeyValue, error) {
	return e.next.ResolveNamedKeys(typ, named, e.wrap(convert))
}

func (e *enumKeyResolver) wrap(convert LiteralConverter) LiteralConverter {
	return func(typ edm.TypeReference, text string) (interface{}, bool) {
		if typ.IsEnum() && literal.IsQuoted(text) {
			prefixed := typ.FullName() + text
			if e.caseInsensitive {
				if content, err := literal.Unquote(text); err == nil {
					if v, ok := typ.AsEnum().ParseMember(content, true); ok {
						prefixed = v.Literal()
					}
				}
			}
			e.logger.Debug("enum key literal prefixed",
				slog.String("enum", typ.FullName()),
				slog.String("literal", text),
			)
			text = prefixed
		}
		return convert(typ, text)
	}
}
