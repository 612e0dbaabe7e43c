package edm

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// EnumMember represents a single member of an enum type.
type EnumMember struct {
	Name  string
	Value int64
}

// EnumType is a named set of integral constants.
type EnumType struct {
	schemaElement
	underlying PrimitiveKind
	isFlags    bool
	members    []EnumMember
	byName     map[string]EnumMember
}

// NewEnumType declares an enum type. Members must have unique, non-empty
// names and unique values; they are kept sorted by value.
func NewEnumType(namespace, name string, underlying PrimitiveKind, isFlags bool, members ...EnumMember) (*EnumType, error) {
	if underlying == PrimitiveNone {
		underlying = PrimitiveInt32
	}
	if !underlying.IsIntegral() {
		return nil, fmt.Errorf("enum type %s must have an integral underlying type, got %s", name, underlying)
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("enum type %s must have at least one member", name)
	}

	seenValues := make(map[int64]struct{}, len(members))
	byName := make(map[string]EnumMember, len(members))
	normalized := make([]EnumMember, len(members))
	for i, member := range members {
		if member.Name == "" {
			return nil, fmt.Errorf("enum type %s has a member with an empty name", name)
		}
		if _, exists := byName[member.Name]; exists {
			return nil, fmt.Errorf("enum type %s has duplicate member name %s", name, member.Name)
		}
		byName[member.Name] = member

		if _, exists := seenValues[member.Value]; exists {
			return nil, fmt.Errorf("enum type %s has duplicate member value %d", name, member.Value)
		}
		seenValues[member.Value] = struct{}{}

		normalized[i] = member
	}

	sort.Slice(normalized, func(i, j int) bool {
		if normalized[i].Value == normalized[j].Value {
			return normalized[i].Name < normalized[j].Name
		}
		return normalized[i].Value < normalized[j].Value
	})

	return &EnumType{
		schemaElement: schemaElement{namespace: namespace, name: name},
		underlying:    underlying,
		isFlags:       isFlags,
		members:       normalized,
		byName:        byName,
	}, nil
}

// MustEnumType is NewEnumType for statically known enums. It panics on error.
func MustEnumType(namespace, name string, isFlags bool, members ...EnumMember) *EnumType {
	t, err := NewEnumType(namespace, name, PrimitiveInt32, isFlags, members...)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *EnumType) TypeKind() TypeKind                   { return TypeKindEnum }
func (t *EnumType) SchemaElementKind() SchemaElementKind { return SchemaElementType }
func (t *EnumType) IsFlags() bool                        { return t.isFlags }
func (t *EnumType) UnderlyingType() PrimitiveKind        { return t.underlying }

// Members returns the members sorted by value.
func (t *EnumType) Members() []EnumMember {
	out := make([]EnumMember, len(t.members))
	copy(out, t.members)
	return out
}

// FindMember is an exact lookup by member name.
func (t *EnumType) FindMember(name string) (EnumMember, bool) {
	m, ok := t.byName[name]
	return m, ok
}

// EnumValue is a typed enum constant.
type EnumValue struct {
	Type  *EnumType
	Value int64
}

// String renders the value as a member list, e.g. "Red" or "Red,Blue" for
// flags. Values without a matching member render as the integer.
func (v EnumValue) String() string {
	if v.Type == nil {
		return strconv.FormatInt(v.Value, 10)
	}
	for _, m := range v.Type.members {
		if m.Value == v.Value {
			return m.Name
		}
	}
	if v.Type.isFlags && v.Value > 0 {
		var names []string
		remaining := v.Value
		for _, m := range v.Type.members {
			if m.Value != 0 && v.Value&m.Value == m.Value {
				names = append(names, m.Name)
				remaining &^= m.Value
			}
		}
		if remaining == 0 && len(names) > 0 {
			return strings.Join(names, ",")
		}
	}
	return strconv.FormatInt(v.Value, 10)
}

// Literal renders the value as a qualified URI literal: NS.Color'Red'.
func (v EnumValue) Literal() string {
	return v.Type.FullName() + "'" + v.String() + "'"
}

// ParseMember parses member text: a member name, an integer value, or for
// flags enums a comma separated list of either. Integer values must match a
// declared member unless the type is a flags enum.
func (t *EnumType) ParseMember(text string, caseInsensitive bool) (EnumValue, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return EnumValue{}, false
	}
	if !t.isFlags {
		v, ok := t.parseSingle(text, caseInsensitive)
		if !ok {
			return EnumValue{}, false
		}
		if _, declared := t.memberByValue(v); !declared {
			return EnumValue{}, false
		}
		return EnumValue{Type: t, Value: v}, true
	}

	var combined int64
	for _, part := range strings.Split(text, ",") {
		v, ok := t.parseSingle(strings.TrimSpace(part), caseInsensitive)
		if !ok {
			return EnumValue{}, false
		}
		combined |= v
	}
	return EnumValue{Type: t, Value: combined}, true
}

func (t *EnumType) parseSingle(text string, caseInsensitive bool) (int64, bool) {
	if text == "" {
		return 0, false
	}
	if m, ok := t.byName[text]; ok {
		return m.Value, true
	}
	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return n, true
	}
	if !caseInsensitive {
		return 0, false
	}
	var (
		found EnumMember
		count int
	)
	for _, m := range t.members {
		if strings.EqualFold(m.Name, text) {
			found = m
			count++
		}
	}
	if count != 1 {
		return 0, false
	}
	return found.Value, true
}

func (t *EnumType) memberByValue(v int64) (EnumMember, bool) {
	for _, m := range t.members {
		if m.Value == v {
			return m, true
		}
	}
	return EnumMember{}, false
}
