// Package edm contains the in-memory entity data model consumed by the
// resolver: schema elements, container elements, type references and the
// primitive value types produced by literal conversion.
//
// A model is assembled once and treated as immutable afterwards. Nothing in
// this package validates a model; callers are expected to build well-formed
// graphs.
package edm

import "strings"

// TypeKind classifies an EDM type definition.
type TypeKind int

const (
	TypeKindNone TypeKind = iota
	TypeKindPrimitive
	TypeKindEntity
	TypeKindComplex
	TypeKindEnum
	TypeKindCollection
)

func (k TypeKind) String() string {
	switch k {
	case TypeKindPrimitive:
		return "Primitive"
	case TypeKindEntity:
		return "Entity"
	case TypeKindComplex:
		return "Complex"
	case TypeKindEnum:
		return "Enum"
	case TypeKindCollection:
		return "Collection"
	default:
		return "None"
	}
}

// Type is an EDM type definition.
type Type interface {
	TypeKind() TypeKind
	FullName() string
}

// TypeReference is a use of a type definition together with its facets.
type TypeReference struct {
	Definition Type
	Nullable   bool
	Facets     Facets
}

// NewTypeReference returns a reference to def.
func NewTypeReference(def Type, nullable bool) TypeReference {
	return TypeReference{Definition: def, Nullable: nullable, Facets: Facets{Nullable: nullable}}
}

// IsNil reports whether the reference has no definition, which is how
// untyped null literals are represented.
func (r TypeReference) IsNil() bool { return r.Definition == nil }

// FullName returns the qualified name of the referenced definition.
func (r TypeReference) FullName() string {
	if r.Definition == nil {
		return ""
	}
	return r.Definition.FullName()
}

func (r TypeReference) String() string { return r.FullName() }

// Kind returns the kind of the referenced definition.
func (r TypeReference) Kind() TypeKind {
	if r.Definition == nil {
		return TypeKindNone
	}
	return r.Definition.TypeKind()
}

// IsEnum reports whether the reference points at an enum type.
func (r TypeReference) IsEnum() bool { return r.Kind() == TypeKindEnum }

// AsEnum returns the referenced enum type or nil.
func (r TypeReference) AsEnum() *EnumType {
	e, _ := r.Definition.(*EnumType)
	return e
}

// IsCollection reports whether the reference points at a collection type.
func (r TypeReference) IsCollection() bool { return r.Kind() == TypeKindCollection }

// PrimitiveKind returns the primitive kind of the reference, or PrimitiveNone
// when the reference is not primitive.
func (r TypeReference) PrimitiveKind() PrimitiveKind {
	p, ok := r.Definition.(*PrimitiveType)
	if !ok {
		return PrimitiveNone
	}
	return p.Kind()
}

// Equal reports whether both references point at the same definition.
// Facets and nullability are ignored.
func (r TypeReference) Equal(other TypeReference) bool {
	return TypesEqual(r.Definition, other.Definition)
}

// CollectionType is Collection(ElementType).
type CollectionType struct {
	ElementType TypeReference
}

// CollectionOf returns a collection of def with nullable elements.
func CollectionOf(def Type) *CollectionType {
	return &CollectionType{ElementType: NewTypeReference(def, true)}
}

func (c *CollectionType) TypeKind() TypeKind { return TypeKindCollection }

func (c *CollectionType) FullName() string {
	return "Collection(" + c.ElementType.FullName() + ")"
}

// TypesEqual compares two type definitions. Named types compare by identity,
// collection types by element type.
func TypesEqual(a, b Type) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ca, okA := a.(*CollectionType)
	cb, okB := b.(*CollectionType)
	if okA || okB {
		return okA && okB && TypesEqual(ca.ElementType.Definition, cb.ElementType.Definition)
	}
	if pa, ok := a.(*PrimitiveType); ok {
		pb, ok := b.(*PrimitiveType)
		return ok && pa.Kind() == pb.Kind()
	}
	return a == b
}

// IsOrInheritsFrom reports whether t equals base or derives from it.
func IsOrInheritsFrom(t, base Type) bool {
	if t == nil || base == nil {
		return false
	}
	if TypesEqual(t, base) {
		return true
	}
	st, ok := t.(StructuredType)
	if !ok {
		return false
	}
	for b := st.BaseStructuredType(); b != nil; b = b.BaseStructuredType() {
		if TypesEqual(b, base) {
			return true
		}
	}
	return false
}

// SplitQualifiedName splits "NS.Sub.Name" into ("NS.Sub", "Name").
// An unqualified name yields an empty namespace.
func SplitQualifiedName(name string) (namespace, simple string) {
	idx := strings.LastIndexByte(name, '.')
	if idx < 0 {
		return "", name
	}
	return name[:idx], name[idx+1:]
}

// IsQualified reports whether name carries a namespace separator.
func IsQualified(name string) bool {
	return strings.IndexByte(name, '.') >= 0
}
