package edm

import (
	"errors"
	"fmt"
)

// Model is the read-only view of an entity data model consumed by the
// resolver and the schema index.
type Model interface {
	// SchemaElements enumerates the model's own schema elements.
	SchemaElements() []SchemaElement
	// ReferencedModels enumerates directly referenced models (one level).
	ReferencedModels() []Model
	// EntityContainer returns the declared container or nil.
	EntityContainer() *EntityContainer
	// FindDeclaredType is an exact lookup of a type declared in this model.
	FindDeclaredType(qualifiedName string) SchemaType
	// FindDeclaredTerm is an exact lookup of a term declared in this model.
	FindDeclaredTerm(qualifiedName string) *Term
	// FindDeclaredOperations returns the overloads declared in this model.
	FindDeclaredOperations(qualifiedName string) []*Operation
}

// ErrAmbiguousElement is returned by cross-model lookups when the same
// qualified name is declared by more than one referenced model.
var ErrAmbiguousElement = errors.New("edm: ambiguous element name")

// EdmModel is the in-memory Model implementation.
type EdmModel struct {
	elements   []SchemaElement
	types      map[string]SchemaType
	terms      map[string]*Term
	operations map[string][]*Operation
	references []Model
	container  *EntityContainer
}

// NewModel returns an empty model referencing the given models.
func NewModel(references ...Model) *EdmModel {
	return &EdmModel{
		types:      make(map[string]SchemaType),
		terms:      make(map[string]*Term),
		operations: make(map[string][]*Operation),
		references: append([]Model(nil), references...),
	}
}

// AddElements declares schema elements. The first declaration of a type or
// term name wins exact lookups; operations accumulate as overloads.
func (m *EdmModel) AddElements(elements ...SchemaElement) *EdmModel {
	for _, e := range elements {
		m.elements = append(m.elements, e)
		name := e.FullName()
		switch el := e.(type) {
		case *Operation:
			m.operations[name] = append(m.operations[name], el)
		case *Term:
			if _, exists := m.terms[name]; !exists {
				m.terms[name] = el
			}
		case SchemaType:
			if _, exists := m.types[name]; !exists {
				m.types[name] = el
			}
		}
	}
	return m
}

// AddReference appends a referenced model.
func (m *EdmModel) AddReference(ref Model) *EdmModel {
	m.references = append(m.references, ref)
	return m
}

// SetEntityContainer sets the model's container.
func (m *EdmModel) SetEntityContainer(c *EntityContainer) *EdmModel {
	m.container = c
	return m
}

func (m *EdmModel) SchemaElements() []SchemaElement {
	out := make([]SchemaElement, len(m.elements))
	copy(out, m.elements)
	return out
}

func (m *EdmModel) ReferencedModels() []Model {
	out := make([]Model, len(m.references))
	copy(out, m.references)
	return out
}

func (m *EdmModel) EntityContainer() *EntityContainer { return m.container }

func (m *EdmModel) FindDeclaredType(qualifiedName string) SchemaType {
	return m.types[qualifiedName]
}

func (m *EdmModel) FindDeclaredTerm(qualifiedName string) *Term {
	return m.terms[qualifiedName]
}

func (m *EdmModel) FindDeclaredOperations(qualifiedName string) []*Operation {
	ops := m.operations[qualifiedName]
	out := make([]*Operation, len(ops))
	copy(out, ops)
	return out
}

// FindType resolves a qualified type name: primitive types first, then the
// model's own declarations, then its referenced models. A name declared by
// several referenced models but not by the model itself is ambiguous.
func FindType(m Model, qualifiedName string) (SchemaType, error) {
	if p := FindPrimitiveType(qualifiedName); p != nil {
		return p, nil
	}
	if t := m.FindDeclaredType(qualifiedName); t != nil {
		return t, nil
	}
	var found SchemaType
	for _, ref := range m.ReferencedModels() {
		t := ref.FindDeclaredType(qualifiedName)
		if t == nil {
			continue
		}
		if found != nil && found != t {
			return nil, fmt.Errorf("%w: type %s", ErrAmbiguousElement, qualifiedName)
		}
		found = t
	}
	return found, nil
}

// FindTerm resolves a qualified term name with the same precedence as
// FindType.
func FindTerm(m Model, qualifiedName string) (*Term, error) {
	if t := m.FindDeclaredTerm(qualifiedName); t != nil {
		return t, nil
	}
	var found *Term
	for _, ref := range m.ReferencedModels() {
		t := ref.FindDeclaredTerm(qualifiedName)
		if t == nil {
			continue
		}
		if found != nil && found != t {
			return nil, fmt.Errorf("%w: term %s", ErrAmbiguousElement, qualifiedName)
		}
		found = t
	}
	return found, nil
}

// FindOperations returns every overload named qualifiedName declared by the
// model or its referenced models.
func FindOperations(m Model, qualifiedName string) []*Operation {
	out := m.FindDeclaredOperations(qualifiedName)
	for _, ref := range m.ReferencedModels() {
		out = append(out, ref.FindDeclaredOperations(qualifiedName)...)
	}
	return out
}

// FindBoundOperations returns the bound overloads of qualifiedName that
// accept a receiver of bindingType.
func FindBoundOperations(m Model, qualifiedName string, bindingType Type) []*Operation {
	var out []*Operation
	for _, op := range FindOperations(m, qualifiedName) {
		if op.IsBound() && op.HasEquivalentBindingType(bindingType) {
			out = append(out, op)
		}
	}
	return out
}

// FindUnboundOperations returns the unbound overloads of qualifiedName.
func FindUnboundOperations(m Model, qualifiedName string) []*Operation {
	var out []*Operation
	for _, op := range FindOperations(m, qualifiedName) {
		if !op.IsBound() {
			out = append(out, op)
		}
	}
	return out
}
