package modelfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nlstn/odata-resolver/internal/edm"
)

// ErrInvalidModel is wrapped by every validation error returned by Build.
var ErrInvalidModel = errors.New("modelfile: invalid model")

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidModel, fmt.Sprintf(format, args...))
}

// LoadFile reads and builds the model described by the YAML file at path.
func LoadFile(path string) (*edm.EdmModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("modelfile: %w", err)
	}
	return Parse(data)
}

// Load reads a YAML model description from r.
func Load(r io.Reader) (*edm.EdmModel, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, invalid("empty document")
		}
		return nil, fmt.Errorf("modelfile: decode: %w", err)
	}
	return Build(&doc)
}

// Parse builds the model described by a YAML document.
func Parse(data []byte) (*edm.EdmModel, error) {
	return Load(bytes.NewReader(data))
}

// Build converts a decoded document into a model. Referenced schemas each
// become one referenced model of the result.
func Build(doc *Document) (*edm.EdmModel, error) {
	if doc == nil || len(doc.Schemas) == 0 {
		return nil, invalid("at least one schema is required")
	}

	l := &loader{
		types:      make(map[string]edm.SchemaType),
		operations: make(map[string][]*edm.Operation),
	}

	var refs []edm.Model
	var units []*unit
	for i := range doc.References {
		u := &unit{schemas: []*Schema{&doc.References[i]}, model: edm.NewModel(), local: make(map[string]edm.SchemaType)}
		units = append(units, u)
		refs = append(refs, u.model)
	}
	main := &unit{model: edm.NewModel(refs...), local: make(map[string]edm.SchemaType)}
	for i := range doc.Schemas {
		main.schemas = append(main.schemas, &doc.Schemas[i])
	}
	units = append(units, main)

	for _, step := range []func(*unit) error{l.declareEnums, l.declareStructured, l.defineStructured, l.declareTerms, l.declareOperations} {
		for _, u := range units {
			if err := step(u); err != nil {
				return nil, err
			}
		}
	}
	for _, u := range units {
		u.model.AddElements(u.elements...)
	}

	if doc.Container != nil {
		c, err := l.container(main, doc.Container, doc.Schemas[0].Namespace)
		if err != nil {
			return nil, err
		}
		main.model.SetEntityContainer(c)
	}
	return main.model, nil
}

// unit is one model under construction and the schemas it owns.
type unit struct {
	schemas    []*Schema
	model      *edm.EdmModel
	elements   []edm.SchemaElement
	local      map[string]edm.SchemaType // types declared by this unit
	structured []declared                // entity and complex types, base types first
}

type declared struct {
	typ  edm.SchemaType
	decl *Structured
}

type loader struct {
	types      map[string]edm.SchemaType
	operations map[string][]*edm.Operation
}

// define registers t for u. Another referenced model may declare the same
// name; lookups from other units see the first declaration.
func (l *loader) define(u *unit, name string, t edm.SchemaType) error {
	if _, exists := u.local[name]; exists {
		return invalid("type %s declared twice", name)
	}
	u.local[name] = t
	if _, exists := l.types[name]; !exists {
		l.types[name] = t
	}
	return nil
}

func (l *loader) lookup(u *unit, name string) (edm.SchemaType, bool) {
	if t, ok := u.local[name]; ok {
		return t, true
	}
	t, ok := l.types[name]
	return t, ok
}

func (l *loader) unused(u *unit, name string, pending map[string]*Structured) error {
	_, declared := u.local[name]
	_, queued := pending[name]
	if declared || queued {
		return invalid("type %s declared twice", name)
	}
	return nil
}

func qualify(namespace, name string) string {
	return namespace + "." + name
}

func (l *loader) declareEnums(u *unit) error {
	for _, s := range u.schemas {
		if s.Namespace == "" {
			return invalid("schema without namespace")
		}
		for _, e := range s.Enums {
			underlying := edm.PrimitiveNone
			if e.Underlying != "" {
				p := edm.FindPrimitiveType(e.Underlying)
				if p == nil {
					return invalid("enum %s: unknown underlying type %s", e.Name, e.Underlying)
				}
				underlying = p.Kind()
			}
			members := make([]edm.EnumMember, len(e.Members))
			for i, m := range e.Members {
				members[i] = edm.EnumMember{Name: m.Name, Value: m.Value}
			}
			t, err := edm.NewEnumType(s.Namespace, e.Name, underlying, e.Flags, members...)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidModel, err)
			}
			if err := l.define(u, t.FullName(), t); err != nil {
				return err
			}
			u.elements = append(u.elements, t)
		}
	}
	return nil
}

// declareStructured creates entity and complex types, base types first.
func (l *loader) declareStructured(u *unit) error {
	decls := make(map[string]*Structured)
	complexNames := make(map[string]bool)
	namespaces := make(map[string]string)
	var order []string
	for _, s := range u.schemas {
		for i := range s.ComplexTypes {
			name := qualify(s.Namespace, s.ComplexTypes[i].Name)
			if err := l.unused(u, name, decls); err != nil {
				return err
			}
			decls[name] = &s.ComplexTypes[i]
			complexNames[name] = true
			namespaces[name] = s.Namespace
			order = append(order, name)
		}
		for i := range s.EntityTypes {
			name := qualify(s.Namespace, s.EntityTypes[i].Name)
			if err := l.unused(u, name, decls); err != nil {
				return err
			}
			decls[name] = &s.EntityTypes[i]
			namespaces[name] = s.Namespace
			order = append(order, name)
		}
	}

	visiting := make(map[string]bool)
	var create func(name string) (edm.SchemaType, error)
	create = func(name string) (edm.SchemaType, error) {
		if t, ok := u.local[name]; ok {
			return t, nil
		}
		decl, ok := decls[name]
		if !ok {
			if t, found := l.types[name]; found {
				return t, nil
			}
			return nil, invalid("unknown base type %s", name)
		}
		if visiting[name] {
			return nil, invalid("type %s inherits from itself", name)
		}
		visiting[name] = true
		defer delete(visiting, name)

		var base edm.SchemaType
		if decl.Base != "" {
			b, err := create(decl.Base)
			if err != nil {
				return nil, err
			}
			base = b
		}

		var t edm.SchemaType
		if complexNames[name] {
			var cb *edm.ComplexType
			if base != nil {
				if cb, ok = base.(*edm.ComplexType); !ok {
					return nil, invalid("complex type %s cannot derive from %s", name, decl.Base)
				}
			}
			ct := edm.NewComplexType(namespaces[name], decl.Name, cb).SetAbstract(decl.Abstract)
			t = ct
		} else {
			var eb *edm.EntityType
			if base != nil {
				if eb, ok = base.(*edm.EntityType); !ok {
					return nil, invalid("entity type %s cannot derive from %s", name, decl.Base)
				}
			}
			et := edm.NewEntityType(namespaces[name], decl.Name, eb).
				SetAbstract(decl.Abstract).
				SetOpen(decl.Open).
				SetHasStream(decl.HasStream)
			t = et
		}
		if err := l.define(u, name, t); err != nil {
			return nil, err
		}
		u.structured = append(u.structured, declared{typ: t, decl: decl})
		u.elements = append(u.elements, t)
		return t, nil
	}

	for _, name := range order {
		if _, err := create(name); err != nil {
			return err
		}
	}
	return nil
}

type propertyAdder interface {
	AddStructuralProperty(name string, typ edm.TypeReference) *edm.StructuralProperty
	FindProperty(name string) edm.Property
}

// defineStructured adds properties, keys and navigation properties.
func (l *loader) defineStructured(u *unit) error {
	for _, d := range u.structured {
		t := d.typ.(propertyAdder)
		for _, p := range d.decl.Properties {
			ref, err := l.typeRef(u, p.Type)
			if err != nil {
				return fmt.Errorf("%s.%s: %w", d.typ.FullName(), p.Name, err)
			}
			t.AddStructuralProperty(p.Name, ref)
		}

		et, isEntity := d.typ.(*edm.EntityType)
		if !isEntity {
			if len(d.decl.Key) > 0 || len(d.decl.AlternateKeys) > 0 || len(d.decl.Navigation) > 0 {
				return invalid("complex type %s cannot declare keys or navigation properties", d.typ.FullName())
			}
			continue
		}

		keys := make([]*edm.StructuralProperty, 0, len(d.decl.Key))
		for _, name := range d.decl.Key {
			p, err := structural(et, name)
			if err != nil {
				return err
			}
			keys = append(keys, p)
		}
		if len(keys) > 0 {
			et.AddKeys(keys...)
		}

		for _, alt := range d.decl.AlternateKeys {
			aliases := make([]edm.KeyAlias, 0, len(alt))
			for _, a := range alt {
				p, err := structural(et, a.Property)
				if err != nil {
					return err
				}
				alias := a.Alias
				if alias == "" {
					alias = a.Property
				}
				aliases = append(aliases, edm.KeyAlias{Alias: alias, Property: p})
			}
			et.AddAlternateKey(aliases...)
		}
	}

	// Navigation targets may be declared later in the same unit.
	for _, d := range u.structured {
		et, isEntity := d.typ.(*edm.EntityType)
		if !isEntity {
			continue
		}
		for _, n := range d.decl.Navigation {
			t, _ := l.lookup(u, n.Target)
			target, ok := t.(*edm.EntityType)
			if !ok {
				return invalid("navigation property %s.%s: unknown entity type %s", et.FullName(), n.Name, n.Target)
			}
			if n.ContainsTarget {
				et.AddContainedNavigationProperty(n.Name, target, n.Collection)
			} else {
				et.AddNavigationProperty(n.Name, target, n.Collection, n.Nullable)
			}
		}
	}
	return nil
}

func structural(et *edm.EntityType, name string) (*edm.StructuralProperty, error) {
	p, ok := et.FindProperty(name).(*edm.StructuralProperty)
	if !ok {
		return nil, invalid("entity type %s has no structural property %s", et.FullName(), name)
	}
	return p, nil
}

func (l *loader) declareTerms(u *unit) error {
	for _, s := range u.schemas {
		for _, t := range s.Terms {
			ref, err := l.typeRef(u, t.Type)
			if err != nil {
				return fmt.Errorf("term %s: %w", t.Name, err)
			}
			u.elements = append(u.elements, edm.NewTerm(s.Namespace, t.Name, ref, t.AppliesTo))
		}
	}
	return nil
}

func (l *loader) declareOperations(u *unit) error {
	for _, s := range u.schemas {
		for _, o := range s.Operations {
			var op *edm.Operation
			switch strings.ToLower(o.Kind) {
			case "", "function":
				op = edm.NewFunction(s.Namespace, o.Name, o.Bound, o.Composable)
			case "action":
				op = edm.NewAction(s.Namespace, o.Name, o.Bound)
			default:
				return invalid("operation %s: unknown kind %q", o.Name, o.Kind)
			}
			if o.Bound && len(o.Parameters) == 0 {
				return invalid("bound operation %s needs a binding parameter", op.FullName())
			}
			for _, p := range o.Parameters {
				ref, err := l.typeRef(u, p.Type)
				if err != nil {
					return fmt.Errorf("operation %s parameter %s: %w", op.FullName(), p.Name, err)
				}
				if p.Optional {
					op.AddOptionalParameter(p.Name, ref)
				} else {
					op.AddParameter(p.Name, ref)
				}
			}
			if o.ReturnType != "" {
				ref, err := l.typeRef(u, o.ReturnType)
				if err != nil {
					return fmt.Errorf("operation %s return type: %w", op.FullName(), err)
				}
				op.SetReturnType(ref)
			}
			if o.EntitySetPath != "" {
				op.SetEntitySetPath(o.EntitySetPath)
			}
			l.operations[op.FullName()] = append(l.operations[op.FullName()], op)
			u.elements = append(u.elements, op)
		}
	}
	return nil
}

func (l *loader) container(u *unit, c *Container, defaultNamespace string) (*edm.EntityContainer, error) {
	ns := c.Namespace
	if ns == "" {
		ns = defaultNamespace
	}
	name := c.Name
	if name == "" {
		name = "Container"
	}
	out := edm.NewEntityContainer(ns, name)

	entityType := func(kind, source, typeName string) (*edm.EntityType, error) {
		t, _ := l.lookup(u, typeName)
		et, ok := t.(*edm.EntityType)
		if !ok {
			return nil, invalid("%s %s: unknown entity type %s", kind, source, typeName)
		}
		return et, nil
	}
	for _, s := range c.EntitySets {
		et, err := entityType("entity set", s.Name, s.EntityType)
		if err != nil {
			return nil, err
		}
		out.AddEntitySet(s.Name, et)
	}
	for _, s := range c.Singletons {
		et, err := entityType("singleton", s.Name, s.EntityType)
		if err != nil {
			return nil, err
		}
		out.AddSingleton(s.Name, et)
	}
	for _, imp := range c.Imports {
		var target *edm.Operation
		for _, op := range l.operations[imp.Operation] {
			if !op.IsBound() {
				target = op
				break
			}
		}
		if target == nil {
			return nil, invalid("operation import %s: no unbound operation %s", imp.Name, imp.Operation)
		}
		out.AddOperationImport(imp.Name, target, imp.EntitySet)
	}
	return out, nil
}

// typeRef resolves a compact type specification.
func (l *loader) typeRef(u *unit, spec string) (edm.TypeReference, error) {
	name, facets, err := edm.ParseTypeSpec(spec)
	if err != nil {
		return edm.TypeReference{}, fmt.Errorf("%w: %v", ErrInvalidModel, err)
	}
	if name == "" {
		return edm.TypeReference{}, invalid("missing type in %q", spec)
	}

	collection := false
	if inner, ok := strings.CutPrefix(name, "Collection("); ok && strings.HasSuffix(inner, ")") {
		name = strings.TrimSuffix(inner, ")")
		collection = true
	}

	var def edm.Type
	if p := edm.FindPrimitiveType(name); p != nil {
		def = p
	} else if t, ok := l.lookup(u, name); ok {
		def = t
	} else {
		return edm.TypeReference{}, invalid("unknown type %s", name)
	}
	if collection {
		def = edm.CollectionOf(def)
	}
	return edm.TypeReference{Definition: def, Nullable: facets.Nullable, Facets: facets}, nil
}
