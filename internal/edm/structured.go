package edm

// PropertyKind distinguishes structural from navigation properties.
type PropertyKind int

const (
	PropertyStructural PropertyKind = iota + 1
	PropertyNavigation
)

// Property is a member of a structured type.
type Property interface {
	Name() string
	Type() TypeReference
	DeclaringType() StructuredType
	PropertyKind() PropertyKind
}

// StructuredType is an entity or complex type.
type StructuredType interface {
	SchemaType
	BaseStructuredType() StructuredType
	IsAbstract() bool
	// DeclaredProperties returns the properties declared on this type only.
	DeclaredProperties() []Property
	// Properties returns inherited properties first, then declared ones.
	Properties() []Property
	// FindProperty is an exact, case-sensitive lookup including inherited
	// properties.
	FindProperty(name string) Property
}

// StructuralProperty is a primitive, enum, complex or collection valued
// property.
type StructuralProperty struct {
	name          string
	typ           TypeReference
	declaringType StructuredType
}

func (p *StructuralProperty) Name() string                  { return p.name }
func (p *StructuralProperty) Type() TypeReference           { return p.typ }
func (p *StructuralProperty) DeclaringType() StructuredType { return p.declaringType }
func (p *StructuralProperty) PropertyKind() PropertyKind    { return PropertyStructural }

// NavigationProperty points at another entity type.
type NavigationProperty struct {
	name           string
	typ            TypeReference
	declaringType  StructuredType
	containsTarget bool
}

func (p *NavigationProperty) Name() string                  { return p.name }
func (p *NavigationProperty) Type() TypeReference           { return p.typ }
func (p *NavigationProperty) DeclaringType() StructuredType { return p.declaringType }
func (p *NavigationProperty) PropertyKind() PropertyKind    { return PropertyNavigation }
func (p *NavigationProperty) ContainsTarget() bool          { return p.containsTarget }

// TargetEntityType returns the entity type at the end of the navigation.
func (p *NavigationProperty) TargetEntityType() *EntityType {
	def := p.typ.Definition
	if c, ok := def.(*CollectionType); ok {
		def = c.ElementType.Definition
	}
	et, _ := def.(*EntityType)
	return et
}

type structuredType struct {
	schemaElement
	self       StructuredType
	base       StructuredType
	abstract   bool
	openType   bool
	properties []Property
	byName     map[string]Property
}

func (t *structuredType) BaseStructuredType() StructuredType { return t.base }
func (t *structuredType) IsAbstract() bool                   { return t.abstract }
func (t *structuredType) IsOpen() bool                       { return t.openType }
func (t *structuredType) SchemaElementKind() SchemaElementKind {
	return SchemaElementType
}

func (t *structuredType) DeclaredProperties() []Property {
	out := make([]Property, len(t.properties))
	copy(out, t.properties)
	return out
}

func (t *structuredType) Properties() []Property {
	var out []Property
	if t.base != nil {
		out = t.base.Properties()
	}
	return append(out, t.properties...)
}

func (t *structuredType) FindProperty(name string) Property {
	if p, ok := t.byName[name]; ok {
		return p
	}
	if t.base != nil {
		return t.base.FindProperty(name)
	}
	return nil
}

func (t *structuredType) addProperty(p Property) {
	if t.byName == nil {
		t.byName = make(map[string]Property)
	}
	t.properties = append(t.properties, p)
	t.byName[p.Name()] = p
}

// AddStructuralProperty declares a structural property.
func (t *structuredType) AddStructuralProperty(name string, typ TypeReference) *StructuralProperty {
	p := &StructuralProperty{name: name, typ: typ, declaringType: t.self}
	t.addProperty(p)
	return p
}

// KeyAlias maps an alternate-key alias to the property it names.
type KeyAlias struct {
	Alias    string
	Property *StructuralProperty
}

// AlternateKey is an ordered set of aliased key properties.
type AlternateKey []KeyAlias

// EntityType is a structured type with a key.
type EntityType struct {
	structuredType
	key           []*StructuralProperty
	alternateKeys []AlternateKey
	hasStream     bool
}

// NewEntityType declares an entity type. base may be nil.
func NewEntityType(namespace, name string, base *EntityType) *EntityType {
	t := &EntityType{}
	t.schemaElement = schemaElement{namespace: namespace, name: name}
	t.self = t
	if base != nil {
		t.base = base
	}
	return t
}

func (t *EntityType) TypeKind() TypeKind { return TypeKindEntity }

// SetAbstract marks the type abstract. Abstract types may omit a key.
func (t *EntityType) SetAbstract(abstract bool) *EntityType {
	t.abstract = abstract
	return t
}

// SetOpen marks the type as open.
func (t *EntityType) SetOpen(open bool) *EntityType {
	t.openType = open
	return t
}

// SetHasStream marks the type as a media entity.
func (t *EntityType) SetHasStream(hasStream bool) *EntityType {
	t.hasStream = hasStream
	return t
}

func (t *EntityType) HasStream() bool { return t.hasStream }

// BaseEntityType returns the base type or nil.
func (t *EntityType) BaseEntityType() *EntityType {
	b, _ := t.base.(*EntityType)
	return b
}

// AddNavigationProperty declares a navigation property to target.
func (t *EntityType) AddNavigationProperty(name string, target *EntityType, collection, nullable bool) *NavigationProperty {
	var def Type = target
	if collection {
		def = CollectionOf(target)
	}
	p := &NavigationProperty{name: name, typ: NewTypeReference(def, nullable), declaringType: t}
	t.addProperty(p)
	return p
}

// AddContainedNavigationProperty declares a containment navigation property.
func (t *EntityType) AddContainedNavigationProperty(name string, target *EntityType, collection bool) *NavigationProperty {
	p := t.AddNavigationProperty(name, target, collection, false)
	p.containsTarget = true
	return p
}

// AddKeys appends properties to the declared key in order.
func (t *EntityType) AddKeys(props ...*StructuralProperty) *EntityType {
	t.key = append(t.key, props...)
	return t
}

// DeclaredKey returns the key declared on this type only.
func (t *EntityType) DeclaredKey() []*StructuralProperty {
	out := make([]*StructuralProperty, len(t.key))
	copy(out, t.key)
	return out
}

// Key returns the effective key: the declared key of the nearest type in the
// inheritance chain that declares one.
func (t *EntityType) Key() []*StructuralProperty {
	for cur := t; cur != nil; cur = cur.BaseEntityType() {
		if len(cur.key) > 0 {
			return cur.DeclaredKey()
		}
	}
	return nil
}

// AddAlternateKey declares an alternate key. Declaration order is preserved.
func (t *EntityType) AddAlternateKey(aliases ...KeyAlias) *EntityType {
	key := make(AlternateKey, len(aliases))
	copy(key, aliases)
	t.alternateKeys = append(t.alternateKeys, key)
	return t
}

// AlternateKeys returns the alternate keys declared on the type, followed by
// those inherited from base types.
func (t *EntityType) AlternateKeys() []AlternateKey {
	var out []AlternateKey
	for cur := t; cur != nil; cur = cur.BaseEntityType() {
		out = append(out, cur.alternateKeys...)
	}
	return out
}

// ComplexType is a keyless structured type.
type ComplexType struct {
	structuredType
}

// NewComplexType declares a complex type. base may be nil.
func NewComplexType(namespace, name string, base *ComplexType) *ComplexType {
	t := &ComplexType{}
	t.schemaElement = schemaElement{namespace: namespace, name: name}
	t.self = t
	if base != nil {
		t.base = base
	}
	return t
}

func (t *ComplexType) TypeKind() TypeKind { return TypeKindComplex }

// SetAbstract marks the type abstract.
func (t *ComplexType) SetAbstract(abstract bool) *ComplexType {
	t.abstract = abstract
	return t
}
