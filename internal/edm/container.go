package edm

// ContainerElementKind classifies an entity container member.
type ContainerElementKind int

const (
	ContainerElementNone ContainerElementKind = iota
	ContainerElementEntitySet
	ContainerElementSingleton
	ContainerElementActionImport
	ContainerElementFunctionImport
)

func (k ContainerElementKind) String() string {
	switch k {
	case ContainerElementEntitySet:
		return "EntitySet"
	case ContainerElementSingleton:
		return "Singleton"
	case ContainerElementActionImport:
		return "ActionImport"
	case ContainerElementFunctionImport:
		return "FunctionImport"
	default:
		return "None"
	}
}

// ContainerElement is a named member of an entity container.
type ContainerElement interface {
	Name() string
	ContainerElementKind() ContainerElementKind
	Container() *EntityContainer
}

// NavigationSource is an entity set or a singleton.
type NavigationSource interface {
	ContainerElement
	EntityType() *EntityType
}

type containerElement struct {
	name      string
	container *EntityContainer
}

func (e *containerElement) Name() string                { return e.name }
func (e *containerElement) Container() *EntityContainer { return e.container }

// EntitySet is a collection-valued navigation source.
type EntitySet struct {
	containerElement
	entityType *EntityType
}

func (s *EntitySet) ContainerElementKind() ContainerElementKind { return ContainerElementEntitySet }
func (s *EntitySet) EntityType() *EntityType                    { return s.entityType }

// Singleton is a single-valued navigation source.
type Singleton struct {
	containerElement
	entityType *EntityType
}

func (s *Singleton) ContainerElementKind() ContainerElementKind { return ContainerElementSingleton }
func (s *Singleton) EntityType() *EntityType                    { return s.entityType }

// OperationImport exposes an unbound operation at the service root.
type OperationImport struct {
	containerElement
	operation *Operation
	entitySet string
}

func (i *OperationImport) ContainerElementKind() ContainerElementKind {
	if i.operation != nil && i.operation.IsAction() {
		return ContainerElementActionImport
	}
	return ContainerElementFunctionImport
}

func (i *OperationImport) Operation() *Operation { return i.operation }
func (i *OperationImport) EntitySet() string     { return i.entitySet }

// EntityContainer is the single container of a model.
type EntityContainer struct {
	schemaElement
	elements []ContainerElement
	byName   map[string][]ContainerElement
}

// NewEntityContainer declares a container.
func NewEntityContainer(namespace, name string) *EntityContainer {
	return &EntityContainer{
		schemaElement: schemaElement{namespace: namespace, name: name},
		byName:        make(map[string][]ContainerElement),
	}
}

func (c *EntityContainer) add(e ContainerElement) {
	c.elements = append(c.elements, e)
	c.byName[e.Name()] = append(c.byName[e.Name()], e)
}

// AddEntitySet declares an entity set of entityType.
func (c *EntityContainer) AddEntitySet(name string, entityType *EntityType) *EntitySet {
	s := &EntitySet{containerElement: containerElement{name: name, container: c}, entityType: entityType}
	c.add(s)
	return s
}

// AddSingleton declares a singleton of entityType.
func (c *EntityContainer) AddSingleton(name string, entityType *EntityType) *Singleton {
	s := &Singleton{containerElement: containerElement{name: name, container: c}, entityType: entityType}
	c.add(s)
	return s
}

// AddOperationImport exposes operation under name. The import kind follows
// the operation kind.
func (c *EntityContainer) AddOperationImport(name string, operation *Operation, entitySet string) *OperationImport {
	i := &OperationImport{
		containerElement: containerElement{name: name, container: c},
		operation:        operation,
		entitySet:        entitySet,
	}
	c.add(i)
	return i
}

// Elements returns every container element in declaration order.
func (c *EntityContainer) Elements() []ContainerElement {
	out := make([]ContainerElement, len(c.elements))
	copy(out, c.elements)
	return out
}

// FindEntitySet is an exact lookup.
func (c *EntityContainer) FindEntitySet(name string) *EntitySet {
	for _, e := range c.byName[name] {
		if s, ok := e.(*EntitySet); ok {
			return s
		}
	}
	return nil
}

// FindSingleton is an exact lookup.
func (c *EntityContainer) FindSingleton(name string) *Singleton {
	for _, e := range c.byName[name] {
		if s, ok := e.(*Singleton); ok {
			return s
		}
	}
	return nil
}

// FindNavigationSource returns the entity set or singleton named name.
func (c *EntityContainer) FindNavigationSource(name string) NavigationSource {
	if s := c.FindEntitySet(name); s != nil {
		return s
	}
	if s := c.FindSingleton(name); s != nil {
		return s
	}
	return nil
}

// FindOperationImports returns every import named name. A qualified name
// ("NS.Container/Name" or "NS.Container.Name") is accepted when it names this
// container.
func (c *EntityContainer) FindOperationImports(name string) []*OperationImport {
	name = c.stripContainerQualifier(name)
	var out []*OperationImport
	for _, e := range c.byName[name] {
		if i, ok := e.(*OperationImport); ok {
			out = append(out, i)
		}
	}
	return out
}

func (c *EntityContainer) stripContainerQualifier(name string) string {
	full := c.FullName()
	for _, sep := range []string{"/", "."} {
		prefix := full + sep
		if len(name) > len(prefix) && name[:len(prefix)] == prefix {
			return name[len(prefix):]
		}
	}
	return name
}
