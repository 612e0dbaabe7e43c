package edm

// SchemaElementKind classifies a namespace-qualified schema element.
type SchemaElementKind int

const (
	SchemaElementNone SchemaElementKind = iota
	SchemaElementType
	SchemaElementAction
	SchemaElementFunction
	SchemaElementTerm
)

func (k SchemaElementKind) String() string {
	switch k {
	case SchemaElementType:
		return "Type"
	case SchemaElementAction:
		return "Action"
	case SchemaElementFunction:
		return "Function"
	case SchemaElementTerm:
		return "Term"
	default:
		return "None"
	}
}

// SchemaElement is a named, namespace-qualified model construct.
type SchemaElement interface {
	Name() string
	Namespace() string
	FullName() string
	SchemaElementKind() SchemaElementKind
}

// SchemaType is a schema element that is also a type definition.
type SchemaType interface {
	SchemaElement
	Type
}

type schemaElement struct {
	namespace string
	name      string
}

func (e *schemaElement) Name() string      { return e.name }
func (e *schemaElement) Namespace() string { return e.namespace }

func (e *schemaElement) FullName() string {
	if e.namespace == "" {
		return e.name
	}
	return e.namespace + "." + e.name
}

// Term is a vocabulary term.
type Term struct {
	schemaElement
	typ       TypeReference
	appliesTo string
}

// NewTerm declares a term of the given type.
func NewTerm(namespace, name string, typ TypeReference, appliesTo string) *Term {
	return &Term{
		schemaElement: schemaElement{namespace: namespace, name: name},
		typ:           typ,
		appliesTo:     appliesTo,
	}
}

func (t *Term) SchemaElementKind() SchemaElementKind { return SchemaElementTerm }
func (t *Term) Type() TypeReference                  { return t.typ }
func (t *Term) AppliesTo() string                    { return t.appliesTo }
