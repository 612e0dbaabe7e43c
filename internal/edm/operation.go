package edm

// OperationParameter is a formal parameter of an action or function.
type OperationParameter struct {
	name      string
	typ       TypeReference
	operation *Operation
	optional  bool
}

func (p *OperationParameter) Name() string          { return p.name }
func (p *OperationParameter) Type() TypeReference   { return p.typ }
func (p *OperationParameter) Operation() *Operation { return p.operation }
func (p *OperationParameter) IsOptional() bool      { return p.optional }

// Operation is an action or a function.
type Operation struct {
	schemaElement
	kind          SchemaElementKind
	isBound       bool
	isComposable  bool
	parameters    []*OperationParameter
	returnType    *TypeReference
	entitySetPath string
}

// NewAction declares an action. A bound action's first parameter is its
// binding parameter.
func NewAction(namespace, name string, isBound bool) *Operation {
	return &Operation{
		schemaElement: schemaElement{namespace: namespace, name: name},
		kind:          SchemaElementAction,
		isBound:       isBound,
	}
}

// NewFunction declares a function.
func NewFunction(namespace, name string, isBound, isComposable bool) *Operation {
	return &Operation{
		schemaElement: schemaElement{namespace: namespace, name: name},
		kind:          SchemaElementFunction,
		isBound:       isBound,
		isComposable:  isComposable,
	}
}

func (o *Operation) SchemaElementKind() SchemaElementKind { return o.kind }
func (o *Operation) IsAction() bool                       { return o.kind == SchemaElementAction }
func (o *Operation) IsFunction() bool                     { return o.kind == SchemaElementFunction }
func (o *Operation) IsBound() bool                        { return o.isBound }
func (o *Operation) IsComposable() bool                   { return o.isComposable }
func (o *Operation) EntitySetPath() string                { return o.entitySetPath }

// AddParameter appends a formal parameter.
func (o *Operation) AddParameter(name string, typ TypeReference) *OperationParameter {
	p := &OperationParameter{name: name, typ: typ, operation: o}
	o.parameters = append(o.parameters, p)
	return p
}

// AddOptionalParameter appends a parameter that callers may omit.
func (o *Operation) AddOptionalParameter(name string, typ TypeReference) *OperationParameter {
	p := o.AddParameter(name, typ)
	p.optional = true
	return p
}

// SetReturnType sets the return type.
func (o *Operation) SetReturnType(typ TypeReference) *Operation {
	o.returnType = &typ
	return o
}

// SetEntitySetPath sets the path used to derive the returned entity set.
func (o *Operation) SetEntitySetPath(path string) *Operation {
	o.entitySetPath = path
	return o
}

// ReturnType returns the declared return type, or nil for actions without one.
func (o *Operation) ReturnType() *TypeReference { return o.returnType }

// Parameters returns the formal parameters in declaration order.
func (o *Operation) Parameters() []*OperationParameter {
	out := make([]*OperationParameter, len(o.parameters))
	copy(out, o.parameters)
	return out
}

// FindParameter is an exact, case-sensitive lookup.
func (o *Operation) FindParameter(name string) *OperationParameter {
	for _, p := range o.parameters {
		if p.name == name {
			return p
		}
	}
	return nil
}

// BindingParameter returns the first parameter of a bound operation.
func (o *Operation) BindingParameter() *OperationParameter {
	if !o.isBound || len(o.parameters) == 0 {
		return nil
	}
	return o.parameters[0]
}

// HasEquivalentBindingType reports whether a bound operation can be invoked on
// a receiver of bindingType. The receiver may be the declared binding type or
// derive from it; collection receivers match collection bindings whose
// element type the receiver's element type is or derives from.
func (o *Operation) HasEquivalentBindingType(bindingType Type) bool {
	if bindingType == nil {
		return false
	}
	param := o.BindingParameter()
	if param == nil {
		return false
	}
	declared := param.Type().Definition
	if declared == nil {
		return false
	}
	if declared.TypeKind() != bindingType.TypeKind() {
		return false
	}
	if declared.TypeKind() == TypeKindCollection {
		declaredElem := declared.(*CollectionType).ElementType.Definition
		actualElem := bindingType.(*CollectionType).ElementType.Definition
		return IsOrInheritsFrom(actualElem, declaredElem)
	}
	return IsOrInheritsFrom(bindingType, declared)
}
