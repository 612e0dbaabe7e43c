package edm

// PrimitiveKind enumerates the Edm primitive types known to the resolver.
type PrimitiveKind int

const (
	PrimitiveNone PrimitiveKind = iota
	PrimitiveBinary
	PrimitiveBoolean
	PrimitiveByte
	PrimitiveDate
	PrimitiveDateTimeOffset
	PrimitiveDecimal
	PrimitiveDouble
	PrimitiveDuration
	PrimitiveGuid
	PrimitiveInt16
	PrimitiveInt32
	PrimitiveInt64
	PrimitiveSByte
	PrimitiveSingle
	PrimitiveString
	PrimitiveTimeOfDay
)

var primitiveNames = map[PrimitiveKind]string{
	PrimitiveBinary:         "Binary",
	PrimitiveBoolean:        "Boolean",
	PrimitiveByte:           "Byte",
	PrimitiveDate:           "Date",
	PrimitiveDateTimeOffset: "DateTimeOffset",
	PrimitiveDecimal:        "Decimal",
	PrimitiveDouble:         "Double",
	PrimitiveDuration:       "Duration",
	PrimitiveGuid:           "Guid",
	PrimitiveInt16:          "Int16",
	PrimitiveInt32:          "Int32",
	PrimitiveInt64:          "Int64",
	PrimitiveSByte:          "SByte",
	PrimitiveSingle:         "Single",
	PrimitiveString:         "String",
	PrimitiveTimeOfDay:      "TimeOfDay",
}

// CoreNamespace is the namespace of the built-in primitive types.
const CoreNamespace = "Edm"

// PrimitiveType is one of the built-in Edm primitive types. Instances are
// shared; compare them by Kind.
type PrimitiveType struct {
	schemaElement
	kind PrimitiveKind
}

var primitiveTypes = func() map[PrimitiveKind]*PrimitiveType {
	m := make(map[PrimitiveKind]*PrimitiveType, len(primitiveNames))
	for kind, name := range primitiveNames {
		m[kind] = &PrimitiveType{schemaElement: schemaElement{namespace: CoreNamespace, name: name}, kind: kind}
	}
	return m
}()

var primitivesByFullName = func() map[string]*PrimitiveType {
	m := make(map[string]*PrimitiveType, len(primitiveTypes))
	for _, p := range primitiveTypes {
		m[p.FullName()] = p
	}
	return m
}()

// Primitive returns the shared primitive type for kind, or nil.
func Primitive(kind PrimitiveKind) *PrimitiveType {
	return primitiveTypes[kind]
}

// PrimitiveRef returns a reference to the primitive type of the given kind.
func PrimitiveRef(kind PrimitiveKind, nullable bool) TypeReference {
	return NewTypeReference(Primitive(kind), nullable)
}

// FindPrimitiveType looks up a primitive type by its qualified name such as
// "Edm.Int32".
func FindPrimitiveType(fullName string) *PrimitiveType {
	return primitivesByFullName[fullName]
}

// PrimitiveTypes returns every built-in primitive type.
func PrimitiveTypes() []*PrimitiveType {
	out := make([]*PrimitiveType, 0, len(primitiveTypes))
	for kind := PrimitiveBinary; kind <= PrimitiveTimeOfDay; kind++ {
		out = append(out, primitiveTypes[kind])
	}
	return out
}

func (p *PrimitiveType) Kind() PrimitiveKind                  { return p.kind }
func (p *PrimitiveType) TypeKind() TypeKind                   { return TypeKindPrimitive }
func (p *PrimitiveType) SchemaElementKind() SchemaElementKind { return SchemaElementType }

func (k PrimitiveKind) String() string {
	if name, ok := primitiveNames[k]; ok {
		return CoreNamespace + "." + name
	}
	return "None"
}

// IsNumeric reports whether values of kind take part in arithmetic promotion.
func (k PrimitiveKind) IsNumeric() bool {
	switch k {
	case PrimitiveByte, PrimitiveSByte, PrimitiveInt16, PrimitiveInt32, PrimitiveInt64,
		PrimitiveSingle, PrimitiveDouble, PrimitiveDecimal:
		return true
	}
	return false
}

// IsIntegral reports whether kind is an integer type.
func (k PrimitiveKind) IsIntegral() bool {
	switch k {
	case PrimitiveByte, PrimitiveSByte, PrimitiveInt16, PrimitiveInt32, PrimitiveInt64:
		return true
	}
	return false
}

// IsOrdered reports whether values of kind support lt/le/gt/ge.
func (k PrimitiveKind) IsOrdered() bool {
	if k.IsNumeric() {
		return true
	}
	switch k {
	case PrimitiveString, PrimitiveDate, PrimitiveDateTimeOffset, PrimitiveDuration,
		PrimitiveTimeOfDay, PrimitiveGuid, PrimitiveBoolean, PrimitiveBinary:
		return true
	}
	return false
}
