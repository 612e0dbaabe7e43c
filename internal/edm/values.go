package edm

import (
	"fmt"
	"math"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Value is a typed primitive value produced by literal conversion.
type Value interface {
	// TypeName returns the EDM type name (e.g., "Edm.String")
	TypeName() string

	// IsNull indicates if the value is null
	IsNull() bool

	// Value returns the underlying Go value
	Value() interface{}

	// String converts to OData literal format
	String() string

	// Facets returns the facets the value was validated against
	Facets() Facets
}

// Parser converts a Go value into a primitive Value, validating facets.
type Parser func(value interface{}, facets Facets) (Value, error)

// valueParsers maintains registered primitive parsers keyed by kind
var valueParsers sync.Map

// RegisterParser registers a parser for a primitive kind.
func RegisterParser(kind PrimitiveKind, parser Parser) {
	valueParsers.Store(kind, parser)
}

// ParseValue parses a Go value into the primitive type of the given kind.
func ParseValue(kind PrimitiveKind, value interface{}, facets Facets) (Value, error) {
	val, ok := valueParsers.Load(kind)
	if !ok {
		return nil, fmt.Errorf("unsupported EDM type: %s", kind)
	}
	return val.(Parser)(value, facets)
}

func init() {
	RegisterParser(PrimitiveBoolean, NewBoolean)
	RegisterParser(PrimitiveString, NewString)
	RegisterParser(PrimitiveDecimal, NewDecimal)
	RegisterParser(PrimitiveGuid, NewGuid)
	RegisterParser(PrimitiveDouble, newFloatParser(PrimitiveDouble, 64))
	RegisterParser(PrimitiveSingle, newFloatParser(PrimitiveSingle, 32))
	RegisterParser(PrimitiveByte, newIntParser(PrimitiveByte, 0, math.MaxUint8))
	RegisterParser(PrimitiveSByte, newIntParser(PrimitiveSByte, math.MinInt8, math.MaxInt8))
	RegisterParser(PrimitiveInt16, newIntParser(PrimitiveInt16, math.MinInt16, math.MaxInt16))
	RegisterParser(PrimitiveInt32, newIntParser(PrimitiveInt32, math.MinInt32, math.MaxInt32))
	RegisterParser(PrimitiveInt64, newIntParser(PrimitiveInt64, math.MinInt64, math.MaxInt64))
}

// Null is the null value of any primitive type.
type Null struct {
	kind PrimitiveKind
}

// NewNull returns the null value of kind.
func NewNull(kind PrimitiveKind) *Null { return &Null{kind: kind} }

func (n *Null) TypeName() string   { return n.kind.String() }
func (n *Null) IsNull() bool       { return true }
func (n *Null) Value() interface{} { return nil }
func (n *Null) String() string     { return "null" }
func (n *Null) Facets() Facets     { return Facets{Nullable: true} }

// Int represents the integral types Byte, SByte, Int16, Int32 and Int64.
type Int struct {
	kind   PrimitiveKind
	value  int64
	facets Facets
}

func newIntParser(kind PrimitiveKind, lo, hi int64) Parser {
	return func(value interface{}, facets Facets) (Value, error) {
		if value == nil {
			return NewNull(kind), nil
		}
		var n int64
		switch v := value.(type) {
		case int64:
			n = v
		case int:
			n = int64(v)
		case int32:
			n = int64(v)
		case string:
			parsed, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("cannot parse '%s' as %s", v, kind)
			}
			n = parsed
		case float64:
			if v != math.Trunc(v) {
				return nil, fmt.Errorf("value %v is not integral for %s", v, kind)
			}
			n = int64(v)
		default:
			return nil, fmt.Errorf("cannot convert %T to %s", value, kind)
		}
		if n < lo || n > hi {
			return nil, fmt.Errorf("value %d out of range for %s", n, kind)
		}
		return &Int{kind: kind, value: n, facets: facets}, nil
	}
}

func (i *Int) TypeName() string    { return i.kind.String() }
func (i *Int) IsNull() bool        { return false }
func (i *Int) Value() interface{}  { return i.value }
func (i *Int) Int64() int64        { return i.value }
func (i *Int) Kind() PrimitiveKind { return i.kind }
func (i *Int) String() string      { return strconv.FormatInt(i.value, 10) }
func (i *Int) Facets() Facets      { return i.facets }

// Float represents Edm.Double and Edm.Single.
type Float struct {
	kind   PrimitiveKind
	value  float64
	facets Facets
}

func newFloatParser(kind PrimitiveKind, bits int) Parser {
	return func(value interface{}, facets Facets) (Value, error) {
		if value == nil {
			return NewNull(kind), nil
		}
		var f float64
		switch v := value.(type) {
		case float64:
			f = v
		case float32:
			f = float64(v)
		case int64:
			f = float64(v)
		case int:
			f = float64(v)
		case string:
			parsed, err := parseFloatLiteral(v, bits)
			if err != nil {
				return nil, fmt.Errorf("cannot parse '%s' as %s", v, kind)
			}
			f = parsed
		default:
			return nil, fmt.Errorf("cannot convert %T to %s", value, kind)
		}
		if bits == 32 && !math.IsInf(f, 0) && !math.IsNaN(f) && math.Abs(f) > math.MaxFloat32 {
			return nil, fmt.Errorf("value %v out of range for %s", f, kind)
		}
		return &Float{kind: kind, value: f, facets: facets}, nil
	}
}

func parseFloatLiteral(s string, bits int) (float64, error) {
	switch s {
	case "INF":
		return math.Inf(1), nil
	case "-INF":
		return math.Inf(-1), nil
	case "NaN":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, bits)
}

func (f *Float) TypeName() string   { return f.kind.String() }
func (f *Float) IsNull() bool       { return false }
func (f *Float) Value() interface{} { return f.value }
func (f *Float) Float64() float64   { return f.value }
func (f *Float) Facets() Facets     { return f.facets }
func (f *Float) String() string {
	switch {
	case math.IsInf(f.value, 1):
		return "INF"
	case math.IsInf(f.value, -1):
		return "-INF"
	case math.IsNaN(f.value):
		return "NaN"
	}
	bits := 64
	if f.kind == PrimitiveSingle {
		bits = 32
	}
	return strconv.FormatFloat(f.value, 'G', -1, bits)
}

// Decimal represents an Edm.Decimal value with arbitrary precision
type Decimal struct {
	value  decimal.Decimal
	facets Facets
}

// NewDecimal creates a new Edm.Decimal from a value
func NewDecimal(value interface{}, facets Facets) (Value, error) {
	if value == nil {
		return NewNull(PrimitiveDecimal), nil
	}

	var decValue decimal.Decimal
	switch v := value.(type) {
	case decimal.Decimal:
		decValue = v
	case string:
		var err error
		decValue, err = decimal.NewFromString(v)
		if err != nil {
			return nil, fmt.Errorf("cannot parse '%s' as Edm.Decimal: %w", v, err)
		}
	case float64:
		decValue = decimal.NewFromFloat(v)
	case int:
		decValue = decimal.NewFromInt(int64(v))
	case int64:
		decValue = decimal.NewFromInt(v)
	default:
		return nil, fmt.Errorf("cannot convert %T to Edm.Decimal", value)
	}

	if err := ValidateDecimalFacets(decValue.String(), facets); err != nil {
		return nil, err
	}
	return &Decimal{value: decValue, facets: facets}, nil
}

func (d *Decimal) TypeName() string         { return PrimitiveDecimal.String() }
func (d *Decimal) IsNull() bool             { return false }
func (d *Decimal) Value() interface{}       { return d.value }
func (d *Decimal) Decimal() decimal.Decimal { return d.value }
func (d *Decimal) String() string           { return d.value.String() }
func (d *Decimal) Facets() Facets           { return d.facets }

// Boolean represents an Edm.Boolean value
type Boolean struct {
	value bool
}

// NewBoolean creates a new Edm.Boolean from a value
func NewBoolean(value interface{}, facets Facets) (Value, error) {
	if value == nil {
		return NewNull(PrimitiveBoolean), nil
	}
	switch v := value.(type) {
	case bool:
		return &Boolean{value: v}, nil
	case string:
		switch v {
		case "true":
			return &Boolean{value: true}, nil
		case "false":
			return &Boolean{value: false}, nil
		}
		return nil, fmt.Errorf("cannot parse '%s' as Edm.Boolean", v)
	default:
		return nil, fmt.Errorf("cannot convert %T to Edm.Boolean", value)
	}
}

func (b *Boolean) TypeName() string   { return PrimitiveBoolean.String() }
func (b *Boolean) IsNull() bool       { return false }
func (b *Boolean) Value() interface{} { return b.value }
func (b *Boolean) Bool() bool         { return b.value }
func (b *Boolean) String() string     { return strconv.FormatBool(b.value) }
func (b *Boolean) Facets() Facets     { return Facets{} }

// String represents an Edm.String value
type String struct {
	value  string
	facets Facets
}

// NewString creates a new Edm.String from a value
func NewString(value interface{}, facets Facets) (Value, error) {
	if value == nil {
		return NewNull(PrimitiveString), nil
	}
	v, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("cannot convert %T to Edm.String", value)
	}
	if err := ValidateLengthFacet(len([]rune(v)), facets); err != nil {
		return nil, err
	}
	return &String{value: v, facets: facets}, nil
}

func (s *String) TypeName() string   { return PrimitiveString.String() }
func (s *String) IsNull() bool       { return false }
func (s *String) Value() interface{} { return s.value }
func (s *String) Facets() Facets     { return s.facets }

// String returns the raw string content.
func (s *String) String() string { return s.value }

// Guid represents an Edm.Guid value.
type Guid struct {
	value uuid.UUID
}

// NewGuid creates a new Edm.Guid from a uuid.UUID or its canonical text.
func NewGuid(value interface{}, facets Facets) (Value, error) {
	if value == nil {
		return NewNull(PrimitiveGuid), nil
	}
	switch v := value.(type) {
	case uuid.UUID:
		return &Guid{value: v}, nil
	case string:
		if len(v) != 36 {
			return nil, fmt.Errorf("cannot parse '%s' as Edm.Guid", v)
		}
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, fmt.Errorf("cannot parse '%s' as Edm.Guid: %w", v, err)
		}
		return &Guid{value: id}, nil
	default:
		return nil, fmt.Errorf("cannot convert %T to Edm.Guid", value)
	}
}

func (g *Guid) TypeName() string   { return PrimitiveGuid.String() }
func (g *Guid) IsNull() bool       { return false }
func (g *Guid) Value() interface{} { return g.value }
func (g *Guid) UUID() uuid.UUID    { return g.value }
func (g *Guid) String() string     { return g.value.String() }
func (g *Guid) Facets() Facets     { return Facets{} }
