// Package query holds the typed expression nodes that identifier resolution
// consumes when binding operation arguments and promoting binary operands.
package query

import "github.com/nlstn/odata-resolver/internal/edm"

// ASTNode represents a typed node in an expression tree
type ASTNode interface {
	astNode()
	// TypeRef returns the static type of the node. Untyped null literals
	// return a reference with no definition.
	TypeRef() edm.TypeReference
}

// BinaryOperator represents binary comparison, logical and arithmetic operators
type BinaryOperator string

const (
	OpEqual              BinaryOperator = "eq"
	OpNotEqual           BinaryOperator = "ne"
	OpGreaterThan        BinaryOperator = "gt"
	OpGreaterThanOrEqual BinaryOperator = "ge"
	OpLessThan           BinaryOperator = "lt"
	OpLessThanOrEqual    BinaryOperator = "le"
	OpHas                BinaryOperator = "has"
	OpAnd                BinaryOperator = "and"
	OpOr                 BinaryOperator = "or"
	OpAdd                BinaryOperator = "add"
	OpSub                BinaryOperator = "sub"
	OpMul                BinaryOperator = "mul"
	OpDiv                BinaryOperator = "div"
	OpMod                BinaryOperator = "mod"
)

// ParseBinaryOperator returns the operator spelled op.
func ParseBinaryOperator(op string) (BinaryOperator, bool) {
	switch o := BinaryOperator(op); o {
	case OpEqual, OpNotEqual, OpGreaterThan, OpGreaterThanOrEqual, OpLessThan, OpLessThanOrEqual,
		OpHas, OpAnd, OpOr, OpAdd, OpSub, OpMul, OpDiv, OpMod:
		return o, true
	}
	return "", false
}

// IsEquality reports whether o is eq or ne.
func (o BinaryOperator) IsEquality() bool { return o == OpEqual || o == OpNotEqual }

// IsRelational reports whether o is an ordering comparison.
func (o BinaryOperator) IsRelational() bool {
	switch o {
	case OpGreaterThan, OpGreaterThanOrEqual, OpLessThan, OpLessThanOrEqual:
		return true
	}
	return false
}

// IsLogical reports whether o is and/or.
func (o BinaryOperator) IsLogical() bool { return o == OpAnd || o == OpOr }

// IsArithmetic reports whether o is an arithmetic operator.
func (o BinaryOperator) IsArithmetic() bool {
	switch o {
	case OpAdd, OpSub, OpMul, OpDiv, OpMod:
		return true
	}
	return false
}

// LiteralExpr represents a constant. Value holds an edm.Value, an
// edm.EnumValue or nil for null. LiteralText is the text the constant was
// parsed from; for string constants it is the unquoted content.
type LiteralExpr struct {
	Value       interface{}
	LiteralText string
	Type        edm.TypeReference
}

func (e *LiteralExpr) astNode()                   {}
func (e *LiteralExpr) TypeRef() edm.TypeReference { return e.Type }

// IsNull reports whether the literal is an untyped or typed null.
func (e *LiteralExpr) IsNull() bool { return e.Value == nil }

// NewStringLiteral returns an Edm.String constant.
func NewStringLiteral(s string) *LiteralExpr {
	v, _ := edm.NewString(s, edm.Facets{})
	return &LiteralExpr{Value: v, LiteralText: s, Type: edm.PrimitiveRef(edm.PrimitiveString, false)}
}

// NewNullLiteral returns an untyped null constant.
func NewNullLiteral() *LiteralExpr {
	return &LiteralExpr{LiteralText: "null"}
}

// NewEnumLiteral returns a typed enum constant.
func NewEnumLiteral(v edm.EnumValue) *LiteralExpr {
	return &LiteralExpr{Value: v, LiteralText: v.String(), Type: edm.NewTypeReference(v.Type, false)}
}

// NewValueLiteral wraps a primitive value as a constant of typ.
func NewValueLiteral(v edm.Value, text string, typ edm.TypeReference) *LiteralExpr {
	if v != nil && v.IsNull() {
		return &LiteralExpr{LiteralText: text, Type: typ}
	}
	return &LiteralExpr{Value: v, LiteralText: text, Type: typ}
}

// IsStringLiteral reports whether node is a non-null Edm.String constant.
func IsStringLiteral(node ASTNode) (*LiteralExpr, bool) {
	lit, ok := node.(*LiteralExpr)
	if !ok || lit.IsNull() || lit.Type.PrimitiveKind() != edm.PrimitiveString {
		return nil, false
	}
	return lit, true
}

// PropertyExpr represents access to a property of the current instance.
type PropertyExpr struct {
	Property edm.Property
}

func (e *PropertyExpr) astNode() {}

func (e *PropertyExpr) TypeRef() edm.TypeReference {
	if e.Property == nil {
		return edm.TypeReference{}
	}
	return e.Property.Type()
}

// ConvertExpr represents an implicit conversion introduced by promotion.
type ConvertExpr struct {
	Source ASTNode
	Type   edm.TypeReference
}

func (e *ConvertExpr) astNode()                   {}
func (e *ConvertExpr) TypeRef() edm.TypeReference { return e.Type }

// BinaryExpr represents a binary expression (e.g., Price gt 100)
type BinaryExpr struct {
	Left     ASTNode
	Operator BinaryOperator
	Right    ASTNode
	Type     edm.TypeReference
}

func (e *BinaryExpr) astNode()                   {}
func (e *BinaryExpr) TypeRef() edm.TypeReference { return e.Type }
