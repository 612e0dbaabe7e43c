package resolver

import (
	"log/slog"

	"github.com/nlstn/odata-resolver/internal/edm"
	"github.com/nlstn/odata-resolver/internal/query"
)

// numericPromotions lists, for each numeric kind, the kinds it converts to
// implicitly, itself included.
var numericPromotions = map[edm.PrimitiveKind][]edm.PrimitiveKind{
	edm.PrimitiveByte:    {edm.PrimitiveByte, edm.PrimitiveInt16, edm.PrimitiveInt32, edm.PrimitiveInt64, edm.PrimitiveSingle, edm.PrimitiveDouble, edm.PrimitiveDecimal},
	edm.PrimitiveSByte:   {edm.PrimitiveSByte, edm.PrimitiveInt16, edm.PrimitiveInt32, edm.PrimitiveInt64, edm.PrimitiveSingle, edm.PrimitiveDouble, edm.PrimitiveDecimal},
	edm.PrimitiveInt16:   {edm.PrimitiveInt16, edm.PrimitiveInt32, edm.PrimitiveInt64, edm.PrimitiveSingle, edm.PrimitiveDouble, edm.PrimitiveDecimal},
	edm.PrimitiveInt32:   {edm.PrimitiveInt32, edm.PrimitiveInt64, edm.PrimitiveSingle, edm.PrimitiveDouble, edm.PrimitiveDecimal},
	edm.PrimitiveInt64:   {edm.PrimitiveInt64, edm.PrimitiveSingle, edm.PrimitiveDouble, edm.PrimitiveDecimal},
	edm.PrimitiveSingle:  {edm.PrimitiveSingle, edm.PrimitiveDouble},
	edm.PrimitiveDouble:  {edm.PrimitiveDouble},
	edm.PrimitiveDecimal: {edm.PrimitiveDecimal},
}

// promotionOrder is the search order for the common type of two different
// numeric kinds.
var promotionOrder = []edm.PrimitiveKind{
	edm.PrimitiveInt16,
	edm.PrimitiveInt32,
	edm.PrimitiveInt64,
	edm.PrimitiveSingle,
	edm.PrimitiveDouble,
	edm.PrimitiveDecimal,
}

func canPromote(from, to edm.PrimitiveKind) bool {
	for _, k := range numericPromotions[from] {
		if k == to {
			return true
		}
	}
	return false
}

// commonNumericKind returns the narrowest kind both a and b convert to.
func commonNumericKind(a, b edm.PrimitiveKind) (edm.PrimitiveKind, bool) {
	if a == b {
		return a, a.IsNumeric()
	}
	for _, k := range promotionOrder {
		if canPromote(a, k) && canPromote(b, k) {
			return k, true
		}
	}
	return edm.PrimitiveNone, false
}

// standardPromoter implements the operand rules of binary operators.
type standardPromoter struct{}

func (standardPromoter) PromoteBinaryOperandTypes(op query.BinaryOperator, left, right query.ASTNode) (Promotion, bool) {
	if left == nil || right == nil {
		return Promotion{}, false
	}
	lt, rt := left.TypeRef(), right.TypeRef()

	// An untyped null takes the type of the other operand.
	switch {
	case lt.IsNil() && rt.IsNil():
		if op.IsEquality() {
			return Promotion{Left: left, Right: right}, true
		}
		return Promotion{}, false
	case lt.IsNil():
		lt = rt
	case rt.IsNil():
		rt = lt
	}

	var common edm.TypeReference
	switch {
	case op.IsLogical():
		if lt.PrimitiveKind() != edm.PrimitiveBoolean || rt.PrimitiveKind() != edm.PrimitiveBoolean {
			return Promotion{}, false
		}
		common = lt
	case op == query.OpHas:
		if !lt.IsEnum() || !rt.IsEnum() || lt.Definition != rt.Definition {
			return Promotion{}, false
		}
		common = lt
	case op.IsArithmetic():
		kind, ok := commonNumericKind(lt.PrimitiveKind(), rt.PrimitiveKind())
		if !ok {
			return Promotion{}, false
		}
		common = edm.PrimitiveRef(kind, lt.Nullable || rt.Nullable)
	case op.IsEquality() || op.IsRelational():
		t, ok := comparableType(op, lt, rt)
		if !ok {
			return Promotion{}, false
		}
		common = t
	default:
		return Promotion{}, false
	}

	return Promotion{Left: convertTo(left, common), Right: convertTo(right, common), Type: common}, true
}

func comparableType(op query.BinaryOperator, lt, rt edm.TypeReference) (edm.TypeReference, bool) {
	lk, rk := lt.PrimitiveKind(), rt.PrimitiveKind()
	switch {
	case lk.IsNumeric() && rk.IsNumeric():
		kind, ok := commonNumericKind(lk, rk)
		if !ok {
			return edm.TypeReference{}, false
		}
		return edm.PrimitiveRef(kind, lt.Nullable || rt.Nullable), true
	case lt.IsEnum() || rt.IsEnum():
		if lt.Definition != rt.Definition {
			return edm.TypeReference{}, false
		}
		return lt, true
	case lk != edm.PrimitiveNone && lk == rk:
		if op.IsRelational() && !lk.IsOrdered() {
			return edm.TypeReference{}, false
		}
		return lt, true
	case op.IsEquality() && (lt.Kind() == edm.TypeKindEntity || lt.Kind() == edm.TypeKindComplex):
		if edm.IsOrInheritsFrom(lt.Definition, rt.Definition) {
			return rt, true
		}
		if edm.IsOrInheritsFrom(rt.Definition, lt.Definition) {
			return lt, true
		}
	}
	return edm.TypeReference{}, false
}

// convertTo wraps node in a conversion when its type differs from typ.
// Nulls are left untouched.
func convertTo(node query.ASTNode, typ edm.TypeReference) query.ASTNode {
	t := node.TypeRef()
	if t.IsNil() || edm.TypesEqual(t.Definition, typ.Definition) {
		return node
	}
	return &query.ConvertExpr{Source: node, Type: typ}
}

// enumPromoter substitutes an enum constant for a string constant compared
// with an enum operand, then applies the wrapped rules. A string naming no
// member reaches the wrapped promoter unchanged.
type enumPromoter struct {
	next            TypePromoter
	caseInsensitive bool
	logger          *slog.Logger
}

func (e *enumPromoter) PromoteBinaryOperandTypes(op query.BinaryOperator, left, right query.ASTNode) (Promotion, bool) {
	if left != nil && right != nil {
		if coerced, ok := e.coerce(left.TypeRef(), right); ok {
			right = coerced
		} else if coerced, ok := e.coerce(right.TypeRef(), left); ok {
			left = coerced
		}
	}
	return e.next.PromoteBinaryOperandTypes(op, left, right)
}

func (e *enumPromoter) coerce(target edm.TypeReference, node query.ASTNode) (query.ASTNode, bool) {
	if !target.IsEnum() {
		return nil, false
	}
	lit, ok := query.IsStringLiteral(node)
	if !ok {
		return nil, false
	}
	v, ok := target.AsEnum().ParseMember(lit.LiteralText, e.caseInsensitive)
	if !ok {
		return nil, false
	}
	e.logger.Debug("string operand coerced to enum",
		slog.String("enum", target.FullName()),
		slog.String("literal", lit.LiteralText),
	)
	coerced := query.NewEnumLiteral(v)
	coerced.LiteralText = lit.LiteralText
	coerced.Type = target
	return coerced, true
}
