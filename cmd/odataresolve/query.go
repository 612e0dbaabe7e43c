package main

import (
	"fmt"
	"net/http"
	"strings"

	odata "github.com/nlstn/odata-resolver"
	"github.com/nlstn/odata-resolver/internal/edm"
	"github.com/nlstn/odata-resolver/internal/query"
)

// Kinds accepted by the resolve command and GET /resolve/{kind}.
const (
	kindNavigationSource = "navigation-source"
	kindProperty         = "property"
	kindType             = "type"
	kindTerm             = "term"
	kindOperationImport  = "operation-import"
	kindBoundOperation   = "bound-operation"
	kindUnboundOperation = "unbound-operation"
	kindKey              = "key"
	kindParameters       = "parameters"
	kindPromote          = "promote"
)

var kinds = []string{
	kindNavigationSource, kindProperty, kindType, kindTerm,
	kindOperationImport, kindBoundOperation, kindUnboundOperation,
	kindKey, kindParameters, kindPromote,
}

// request names one identifier to resolve. Type scopes properties, keys,
// bound operations and promotion; Key carries a key predicate, Operator and
// Value the right operand of a promotion, and Args the named arguments of an
// operation call.
type request struct {
	Kind     string
	Name     string
	Type     string
	Key      string
	Operator string
	Value    string
	Args     map[string]string
}

type match struct {
	Name     string `json:"name"`
	FullName string `json:"fullName,omitempty"`
	Kind     string `json:"kind"`
	Type     string `json:"type,omitempty"`
}

type keyValue struct {
	Name     string `json:"name"`
	Property string `json:"property"`
	Type     string `json:"type"`
	Value    string `json:"value"`
}

type argument struct {
	Parameter string `json:"parameter"`
	Type      string `json:"type"`
	Value     string `json:"value"`
}

type promotion struct {
	Type  string `json:"type"`
	Left  string `json:"left"`
	Right string `json:"right"`
}

type result struct {
	Kind       string     `json:"kind"`
	Identifier string     `json:"identifier"`
	Target     string     `json:"target,omitempty"`
	Matches    []match    `json:"matches,omitempty"`
	Keys       []keyValue `json:"keys,omitempty"`
	Arguments  []argument `json:"arguments,omitempty"`
	Promotion  *promotion `json:"promotion,omitempty"`
}

func badRequest(format string, args ...interface{}) *odata.ODataError {
	return &odata.ODataError{
		StatusCode: http.StatusBadRequest,
		Code:       odata.ErrorCodeBadRequest,
		Message:    fmt.Sprintf(format, args...),
	}
}

// run resolves req against model with r. Misses are reported as not-found
// errors so that callers always get either a match or an error.
func run(r *odata.Resolver, model odata.Model, req request) (*result, error) {
	if req.Name == "" && req.Kind != kindKey {
		return nil, badRequest("an identifier is required")
	}
	res := &result{Kind: req.Kind, Identifier: req.Name, Target: req.Type}

	switch req.Kind {
	case kindNavigationSource:
		src, err := r.ResolveNavigationSource(model, req.Name)
		if err != nil {
			return nil, err
		}
		if src == nil {
			return nil, odata.NotFoundError(req.Kind, req.Name)
		}
		res.Matches = []match{{
			Name: src.Name(),
			Kind: src.ContainerElementKind().String(),
			Type: src.EntityType().FullName(),
		}}

	case kindProperty:
		typ, err := structuredType(r, model, req.Type)
		if err != nil {
			return nil, err
		}
		p, err := r.ResolveProperty(typ, req.Name)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, odata.NotFoundError(req.Kind, req.Name)
		}
		res.Matches = []match{propertyMatch(p)}

	case kindType:
		t, err := r.ResolveType(model, req.Name)
		if err != nil {
			return nil, err
		}
		if t == nil {
			return nil, odata.NotFoundError(req.Kind, req.Name)
		}
		res.Matches = []match{{Name: t.Name(), FullName: t.FullName(), Kind: t.TypeKind().String()}}

	case kindTerm:
		term, err := r.ResolveTerm(model, req.Name)
		if err != nil {
			return nil, err
		}
		if term == nil {
			return nil, odata.NotFoundError(req.Kind, req.Name)
		}
		res.Matches = []match{{
			Name:     term.Name(),
			FullName: term.FullName(),
			Kind:     term.SchemaElementKind().String(),
			Type:     term.Type().FullName(),
		}}

	case kindOperationImport:
		imports, err := r.ResolveOperationImports(model, req.Name)
		if err != nil {
			return nil, err
		}
		if len(imports) == 0 {
			return nil, odata.NotFoundError(req.Kind, req.Name)
		}
		for _, imp := range imports {
			res.Matches = append(res.Matches, match{
				Name:     imp.Name(),
				FullName: imp.Operation().FullName(),
				Kind:     imp.ContainerElementKind().String(),
			})
		}

	case kindBoundOperation, kindUnboundOperation:
		ops, err := operations(r, model, req)
		if err != nil {
			return nil, err
		}
		for _, op := range ops {
			res.Matches = append(res.Matches, operationMatch(op))
		}

	case kindKey:
		et, err := entityType(r, model, req)
		if err != nil {
			return nil, err
		}
		res.Target = et.FullName()
		keys, err := r.ResolveKeySegment(et, req.Key)
		if err != nil {
			return nil, err
		}
		for _, kv := range keys {
			res.Keys = append(res.Keys, keyValue{
				Name:     kv.Name,
				Property: kv.Property.Name(),
				Type:     kv.Property.Type().FullName(),
				Value:    formatValue(kv.Value),
			})
		}

	case kindParameters:
		ops, err := operations(r, model, req)
		if err != nil {
			return nil, err
		}
		bindings, op, err := bindArguments(r, model, ops, req.Args)
		if err != nil {
			return nil, err
		}
		res.Matches = []match{operationMatch(op)}
		for _, b := range bindings {
			res.Arguments = append(res.Arguments, argument{
				Parameter: b.Parameter.Name(),
				Type:      b.Parameter.Type().FullName(),
				Value:     describe(b.Value),
			})
		}

	case kindPromote:
		p, err := promote(r, model, req)
		if err != nil {
			return nil, err
		}
		res.Promotion = p

	default:
		return nil, badRequest("unknown kind %q; expected one of %s", req.Kind, strings.Join(kinds, ", "))
	}
	return res, nil
}

func structuredType(r *odata.Resolver, model odata.Model, name string) (odata.StructuredType, error) {
	if name == "" {
		return nil, badRequest("a structured type is required")
	}
	t, err := r.ResolveType(model, name)
	if err != nil {
		return nil, err
	}
	st, ok := t.(odata.StructuredType)
	if !ok {
		return nil, odata.NotFoundError("structured type", name)
	}
	return st, nil
}

// entityType resolves the entity type keyed by a key request: the named type
// when Type is set, otherwise the type of the navigation source Name.
func entityType(r *odata.Resolver, model odata.Model, req request) (*odata.EntityType, error) {
	if req.Type != "" {
		t, err := r.ResolveType(model, req.Type)
		if err != nil {
			return nil, err
		}
		et, ok := t.(*odata.EntityType)
		if !ok {
			return nil, odata.NotFoundError("entity type", req.Type)
		}
		return et, nil
	}
	if req.Name == "" {
		return nil, badRequest("an entity set or entity type is required")
	}
	src, err := r.ResolveNavigationSource(model, req.Name)
	if err != nil {
		return nil, err
	}
	if src == nil {
		return nil, odata.NotFoundError(kindNavigationSource, req.Name)
	}
	return src.EntityType(), nil
}

// bindingType resolves a binding type name. Collection(T) binds to a
// collection of T.
func bindingType(r *odata.Resolver, model odata.Model, name string) (odata.Type, error) {
	inner, isCollection := strings.CutPrefix(name, "Collection(")
	if isCollection {
		inner = strings.TrimSuffix(inner, ")")
	}
	t, err := r.ResolveType(model, inner)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, odata.NotFoundError(kindType, inner)
	}
	if isCollection {
		return edm.CollectionOf(t), nil
	}
	return t, nil
}

// operations resolves the overloads of req.Name, bound to req.Type when it
// is set.
func operations(r *odata.Resolver, model odata.Model, req request) ([]*odata.Operation, error) {
	var (
		ops []*odata.Operation
		err error
	)
	if req.Type != "" {
		binding, berr := bindingType(r, model, req.Type)
		if berr != nil {
			return nil, berr
		}
		ops, err = r.ResolveBoundOperations(model, req.Name, binding)
	} else {
		if req.Kind == kindBoundOperation {
			return nil, badRequest("a binding type is required")
		}
		ops, err = r.ResolveUnboundOperations(model, req.Name)
	}
	if err != nil {
		return nil, err
	}
	if len(ops) == 0 {
		return nil, odata.NotFoundError("operation", req.Name)
	}
	return ops, nil
}

// bindArguments binds args to the first overload that accepts them.
func bindArguments(r *odata.Resolver, model odata.Model, ops []*odata.Operation, args map[string]string) ([]odata.ParameterBinding, *odata.Operation, error) {
	nodes := make(map[string]odata.Node, len(args))
	for name, text := range args {
		lit, err := odata.ParseConstant(model, text)
		if err != nil {
			return nil, nil, badRequest("argument %s: %v", name, err)
		}
		nodes[name] = lit
	}

	var firstErr error
	for _, op := range ops {
		bindings, err := r.ResolveOperationParameters(op, nodes)
		if err == nil {
			return bindings, op, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, nil, firstErr
}

func promote(r *odata.Resolver, model odata.Model, req request) (*promotion, error) {
	typ, err := structuredType(r, model, req.Type)
	if err != nil {
		return nil, err
	}
	p, err := r.ResolveProperty(typ, req.Name)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, odata.NotFoundError(kindProperty, req.Name)
	}
	op, ok := query.ParseBinaryOperator(req.Operator)
	if !ok {
		return nil, badRequest("unknown operator %q", req.Operator)
	}
	right, err := odata.ParseConstant(model, req.Value)
	if err != nil {
		return nil, badRequest("operand %s: %v", req.Value, err)
	}

	promoted, ok := r.PromoteOperands(op, odata.NewProperty(p), right)
	if !ok {
		return nil, badRequest("operands %s and %s are incompatible for %s", p.Name(), req.Value, op)
	}
	return &promotion{
		Type:  promoted.Type.FullName(),
		Left:  describe(promoted.Left),
		Right: describe(promoted.Right),
	}, nil
}

func propertyMatch(p odata.Property) match {
	kind := "structural"
	if p.PropertyKind() == edm.PropertyNavigation {
		kind = "navigation"
	}
	return match{Name: p.Name(), Kind: kind, Type: p.Type().FullName()}
}

func operationMatch(op *odata.Operation) match {
	return match{Name: op.Name(), FullName: op.FullName(), Kind: op.SchemaElementKind().String()}
}

// describe renders an operand the way it would appear in a $filter
// expression, with implicit conversions spelled out as cast calls.
func describe(n odata.Node) string {
	switch n := n.(type) {
	case *query.LiteralExpr:
		if n.IsNull() {
			return "null"
		}
		return formatValue(n.Value)
	case *query.PropertyExpr:
		return n.Property.Name()
	case *query.ConvertExpr:
		return fmt.Sprintf("cast(%s,%s)", describe(n.Source), n.Type.FullName())
	case nil:
		return ""
	default:
		return fmt.Sprintf("%T", n)
	}
}

func formatValue(v interface{}) string {
	switch v := v.(type) {
	case edm.EnumValue:
		return v.Literal()
	case edm.Value:
		return v.String()
	case nil:
		return "null"
	default:
		return fmt.Sprint(v)
	}
}
