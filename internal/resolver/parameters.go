package resolver

import (
	"log/slog"
	"sort"

	"github.com/nlstn/odata-resolver/internal/edm"
	"github.com/nlstn/odata-resolver/internal/query"
	"github.com/nlstn/odata-resolver/internal/schemaindex"
)

// parameterResolver binds argument names to formal parameters, exactly or
// case-insensitively.
type parameterResolver struct {
	caseInsensitive bool
	logger          *slog.Logger
}

func (p *parameterResolver) ResolveOperationParameters(op *edm.Operation, input map[string]query.ASTNode) ([]ParameterBinding, error) {
	if op == nil {
		return nil, nil
	}

	names := make([]string, 0, len(input))
	for name := range input {
		names = append(names, name)
	}
	sort.Strings(names)

	bound := make(map[*edm.OperationParameter]query.ASTNode, len(input))
	for _, name := range names {
		param, err := p.findParameter(op, name)
		if err != nil {
			return nil, err
		}
		if _, dup := bound[param]; dup {
			return nil, ambiguous(ElementParameter, param.Name())
		}
		bound[param] = input[name]
	}

	bindings := make([]ParameterBinding, 0, len(bound))
	for _, param := range op.Parameters() {
		if v, ok := bound[param]; ok {
			bindings = append(bindings, ParameterBinding{Parameter: param, Value: v})
		}
	}
	return bindings, nil
}

func (p *parameterResolver) findParameter(op *edm.Operation, name string) (*edm.OperationParameter, error) {
	if param := op.FindParameter(name); param != nil {
		return param, nil
	}
	if p.caseInsensitive {
		var candidates []*edm.OperationParameter
		for _, param := range op.Parameters() {
			if schemaindex.EqualFold(param.Name(), name) {
				candidates = append(candidates, param)
			}
		}
		p.logger.Debug("case-insensitive fallback",
			slog.String("element", string(ElementParameter)),
			slog.String("identifier", name),
			slog.Int("candidates", len(candidates)),
		)
		param, err := schemaindex.FindSingle(candidates, func() error {
			return ambiguous(ElementParameter, name)
		})
		if err != nil || param != nil {
			return param, err
		}
	}
	return nil, &ResolutionError{
		Kind:       KindUnknownParameterName,
		Element:    ElementParameter,
		Identifier: name,
		Target:     op.FullName(),
	}
}

// enumParameterResolver turns string constants bound to enum parameters into
// enum constants. Strings that name no member are passed through unchanged.
type enumParameterResolver struct {
	next            ParameterResolver
	caseInsensitive bool
	logger          *slog.Logger
}

func (e *enumParameterResolver) ResolveOperationParameters(op *edm.Operation, input map[string]query.ASTNode) ([]ParameterBinding, error) {
	bindings, err := e.next.ResolveOperationParameters(op, input)
	if err != nil {
		return nil, err
	}
	for i, b := range bindings {
		typ := b.Parameter.Type()
		if !typ.IsEnum() {
			continue
		}
		lit, ok := query.IsStringLiteral(b.Value)
		if !ok {
			continue
		}
		v, ok := typ.AsEnum().ParseMember(lit.LiteralText, e.caseInsensitive)
		if !ok {
			continue
		}
		e.logger.Debug("string argument coerced to enum",
			slog.String("parameter", b.Parameter.Name()),
			slog.String("enum", typ.FullName()),
			slog.String("literal", lit.LiteralText),
		)
		coerced := query.NewEnumLiteral(v)
		coerced.LiteralText = lit.LiteralText
		coerced.Type = typ
		bindings[i].Value = coerced
	}
	return bindings, nil
}
