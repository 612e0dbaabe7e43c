package resolver

import (
	"log/slog"

	"github.com/nlstn/odata-resolver/internal/edm"
	"github.com/nlstn/odata-resolver/internal/schemaindex"
)

// operationResolver resolves namespace-qualified operation names.
type operationResolver struct {
	caseInsensitive bool
	index           func(edm.Model) *schemaindex.Index
	logger          *slog.Logger
}

func (o *operationResolver) ResolveBoundOperations(model edm.Model, identifier string, bindingType edm.Type) ([]*edm.Operation, error) {
	if model == nil {
		return nil, nil
	}
	if ops := edm.FindBoundOperations(model, identifier, bindingType); len(ops) > 0 || !o.caseInsensitive {
		return ops, nil
	}
	return o.fallback(model, identifier, func(op *edm.Operation) bool {
		return op.IsBound() && op.HasEquivalentBindingType(bindingType)
	})
}

func (o *operationResolver) ResolveUnboundOperations(model edm.Model, identifier string) ([]*edm.Operation, error) {
	if model == nil {
		return nil, nil
	}
	if ops := edm.FindUnboundOperations(model, identifier); len(ops) > 0 || !o.caseInsensitive {
		return ops, nil
	}
	return o.fallback(model, identifier, func(op *edm.Operation) bool {
		return !op.IsBound()
	})
}

// fallback filters the case-insensitive index hits with keep. Overloads of
// one name are returned together; hits under two spellings are ambiguous.
func (o *operationResolver) fallback(model edm.Model, identifier string, keep func(*edm.Operation) bool) ([]*edm.Operation, error) {
	var ops []*edm.Operation
	for _, op := range o.index(model).FindOperations(identifier) {
		if keep(op) {
			ops = append(ops, op)
		}
	}
	o.logger.Debug("case-insensitive fallback",
		slog.String("element", string(ElementOperation)),
		slog.String("identifier", identifier),
		slog.Int("candidates", len(ops)),
	)
	if distinctNames(ops, (*edm.Operation).FullName) > 1 {
		return nil, ambiguous(ElementOperation, identifier)
	}
	return ops, nil
}

// unqualifiedOperationResolver lets operations be named without their
// namespace. Qualified names go to the qualified resolver.
type unqualifiedOperationResolver struct {
	qualified *operationResolver
	logger    *slog.Logger
}

func (u *unqualifiedOperationResolver) ResolveBoundOperations(model edm.Model, identifier string, bindingType edm.Type) ([]*edm.Operation, error) {
	if model == nil {
		return nil, nil
	}
	if edm.IsQualified(identifier) {
		return u.qualified.ResolveBoundOperations(model, identifier, bindingType)
	}
	return u.resolve(model, identifier, func(op *edm.Operation) bool {
		return op.IsBound() && len(op.Parameters()) > 0 && op.HasEquivalentBindingType(bindingType)
	})
}

func (u *unqualifiedOperationResolver) ResolveUnboundOperations(model edm.Model, identifier string) ([]*edm.Operation, error) {
	if model == nil {
		return nil, nil
	}
	if edm.IsQualified(identifier) {
		return u.qualified.ResolveUnboundOperations(model, identifier)
	}
	return u.resolve(model, identifier, func(op *edm.Operation) bool {
		return !op.IsBound()
	})
}

func (u *unqualifiedOperationResolver) resolve(model edm.Model, identifier string, keep func(*edm.Operation) bool) ([]*edm.Operation, error) {
	ops := u.scan(model, keep, func(name string) bool { return name == identifier })
	if len(ops) > 0 || !u.qualified.caseInsensitive {
		u.log(identifier, len(ops))
		return ops, nil
	}

	ops = u.scan(model, keep, func(name string) bool { return schemaindex.EqualFold(name, identifier) })
	u.log(identifier, len(ops))
	if distinctNames(ops, (*edm.Operation).Name) > 1 {
		return nil, ambiguous(ElementOperation, identifier)
	}
	return ops, nil
}

// scan walks the model's own schema elements by simple name. Operations of
// referenced models must be called by their qualified name.
func (u *unqualifiedOperationResolver) scan(model edm.Model, keep func(*edm.Operation) bool, match func(string) bool) []*edm.Operation {
	var ops []*edm.Operation
	for _, e := range model.SchemaElements() {
		if op, ok := e.(*edm.Operation); ok && match(op.Name()) && keep(op) {
			ops = append(ops, op)
		}
	}
	return ops
}

func (u *unqualifiedOperationResolver) log(identifier string, candidates int) {
	u.logger.Debug("unqualified operation lookup",
		slog.String("identifier", identifier),
		slog.Int("candidates", candidates),
	)
}
