package resolver

import (
	"errors"
	"log/slog"

	"github.com/nlstn/odata-resolver/internal/edm"
	"github.com/nlstn/odata-resolver/internal/schemaindex"
)

// nameResolver is the base name strategy: exact model lookups, followed by
// the schema index when case-insensitive.
type nameResolver struct {
	caseInsensitive bool
	index           func(edm.Model) *schemaindex.Index
	logger          *slog.Logger
}

func (n *nameResolver) ResolveNavigationSource(model edm.Model, identifier string) (edm.NavigationSource, error) {
	if model == nil || model.EntityContainer() == nil {
		return nil, nil
	}
	container := model.EntityContainer()
	if src := container.FindNavigationSource(identifier); src != nil {
		return src, nil
	}
	if !n.caseInsensitive {
		return nil, nil
	}

	var candidates []edm.NavigationSource
	if ix := n.index(model); ix.IncludesContainer() {
		candidates = ix.FindNavigationSources(identifier)
	} else {
		for _, e := range container.Elements() {
			if src, ok := e.(edm.NavigationSource); ok && schemaindex.EqualFold(src.Name(), identifier) {
				candidates = append(candidates, src)
			}
		}
	}
	n.logFallback(ElementNavigationSource, identifier, len(candidates))
	return schemaindex.FindSingle(candidates, func() error {
		return ambiguous(ElementNavigationSource, identifier)
	})
}

func (n *nameResolver) ResolveProperty(typ edm.StructuredType, identifier string) (edm.Property, error) {
	if typ == nil {
		return nil, nil
	}
	if p := typ.FindProperty(identifier); p != nil {
		return p, nil
	}
	if !n.caseInsensitive {
		return nil, nil
	}

	var candidates []edm.Property
	for _, p := range typ.Properties() {
		if schemaindex.EqualFold(p.Name(), identifier) {
			candidates = append(candidates, p)
		}
	}
	n.logFallback(ElementProperty, identifier, len(candidates))
	return schemaindex.FindSingle(candidates, func() error {
		return ambiguous(ElementProperty, identifier)
	})
}

func (n *nameResolver) ResolveType(model edm.Model, identifier string) (edm.SchemaType, error) {
	if model == nil {
		return nil, nil
	}
	t, err := edm.FindType(model, identifier)
	if err != nil {
		return nil, modelError(ElementType, identifier, err)
	}
	if t != nil || !n.caseInsensitive {
		return t, nil
	}

	candidates := n.index(model).FindSchemaTypes(identifier)
	n.logFallback(ElementType, identifier, len(candidates))
	return schemaindex.FindSingle(candidates, func() error {
		return ambiguous(ElementType, identifier)
	})
}

func (n *nameResolver) ResolveTerm(model edm.Model, identifier string) (*edm.Term, error) {
	if model == nil {
		return nil, nil
	}
	t, err := edm.FindTerm(model, identifier)
	if err != nil {
		return nil, modelError(ElementTerm, identifier, err)
	}
	if t != nil || !n.caseInsensitive {
		return t, nil
	}

	candidates := n.index(model).FindTerms(identifier)
	n.logFallback(ElementTerm, identifier, len(candidates))
	return schemaindex.FindSingle(candidates, func() error {
		return ambiguous(ElementTerm, identifier)
	})
}

func (n *nameResolver) ResolveOperationImports(model edm.Model, identifier string) ([]*edm.OperationImport, error) {
	if model == nil || model.EntityContainer() == nil {
		return nil, nil
	}
	container := model.EntityContainer()
	if imports := container.FindOperationImports(identifier); len(imports) > 0 || !n.caseInsensitive {
		return imports, nil
	}

	var candidates []*edm.OperationImport
	if ix := n.index(model); ix.IncludesContainer() {
		candidates = ix.FindOperationImports(identifier)
	} else {
		for _, e := range container.Elements() {
			if imp, ok := e.(*edm.OperationImport); ok && schemaindex.EqualFold(imp.Name(), identifier) {
				candidates = append(candidates, imp)
			}
		}
	}
	n.logFallback(ElementOperationImport, identifier, len(candidates))
	// Overloads share one name; only distinct names are ambiguous.
	if distinctNames(candidates, (*edm.OperationImport).Name) > 1 {
		return nil, ambiguous(ElementOperationImport, identifier)
	}
	return candidates, nil
}

func (n *nameResolver) logFallback(element ElementKind, identifier string, candidates int) {
	n.logger.Debug("case-insensitive fallback",
		slog.String("element", string(element)),
		slog.String("identifier", identifier),
		slog.Int("candidates", candidates),
	)
}

// modelError maps a cross-model ambiguity reported by the model to an
// AmbiguousMatch resolution error.
func modelError(element ElementKind, identifier string, err error) error {
	if errors.Is(err, edm.ErrAmbiguousElement) {
		return ambiguous(element, identifier)
	}
	return err
}

func distinctNames[T any](items []T, name func(T) string) int {
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		seen[name(it)] = struct{}{}
	}
	return len(seen)
}
