// Package resolver binds textual identifiers taken from request URIs and query
// expressions to elements of an EDM model.
//
// A Resolver composes independent strategies: name lookup, operation lookup,
// parameter binding, key binding and operand promotion. Policy flags select
// which variant of each strategy is used. All lookups try the exact,
// case-sensitive match first; the case-insensitive fallback runs only when
// that misses and is an error when more than one candidate remains.
package resolver

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/nlstn/odata-resolver/internal/edm"
	"github.com/nlstn/odata-resolver/internal/query"
	"github.com/nlstn/odata-resolver/internal/schemaindex"
)

// LiteralConverter converts literal text to a value of the target type. It
// returns false when the text is not a valid literal of that type.
type LiteralConverter func(typ edm.TypeReference, literal string) (interface{}, bool)

// KeyValue is one bound key property. Name is the property name for primary
// keys and the alias for alternate keys.
type KeyValue struct {
	Name     string
	Property *edm.StructuralProperty
	Value    interface{}
}

// ParameterBinding pairs an operation parameter with its argument.
type ParameterBinding struct {
	Parameter *edm.OperationParameter
	Value     query.ASTNode
}

// Promotion is the result of binary operand promotion. Left and Right are
// the operands after any implicit conversion; Type is their common type.
type Promotion struct {
	Left  query.ASTNode
	Right query.ASTNode
	Type  edm.TypeReference
}

// NameResolver binds names of navigation sources, properties, types, terms
// and operation imports. A miss returns a nil element and no error.
type NameResolver interface {
	ResolveNavigationSource(model edm.Model, identifier string) (edm.NavigationSource, error)
	ResolveProperty(typ edm.StructuredType, identifier string) (edm.Property, error)
	ResolveType(model edm.Model, identifier string) (edm.SchemaType, error)
	ResolveTerm(model edm.Model, identifier string) (*edm.Term, error)
	ResolveOperationImports(model edm.Model, identifier string) ([]*edm.OperationImport, error)
}

// OperationResolver finds operation overloads by name.
type OperationResolver interface {
	ResolveBoundOperations(model edm.Model, identifier string, bindingType edm.Type) ([]*edm.Operation, error)
	ResolveUnboundOperations(model edm.Model, identifier string) ([]*edm.Operation, error)
}

// ParameterResolver binds named arguments to an operation's parameters.
type ParameterResolver interface {
	ResolveOperationParameters(op *edm.Operation, input map[string]query.ASTNode) ([]ParameterBinding, error)
}

// KeyResolver binds key literals to an entity type's key properties.
type KeyResolver interface {
	ResolvePositionalKeys(typ *edm.EntityType, literals []string, convert LiteralConverter) ([]KeyValue, error)
	ResolveNamedKeys(typ *edm.EntityType, named map[string]string, convert LiteralConverter) ([]KeyValue, error)
}

// TypePromoter computes the common type of two binary operands. It reports
// false when the operands cannot be combined with op.
type TypePromoter interface {
	PromoteBinaryOperandTypes(op query.BinaryOperator, left, right query.ASTNode) (Promotion, bool)
}

// Config holds the policy of a Resolver. The zero value is the strict,
// case-sensitive resolver.
type Config struct {
	// CaseInsensitive enables the case-insensitive fallback for every
	// identifier kind, key names and enum member names.
	CaseInsensitive bool
	// AlternateKeys lets named keys match a declared alternate key when the
	// primary key does not match.
	AlternateKeys bool
	// EnumAsString accepts bare string literals where an enum is expected.
	EnumAsString bool
	// UnqualifiedOperations lets bound operations be called without their
	// namespace.
	UnqualifiedOperations bool

	Logger   *slog.Logger
	Observer Observer
	// IndexCache supplies schema indexes for the case-insensitive paths.
	// A private cache is created when nil.
	IndexCache *schemaindex.Cache
	// IndexOptions are used for the private cache only.
	IndexOptions []schemaindex.Option
}

// Resolver is safe for concurrent use. Its policy is fixed at construction.
type Resolver struct {
	cfg      Config
	logger   *slog.Logger
	observer Observer

	names      NameResolver
	operations OperationResolver
	parameters ParameterResolver
	keys       KeyResolver
	promoter   TypePromoter
}

// New builds a Resolver for cfg.
func New(cfg Config) *Resolver {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Observer == nil {
		cfg.Observer = noopObserver{}
	}
	if cfg.IndexCache == nil {
		cfg.IndexCache = schemaindex.NewCache(cfg.Logger, cfg.IndexOptions...)
	}

	r := &Resolver{cfg: cfg, logger: cfg.Logger, observer: cfg.Observer}
	index := cfg.IndexCache.Get

	r.names = &nameResolver{caseInsensitive: cfg.CaseInsensitive, index: index, logger: cfg.Logger}

	qualified := &operationResolver{caseInsensitive: cfg.CaseInsensitive, index: index, logger: cfg.Logger}
	r.operations = qualified
	if cfg.UnqualifiedOperations {
		r.operations = &unqualifiedOperationResolver{qualified: qualified, logger: cfg.Logger}
	}

	r.parameters = &parameterResolver{caseInsensitive: cfg.CaseInsensitive, logger: cfg.Logger}

	primary := &keyResolver{caseInsensitive: cfg.CaseInsensitive, logger: cfg.Logger}
	r.keys = primary
	if cfg.AlternateKeys {
		r.keys = &alternateKeyResolver{primary: primary, logger: cfg.Logger}
	}

	r.promoter = standardPromoter{}

	if cfg.EnumAsString {
		r.parameters = &enumParameterResolver{next: r.parameters, caseInsensitive: cfg.CaseInsensitive, logger: cfg.Logger}
		r.keys = &enumKeyResolver{next: r.keys, caseInsensitive: cfg.CaseInsensitive, logger: cfg.Logger}
		r.promoter = &enumPromoter{next: r.promoter, caseInsensitive: cfg.CaseInsensitive, logger: cfg.Logger}
	}
	return r
}

// Config returns the resolver's policy.
func (r *Resolver) Config() Config { return r.cfg }

// With returns a new Resolver whose policy is derived from r's by update.
// The schema index cache is shared.
func (r *Resolver) With(update func(*Config)) *Resolver {
	cfg := r.cfg
	if update != nil {
		update(&cfg)
	}
	return New(cfg)
}

// ResolveNavigationSource binds an entity set or singleton name.
func (r *Resolver) ResolveNavigationSource(model edm.Model, identifier string) (edm.NavigationSource, error) {
	src, err := r.names.ResolveNavigationSource(model, identifier)
	r.observe(Event{Element: ElementNavigationSource, Identifier: identifier, Matches: found(src != nil), Err: err})
	return src, err
}

// ResolveProperty binds a property of typ, including inherited properties.
func (r *Resolver) ResolveProperty(typ edm.StructuredType, identifier string) (edm.Property, error) {
	prop, err := r.names.ResolveProperty(typ, identifier)
	r.observe(Event{Element: ElementProperty, Identifier: identifier, Target: fullName(typ), Matches: found(prop != nil), Err: err})
	return prop, err
}

// ResolveType binds a qualified type name.
func (r *Resolver) ResolveType(model edm.Model, identifier string) (edm.SchemaType, error) {
	typ, err := r.names.ResolveType(model, identifier)
	r.observe(Event{Element: ElementType, Identifier: identifier, Matches: found(typ != nil), Err: err})
	return typ, err
}

// ResolveTerm binds a qualified term name.
func (r *Resolver) ResolveTerm(model edm.Model, identifier string) (*edm.Term, error) {
	term, err := r.names.ResolveTerm(model, identifier)
	r.observe(Event{Element: ElementTerm, Identifier: identifier, Matches: found(term != nil), Err: err})
	return term, err
}

// ResolveOperationImports binds an action or function import name.
func (r *Resolver) ResolveOperationImports(model edm.Model, identifier string) ([]*edm.OperationImport, error) {
	imports, err := r.names.ResolveOperationImports(model, identifier)
	r.observe(Event{Element: ElementOperationImport, Identifier: identifier, Matches: len(imports), Err: err})
	return imports, err
}

// ResolveBoundOperations finds the overloads of identifier that accept a
// receiver of bindingType.
func (r *Resolver) ResolveBoundOperations(model edm.Model, identifier string, bindingType edm.Type) ([]*edm.Operation, error) {
	ops, err := r.operations.ResolveBoundOperations(model, identifier, bindingType)
	r.observe(Event{Element: ElementOperation, Identifier: identifier, Target: typeName(bindingType), Matches: len(ops), Err: err})
	return ops, err
}

// ResolveUnboundOperations finds the unbound overloads of identifier.
func (r *Resolver) ResolveUnboundOperations(model edm.Model, identifier string) ([]*edm.Operation, error) {
	ops, err := r.operations.ResolveUnboundOperations(model, identifier)
	r.observe(Event{Element: ElementOperation, Identifier: identifier, Matches: len(ops), Err: err})
	return ops, err
}

// ResolveOperationParameters binds named arguments to op's parameters. The
// result follows the declared parameter order.
func (r *Resolver) ResolveOperationParameters(op *edm.Operation, input map[string]query.ASTNode) ([]ParameterBinding, error) {
	bindings, err := r.parameters.ResolveOperationParameters(op, input)
	r.observe(Event{Element: ElementParameter, Identifier: joinNames(input), Target: fullName(op), Matches: len(bindings), Err: err})
	return bindings, err
}

// ResolvePositionalKeys binds key literals given without names, in declared
// key order.
func (r *Resolver) ResolvePositionalKeys(typ *edm.EntityType, literals []string, convert LiteralConverter) ([]KeyValue, error) {
	keys, err := r.keys.ResolvePositionalKeys(typ, literals, convert)
	r.observe(Event{Element: ElementKey, Identifier: strings.Join(literals, ","), Target: fullName(typ), Matches: len(keys), Err: err})
	return keys, err
}

// ResolveNamedKeys binds Name=literal pairs to the primary key or, when
// enabled, to an alternate key.
func (r *Resolver) ResolveNamedKeys(typ *edm.EntityType, named map[string]string, convert LiteralConverter) ([]KeyValue, error) {
	keys, err := r.keys.ResolveNamedKeys(typ, named, convert)
	r.observe(Event{Element: ElementKey, Identifier: joinNames(named), Target: fullName(typ), Matches: len(keys), Err: err})
	return keys, err
}

// PromoteBinaryOperandTypes computes the common operand type of a binary
// expression, rewriting operands where an implicit conversion applies.
func (r *Resolver) PromoteBinaryOperandTypes(op query.BinaryOperator, left, right query.ASTNode) (Promotion, bool) {
	return r.promoter.PromoteBinaryOperandTypes(op, left, right)
}

func (r *Resolver) observe(e Event) {
	e.Outcome = outcomeOf(e.Matches, e.Err)
	if e.Err != nil {
		r.logger.Debug("identifier resolution failed",
			slog.String("element", string(e.Element)),
			slog.String("identifier", e.Identifier),
			slog.String("target", e.Target),
			slog.String("error", e.Err.Error()),
		)
	}
	r.observer.ObserveResolution(e)
}

func found(ok bool) int {
	if ok {
		return 1
	}
	return 0
}

type fullNamer interface{ FullName() string }

func fullName(n fullNamer) string {
	switch v := n.(type) {
	case nil:
		return ""
	case *edm.EntityType:
		if v == nil {
			return ""
		}
	case *edm.Operation:
		if v == nil {
			return ""
		}
	}
	return n.FullName()
}

func typeName(t edm.Type) string {
	if t == nil {
		return ""
	}
	return t.FullName()
}

func joinNames[V any](m map[string]V) string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}
