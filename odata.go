// Package odata binds textual OData identifiers to the elements of an entity
// data model.
//
// A Resolver looks up navigation sources, properties, types, terms,
// operations and operation imports by name, binds operation parameters and
// entity keys, and promotes the operand types of binary expressions. Its
// policy is chosen with functional options:
//
//	model, err := odata.LoadModelFile("shop.yaml")
//	if err != nil {
//	    return err
//	}
//	r := odata.NewResolver(
//	    odata.WithCaseInsensitive(true),
//	    odata.WithAlternateKeys(true),
//	)
//	products, err := r.ResolveNavigationSource(model, "products")
//
// A lookup that finds nothing returns a nil result and a nil error. Failures
// are *ResolutionError values matching one of the Err* sentinels.
package odata

import (
	"log/slog"
	"net/http"

	"github.com/nlstn/odata-resolver/internal/edm"
	"github.com/nlstn/odata-resolver/internal/literal"
	"github.com/nlstn/odata-resolver/internal/modelfile"
	"github.com/nlstn/odata-resolver/internal/query"
	"github.com/nlstn/odata-resolver/internal/resolver"
	"github.com/nlstn/odata-resolver/internal/schemaindex"
)

// Option configures a Resolver.
type Option func(*resolver.Config)

// WithCaseInsensitive enables the case-insensitive fallback. An exact match
// always wins; a fallback with several candidates fails with ErrAmbiguousMatch.
func WithCaseInsensitive(enabled bool) Option {
	return func(c *resolver.Config) {
		c.CaseInsensitive = enabled
	}
}

// WithAlternateKeys lets named keys bind an alternate key of the entity type
// when they do not match its primary key.
func WithAlternateKeys(enabled bool) Option {
	return func(c *resolver.Config) {
		c.AlternateKeys = enabled
	}
}

// WithEnumAsString accepts 'Member' where an enum value is expected.
func WithEnumAsString(enabled bool) Option {
	return func(c *resolver.Config) {
		c.EnumAsString = enabled
	}
}

// WithUnqualifiedOperations accepts operation names without a namespace.
func WithUnqualifiedOperations(enabled bool) Option {
	return func(c *resolver.Config) {
		c.UnqualifiedOperations = enabled
	}
}

// WithLogger sets the logger. Fallback paths are logged at Debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(c *resolver.Config) {
		c.Logger = logger
	}
}

// WithObserver adds an observer notified after every resolution call.
// Observers added by repeated calls are all notified, in order.
func WithObserver(observer Observer) Option {
	return func(c *resolver.Config) {
		switch {
		case observer == nil:
		case c.Observer == nil:
			c.Observer = observer
		default:
			c.Observer = resolver.Observers{c.Observer, observer}
		}
	}
}

// WithIndexCache shares a schema index cache between resolvers.
func WithIndexCache(cache *IndexCache) Option {
	return func(c *resolver.Config) {
		c.IndexCache = cache
	}
}

// WithLegacyUpperCaseIndex keys the private index cache by upper-cased names
// instead of case-folded ones. It has no effect together with WithIndexCache.
func WithLegacyUpperCaseIndex() Option {
	return func(c *resolver.Config) {
		c.IndexOptions = append(c.IndexOptions, schemaindex.WithUpperCaseKeys())
	}
}

// Resolver resolves identifiers under a fixed policy. It is safe for
// concurrent use.
type Resolver struct {
	inner *resolver.Resolver
}

// NewResolver returns a resolver. Without options it is strict and
// case-sensitive.
func NewResolver(opts ...Option) *Resolver {
	var cfg resolver.Config
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Resolver{inner: resolver.New(cfg)}
}

// With derives a resolver with opts applied on top of r's policy. The index
// cache is shared with r.
func (r *Resolver) With(opts ...Option) *Resolver {
	return &Resolver{inner: r.inner.With(func(c *resolver.Config) {
		for _, opt := range opts {
			opt(c)
		}
	})}
}

// Config returns the resolver's policy.
func (r *Resolver) Config() Config {
	return r.inner.Config()
}

// ResolveNavigationSource finds an entity set or singleton of the model's container.
func (r *Resolver) ResolveNavigationSource(model Model, identifier string) (NavigationSource, error) {
	return r.inner.ResolveNavigationSource(model, identifier)
}

// ResolveProperty finds a declared or inherited property of typ.
func (r *Resolver) ResolveProperty(typ StructuredType, identifier string) (Property, error) {
	return r.inner.ResolveProperty(typ, identifier)
}

// ResolveType finds a schema type by qualified name.
func (r *Resolver) ResolveType(model Model, identifier string) (SchemaType, error) {
	return r.inner.ResolveType(model, identifier)
}

// ResolveTerm finds a term by qualified name.
func (r *Resolver) ResolveTerm(model Model, identifier string) (*Term, error) {
	return r.inner.ResolveTerm(model, identifier)
}

// ResolveOperationImports finds the operation imports named identifier.
func (r *Resolver) ResolveOperationImports(model Model, identifier string) ([]*OperationImport, error) {
	return r.inner.ResolveOperationImports(model, identifier)
}

// ResolveBoundOperations finds the overloads of identifier bindable to bindingType.
func (r *Resolver) ResolveBoundOperations(model Model, identifier string, bindingType Type) ([]*Operation, error) {
	return r.inner.ResolveBoundOperations(model, identifier, bindingType)
}

// ResolveUnboundOperations finds the unbound overloads of identifier.
func (r *Resolver) ResolveUnboundOperations(model Model, identifier string) ([]*Operation, error) {
	return r.inner.ResolveUnboundOperations(model, identifier)
}

// ResolveOperationParameters binds named arguments to the parameters of op.
// The result follows the declared parameter order.
func (r *Resolver) ResolveOperationParameters(op *Operation, args map[string]Node) ([]ParameterBinding, error) {
	return r.inner.ResolveOperationParameters(op, args)
}

// ResolvePositionalKeys binds key literals to the key properties of typ in
// declared order.
func (r *Resolver) ResolvePositionalKeys(typ *EntityType, literals []string, convert LiteralConverter) ([]KeyValue, error) {
	return r.inner.ResolvePositionalKeys(typ, literals, r.converter(convert))
}

// ResolveNamedKeys binds name=literal pairs to the key, or an alternate key,
// of typ.
func (r *Resolver) ResolveNamedKeys(typ *EntityType, named map[string]string, convert LiteralConverter) ([]KeyValue, error) {
	return r.inner.ResolveNamedKeys(typ, named, r.converter(convert))
}

// ResolveKeySegment parses a key predicate such as "(1)" or
// "(OrderID=1,LineNo=2)" and binds it with the default literal converter.
func (r *Resolver) ResolveKeySegment(typ *EntityType, segment string) ([]KeyValue, error) {
	seg, err := literal.ParseKeySegment(segment)
	if err != nil {
		return nil, &ODataError{
			StatusCode: http.StatusBadRequest,
			Code:       ErrorCodeBadRequest,
			Message:    err.Error(),
			Target:     segment,
			Err:        err,
		}
	}
	if seg.IsNamed() {
		return r.ResolveNamedKeys(typ, seg.Named, nil)
	}
	return r.ResolvePositionalKeys(typ, seg.Positional, nil)
}

// PromoteOperands computes the common type of the operands of a binary
// operator, wrapping converted operands. ok is false when the operands are
// incompatible.
func (r *Resolver) PromoteOperands(op BinaryOperator, left, right Node) (Promotion, bool) {
	return r.inner.PromoteBinaryOperandTypes(op, left, right)
}

// ModelFingerprint returns a hash of the names declared by model, as seen by
// r's schema index. It changes whenever a name is added, removed or renamed.
func (r *Resolver) ModelFingerprint(model Model) uint64 {
	return r.inner.Config().IndexCache.Get(model).Fingerprint()
}

func (r *Resolver) converter(convert LiteralConverter) resolver.LiteralConverter {
	if convert == nil {
		return literal.Convert
	}
	return convert
}

// ConvertLiteral converts OData URI literal text to a value of typ. It is the
// default LiteralConverter.
func ConvertLiteral(typ TypeReference, text string) (interface{}, bool) {
	return literal.Convert(typ, text)
}

// ParseConstant parses a constant of a $filter expression, such as 42,
// 'text' or Shop.Color'Red'. Enum type names are looked up in model.
func ParseConstant(model Model, text string) (*LiteralExpr, error) {
	return literal.ParseConstant(text, func(name string) (edm.SchemaType, error) {
		return edm.FindType(model, name)
	})
}

// LoadModelFile builds a model from a YAML description file.
func LoadModelFile(path string) (*EdmModel, error) {
	return modelfile.LoadFile(path)
}

// ParseModel builds a model from a YAML description.
func ParseModel(data []byte) (*EdmModel, error) {
	return modelfile.Parse(data)
}

// NewIndexCache returns a schema index cache that can be shared between
// resolvers with WithIndexCache.
func NewIndexCache(logger *slog.Logger) *IndexCache {
	if logger == nil {
		logger = slog.Default()
	}
	return schemaindex.NewCache(logger)
}

// NewProperty returns an expression referencing a property, for use as an
// operand of PromoteOperands.
func NewProperty(p Property) Node {
	return &query.PropertyExpr{Property: p}
}
