// Package schemaindex builds read-only, case-normalized lookup tables over an
// EDM model and the models it references.
//
// An Index is a pure function of the model content at build time. Models are
// immutable by contract; a reloaded model needs a fresh Index.
package schemaindex

import (
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/text/cases"

	"github.com/nlstn/odata-resolver/internal/edm"
)

// Normalizer maps an identifier to its lookup key. Two identifiers match
// case-insensitively when their normalized forms are equal.
type Normalizer func(string) string

// FoldCase normalizes with Unicode full case folding.
func FoldCase(s string) string {
	// Casers are stateful and not safe for concurrent use.
	return cases.Fold().String(s)
}

// UpperCase normalizes to upper-cased keys for callers that persisted them.
// It folds first so that it matches the same identifiers FoldCase does,
// including ß and the Kelvin sign.
func UpperCase(s string) string {
	return strings.ToUpper(FoldCase(s))
}

// EqualFold reports whether a and b match case-insensitively under FoldCase.
func EqualFold(a, b string) bool {
	if a == b {
		return true
	}
	return FoldCase(a) == FoldCase(b)
}

type options struct {
	normalize        Normalizer
	includeContainer bool
}

// Option configures Build.
type Option func(*options)

// WithNormalizer selects the key normalizer. The default is FoldCase.
func WithNormalizer(n Normalizer) Option {
	return func(o *options) {
		if n != nil {
			o.normalize = n
		}
	}
}

// WithUpperCaseKeys selects UpperCase normalization.
func WithUpperCaseKeys() Option {
	return WithNormalizer(UpperCase)
}

// WithoutContainerElements skips navigation sources and operation imports.
func WithoutContainerElements() Option {
	return func(o *options) {
		o.includeContainer = false
	}
}

// Index maps normalized names to the elements sharing them, partitioned by
// element kind. Schema elements are keyed by full name, container elements
// by simple name.
type Index struct {
	normalize         Normalizer
	includeContainer  bool
	types             map[string][]edm.SchemaType
	operations        map[string][]*edm.Operation
	terms             map[string][]*edm.Term
	navigationSources map[string][]edm.NavigationSource
	operationImports  map[string][]*edm.OperationImport
}

// Build indexes model, its directly referenced models and the built-in
// primitive types. Referenced models contribute their own schema elements
// only; their references and containers are not descended into.
func Build(model edm.Model, opts ...Option) *Index {
	o := options{normalize: FoldCase, includeContainer: true}
	for _, opt := range opts {
		opt(&o)
	}

	ix := &Index{
		normalize:         o.normalize,
		includeContainer:  o.includeContainer,
		types:             make(map[string][]edm.SchemaType),
		operations:        make(map[string][]*edm.Operation),
		terms:             make(map[string][]*edm.Term),
		navigationSources: make(map[string][]edm.NavigationSource),
		operationImports:  make(map[string][]*edm.OperationImport),
	}

	ix.addSchemaElements(model.SchemaElements())
	for _, ref := range model.ReferencedModels() {
		ix.addSchemaElements(ref.SchemaElements())
	}
	for _, p := range edm.PrimitiveTypes() {
		key := ix.normalize(p.FullName())
		ix.types[key] = append(ix.types[key], p)
	}

	if o.includeContainer {
		if container := model.EntityContainer(); container != nil {
			ix.addContainerElements(container.Elements())
		}
	}
	return ix
}

func (ix *Index) addSchemaElements(elements []edm.SchemaElement) {
	for _, e := range elements {
		key := ix.normalize(e.FullName())
		switch el := e.(type) {
		case *edm.Operation:
			ix.operations[key] = append(ix.operations[key], el)
		case *edm.Term:
			ix.terms[key] = append(ix.terms[key], el)
		case edm.SchemaType:
			ix.types[key] = append(ix.types[key], el)
		}
	}
}

func (ix *Index) addContainerElements(elements []edm.ContainerElement) {
	for _, e := range elements {
		key := ix.normalize(e.Name())
		switch el := e.(type) {
		case *edm.OperationImport:
			ix.operationImports[key] = append(ix.operationImports[key], el)
		case edm.NavigationSource:
			ix.navigationSources[key] = append(ix.navigationSources[key], el)
		}
	}
}

// Normalize returns the lookup key of name.
func (ix *Index) Normalize(name string) string { return ix.normalize(name) }

// IncludesContainer reports whether container elements were indexed.
func (ix *Index) IncludesContainer() bool { return ix.includeContainer }

// FindSchemaTypes returns the types whose full name matches name
// case-insensitively.
func (ix *Index) FindSchemaTypes(name string) []edm.SchemaType {
	return clone(ix.types[ix.normalize(name)])
}

// FindOperations returns the operations whose full name matches name
// case-insensitively.
func (ix *Index) FindOperations(name string) []*edm.Operation {
	return clone(ix.operations[ix.normalize(name)])
}

// FindTerms returns the terms whose full name matches name
// case-insensitively.
func (ix *Index) FindTerms(name string) []*edm.Term {
	return clone(ix.terms[ix.normalize(name)])
}

// FindNavigationSources returns the entity sets and singletons whose name
// matches name case-insensitively.
func (ix *Index) FindNavigationSources(name string) []edm.NavigationSource {
	return clone(ix.navigationSources[ix.normalize(name)])
}

// FindOperationImports returns the operation imports whose name matches name
// case-insensitively.
func (ix *Index) FindOperationImports(name string) []*edm.OperationImport {
	return clone(ix.operationImports[ix.normalize(name)])
}

// FindSingle returns the only element of matches, the zero value when there
// is none, or the error produced by duplicate when there are several.
func FindSingle[T any](matches []T, duplicate func() error) (T, error) {
	var zero T
	switch len(matches) {
	case 0:
		return zero, nil
	case 1:
		return matches[0], nil
	default:
		return zero, duplicate()
	}
}

// Stats reports the number of distinct keys per partition.
type Stats struct {
	Types             int
	Operations        int
	Terms             int
	NavigationSources int
	OperationImports  int
}

// Stats returns key counts per partition.
func (ix *Index) Stats() Stats {
	return Stats{
		Types:             len(ix.types),
		Operations:        len(ix.operations),
		Terms:             len(ix.terms),
		NavigationSources: len(ix.navigationSources),
		OperationImports:  len(ix.operationImports),
	}
}

// Fingerprint hashes the index content: every partition's keys in sorted
// order together with the names of the elements stored under them. Two
// indexes built from the same model content have the same fingerprint.
func (ix *Index) Fingerprint() uint64 {
	d := xxhash.New()
	write := func(parts ...string) {
		for _, p := range parts {
			_, _ = d.WriteString(p)
			_, _ = d.WriteString("\x00")
		}
	}

	write("types")
	for _, k := range sortedKeys(ix.types) {
		write(k)
		for _, t := range ix.types[k] {
			write(t.FullName())
		}
	}
	write("operations")
	for _, k := range sortedKeys(ix.operations) {
		write(k)
		for _, op := range ix.operations[k] {
			write(op.FullName(), op.SchemaElementKind().String())
			for _, p := range op.Parameters() {
				write(p.Name(), p.Type().FullName())
			}
		}
	}
	write("terms")
	for _, k := range sortedKeys(ix.terms) {
		write(k)
		for _, t := range ix.terms[k] {
			write(t.FullName())
		}
	}
	write("navigationSources")
	for _, k := range sortedKeys(ix.navigationSources) {
		write(k)
		for _, s := range ix.navigationSources[k] {
			write(s.Name(), s.ContainerElementKind().String())
		}
	}
	write("operationImports")
	for _, k := range sortedKeys(ix.operationImports) {
		write(k)
		for _, i := range ix.operationImports[k] {
			write(i.Name(), i.ContainerElementKind().String())
		}
	}
	return d.Sum64()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func clone[T any](in []T) []T {
	if len(in) == 0 {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}
