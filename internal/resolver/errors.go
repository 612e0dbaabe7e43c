package resolver

import (
	"errors"
	"fmt"
)

// Sentinel errors for each failure kind. Every *ResolutionError matches
// exactly one of them with errors.Is.
var (
	ErrAmbiguousMatch            = errors.New("resolver: ambiguous match")
	ErrKeyCountMismatch          = errors.New("resolver: key count mismatch")
	ErrKeyMismatch               = errors.New("resolver: key mismatch")
	ErrKeyOrAlternateKeyMismatch = errors.New("resolver: key or alternate key mismatch")
	ErrUnknownParameterName      = errors.New("resolver: unknown parameter name")
	ErrConversionFailure         = errors.New("resolver: literal conversion failure")
)

// ErrorKind classifies a resolution failure.
type ErrorKind int

const (
	KindAmbiguousMatch ErrorKind = iota + 1
	KindKeyCountMismatch
	KindKeyMismatch
	KindKeyOrAlternateKeyMismatch
	KindUnknownParameterName
	KindConversionFailure
)

func (k ErrorKind) String() string {
	switch k {
	case KindAmbiguousMatch:
		return "AmbiguousMatch"
	case KindKeyCountMismatch:
		return "KeyCountMismatch"
	case KindKeyMismatch:
		return "KeyMismatch"
	case KindKeyOrAlternateKeyMismatch:
		return "KeyOrAlternateKeyMismatch"
	case KindUnknownParameterName:
		return "UnknownParameterName"
	case KindConversionFailure:
		return "ConversionFailure"
	default:
		return "Unknown"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindAmbiguousMatch:
		return ErrAmbiguousMatch
	case KindKeyCountMismatch:
		return ErrKeyCountMismatch
	case KindKeyMismatch:
		return ErrKeyMismatch
	case KindKeyOrAlternateKeyMismatch:
		return ErrKeyOrAlternateKeyMismatch
	case KindUnknownParameterName:
		return ErrUnknownParameterName
	case KindConversionFailure:
		return ErrConversionFailure
	default:
		return nil
	}
}

// ElementKind names what an identifier was being bound to.
type ElementKind string

const (
	ElementNavigationSource ElementKind = "navigation source"
	ElementProperty         ElementKind = "property"
	ElementType             ElementKind = "type"
	ElementTerm             ElementKind = "term"
	ElementOperation        ElementKind = "operation"
	ElementOperationImport  ElementKind = "operation import"
	ElementParameter        ElementKind = "parameter"
	ElementKey              ElementKind = "key"
)

// ResolutionError is a client-input failure raised while binding an
// identifier or a key/parameter set.
type ResolutionError struct {
	Kind ErrorKind
	// Element is the kind of element being resolved.
	Element ElementKind
	// Identifier is the ambiguous name, the unknown argument name or the key
	// property whose literal failed to convert.
	Identifier string
	// Target is the full name of the entity type or operation involved.
	Target string
	// Literal is the literal text for conversion failures.
	Literal string
	// TypeName is the target type for conversion failures.
	TypeName string
}

func (e *ResolutionError) Error() string {
	switch e.Kind {
	case KindAmbiguousMatch:
		return fmt.Sprintf("more than one %s matches the name '%s'", e.Element, e.Identifier)
	case KindKeyCountMismatch:
		return fmt.Sprintf("the number of keys specified does not match the number of key properties of '%s'", e.Target)
	case KindKeyMismatch:
		return fmt.Sprintf("the key is not valid for '%s': names and number of key properties must match the declared key", e.Target)
	case KindKeyOrAlternateKeyMismatch:
		return fmt.Sprintf("the key is not valid for '%s': names and number of key properties must match the declared key or an alternate key", e.Target)
	case KindUnknownParameterName:
		return fmt.Sprintf("operation '%s' has no parameter named '%s'", e.Target, e.Identifier)
	case KindConversionFailure:
		return fmt.Sprintf("syntax error: '%s' is not a valid %s literal for '%s'", e.Literal, e.TypeName, e.Identifier)
	default:
		return "resolution failed"
	}
}

// Is matches the sentinel of the error's kind.
func (e *ResolutionError) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

func ambiguous(element ElementKind, identifier string) *ResolutionError {
	return &ResolutionError{Kind: KindAmbiguousMatch, Element: element, Identifier: identifier}
}

func keyError(kind ErrorKind, entityType string) *ResolutionError {
	return &ResolutionError{Kind: kind, Element: ElementKey, Target: entityType}
}

func conversionFailure(element ElementKind, name, literal, typeName, target string) *ResolutionError {
	return &ResolutionError{
		Kind:       KindConversionFailure,
		Element:    element,
		Identifier: name,
		Literal:    literal,
		TypeName:   typeName,
		Target:     target,
	}
}

// KindOf returns the kind of a resolution error, or 0 when err is not one.
func KindOf(err error) ErrorKind {
	var re *ResolutionError
	if errors.As(err, &re) {
		return re.Kind
	}
	return 0
}
