package odata

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/nlstn/odata-resolver/internal/resolver"
)

// Sentinel errors for resolution failures.
// These can be used with errors.Is() for error handling.
var (
	// ErrNotFound indicates an identifier matched nothing. The Resolver
	// itself reports a miss as a nil result; NotFoundError wraps this
	// sentinel for callers that need an error value.
	// Maps to HTTP 404 Not Found.
	ErrNotFound = errors.New("odata: not found")

	// ErrAmbiguousMatch indicates more than one element matched an identifier.
	// Maps to HTTP 400 Bad Request.
	ErrAmbiguousMatch = resolver.ErrAmbiguousMatch

	// ErrKeyCountMismatch indicates a positional key with the wrong number of values.
	// Maps to HTTP 400 Bad Request.
	ErrKeyCountMismatch = resolver.ErrKeyCountMismatch

	// ErrKeyMismatch indicates named key values that do not match the key.
	// Maps to HTTP 400 Bad Request.
	ErrKeyMismatch = resolver.ErrKeyMismatch

	// ErrKeyOrAlternateKeyMismatch indicates named key values that match
	// neither the key nor any alternate key.
	// Maps to HTTP 400 Bad Request.
	ErrKeyOrAlternateKeyMismatch = resolver.ErrKeyOrAlternateKeyMismatch

	// ErrUnknownParameterName indicates an argument naming no parameter.
	// Maps to HTTP 400 Bad Request.
	ErrUnknownParameterName = resolver.ErrUnknownParameterName

	// ErrConversionFailure indicates a literal that cannot be converted to
	// the type of its key property or parameter.
	// Maps to HTTP 400 Bad Request.
	ErrConversionFailure = resolver.ErrConversionFailure
)

// ErrorCode represents standard OData error codes.
type ErrorCode string

// Standard OData error codes.
const (
	// ErrorCodeGeneral is a general, unspecified error.
	ErrorCodeGeneral ErrorCode = "General"

	// ErrorCodeNotFound indicates the requested resource was not found.
	ErrorCodeNotFound ErrorCode = "NotFound"

	// ErrorCodeBadRequest indicates malformed or invalid request syntax.
	ErrorCodeBadRequest ErrorCode = "BadRequest"

	// ErrorCodeInternalServerError indicates an internal server error.
	ErrorCodeInternalServerError ErrorCode = "InternalServerError"
)

// ODataError provides a structured error that includes an HTTP status code,
// OData error code, and descriptive message.
//
// Example usage when a lookup misses:
//
//	src, err := r.ResolveNavigationSource(model, name)
//	if err != nil {
//	    return odata.AsODataError(err)
//	}
//	if src == nil {
//	    return odata.NotFoundError("navigation source", name)
//	}
type ODataError struct {
	// StatusCode is the HTTP status code to return (e.g., 400, 404, 500).
	StatusCode int `json:"-"`

	// Code is the OData-specific error code.
	Code ErrorCode `json:"code"`

	// Message is a human-readable error description.
	Message string `json:"message"`

	// Target optionally identifies the identifier or literal that caused the error.
	Target string `json:"target,omitempty"`

	// Details carries the resolution failure kind.
	Details []ErrorDetail `json:"details,omitempty"`

	// Err is the underlying error, if any. This allows error wrapping while
	// maintaining compatibility with errors.Is() and errors.As().
	Err error `json:"-"`
}

// ErrorDetail represents additional error information in an OData error response.
type ErrorDetail struct {
	// Code is a service-defined error code for this detail.
	Code string `json:"code"`

	// Target identifies the specific part of the request causing this error.
	Target string `json:"target,omitempty"`

	// Message is a human-readable description of this specific error.
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *ODataError) Error() string {
	if e.Err != nil && e.Err.Error() != e.Message {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap implements error unwrapping for errors.Is() and errors.As().
func (e *ODataError) Unwrap() error {
	return e.Err
}

// NotFoundError returns a 404 ODataError for an identifier that resolved to nothing.
func NotFoundError(element, identifier string) *ODataError {
	return &ODataError{
		StatusCode: http.StatusNotFound,
		Code:       ErrorCodeNotFound,
		Message:    fmt.Sprintf("no %s matches the name '%s'", element, identifier),
		Target:     identifier,
		Err:        ErrNotFound,
	}
}

// AsODataError converts err to an ODataError. Resolution failures become
// 400 Bad Request errors whose single detail names the failure kind;
// errors that already are ODataErrors are returned unchanged.
func AsODataError(err error) *ODataError {
	if err == nil {
		return nil
	}

	var odataErr *ODataError
	if errors.As(err, &odataErr) {
		return odataErr
	}

	var resErr *resolver.ResolutionError
	if errors.As(err, &resErr) {
		target := resErr.Identifier
		if target == "" {
			target = resErr.Target
		}
		return &ODataError{
			StatusCode: http.StatusBadRequest,
			Code:       ErrorCodeBadRequest,
			Message:    resErr.Error(),
			Target:     target,
			Details: []ErrorDetail{{
				Code:    resErr.Kind.String(),
				Target:  resErr.Target,
				Message: resErr.Error(),
			}},
			Err: err,
		}
	}

	status := MapErrorToHTTPStatus(err)
	code := ErrorCodeInternalServerError
	switch status {
	case http.StatusNotFound:
		code = ErrorCodeNotFound
	case http.StatusBadRequest:
		code = ErrorCodeBadRequest
	}
	return &ODataError{StatusCode: status, Code: code, Message: err.Error(), Err: err}
}

// MapErrorToHTTPStatus returns the appropriate HTTP status code for an error.
// Resolution failures are client input problems and map to 400.
//
// Example usage:
//
//	status := odata.MapErrorToHTTPStatus(err)
//	w.WriteHeader(status)
func MapErrorToHTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var odataErr *ODataError
	if errors.As(err, &odataErr) {
		return odataErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAmbiguousMatch),
		errors.Is(err, ErrKeyCountMismatch),
		errors.Is(err, ErrKeyMismatch),
		errors.Is(err, ErrKeyOrAlternateKeyMismatch),
		errors.Is(err, ErrUnknownParameterName),
		errors.Is(err, ErrConversionFailure):
		return http.StatusBadRequest
	}

	return http.StatusInternalServerError
}

// IsNotFoundError returns true if the error indicates an identifier matched nothing.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAmbiguousMatch returns true if more than one element matched an identifier.
func IsAmbiguousMatch(err error) bool {
	return errors.Is(err, ErrAmbiguousMatch)
}
