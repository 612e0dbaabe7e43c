// Package response writes resolution results and OData v4 error bodies.
package response

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/nlstn/odata-resolver/internal/version"
)

const (
	HeaderODataVersion = "OData-Version"

	contentTypeJSON = "application/json;odata.metadata=minimal"
)

// SetODataVersionHeader sets the OData-Version header to the version
// negotiated for r, with the correct capitalization.
func SetODataVersionHeader(w http.ResponseWriter, r *http.Request) {
	w.Header()[HeaderODataVersion] = []string{version.FromContext(r.Context()).String()}
}

// ODataErrorDetail represents an additional error detail in an OData error response.
type ODataErrorDetail struct {
	Code    string `json:"code,omitempty"`
	Target  string `json:"target,omitempty"`
	Message string `json:"message"`
}

// ODataInnerError represents nested error information in an OData error response.
type ODataInnerError struct {
	Message    string           `json:"message,omitempty"`
	TypeName   string           `json:"type,omitempty"`
	InnerError *ODataInnerError `json:"innererror,omitempty"`
}

// ODataError represents the OData v4 compliant error structure.
type ODataError struct {
	Code       string             `json:"code"`
	Message    string             `json:"message"`
	Target     string             `json:"target,omitempty"`
	Details    []ODataErrorDetail `json:"details,omitempty"`
	InnerError *ODataInnerError   `json:"innererror,omitempty"`
}

// WriteError writes an OData v4 compliant error response whose code is the
// HTTP status.
func WriteError(w http.ResponseWriter, r *http.Request, code int, message string, details string) error {
	odataErr := &ODataError{
		Code:    strconv.Itoa(code),
		Message: message,
	}

	if details != "" {
		odataErr.Details = []ODataErrorDetail{{Message: details}}
	}

	return WriteODataError(w, r, code, odataErr)
}

// WriteODataError writes an OData v4 compliant error response with full error structure.
func WriteODataError(w http.ResponseWriter, r *http.Request, httpStatusCode int, odataError *ODataError) error {
	return WriteJSON(w, r, httpStatusCode, map[string]interface{}{
		"error": odataError,
	})
}

// WriteJSON writes v as a JSON body with the OData headers.
func WriteJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) error {
	w.Header().Set("Content-Type", contentTypeJSON)
	SetODataVersionHeader(w, r)
	w.WriteHeader(status)

	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	return encoder.Encode(v)
}
