// Package preference parses the OData Prefer request header.
package preference

import (
	"net/http"
	"strconv"
	"strings"
)

// Preference represents the parsed Prefer header preferences that listings
// honour.
type Preference struct {
	// MaxPageSize is the odata.maxpagesize preference, or 0 when absent
	// or invalid.
	MaxPageSize int
}

// ParsePrefer parses every Prefer header of r. Preference names are case
// insensitive; unknown preferences are ignored.
func ParsePrefer(r *http.Request) *Preference {
	pref := &Preference{}

	for _, header := range r.Header.Values("Prefer") {
		for _, p := range strings.Split(header, ",") {
			name, value, _ := strings.Cut(strings.TrimSpace(p), "=")
			value = strings.Trim(strings.TrimSpace(value), `"`)

			switch strings.ToLower(strings.TrimSpace(name)) {
			case "odata.maxpagesize", "maxpagesize":
				if n, err := strconv.Atoi(value); err == nil && n > 0 {
					pref.MaxPageSize = n
				}
			}
		}
	}

	return pref
}

// PageSize returns the page size to use: the preferred size capped at
// limit, or limit when no size was preferred.
func (p *Preference) PageSize(limit int) int {
	if p.MaxPageSize > 0 && p.MaxPageSize < limit {
		return p.MaxPageSize
	}
	return limit
}

// GetPreferenceApplied returns the Preference-Applied header value for a
// page of size applied, or an empty string when no preference was honoured.
func (p *Preference) GetPreferenceApplied(applied int) string {
	if p.MaxPageSize > 0 && applied == p.MaxPageSize {
		return "odata.maxpagesize=" + strconv.Itoa(applied)
	}
	return ""
}
