// Package version negotiates the OData protocol version of a request and
// gates the resolution rules that only OData 4.01 allows.
package version

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

type contextKey struct{}

// Version is an OData protocol version.
type Version struct {
	Major int
	Minor int
}

var (
	V40  = Version{Major: 4, Minor: 0}
	V401 = Version{Major: 4, Minor: 1}
)

// Feature is a resolution rule introduced by a protocol version.
type Feature string

const (
	// CaseInsensitiveIdentifiers lets identifiers match regardless of case.
	CaseInsensitiveIdentifiers Feature = "case-insensitive-identifiers"
	// UnqualifiedOperations lets bound operations omit their namespace.
	UnqualifiedOperations Feature = "unqualified-operations"
	// UnprefixedEnumLiterals lets enum values be written as plain strings.
	UnprefixedEnumLiterals Feature = "unprefixed-enum-literals"
)

// String renders the version the way the OData-Version header spells it,
// with a two digit minor part: 4.0, 4.01.
func (v Version) String() string {
	if v.Minor == 0 {
		return strconv.Itoa(v.Major) + ".0"
	}
	return fmt.Sprintf("%d.%02d", v.Major, v.Minor)
}

// LessThanOrEqual reports whether v is not newer than other.
func (v Version) LessThanOrEqual(other Version) bool {
	if v.Major != other.Major {
		return v.Major < other.Major
	}
	return v.Minor <= other.Minor
}

// Supports reports whether f is available at v.
func (v Version) Supports(f Feature) bool {
	switch f {
	case CaseInsensitiveIdentifiers, UnqualifiedOperations, UnprefixedEnumLiterals:
		return V401.LessThanOrEqual(v)
	default:
		return false
	}
}

// Parse parses a header value such as "4.0" or "4.01". A malformed minor
// part is an error; a missing one is 0.
func Parse(s string) (Version, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Version{}, fmt.Errorf("empty version string")
	}

	majorText, minorText, hasMinor := strings.Cut(s, ".")
	major, err := strconv.Atoi(majorText)
	if err != nil || major < 0 {
		return Version{}, fmt.Errorf("invalid major version in %q", s)
	}
	if !hasMinor {
		return Version{Major: major}, nil
	}
	minor, err := strconv.Atoi(minorText)
	if err != nil || minor < 0 {
		return Version{}, fmt.Errorf("invalid minor version in %q", s)
	}
	return Version{Major: major, Minor: minor}, nil
}

// Negotiate picks the newest supported version not above the client's
// OData-MaxVersion. An empty header selects 4.01. A client maximum below 4.0
// cannot be served and is an error.
func Negotiate(maxVersion string) (Version, error) {
	if strings.TrimSpace(maxVersion) == "" {
		return V401, nil
	}
	clientMax, err := Parse(maxVersion)
	if err != nil {
		return Version{}, err
	}
	for _, supported := range []Version{V401, V40} {
		if supported.LessThanOrEqual(clientMax) {
			return supported, nil
		}
	}
	return Version{}, fmt.Errorf("OData-MaxVersion %s is below the minimum supported version %s", clientMax, V40)
}

// WithVersion stores the negotiated version in ctx.
func WithVersion(ctx context.Context, v Version) context.Context {
	return context.WithValue(ctx, contextKey{}, v)
}

// FromContext returns the negotiated version, or 4.01 when none was stored.
func FromContext(ctx context.Context) Version {
	if v, ok := ctx.Value(contextKey{}).(Version); ok {
		return v
	}
	return V401
}
