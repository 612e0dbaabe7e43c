// Package etag computes weak entity tags for resolution responses and
// evaluates If-None-Match preconditions against them.
package etag

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Generate returns a weak ETag for a response derived from a model with the
// given fingerprint. parts are the request inputs that select the response,
// such as the resolution policy and the query; their order matters.
func Generate(fingerprint uint64, parts ...string) string {
	d := xxhash.New()
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], fingerprint)
	_, _ = d.Write(buf[:])
	for _, p := range parts {
		_, _ = d.WriteString(p)
		// Separator so that ("ab", "c") and ("a", "bc") differ.
		_, _ = d.Write([]byte{0})
	}
	return fmt.Sprintf("W/%q", fmt.Sprintf("%016x", d.Sum64()))
}

// Parse extracts the opaque value from a strong ("value") or weak
// (W/"value") entity tag.
func Parse(tag string) string {
	tag = strings.TrimSpace(tag)
	tag = strings.TrimPrefix(tag, "W/")
	if len(tag) >= 2 && tag[0] == '"' && tag[len(tag)-1] == '"' {
		return tag[1 : len(tag)-1]
	}
	return tag
}

// NoneMatch reports whether the If-None-Match header value ifNoneMatch
// allows a full response for current. It is false when any listed tag
// matches current under weak comparison, or when the header is "*" and
// current is set.
func NoneMatch(ifNoneMatch string, current string) bool {
	ifNoneMatch = strings.TrimSpace(ifNoneMatch)
	if ifNoneMatch == "" {
		return true
	}
	if ifNoneMatch == "*" {
		return current == ""
	}

	want := Parse(current)
	for _, candidate := range strings.Split(ifNoneMatch, ",") {
		if Parse(candidate) == want {
			return false
		}
	}
	return true
}
