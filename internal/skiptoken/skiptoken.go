// Package skiptoken encodes the continuation state of a paged listing as an
// opaque $skiptoken value.
package skiptoken

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrInvalid is returned for tokens that cannot be decoded.
var ErrInvalid = errors.New("invalid skip token")

// SkipToken identifies the last row of a page in a listing ordered by
// creation time and then id, both descending.
type SkipToken struct {
	CreatedAt time.Time `json:"t"`
	ID        string    `json:"k"`
}

// Encode encodes a skip token into a base64-encoded JSON string.
func Encode(token *SkipToken) (string, error) {
	if token == nil {
		return "", fmt.Errorf("token cannot be nil")
	}
	jsonBytes, err := json.Marshal(token)
	if err != nil {
		return "", fmt.Errorf("failed to marshal token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(jsonBytes), nil
}

// Decode decodes a token produced by Encode.
func Decode(encoded string) (*SkipToken, error) {
	if encoded == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalid)
	}
	jsonBytes, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	var token SkipToken
	if err := json.Unmarshal(jsonBytes, &token); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if token.ID == "" || token.CreatedAt.IsZero() {
		return nil, fmt.Errorf("%w: missing position", ErrInvalid)
	}
	return &token, nil
}
