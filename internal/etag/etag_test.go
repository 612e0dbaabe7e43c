package etag

import (
	"strings"
	"testing"
)

func TestGenerate(t *testing.T) {
	a := Generate(42, "type", "Shop.Product")
	if !strings.HasPrefix(a, `W/"`) || !strings.HasSuffix(a, `"`) {
		t.Fatalf("Generate() = %s, want a weak tag", a)
	}
	if len(Parse(a)) != 16 {
		t.Errorf("Parse(%s) = %q, want 16 hex digits", a, Parse(a))
	}

	if b := Generate(42, "type", "Shop.Product"); a != b {
		t.Errorf("Generate() is not deterministic: %s != %s", a, b)
	}
	if b := Generate(43, "type", "Shop.Product"); a == b {
		t.Error("expected a different fingerprint to change the tag")
	}
	if b := Generate(42, "typeShop", ".Product"); a == b {
		t.Error("expected part boundaries to change the tag")
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`"abc"`, "abc"},
		{`W/"abc"`, "abc"},
		{` W/"abc" `, "abc"},
		{"abc", "abc"},
		{"", ""},
		{`"`, `"`},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Parse(tt.input); got != tt.expected {
				t.Errorf("Parse(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNoneMatch(t *testing.T) {
	current := `W/"0011223344556677"`

	tests := []struct {
		name        string
		ifNoneMatch string
		current     string
		expected    bool
	}{
		{"no header", "", current, true},
		{"same weak tag", current, current, false},
		{"strong form of same value", `"0011223344556677"`, current, false},
		{"different tag", `W/"ffffffffffffffff"`, current, true},
		{"list containing tag", `W/"aaaa", W/"0011223344556677"`, current, false},
		{"list without tag", `W/"aaaa", "bbbb"`, current, true},
		{"wildcard with current", "*", current, false},
		{"wildcard without current", "*", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NoneMatch(tt.ifNoneMatch, tt.current); got != tt.expected {
				t.Errorf("NoneMatch(%q, %q) = %v, want %v", tt.ifNoneMatch, tt.current, got, tt.expected)
			}
		})
	}
}
