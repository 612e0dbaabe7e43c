package preference

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParsePrefer_NoHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	pref := ParsePrefer(req)

	if pref.MaxPageSize != 0 {
		t.Errorf("MaxPageSize = %d, want 0 when no Prefer header is present", pref.MaxPageSize)
	}
	if got := pref.PageSize(50); got != 50 {
		t.Errorf("PageSize(50) = %d, want 50", got)
	}
	if applied := pref.GetPreferenceApplied(50); applied != "" {
		t.Errorf("GetPreferenceApplied() = %q, want empty", applied)
	}
}

func TestParsePrefer_MaxPageSize(t *testing.T) {
	tests := []struct {
		name   string
		header []string
		want   int
	}{
		{"plain", []string{"odata.maxpagesize=10"}, 10},
		{"mixed case", []string{"OData.MaxPageSize=7"}, 7},
		{"unprefixed", []string{"maxpagesize=3"}, 3},
		{"quoted", []string{`odata.maxpagesize="12"`}, 12},
		{"among others", []string{"return=minimal, odata.maxpagesize=5"}, 5},
		{"second header", []string{"return=minimal", "odata.maxpagesize=4"}, 4},
		{"invalid", []string{"odata.maxpagesize=lots"}, 0},
		{"zero", []string{"odata.maxpagesize=0"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for _, h := range tt.header {
				req.Header.Add("Prefer", h)
			}
			if got := ParsePrefer(req).MaxPageSize; got != tt.want {
				t.Errorf("MaxPageSize = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPreference_PageSizeAndApplied(t *testing.T) {
	pref := &Preference{MaxPageSize: 10}

	if got := pref.PageSize(50); got != 10 {
		t.Errorf("PageSize(50) = %d, want 10", got)
	}
	if applied := pref.GetPreferenceApplied(10); applied != "odata.maxpagesize=10" {
		t.Errorf("GetPreferenceApplied(10) = %q", applied)
	}

	if got := pref.PageSize(5); got != 5 {
		t.Errorf("PageSize(5) = %d, want the smaller limit", got)
	}
	if applied := pref.GetPreferenceApplied(5); applied != "" {
		t.Errorf("GetPreferenceApplied(5) = %q, want empty", applied)
	}
}
