package literal

import (
	"errors"
	"reflect"
	"testing"

	"github.com/nlstn/odata-resolver/internal/edm"
)

func TestConvertPrimitive(t *testing.T) {
	tests := []struct {
		name   string
		kind   edm.PrimitiveKind
		text   string
		want   interface{}
		wantOK bool
	}{
		{"int32", edm.PrimitiveInt32, "42", int64(42), true},
		{"int32 signed", edm.PrimitiveInt32, "-7", int64(-7), true},
		{"int32 explicit plus", edm.PrimitiveInt32, "+7", int64(7), true},
		{"int32 overflow", edm.PrimitiveInt32, "2147483648", nil, false},
		{"int64 quoted", edm.PrimitiveInt64, "'1'", nil, false},
		{"int16 fraction", edm.PrimitiveInt16, "1.5", nil, false},
		{"byte negative", edm.PrimitiveByte, "-1", nil, false},
		{"string", edm.PrimitiveString, "'abc'", "abc", true},
		{"string escaped quote", edm.PrimitiveString, "'O''Neil'", "O'Neil", true},
		{"string unquoted", edm.PrimitiveString, "abc", nil, false},
		{"string lone quote", edm.PrimitiveString, "'a'b'", nil, false},
		{"boolean", edm.PrimitiveBoolean, "true", true, true},
		{"boolean invalid", edm.PrimitiveBoolean, "yes", nil, false},
		{"double", edm.PrimitiveDouble, "1.5", 1.5, true},
		{"double suffix", edm.PrimitiveDouble, "2d", 2.0, true},
		{"single suffix", edm.PrimitiveSingle, "2.5f", 2.5, true},
		{"null", edm.PrimitiveInt32, "null", nil, false},
		{"empty", edm.PrimitiveInt32, "", nil, false},
		{"unsupported", edm.PrimitiveDuration, "duration'P1D'", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Convert(edm.PrimitiveRef(tt.kind, false), tt.text)
			if ok != tt.wantOK {
				t.Fatalf("Convert(%q) ok = %v, want %v", tt.text, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			v, isValue := got.(edm.Value)
			if !isValue {
				t.Fatalf("Convert(%q) returned %T, want edm.Value", tt.text, got)
			}
			if v.Value() != tt.want {
				t.Errorf("Convert(%q) = %v, want %v", tt.text, v.Value(), tt.want)
			}
		})
	}
}

func TestConvertDecimalAndGuid(t *testing.T) {
	got, ok := Convert(edm.PrimitiveRef(edm.PrimitiveDecimal, false), "12.50M")
	if !ok {
		t.Fatal("expected decimal literal to convert")
	}
	if s := got.(edm.Value).String(); s != "12.5" {
		t.Errorf("decimal = %s, want 12.5", s)
	}

	precision, scale := 3, 1
	ref := edm.PrimitiveRef(edm.PrimitiveDecimal, false)
	ref.Facets = edm.Facets{Precision: &precision, Scale: &scale}
	if _, ok := Convert(ref, "12.34"); ok {
		t.Error("expected scale violation to fail conversion")
	}

	id := "0b7e1a3c-5f0d-4c5e-9a53-6f2c1d9b8e11"
	got, ok = Convert(edm.PrimitiveRef(edm.PrimitiveGuid, false), id)
	if !ok || got.(edm.Value).String() != id {
		t.Errorf("guid = %v, %v", got, ok)
	}
	if _, ok := Convert(edm.PrimitiveRef(edm.PrimitiveGuid, false), "'"+id+"'"); ok {
		t.Error("quoted guid must not convert")
	}
}

func TestConvertEnum(t *testing.T) {
	color := edm.MustEnumType("Shop", "Color", false,
		edm.EnumMember{Name: "Red", Value: 1},
		edm.EnumMember{Name: "Green", Value: 2},
	)
	ref := edm.NewTypeReference(color, false)

	got, ok := Convert(ref, "Shop.Color'Green'")
	if !ok {
		t.Fatal("expected prefixed enum literal to convert")
	}
	if v := got.(edm.EnumValue); v.Value != 2 || v.Type != color {
		t.Errorf("enum = %+v", v)
	}

	for _, text := range []string{"'Green'", "Other.Color'Green'", "Shop.Color'Purple'", "Shop.Color'Green"} {
		if _, ok := Convert(ref, text); ok {
			t.Errorf("Convert(%q) should fail", text)
		}
	}
}

func TestQuoteRoundTrip(t *testing.T) {
	for _, s := range []string{"", "plain", "O'Neil", "''"} {
		got, err := Unquote(Quote(s))
		if err != nil {
			t.Fatalf("Unquote(Quote(%q)): %v", s, err)
		}
		if got != s {
			t.Errorf("round trip of %q = %q", s, got)
		}
	}
}

func TestParseKeySegment(t *testing.T) {
	tests := []struct {
		segment    string
		positional []string
		named      map[string]string
		wantErr    bool
	}{
		{segment: "(1)", positional: []string{"1"}},
		{segment: "('a,b',2)", positional: []string{"'a,b'", "2"}},
		{segment: "('it''s')", positional: []string{"'it''s'"}},
		{segment: "()", positional: []string{}},
		{segment: "(ID=1,Code='x=y')", named: map[string]string{"ID": "1", "Code": "'x=y'"}},
		{segment: "ID = 1", named: map[string]string{"ID": "1"}},
		{segment: "(Color=Shop.Color'Red')", named: map[string]string{"Color": "Shop.Color'Red'"}},
		{segment: "(ID=1,2)", wantErr: true},
		{segment: "(ID=1,ID=2)", wantErr: true},
		{segment: "('open)", wantErr: true},
		{segment: "(1", wantErr: true},
		{segment: "(1,)", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.segment, func(t *testing.T) {
			got, err := ParseKeySegment(tt.segment)
			if tt.wantErr {
				if !errors.Is(err, ErrSyntax) {
					t.Fatalf("expected syntax error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.named != nil {
				if !got.IsNamed() || !reflect.DeepEqual(got.Named, tt.named) {
					t.Errorf("named = %v, want %v", got.Named, tt.named)
				}
				return
			}
			if got.IsNamed() || !reflect.DeepEqual(got.Positional, tt.positional) {
				t.Errorf("positional = %v, want %v", got.Positional, tt.positional)
			}
		})
	}
}

func TestParseConstant(t *testing.T) {
	color := edm.MustEnumType("Shop", "Color", false, edm.EnumMember{Name: "Red", Value: 1})
	model := edm.NewModel().AddElements(color)
	find := func(name string) (edm.SchemaType, error) { return edm.FindType(model, name) }

	tests := []struct {
		text     string
		wantType string
		wantNull bool
		wantErr  bool
	}{
		{text: "null", wantNull: true},
		{text: "42", wantType: "Edm.Int32"},
		{text: "4294967296", wantType: "Edm.Int64"},
		{text: "1.5", wantType: "Edm.Double"},
		{text: "1.5M", wantType: "Edm.Decimal"},
		{text: "true", wantType: "Edm.Boolean"},
		{text: "'Red'", wantType: "Edm.String"},
		{text: "0b7e1a3c-5f0d-4c5e-9a53-6f2c1d9b8e11", wantType: "Edm.Guid"},
		{text: "Shop.Color'Red'", wantType: "Shop.Color"},
		{text: "Shop.Missing'Red'", wantErr: true},
		{text: "abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := ParseConstant(tt.text, find)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.IsNull() != tt.wantNull {
				t.Errorf("IsNull = %v, want %v", got.IsNull(), tt.wantNull)
			}
			if !tt.wantNull && got.Type.FullName() != tt.wantType {
				t.Errorf("type = %s, want %s", got.Type.FullName(), tt.wantType)
			}
		})
	}
}
