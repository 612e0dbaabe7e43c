package edm

import (
	"fmt"
	"strconv"
	"strings"
)

// Facets contains metadata attributes that constrain EDM type values
type Facets struct {
	Precision *int  // For Decimal: total number of digits
	Scale     *int  // For Decimal: digits after decimal point
	MaxLength *int  // For String, Binary: maximum length
	Unicode   *bool // For String: whether Unicode is supported
	SRID      *int  // For Geography/Geometry: spatial reference ID
	Nullable  bool  // Whether null values are allowed
}

// ParseTypeSpec extracts a type name and facets from a compact type
// specification as used by model description files.
// Example specs:
//   - "Edm.Decimal,precision=18,scale=4"
//   - "nullable,type=Edm.Date"
//   - "Edm.String,maxLength=50"
//
// The first part may be a bare type name instead of "type=...".
func ParseTypeSpec(spec string) (typeName string, facets Facets, err error) {
	if spec == "" {
		return "", Facets{}, nil
	}

	parts := strings.Split(spec, ",")
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if part == "nullable" {
			facets.Nullable = true
			continue
		}

		if !strings.Contains(part, "=") {
			if i == 0 {
				typeName = part
			}
			continue
		}

		kv := strings.SplitN(part, "=", 2)
		key := strings.TrimSpace(kv[0])
		value := strings.TrimSpace(kv[1])

		switch key {
		case "type":
			typeName = value

		case "precision":
			precision, parseErr := strconv.Atoi(value)
			if parseErr != nil {
				return "", Facets{}, fmt.Errorf("invalid precision value: %s", value)
			}
			facets.Precision = &precision

		case "scale":
			scale, parseErr := strconv.Atoi(value)
			if parseErr != nil {
				return "", Facets{}, fmt.Errorf("invalid scale value: %s", value)
			}
			facets.Scale = &scale

		case "maxLength":
			maxLength, parseErr := strconv.Atoi(value)
			if parseErr != nil {
				return "", Facets{}, fmt.Errorf("invalid maxLength value: %s", value)
			}
			facets.MaxLength = &maxLength

		case "unicode":
			unicode, parseErr := strconv.ParseBool(value)
			if parseErr != nil {
				return "", Facets{}, fmt.Errorf("invalid unicode value: %s", value)
			}
			facets.Unicode = &unicode

		case "srid":
			srid, parseErr := strconv.Atoi(value)
			if parseErr != nil {
				return "", Facets{}, fmt.Errorf("invalid srid value: %s", value)
			}
			facets.SRID = &srid

		case "nullable":
			nullable, parseErr := strconv.ParseBool(value)
			if parseErr != nil {
				return "", Facets{}, fmt.Errorf("invalid nullable value: %s", value)
			}
			facets.Nullable = nullable
		}
	}

	return typeName, facets, nil
}

// ValidateDecimalFacets validates that a decimal value conforms to precision and scale facets
func ValidateDecimalFacets(valueStr string, facets Facets) error {
	if facets.Precision == nil && facets.Scale == nil {
		return nil
	}

	absValue := strings.TrimLeft(valueStr, "+-")

	fractionalPart := ""
	if idx := strings.IndexByte(absValue, '.'); idx >= 0 {
		fractionalPart = absValue[idx+1:]
	}
	totalDigits := len(strings.ReplaceAll(absValue, ".", ""))

	if facets.Precision != nil && totalDigits > *facets.Precision {
		return fmt.Errorf("value exceeds precision: %d digits (max %d)", totalDigits, *facets.Precision)
	}
	if facets.Scale != nil && len(fractionalPart) > *facets.Scale {
		return fmt.Errorf("value exceeds scale: %d fractional digits (max %d)", len(fractionalPart), *facets.Scale)
	}
	return nil
}

// ValidateLengthFacet validates that a value conforms to maxLength facet
func ValidateLengthFacet(length int, facets Facets) error {
	if facets.MaxLength != nil && length > *facets.MaxLength {
		return fmt.Errorf("value exceeds maxLength: %d (max %d)", length, *facets.MaxLength)
	}
	return nil
}
