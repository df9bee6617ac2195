package enums

import "fmt"

// CustomizationKind names the option groups a custom cigar is built from.
type CustomizationKind string

const (
	CustomizationKindSize      CustomizationKind = "size"
	CustomizationKindBinder    CustomizationKind = "binder"
	CustomizationKindFlavor    CustomizationKind = "flavor"
	CustomizationKindBandStyle CustomizationKind = "band_style"
	CustomizationKindBoxType   CustomizationKind = "box_type"
)

var validCustomizationKinds = []CustomizationKind{
	CustomizationKindSize,
	CustomizationKindBinder,
	CustomizationKindFlavor,
	CustomizationKindBandStyle,
	CustomizationKindBoxType,
}

// String implements fmt.Stringer.
func (k CustomizationKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known CustomizationKind.
func (k CustomizationKind) IsValid() bool {
	for _, candidate := range validCustomizationKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseCustomizationKind converts raw input into a CustomizationKind.
func ParseCustomizationKind(value string) (CustomizationKind, error) {
	for _, candidate := range validCustomizationKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid customization kind %q", value)
}
