package enums

import "fmt"

// DiscountStatus is the lifecycle state derived from a discount's flags,
// its validity window, and the clock. It is computed, never stored.
type DiscountStatus string

const (
	DiscountStatusScheduled DiscountStatus = "scheduled"
	DiscountStatusActive    DiscountStatus = "active"
	DiscountStatusExpired   DiscountStatus = "expired"
	DiscountStatusDisabled  DiscountStatus = "disabled"
	DiscountStatusDeleted   DiscountStatus = "deleted"
)

var validDiscountStatuses = []DiscountStatus{
	DiscountStatusScheduled,
	DiscountStatusActive,
	DiscountStatusExpired,
	DiscountStatusDisabled,
	DiscountStatusDeleted,
}

// String implements fmt.Stringer.
func (s DiscountStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known DiscountStatus.
func (s DiscountStatus) IsValid() bool {
	for _, candidate := range validDiscountStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseDiscountStatus converts raw input into a DiscountStatus.
func ParseDiscountStatus(value string) (DiscountStatus, error) {
	for _, candidate := range validDiscountStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid discount status %q", value)
}

// DiscountListFilter narrows the admin discount listing.
type DiscountListFilter string

const (
	DiscountFilterAll      DiscountListFilter = "all"
	DiscountFilterActive   DiscountListFilter = "active"
	DiscountFilterInactive DiscountListFilter = "inactive"
)

var validDiscountListFilters = []DiscountListFilter{
	DiscountFilterAll,
	DiscountFilterActive,
	DiscountFilterInactive,
}

// ParseDiscountListFilter converts raw input into a DiscountListFilter,
// defaulting to "all" for empty input.
func ParseDiscountListFilter(value string) (DiscountListFilter, error) {
	if value == "" {
		return DiscountFilterAll, nil
	}
	for _, candidate := range validDiscountListFilters {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid discount filter %q", value)
}
