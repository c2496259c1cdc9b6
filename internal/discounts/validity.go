package discounts

import (
	"time"

	"github.com/nmoreyra/tienda-backend/pkg/db/models"
	"github.com/nmoreyra/tienda-backend/pkg/enums"
)

// WindowContains reports whether now falls inside the discount's validity
// window. Bounds are inclusive; a nil bound leaves that side open.
func WindowContains(d models.Discount, now time.Time) bool {
	if d.StartDate != nil && now.Before(*d.StartDate) {
		return false
	}
	if d.EndDate != nil && now.After(*d.EndDate) {
		return false
	}
	return true
}

// IsApplicable reports whether the discount should contribute to prices at
// the given instant: enabled and inside its window. Soft-deleted rows never
// reach here (gorm excludes them).
func IsApplicable(d models.Discount, now time.Time) bool {
	return d.IsActive && WindowContains(d, now)
}

// StatusAt derives the lifecycle status shown on the admin list.
func StatusAt(d models.Discount, now time.Time) enums.DiscountStatus {
	if d.DeletedAt.Valid {
		return enums.DiscountStatusDeleted
	}
	if !d.IsActive {
		return enums.DiscountStatusDisabled
	}
	if d.StartDate != nil && now.Before(*d.StartDate) {
		return enums.DiscountStatusScheduled
	}
	if d.EndDate != nil && now.After(*d.EndDate) {
		return enums.DiscountStatusExpired
	}
	return enums.DiscountStatusActive
}
