package discounts

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nmoreyra/tienda-backend/pkg/enums"
)

// RepriceResult summarizes one reprice pass.
type RepriceResult struct {
	Updated   int
	Unchanged int
	Skipped   []uuid.UUID
}

// GroupDiscountInput creates a discount over a group (optionally cascading
// to its sub-groups).
type GroupDiscountInput struct {
	GroupID         uuid.UUID
	Percentage      decimal.Decimal
	StartDate       *time.Time
	EndDate         *time.Time
	ApplyToChildren bool
}

// ProductDiscountInput creates a discount over a single product.
type ProductDiscountInput struct {
	ProductID  uuid.UUID
	Percentage decimal.Decimal
	StartDate  *time.Time
	EndDate    *time.Time
}

// UpdateDiscountInput patches an existing discount; nil fields are left
// untouched. ClearDates drops both window bounds.
type UpdateDiscountInput struct {
	Percentage      *decimal.Decimal
	StartDate       *time.Time
	EndDate         *time.Time
	ClearDates      bool
	IsActive        *bool
	ApplyToChildren *bool
}

// DiscountView is the admin-facing projection of a discount row.
type DiscountView struct {
	DiscountID       uuid.UUID            `json:"discount_id"`
	Kind             enums.DiscountKind   `json:"type"`
	TargetID         uuid.UUID            `json:"target_id"`
	TargetName       string               `json:"target_name"`
	Percentage       decimal.Decimal      `json:"discount_percentage"`
	StartDate        *time.Time           `json:"start_date,omitempty"`
	EndDate          *time.Time           `json:"end_date,omitempty"`
	ApplyToChildren  bool                 `json:"apply_to_children"`
	IsActive         bool                 `json:"is_active"`
	InEffect         bool                 `json:"in_effect"`
	Status           enums.DiscountStatus `json:"status"`
	AffectedProducts int64                `json:"affected_products"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

// WindowTransitions summarizes one scheduler pass.
type WindowTransitions struct {
	Entered  []uuid.UUID
	Exited   []uuid.UUID
	Repriced int
}
