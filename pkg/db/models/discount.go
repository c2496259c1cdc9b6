package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nmoreyra/tienda-backend/pkg/enums"
)

// Discount is a flat percentage discount scoped to a product group or a
// single product, optionally bounded by a validity window. InEffect records
// whether the discount contributed to current prices at the last evaluation;
// the scheduler compares it against the window to detect boundary crossings.
type Discount struct {
	ID              uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	Kind            enums.DiscountKind `gorm:"column:kind;not null"`
	TargetID        uuid.UUID          `gorm:"column:target_id;type:uuid;not null"`
	Percentage      decimal.Decimal    `gorm:"column:percentage;type:numeric(5,2);not null"`
	StartDate       *time.Time         `gorm:"column:start_date"`
	EndDate         *time.Time         `gorm:"column:end_date"`
	ApplyToChildren bool               `gorm:"column:apply_to_children;not null;default:false"`
	IsActive        bool               `gorm:"column:is_active;not null;default:true"`
	InEffect        bool               `gorm:"column:in_effect;not null;default:false"`
	CreatedAt       time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time          `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt       gorm.DeletedAt     `gorm:"column:deleted_at;index"`
}
