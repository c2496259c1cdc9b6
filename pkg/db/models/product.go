package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a catalog listing. BasePrice is the immutable source of truth
// set by catalog management; CurrentPrice is derived and is only ever written
// by the pricing engine. Version is the optimistic concurrency counter
// guarding CurrentPrice writes.
type Product struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	GroupID      uuid.UUID       `gorm:"column:group_id;type:uuid;not null"`
	SKU          string          `gorm:"column:sku;not null"`
	Name         string          `gorm:"column:name;not null"`
	Description  *string         `gorm:"column:description"`
	BasePrice    decimal.Decimal `gorm:"column:base_price;type:numeric(12,2);not null"`
	CurrentPrice decimal.Decimal `gorm:"column:current_price;type:numeric(12,2);not null"`
	Version      int64           `gorm:"column:version;not null;default:0"`
	IsActive     bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
