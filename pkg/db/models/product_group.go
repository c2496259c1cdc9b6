package models

import (
	"time"

	"github.com/google/uuid"
)

// ProductGroup is one node of the catalog's group tree. Groups are owned by
// catalog management; the pricing core only ever reads them.
type ProductGroup struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	ParentID  *uuid.UUID `gorm:"column:parent_id;type:uuid"`
	Name      string     `gorm:"column:name;not null"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName keeps the legacy table name used by catalog management.
func (ProductGroup) TableName() string {
	return "product_groups"
}
