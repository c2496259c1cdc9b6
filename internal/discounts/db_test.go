package discounts

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/nmoreyra/tienda-backend/pkg/db/models"
	"github.com/nmoreyra/tienda-backend/pkg/enums"
)

func setupDiscountsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	groups := `
CREATE TABLE IF NOT EXISTS product_groups (
  id TEXT PRIMARY KEY,
  parent_id TEXT,
  name TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`
	products := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  group_id TEXT NOT NULL,
  sku TEXT NOT NULL,
  name TEXT NOT NULL,
  description TEXT,
  base_price TEXT NOT NULL,
  current_price TEXT NOT NULL,
  version INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	discounts := `
CREATE TABLE IF NOT EXISTS discounts (
  id TEXT PRIMARY KEY,
  kind TEXT NOT NULL,
  target_id TEXT NOT NULL,
  percentage TEXT NOT NULL,
  start_date DATETIME,
  end_date DATETIME,
  apply_to_children INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  in_effect INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME,
  deleted_at DATETIME
);`
	require.NoError(t, db.Exec(groups).Error)
	require.NoError(t, db.Exec(products).Error)
	require.NoError(t, db.Exec(discounts).Error)
	return db
}

func seedDiscount(t *testing.T, db *gorm.DB, kind enums.DiscountKind, targetID uuid.UUID, percentage string, mutate func(*models.Discount)) *models.Discount {
	t.Helper()

	discount := &models.Discount{
		ID:         uuid.New(),
		Kind:       kind,
		TargetID:   targetID,
		Percentage: decimal.RequireFromString(percentage),
		IsActive:   true,
	}
	if mutate != nil {
		mutate(discount)
	}
	require.NoError(t, db.Create(discount).Error)
	return discount
}

func timePtr(value time.Time) *time.Time {
	return &value
}
