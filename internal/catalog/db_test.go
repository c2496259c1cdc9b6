package catalog

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/nmoreyra/tienda-backend/pkg/db/models"
)

func setupCatalogTestDB(t *testing.T) *gorm.DB {
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
	require.NoError(t, db.Exec(groups).Error)
	require.NoError(t, db.Exec(products).Error)
	return db
}

func newGroup(t *testing.T, db *gorm.DB, name string, parentID *uuid.UUID) *models.ProductGroup {
	t.Helper()

	group := &models.ProductGroup{
		ID:       uuid.New(),
		ParentID: parentID,
		Name:     name,
	}
	require.NoError(t, db.Create(group).Error)
	return group
}

func newProduct(t *testing.T, db *gorm.DB, groupID uuid.UUID, sku string, base string) *models.Product {
	t.Helper()

	price := decimal.RequireFromString(base)
	product := &models.Product{
		ID:           uuid.New(),
		GroupID:      groupID,
		SKU:          sku,
		Name:         "Producto " + sku,
		BasePrice:    price,
		CurrentPrice: price,
		IsActive:     true,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}
