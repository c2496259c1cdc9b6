package discounts_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/nmoreyra/tienda-backend/internal/catalog"
	"github.com/nmoreyra/tienda-backend/internal/discounts"
	"github.com/nmoreyra/tienda-backend/internal/pricing"
	dbpkg "github.com/nmoreyra/tienda-backend/pkg/db"
	"github.com/nmoreyra/tienda-backend/pkg/db/models"
	"github.com/nmoreyra/tienda-backend/pkg/enums"
	pkgerrors "github.com/nmoreyra/tienda-backend/pkg/errors"
	"github.com/nmoreyra/tienda-backend/pkg/outbox"
)

type lifecycleFixture struct {
	db      *gorm.DB
	service *discounts.Service
	now     time.Time
	clock   *time.Time
}

func setupLifecycleDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{`
CREATE TABLE IF NOT EXISTS product_groups (
  id TEXT PRIMARY KEY,
  parent_id TEXT,
  name TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`, `
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
);`, `
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
);`, `
CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func newLifecycleFixture(t *testing.T) *lifecycleFixture {
	t.Helper()

	conn := setupLifecycleDB(t)
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	fixture := &lifecycleFixture{db: conn, now: now}
	fixture.clock = &fixture.now

	clock := func() time.Time { return *fixture.clock }

	catalogRepo := catalog.NewRepository(conn)
	resolver := catalog.NewHierarchyResolver(catalogRepo)
	engine := pricing.NewEngine(resolver, 3, nil, clock)
	events := outbox.NewService(outbox.NewRepository(conn), nil)

	fixture.service = discounts.NewService(
		dbpkg.FromConn(conn),
		discounts.NewRepository(conn),
		catalogRepo,
		resolver,
		engine,
		events,
		nil,
		clock,
	)
	return fixture
}

func (f *lifecycleFixture) group(t *testing.T, name string, parent *uuid.UUID) *models.ProductGroup {
	t.Helper()
	group := &models.ProductGroup{ID: uuid.New(), ParentID: parent, Name: name}
	require.NoError(t, f.db.Create(group).Error)
	return group
}

func (f *lifecycleFixture) product(t *testing.T, groupID uuid.UUID, name, base string) *models.Product {
	t.Helper()
	price := decimal.RequireFromString(base)
	product := &models.Product{
		ID:           uuid.New(),
		GroupID:      groupID,
		SKU:          "SKU-" + uuid.NewString()[:8],
		Name:         name,
		BasePrice:    price,
		CurrentPrice: price,
		IsActive:     true,
	}
	require.NoError(t, f.db.Create(product).Error)
	return product
}

func (f *lifecycleFixture) price(t *testing.T, productID uuid.UUID) string {
	t.Helper()
	var product models.Product
	require.NoError(t, f.db.First(&product, "id = ?", productID).Error)
	return product.CurrentPrice.StringFixed(2)
}

func (f *lifecycleFixture) outboxCount(t *testing.T, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Table("outbox_events").Where("event_type = ?", eventType).Count(&count).Error)
	return count
}

func TestProductDiscountToggleRoundTrip(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()

	group := f.group(t, "Electro", nil)
	product := f.product(t, group.ID, "Heladera", "1000.00")

	appliedBefore := f.outboxCount(t, enums.EventDiscountApplied)
	updatedBefore := f.outboxCount(t, enums.EventDiscountUpdated)

	view, err := f.service.ApplyProductDiscount(ctx, discounts.ProductDiscountInput{
		ProductID:  product.ID,
		Percentage: decimal.RequireFromString("15"),
	})
	require.NoError(t, err)
	assert.Equal(t, "850.00", f.price(t, product.ID))
	assert.True(t, view.InEffect)
	assert.Equal(t, enums.DiscountStatusActive, view.Status)
	assert.Equal(t, "Heladera", view.TargetName)
	assert.Equal(t, int64(1), view.AffectedProducts)

	disabled := false
	view, err = f.service.UpdateDiscount(ctx, view.DiscountID, discounts.UpdateDiscountInput{IsActive: &disabled})
	require.NoError(t, err)
	assert.Equal(t, "1000.00", f.price(t, product.ID))
	assert.False(t, view.InEffect)
	assert.Equal(t, enums.DiscountStatusDisabled, view.Status)

	enabled := true
	view, err = f.service.UpdateDiscount(ctx, view.DiscountID, discounts.UpdateDiscountInput{IsActive: &enabled})
	require.NoError(t, err)
	assert.Equal(t, "850.00", f.price(t, product.ID))
	assert.True(t, view.InEffect)

	assert.Equal(t, appliedBefore+1, f.outboxCount(t, enums.EventDiscountApplied))
	assert.Equal(t, updatedBefore+2, f.outboxCount(t, enums.EventDiscountUpdated))
}

func TestGroupDiscountCascade(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()

	root := f.group(t, "Bebidas", nil)
	child := f.group(t, "Gaseosas", &root.ID)
	other := f.group(t, "Limpieza", nil)

	inRoot := f.product(t, root.ID, "Agua", "100.00")
	inChild := f.product(t, child.ID, "Cola", "200.00")
	outside := f.product(t, other.ID, "Lavandina", "300.00")

	view, err := f.service.ApplyGroupDiscount(ctx, discounts.GroupDiscountInput{
		GroupID:         root.ID,
		Percentage:      decimal.RequireFromString("10"),
		ApplyToChildren: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "90.00", f.price(t, inRoot.ID))
	assert.Equal(t, "180.00", f.price(t, inChild.ID))
	assert.Equal(t, "300.00", f.price(t, outside.ID))
	assert.Equal(t, "Bebidas", view.TargetName)
	assert.Equal(t, int64(2), view.AffectedProducts)
}

func TestGroupDiscountWithoutCascade(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()

	root := f.group(t, "Almacen", nil)
	child := f.group(t, "Snacks", &root.ID)

	inRoot := f.product(t, root.ID, "Arroz", "100.00")
	inChild := f.product(t, child.ID, "Papas", "100.00")

	_, err := f.service.ApplyGroupDiscount(ctx, discounts.GroupDiscountInput{
		GroupID:    root.ID,
		Percentage: decimal.RequireFromString("20"),
	})
	require.NoError(t, err)

	assert.Equal(t, "80.00", f.price(t, inRoot.ID))
	assert.Equal(t, "100.00", f.price(t, inChild.ID))
}

func TestDeleteDiscountRestoresPrices(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()

	group := f.group(t, "Perfumeria", nil)
	product := f.product(t, group.ID, "Shampoo", "500.00")

	deletedBefore := f.outboxCount(t, enums.EventDiscountDeleted)

	view, err := f.service.ApplyProductDiscount(ctx, discounts.ProductDiscountInput{
		ProductID:  product.ID,
		Percentage: decimal.RequireFromString("20"),
	})
	require.NoError(t, err)
	assert.Equal(t, "400.00", f.price(t, product.ID))

	require.NoError(t, f.service.DeleteDiscount(ctx, view.DiscountID))
	assert.Equal(t, "500.00", f.price(t, product.ID))
	assert.Equal(t, deletedBefore+1, f.outboxCount(t, enums.EventDiscountDeleted))

	views, err := f.service.ListDiscounts(ctx, enums.DiscountFilterAll)
	require.NoError(t, err)
	for _, row := range views {
		assert.NotEqual(t, view.DiscountID, row.DiscountID)
	}

	err = f.service.DeleteDiscount(ctx, view.DiscountID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestDeleteStackedDiscountFallsBackToNextBest(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()

	group := f.group(t, "Verduleria", nil)
	product := f.product(t, group.ID, "Tomate", "100.00")

	weak, err := f.service.ApplyProductDiscount(ctx, discounts.ProductDiscountInput{
		ProductID:  product.ID,
		Percentage: decimal.RequireFromString("10"),
	})
	require.NoError(t, err)
	assert.Equal(t, "90.00", f.price(t, product.ID))

	strong, err := f.service.ApplyProductDiscount(ctx, discounts.ProductDiscountInput{
		ProductID:  product.ID,
		Percentage: decimal.RequireFromString("25"),
	})
	require.NoError(t, err)
	assert.Equal(t, "75.00", f.price(t, product.ID))

	require.NoError(t, f.service.DeleteDiscount(ctx, strong.DiscountID))
	assert.Equal(t, "90.00", f.price(t, product.ID), "deleting the stronger discount must fall back to the weaker one")

	require.NoError(t, f.service.DeleteDiscount(ctx, weak.DiscountID))
	assert.Equal(t, "100.00", f.price(t, product.ID), "deleting the last discount must restore the base price")
}

func TestUpdateDiscountPercentage(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()

	group := f.group(t, "Lacteos", nil)
	product := f.product(t, group.ID, "Leche", "100.00")

	view, err := f.service.ApplyProductDiscount(ctx, discounts.ProductDiscountInput{
		ProductID:  product.ID,
		Percentage: decimal.RequireFromString("10"),
	})
	require.NoError(t, err)
	assert.Equal(t, "90.00", f.price(t, product.ID))

	newPct := decimal.RequireFromString("50")
	view, err = f.service.UpdateDiscount(ctx, view.DiscountID, discounts.UpdateDiscountInput{Percentage: &newPct})
	require.NoError(t, err)
	assert.Equal(t, "50.00", f.price(t, product.ID))
	assert.True(t, view.Percentage.Equal(newPct))
}

func TestValidationFailuresLeaveNoTrace(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()

	group := f.group(t, "Congelados", nil)
	product := f.product(t, group.ID, "Helado", "100.00")

	t.Run("percentage out of range", func(t *testing.T) {
		for _, pct := range []string{"0", "-5", "101"} {
			_, err := f.service.ApplyProductDiscount(ctx, discounts.ProductDiscountInput{
				ProductID:  product.ID,
				Percentage: decimal.RequireFromString(pct),
			})
			typed := pkgerrors.As(err)
			require.NotNil(t, typed, "pct=%s", pct)
			assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
		}
	})

	t.Run("end before start", func(t *testing.T) {
		start := f.now.Add(24 * time.Hour)
		end := f.now
		_, err := f.service.ApplyProductDiscount(ctx, discounts.ProductDiscountInput{
			ProductID:  product.ID,
			Percentage: decimal.RequireFromString("10"),
			StartDate:  &start,
			EndDate:    &end,
		})
		typed := pkgerrors.As(err)
		require.NotNil(t, typed)
		assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	})

	t.Run("unknown targets", func(t *testing.T) {
		_, err := f.service.ApplyProductDiscount(ctx, discounts.ProductDiscountInput{
			ProductID:  uuid.New(),
			Percentage: decimal.RequireFromString("10"),
		})
		typed := pkgerrors.As(err)
		require.NotNil(t, typed)
		assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())

		_, err = f.service.ApplyGroupDiscount(ctx, discounts.GroupDiscountInput{
			GroupID:    uuid.New(),
			Percentage: decimal.RequireFromString("10"),
		})
		typed = pkgerrors.As(err)
		require.NotNil(t, typed)
		assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
	})

	assert.Equal(t, "100.00", f.price(t, product.ID))
}

func TestScheduledDiscountWindowTransitions(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()

	group := f.group(t, "Panaderia", nil)
	product := f.product(t, group.ID, "Pan", "100.00")

	transitionsBefore := f.outboxCount(t, enums.EventDiscountWindowTransition)

	start := f.now.Add(24 * time.Hour)
	end := f.now.Add(48 * time.Hour)
	view, err := f.service.ApplyProductDiscount(ctx, discounts.ProductDiscountInput{
		ProductID:  product.ID,
		Percentage: decimal.RequireFromString("30"),
		StartDate:  &start,
		EndDate:    &end,
	})
	require.NoError(t, err)
	assert.False(t, view.InEffect)
	assert.Equal(t, enums.DiscountStatusScheduled, view.Status)
	assert.Equal(t, "100.00", f.price(t, product.ID), "scheduled discount must not touch prices yet")

	t.Run("no transition before the window", func(t *testing.T) {
		transitions, err := f.service.ReevaluateWindows(ctx)
		require.NoError(t, err)
		assert.Empty(t, transitions.Entered)
		assert.Empty(t, transitions.Exited)
	})

	t.Run("entering the window applies the price", func(t *testing.T) {
		f.now = start.Add(time.Minute)
		transitions, err := f.service.ReevaluateWindows(ctx)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{view.DiscountID}, transitions.Entered)
		assert.Equal(t, 1, transitions.Repriced)
		assert.Equal(t, "70.00", f.price(t, product.ID))
	})

	t.Run("a second tick inside the window is a no-op", func(t *testing.T) {
		transitions, err := f.service.ReevaluateWindows(ctx)
		require.NoError(t, err)
		assert.Empty(t, transitions.Entered)
		assert.Empty(t, transitions.Exited)
	})

	t.Run("leaving the window restores the price", func(t *testing.T) {
		f.now = end.Add(time.Minute)
		transitions, err := f.service.ReevaluateWindows(ctx)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{view.DiscountID}, transitions.Exited)
		assert.Equal(t, "100.00", f.price(t, product.ID))
	})

	assert.Equal(t, transitionsBefore+2, f.outboxCount(t, enums.EventDiscountWindowTransition))
}
