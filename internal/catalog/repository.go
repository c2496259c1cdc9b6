package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nmoreyra/tienda-backend/internal/repo"
	"github.com/nmoreyra/tienda-backend/pkg/db/models"
	pkgerrors "github.com/nmoreyra/tienda-backend/pkg/errors"
	"github.com/nmoreyra/tienda-backend/pkg/pagination"
)

// Repository exposes read paths over the catalog (groups + products). The
// catalog rows are owned by catalog management; the pricing core only ever
// writes current_price/version, and that happens in internal/pricing.
type Repository struct {
	repo.Base
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Base.WithTx(tx)}
}

// ListGroups returns every group row. The tree is small (admin dropdown
// scale), so callers build the in-memory hierarchy from the full set.
func (r *Repository) ListGroups(ctx context.Context) ([]models.ProductGroup, error) {
	var rows []models.ProductGroup
	err := r.DB(ctx).
		Order("name ASC").
		Find(&rows).
		Error
	return rows, err
}

// FindGroupByID loads a single group row.
func (r *Repository) FindGroupByID(ctx context.Context, id uuid.UUID) (*models.ProductGroup, error) {
	var group models.ProductGroup
	if err := r.DB(ctx).First(&group, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "group not found")
		}
		return nil, err
	}
	return &group, nil
}

// FindProductByID loads a single product row.
func (r *Repository) FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.DB(ctx).First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, err
	}
	return &product, nil
}

// ListProductIDsByGroups returns the ids of all products whose group is in
// the provided set. Used to resolve the reprice target set of a group
// discount.
func (r *Repository) ListProductIDsByGroups(ctx context.Context, groupIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(groupIDs) == 0 {
		return nil, nil
	}
	var ids []uuid.UUID
	err := r.DB(ctx).
		Model(&models.Product{}).
		Where("group_id IN ?", groupIDs).
		Pluck("id", &ids).
		Error
	return ids, err
}

// CountProductsByGroups returns how many products live under the given
// group set. The admin list uses it for the affected_products column.
func (r *Repository) CountProductsByGroups(ctx context.Context, groupIDs []uuid.UUID) (int64, error) {
	if len(groupIDs) == 0 {
		return 0, nil
	}
	var count int64
	err := r.DB(ctx).
		Model(&models.Product{}).
		Where("group_id IN ?", groupIDs).
		Count(&count).
		Error
	return count, err
}

// ProductListFilters narrows the storefront product listing.
type ProductListFilters struct {
	GroupID *uuid.UUID
	Query   string
}

type productListQuery struct {
	Pagination pagination.Params
	Filters    ProductListFilters
}

// ListProductSummaries returns a cursor-paginated page of products ordered
// by created_at desc, id desc.
func (r *Repository) ListProductSummaries(ctx context.Context, params pagination.Params, filters ProductListFilters) (*ProductListResult, error) {
	query := productListQuery{Pagination: params, Filters: filters}

	pageSize := pagination.NormalizeLimit(query.Pagination.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(query.Pagination.Limit)

	cursor, err := pagination.ParseCursor(query.Pagination.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	qb := r.DB(ctx).
		Model(&models.Product{}).
		Where("is_active = ?", true)

	if query.Filters.GroupID != nil {
		qb = qb.Where("group_id = ?", *query.Filters.GroupID)
	}
	if search := strings.TrimSpace(query.Filters.Query); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		qb = qb.Where("(LOWER(name) LIKE ? OR LOWER(sku) LIKE ?)", pattern, pattern)
	}
	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Product
	if err := qb.Order("created_at DESC").Order("id DESC").Limit(limitWithBuffer).Find(&rows).Error; err != nil {
		return nil, err
	}

	nextCursor := ""
	if len(rows) > pageSize {
		rows = rows[:pageSize]
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	summaries := make([]ProductSummary, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, Summarize(row))
	}

	return &ProductListResult{
		Products:   summaries,
		NextCursor: nextCursor,
	}, nil
}

// Summarize projects a product row into its public listing shape.
func Summarize(p models.Product) ProductSummary {
	return ProductSummary{
		ID:           p.ID,
		GroupID:      p.GroupID,
		SKU:          p.SKU,
		Name:         p.Name,
		Description:  p.Description,
		BasePrice:    p.BasePrice,
		CurrentPrice: p.CurrentPrice,
		OnSale:       p.CurrentPrice.LessThan(p.BasePrice),
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}
