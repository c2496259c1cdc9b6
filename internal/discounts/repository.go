package discounts

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nmoreyra/tienda-backend/internal/repo"
	"github.com/nmoreyra/tienda-backend/pkg/db/models"
	"github.com/nmoreyra/tienda-backend/pkg/enums"
	pkgerrors "github.com/nmoreyra/tienda-backend/pkg/errors"
)

// Repository owns persistence for discount rows.
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

// Create inserts a discount row, assigning an id when missing.
func (r *Repository) Create(ctx context.Context, discount *models.Discount) error {
	if discount.ID == uuid.Nil {
		discount.ID = uuid.New()
	}
	return r.DB(ctx).Create(discount).Error
}

// Save persists every field of an existing discount row.
func (r *Repository) Save(ctx context.Context, discount *models.Discount) error {
	return r.DB(ctx).Save(discount).Error
}

// FindByID loads a non-deleted discount.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Discount, error) {
	var discount models.Discount
	if err := r.DB(ctx).First(&discount, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "discount not found")
		}
		return nil, err
	}
	return &discount, nil
}

// SoftDelete marks the discount deleted. gorm sets deleted_at; the row stays
// for audit and is invisible to every other query here.
func (r *Repository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	result := r.DB(ctx).Where("id = ?", id).Delete(&models.Discount{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "discount not found")
	}
	return nil
}

// List returns non-deleted discounts narrowed by the admin filter, newest
// first.
func (r *Repository) List(ctx context.Context, filter enums.DiscountListFilter) ([]models.Discount, error) {
	qb := r.DB(ctx).Model(&models.Discount{})
	switch filter {
	case enums.DiscountFilterActive:
		qb = qb.Where("is_active = ?", true)
	case enums.DiscountFilterInactive:
		qb = qb.Where("is_active = ?", false)
	}
	var rows []models.Discount
	err := qb.Order("created_at DESC").Order("id DESC").Find(&rows).Error
	return rows, err
}

// ListAll returns every non-deleted discount. The scheduler scans these each
// tick to detect window transitions.
func (r *Repository) ListAll(ctx context.Context) ([]models.Discount, error) {
	var rows []models.Discount
	err := r.DB(ctx).Order("created_at ASC").Find(&rows).Error
	return rows, err
}

// ListCandidates returns the discounts that could cover a product: product
// discounts on the product itself, the product's own group's discounts, and
// cascading discounts on any ancestor group.
func (r *Repository) ListCandidates(ctx context.Context, productID uuid.UUID, groupChain []uuid.UUID) ([]models.Discount, error) {
	ownGroup := uuid.Nil
	if len(groupChain) > 0 {
		ownGroup = groupChain[0]
	}
	var rows []models.Discount
	err := r.DB(ctx).
		Where(
			"(kind = ? AND target_id = ?) OR (kind = ? AND target_id IN ? AND (apply_to_children = ? OR target_id = ?))",
			enums.DiscountKindProduct, productID,
			enums.DiscountKindGroup, groupChain, true, ownGroup,
		).
		Find(&rows).
		Error
	return rows, err
}

// SetInEffect flips the persisted in-effect flag for the given discounts.
func (r *Repository) SetInEffect(ctx context.Context, ids []uuid.UUID, inEffect bool) error {
	if len(ids) == 0 {
		return nil
	}
	return r.DB(ctx).
		Model(&models.Discount{}).
		Where("id IN ?", ids).
		Update("in_effect", inEffect).
		Error
}
