package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nmoreyra/tienda-backend/internal/discounts"
	"github.com/nmoreyra/tienda-backend/pkg/db/models"
	pkgerrors "github.com/nmoreyra/tienda-backend/pkg/errors"
	"github.com/nmoreyra/tienda-backend/pkg/logger"
)

var hundred = decimal.NewFromInt(100)

// ChainResolver yields the product's group plus its ancestors, nearest
// first.
type ChainResolver interface {
	AncestorChain(ctx context.Context, groupID uuid.UUID) ([]uuid.UUID, error)
}

// Engine recomputes current_price for products inside a caller-owned
// transaction. The price is always derived from base_price, so repricing the
// same set twice is a no-op.
type Engine struct {
	resolver   ChainResolver
	maxRetries int
	clock      func() time.Time
	logg       *logger.Logger
}

// NewEngine builds the pricing engine. maxRetries bounds the optimistic
// retry loop per product; clock defaults to time.Now.
func NewEngine(resolver ChainResolver, maxRetries int, logg *logger.Logger, clock func() time.Time) *Engine {
	if maxRetries <= 0 {
		maxRetries = 1
	}
	if clock == nil {
		clock = time.Now
	}
	return &Engine{
		resolver:   resolver,
		maxRetries: maxRetries,
		clock:      clock,
		logg:       logg,
	}
}

// ComputePrice applies a percentage discount to the base price, rounding
// half-up to cents.
func ComputePrice(base decimal.Decimal, percentage decimal.Decimal) decimal.Decimal {
	return base.Mul(hundred.Sub(percentage)).Div(hundred).Round(2)
}

// Reprice recomputes current_price for every listed product. Missing
// products are reported as skipped; a version conflict that survives the
// retry budget aborts with CodeConflict so the surrounding transaction
// rolls back.
func (e *Engine) Reprice(ctx context.Context, tx *gorm.DB, productIDs []uuid.UUID) (discounts.RepriceResult, error) {
	result := discounts.RepriceResult{}
	if tx == nil {
		return result, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}

	discountRepo := discounts.NewRepository(tx)
	for _, id := range productIDs {
		if err := e.repriceOne(ctx, tx, discountRepo, id, &result); err != nil {
			return result, err
		}
	}
	return result, nil
}

func (e *Engine) repriceOne(ctx context.Context, tx *gorm.DB, discountRepo *discounts.Repository, productID uuid.UUID, result *discounts.RepriceResult) error {
	now := e.clock()

	for attempt := 0; attempt < e.maxRetries; attempt++ {
		var product models.Product
		if err := tx.WithContext(ctx).First(&product, "id = ?", productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				result.Skipped = append(result.Skipped, productID)
				return nil
			}
			return err
		}

		chain, err := e.resolver.AncestorChain(ctx, product.GroupID)
		if err != nil {
			if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
				// orphaned product: only product discounts can reach it
				chain = nil
			} else {
				return err
			}
		}

		candidates, err := discountRepo.ListCandidates(ctx, product.ID, chain)
		if err != nil {
			return err
		}

		applicable := candidates[:0:0]
		for _, candidate := range candidates {
			if discounts.IsApplicable(candidate, now) {
				applicable = append(applicable, candidate)
			}
		}

		target := ComputePrice(product.BasePrice, discounts.EffectivePercentage(applicable))
		if product.CurrentPrice.Equal(target) {
			result.Unchanged++
			return nil
		}

		res := tx.WithContext(ctx).
			Model(&models.Product{}).
			Where("id = ? AND version = ?", product.ID, product.Version).
			Updates(map[string]any{
				"current_price": target,
				"version":       gorm.Expr("version + 1"),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 1 {
			result.Updated++
			if e.logg != nil {
				logCtx := e.logg.WithFields(ctx, map[string]any{
					"product_id": product.ID.String(),
					"price":      target.String(),
				})
				e.logg.Info(logCtx, "product repriced")
			}
			return nil
		}
		// lost the version race; reload and try again
	}

	return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("price update conflict for product %s", productID))
}
