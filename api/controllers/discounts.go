package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nmoreyra/tienda-backend/api/responses"
	"github.com/nmoreyra/tienda-backend/api/validators"
	"github.com/nmoreyra/tienda-backend/internal/discounts"
	"github.com/nmoreyra/tienda-backend/pkg/enums"
	pkgerrors "github.com/nmoreyra/tienda-backend/pkg/errors"
	"github.com/nmoreyra/tienda-backend/pkg/logger"
)

// DiscountService is the slice of the discount lifecycle the admin API uses.
type DiscountService interface {
	ApplyGroupDiscount(ctx context.Context, input discounts.GroupDiscountInput) (*discounts.DiscountView, error)
	ApplyProductDiscount(ctx context.Context, input discounts.ProductDiscountInput) (*discounts.DiscountView, error)
	UpdateDiscount(ctx context.Context, id uuid.UUID, input discounts.UpdateDiscountInput) (*discounts.DiscountView, error)
	DeleteDiscount(ctx context.Context, id uuid.UUID) error
	ListDiscounts(ctx context.Context, filter enums.DiscountListFilter) ([]discounts.DiscountView, error)
}

type groupDiscountRequest struct {
	GroupID         string          `json:"group_id" validate:"required,uuid"`
	Percentage      decimal.Decimal `json:"percentage"`
	StartDate       *time.Time      `json:"start_date,omitempty"`
	EndDate         *time.Time      `json:"end_date,omitempty"`
	ApplyToChildren bool            `json:"apply_to_children"`
}

type productDiscountRequest struct {
	ProductID  string          `json:"product_id" validate:"required,uuid"`
	Percentage decimal.Decimal `json:"percentage"`
	StartDate  *time.Time      `json:"start_date,omitempty"`
	EndDate    *time.Time      `json:"end_date,omitempty"`
}

// validateBoundaryPercentage enforces the admin API contract of a strictly
// fractional discount: 0 < p < 100. The lifecycle core itself tolerates
// p = 100 so windowed full-price-off promotions stay expressible internally.
func validateBoundaryPercentage(p decimal.Decimal) error {
	if p.LessThanOrEqual(decimal.Zero) || p.GreaterThanOrEqual(decimal.NewFromInt(100)) {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount_percentage must be strictly between 0 and 100")
	}
	return nil
}

type updateDiscountRequest struct {
	Percentage      *decimal.Decimal `json:"percentage,omitempty"`
	StartDate       *time.Time       `json:"start_date,omitempty"`
	EndDate         *time.Time       `json:"end_date,omitempty"`
	ClearDates      bool             `json:"clear_dates,omitempty"`
	IsActive        *bool            `json:"is_active,omitempty"`
	ApplyToChildren *bool            `json:"apply_to_children,omitempty"`
}

// ApplyGroupDiscount creates a percentage discount for a product group.
func ApplyGroupDiscount(svc DiscountService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "discount service unavailable"))
			return
		}

		var payload groupDiscountRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		groupID, err := uuid.Parse(payload.GroupID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid group id"))
			return
		}

		if err := validateBoundaryPercentage(payload.Percentage); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.ApplyGroupDiscount(r.Context(), discounts.GroupDiscountInput{
			GroupID:         groupID,
			Percentage:      payload.Percentage,
			StartDate:       payload.StartDate,
			EndDate:         payload.EndDate,
			ApplyToChildren: payload.ApplyToChildren,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}

// ApplyProductDiscount creates a percentage discount for a single product.
func ApplyProductDiscount(svc DiscountService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "discount service unavailable"))
			return
		}

		var payload productDiscountRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := uuid.Parse(payload.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		if err := validateBoundaryPercentage(payload.Percentage); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.ApplyProductDiscount(r.Context(), discounts.ProductDiscountInput{
			ProductID:  productID,
			Percentage: payload.Percentage,
			StartDate:  payload.StartDate,
			EndDate:    payload.EndDate,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}

// UpdateDiscount patches percentage, window, cascade flag, or active state.
func UpdateDiscount(svc DiscountService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "discount service unavailable"))
			return
		}

		discountID, err := validators.ParseUUIDParam(r, "discountId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateDiscountRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if payload.Percentage != nil {
			if err := validateBoundaryPercentage(*payload.Percentage); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		view, err := svc.UpdateDiscount(r.Context(), discountID, discounts.UpdateDiscountInput{
			Percentage:      payload.Percentage,
			StartDate:       payload.StartDate,
			EndDate:         payload.EndDate,
			ClearDates:      payload.ClearDates,
			IsActive:        payload.IsActive,
			ApplyToChildren: payload.ApplyToChildren,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, view)
	}
}

// DeleteDiscount retires a discount and restores the affected prices.
func DeleteDiscount(svc DiscountService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "discount service unavailable"))
			return
		}

		discountID, err := validators.ParseUUIDParam(r, "discountId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteDiscount(r.Context(), discountID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// ListDiscounts returns the admin discount listing, optionally filtered by
// effect status.
func ListDiscounts(svc DiscountService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "discount service unavailable"))
			return
		}

		raw, err := validators.ParseQueryEnum(r, "status", string(enums.DiscountFilterAll),
			string(enums.DiscountFilterAll), string(enums.DiscountFilterActive), string(enums.DiscountFilterInactive))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		views, err := svc.ListDiscounts(r.Context(), enums.DiscountListFilter(raw))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"discounts": views})
	}
}
