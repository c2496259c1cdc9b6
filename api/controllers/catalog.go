package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/nmoreyra/tienda-backend/api/responses"
	"github.com/nmoreyra/tienda-backend/api/validators"
	"github.com/nmoreyra/tienda-backend/internal/catalog"
	"github.com/nmoreyra/tienda-backend/pkg/db/models"
	pkgerrors "github.com/nmoreyra/tienda-backend/pkg/errors"
	"github.com/nmoreyra/tienda-backend/pkg/logger"
	"github.com/nmoreyra/tienda-backend/pkg/pagination"
)

// maxSearchQueryLen caps the q parameter before it reaches the ILIKE filter.
const maxSearchQueryLen = 120

// CatalogReader is the slice of the catalog the storefront API uses.
type CatalogReader interface {
	ListGroups(ctx context.Context) ([]models.ProductGroup, error)
	FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListProductSummaries(ctx context.Context, params pagination.Params, filters catalog.ProductListFilters) (*catalog.ProductListResult, error)
}

// ListProducts serves the cursor-paginated storefront product listing.
func ListProducts(repo CatalogReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		groupID, err := validators.ParseQueryUUID(r, "group_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters := catalog.ProductListFilters{
			Query: validators.SanitizeString(r.URL.Query().Get("q"), maxSearchQueryLen),
		}
		if groupID != uuid.Nil {
			filters.GroupID = &groupID
		}

		result, err := repo.ListProductSummaries(r.Context(), pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		}, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// GetProduct serves the product detail view with the live price.
func GetProduct(repo CatalogReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable"))
			return
		}

		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := repo.FindProductByID(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, catalog.Summarize(*product))
	}
}

// ListGroups serves the flat group tree used by the admin target picker.
func ListGroups(repo CatalogReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable"))
			return
		}

		groups, err := repo.ListGroups(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		nodes := make([]catalog.GroupNode, 0, len(groups))
		for _, group := range groups {
			nodes = append(nodes, catalog.GroupNode{
				ID:       group.ID,
				ParentID: group.ParentID,
				Name:     group.Name,
			})
		}

		responses.WriteSuccess(w, map[string]any{"groups": nodes})
	}
}
