package catalog

import (
	"context"

	"github.com/google/uuid"

	"github.com/nmoreyra/tienda-backend/pkg/db/models"
	pkgerrors "github.com/nmoreyra/tienda-backend/pkg/errors"
)

// GroupSource is the slice of the catalog repository the resolver needs.
type GroupSource interface {
	ListGroups(ctx context.Context) ([]models.ProductGroup, error)
	FindGroupByID(ctx context.Context, id uuid.UUID) (*models.ProductGroup, error)
}

// HierarchyResolver answers cascade questions over the group tree. The tree
// is acyclic by invariant, but the walks keep a visited set so malformed
// parent data terminates instead of looping.
type HierarchyResolver struct {
	groups GroupSource
}

// NewHierarchyResolver builds a resolver over the given group source.
func NewHierarchyResolver(groups GroupSource) *HierarchyResolver {
	return &HierarchyResolver{groups: groups}
}

// ResolveTargets expands a group discount's scope to the set of covered
// group ids: the group itself, plus every descendant when applyToChildren
// is set. Unknown groups yield NotFound.
func (h *HierarchyResolver) ResolveTargets(ctx context.Context, groupID uuid.UUID, applyToChildren bool) ([]uuid.UUID, error) {
	if _, err := h.groups.FindGroupByID(ctx, groupID); err != nil {
		return nil, err
	}
	if !applyToChildren {
		return []uuid.UUID{groupID}, nil
	}

	rows, err := h.groups.ListGroups(ctx)
	if err != nil {
		return nil, err
	}

	children := make(map[uuid.UUID][]uuid.UUID, len(rows))
	for _, row := range rows {
		if row.ParentID == nil {
			continue
		}
		children[*row.ParentID] = append(children[*row.ParentID], row.ID)
	}

	visited := map[uuid.UUID]bool{groupID: true}
	targets := []uuid.UUID{groupID}
	queue := []uuid.UUID{groupID}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, child := range children[current] {
			if visited[child] {
				continue
			}
			visited[child] = true
			targets = append(targets, child)
			queue = append(queue, child)
		}
	}
	return targets, nil
}

// AncestorChain walks from the group up to its root, returning the chain
// starting with the group itself. Repricing uses it to find group discounts
// on any ancestor that cascade down to a product.
func (h *HierarchyResolver) AncestorChain(ctx context.Context, groupID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := h.groups.ListGroups(ctx)
	if err != nil {
		return nil, err
	}

	parents := make(map[uuid.UUID]*uuid.UUID, len(rows))
	known := make(map[uuid.UUID]bool, len(rows))
	for _, row := range rows {
		parents[row.ID] = row.ParentID
		known[row.ID] = true
	}
	if !known[groupID] {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "group not found")
	}

	chain := []uuid.UUID{}
	visited := map[uuid.UUID]bool{}
	current := &groupID
	for current != nil && known[*current] && !visited[*current] {
		visited[*current] = true
		chain = append(chain, *current)
		current = parents[*current]
	}
	return chain, nil
}
