package discounts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	dbpkg "github.com/nmoreyra/tienda-backend/pkg/db"
	"github.com/nmoreyra/tienda-backend/pkg/db/models"
	"github.com/nmoreyra/tienda-backend/pkg/enums"
	pkgerrors "github.com/nmoreyra/tienda-backend/pkg/errors"
	"github.com/nmoreyra/tienda-backend/pkg/logger"
	"github.com/nmoreyra/tienda-backend/pkg/outbox"
)

// CatalogReader is the slice of the catalog the lifecycle manager needs.
type CatalogReader interface {
	FindGroupByID(ctx context.Context, id uuid.UUID) (*models.ProductGroup, error)
	FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListProductIDsByGroups(ctx context.Context, groupIDs []uuid.UUID) ([]uuid.UUID, error)
	CountProductsByGroups(ctx context.Context, groupIDs []uuid.UUID) (int64, error)
}

// TargetResolver expands a group discount's scope over the group tree.
type TargetResolver interface {
	ResolveTargets(ctx context.Context, groupID uuid.UUID, applyToChildren bool) ([]uuid.UUID, error)
}

// Repricer recomputes current prices inside the caller's transaction.
type Repricer interface {
	Reprice(ctx context.Context, tx *gorm.DB, productIDs []uuid.UUID) (RepriceResult, error)
}

// EventEmitter appends a domain event inside the caller's transaction.
type EventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service is the discount lifecycle manager. Every mutation runs in one
// transaction: the discount row change and the reprice of every product it
// covers commit together, so readers never observe a discount without its
// price effect.
type Service struct {
	client   *dbpkg.Client
	repo     *Repository
	catalog  CatalogReader
	resolver TargetResolver
	pricer   Repricer
	events   EventEmitter
	logg     *logger.Logger
	clock    func() time.Time
}

// NewService wires the lifecycle manager. events may be nil when outbox
// publishing is disabled; clock defaults to time.Now.
func NewService(
	client *dbpkg.Client,
	repo *Repository,
	catalog CatalogReader,
	resolver TargetResolver,
	pricer Repricer,
	events EventEmitter,
	logg *logger.Logger,
	clock func() time.Time,
) *Service {
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		client:   client,
		repo:     repo,
		catalog:  catalog,
		resolver: resolver,
		pricer:   pricer,
		events:   events,
		logg:     logg,
		clock:    clock,
	}
}

func validatePercentage(p decimal.Decimal) error {
	if p.LessThanOrEqual(decimal.Zero) || p.GreaterThan(decimal.NewFromInt(100)) {
		return pkgerrors.New(pkgerrors.CodeValidation, "percentage must be greater than 0 and at most 100")
	}
	return nil
}

func validateWindow(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return pkgerrors.New(pkgerrors.CodeValidation, "end_date must not precede start_date")
	}
	return nil
}

// ApplyGroupDiscount creates a group discount and reprices every product the
// resolved group set covers. The product set is a snapshot taken before the
// transaction opens; a product moved into the group while the call is in
// flight picks the discount up on its next repricing.
func (s *Service) ApplyGroupDiscount(ctx context.Context, input GroupDiscountInput) (*DiscountView, error) {
	if err := validatePercentage(input.Percentage); err != nil {
		return nil, err
	}
	if err := validateWindow(input.StartDate, input.EndDate); err != nil {
		return nil, err
	}

	groups, err := s.resolver.ResolveTargets(ctx, input.GroupID, input.ApplyToChildren)
	if err != nil {
		return nil, err
	}
	productIDs, err := s.catalog.ListProductIDsByGroups(ctx, groups)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	discount := &models.Discount{
		Kind:            enums.DiscountKindGroup,
		TargetID:        input.GroupID,
		Percentage:      input.Percentage,
		StartDate:       input.StartDate,
		EndDate:         input.EndDate,
		ApplyToChildren: input.ApplyToChildren,
		IsActive:        true,
	}
	discount.InEffect = IsApplicable(*discount, now)

	var repriced RepriceResult
	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, discount); err != nil {
			return err
		}
		if repriced, err = s.pricer.Reprice(ctx, tx, productIDs); err != nil {
			return err
		}
		return s.emit(ctx, tx, enums.EventDiscountApplied, discount, outbox.SourceAPI, repriced)
	})
	if err != nil {
		return nil, err
	}

	s.logMutation(ctx, discount, "group discount applied", repriced)
	view := s.buildView(ctx, *discount, now)
	return &view, nil
}

// ApplyProductDiscount creates a single-product discount and reprices that
// product.
func (s *Service) ApplyProductDiscount(ctx context.Context, input ProductDiscountInput) (*DiscountView, error) {
	if err := validatePercentage(input.Percentage); err != nil {
		return nil, err
	}
	if err := validateWindow(input.StartDate, input.EndDate); err != nil {
		return nil, err
	}
	if _, err := s.catalog.FindProductByID(ctx, input.ProductID); err != nil {
		return nil, err
	}

	now := s.clock()
	discount := &models.Discount{
		Kind:       enums.DiscountKindProduct,
		TargetID:   input.ProductID,
		Percentage: input.Percentage,
		StartDate:  input.StartDate,
		EndDate:    input.EndDate,
		IsActive:   true,
	}
	discount.InEffect = IsApplicable(*discount, now)

	var repriced RepriceResult
	var err error
	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, discount); err != nil {
			return err
		}
		if repriced, err = s.pricer.Reprice(ctx, tx, []uuid.UUID{input.ProductID}); err != nil {
			return err
		}
		return s.emit(ctx, tx, enums.EventDiscountApplied, discount, outbox.SourceAPI, repriced)
	})
	if err != nil {
		return nil, err
	}

	s.logMutation(ctx, discount, "product discount applied", repriced)
	view := s.buildView(ctx, *discount, now)
	return &view, nil
}

// UpdateDiscount patches a discount and reprices the union of its old and
// new scope.
func (s *Service) UpdateDiscount(ctx context.Context, id uuid.UUID, input UpdateDiscountInput) (*DiscountView, error) {
	discount, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	before, err := s.targetProducts(ctx, *discount)
	if err != nil {
		return nil, err
	}

	if input.Percentage != nil {
		if err := validatePercentage(*input.Percentage); err != nil {
			return nil, err
		}
		discount.Percentage = *input.Percentage
	}
	if input.ClearDates {
		discount.StartDate = nil
		discount.EndDate = nil
	}
	if input.StartDate != nil {
		discount.StartDate = input.StartDate
	}
	if input.EndDate != nil {
		discount.EndDate = input.EndDate
	}
	if err := validateWindow(discount.StartDate, discount.EndDate); err != nil {
		return nil, err
	}
	if input.IsActive != nil {
		discount.IsActive = *input.IsActive
	}
	if input.ApplyToChildren != nil && discount.Kind == enums.DiscountKindGroup {
		discount.ApplyToChildren = *input.ApplyToChildren
	}

	now := s.clock()
	discount.InEffect = IsApplicable(*discount, now)

	after, err := s.targetProducts(ctx, *discount)
	if err != nil {
		return nil, err
	}

	var repriced RepriceResult
	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Save(ctx, discount); err != nil {
			return err
		}
		if repriced, err = s.pricer.Reprice(ctx, tx, unionIDs(before, after)); err != nil {
			return err
		}
		return s.emit(ctx, tx, enums.EventDiscountUpdated, discount, outbox.SourceAPI, repriced)
	})
	if err != nil {
		return nil, err
	}

	s.logMutation(ctx, discount, "discount updated", repriced)
	view := s.buildView(ctx, *discount, now)
	return &view, nil
}

// DeleteDiscount soft-deletes a discount and restores the prices it was
// affecting.
func (s *Service) DeleteDiscount(ctx context.Context, id uuid.UUID) error {
	discount, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	covered, err := s.targetProducts(ctx, *discount)
	if err != nil {
		return err
	}

	var repriced RepriceResult
	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).SoftDelete(ctx, id); err != nil {
			return err
		}
		if repriced, err = s.pricer.Reprice(ctx, tx, covered); err != nil {
			return err
		}
		return s.emit(ctx, tx, enums.EventDiscountDeleted, discount, outbox.SourceAPI, repriced)
	})
	if err != nil {
		return err
	}

	s.logMutation(ctx, discount, "discount deleted", repriced)
	return nil
}

// ListDiscounts returns the admin listing, newest first.
func (s *Service) ListDiscounts(ctx context.Context, filter enums.DiscountListFilter) ([]DiscountView, error) {
	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	views := make([]DiscountView, 0, len(rows))
	for _, row := range rows {
		views = append(views, s.buildView(ctx, row, now))
	}
	return views, nil
}

// ReevaluateWindows flips in_effect for every discount whose validity window
// was crossed since the last evaluation and reprices the affected products.
// The scheduler calls it once per tick. The row scan runs before the
// transaction opens, so an admin toggle racing a tick can leave in_effect
// stale for that tick; the next tick converges it, and prices are always
// recomputed from the live rows inside the transaction.
func (s *Service) ReevaluateWindows(ctx context.Context) (WindowTransitions, error) {
	transitions := WindowTransitions{}
	now := s.clock()

	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return transitions, err
	}

	var resolveErr error
	productSet := map[uuid.UUID]bool{}
	transitioned := []models.Discount{}
	for _, row := range rows {
		desired := IsApplicable(row, now)
		if desired == row.InEffect {
			continue
		}
		if desired {
			transitions.Entered = append(transitions.Entered, row.ID)
		} else {
			transitions.Exited = append(transitions.Exited, row.ID)
		}
		transitioned = append(transitioned, row)

		covered, err := s.targetProducts(ctx, row)
		if err != nil {
			// one unresolvable discount must not block the rest of the tick
			resolveErr = multierr.Append(resolveErr, err)
			continue
		}
		for _, id := range covered {
			productSet[id] = true
		}
	}

	if len(transitioned) == 0 {
		return transitions, resolveErr
	}

	productIDs := make([]uuid.UUID, 0, len(productSet))
	for id := range productSet {
		productIDs = append(productIDs, id)
	}

	txErr := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.SetInEffect(ctx, transitions.Entered, true); err != nil {
			return err
		}
		if err := repo.SetInEffect(ctx, transitions.Exited, false); err != nil {
			return err
		}
		repriced, err := s.pricer.Reprice(ctx, tx, productIDs)
		if err != nil {
			return err
		}
		transitions.Repriced = repriced.Updated
		for i := range transitioned {
			if err := s.emit(ctx, tx, enums.EventDiscountWindowTransition, &transitioned[i], outbox.SourceScheduler, repriced); err != nil {
				return err
			}
		}
		return nil
	})
	return transitions, multierr.Append(resolveErr, txErr)
}

// targetProducts resolves the product ids a discount covers right now.
func (s *Service) targetProducts(ctx context.Context, d models.Discount) ([]uuid.UUID, error) {
	if d.Kind == enums.DiscountKindProduct {
		return []uuid.UUID{d.TargetID}, nil
	}
	groups, err := s.resolver.ResolveTargets(ctx, d.TargetID, d.ApplyToChildren)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
			// target group is gone; nothing depends on this discount anymore
			return nil, nil
		}
		return nil, err
	}
	return s.catalog.ListProductIDsByGroups(ctx, groups)
}

func (s *Service) buildView(ctx context.Context, d models.Discount, now time.Time) DiscountView {
	view := DiscountView{
		DiscountID:      d.ID,
		Kind:            d.Kind,
		TargetID:        d.TargetID,
		Percentage:      d.Percentage,
		StartDate:       d.StartDate,
		EndDate:         d.EndDate,
		ApplyToChildren: d.ApplyToChildren,
		IsActive:        d.IsActive,
		InEffect:        d.InEffect,
		Status:          StatusAt(d, now),
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}

	switch d.Kind {
	case enums.DiscountKindProduct:
		view.AffectedProducts = 1
		if product, err := s.catalog.FindProductByID(ctx, d.TargetID); err == nil {
			view.TargetName = product.Name
		}
	case enums.DiscountKindGroup:
		if group, err := s.catalog.FindGroupByID(ctx, d.TargetID); err == nil {
			view.TargetName = group.Name
		}
		if groups, err := s.resolver.ResolveTargets(ctx, d.TargetID, d.ApplyToChildren); err == nil {
			if count, err := s.catalog.CountProductsByGroups(ctx, groups); err == nil {
				view.AffectedProducts = count
			}
		}
	}
	return view
}

func unionIDs(a, b []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(a)+len(b))
	union := make([]uuid.UUID, 0, len(a)+len(b))
	for _, set := range [][]uuid.UUID{a, b} {
		for _, id := range set {
			if seen[id] {
				continue
			}
			seen[id] = true
			union = append(union, id)
		}
	}
	return union
}

type eventPayload struct {
	DiscountID      uuid.UUID       `json:"discount_id"`
	Kind            string          `json:"type"`
	TargetID        uuid.UUID       `json:"target_id"`
	Percentage      decimal.Decimal `json:"discount_percentage"`
	InEffect        bool            `json:"in_effect"`
	ProductsChanged int             `json:"products_changed"`
}

func (s *Service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, d *models.Discount, source string, repriced RepriceResult) error {
	if s.events == nil {
		return nil
	}
	return s.events.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateDiscount,
		AggregateID:   d.ID,
		Source:        source,
		Data: eventPayload{
			DiscountID:      d.ID,
			Kind:            d.Kind.String(),
			TargetID:        d.TargetID,
			Percentage:      d.Percentage,
			InEffect:        d.InEffect,
			ProductsChanged: repriced.Updated,
		},
	})
}

func (s *Service) logMutation(ctx context.Context, d *models.Discount, msg string, repriced RepriceResult) {
	if s.logg == nil {
		return
	}
	logCtx := s.logg.WithDiscountID(ctx, d.ID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"kind":       d.Kind.String(),
		"target_id":  d.TargetID.String(),
		"percentage": d.Percentage.String(),
		"updated":    repriced.Updated,
		"unchanged":  repriced.Unchanged,
		"skipped":    len(repriced.Skipped),
	})
	s.logg.Info(logCtx, msg)
}
