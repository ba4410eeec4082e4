package queries

import (
	"context"
	"log/slog"

	"storefront-checkout/internal/infra"
	"storefront-checkout/internal/pkg/errs"
	"storefront-checkout/internal/usecase/shared"

	"github.com/google/uuid"
)

type AvailabilityQueries interface {
	Get(ctx context.Context, variantID uuid.UUID) (*AvailabilityView, error)
}

type availabilityQueriesImpl struct {
	uow    shared.UnitOfWork
	cache  shared.AvailabilityCache
	logger *slog.Logger
}

func NewAvailabilityQueries(uow shared.UnitOfWork, cache shared.AvailabilityCache, logger *slog.Logger) AvailabilityQueries {
	return &availabilityQueriesImpl{uow: uow, cache: cache, logger: logger}
}

// Get serves from the cache when it can. The number is advisory; checkout
// always re-checks against product_stock.
func (q *availabilityQueriesImpl) Get(ctx context.Context, variantID uuid.UUID) (*AvailabilityView, error) {
	available, found, err := q.cache.GetAvailable(ctx, variantID)
	if err != nil {
		q.logger.WarnContext(ctx, "availability cache read failed", "variant_id", variantID, "error", err)
	}
	if err == nil && found {
		return newAvailability(variantID, available), nil
	}

	err = q.uow.WithDB(ctx, func(ctx context.Context, tx shared.Tx) error {
		rec, err := tx.Stock().Get(ctx, variantID)
		if err != nil {
			return err
		}
		available = rec.Available()
		return nil
	})
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, errs.Mark(err, errs.ErrItemUnavailable)
		}
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}

	if err := q.cache.SetAvailable(ctx, variantID, available); err != nil {
		q.logger.WarnContext(ctx, "availability cache write failed", "variant_id", variantID, "error", err)
	}
	return newAvailability(variantID, available), nil
}

func newAvailability(variantID uuid.UUID, available int) *AvailabilityView {
	return &AvailabilityView{VariantID: variantID, Available: available, InStock: available > 0}
}
