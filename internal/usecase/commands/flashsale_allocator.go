package commands

import (
	"context"

	"storefront-checkout/internal/domain/flashsale"
	"storefront-checkout/internal/infra"
	"storefront-checkout/internal/pkg/clock"
	"storefront-checkout/internal/pkg/errs"
	"storefront-checkout/internal/usecase/shared"

	"github.com/google/uuid"
)

// FlashSaleAllocator guards the per-product flash-sale cap. It only runs
// inside a transaction that also holds the matching stock reservation.
type FlashSaleAllocator interface {
	Allocate(ctx context.Context, tx shared.Tx, flashSaleProductID uuid.UUID, qty int) error
	Deallocate(ctx context.Context, tx shared.Tx, flashSaleProductID uuid.UUID, qty int) error
}

type flashSaleAllocatorImpl struct {
	clock clock.Clock
}

func NewFlashSaleAllocator(clock clock.Clock) FlashSaleAllocator {
	return &flashSaleAllocatorImpl{clock: clock}
}

func (a *flashSaleAllocatorImpl) Allocate(ctx context.Context, tx shared.Tx, id uuid.UUID, qty int) error {
	now := a.clock.Now()

	ok, err := tx.FlashSales().Allocate(ctx, id, qty, now)
	if err != nil {
		return errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	if ok {
		return nil
	}

	// the guard rejected the update; load the row only to explain why
	p, err := tx.FlashSales().GetProduct(ctx, id)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return &flashsale.SoldOutError{FlashSaleProductID: id, Requested: qty}
		}
		return errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	if err := p.CanAllocate(qty, now); err != nil {
		return err
	}
	return &flashsale.SoldOutError{
		FlashSaleProductID: id,
		VariantID:          p.VariantID(),
		Requested:          qty,
		Remaining:          max(p.Remaining(), 0),
	}
}

func (a *flashSaleAllocatorImpl) Deallocate(ctx context.Context, tx shared.Tx, id uuid.UUID, qty int) error {
	if err := tx.FlashSales().Deallocate(ctx, id, qty); err != nil {
		return errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	return nil
}
