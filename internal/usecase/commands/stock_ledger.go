package commands

import (
	"context"
	"log/slog"
	"time"

	"storefront-checkout/internal/domain/stock"
	"storefront-checkout/internal/infra"
	"storefront-checkout/internal/pkg/clock"
	"storefront-checkout/internal/pkg/errs"
	"storefront-checkout/internal/usecase/shared"

	"github.com/google/uuid"
)

type ReserveRequest struct {
	CheckoutID         uuid.UUID
	VariantID          uuid.UUID
	SKU                string
	Quantity           int
	FlashSaleProductID *uuid.UUID
	TTL                time.Duration
}

// ReservationToken is what a caller holds between Reserve and Commit/Release.
type ReservationToken struct {
	ID                 uuid.UUID
	VariantID          uuid.UUID
	Quantity           int
	FlashSaleProductID *uuid.UUID
	ExpiresAt          time.Time
}

// StockLedger is the only writer of product_stock.
type StockLedger interface {
	Reserve(ctx context.Context, req ReserveRequest) (*ReservationToken, error)
	// Commit runs inside the caller's transaction.
	Commit(ctx context.Context, tx shared.Tx, token ReservationToken) error
	Release(ctx context.Context, tokens ...ReservationToken) error
	// Restore undoes a committed deduction inside the caller's transaction.
	Restore(ctx context.Context, tx shared.Tx, variantID uuid.UUID, qty int, flashSaleProductID *uuid.UUID) error
	ReleaseExpired(ctx context.Context, limit int) (int, error)
	RefreshAvailability(ctx context.Context, variantIDs ...uuid.UUID)
}

type stockLedgerImpl struct {
	uow    shared.UnitOfWork
	flash  FlashSaleAllocator
	cache  shared.AvailabilityCache
	clock  clock.Clock
	logger *slog.Logger
}

func NewStockLedger(
	uow shared.UnitOfWork,
	flash FlashSaleAllocator,
	cache shared.AvailabilityCache,
	clock clock.Clock,
	logger *slog.Logger,
) StockLedger {
	return &stockLedgerImpl{
		uow:    uow,
		flash:  flash,
		cache:  cache,
		clock:  clock,
		logger: logger,
	}
}

func (l *stockLedgerImpl) Reserve(ctx context.Context, req ReserveRequest) (*ReservationToken, error) {
	if err := stock.ValidateQuantity(req.Quantity); err != nil {
		return nil, errs.Mark(err, errs.ErrDomainValidation)
	}

	var (
		token *ReservationToken
		level *stock.Record
	)
	err := l.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		now := l.clock.Now()

		rec, ok, err := tx.Stock().ReserveUnits(ctx, req.VariantID, req.Quantity)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				// a variant without a stock row has nothing to sell
				return &stock.InsufficientStockError{VariantID: req.VariantID, SKU: req.SKU, Requested: req.Quantity}
			}
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		if !ok {
			return &stock.InsufficientStockError{
				VariantID: req.VariantID,
				SKU:       req.SKU,
				Requested: req.Quantity,
				Available: rec.Available(),
			}
		}

		if req.FlashSaleProductID != nil {
			if err := l.flash.Allocate(ctx, tx, *req.FlashSaleProductID, req.Quantity); err != nil {
				return err
			}
		}

		res, err := stock.NewReservation(req.CheckoutID, req.VariantID, req.Quantity, req.FlashSaleProductID, now, req.TTL)
		if err != nil {
			return errs.Mark(err, errs.ErrDomainValidation)
		}
		if err := tx.Stock().InsertReservation(ctx, res, now); err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}

		level = rec
		token = &ReservationToken{
			ID:                 res.ID(),
			VariantID:          res.VariantID(),
			Quantity:           res.Quantity(),
			FlashSaleProductID: res.FlashSaleProductID(),
			ExpiresAt:          res.ExpiresAt(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.setAvailable(ctx, level)
	return token, nil
}

func (l *stockLedgerImpl) Commit(ctx context.Context, tx shared.Tx, token ReservationToken) error {
	res, err := tx.Stock().GetReservationForUpdate(ctx, token.ID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return errs.Mark(err, errs.ErrReservationExpired)
		}
		return errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	// a held reservation past its expiry is still ours until the reclaimer
	// releases it, so only the status decides
	if err := res.Commit(); err != nil {
		return errs.Mark(err, errs.ErrReservationExpired)
	}

	if _, err := tx.Stock().CommitUnits(ctx, res.VariantID(), res.Quantity()); err != nil {
		return errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	if err := tx.Stock().UpdateReservationStatus(ctx, res.ID(), res.Status(), l.clock.Now()); err != nil {
		return errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	return nil
}

func (l *stockLedgerImpl) Release(ctx context.Context, tokens ...ReservationToken) error {
	if len(tokens) == 0 {
		return nil
	}

	var levels []*stock.Record
	err := l.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		levels = levels[:0]
		for _, t := range tokens {
			rec, err := l.release(ctx, tx, t.ID)
			if err != nil {
				return err
			}
			if rec != nil {
				levels = append(levels, rec)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, rec := range levels {
		l.setAvailable(ctx, rec)
	}
	return nil
}

// release returns a nil record when the reservation was no longer held.
func (l *stockLedgerImpl) release(ctx context.Context, tx shared.Tx, id uuid.UUID) (*stock.Record, error) {
	res, err := tx.Stock().GetReservationForUpdate(ctx, id)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, nil
		}
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	if err := res.Release(); err != nil {
		return nil, nil
	}

	rec, err := tx.Stock().ReleaseUnits(ctx, res.VariantID(), res.Quantity())
	if err != nil {
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	if res.FlashSaleProductID() != nil {
		if err := l.flash.Deallocate(ctx, tx, *res.FlashSaleProductID(), res.Quantity()); err != nil {
			return nil, err
		}
	}
	if err := tx.Stock().UpdateReservationStatus(ctx, res.ID(), res.Status(), l.clock.Now()); err != nil {
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	return rec, nil
}

func (l *stockLedgerImpl) Restore(ctx context.Context, tx shared.Tx, variantID uuid.UUID, qty int, flashSaleProductID *uuid.UUID) error {
	if _, err := tx.Stock().RestoreUnits(ctx, variantID, qty); err != nil {
		return errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	if flashSaleProductID != nil {
		return l.flash.Deallocate(ctx, tx, *flashSaleProductID, qty)
	}
	return nil
}

// ReleaseExpired sweeps one batch of stale holds and reports how many were
// released. Several replicas may run it at once.
func (l *stockLedgerImpl) ReleaseExpired(ctx context.Context, limit int) (int, error) {
	var levels []*stock.Record
	err := l.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		levels = levels[:0]
		expired, err := tx.Stock().ListExpiredHeld(ctx, l.clock.Now(), limit)
		if err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		for _, res := range expired {
			rec, err := l.release(ctx, tx, res.ID())
			if err != nil {
				return err
			}
			if rec != nil {
				levels = append(levels, rec)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, rec := range levels {
		l.setAvailable(ctx, rec)
	}
	return len(levels), nil
}

// RefreshAvailability re-reads stock levels after a caller-owned transaction
// (commit or restore) has finished.
func (l *stockLedgerImpl) RefreshAvailability(ctx context.Context, variantIDs ...uuid.UUID) {
	for _, id := range variantIDs {
		var rec *stock.Record
		err := l.uow.WithDB(ctx, func(ctx context.Context, tx shared.Tx) error {
			var err error
			rec, err = tx.Stock().Get(ctx, id)
			return err
		})
		if err != nil {
			l.logger.WarnContext(ctx, "availability refresh skipped", "variant_id", id, "error", err)
			continue
		}
		l.setAvailable(ctx, rec)
	}
}

func (l *stockLedgerImpl) setAvailable(ctx context.Context, rec *stock.Record) {
	if rec == nil {
		return
	}
	if err := l.cache.SetAvailable(ctx, rec.VariantID(), rec.Available()); err != nil {
		l.logger.WarnContext(ctx, "availability cache write failed",
			"variant_id", rec.VariantID(), "available", rec.Available(), "error", err)
	}
}
