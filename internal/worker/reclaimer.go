package worker

import (
	"context"
	"log/slog"

	"storefront-checkout/internal/pkg/clock"
	"storefront-checkout/internal/pkg/errs"
	"storefront-checkout/internal/usecase/commands"
	"storefront-checkout/internal/usecase/shared"
)

// Reclaimer cleans up what abandoned checkouts left behind. Every pass is
// idempotent and safe to run on several replicas at once.
type Reclaimer struct {
	ledger commands.StockLedger
	orders commands.OrderCommands
	carts  commands.CartCommands
	uow    shared.UnitOfWork
	clock  clock.Clock
	batch  int
	logger *slog.Logger
}

func NewReclaimer(
	ledger commands.StockLedger,
	orders commands.OrderCommands,
	carts commands.CartCommands,
	uow shared.UnitOfWork,
	clock clock.Clock,
	batch int,
	logger *slog.Logger,
) *Reclaimer {
	if batch <= 0 {
		batch = 100
	}
	return &Reclaimer{
		ledger: ledger,
		orders: orders,
		carts:  carts,
		uow:    uow,
		clock:  clock,
		batch:  batch,
		logger: logger,
	}
}

// ReclaimReservations releases held reservations past their expiry, batch by
// batch until a short batch says the backlog is drained.
func (r *Reclaimer) ReclaimReservations(ctx context.Context) error {
	total := 0
	for ctx.Err() == nil {
		n, err := r.ledger.ReleaseExpired(ctx, r.batch)
		if err != nil {
			return err
		}
		total += n
		if n < r.batch {
			break
		}
	}
	if total > 0 {
		r.logger.Info("expired reservations released", "count", total)
	}
	return nil
}

func (r *Reclaimer) ExpireUnpaidOrders(ctx context.Context) error {
	n, err := r.orders.ExpireUnpaid(ctx, r.batch)
	if err != nil {
		return err
	}
	if n > 0 {
		r.logger.Info("unpaid orders expired", "count", n)
	}
	return nil
}

func (r *Reclaimer) PurgeGuestCarts(ctx context.Context) error {
	n, err := r.carts.PurgeExpired(ctx, r.batch)
	if err != nil {
		return err
	}
	if n > 0 {
		r.logger.Info("expired guest carts purged", "count", n)
	}
	return nil
}

func (r *Reclaimer) PurgeIdempotencyKeys(ctx context.Context) error {
	var n int64
	err := r.uow.WithDB(ctx, func(ctx context.Context, tx shared.Tx) error {
		var err error
		n, err = tx.Idempotency().DeleteExpired(ctx, r.clock.Now())
		return err
	})
	if err != nil {
		return errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	if n > 0 {
		r.logger.Debug("expired idempotency keys purged", "count", n)
	}
	return nil
}

// RunOnce runs every sweep in order. Handy for tests and manual operation.
func (r *Reclaimer) RunOnce(ctx context.Context) error {
	for _, fn := range []func(context.Context) error{
		r.ReclaimReservations,
		r.ExpireUnpaidOrders,
		r.PurgeGuestCarts,
		r.PurgeIdempotencyKeys,
	} {
		if err := fn(ctx); err != nil {
			return err
		}
	}
	return nil
}
