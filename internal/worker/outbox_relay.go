package worker

import (
	"context"
	"log/slog"

	"storefront-checkout/internal/pkg/clock"
	"storefront-checkout/internal/pkg/errs"
	"storefront-checkout/internal/usecase/shared"

	"github.com/google/uuid"
)

// OutboxRelay moves order_events rows to the bus. Rows stay locked while a
// batch is in flight so concurrent relays pick disjoint batches.
type OutboxRelay struct {
	uow       shared.UnitOfWork
	publisher shared.EventPublisher
	clock     clock.Clock
	batch     int
	logger    *slog.Logger
}

func NewOutboxRelay(uow shared.UnitOfWork, publisher shared.EventPublisher, clock clock.Clock, batch int, logger *slog.Logger) *OutboxRelay {
	if batch <= 0 {
		batch = 100
	}
	return &OutboxRelay{
		uow:       uow,
		publisher: publisher,
		clock:     clock,
		batch:     batch,
		logger:    logger,
	}
}

// RelayOnce publishes one batch and reports how many events went out.
func (r *OutboxRelay) RelayOnce(ctx context.Context) (int, error) {
	var (
		published int
		pubErr    error
	)
	err := r.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		published, pubErr = 0, nil

		events, err := tx.Outbox().ClaimBatch(ctx, r.batch)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}

		ids := make([]uuid.UUID, 0, len(events))
		for _, ev := range events {
			ids = append(ids, ev.ID)
		}

		if pubErr = r.publisher.Publish(ctx, events); pubErr != nil {
			// keep the attempt count even though nothing was delivered
			return tx.Outbox().MarkFailed(ctx, ids)
		}
		if err := tx.Outbox().MarkPublished(ctx, ids, r.clock.Now()); err != nil {
			return err
		}
		published = len(events)
		return nil
	})
	if err != nil {
		return 0, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	if pubErr != nil {
		return 0, errs.Wrap(pubErr, "publish order events")
	}
	return published, nil
}

// Drain relays until the backlog is shorter than a batch.
func (r *OutboxRelay) Drain(ctx context.Context) error {
	for ctx.Err() == nil {
		n, err := r.RelayOnce(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			r.logger.Debug("order events published", "count", n)
		}
		if n < r.batch {
			return nil
		}
	}
	return nil
}
