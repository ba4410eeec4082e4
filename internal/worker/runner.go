package worker

import (
	"context"
	"log/slog"

	"storefront-checkout/internal/infra/messaging"
	"storefront-checkout/internal/pkg/config"

	"golang.org/x/sync/errgroup"
)

// Runner owns the background loops of one process.
type Runner struct {
	jobs      []Job
	consumers []*messaging.Consumer
	handler   messaging.Handler
	logger    *slog.Logger

	cancel context.CancelFunc
	group  *errgroup.Group
}

func NewRunner(
	cfg config.Config,
	reclaimer *Reclaimer,
	relay *OutboxRelay,
	payments *PaymentEventHandler,
	logger *slog.Logger,
) *Runner {
	r := &Runner{logger: logger, handler: payments.Handle}

	r.jobs = []Job{
		{Name: "reservation-reclaim", Interval: cfg.Worker.ReclaimInterval, Run: reclaimer.ReclaimReservations},
		{Name: "payment-expiry", Interval: cfg.Worker.ReclaimInterval, Run: reclaimer.ExpireUnpaidOrders},
		{Name: "guest-cart-purge", Interval: cfg.Worker.ReclaimInterval, Run: reclaimer.PurgeGuestCarts},
		{Name: "idempotency-purge", Interval: cfg.Worker.ReclaimInterval, Run: reclaimer.PurgeIdempotencyKeys},
	}

	if cfg.Kafka.Enabled {
		r.jobs = append(r.jobs, Job{Name: "outbox-relay", Interval: cfg.Worker.OutboxInterval, Run: relay.Drain})
		for i := 0; i < cfg.Worker.PaymentConsumerSize; i++ {
			r.consumers = append(r.consumers, messaging.NewConsumer(
				cfg.Kafka.Brokers, cfg.Kafka.PaymentGroupID, cfg.Kafka.PaymentEventsTopic, logger,
			))
		}
	}
	return r
}

func (r *Runner) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)
	r.cancel, r.group = cancel, g

	for _, job := range r.jobs {
		g.Go(func() error {
			return runLoop(ctx, r.logger, job)
		})
	}
	for _, c := range r.consumers {
		g.Go(func() error {
			return c.Run(ctx, r.handler)
		})
	}
	r.logger.Info("workers started", "jobs", len(r.jobs), "payment_consumers", len(r.consumers))
}

// Stop cancels every loop and waits for in-flight work to return.
func (r *Runner) Stop() error {
	if r.cancel == nil {
		return nil
	}
	r.cancel()
	err := r.group.Wait()
	r.logger.Info("workers stopped")
	return err
}
