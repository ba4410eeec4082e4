package components

import (
	"context"
	"log/slog"

	"storefront-checkout/internal/pkg/clock"
	"storefront-checkout/internal/pkg/config"
	"storefront-checkout/internal/usecase/commands"
	"storefront-checkout/internal/usecase/shared"
	"storefront-checkout/internal/worker"

	"go.uber.org/fx"
)

var WorkerModule = fx.Module("worker",
	fx.Provide(
		NewReclaimer,
		NewOutboxRelay,
		worker.NewPaymentEventHandler,
		worker.NewRunner,
	),
	fx.Invoke(startWorkers),
)

func NewReclaimer(
	ledger commands.StockLedger,
	orders commands.OrderCommands,
	carts commands.CartCommands,
	uow shared.UnitOfWork,
	clk clock.Clock,
	cfg config.Config,
	logger *slog.Logger,
) *worker.Reclaimer {
	return worker.NewReclaimer(ledger, orders, carts, uow, clk, cfg.Worker.BatchSize, logger)
}

func NewOutboxRelay(uow shared.UnitOfWork, publisher shared.EventPublisher, clk clock.Clock, cfg config.Config, logger *slog.Logger) *worker.OutboxRelay {
	return worker.NewOutboxRelay(uow, publisher, clk, cfg.Worker.BatchSize, logger)
}

func startWorkers(lc fx.Lifecycle, cfg config.Config, runner *worker.Runner, logger *slog.Logger) {
	if !cfg.Worker.Enabled {
		logger.Info("ワーカーは無効です")
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			runner.Start()
			return nil
		},
		OnStop: func(_ context.Context) error {
			return runner.Stop()
		},
	})
}
