package bootstrap

import (
	"context"
	"log/slog"

	"storefront-checkout/internal/infra/messaging"
	"storefront-checkout/internal/pkg/config"
	"storefront-checkout/internal/usecase/commands"
	"storefront-checkout/internal/usecase/shared"

	"go.uber.org/fx"
)

var MessagingModule = fx.Module("messaging",
	fx.Provide(
		NewEventPublisher,
		NewPaymentEventQueue,
	),
)

func NewEventPublisher(lc fx.Lifecycle, cfg config.Config, logger *slog.Logger) shared.EventPublisher {
	if !cfg.Kafka.Enabled {
		logger.Info("Kafkaは無効です。注文イベントはアウトボックスに残ります")
		return messaging.NoopPublisher{}
	}
	p := messaging.NewOrderEventPublisher(cfg.Kafka)
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return p.Close()
		},
	})
	return p
}

// Without Kafka the webhook applies payment events in the request.
func NewPaymentEventQueue(lc fx.Lifecycle, cfg config.Config, orders commands.OrderCommands) commands.PaymentEventQueue {
	if !cfg.Kafka.Enabled {
		return messaging.NewDirectPaymentQueue(orders)
	}
	q := messaging.NewKafkaPaymentQueue(cfg.Kafka)
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return q.Close()
		},
	})
	return q
}
