package bootstrap

import (
	"log/slog"

	"storefront-checkout/internal/infra/payment"
	"storefront-checkout/internal/infra/shipping"
	"storefront-checkout/internal/pkg/config"
	"storefront-checkout/internal/usecase/commands"

	"go.uber.org/fx"
)

var ProviderModule = fx.Module("providers",
	fx.Provide(
		NewPaymentProvider,
		NewShippingRateProvider,
	),
)

func NewPaymentProvider(cfg config.Config, logger *slog.Logger) commands.PaymentProvider {
	if cfg.Payment.Sandbox || cfg.Payment.ProviderURL == "" {
		logger.Warn("決済サンドボックスを使用します")
		return payment.NewSandbox()
	}
	return payment.NewHTTPProvider(cfg.Payment)
}

func NewShippingRateProvider(cfg config.Config) commands.ShippingRateProvider {
	return shipping.NewFlatRate(cfg.Checkout)
}
