package shipping

import (
	"context"

	"storefront-checkout/internal/domain/cart"
	"storefront-checkout/internal/domain/order"
	"storefront-checkout/internal/pkg/config"
)

// FlatRate charges one configured amount per order regardless of destination.
type FlatRate struct {
	amount int64
}

func NewFlatRate(cfg config.CheckoutConfig) *FlatRate {
	return &FlatRate{amount: cfg.FlatShippingRate}
}

func (f *FlatRate) Quote(_ context.Context, _ order.Address, lines []cart.Line) (int64, error) {
	if len(lines) == 0 {
		return 0, nil
	}
	return f.amount, nil
}
