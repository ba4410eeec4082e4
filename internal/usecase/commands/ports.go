package commands

import (
	"context"

	"storefront-checkout/internal/domain/cart"
	"storefront-checkout/internal/domain/order"

	"github.com/google/uuid"
)

type PaymentSession struct {
	TransactionID string
	RedirectURL   string
}

// PaymentProvider is the external gateway. Implementations must be safe to
// call again for the same order.
type PaymentProvider interface {
	InitiatePayment(ctx context.Context, orderID uuid.UUID, amount int64, method order.PaymentMethod) (*PaymentSession, error)
}

type ShippingRateProvider interface {
	Quote(ctx context.Context, address order.Address, lines []cart.Line) (int64, error)
}

// PaymentEventQueue hands provider notifications to whatever applies them:
// the Kafka topic in production, the order commands directly otherwise.
type PaymentEventQueue interface {
	Enqueue(ctx context.Context, ev PaymentEvent) error
}
