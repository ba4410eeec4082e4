package payment

import (
	"context"
	"sync/atomic"

	"storefront-checkout/internal/domain/order"
	"storefront-checkout/internal/pkg/errs"
	"storefront-checkout/internal/usecase/commands"

	"github.com/google/uuid"
)

const sandboxRedirectBase = "https://sandbox.pay.local/checkout/"

// Sandbox approves every initiation with a deterministic transaction id.
type Sandbox struct {
	down atomic.Bool
}

func NewSandbox() *Sandbox {
	return &Sandbox{}
}

// SetDown makes subsequent calls fail as if the gateway were unreachable.
func (s *Sandbox) SetDown(down bool) {
	s.down.Store(down)
}

func (s *Sandbox) InitiatePayment(_ context.Context, orderID uuid.UUID, _ int64, _ order.PaymentMethod) (*commands.PaymentSession, error) {
	if s.down.Load() {
		return nil, errs.Mark(errs.New("sandbox gateway down"), errs.ErrPaymentProviderUnavailable)
	}
	return &commands.PaymentSession{
		TransactionID: TransactionIDFor(orderID),
		RedirectURL:   sandboxRedirectBase + orderID.String(),
	}, nil
}

func TransactionIDFor(orderID uuid.UUID) string {
	return "sbx_" + orderID.String()
}
