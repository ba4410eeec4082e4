package request

import (
	"storefront-checkout/internal/usecase/commands"

	"github.com/google/uuid"
)

type ShipOrderRequest struct {
	Courier        string `json:"courier" binding:"required,max=50"`
	TrackingNumber string `json:"tracking_number" binding:"required,max=100"`
}

// PaymentWebhookRequest is the provider's notification body.
type PaymentWebhookRequest struct {
	OrderID       uuid.UUID `json:"order_id" binding:"required"`
	TransactionID string    `json:"transaction_id" binding:"required,max=100"`
	Status        string    `json:"status" binding:"required,oneof=success failed expired"`
}

func (r PaymentWebhookRequest) ToEvent() commands.PaymentEvent {
	return commands.PaymentEvent{
		OrderID:       r.OrderID,
		TransactionID: r.TransactionID,
		Outcome:       commands.PaymentOutcome(r.Status),
	}
}
