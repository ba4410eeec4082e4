package shared

import (
	"context"
	"encoding/json"
	"time"

	"storefront-checkout/internal/domain/order"
	"storefront-checkout/internal/pkg/reqctx"

	"github.com/google/uuid"
)

const OrderEventVersion = 1

const (
	EventOrderCreated   = "order.created"
	EventOrderPaid      = "order.paid"
	EventOrderFailed    = "order.failed"
	EventOrderCancelled = "order.cancelled"
	EventOrderRefunded  = "order.refunded"
	EventOrderProcessed = "order.processing"
	EventOrderShipped   = "order.shipped"
	EventOrderDelivered = "order.delivered"
)

var eventByStatus = map[order.Status]string{
	order.StatusPendingPayment: EventOrderCreated,
	order.StatusPaid:           EventOrderPaid,
	order.StatusFailed:         EventOrderFailed,
	order.StatusCancelled:      EventOrderCancelled,
	order.StatusRefunded:       EventOrderRefunded,
	order.StatusProcessing:     EventOrderProcessed,
	order.StatusShipped:        EventOrderShipped,
	order.StatusDelivered:      EventOrderDelivered,
}

type OrderEventItem struct {
	VariantID uuid.UUID `json:"variant_id"`
	SKU       string    `json:"sku"`
	Quantity  int       `json:"quantity"`
	UnitPrice int64     `json:"unit_price"`
}

type OrderEventPayload struct {
	OrderID        uuid.UUID        `json:"order_id"`
	OrderNumber    string           `json:"order_number"`
	UserID         uuid.UUID        `json:"user_id"`
	Status         string           `json:"status"`
	PreviousStatus string           `json:"previous_status,omitempty"`
	Currency       string           `json:"currency"`
	Subtotal       int64            `json:"subtotal"`
	Discount       int64            `json:"discount"`
	Shipping       int64            `json:"shipping"`
	Total          int64            `json:"total"`
	VoucherCode    *string          `json:"voucher_code,omitempty"`
	Items          []OrderEventItem `json:"items,omitempty"`
}

// NewOrderEvent builds the outbox row for the order's current status. from is
// empty for the creation event.
func NewOrderEvent(ctx context.Context, o *order.Order, from order.Status, at time.Time) (OutboxEvent, error) {
	payload := OrderEventPayload{
		OrderID:        o.ID(),
		OrderNumber:    o.OrderNumber(),
		UserID:         o.UserID(),
		Status:         o.Status().String(),
		PreviousStatus: from.String(),
		Currency:       o.Currency(),
		Subtotal:       o.Subtotal(),
		Discount:       o.Discount(),
		Shipping:       o.ShippingAmount(),
		Total:          o.Total(),
		VoucherCode:    o.VoucherCode(),
	}
	if from == "" {
		for _, it := range o.Items() {
			payload.Items = append(payload.Items, OrderEventItem{
				VariantID: it.VariantID,
				SKU:       it.SKU,
				Quantity:  it.Quantity,
				UnitPrice: it.UnitPrice,
			})
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return OutboxEvent{}, err
	}

	ev := OutboxEvent{
		ID:           uuid.New(),
		AggregateID:  o.ID(),
		EventType:    eventByStatus[o.Status()],
		EventVersion: OrderEventVersion,
		Payload:      body,
		OccurredAt:   at,
	}
	if id := reqctx.RequestID(ctx); id != "" {
		ev.CorrelationID = &id
	}
	return ev, nil
}
