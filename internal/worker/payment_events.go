package worker

import (
	"context"
	"encoding/json"
	"log/slog"

	"storefront-checkout/internal/infra/messaging"
	"storefront-checkout/internal/pkg/errs"
	"storefront-checkout/internal/usecase/commands"
	"storefront-checkout/internal/usecase/shared"

	"github.com/segmentio/kafka-go"
)

const dedupScopePaymentEvent = "payment-event"

// PaymentEventHandler applies queued provider notifications to orders.
type PaymentEventHandler struct {
	orders commands.OrderCommands
	dedup  shared.Deduper
	logger *slog.Logger
}

func NewPaymentEventHandler(orders commands.OrderCommands, dedup shared.Deduper, logger *slog.Logger) *PaymentEventHandler {
	return &PaymentEventHandler{orders: orders, dedup: dedup, logger: logger}
}

// Handle returns nil for messages that can never succeed so the consumer
// commits past them instead of retrying forever.
func (h *PaymentEventHandler) Handle(ctx context.Context, m kafka.Message) error {
	var env messaging.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		h.logger.ErrorContext(ctx, "malformed payment envelope dropped", "offset", m.Offset, "error", err)
		return nil
	}
	if env.EventType != messaging.EventPaymentNotified {
		h.logger.DebugContext(ctx, "ignoring event", "event_type", env.EventType)
		return nil
	}

	var ev commands.PaymentEvent
	if err := json.Unmarshal(env.Payload, &ev); err != nil {
		h.logger.ErrorContext(ctx, "malformed payment event dropped", "event_id", env.EventID, "error", err)
		return nil
	}

	first, err := h.dedup.FirstSeen(ctx, dedupScopePaymentEvent, env.EventID)
	if err != nil {
		// dedup is an optimization; transitions are idempotent anyway
		h.logger.WarnContext(ctx, "dedup lookup failed", "event_id", env.EventID, "error", err)
		first = true
	}
	if !first {
		return nil
	}

	_, err = h.orders.ApplyPaymentEvent(ctx, ev)
	switch {
	case err == nil:
		return nil
	case errs.Is(err, errs.ErrOrderNotFound),
		errs.Is(err, errs.ErrIllegalStateTransition),
		errs.Is(err, errs.ErrDomainValidation):
		h.logger.WarnContext(ctx, "payment event rejected",
			"event_id", env.EventID, "order_id", ev.OrderID, "outcome", ev.Outcome, "error", err)
		return nil
	default:
		if ferr := h.dedup.Forget(ctx, dedupScopePaymentEvent, env.EventID); ferr != nil {
			h.logger.WarnContext(ctx, "dedup forget failed", "event_id", env.EventID, "error", ferr)
		}
		return err
	}
}
