package commands

import (
	"context"
	"log/slog"

	"storefront-checkout/internal/domain/order"
	"storefront-checkout/internal/infra"
	"storefront-checkout/internal/pkg/clock"
	"storefront-checkout/internal/pkg/errs"
	"storefront-checkout/internal/usecase/shared"

	"github.com/google/uuid"
)

type TransitionRequest struct {
	OrderID uuid.UUID
	To      order.Status
	// OwnerID restricts the transition to the customer's own order when set.
	OwnerID        *uuid.UUID
	Courier        string
	TrackingNumber string
	// TransactionID must match the stored provider reference when both are known.
	TransactionID string
}

type PaymentOutcome string

const (
	PaymentOutcomeSuccess PaymentOutcome = "success"
	PaymentOutcomeFailed  PaymentOutcome = "failed"
	PaymentOutcomeExpired PaymentOutcome = "expired"
)

type PaymentEvent struct {
	OrderID       uuid.UUID      `json:"order_id"`
	TransactionID string         `json:"transaction_id"`
	Outcome       PaymentOutcome `json:"status"`
}

type OrderCommands interface {
	Transition(ctx context.Context, req TransitionRequest) (*order.Order, error)
	Cancel(ctx context.Context, userID, orderID uuid.UUID) (*order.Order, error)
	ApplyPaymentEvent(ctx context.Context, ev PaymentEvent) (*order.Order, error)
	// ExpireUnpaid fails orders whose payment window has passed and reports
	// how many were moved.
	ExpireUnpaid(ctx context.Context, limit int) (int, error)
}

type orderUseCaseImpl struct {
	uow      shared.UnitOfWork
	ledger   StockLedger
	vouchers VoucherValidator
	clock    clock.Clock
	logger   *slog.Logger
}

func NewOrderUseCase(
	uow shared.UnitOfWork,
	ledger StockLedger,
	vouchers VoucherValidator,
	clock clock.Clock,
	logger *slog.Logger,
) OrderCommands {
	return &orderUseCaseImpl{
		uow:      uow,
		ledger:   ledger,
		vouchers: vouchers,
		clock:    clock,
		logger:   logger,
	}
}

func (u *orderUseCaseImpl) Transition(ctx context.Context, req TransitionRequest) (*order.Order, error) {
	var (
		updated  *order.Order
		restored []uuid.UUID
	)
	err := u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		restored = restored[:0]

		o, err := tx.Orders().GetForUpdate(ctx, req.OrderID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return errs.Mark(err, errs.ErrOrderNotFound)
			}
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		if req.OwnerID != nil && o.UserID() != *req.OwnerID {
			return errs.ErrOrderNotFound
		}
		if req.TransactionID != "" {
			if ref := o.Payment().ProviderTransactionID; ref != nil && *ref != req.TransactionID {
				return errs.Mark(errs.New("payment transaction does not match order"), errs.ErrDomainValidation)
			}
		}

		now := u.clock.Now()
		eff, err := o.Transition(req.To, now)
		if err != nil {
			if errs.Is(err, order.ErrUnknownStatus) {
				return errs.Mark(err, errs.ErrDomainValidation)
			}
			return err
		}
		if eff.Noop() {
			updated = o
			return nil
		}
		o.SetTracking(req.Courier, req.TrackingNumber)

		if eff.RestoreStock {
			for _, it := range o.Items() {
				if err := u.ledger.Restore(ctx, tx, it.VariantID, it.Quantity, it.FlashSaleProductID); err != nil {
					return err
				}
				restored = append(restored, it.VariantID)
			}
		}
		if eff.ReverseVoucher && o.HasVoucher() {
			if err := u.vouchers.Reverse(ctx, tx, *o.VoucherID(), o.ID()); err != nil {
				return err
			}
		}

		if err := tx.Orders().UpdateState(ctx, o); err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}

		ev, err := shared.NewOrderEvent(ctx, o, eff.From, now)
		if err != nil {
			return errs.Wrap(err, "failed to build order event")
		}
		if err := tx.Outbox().Append(ctx, ev); err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}

		updated = o
		return nil
	})
	if err != nil {
		var ite *order.IllegalTransitionError
		if errs.As(err, &ite) {
			u.logger.ErrorContext(ctx, "illegal order transition rejected",
				"order_id", ite.OrderID, "from", ite.From, "to", ite.To)
		}
		return nil, err
	}

	if len(restored) > 0 {
		u.ledger.RefreshAvailability(ctx, restored...)
	}
	return updated, nil
}

// Cancel is the customer-facing cancellation of their own order.
func (u *orderUseCaseImpl) Cancel(ctx context.Context, userID, orderID uuid.UUID) (*order.Order, error) {
	return u.Transition(ctx, TransitionRequest{
		OrderID: orderID,
		To:      order.StatusCancelled,
		OwnerID: &userID,
	})
}

func (u *orderUseCaseImpl) ApplyPaymentEvent(ctx context.Context, ev PaymentEvent) (*order.Order, error) {
	var to order.Status
	switch ev.Outcome {
	case PaymentOutcomeSuccess:
		to = order.StatusPaid
	case PaymentOutcomeFailed, PaymentOutcomeExpired:
		to = order.StatusFailed
	default:
		return nil, errs.Mark(errs.New("unknown payment outcome: "+string(ev.Outcome)), errs.ErrDomainValidation)
	}

	return u.Transition(ctx, TransitionRequest{
		OrderID:       ev.OrderID,
		To:            to,
		TransactionID: ev.TransactionID,
	})
}

func (u *orderUseCaseImpl) ExpireUnpaid(ctx context.Context, limit int) (int, error) {
	var ids []uuid.UUID
	err := u.uow.WithDB(ctx, func(ctx context.Context, tx shared.Tx) error {
		var err error
		ids, err = tx.Orders().ListExpiredPending(ctx, u.clock.Now(), limit)
		return err
	})
	if err != nil {
		return 0, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}

	expired := 0
	for _, id := range ids {
		if _, err := u.Transition(ctx, TransitionRequest{OrderID: id, To: order.StatusFailed}); err != nil {
			// paid in the meantime, or another sweeper got there first
			if errs.Is(err, errs.ErrIllegalStateTransition) {
				continue
			}
			return expired, err
		}
		expired++
	}
	return expired, nil
}
