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

type PaymentCommands interface {
	// RetryPayment asks the provider again for an order still awaiting payment.
	RetryPayment(ctx context.Context, userID, orderID uuid.UUID) (*order.Order, error)
}

type paymentUseCaseImpl struct {
	uow      shared.UnitOfWork
	payments PaymentProvider
	clock    clock.Clock
	logger   *slog.Logger
}

func NewPaymentUseCase(uow shared.UnitOfWork, payments PaymentProvider, clock clock.Clock, logger *slog.Logger) PaymentCommands {
	return &paymentUseCaseImpl{
		uow:      uow,
		payments: payments,
		clock:    clock,
		logger:   logger,
	}
}

func (p *paymentUseCaseImpl) RetryPayment(ctx context.Context, userID, orderID uuid.UUID) (*order.Order, error) {
	var o *order.Order
	err := p.uow.WithDB(ctx, func(ctx context.Context, tx shared.Tx) error {
		var err error
		o, err = tx.Orders().Get(ctx, orderID)
		return err
	})
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, errs.Mark(err, errs.ErrOrderNotFound)
		}
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	if o.UserID() != userID {
		return nil, errs.ErrOrderNotFound
	}
	if !o.IsAwaitingPayment() || o.PaymentExpired(p.clock.Now()) {
		return nil, &order.IllegalTransitionError{OrderID: o.ID(), From: o.Status(), To: order.StatusPaid}
	}

	if !attachPaymentSession(ctx, p.uow, p.payments, p.logger, o) {
		return nil, errs.ErrPaymentProviderUnavailable
	}
	return o, nil
}

// attachPaymentSession calls the provider outside any transaction and stores
// the session. It reports false when the order is left without one.
func attachPaymentSession(ctx context.Context, uow shared.UnitOfWork, provider PaymentProvider, logger *slog.Logger, o *order.Order) bool {
	session, err := provider.InitiatePayment(ctx, o.ID(), o.Total(), o.Payment().Method)
	if err != nil {
		logger.WarnContext(ctx, "payment initiation failed, order left pending",
			"order_id", o.ID(), "method", o.Payment().Method, "error", err)
		return false
	}

	err = uow.WithDB(ctx, func(ctx context.Context, tx shared.Tx) error {
		return tx.Orders().UpdatePaymentSession(ctx, o.ID(), session.TransactionID, session.RedirectURL)
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to store payment session",
			"order_id", o.ID(), "transaction_id", session.TransactionID, "error", err)
		return false
	}

	o.AttachPaymentSession(session.TransactionID, session.RedirectURL)
	return true
}
