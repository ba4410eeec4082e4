package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"

	"storefront-checkout/internal/domain/cart"
	"storefront-checkout/internal/domain/order"
	"storefront-checkout/internal/domain/voucher"
	"storefront-checkout/internal/infra"
	"storefront-checkout/internal/pkg/clock"
	"storefront-checkout/internal/pkg/config"
	"storefront-checkout/internal/pkg/errs"
	"storefront-checkout/internal/usecase/shared"

	"github.com/google/uuid"
)

const checkoutEndpoint = "POST /checkout"

type CheckoutRequest struct {
	UserID         uuid.UUID           `json:"user_id"`
	AddressID      uuid.UUID           `json:"address_id"`
	VoucherCode    *string             `json:"voucher_code,omitempty"`
	PaymentMethod  order.PaymentMethod `json:"payment_method"`
	IdempotencyKey *uuid.UUID          `json:"-"`
}

type CheckoutResult struct {
	Order *order.Order
	// PaymentPending means the order exists but the provider could not be
	// reached; the customer retries payment later.
	PaymentPending bool
	IsReplayed     bool
}

type CheckoutCommands interface {
	Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error)
}

type checkoutUseCaseImpl struct {
	uow      shared.UnitOfWork
	ledger   StockLedger
	vouchers VoucherValidator
	payments PaymentProvider
	shipping ShippingRateProvider
	clock    clock.Clock
	cfg      config.CheckoutConfig
	logger   *slog.Logger
}

func NewCheckoutUseCase(
	uow shared.UnitOfWork,
	ledger StockLedger,
	vouchers VoucherValidator,
	payments PaymentProvider,
	shipping ShippingRateProvider,
	clock clock.Clock,
	cfg config.Config,
	logger *slog.Logger,
) CheckoutCommands {
	return &checkoutUseCaseImpl{
		uow:      uow,
		ledger:   ledger,
		vouchers: vouchers,
		payments: payments,
		shipping: shipping,
		clock:    clock,
		cfg:      cfg.Checkout,
		logger:   logger,
	}
}

// prepared is everything gathered before stock is touched.
type prepared struct {
	snapshot     *cart.Snapshot
	address      order.Address
	shippingCost int64
}

func (c *checkoutUseCaseImpl) Checkout(ctx context.Context, req CheckoutRequest) (res *CheckoutResult, err error) {
	if _, err := order.ParsePaymentMethod(string(req.PaymentMethod)); err != nil {
		return nil, errs.Mark(err, errs.ErrDomainValidation)
	}

	if req.IdempotencyKey != nil {
		replayed, ierr := c.handleIdempotency(ctx, *req.IdempotencyKey, req.UserID, calculateRequestHash(req))
		if ierr != nil {
			return nil, ierr
		}
		if replayed != nil {
			return replayed, nil
		}
		defer func() {
			if err != nil {
				c.abandonKey(ctx, *req.IdempotencyKey, req.UserID)
			}
		}()
	}

	prep, err := c.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	checkoutID := uuid.New()
	tokens, err := c.reserveAll(ctx, checkoutID, prep.snapshot)
	if err != nil {
		return nil, err
	}

	var decision *voucher.Decision
	if req.VoucherCode != nil && *req.VoucherCode != "" {
		decision, err = c.vouchers.Validate(ctx, VoucherRequest{
			Code:     *req.VoucherCode,
			UserID:   req.UserID,
			Subtotal: prep.snapshot.Subtotal(),
			Lines:    prep.snapshot.Lines(),
		})
		if err != nil {
			c.releaseAll(ctx, tokens)
			return nil, err
		}
	}

	o, err := c.placeOrder(ctx, req, checkoutID, prep, tokens, decision)
	if err != nil {
		c.releaseAll(ctx, tokens)
		return nil, err
	}
	c.ledger.RefreshAvailability(ctx, prep.snapshot.VariantIDs()...)

	c.logger.InfoContext(ctx, "order placed",
		"order_id", o.ID(), "order_number", o.OrderNumber(), "total", o.Total(), "items", len(o.Items()))

	return &CheckoutResult{Order: o, PaymentPending: !c.initiatePayment(ctx, o)}, nil
}

func (c *checkoutUseCaseImpl) handleIdempotency(ctx context.Context, key, userID uuid.UUID, requestHash string) (*CheckoutResult, error) {
	var (
		claimed  bool
		existing *shared.IdempotencyRecord
	)
	err := c.uow.WithDB(ctx, func(ctx context.Context, tx shared.Tx) error {
		expiresAt := c.clock.Now().Add(c.cfg.IdempotencyTTL)
		var err error
		claimed, err = tx.Idempotency().TryInsert(ctx, key, userID, checkoutEndpoint, requestHash, expiresAt)
		if err != nil || claimed {
			return err
		}
		existing, err = tx.Idempotency().Get(ctx, key, userID)
		return err
	})
	if err != nil {
		return nil, errs.Mark(err, errs.ErrIdempotencyCheckFailed)
	}
	if claimed {
		return nil, nil
	}

	switch existing.Status {
	case shared.IdempotencyCompleted:
		if existing.RequestHash != requestHash {
			return nil, errs.ErrDuplicateRequest
		}
		if existing.ResultOrderID == nil {
			return nil, errs.New("completed request missing result order ID")
		}
		o, err := c.loadOrder(ctx, *existing.ResultOrderID)
		if err != nil {
			return nil, err
		}
		pending := o.Payment().ProviderTransactionID == nil && o.IsAwaitingPayment()
		return &CheckoutResult{Order: o, PaymentPending: pending, IsReplayed: true}, nil

	case shared.IdempotencyProcessing:
		if existing.RequestHash != requestHash {
			return nil, errs.ErrDuplicateRequest
		}
		return nil, errs.ErrIdempotencyInProgress

	default:
		return nil, errs.New("invalid idempotency key status")
	}
}

func (c *checkoutUseCaseImpl) abandonKey(ctx context.Context, key, userID uuid.UUID) {
	err := c.uow.WithDB(ctx, func(ctx context.Context, tx shared.Tx) error {
		return tx.Idempotency().Delete(ctx, key, userID)
	})
	if err != nil {
		c.logger.WarnContext(ctx, "failed to release idempotency key", "key", key, "error", err)
	}
}

func (c *checkoutUseCaseImpl) prepare(ctx context.Context, req CheckoutRequest) (*prepared, error) {
	var prep prepared
	err := c.uow.WithinReadOnly(ctx, func(ctx context.Context, tx shared.Tx) error {
		ct, err := tx.Carts().FindByOwner(ctx, cart.UserOwner(req.UserID))
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return errs.Mark(err, errs.ErrCartNotFound)
			}
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}

		variantIDs := make([]uuid.UUID, 0, len(ct.Items()))
		for _, it := range ct.Items() {
			variantIDs = append(variantIDs, it.VariantID())
		}
		entries, err := tx.Catalog().Entries(ctx, variantIDs, c.clock.Now())
		if err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		snap, err := cart.Reprice(ct, entries)
		if err != nil {
			return err
		}

		addr, err := tx.Catalog().Address(ctx, req.UserID, req.AddressID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return errs.Mark(err, errs.ErrAddressNotFound)
			}
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}

		prep.snapshot = snap
		prep.address = *addr
		return nil
	})
	if err != nil {
		return nil, err
	}

	cost, err := c.shipping.Quote(ctx, prep.address, prep.snapshot.Lines())
	if err != nil {
		return nil, errs.Wrap(err, "shipping quote failed")
	}
	prep.shippingCost = cost
	return &prep, nil
}

// reserveAll reserves lines in snapshot order, which is sorted by variant id,
// and gives back everything taken so far on the first failure.
func (c *checkoutUseCaseImpl) reserveAll(ctx context.Context, checkoutID uuid.UUID, snap *cart.Snapshot) ([]ReservationToken, error) {
	lines := snap.Lines()
	tokens := make([]ReservationToken, 0, len(lines))
	for _, l := range lines {
		t, err := c.ledger.Reserve(ctx, ReserveRequest{
			CheckoutID:         checkoutID,
			VariantID:          l.VariantID,
			SKU:                l.SKU,
			Quantity:           l.Quantity,
			FlashSaleProductID: l.FlashSaleProductID,
			TTL:                c.cfg.ReservationTTL,
		})
		if err != nil {
			c.releaseAll(ctx, tokens)
			return nil, err
		}
		tokens = append(tokens, *t)
	}
	return tokens, nil
}

func (c *checkoutUseCaseImpl) releaseAll(ctx context.Context, tokens []ReservationToken) {
	if err := c.ledger.Release(ctx, tokens...); err != nil {
		// the reclaimer picks these up once they expire
		c.logger.ErrorContext(ctx, "failed to release reservations", "count", len(tokens), "error", err)
	}
}

func (c *checkoutUseCaseImpl) placeOrder(
	ctx context.Context,
	req CheckoutRequest,
	checkoutID uuid.UUID,
	prep *prepared,
	tokens []ReservationToken,
	decision *voucher.Decision,
) (*order.Order, error) {
	reservationIDs := make(map[uuid.UUID]uuid.UUID, len(tokens))
	for _, t := range tokens {
		reservationIDs[t.VariantID] = t.ID
	}

	var placed *order.Order
	err := c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		now := c.clock.Now()

		o, err := order.New(order.NewParams{
			CheckoutID:     checkoutID,
			UserID:         req.UserID,
			Currency:       c.cfg.Currency,
			Snapshot:       prep.snapshot,
			ReservationIDs: reservationIDs,
			Voucher:        decision,
			ShippingCost:   prep.shippingCost,
			Address:        prep.address,
			PaymentMethod:  req.PaymentMethod,
			PaymentExpiry:  c.cfg.PaymentExpiry,
			Now:            now,
		})
		if err != nil {
			return errs.Mark(err, errs.ErrDomainValidation)
		}
		if err := tx.Orders().Create(ctx, o); err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}

		for _, t := range tokens {
			if err := c.ledger.Commit(ctx, tx, t); err != nil {
				return err
			}
		}

		if decision != nil {
			if err := c.vouchers.Redeem(ctx, tx, *decision, req.UserID, o.ID()); err != nil {
				return err
			}
		}

		ev, err := shared.NewOrderEvent(ctx, o, "", now)
		if err != nil {
			return errs.Wrap(err, "failed to build order event")
		}
		if err := tx.Outbox().Append(ctx, ev); err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}

		if err := tx.Carts().DeleteCheckedOut(ctx, prep.snapshot.CartID(), prep.snapshot.Version()); err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return errs.Mark(err, errs.ErrCartChanged)
			}
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}

		if req.IdempotencyKey != nil {
			if err := tx.Idempotency().Complete(ctx, *req.IdempotencyKey, req.UserID, o.ID()); err != nil {
				return errs.Mark(err, errs.ErrDatabaseOperationFailed)
			}
		}

		placed = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return placed, nil
}

// initiatePayment reports whether a payment session was attached.
func (c *checkoutUseCaseImpl) initiatePayment(ctx context.Context, o *order.Order) bool {
	return attachPaymentSession(ctx, c.uow, c.payments, c.logger, o)
}

func (c *checkoutUseCaseImpl) loadOrder(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	var o *order.Order
	err := c.uow.WithDB(ctx, func(ctx context.Context, tx shared.Tx) error {
		var err error
		o, err = tx.Orders().Get(ctx, id)
		return err
	})
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, errs.Mark(err, errs.ErrOrderNotFound)
		}
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	return o, nil
}

func calculateRequestHash(req CheckoutRequest) string {
	data, _ := json.Marshal(req)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
