//go:build unit

package commands_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront-checkout/internal/domain/cart"
	"storefront-checkout/internal/domain/order"
	"storefront-checkout/internal/domain/stock"
	"storefront-checkout/internal/domain/voucher"
	"storefront-checkout/internal/infra"
	"storefront-checkout/internal/pkg/clock"
	"storefront-checkout/internal/pkg/config"
	"storefront-checkout/internal/pkg/errs"
	"storefront-checkout/internal/pkg/ptr"
	"storefront-checkout/internal/usecase/commands"
	"storefront-checkout/internal/usecase/shared"
	"storefront-checkout/tests/common/uowtest"
	commandsmock "storefront-checkout/tests/mock/commands"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type CheckoutTestSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	m        *uowtest.Mocks
	ledger   *commandsmock.MockStockLedger
	vouchers *commandsmock.MockVoucherValidator
	payments *commandsmock.MockPaymentProvider
	shipping *commandsmock.MockShippingRateProvider
	useCase  commands.CheckoutCommands

	userID    uuid.UUID
	addressID uuid.UUID
	table     uuid.UUID
	lamp      uuid.UUID
	cart      *cart.Cart
}

func TestCheckoutSuite(t *testing.T) {
	suite.Run(t, new(CheckoutTestSuite))
}

func (s *CheckoutTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.m = uowtest.New(s.ctrl)
	s.ledger = commandsmock.NewMockStockLedger(s.ctrl)
	s.vouchers = commandsmock.NewMockVoucherValidator(s.ctrl)
	s.payments = commandsmock.NewMockPaymentProvider(s.ctrl)
	s.shipping = commandsmock.NewMockShippingRateProvider(s.ctrl)
	s.useCase = commands.NewCheckoutUseCase(s.m.UoW, s.ledger, s.vouchers, s.payments, s.shipping,
		clock.NewMockClock(testNow), config.NewTestConfig(), discardLogger())

	s.userID, s.addressID = uuid.New(), uuid.New()
	s.table, s.lamp = uuid.New(), uuid.New()

	c, err := cart.NewCart(cart.UserOwner(s.userID), testNow, time.Hour)
	s.Require().NoError(err)
	_, err = c.AddItem(s.table, 1, 3_000_000)
	s.Require().NoError(err)
	_, err = c.AddItem(s.lamp, 2, 450_000)
	s.Require().NoError(err)
	s.cart = c
}

func (s *CheckoutTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *CheckoutTestSuite) request() commands.CheckoutRequest {
	return commands.CheckoutRequest{
		UserID:        s.userID,
		AddressID:     s.addressID,
		PaymentMethod: order.PaymentMethodVirtual,
	}
}

// expectPrepare wires the read-only part of checkout. The table is re-priced
// to 3.2M to show the catalog wins over the cart price.
func (s *CheckoutTestSuite) expectPrepare() {
	s.m.Carts.EXPECT().FindByOwner(gomock.Any(), gomock.Any()).Return(s.cart, nil)
	s.m.Catalog.EXPECT().Entries(gomock.Any(), gomock.Any(), testNow).Return(map[uuid.UUID]cart.CatalogEntry{
		s.table: {VariantID: s.table, ProductID: uuid.New(), ProductName: "Kayu Dining Table", VariantName: "teak", SKU: "KDT-TK", Price: 3_200_000, Active: true},
		s.lamp:  {VariantID: s.lamp, ProductID: uuid.New(), ProductName: "Arc Lamp", VariantName: "brass", SKU: "ARC-BRS", Price: 450_000, Active: true},
	}, nil)
	s.m.Catalog.EXPECT().Address(gomock.Any(), s.userID, s.addressID).Return(&order.Address{
		Recipient: "Sari", Phone: "0812000111", Line1: "Jl. Melati 4", City: "Bandung", Province: "Jawa Barat", PostalCode: "40115",
	}, nil)
	s.shipping.EXPECT().Quote(gomock.Any(), gomock.Any(), gomock.Any()).Return(int64(50_000), nil)
}

func reserveOK(_ context.Context, req commands.ReserveRequest) (*commands.ReservationToken, error) {
	return &commands.ReservationToken{ID: uuid.New(), VariantID: req.VariantID, Quantity: req.Quantity, ExpiresAt: testNow.Add(req.TTL)}, nil
}

func (s *CheckoutTestSuite) expectPlaceOrder() {
	s.m.Orders.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
	s.ledger.EXPECT().Commit(gomock.Any(), s.m.Tx, gomock.Any()).Return(nil).Times(2)
	s.m.Outbox.EXPECT().Append(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, ev shared.OutboxEvent) error {
			s.Equal(shared.EventOrderCreated, ev.EventType)
			return nil
		})
	s.m.Carts.EXPECT().DeleteCheckedOut(gomock.Any(), s.cart.ID(), s.cart.UpdatedAt()).Return(nil)
	s.ledger.EXPECT().RefreshAvailability(gomock.Any(), gomock.Any()).AnyTimes()
}

func (s *CheckoutTestSuite) TestCheckout_Success() {
	s.expectPrepare()
	s.ledger.EXPECT().Reserve(gomock.Any(), gomock.Any()).DoAndReturn(reserveOK).Times(2)
	s.expectPlaceOrder()
	s.payments.EXPECT().InitiatePayment(gomock.Any(), gomock.Any(), int64(4_150_000), order.PaymentMethodVirtual).
		Return(&commands.PaymentSession{TransactionID: "trx-1", RedirectURL: "https://pay.example/trx-1"}, nil)
	s.m.Orders.EXPECT().UpdatePaymentSession(gomock.Any(), gomock.Any(), "trx-1", "https://pay.example/trx-1").Return(nil)

	res, err := s.useCase.Checkout(context.Background(), s.request())
	s.Require().NoError(err)
	s.False(res.PaymentPending)
	s.False(res.IsReplayed)

	o := res.Order
	s.Equal(order.StatusPendingPayment, o.Status())
	s.Equal(int64(4_100_000), o.Subtotal())
	s.Equal(int64(4_150_000), o.Total())
	s.Len(o.Items(), 2)
	s.Equal("trx-1", *o.Payment().ProviderTransactionID)
	for _, it := range o.Items() {
		if it.VariantID == s.table {
			s.Equal(int64(3_200_000), it.UnitPrice, "catalog price must win over cart price")
		}
	}
}

func (s *CheckoutTestSuite) TestCheckout_WithVoucher() {
	s.expectPrepare()
	s.ledger.EXPECT().Reserve(gomock.Any(), gomock.Any()).DoAndReturn(reserveOK).Times(2)

	decision := &voucher.Decision{VoucherID: uuid.New(), Code: "HEMAT10", DiscountType: voucher.DiscountPercentage, DiscountAmount: 410_000}
	s.vouchers.EXPECT().Validate(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req commands.VoucherRequest) (*voucher.Decision, error) {
			s.Equal(int64(4_100_000), req.Subtotal)
			s.Equal("HEMAT10", req.Code)
			return decision, nil
		})
	s.vouchers.EXPECT().Redeem(gomock.Any(), s.m.Tx, *decision, s.userID, gomock.Any()).Return(nil)
	s.expectPlaceOrder()
	s.payments.EXPECT().InitiatePayment(gomock.Any(), gomock.Any(), int64(3_740_000), gomock.Any()).
		Return(&commands.PaymentSession{TransactionID: "trx-2"}, nil)
	s.m.Orders.EXPECT().UpdatePaymentSession(gomock.Any(), gomock.Any(), "trx-2", "").Return(nil)

	req := s.request()
	req.VoucherCode = ptr.Of("HEMAT10")
	res, err := s.useCase.Checkout(context.Background(), req)
	s.Require().NoError(err)
	s.Equal(int64(410_000), res.Order.Discount())
	s.Equal(int64(3_740_000), res.Order.Total())
}

func (s *CheckoutTestSuite) TestCheckout_InsufficientStockReleasesEarlierHolds() {
	s.expectPrepare()

	first := true
	s.ledger.EXPECT().Reserve(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, req commands.ReserveRequest) (*commands.ReservationToken, error) {
			if first {
				first = false
				return reserveOK(ctx, req)
			}
			return nil, &stock.InsufficientStockError{VariantID: req.VariantID, Requested: req.Quantity, Available: 0}
		}).Times(2)
	s.ledger.EXPECT().Release(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, tokens ...commands.ReservationToken) error {
			s.Len(tokens, 1)
			return nil
		})

	_, err := s.useCase.Checkout(context.Background(), s.request())
	s.Require().Error(err)
	s.True(errs.Is(err, errs.ErrInsufficientStock))
}

func (s *CheckoutTestSuite) TestCheckout_RejectedVoucherReleasesEverything() {
	s.expectPrepare()
	s.ledger.EXPECT().Reserve(gomock.Any(), gomock.Any()).DoAndReturn(reserveOK).Times(2)
	s.vouchers.EXPECT().Validate(gomock.Any(), gomock.Any()).Return(nil, voucher.NewError(voucher.KindExpired, "LAMA"))
	s.ledger.EXPECT().Release(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, tokens ...commands.ReservationToken) error {
			s.Len(tokens, 2)
			return nil
		})

	req := s.request()
	req.VoucherCode = ptr.Of("LAMA")
	_, err := s.useCase.Checkout(context.Background(), req)
	s.True(voucher.IsKind(err, voucher.KindExpired))
}

func (s *CheckoutTestSuite) TestCheckout_CommitFailureReleasesHolds() {
	s.expectPrepare()
	s.ledger.EXPECT().Reserve(gomock.Any(), gomock.Any()).DoAndReturn(reserveOK).Times(2)
	s.m.Orders.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
	s.ledger.EXPECT().Commit(gomock.Any(), s.m.Tx, gomock.Any()).Return(errs.ErrReservationExpired)
	s.ledger.EXPECT().Release(gomock.Any(), gomock.Any()).Return(nil)

	_, err := s.useCase.Checkout(context.Background(), s.request())
	s.True(errs.Is(err, errs.ErrReservationExpired))
}

func (s *CheckoutTestSuite) TestCheckout_CartGoneBeforeCommitReleasesHolds() {
	s.expectPrepare()
	s.ledger.EXPECT().Reserve(gomock.Any(), gomock.Any()).DoAndReturn(reserveOK).Times(2)
	s.m.Orders.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
	s.ledger.EXPECT().Commit(gomock.Any(), s.m.Tx, gomock.Any()).Return(nil).Times(2)
	s.m.Outbox.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil)
	// a parallel checkout of the same cart already deleted it
	s.m.Carts.EXPECT().DeleteCheckedOut(gomock.Any(), s.cart.ID(), s.cart.UpdatedAt()).
		Return(infra.WrapRepoErr("cart changed or already checked out", nil, infra.KindNotFound))
	s.ledger.EXPECT().Release(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, tokens ...commands.ReservationToken) error {
			s.Len(tokens, 2)
			return nil
		})

	res, err := s.useCase.Checkout(context.Background(), s.request())
	s.Nil(res)
	s.True(errs.Is(err, errs.ErrCartChanged))
}

func (s *CheckoutTestSuite) TestCheckout_PaymentProviderDownLeavesOrderPending() {
	s.expectPrepare()
	s.ledger.EXPECT().Reserve(gomock.Any(), gomock.Any()).DoAndReturn(reserveOK).Times(2)
	s.expectPlaceOrder()
	s.payments.EXPECT().InitiatePayment(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("gateway timeout"))

	res, err := s.useCase.Checkout(context.Background(), s.request())
	s.Require().NoError(err)
	s.True(res.PaymentPending)
	s.Equal(order.StatusPendingPayment, res.Order.Status())
	s.Nil(res.Order.Payment().ProviderTransactionID)
}

func (s *CheckoutTestSuite) TestCheckout_Validation() {
	s.Run("unknown payment method", func() {
		req := s.request()
		req.PaymentMethod = "cash_on_delivery"
		_, err := s.useCase.Checkout(context.Background(), req)
		s.True(errs.Is(err, errs.ErrDomainValidation))
	})

	s.Run("empty cart", func() {
		empty, err := cart.NewCart(cart.UserOwner(s.userID), testNow, time.Hour)
		s.Require().NoError(err)
		s.m.Carts.EXPECT().FindByOwner(gomock.Any(), gomock.Any()).Return(empty, nil)
		s.m.Catalog.EXPECT().Entries(gomock.Any(), gomock.Any(), gomock.Any()).Return(map[uuid.UUID]cart.CatalogEntry{}, nil)

		_, err = s.useCase.Checkout(context.Background(), s.request())
		s.True(errs.Is(err, errs.ErrCartEmpty))
	})
}

func (s *CheckoutTestSuite) TestCheckout_Idempotency() {
	key := uuid.New()

	s.Run("replay of a completed checkout returns the same order", func() {
		existing := placedOrder(s.T(), s.userID, nil)
		var hash string
		s.m.Idempotency.EXPECT().TryInsert(gomock.Any(), key, s.userID, gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _, _ uuid.UUID, _, h string, _ time.Time) (bool, error) {
				hash = h
				return false, nil
			})
		s.m.Idempotency.EXPECT().Get(gomock.Any(), key, s.userID).
			DoAndReturn(func(_ context.Context, _, _ uuid.UUID) (*shared.IdempotencyRecord, error) {
				id := existing.ID()
				return &shared.IdempotencyRecord{Key: key, UserID: s.userID, Status: shared.IdempotencyCompleted, RequestHash: hash, ResultOrderID: &id}, nil
			})
		s.m.Orders.EXPECT().Get(gomock.Any(), existing.ID()).Return(existing, nil)

		req := s.request()
		req.IdempotencyKey = &key
		res, err := s.useCase.Checkout(context.Background(), req)
		s.Require().NoError(err)
		s.True(res.IsReplayed)
		s.Equal(existing.ID(), res.Order.ID())
	})

	s.Run("same key with a different body is rejected", func() {
		s.m.Idempotency.EXPECT().TryInsert(gomock.Any(), key, s.userID, gomock.Any(), gomock.Any(), gomock.Any()).Return(false, nil)
		s.m.Idempotency.EXPECT().Get(gomock.Any(), key, s.userID).Return(&shared.IdempotencyRecord{
			Key: key, UserID: s.userID, Status: shared.IdempotencyCompleted, RequestHash: "other",
		}, nil)

		req := s.request()
		req.IdempotencyKey = &key
		_, err := s.useCase.Checkout(context.Background(), req)
		s.True(errs.Is(err, errs.ErrDuplicateRequest))
	})

	s.Run("in-flight request with the same key", func() {
		var hash string
		s.m.Idempotency.EXPECT().TryInsert(gomock.Any(), key, s.userID, gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _, _ uuid.UUID, _, h string, _ time.Time) (bool, error) {
				hash = h
				return false, nil
			})
		s.m.Idempotency.EXPECT().Get(gomock.Any(), key, s.userID).
			DoAndReturn(func(_ context.Context, _, _ uuid.UUID) (*shared.IdempotencyRecord, error) {
				return &shared.IdempotencyRecord{Status: shared.IdempotencyProcessing, RequestHash: hash}, nil
			})

		req := s.request()
		req.IdempotencyKey = &key
		_, err := s.useCase.Checkout(context.Background(), req)
		s.True(errs.Is(err, errs.ErrIdempotencyInProgress))
	})

	s.Run("failed checkout frees the key for a retry", func() {
		s.m.Idempotency.EXPECT().TryInsert(gomock.Any(), key, s.userID, gomock.Any(), gomock.Any(), testNow.Add(24*time.Hour)).Return(true, nil)
		s.m.Carts.EXPECT().FindByOwner(gomock.Any(), gomock.Any()).Return(nil, errors.New("connection refused"))
		s.m.Idempotency.EXPECT().Delete(gomock.Any(), key, s.userID).Return(nil)

		req := s.request()
		req.IdempotencyKey = &key
		_, err := s.useCase.Checkout(context.Background(), req)
		s.True(errs.Is(err, errs.ErrDatabaseOperationFailed))
	})

	s.Run("successful checkout completes the key", func() {
		s.m.Idempotency.EXPECT().TryInsert(gomock.Any(), key, s.userID, gomock.Any(), gomock.Any(), gomock.Any()).Return(true, nil)
		s.expectPrepare()
		s.ledger.EXPECT().Reserve(gomock.Any(), gomock.Any()).DoAndReturn(reserveOK).Times(2)
		s.expectPlaceOrder()
		s.m.Idempotency.EXPECT().Complete(gomock.Any(), key, s.userID, gomock.Any()).Return(nil)
		s.payments.EXPECT().InitiatePayment(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(&commands.PaymentSession{TransactionID: "trx-3"}, nil)
		s.m.Orders.EXPECT().UpdatePaymentSession(gomock.Any(), gomock.Any(), "trx-3", "").Return(nil)

		req := s.request()
		req.IdempotencyKey = &key
		res, err := s.useCase.Checkout(context.Background(), req)
		s.Require().NoError(err)
		s.False(res.IsReplayed)
	})
}

// placedOrder builds a pending order for userID with one lamp line.
func placedOrder(t *testing.T, userID uuid.UUID, mutate func(p *order.NewParams)) *order.Order {
	t.Helper()
	lamp := uuid.New()
	c, err := cart.NewCart(cart.UserOwner(userID), testNow, time.Hour)
	require.NoError(t, err)
	_, err = c.AddItem(lamp, 1, 450_000)
	require.NoError(t, err)
	snap, err := cart.Reprice(c, map[uuid.UUID]cart.CatalogEntry{
		lamp: {VariantID: lamp, ProductID: uuid.New(), ProductName: "Arc Lamp", VariantName: "brass", SKU: "ARC-BRS", Price: 450_000, Active: true},
	})
	require.NoError(t, err)
	p := order.NewParams{
		CheckoutID:     uuid.New(),
		UserID:         userID,
		Currency:       "IDR",
		Snapshot:       snap,
		ReservationIDs: map[uuid.UUID]uuid.UUID{lamp: uuid.New()},
		ShippingCost:   50_000,
		PaymentMethod:  order.PaymentMethodBankTransfer,
		PaymentExpiry:  24 * time.Hour,
		Now:            testNow,
	}
	if mutate != nil {
		mutate(&p)
	}
	o, err := order.New(p)
	require.NoError(t, err)
	return o
}
