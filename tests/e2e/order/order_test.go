//go:build e2e

package order_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"storefront-checkout/internal/domain/user"
	reqdto "storefront-checkout/internal/handler/dto/request"
	"storefront-checkout/internal/handler/dto/response"
	"storefront-checkout/internal/infra/payment"
	"storefront-checkout/internal/pkg/ptr"
	"storefront-checkout/tests/common/authtest"
	"storefront-checkout/tests/common/builder"
	"storefront-checkout/tests/common/dbtest"
	"storefront-checkout/tests/common/httptest"
	"storefront-checkout/tests/e2e"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const (
	ordersURL     = "/api/orders"
	orderURL      = "/api/orders/%s"
	cancelURL     = "/api/orders/%s/cancel"
	adminURL      = "/api/admin/orders/%s/%s"
	webhookURL    = "/api/webhooks/payments"
	secretHeader  = "X-Webhook-Secret"
	sofaPrice     = int64(4200000)
	startingStock = 4
)

type OrderSuite struct {
	e2e.SharedSuite
	jwt *authtest.JWTHelper
}

func (s *OrderSuite) SetupSuite() {
	s.SharedSuite.SetupSuite()
	s.jwt = authtest.NewJWTHelper(s.Config.JWT)
}

func (s *OrderSuite) SetupSubTest() {
	s.SharedSuite.SetupSubTest()
}

func TestOrderSuite(t *testing.T) {
	t.Parallel()
	suite.Run(t, new(OrderSuite))
}

type placed struct {
	userID    uuid.UUID
	token     string
	variantID uuid.UUID
	voucherID uuid.UUID
	order     *response.OrderResponse
}

// placeOrder seeds a sofa with a voucher and checks out one unit of it.
func (s *OrderSuite) placeOrder(t *testing.T) placed {
	t.Helper()

	v := dbtest.SeedVariant(t, s.DB, dbtest.VariantSeed{
		ProductName: "Modular Sofa",
		VariantName: "3 Seater Grey",
		Price:       sofaPrice,
		Stock:       startingStock,
	})
	voucherID := dbtest.SeedVoucher(t, s.DB, dbtest.VoucherSeed{
		Code:          "SOFA200",
		DiscountValue: "200000",
		UsageLimit:    ptr.Of(3),
	})

	userID := uuid.New()
	token := s.jwt.GenerateToken(t, userID, user.RoleCustomer)
	addressID := dbtest.SeedAddress(t, s.DB, userID)

	add := builder.NewCartBuilder().With(func(b *builder.CartBuilder) {
		b.VariantID = v.VariantID
		b.Quantity = 1
	}).BuildAddItemRequestDTO()
	w := httptest.PerformRequest(t, s.Router, http.MethodPost, "/api/cart/items", add, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := builder.NewOrderBuilder().With(func(b *builder.OrderBuilder) { b.AddressID = addressID }).BuildCheckoutRequestDTO()
	body.VoucherCode = ptr.Of("SOFA200")
	w = httptest.PerformRequest(t, s.Router, http.MethodPost, "/api/checkout", body, token)
	var res response.CheckoutResponse
	httptest.AssertSuccessResponse(t, w, http.StatusCreated, &res)
	require.NotNil(t, res.Order)

	return placed{userID: userID, token: token, variantID: v.VariantID, voucherID: voucherID, order: res.Order}
}

func (s *OrderSuite) notify(t *testing.T, orderID string, status string) {
	t.Helper()

	id := uuid.MustParse(orderID)
	body := reqdto.PaymentWebhookRequest{OrderID: id, TransactionID: payment.TransactionIDFor(id), Status: status}
	w := httptest.PerformRequestWithHeaders(t, s.Router, http.MethodPost, webhookURL, body, "",
		map[string]string{secretHeader: s.Config.Payment.WebhookSecret})
	require.Contains(t, []int{http.StatusAccepted, http.StatusOK}, w.Code, w.Body.String())
}

func (s *OrderSuite) getOrder(t *testing.T, token, orderID string) response.OrderResponse {
	t.Helper()

	w := httptest.PerformRequest(t, s.Router, http.MethodGet, fmt.Sprintf(orderURL, orderID), nil, token)
	var res response.OrderResponse
	httptest.AssertSuccessResponse(t, w, http.StatusOK, &res)
	return res
}

// =============================================================================
// TestCancelOrder - cancellation gives back stock and voucher uses
// =============================================================================

func (s *OrderSuite) TestCancelOrder() {
	s.Run("Normal case: Cancelling an unpaid order restores stock and voucher", func() {
		t := s.T()

		p := s.placeOrder(t)
		require.Equal(t, dbtest.StockLevel{Quantity: startingStock - 1}, dbtest.GetStockLevel(t, s.DB, p.variantID))
		require.Equal(t, 1, dbtest.GetVoucherUsageCount(t, s.DB, p.voucherID))

		w := httptest.PerformRequest(t, s.Router, http.MethodPost, fmt.Sprintf(cancelURL, p.order.ID), nil, p.token)
		var res response.OrderResponse
		httptest.AssertSuccessResponse(t, w, http.StatusOK, &res)

		assert.Equal(t, "cancelled", res.Status)
		assert.Equal(t, "cancelled", res.Payment.Status)
		assert.Equal(t, dbtest.StockLevel{Quantity: startingStock}, dbtest.GetStockLevel(t, s.DB, p.variantID))
		assert.Equal(t, 0, dbtest.GetVoucherUsageCount(t, s.DB, p.voucherID))
	})

	s.Run("Normal case: Cancelling a paid order refunds without returning the voucher", func() {
		t := s.T()

		p := s.placeOrder(t)
		s.notify(t, p.order.ID, "success")

		w := httptest.PerformRequest(t, s.Router, http.MethodPost, fmt.Sprintf(cancelURL, p.order.ID), nil, p.token)
		var res response.OrderResponse
		httptest.AssertSuccessResponse(t, w, http.StatusOK, &res)

		assert.Equal(t, "cancelled", res.Status)
		assert.Equal(t, "refunded", res.Payment.Status)
		assert.Equal(t, dbtest.StockLevel{Quantity: startingStock}, dbtest.GetStockLevel(t, s.DB, p.variantID))
		assert.Equal(t, 1, dbtest.GetVoucherUsageCount(t, s.DB, p.voucherID))
	})

	s.Run("Error case: Cancelling twice does not restore stock twice", func() {
		t := s.T()

		p := s.placeOrder(t)
		url := fmt.Sprintf(cancelURL, p.order.ID)

		first := httptest.PerformRequest(t, s.Router, http.MethodPost, url, nil, p.token)
		require.Equal(t, http.StatusOK, first.Code, first.Body.String())

		second := httptest.PerformRequest(t, s.Router, http.MethodPost, url, nil, p.token)
		httptest.AssertErrorResponse(t, second, http.StatusConflict, "Order cannot move to the requested status")
		assert.Equal(t, dbtest.StockLevel{Quantity: startingStock}, dbtest.GetStockLevel(t, s.DB, p.variantID))
	})

	s.Run("Error case: Another customer cannot cancel the order", func() {
		t := s.T()

		p := s.placeOrder(t)
		other := s.jwt.GenerateToken(t, uuid.New(), user.RoleCustomer)

		w := httptest.PerformRequest(t, s.Router, http.MethodPost, fmt.Sprintf(cancelURL, p.order.ID), nil, other)
		httptest.AssertErrorResponse(t, w, http.StatusNotFound, "Order not found")
		assert.Equal(t, "pending_payment", s.getOrder(t, p.token, p.order.ID).Status)
	})
}

// =============================================================================
// TestPaymentWebhook - provider notifications
// =============================================================================

func (s *OrderSuite) TestPaymentWebhook() {
	s.Run("Normal case: Success marks the order paid and replays are harmless", func() {
		t := s.T()

		p := s.placeOrder(t)
		s.notify(t, p.order.ID, "success")
		s.notify(t, p.order.ID, "success")

		got := s.getOrder(t, p.token, p.order.ID)
		assert.Equal(t, "paid", got.Status)
		assert.Equal(t, "paid", got.Payment.Status)
		assert.NotNil(t, got.Payment.PaidAt)
		assert.Equal(t, dbtest.StockLevel{Quantity: startingStock - 1}, dbtest.GetStockLevel(t, s.DB, p.variantID))
	})

	s.Run("Normal case: Failure releases everything the order held", func() {
		t := s.T()

		p := s.placeOrder(t)
		s.notify(t, p.order.ID, "failed")

		got := s.getOrder(t, p.token, p.order.ID)
		assert.Equal(t, "failed", got.Status)
		assert.Equal(t, "failed", got.Payment.Status)
		assert.Equal(t, dbtest.StockLevel{Quantity: startingStock}, dbtest.GetStockLevel(t, s.DB, p.variantID))
		assert.Equal(t, 0, dbtest.GetVoucherUsageCount(t, s.DB, p.voucherID))
	})

	s.Run("Normal case: Late failure after payment is ignored", func() {
		t := s.T()

		p := s.placeOrder(t)
		s.notify(t, p.order.ID, "success")

		id := uuid.MustParse(p.order.ID)
		body := reqdto.PaymentWebhookRequest{OrderID: id, TransactionID: payment.TransactionIDFor(id), Status: "failed"}
		w := httptest.PerformRequestWithHeaders(t, s.Router, http.MethodPost, webhookURL, body, "",
			map[string]string{secretHeader: s.Config.Payment.WebhookSecret})
		assert.Contains(t, []int{http.StatusAccepted, http.StatusOK}, w.Code, w.Body.String())
		assert.Equal(t, "paid", s.getOrder(t, p.token, p.order.ID).Status)
	})

	s.Run("Error case: Wrong secret is rejected", func() {
		t := s.T()

		p := s.placeOrder(t)
		id := uuid.MustParse(p.order.ID)
		body := reqdto.PaymentWebhookRequest{OrderID: id, TransactionID: payment.TransactionIDFor(id), Status: "success"}
		w := httptest.PerformRequestWithHeaders(t, s.Router, http.MethodPost, webhookURL, body, "",
			map[string]string{secretHeader: "guess"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "pending_payment", s.getOrder(t, p.token, p.order.ID).Status)
	})
}

// =============================================================================
// TestFulfilment - staff drives the order to delivery
// =============================================================================

func (s *OrderSuite) TestFulfilment() {
	s.Run("Normal case: Paid order is processed, shipped and delivered", func() {
		t := s.T()

		p := s.placeOrder(t)
		s.notify(t, p.order.ID, "success")
		staff := s.jwt.GenerateToken(t, uuid.New(), user.RoleStaff)

		w := httptest.PerformRequest(t, s.Router, http.MethodPost, fmt.Sprintf(adminURL, p.order.ID, "processing"), nil, staff)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		ship := reqdto.ShipOrderRequest{Courier: "JNE", TrackingNumber: "JNE1234567890"}
		w = httptest.PerformRequest(t, s.Router, http.MethodPost, fmt.Sprintf(adminURL, p.order.ID, "ship"), ship, staff)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = httptest.PerformRequest(t, s.Router, http.MethodPost, fmt.Sprintf(adminURL, p.order.ID, "deliver"), nil, staff)
		var res response.OrderResponse
		httptest.AssertSuccessResponse(t, w, http.StatusOK, &res)

		want := response.ShippingResponse{
			Recipient:      "Dewi Lestari",
			Phone:          "+628123456789",
			Line1:          "Jl. Kemang Raya No. 8",
			City:           "Jakarta Selatan",
			Province:       "DKI Jakarta",
			PostalCode:     "12730",
			Cost:           50000,
			Courier:        ptr.Of("JNE"),
			TrackingNumber: ptr.Of("JNE1234567890"),
			Status:         "delivered",
		}
		opts := cmpopts.IgnoreFields(response.ShippingResponse{}, "ShippedAt", "DeliveredAt")
		if diff := cmp.Diff(want, res.Shipping, opts); diff != "" {
			t.Errorf("shipping mismatch (-want +got):\n%s", diff)
		}
		assert.Equal(t, "delivered", res.Status)
		assert.NotNil(t, res.Shipping.ShippedAt)
		assert.NotNil(t, res.Shipping.DeliveredAt)

		// delivered orders are final for refunds
		admin := s.jwt.GenerateToken(t, uuid.New(), user.RoleAdmin)
		w = httptest.PerformRequest(t, s.Router, http.MethodPost, fmt.Sprintf(adminURL, p.order.ID, "refund"), nil, admin)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	s.Run("Normal case: Admin refund of a processing order returns stock", func() {
		t := s.T()

		p := s.placeOrder(t)
		s.notify(t, p.order.ID, "success")
		admin := s.jwt.GenerateToken(t, uuid.New(), user.RoleAdmin)

		w := httptest.PerformRequest(t, s.Router, http.MethodPost, fmt.Sprintf(adminURL, p.order.ID, "processing"), nil, admin)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = httptest.PerformRequest(t, s.Router, http.MethodPost, fmt.Sprintf(adminURL, p.order.ID, "refund"), nil, admin)
		var res response.OrderResponse
		httptest.AssertSuccessResponse(t, w, http.StatusOK, &res)
		assert.Equal(t, "refunded", res.Status)
		assert.Equal(t, "refunded", res.Payment.Status)
		assert.Equal(t, "returned", res.Shipping.Status)
		assert.Equal(t, dbtest.StockLevel{Quantity: startingStock}, dbtest.GetStockLevel(t, s.DB, p.variantID))
	})

	s.Run("Error case: Shipping an unpaid order", func() {
		t := s.T()

		p := s.placeOrder(t)
		staff := s.jwt.GenerateToken(t, uuid.New(), user.RoleStaff)

		ship := reqdto.ShipOrderRequest{Courier: "SiCepat", TrackingNumber: "SCP000111"}
		w := httptest.PerformRequest(t, s.Router, http.MethodPost, fmt.Sprintf(adminURL, p.order.ID, "ship"), ship, staff)
		httptest.AssertErrorResponse(t, w, http.StatusConflict, "Order cannot move to the requested status")
	})

	s.Run("Error case: Customers and staff cannot use admin-only routes", func() {
		t := s.T()

		p := s.placeOrder(t)
		s.notify(t, p.order.ID, "success")

		w := httptest.PerformRequest(t, s.Router, http.MethodPost, fmt.Sprintf(adminURL, p.order.ID, "processing"), nil, p.token)
		assert.Equal(t, http.StatusForbidden, w.Code)

		staff := s.jwt.GenerateToken(t, uuid.New(), user.RoleStaff)
		w = httptest.PerformRequest(t, s.Router, http.MethodPost, fmt.Sprintf(adminURL, p.order.ID, "refund"), nil, staff)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "paid", s.getOrder(t, p.token, p.order.ID).Status)
	})
}

// =============================================================================
// TestReclaim - background sweeps
// =============================================================================

func (s *OrderSuite) TestReclaim() {
	s.Run("Normal case: Unpaid order past its payment window fails", func() {
		t := s.T()

		p := s.placeOrder(t)
		dbtest.ExpirePayment(t, s.DB, uuid.MustParse(p.order.ID))

		require.NoError(t, s.Reclaimer.RunOnce(context.Background()))

		got := s.getOrder(t, p.token, p.order.ID)
		assert.Equal(t, "failed", got.Status)
		assert.Equal(t, dbtest.StockLevel{Quantity: startingStock}, dbtest.GetStockLevel(t, s.DB, p.variantID))
		assert.Equal(t, 0, dbtest.GetVoucherUsageCount(t, s.DB, p.voucherID))
	})

	s.Run("Normal case: Stale holds are released back to stock", func() {
		t := s.T()

		v := dbtest.SeedVariant(t, s.DB, dbtest.VariantSeed{Price: 1500000, Stock: 6})
		fspID := dbtest.SeedFlashSale(t, s.DB, v, 1500000, 990000, ptr.Of(5))
		stale := dbtest.SeedHeldReservation(t, s.DB, v.VariantID, 2, &fspID, time.Now().Add(-time.Minute))
		live := dbtest.SeedHeldReservation(t, s.DB, v.VariantID, 1, nil, time.Now().Add(15*time.Minute))
		require.Equal(t, dbtest.StockLevel{Quantity: 6, Reserved: 3}, dbtest.GetStockLevel(t, s.DB, v.VariantID))

		require.NoError(t, s.Reclaimer.RunOnce(context.Background()))

		assert.Equal(t, "released", dbtest.GetReservationStatus(t, s.DB, stale))
		assert.Equal(t, "held", dbtest.GetReservationStatus(t, s.DB, live))
		assert.Equal(t, dbtest.StockLevel{Quantity: 6, Reserved: 1}, dbtest.GetStockLevel(t, s.DB, v.VariantID))
		assert.Equal(t, 0, dbtest.GetFlashSoldCount(t, s.DB, fspID))

		// a second pass finds nothing left to release
		require.NoError(t, s.Reclaimer.RunOnce(context.Background()))
		assert.Equal(t, dbtest.StockLevel{Quantity: 6, Reserved: 1}, dbtest.GetStockLevel(t, s.DB, v.VariantID))
	})

	s.Run("Normal case: Orders still inside their window are left alone", func() {
		t := s.T()

		p := s.placeOrder(t)
		require.NoError(t, s.Reclaimer.RunOnce(context.Background()))
		assert.Equal(t, "pending_payment", s.getOrder(t, p.token, p.order.ID).Status)
	})
}

// =============================================================================
// TestListOrders - keyset pagination
// =============================================================================

func (s *OrderSuite) TestListOrders() {
	s.Run("Normal case: Newest first with a cursor to the next page", func() {
		t := s.T()

		p := s.placeOrder(t)
		w := httptest.PerformRequest(t, s.Router, http.MethodGet, ordersURL+"?limit=1", nil, p.token)

		var res struct {
			Orders     []response.OrderListItemResponse `json:"orders"`
			NextCursor *string                          `json:"next_cursor"`
		}
		httptest.AssertSuccessResponse(t, w, http.StatusOK, &res)
		require.Len(t, res.Orders, 1)
		assert.Equal(t, p.order.ID, res.Orders[0].ID)
		assert.Equal(t, 1, res.Orders[0].ItemCount)
		assert.Nil(t, res.NextCursor)
	})
}
