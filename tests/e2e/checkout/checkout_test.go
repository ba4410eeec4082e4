//go:build e2e

package checkout_test

import (
	"fmt"
	"net/http"
	"sync"
	"testing"

	"storefront-checkout/internal/domain/user"
	"storefront-checkout/internal/handler/dto/response"
	"storefront-checkout/internal/pkg/ptr"
	"storefront-checkout/tests/common/authtest"
	"storefront-checkout/tests/common/builder"
	"storefront-checkout/tests/common/dbtest"
	"storefront-checkout/tests/common/httptest"
	"storefront-checkout/tests/e2e"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const (
	cartItemsURL  = "/api/cart/items"
	checkoutURL   = "/api/checkout"
	availURL      = "/api/variants/%s/availability"
	flatShipping  = int64(50000)
	chairPrice    = int64(1250000)
	concurrentBuy = 10
)

type CheckoutSuite struct {
	e2e.SharedSuite
	jwt *authtest.JWTHelper
}

func (s *CheckoutSuite) SetupSuite() {
	s.SharedSuite.SetupSuite()
	s.jwt = authtest.NewJWTHelper(s.Config.JWT)
}

func (s *CheckoutSuite) SetupSubTest() {
	s.SharedSuite.SetupSubTest()
}

func TestCheckoutSuite(t *testing.T) {
	t.Parallel()
	suite.Run(t, new(CheckoutSuite))
}

type shopper struct {
	userID    uuid.UUID
	token     string
	addressID uuid.UUID
}

func (s *CheckoutSuite) newShopper(t *testing.T) shopper {
	t.Helper()
	userID := uuid.New()
	return shopper{
		userID:    userID,
		token:     s.jwt.GenerateToken(t, userID, user.RoleCustomer),
		addressID: dbtest.SeedAddress(t, s.DB, userID),
	}
}

func (s *CheckoutSuite) addToCart(t *testing.T, sh shopper, variantID uuid.UUID, qty int) {
	t.Helper()
	body := builder.NewCartBuilder().With(func(b *builder.CartBuilder) {
		b.VariantID = variantID
		b.Quantity = qty
	}).BuildAddItemRequestDTO()
	w := httptest.PerformRequest(t, s.Router, http.MethodPost, cartItemsURL, body, sh.token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func checkoutBody(sh shopper, voucherCode string) any {
	req := builder.NewOrderBuilder().With(func(b *builder.OrderBuilder) {
		b.UserID = sh.userID
		b.AddressID = sh.addressID
	}).BuildCheckoutRequestDTO()
	if voucherCode != "" {
		req.VoucherCode = ptr.Of(voucherCode)
	}
	return req
}

// =============================================================================
// TestCheckout - single customer checkout
// =============================================================================

func (s *CheckoutSuite) TestCheckout() {
	s.Run("Normal case: Order is placed and stock is deducted", func() {
		t := s.T()

		v := dbtest.SeedVariant(t, s.DB, dbtest.VariantSeed{Price: chairPrice, Stock: 5})
		sh := s.newShopper(t)
		s.addToCart(t, sh, v.VariantID, 2)

		w := httptest.PerformRequest(t, s.Router, http.MethodPost, checkoutURL, checkoutBody(sh, ""), sh.token)
		var res response.CheckoutResponse
		httptest.AssertSuccessResponse(t, w, http.StatusCreated, &res)
		require.NotNil(t, res.Order)

		assert.Equal(t, "pending_payment", res.Order.Status)
		assert.Equal(t, 2*chairPrice, res.Order.Subtotal)
		assert.Equal(t, 2*chairPrice+flatShipping, res.Order.Total)
		assert.Equal(t, res.Order.Total, res.Order.Payment.Amount)
		assert.Equal(t, "pending", res.Order.Payment.Status)
		assert.NotNil(t, res.Order.Payment.TransactionID)
		assert.False(t, res.PaymentPending)

		want := dbtest.StockLevel{Quantity: 3, Reserved: 0}
		if diff := cmp.Diff(want, dbtest.GetStockLevel(t, s.DB, v.VariantID)); diff != "" {
			t.Errorf("stock mismatch (-want +got):\n%s", diff)
		}
		assert.Equal(t, map[string]int{"committed": 1}, dbtest.CountReservations(t, s.DB, v.VariantID))

		cw := httptest.PerformRequest(t, s.Router, http.MethodGet, "/api/cart", nil, sh.token)
		var cartRes response.CartResponse
		httptest.AssertSuccessResponse(t, cw, http.StatusOK, &cartRes)
		assert.Empty(t, cartRes.Items, "cart should be emptied after checkout")

		aw := httptest.PerformRequest(t, s.Router, http.MethodGet, fmt.Sprintf(availURL, v.VariantID), nil, "")
		var avail response.AvailabilityResponse
		httptest.AssertSuccessResponse(t, aw, http.StatusOK, &avail)
		assert.Equal(t, 3, avail.Available)
	})

	s.Run("Normal case: Voucher discount is applied and consumed", func() {
		t := s.T()

		v := dbtest.SeedVariant(t, s.DB, dbtest.VariantSeed{Price: chairPrice, Stock: 5})
		voucherID := dbtest.SeedVoucher(t, s.DB, dbtest.VoucherSeed{
			Code:          "HEMAT10",
			DiscountType:  "percentage",
			DiscountValue: "10",
			MaxDiscount:   ptr.Of(int64(100000)),
			UsageLimit:    ptr.Of(10),
		})
		sh := s.newShopper(t)
		s.addToCart(t, sh, v.VariantID, 1)

		w := httptest.PerformRequest(t, s.Router, http.MethodPost, checkoutURL, checkoutBody(sh, "hemat10"), sh.token)
		var res response.CheckoutResponse
		httptest.AssertSuccessResponse(t, w, http.StatusCreated, &res)

		assert.Equal(t, int64(100000), res.Order.Discount, "10% capped at 100,000")
		assert.Equal(t, chairPrice-100000+flatShipping, res.Order.Total)
		require.NotNil(t, res.Order.VoucherCode)
		assert.Equal(t, "HEMAT10", *res.Order.VoucherCode)
		assert.Equal(t, 1, dbtest.GetVoucherUsageCount(t, s.DB, voucherID))
	})

	s.Run("Normal case: Free shipping voucher zeroes shipping", func() {
		t := s.T()

		v := dbtest.SeedVariant(t, s.DB, dbtest.VariantSeed{Price: chairPrice, Stock: 5})
		dbtest.SeedVoucher(t, s.DB, dbtest.VoucherSeed{Code: "ONGKIR0", DiscountType: "free_shipping"})
		sh := s.newShopper(t)
		s.addToCart(t, sh, v.VariantID, 1)

		w := httptest.PerformRequest(t, s.Router, http.MethodPost, checkoutURL, checkoutBody(sh, "ONGKIR0"), sh.token)
		var res response.CheckoutResponse
		httptest.AssertSuccessResponse(t, w, http.StatusCreated, &res)
		assert.Equal(t, int64(0), res.Order.ShippingAmount)
		assert.Equal(t, chairPrice, res.Order.Total)
	})

	s.Run("Normal case: Line larger than the flash pool pays the regular price", func() {
		t := s.T()

		v := dbtest.SeedVariant(t, s.DB, dbtest.VariantSeed{Price: chairPrice, Stock: 5})
		fspID := dbtest.SeedFlashSale(t, s.DB, v, chairPrice, 899000, ptr.Of(1))
		sh := s.newShopper(t)
		s.addToCart(t, sh, v.VariantID, 2)

		w := httptest.PerformRequest(t, s.Router, http.MethodPost, checkoutURL, checkoutBody(sh, ""), sh.token)
		var res response.CheckoutResponse
		httptest.AssertSuccessResponse(t, w, http.StatusCreated, &res)
		require.Len(t, res.Order.Items, 1)

		assert.False(t, res.Order.Items[0].FlashSale)
		assert.Equal(t, chairPrice, res.Order.Items[0].UnitPrice)
		assert.Equal(t, 0, dbtest.GetFlashSoldCount(t, s.DB, fspID))
		assert.Equal(t, dbtest.StockLevel{Quantity: 3, Reserved: 0}, dbtest.GetStockLevel(t, s.DB, v.VariantID))
	})

	s.Run("Error case: Requesting more than available reports what is left", func() {
		t := s.T()

		v := dbtest.SeedVariant(t, s.DB, dbtest.VariantSeed{Price: chairPrice, Stock: 1})
		sh := s.newShopper(t)
		s.addToCart(t, sh, v.VariantID, 2)

		w := httptest.PerformRequest(t, s.Router, http.MethodPost, checkoutURL, checkoutBody(sh, ""), sh.token)
		httptest.AssertErrorResponse(t, w, http.StatusConflict, "Only 1 left")

		assert.Equal(t, dbtest.StockLevel{Quantity: 1, Reserved: 0}, dbtest.GetStockLevel(t, s.DB, v.VariantID))
		assert.Equal(t, 0, dbtest.CountOrders(t, s.DB, sh.userID))
	})

	s.Run("Error case: Voucher below minimum purchase rejects the checkout", func() {
		t := s.T()

		v := dbtest.SeedVariant(t, s.DB, dbtest.VariantSeed{Price: chairPrice, Stock: 5})
		voucherID := dbtest.SeedVoucher(t, s.DB, dbtest.VoucherSeed{
			Code:          "BELANJA5JT",
			DiscountValue: "500000",
			MinPurchase:   5000000,
		})
		sh := s.newShopper(t)
		s.addToCart(t, sh, v.VariantID, 1)

		w := httptest.PerformRequest(t, s.Router, http.MethodPost, checkoutURL, checkoutBody(sh, "BELANJA5JT"), sh.token)
		httptest.AssertErrorResponse(t, w, http.StatusUnprocessableEntity, "Minimum purchase not met")

		assert.Equal(t, dbtest.StockLevel{Quantity: 5, Reserved: 0}, dbtest.GetStockLevel(t, s.DB, v.VariantID))
		assert.Equal(t, 0, dbtest.GetVoucherUsageCount(t, s.DB, voucherID))
	})

	s.Run("Error case: Empty cart", func() {
		t := s.T()

		sh := s.newShopper(t)
		w := httptest.PerformRequest(t, s.Router, http.MethodPost, checkoutURL, checkoutBody(sh, ""), sh.token)
		httptest.AssertErrorResponse(t, w, http.StatusUnprocessableEntity, "Cart is empty")
	})

	s.Run("Error case: Address owned by someone else", func() {
		t := s.T()

		v := dbtest.SeedVariant(t, s.DB, dbtest.VariantSeed{Price: chairPrice, Stock: 5})
		sh := s.newShopper(t)
		sh.addressID = dbtest.SeedAddress(t, s.DB, uuid.New())
		s.addToCart(t, sh, v.VariantID, 1)

		w := httptest.PerformRequest(t, s.Router, http.MethodPost, checkoutURL, checkoutBody(sh, ""), sh.token)
		httptest.AssertErrorResponse(t, w, http.StatusNotFound, "Address not found")
		assert.Equal(t, dbtest.StockLevel{Quantity: 5, Reserved: 0}, dbtest.GetStockLevel(t, s.DB, v.VariantID))
	})

	s.Run("Error case: Unauthenticated checkout", func() {
		t := s.T()

		w := httptest.PerformRequest(t, s.Router, http.MethodPost, checkoutURL, checkoutBody(shopper{addressID: uuid.New()}, ""), "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

// =============================================================================
// TestIdempotentCheckout - Idempotency-Key replay
// =============================================================================

func (s *CheckoutSuite) TestIdempotentCheckout() {
	s.Run("Normal case: Replaying the key returns the original order", func() {
		t := s.T()

		v := dbtest.SeedVariant(t, s.DB, dbtest.VariantSeed{Price: chairPrice, Stock: 5})
		sh := s.newShopper(t)
		s.addToCart(t, sh, v.VariantID, 1)

		headers := map[string]string{"Idempotency-Key": uuid.NewString()}
		body := checkoutBody(sh, "")

		first := httptest.PerformRequestWithHeaders(t, s.Router, http.MethodPost, checkoutURL, body, sh.token, headers)
		var created response.CheckoutResponse
		httptest.AssertSuccessResponse(t, first, http.StatusCreated, &created)

		second := httptest.PerformRequestWithHeaders(t, s.Router, http.MethodPost, checkoutURL, body, sh.token, headers)
		var replayed response.CheckoutResponse
		httptest.AssertSuccessResponse(t, second, http.StatusOK, &replayed)

		assert.Equal(t, created.Order.ID, replayed.Order.ID)
		assert.Equal(t, 1, dbtest.CountOrders(t, s.DB, sh.userID))
		assert.Equal(t, dbtest.StockLevel{Quantity: 4, Reserved: 0}, dbtest.GetStockLevel(t, s.DB, v.VariantID))
	})

	s.Run("Error case: Same key with a different body", func() {
		t := s.T()

		v := dbtest.SeedVariant(t, s.DB, dbtest.VariantSeed{Price: chairPrice, Stock: 5})
		sh := s.newShopper(t)
		s.addToCart(t, sh, v.VariantID, 1)

		headers := map[string]string{"Idempotency-Key": uuid.NewString()}
		first := httptest.PerformRequestWithHeaders(t, s.Router, http.MethodPost, checkoutURL, checkoutBody(sh, ""), sh.token, headers)
		require.Equal(t, http.StatusCreated, first.Code, first.Body.String())

		changed := builder.NewOrderBuilder().With(func(b *builder.OrderBuilder) {
			b.AddressID = sh.addressID
			b.PaymentMethod = "e_wallet"
		}).BuildCheckoutRequestDTO()
		second := httptest.PerformRequestWithHeaders(t, s.Router, http.MethodPost, checkoutURL, changed, sh.token, headers)
		httptest.AssertErrorResponse(t, second, http.StatusConflict, "Idempotency key reused")
		assert.Equal(t, 1, dbtest.CountOrders(t, s.DB, sh.userID))
	})

	s.Run("Error case: Malformed key", func() {
		t := s.T()

		sh := s.newShopper(t)
		w := httptest.PerformRequestWithHeaders(t, s.Router, http.MethodPost, checkoutURL, checkoutBody(sh, ""), sh.token,
			map[string]string{"Idempotency-Key": "not-a-uuid"})
		httptest.AssertErrorResponse(t, w, http.StatusBadRequest, "Idempotency-Key must be a UUID")
	})
}

// =============================================================================
// TestConcurrentCheckout - contention on stock, vouchers and flash sales
// =============================================================================

type outcome struct {
	status int
	res    response.CheckoutResponse
}

// fires every checkout at once and collects the results in shopper order
func (s *CheckoutSuite) checkoutAll(t *testing.T, shoppers []shopper, voucherCode string) []outcome {
	t.Helper()

	out := make([]outcome, len(shoppers))
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i, sh := range shoppers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			w := httptest.PerformRequest(t, s.Router, http.MethodPost, checkoutURL, checkoutBody(sh, voucherCode), sh.token)
			out[i].status = w.Code
			if w.Code == http.StatusCreated {
				_ = httptest.DecodeResponseBody(t, w.Body, &out[i].res)
			}
		}()
	}
	close(start)
	wg.Wait()
	return out
}

func countStatus(outs []outcome, status int) int {
	n := 0
	for _, o := range outs {
		if o.status == status {
			n++
		}
	}
	return n
}

func (s *CheckoutSuite) TestConcurrentCheckout() {
	s.Run("Normal case: Only one shopper gets the last unit", func() {
		t := s.T()

		v := dbtest.SeedVariant(t, s.DB, dbtest.VariantSeed{Price: chairPrice, Stock: 1})
		shoppers := make([]shopper, concurrentBuy)
		for i := range shoppers {
			shoppers[i] = s.newShopper(t)
			s.addToCart(t, shoppers[i], v.VariantID, 1)
		}

		outs := s.checkoutAll(t, shoppers, "")

		assert.Equal(t, 1, countStatus(outs, http.StatusCreated))
		assert.Equal(t, concurrentBuy-1, countStatus(outs, http.StatusConflict))
		assert.Equal(t, dbtest.StockLevel{Quantity: 0, Reserved: 0}, dbtest.GetStockLevel(t, s.DB, v.VariantID))
		assert.Equal(t, map[string]int{"committed": 1}, dbtest.CountReservations(t, s.DB, v.VariantID))
	})

	s.Run("Normal case: Voucher usage never exceeds its limit", func() {
		t := s.T()

		const limit = 5
		v := dbtest.SeedVariant(t, s.DB, dbtest.VariantSeed{Price: chairPrice, Stock: 100})
		voucherID := dbtest.SeedVoucher(t, s.DB, dbtest.VoucherSeed{
			Code:          "PAYDAY",
			DiscountValue: "100000",
			UsageLimit:    ptr.Of(limit),
		})
		shoppers := make([]shopper, 12)
		for i := range shoppers {
			shoppers[i] = s.newShopper(t)
			s.addToCart(t, shoppers[i], v.VariantID, 1)
		}

		outs := s.checkoutAll(t, shoppers, "PAYDAY")

		assert.Equal(t, limit, countStatus(outs, http.StatusCreated))
		assert.Equal(t, len(shoppers)-limit, countStatus(outs, http.StatusUnprocessableEntity))
		assert.Equal(t, limit, dbtest.GetVoucherUsageCount(t, s.DB, voucherID))

		// losers must not leave units reserved
		assert.Equal(t, dbtest.StockLevel{Quantity: 100 - limit, Reserved: 0}, dbtest.GetStockLevel(t, s.DB, v.VariantID))
	})

	s.Run("Normal case: Double submit of one cart places a single order", func() {
		t := s.T()

		v := dbtest.SeedVariant(t, s.DB, dbtest.VariantSeed{Price: chairPrice, Stock: 10})
		sh := s.newShopper(t)
		s.addToCart(t, sh, v.VariantID, 2)

		outs := s.checkoutAll(t, []shopper{sh, sh, sh}, "")

		assert.Equal(t, 1, countStatus(outs, http.StatusCreated))
		for _, o := range outs {
			assert.Contains(t, []int{http.StatusCreated, http.StatusConflict, http.StatusNotFound}, o.status)
		}
		assert.Equal(t, 1, dbtest.CountOrders(t, s.DB, sh.userID))
		assert.Equal(t, dbtest.StockLevel{Quantity: 8, Reserved: 0}, dbtest.GetStockLevel(t, s.DB, v.VariantID))
		assert.Equal(t, 1, dbtest.CountReservations(t, s.DB, v.VariantID)["committed"])
	})

	s.Run("Normal case: Flash sale pool caps discounted units", func() {
		t := s.T()

		const poolSize = 3
		v := dbtest.SeedVariant(t, s.DB, dbtest.VariantSeed{Price: chairPrice, Stock: 50})
		fspID := dbtest.SeedFlashSale(t, s.DB, v, chairPrice, 899000, ptr.Of(poolSize))
		shoppers := make([]shopper, 8)
		for i := range shoppers {
			shoppers[i] = s.newShopper(t)
			s.addToCart(t, shoppers[i], v.VariantID, 1)
		}

		outs := s.checkoutAll(t, shoppers, "")

		flashOrders := 0
		for _, o := range outs {
			assert.Contains(t, []int{http.StatusCreated, http.StatusConflict}, o.status)
			if o.status == http.StatusCreated && len(o.res.Order.Items) == 1 && o.res.Order.Items[0].FlashSale {
				assert.Equal(t, int64(899000), o.res.Order.Items[0].UnitPrice)
				flashOrders++
			}
		}
		assert.Equal(t, poolSize, flashOrders)
		assert.Equal(t, poolSize, dbtest.GetFlashSoldCount(t, s.DB, fspID))
		assert.Equal(t, 0, dbtest.GetStockLevel(t, s.DB, v.VariantID).Reserved)
	})
}
