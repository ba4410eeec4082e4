package httperr

import (
	"fmt"
	"net/http"

	"storefront-checkout/internal/domain/cart"
	"storefront-checkout/internal/domain/flashsale"
	"storefront-checkout/internal/domain/order"
	"storefront-checkout/internal/domain/stock"
	"storefront-checkout/internal/domain/voucher"
	"storefront-checkout/internal/pkg/errs"

	"github.com/gin-gonic/gin"
)

var voucherMessages = map[voucher.ErrorKind]string{
	voucher.KindNotFound:            "Voucher not found",
	voucher.KindInactive:            "Voucher is not active",
	voucher.KindNotStarted:          "Voucher is not valid yet",
	voucher.KindExpired:             "Voucher expired",
	voucher.KindMinPurchaseNotMet:   "Minimum purchase not met",
	voucher.KindNotEligible:         "Voucher does not apply to items in cart",
	voucher.KindUsageLimitReached:   "Voucher usage limit reached",
	voucher.KindPerUserLimitReached: "Voucher already used",
}

// AbortWithDomainError maps usecase errors onto statuses and customer facing
// messages. Anything unrecognised becomes a 500 with fallback as the message.
func AbortWithDomainError(c *gin.Context, err error, fallback string) {
	var (
		stockErr   *stock.InsufficientStockError
		soldOut    *flashsale.SoldOutError
		voucherErr *voucher.Error
		itemErr    *cart.UnavailableItemError
		illegalErr *order.IllegalTransitionError
	)

	switch {
	case errs.As(err, &stockErr):
		AbortWithError(c, http.StatusConflict, err,
			fmt.Sprintf("Only %d left", stockErr.Available),
			gin.H{"variant_id": stockErr.VariantID, "sku": stockErr.SKU, "available": stockErr.Available})
	case errs.As(err, &soldOut):
		AbortWithError(c, http.StatusConflict, err, "Flash sale sold out",
			gin.H{"variant_id": soldOut.VariantID, "remaining": soldOut.Remaining})
	case errs.As(err, &voucherErr):
		detail := gin.H{"code": voucherErr.Code, "reason": voucherErr.Kind}
		if voucherErr.Kind == voucher.KindMinPurchaseNotMet {
			detail["min_purchase"] = voucherErr.MinPurchase
		}
		AbortWithError(c, http.StatusUnprocessableEntity, err, voucherMessages[voucherErr.Kind], detail)
	case errs.As(err, &itemErr):
		AbortWithError(c, http.StatusConflict, err, "Item no longer available", gin.H{"variant_id": itemErr.VariantID})
	case errs.Is(err, errs.ErrItemUnavailable):
		AbortWithError(c, http.StatusNotFound, err, "Item not available", nil)
	case errs.As(err, &illegalErr):
		AbortWithError(c, http.StatusConflict, err, "Order cannot move to the requested status",
			gin.H{"from": illegalErr.From, "to": illegalErr.To})
	case errs.Is(err, errs.ErrIllegalStateTransition):
		AbortWithError(c, http.StatusConflict, err, "Order cannot move to the requested status", nil)
	case errs.Is(err, errs.ErrReservationExpired):
		AbortWithError(c, http.StatusConflict, err, "Reservation expired, please checkout again", nil)
	case errs.Is(err, errs.ErrPaymentProviderUnavailable):
		AbortWithError(c, http.StatusServiceUnavailable, err, "Payment pending, retry", nil)
	case errs.Is(err, errs.ErrOrderNotFound):
		AbortWithError(c, http.StatusNotFound, err, "Order not found", nil)
	case errs.Is(err, errs.ErrAddressNotFound):
		AbortWithError(c, http.StatusNotFound, err, "Address not found", nil)
	case errs.Is(err, errs.ErrCartNotFound), errs.Is(err, cart.ErrItemNotInCart):
		AbortWithError(c, http.StatusNotFound, err, "Cart item not found", nil)
	case errs.Is(err, errs.ErrCartChanged):
		AbortWithError(c, http.StatusConflict, err, "Cart changed during checkout, please review it and try again", nil)
	case errs.Is(err, errs.ErrCartEmpty):
		AbortWithError(c, http.StatusUnprocessableEntity, err, "Cart is empty", nil)
	case errs.Is(err, cart.ErrInvalidQuantity):
		AbortWithError(c, http.StatusBadRequest, err, "Quantity must be between 1 and 99", nil)
	case errs.Is(err, order.ErrInvalidPaymentMethod):
		AbortWithError(c, http.StatusBadRequest, err, "Invalid payment method", nil)
	case errs.Is(err, errs.ErrDuplicateRequest):
		AbortWithError(c, http.StatusConflict, err, "Idempotency key reused with a different request", nil)
	case errs.Is(err, errs.ErrIdempotencyInProgress):
		AbortWithError(c, http.StatusConflict, err, "Request is currently being processed", nil)
	case errs.Is(err, errs.ErrDomainValidation):
		AbortWithError(c, http.StatusUnprocessableEntity, err, "Domain validation failed", nil)
	default:
		AbortWithError(c, http.StatusInternalServerError, err, fallback, nil)
	}
}
