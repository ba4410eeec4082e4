package api

import (
	"net/http"

	reqdto "storefront-checkout/internal/handler/dto/request"
	resdto "storefront-checkout/internal/handler/dto/response"
	"storefront-checkout/internal/handler/httperr"
	"storefront-checkout/internal/handler/middleware"
	"storefront-checkout/internal/usecase/commands"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const idempotencyKeyHeader = "Idempotency-Key"

type CheckoutHandler struct {
	checkout commands.CheckoutCommands
	vouchers commands.VoucherValidator
}

func NewCheckoutHandler(checkout commands.CheckoutCommands, vouchers commands.VoucherValidator) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout, vouchers: vouchers}
}

// @Summary Checkout
// @Description Turn the caller's cart into an order. Reserves stock, applies at most one voucher and opens a payment session.
// @Tags checkout
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string false "Replays the original order when repeated"
// @Param request body reqdto.CheckoutRequest true "Checkout request"
// @Success 201 {object} resdto.CheckoutResponse
// @Success 200 {object} resdto.CheckoutResponse "Replayed"
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /checkout [post]
func (h *CheckoutHandler) Checkout(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		httperr.AbortWithError(c, http.StatusUnauthorized, nil, "Unauthorized", nil)
		return
	}

	var key *uuid.UUID
	if raw := c.GetHeader(idempotencyKeyHeader); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			httperr.AbortWithError(c, http.StatusBadRequest, err, "Idempotency-Key must be a UUID", nil)
			return
		}
		key = &parsed
	}

	var req reqdto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request", nil)
		return
	}

	result, err := h.checkout.Checkout(c.Request.Context(), req.ToCommand(userID, key))
	if err != nil {
		httperr.AbortWithDomainError(c, err, "Checkout failed")
		return
	}

	status := http.StatusCreated
	if result.IsReplayed {
		status = http.StatusOK
	}
	res, err := resdto.FromCheckoutResult(result)
	if err != nil {
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Failed to build response", nil)
		return
	}
	c.JSON(status, res)
}

// @Summary Preview voucher
// @Description Validate a voucher against the caller's cart at current prices without using it
// @Tags checkout
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body reqdto.PreviewVoucherRequest true "Voucher code"
// @Success 200 {object} resdto.VoucherPreviewResponse
// @Failure 422 {object} map[string]string
// @Router /vouchers/preview [post]
func (h *CheckoutHandler) PreviewVoucher(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		httperr.AbortWithError(c, http.StatusUnauthorized, nil, "Unauthorized", nil)
		return
	}
	var req reqdto.PreviewVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request", nil)
		return
	}
	preview, err := h.vouchers.Preview(c.Request.Context(), userID, req.Code)
	if err != nil {
		httperr.AbortWithDomainError(c, err, "Voucher preview failed")
		return
	}
	c.JSON(http.StatusOK, resdto.FromVoucherPreview(preview))
}
