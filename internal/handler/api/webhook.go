package api

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	reqdto "storefront-checkout/internal/handler/dto/request"
	"storefront-checkout/internal/handler/httperr"
	"storefront-checkout/internal/pkg/config"
	"storefront-checkout/internal/pkg/errs"
	"storefront-checkout/internal/usecase/commands"
	"storefront-checkout/internal/usecase/shared"

	"github.com/gin-gonic/gin"
)

const (
	webhookSecretHeader   = "X-Webhook-Secret"
	dedupScopeWebhook     = "payment-webhook"
	webhookStatusAccepted = "accepted"
)

type WebhookHandler struct {
	queue  commands.PaymentEventQueue
	dedup  shared.Deduper
	secret string
	logger *slog.Logger
}

func NewWebhookHandler(queue commands.PaymentEventQueue, dedup shared.Deduper, cfg config.Config, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{queue: queue, dedup: dedup, secret: cfg.Payment.WebhookSecret, logger: logger}
}

// @Summary Payment notification
// @Description Provider callback. The event is queued and applied asynchronously; replays are acknowledged without effect.
// @Tags webhooks
// @Accept json
// @Produce json
// @Param X-Webhook-Secret header string true "Shared secret"
// @Param request body reqdto.PaymentWebhookRequest true "Notification"
// @Success 202 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /webhooks/payments [post]
func (h *WebhookHandler) Payment(c *gin.Context) {
	got := c.GetHeader(webhookSecretHeader)
	if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) != 1 {
		httperr.AbortWithError(c, http.StatusUnauthorized, nil, "Invalid webhook secret", nil)
		return
	}

	var req reqdto.PaymentWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request", nil)
		return
	}
	ctx := c.Request.Context()
	dedupID := req.TransactionID + ":" + req.Status

	first, err := h.dedup.FirstSeen(ctx, dedupScopeWebhook, dedupID)
	if err != nil {
		h.logger.WarnContext(ctx, "webhook dedup lookup failed", "transaction_id", req.TransactionID, "error", err)
		first = true
	}
	if !first {
		c.JSON(http.StatusOK, gin.H{"status": "duplicate"})
		return
	}

	err = h.queue.Enqueue(ctx, req.ToEvent())
	switch {
	case err == nil:
		c.JSON(http.StatusAccepted, gin.H{"status": webhookStatusAccepted})
	case errs.Is(err, errs.ErrOrderNotFound),
		errs.Is(err, errs.ErrIllegalStateTransition),
		errs.Is(err, errs.ErrDomainValidation):
		// the provider must stop retrying a notification we will never apply
		h.logger.WarnContext(ctx, "payment notification ignored",
			"order_id", req.OrderID, "transaction_id", req.TransactionID, "status", req.Status, "error", err)
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
	default:
		if ferr := h.dedup.Forget(ctx, dedupScopeWebhook, dedupID); ferr != nil {
			h.logger.WarnContext(ctx, "webhook dedup forget failed", "transaction_id", req.TransactionID, "error", ferr)
		}
		httperr.AbortWithError(c, http.StatusServiceUnavailable, err, "Payment notification not accepted, retry", nil)
	}
}
