package api

import (
	"log/slog"
	"net/http"

	"storefront-checkout/internal/domain/cart"
	reqdto "storefront-checkout/internal/handler/dto/request"
	resdto "storefront-checkout/internal/handler/dto/response"
	"storefront-checkout/internal/handler/httperr"
	"storefront-checkout/internal/handler/middleware"
	"storefront-checkout/internal/pkg/config"
	"storefront-checkout/internal/pkg/cookie"
	"storefront-checkout/internal/usecase/commands"
	"storefront-checkout/internal/usecase/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CartHandler struct {
	cmds   commands.CartCommands
	q      queries.CartQueries
	cfg    config.Config
	logger *slog.Logger
}

func NewCartHandler(cmds commands.CartCommands, q queries.CartQueries, cfg config.Config, logger *slog.Logger) *CartHandler {
	return &CartHandler{cmds: cmds, q: q, cfg: cfg, logger: logger}
}

// @Summary Get cart
// @Description Get the caller's cart. Guests are identified by the X-Session-ID header or cart_session cookie.
// @Tags cart
// @Produce json
// @Param X-Session-ID header string false "Guest cart session"
// @Success 200 {object} resdto.CartResponse
// @Router /cart [get]
func (h *CartHandler) Get(c *gin.Context) {
	owner, ok := h.resolveOwner(c, false)
	if !ok {
		writeCart(c, &queries.CartView{})
		return
	}
	view, err := h.q.Get(c.Request.Context(), owner)
	if err != nil {
		httperr.AbortWithDomainError(c, err, "Failed to load cart")
		return
	}
	writeCart(c, view)
}

// @Summary Add cart item
// @Description Add a variant to the cart, merging quantities when it is already there
// @Tags cart
// @Accept json
// @Produce json
// @Param request body reqdto.AddCartItemRequest true "Item"
// @Success 200 {object} resdto.CartResponse
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /cart/items [post]
func (h *CartHandler) AddItem(c *gin.Context) {
	var req reqdto.AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request", nil)
		return
	}
	owner, _ := h.resolveOwner(c, true)
	if err := h.cmds.AddItem(c.Request.Context(), owner, req.VariantID, req.Quantity); err != nil {
		httperr.AbortWithDomainError(c, err, "Add to cart failed")
		return
	}
	h.respondWithCart(c, owner)
}

// @Summary Update cart item
// @Description Set the quantity of a cart line
// @Tags cart
// @Accept json
// @Produce json
// @Param variant_id path string true "Variant ID"
// @Param request body reqdto.UpdateCartItemRequest true "Quantity"
// @Success 200 {object} resdto.CartResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /cart/items/{variant_id} [patch]
func (h *CartHandler) UpdateItem(c *gin.Context) {
	variantID, err := uuid.Parse(c.Param("variant_id"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid variant id", nil)
		return
	}
	var req reqdto.UpdateCartItemRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, bindErr, "Invalid request", nil)
		return
	}
	owner, ok := h.resolveOwner(c, false)
	if !ok {
		httperr.AbortWithError(c, http.StatusNotFound, nil, "Cart item not found", nil)
		return
	}
	if err := h.cmds.UpdateItem(c.Request.Context(), owner, variantID, req.Quantity); err != nil {
		httperr.AbortWithDomainError(c, err, "Update cart failed")
		return
	}
	h.respondWithCart(c, owner)
}

// @Summary Remove cart item
// @Tags cart
// @Produce json
// @Param variant_id path string true "Variant ID"
// @Success 200 {object} resdto.CartResponse
// @Failure 404 {object} map[string]string
// @Router /cart/items/{variant_id} [delete]
func (h *CartHandler) RemoveItem(c *gin.Context) {
	variantID, err := uuid.Parse(c.Param("variant_id"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid variant id", nil)
		return
	}
	owner, ok := h.resolveOwner(c, false)
	if !ok {
		httperr.AbortWithError(c, http.StatusNotFound, nil, "Cart item not found", nil)
		return
	}
	if err := h.cmds.RemoveItem(c.Request.Context(), owner, variantID); err != nil {
		httperr.AbortWithDomainError(c, err, "Remove from cart failed")
		return
	}
	h.respondWithCart(c, owner)
}

// @Summary Clear cart
// @Tags cart
// @Success 204 "No Content"
// @Router /cart [delete]
func (h *CartHandler) Clear(c *gin.Context) {
	owner, ok := h.resolveOwner(c, false)
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}
	if err := h.cmds.Clear(c.Request.Context(), owner); err != nil {
		httperr.AbortWithDomainError(c, err, "Clear cart failed")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CartHandler) respondWithCart(c *gin.Context, owner cart.Owner) {
	view, err := h.q.Get(c.Request.Context(), owner)
	if err != nil {
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Failed to load cart", nil)
		return
	}
	writeCart(c, view)
}

// resolveOwner prefers the authenticated user. A guest session seen together
// with a login is merged into the user's cart once and then forgotten. With
// create set, a guest without a session gets a fresh one.
func (h *CartHandler) resolveOwner(c *gin.Context, create bool) (cart.Owner, bool) {
	sessionID, hasSession := cookie.GetCartSession(c)

	if userID, ok := middleware.GetUserID(c); ok {
		if hasSession {
			if err := h.cmds.MergeGuest(c.Request.Context(), sessionID, userID); err != nil {
				// the guest cart stays and merging is retried on the next request
				h.logger.WarnContext(c.Request.Context(), "guest cart merge failed",
					"session_id", sessionID, "user_id", userID, "error", err)
			} else {
				cookie.ClearCartSession(c, h.cfg.Cookie)
			}
		}
		return cart.UserOwner(userID), true
	}

	if hasSession {
		return cart.SessionOwner(sessionID), true
	}
	if !create {
		return cart.Owner{}, false
	}
	sessionID = uuid.New()
	cookie.SetCartSession(c, h.cfg.Cookie, sessionID, h.cfg.Checkout.GuestCartTTL)
	c.Header(cookie.CartSessionHeader, sessionID.String())
	return cart.SessionOwner(sessionID), true
}

func writeCart(c *gin.Context, view *queries.CartView) {
	res, err := resdto.FromCartView(view)
	if err != nil {
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Failed to build response", nil)
		return
	}
	c.JSON(http.StatusOK, res)
}
