package api

import (
	"net/http"
	"strconv"

	"storefront-checkout/internal/domain/order"
	reqdto "storefront-checkout/internal/handler/dto/request"
	resdto "storefront-checkout/internal/handler/dto/response"
	"storefront-checkout/internal/handler/httperr"
	"storefront-checkout/internal/handler/middleware"
	"storefront-checkout/internal/pkg/errs"
	"storefront-checkout/internal/usecase/commands"
	"storefront-checkout/internal/usecase/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type OrderHandler struct {
	orders   commands.OrderCommands
	payments commands.PaymentCommands
	q        queries.OrderQueries
}

func NewOrderHandler(orders commands.OrderCommands, payments commands.PaymentCommands, q queries.OrderQueries) *OrderHandler {
	return &OrderHandler{orders: orders, payments: payments, q: q}
}

// @Summary List my orders
// @Description List the caller's orders, newest first, with keyset pagination
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status"
// @Param limit query int false "Max items (default 20)"
// @Param after query string false "Cursor for keyset pagination"
// @Success 200 {array} resdto.OrderListItemResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /orders [get]
func (h *OrderHandler) List(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		httperr.AbortWithError(c, http.StatusUnauthorized, nil, "Unauthorized", nil)
		return
	}
	var status *string
	if v := c.Query("status"); v != "" {
		if _, err := order.ParseStatus(v); err != nil {
			httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid status", nil)
			return
		}
		status = &v
	}
	limit := 20
	if v := c.Query("limit"); v != "" {
		if iv, e := strconv.Atoi(v); e == nil {
			limit = queries.ValidateLimit(iv)
		}
	}
	var cursor *queries.Cursor
	if after := c.Query("after"); after != "" {
		cursor = &queries.Cursor{After: after}
	}
	items, next, err := h.q.ListByUser(c.Request.Context(), userID, status, cursor, limit)
	if err != nil {
		if errs.Is(err, queries.ErrInvalidCursor) {
			httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid cursor", nil)
			return
		}
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal error", nil)
		return
	}
	resp := gin.H{"orders": resdto.FromOrderList(items)}
	if next != nil {
		resp["next_cursor"] = next.After
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Get order
// @Description Get an order by ID. Customers only see their own orders.
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Success 200 {object} resdto.OrderResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /orders/{id} [get]
func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := parseOrderID(c)
	if !ok {
		return
	}
	actorID, _ := middleware.GetUserID(c)
	view, err := h.q.GetByID(c.Request.Context(), actorID, middleware.IsStaff(c), id)
	if err != nil {
		httperr.AbortWithDomainError(c, err, "Failed to load order")
		return
	}
	writeOrder(c, view)
}

// @Summary Cancel order
// @Description Cancel an unpaid or paid order that has not shipped. Stock is restored.
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Success 200 {object} resdto.OrderResponse
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /orders/{id}/cancel [post]
func (h *OrderHandler) Cancel(c *gin.Context) {
	id, ok := parseOrderID(c)
	if !ok {
		return
	}
	userID, _ := middleware.GetUserID(c)
	o, err := h.orders.Cancel(c.Request.Context(), userID, id)
	if err != nil {
		httperr.AbortWithDomainError(c, err, "Cancel failed")
		return
	}
	writeOrder(c, queries.ToOrderView(o))
}

// @Summary Retry payment
// @Description Open a new payment session for an order still awaiting payment
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Success 200 {object} resdto.OrderResponse
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /orders/{id}/payment/retry [post]
func (h *OrderHandler) RetryPayment(c *gin.Context) {
	id, ok := parseOrderID(c)
	if !ok {
		return
	}
	userID, _ := middleware.GetUserID(c)
	o, err := h.payments.RetryPayment(c.Request.Context(), userID, id)
	if err != nil {
		httperr.AbortWithDomainError(c, err, "Payment retry failed")
		return
	}
	writeOrder(c, queries.ToOrderView(o))
}

// @Summary Start processing
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Success 200 {object} resdto.OrderResponse
// @Failure 409 {object} map[string]string
// @Router /admin/orders/{id}/processing [post]
func (h *OrderHandler) MarkProcessing(c *gin.Context) {
	h.transition(c, order.StatusProcessing, nil)
}

// @Summary Ship order
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Param request body reqdto.ShipOrderRequest true "Tracking"
// @Success 200 {object} resdto.OrderResponse
// @Failure 409 {object} map[string]string
// @Router /admin/orders/{id}/ship [post]
func (h *OrderHandler) Ship(c *gin.Context) {
	var req reqdto.ShipOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request", nil)
		return
	}
	h.transition(c, order.StatusShipped, &req)
}

// @Summary Mark delivered
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Success 200 {object} resdto.OrderResponse
// @Failure 409 {object} map[string]string
// @Router /admin/orders/{id}/deliver [post]
func (h *OrderHandler) Deliver(c *gin.Context) {
	h.transition(c, order.StatusDelivered, nil)
}

// @Summary Refund order
// @Description Refund a paid order before it ships. Stock is restored.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Success 200 {object} resdto.OrderResponse
// @Failure 409 {object} map[string]string
// @Router /admin/orders/{id}/refund [post]
func (h *OrderHandler) Refund(c *gin.Context) {
	h.transition(c, order.StatusRefunded, nil)
}

func (h *OrderHandler) transition(c *gin.Context, to order.Status, ship *reqdto.ShipOrderRequest) {
	id, ok := parseOrderID(c)
	if !ok {
		return
	}
	req := commands.TransitionRequest{OrderID: id, To: to}
	if ship != nil {
		req.Courier = ship.Courier
		req.TrackingNumber = ship.TrackingNumber
	}
	o, err := h.orders.Transition(c.Request.Context(), req)
	if err != nil {
		httperr.AbortWithDomainError(c, err, "Order update failed")
		return
	}
	writeOrder(c, queries.ToOrderView(o))
}

func writeOrder(c *gin.Context, view *queries.OrderView) {
	res, err := resdto.FromOrderView(view)
	if err != nil {
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Failed to build response", nil)
		return
	}
	c.JSON(http.StatusOK, res)
}

func parseOrderID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid order id", nil)
		return uuid.Nil, false
	}
	return id, true
}
