package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"storefront-checkout/internal/domain/user"
	"storefront-checkout/internal/handler/api"
	"storefront-checkout/internal/handler/middleware"
	"storefront-checkout/internal/pkg/config"
)

type route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
	Mw      []gin.HandlerFunc
}

// Handlers groups every API handler so the router signature stays stable as
// endpoints are added.
type Handlers struct {
	Cart         *api.CartHandler
	Checkout     *api.CheckoutHandler
	Order        *api.OrderHandler
	Availability *api.AvailabilityHandler
	Webhook      *api.WebhookHandler
}

func NewRouter(engine *gin.Engine, cfg config.Config, h Handlers, authMiddleware *middleware.AuthMiddleware) {
	setupMiddleware(engine, cfg)
	setupRoutes(engine, h, authMiddleware)
}

func setupMiddleware(engine *gin.Engine, cfg config.Config) {
	// Recovery must be first (outermost) to catch panics from all other middleware
	engine.Use(middleware.CustomRecovery())
	engine.Use(middleware.NewCORSMiddleware(cfg.CORS))
	engine.Use(middleware.LoggingMiddleware(nil, cfg.Log))
	engine.Use(middleware.ErrorHandler())
}

func setupRoutes(engine *gin.Engine, h Handlers, authMiddleware *middleware.AuthMiddleware) {
	engine.GET("/health", healthCheck)

	if gin.Mode() == gin.DebugMode {
		engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	apiGroup := engine.Group("/api")
	{
		cart := apiGroup.Group("/cart")
		cart.Use(authMiddleware.OptionalAuth())
		{
			addRoutes(cart, []route{
				{Method: http.MethodGet, Path: "", Handler: h.Cart.Get},
				{Method: http.MethodDelete, Path: "", Handler: h.Cart.Clear},
				{Method: http.MethodPost, Path: "/items", Handler: h.Cart.AddItem},
				{Method: http.MethodPatch, Path: "/items/:variant_id", Handler: h.Cart.UpdateItem},
				{Method: http.MethodDelete, Path: "/items/:variant_id", Handler: h.Cart.RemoveItem},
			})
		}

		addRoutes(apiGroup, []route{
			{Method: http.MethodGet, Path: "/variants/:id/availability", Handler: h.Availability.Get},
			{Method: http.MethodPost, Path: "/webhooks/payments", Handler: h.Webhook.Payment},
		})

		customer := apiGroup.Group("")
		customer.Use(authMiddleware.RequireAuth())
		{
			addRoutes(customer, []route{
				{Method: http.MethodPost, Path: "/checkout", Handler: h.Checkout.Checkout},
				{Method: http.MethodPost, Path: "/vouchers/preview", Handler: h.Checkout.PreviewVoucher},
				{Method: http.MethodGet, Path: "/orders", Handler: h.Order.List},
				{Method: http.MethodGet, Path: "/orders/:id", Handler: h.Order.Get},
				{Method: http.MethodPost, Path: "/orders/:id/cancel", Handler: h.Order.Cancel},
				{Method: http.MethodPost, Path: "/orders/:id/payment/retry", Handler: h.Order.RetryPayment},
			})
		}

		admin := apiGroup.Group("/admin/orders")
		admin.Use(authMiddleware.RequireAuth(), authMiddleware.RequireRoleAtLeast(user.RoleStaff))
		{
			addRoutes(admin, []route{
				{Method: http.MethodPost, Path: "/:id/processing", Handler: h.Order.MarkProcessing},
				{Method: http.MethodPost, Path: "/:id/ship", Handler: h.Order.Ship},
				{Method: http.MethodPost, Path: "/:id/deliver", Handler: h.Order.Deliver},
				{Method: http.MethodPost, Path: "/:id/refund", Handler: h.Order.Refund, Mw: []gin.HandlerFunc{
					authMiddleware.RequireRoleAtLeast(user.RoleAdmin),
				}},
			})
		}
	}
}

// @Summary Health check
// @Description Check if the service is healthy
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Service is healthy",
	})
}

func addRoutes(g *gin.RouterGroup, rs []route) {
	for _, r := range rs {
		h := r.Handler
		if len(r.Mw) > 0 {
			h = chainHandlers(append(r.Mw, r.Handler)...)
		}
		switch r.Method {
		case http.MethodGet:
			g.GET(r.Path, h)
		case http.MethodPost:
			g.POST(r.Path, h)
		case http.MethodPut:
			g.PUT(r.Path, h)
		case http.MethodPatch:
			g.PATCH(r.Path, h)
		case http.MethodDelete:
			g.DELETE(r.Path, h)
		default:
			g.Any(r.Path, h)
		}
	}
}

func chainHandlers(hs ...gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, h := range hs {
			h(c)
			if c.IsAborted() {
				return
			}
		}
	}
}
