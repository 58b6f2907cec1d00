package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"storefront/internal/catalog"
	"storefront/internal/service"
	"storefront/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Pinger is a dependency checked by /ready
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services bundles what the handlers call into
type Services struct {
	Catalog  *catalog.Catalog
	Cart     *service.CartService
	Checkout *service.CheckoutService
	Orders   *service.OrderService
	Profiles *service.ProfileService
	Auth     *service.AuthService
	Chat     *service.ChatService
}

// Handler contains HTTP handlers
type Handler struct {
	catalog  *catalog.Catalog
	cart     *service.CartService
	checkout *service.CheckoutService
	orders   *service.OrderService
	profiles *service.ProfileService
	auth     *service.AuthService
	chat     *service.ChatService
	checks   map[string]Pinger
	logger   *zap.Logger
}

// NewHandler creates a new HTTP handler. checks are pinged by /ready.
func NewHandler(svc Services, checks map[string]Pinger) *Handler {
	return &Handler{
		catalog:  svc.Catalog,
		cart:     svc.Cart,
		checkout: svc.Checkout,
		orders:   svc.Orders,
		profiles: svc.Profiles,
		auth:     svc.Auth,
		chat:     svc.Chat,
		checks:   checks,
		logger:   util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) error {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := service.RegisterValidations(v); err != nil {
			return err
		}
	}

	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/products", h.listProducts)
		v1.GET("/products/:id", h.getProduct)
		v1.GET("/categories", h.listCategories)

		v1.POST("/auth/signup", h.signup)
		v1.POST("/auth/login", h.login)
		v1.POST("/auth/logout", h.requireAuth(), h.logout)
		v1.GET("/auth/me", h.requireAuth(), h.me)

		cart := v1.Group("/cart", h.optionalAuth())
		{
			cart.GET("", h.getCart)
			cart.POST("/items", h.addCartItem)
			cart.PATCH("/items/:productId", h.updateCartItem)
			cart.DELETE("/items/:productId", h.removeCartItem)
			cart.DELETE("", h.clearCart)
		}

		v1.POST("/checkout", h.requireAuth(), h.placeOrder)

		orders := v1.Group("/orders", h.requireAuth())
		{
			orders.GET("", h.listMyOrders)
			orders.GET("/:id", h.getMyOrder)
			orders.POST("/:id/cancel", h.cancelOrder)
		}

		account := v1.Group("/account", h.requireAuth())
		{
			account.GET("/addresses", h.listAddresses)
			account.POST("/addresses", h.addAddress)
			account.PUT("/addresses/:id", h.updateAddress)
			account.DELETE("/addresses/:id", h.deleteAddress)
			account.POST("/addresses/:id/default", h.setDefaultAddress)

			account.GET("/payment-methods", h.listPaymentMethods)
			account.POST("/payment-methods", h.addPaymentMethod)
			account.PUT("/payment-methods/:id", h.updatePaymentMethod)
			account.DELETE("/payment-methods/:id", h.deletePaymentMethod)
			account.POST("/payment-methods/:id/default", h.setDefaultPaymentMethod)
		}

		admin := v1.Group("/admin", h.requireAuth(), h.requireRole(adminRole))
		{
			admin.GET("/orders", h.adminListOrders)
			admin.GET("/orders/stats", h.adminOrderStats)
			admin.GET("/orders/:id", h.adminGetOrder)
			admin.PATCH("/orders/:id/status", h.adminAdvanceStatus)
			admin.PATCH("/users/:id/role", h.adminUpdateRole)
		}

		v1.GET("/chat/welcome", h.chatWelcome)
		v1.POST("/chat", h.chatReply)
	}

	export := router.Group("/api/export", h.requireAuth(), h.requireRole(adminRole))
	{
		export.GET("/products", h.exportProducts)
		export.GET("/orders", h.exportOrders)
	}
	return nil
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck pings every dependency
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := gin.H{}
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			h.logger.Warn("Readiness check failed", zap.String("dependency", name), zap.Error(err))
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"failed": failed,
			"time":   time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
