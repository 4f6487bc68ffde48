package sandbox

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ashendes/order-edit/internal/auth"
	"github.com/ashendes/order-edit/internal/config"
	"github.com/ashendes/order-edit/internal/metrics"
	"github.com/ashendes/order-edit/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// ServiceName labels the sandbox metrics
const ServiceName = "backend-sandbox"

type envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Options configures a sandbox server
type Options struct {
	// Auth lists the credentials accepted from callers. Requests are not
	// authenticated when it is empty.
	Auth        config.AuthConfig
	Chaos       bool
	SlowMode    bool
	FailureRate float64
	Now         func() time.Time
}

// Server serves a Store over the backend REST contract
type Server struct {
	store *Store
	auth  config.AuthConfig
	chaos *chaos
	now   func() time.Time
}

func NewServer(store *Store, opts Options) *Server {
	s := &Server{
		store: store,
		auth:  opts.Auth,
		chaos: newChaos(opts.FailureRate),
		now:   opts.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.chaos.setEnabled(opts.Chaos)
	s.chaos.setSlowMode(opts.SlowMode)
	return s
}

// Router builds the gin engine. Backend routes live under /api.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(metrics.PrometheusMiddleware(ServiceName))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	router.GET("/status", s.getStatus)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/chaos/enable", s.enableChaos)
	router.POST("/chaos/disable", s.disableChaos)
	router.POST("/chaos/slow", s.enableSlowMode)
	router.POST("/chaos/slow/disable", s.disableSlowMode)

	api := router.Group("/api", s.authenticate(), s.chaos.middleware())
	{
		api.GET("/orders/:orderId", s.getOrder)
		api.PATCH("/orders/:orderId", s.updateOrder)
		api.PATCH("/orders/:orderId/status", s.updateStatus)

		api.POST("/cart/add", s.addToCart)
		api.POST("/cart/pricesummary", s.priceSummary)
		api.PUT("/cart/:cartId/items/:productId", s.updateCartItem)
		api.DELETE("/cart/:cartId/items/:productId", s.removeCartItem)

		api.GET("/restaurants/:restaurantId/menu", s.getMenu)
		api.GET("/promocodes", s.listCoupons)

		api.GET("/customers/:customerId/addresses", s.listAddresses)
		api.POST("/customers/:customerId/addresses", s.createAddress)
		api.PUT("/customers/:customerId/addresses/:addressId", s.updateAddress)
		api.DELETE("/customers/:customerId/addresses/:addressId", s.deleteAddress)
	}

	return router
}

// authenticate accepts the configured static token or a service JWT signed
// with the configured secret
func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.auth.StaticToken == "" && s.auth.JWTSecret == "" {
			c.Next()
			return
		}

		token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if token != "" && s.auth.StaticToken != "" && token == s.auth.StaticToken {
			c.Next()
			return
		}
		if token != "" && s.auth.JWTSecret != "" {
			if claims, err := auth.Verify(s.auth.JWTSecret, token); err == nil {
				c.Set("subject", claims.Subject)
				c.Next()
				return
			}
		}

		log.WithField("path", c.Request.URL.Path).Warn("Rejected unauthenticated request")
		c.AbortWithStatusJSON(http.StatusUnauthorized, envelope{Success: false, Message: "Unauthorized"})
	}
}

func ok(c *gin.Context, status int, data interface{}) {
	c.JSON(status, envelope{Success: true, Data: data})
}

func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrNotEditable):
		status = http.StatusConflict
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrCouponInvalid):
		status = http.StatusBadRequest
	}
	c.JSON(status, envelope{Success: false, Message: err.Error()})
}

func bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, envelope{Success: false, Message: "Invalid request: " + err.Error()})
		return false
	}
	return true
}

func (s *Server) getStatus(c *gin.Context) {
	enabled, slow := s.chaos.state()
	c.JSON(http.StatusOK, gin.H{
		"service":         ServiceName,
		"status":          "healthy",
		"chaos_enabled":   enabled,
		"chaos_slow_mode": slow,
		"timestamp":       s.now().Format(time.RFC3339),
	})
}

func (s *Server) enableChaos(c *gin.Context) {
	s.chaos.setEnabled(true)

	log.Info("Chaos mode ENABLED for backend sandbox")
	c.JSON(http.StatusOK, gin.H{
		"message": "Chaos mode enabled",
		"info":    "a share of requests will fail randomly",
	})
}

func (s *Server) disableChaos(c *gin.Context) {
	s.chaos.setEnabled(false)
	s.chaos.setSlowMode(false)

	log.Info("Chaos mode DISABLED for backend sandbox")
	c.JSON(http.StatusOK, gin.H{"message": "Chaos mode disabled"})
}

func (s *Server) enableSlowMode(c *gin.Context) {
	s.chaos.setSlowMode(true)

	log.Info("Slow mode ENABLED for backend sandbox")
	c.JSON(http.StatusOK, gin.H{
		"message": "Slow mode enabled",
		"info":    "Requests will have 2-5 second delays",
	})
}

func (s *Server) disableSlowMode(c *gin.Context) {
	s.chaos.setSlowMode(false)

	log.Info("Slow mode DISABLED for backend sandbox")
	c.JSON(http.StatusOK, gin.H{"message": "Slow mode disabled"})
}

// Orders

func (s *Server) getOrder(c *gin.Context) {
	order, err := s.store.Order(c.Param("orderId"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, order)
}

func (s *Server) updateOrder(c *gin.Context) {
	var req models.OrderUpdate
	if !bind(c, &req) {
		return
	}
	order, err := s.store.UpdateOrder(c.Param("orderId"), req)
	if err != nil {
		fail(c, err)
		return
	}

	log.WithFields(log.Fields{
		"order_id":   order.ID,
		"request_id": c.GetHeader("X-Request-ID"),
	}).Info("Order updated")

	ok(c, http.StatusOK, order)
}

func (s *Server) updateStatus(c *gin.Context) {
	var req models.StatusUpdate
	if !bind(c, &req) {
		return
	}
	order, err := s.store.UpdateStatus(c.Param("orderId"), req.Status)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, order)
}

// Cart

func (s *Server) addToCart(c *gin.Context) {
	var req models.AddToCartRequest
	if !bind(c, &req) {
		return
	}
	cartID, err := s.store.AddToCart(req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, models.AddToCartResponse{CartID: cartID})
}

func (s *Server) updateCartItem(c *gin.Context) {
	var req models.UpdateCartItemRequest
	if !bind(c, &req) {
		return
	}
	if err := s.store.UpdateCartItem(c.Param("cartId"), c.Param("productId"), req.Quantity); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, nil)
}

func (s *Server) removeCartItem(c *gin.Context) {
	if err := s.store.RemoveCartItem(c.Param("cartId"), c.Param("productId")); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, nil)
}

func (s *Server) priceSummary(c *gin.Context) {
	var req models.PriceSummaryRequest
	if !bind(c, &req) {
		return
	}
	summary, err := s.store.PriceSummary(req, s.now())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, summary)
}

// Catalog

func (s *Server) getMenu(c *gin.Context) {
	menu, err := s.store.Menu(c.Param("restaurantId"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, menu)
}

func (s *Server) listCoupons(c *gin.Context) {
	ok(c, http.StatusOK, s.store.Coupons())
}

// Address book

func (s *Server) listAddresses(c *gin.Context) {
	ok(c, http.StatusOK, s.store.Addresses(c.Param("customerId")))
}

func (s *Server) createAddress(c *gin.Context) {
	var req models.Address
	if !bind(c, &req) {
		return
	}
	created, err := s.store.CreateAddress(c.Param("customerId"), req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, created)
}

func (s *Server) updateAddress(c *gin.Context) {
	var req models.Address
	if !bind(c, &req) {
		return
	}
	updated, err := s.store.UpdateAddress(c.Param("customerId"), c.Param("addressId"), req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, updated)
}

func (s *Server) deleteAddress(c *gin.Context) {
	if err := s.store.DeleteAddress(c.Param("customerId"), c.Param("addressId")); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, nil)
}
