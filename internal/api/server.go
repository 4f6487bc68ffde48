// Package api exposes order edit sessions over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/ashendes/order-edit/internal/client"
	"github.com/ashendes/order-edit/internal/metrics"
	"github.com/ashendes/order-edit/internal/models"
	"github.com/ashendes/order-edit/internal/patterns"
	"github.com/ashendes/order-edit/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// AddressBook manages a customer's saved addresses
type AddressBook interface {
	List(ctx context.Context, customerID string) ([]models.Address, error)
	Create(ctx context.Context, customerID string, addr models.Address) (*models.Address, error)
	Update(ctx context.Context, customerID, addressID string, addr models.Address) (*models.Address, error)
	Delete(ctx context.Context, customerID, addressID string) error
}

// Server holds the handlers' collaborators
type Server struct {
	sessions  *session.Registry
	addresses AddressBook
	circuits  func() []client.CircuitStatus
}

// NewServer creates the API. circuits may be nil.
func NewServer(sessions *session.Registry, addresses AddressBook, circuits func() []client.CircuitStatus) *Server {
	if circuits == nil {
		circuits = func() []client.CircuitStatus { return nil }
	}
	return &Server{sessions: sessions, addresses: addresses, circuits: circuits}
}

// Router builds the gin engine with every route registered
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestID(), requestLogger())
	router.Use(metrics.PrometheusMiddleware(patterns.ServiceName))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "sessions": s.sessions.Len()})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/circuits", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"circuits": s.circuits()})
	})

	orders := router.Group("/orders/:orderId")
	{
		orders.GET("", s.getSession)
		orders.POST("/reload", s.reload)
		orders.DELETE("/session", s.closeSession)
		orders.PATCH("/status", s.updateStatus)

		orders.POST("/edit", s.startEdit)
		orders.PUT("/edit/section", s.switchSection)
		orders.POST("/edit/save", s.save)
		orders.POST("/edit/cancel", s.cancel)

		orders.GET("/menu", s.searchMenu)
		orders.POST("/items", s.addItem)
		orders.POST("/items/custom", s.addCustomItem)
		orders.PATCH("/items/:index", s.updateItem)
		orders.DELETE("/items/:index", s.removeItem)

		orders.POST("/address/query", s.queryAddress)
		orders.GET("/address/search", s.searchAddress)
		orders.POST("/address/select", s.selectAddress)
		orders.POST("/address/new", s.newAddress)
		orders.PATCH("/address", s.updateAddress)
		orders.GET("/address/saved", s.savedAddresses)

		orders.PUT("/additional-info", s.setAdditionalInfo)
		orders.PUT("/tip", s.setTip)
		orders.GET("/coupons", s.listCoupons)
		orders.POST("/coupon", s.applyCoupon)
		orders.DELETE("/coupon", s.removeCoupon)
		orders.PUT("/loyalty", s.setLoyalty)
		orders.POST("/pricing/retry", s.retryPricing)
	}

	book := router.Group("/customers/:customerId/addresses")
	{
		book.GET("", s.listAddresses)
		book.POST("", s.createAddress)
		book.PUT("/:addressId", s.updateSavedAddress)
		book.DELETE("/:addressId", s.deleteAddress)
	}

	return router
}
