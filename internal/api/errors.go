package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/ashendes/order-edit/internal/address"
	"github.com/ashendes/order-edit/internal/auth"
	"github.com/ashendes/order-edit/internal/client"
	"github.com/ashendes/order-edit/internal/coupon"
	"github.com/ashendes/order-edit/internal/ledger"
	"github.com/ashendes/order-edit/internal/patterns"
	"github.com/ashendes/order-edit/internal/pricing"
	"github.com/ashendes/order-edit/internal/session"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

var (
	badRequest = []error{
		session.ErrUnknownSection,
		session.ErrInvalidStatus,
		session.ErrNegativeTip,
		session.ErrEmptyOrder,
		ledger.ErrIndexOutOfRange,
		ledger.ErrNegativePrice,
		ledger.ErrNotCustomItem,
		address.ErrStreetRequired,
		address.ErrLocationRequired,
		coupon.ErrNegativePoints,
	}
	notFound = []error{
		client.ErrNotFound,
		session.ErrProductNotFound,
		session.ErrCouponNotFound,
		session.ErrAddressNotFound,
	}
	conflict = []error{
		session.ErrNotLoaded,
		session.ErrNotEditing,
		session.ErrSectionNotActive,
		session.ErrSaveInProgress,
		session.ErrTerminalStatus,
		session.ErrSessionClosed,
		ledger.ErrNoCartReference,
		coupon.ErrNotApplicable,
		pricing.ErrMissingCart,
		pricing.ErrMissingCustomer,
		pricing.ErrMissingRestaurant,
		pricing.ErrStaleResponse,
		address.ErrClosed,
	}
	unavailable = []error{
		patterns.ErrCircuitOpen,
		patterns.ErrBulkheadFull,
		auth.ErrNoCredentials,
	}
)

// statusFor maps an error to the HTTP status reported to the caller
func statusFor(err error) int {
	switch {
	case isAny(err, badRequest):
		return http.StatusBadRequest
	case isAny(err, notFound):
		return http.StatusNotFound
	case isAny(err, conflict):
		return http.StatusConflict
	case isAny(err, unavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}

	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
			return apiErr.StatusCode
		}
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func isAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.WithFields(log.Fields{
			"path":     c.FullPath(),
			"order_id": c.Param("orderId"),
			"status":   status,
		}).Error("Request failed: ", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
