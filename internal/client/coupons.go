package client

import (
	"context"
	"net/http"

	"github.com/ashendes/order-edit/internal/models"
)

// CouponClient lists promo codes
type CouponClient struct {
	c *collaborator
}

func NewCouponClient(b *Backend) *CouponClient {
	return &CouponClient{c: b.collaborator("PromoCodes")}
}

// ListCoupons returns every promo code known to the backend
func (cc *CouponClient) ListCoupons(ctx context.Context) ([]models.Coupon, error) {
	var coupons []models.Coupon
	if err := cc.c.call(ctx, http.MethodGet, "/promocodes", nil, &coupons); err != nil {
		return nil, err
	}
	for i := range coupons {
		if err := validated(cc.c.name, &coupons[i]); err != nil {
			return nil, err
		}
	}
	return coupons, nil
}
