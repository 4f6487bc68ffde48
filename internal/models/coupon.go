package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Discount types
const (
	DiscountPercentage = "percentage"
	DiscountFixed      = "fixed"
)

// Coupon is a promo code as listed by the backend
type Coupon struct {
	ID            string          `json:"_id" validate:"required"`
	Code          string          `json:"code" validate:"required"`
	Description   string          `json:"description,omitempty"`
	DiscountType  string          `json:"discountType" validate:"oneof=percentage fixed"`
	DiscountValue decimal.Decimal `json:"discountValue"`
	MinOrderValue decimal.Decimal `json:"minOrderValue"`
	IsActive      bool            `json:"isActive"`
	ValidFrom     *time.Time      `json:"validFrom,omitempty"`
	ValidTill     *time.Time      `json:"validTill,omitempty"`
}

// Discount computes the discount the coupon grants on subtotal
func (c *Coupon) Discount(subtotal decimal.Decimal) decimal.Decimal {
	if c.DiscountType == DiscountPercentage {
		return subtotal.Mul(c.DiscountValue).Div(decimal.NewFromInt(100))
	}
	return c.DiscountValue
}
