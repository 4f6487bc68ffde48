package sandbox

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ashendes/order-edit/internal/coupon"
	"github.com/ashendes/order-edit/internal/models"
	"github.com/shopspring/decimal"
)

// Pricing rates of the sandbox
var (
	PackingPerLine = decimal.NewFromInt(5)
	TaxRate        = decimal.RequireFromString("0.05")
	BaseDelivery   = decimal.NewFromInt(20)
	DeliveryPerKm  = decimal.NewFromInt(8)
	// PointsPerEarn is the amount spent per loyalty point earned
	PointsPerEarn = decimal.NewFromInt(10)
)

const earthRadiusKm = 6371.0

// PriceSummary computes the price breakdown of a cart. One loyalty point
// redeems one currency unit.
func (s *Store) PriceSummary(req models.PriceSummaryRequest, now time.Time) (*models.PriceSummary, error) {
	if req.TipAmount.IsNegative() {
		return nil, fmt.Errorf("%w: tip must not be negative", ErrInvalidInput)
	}
	if req.LoyaltyPointsToRedeem < 0 {
		return nil, fmt.Errorf("%w: loyalty points must not be negative", ErrInvalidInput)
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	c, ok := s.carts[req.CartID]
	if !ok {
		return nil, fmt.Errorf("%w: cart %s", ErrNotFound, req.CartID)
	}
	r, ok := s.restaurants[c.restaurantID]
	if !ok {
		return nil, fmt.Errorf("%w: restaurant %s", ErrNotFound, c.restaurantID)
	}

	summary := &models.PriceSummary{TipAmount: req.TipAmount}
	for _, line := range c.lines {
		p, found := findProduct(r.Menu, line.ProductID)
		if !found {
			continue
		}
		summary.Subtotal = summary.Subtotal.Add(p.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	summary.TotalPackingCharge = PackingPerLine.Mul(decimal.NewFromInt(int64(len(c.lines))))
	summary.Tax = summary.Subtotal.Mul(TaxRate).Round(2)

	if req.Longitude != nil && req.Latitude != nil {
		km := distanceKm(r.Location, models.Coordinates{Longitude: *req.Longitude, Latitude: *req.Latitude})
		summary.DistanceKm = &km
		summary.DeliveryFee = BaseDelivery.Add(DeliveryPerKm.Mul(decimal.NewFromFloat(km))).Round(2)
	}

	if code := strings.TrimSpace(req.CouponCode); code != "" {
		discount, err := s.couponDiscountLocked(code, summary.Subtotal, now)
		if err != nil {
			return nil, err
		}
		summary.CouponDiscount = discount
	}

	available := s.loyalty[req.UserID]
	summary.LoyaltyPoints.Available = available
	if req.UseLoyaltyPoints && req.LoyaltyPointsToRedeem > 0 {
		used := req.LoyaltyPointsToRedeem
		if used > available {
			used = available
			summary.LoyaltyPoints.Messages = append(summary.LoyaltyPoints.Messages,
				fmt.Sprintf("Only %d loyalty points available", available))
		}
		ceiling := int(summary.Subtotal.Sub(summary.CouponDiscount).IntPart())
		if used > ceiling {
			used = ceiling
			summary.LoyaltyPoints.Messages = append(summary.LoyaltyPoints.Messages,
				"Loyalty redemption capped at the discounted subtotal")
		}
		summary.LoyaltyPoints.Used = used
		summary.LoyaltyRedemption = decimal.NewFromInt(int64(used))
	}

	summary.FinalAmount = summary.Expected()
	summary.LoyaltyPoints.PotentialEarned = int(summary.FinalAmount.Div(PointsPerEarn).IntPart())
	return summary, nil
}

func (s *Store) couponDiscountLocked(code string, subtotal decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	for _, c := range s.coupons {
		if !strings.EqualFold(c.Code, code) {
			continue
		}
		if reason := coupon.Check(c, subtotal, now); reason != coupon.ReasonNone {
			return decimal.Zero, fmt.Errorf("%w: %s is %s", ErrCouponInvalid, c.Code, reason)
		}
		discount := c.Discount(subtotal)
		if discount.GreaterThan(subtotal) {
			discount = subtotal
		}
		return discount.Round(2), nil
	}
	return decimal.Zero, fmt.Errorf("%w: promo code %s", ErrNotFound, code)
}

// distanceKm is the great circle distance between two points, rounded to
// two decimals
func distanceKm(from, to models.Coordinates) float64 {
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := rad(to.Latitude - from.Latitude)
	dLng := rad(to.Longitude - from.Longitude)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(from.Latitude))*math.Cos(rad(to.Latitude))*math.Sin(dLng/2)*math.Sin(dLng/2)
	km := 2 * earthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return math.Round(km*100) / 100
}
