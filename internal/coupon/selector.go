// Package coupon decides which promo codes apply to an order and keeps the
// coupon and loyalty selection of an edit session.
package coupon

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ashendes/order-edit/internal/models"
	"github.com/shopspring/decimal"
)

// Reason explains why a coupon cannot be applied
type Reason string

const (
	ReasonNone         Reason = ""
	ReasonInactive     Reason = "inactive"
	ReasonBelowMinimum Reason = "below_minimum"
	ReasonNotYetValid  Reason = "not_yet_valid"
	ReasonExpired      Reason = "expired"
)

var (
	ErrNotApplicable  = errors.New("coupon is not applicable")
	ErrNegativePoints = errors.New("loyalty points must not be negative")
)

// Check returns the first reason c cannot be applied to subtotal at now, or
// ReasonNone. Missing validity bounds are open.
func Check(c models.Coupon, subtotal decimal.Decimal, now time.Time) Reason {
	switch {
	case !c.IsActive:
		return ReasonInactive
	case subtotal.LessThan(c.MinOrderValue):
		return ReasonBelowMinimum
	case c.ValidFrom != nil && now.Before(*c.ValidFrom):
		return ReasonNotYetValid
	case c.ValidTill != nil && now.After(*c.ValidTill):
		return ReasonExpired
	}
	return ReasonNone
}

// IsApplicable reports whether c may be applied to subtotal at now
func IsApplicable(c models.Coupon, subtotal decimal.Decimal, now time.Time) bool {
	return Check(c, subtotal, now) == ReasonNone
}

// Option is a listed coupon with its applicability
type Option struct {
	Coupon     models.Coupon `json:"coupon"`
	Applicable bool          `json:"applicable"`
	Reason     Reason        `json:"reason,omitempty"`
}

// Selection is the coupon and loyalty choice of a session
type Selection struct {
	CouponID      string          `json:"couponId,omitempty"`
	CouponCode    string          `json:"couponCode,omitempty"`
	Discount      decimal.Decimal `json:"couponDiscount"`
	LoyaltyPoints int             `json:"loyaltyPoints"`
}

// Source lists the promo codes offered by the platform
type Source interface {
	ListCoupons(ctx context.Context) ([]models.Coupon, error)
}

// Selector holds the coupon and loyalty selection of one edit session
type Selector struct {
	source Source
	now    func() time.Time

	mu       sync.Mutex
	sel      Selection
	onChange func()
}

func NewSelector(source Source) *Selector {
	return &Selector{source: source, now: time.Now}
}

// OnChange registers a callback run after the selection changes
func (s *Selector) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// ListApplicable returns every coupon, marking the ones that cannot be used
// with the disqualifying reason
func (s *Selector) ListApplicable(ctx context.Context, subtotal decimal.Decimal) ([]Option, error) {
	coupons, err := s.source.ListCoupons(ctx)
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}

	now := s.now()
	options := make([]Option, 0, len(coupons))
	for _, c := range coupons {
		reason := Check(c, subtotal, now)
		options = append(options, Option{Coupon: c, Applicable: reason == ReasonNone, Reason: reason})
	}
	return options, nil
}

// Apply selects c and records the discount it grants on subtotal. An
// inapplicable coupon leaves the selection untouched.
func (s *Selector) Apply(c models.Coupon, subtotal decimal.Decimal) (Selection, error) {
	if reason := Check(c, subtotal, s.now()); reason != ReasonNone {
		return s.Selection(), fmt.Errorf("%w: %s", ErrNotApplicable, reason)
	}

	return s.update(func(sel *Selection) {
		sel.CouponID = c.ID
		sel.CouponCode = c.Code
		sel.Discount = c.Discount(subtotal)
	}), nil
}

// Remove clears the coupon selection
func (s *Selector) Remove() Selection {
	return s.update(func(sel *Selection) {
		sel.CouponID = ""
		sel.CouponCode = ""
		sel.Discount = decimal.Zero
	})
}

// SetLoyaltyPoints sets the points to redeem. The server checks them against
// the customer's balance.
func (s *Selector) SetLoyaltyPoints(points int) (Selection, error) {
	if points < 0 {
		return s.Selection(), ErrNegativePoints
	}
	return s.update(func(sel *Selection) { sel.LoyaltyPoints = points }), nil
}

// Selection returns the current selection
func (s *Selector) Selection() Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sel
}

// Reset replaces the selection without notifying
func (s *Selector) Reset(sel Selection) {
	s.mu.Lock()
	s.sel = sel
	s.mu.Unlock()
}

func (s *Selector) update(mutate func(*Selection)) Selection {
	s.mu.Lock()
	mutate(&s.sel)
	sel, hook := s.sel, s.onChange
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
	return sel
}
