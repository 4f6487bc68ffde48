package coupon

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ashendes/order-edit/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	coupons []models.Coupon
	err     error
}

func (s stubSource) ListCoupons(context.Context) ([]models.Coupon, error) {
	return s.coupons, s.err
}

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func at(t time.Time) *time.Time { return &t }

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func newSelector(src Source) *Selector {
	s := NewSelector(src)
	s.now = func() time.Time { return fixedNow }
	return s
}

func save10() models.Coupon {
	return models.Coupon{
		ID:            "k1",
		Code:          "SAVE10",
		DiscountType:  models.DiscountPercentage,
		DiscountValue: dec(10),
		MinOrderValue: dec(200),
		IsActive:      true,
	}
}

func TestCheck_Reasons(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*models.Coupon)
		subtotal int64
		want     Reason
	}{
		{"applicable", func(*models.Coupon) {}, 500, ReasonNone},
		{"minimum is inclusive", func(*models.Coupon) {}, 200, ReasonNone},
		{"inactive", func(c *models.Coupon) { c.IsActive = false }, 500, ReasonInactive},
		{"below minimum", func(*models.Coupon) {}, 199, ReasonBelowMinimum},
		{"not yet valid", func(c *models.Coupon) { c.ValidFrom = at(fixedNow.Add(time.Hour)) }, 500, ReasonNotYetValid},
		{"expired", func(c *models.Coupon) { c.ValidTill = at(fixedNow.Add(-time.Second)) }, 500, ReasonExpired},
		{"window bounds inclusive", func(c *models.Coupon) {
			c.ValidFrom = at(fixedNow)
			c.ValidTill = at(fixedNow)
		}, 500, ReasonNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := save10()
			tt.mutate(&c)
			assert.Equal(t, tt.want, Check(c, dec(tt.subtotal), fixedNow))
		})
	}
}

func TestIsApplicable_MatchesPredicate(t *testing.T) {
	windows := []struct{ from, till *time.Time }{
		{nil, nil},
		{at(fixedNow.Add(-time.Hour)), at(fixedNow.Add(time.Hour))},
		{at(fixedNow.Add(time.Hour)), nil},
		{nil, at(fixedNow.Add(-time.Hour))},
	}

	for _, active := range []bool{true, false} {
		for _, minimum := range []int64{0, 100, 500, 1000} {
			for _, w := range windows {
				for _, subtotal := range []int64{0, 99, 100, 500, 999, 1000, 2000} {
					c := save10()
					c.IsActive = active
					c.MinOrderValue = dec(minimum)
					c.ValidFrom, c.ValidTill = w.from, w.till

					inWindow := (w.from == nil || !fixedNow.Before(*w.from)) && (w.till == nil || !fixedNow.After(*w.till))
					want := active && subtotal >= minimum && inWindow
					assert.Equal(t, want, IsApplicable(c, dec(subtotal), fixedNow))
				}
			}
		}
	}
}

// Scenario B
func TestApply_PercentageDiscount(t *testing.T) {
	s := newSelector(stubSource{})

	sel, err := s.Apply(save10(), dec(500))
	require.NoError(t, err)
	assert.Equal(t, "SAVE10", sel.CouponCode)
	assert.Equal(t, "k1", sel.CouponID)
	assert.True(t, sel.Discount.Equal(dec(50)), sel.Discount.String())
}

func TestApply_FixedDiscount(t *testing.T) {
	s := newSelector(stubSource{})
	c := save10()
	c.DiscountType = models.DiscountFixed
	c.DiscountValue = dec(75)

	sel, err := s.Apply(c, dec(500))
	require.NoError(t, err)
	assert.True(t, sel.Discount.Equal(dec(75)))
}

// Scenario C
func TestApply_RefusesInapplicableCoupon(t *testing.T) {
	s := newSelector(stubSource{})
	var changes int
	s.OnChange(func() { changes++ })

	c := save10()
	c.MinOrderValue = dec(1000)
	assert.False(t, IsApplicable(c, dec(500), fixedNow))

	sel, err := s.Apply(c, dec(500))
	assert.ErrorIs(t, err, ErrNotApplicable)
	assert.Contains(t, err.Error(), string(ReasonBelowMinimum))
	assert.Empty(t, sel.CouponCode)
	assert.True(t, sel.Discount.IsZero())
	assert.Equal(t, 0, changes)
}

func TestRemove_ClearsCoupon(t *testing.T) {
	s := newSelector(stubSource{})
	_, err := s.Apply(save10(), dec(500))
	require.NoError(t, err)
	_, err = s.SetLoyaltyPoints(40)
	require.NoError(t, err)

	sel := s.Remove()
	assert.Empty(t, sel.CouponCode)
	assert.Empty(t, sel.CouponID)
	assert.True(t, sel.Discount.IsZero())
	assert.Equal(t, 40, sel.LoyaltyPoints)
}

func TestSetLoyaltyPoints(t *testing.T) {
	s := newSelector(stubSource{})

	sel, err := s.SetLoyaltyPoints(1_000_000)
	require.NoError(t, err)
	assert.Equal(t, 1_000_000, sel.LoyaltyPoints)

	sel, err = s.SetLoyaltyPoints(-1)
	assert.ErrorIs(t, err, ErrNegativePoints)
	assert.Equal(t, 1_000_000, sel.LoyaltyPoints)
}

func TestListApplicable_KeepsInapplicableWithReason(t *testing.T) {
	big := save10()
	big.ID, big.Code, big.MinOrderValue = "k2", "BIG", dec(1000)
	old := save10()
	old.ID, old.Code, old.ValidTill = "k3", "OLD", at(fixedNow.AddDate(0, -1, 0))

	s := newSelector(stubSource{coupons: []models.Coupon{save10(), big, old}})
	options, err := s.ListApplicable(context.Background(), dec(500))
	require.NoError(t, err)
	require.Len(t, options, 3)

	assert.True(t, options[0].Applicable)
	assert.Equal(t, ReasonNone, options[0].Reason)
	assert.False(t, options[1].Applicable)
	assert.Equal(t, ReasonBelowMinimum, options[1].Reason)
	assert.Equal(t, ReasonExpired, options[2].Reason)
}

func TestListApplicable_SourceError(t *testing.T) {
	s := newSelector(stubSource{err: errors.New("unavailable")})
	_, err := s.ListApplicable(context.Background(), dec(500))
	assert.Error(t, err)
}
