package session

import (
	"github.com/ashendes/order-edit/internal/address"
	"github.com/ashendes/order-edit/internal/coupon"
	"github.com/ashendes/order-edit/internal/models"
	"github.com/shopspring/decimal"
)

// View is a read-only snapshot of a session for display
type View struct {
	OrderID        string               `json:"orderId"`
	Mode           Mode                 `json:"mode"`
	Section        Section              `json:"section,omitempty"`
	Saving         bool                 `json:"saving"`
	Error          string               `json:"error,omitempty"`
	Order          *models.Order        `json:"order,omitempty"`
	Items          []models.LineItem    `json:"items"`
	Subtotal       decimal.Decimal      `json:"subtotal"`
	Address        address.View         `json:"address"`
	AdditionalInfo string               `json:"additionalInfo"`
	TipAmount      decimal.Decimal      `json:"tipAmount"`
	Discounts      coupon.Selection     `json:"discounts"`
	Pricing        *models.PriceSummary `json:"pricing,omitempty"`
	PricingError   string               `json:"pricingError,omitempty"`
	PricingLoading bool                 `json:"pricingLoading"`
	PricingPending bool                 `json:"pricingPending"`
}

// View returns the current state of the session
func (c *Controller) View() (View, error) {
	c.mu.Lock()
	if err := c.usableLocked(); err != nil {
		c.mu.Unlock()
		return View{}, err
	}
	order := *c.snapshot
	v := View{
		OrderID:        c.orderID,
		Mode:           c.mode,
		Section:        c.section,
		Saving:         c.saving,
		Order:          &order,
		AdditionalInfo: c.additionalInfo,
	}
	if c.lastErr != nil {
		v.Error = c.lastErr.Error()
	}
	l := c.ledger
	c.mu.Unlock()

	v.Items = l.Items()
	v.Subtotal = l.Subtotal()
	v.Address = c.resolver.View()
	v.Discounts = c.coupons.Selection()
	v.TipAmount = c.pricing.Context().TipAmount
	v.Pricing = c.pricing.Summary()
	v.PricingLoading = c.pricing.Loading()
	v.PricingPending = c.pricing.Pending()
	if err := c.pricing.Err(); err != nil {
		v.PricingError = err.Error()
	}
	return v, nil
}

// Mode returns the current mode and, while editing, the active section
func (c *Controller) Mode() (Mode, Section) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode, c.section
}

// Err returns the last error recorded on the session
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}
