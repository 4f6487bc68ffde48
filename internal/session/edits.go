package session

import (
	"context"
	"fmt"
	"slices"

	"github.com/ashendes/order-edit/internal/coupon"
	"github.com/ashendes/order-edit/internal/ledger"
	"github.com/ashendes/order-edit/internal/models"
	"github.com/ashendes/order-edit/internal/pricing"
	"github.com/shopspring/decimal"
)

// inSection returns the ledger once s is the section being edited
func (c *Controller) inSection(s Section) (*ledger.Ledger, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.editingLocked(); err != nil {
		return nil, err
	}
	if c.section != s {
		return nil, fmt.Errorf("%w: %s", ErrSectionNotActive, s)
	}
	return c.ledger, nil
}

func (c *Controller) editing() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.editingLocked()
}

// Items

// Menu returns the menu of the order's restaurant
func (c *Controller) Menu(ctx context.Context) ([]models.Category, error) {
	c.mu.Lock()
	if err := c.usableLocked(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	restaurantID := c.snapshot.RestaurantID
	c.mu.Unlock()

	return c.deps.Menus.Menu(ctx, restaurantID)
}

// SearchMenu returns the menu products matching query
func (c *Controller) SearchMenu(ctx context.Context, query string) ([]ledger.Match, error) {
	menu, err := c.Menu(ctx)
	if err != nil {
		return nil, err
	}
	return slices.Collect(ledger.Search(menu, query)), nil
}

// AddProduct adds one unit of a menu product to the items
func (c *Controller) AddProduct(ctx context.Context, productID string) error {
	l, err := c.inSection(SectionItems)
	if err != nil {
		return err
	}

	menu, err := c.Menu(ctx)
	if err != nil {
		return err
	}
	for _, cat := range menu {
		for _, p := range cat.Items {
			if p.ID == productID {
				return c.track(l.AddItem(ctx, p))
			}
		}
	}
	return fmt.Errorf("%w: %s", ErrProductNotFound, productID)
}

// UpdateItem edits quantity, price and name of one line together; either all
// of them apply or none do
func (c *Controller) UpdateItem(ctx context.Context, index int, change ledger.Change) error {
	l, err := c.inSection(SectionItems)
	if err != nil {
		return err
	}
	return c.track(l.Edit(ctx, index, change))
}

func (c *Controller) RemoveItem(ctx context.Context, index int) error {
	l, err := c.inSection(SectionItems)
	if err != nil {
		return err
	}
	return c.track(l.RemoveItem(ctx, index))
}

func (c *Controller) AddCustomItem() (models.LineItem, error) {
	l, err := c.inSection(SectionItems)
	if err != nil {
		return models.LineItem{}, err
	}
	return l.AddCustomItem(), nil
}

// Address

func (c *Controller) SearchAddress(query string) error {
	if _, err := c.inSection(SectionAddress); err != nil {
		return err
	}
	return c.resolver.Search(query)
}

func (c *Controller) SearchAddressNow(ctx context.Context, query string) ([]models.Candidate, error) {
	if _, err := c.inSection(SectionAddress); err != nil {
		return nil, err
	}
	return c.resolver.SearchNow(ctx, query)
}

// SelectCandidate fills the address from the search result with the given id
func (c *Controller) SelectCandidate(ctx context.Context, candidateID string) (models.Address, error) {
	if _, err := c.inSection(SectionAddress); err != nil {
		return models.Address{}, err
	}
	for _, cand := range c.resolver.Candidates() {
		if cand.ID == candidateID {
			return c.resolver.SelectCandidate(ctx, cand)
		}
	}
	return models.Address{}, fmt.Errorf("%w: candidate %s", ErrAddressNotFound, candidateID)
}

func (c *Controller) SelectFromMap(ctx context.Context, lng, lat float64) (models.Address, error) {
	if _, err := c.inSection(SectionAddress); err != nil {
		return models.Address{}, err
	}
	return c.resolver.SelectFromMap(ctx, lng, lat)
}

// SavedAddresses lists the customer's address book
func (c *Controller) SavedAddresses(ctx context.Context) ([]models.Address, error) {
	c.mu.Lock()
	if err := c.usableLocked(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	customerID := c.snapshot.CustomerID
	c.mu.Unlock()

	return c.deps.AddressBook.List(ctx, customerID)
}

// SelectSavedAddress fills the address from the customer's address book
func (c *Controller) SelectSavedAddress(ctx context.Context, addressID string) (models.Address, error) {
	if _, err := c.inSection(SectionAddress); err != nil {
		return models.Address{}, err
	}
	saved, err := c.SavedAddresses(ctx)
	if err != nil {
		return models.Address{}, err
	}
	for _, a := range saved {
		if a.ID == addressID {
			return c.resolver.SelectSaved(a)
		}
	}
	return models.Address{}, fmt.Errorf("%w: saved address %s", ErrAddressNotFound, addressID)
}

// NewAddress drops the current address so a different one can be located
func (c *Controller) NewAddress() error {
	if _, err := c.inSection(SectionAddress); err != nil {
		return err
	}
	return c.resolver.New()
}

func (c *Controller) UpdateAddress(mutate func(*models.Address)) error {
	if _, err := c.inSection(SectionAddress); err != nil {
		return err
	}
	return c.resolver.Update(mutate)
}

// Additional info

func (c *Controller) SetAdditionalInfo(info string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.editingLocked(); err != nil {
		return err
	}
	if c.section != SectionAdditionalInfo {
		return fmt.Errorf("%w: %s", ErrSectionNotActive, SectionAdditionalInfo)
	}
	c.additionalInfo = info
	return nil
}

// Pricing inputs, editable in any section

func (c *Controller) SetTip(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrNegativeTip
	}
	if err := c.editing(); err != nil {
		return err
	}
	c.pricing.Update(func(pc *pricing.Context) { pc.TipAmount = amount })
	return nil
}

// Coupons lists every promo code with its applicability to the current subtotal
func (c *Controller) Coupons(ctx context.Context) ([]coupon.Option, error) {
	subtotal, err := c.subtotal()
	if err != nil {
		return nil, err
	}
	return c.coupons.ListApplicable(ctx, subtotal)
}

// ApplyCoupon selects the promo code with the given code
func (c *Controller) ApplyCoupon(ctx context.Context, code string) (coupon.Selection, error) {
	if err := c.editing(); err != nil {
		return coupon.Selection{}, err
	}
	subtotal, err := c.subtotal()
	if err != nil {
		return coupon.Selection{}, err
	}

	options, err := c.coupons.ListApplicable(ctx, subtotal)
	if err != nil {
		return coupon.Selection{}, err
	}
	for _, opt := range options {
		if opt.Coupon.Code == code {
			return c.coupons.Apply(opt.Coupon, subtotal)
		}
	}
	return coupon.Selection{}, fmt.Errorf("%w: %s", ErrCouponNotFound, code)
}

func (c *Controller) RemoveCoupon() (coupon.Selection, error) {
	if err := c.editing(); err != nil {
		return coupon.Selection{}, err
	}
	return c.coupons.Remove(), nil
}

func (c *Controller) SetLoyaltyPoints(points int) (coupon.Selection, error) {
	if err := c.editing(); err != nil {
		return coupon.Selection{}, err
	}
	return c.coupons.SetLoyaltyPoints(points)
}

// RetryPricing recomputes the price summary right away
func (c *Controller) RetryPricing(ctx context.Context) (*models.PriceSummary, error) {
	if err := c.editing(); err != nil {
		return nil, err
	}
	return c.pricing.Retry(ctx)
}

func (c *Controller) subtotal() (decimal.Decimal, error) {
	c.mu.Lock()
	if err := c.usableLocked(); err != nil {
		c.mu.Unlock()
		return decimal.Zero, err
	}
	l := c.ledger
	c.mu.Unlock()

	return l.Subtotal(), nil
}

// track records a remote sync failure as the session error
func (c *Controller) track(err error) error {
	if err != nil {
		c.recordErr(err)
	}
	return err
}
