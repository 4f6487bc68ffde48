// Package session drives the edit workflow of one order: entering edit mode,
// switching between sections, saving a section back to the order and
// cancelling pending edits.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ashendes/order-edit/internal/address"
	"github.com/ashendes/order-edit/internal/client"
	"github.com/ashendes/order-edit/internal/coupon"
	"github.com/ashendes/order-edit/internal/events"
	"github.com/ashendes/order-edit/internal/ledger"
	"github.com/ashendes/order-edit/internal/metrics"
	"github.com/ashendes/order-edit/internal/models"
	"github.com/ashendes/order-edit/internal/pricing"
	log "github.com/sirupsen/logrus"
)

// Mode is the top level state of a session
type Mode string

const (
	ModeViewing Mode = "viewing"
	ModeEditing Mode = "editing"
)

// Section is the part of the order being edited
type Section string

const (
	SectionItems          Section = "items"
	SectionAddress        Section = "address"
	SectionAdditionalInfo Section = "additional_info"
)

// Valid reports whether s names a known section
func (s Section) Valid() bool {
	switch s {
	case SectionItems, SectionAddress, SectionAdditionalInfo:
		return true
	}
	return false
}

var (
	ErrNotLoaded        = errors.New("order not loaded")
	ErrNotEditing       = errors.New("order is not being edited")
	ErrUnknownSection   = errors.New("unknown section")
	ErrSectionNotActive = errors.New("section is not being edited")
	ErrSaveInProgress   = errors.New("save already in progress")
	ErrEmptyOrder       = errors.New("order must keep at least one item")
	ErrInvalidStatus    = errors.New("invalid order status")
	ErrTerminalStatus   = errors.New("order is already in a terminal status")
	ErrProductNotFound  = errors.New("product not on the restaurant menu")
	ErrCouponNotFound   = errors.New("coupon not found")
	ErrAddressNotFound  = errors.New("address not found")
	ErrNegativeTip      = errors.New("tip must not be negative")
	ErrSessionClosed    = errors.New("session closed")
)

// Orders reads and writes order records
type Orders interface {
	GetOrder(ctx context.Context, orderID string) (*models.Order, error)
	UpdateOrder(ctx context.Context, orderID string, update models.OrderUpdate) (*models.Order, error)
	UpdateStatus(ctx context.Context, orderID string, status models.OrderStatus) (*models.Order, error)
}

// Menus fetches restaurant menus
type Menus interface {
	Menu(ctx context.Context, restaurantID string) ([]models.Category, error)
}

// AddressBook lists a customer's saved addresses
type AddressBook interface {
	List(ctx context.Context, customerID string) ([]models.Address, error)
}

// Dependencies are the collaborators a controller works with
type Dependencies struct {
	Orders      Orders
	Cart        ledger.Cart
	Menus       Menus
	Pricing     pricing.Calculator
	Coupons     coupon.Source
	Geocoder    address.Geocoder
	AddressBook AddressBook
	Events      events.Publisher

	PricingDebounce time.Duration
	SearchDebounce  time.Duration
}

// Controller is the edit session of one order. It owns the item ledger, the
// address resolver, the coupon selector and the pricing reconciler for as
// long as the order is open, and must be released with Close.
type Controller struct {
	orderID string
	deps    Dependencies

	resolver *address.Resolver
	coupons  *coupon.Selector
	pricing  *pricing.Reconciler

	mu             sync.Mutex
	snapshot       *models.Order
	ledger         *ledger.Ledger
	mode           Mode
	section        Section
	additionalInfo string
	saving         bool
	lastErr        error
	closed         bool
}

// NewController creates a session for orderID. Call Load before editing.
func NewController(orderID string, deps Dependencies) *Controller {
	if deps.Events == nil {
		deps.Events = events.Nop{}
	}
	c := &Controller{
		orderID:  orderID,
		deps:     deps,
		resolver: address.NewResolver(deps.Geocoder, deps.SearchDebounce),
		coupons:  coupon.NewSelector(deps.Coupons),
		pricing:  pricing.NewReconciler(deps.Pricing, deps.PricingDebounce, pricing.Context{}),
		mode:     ModeViewing,
	}
	c.resolver.OnChange(c.addressChanged)
	c.coupons.OnChange(c.discountsChanged)
	return c
}

// OrderID returns the id of the order this session edits
func (c *Controller) OrderID() string {
	return c.orderID
}

// Load fetches the order. While viewing, every section is reset from the
// fetched record; while editing only the snapshot is replaced.
func (c *Controller) Load(ctx context.Context) (*models.Order, error) {
	order, err := c.deps.Orders.GetOrder(ctx, c.orderID)
	if err != nil {
		c.recordErr(err)
		return nil, fmt.Errorf("load order %s: %w", c.orderID, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrSessionClosed
	}
	c.snapshot = order
	if c.mode == ModeViewing {
		c.resetLocked()
	}
	out := *order
	return &out, nil
}

// StartEdit enters edit mode on the items section and starts price
// reconciliation. Calling it while already editing does nothing.
func (c *Controller) StartEdit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.usableLocked(); err != nil {
		return err
	}
	if c.mode == ModeEditing {
		return nil
	}

	c.mode = ModeEditing
	c.section = SectionItems
	c.lastErr = nil
	c.pricing.Activate()

	log.WithField("order_id", c.orderID).Info("Edit session started")
	return nil
}

// SwitchSection makes s the editable section. Pending edits of the other
// sections are kept.
func (c *Controller) SwitchSection(s Section) error {
	if !s.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownSection, s)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.editingLocked(); err != nil {
		return err
	}
	if c.saving {
		return ErrSaveInProgress
	}
	c.section = s
	return nil
}

// Save writes the active section to the order and returns to viewing. On
// failure the session stays in edit mode with its pending edits.
func (c *Controller) Save(ctx context.Context) (*models.Order, error) {
	c.mu.Lock()
	if err := c.editingLocked(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if c.saving {
		c.mu.Unlock()
		return nil, ErrSaveInProgress
	}

	section := c.section
	update, err := c.buildUpdateLocked(section)
	if err != nil {
		c.lastErr = err
		c.mu.Unlock()
		metrics.OrderSaves.WithLabelValues(string(section), "invalid").Inc()
		return nil, err
	}
	c.saving = true
	c.mu.Unlock()

	order, err := c.deps.Orders.UpdateOrder(ctx, c.orderID, update)

	c.mu.Lock()
	c.saving = false
	if err != nil {
		c.lastErr = err
		c.mu.Unlock()

		metrics.OrderSaves.WithLabelValues(string(section), "failed").Inc()
		log.WithFields(log.Fields{
			"order_id": c.orderID,
			"section":  section,
		}).Error("Failed to save order edit: ", err)
		return nil, fmt.Errorf("save %s: %w", section, err)
	}

	c.snapshot = order
	c.mode = ModeViewing
	c.section = ""
	c.lastErr = nil
	c.pricing.Deactivate()
	c.resetLocked()
	c.mu.Unlock()

	metrics.OrderSaves.WithLabelValues(string(section), "success").Inc()
	log.WithFields(log.Fields{
		"order_id": c.orderID,
		"section":  section,
	}).Info("Order edit saved")

	e := events.NewEvent(events.TypeOrderEdited, c.orderID)
	e.Section = string(section)
	e.Payload = update
	c.publish(ctx, e)

	out := *order
	return &out, nil
}

// Cancel drops pending edits and returns to viewing. Cart changes already
// made while editing items are not reverted.
func (c *Controller) Cancel() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrSessionClosed
	}
	if c.mode != ModeEditing {
		return nil
	}
	if c.saving {
		return ErrSaveInProgress
	}

	c.mode = ModeViewing
	c.section = ""
	c.lastErr = nil
	c.pricing.Deactivate()
	c.resetLocked()

	log.WithField("order_id", c.orderID).Info("Edit session cancelled")
	return nil
}

// UpdateStatus moves the order to status. Orders in a terminal status are
// left alone.
func (c *Controller) UpdateStatus(ctx context.Context, status models.OrderStatus) (*models.Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	c.mu.Lock()
	if err := c.usableLocked(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if c.snapshot.Status.IsTerminal() {
		current := c.snapshot.Status
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrTerminalStatus, current)
	}
	c.mu.Unlock()

	order, err := c.deps.Orders.UpdateStatus(ctx, c.orderID, status)
	if err != nil {
		c.recordErr(err)
		return nil, fmt.Errorf("update status: %w", err)
	}

	c.mu.Lock()
	c.snapshot.Status = order.Status
	c.mu.Unlock()

	log.WithFields(log.Fields{
		"order_id": c.orderID,
		"status":   order.Status,
	}).Info("Order status updated")

	e := events.NewEvent(events.TypeOrderStatusChanged, c.orderID)
	e.Status = string(order.Status)
	c.publish(ctx, e)

	out := *order
	return &out, nil
}

// Close releases the address resolver and stops price reconciliation
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.resolver.Close()
	c.pricing.Close()
}

func (c *Controller) buildUpdateLocked(section Section) (models.OrderUpdate, error) {
	var update models.OrderUpdate

	switch section {
	case SectionItems:
		items := c.ledger.Items()
		if len(items) == 0 {
			return update, ErrEmptyOrder
		}
		update.OrderItems = items
	case SectionAddress:
		addr, err := c.resolver.Save()
		if err != nil {
			return update, err
		}
		update.DeliveryAddress = &addr
		update.DeliveryLocation = addr.Location
	case SectionAdditionalInfo:
		info := c.additionalInfo
		update.AdditionalInfo = &info
	default:
		return update, ErrUnknownSection
	}
	return update, nil
}

// resetLocked rebuilds every section from the snapshot
func (c *Controller) resetLocked() {
	o := c.snapshot

	c.ledger = ledger.New(c.deps.Cart, o.RestaurantID, o.CartID, o.Items)
	c.ledger.OnChange(c.itemsChanged)

	addr := o.DeliveryAddress
	if _, ok := addr.Coordinates(); !ok && o.DeliveryLocation != nil {
		addr.SetCoordinates(o.DeliveryLocation.Coords())
	}
	c.resolver.Edit(addr)

	c.additionalInfo = o.AdditionalInfo
	c.coupons.Reset(coupon.Selection{})

	var coords *models.Coordinates
	if at, ok := addr.Coordinates(); ok {
		coords = &at
	}
	next := pricing.Context{
		CartID:          o.CartID,
		CustomerID:      o.CustomerID,
		RestaurantID:    o.RestaurantID,
		TipAmount:       o.Pricing.TipAmount,
		RequiresRouting: o.RequiresRouting(),
		Coordinates:     coords,
	}
	c.pricing.Update(func(pc *pricing.Context) { *pc = next })
	c.pricing.Seed(o.Pricing)
}

func (c *Controller) usableLocked() error {
	if c.closed {
		return ErrSessionClosed
	}
	if c.snapshot == nil {
		return ErrNotLoaded
	}
	return nil
}

func (c *Controller) editingLocked() error {
	if err := c.usableLocked(); err != nil {
		return err
	}
	if c.mode != ModeEditing {
		return ErrNotEditing
	}
	return nil
}

func (c *Controller) recordErr(err error) {
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
}

func (c *Controller) publish(ctx context.Context, e events.Event) {
	e.RequestID = client.RequestID(ctx)
	if err := c.deps.Events.Publish(ctx, e); err != nil {
		log.WithFields(log.Fields{
			"order_id":   e.OrderID,
			"event_type": e.Type,
		}).Warn("Failed to publish order event: ", err)
	}
}

// Change hooks feed the pricing reconciler. They run outside the component
// locks and never take the controller lock.

func (c *Controller) itemsChanged() {
	c.pricing.Update(func(*pricing.Context) {})
}

func (c *Controller) addressChanged() {
	form := c.resolver.Form()
	var coords *models.Coordinates
	if at, ok := form.Coordinates(); ok {
		coords = &at
	}
	c.pricing.Update(func(pc *pricing.Context) { pc.Coordinates = coords })
}

func (c *Controller) discountsChanged() {
	sel := c.coupons.Selection()
	c.pricing.Update(func(pc *pricing.Context) {
		pc.CouponCode = sel.CouponCode
		pc.LoyaltyPoints = sel.LoyaltyPoints
	})
}
