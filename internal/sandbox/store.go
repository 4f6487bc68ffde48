// Package sandbox is an in-memory implementation of the platform backend the
// order edit service talks to. It keeps orders, carts, menus, promo codes and
// address books in memory and can simulate failures and slow answers.
package sandbox

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ashendes/order-edit/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrNotEditable   = errors.New("order can no longer be edited")
	ErrInvalidInput  = errors.New("invalid input")
	ErrCouponInvalid = errors.New("promo code cannot be applied")
)

// Restaurant is a menu owner with the point deliveries are routed from
type Restaurant struct {
	ID       string
	Name     string
	Location models.Coordinates
	Menu     []models.Category
}

type cart struct {
	id           string
	restaurantID string
	lines        []models.CartProduct
}

func (c *cart) line(productID string) int {
	for i, l := range c.lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}

// Store holds the sandbox data. All methods are safe for concurrent use and
// return copies.
type Store struct {
	mutex       sync.RWMutex
	orders      map[string]*models.Order
	carts       map[string]*cart
	restaurants map[string]*Restaurant
	coupons     []models.Coupon
	addresses   map[string][]models.Address
	loyalty     map[string]int
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		orders:      make(map[string]*models.Order),
		carts:       make(map[string]*cart),
		restaurants: make(map[string]*Restaurant),
		addresses:   make(map[string][]models.Address),
		loyalty:     make(map[string]int),
	}
}

// PutRestaurant adds or replaces a restaurant and its menu
func (s *Store) PutRestaurant(r Restaurant) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.restaurants[r.ID] = &r
}

// PutOrder stores an order and creates its cart from the order's catalog items
func (s *Store) PutOrder(o models.Order) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if o.CartID == "" {
		o.CartID = uuid.New().String()
	}
	c := &cart{id: o.CartID, restaurantID: o.RestaurantID}
	for _, it := range o.Items {
		if it.Custom || it.ProductID == "" {
			continue
		}
		c.lines = append(c.lines, models.CartProduct{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	s.carts[c.id] = c
	s.orders[o.ID] = cloneOrder(&o)
}

func (s *Store) PutCoupon(c models.Coupon) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.coupons = append(s.coupons, c)
}

func (s *Store) PutAddress(customerID string, a models.Address) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	s.addresses[customerID] = append(s.addresses[customerID], a)
}

// SetLoyalty sets the loyalty points a customer can redeem
func (s *Store) SetLoyalty(customerID string, points int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.loyalty[customerID] = points
}

// Order

func (s *Store) Order(orderID string) (*models.Order, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	o, ok := s.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: order %s", ErrNotFound, orderID)
	}
	return cloneOrder(o), nil
}

// UpdateOrder applies the sections present in update. Line totals and the
// order pricing are recomputed from the new items.
func (s *Store) UpdateOrder(orderID string, update models.OrderUpdate) (*models.Order, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: order %s", ErrNotFound, orderID)
	}
	if o.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: status %s", ErrNotEditable, o.Status)
	}

	if update.OrderItems != nil {
		items := make([]models.LineItem, len(update.OrderItems))
		for i, it := range update.OrderItems {
			if it.Quantity < 1 {
				return nil, fmt.Errorf("%w: item %d quantity must be at least 1", ErrInvalidInput, i)
			}
			if it.UnitPrice.IsNegative() {
				return nil, fmt.Errorf("%w: item %d price must not be negative", ErrInvalidInput, i)
			}
			it.Recalculate()
			items[i] = it
		}
		o.Items = items
		o.Pricing.Subtotal = o.Subtotal()
		o.Pricing.FinalAmount = o.Pricing.Expected()
	}
	if update.DeliveryAddress != nil {
		if update.DeliveryAddress.Street == "" {
			return nil, fmt.Errorf("%w: street is required", ErrInvalidInput)
		}
		o.DeliveryAddress = *update.DeliveryAddress
		o.DeliveryLocation = update.DeliveryLocation
	}
	if update.AdditionalInfo != nil {
		o.AdditionalInfo = *update.AdditionalInfo
	}
	return cloneOrder(o), nil
}

func (s *Store) UpdateStatus(orderID string, status models.OrderStatus) (*models.Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: order %s", ErrNotFound, orderID)
	}
	if o.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: status %s", ErrNotEditable, o.Status)
	}
	o.Status = status
	return cloneOrder(o), nil
}

// Cart

// AddToCart adds products to the referenced cart, creating a new cart when
// no reference is given
func (s *Store) AddToCart(req models.AddToCartRequest) (string, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	r, ok := s.restaurants[req.RestaurantID]
	if !ok {
		return "", fmt.Errorf("%w: restaurant %s", ErrNotFound, req.RestaurantID)
	}

	c, ok := s.carts[req.CartID]
	if req.CartID == "" {
		c = &cart{id: uuid.New().String(), restaurantID: r.ID}
		s.carts[c.id] = c
	} else if !ok {
		return "", fmt.Errorf("%w: cart %s", ErrNotFound, req.CartID)
	}

	for _, p := range req.Products {
		if p.Quantity < 1 {
			return "", fmt.Errorf("%w: quantity must be at least 1", ErrInvalidInput)
		}
		if _, found := findProduct(r.Menu, p.ProductID); !found {
			return "", fmt.Errorf("%w: product %s", ErrNotFound, p.ProductID)
		}
	}
	for _, p := range req.Products {
		if i := c.line(p.ProductID); i >= 0 {
			c.lines[i].Quantity += p.Quantity
			continue
		}
		c.lines = append(c.lines, p)
	}
	return c.id, nil
}

func (s *Store) UpdateCartItem(cartID, productID string, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("%w: quantity must be at least 1", ErrInvalidInput)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	c, ok := s.carts[cartID]
	if !ok {
		return fmt.Errorf("%w: cart %s", ErrNotFound, cartID)
	}
	i := c.line(productID)
	if i < 0 {
		return fmt.Errorf("%w: product %s not in cart", ErrNotFound, productID)
	}
	c.lines[i].Quantity = quantity
	return nil
}

func (s *Store) RemoveCartItem(cartID, productID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	c, ok := s.carts[cartID]
	if !ok {
		return fmt.Errorf("%w: cart %s", ErrNotFound, cartID)
	}
	i := c.line(productID)
	if i < 0 {
		return fmt.Errorf("%w: product %s not in cart", ErrNotFound, productID)
	}
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
	return nil
}

// CartLines returns the products held by a cart
func (s *Store) CartLines(cartID string) ([]models.CartProduct, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	c, ok := s.carts[cartID]
	if !ok {
		return nil, fmt.Errorf("%w: cart %s", ErrNotFound, cartID)
	}
	return append([]models.CartProduct(nil), c.lines...), nil
}

// Catalog

func (s *Store) Menu(restaurantID string) ([]models.Category, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	r, ok := s.restaurants[restaurantID]
	if !ok {
		return nil, fmt.Errorf("%w: restaurant %s", ErrNotFound, restaurantID)
	}
	return append([]models.Category(nil), r.Menu...), nil
}

func (s *Store) Coupons() []models.Coupon {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return append([]models.Coupon(nil), s.coupons...)
}

// Address book

func (s *Store) Addresses(customerID string) []models.Address {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return append([]models.Address{}, s.addresses[customerID]...)
}

func (s *Store) CreateAddress(customerID string, a models.Address) (*models.Address, error) {
	if a.Street == "" {
		return nil, fmt.Errorf("%w: street is required", ErrInvalidInput)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	a.ID = uuid.New().String()
	s.addresses[customerID] = append(s.addresses[customerID], a)
	return &a, nil
}

func (s *Store) UpdateAddress(customerID, addressID string, a models.Address) (*models.Address, error) {
	if a.Street == "" {
		return nil, fmt.Errorf("%w: street is required", ErrInvalidInput)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	book := s.addresses[customerID]
	for i := range book {
		if book[i].ID == addressID {
			a.ID = addressID
			book[i] = a
			return &a, nil
		}
	}
	return nil, fmt.Errorf("%w: address %s", ErrNotFound, addressID)
}

func (s *Store) DeleteAddress(customerID, addressID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	book := s.addresses[customerID]
	for i := range book {
		if book[i].ID == addressID {
			s.addresses[customerID] = append(book[:i], book[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: address %s", ErrNotFound, addressID)
}

func findProduct(menu []models.Category, productID string) (models.Product, bool) {
	for _, cat := range menu {
		for _, p := range cat.Items {
			if p.ID == productID {
				return p, true
			}
		}
	}
	return models.Product{}, false
}

func cloneOrder(o *models.Order) *models.Order {
	out := *o
	out.Items = append([]models.LineItem(nil), o.Items...)
	return &out
}

func money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}
