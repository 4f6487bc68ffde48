// Package ledger keeps the editable copy of an order's line items in step
// with the remote cart tied to the order.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ashendes/order-edit/internal/metrics"
	"github.com/ashendes/order-edit/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

var (
	ErrNoCartReference = errors.New("order has no cart reference")
	ErrIndexOutOfRange = errors.New("line index out of range")
	ErrNotCustomItem   = errors.New("only custom items can be renamed")
	ErrNegativePrice   = errors.New("unit price must not be negative")

	errUnchanged = errors.New("unchanged")
)

// Cart is the remote cart the ledger mirrors catalog items into
type Cart interface {
	AddItems(ctx context.Context, req models.AddToCartRequest) (string, error)
	UpdateQuantity(ctx context.Context, cartID, productID string, quantity int) error
	RemoveItem(ctx context.Context, cartID, productID string) error
}

// Ledger is the in-memory line item list of one edit session.
//
// Catalog mutations call the cart first and only touch the local list once the
// cart accepted the change. The lock is held across the remote call so edits
// of one session apply in order.
type Ledger struct {
	cart         Cart
	restaurantID string
	cartID       string

	mu       sync.Mutex
	items    []models.LineItem
	onChange func()
}

// New creates a ledger seeded with a copy of items
func New(cart Cart, restaurantID, cartID string, items []models.LineItem) *Ledger {
	l := &Ledger{
		cart:         cart,
		restaurantID: restaurantID,
		cartID:       cartID,
	}
	l.items = normalized(items)
	return l
}

// OnChange registers a callback run after every successful mutation
func (l *Ledger) OnChange(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = fn
}

// Items returns a copy of the current lines
func (l *Ledger) Items() []models.LineItem {
	l.mu.Lock()
	defer l.mu.Unlock()
	return copyItems(l.items)
}

// Subtotal sums the current line totals
func (l *Ledger) Subtotal() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return models.SumLines(l.items)
}

// Reset replaces the lines with a copy of items, without remote calls
func (l *Ledger) Reset(items []models.LineItem) {
	l.mu.Lock()
	l.items = normalized(items)
	l.mu.Unlock()
}

// AddItem adds one unit of a catalog product. An existing line for the same
// product has its quantity raised; otherwise a new line with quantity 1 is
// appended.
func (l *Ledger) AddItem(ctx context.Context, product models.Product) error {
	return l.mutate("add", func() error {
		if l.cartID == "" {
			return ErrNoCartReference
		}

		if idx := l.indexOfProduct(product.ID); idx >= 0 {
			next := l.items[idx].Quantity + 1
			if err := l.cart.UpdateQuantity(ctx, l.cartID, product.ID, next); err != nil {
				return l.rejected("add", fmt.Errorf("update cart quantity: %w", err))
			}
			l.items[idx].Quantity = next
			l.items[idx].Recalculate()
			return nil
		}

		_, err := l.cart.AddItems(ctx, models.AddToCartRequest{
			RestaurantID: l.restaurantID,
			CartID:       l.cartID,
			Products:     []models.CartProduct{{ProductID: product.ID, Quantity: 1}},
		})
		if err != nil {
			return l.rejected("add", fmt.Errorf("add to cart: %w", err))
		}

		item := models.LineItem{
			LineID:    uuid.New().String(),
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Quantity:  1,
			Image:     product.Image(),
		}
		item.Recalculate()
		l.items = append(l.items, item)
		return nil
	})
}

// UpdateQuantity sets the quantity of a line. Quantities below 1 are ignored;
// RemoveItem deletes a line. Custom lines are never sent to the cart.
func (l *Ledger) UpdateQuantity(ctx context.Context, index, quantity int) error {
	return l.edit(ctx, "update_quantity", index, Change{Quantity: &quantity})
}

// UpdatePrice overrides the unit price of a line locally
func (l *Ledger) UpdatePrice(index int, price decimal.Decimal) error {
	return l.edit(context.Background(), "update_price", index, Change{Price: &price})
}

// UpdateName renames a custom line locally
func (l *Ledger) UpdateName(index int, name string) error {
	return l.edit(context.Background(), "update_name", index, Change{Name: &name})
}

// Change lists the fields of one line to edit. Nil fields are left alone and
// a quantity below 1 is ignored.
type Change struct {
	Quantity *int
	Price    *decimal.Decimal
	Name     *string
}

// Edit applies change to a line as a whole. Every field is checked before the
// cart sees a new quantity, and the line is only touched once the cart
// accepted it.
func (l *Ledger) Edit(ctx context.Context, index int, change Change) error {
	return l.edit(ctx, "edit", index, change)
}

func (l *Ledger) edit(ctx context.Context, op string, index int, change Change) error {
	return l.mutate(op, func() error {
		if err := l.checkIndex(index); err != nil {
			return err
		}
		item := l.items[index]
		if change.Price != nil && change.Price.IsNegative() {
			return ErrNegativePrice
		}
		if change.Name != nil && !item.Custom {
			return ErrNotCustomItem
		}

		quantity := item.Quantity
		if change.Quantity != nil && *change.Quantity >= 1 {
			quantity = *change.Quantity
		}
		if change.Price == nil && change.Name == nil && quantity == item.Quantity {
			return errUnchanged
		}
		if quantity != item.Quantity && !item.Custom {
			if l.cartID == "" {
				return ErrNoCartReference
			}
			if err := l.cart.UpdateQuantity(ctx, l.cartID, item.ProductID, quantity); err != nil {
				return l.rejected(op, fmt.Errorf("update cart quantity: %w", err))
			}
		}

		item.Quantity = quantity
		if change.Price != nil {
			item.UnitPrice = *change.Price
		}
		if change.Name != nil {
			item.Name = *change.Name
		}
		item.Recalculate()
		l.items[index] = item
		return nil
	})
}

// RemoveItem deletes a line, removing catalog products from the cart first
func (l *Ledger) RemoveItem(ctx context.Context, index int) error {
	return l.mutate("remove", func() error {
		if err := l.checkIndex(index); err != nil {
			return err
		}

		item := l.items[index]
		if !item.Custom {
			if l.cartID == "" {
				return ErrNoCartReference
			}
			if err := l.cart.RemoveItem(ctx, l.cartID, item.ProductID); err != nil {
				return l.rejected("remove", fmt.Errorf("remove from cart: %w", err))
			}
		}

		l.items = append(l.items[:index], l.items[index+1:]...)
		return nil
	})
}

// AddCustomItem appends a zero-priced free-form line and returns it
func (l *Ledger) AddCustomItem() models.LineItem {
	var item models.LineItem
	_ = l.mutate("add_custom", func() error {
		item = models.LineItem{
			LineID:    uuid.New().String(),
			Custom:    true,
			Quantity:  1,
			UnitPrice: decimal.Zero,
		}
		item.Recalculate()
		l.items = append(l.items, item)
		return nil
	})
	return item
}

// mutate runs fn under the lock and fires the change hook after releasing it
func (l *Ledger) mutate(op string, fn func() error) error {
	l.mu.Lock()
	err := fn()
	hook := l.onChange
	l.mu.Unlock()

	if errors.Is(err, errUnchanged) {
		return nil
	}
	if err != nil {
		return err
	}

	metrics.LedgerMutations.WithLabelValues(op, "success").Inc()
	if hook != nil {
		hook()
	}
	return nil
}

func (l *Ledger) rejected(op string, err error) error {
	metrics.LedgerMutations.WithLabelValues(op, "error").Inc()
	log.WithFields(log.Fields{
		"operation": op,
		"cart_id":   l.cartID,
	}).Warn("Ledger mutation rejected by cart: ", err)
	return err
}

func (l *Ledger) indexOfProduct(productID string) int {
	for i, it := range l.items {
		if !it.Custom && it.ProductID == productID {
			return i
		}
	}
	return -1
}

func (l *Ledger) checkIndex(index int) error {
	if index < 0 || index >= len(l.items) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	return nil
}

func copyItems(items []models.LineItem) []models.LineItem {
	if items == nil {
		return nil
	}
	out := make([]models.LineItem, len(items))
	copy(out, items)
	return out
}

// normalized copies items and recomputes every line total
func normalized(items []models.LineItem) []models.LineItem {
	out := copyItems(items)
	for i := range out {
		out[i].Recalculate()
	}
	return out
}
