package models

import (
	"github.com/shopspring/decimal"
)

// LineItem represents one line of an order or of the editable ledger
type LineItem struct {
	LineID     string          `json:"lineId,omitempty"`
	ProductID  string          `json:"productId,omitempty" validate:"required_without=Custom"`
	Custom     bool            `json:"isCustom,omitempty"`
	Name       string          `json:"name"`
	UnitPrice  decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity" validate:"gte=1"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
	Image      string          `json:"image,omitempty"`
}

// Recalculate sets TotalPrice to Quantity × UnitPrice
func (li *LineItem) Recalculate() {
	li.TotalPrice = li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// SumLines adds up the line totals
func SumLines(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.TotalPrice)
	}
	return total
}

// CartProduct is one product entry of a cart mutation
type CartProduct struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// AddToCartRequest adds products to an existing cart
type AddToCartRequest struct {
	RestaurantID string        `json:"restaurantId"`
	CartID       string        `json:"cartId,omitempty"`
	Products     []CartProduct `json:"products"`
}

// AddToCartResponse carries the cart reference the products were added to
type AddToCartResponse struct {
	CartID string `json:"cartId" validate:"required"`
}

// UpdateCartItemRequest sets the quantity of a cart line
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}
