package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/ashendes/order-edit/internal/models"
)

// CartClient mutates the remote cart tied to an order
type CartClient struct {
	c *collaborator
}

func NewCartClient(b *Backend) *CartClient {
	return &CartClient{c: b.collaborator("Cart")}
}

// AddItems adds products to the cart and returns the cart reference
func (cc *CartClient) AddItems(ctx context.Context, req models.AddToCartRequest) (string, error) {
	var resp models.AddToCartResponse
	if err := cc.c.call(ctx, http.MethodPost, "/cart/add", req, &resp); err != nil {
		return "", err
	}
	if err := validated(cc.c.name, &resp); err != nil {
		return "", err
	}
	return resp.CartID, nil
}

// UpdateQuantity sets the quantity of a product in the cart
func (cc *CartClient) UpdateQuantity(ctx context.Context, cartID, productID string, quantity int) error {
	return cc.c.call(ctx, http.MethodPut, itemPath(cartID, productID), models.UpdateCartItemRequest{Quantity: quantity}, nil)
}

// RemoveItem removes a product from the cart
func (cc *CartClient) RemoveItem(ctx context.Context, cartID, productID string) error {
	return cc.c.call(ctx, http.MethodDelete, itemPath(cartID, productID), nil, nil)
}

func itemPath(cartID, productID string) string {
	return "/cart/" + url.PathEscape(cartID) + "/items/" + url.PathEscape(productID)
}
