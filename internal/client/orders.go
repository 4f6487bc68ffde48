package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/ashendes/order-edit/internal/models"
)

// OrderClient reads and updates order records
type OrderClient struct {
	c *collaborator
}

func NewOrderClient(b *Backend) *OrderClient {
	return &OrderClient{c: b.collaborator("Orders")}
}

// GetOrder fetches the full order record
func (o *OrderClient) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	if err := o.c.call(ctx, http.MethodGet, "/orders/"+url.PathEscape(orderID), nil, &order); err != nil {
		return nil, err
	}
	if err := validated(o.c.name, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateOrder applies a partial update and returns the updated record
func (o *OrderClient) UpdateOrder(ctx context.Context, orderID string, update models.OrderUpdate) (*models.Order, error) {
	var order models.Order
	if err := o.c.call(ctx, http.MethodPatch, "/orders/"+url.PathEscape(orderID), update, &order); err != nil {
		return nil, err
	}
	if err := validated(o.c.name, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateStatus changes the order status
func (o *OrderClient) UpdateStatus(ctx context.Context, orderID string, status models.OrderStatus) (*models.Order, error) {
	var order models.Order
	path := "/orders/" + url.PathEscape(orderID) + "/status"
	if err := o.c.call(ctx, http.MethodPatch, path, models.StatusUpdate{Status: status}, &order); err != nil {
		return nil, err
	}
	if err := validated(o.c.name, &order); err != nil {
		return nil, err
	}
	return &order, nil
}
