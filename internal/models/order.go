package models

import (
	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order as reported by the backend
type OrderStatus string

// OrderStatus constants
const (
	OrderStatusPending              OrderStatus = "pending"
	OrderStatusAcceptedByRestaurant OrderStatus = "accepted_by_restaurant"
	OrderStatusPreparing            OrderStatus = "preparing"
	OrderStatusReadyForPickup       OrderStatus = "ready_for_pickup"
	OrderStatusAssignedToAgent      OrderStatus = "assigned_to_agent"
	OrderStatusPickedUp             OrderStatus = "picked_up"
	OrderStatusOnTheWay             OrderStatus = "on_the_way"
	OrderStatusArrived              OrderStatus = "arrived"
	OrderStatusDelivered            OrderStatus = "delivered"
	OrderStatusCancelled            OrderStatus = "cancelled"
	OrderStatusRejectedByRestaurant OrderStatus = "rejected_by_restaurant"
)

// IsTerminal reports whether no further status transitions are possible
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusDelivered, OrderStatusCancelled, OrderStatusRejectedByRestaurant:
		return true
	}
	return false
}

// Valid reports whether s is one of the known statuses
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusAcceptedByRestaurant, OrderStatusPreparing,
		OrderStatusReadyForPickup, OrderStatusAssignedToAgent, OrderStatusPickedUp,
		OrderStatusOnTheWay, OrderStatusArrived, OrderStatusDelivered,
		OrderStatusCancelled, OrderStatusRejectedByRestaurant:
		return true
	}
	return false
}

// OrderType constants
const (
	OrderTypeDelivery = "delivery"
	OrderTypePickup   = "pickup"
	OrderTypeTakeaway = "takeaway"
)

// Order is the authoritative order record held by the backend
type Order struct {
	ID               string       `json:"_id" validate:"required"`
	Status           OrderStatus  `json:"status" validate:"required,order_status"`
	CustomerID       string       `json:"userId" validate:"required"`
	RestaurantID     string       `json:"restaurantId" validate:"required"`
	OrderType        string       `json:"orderType,omitempty" validate:"omitempty,oneof=delivery pickup takeaway"`
	DeliveryAddress  Address      `json:"deliveryAddress"`
	DeliveryLocation *GeoPoint    `json:"deliveryLocation,omitempty"`
	PaymentMethod    string       `json:"paymentMethod,omitempty"`
	Pricing          PriceSummary `json:"pricing"`
	CartID           string       `json:"cartId,omitempty"`
	Items            []LineItem   `json:"orderItems" validate:"dive"`
	AdditionalInfo   string       `json:"additionalInfo,omitempty"`
}

// RequiresRouting reports whether pricing needs the delivery coordinates.
// An empty order type is treated as delivery.
func (o *Order) RequiresRouting() bool {
	return o.OrderType == "" || o.OrderType == OrderTypeDelivery
}

// Subtotal sums the line totals of the order
func (o *Order) Subtotal() decimal.Decimal {
	return SumLines(o.Items)
}

// OrderUpdate is the partial payload of an order update. Only one section is
// set per request.
type OrderUpdate struct {
	AdditionalInfo   *string    `json:"additionalInfo,omitempty"`
	OrderItems       []LineItem `json:"orderItems,omitempty"`
	DeliveryAddress  *Address   `json:"deliveryAddress,omitempty"`
	DeliveryLocation *GeoPoint  `json:"deliveryLocation,omitempty"`
}

// StatusUpdate is the payload of an order status change
type StatusUpdate struct {
	Status OrderStatus `json:"status" binding:"required"`
}
