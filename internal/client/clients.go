package client

import (
	"time"

	"github.com/ashendes/order-edit/internal/cache"
)

// Clients bundles every backend collaborator client
type Clients struct {
	Orders    *OrderClient
	Cart      *CartClient
	Menu      *MenuClient
	Pricing   *PricingClient
	Coupons   *CouponClient
	Addresses *AddressBookClient
}

// New builds all collaborator clients over one backend connection
func New(b *Backend, menuCache cache.Store, menuTTL time.Duration) *Clients {
	return &Clients{
		Orders:    NewOrderClient(b),
		Cart:      NewCartClient(b),
		Menu:      NewMenuClient(b, menuCache, menuTTL),
		Pricing:   NewPricingClient(b),
		Coupons:   NewCouponClient(b),
		Addresses: NewAddressBookClient(b),
	}
}
