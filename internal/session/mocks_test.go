package session

import (
	"context"
	"sync"
	"time"

	"github.com/ashendes/order-edit/internal/events"
	"github.com/ashendes/order-edit/internal/models"
	"github.com/shopspring/decimal"
)

type mockOrders struct {
	mu        sync.Mutex
	order     models.Order
	getCalls  int
	updates   []models.OrderUpdate
	statuses  []models.OrderStatus
	getErr    error
	updateErr error
	// block, when set, holds UpdateOrder until closed
	block chan struct{}
}

func (m *mockOrders) GetOrder(_ context.Context, _ string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	if m.getErr != nil {
		return nil, m.getErr
	}
	o := m.order
	o.Items = append([]models.LineItem(nil), m.order.Items...)
	return &o, nil
}

func (m *mockOrders) UpdateOrder(_ context.Context, _ string, update models.OrderUpdate) (*models.Order, error) {
	m.mu.Lock()
	m.updates = append(m.updates, update)
	block := m.block
	m.mu.Unlock()

	if block != nil {
		<-block
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	if update.OrderItems != nil {
		m.order.Items = update.OrderItems
	}
	if update.DeliveryAddress != nil {
		m.order.DeliveryAddress = *update.DeliveryAddress
		m.order.DeliveryLocation = update.DeliveryLocation
	}
	if update.AdditionalInfo != nil {
		m.order.AdditionalInfo = *update.AdditionalInfo
	}
	o := m.order
	return &o, nil
}

func (m *mockOrders) UpdateStatus(_ context.Context, _ string, status models.OrderStatus) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses = append(m.statuses, status)
	m.order.Status = status
	o := m.order
	return &o, nil
}

func (m *mockOrders) getUpdates() []models.OrderUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.OrderUpdate(nil), m.updates...)
}

type mockCart struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (m *mockCart) record(call string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
	return m.err
}

func (m *mockCart) AddItems(_ context.Context, req models.AddToCartRequest) (string, error) {
	if err := m.record("add:" + req.Products[0].ProductID); err != nil {
		return "", err
	}
	return req.CartID, nil
}

func (m *mockCart) UpdateQuantity(_ context.Context, _, productID string, _ int) error {
	return m.record("update:" + productID)
}

func (m *mockCart) RemoveItem(_ context.Context, _, productID string) error {
	return m.record("remove:" + productID)
}

func (m *mockCart) getCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

type mockMenus struct {
	menu []models.Category
}

func (m mockMenus) Menu(context.Context, string) ([]models.Category, error) {
	return m.menu, nil
}

type mockPricing struct {
	mu       sync.Mutex
	requests []models.PriceSummaryRequest
}

func (m *mockPricing) PriceSummary(_ context.Context, req models.PriceSummaryRequest) (*models.PriceSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	return &models.PriceSummary{TipAmount: req.TipAmount, FinalAmount: decimal.NewFromInt(300).Add(req.TipAmount)}, nil
}

func (m *mockPricing) getRequests() []models.PriceSummaryRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.PriceSummaryRequest(nil), m.requests...)
}

type mockCoupons struct {
	coupons []models.Coupon
}

func (m mockCoupons) ListCoupons(context.Context) ([]models.Coupon, error) {
	return m.coupons, nil
}

type mockGeocoder struct{}

func (mockGeocoder) Forward(context.Context, string, int) ([]models.Candidate, error) {
	return []models.Candidate{{ID: "cand1", PlaceName: "2 Hill Road", Coordinates: models.Coordinates{Longitude: 73.9, Latitude: 18.6}}}, nil
}

func (mockGeocoder) Reverse(_ context.Context, _ models.Coordinates, featureType string) (*models.Address, error) {
	if featureType != "address" {
		return nil, nil
	}
	return &models.Address{Street: "2 Hill Road", City: "Pune", State: "Maharashtra", ZipCode: "411001"}, nil
}

type mockAddressBook struct {
	addresses []models.Address
}

func (m mockAddressBook) List(context.Context, string) ([]models.Address, error) {
	return m.addresses, nil
}

type mockPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (m *mockPublisher) Publish(_ context.Context, e events.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *mockPublisher) Close() error { return nil }

func (m *mockPublisher) getEvents() []events.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]events.Event(nil), m.events...)
}

type fixture struct {
	orders    *mockOrders
	cart      *mockCart
	pricing   *mockPricing
	publisher *mockPublisher
	deps      Dependencies
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func decPtr(v int64) *decimal.Decimal {
	d := dec(v)
	return &d
}

func intPtr(v int) *int { return &v }

func testOrder() models.Order {
	return models.Order{
		ID:           "o1",
		Status:       models.OrderStatusPending,
		CustomerID:   "u1",
		RestaurantID: "r1",
		OrderType:    models.OrderTypeDelivery,
		CartID:       "c1",
		DeliveryAddress: models.Address{
			Street:   "1 Main St",
			City:     "Pune",
			Location: models.NewGeoPoint(models.Coordinates{Longitude: 73.85, Latitude: 18.52}),
		},
		Pricing: models.PriceSummary{Subtotal: dec(200), FinalAmount: dec(230)},
		Items: []models.LineItem{
			{ProductID: "p1", Name: "Burger", UnitPrice: dec(100), Quantity: 2, TotalPrice: dec(200)},
		},
		AdditionalInfo: "ring the bell",
	}
}

func newFixture() *fixture {
	f := &fixture{
		orders:    &mockOrders{order: testOrder()},
		cart:      &mockCart{},
		pricing:   &mockPricing{},
		publisher: &mockPublisher{},
	}
	f.deps = Dependencies{
		Orders: f.orders,
		Cart:   f.cart,
		Menus: mockMenus{menu: []models.Category{{ID: "cat1", Name: "Mains", Items: []models.Product{
			{ID: "p1", Name: "Burger", Price: dec(100)},
			{ID: "p2", Name: "Fries", Price: dec(50), Description: "crispy"},
		}}}},
		Pricing: f.pricing,
		Coupons: mockCoupons{coupons: []models.Coupon{{
			ID: "k1", Code: "SAVE10", DiscountType: models.DiscountPercentage,
			DiscountValue: dec(10), MinOrderValue: dec(200), IsActive: true,
		}}},
		Geocoder: mockGeocoder{},
		AddressBook: mockAddressBook{addresses: []models.Address{{
			ID: "a1", Street: "9 Lake View", City: "Pune",
			Location: models.NewGeoPoint(models.Coordinates{Longitude: 73.7, Latitude: 18.4}),
		}}},
		Events:          f.publisher,
		PricingDebounce: 30 * time.Millisecond,
		SearchDebounce:  10 * time.Millisecond,
	}
	return f
}
