package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ashendes/order-edit/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cartCall struct {
	op        string
	productID string
	quantity  int
}

type mockCart struct {
	mu    sync.Mutex
	calls []cartCall
	err   error
}

func (m *mockCart) AddItems(_ context.Context, req models.AddToCartRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range req.Products {
		m.calls = append(m.calls, cartCall{op: "add", productID: p.ProductID, quantity: p.Quantity})
	}
	if m.err != nil {
		return "", m.err
	}
	return req.CartID, nil
}

func (m *mockCart) UpdateQuantity(_ context.Context, _, productID string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, cartCall{op: "update", productID: productID, quantity: quantity})
	return m.err
}

func (m *mockCart) RemoveItem(_ context.Context, _, productID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, cartCall{op: "remove", productID: productID})
	return m.err
}

func (m *mockCart) getCalls() []cartCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]cartCall(nil), m.calls...)
}

func price(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func burgerLine() models.LineItem {
	return models.LineItem{ProductID: "p1", Name: "Burger", UnitPrice: price(100), Quantity: 2, TotalPrice: price(200)}
}

func assertLineTotals(t *testing.T, items []models.LineItem) {
	t.Helper()
	for _, it := range items {
		assert.True(t, it.TotalPrice.Equal(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))),
			"line %s total %s", it.Name, it.TotalPrice)
		assert.GreaterOrEqual(t, it.Quantity, 1)
	}
}

func TestAddItem_ExistingProductIncrementsQuantity(t *testing.T) {
	cart := &mockCart{}
	l := New(cart, "r1", "c1", []models.LineItem{burgerLine()})

	require.NoError(t, l.AddItem(context.Background(), models.Product{ID: "p1", Name: "Burger", Price: price(100)}))

	assert.Equal(t, []cartCall{{op: "update", productID: "p1", quantity: 3}}, cart.getCalls())
	items := l.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Quantity)
	assert.True(t, items[0].TotalPrice.Equal(price(300)))
}

func TestAddItem_NewProductAddsLine(t *testing.T) {
	cart := &mockCart{}
	l := New(cart, "r1", "c1", []models.LineItem{burgerLine()})

	fries := models.Product{ID: "p2", Name: "Fries", Price: price(50), Images: []string{"fries.png"}}
	require.NoError(t, l.AddItem(context.Background(), fries))

	assert.Equal(t, []cartCall{{op: "add", productID: "p2", quantity: 1}}, cart.getCalls())
	items := l.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "Fries", items[1].Name)
	assert.Equal(t, "fries.png", items[1].Image)
	assert.NotEmpty(t, items[1].LineID)
	assert.True(t, l.Subtotal().Equal(price(250)))
}

// Scenario A: the cart rejects the add and the local list does not change.
func TestAddItem_TwiceFromEmpty(t *testing.T) {
	cart := &mockCart{}
	l := New(cart, "r1", "c1", nil)
	burger := models.Product{ID: "p1", Name: "Burger", Price: price(100)}

	require.NoError(t, l.AddItem(context.Background(), burger))
	require.NoError(t, l.AddItem(context.Background(), burger))

	items := l.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, "200", l.Subtotal().String())
	assert.Equal(t, []cartCall{
		{op: "add", productID: "p1", quantity: 1},
		{op: "update", productID: "p1", quantity: 2},
	}, cart.getCalls())
}

func TestAddItem_RemoteFailureLeavesLedgerUnchanged(t *testing.T) {
	cart := &mockCart{err: errors.New("out of stock")}
	l := New(cart, "r1", "c1", []models.LineItem{burgerLine()})
	before := l.Items()

	err := l.AddItem(context.Background(), models.Product{ID: "p2", Name: "Fries", Price: price(50)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of stock")
	assert.Equal(t, before, l.Items())

	err = l.AddItem(context.Background(), models.Product{ID: "p1", Name: "Burger", Price: price(100)})
	require.Error(t, err)
	assert.Equal(t, before, l.Items())
}

func TestAddItem_WithoutCartReference(t *testing.T) {
	cart := &mockCart{}
	l := New(cart, "r1", "", nil)

	err := l.AddItem(context.Background(), models.Product{ID: "p1", Price: price(100)})
	assert.ErrorIs(t, err, ErrNoCartReference)
	assert.Empty(t, cart.getCalls())
}

func TestUpdateQuantity_FloorIsOne(t *testing.T) {
	cart := &mockCart{}
	l := New(cart, "r1", "c1", []models.LineItem{burgerLine()})

	for _, q := range []int{0, -1, -50} {
		require.NoError(t, l.UpdateQuantity(context.Background(), 0, q))
	}
	assert.Empty(t, cart.getCalls())
	assert.Equal(t, 2, l.Items()[0].Quantity)

	require.NoError(t, l.UpdateQuantity(context.Background(), 0, 5))
	assert.Equal(t, []cartCall{{op: "update", productID: "p1", quantity: 5}}, cart.getCalls())
	assert.True(t, l.Items()[0].TotalPrice.Equal(price(500)))
}

func TestUpdateQuantity_IndexOutOfRange(t *testing.T) {
	l := New(&mockCart{}, "r1", "c1", []models.LineItem{burgerLine()})
	assert.ErrorIs(t, l.UpdateQuantity(context.Background(), 3, 2), ErrIndexOutOfRange)
	assert.ErrorIs(t, l.RemoveItem(context.Background(), -1), ErrIndexOutOfRange)
}

// Scenario D: a custom line never reaches the cart.
func TestCustomItem_StaysLocal(t *testing.T) {
	cart := &mockCart{}
	l := New(cart, "r1", "c1", []models.LineItem{burgerLine()})

	item := l.AddCustomItem()
	assert.True(t, item.Custom)
	assert.True(t, item.UnitPrice.IsZero())
	assert.Equal(t, 1, item.Quantity)

	require.NoError(t, l.UpdateName(1, "Extra sauce"))
	require.NoError(t, l.UpdatePrice(1, price(20)))
	require.NoError(t, l.UpdateQuantity(context.Background(), 1, 3))

	items := l.Items()
	assert.Equal(t, "Extra sauce", items[1].Name)
	assert.True(t, items[1].TotalPrice.Equal(price(60)))
	assert.True(t, l.Subtotal().Equal(price(260)))

	require.NoError(t, l.RemoveItem(context.Background(), 1))
	assert.Len(t, l.Items(), 1)
	assert.Empty(t, cart.getCalls())
}

func TestUpdateName_RejectsCatalogItem(t *testing.T) {
	l := New(&mockCart{}, "r1", "c1", []models.LineItem{burgerLine()})
	assert.ErrorIs(t, l.UpdateName(0, "Renamed"), ErrNotCustomItem)
	assert.Equal(t, "Burger", l.Items()[0].Name)
}

func TestUpdatePrice_RecalculatesTotal(t *testing.T) {
	cart := &mockCart{}
	l := New(cart, "r1", "c1", []models.LineItem{burgerLine()})

	require.NoError(t, l.UpdatePrice(0, decimal.RequireFromString("99.50")))
	assert.True(t, l.Items()[0].TotalPrice.Equal(decimal.RequireFromString("199")))
	assert.ErrorIs(t, l.UpdatePrice(0, price(-1)), ErrNegativePrice)
	assert.Empty(t, cart.getCalls())
}

func TestEdit_AppliesAllFields(t *testing.T) {
	cart := &mockCart{}
	l := New(cart, "r1", "c1", []models.LineItem{burgerLine()})
	custom := l.AddCustomItem()
	ctx := context.Background()

	qty, name, unit := 3, "Extra sauce", price(20)
	require.NoError(t, l.Edit(ctx, 1, Change{Quantity: &qty, Price: &unit, Name: &name}))

	qty, unit = 3, price(90)
	require.NoError(t, l.Edit(ctx, 0, Change{Quantity: &qty, Price: &unit}))

	items := l.Items()
	assert.Equal(t, custom.LineID, items[1].LineID)
	assert.Equal(t, "Extra sauce", items[1].Name)
	assert.True(t, items[1].TotalPrice.Equal(price(60)))
	assert.True(t, items[0].TotalPrice.Equal(price(270)))
	assert.Equal(t, []cartCall{{op: "update", productID: "p1", quantity: 3}}, cart.getCalls())
}

func TestEdit_RejectedQuantityLeavesLineUntouched(t *testing.T) {
	cart := &mockCart{err: errors.New("out of stock")}
	l := New(cart, "r1", "c1", []models.LineItem{burgerLine()})

	var changes int
	l.OnChange(func() { changes++ })

	qty, unit := 5, price(80)
	require.Error(t, l.Edit(context.Background(), 0, Change{Quantity: &qty, Price: &unit}))

	item := l.Items()[0]
	assert.Equal(t, 2, item.Quantity)
	assert.True(t, item.UnitPrice.Equal(price(100)))
	assert.True(t, item.TotalPrice.Equal(price(200)))
	assert.Zero(t, changes)
}

func TestEdit_InvalidFieldsNeverReachCart(t *testing.T) {
	cart := &mockCart{}
	l := New(cart, "r1", "c1", []models.LineItem{burgerLine()})
	ctx := context.Background()

	qty, name, negative := 4, "Renamed", price(-1)
	assert.ErrorIs(t, l.Edit(ctx, 0, Change{Quantity: &qty, Name: &name}), ErrNotCustomItem)
	assert.ErrorIs(t, l.Edit(ctx, 0, Change{Quantity: &qty, Price: &negative}), ErrNegativePrice)
	assert.ErrorIs(t, l.Edit(ctx, 2, Change{Quantity: &qty}), ErrIndexOutOfRange)

	assert.Empty(t, cart.getCalls())
	assert.Equal(t, 2, l.Items()[0].Quantity)
}

func TestRemoveItem_RemoteFirst(t *testing.T) {
	cart := &mockCart{err: errors.New("cart locked")}
	l := New(cart, "r1", "c1", []models.LineItem{burgerLine()})

	require.Error(t, l.RemoveItem(context.Background(), 0))
	assert.Len(t, l.Items(), 1)

	cart.err = nil
	require.NoError(t, l.RemoveItem(context.Background(), 0))
	assert.Empty(t, l.Items())
	assert.Equal(t, "remove", cart.getCalls()[1].op)
}

func TestOnChange_FiresOnlyOnSuccess(t *testing.T) {
	cart := &mockCart{}
	l := New(cart, "r1", "c1", []models.LineItem{burgerLine()})

	var changes int
	l.OnChange(func() {
		changes++
		// the hook runs outside the lock
		_ = l.Subtotal()
	})

	require.NoError(t, l.UpdateQuantity(context.Background(), 0, 4))
	require.NoError(t, l.UpdateQuantity(context.Background(), 0, 0))
	require.NoError(t, l.UpdateQuantity(context.Background(), 0, 4))
	cart.err = errors.New("boom")
	require.Error(t, l.UpdateQuantity(context.Background(), 0, 6))

	assert.Equal(t, 1, changes)
}

func TestLineTotalsHoldAfterMixedEdits(t *testing.T) {
	l := New(&mockCart{}, "r1", "c1", []models.LineItem{
		burgerLine(),
		{ProductID: "p2", Name: "Fries", UnitPrice: price(50), Quantity: 1, TotalPrice: price(999)},
	})
	ctx := context.Background()

	require.NoError(t, l.AddItem(ctx, models.Product{ID: "p2", Name: "Fries", Price: price(50)}))
	require.NoError(t, l.AddItem(ctx, models.Product{ID: "p3", Name: "Shake", Price: price(80)}))
	l.AddCustomItem()
	require.NoError(t, l.UpdatePrice(3, decimal.RequireFromString("12.25")))
	require.NoError(t, l.UpdateQuantity(ctx, 3, 4))
	require.NoError(t, l.UpdateQuantity(ctx, 0, 1))

	items := l.Items()
	assertLineTotals(t, items)
	assert.True(t, l.Subtotal().Equal(models.SumLines(items)))
	assert.True(t, l.Subtotal().Equal(decimal.RequireFromString("329")))
}

func TestItems_ReturnsCopy(t *testing.T) {
	l := New(&mockCart{}, "r1", "c1", []models.LineItem{burgerLine()})
	items := l.Items()
	items[0].Name = "Changed"
	assert.Equal(t, "Burger", l.Items()[0].Name)

	l.Reset(nil)
	assert.Empty(t, l.Items())
}
