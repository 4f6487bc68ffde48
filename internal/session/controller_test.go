package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ashendes/order-edit/internal/coupon"
	"github.com/ashendes/order-edit/internal/events"
	"github.com/ashendes/order-edit/internal/ledger"
	"github.com/ashendes/order-edit/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openController(t *testing.T, f *fixture) *Controller {
	t.Helper()
	c := NewController("o1", f.deps)
	t.Cleanup(c.Close)
	_, err := c.Load(context.Background())
	require.NoError(t, err)
	return c
}

func TestStartEdit_RequiresLoad(t *testing.T) {
	c := NewController("o1", newFixture().deps)
	defer c.Close()
	assert.ErrorIs(t, c.StartEdit(), ErrNotLoaded)
}

func TestStateMachine(t *testing.T) {
	f := newFixture()
	c := openController(t, f)

	mode, section := c.Mode()
	assert.Equal(t, ModeViewing, mode)
	assert.Empty(t, section)
	assert.ErrorIs(t, c.SwitchSection(SectionAddress), ErrNotEditing)

	require.NoError(t, c.StartEdit())
	mode, section = c.Mode()
	assert.Equal(t, ModeEditing, mode)
	assert.Equal(t, SectionItems, section)

	require.NoError(t, c.SwitchSection(SectionAdditionalInfo))
	_, section = c.Mode()
	assert.Equal(t, SectionAdditionalInfo, section)
	assert.ErrorIs(t, c.SwitchSection("payments"), ErrUnknownSection)

	require.NoError(t, c.Cancel())
	mode, _ = c.Mode()
	assert.Equal(t, ModeViewing, mode)

	// re-entrant
	require.NoError(t, c.StartEdit())
}

func TestEdits_OnlyInActiveSection(t *testing.T) {
	f := newFixture()
	c := openController(t, f)
	ctx := context.Background()

	assert.ErrorIs(t, c.AddProduct(ctx, "p2"), ErrNotEditing)

	require.NoError(t, c.StartEdit())
	require.NoError(t, c.SwitchSection(SectionAddress))

	assert.ErrorIs(t, c.AddProduct(ctx, "p2"), ErrSectionNotActive)
	assert.ErrorIs(t, c.UpdateItem(ctx, 0, ledger.Change{Quantity: intPtr(3)}), ErrSectionNotActive)
	assert.ErrorIs(t, c.SetAdditionalInfo("x"), ErrSectionNotActive)
	assert.Empty(t, f.cart.getCalls())

	require.NoError(t, c.SwitchSection(SectionItems))
	_, err := c.SelectFromMap(ctx, 1, 2)
	assert.ErrorIs(t, err, ErrSectionNotActive)
}

func TestSwitchSection_KeepsPendingEdits(t *testing.T) {
	f := newFixture()
	c := openController(t, f)

	require.NoError(t, c.StartEdit())
	require.NoError(t, c.SwitchSection(SectionAdditionalInfo))
	require.NoError(t, c.SetAdditionalInfo("leave at door"))
	require.NoError(t, c.SwitchSection(SectionItems))
	_, err := c.AddCustomItem()
	require.NoError(t, err)
	require.NoError(t, c.SwitchSection(SectionAdditionalInfo))

	view, err := c.View()
	require.NoError(t, err)
	assert.Equal(t, "leave at door", view.AdditionalInfo)
	assert.Len(t, view.Items, 2)
}

func TestSave_Items(t *testing.T) {
	f := newFixture()
	c := openController(t, f)
	ctx := context.Background()

	require.NoError(t, c.StartEdit())
	require.NoError(t, c.AddProduct(ctx, "p2"))
	require.NoError(t, c.AddProduct(ctx, "p2"))
	assert.Equal(t, []string{"add:p2", "update:p2"}, f.cart.getCalls())

	order, err := c.Save(ctx)
	require.NoError(t, err)
	require.Len(t, order.Items, 2)
	assert.Equal(t, 2, order.Items[1].Quantity)

	updates := f.orders.getUpdates()
	require.Len(t, updates, 1)
	assert.Len(t, updates[0].OrderItems, 2)
	assert.Nil(t, updates[0].DeliveryAddress)
	assert.Nil(t, updates[0].AdditionalInfo)

	mode, _ := c.Mode()
	assert.Equal(t, ModeViewing, mode)

	published := f.publisher.getEvents()
	require.Len(t, published, 1)
	assert.Equal(t, events.TypeOrderEdited, published[0].Type)
	assert.Equal(t, "items", published[0].Section)
}

func TestSave_FailureStaysEditing(t *testing.T) {
	f := newFixture()
	f.orders.updateErr = errors.New("backend down")
	c := openController(t, f)

	require.NoError(t, c.StartEdit())
	require.NoError(t, c.SwitchSection(SectionAdditionalInfo))
	require.NoError(t, c.SetAdditionalInfo("call on arrival"))

	_, err := c.Save(context.Background())
	require.Error(t, err)

	view, err := c.View()
	require.NoError(t, err)
	assert.Equal(t, ModeEditing, view.Mode)
	assert.Equal(t, SectionAdditionalInfo, view.Section)
	assert.Equal(t, "call on arrival", view.AdditionalInfo)
	assert.Contains(t, view.Error, "backend down")
	assert.Empty(t, f.publisher.getEvents())

	f.orders.mu.Lock()
	f.orders.updateErr = nil
	f.orders.mu.Unlock()

	order, err := c.Save(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "call on arrival", order.AdditionalInfo)
}

func TestSave_RejectsConcurrentSave(t *testing.T) {
	f := newFixture()
	f.orders.block = make(chan struct{})
	c := openController(t, f)

	require.NoError(t, c.StartEdit())
	require.NoError(t, c.SwitchSection(SectionAdditionalInfo))

	done := make(chan error, 1)
	go func() {
		_, err := c.Save(context.Background())
		done <- err
	}()
	require.Eventually(t, func() bool { return len(f.orders.getUpdates()) == 1 }, time.Second, time.Millisecond)

	_, err := c.Save(context.Background())
	assert.ErrorIs(t, err, ErrSaveInProgress)
	assert.ErrorIs(t, c.Cancel(), ErrSaveInProgress)

	close(f.orders.block)
	require.NoError(t, <-done)
	assert.Len(t, f.orders.getUpdates(), 1)
}

func TestSave_EmptyItemsRefused(t *testing.T) {
	f := newFixture()
	c := openController(t, f)

	require.NoError(t, c.StartEdit())
	require.NoError(t, c.RemoveItem(context.Background(), 0))

	_, err := c.Save(context.Background())
	assert.ErrorIs(t, err, ErrEmptyOrder)
	assert.Empty(t, f.orders.getUpdates())
}

func TestSave_Address(t *testing.T) {
	f := newFixture()
	c := openController(t, f)
	ctx := context.Background()

	require.NoError(t, c.StartEdit())
	require.NoError(t, c.SwitchSection(SectionAddress))
	_, err := c.SelectFromMap(ctx, 73.9, 18.6)
	require.NoError(t, err)

	order, err := c.Save(ctx)
	require.NoError(t, err)

	updates := f.orders.getUpdates()
	require.Len(t, updates, 1)
	require.NotNil(t, updates[0].DeliveryAddress)
	assert.Equal(t, "2 Hill Road", updates[0].DeliveryAddress.Street)
	require.NotNil(t, updates[0].DeliveryLocation)
	assert.Equal(t, [2]float64{73.9, 18.6}, updates[0].DeliveryLocation.Coordinates)
	assert.Equal(t, 73.9, *updates[0].DeliveryAddress.Longitude)
	assert.Empty(t, updates[0].OrderItems)

	// reloading for edit brings back the saved values
	require.NoError(t, c.StartEdit())
	view, err := c.View()
	require.NoError(t, err)
	assert.Equal(t, order.DeliveryAddress.Street, view.Address.Form.Street)
	assert.Equal(t, "Pune", view.Address.Form.City)
	assert.Equal(t, "411001", view.Address.Form.ZipCode)
	at, ok := view.Address.Form.Coordinates()
	require.True(t, ok)
	assert.Equal(t, models.Coordinates{Longitude: 73.9, Latitude: 18.6}, at)
}

func TestSelectSavedAddress(t *testing.T) {
	f := newFixture()
	c := openController(t, f)

	require.NoError(t, c.StartEdit())
	require.NoError(t, c.SwitchSection(SectionAddress))
	addr, err := c.SelectSavedAddress(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, "9 Lake View", addr.Street)
	require.NotNil(t, addr.Longitude)

	_, err = c.SelectSavedAddress(context.Background(), "missing")
	assert.Error(t, err)
}

func TestCancel_ResetsFromSnapshotWithoutWrites(t *testing.T) {
	f := newFixture()
	c := openController(t, f)
	ctx := context.Background()

	require.NoError(t, c.StartEdit())
	require.NoError(t, c.UpdateItem(ctx, 0, ledger.Change{Quantity: intPtr(5), Price: decPtr(80)}))
	require.NoError(t, c.SwitchSection(SectionAdditionalInfo))
	require.NoError(t, c.SetAdditionalInfo("changed"))
	require.NoError(t, c.SwitchSection(SectionAddress))
	require.NoError(t, c.UpdateAddress(func(a *models.Address) { a.Street = "elsewhere" }))

	require.NoError(t, c.Cancel())

	view, err := c.View()
	require.NoError(t, err)
	assert.Equal(t, ModeViewing, view.Mode)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 2, view.Items[0].Quantity)
	assert.True(t, view.Items[0].UnitPrice.Equal(dec(100)))
	assert.Equal(t, "ring the bell", view.AdditionalInfo)
	assert.Equal(t, "1 Main St", view.Address.Form.Street)
	assert.Empty(t, f.orders.getUpdates())
	assert.True(t, view.Pricing.FinalAmount.Equal(dec(230)))
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture()
	c := openController(t, f)
	ctx := context.Background()

	_, err := c.UpdateStatus(ctx, "teleported")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	order, err := c.UpdateStatus(ctx, models.OrderStatusAcceptedByRestaurant)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusAcceptedByRestaurant, order.Status)

	_, err = c.UpdateStatus(ctx, models.OrderStatusCancelled)
	require.NoError(t, err)

	_, err = c.UpdateStatus(ctx, models.OrderStatusPreparing)
	assert.ErrorIs(t, err, ErrTerminalStatus)

	assert.Equal(t, []models.OrderStatus{models.OrderStatusAcceptedByRestaurant, models.OrderStatusCancelled}, f.orders.statuses)
	published := f.publisher.getEvents()
	require.Len(t, published, 2)
	assert.Equal(t, events.TypeOrderStatusChanged, published[1].Type)
	assert.Equal(t, "cancelled", published[1].Status)
}

// Scenario E through the session
func TestTipChange_OneRecomputeWithCurrentDiscounts(t *testing.T) {
	f := newFixture()
	c := openController(t, f)

	require.NoError(t, c.StartEdit())
	_, err := c.SetLoyaltyPoints(15)
	require.NoError(t, err)
	_, err = c.ApplyCoupon(context.Background(), "SAVE10")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(f.pricing.getRequests()) == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, c.SetTip(dec(50)))
	require.Eventually(t, func() bool { return len(f.pricing.getRequests()) == 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(80 * time.Millisecond)

	requests := f.pricing.getRequests()
	require.Len(t, requests, 2)
	last := requests[1]
	assert.True(t, last.TipAmount.Equal(dec(50)))
	assert.Equal(t, "SAVE10", last.CouponCode)
	assert.Equal(t, 15, last.LoyaltyPointsToRedeem)
	require.NotNil(t, last.Longitude)
	assert.Equal(t, 73.85, *last.Longitude)

	view, err := c.View()
	require.NoError(t, err)
	assert.True(t, view.Pricing.FinalAmount.Equal(dec(350)))
}

func TestPricing_PendingUntilQuietWindowEnds(t *testing.T) {
	f := newFixture()
	f.deps.PricingDebounce = 200 * time.Millisecond
	c := openController(t, f)

	require.NoError(t, c.StartEdit())
	view, err := c.View()
	require.NoError(t, err)
	assert.True(t, view.PricingPending)

	require.Eventually(t, func() bool {
		v, err := c.View()
		return err == nil && !v.PricingPending && v.Pricing != nil && len(f.pricing.getRequests()) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestPricing_MissingRestaurantRecorded(t *testing.T) {
	f := newFixture()
	f.orders.order.RestaurantID = ""
	c := openController(t, f)

	require.NoError(t, c.StartEdit())
	require.Eventually(t, func() bool {
		v, err := c.View()
		return err == nil && v.PricingError != ""
	}, time.Second, 5*time.Millisecond)

	view, err := c.View()
	require.NoError(t, err)
	assert.Contains(t, view.PricingError, "restaurant")
	assert.Empty(t, f.pricing.getRequests())
}

func TestUpdateItem_RejectedQuantityKeepsLine(t *testing.T) {
	f := newFixture()
	f.cart.err = errors.New("out of stock")
	c := openController(t, f)
	ctx := context.Background()

	require.NoError(t, c.StartEdit())
	err := c.UpdateItem(ctx, 0, ledger.Change{Quantity: intPtr(9), Price: decPtr(80)})
	require.Error(t, err)

	view, err := c.View()
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 2, view.Items[0].Quantity)
	assert.True(t, view.Items[0].UnitPrice.Equal(dec(100)))
	assert.Contains(t, view.Error, "out of stock")
}

func TestPricing_NotTriggeredWhileViewing(t *testing.T) {
	f := newFixture()
	_ = openController(t, f)

	time.Sleep(80 * time.Millisecond)
	assert.Empty(t, f.pricing.getRequests())
}

func TestPricing_PickupOrdersOmitCoordinates(t *testing.T) {
	f := newFixture()
	f.orders.order.OrderType = models.OrderTypePickup
	c := openController(t, f)

	require.NoError(t, c.StartEdit())
	require.Eventually(t, func() bool { return len(f.pricing.getRequests()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Nil(t, f.pricing.getRequests()[0].Longitude)
}

func TestApplyCoupon_UsesLedgerSubtotal(t *testing.T) {
	f := newFixture()
	c := openController(t, f)
	ctx := context.Background()

	require.NoError(t, c.StartEdit())
	sel, err := c.ApplyCoupon(ctx, "SAVE10")
	require.NoError(t, err)
	assert.True(t, sel.Discount.Equal(dec(20)))

	require.NoError(t, c.UpdateItem(ctx, 0, ledger.Change{Quantity: intPtr(1)}))
	_, err = c.ApplyCoupon(ctx, "SAVE10")
	assert.ErrorIs(t, err, coupon.ErrNotApplicable)

	options, err := c.Coupons(ctx)
	require.NoError(t, err)
	require.Len(t, options, 1)
	assert.Equal(t, coupon.ReasonBelowMinimum, options[0].Reason)

	_, err = c.ApplyCoupon(ctx, "NOPE")
	assert.ErrorIs(t, err, ErrCouponNotFound)
}

func TestSearchMenu(t *testing.T) {
	c := openController(t, newFixture())

	matches, err := c.SearchMenu(context.Background(), "CRISPY")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "p2", matches[0].Product.ID)
}

func TestAddProduct_UnknownProduct(t *testing.T) {
	f := newFixture()
	c := openController(t, f)

	require.NoError(t, c.StartEdit())
	assert.ErrorIs(t, c.AddProduct(context.Background(), "p9"), ErrProductNotFound)
	assert.Empty(t, f.cart.getCalls())
}

func TestAddProduct_CartFailureRecorded(t *testing.T) {
	f := newFixture()
	f.cart.err = errors.New("cart locked")
	c := openController(t, f)

	require.NoError(t, c.StartEdit())
	require.Error(t, c.AddProduct(context.Background(), "p2"))

	view, err := c.View()
	require.NoError(t, err)
	assert.Len(t, view.Items, 1)
	assert.Contains(t, view.Error, "cart locked")
}

func TestClose_RejectsFurtherUse(t *testing.T) {
	c := openController(t, newFixture())
	c.Close()

	assert.ErrorIs(t, c.StartEdit(), ErrSessionClosed)
	_, err := c.View()
	assert.ErrorIs(t, err, ErrSessionClosed)
}
