// Package pricing keeps the displayed price summary of an edit session in
// line with the current items, address, tip and discounts.
package pricing

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ashendes/order-edit/internal/metrics"
	"github.com/ashendes/order-edit/internal/models"
	"github.com/ashendes/order-edit/internal/patterns"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// DefaultDebounce is the quiet window before a recompute fires
const DefaultDebounce = 750 * time.Millisecond

var (
	ErrMissingCart       = errors.New("order has no cart reference")
	ErrMissingCustomer   = errors.New("order has no customer reference")
	ErrMissingRestaurant = errors.New("order has no restaurant reference")
	ErrStaleResponse     = errors.New("price summary superseded by a newer request")
)

// Context is everything a price summary depends on
type Context struct {
	CartID          string
	CustomerID      string
	RestaurantID    string
	TipAmount       decimal.Decimal
	CouponCode      string
	LoyaltyPoints   int
	RequiresRouting bool
	// Coordinates must be replaced, never written through
	Coordinates *models.Coordinates
}

// Validate checks the references a recompute needs
func (c Context) Validate() error {
	if c.CartID == "" {
		return ErrMissingCart
	}
	if c.CustomerID == "" {
		return ErrMissingCustomer
	}
	if c.RestaurantID == "" {
		return ErrMissingRestaurant
	}
	return nil
}

// Request builds the pricing payload. Coordinates are sent only for orders
// that need routing and have a resolved location.
func (c Context) Request() models.PriceSummaryRequest {
	req := models.PriceSummaryRequest{
		CartID:                c.CartID,
		UserID:                c.CustomerID,
		TipAmount:             c.TipAmount,
		UseLoyaltyPoints:      c.LoyaltyPoints > 0,
		LoyaltyPointsToRedeem: c.LoyaltyPoints,
		WalletAmount:          decimal.Zero,
		CouponCode:            c.CouponCode,
	}
	if c.RequiresRouting && c.Coordinates != nil {
		lng, lat := c.Coordinates.Longitude, c.Coordinates.Latitude
		req.Longitude = &lng
		req.Latitude = &lat
	}
	return req
}

// Calculator computes price summaries remotely
type Calculator interface {
	PriceSummary(ctx context.Context, req models.PriceSummaryRequest) (*models.PriceSummary, error)
}

// Reconciler recomputes the price summary of one edit session. Changes are
// accumulated into a pending Context and, while the reconciler is active,
// collapsed into one recompute once they stop arriving.
//
// Every request carries a sequence number. A response is applied only when
// no newer request has settled, so a slow answer cannot overwrite a fresher
// one.
type Reconciler struct {
	calc    Calculator
	pending *patterns.Coalescer[Context]

	mu       sync.Mutex
	active   bool
	summary  *models.PriceSummary
	lastErr  error
	issued   uint64
	settled  uint64
	inFlight int
}

// NewReconciler creates an inactive reconciler seeded with initial
func NewReconciler(calc Calculator, debounce time.Duration, initial Context) *Reconciler {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	r := &Reconciler{calc: calc}
	r.pending = patterns.NewCoalescer("pricing", debounce, initial, func(ctx context.Context, c Context) {
		_, _ = r.Recompute(ctx, c)
	})
	return r
}

// Seed sets the summary shown before the first recompute
func (r *Reconciler) Seed(summary models.PriceSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary = &summary
}

// Activate enables scheduling on Update and schedules a recompute with the
// accumulated context
func (r *Reconciler) Activate() {
	r.mu.Lock()
	r.active = true
	r.mu.Unlock()

	r.pending.Update(nil)
}

// Deactivate stops scheduling and drops a scheduled recompute. Updates keep
// accumulating.
func (r *Reconciler) Deactivate() {
	r.mu.Lock()
	r.active = false
	r.mu.Unlock()

	r.pending.Cancel()
}

// Active reports whether updates schedule recomputes
func (r *Reconciler) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Update applies mutate to the pending context and, while active, schedules
// a debounced recompute
func (r *Reconciler) Update(mutate func(*Context)) {
	if r.Active() {
		r.pending.Update(mutate)
		return
	}
	r.pending.Accumulate(mutate)
}

// Context returns the pending context
func (r *Reconciler) Context() Context {
	return r.pending.Snapshot()
}

// Pending reports whether a recompute is scheduled
func (r *Reconciler) Pending() bool {
	return r.pending.Pending()
}

// Retry recomputes immediately with the pending context. A scheduled
// recompute runs now instead of waiting out the quiet window.
func (r *Reconciler) Retry(ctx context.Context) (*models.PriceSummary, error) {
	if r.pending.Flush() {
		if err := r.Err(); err != nil {
			return nil, err
		}
		return r.Summary(), nil
	}
	return r.Recompute(ctx, r.pending.Snapshot())
}

// Recompute fetches a price summary for c. On success the summary replaces
// the current one; on failure the current summary is kept and the error is
// recorded.
func (r *Reconciler) Recompute(ctx context.Context, c Context) (*models.PriceSummary, error) {
	if err := c.Validate(); err != nil {
		metrics.PricingRecomputes.WithLabelValues("invalid").Inc()
		r.mu.Lock()
		r.lastErr = err
		r.mu.Unlock()
		return nil, err
	}

	r.mu.Lock()
	r.issued++
	seq := r.issued
	r.inFlight++
	r.mu.Unlock()

	summary, err := r.calc.PriceSummary(ctx, c.Request())

	r.mu.Lock()
	defer r.mu.Unlock()
	r.inFlight--

	fields := log.Fields{"cart_id": c.CartID, "seq": seq}
	if seq < r.settled {
		metrics.PricingRecomputes.WithLabelValues("stale").Inc()
		log.WithFields(fields).Info("Dropping superseded price summary")
		return nil, ErrStaleResponse
	}
	r.settled = seq

	if err != nil {
		metrics.PricingRecomputes.WithLabelValues("failed").Inc()
		log.WithFields(fields).Warn("Price summary recompute failed: ", err)
		r.lastErr = err
		return nil, err
	}

	metrics.PricingRecomputes.WithLabelValues("applied").Inc()
	r.summary = summary
	r.lastErr = nil
	out := *summary
	return &out, nil
}

// Summary returns the last applied summary, or nil
func (r *Reconciler) Summary() *models.PriceSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.summary == nil {
		return nil
	}
	out := *r.summary
	return &out
}

// Err returns the error of the latest settled recompute
func (r *Reconciler) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

// Loading reports whether a recompute is in flight
func (r *Reconciler) Loading() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inFlight > 0
}

// Close drops scheduled recomputes and waits for a running one
func (r *Reconciler) Close() {
	r.pending.Stop()
}
