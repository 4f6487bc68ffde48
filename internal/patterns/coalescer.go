package patterns

import (
	"context"
	"sync"
	"time"

	"github.com/ashendes/order-edit/internal/metrics"
)

// Coalescer accumulates updates to a value and runs a single task with the
// latest value once no update has arrived for the quiet window.
//
// The accumulated value is copied shallowly when handed to the task, so
// mutations must replace pointer fields instead of writing through them.
type Coalescer[T any] struct {
	name  string
	quiet time.Duration
	run   func(context.Context, T)

	mu         sync.Mutex
	state      T
	timer      *time.Timer
	armed      bool
	generation uint64
	stopped    bool
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// NewCoalescer creates a coalescer seeded with initial
func NewCoalescer[T any](name string, quiet time.Duration, initial T, run func(context.Context, T)) *Coalescer[T] {
	ctx, cancel := context.WithCancel(context.Background())
	return &Coalescer[T]{
		name:   name,
		quiet:  quiet,
		run:    run,
		state:  initial,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Update applies mutate to the accumulated value and (re)arms the quiet timer
func (c *Coalescer[T]) Update(mutate func(*T)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if mutate != nil {
		mutate(&c.state)
	}
	if c.stopped {
		return
	}
	c.arm()
}

// Accumulate applies mutate without scheduling a run
func (c *Coalescer[T]) Accumulate(mutate func(*T)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	mutate(&c.state)
	metrics.CoalescedUpdates.WithLabelValues(c.name, "accumulated").Inc()
}

// Snapshot returns a copy of the accumulated value
func (c *Coalescer[T]) Snapshot() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Pending reports whether a run is scheduled
func (c *Coalescer[T]) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.armed
}

// Cancel drops a scheduled run, keeping the accumulated value
func (c *Coalescer[T]) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disarm()
}

// Flush runs the task immediately if a run is scheduled and reports whether it did
func (c *Coalescer[T]) Flush() bool {
	c.mu.Lock()
	if !c.armed || c.stopped {
		c.mu.Unlock()
		return false
	}
	c.disarm()
	snapshot := c.state
	c.wg.Add(1)
	c.mu.Unlock()

	defer c.wg.Done()
	c.run(c.ctx, snapshot)
	return true
}

// Stop drops any scheduled run, cancels the context handed to running tasks
// and waits for them to return. The coalescer cannot be restarted.
func (c *Coalescer[T]) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	c.disarm()
	c.cancel()
	c.mu.Unlock()

	c.wg.Wait()
}

func (c *Coalescer[T]) arm() {
	kind := "scheduled"
	if c.armed {
		c.timer.Stop()
		kind = "coalesced"
	}
	metrics.CoalescedUpdates.WithLabelValues(c.name, kind).Inc()

	c.generation++
	gen := c.generation
	c.armed = true
	c.timer = time.AfterFunc(c.quiet, func() { c.fire(gen) })
}

func (c *Coalescer[T]) disarm() {
	if c.armed {
		c.timer.Stop()
	}
	c.armed = false
	c.generation++
}

func (c *Coalescer[T]) fire(gen uint64) {
	c.mu.Lock()
	if c.stopped || !c.armed || gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.armed = false
	snapshot := c.state
	c.wg.Add(1)
	c.mu.Unlock()

	defer c.wg.Done()
	c.run(c.ctx, snapshot)
}
