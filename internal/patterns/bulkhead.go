package patterns

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ashendes/order-edit/internal/metrics"
)

// ErrBulkheadFull is returned when no slot frees up within the wait timeout
var ErrBulkheadFull = errors.New("timeout acquiring resource")

// Bulkhead implements the bulkhead pattern for resource isolation
type Bulkhead struct {
	semaphore   chan struct{}
	name        string
	service     string
	waitTimeout time.Duration
}

// NewBulkhead creates a new bulkhead with specified capacity
func NewBulkhead(size int, name, service string) *Bulkhead {
	return &Bulkhead{
		semaphore:   make(chan struct{}, size),
		name:        name,
		service:     service,
		waitTimeout: time.Second,
	}
}

// Execute runs a function within the bulkhead's resource limits
func (b *Bulkhead) Execute(ctx context.Context, fn func() error) error {
	timer := time.NewTimer(b.waitTimeout)
	defer timer.Stop()

	select {
	case b.semaphore <- struct{}{}:
		metrics.BulkheadActiveRequests.WithLabelValues(b.service, b.name).Inc()

		defer func() {
			<-b.semaphore
			metrics.BulkheadActiveRequests.WithLabelValues(b.service, b.name).Dec()
		}()

		return fn()

	case <-timer.C:
		metrics.BulkheadRejectedRequests.WithLabelValues(b.service, b.name).Inc()
		return fmt.Errorf("bulkhead %s: %w", b.name, ErrBulkheadFull)

	case <-ctx.Done():
		metrics.BulkheadRejectedRequests.WithLabelValues(b.service, b.name).Inc()
		return ctx.Err()
	}
}

// GetName returns the bulkhead name
func (b *Bulkhead) GetName() string {
	return b.name
}
