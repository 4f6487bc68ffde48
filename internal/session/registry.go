package session

import (
	"context"
	"sync"

	"github.com/ashendes/order-edit/internal/metrics"
	log "github.com/sirupsen/logrus"
)

// Registry keeps one open session per order
type Registry struct {
	deps Dependencies

	mu       sync.Mutex
	sessions map[string]*Controller
}

func NewRegistry(deps Dependencies) *Registry {
	return &Registry{deps: deps, sessions: make(map[string]*Controller)}
}

// Open returns the session of orderID, loading the order on first use
func (r *Registry) Open(ctx context.Context, orderID string) (*Controller, error) {
	if c, ok := r.Get(orderID); ok {
		return c, nil
	}

	c := NewController(orderID, r.deps)
	if _, err := c.Load(ctx); err != nil {
		c.Close()
		return nil, err
	}

	r.mu.Lock()
	if existing, ok := r.sessions[orderID]; ok {
		r.mu.Unlock()
		c.Close()
		return existing, nil
	}
	r.sessions[orderID] = c
	r.mu.Unlock()

	metrics.EditSessions.Inc()
	log.WithField("order_id", orderID).Info("Opened order session")
	return c, nil
}

// Get returns the open session of orderID
func (r *Registry) Get(orderID string) (*Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.sessions[orderID]
	return c, ok
}

// Close releases the session of orderID and reports whether one was open
func (r *Registry) Close(orderID string) bool {
	r.mu.Lock()
	c, ok := r.sessions[orderID]
	delete(r.sessions, orderID)
	r.mu.Unlock()

	if !ok {
		return false
	}
	c.Close()
	metrics.EditSessions.Dec()
	log.WithField("order_id", orderID).Info("Closed order session")
	return true
}

// CloseAll releases every open session
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Controller)
	r.mu.Unlock()

	for _, c := range sessions {
		c.Close()
		metrics.EditSessions.Dec()
	}
}

// Len returns the number of open sessions
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
