package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/ashendes/order-edit/internal/cache"
	"github.com/ashendes/order-edit/internal/models"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// MenuClient fetches restaurant menus, caching them for a short time
type MenuClient struct {
	c     *collaborator
	store cache.Store
	ttl   time.Duration
	sfg   singleflight.Group
}

func NewMenuClient(b *Backend, store cache.Store, ttl time.Duration) *MenuClient {
	if store == nil {
		store = cache.Nop{}
	}
	return &MenuClient{c: b.collaborator("Menu"), store: store, ttl: ttl}
}

// Menu returns the category-grouped menu of a restaurant
func (m *MenuClient) Menu(ctx context.Context, restaurantID string) ([]models.Category, error) {
	v, err, _ := m.sfg.Do(restaurantID, func() (interface{}, error) {
		var menu []models.Category
		err := m.store.Get(ctx, restaurantID, &menu)
		if err == nil {
			return menu, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			log.WithField("restaurant_id", restaurantID).Warn("Menu cache read failed: ", err)
		}

		if err := m.c.call(ctx, http.MethodGet, "/restaurants/"+url.PathEscape(restaurantID)+"/menu", nil, &menu); err != nil {
			return nil, err
		}
		for i := range menu {
			if err := validated(m.c.name, &menu[i]); err != nil {
				return nil, err
			}
		}

		if err := m.store.Set(ctx, restaurantID, menu, m.ttl); err != nil {
			log.WithField("restaurant_id", restaurantID).Warn("Menu cache write failed: ", err)
		}
		return menu, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.Category), nil
}
