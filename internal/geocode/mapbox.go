package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ashendes/order-edit/internal/cache"
	"github.com/ashendes/order-edit/internal/client"
	"github.com/ashendes/order-edit/internal/config"
	"github.com/ashendes/order-edit/internal/metrics"
	"github.com/ashendes/order-edit/internal/models"
	"github.com/ashendes/order-edit/internal/patterns"
	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Feature types understood by the reverse lookup
const (
	TypeAddress      = "address"
	TypePOI          = "poi"
	TypePlace        = "place"
	TypeNeighborhood = "neighborhood"
)

// ErrNoAPIKey is returned when the maps provider key is not configured
var ErrNoAPIKey = errors.New("maps api key not configured")

// Client talks to a Mapbox-compatible geocoding API
type Client struct {
	http     *resty.Client
	baseURL  string
	apiKey   string
	store    cache.Store
	ttl      time.Duration
	circuit  *patterns.CircuitBreakerWrapper
	bulkhead *patterns.Bulkhead
	sfg      singleflight.Group
}

// NewClient creates a geocoding client. store may be nil.
func NewClient(cfg config.MapsConfig, store cache.Store) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = patterns.SlowServiceTimeout
	}
	if store == nil {
		store = cache.Nop{}
	}
	return &Client{
		http:     resty.New().SetTimeout(timeout).SetRetryCount(0),
		baseURL:  cfg.BaseURL,
		apiKey:   cfg.APIKey,
		store:    store,
		ttl:      cfg.CacheTTL,
		circuit:  patterns.NewCircuitBreaker("Maps", patterns.ServiceName),
		bulkhead: patterns.NewBulkhead(5, "maps", patterns.ServiceName),
	}
}

// Circuit reports the state of the maps circuit breaker
func (c *Client) Circuit() client.CircuitStatus {
	return client.CircuitStatus{
		Name:  c.circuit.Name(),
		State: c.circuit.GetState(),
		Value: c.circuit.GetStateValue(),
	}
}

type featureCollection struct {
	Features []feature `json:"features"`
}

type feature struct {
	ID         string                 `json:"id"`
	PlaceType  []string               `json:"place_type"`
	Relevance  float64                `json:"relevance"`
	Text       string                 `json:"text"`
	Address    string                 `json:"address"`
	PlaceName  string                 `json:"place_name"`
	Center     []float64              `json:"center"`
	Properties map[string]interface{} `json:"properties"`
	Context    []featureContext       `json:"context"`
}

type featureContext struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Forward returns up to limit candidate locations for a free-text query
func (c *Client) Forward(ctx context.Context, query string, limit int) ([]models.Candidate, error) {
	fc, err := c.lookup(ctx, url.PathEscape(query), map[string]string{
		"limit":        strconv.Itoa(limit),
		"autocomplete": "true",
	})
	if err != nil {
		return nil, err
	}

	candidates := make([]models.Candidate, 0, len(fc.Features))
	for _, f := range fc.Features {
		if len(f.Center) != 2 {
			continue
		}
		candidates = append(candidates, models.Candidate{
			ID:          f.ID,
			PlaceName:   f.PlaceName,
			Coordinates: models.Coordinates{Longitude: f.Center[0], Latitude: f.Center[1]},
			Relevance:   f.Relevance,
		})
		if len(candidates) == limit {
			break
		}
	}
	return candidates, nil
}

// Reverse resolves a coordinate into address fields restricted to one feature
// type. It returns nil without error when the provider has no match.
func (c *Client) Reverse(ctx context.Context, at models.Coordinates, featureType string) (*models.Address, error) {
	key := fmt.Sprintf("%s:%.6f,%.6f", featureType, at.Longitude, at.Latitude)

	v, err, _ := c.sfg.Do(key, func() (interface{}, error) {
		var cached models.Address
		err := c.store.Get(ctx, key, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			log.WithField("key", key).Warn("Geocode cache read failed: ", err)
		}

		position := strconv.FormatFloat(at.Longitude, 'f', -1, 64) + "," + strconv.FormatFloat(at.Latitude, 'f', -1, 64)
		fc, err := c.lookup(ctx, position, map[string]string{
			"types": featureType,
			"limit": "1",
		})
		if err != nil {
			return nil, err
		}
		if len(fc.Features) == 0 {
			return (*models.Address)(nil), nil
		}

		addr := toAddress(fc.Features[0], featureType)
		if err := c.store.Set(ctx, key, addr, c.ttl); err != nil {
			log.WithField("key", key).Warn("Geocode cache write failed: ", err)
		}
		return addr, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Address), nil
}

func (c *Client) lookup(ctx context.Context, search string, params map[string]string) (*featureCollection, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}
	start := time.Now()

	var fc featureCollection
	err := c.bulkhead.Execute(ctx, func() error {
		_, cbErr := c.circuit.Execute(func() (interface{}, error) {
			resp, httpErr := c.http.R().
				SetContext(ctx).
				SetQueryParams(params).
				SetQueryParam("access_token", c.apiKey).
				Get(c.baseURL + "/geocoding/v5/mapbox.places/" + search + ".json")
			if httpErr != nil {
				return nil, fmt.Errorf("HTTP error: %w", httpErr)
			}
			if resp.StatusCode() != http.StatusOK {
				return nil, fmt.Errorf("maps provider returned status %d", resp.StatusCode())
			}
			if err := json.Unmarshal(resp.Body(), &fc); err != nil {
				return nil, fmt.Errorf("failed to parse response: %w", err)
			}
			return nil, nil
		})
		return patterns.FormatError("Maps", cbErr)
	})

	metrics.ObserveCall("Maps", start, err)
	if err != nil {
		return nil, err
	}
	return &fc, nil
}

func toAddress(f feature, featureType string) *models.Address {
	addr := &models.Address{}
	for _, fctx := range f.Context {
		prefix, _, _ := strings.Cut(fctx.ID, ".")
		switch prefix {
		case "neighborhood", "locality":
			if addr.Area == "" {
				addr.Area = fctx.Text
			}
		case "postcode":
			addr.ZipCode = fctx.Text
		case "place":
			addr.City = fctx.Text
		case "region":
			addr.State = fctx.Text
		case "country":
			addr.Country = fctx.Text
		}
	}

	switch featureType {
	case TypeAddress:
		addr.Street = strings.TrimSpace(f.Address + " " + f.Text)
	case TypePOI:
		addr.Landmark = f.Text
		if street, ok := f.Properties["address"].(string); ok {
			addr.Street = street
		}
		if addr.Street == "" {
			addr.Street = f.Text
		}
	case TypePlace:
		addr.Street = f.Text
		if addr.City == "" {
			addr.City = f.Text
		}
	case TypeNeighborhood:
		addr.Street = f.Text
		if addr.Area == "" {
			addr.Area = f.Text
		}
	default:
		addr.Street = f.Text
	}
	return addr
}
