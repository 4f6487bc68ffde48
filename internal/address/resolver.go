// Package address turns geocoded searches, map clicks and saved address book
// entries into a delivery address ready to be stored on an order.
package address

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ashendes/order-edit/internal/geocode"
	"github.com/ashendes/order-edit/internal/models"
	"github.com/ashendes/order-edit/internal/patterns"
	log "github.com/sirupsen/logrus"
)

// MaxCandidates is the number of search results offered for a query
const MaxCandidates = 5

var (
	ErrStreetRequired   = errors.New("street is required")
	ErrLocationRequired = errors.New("select a location on the map or from the search results")
	ErrClosed           = errors.New("address resolver closed")
)

// FeatureFallback is the order in which reverse lookups are attempted
var FeatureFallback = []string{
	geocode.TypeAddress,
	geocode.TypePOI,
	geocode.TypePlace,
	geocode.TypeNeighborhood,
}

// Geocoder resolves text and coordinates into places
type Geocoder interface {
	Forward(ctx context.Context, query string, limit int) ([]models.Candidate, error)
	Reverse(ctx context.Context, at models.Coordinates, featureType string) (*models.Address, error)
}

// View is a snapshot of the resolver for display
type View struct {
	Form            models.Address     `json:"form"`
	Query           string             `json:"query"`
	Candidates      []models.Candidate `json:"candidates"`
	SearchError     string             `json:"searchError,omitempty"`
	EditingExisting bool               `json:"editingExisting"`
}

// Resolver holds the address form of one edit session. It owns a debounce
// timer and must be released with Close.
type Resolver struct {
	geocoder Geocoder
	search   *patterns.Coalescer[string]

	mu           sync.Mutex
	form         models.Address
	editExisting bool
	query        string
	candidates   []models.Candidate
	searchErr    error
	selection    uint64
	closed       bool
	onChange     func()
}

// NewResolver creates a resolver whose text search fires once the query has
// been stable for debounce
func NewResolver(g Geocoder, debounce time.Duration) *Resolver {
	r := &Resolver{geocoder: g}
	r.search = patterns.NewCoalescer("address_search", debounce, "", func(ctx context.Context, query string) {
		_, _ = r.SearchNow(ctx, query)
	})
	return r
}

// OnChange registers a callback run whenever the form changes
func (r *Resolver) OnChange(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = fn
}

// Edit seeds the form from a stored address. The stored coordinate, if any,
// becomes the marker and no new selection is needed before saving.
func (r *Resolver) Edit(existing models.Address) {
	r.mu.Lock()
	r.form = existing
	r.editExisting = true
	r.selection++
	r.clearSearch()
	r.mu.Unlock()

	r.search.Cancel()
}

// New clears the form for entering an address that must be located before
// it can be saved
func (r *Resolver) New() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	r.form = models.Address{}
	r.editExisting = false
	r.selection++
	r.clearSearch()
	hook := r.onChange
	r.mu.Unlock()

	r.search.Cancel()
	if hook != nil {
		hook()
	}
	return nil
}

// Search schedules a debounced forward lookup. A blank query clears the
// candidates right away and issues no request.
func (r *Resolver) Search(query string) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	r.query = query
	blank := strings.TrimSpace(query) == ""
	if blank {
		r.candidates = nil
		r.searchErr = nil
	}
	r.mu.Unlock()

	if blank {
		r.search.Cancel()
		return nil
	}
	r.search.Update(func(q *string) { *q = query })
	return nil
}

// SearchNow runs a forward lookup immediately. Results for a query that has
// since been replaced are returned but not shown.
func (r *Resolver) SearchNow(ctx context.Context, query string) ([]models.Candidate, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrClosed
	}
	r.query = query
	if strings.TrimSpace(query) == "" {
		r.candidates = nil
		r.searchErr = nil
		r.mu.Unlock()
		return nil, nil
	}
	r.mu.Unlock()

	candidates, err := r.geocoder.Forward(ctx, strings.TrimSpace(query), MaxCandidates)
	if len(candidates) > MaxCandidates {
		candidates = candidates[:MaxCandidates]
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.query != query {
		return candidates, err
	}
	if err != nil {
		log.WithField("query", query).Warn("Address search failed: ", err)
		r.searchErr = err
		return nil, err
	}
	r.candidates = candidates
	r.searchErr = nil
	return candidates, nil
}

// Candidates returns the results of the latest search
func (r *Resolver) Candidates() []models.Candidate {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Candidate(nil), r.candidates...)
}

// SelectCandidate fills the form from a search result
func (r *Resolver) SelectCandidate(ctx context.Context, c models.Candidate) (models.Address, error) {
	return r.selectAt(ctx, c.Coordinates)
}

// SelectFromMap fills the form from a point picked on the map
func (r *Resolver) SelectFromMap(ctx context.Context, lng, lat float64) (models.Address, error) {
	return r.selectAt(ctx, models.Coordinates{Longitude: lng, Latitude: lat})
}

// SelectSaved fills the form from an address book entry
func (r *Resolver) SelectSaved(saved models.Address) (models.Address, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return models.Address{}, ErrClosed
	}
	r.form = saved
	if c, ok := saved.Coordinates(); ok {
		r.form.SetCoordinates(c)
	}
	r.selection++
	r.clearSearch()
	form, hook := r.form, r.onChange
	r.mu.Unlock()

	r.search.Cancel()
	if hook != nil {
		hook()
	}
	return form, nil
}

// Update applies manual edits to the form
func (r *Resolver) Update(mutate func(*models.Address)) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	mutate(&r.form)
	hook := r.onChange
	r.mu.Unlock()

	if hook != nil {
		hook()
	}
	return nil
}

// Form returns the current form
func (r *Resolver) Form() models.Address {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.form
}

// View returns a display snapshot
func (r *Resolver) View() View {
	r.mu.Lock()
	defer r.mu.Unlock()

	v := View{
		Form:            r.form,
		Query:           r.query,
		Candidates:      append([]models.Candidate(nil), r.candidates...),
		EditingExisting: r.editExisting,
	}
	if r.searchErr != nil {
		v.SearchError = r.searchErr.Error()
	}
	return v
}

// Save validates the form and returns the address in its stored shape, with
// both the nested location and the flat coordinate fields set
func (r *Resolver) Save() (models.Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(r.form.Street) == "" {
		return models.Address{}, ErrStreetRequired
	}

	out := r.form
	c, ok := out.Coordinates()
	if !ok && !r.editExisting {
		return models.Address{}, ErrLocationRequired
	}
	if ok {
		out.SetCoordinates(c)
	}
	return out, nil
}

// Close stops the search timer. The resolver rejects further lookups.
func (r *Resolver) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	r.search.Stop()
}

func (r *Resolver) selectAt(ctx context.Context, at models.Coordinates) (models.Address, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return models.Address{}, ErrClosed
	}
	r.selection++
	selection := r.selection
	r.mu.Unlock()

	resolved := r.reverse(ctx, at)

	r.mu.Lock()
	if selection != r.selection {
		form := r.form
		r.mu.Unlock()
		return form, nil
	}
	r.form.Street = resolved.Street
	r.form.Area = resolved.Area
	r.form.Landmark = resolved.Landmark
	r.form.City = resolved.City
	r.form.State = resolved.State
	r.form.ZipCode = resolved.ZipCode
	r.form.Country = resolved.Country
	r.form.SetCoordinates(at)
	r.clearSearch()
	form, hook := r.form, r.onChange
	r.mu.Unlock()

	r.search.Cancel()
	if hook != nil {
		hook()
	}
	return form, nil
}

// reverse tries each feature type in turn and falls back to a placeholder
// street when none resolves
func (r *Resolver) reverse(ctx context.Context, at models.Coordinates) models.Address {
	for _, featureType := range FeatureFallback {
		addr, err := r.geocoder.Reverse(ctx, at, featureType)
		if err != nil {
			log.WithFields(log.Fields{
				"feature_type": featureType,
				"longitude":    at.Longitude,
				"latitude":     at.Latitude,
			}).Warn("Reverse geocoding failed: ", err)
			continue
		}
		if addr != nil && !addr.IsEmpty() {
			return *addr
		}
	}
	return models.Address{Street: Placeholder(at)}
}

// Placeholder is the street used when a point cannot be resolved
func Placeholder(at models.Coordinates) string {
	return fmt.Sprintf("Location at %s, %s",
		strconv.FormatFloat(at.Longitude, 'f', -1, 64),
		strconv.FormatFloat(at.Latitude, 'f', -1, 64))
}

func (r *Resolver) clearSearch() {
	r.query = ""
	r.candidates = nil
	r.searchErr = nil
}
