package models

import "strings"

// Coordinates is a longitude/latitude pair
type Coordinates struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

// GeoPoint is the GeoJSON point representation used by the backend
type GeoPoint struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// NewGeoPoint builds a GeoJSON point from coordinates
func NewGeoPoint(c Coordinates) *GeoPoint {
	return &GeoPoint{Type: "Point", Coordinates: [2]float64{c.Longitude, c.Latitude}}
}

// Coords returns the point as a coordinate pair
func (p *GeoPoint) Coords() Coordinates {
	return Coordinates{Longitude: p.Coordinates[0], Latitude: p.Coordinates[1]}
}

// Address is a delivery address, either saved in the customer's address book
// or entered for a single order
type Address struct {
	ID        string    `json:"_id,omitempty"`
	Type      string    `json:"type,omitempty"`
	Street    string    `json:"street"`
	Area      string    `json:"area,omitempty"`
	Landmark  string    `json:"landmark,omitempty"`
	City      string    `json:"city,omitempty"`
	State     string    `json:"state,omitempty"`
	ZipCode   string    `json:"zipCode,omitempty"`
	Country   string    `json:"country,omitempty"`
	Location  *GeoPoint `json:"location,omitempty"`
	Longitude *float64  `json:"longitude,omitempty"`
	Latitude  *float64  `json:"latitude,omitempty"`
}

// Coordinates returns the address coordinate from whichever representation is set
func (a *Address) Coordinates() (Coordinates, bool) {
	if a.Location != nil {
		return a.Location.Coords(), true
	}
	if a.Longitude != nil && a.Latitude != nil {
		return Coordinates{Longitude: *a.Longitude, Latitude: *a.Latitude}, true
	}
	return Coordinates{}, false
}

// SetCoordinates fills both the nested location and the flat fields
func (a *Address) SetCoordinates(c Coordinates) {
	lng, lat := c.Longitude, c.Latitude
	a.Location = NewGeoPoint(c)
	a.Longitude = &lng
	a.Latitude = &lat
}

// IsEmpty reports whether none of the text fields are set
func (a *Address) IsEmpty() bool {
	return strings.TrimSpace(a.Street+a.Area+a.Landmark+a.City+a.State+a.ZipCode+a.Country) == ""
}

// Candidate is a forward geocoding result
type Candidate struct {
	ID          string      `json:"id"`
	PlaceName   string      `json:"placeName"`
	Coordinates Coordinates `json:"coordinates"`
	Relevance   float64     `json:"relevance"`
}
