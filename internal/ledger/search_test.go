package ledger

import (
	"testing"

	"github.com/ashendes/order-edit/internal/models"
	"github.com/stretchr/testify/assert"
)

var testMenu = []models.Category{
	{ID: "c1", Name: "Burgers", Items: []models.Product{
		{ID: "p1", Name: "Classic Burger", Description: "beef patty"},
		{ID: "p2", Name: "Veggie Burger", Description: "grilled paneer"},
	}},
	{ID: "c2", Name: "Sides", Items: []models.Product{
		{ID: "p3", Name: "Fries", Description: "salted"},
		{ID: "p4", Name: "Paneer Tikka", Description: "spicy"},
	}},
	{ID: "c3", Name: "Drinks"},
}

func ids(menu []models.Category, query string) []string {
	var out []string
	for m := range Search(menu, query) {
		out = append(out, m.Product.ID)
	}
	return out
}

func TestSearch_MatchesNameDescriptionAndCategory(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"product name", "fries", []string{"p3"}},
		{"case insensitive", "BURGER", []string{"p1", "p2"}},
		{"description", "paneer", []string{"p2", "p4"}},
		{"category name", "sides", []string{"p3", "p4"}},
		{"surrounding spaces", "  tikka ", []string{"p4"}},
		{"no match", "sushi", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(testMenu, tt.query))
		})
	}
}

func TestSearch_EmptyQueryYieldsEverything(t *testing.T) {
	assert.Equal(t, []string{"p1", "p2", "p3", "p4"}, ids(testMenu, ""))
	assert.Nil(t, ids(nil, ""))
}

func TestSearch_CarriesCategory(t *testing.T) {
	for m := range Search(testMenu, "fries") {
		assert.Equal(t, "c2", m.CategoryID)
		assert.Equal(t, "Sides", m.CategoryName)
	}
}

func TestSearch_StopsEarlyAndRestarts(t *testing.T) {
	seq := Search(testMenu, "")

	var first []string
	for m := range seq {
		first = append(first, m.Product.ID)
		if len(first) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"p1", "p2"}, first)

	var count int
	for range seq {
		count++
	}
	assert.Equal(t, 4, count)
}
