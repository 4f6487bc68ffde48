package ledger

import (
	"iter"
	"strings"

	"github.com/ashendes/order-edit/internal/models"
)

// Match is one product found by Search, with the category it belongs to
type Match struct {
	CategoryID   string         `json:"categoryId"`
	CategoryName string         `json:"categoryName"`
	Product      models.Product `json:"product"`
}

// Search walks the menu and yields products whose name, description or
// category name contains query, ignoring case. An empty query yields every
// product. The sequence is lazy and can be ranged over more than once.
func Search(menu []models.Category, query string) iter.Seq[Match] {
	needle := strings.ToLower(strings.TrimSpace(query))

	return func(yield func(Match) bool) {
		for _, cat := range menu {
			categoryHit := needle == "" || strings.Contains(strings.ToLower(cat.Name), needle)
			for _, p := range cat.Items {
				if !categoryHit &&
					!strings.Contains(strings.ToLower(p.Name), needle) &&
					!strings.Contains(strings.ToLower(p.Description), needle) {
					continue
				}
				if !yield(Match{CategoryID: cat.ID, CategoryName: cat.Name, Product: p}) {
					return
				}
			}
		}
	}
}
