package models

import "github.com/shopspring/decimal"

// Product is a catalog entry of a restaurant menu
type Product struct {
	ID          string          `json:"_id" validate:"required"`
	Name        string          `json:"name" validate:"required"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description,omitempty"`
	Images      []string        `json:"images,omitempty"`
	Stock       int             `json:"stock"`
}

// Image returns the first product image, if any
func (p *Product) Image() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// Category groups products of a menu
type Category struct {
	ID    string    `json:"categoryId" validate:"required"`
	Name  string    `json:"categoryName"`
	Items []Product `json:"items" validate:"dive"`
}
