package models

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = newValidator()

func init() {
	// The backend exchanges money as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("order_status", func(fl validator.FieldLevel) bool {
		return OrderStatus(fl.Field().String()).Valid()
	})
	return v
}

// Validate checks a decoded backend payload against its schema tags
func Validate(v interface{}) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	return nil
}

// Envelope is the response wrapper used by every backend endpoint
type Envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}
