package client

import (
	"context"
	"net/http"

	"github.com/ashendes/order-edit/internal/models"
)

// PricingClient asks the backend for a price summary
type PricingClient struct {
	c *collaborator
}

func NewPricingClient(b *Backend) *PricingClient {
	return &PricingClient{c: b.collaborator("Pricing")}
}

// PriceSummary computes the price breakdown for the request
func (p *PricingClient) PriceSummary(ctx context.Context, req models.PriceSummaryRequest) (*models.PriceSummary, error) {
	var summary models.PriceSummary
	if err := p.c.call(ctx, http.MethodPost, "/cart/pricesummary", req, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}
