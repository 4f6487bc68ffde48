package models

import (
	"github.com/shopspring/decimal"
)

// PriceSummary is the backend-computed price breakdown of a cart
type PriceSummary struct {
	Subtotal               decimal.Decimal `json:"subtotal"`
	DeliveryFee            decimal.Decimal `json:"deliveryFee"`
	TotalPackingCharge     decimal.Decimal `json:"totalPackingCharge"`
	TotalAdditionalCharges decimal.Decimal `json:"totalAdditionalCharges"`
	Tax                    decimal.Decimal `json:"tax"`
	TipAmount              decimal.Decimal `json:"tipAmount"`
	CouponDiscount         decimal.Decimal `json:"couponDiscount"`
	LoyaltyRedemption      decimal.Decimal `json:"loyaltyRedemption"`
	FinalAmount            decimal.Decimal `json:"finalAmount"`
	LoyaltyPoints          LoyaltyPoints   `json:"loyaltyPoints"`
	DistanceKm             *float64        `json:"distanceKm,omitempty"`
}

// LoyaltyPoints reports the loyalty position returned with a price summary
type LoyaltyPoints struct {
	Available       int      `json:"available"`
	Used            int      `json:"used"`
	PotentialEarned int      `json:"potentialEarned"`
	Messages        []string `json:"messages,omitempty"`
}

// Expected recomputes the final amount from the components
func (p *PriceSummary) Expected() decimal.Decimal {
	return p.Subtotal.
		Add(p.DeliveryFee).
		Add(p.TotalPackingCharge).
		Add(p.TotalAdditionalCharges).
		Add(p.Tax).
		Add(p.TipAmount).
		Sub(p.CouponDiscount).
		Sub(p.LoyaltyRedemption)
}

// PriceSummaryRequest is the payload of a price summary call. Longitude and
// Latitude are omitted for orders that do not need routing.
type PriceSummaryRequest struct {
	CartID                string          `json:"cartId"`
	UserID                string          `json:"userId"`
	TipAmount             decimal.Decimal `json:"tipAmount"`
	UseLoyaltyPoints      bool            `json:"useLoyaltyPoints"`
	LoyaltyPointsToRedeem int             `json:"loyaltyPointsToRedeem"`
	UseWallet             bool            `json:"useWallet"`
	WalletAmount          decimal.Decimal `json:"walletAmount"`
	CouponCode            string          `json:"couponCode,omitempty"`
	Longitude             *float64        `json:"longitude,omitempty"`
	Latitude              *float64        `json:"latitude,omitempty"`
}
