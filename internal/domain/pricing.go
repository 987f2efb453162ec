package domain

import "math"

// PricingPolicy holds the checkout pricing constants.
type PricingPolicy struct {
	ShippingFlat          float64
	FreeShippingThreshold float64
	TaxRate               float64
}

// DefaultPricing charges a flat 200 shipping unless the items exceed 1000,
// and 18% tax on the items.
func DefaultPricing() PricingPolicy {
	return PricingPolicy{ShippingFlat: 200, FreeShippingThreshold: 1000, TaxRate: 0.18}
}

// Totals are the computed prices of an order.
type Totals struct {
	ItemsPrice    float64
	TaxPrice      float64
	ShippingPrice float64
	TotalPrice    float64
}

// Price computes the totals for items. Shipping is free only when the items
// price is strictly above the threshold. Amounts are rounded to cents.
func (p PricingPolicy) Price(items []LineItem) Totals {
	var itemsPrice float64
	for _, li := range items {
		itemsPrice += li.LineTotal()
	}
	itemsPrice = roundCents(itemsPrice)

	shipping := p.ShippingFlat
	if itemsPrice > p.FreeShippingThreshold {
		shipping = 0
	}
	tax := roundCents(itemsPrice * p.TaxRate)

	return Totals{
		ItemsPrice:    itemsPrice,
		TaxPrice:      tax,
		ShippingPrice: shipping,
		TotalPrice:    roundCents(itemsPrice + tax + shipping),
	}
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
