package cart

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Policy holds the checkout pricing rules
type Policy struct {
	FreeShippingThreshold int64
	ShippingFee           int64
	TaxRate               decimal.Decimal
}

// Summary is the priced breakdown of a subtotal
type Summary struct {
	Subtotal int64 `json:"subtotal"`
	Shipping int64 `json:"shipping"`
	Tax      int64 `json:"tax"`
	Total    int64 `json:"total"`
}

// DefaultPolicy is free shipping from 500, otherwise 50, and 18% tax
func DefaultPolicy() Policy {
	return Policy{
		FreeShippingThreshold: 500,
		ShippingFee:           50,
		TaxRate:               decimal.RequireFromString("0.18"),
	}
}

// NewPolicy parses taxRate as a decimal fraction such as "0.18"
func NewPolicy(threshold, fee int64, taxRate string) (Policy, error) {
	rate, err := decimal.NewFromString(taxRate)
	if err != nil {
		return Policy{}, fmt.Errorf("invalid tax rate %q: %w", taxRate, err)
	}
	if rate.IsNegative() {
		return Policy{}, fmt.Errorf("tax rate must not be negative: %s", taxRate)
	}
	return Policy{FreeShippingThreshold: threshold, ShippingFee: fee, TaxRate: rate}, nil
}

// Price computes shipping, tax and grand total. Tax and the taxed subtotal round half up
// independently, so Total may differ from Subtotal+Tax+Shipping by one unit.
func Price(subtotal int64, p Policy) Summary {
	if subtotal <= 0 {
		return Summary{}
	}
	shipping := p.ShippingFee
	if subtotal >= p.FreeShippingThreshold {
		shipping = 0
	}
	sub := decimal.NewFromInt(subtotal)
	tax := sub.Mul(p.TaxRate).Round(0).IntPart()
	taxed := sub.Mul(decimal.NewFromInt(1).Add(p.TaxRate)).Round(0).IntPart()
	return Summary{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      tax,
		Total:    taxed + shipping,
	}
}

// PriceState prices the current cart total
func PriceState(s State, p Policy) Summary {
	return Price(s.Total, p)
}
