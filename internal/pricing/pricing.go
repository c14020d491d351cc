package pricing

import (
	"github.com/shopspring/decimal"

	pkgerrors "github.com/pizzabox/pizzabox-backend/pkg/errors"
)

var (
	// TaxRate is applied to the cart subtotal.
	TaxRate = decimal.RequireFromString("0.18")
	// DeliveryCharge is a flat fee added to every non-empty cart.
	DeliveryCharge = decimal.RequireFromString("50.00")
)

// Configure overrides the default rates from configuration strings.
func Configure(taxRate, deliveryCharge string) error {
	tax, err := decimal.NewFromString(taxRate)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid tax rate")
	}
	delivery, err := decimal.NewFromString(deliveryCharge)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid delivery charge")
	}
	if tax.IsNegative() || delivery.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "rates must not be negative")
	}
	TaxRate = tax
	DeliveryCharge = delivery
	return nil
}

// Components holds the catalog prices that make up a single pizza.
type Components struct {
	BasePrice      decimal.Decimal
	SizeMultiplier decimal.Decimal
	CrustPrice     decimal.Decimal
	ToppingPrices  []decimal.Decimal
}

// UnitPrice computes base*multiplier + crust + sum(toppings), rounded to two
// decimal places.
func UnitPrice(c Components) decimal.Decimal {
	price := c.BasePrice.Mul(c.SizeMultiplier).Add(c.CrustPrice)
	for _, t := range c.ToppingPrices {
		price = price.Add(t)
	}
	return price.Round(2)
}

// Totals is the cart/order pricing breakdown.
type Totals struct {
	Subtotal       decimal.Decimal
	Tax            decimal.Decimal
	DeliveryCharge decimal.Decimal
	Total          decimal.Decimal
}

// Line is one priced line feeding ComputeTotals.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// LineTotal multiplies the unit price by quantity.
func (l Line) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))).Round(2)
}

// ComputeTotals sums the lines, applies tax, and adds the delivery charge.
// An empty cart zeroes everything including the delivery charge.
func ComputeTotals(lines []Line) Totals {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.LineTotal())
	}
	if subtotal.IsZero() {
		return Totals{
			Subtotal:       decimal.Zero,
			Tax:            decimal.Zero,
			DeliveryCharge: decimal.Zero,
			Total:          decimal.Zero,
		}
	}
	tax := subtotal.Mul(TaxRate).Round(2)
	return Totals{
		Subtotal:       subtotal,
		Tax:            tax,
		DeliveryCharge: DeliveryCharge,
		Total:          subtotal.Add(tax).Add(DeliveryCharge).Round(2),
	}
}
