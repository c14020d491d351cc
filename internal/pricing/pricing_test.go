package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func TestUnitPrice(t *testing.T) {
	// 10.00 * 1.0 + 3.00 + 1.50 + 1.50 = 16.00
	price := UnitPrice(Components{
		BasePrice:      d("10.00"),
		SizeMultiplier: d("1.0"),
		CrustPrice:     d("3.00"),
		ToppingPrices:  []decimal.Decimal{d("1.50"), d("1.50")},
	})
	assert.True(t, price.Equal(d("16.00")), "got %s", price)
}

func TestComputeTotalsWorkedExample(t *testing.T) {
	unit := UnitPrice(Components{
		BasePrice:      d("10.00"),
		SizeMultiplier: d("1.0"),
		CrustPrice:     d("3.00"),
		ToppingPrices:  []decimal.Decimal{d("1.50"), d("1.50")},
	})
	totals := ComputeTotals([]Line{{UnitPrice: unit, Quantity: 2}})

	assert.True(t, totals.Subtotal.Equal(d("32.00")), "subtotal %s", totals.Subtotal)
	assert.True(t, totals.Tax.Equal(d("5.76")), "tax %s", totals.Tax)
	assert.True(t, totals.DeliveryCharge.Equal(d("50.00")), "delivery %s", totals.DeliveryCharge)
	assert.True(t, totals.Total.Equal(d("87.76")), "total %s", totals.Total)
}

func TestComputeTotalsEmptyCartZeroesDelivery(t *testing.T) {
	totals := ComputeTotals(nil)
	assert.True(t, totals.Subtotal.IsZero())
	assert.True(t, totals.Tax.IsZero())
	assert.True(t, totals.DeliveryCharge.IsZero(), "empty cart must not carry the delivery fee")
	assert.True(t, totals.Total.IsZero())
}

func TestComputeTotalsRoundsHalfUp(t *testing.T) {
	totals := ComputeTotals([]Line{{UnitPrice: d("0.47"), Quantity: 3}})
	// 1.41 * 0.18 = 0.2538 -> 0.25
	assert.True(t, totals.Tax.Equal(d("0.25")), "tax %s", totals.Tax)
}

func TestConfigure(t *testing.T) {
	origTax, origDelivery := TaxRate, DeliveryCharge
	t.Cleanup(func() { TaxRate, DeliveryCharge = origTax, origDelivery })

	require.NoError(t, Configure("0.05", "20.00"))
	assert.True(t, TaxRate.Equal(d("0.05")))
	assert.True(t, DeliveryCharge.Equal(d("20.00")))

	assert.Error(t, Configure("abc", "20.00"))
	assert.Error(t, Configure("0.05", "-1"))
}
