package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeTotalsBreakdown(t *testing.T) {
	// 2 x $20 + 1 x $15 with a 10% coupon; threshold high enough that the
	// flat fee still applies.
	policy := Policy{TaxRate: 0.08, FreeShippingThreshold: 100.00, FlatShippingFee: 5.99}
	lines := []Line{
		{UnitPrice: 20.00, Quantity: 2},
		{UnitPrice: 15.00, Quantity: 1},
	}

	subtotal := Subtotal(lines)
	require.Equal(t, 55.00, subtotal)

	discount := CouponDiscount("percentage", 10, 0, subtotal)
	require.Equal(t, 5.50, discount)

	totals := ComputeTotals(lines, discount, policy)
	assert.Equal(t, 55.00, totals.Subtotal)
	assert.Equal(t, 5.50, totals.Discount)
	assert.Equal(t, 3.96, totals.Tax) // (55 - 5.50) * 0.08
	assert.Equal(t, 5.99, totals.Shipping)
	assert.Equal(t, 59.45, totals.Total)

	// Invariant: total == subtotal - discount + tax + shipping
	assert.Equal(t, totals.Total, Round2(totals.Subtotal-totals.Discount+totals.Tax+totals.Shipping))
}

func TestComputeTotalsIdempotent(t *testing.T) {
	policy := Default()
	lines := []Line{{UnitPrice: 12.49, Quantity: 3}, {UnitPrice: 7.00, Quantity: 1}}

	first := ComputeTotals(lines, 4.25, policy)
	second := ComputeTotals(lines, 4.25, policy)
	assert.Equal(t, first, second)
}

func TestFreeShippingUsesPreDiscountSubtotal(t *testing.T) {
	policy := Policy{TaxRate: 0.08, FreeShippingThreshold: 50.00, FlatShippingFee: 5.99}

	// Subtotal 55 clears the threshold even though the discounted amount
	// (49.50) would not.
	lines := []Line{{UnitPrice: 55.00, Quantity: 1}}
	totals := ComputeTotals(lines, 5.50, policy)
	assert.Equal(t, 0.00, totals.Shipping)

	// Exactly at the threshold still pays shipping (strictly-greater rule)
	atThreshold := ComputeTotals([]Line{{UnitPrice: 50.00, Quantity: 1}}, 0, policy)
	assert.Equal(t, 5.99, atThreshold.Shipping)
}

func TestEmptyCartHasNoShipping(t *testing.T) {
	totals := ComputeTotals(nil, 0, Default())
	assert.Equal(t, 0.00, totals.Total)
	assert.Equal(t, 0.00, totals.Shipping)
}

func TestCouponDiscountPercentageCap(t *testing.T) {
	// 20% of 200 is 40, capped at 25
	assert.Equal(t, 25.00, CouponDiscount("percentage", 20, 25, 200))
	// No cap configured
	assert.Equal(t, 40.00, CouponDiscount("percentage", 20, 0, 200))
}

func TestCouponDiscountFixedClampedAtSubtotal(t *testing.T) {
	// A $50 fixed coupon on a $30 cart discounts $30, never more
	assert.Equal(t, 30.00, CouponDiscount("fixed", 50, 0, 30))
	assert.Equal(t, 10.00, CouponDiscount("fixed", 10, 0, 30))
}

func TestComputeTotalsClampsOversizedDiscount(t *testing.T) {
	lines := []Line{{UnitPrice: 30.00, Quantity: 1}}
	totals := ComputeTotals(lines, 45.00, Default())
	assert.Equal(t, 30.00, totals.Discount)
	assert.Equal(t, 0.00, totals.Tax)
	assert.Equal(t, 5.99, totals.Total) // only the shipping fee remains
}

func TestRound2HalfUp(t *testing.T) {
	assert.Equal(t, 1.01, Round2(1.006))
	assert.Equal(t, 1.00, Round2(1.004))
	assert.Equal(t, 59.45, Round2(59.4501))
}
