package models

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rohitpatharkar/EcommerceWebsiteProject/internal/pricing"
)

func testPolicy() pricing.Policy {
	return pricing.Policy{TaxRate: 0.08, FreeShippingThreshold: 50.00, FlatShippingFee: 5.99}
}

func TestCartRecalculate(t *testing.T) {
	cart := Cart{
		Items: []CartItem{
			{ID: 1, SKU: "SKU-A", Quantity: 2, UnitPrice: 20.00},
			{ID: 2, SKU: "SKU-B", Quantity: 1, UnitPrice: 15.00},
		},
	}
	cart.Recalculate(testPolicy())

	assert.Equal(t, 55.00, cart.Subtotal)
	assert.Equal(t, 4.40, cart.Tax)
	assert.Equal(t, 0.00, cart.Shipping) // over the free-shipping threshold
	assert.Equal(t, 59.40, cart.Total)

	// Stored coupon feeds back into every recalculation
	cart.AppliedCoupon = AppliedCoupon{CouponCode: "SAVE10", CouponType: "percentage", CouponValue: 10}
	cart.Recalculate(testPolicy())
	assert.Equal(t, 5.50, cart.Discount)
	assert.Equal(t, 3.96, cart.Tax)
	assert.Equal(t, 53.46, cart.Total)

	// Stored cap is honored too
	cart.CouponMaxDiscount = 3.00
	cart.Recalculate(testPolicy())
	assert.Equal(t, 3.00, cart.Discount)
}

func TestGuestCartItemOps(t *testing.T) {
	g := GuestCart{
		NextItemID: 3,
		Items: []CartItem{
			{ID: 1, SKU: "SKU-A", Quantity: 1, UnitPrice: 20.00},
			{ID: 2, SKU: "SKU-B", Quantity: 2, UnitPrice: 15.00},
		},
	}

	assert.Equal(t, "SKU-B", g.FindItem(2).SKU)
	assert.Nil(t, g.FindItem(99))

	assert.True(t, g.RemoveItem(1))
	assert.False(t, g.RemoveItem(1))
	assert.Len(t, g.Items, 1)

	g.Recalculate(testPolicy())
	assert.Equal(t, 30.00, g.Subtotal)
	assert.Equal(t, 5.99, g.Shipping) // back under the threshold
}
