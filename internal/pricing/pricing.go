package pricing

import (
	"math"
	"os"
	"strconv"
)

// Policy holds the store-wide pricing constants. It is injected into every
// calculation instead of being hard-coded, so the math stays testable.
type Policy struct {
	TaxRate               float64 `json:"tax_rate"`
	FreeShippingThreshold float64 `json:"free_shipping_threshold"`
	FlatShippingFee       float64 `json:"flat_shipping_fee"`
}

// Default store policy: 8% tax, free shipping above $50, $5.99 flat fee.
func Default() Policy {
	return Policy{TaxRate: 0.08, FreeShippingThreshold: 50.00, FlatShippingFee: 5.99}
}

// Active is the process-wide policy. main() overrides it from .env after
// godotenv has loaded; handlers read it, tests inject their own Policy.
var Active = Default()

// Load reads TAX_RATE, FREE_SHIPPING_THRESHOLD and FLAT_SHIPPING_FEE from the
// environment into Active. Missing or malformed values keep the defaults.
func Load() {
	if v, err := strconv.ParseFloat(os.Getenv("TAX_RATE"), 64); err == nil {
		Active.TaxRate = v
	}
	if v, err := strconv.ParseFloat(os.Getenv("FREE_SHIPPING_THRESHOLD"), 64); err == nil {
		Active.FreeShippingThreshold = v
	}
	if v, err := strconv.ParseFloat(os.Getenv("FLAT_SHIPPING_FEE"), 64); err == nil {
		Active.FlatShippingFee = v
	}
}

// Line is one priced cart/order line.
type Line struct {
	UnitPrice float64
	Quantity  int
}

// Totals is the full price breakdown for a cart or an order snapshot.
type Totals struct {
	Subtotal float64 `json:"subtotal"`
	Discount float64 `json:"discount"`
	Tax      float64 `json:"tax"`
	Shipping float64 `json:"shipping"`
	Total    float64 `json:"total"`
}

// Round2 rounds to cents, half up.
func Round2(v float64) float64 {
	return math.Floor(v*100+0.5) / 100
}

// Subtotal sums unit price x quantity over all lines.
func Subtotal(lines []Line) float64 {
	var sum float64
	for _, l := range lines {
		sum += l.UnitPrice * float64(l.Quantity)
	}
	return Round2(sum)
}

// CouponDiscount computes the discount a stored coupon contributes at the
// given subtotal. Percentage discounts are capped by maxDiscount when it is
// set; fixed discounts are clamped at the subtotal so the pre-tax amount can
// never go negative.
func CouponDiscount(discountType string, value, maxDiscount, subtotal float64) float64 {
	var d float64
	switch discountType {
	case "percentage":
		d = subtotal * value / 100
		if maxDiscount > 0 && d > maxDiscount {
			d = maxDiscount
		}
	case "fixed":
		d = value
		if d > subtotal {
			d = subtotal
		}
	}
	if d < 0 {
		d = 0
	}
	return Round2(d)
}

// ComputeTotals is the pricing engine. Pure: no side effects, identical
// inputs always produce identical output.
//
//   tax      = (subtotal - discount) * TaxRate
//   shipping = 0 if subtotal > threshold, else the flat fee
//   total    = subtotal - discount + tax + shipping
//
// The free-shipping comparison deliberately uses the pre-discount subtotal:
// a discount does not cost the customer their free shipping.
func ComputeTotals(lines []Line, discount float64, p Policy) Totals {
	subtotal := Subtotal(lines)

	if discount < 0 {
		discount = 0
	}
	if discount > subtotal {
		discount = subtotal
	}
	discount = Round2(discount)

	tax := Round2((subtotal - discount) * p.TaxRate)

	var shipping float64
	if len(lines) > 0 && subtotal <= p.FreeShippingThreshold {
		shipping = p.FlatShippingFee
	}

	return Totals{
		Subtotal: subtotal,
		Discount: discount,
		Tax:      tax,
		Shipping: shipping,
		Total:    Round2(subtotal - discount + tax + shipping),
	}
}
