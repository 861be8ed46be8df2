package models

import (
	"time"

	"github.com/rohitpatharkar/EcommerceWebsiteProject/internal/pricing"
)

// AppliedCoupon - What the cart remembers after a successful coupon apply.
// Eligibility is checked once at apply time; recalculation only reapplies
// the stored value/type (and cap) to the current subtotal.
type AppliedCoupon struct {
	CouponCode        string  `json:"coupon_code"`
	CouponType        string  `json:"coupon_type"`
	CouponValue       float64 `json:"coupon_value"`
	CouponMaxDiscount float64 `json:"coupon_max_discount"`
}

// CartTotals - The computed block. Total == Subtotal - Discount + Tax + Shipping,
// recomputed by every mutating operation before it returns.
type CartTotals struct {
	Subtotal float64 `json:"subtotal"`
	Discount float64 `json:"discount"`
	Tax      float64 `json:"tax"`
	Shipping float64 `json:"shipping"`
	Total    float64 `json:"total"`
}

// Cart - One per registered user. Cleared (not deleted) on checkout.
type Cart struct {
	ID     uint       `gorm:"primaryKey" json:"id"`
	UserID uint       `gorm:"uniqueIndex" json:"user_id"` // Enforces ONE cart per user
	Items  []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items"`

	AppliedCoupon `gorm:"embedded"`
	CartTotals    `gorm:"embedded"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CartItem - One SKU in a cart. UnitPrice is a snapshot taken at add time.
type CartItem struct {
	ID                uint              `gorm:"primaryKey" json:"id"`
	CartID            uint              `gorm:"index" json:"cart_id"`
	ProductID         uint              `json:"product_id"`
	ProductName       string            `json:"product_name"`
	SKU               string            `gorm:"size:64;column:sku" json:"sku"`
	Quantity          int               `json:"quantity"`
	UnitPrice         float64           `json:"unit_price"`
	VariantSelections map[string]string `gorm:"serializer:json" json:"variant_selections"`
	CreatedAt         time.Time         `json:"created_at"`
}

// GuestCart - Client-token cart for anonymous shoppers, stored in Redis as JSON.
// Same math as Cart; item IDs are minted locally so update/remove work the same.
type GuestCart struct {
	Token      string     `json:"token"`
	NextItemID uint       `json:"next_item_id"`
	Items      []CartItem `json:"items"`

	AppliedCoupon
	CartTotals

	UpdatedAt time.Time `json:"updated_at"`
}

func pricingLines(items []CartItem) []pricing.Line {
	lines := make([]pricing.Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, pricing.Line{UnitPrice: it.UnitPrice, Quantity: it.Quantity})
	}
	return lines
}

func recalc(items []CartItem, coupon AppliedCoupon, p pricing.Policy) CartTotals {
	subtotal := pricing.Subtotal(pricingLines(items))
	var discount float64
	if coupon.CouponCode != "" {
		discount = pricing.CouponDiscount(coupon.CouponType, coupon.CouponValue, coupon.CouponMaxDiscount, subtotal)
	}
	t := pricing.ComputeTotals(pricingLines(items), discount, p)
	return CartTotals{Subtotal: t.Subtotal, Discount: t.Discount, Tax: t.Tax, Shipping: t.Shipping, Total: t.Total}
}

// Recalculate refreshes the computed block. Every cart mutation must call this
// before persisting; totals are never allowed to go stale.
func (c *Cart) Recalculate(p pricing.Policy) {
	c.CartTotals = recalc(c.Items, c.AppliedCoupon, p)
}

func (g *GuestCart) Recalculate(p pricing.Policy) {
	g.CartTotals = recalc(g.Items, g.AppliedCoupon, p)
}

// FindItem returns a pointer into Items by line ID, or nil.
func (g *GuestCart) FindItem(id uint) *CartItem {
	for i := range g.Items {
		if g.Items[i].ID == id {
			return &g.Items[i]
		}
	}
	return nil
}

// RemoveItem drops a line by ID. Returns false if it was not present.
func (g *GuestCart) RemoveItem(id uint) bool {
	for i := range g.Items {
		if g.Items[i].ID == id {
			g.Items = append(g.Items[:i], g.Items[i+1:]...)
			return true
		}
	}
	return false
}
