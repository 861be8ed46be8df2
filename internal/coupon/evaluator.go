package coupon

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/rohitpatharkar/EcommerceWebsiteProject/internal/models"
	"github.com/rohitpatharkar/EcommerceWebsiteProject/internal/pricing"
)

var (
	ErrInactive        = errors.New("coupon is not active")
	ErrNotStarted      = errors.New("coupon is not valid yet")
	ErrExpired         = errors.New("coupon has expired")
	ErrUsageLimit      = errors.New("coupon usage limit reached")
	ErrPerUserLimit    = errors.New("per-user limit reached")
	ErrNotApplicable   = errors.New("coupon does not apply to these items")
	ErrMinimumPurchase = errors.New("minimum purchase not met")
	ErrUnknownType     = errors.New("unknown discount type")
)

// Normalize makes coupon codes case-insensitive: codes are stored and
// compared upper-case.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsValid is gate 1 of 3: temporal window, active flag, global usage limit.
func IsValid(c *models.Coupon, now time.Time) error {
	if !c.IsActive {
		return ErrInactive
	}
	if now.Before(c.StartDate) {
		return ErrNotStarted
	}
	if now.After(c.EndDate) {
		return ErrExpired
	}
	if c.UsageLimitTotal > 0 && c.UsageCount >= c.UsageLimitTotal {
		return ErrUsageLimit
	}
	return nil
}

// CanUserUse is gate 2 of 3: the per-user redemption limit. The coupon's
// Usages must be preloaded by the caller.
func CanUserUse(c *models.Coupon, userID uint) error {
	if c.UsageLimitPerUser <= 0 {
		return nil
	}
	for _, u := range c.Usages {
		if u.UserID == userID && u.Count >= c.UsageLimitPerUser {
			return ErrPerUserLimit
		}
	}
	return nil
}

// CalculateDiscount is gate 3 of 3: scope and minimum-purchase checks, then
// the actual discount amount. productIDs/categoryIDs describe the cart
// contents the coupon is being applied against.
func CalculateDiscount(c *models.Coupon, subtotal float64, productIDs, categoryIDs []uint) (float64, error) {
	switch c.Scope {
	case "products":
		if !intersects(productIDs, c.ProductIDs) {
			return 0, ErrNotApplicable
		}
	case "categories":
		if !intersects(categoryIDs, c.CategoryIDs) {
			return 0, ErrNotApplicable
		}
	}
	if subtotal < c.MinimumPurchase {
		return 0, ErrMinimumPurchase
	}
	if c.DiscountType != "percentage" && c.DiscountType != "fixed" {
		return 0, ErrUnknownType
	}
	return pricing.CouponDiscount(c.DiscountType, c.DiscountValue, c.MaximumDiscount, subtotal), nil
}

// RecordUsage increments the global counter and upserts the user's row.
// Called exactly once per completed checkout, inside the checkout
// transaction - never on cart apply, which only validates.
func RecordUsage(tx *gorm.DB, c *models.Coupon, userID uint) error {
	res := tx.Model(&models.CouponUsage{}).
		Where("coupon_id = ? AND user_id = ?", c.ID, userID).
		UpdateColumn("count", gorm.Expr("count + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if err := tx.Create(&models.CouponUsage{CouponID: c.ID, UserID: userID, Count: 1}).Error; err != nil {
			return err
		}
	}
	return tx.Model(&models.Coupon{}).
		Where("id = ?", c.ID).
		UpdateColumn("usage_count", gorm.Expr("usage_count + 1")).Error
}

func intersects(a, b []uint) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
