package coupon

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rohitpatharkar/EcommerceWebsiteProject/internal/models"
)

func validCoupon() models.Coupon {
	now := time.Now()
	return models.Coupon{
		Code:          "SAVE10",
		DiscountType:  "percentage",
		DiscountValue: 10,
		StartDate:     now.Add(-time.Hour),
		EndDate:       now.Add(time.Hour),
		IsActive:      true,
		Scope:         "all",
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "SAVE10", Normalize("  save10 "))
}

func TestIsValid(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name   string
		mutate func(*models.Coupon)
		want   error
	}{
		{"ok", func(c *models.Coupon) {}, nil},
		{"inactive", func(c *models.Coupon) { c.IsActive = false }, ErrInactive},
		{"not started", func(c *models.Coupon) { c.StartDate = now.Add(time.Hour) }, ErrNotStarted},
		{"expired", func(c *models.Coupon) { c.EndDate = now.Add(-time.Minute) }, ErrExpired},
		{"limit reached", func(c *models.Coupon) { c.UsageLimitTotal = 5; c.UsageCount = 5 }, ErrUsageLimit},
		{"under limit", func(c *models.Coupon) { c.UsageLimitTotal = 5; c.UsageCount = 4 }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validCoupon()
			tt.mutate(&c)
			assert.ErrorIs(t, IsValid(&c, now), tt.want)
		})
	}
}

func TestCanUserUse(t *testing.T) {
	c := validCoupon()
	c.UsageLimitPerUser = 1
	c.Usages = []models.CouponUsage{{UserID: 7, Count: 1}}

	assert.ErrorIs(t, CanUserUse(&c, 7), ErrPerUserLimit)
	assert.NoError(t, CanUserUse(&c, 8))

	c.UsageLimitPerUser = 0
	assert.NoError(t, CanUserUse(&c, 7))
}

func TestCalculateDiscountScopes(t *testing.T) {
	c := validCoupon()
	c.Scope = "products"
	c.ProductIDs = []uint{1, 2}

	_, err := CalculateDiscount(&c, 100, []uint{3, 4}, nil)
	assert.ErrorIs(t, err, ErrNotApplicable)

	d, err := CalculateDiscount(&c, 100, []uint{4, 2}, nil)
	require.NoError(t, err)
	assert.Equal(t, 10.00, d)

	c.Scope = "categories"
	c.CategoryIDs = []uint{9}
	_, err = CalculateDiscount(&c, 100, []uint{2}, []uint{5})
	assert.ErrorIs(t, err, ErrNotApplicable)

	_, err = CalculateDiscount(&c, 100, nil, []uint{9})
	assert.NoError(t, err)
}

func TestCalculateDiscountMinimumPurchase(t *testing.T) {
	c := validCoupon()
	c.MinimumPurchase = 50

	_, err := CalculateDiscount(&c, 49.99, nil, nil)
	assert.ErrorIs(t, err, ErrMinimumPurchase)

	d, err := CalculateDiscount(&c, 50.00, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 5.00, d)
}

func TestCalculateDiscountNeverExceedsSubtotal(t *testing.T) {
	c := validCoupon()
	c.DiscountType = "fixed"
	c.DiscountValue = 80

	d, err := CalculateDiscount(&c, 60, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 60.00, d)
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.Coupon{}, &models.CouponUsage{}))
	return db
}

func TestRecordUsageUpsertsAndKeepsCountsInSync(t *testing.T) {
	db := openTestDB(t)

	c := validCoupon()
	require.NoError(t, db.Create(&c).Error)

	require.NoError(t, RecordUsage(db, &c, 1))
	require.NoError(t, RecordUsage(db, &c, 1))
	require.NoError(t, RecordUsage(db, &c, 2))

	var refreshed models.Coupon
	require.NoError(t, db.Preload("Usages").First(&refreshed, c.ID).Error)

	assert.Equal(t, 3, refreshed.UsageCount)
	require.Len(t, refreshed.Usages, 2)

	// usage_count must equal the sum of the per-user rows
	sum := 0
	perUser := map[uint]int{}
	for _, u := range refreshed.Usages {
		sum += u.Count
		perUser[u.UserID] = u.Count
	}
	assert.Equal(t, refreshed.UsageCount, sum)
	assert.Equal(t, 2, perUser[1])
	assert.Equal(t, 1, perUser[2])
}
