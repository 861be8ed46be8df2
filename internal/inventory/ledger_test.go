package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rohitpatharkar/EcommerceWebsiteProject/internal/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.Category{}, &models.Product{}, &models.InventoryRecord{}))
	return db
}

func seedProduct(t *testing.T, db *gorm.DB) models.Product {
	t.Helper()
	p := models.Product{
		Name: "Trail Shoe", Slug: "trail-shoe", Price: 89.99, IsActive: true,
		Variants: []models.InventoryRecord{
			{SKU: "SHOE-42", Quantity: 10, LowStockThreshold: 3},
			{SKU: "SHOE-43", Quantity: 2, LowStockThreshold: 3},
		},
		TotalQuantity: 12,
	}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func TestDecrementHappyPath(t *testing.T) {
	db := openTestDB(t)
	p := seedProduct(t, db)

	require.NoError(t, Decrement(db, "SHOE-42", 4))
	require.NoError(t, SyncProductTotal(db, p.ID))

	left, err := Available(db, "SHOE-42")
	require.NoError(t, err)
	assert.Equal(t, 6, left)

	var refreshed models.Product
	require.NoError(t, db.First(&refreshed, p.ID).Error)
	assert.Equal(t, 8, refreshed.TotalQuantity)
}

func TestDecrementRefusesToOversell(t *testing.T) {
	db := openTestDB(t)
	seedProduct(t, db)

	err := Decrement(db, "SHOE-43", 3)
	require.ErrorIs(t, err, ErrInsufficientStock)
	assert.Contains(t, err.Error(), "only 2 items available")

	// The failed decrement must leave the row untouched
	left, err := Available(db, "SHOE-43")
	require.NoError(t, err)
	assert.Equal(t, 2, left)
}

func TestDecrementToExactlyZero(t *testing.T) {
	db := openTestDB(t)
	seedProduct(t, db)

	require.NoError(t, Decrement(db, "SHOE-43", 2))
	left, err := Available(db, "SHOE-43")
	require.NoError(t, err)
	assert.Equal(t, 0, left)

	// Nothing left: even one more unit is refused
	assert.ErrorIs(t, Decrement(db, "SHOE-43", 1), ErrInsufficientStock)
}

func TestRestore(t *testing.T) {
	db := openTestDB(t)
	p := seedProduct(t, db)

	require.NoError(t, Decrement(db, "SHOE-42", 10))
	require.NoError(t, Restore(db, "SHOE-42", 10))
	require.NoError(t, SyncProductTotal(db, p.ID))

	left, err := Available(db, "SHOE-42")
	require.NoError(t, err)
	assert.Equal(t, 10, left)

	var refreshed models.Product
	require.NoError(t, db.First(&refreshed, p.ID).Error)
	assert.Equal(t, 12, refreshed.TotalQuantity)

	assert.ErrorIs(t, Restore(db, "NO-SUCH-SKU", 1), ErrSKUNotFound)
}

func TestStockReads(t *testing.T) {
	db := openTestDB(t)
	p := seedProduct(t, db)

	ok, err := IsInStock(db, p.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = IsVariantInStock(db, "SHOE-43", 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = IsVariantInStock(db, "SHOE-43", 3)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, Decrement(db, "SHOE-42", 10))
	require.NoError(t, Decrement(db, "SHOE-43", 2))
	ok, err = IsInStock(db, p.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLowStock(t *testing.T) {
	db := openTestDB(t)
	seedProduct(t, db)

	records, err := LowStock(db)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "SHOE-43", records[0].SKU)

	require.NoError(t, Decrement(db, "SHOE-42", 8))
	records, err = LowStock(db)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}
