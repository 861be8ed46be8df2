package inventory

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/rohitpatharkar/EcommerceWebsiteProject/internal/models"
)

var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrSKUNotFound       = errors.New("sku not found")
)

// Decrement takes qty units off a SKU as a single conditional update:
// the row only changes if it still holds enough stock. Two competing
// checkouts for the last unit cannot both succeed - the loser gets
// ErrInsufficientStock instead of overselling.
func Decrement(tx *gorm.DB, sku string, qty int) error {
	res := tx.Model(&models.InventoryRecord{}).
		Where("sku = ? AND quantity >= ?", sku, qty).
		UpdateColumn("quantity", gorm.Expr("quantity - ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		available, err := Available(tx, sku)
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: only %d items available", ErrInsufficientStock, available)
	}
	return nil
}

// Restore puts qty units back on a SKU. Used on order cancellation; there is
// no upper capacity bound, restoring is unconditionally additive.
func Restore(tx *gorm.DB, sku string, qty int) error {
	res := tx.Model(&models.InventoryRecord{}).
		Where("sku = ?", sku).
		UpdateColumn("quantity", gorm.Expr("quantity + ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrSKUNotFound
	}
	return nil
}

// Available returns the current stock level for a SKU.
func Available(tx *gorm.DB, sku string) (int, error) {
	var rec models.InventoryRecord
	if err := tx.Where("sku = ?", sku).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrSKUNotFound
		}
		return 0, err
	}
	return rec.Quantity, nil
}

// SyncProductTotal recomputes the cached products.total_quantity from the
// sum of the product's inventory records. Must run after every Decrement
// or Restore so the cache never drifts from the source of truth.
func SyncProductTotal(tx *gorm.DB, productID uint) error {
	return tx.Exec(
		`UPDATE products SET total_quantity = (
			SELECT COALESCE(SUM(quantity), 0) FROM inventory_records WHERE product_id = ?
		) WHERE id = ?`, productID, productID).Error
}

// IsInStock reports whether any variant of the product has stock left.
func IsInStock(tx *gorm.DB, productID uint) (bool, error) {
	var total int64
	err := tx.Model(&models.InventoryRecord{}).
		Where("product_id = ? AND quantity > 0", productID).
		Count(&total).Error
	return total > 0, err
}

// IsVariantInStock reports whether a specific SKU can cover qty units.
func IsVariantInStock(tx *gorm.DB, sku string, qty int) (bool, error) {
	available, err := Available(tx, sku)
	if err != nil {
		return false, err
	}
	return available >= qty, nil
}

// LowStock lists every record at or below its own threshold.
func LowStock(tx *gorm.DB) ([]models.InventoryRecord, error) {
	var records []models.InventoryRecord
	err := tx.Where("quantity <= low_stock_threshold").Order("quantity asc").Find(&records).Error
	return records, err
}
