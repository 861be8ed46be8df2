package database

import (
	"time"

	"github.com/rohitpatharkar/EcommerceWebsiteProject/internal/models"
	"github.com/rohitpatharkar/EcommerceWebsiteProject/internal/orders"
)

// SalesReportResult holds aggregate revenue numbers for a date range
type SalesReportResult struct {
	TotalRevenue float64
	TotalOrders  int64
}

var excludedStatuses = []string{orders.StatusCancelled, orders.StatusRefunded}

// GetSalesReport sums revenue over live (not cancelled/refunded) orders in a
// date range.
func GetSalesReport(start, end time.Time) (*SalesReportResult, error) {
	var result SalesReportResult

	// 1. Revenue
	// COALESCE ensures we get 0 instead of NULL if no orders exist
	err := DB.Model(&models.Order{}).
		Where("created_at BETWEEN ? AND ?", start, end).
		Where("status NOT IN ?", excludedStatuses).
		Select("COALESCE(SUM(total), 0)").
		Scan(&result.TotalRevenue).Error
	if err != nil {
		return nil, err
	}

	// 2. Order count
	err = DB.Model(&models.Order{}).
		Where("created_at BETWEEN ? AND ?", start, end).
		Where("status NOT IN ?", excludedStatuses).
		Count(&result.TotalOrders).Error
	if err != nil {
		return nil, err
	}

	return &result, nil
}
