package handlers

import (
	"net/http"

	"github.com/rohitpatharkar/EcommerceWebsiteProject/internal/database"
	"github.com/rohitpatharkar/EcommerceWebsiteProject/internal/inventory"
	"github.com/rohitpatharkar/EcommerceWebsiteProject/internal/models"
	"github.com/rohitpatharkar/EcommerceWebsiteProject/internal/orders"

	"github.com/gin-gonic/gin"
)

// DashboardReport defines the shape of our admin analytics response
type DashboardReport struct {
	TotalRevenue   float64          `json:"total_revenue"`
	TotalOrders    int64            `json:"total_orders"`
	OrdersByStatus map[string]int64 `json:"orders_by_status"`
	TopSelling     []struct {
		ProductName string  `json:"product_name"`
		Sold        int     `json:"sold"`
		Revenue     float64 `json:"revenue"`
	} `json:"top_selling"`
	RecentOrders []models.Order `json:"recent_orders"`
}

// --- ADMIN: GET /reports ---
func GetDashboardReport(c *gin.Context) {
	var data DashboardReport

	// 1. Total revenue over live orders (cancelled/refunded excluded)
	err := database.DB.Model(&models.Order{}).
		Where("status NOT IN ?", []string{orders.StatusCancelled, orders.StatusRefunded}).
		Select("COALESCE(SUM(total), 0)").
		Scan(&data.TotalRevenue).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to calculate revenue"})
		return
	}

	// 2. Count orders, overall and per status
	if err := database.DB.Model(&models.Order{}).Count(&data.TotalOrders).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to count orders"})
		return
	}

	var byStatus []struct {
		Status string
		N      int64
	}
	err = database.DB.Model(&models.Order{}).
		Select("status, COUNT(*) as n").
		Group("status").
		Scan(&byStatus).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to count orders"})
		return
	}
	data.OrdersByStatus = make(map[string]int64, len(byStatus))
	for _, row := range byStatus {
		data.OrdersByStatus[row.Status] = row.N
	}

	// 3. Top 5 best sellers
	err = database.DB.Table("order_items").
		Select("order_items.product_name as product_name, SUM(order_items.quantity) as sold, SUM(order_items.quantity * order_items.unit_price) as revenue").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.status NOT IN ?", []string{orders.StatusCancelled, orders.StatusRefunded}).
		Group("order_items.product_name").
		Order("sold desc").
		Limit(5).
		Scan(&data.TopSelling).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch top selling items"})
		return
	}

	// 4. The last 10 orders, newest first
	err = database.DB.Preload("Items").Order("created_at desc").Limit(10).Find(&data.RecentOrders).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch recent orders"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

// --- ADMIN: GET /reports/low-stock ---
// Every SKU at or under its own restock threshold.
func GetLowStockReport(c *gin.Context) {
	records, err := inventory.LowStock(database.DB)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch inventory"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": records})
}
