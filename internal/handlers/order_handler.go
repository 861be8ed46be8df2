package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rohitpatharkar/EcommerceWebsiteProject/internal/coupon"
	"github.com/rohitpatharkar/EcommerceWebsiteProject/internal/database"
	"github.com/rohitpatharkar/EcommerceWebsiteProject/internal/inventory"
	"github.com/rohitpatharkar/EcommerceWebsiteProject/internal/models"
	"github.com/rohitpatharkar/EcommerceWebsiteProject/internal/orders"
	"github.com/rohitpatharkar/EcommerceWebsiteProject/internal/pricing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CheckoutRequest struct {
	ShippingAddress models.Address  `json:"shipping_address" binding:"required"`
	BillingAddress  *models.Address `json:"billing_address"`
	PaymentMethod   string          `json:"payment_method" binding:"required,oneof=card cod"`
	Notes           string          `json:"notes"`
}

// --- POST /orders ---
// Checkout. The whole sequence - stock decrement, coupon usage, order
// insert, cart clear - runs in ONE transaction, so a failure at any step
// rolls everything back. Stock decrements are conditional updates, so two
// concurrent checkouts cannot oversell the same SKU.
func CreateOrder(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "shipping_address and payment_method (card or cod) are required"})
		return
	}

	userID := c.MustGet("userID").(uint)

	cart, err := loadUserCart(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to load cart"})
		return
	}
	if len(cart.Items) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Cart is empty"})
		return
	}

	// 1. Start a Database Transaction
	tx := database.DB.Begin()
	if tx.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Checkout failed, please try again"})
		return
	}

	// 2. Reserve stock per line. Conditional decrement: fails instead of
	// going negative when another checkout got there first.
	for _, item := range cart.Items {
		if err := inventory.Decrement(tx, item.SKU, item.Quantity); err != nil {
			tx.Rollback()
			if errors.Is(err, inventory.ErrInsufficientStock) {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": fmt.Sprintf("%s: %s", item.ProductName, stockMessage(err))})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to reserve stock"})
			return
		}
		if err := inventory.SyncProductTotal(tx, item.ProductID); err != nil {
			tx.Rollback()
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to update inventory"})
			return
		}
		if err := tx.Model(&models.Product{}).Where("id = ?", item.ProductID).
			UpdateColumn("sales_count", gorm.Expr("sales_count + ?", item.Quantity)).Error; err != nil {
			tx.Rollback()
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to update inventory"})
			return
		}
	}

	// 3. Re-validate the coupon and record its usage. Apply-time validation
	// may be stale by now (expiry, usage limits).
	var discount float64
	couponCode := ""
	if cart.CouponCode != "" {
		var cp models.Coupon
		if err := tx.Preload("Usages").Where("code = ?", cart.CouponCode).First(&cp).Error; err != nil {
			tx.Rollback()
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Applied coupon no longer exists"})
			return
		}
		d, evalErr := evaluateCoupon(tx, &cp, cart, userID)
		if evalErr != nil {
			tx.Rollback()
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": couponMessage(evalErr)})
			return
		}
		if err := coupon.RecordUsage(tx, &cp, userID); err != nil {
			tx.Rollback()
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Checkout failed, please try again"})
			return
		}
		discount = d
		couponCode = cp.Code
	}

	// 4. Freeze the cart into the order snapshot
	lines := make([]pricing.Line, 0, len(cart.Items))
	orderItems := make([]models.OrderItem, 0, len(cart.Items))
	for _, item := range cart.Items {
		lines = append(lines, pricing.Line{UnitPrice: item.UnitPrice, Quantity: item.Quantity})
		orderItems = append(orderItems, models.OrderItem{
			ProductID:         item.ProductID,
			ProductName:       item.ProductName,
			SKU:               item.SKU,
			Quantity:          item.Quantity,
			UnitPrice:         item.UnitPrice,
			VariantSelections: item.VariantSelections,
		})
	}
	totals := pricing.ComputeTotals(lines, discount, pricing.Active)

	billing := req.ShippingAddress
	if req.BillingAddress != nil {
		billing = *req.BillingAddress
	}

	order := models.Order{
		OrderNumber:     orders.NewOrderNumber(),
		UserID:          userID,
		Items:           orderItems,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  billing,
		PaymentMethod:   req.PaymentMethod,
		Subtotal:        totals.Subtotal,
		Discount:        totals.Discount,
		CouponCode:      couponCode,
		Tax:             totals.Tax,
		Shipping:        totals.Shipping,
		Total:           totals.Total,
		Status:          orders.StatusPending,
		Notes:           req.Notes,
		Timeline: []models.TimelineEvent{
			{Status: orders.StatusPending, Description: "Order placed", ActorID: &userID},
		},
	}

	// Mock payment gateway: cards always clear, COD stays pending
	if req.PaymentMethod == "card" {
		now := time.Now()
		order.PaymentStatus = orders.PaymentPaid
		order.PaidAt = &now
		order.TransactionID = "TXN-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
	} else {
		order.PaymentStatus = orders.PaymentPending
	}

	if err := tx.Create(&order).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to create order"})
		return
	}

	// 5. Clear the cart (cleared, never deleted)
	if err := tx.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to clear cart"})
		return
	}
	if err := tx.Model(&models.Cart{}).Where("id = ?", cart.ID).Updates(map[string]interface{}{
		"coupon_code": "", "coupon_type": "", "coupon_value": 0, "coupon_max_discount": 0,
		"subtotal": 0, "discount": 0, "tax": 0, "shipping": 0, "total": 0,
	}).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to clear cart"})
		return
	}

	// 6. Commit Transaction
	if err := tx.Commit().Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Checkout failed, please try again"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Order placed successfully", "data": order})
}

func stockMessage(err error) string {
	// inventory errors already carry the "only N items available" detail
	msg := err.Error()
	if cut, ok := strings.CutPrefix(msg, inventory.ErrInsufficientStock.Error()+": "); ok {
		return cut
	}
	return "insufficient stock"
}

// --- GET /orders ---
func ListMyOrders(c *gin.Context) {
	userID := c.MustGet("userID").(uint)

	var list []models.Order
	if err := database.DB.Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&list).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch orders"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": list})
}

// loadOrderForRequest fetches the order and enforces ownership (admins see all).
func loadOrderForRequest(c *gin.Context) (*models.Order, bool) {
	var order models.Order
	err := database.DB.Preload("Items").Preload("Timeline").
		First(&order, "id = ?", c.Param("id")).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Order not found"})
		return nil, false
	}

	userID := c.MustGet("userID").(uint)
	role, _ := c.Get("role")
	if order.UserID != userID && role != "admin" {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "You do not have access to this order"})
		return nil, false
	}
	return &order, true
}

// --- GET /orders/:id ---
func GetOrder(c *gin.Context) {
	order, ok := loadOrderForRequest(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": order})
}

type CancelRequest struct {
	Reason string `json:"reason"`
}

// --- PUT /orders/:id/cancel ---
// Only from pending/processing. Restores every line's stock and unwinds the
// product sales counters, all inside one transaction.
func CancelOrder(c *gin.Context) {
	order, ok := loadOrderForRequest(c)
	if !ok {
		return
	}

	var req CancelRequest
	_ = c.ShouldBindJSON(&req) // reason is optional

	if !orders.CanCancel(order.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": fmt.Sprintf("A %s order can no longer be cancelled", order.Status)})
		return
	}

	userID := c.MustGet("userID").(uint)
	description := "Order cancelled"
	if req.Reason != "" {
		description = "Order cancelled: " + req.Reason
	}

	tx := database.DB.Begin()
	for _, item := range order.Items {
		if err := inventory.Restore(tx, item.SKU, item.Quantity); err != nil {
			tx.Rollback()
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to restore stock"})
			return
		}
		if err := inventory.SyncProductTotal(tx, item.ProductID); err != nil {
			tx.Rollback()
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to restore stock"})
			return
		}
		if err := tx.Model(&models.Product{}).Where("id = ?", item.ProductID).
			UpdateColumn("sales_count", gorm.Expr("sales_count - ?", item.Quantity)).Error; err != nil {
			tx.Rollback()
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to restore stock"})
			return
		}
	}

	if err := tx.Model(order).Update("status", orders.StatusCancelled).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to cancel order"})
		return
	}
	if err := tx.Create(&models.TimelineEvent{
		OrderID: order.ID, Status: orders.StatusCancelled, Description: description, ActorID: &userID,
	}).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to cancel order"})
		return
	}
	if err := tx.Commit().Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to cancel order"})
		return
	}

	order.Status = orders.StatusCancelled
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Order cancelled", "data": order})
}

// --- ADMIN: GET /orders/admin ---
func ListAllOrders(c *gin.Context) {
	query := database.DB.Preload("Items").Order("created_at desc")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var list []models.Order
	if err := query.Find(&list).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch orders"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": list})
}

type StatusUpdateRequest struct {
	Status      string `json:"status" binding:"required"`
	Description string `json:"description"`
}

// --- ADMIN: PUT /orders/admin/:id/status ---
// Validated against the transition table. Cancelled and refunded are
// unreachable here on purpose: they carry stock/payment side effects and
// belong to their dedicated endpoints.
func UpdateOrderStatus(c *gin.Context) {
	var order models.Order
	if err := database.DB.First(&order, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Order not found"})
		return
	}

	var req StatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "status is required"})
		return
	}

	if !orders.IsValid(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Unknown order status"})
		return
	}
	if req.Status == orders.StatusCancelled {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Use the cancel endpoint so stock is restored"})
		return
	}
	if req.Status == orders.StatusRefunded {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Use the refund endpoint"})
		return
	}
	if !orders.CanTransition(order.Status, req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": fmt.Sprintf("Cannot move a %s order to %s", order.Status, req.Status)})
		return
	}

	adminID := c.MustGet("userID").(uint)
	description := req.Description
	if description == "" {
		description = "Status changed to " + req.Status
	}

	tx := database.DB.Begin()
	if err := tx.Model(&order).Update("status", req.Status).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to update order"})
		return
	}
	if err := tx.Create(&models.TimelineEvent{
		OrderID: order.ID, Status: req.Status, Description: description, ActorID: &adminID,
	}).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to update order"})
		return
	}
	if err := tx.Commit().Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to update order"})
		return
	}

	order.Status = req.Status
	c.JSON(http.StatusOK, gin.H{"success": true, "data": order})
}

type TrackingRequest struct {
	Carrier           string `json:"carrier" binding:"required"`
	TrackingNumber    string `json:"tracking_number" binding:"required"`
	EstimatedDelivery string `json:"estimated_delivery"` // RFC 3339, optional
}

// --- ADMIN: PUT /orders/admin/:id/tracking ---
// Setting tracking on a pending/processing order implies it went out the
// door, so it also moves the order to shipped.
func AddTracking(c *gin.Context) {
	var order models.Order
	if err := database.DB.First(&order, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Order not found"})
		return
	}

	var req TrackingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "carrier and tracking_number are required"})
		return
	}

	updates := map[string]interface{}{
		"carrier":         req.Carrier,
		"tracking_number": req.TrackingNumber,
	}
	if req.EstimatedDelivery != "" {
		eta, err := time.Parse(time.RFC3339, req.EstimatedDelivery)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "estimated_delivery must be RFC 3339"})
			return
		}
		updates["estimated_delivery"] = eta
	}

	adminID := c.MustGet("userID").(uint)
	shipNow := order.Status == orders.StatusPending || order.Status == orders.StatusProcessing
	if shipNow {
		updates["status"] = orders.StatusShipped
	}

	tx := database.DB.Begin()
	if err := tx.Model(&order).Updates(updates).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to save tracking"})
		return
	}
	if shipNow {
		if err := tx.Create(&models.TimelineEvent{
			OrderID: order.ID, Status: orders.StatusShipped,
			Description: "Shipped via " + req.Carrier + " (" + req.TrackingNumber + ")",
			ActorID:     &adminID,
		}).Error; err != nil {
			tx.Rollback()
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to save tracking"})
			return
		}
	}
	if err := tx.Commit().Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to save tracking"})
		return
	}

	database.DB.Preload("Timeline").First(&order, order.ID)
	c.JSON(http.StatusOK, gin.H{"success": true, "data": order})
}

type RefundRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
	Reason string  `json:"reason" binding:"required"`
}

// --- ADMIN: PUT /orders/admin/:id/refund ---
// Cumulative refunds are capped at the frozen order total. A full refund
// flips the order status to refunded; a partial one only marks the payment.
// Inventory is untouched: a refund is not a return.
func ProcessRefund(c *gin.Context) {
	var order models.Order
	if err := database.DB.First(&order, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Order not found"})
		return
	}

	var req RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "amount (> 0) and reason are required"})
		return
	}

	if order.PaymentStatus != orders.PaymentPaid && order.PaymentStatus != orders.PaymentPartiallyRefunded {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Order has no captured payment to refund"})
		return
	}
	newRefundTotal := pricing.Round2(order.RefundAmount + req.Amount)
	if newRefundTotal > order.Total {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": fmt.Sprintf("Refund exceeds order total (%.2f of %.2f already refunded)", order.RefundAmount, order.Total)})
		return
	}

	now := time.Now()
	full := newRefundTotal == order.Total

	updates := map[string]interface{}{
		"refund_amount": newRefundTotal,
		"refunded_at":   now,
	}
	eventStatus := order.Status
	if full {
		updates["payment_status"] = orders.PaymentRefunded
		updates["status"] = orders.StatusRefunded
		eventStatus = orders.StatusRefunded
	} else {
		updates["payment_status"] = orders.PaymentPartiallyRefunded
	}

	adminID := c.MustGet("userID").(uint)

	tx := database.DB.Begin()
	if err := tx.Model(&order).Updates(updates).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to process refund"})
		return
	}
	if err := tx.Create(&models.TimelineEvent{
		OrderID: order.ID, Status: eventStatus,
		Description: fmt.Sprintf("Refunded %.2f: %s", req.Amount, req.Reason),
		ActorID:     &adminID,
	}).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to process refund"})
		return
	}
	if err := tx.Commit().Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to process refund"})
		return
	}

	database.DB.First(&order, order.ID)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Refund processed", "data": order})
}
