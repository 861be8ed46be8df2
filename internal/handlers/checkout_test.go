package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rohitpatharkar/EcommerceWebsiteProject/internal/auth"
	"github.com/rohitpatharkar/EcommerceWebsiteProject/internal/database"
	"github.com/rohitpatharkar/EcommerceWebsiteProject/internal/middleware"
	"github.com/rohitpatharkar/EcommerceWebsiteProject/internal/models"
	"github.com/rohitpatharkar/EcommerceWebsiteProject/internal/orders"
)

// setupTest points the global DB at a fresh in-memory sqlite and builds a
// router with the cart/order routes, mirroring cmd/server.
func setupTest(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	database.Migrate(db)
	database.DB = db
	database.Redis = nil

	r := gin.New()
	cart := r.Group("/api/cart")
	cart.Use(middleware.OptionalAuth())
	{
		cart.GET("", GetCart)
		cart.POST("/items", AddCartItem)
		cart.PUT("/items/:id", UpdateCartItem)
		cart.DELETE("/items/:id", RemoveCartItem)
		cart.POST("/coupon", ApplyCoupon)
		cart.DELETE("/coupon", RemoveCoupon)
	}
	user := r.Group("/api")
	user.Use(middleware.AuthMiddleware())
	{
		user.POST("/orders", CreateOrder)
		user.GET("/orders", ListMyOrders)
		user.GET("/orders/:id", GetOrder)
		user.PUT("/orders/:id/cancel", CancelOrder)

		admin := user.Group("/")
		admin.Use(middleware.RequireRole("admin"))
		{
			admin.PUT("/orders/admin/:id/status", UpdateOrderStatus)
			admin.PUT("/orders/admin/:id/tracking", AddTracking)
			admin.PUT("/orders/admin/:id/refund", ProcessRefund)
		}
	}
	return r
}

func createUser(t *testing.T, role string) (models.User, string) {
	t.Helper()
	u := models.User{Name: "Test " + role, Email: role + fmt.Sprint(time.Now().UnixNano()) + "@example.com", Role: role}
	require.NoError(t, database.DB.Create(&u).Error)
	token, err := auth.GenerateToken(u.ID, u.Role)
	require.NoError(t, err)
	return u, token
}

// seedCatalog creates two products: $20 (SKU-A, 10 in stock) and $15 (SKU-B,
// 5 in stock).
func seedCatalog(t *testing.T) (models.Product, models.Product) {
	t.Helper()
	cat := models.Category{Name: "Shoes", Slug: "shoes", IsActive: true}
	require.NoError(t, database.DB.Create(&cat).Error)

	a := models.Product{
		Name: "Alpha Sneaker", Slug: "alpha-sneaker", Price: 20.00, CategoryID: cat.ID, IsActive: true,
		Variants:      []models.InventoryRecord{{SKU: "SKU-A", Quantity: 10, LowStockThreshold: 2}},
		TotalQuantity: 10,
	}
	b := models.Product{
		Name: "Beta Sandal", Slug: "beta-sandal", Price: 15.00, CategoryID: cat.ID, IsActive: true,
		Variants:      []models.InventoryRecord{{SKU: "SKU-B", Quantity: 5, LowStockThreshold: 2}},
		TotalQuantity: 5,
	}
	require.NoError(t, database.DB.Create(&a).Error)
	require.NoError(t, database.DB.Create(&b).Error)
	return a, b
}

func doJSON(r *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type cartEnvelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    models.Cart `json:"data"`
}

type orderEnvelope struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Data    models.Order `json:"data"`
}

func decodeCart(t *testing.T, w *httptest.ResponseRecorder) models.Cart {
	t.Helper()
	var env cartEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env.Data
}

func decodeOrder(t *testing.T, w *httptest.ResponseRecorder) models.Order {
	t.Helper()
	var env orderEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env.Data
}

func fillCart(t *testing.T, r *gin.Engine, token string, a, b models.Product) models.Cart {
	t.Helper()
	w := doJSON(r, http.MethodPost, "/api/cart/items", token, gin.H{"product_id": a.ID, "sku": "SKU-A", "quantity": 2})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = doJSON(r, http.MethodPost, "/api/cart/items", token, gin.H{"product_id": b.ID, "sku": "SKU-B", "quantity": 1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decodeCart(t, w)
}

func TestCartMutationsRecomputeTotals(t *testing.T) {
	r := setupTest(t)
	a, b := seedCatalog(t)
	_, token := createUser(t, "customer")

	cart := fillCart(t, r, token, a, b)
	// 2x20 + 1x15, no coupon, free shipping over $50
	assert.Equal(t, 55.00, cart.Subtotal)
	assert.Equal(t, 0.00, cart.Discount)
	assert.Equal(t, 4.40, cart.Tax)
	assert.Equal(t, 0.00, cart.Shipping)
	assert.Equal(t, 59.40, cart.Total)

	// Adding the same SKU again merges quantities into one line
	w := doJSON(r, http.MethodPost, "/api/cart/items", token, gin.H{"product_id": a.ID, "sku": "SKU-A", "quantity": 1})
	require.Equal(t, http.StatusOK, w.Code)
	cart = decodeCart(t, w)
	require.Len(t, cart.Items, 2)
	for _, it := range cart.Items {
		if it.SKU == "SKU-A" {
			assert.Equal(t, 3, it.Quantity)
		}
	}
	assert.Equal(t, 75.00, cart.Subtotal)

	// Quantity <= 0 removes the line
	var lineID uint
	for _, it := range cart.Items {
		if it.SKU == "SKU-A" {
			lineID = it.ID
		}
	}
	w = doJSON(r, http.MethodPut, fmt.Sprintf("/api/cart/items/%d", lineID), token, gin.H{"quantity": 0})
	require.Equal(t, http.StatusOK, w.Code)
	cart = decodeCart(t, w)
	require.Len(t, cart.Items, 1)
	// Below the $50 threshold now: flat fee applies
	assert.Equal(t, 15.00, cart.Subtotal)
	assert.Equal(t, 5.99, cart.Shipping)
	assert.Equal(t, 22.19, cart.Total) // 15 + 1.20 tax + 5.99

	// Invariant holds after every mutation
	assert.InDelta(t, cart.Subtotal-cart.Discount+cart.Tax+cart.Shipping, cart.Total, 0.001)
}

func TestAddItemRejectsInsufficientStock(t *testing.T) {
	r := setupTest(t)
	_, b := seedCatalog(t)
	_, token := createUser(t, "customer")

	w := doJSON(r, http.MethodPost, "/api/cart/items", token, gin.H{"product_id": b.ID, "sku": "SKU-B", "quantity": 6})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Only 5 items available")

	// Cart stays untouched
	w = doJSON(r, http.MethodGet, "/api/cart", token, nil)
	cart := decodeCart(t, w)
	assert.Empty(t, cart.Items)

	// Merge semantics: 3 in cart + 3 more would exceed the 5 in stock
	w = doJSON(r, http.MethodPost, "/api/cart/items", token, gin.H{"product_id": b.ID, "sku": "SKU-B", "quantity": 3})
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(r, http.MethodPost, "/api/cart/items", token, gin.H{"product_id": b.ID, "sku": "SKU-B", "quantity": 3})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func seedCoupon(t *testing.T, mutate func(*models.Coupon)) models.Coupon {
	t.Helper()
	cp := models.Coupon{
		Code: "SAVE10", DiscountType: "percentage", DiscountValue: 10,
		StartDate: time.Now().Add(-time.Hour), EndDate: time.Now().Add(24 * time.Hour),
		IsActive: true, Scope: "all",
	}
	if mutate != nil {
		mutate(&cp)
	}
	require.NoError(t, database.DB.Create(&cp).Error)
	return cp
}

func TestCheckoutFreezesSnapshotAndClearsCart(t *testing.T) {
	r := setupTest(t)
	a, b := seedCatalog(t)
	user, token := createUser(t, "customer")
	seedCoupon(t, func(c *models.Coupon) { c.UsageLimitPerUser = 1 })

	fillCart(t, r, token, a, b)

	w := doJSON(r, http.MethodPost, "/api/cart/coupon", token, gin.H{"code": "save10"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	cart := decodeCart(t, w)
	assert.Equal(t, 5.50, cart.Discount)
	assert.Equal(t, 3.96, cart.Tax)
	assert.Equal(t, 53.46, cart.Total)

	w = doJSON(r, http.MethodPost, "/api/orders", token, gin.H{
		"shipping_address": gin.H{"full_name": "Test Customer", "line1": "1 Main St", "city": "Pune", "postal_code": "411001", "country": "IN"},
		"payment_method":   "card",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	order := decodeOrder(t, w)

	assert.Regexp(t, `^ORD-`, order.OrderNumber)
	assert.Equal(t, orders.StatusPending, order.Status)
	assert.Equal(t, orders.PaymentPaid, order.PaymentStatus)
	assert.Regexp(t, `^TXN-`, order.TransactionID)
	assert.Equal(t, user.ID, order.UserID)
	require.Len(t, order.Items, 2)
	require.Len(t, order.Timeline, 1)
	assert.Equal(t, "SAVE10", order.CouponCode)
	assert.Equal(t, 53.46, order.Total)

	// Stock was decremented and product caches synced
	var recA, recB models.InventoryRecord
	require.NoError(t, database.DB.Where("sku = ?", "SKU-A").First(&recA).Error)
	require.NoError(t, database.DB.Where("sku = ?", "SKU-B").First(&recB).Error)
	assert.Equal(t, 8, recA.Quantity)
	assert.Equal(t, 4, recB.Quantity)

	var prodA models.Product
	require.NoError(t, database.DB.First(&prodA, a.ID).Error)
	assert.Equal(t, 8, prodA.TotalQuantity)
	assert.Equal(t, 2, prodA.SalesCount)

	// Coupon usage recorded exactly once, at checkout
	var cp models.Coupon
	require.NoError(t, database.DB.Preload("Usages").Where("code = ?", "SAVE10").First(&cp).Error)
	assert.Equal(t, 1, cp.UsageCount)
	require.Len(t, cp.Usages, 1)
	assert.Equal(t, 1, cp.Usages[0].Count)

	// Cart is cleared, not deleted
	w = doJSON(r, http.MethodGet, "/api/cart", token, nil)
	cart = decodeCart(t, w)
	assert.Empty(t, cart.Items)
	assert.Equal(t, 0.00, cart.Total)
	assert.Empty(t, cart.CouponCode)

	// Snapshot property: later cart activity must not leak into the order
	w = doJSON(r, http.MethodPost, "/api/cart/items", token, gin.H{"product_id": a.ID, "sku": "SKU-A", "quantity": 1})
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(r, http.MethodGet, fmt.Sprintf("/api/orders/%d", order.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	reloaded := decodeOrder(t, w)
	assert.Equal(t, 53.46, reloaded.Total)
	assert.Len(t, reloaded.Items, 2)

	// Per-user limit: the same user cannot apply the coupon again
	w = doJSON(r, http.MethodPost, "/api/cart/coupon", token, gin.H{"code": "SAVE10"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Per-user limit reached")
}

func TestCheckoutRejectsStaleStock(t *testing.T) {
	r := setupTest(t)
	a, _ := seedCatalog(t)
	_, token := createUser(t, "customer")

	w := doJSON(r, http.MethodPost, "/api/cart/items", token, gin.H{"product_id": a.ID, "sku": "SKU-A", "quantity": 4})
	require.Equal(t, http.StatusOK, w.Code)

	// Stock vanishes between add-to-cart and checkout
	require.NoError(t, database.DB.Model(&models.InventoryRecord{}).
		Where("sku = ?", "SKU-A").Update("quantity", 1).Error)

	w = doJSON(r, http.MethodPost, "/api/orders", token, gin.H{
		"shipping_address": gin.H{"full_name": "T", "line1": "1 Main St", "city": "Pune", "postal_code": "411001", "country": "IN"},
		"payment_method":   "cod",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "only 1 items available")

	// Rolled back: nothing was decremented, no order exists
	var rec models.InventoryRecord
	require.NoError(t, database.DB.Where("sku = ?", "SKU-A").First(&rec).Error)
	assert.Equal(t, 1, rec.Quantity)
	var n int64
	database.DB.Model(&models.Order{}).Count(&n)
	assert.Zero(t, n)
}

func placeOrder(t *testing.T, r *gin.Engine, token string, a, b models.Product) models.Order {
	t.Helper()
	fillCart(t, r, token, a, b)
	w := doJSON(r, http.MethodPost, "/api/orders", token, gin.H{
		"shipping_address": gin.H{"full_name": "Test Customer", "line1": "1 Main St", "city": "Pune", "postal_code": "411001", "country": "IN"},
		"payment_method":   "card",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodeOrder(t, w)
}

func TestCancelRestoresStockAndSalesCount(t *testing.T) {
	r := setupTest(t)
	a, b := seedCatalog(t)
	_, token := createUser(t, "customer")

	order := placeOrder(t, r, token, a, b)

	w := doJSON(r, http.MethodPut, fmt.Sprintf("/api/orders/%d/cancel", order.ID), token, gin.H{"reason": "changed my mind"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var recA, recB models.InventoryRecord
	require.NoError(t, database.DB.Where("sku = ?", "SKU-A").First(&recA).Error)
	require.NoError(t, database.DB.Where("sku = ?", "SKU-B").First(&recB).Error)
	assert.Equal(t, 10, recA.Quantity)
	assert.Equal(t, 5, recB.Quantity)

	var prodA models.Product
	require.NoError(t, database.DB.First(&prodA, a.ID).Error)
	assert.Equal(t, 10, prodA.TotalQuantity)
	assert.Equal(t, 0, prodA.SalesCount)

	var refreshed models.Order
	require.NoError(t, database.DB.Preload("Timeline").First(&refreshed, order.ID).Error)
	assert.Equal(t, orders.StatusCancelled, refreshed.Status)
	assert.Len(t, refreshed.Timeline, 2)

	// Cancelling twice is an illegal transition
	w = doJSON(r, http.MethodPut, fmt.Sprintf("/api/orders/%d/cancel", order.ID), token, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "no longer be cancelled")
}

func TestCancelForbiddenForOtherUsers(t *testing.T) {
	r := setupTest(t)
	a, b := seedCatalog(t)
	_, token := createUser(t, "customer")
	order := placeOrder(t, r, token, a, b)

	_, otherToken := createUser(t, "customer")
	w := doJSON(r, http.MethodPut, fmt.Sprintf("/api/orders/%d/cancel", order.ID), otherToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdminStatusTransitions(t *testing.T) {
	r := setupTest(t)
	a, b := seedCatalog(t)
	_, token := createUser(t, "customer")
	_, adminToken := createUser(t, "admin")

	order := placeOrder(t, r, token, a, b)
	statusURL := fmt.Sprintf("/api/orders/admin/%d/status", order.ID)

	// pending -> processing is legal
	w := doJSON(r, http.MethodPut, statusURL, adminToken, gin.H{"status": orders.StatusProcessing})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Unknown status is rejected
	w = doJSON(r, http.MethodPut, statusURL, adminToken, gin.H{"status": "archived"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Cancelled cannot be set here - it would skip the stock restore
	w = doJSON(r, http.MethodPut, statusURL, adminToken, gin.H{"status": orders.StatusCancelled})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "cancel endpoint")

	// processing -> delivered is allowed; delivered -> processing is not
	w = doJSON(r, http.MethodPut, statusURL, adminToken, gin.H{"status": orders.StatusDelivered})
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(r, http.MethodPut, statusURL, adminToken, gin.H{"status": orders.StatusProcessing})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Delivered orders cannot be cancelled by the customer either
	w = doJSON(r, http.MethodPut, fmt.Sprintf("/api/orders/%d/cancel", order.ID), token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Customers cannot touch the admin endpoint at all
	w = doJSON(r, http.MethodPut, statusURL, token, gin.H{"status": orders.StatusShipped})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestTrackingAutoShips(t *testing.T) {
	r := setupTest(t)
	a, b := seedCatalog(t)
	_, token := createUser(t, "customer")
	_, adminToken := createUser(t, "admin")

	order := placeOrder(t, r, token, a, b)

	w := doJSON(r, http.MethodPut, fmt.Sprintf("/api/orders/admin/%d/tracking", order.ID), adminToken, gin.H{
		"carrier":         "BlueDart",
		"tracking_number": "BD123456789",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decodeOrder(t, w)
	assert.Equal(t, orders.StatusShipped, updated.Status)
	assert.Equal(t, "BlueDart", updated.Carrier)
	assert.Len(t, updated.Timeline, 2)
}

func TestRefundCapsAndFullRefundFlipsStatus(t *testing.T) {
	r := setupTest(t)
	a, b := seedCatalog(t)
	_, token := createUser(t, "customer")
	_, adminToken := createUser(t, "admin")

	order := placeOrder(t, r, token, a, b) // total 59.40, paid by card
	refundURL := fmt.Sprintf("/api/orders/admin/%d/refund", order.ID)

	// Over-refund is rejected
	w := doJSON(r, http.MethodPut, refundURL, adminToken, gin.H{"amount": order.Total + 0.01, "reason": "oops"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	// Partial refund marks the payment but not the order status
	w = doJSON(r, http.MethodPut, refundURL, adminToken, gin.H{"amount": 10.00, "reason": "damaged item"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	partial := decodeOrder(t, w)
	assert.Equal(t, orders.PaymentPartiallyRefunded, partial.PaymentStatus)
	assert.Equal(t, orders.StatusPending, partial.Status)
	assert.Equal(t, 10.00, partial.RefundAmount)

	// Cumulative cap: the rest is fine, a penny more is not
	w = doJSON(r, http.MethodPut, refundURL, adminToken, gin.H{"amount": order.Total - 10.00 + 0.01, "reason": "too much"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodPut, refundURL, adminToken, gin.H{"amount": order.Total - 10.00, "reason": "full refund"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	full := decodeOrder(t, w)
	assert.Equal(t, orders.PaymentRefunded, full.PaymentStatus)
	assert.Equal(t, orders.StatusRefunded, full.Status)
	assert.Equal(t, order.Total, full.RefundAmount)

	// Frozen pricing snapshot is untouched by refunds
	assert.Equal(t, order.Total, full.Total)
}
