package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rohitpatharkar/EcommerceWebsiteProject/internal/cache"
	"github.com/rohitpatharkar/EcommerceWebsiteProject/internal/coupon"
	"github.com/rohitpatharkar/EcommerceWebsiteProject/internal/database"
	"github.com/rohitpatharkar/EcommerceWebsiteProject/internal/models"
	"github.com/rohitpatharkar/EcommerceWebsiteProject/internal/pricing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Cart routes run behind OptionalAuth: a logged-in shopper works on their
// one-per-user DB cart, an anonymous shopper on a Redis cart addressed by
// the X-Guest-Token header (minted on first add, echoed back as guest_token).

func sessionUserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get("userID")
	if !ok {
		return 0, false
	}
	return v.(uint), true
}

// loadUserCart fetches (or lazily creates) the user's cart with items.
func loadUserCart(userID uint) (*models.Cart, error) {
	var cart models.Cart
	err := database.DB.Preload("Items").Where("user_id = ?", userID).First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cart = models.Cart{UserID: userID}
		if err := database.DB.Create(&cart).Error; err != nil {
			return nil, err
		}
		return &cart, nil
	}
	return &cart, err
}

func saveUserCart(cart *models.Cart) error {
	// Items are written individually by the mutation paths; here we persist
	// the totals and coupon columns only.
	return database.DB.Omit("Items").Save(cart).Error
}

// lookupVariant resolves a purchasable (active product, known SKU) variant.
func lookupVariant(productID uint, sku string) (*models.Product, *models.InventoryRecord, string) {
	var product models.Product
	if err := database.DB.First(&product, productID).Error; err != nil || !product.IsActive {
		return nil, nil, "Product not found"
	}
	var record models.InventoryRecord
	if err := database.DB.Where("sku = ? AND product_id = ?", sku, productID).First(&record).Error; err != nil {
		return nil, nil, "Variant not found for this product"
	}
	return &product, &record, ""
}

// --- GET /cart ---
func GetCart(c *gin.Context) {
	if userID, ok := sessionUserID(c); ok {
		cart, err := loadUserCart(userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to load cart"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": cart})
		return
	}

	token := c.GetHeader("X-Guest-Token")
	if database.Redis == nil || token == "" {
		// Nothing server-side yet: an empty cart
		c.JSON(http.StatusOK, gin.H{"success": true, "data": models.GuestCart{}})
		return
	}
	guest, err := cache.GetGuestCart(c.Request.Context(), database.Redis, token)
	if errors.Is(err, cache.ErrGuestCartNotFound) {
		c.JSON(http.StatusOK, gin.H{"success": true, "data": models.GuestCart{Token: token}})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to load cart"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": guest, "guest_token": guest.Token})
}

type AddItemRequest struct {
	ProductID         uint              `json:"product_id" binding:"required"`
	SKU               string            `json:"sku" binding:"required"`
	Quantity          int               `json:"quantity" binding:"required,gte=1"`
	VariantSelections map[string]string `json:"variant_selections"`
}

// --- POST /cart/items ---
func AddCartItem(c *gin.Context) {
	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "product_id, sku and a quantity of at least 1 are required"})
		return
	}

	product, record, msg := lookupVariant(req.ProductID, req.SKU)
	if msg != "" {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": msg})
		return
	}

	selections := req.VariantSelections
	if selections == nil {
		selections = record.VariantSelections
	}

	if userID, ok := sessionUserID(c); ok {
		cart, err := loadUserCart(userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to load cart"})
			return
		}

		// Merge semantics: stock must cover what is already in the cart PLUS
		// the new quantity.
		var existing *models.CartItem
		for i := range cart.Items {
			if cart.Items[i].SKU == req.SKU {
				existing = &cart.Items[i]
				break
			}
		}
		wanted := req.Quantity
		if existing != nil {
			wanted += existing.Quantity
		}
		if record.Quantity < wanted {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": fmt.Sprintf("Only %d items available in stock", record.Quantity)})
			return
		}

		if existing != nil {
			existing.Quantity = wanted
			if err := database.DB.Model(existing).Update("quantity", wanted).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to update cart"})
				return
			}
		} else {
			item := models.CartItem{
				CartID:            cart.ID,
				ProductID:         product.ID,
				ProductName:       product.Name,
				SKU:               record.SKU,
				Quantity:          req.Quantity,
				UnitPrice:         product.Price, // price snapshot at add time
				VariantSelections: selections,
			}
			if err := database.DB.Create(&item).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to update cart"})
				return
			}
			cart.Items = append(cart.Items, item)
		}

		cart.Recalculate(pricing.Active)
		if err := saveUserCart(cart); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to save cart"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": cart})
		return
	}

	// Guest path
	if database.Redis == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Please log in to use the cart"})
		return
	}
	guest, err := resolveGuestCart(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to load cart"})
		return
	}

	var existing *models.CartItem
	for i := range guest.Items {
		if guest.Items[i].SKU == req.SKU {
			existing = &guest.Items[i]
			break
		}
	}
	wanted := req.Quantity
	if existing != nil {
		wanted += existing.Quantity
	}
	if record.Quantity < wanted {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": fmt.Sprintf("Only %d items available in stock", record.Quantity)})
		return
	}

	if existing != nil {
		existing.Quantity = wanted
	} else {
		guest.Items = append(guest.Items, models.CartItem{
			ID:                guest.NextItemID,
			ProductID:         product.ID,
			ProductName:       product.Name,
			SKU:               record.SKU,
			Quantity:          req.Quantity,
			UnitPrice:         product.Price,
			VariantSelections: selections,
			CreatedAt:         time.Now(),
		})
		guest.NextItemID++
	}

	guest.Recalculate(pricing.Active)
	if err := cache.SaveGuestCart(c.Request.Context(), database.Redis, guest); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to save cart"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": guest, "guest_token": guest.Token})
}

func resolveGuestCart(c *gin.Context) (*models.GuestCart, error) {
	token := c.GetHeader("X-Guest-Token")
	if token == "" {
		return cache.NewGuestCart(), nil
	}
	guest, err := cache.GetGuestCart(c.Request.Context(), database.Redis, token)
	if errors.Is(err, cache.ErrGuestCartNotFound) {
		fresh := cache.NewGuestCart()
		fresh.Token = token
		return fresh, nil
	}
	return guest, err
}

type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// --- PUT /cart/items/:id ---
// A quantity of zero or less removes the line entirely.
func UpdateCartItem(c *gin.Context) {
	itemID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid item ID"})
		return
	}
	var req UpdateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid input"})
		return
	}

	if userID, ok := sessionUserID(c); ok {
		cart, err := loadUserCart(userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to load cart"})
			return
		}

		var item *models.CartItem
		for i := range cart.Items {
			if cart.Items[i].ID == uint(itemID) {
				item = &cart.Items[i]
				break
			}
		}
		if item == nil {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Item not found in cart"})
			return
		}

		if req.Quantity <= 0 {
			if err := database.DB.Delete(&models.CartItem{}, item.ID).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to update cart"})
				return
			}
			removeCartLine(cart, item.ID)
		} else {
			var record models.InventoryRecord
			if err := database.DB.Where("sku = ?", item.SKU).First(&record).Error; err == nil && record.Quantity < req.Quantity {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": fmt.Sprintf("Only %d items available in stock", record.Quantity)})
				return
			}
			item.Quantity = req.Quantity
			if err := database.DB.Model(&models.CartItem{}).Where("id = ?", item.ID).Update("quantity", req.Quantity).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to update cart"})
				return
			}
		}

		cart.Recalculate(pricing.Active)
		if err := saveUserCart(cart); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to save cart"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": cart})
		return
	}

	guest, ok := requireGuestCart(c)
	if !ok {
		return
	}
	item := guest.FindItem(uint(itemID))
	if item == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Item not found in cart"})
		return
	}
	if req.Quantity <= 0 {
		guest.RemoveItem(uint(itemID))
	} else {
		var record models.InventoryRecord
		if err := database.DB.Where("sku = ?", item.SKU).First(&record).Error; err == nil && record.Quantity < req.Quantity {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": fmt.Sprintf("Only %d items available in stock", record.Quantity)})
			return
		}
		item.Quantity = req.Quantity
	}
	finishGuestCart(c, guest)
}

// --- DELETE /cart/items/:id ---
func RemoveCartItem(c *gin.Context) {
	itemID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid item ID"})
		return
	}

	if userID, ok := sessionUserID(c); ok {
		cart, err := loadUserCart(userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to load cart"})
			return
		}
		found := false
		for _, it := range cart.Items {
			if it.ID == uint(itemID) {
				found = true
				break
			}
		}
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Item not found in cart"})
			return
		}
		if err := database.DB.Delete(&models.CartItem{}, itemID).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to update cart"})
			return
		}
		removeCartLine(cart, uint(itemID))
		cart.Recalculate(pricing.Active)
		if err := saveUserCart(cart); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to save cart"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": cart})
		return
	}

	guest, ok := requireGuestCart(c)
	if !ok {
		return
	}
	if !guest.RemoveItem(uint(itemID)) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Item not found in cart"})
		return
	}
	finishGuestCart(c, guest)
}

type ApplyCouponRequest struct {
	Code string `json:"code" binding:"required"`
}

// --- POST /cart/coupon ---
// Runs the full evaluator (validity, per-user limit, scope, minimum). On any
// failure the cart is left untouched and the specific reason is returned.
// Usage is NOT recorded here - only checkout records usage.
func ApplyCoupon(c *gin.Context) {
	userID, ok := sessionUserID(c)
	if !ok {
		// Per-user limits cannot be tracked for anonymous shoppers
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Please log in to apply a coupon"})
		return
	}

	var req ApplyCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Coupon code is required"})
		return
	}

	cart, err := loadUserCart(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to load cart"})
		return
	}
	if len(cart.Items) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Cart is empty"})
		return
	}

	var cp models.Coupon
	if err := database.DB.Preload("Usages").Where("code = ?", coupon.Normalize(req.Code)).First(&cp).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Invalid coupon code"})
		return
	}

	// Recalculate below re-derives the discount from the stored fields, so
	// only the error matters here.
	if _, err := evaluateCoupon(database.DB, &cp, cart, userID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": couponMessage(err)})
		return
	}

	cart.AppliedCoupon = models.AppliedCoupon{
		CouponCode:        cp.Code,
		CouponType:        cp.DiscountType,
		CouponValue:       cp.DiscountValue,
		CouponMaxDiscount: cp.MaximumDiscount,
	}
	cart.Recalculate(pricing.Active)
	if err := saveUserCart(cart); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to save cart"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Coupon applied", "data": cart})
}

// evaluateCoupon runs all three evaluator gates against the cart contents.
// db is the handle to read product categories through - the checkout path
// passes its transaction here.
func evaluateCoupon(db *gorm.DB, cp *models.Coupon, cart *models.Cart, userID uint) (float64, error) {
	if err := coupon.IsValid(cp, time.Now()); err != nil {
		return 0, err
	}
	if err := coupon.CanUserUse(cp, userID); err != nil {
		return 0, err
	}

	productIDs := make([]uint, 0, len(cart.Items))
	for _, it := range cart.Items {
		productIDs = append(productIDs, it.ProductID)
	}
	var categoryIDs []uint
	if len(productIDs) > 0 {
		db.Model(&models.Product{}).Where("id IN ?", productIDs).
			Distinct().Pluck("category_id", &categoryIDs)
	}

	subtotal := cart.Subtotal
	if subtotal == 0 {
		// Cart rows straight out of the DB are already computed, but make sure
		cart.Recalculate(pricing.Active)
		subtotal = cart.Subtotal
	}
	return coupon.CalculateDiscount(cp, subtotal, productIDs, categoryIDs)
}

func couponMessage(err error) string {
	switch {
	case errors.Is(err, coupon.ErrInactive):
		return "This coupon is no longer active"
	case errors.Is(err, coupon.ErrNotStarted):
		return "This coupon is not valid yet"
	case errors.Is(err, coupon.ErrExpired):
		return "This coupon has expired"
	case errors.Is(err, coupon.ErrUsageLimit):
		return "This coupon has reached its usage limit"
	case errors.Is(err, coupon.ErrPerUserLimit):
		return "Per-user limit reached"
	case errors.Is(err, coupon.ErrNotApplicable):
		return "This coupon does not apply to the items in your cart"
	case errors.Is(err, coupon.ErrMinimumPurchase):
		return "Your cart does not meet the minimum purchase for this coupon"
	}
	return "Coupon cannot be applied"
}

// --- DELETE /cart/coupon ---
func RemoveCoupon(c *gin.Context) {
	userID, ok := sessionUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Please log in to manage coupons"})
		return
	}
	cart, err := loadUserCart(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to load cart"})
		return
	}
	cart.AppliedCoupon = models.AppliedCoupon{}
	cart.Recalculate(pricing.Active)
	if err := saveUserCart(cart); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to save cart"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Coupon removed", "data": cart})
}

type MergeCartRequest struct {
	GuestToken string `json:"guest_token" binding:"required"`
}

// --- POST /cart/merge ---
// Pulls a guest cart into the logged-in user's cart. Quantities for the same
// SKU are merged; lines that no longer fit the available stock are capped
// and reported back.
func MergeGuestCart(c *gin.Context) {
	userID := c.MustGet("userID").(uint)

	if database.Redis == nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Guest carts are not enabled"})
		return
	}

	var req MergeCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "guest_token is required"})
		return
	}

	guest, err := cache.GetGuestCart(c.Request.Context(), database.Redis, req.GuestToken)
	if errors.Is(err, cache.ErrGuestCartNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Guest cart not found or expired"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to load guest cart"})
		return
	}

	cart, err := loadUserCart(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to load cart"})
		return
	}

	var capped []string
	for _, gi := range guest.Items {
		var record models.InventoryRecord
		if err := database.DB.Where("sku = ?", gi.SKU).First(&record).Error; err != nil {
			capped = append(capped, gi.SKU)
			continue
		}

		var existing *models.CartItem
		for i := range cart.Items {
			if cart.Items[i].SKU == gi.SKU {
				existing = &cart.Items[i]
				break
			}
		}

		have := 0
		if existing != nil {
			have = existing.Quantity
		}
		wanted := have + gi.Quantity
		if wanted > record.Quantity {
			wanted = record.Quantity
			capped = append(capped, gi.SKU)
		}
		if wanted <= have {
			continue
		}

		if existing != nil {
			existing.Quantity = wanted
			database.DB.Model(existing).Update("quantity", wanted)
		} else {
			item := models.CartItem{
				CartID:            cart.ID,
				ProductID:         gi.ProductID,
				ProductName:       gi.ProductName,
				SKU:               gi.SKU,
				Quantity:          wanted,
				UnitPrice:         gi.UnitPrice,
				VariantSelections: gi.VariantSelections,
			}
			if err := database.DB.Create(&item).Error; err == nil {
				cart.Items = append(cart.Items, item)
			}
		}
	}

	cart.Recalculate(pricing.Active)
	if err := saveUserCart(cart); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to save cart"})
		return
	}
	_ = cache.DeleteGuestCart(c.Request.Context(), database.Redis, req.GuestToken)

	c.JSON(http.StatusOK, gin.H{"success": true, "data": cart, "capped_skus": capped})
}

// --- shared guest helpers ---

func requireGuestCart(c *gin.Context) (*models.GuestCart, bool) {
	if database.Redis == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Please log in to use the cart"})
		return nil, false
	}
	token := c.GetHeader("X-Guest-Token")
	if token == "" {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Cart is empty"})
		return nil, false
	}
	guest, err := cache.GetGuestCart(c.Request.Context(), database.Redis, token)
	if errors.Is(err, cache.ErrGuestCartNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Cart is empty"})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to load cart"})
		return nil, false
	}
	return guest, true
}

func finishGuestCart(c *gin.Context, guest *models.GuestCart) {
	guest.Recalculate(pricing.Active)
	if err := cache.SaveGuestCart(c.Request.Context(), database.Redis, guest); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to save cart"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": guest, "guest_token": guest.Token})
}

func removeCartLine(cart *models.Cart, itemID uint) {
	for i := range cart.Items {
		if cart.Items[i].ID == itemID {
			cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
			return
		}
	}
}
