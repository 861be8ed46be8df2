package handlers

import (
	"net/http"
	"time"

	"github.com/rohitpatharkar/EcommerceWebsiteProject/internal/coupon"
	"github.com/rohitpatharkar/EcommerceWebsiteProject/internal/database"
	"github.com/rohitpatharkar/EcommerceWebsiteProject/internal/models"

	"github.com/gin-gonic/gin"
)

type CouponRequest struct {
	Code            string  `json:"code" binding:"required"`
	DiscountType    string  `json:"discount_type" binding:"required,oneof=percentage fixed"`
	DiscountValue   float64 `json:"discount_value" binding:"required,gt=0"`
	MinimumPurchase float64 `json:"minimum_purchase" binding:"gte=0"`
	MaximumDiscount float64 `json:"maximum_discount" binding:"gte=0"`

	UsageLimitTotal   int `json:"usage_limit_total" binding:"gte=0"`
	UsageLimitPerUser int `json:"usage_limit_per_user" binding:"gte=0"`

	StartDate string `json:"start_date" binding:"required"` // RFC 3339
	EndDate   string `json:"end_date" binding:"required"`

	Scope       string `json:"scope" binding:"omitempty,oneof=all products categories"`
	ProductIDs  []uint `json:"product_ids"`
	CategoryIDs []uint `json:"category_ids"`
}

func (r *CouponRequest) toModel() (*models.Coupon, string) {
	start, err := time.Parse(time.RFC3339, r.StartDate)
	if err != nil {
		return nil, "start_date must be RFC 3339"
	}
	end, err := time.Parse(time.RFC3339, r.EndDate)
	if err != nil {
		return nil, "end_date must be RFC 3339"
	}
	if !end.After(start) {
		return nil, "end_date must be after start_date"
	}
	if r.DiscountType == "percentage" && r.DiscountValue > 100 {
		return nil, "percentage discount cannot exceed 100"
	}

	scope := r.Scope
	if scope == "" {
		scope = "all"
	}
	if scope == "products" && len(r.ProductIDs) == 0 {
		return nil, "product-scoped coupons need product_ids"
	}
	if scope == "categories" && len(r.CategoryIDs) == 0 {
		return nil, "category-scoped coupons need category_ids"
	}

	return &models.Coupon{
		Code:              coupon.Normalize(r.Code),
		DiscountType:      r.DiscountType,
		DiscountValue:     r.DiscountValue,
		MinimumPurchase:   r.MinimumPurchase,
		MaximumDiscount:   r.MaximumDiscount,
		UsageLimitTotal:   r.UsageLimitTotal,
		UsageLimitPerUser: r.UsageLimitPerUser,
		StartDate:         start,
		EndDate:           end,
		IsActive:          true,
		Scope:             scope,
		ProductIDs:        r.ProductIDs,
		CategoryIDs:       r.CategoryIDs,
	}, ""
}

// --- ADMIN: POST /coupons ---
func AddCoupon(c *gin.Context) {
	var req CouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "code, discount_type, discount_value and validity dates are required"})
		return
	}

	cp, msg := req.toModel()
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": msg})
		return
	}

	if err := database.DB.Create(cp).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "A coupon with this code already exists"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": cp})
}

// --- ADMIN: GET /coupons ---
func GetCoupons(c *gin.Context) {
	var coupons []models.Coupon
	if err := database.DB.Order("created_at desc").Find(&coupons).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch coupons"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": coupons})
}

// --- ADMIN: PUT /coupons/:id ---
// Counters are owned by checkout and never editable here.
func UpdateCoupon(c *gin.Context) {
	var cp models.Coupon
	if err := database.DB.First(&cp, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Coupon not found"})
		return
	}

	var updateData map[string]interface{}
	if err := c.ShouldBindJSON(&updateData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid input"})
		return
	}
	delete(updateData, "usage_count")
	delete(updateData, "usages")
	if code, ok := updateData["code"].(string); ok {
		updateData["code"] = coupon.Normalize(code)
	}

	if err := database.DB.Model(&cp).Updates(updateData).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Failed to update coupon"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": cp})
}

// --- ADMIN: DELETE /coupons/:id ---
// Coupons are never hard-deleted: order history references their codes.
func DeactivateCoupon(c *gin.Context) {
	res := database.DB.Model(&models.Coupon{}).Where("id = ?", c.Param("id")).Update("is_active", false)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to deactivate coupon"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Coupon not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Coupon deactivated"})
}
