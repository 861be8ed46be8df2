package handlers

import (
	"net/http"

	"github.com/rohitpatharkar/EcommerceWebsiteProject/internal/database"
	"github.com/rohitpatharkar/EcommerceWebsiteProject/internal/models"

	"github.com/gin-gonic/gin"
)

// --- GET /products/:id/reviews ---
func GetReviews(c *gin.Context) {
	var reviews []models.Review
	if err := database.DB.Where("product_id = ?", c.Param("id")).
		Order("created_at desc").Find(&reviews).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch reviews"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": reviews})
}

type ReviewRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Title   string `json:"title"`
	Comment string `json:"comment"`
}

// --- POST /products/:id/reviews ---
// One review per user per product (unique index enforces it).
func AddReview(c *gin.Context) {
	userID := c.MustGet("userID").(uint)

	var product models.Product
	if err := database.DB.First(&product, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Product not found"})
		return
	}

	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "rating between 1 and 5 is required"})
		return
	}

	review := models.Review{
		ProductID: product.ID,
		UserID:    userID,
		Rating:    req.Rating,
		Title:     req.Title,
		Comment:   req.Comment,
	}
	if err := database.DB.Create(&review).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "You have already reviewed this product"})
		return
	}

	// Refresh the product's cached rating numbers
	type agg struct {
		Avg   float64
		Count int64
	}
	var a agg
	database.DB.Model(&models.Review{}).
		Where("product_id = ?", product.ID).
		Select("COALESCE(AVG(rating), 0) as avg, COUNT(*) as count").
		Scan(&a)
	database.DB.Model(&product).Updates(map[string]interface{}{
		"rating_average": a.Avg,
		"rating_count":   a.Count,
	})

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": review})
}
