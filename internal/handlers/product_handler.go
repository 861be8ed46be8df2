package handlers

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/rohitpatharkar/EcommerceWebsiteProject/internal/database"
	"github.com/rohitpatharkar/EcommerceWebsiteProject/internal/inventory"
	"github.com/rohitpatharkar/EcommerceWebsiteProject/internal/models"
	"github.com/rohitpatharkar/EcommerceWebsiteProject/internal/utils"

	"github.com/gin-gonic/gin"
)

// --- GET: List active products (public storefront) ---
// Optional filters: ?category=<slug>&q=<search>
func GetProducts(c *gin.Context) {
	var products []models.Product

	query := database.DB.Preload("Variants").Preload("Category").Where("products.is_active = ?", true)

	if slug := c.Query("category"); slug != "" {
		query = query.Joins("JOIN categories ON categories.id = products.category_id").
			Where("categories.slug = ?", slug)
	}
	if q := c.Query("q"); q != "" {
		query = query.Where("products.name LIKE ?", "%"+q+"%")
	}

	if err := query.Find(&products).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch products"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": products})
}

// --- GET: Single product with variants ---
func GetProduct(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid product ID"})
		return
	}

	var product models.Product
	if err := database.DB.Preload("Variants").Preload("Category").First(&product, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Product not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": product})
}

type ProductRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description string  `json:"description"`
	Price       float64 `json:"price" binding:"required,gt=0"`
	CategoryID  uint    `json:"category_id" binding:"required"`
	ImageURL    string  `json:"image_url"`
	IsActive    *bool   `json:"is_active"`
	Variants    []struct {
		SKU               string            `json:"sku" binding:"required"`
		Quantity          int               `json:"quantity" binding:"gte=0"`
		LowStockThreshold int               `json:"low_stock_threshold"`
		VariantSelections map[string]string `json:"variant_selections"`
	} `json:"variants" binding:"required,min=1"`
}

// --- POST: Add a new product with its variants (admin) ---
func AddProduct(c *gin.Context) {
	var req ProductRequest

	// 1. Parse JSON Input
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid input: name, price, category and at least one variant are required"})
		return
	}

	// 2. Category must exist
	var category models.Category
	if err := database.DB.First(&category, req.CategoryID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Category not found"})
		return
	}

	product := models.Product{
		Name:        req.Name,
		Slug:        utils.Slugify(req.Name),
		Description: req.Description,
		Price:       req.Price,
		CategoryID:  req.CategoryID,
		ImageURL:    req.ImageURL,
		IsActive:    true,
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}
	for _, v := range req.Variants {
		threshold := v.LowStockThreshold
		if threshold == 0 {
			threshold = 5
		}
		product.Variants = append(product.Variants, models.InventoryRecord{
			SKU:               v.SKU,
			Quantity:          v.Quantity,
			LowStockThreshold: threshold,
			VariantSelections: v.VariantSelections,
		})
		product.TotalQuantity += v.Quantity
	}

	// 3. Save to DB (GORM inserts the variants too)
	if err := database.DB.Create(&product).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Failed to create product (duplicate slug or SKU?)"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": product})
}

// --- PUT: Update product fields (admin, partial update) ---
func UpdateProduct(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid product ID"})
		return
	}

	var product models.Product
	if err := database.DB.First(&product, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Product not found"})
		return
	}

	// We use a map so we only update what was sent (partial update)
	var updateData map[string]interface{}
	if err := c.ShouldBindJSON(&updateData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid input"})
		return
	}

	// Cached columns are owned by the ledger and review handlers
	delete(updateData, "total_quantity")
	delete(updateData, "sales_count")
	delete(updateData, "rating_average")
	delete(updateData, "rating_count")
	if name, ok := updateData["name"].(string); ok {
		updateData["slug"] = utils.Slugify(name)
	}

	if err := database.DB.Model(&product).Updates(updateData).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to update product"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Product updated successfully", "data": product})
}

type StockUpdateRequest struct {
	Quantity          *int `json:"quantity" binding:"required"`
	LowStockThreshold *int `json:"low_stock_threshold"`
}

// --- PUT: Set absolute stock for one SKU (admin restock) ---
func UpdateVariantStock(c *gin.Context) {
	sku := c.Param("sku")

	var req StockUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil || *req.Quantity < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Quantity must be zero or more"})
		return
	}

	var record models.InventoryRecord
	if err := database.DB.Where("sku = ?", sku).First(&record).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "SKU not found"})
		return
	}

	record.Quantity = *req.Quantity
	if req.LowStockThreshold != nil {
		record.LowStockThreshold = *req.LowStockThreshold
	}
	if err := database.DB.Save(&record).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to update stock"})
		return
	}
	if err := inventory.SyncProductTotal(database.DB, record.ProductID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to refresh product total"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": record})
}

// --- DELETE: Retire a product (admin) ---
// Products referenced by past orders are deactivated instead of deleted, so
// order history keeps resolving.
func DeleteProduct(c *gin.Context) {
	id := c.Param("id")

	var count int64
	database.DB.Model(&models.OrderItem{}).Where("product_id = ?", id).Count(&count)
	if count > 0 {
		if err := database.DB.Model(&models.Product{}).Where("id = ?", id).Update("is_active", false).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to deactivate product"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Product has past orders, deactivated instead of deleted"})
		return
	}

	if err := database.DB.Select("Variants").Delete(&models.Product{}, id).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Could not delete product"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Product deleted successfully"})
}

// --- UPLOAD: Handle Image Files (admin) ---
func UploadImage(c *gin.Context) {
	// 1. Get the file from the request
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "No file uploaded"})
		return
	}

	// 2. Generate a safe unique filename, e.g. "167890123_sneaker.jpg"
	filename := fmt.Sprintf("%d_%s", time.Now().Unix(), file.Filename)
	filepath := "./uploads/" + filename

	// 3. Save the file to the 'uploads' folder
	if err := c.SaveUploadedFile(file, filepath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to save file"})
		return
	}

	baseURL := os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"url": baseURL + "/uploads/" + filename},
	})
}

// --- CATEGORIES ---

type CategoryRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active"`
}

func GetCategories(c *gin.Context) {
	var categories []models.Category
	if err := database.DB.Where("is_active = ?", true).Find(&categories).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch categories"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": categories})
}

func AddCategory(c *gin.Context) {
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Category name is required"})
		return
	}

	category := models.Category{
		Name:        req.Name,
		Slug:        utils.Slugify(req.Name),
		Description: req.Description,
		IsActive:    true,
	}
	if req.IsActive != nil {
		category.IsActive = *req.IsActive
	}

	if err := database.DB.Create(&category).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Category already exists"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": category})
}

func UpdateCategory(c *gin.Context) {
	id := c.Param("id")

	var category models.Category
	if err := database.DB.First(&category, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Category not found"})
		return
	}

	var updateData map[string]interface{}
	if err := c.ShouldBindJSON(&updateData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid input"})
		return
	}
	if name, ok := updateData["name"].(string); ok {
		updateData["slug"] = utils.Slugify(name)
	}

	if err := database.DB.Model(&category).Updates(updateData).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to update category"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": category})
}

func DeleteCategory(c *gin.Context) {
	id := c.Param("id")

	// Categories with products are deactivated, not deleted
	var count int64
	database.DB.Model(&models.Product{}).Where("category_id = ?", id).Count(&count)
	if count > 0 {
		database.DB.Model(&models.Category{}).Where("id = ?", id).Update("is_active", false)
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Category has products, deactivated instead of deleted"})
		return
	}

	if err := database.DB.Delete(&models.Category{}, id).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Could not delete category"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Category deleted successfully"})
}
