package controllers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"
	"github.com/vapecity/vapecity-api/config"
	"github.com/vapecity/vapecity-api/models"
	"github.com/vapecity/vapecity-api/services"
	"github.com/vapecity/vapecity-api/utils"
	"gorm.io/gorm"
)

// ProductRequest represents the product editor form
type ProductRequest struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Brand       string          `json:"brand"`
	CategoryID  *uint           `json:"category_id"`
	ImageURL    *string         `json:"image_url"`
}

// AttributesRequest represents the attribute editor form
type AttributesRequest struct {
	Attributes []services.AttributeInput `json:"attributes"`
}

// CategoryRequest represents the category editor form
type CategoryRequest struct {
	Name      string `json:"name" binding:"required"`
	Slug      string `json:"slug" binding:"required"`
	Icon      string `json:"icon"`
	SortOrder int    `json:"sort_order"`
}

// StoreRequest represents the store editor form
type StoreRequest struct {
	Name         string `json:"name" binding:"required"`
	Address      string `json:"address" binding:"required"`
	Phone        string `json:"phone"`
	WorkingHours string `json:"working_hours"`
	IsActive     *bool  `json:"is_active"`
}

// SellerRequest maps a Telegram account to a store
type SellerRequest struct {
	TelegramID  int64  `json:"telegram_id" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// InventoryRequest sets a stock count
type InventoryRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

// descriptionPolicy keeps the editor's formatting and drops scripts, event
// handlers and javascript: links. Both front ends render descriptions as HTML.
var descriptionPolicy = bluemonday.UGCPolicy()

func validateProduct(c *gin.Context, req *ProductRequest) bool {
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(descriptionPolicy.Sanitize(req.Description))
	if req.Name == "" {
		respondValidation(c, "name is required")
		return false
	}
	if req.Price.IsNegative() {
		respondValidation(c, "price must not be negative")
		return false
	}
	if req.CategoryID != nil && *req.CategoryID == 0 {
		req.CategoryID = nil
	}
	if req.CategoryID != nil {
		var count int64
		if err := config.GetDB().WithContext(c.Request.Context()).Model(&models.Category{}).Where("id = ?", *req.CategoryID).Count(&count).Error; err != nil {
			respondServiceError(c, err, "Failed to check category")
			return false
		}
		if count == 0 {
			respondValidation(c, fmt.Sprintf("category %d does not exist", *req.CategoryID))
			return false
		}
	}
	return true
}

// AdminListProducts handles GET /api/admin/products - every product with
// its category, no limit
func AdminListProducts(c *gin.Context) {
	rows := []services.ProductRow{}
	err := config.GetDB().WithContext(c.Request.Context()).Table("products AS p").
		Select("p.*, c.name AS category_name, c.slug AS category_slug, c.icon AS category_icon").
		Joins("LEFT JOIN categories c ON c.id = p.category_id").
		Order("p.id").
		Scan(&rows).Error
	if err != nil {
		respondServiceError(c, err, "Failed to list products")
		return
	}
	respondData(c, http.StatusOK, rows)
}

// CreateProduct handles POST /api/admin/products
func CreateProduct(c *gin.Context) {
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "Invalid request data")
		return
	}
	if !validateProduct(c, &req) {
		return
	}

	product := models.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Brand:       strings.TrimSpace(req.Brand),
		CategoryID:  req.CategoryID,
	}
	if req.ImageURL != nil {
		product.ImageURL = strings.TrimSpace(*req.ImageURL)
	}
	if err := config.GetDB().WithContext(c.Request.Context()).Create(&product).Error; err != nil {
		respondServiceError(c, err, "Failed to create product")
		return
	}
	respondData(c, http.StatusCreated, product)
}

// UpdateProduct handles PUT /api/admin/products/:id
func UpdateProduct(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "Invalid request data")
		return
	}
	if !validateProduct(c, &req) {
		return
	}

	db := config.GetDB().WithContext(c.Request.Context())
	var product models.Product
	if err := db.First(&product, id).Error; err != nil {
		respondLookupError(c, err, "Product")
		return
	}

	updates := map[string]interface{}{
		"name":        req.Name,
		"description": req.Description,
		"price":       req.Price,
		"brand":       strings.TrimSpace(req.Brand),
		"category_id": req.CategoryID,
	}
	if req.ImageURL != nil {
		updates["image_url"] = strings.TrimSpace(*req.ImageURL)
	}
	if err := db.Model(&product).Updates(updates).Error; err != nil {
		respondServiceError(c, err, "Failed to update product")
		return
	}
	if err := db.First(&product, id).Error; err != nil {
		respondServiceError(c, err, "Failed to reload product")
		return
	}
	respondData(c, http.StatusOK, product)
}

// DeleteProduct handles DELETE /api/admin/products/:id
func DeleteProduct(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := services.DeleteProduct(c.Request.Context(), config.GetDB(), services.GetFileStorage(), id); err != nil {
		respondServiceError(c, err, "Failed to delete product")
		return
	}
	respondData(c, http.StatusOK, gin.H{"id": id})
}

// UploadProductImage handles POST /api/admin/products/:id/image (multipart "image")
func UploadProductImage(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		respondError(c, http.StatusBadRequest, "NO_FILE", "No file uploaded")
		return
	}
	if err := utils.ValidateImageFile(fileHeader, utils.ProductImageRule); err != nil {
		respondServiceError(c, err, "Invalid image")
		return
	}

	ctx := c.Request.Context()
	db := config.GetDB().WithContext(ctx)
	var product models.Product
	if err := db.First(&product, id).Error; err != nil {
		respondLookupError(c, err, "Product")
		return
	}

	previous := services.KeyFromURL(product.ImageURL)
	storage := services.GetFileStorage()
	key := fmt.Sprintf("products/product-%d-%s%s", id, uuid.NewString(), utils.Extension(fileHeader.Filename))
	url, err := storage.Save(ctx, key, fileHeader)
	if err != nil {
		respondServiceError(c, err, "Failed to store image")
		return
	}
	if err := db.Model(&product).Update("image_url", url).Error; err != nil {
		removeUpload(c, storage, services.KeyFromURL(url))
		respondServiceError(c, err, "Failed to save image")
		return
	}

	if previous != "" && previous != key {
		removeUpload(c, storage, previous)
	}
	respondData(c, http.StatusOK, gin.H{"image_url": url})
}

// DeleteProductImage handles DELETE /api/admin/products/:id/image
func DeleteProductImage(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	db := config.GetDB().WithContext(c.Request.Context())
	var product models.Product
	if err := db.First(&product, id).Error; err != nil {
		respondLookupError(c, err, "Product")
		return
	}
	previous := services.KeyFromURL(product.ImageURL)
	if err := db.Model(&product).Update("image_url", "").Error; err != nil {
		respondServiceError(c, err, "Failed to remove image")
		return
	}
	removeUpload(c, services.GetFileStorage(), previous)
	respondData(c, http.StatusOK, gin.H{"id": id})
}

// removeUpload deletes a stored file; failures are logged only
func removeUpload(c *gin.Context, storage services.FileStorage, key string) {
	if key == "" || storage == nil {
		return
	}
	if err := storage.Delete(c.Request.Context(), key); err != nil {
		slog.Warn("failed to delete upload", "key", key, "error", err)
	}
}

// GetProductAttributes handles GET /api/admin/products/:id/attributes
func GetProductAttributes(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	attrs := []models.ProductAttribute{}
	if err := config.GetDB().WithContext(c.Request.Context()).Where("product_id = ?", id).Order("id").Find(&attrs).Error; err != nil {
		respondServiceError(c, err, "Failed to load attributes")
		return
	}
	respondData(c, http.StatusOK, attributePairs(attrs))
}

// attributePairs is the {name, value} shape the attribute editor reads and writes
func attributePairs(attrs []models.ProductAttribute) []services.AttributeInput {
	out := make([]services.AttributeInput, 0, len(attrs))
	for _, a := range attrs {
		out = append(out, services.AttributeInput{Name: a.Name, Value: a.Value})
	}
	return out
}

// ReplaceProductAttributes handles PUT /api/admin/products/:id/attributes
func ReplaceProductAttributes(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req AttributesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "Invalid request data")
		return
	}

	attrs, err := services.ReplaceAttributes(c.Request.Context(), config.GetDB(), id, req.Attributes)
	if err != nil {
		respondServiceError(c, err, "Failed to save attributes")
		return
	}
	respondData(c, http.StatusOK, attributePairs(attrs))
}

// AdminListCategories handles GET /api/admin/categories
func AdminListCategories(c *gin.Context) {
	ListCategories(c)
}

func validateCategory(c *gin.Context, req *CategoryRequest) bool {
	req.Name = strings.TrimSpace(req.Name)
	req.Slug = strings.TrimSpace(req.Slug)
	if req.Name == "" {
		respondValidation(c, "name is required")
		return false
	}
	if !models.ValidSlug(req.Slug) {
		respondValidation(c, "slug must contain only lowercase letters, digits and dashes")
		return false
	}
	return true
}

// CreateCategory handles POST /api/admin/categories
func CreateCategory(c *gin.Context) {
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "name and slug are required")
		return
	}
	if !validateCategory(c, &req) {
		return
	}

	category := models.Category{Name: req.Name, Slug: req.Slug, Icon: req.Icon, SortOrder: req.SortOrder}
	if err := config.GetDB().WithContext(c.Request.Context()).Create(&category).Error; err != nil {
		if isUniqueViolation(err) {
			respondError(c, http.StatusConflict, "DUPLICATE_SLUG", "A category with this slug already exists")
			return
		}
		respondServiceError(c, err, "Failed to create category")
		return
	}
	respondData(c, http.StatusCreated, category)
}

// UpdateCategory handles PUT /api/admin/categories/:id
func UpdateCategory(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "name and slug are required")
		return
	}
	if !validateCategory(c, &req) {
		return
	}

	db := config.GetDB().WithContext(c.Request.Context())
	var category models.Category
	if err := db.First(&category, id).Error; err != nil {
		respondLookupError(c, err, "Category")
		return
	}

	category.Name, category.Slug, category.Icon, category.SortOrder = req.Name, req.Slug, req.Icon, req.SortOrder
	if err := db.Save(&category).Error; err != nil {
		if isUniqueViolation(err) {
			respondError(c, http.StatusConflict, "DUPLICATE_SLUG", "A category with this slug already exists")
			return
		}
		respondServiceError(c, err, "Failed to update category")
		return
	}
	respondData(c, http.StatusOK, category)
}

// DeleteCategory handles DELETE /api/admin/categories/:id
func DeleteCategory(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := services.DeleteCategory(c.Request.Context(), config.GetDB(), id); err != nil {
		respondServiceError(c, err, "Failed to delete category")
		return
	}
	respondData(c, http.StatusOK, gin.H{"id": id})
}

// AdminListStores handles GET /api/admin/stores - includes inactive stores
func AdminListStores(c *gin.Context) {
	stores := []models.Store{}
	if err := config.GetDB().WithContext(c.Request.Context()).Order("id").Find(&stores).Error; err != nil {
		respondServiceError(c, err, "Failed to list stores")
		return
	}
	respondData(c, http.StatusOK, stores)
}

// CreateStore handles POST /api/admin/stores
func CreateStore(c *gin.Context) {
	var req StoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "name and address are required")
		return
	}

	store := models.Store{
		Name:         strings.TrimSpace(req.Name),
		Address:      strings.TrimSpace(req.Address),
		Phone:        strings.TrimSpace(req.Phone),
		WorkingHours: strings.TrimSpace(req.WorkingHours),
		IsActive:     req.IsActive == nil || *req.IsActive,
	}
	if err := config.GetDB().WithContext(c.Request.Context()).Create(&store).Error; err != nil {
		respondServiceError(c, err, "Failed to create store")
		return
	}
	respondData(c, http.StatusCreated, store)
}

// UpdateStore handles PUT /api/admin/stores/:id
func UpdateStore(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req StoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "name and address are required")
		return
	}

	db := config.GetDB().WithContext(c.Request.Context())
	var store models.Store
	if err := db.First(&store, id).Error; err != nil {
		respondLookupError(c, err, "Store")
		return
	}

	store.Name = strings.TrimSpace(req.Name)
	store.Address = strings.TrimSpace(req.Address)
	store.Phone = strings.TrimSpace(req.Phone)
	store.WorkingHours = strings.TrimSpace(req.WorkingHours)
	if req.IsActive != nil {
		store.IsActive = *req.IsActive
	}
	if err := db.Save(&store).Error; err != nil {
		respondServiceError(c, err, "Failed to update store")
		return
	}
	respondData(c, http.StatusOK, store)
}

// DeleteStore handles DELETE /api/admin/stores/:id
func DeleteStore(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := services.DeleteStore(c.Request.Context(), config.GetDB(), id); err != nil {
		respondServiceError(c, err, "Failed to delete store")
		return
	}
	respondData(c, http.StatusOK, gin.H{"id": id})
}

// ListSellers handles GET /api/admin/stores/:id/sellers
func ListSellers(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	sellers := []models.StoreSeller{}
	if err := config.GetDB().WithContext(c.Request.Context()).Where("store_id = ?", id).Order("created_at DESC, id DESC").Find(&sellers).Error; err != nil {
		respondServiceError(c, err, "Failed to list sellers")
		return
	}
	respondData(c, http.StatusOK, sellers)
}

// AddSeller handles POST /api/admin/stores/:id/sellers
func AddSeller(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req SellerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "telegram_id and name are required")
		return
	}

	db := config.GetDB().WithContext(c.Request.Context())
	var store models.Store
	if err := db.First(&store, id).Error; err != nil {
		respondLookupError(c, err, "Store")
		return
	}

	seller := models.StoreSeller{
		StoreID:     id,
		TelegramID:  req.TelegramID,
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
	}
	if err := db.Create(&seller).Error; err != nil {
		if isUniqueViolation(err) {
			respondError(c, http.StatusBadRequest, "DUPLICATE_SELLER", "This seller is already added to the store")
			return
		}
		respondServiceError(c, err, "Failed to add seller")
		return
	}
	respondData(c, http.StatusCreated, seller)
}

// DeleteSeller handles DELETE /api/admin/stores/:id/sellers/:sellerId
func DeleteSeller(c *gin.Context) {
	storeID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	sellerID, ok := parseIDParam(c, "sellerId")
	if !ok {
		return
	}

	res := config.GetDB().WithContext(c.Request.Context()).
		Where("id = ? AND store_id = ?", sellerID, storeID).
		Delete(&models.StoreSeller{})
	if res.Error != nil {
		respondServiceError(c, res.Error, "Failed to delete seller")
		return
	}
	if res.RowsAffected == 0 {
		respondError(c, http.StatusNotFound, "NOT_FOUND", "Seller not found")
		return
	}
	respondData(c, http.StatusOK, gin.H{"id": sellerID})
}

// AdminInventory handles GET /api/admin/inventory/:storeId
func AdminInventory(c *gin.Context) {
	storeID, ok := parseIDParam(c, "storeId")
	if !ok {
		return
	}

	rows, err := services.ListStoreInventory(c.Request.Context(), config.GetDB(), storeID)
	if err != nil {
		respondServiceError(c, err, "Failed to load inventory")
		return
	}
	respondData(c, http.StatusOK, rows)
}

// SetInventory handles PUT /api/admin/inventory/:storeId/:productId
func SetInventory(c *gin.Context) {
	storeID, ok := parseIDParam(c, "storeId")
	if !ok {
		return
	}
	productID, ok := parseIDParam(c, "productId")
	if !ok {
		return
	}

	var req InventoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "quantity is required")
		return
	}

	row, err := services.SetInventory(c.Request.Context(), config.GetDB(), storeID, productID, *req.Quantity)
	if err != nil {
		respondServiceError(c, err, "Failed to update inventory")
		return
	}
	respondData(c, http.StatusOK, row)
}

func respondLookupError(c *gin.Context, err error, what string) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(c, http.StatusNotFound, "NOT_FOUND", what+" not found")
		return
	}
	respondServiceError(c, err, "Failed to load "+strings.ToLower(what))
}
