package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/vapecity/vapecity-api/config"
	"github.com/vapecity/vapecity-api/models"
	"github.com/vapecity/vapecity-api/services"
	"gorm.io/gorm"
)

// ListCategories handles GET /api/categories
func ListCategories(c *gin.Context) {
	categories := []models.Category{}
	if err := config.GetDB().WithContext(c.Request.Context()).Order("sort_order, id").Find(&categories).Error; err != nil {
		respondServiceError(c, err, "Failed to list categories")
		return
	}
	respondData(c, http.StatusOK, categories)
}

// GetCategory handles GET /api/categories/:slug
func GetCategory(c *gin.Context) {
	var category models.Category
	err := config.GetDB().WithContext(c.Request.Context()).Where("slug = ?", c.Param("slug")).First(&category).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(c, http.StatusNotFound, "NOT_FOUND", "Category not found")
		return
	}
	if err != nil {
		respondServiceError(c, err, "Failed to load category")
		return
	}
	respondData(c, http.StatusOK, category)
}

// ListStores handles GET /api/stores - active stores only
func ListStores(c *gin.Context) {
	stores := []models.Store{}
	if err := config.GetDB().WithContext(c.Request.Context()).Where("is_active = ?", true).Order("id").Find(&stores).Error; err != nil {
		respondServiceError(c, err, "Failed to list stores")
		return
	}
	respondData(c, http.StatusOK, stores)
}

// GetStore handles GET /api/stores/:id
func GetStore(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var store models.Store
	err := config.GetDB().WithContext(c.Request.Context()).First(&store, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(c, http.StatusNotFound, "NOT_FOUND", "Store not found")
		return
	}
	if err != nil {
		respondServiceError(c, err, "Failed to load store")
		return
	}
	respondData(c, http.StatusOK, store)
}

// GetStoreInventory handles GET /api/stores/:id/inventory - products in
// stock at the store with their quantity
func GetStoreInventory(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	db := config.GetDB()
	var count int64
	if err := db.WithContext(c.Request.Context()).Model(&models.Store{}).Where("id = ?", id).Count(&count).Error; err != nil {
		respondServiceError(c, err, "Failed to load store")
		return
	}
	if count == 0 {
		respondError(c, http.StatusNotFound, "NOT_FOUND", "Store not found")
		return
	}

	rows, err := services.ListProducts(c.Request.Context(), db, services.ProductFilter{StoreID: id, Limit: services.MaxProductLimit})
	if err != nil {
		respondServiceError(c, err, "Failed to load inventory")
		return
	}
	respondData(c, http.StatusOK, rows)
}

// ListProducts handles GET /api/products
// Query: category (slug), store_id, search, nicotine, limit
func ListProducts(c *gin.Context) {
	filter := services.ProductFilter{
		CategorySlug: strings.TrimSpace(c.Query("category")),
		Search:       strings.TrimSpace(c.Query("search")),
		Nicotine:     strings.TrimSpace(c.Query("nicotine")),
	}

	if raw := c.Query("store_id"); raw != "" {
		storeID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			respondValidation(c, "store_id must be a number")
			return
		}
		filter.StoreID = uint(storeID)
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			respondValidation(c, "limit must be a number")
			return
		}
		filter.Limit = limit
	}

	rows, err := services.ListProducts(c.Request.Context(), config.GetDB(), filter)
	if err != nil {
		respondServiceError(c, err, "Failed to list products")
		return
	}
	if rows == nil {
		rows = []services.ProductRow{}
	}
	respondData(c, http.StatusOK, rows)
}

// GetProduct handles GET /api/products/:id
func GetProduct(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	details, err := services.GetProductDetails(c.Request.Context(), config.GetDB(), id)
	if err != nil {
		respondServiceError(c, err, "Failed to load product")
		return
	}
	respondData(c, http.StatusOK, details)
}

// CheckAvailabilityRequest is the cart sent by the mini-app
type CheckAvailabilityRequest struct {
	ProductIDs []uint `json:"product_ids" binding:"required,min=1"`
}

// CheckAvailability handles POST /api/products/check-availability
func CheckAvailability(c *gin.Context) {
	var req CheckAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "product_ids must be a non-empty array")
		return
	}

	result, err := services.CheckAvailability(c.Request.Context(), config.GetDB(), req.ProductIDs)
	if err != nil {
		respondServiceError(c, err, "Failed to check availability")
		return
	}
	respondData(c, http.StatusOK, result)
}
