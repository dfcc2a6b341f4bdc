package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
	"github.com/vapecity/vapecity-api/config"
	"github.com/vapecity/vapecity-api/models"
	"github.com/vapecity/vapecity-api/services"
	"gorm.io/gorm"
)

const (
	defaultQRSize = 256
	minQRSize     = 128
	maxQRSize     = 1024
)

// UpdateUserRequest represents the request body for updating a user profile
type UpdateUserRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	Phone     string `json:"phone"`
}

// GetUser handles GET /api/users/:telegramId - returns the user, creating it
// with the welcome bonus on first contact
func GetUser(c *gin.Context) {
	telegramID, ok := parseTelegramIDParam(c, "telegramId")
	if !ok {
		return
	}

	user, err := services.GetOrCreateUser(c.Request.Context(), config.GetDB(), telegramID, services.UserProfile{})
	if err != nil {
		respondServiceError(c, err, "Failed to load user")
		return
	}
	respondData(c, http.StatusOK, user)
}

// UpsertUser handles POST /api/users/:telegramId - creates the user or
// refreshes its Telegram profile
func UpsertUser(c *gin.Context) {
	telegramID, ok := parseTelegramIDParam(c, "telegramId")
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "Invalid request data")
		return
	}

	user, err := services.UpsertUserProfile(c.Request.Context(), config.GetDB(), telegramID, services.UserProfile{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Username:  req.Username,
		Phone:     req.Phone,
	})
	if err != nil {
		respondServiceError(c, err, "Failed to update user profile")
		return
	}
	respondData(c, http.StatusOK, user)
}

// GenerateDiscountCode handles GET /api/users/:telegramId/generate-code
func GenerateDiscountCode(c *gin.Context) {
	telegramID, ok := parseTelegramIDParam(c, "telegramId")
	if !ok {
		return
	}

	user, err := services.RegenerateDiscountCode(c.Request.Context(), config.GetDB(), telegramID)
	if err != nil {
		respondServiceError(c, err, "Failed to generate discount code")
		return
	}
	respondData(c, http.StatusOK, gin.H{"discount_code": user.DiscountCode})
}

// GetDiscountQR handles GET /api/users/:telegramId/discount-qr - the
// discount code as a PNG QR code for the checkout scanner. Query: size.
func GetDiscountQR(c *gin.Context) {
	telegramID, ok := parseTelegramIDParam(c, "telegramId")
	if !ok {
		return
	}

	size := defaultQRSize
	if raw := c.Query("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondValidation(c, "size must be a number")
			return
		}
		size = min(max(n, minQRSize), maxQRSize)
	}

	var user models.User
	err := config.GetDB().WithContext(c.Request.Context()).Where("telegram_id = ?", telegramID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(c, http.StatusNotFound, "USER_NOT_FOUND", "User not found")
		return
	}
	if err != nil {
		respondServiceError(c, err, "Failed to load user")
		return
	}
	if user.DiscountCode == "" {
		respondError(c, http.StatusNotFound, "NO_DISCOUNT_CODE", "User has no discount code")
		return
	}

	png, err := qrcode.Encode(user.DiscountCode, qrcode.Medium, size)
	if err != nil {
		respondServiceError(c, err, "Failed to render QR code")
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}
