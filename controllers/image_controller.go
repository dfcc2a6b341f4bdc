package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/vapecity/vapecity-api/services"
)

// GenerateImageRequest is a free-form prompt
type GenerateImageRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

// CategoryIconRequest asks for a category icon
type CategoryIconRequest struct {
	CategoryName string `json:"categoryName" binding:"required"`
	Style        string `json:"style"`
}

// ThemeBackgroundRequest asks for a mini-app theme background
type ThemeBackgroundRequest struct {
	ThemeName   string `json:"themeName" binding:"required"`
	Description string `json:"description"`
}

// GenerateImage handles POST /api/admin/images/generate
func GenerateImage(c *gin.Context) {
	var req GenerateImageRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Prompt) == "" {
		respondValidation(c, "prompt is required")
		return
	}
	generate(c, req.Prompt)
}

// GenerateCategoryIcon handles POST /api/admin/images/category-icon
func GenerateCategoryIcon(c *gin.Context) {
	var req CategoryIconRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "categoryName is required")
		return
	}
	generate(c, services.CategoryIconPrompt(req.CategoryName, req.Style))
}

// GenerateThemeBackground handles POST /api/admin/images/theme-background
func GenerateThemeBackground(c *gin.Context) {
	var req ThemeBackgroundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "themeName is required")
		return
	}
	generate(c, services.ThemeBackgroundPrompt(req.ThemeName, req.Description))
}

func generate(c *gin.Context, prompt string) {
	generator := services.GetImageGenerator()
	if generator == nil {
		respondError(c, http.StatusServiceUnavailable, "IMAGE_GENERATION_DISABLED", "Image generation is not configured")
		return
	}

	image, text, err := generator.Generate(c.Request.Context(), prompt)
	if errors.Is(err, services.ErrNoImage) {
		if text == "" {
			text = "No image generated"
		}
		respondError(c, http.StatusUnprocessableEntity, "NO_IMAGE", text)
		return
	}
	if err != nil {
		respondError(c, http.StatusBadGateway, "IMAGE_GENERATION_FAILED", "Image generation failed")
		return
	}
	respondData(c, http.StatusOK, gin.H{"image": image})
}
