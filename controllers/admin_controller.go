package controllers

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vapecity/vapecity-api/config"
	"github.com/vapecity/vapecity-api/middleware"
	"github.com/vapecity/vapecity-api/models"
	"github.com/vapecity/vapecity-api/services"
)

// LoginRequest represents the admin panel login form
type LoginRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SettingsRequest represents the settings form
type SettingsRequest struct {
	BotToken *string `json:"bot_token"`
}

// AdminLogin handles POST /api/admin/login
func AdminLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "login and password are required")
		return
	}

	cfg := config.GetConfig()
	loginOK := subtle.ConstantTimeCompare([]byte(req.Login), []byte(cfg.AdminLogin)) == 1
	passwordOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(cfg.AdminPassword)) == 1
	if !loginOK || !passwordOK {
		slog.Warn("admin login failed", "remote", c.ClientIP())
		respondError(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid login or password")
		return
	}

	token, expiresAt, err := middleware.IssueAdminToken(cfg, time.Now())
	if err != nil {
		respondServiceError(c, err, "Failed to issue token")
		return
	}
	respondData(c, http.StatusOK, gin.H{
		"token":      token,
		"expires_at": expiresAt,
	})
}

// AdminCheck handles GET /api/admin/check - reached only with a valid token
func AdminCheck(c *gin.Context) {
	respondData(c, http.StatusOK, gin.H{"valid": true})
}

func botRunning() bool {
	runner := services.GetBotRunner()
	return runner != nil && runner.IsRunning()
}

// GetSettings handles GET /api/admin/settings. The token is returned masked.
func GetSettings(c *gin.Context) {
	token, err := services.GetSetting(c.Request.Context(), config.GetDB(), models.SettingBotToken)
	if err != nil {
		respondServiceError(c, err, "Failed to load settings")
		return
	}
	respondData(c, http.StatusOK, gin.H{
		"bot_token":      services.MaskToken(token),
		"bot_configured": token != "",
		"bot_running":    botRunning(),
	})
}

// UpdateSettings handles PUT /api/admin/settings. Saving a token restarts
// the seller bot with it; saving an empty token stops the bot.
func UpdateSettings(c *gin.Context) {
	var req SettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.BotToken == nil {
		respondValidation(c, "bot_token is required")
		return
	}
	token := strings.TrimSpace(*req.BotToken)

	if err := services.PutSetting(c.Request.Context(), config.GetDB(), models.SettingBotToken, token); err != nil {
		respondServiceError(c, err, "Failed to save settings")
		return
	}

	runner := services.GetBotRunner()
	var message string
	switch {
	case runner == nil:
		message = "Token saved, bots are disabled on this server"
	case token == "":
		runner.Stop()
		message = "Token cleared, bot stopped"
	default:
		if err := runner.Start(token); err != nil {
			slog.Warn("seller bot restart failed", "token", services.MaskToken(token), "error", err)
			message = "Token saved, but the bot did not start (check the token)"
		} else {
			message = "Token saved, bot restarted"
		}
	}

	respondData(c, http.StatusOK, gin.H{
		"bot_running": botRunning(),
		"message":     message,
	})
}
