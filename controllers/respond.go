package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/vapecity/vapecity-api/services"
	"github.com/vapecity/vapecity-api/utils"
)

func respondData(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error":   message,
		"code":    code,
	})
}

// respondServiceError maps service sentinel errors to HTTP responses.
// Anything unrecognised is logged and reported as a 500 with fallback.
func respondServiceError(c *gin.Context, err error, fallback string) {
	var verr *services.ValidationError
	var uerr *utils.FileUploadError
	switch {
	case errors.As(err, &uerr):
		respondError(c, http.StatusBadRequest, uerr.Code, uerr.Message)
	case errors.As(err, &verr):
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", verr.Message)
	case errors.Is(err, services.ErrInvalidStatus):
		respondError(c, http.StatusBadRequest, "INVALID_STATUS", err.Error())
	case errors.Is(err, services.ErrNotSupported):
		respondError(c, http.StatusBadRequest, "NOT_SUPPORTED", err.Error())
	case errors.Is(err, services.ErrNotFound):
		respondError(c, http.StatusNotFound, "NOT_FOUND", notFoundMessage(err))
	case errors.Is(err, services.ErrForbidden):
		respondError(c, http.StatusForbidden, "FORBIDDEN", err.Error())
	case errors.Is(err, services.ErrInvalidTransition):
		respondError(c, http.StatusConflict, "INVALID_TRANSITION", err.Error())
	default:
		slog.Error(fallback, "path", c.FullPath(), "error", err)
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", fallback)
	}
}

// notFoundMessage turns "reservation: not found" into "Reservation not found"
func notFoundMessage(err error) string {
	what, _, ok := strings.Cut(err.Error(), ": ")
	if !ok || what == "" || strings.Contains(what, " ") {
		return "Not found"
	}
	return strings.ToUpper(what[:1]) + what[1:] + " not found"
}

func respondValidation(c *gin.Context, message string) {
	respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", message)
}

// parseIDParam reads a positive numeric path parameter, answering 400 when
// it is malformed
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		respondError(c, http.StatusBadRequest, "INVALID_ID", "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

func parseTelegramIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		respondError(c, http.StatusBadRequest, "INVALID_ID", "Invalid Telegram ID")
		return 0, false
	}
	return id, true
}

// isUniqueViolation works with both PostgreSQL and SQLite error texts
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique")
}
