package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vapecity/vapecity-api/services"
	"github.com/vapecity/vapecity-api/utils"
)

func TestRespondServiceError(t *testing.T) {
	tests := []struct {
		name            string
		err             error
		expectedStatus  int
		expectedCode    string
		expectedMessage string
	}{
		{name: "Validation", err: &services.ValidationError{Message: "quantity must be positive"}, expectedStatus: http.StatusBadRequest, expectedCode: "VALIDATION_ERROR", expectedMessage: "quantity must be positive"},
		{name: "Upload", err: &utils.FileUploadError{Code: "FILE_TOO_LARGE", Message: "too big"}, expectedStatus: http.StatusBadRequest, expectedCode: "FILE_TOO_LARGE", expectedMessage: "too big"},
		{name: "Invalid status", err: fmt.Errorf("%w: lost", services.ErrInvalidStatus), expectedStatus: http.StatusBadRequest, expectedCode: "INVALID_STATUS"},
		{name: "Not supported", err: services.ErrNotSupported, expectedStatus: http.StatusBadRequest, expectedCode: "NOT_SUPPORTED"},
		{name: "Not found", err: fmt.Errorf("store: %w", services.ErrNotFound), expectedStatus: http.StatusNotFound, expectedCode: "NOT_FOUND", expectedMessage: "Store not found"},
		{name: "Forbidden", err: services.ErrForbidden, expectedStatus: http.StatusForbidden, expectedCode: "FORBIDDEN"},
		{name: "Transition", err: fmt.Errorf("pending -> delivered: %w", services.ErrInvalidTransition), expectedStatus: http.StatusConflict, expectedCode: "INVALID_TRANSITION"},
		{name: "Unknown", err: errors.New("connection reset"), expectedStatus: http.StatusInternalServerError, expectedCode: "INTERNAL_ERROR", expectedMessage: "Failed to do the thing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupTestRouter()
			router.GET("/", func(c *gin.Context) {
				respondServiceError(c, tt.err, "Failed to do the thing")
			})

			w := performRequest(router, http.MethodGet, "/", nil)
			require.Equal(t, tt.expectedStatus, w.Code)
			env := decodeEnvelope(t, w)
			assert.False(t, env.Success)
			assert.Equal(t, tt.expectedCode, env.Code)
			if tt.expectedMessage != "" {
				assert.Equal(t, tt.expectedMessage, env.Error)
			}
		})
	}
}

func TestNotFoundMessage(t *testing.T) {
	assert.Equal(t, "Reservation not found", notFoundMessage(fmt.Errorf("reservation: %w", services.ErrNotFound)))
	assert.Equal(t, "Not found", notFoundMessage(services.ErrNotFound))
	assert.Equal(t, "Not found", notFoundMessage(errors.New("two words: not found")))
}

func TestParseIDParam(t *testing.T) {
	router := setupTestRouter()
	router.GET("/items/:id", func(c *gin.Context) {
		id, ok := parseIDParam(c, "id")
		if !ok {
			return
		}
		respondData(c, http.StatusOK, id)
	})

	for path, status := range map[string]int{
		"/items/12":  http.StatusOK,
		"/items/0":   http.StatusBadRequest,
		"/items/-3":  http.StatusBadRequest,
		"/items/abc": http.StatusBadRequest,
	} {
		w := performRequest(router, http.MethodGet, path, nil)
		assert.Equal(t, status, w.Code, path)
		if status == http.StatusBadRequest {
			assert.Equal(t, "INVALID_ID", decodeEnvelope(t, w).Code, path)
		}
	}
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, isUniqueViolation(nil))
	assert.True(t, isUniqueViolation(errors.New(`ERROR: duplicate key value violates unique constraint "idx_categories_slug" (SQLSTATE 23505)`)))
	assert.True(t, isUniqueViolation(errors.New("UNIQUE constraint failed: categories.slug")))
	assert.False(t, isUniqueViolation(errors.New("record not found")))
}
