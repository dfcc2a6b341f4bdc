package controllers

import (
	"bytes"
	"image/png"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vapecity/vapecity-api/models"
)

func userRouter() http.Handler {
	router := setupTestRouter()
	router.GET("/api/users/:telegramId", GetUser)
	router.POST("/api/users/:telegramId", UpsertUser)
	router.GET("/api/users/:telegramId/generate-code", GenerateDiscountCode)
	router.GET("/api/users/:telegramId/discount-qr", GetDiscountQR)
	return router
}

func TestGetUserCreatesOnFirstVisit(t *testing.T) {
	env := setupTestEnv(t)

	w := performRequest(userRouter(), http.MethodGet, "/api/users/424242", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var user models.User
	decodeData(t, w, &user)
	assert.Equal(t, int64(424242), user.TelegramID)
	assert.Equal(t, models.WelcomeBonusPoints, user.BonusPoints)
	assert.Len(t, user.DiscountCode, 6)

	// A second visit returns the same row
	w = performRequest(userRouter(), http.MethodGet, "/api/users/424242", nil)
	var again models.User
	decodeData(t, w, &again)
	assert.Equal(t, user.ID, again.ID)
	assert.Equal(t, user.DiscountCode, again.DiscountCode)

	var count int64
	env.db.Model(&models.User{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestGetUserInvalidTelegramID(t *testing.T) {
	setupTestEnv(t)

	tests := []struct {
		name string
		path string
	}{
		{name: "Not a number", path: "/api/users/abc"},
		{name: "Zero", path: "/api/users/0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(userRouter(), http.MethodGet, tt.path, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.False(t, decodeEnvelope(t, w).Success)
		})
	}
}

func TestUpsertUser(t *testing.T) {
	setupTestEnv(t)

	w := performRequest(userRouter(), http.MethodPost, "/api/users/1001", map[string]string{
		"first_name": "Ivan",
		"username":   "ivan",
		"phone":      "+79990001122",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var user models.User
	decodeData(t, w, &user)
	assert.Equal(t, "Ivan", user.FirstName)
	assert.Equal(t, "ivan", user.Username)

	w = performRequest(userRouter(), http.MethodPost, "/api/users/1001", map[string]string{
		"first_name": "Ivan",
		"last_name":  "Petrov",
	})
	require.Equal(t, http.StatusOK, w.Code)
	decodeData(t, w, &user)
	assert.Equal(t, "Petrov", user.LastName)
	assert.Equal(t, "+79990001122", user.Phone, "empty fields keep stored values")
}

func TestUpsertUserInvalidJSON(t *testing.T) {
	setupTestEnv(t)

	w := performRequest(userRouter(), http.MethodPost, "/api/users/1001", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeEnvelope(t, w).Code)
}

func TestGenerateDiscountCode(t *testing.T) {
	setupTestEnv(t)

	w := performRequest(userRouter(), http.MethodGet, "/api/users/77/generate-code", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		DiscountCode string `json:"discount_code"`
	}
	decodeData(t, w, &body)
	assert.Regexp(t, `^\d{6}$`, body.DiscountCode)
}

func TestGetDiscountQR(t *testing.T) {
	env := setupTestEnv(t)
	require.NoError(t, env.db.Create(&models.User{TelegramID: 5, DiscountCode: "123456"}).Error)
	require.NoError(t, env.db.Create(&models.User{TelegramID: 6}).Error)

	tests := []struct {
		name           string
		path           string
		expectedStatus int
		expectedCode   string
		expectedSize   int
	}{
		{name: "Default size", path: "/api/users/5/discount-qr", expectedStatus: http.StatusOK, expectedSize: 256},
		{name: "Size is clamped", path: "/api/users/5/discount-qr?size=5000", expectedStatus: http.StatusOK, expectedSize: 1024},
		{name: "Bad size", path: "/api/users/5/discount-qr?size=big", expectedStatus: http.StatusBadRequest, expectedCode: "VALIDATION_ERROR"},
		{name: "Unknown user", path: "/api/users/999/discount-qr", expectedStatus: http.StatusNotFound, expectedCode: "USER_NOT_FOUND"},
		{name: "User without code", path: "/api/users/6/discount-qr", expectedStatus: http.StatusNotFound, expectedCode: "NO_DISCOUNT_CODE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(userRouter(), http.MethodGet, tt.path, nil)
			require.Equal(t, tt.expectedStatus, w.Code)

			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, decodeEnvelope(t, w).Code)
				return
			}
			assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
			assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

			img, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
			require.NoError(t, err)
			assert.Equal(t, tt.expectedSize, img.Bounds().Dx())
		})
	}
}
