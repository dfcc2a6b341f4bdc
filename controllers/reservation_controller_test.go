package controllers

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vapecity/vapecity-api/middleware"
	"github.com/vapecity/vapecity-api/models"
	"github.com/vapecity/vapecity-api/services"
	"github.com/vapecity/vapecity-api/tests/testutil"
)

func reservationRouter(env *testEnv) http.Handler {
	router := setupTestRouter()
	ensureAdmin := middleware.EnsureAdmin(env.cfg)

	r := router.Group("/api/reservations")
	r.POST("", CreateReservation)
	r.GET("/user/:tgId", ListUserReservations)
	r.GET("/store/:storeId", ListStoreReservations)
	r.GET("/:id", GetReservation)
	r.PATCH("/:id", middleware.OptionalAdmin(env.cfg), UpdateReservationStatus)
	r.PATCH("/:id/recipient", UpdateReservationRecipient)
	r.POST("/:id/receipt", UploadReceipt)
	r.POST("/:id/shipping", ensureAdmin, UploadShippingImage)
	r.DELETE("/:id", ensureAdmin, DeleteReservation)

	router.GET("/api/admin/orders", ensureAdmin, ListAdminOrders)
	return router
}

func deliveryOrder(telegramID int64, productID uint, quantity int) map[string]interface{} {
	return map[string]interface{}{
		"telegram_id":     telegramID,
		"first_name":      "Ivan",
		"delivery_method": "cdek",
		"recipient": map[string]string{
			"fullName": "Ivan Petrov",
			"phone":    "+79990001122",
			"city":     "Moscow",
			"address":  "Tverskaya 1",
		},
		"items": []map[string]interface{}{
			{"product_id": productID, "quantity": quantity},
		},
	}
}

func createOrder(t *testing.T, router http.Handler, body map[string]interface{}) models.Reservation {
	t.Helper()
	w := performRequest(router, http.MethodPost, "/api/reservations", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var r models.Reservation
	decodeData(t, w, &r)
	return r
}

func TestCreateReservationComputesTotalOnServer(t *testing.T) {
	env := setupTestEnv(t)
	testutil.CreateStore(t, env.db, "Central")
	product := testutil.CreateProduct(t, env.db, "Husky", 450)
	router := reservationRouter(env)

	body := deliveryOrder(100, product.ID, 2)
	body["total_price"] = 1
	r := createOrder(t, router, body)

	assert.Equal(t, models.StatusPending, r.Status)
	assert.Regexp(t, `^#\d{4}$`, r.OrderNumber)
	assert.True(t, decimal.NewFromInt(350).Equal(r.DeliveryPrice))
	assert.True(t, decimal.NewFromInt(2*450+350).Equal(r.TotalPrice), "got %s", r.TotalPrice)
}

func TestCreateReservationValidation(t *testing.T) {
	env := setupTestEnv(t)
	product := testutil.CreateProduct(t, env.db, "Husky", 450)
	router := reservationRouter(env)

	noRecipient := deliveryOrder(100, product.ID, 1)
	delete(noRecipient, "recipient")

	unknownMethod := deliveryOrder(100, product.ID, 1)
	unknownMethod["delivery_method"] = "pigeon"

	tests := []struct {
		name string
		body interface{}
	}{
		{name: "Malformed JSON", body: "{"},
		{name: "Missing telegram id", body: deliveryOrder(0, product.ID, 1)},
		{name: "Zero quantity", body: deliveryOrder(100, product.ID, 0)},
		{name: "Unknown product", body: deliveryOrder(100, 999, 1)},
		{name: "Missing recipient", body: noRecipient},
		{name: "Unknown delivery method", body: unknownMethod},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(router, http.MethodPost, "/api/reservations", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Equal(t, "VALIDATION_ERROR", decodeEnvelope(t, w).Code)
		})
	}

	var count int64
	env.db.Model(&models.Reservation{}).Count(&count)
	assert.Zero(t, count)
}

func TestCreatePickupReservation(t *testing.T) {
	env := setupTestEnvWithFlow(t, models.PickupFlow)
	store := testutil.CreateStore(t, env.db, "Central")
	product := testutil.CreateProduct(t, env.db, "Husky", 450)
	router := reservationRouter(env)

	w := performRequest(router, http.MethodPost, "/api/reservations", map[string]interface{}{
		"telegram_id": 100,
		"items":       []map[string]interface{}{{"product_id": product.ID, "quantity": 1}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, "pickup orders need a store")

	r := createOrder(t, router, map[string]interface{}{
		"telegram_id":      100,
		"store_id":         store.ID,
		"pickup_time_from": "12:00",
		"pickup_time_to":   "14:00",
		"items":            []map[string]interface{}{{"product_id": product.ID, "quantity": 1}},
	})
	assert.Equal(t, services.PickupMethod, r.DeliveryMethod)
	require.NotNil(t, r.StoreID)
	assert.Equal(t, store.ID, *r.StoreID)
	assert.True(t, decimal.NewFromInt(450).Equal(r.TotalPrice))
}

func TestGetReservationByIDOrNumber(t *testing.T) {
	env := setupTestEnv(t)
	product := testutil.CreateProduct(t, env.db, "Husky", 450)
	router := reservationRouter(env)
	created := createOrder(t, router, deliveryOrder(100, product.ID, 1))

	for _, ref := range []string{fmt.Sprint(created.ID), strings.TrimPrefix(created.OrderNumber, "#")} {
		w := performRequest(router, http.MethodGet, "/api/reservations/"+ref, nil)
		require.Equal(t, http.StatusOK, w.Code, ref)

		var details services.ReservationDetails
		decodeData(t, w, &details)
		assert.Equal(t, created.ID, details.ID)
		require.Len(t, details.Items, 1)
		assert.Equal(t, "Husky", details.Items[0].ProductName)
	}

	w := performRequest(router, http.MethodGet, "/api/reservations/999999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Reservation not found", decodeEnvelope(t, w).Error)

	w = performRequest(router, http.MethodGet, "/api/reservations/nope", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// The lookup is public, so it must not expose the customer's loyalty data
func TestGetReservationHidesLoyaltyData(t *testing.T) {
	env := setupTestEnv(t)
	store := testutil.CreateStore(t, env.db, "Central")
	product := testutil.CreateProduct(t, env.db, "Husky", 450)
	router := reservationRouter(env)
	created := createOrder(t, router, deliveryOrder(100, product.ID, 1))
	adminHeader := testutil.AdminAuthHeader(t, env.cfg)

	var user models.User
	require.NoError(t, env.db.Where("telegram_id = ?", 100).First(&user).Error)
	require.NotEmpty(t, user.DiscountCode)

	paths := []string{
		fmt.Sprintf("/api/reservations/%d", created.ID),
		"/api/reservations/user/100",
		fmt.Sprintf("/api/reservations/store/%d", store.ID),
		"/api/admin/orders",
	}
	for _, path := range paths {
		w := performRequest(router, http.MethodGet, path, nil, "Authorization", adminHeader)
		require.Equal(t, http.StatusOK, w.Code, path)
		body := w.Body.String()
		assert.NotContains(t, body, "discount_code", path)
		assert.NotContains(t, body, "bonus_points", path)
		assert.NotContains(t, body, user.DiscountCode, path)
	}

	w := performRequest(router, http.MethodGet, paths[0], nil)
	var details services.ReservationDetails
	decodeData(t, w, &details)
	assert.Equal(t, int64(100), details.TelegramID)
	assert.Equal(t, "Ivan", details.FirstName)

	// Sellers still see who ordered
	w = performRequest(router, http.MethodGet, paths[2], nil)
	var list []models.Reservation
	decodeData(t, w, &list)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Customer)
	assert.Equal(t, "Ivan", list[0].Customer.FirstName)
	assert.Equal(t, int64(100), list[0].Customer.TelegramID)
}

func TestListUserReservationsStatusFilter(t *testing.T) {
	env := setupTestEnv(t)
	product := testutil.CreateProduct(t, env.db, "Husky", 450)
	router := reservationRouter(env)
	first := createOrder(t, router, deliveryOrder(100, product.ID, 1))
	createOrder(t, router, deliveryOrder(100, product.ID, 2))
	createOrder(t, router, deliveryOrder(200, product.ID, 1))
	require.NoError(t, env.db.Model(&models.Reservation{}).Where("id = ?", first.ID).Update("status", models.StatusCancelled).Error)

	tests := []struct {
		name           string
		query          string
		expectedStatus int
		expectedCount  int
	}{
		{name: "All statuses", query: "", expectedStatus: http.StatusOK, expectedCount: 2},
		{name: "Only pending", query: "?status=pending", expectedStatus: http.StatusOK, expectedCount: 1},
		{name: "Multiple statuses", query: "?status=pending,cancelled", expectedStatus: http.StatusOK, expectedCount: 2},
		{name: "Unknown status", query: "?status=lost", expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(router, http.MethodGet, "/api/reservations/user/100"+tt.query, nil)
			require.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus != http.StatusOK {
				assert.Equal(t, "INVALID_STATUS", decodeEnvelope(t, w).Code)
				return
			}
			var list []models.Reservation
			decodeData(t, w, &list)
			assert.Len(t, list, tt.expectedCount)
		})
	}
}

func TestListStoreReservations(t *testing.T) {
	env := setupTestEnv(t)
	store := testutil.CreateStore(t, env.db, "Central")
	product := testutil.CreateProduct(t, env.db, "Husky", 450)
	router := reservationRouter(env)
	createOrder(t, router, deliveryOrder(100, product.ID, 1))

	w := performRequest(router, http.MethodGet, fmt.Sprintf("/api/reservations/store/%d", store.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.Reservation
	decodeData(t, w, &list)
	assert.Len(t, list, 1, "orders without a store go to the first store")
}

func TestUpdateReservationStatusPermissions(t *testing.T) {
	env := setupTestEnv(t)
	product := testutil.CreateProduct(t, env.db, "Husky", 450)
	router := reservationRouter(env)
	adminHeader := testutil.AdminAuthHeader(t, env.cfg)

	tests := []struct {
		name           string
		body           map[string]interface{}
		headers        []string
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "Customer cancels own order",
			body:           map[string]interface{}{"status": "cancelled", "telegram_id": 100},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Customer cancels someone else's order",
			body:           map[string]interface{}{"status": "cancelled", "telegram_id": 200},
			expectedStatus: http.StatusForbidden,
			expectedCode:   "FORBIDDEN",
		},
		{
			name:           "Customer may not confirm",
			body:           map[string]interface{}{"status": "confirmed", "telegram_id": 100},
			expectedStatus: http.StatusForbidden,
			expectedCode:   "FORBIDDEN",
		},
		{
			name:           "Admin confirms",
			body:           map[string]interface{}{"status": "confirmed"},
			headers:        []string{"Authorization", adminHeader},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Admin skips a required step",
			body:           map[string]interface{}{"status": "delivered"},
			headers:        []string{"Authorization", adminHeader},
			expectedStatus: http.StatusConflict,
			expectedCode:   "INVALID_TRANSITION",
		},
		{
			name:           "Unknown status",
			body:           map[string]interface{}{"status": "lost"},
			headers:        []string{"Authorization", adminHeader},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "INVALID_STATUS",
		},
		{
			name:           "Invalid admin token",
			body:           map[string]interface{}{"status": "confirmed"},
			headers:        []string{"Authorization", "Bearer nope"},
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := createOrder(t, router, deliveryOrder(100, product.ID, 1))
			w := performRequest(router, http.MethodPatch, fmt.Sprintf("/api/reservations/%d", order.ID), tt.body, tt.headers...)
			require.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, decodeEnvelope(t, w).Code)
			}
		})
	}
}

func TestShippingRequiresInfo(t *testing.T) {
	env := setupTestEnv(t)
	product := testutil.CreateProduct(t, env.db, "Husky", 450)
	router := reservationRouter(env)
	adminHeader := testutil.AdminAuthHeader(t, env.cfg)

	order := createOrder(t, router, deliveryOrder(100, product.ID, 1))
	require.NoError(t, env.db.Model(&models.Reservation{}).Where("id = ?", order.ID).Update("status", models.StatusConfirmed).Error)
	path := fmt.Sprintf("/api/reservations/%d", order.ID)

	w := performRequest(router, http.MethodPatch, path, map[string]interface{}{"status": "shipped"}, "Authorization", adminHeader)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performRequest(router, http.MethodPatch, path, map[string]interface{}{
		"status":        "shipped",
		"shipping_info": "CDEK 1234567890",
	}, "Authorization", adminHeader)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var r models.Reservation
	decodeData(t, w, &r)
	assert.Equal(t, models.StatusShipped, r.Status)
	assert.Equal(t, "CDEK 1234567890", r.ShippingInfo)
}

func TestUpdateReservationRecipient(t *testing.T) {
	env := setupTestEnv(t)
	product := testutil.CreateProduct(t, env.db, "Husky", 450)
	router := reservationRouter(env)
	order := createOrder(t, router, deliveryOrder(100, product.ID, 1))
	path := fmt.Sprintf("/api/reservations/%d/recipient", order.ID)

	w := performRequest(router, http.MethodPatch, path, map[string]string{
		"recipient_name":    "Petr Ivanov",
		"recipient_phone":   "+79990002233",
		"recipient_city":    "Kazan",
		"recipient_address": "Baumana 5",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var r models.Reservation
	decodeData(t, w, &r)
	assert.Equal(t, "Kazan", r.RecipientCity)
	assert.True(t, order.TotalPrice.Equal(r.TotalPrice), "total never changes")

	w = performRequest(router, http.MethodPatch, path, map[string]string{"recipient_name": "Only name"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	require.NoError(t, env.db.Model(&models.Reservation{}).Where("id = ?", order.ID).Update("status", models.StatusConfirmed).Error)
	w = performRequest(router, http.MethodPatch, path, map[string]string{
		"recipient_name":    "Petr Ivanov",
		"recipient_phone":   "+79990002233",
		"recipient_city":    "Kazan",
		"recipient_address": "Baumana 5",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestUploadReceipt(t *testing.T) {
	env := setupTestEnv(t)
	product := testutil.CreateProduct(t, env.db, "Husky", 450)
	router := reservationRouter(env)
	order := createOrder(t, router, deliveryOrder(100, product.ID, 1))
	path := fmt.Sprintf("/api/reservations/%d/receipt", order.ID)

	body, ct := testutil.MultipartFile(t, "receipt", "receipt.png", "image/png", pngBytes)
	w := performMultipart(router, path, body, ct)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var r models.Reservation
	decodeData(t, w, &r)
	assert.Equal(t, models.StatusPaymentCheck, r.Status)
	assert.True(t, env.storage.Exists(services.KeyFromURL(r.PaymentReceiptURL)))

	body, ct = testutil.MultipartFile(t, "receipt", "receipt.pdf", "application/pdf", []byte("%PDF"))
	w = performMultipart(router, path, body, ct)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_FILE_FORMAT", decodeEnvelope(t, w).Code)

	body, ct = testutil.MultipartFile(t, "other", "receipt.png", "image/png", pngBytes)
	w = performMultipart(router, path, body, ct)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "NO_FILE", decodeEnvelope(t, w).Code)
}

func TestUploadShippingImageRequiresAdmin(t *testing.T) {
	env := setupTestEnv(t)
	product := testutil.CreateProduct(t, env.db, "Husky", 450)
	router := reservationRouter(env)
	order := createOrder(t, router, deliveryOrder(100, product.ID, 1))
	path := fmt.Sprintf("/api/reservations/%d/shipping", order.ID)

	body, ct := testutil.MultipartFile(t, "image", "label.jpg", "image/jpeg", pngBytes)
	w := performMultipart(router, path, body, ct)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	body, ct = testutil.MultipartFile(t, "image", "label.jpg", "image/jpeg", pngBytes)
	w = performMultipart(router, path, body, ct, "Authorization", testutil.AdminAuthHeader(t, env.cfg))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var r models.Reservation
	decodeData(t, w, &r)
	assert.NotEmpty(t, r.ShippingImageURL)
}

func TestDeleteReservation(t *testing.T) {
	env := setupTestEnv(t)
	product := testutil.CreateProduct(t, env.db, "Husky", 450)
	router := reservationRouter(env)
	adminHeader := testutil.AdminAuthHeader(t, env.cfg)
	order := createOrder(t, router, deliveryOrder(100, product.ID, 1))
	path := fmt.Sprintf("/api/reservations/%d", order.ID)

	w := performRequest(router, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = performRequest(router, http.MethodDelete, path, nil, "Authorization", adminHeader)
	require.Equal(t, http.StatusOK, w.Code)

	var items int64
	env.db.Model(&models.ReservationItem{}).Where("reservation_id = ?", order.ID).Count(&items)
	assert.Zero(t, items)

	w = performRequest(router, http.MethodDelete, path, nil, "Authorization", adminHeader)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListAdminOrders(t *testing.T) {
	env := setupTestEnv(t)
	product := testutil.CreateProduct(t, env.db, "Husky", 450)
	router := reservationRouter(env)
	adminHeader := testutil.AdminAuthHeader(t, env.cfg)
	for i := 0; i < 3; i++ {
		createOrder(t, router, deliveryOrder(int64(100+i), product.ID, 1))
	}

	w := performRequest(router, http.MethodGet, "/api/admin/orders?limit=2", nil, "Authorization", adminHeader)
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.Reservation
	decodeData(t, w, &list)
	assert.Len(t, list, 2)

	w = performRequest(router, http.MethodGet, "/api/admin/orders?limit=-1", nil, "Authorization", adminHeader)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performRequest(router, http.MethodGet, "/api/admin/orders", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
