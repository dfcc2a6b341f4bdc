package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vapecity/vapecity-api/models"
	"github.com/vapecity/vapecity-api/tests/testutil"
)

// apiClient talks to a running server over HTTP the way the mini app and
// the admin panel do
type apiClient struct {
	t     *testing.T
	base  string
	token string
}

type apiResponse struct {
	Status  int             `json:"-"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
}

func (c *apiClient) send(method, path string, body io.Reader, contentType string) apiResponse {
	c.t.Helper()
	req, err := http.NewRequestWithContext(c.t.Context(), method, c.base+path, body)
	require.NoError(c.t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	var out apiResponse
	raw, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	require.NoError(c.t, json.Unmarshal(raw, &out), "body: %s", raw)
	out.Status = resp.StatusCode
	return out
}

func (c *apiClient) json(method, path string, body interface{}) apiResponse {
	c.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(raw)
	}
	return c.send(method, path, reader, "application/json")
}

func (c *apiClient) decode(resp apiResponse, v interface{}) {
	c.t.Helper()
	require.True(c.t, resp.Success, "%d %s: %s", resp.Status, resp.Code, resp.Error)
	require.NoError(c.t, json.Unmarshal(resp.Data, v))
}

func startServer(t *testing.T) *httptest.Server {
	t.Helper()
	router, _ := setupApp(t)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

// TestCheckoutAcceptance walks a delivery order from catalog setup to
// delivery: admin lists a product, a customer orders it and pays, the
// admin confirms and ships
func TestCheckoutAcceptance(t *testing.T) {
	server := startServer(t)
	admin := &apiClient{t: t, base: server.URL}
	customer := &apiClient{t: t, base: server.URL}

	// Admin logs in and creates the catalog
	var login struct {
		Token string `json:"token"`
	}
	admin.decode(admin.json(http.MethodPost, "/api/admin/login", map[string]string{"login": "admin", "password": "secret"}), &login)
	admin.token = login.Token

	var category models.Category
	admin.decode(admin.json(http.MethodPost, "/api/admin/categories", map[string]interface{}{"name": "Жидкости", "slug": "liquids"}), &category)

	var product models.Product
	admin.decode(admin.json(http.MethodPost, "/api/admin/products", map[string]interface{}{
		"name":        "Husky Double Ice",
		"price":       "450",
		"brand":       "Husky",
		"category_id": category.ID,
	}), &product)
	require.NotZero(t, product.ID)

	// Customer opens the mini app
	var products []models.Product
	customer.decode(customer.json(http.MethodGet, "/api/products?category=liquids", nil), &products)
	require.Len(t, products, 1)
	assert.Equal(t, product.ID, products[0].ID)

	var user models.User
	customer.decode(customer.json(http.MethodGet, "/api/users/555", nil), &user)
	assert.Equal(t, int64(555), user.TelegramID)

	// Checkout: 2 x 450 + 350 CDEK
	var order models.Reservation
	resp := customer.json(http.MethodPost, "/api/reservations", map[string]interface{}{
		"telegram_id":     555,
		"first_name":      "Ivan",
		"delivery_method": "cdek",
		"recipient": map[string]string{
			"fullName": "Ivan Petrov",
			"phone":    "+79990001122",
			"city":     "Moscow",
			"address":  "Tverskaya 1",
		},
		"items": []map[string]interface{}{{"product_id": product.ID, "quantity": 2}},
	})
	require.Equal(t, http.StatusCreated, resp.Status)
	customer.decode(resp, &order)
	assert.True(t, order.TotalPrice.Equal(decimal.NewFromInt(1250)), "total %s", order.TotalPrice)
	assert.Equal(t, models.StatusPending, order.Status)

	// Customer uploads a payment receipt
	body, ct := testutil.MultipartFile(t, "receipt", "receipt.png", "image/png", []byte("\x89PNG\r\n\x1a\n0000000000000000"))
	customer.decode(customer.send(http.MethodPost, fmt.Sprintf("/api/reservations/%d/receipt", order.ID), body, ct), &order)
	assert.Equal(t, models.StatusPaymentCheck, order.Status)
	require.NotEmpty(t, order.PaymentReceiptURL)

	receipt, err := http.Get(server.URL + order.PaymentReceiptURL)
	require.NoError(t, err)
	receipt.Body.Close()
	assert.Equal(t, http.StatusOK, receipt.StatusCode)
	assert.Equal(t, "image/png", receipt.Header.Get("Content-Type"))

	// Customers cannot move their own order forward
	resp = customer.json(http.MethodPatch, fmt.Sprintf("/api/reservations/%d", order.ID), map[string]interface{}{"status": "confirmed", "telegram_id": 555})
	assert.Equal(t, http.StatusForbidden, resp.Status)

	// Admin confirms, ships and delivers
	path := fmt.Sprintf("/api/reservations/%d", order.ID)
	admin.decode(admin.json(http.MethodPatch, path, map[string]interface{}{"status": "confirmed"}), &order)
	assert.Equal(t, models.StatusConfirmed, order.Status)
	admin.decode(admin.json(http.MethodPatch, path, map[string]interface{}{"status": "shipped", "shipping_info": "CDEK 10001"}), &order)
	assert.Equal(t, models.StatusShipped, order.Status)
	admin.decode(admin.json(http.MethodPatch, path, map[string]interface{}{"status": "delivered"}), &order)
	assert.Equal(t, models.StatusDelivered, order.Status)

	// Both sides see the final state
	var mine []models.Reservation
	customer.decode(customer.json(http.MethodGet, "/api/reservations/user/555", nil), &mine)
	require.Len(t, mine, 1)
	assert.Equal(t, models.StatusDelivered, mine[0].Status)
	assert.Equal(t, "CDEK 10001", mine[0].ShippingInfo)

	var all []models.Reservation
	admin.decode(admin.json(http.MethodGet, "/api/admin/orders?status=delivered", nil), &all)
	require.Len(t, all, 1)
	assert.Equal(t, order.OrderNumber, all[0].OrderNumber)
}

// TestHealthEndpointAvailability tests that the health endpoint answers
// consistently over a real connection
func TestHealthEndpointAvailability(t *testing.T) {
	server := startServer(t)
	client := &apiClient{t: t, base: server.URL}

	for i := 0; i < 5; i++ {
		resp := client.json(http.MethodGet, "/api/health", nil)
		assert.Equal(t, http.StatusOK, resp.Status, "Request %d should succeed", i+1)
		assert.True(t, resp.Success, "Request %d should have success=true", i+1)
	}
}
