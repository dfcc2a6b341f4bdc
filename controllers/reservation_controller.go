package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/vapecity/vapecity-api/middleware"
	"github.com/vapecity/vapecity-api/models"
	"github.com/vapecity/vapecity-api/services"
)

const defaultAdminOrderLimit = 500

// RecipientRequest is the delivery address block of the checkout form
type RecipientRequest struct {
	FullName   string `json:"fullName"`
	Phone      string `json:"phone"`
	City       string `json:"city"`
	Address    string `json:"address"`
	PostalCode string `json:"postalCode"`
	Comment    string `json:"comment"`
}

// ReservationItemRequest is one cart line
type ReservationItemRequest struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

// CreateReservationRequest represents the checkout request body. Prices and
// delivery fees are always computed on the server.
type CreateReservationRequest struct {
	TelegramID       int64                    `json:"telegram_id"`
	FirstName        string                   `json:"first_name"`
	LastName         string                   `json:"last_name"`
	Username         string                   `json:"username"`
	TelegramUsername string                   `json:"telegram_username"`
	DeliveryMethod   string                   `json:"delivery_method"`
	Recipient        *RecipientRequest        `json:"recipient"`
	StoreID          uint                     `json:"store_id"`
	PickupTimeFrom   string                   `json:"pickup_time_from"`
	PickupTimeTo     string                   `json:"pickup_time_to"`
	Items            []ReservationItemRequest `json:"items"`
}

// UpdateStatusRequest represents a status and/or shipping info change
type UpdateStatusRequest struct {
	Status       models.OrderStatus `json:"status"`
	TelegramID   int64              `json:"telegram_id"`
	ShippingInfo *string            `json:"shipping_info"`
}

// UpdateRecipientRequest represents the editable delivery details
type UpdateRecipientRequest struct {
	RecipientName       string `json:"recipient_name"`
	RecipientPhone      string `json:"recipient_phone"`
	RecipientCity       string `json:"recipient_city"`
	RecipientAddress    string `json:"recipient_address"`
	RecipientPostalCode string `json:"recipient_postal_code"`
	RecipientComment    string `json:"recipient_comment"`
}

func (r *RecipientRequest) toService() *services.Recipient {
	if r == nil {
		return nil
	}
	return &services.Recipient{
		FullName:   r.FullName,
		Phone:      r.Phone,
		City:       r.City,
		Address:    r.Address,
		PostalCode: r.PostalCode,
		Comment:    r.Comment,
	}
}

// CreateReservation handles POST /api/reservations
func CreateReservation(c *gin.Context) {
	var req CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "Invalid request data")
		return
	}

	items := make([]services.LineItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, services.LineItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	reservation, err := services.GetReservationService().Create(c.Request.Context(), services.CreateReservationInput{
		TelegramID: req.TelegramID,
		Profile: services.UserProfile{
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Username:  req.Username,
		},
		TelegramUsername: req.TelegramUsername,
		DeliveryMethod:   req.DeliveryMethod,
		Recipient:        req.Recipient.toService(),
		StoreID:          req.StoreID,
		PickupTimeFrom:   req.PickupTimeFrom,
		PickupTimeTo:     req.PickupTimeTo,
		Items:            items,
	})
	if err != nil {
		respondServiceError(c, err, "Failed to create reservation")
		return
	}
	respondData(c, http.StatusCreated, reservation)
}

// GetReservation handles GET /api/reservations/:id - id or order number
func GetReservation(c *gin.Context) {
	details, err := services.GetReservationService().Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "Failed to load reservation")
		return
	}
	respondData(c, http.StatusOK, details)
}

// ListUserReservations handles GET /api/reservations/user/:tgId?status=a,b
func ListUserReservations(c *gin.Context) {
	telegramID, ok := parseTelegramIDParam(c, "tgId")
	if !ok {
		return
	}

	svc := services.GetReservationService()
	statuses, ok := parseStatusFilter(c, svc.Flow())
	if !ok {
		return
	}

	list, err := svc.ListForUser(c.Request.Context(), telegramID, statuses)
	if err != nil {
		respondServiceError(c, err, "Failed to list reservations")
		return
	}
	respondData(c, http.StatusOK, list)
}

// ListStoreReservations handles GET /api/reservations/store/:storeId?status=&date=
func ListStoreReservations(c *gin.Context) {
	storeID, ok := parseIDParam(c, "storeId")
	if !ok {
		return
	}

	svc := services.GetReservationService()
	statuses, ok := parseStatusFilter(c, svc.Flow())
	if !ok {
		return
	}

	list, err := svc.ListForStore(c.Request.Context(), storeID, statuses, c.Query("date"))
	if err != nil {
		respondServiceError(c, err, "Failed to list reservations")
		return
	}
	respondData(c, http.StatusOK, list)
}

// ListAdminOrders handles GET /api/admin/orders?status=&limit=
func ListAdminOrders(c *gin.Context) {
	svc := services.GetReservationService()
	statuses, ok := parseStatusFilter(c, svc.Flow())
	if !ok {
		return
	}

	limit := defaultAdminOrderLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondValidation(c, "limit must be a positive number")
			return
		}
		limit = n
	}

	list, err := svc.ListAll(c.Request.Context(), statuses, limit)
	if err != nil {
		respondServiceError(c, err, "Failed to list orders")
		return
	}
	respondData(c, http.StatusOK, list)
}

// parseStatusFilter reads ?status=a,b. A filter that names no status of the
// active flow is rejected instead of silently matching everything.
func parseStatusFilter(c *gin.Context, flow *models.OrderFlow) ([]models.OrderStatus, bool) {
	raw := c.Query("status")
	if raw == "" {
		return nil, true
	}
	statuses := flow.ParseStatuses(raw)
	if len(statuses) == 0 {
		respondError(c, http.StatusBadRequest, "INVALID_STATUS", "Unknown status filter "+strconv.Quote(raw))
		return nil, false
	}
	return statuses, true
}

// UpdateReservationStatus handles PATCH /api/reservations/:id. Admin token
// holders may apply any transition the flow allows; everyone else must send
// their telegram_id and may only cancel their own order.
func UpdateReservationStatus(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "Invalid request data")
		return
	}

	reservation, err := services.GetReservationService().UpdateStatus(c.Request.Context(), id, services.StatusChange{
		Status:       req.Status,
		ShippingInfo: req.ShippingInfo,
		TelegramID:   req.TelegramID,
		Operator:     middleware.IsAdmin(c),
	})
	if err != nil {
		respondServiceError(c, err, "Failed to update reservation")
		return
	}
	respondData(c, http.StatusOK, reservation)
}

// UpdateReservationRecipient handles PATCH /api/reservations/:id/recipient
func UpdateReservationRecipient(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateRecipientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "Invalid request data")
		return
	}

	reservation, err := services.GetReservationService().UpdateRecipient(c.Request.Context(), id, services.Recipient{
		FullName:   req.RecipientName,
		Phone:      req.RecipientPhone,
		City:       req.RecipientCity,
		Address:    req.RecipientAddress,
		PostalCode: req.RecipientPostalCode,
		Comment:    req.RecipientComment,
	})
	if err != nil {
		respondServiceError(c, err, "Failed to update recipient")
		return
	}
	respondData(c, http.StatusOK, reservation)
}

// UploadReceipt handles POST /api/reservations/:id/receipt (multipart "receipt")
func UploadReceipt(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("receipt")
	if err != nil {
		respondError(c, http.StatusBadRequest, "NO_FILE", "No file uploaded")
		return
	}

	reservation, err := services.GetReservationService().AttachReceipt(c.Request.Context(), id, fileHeader)
	if err != nil {
		respondServiceError(c, err, "Failed to upload receipt")
		return
	}
	respondData(c, http.StatusOK, reservation)
}

// UploadShippingImage handles POST /api/reservations/:id/shipping (multipart "image")
func UploadShippingImage(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		respondError(c, http.StatusBadRequest, "NO_FILE", "No file uploaded")
		return
	}

	reservation, err := services.GetReservationService().AttachShippingImage(c.Request.Context(), id, fileHeader)
	if err != nil {
		respondServiceError(c, err, "Failed to upload shipping image")
		return
	}
	respondData(c, http.StatusOK, reservation)
}

// DeleteReservation handles DELETE /api/reservations/:id
func DeleteReservation(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := services.GetReservationService().Delete(c.Request.Context(), id); err != nil {
		respondServiceError(c, err, "Failed to delete reservation")
		return
	}
	respondData(c, http.StatusOK, gin.H{"id": id})
}
