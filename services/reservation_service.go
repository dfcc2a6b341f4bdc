package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vapecity/vapecity-api/metrics"
	"github.com/vapecity/vapecity-api/models"
	"github.com/vapecity/vapecity-api/utils"
	"gorm.io/gorm"
)

// PickupMethod is the delivery method recorded for pickup orders
const PickupMethod = "pickup"

// Notifier is told about every new reservation. Implementations must not
// block order creation on delivery problems.
type Notifier interface {
	NotifyNewReservation(ctx context.Context, reservationID uint)
}

// ReservationService owns the order lifecycle
type ReservationService struct {
	db       *gorm.DB
	flow     *models.OrderFlow
	fees     map[string]decimal.Decimal
	numbers  *OrderNumberGenerator
	storage  FileStorage
	notifier Notifier
	location *time.Location
	logger   *slog.Logger
	now      func() time.Time
}

// ReservationOptions configures a ReservationService
type ReservationOptions struct {
	Flow     *models.OrderFlow
	Fees     map[string]decimal.Decimal
	Numbers  *OrderNumberGenerator
	Storage  FileStorage
	Location *time.Location
	Logger   *slog.Logger
	Now      func() time.Time
}

var reservationServiceInstance *ReservationService

// NewReservationService creates the service; zero options get defaults
func NewReservationService(db *gorm.DB, opts ReservationOptions) *ReservationService {
	s := &ReservationService{
		db:       db,
		flow:     opts.Flow,
		fees:     opts.Fees,
		numbers:  opts.Numbers,
		storage:  opts.Storage,
		location: opts.Location,
		logger:   opts.Logger,
		now:      opts.Now,
	}
	if s.flow == nil {
		s.flow = models.DeliveryFlow
	}
	if s.fees == nil {
		s.fees = map[string]decimal.Decimal{}
	}
	if s.numbers == nil {
		s.numbers = NewOrderNumberGenerator(nil)
	}
	if s.location == nil {
		s.location = time.UTC
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// InitReservationService sets the process-wide reservation service
func InitReservationService(s *ReservationService) *ReservationService {
	reservationServiceInstance = s
	return s
}

// GetReservationService returns the initialized reservation service
func GetReservationService() *ReservationService {
	return reservationServiceInstance
}

// SetReservationService sets the reservation service (primarily for testing)
func SetReservationService(s *ReservationService) {
	reservationServiceInstance = s
}

// SetNotifier registers the new-order notifier
func (s *ReservationService) SetNotifier(n Notifier) {
	s.notifier = n
}

// Flow returns the active order flow
func (s *ReservationService) Flow() *models.OrderFlow {
	return s.flow
}

// DeliveryFee returns the flat fee for method
func (s *ReservationService) DeliveryFee(method string) (decimal.Decimal, bool) {
	fee, ok := s.fees[method]
	return fee, ok
}

// LineItem is one requested cart line
type LineItem struct {
	ProductID uint
	Quantity  int
}

// Recipient is the delivery address block
type Recipient struct {
	FullName   string
	Phone      string
	City       string
	Address    string
	PostalCode string
	Comment    string
}

// CreateReservationInput is a checkout request
type CreateReservationInput struct {
	TelegramID       int64
	Profile          UserProfile
	TelegramUsername string
	DeliveryMethod   string
	Recipient        *Recipient
	StoreID          uint
	PickupTimeFrom   string
	PickupTimeTo     string
	Items            []LineItem
}

// Create validates a checkout, snapshots current prices and stores the
// order as pending. Sellers are notified after the commit.
func (s *ReservationService) Create(ctx context.Context, in CreateReservationInput) (*models.Reservation, error) {
	if in.TelegramID == 0 {
		return nil, validationErrorf("telegram_id is required")
	}
	if len(in.Items) == 0 {
		return nil, validationErrorf("at least one item is required")
	}
	for _, item := range in.Items {
		if item.ProductID == 0 || item.Quantity <= 0 {
			return nil, validationErrorf("every item needs a product_id and a positive quantity")
		}
	}

	reservation := models.Reservation{
		Status:           models.StatusPending,
		TelegramUsername: strings.TrimPrefix(strings.TrimSpace(in.TelegramUsername), "@"),
		PickupTimeFrom:   in.PickupTimeFrom,
		PickupTimeTo:     in.PickupTimeTo,
		DeliveryPrice:    decimal.Zero,
	}

	if s.flow.Delivery {
		method := in.DeliveryMethod
		fee, ok := s.fees[method]
		if !ok {
			return nil, validationErrorf("unknown delivery method %q", method)
		}
		if err := validateRecipient(in.Recipient); err != nil {
			return nil, err
		}
		reservation.DeliveryMethod = method
		reservation.DeliveryPrice = fee
		reservation.RecipientName = strings.TrimSpace(in.Recipient.FullName)
		reservation.RecipientPhone = strings.TrimSpace(in.Recipient.Phone)
		reservation.RecipientCity = strings.TrimSpace(in.Recipient.City)
		reservation.RecipientAddress = strings.TrimSpace(in.Recipient.Address)
		reservation.RecipientPostal = strings.TrimSpace(in.Recipient.PostalCode)
		reservation.RecipientComment = strings.TrimSpace(in.Recipient.Comment)
		if in.Profile.Phone == "" {
			in.Profile.Phone = reservation.RecipientPhone
		}
	} else {
		if in.StoreID == 0 {
			return nil, validationErrorf("store_id is required for pickup orders")
		}
		reservation.DeliveryMethod = PickupMethod
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := GetOrCreateUser(ctx, tx, in.TelegramID, in.Profile)
		if err != nil {
			return err
		}
		reservation.UserID = user.ID

		storeID, err := resolveStore(tx, in.StoreID)
		if err != nil {
			return err
		}
		reservation.StoreID = storeID

		items, subtotal, err := priceItems(tx, in.Items)
		if err != nil {
			return err
		}
		reservation.Items = items
		reservation.TotalPrice = subtotal.Add(reservation.DeliveryPrice)

		number, exhausted, err := s.numbers.Generate(func(n string) (bool, error) {
			var count int64
			err := tx.Model(&models.Reservation{}).Where("order_number = ?", n).Count(&count).Error
			return count > 0, err
		})
		if err != nil {
			return fmt.Errorf("failed to generate order number: %w", err)
		}
		if exhausted {
			s.logger.Warn("order number retries exhausted, number may be shared", "order_number", number)
		}
		reservation.OrderNumber = number

		return tx.Create(&reservation).Error
	})
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) || errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create reservation: %w", err)
	}

	metrics.Get().OrdersCreated.Inc()
	s.logger.Info("reservation created",
		"reservation_id", reservation.ID,
		"order_number", reservation.OrderNumber,
		"total", reservation.TotalPrice.String())

	if s.notifier != nil {
		s.notifier.NotifyNewReservation(ctx, reservation.ID)
	}
	return &reservation, nil
}

func validateRecipient(r *Recipient) error {
	if r == nil {
		return validationErrorf("recipient is required for delivery orders")
	}
	missing := []string{}
	if strings.TrimSpace(r.FullName) == "" {
		missing = append(missing, "fullName")
	}
	if strings.TrimSpace(r.Phone) == "" {
		missing = append(missing, "phone")
	}
	if strings.TrimSpace(r.City) == "" {
		missing = append(missing, "city")
	}
	if strings.TrimSpace(r.Address) == "" {
		missing = append(missing, "address")
	}
	if len(missing) > 0 {
		return validationErrorf("recipient fields are required: %s", strings.Join(missing, ", "))
	}
	return nil
}

// resolveStore returns the requested active store or, when none was
// requested, the first store.
func resolveStore(tx *gorm.DB, requested uint) (*uint, error) {
	var store models.Store
	if requested != 0 {
		err := tx.Where("id = ? AND is_active = ?", requested, true).First(&store).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, validationErrorf("store %d does not exist or is not active", requested)
		}
		if err != nil {
			return nil, err
		}
		return &store.ID, nil
	}

	err := tx.Order("id").First(&store).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &store.ID, nil
}

func priceItems(tx *gorm.DB, lines []LineItem) ([]models.ReservationItem, decimal.Decimal, error) {
	ids := make([]uint, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}

	var products []models.Product
	if err := tx.Where("id IN ?", distinct(ids)).Find(&products).Error; err != nil {
		return nil, decimal.Zero, err
	}
	byID := make(map[uint]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	items := make([]models.ReservationItem, 0, len(lines))
	total := decimal.Zero
	for _, l := range lines {
		p, ok := byID[l.ProductID]
		if !ok {
			return nil, decimal.Zero, validationErrorf("product %d does not exist", l.ProductID)
		}
		item := models.ReservationItem{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    l.Quantity,
			PriceAtTime: p.Price,
		}
		total = total.Add(item.LineTotal())
		items = append(items, item)
	}
	return items, total, nil
}

// ReservationDetails is a reservation with its store and customer resolved
type ReservationDetails struct {
	models.Reservation
	StoreName     string `json:"store_name,omitempty"`
	StoreAddress  string `json:"store_address,omitempty"`
	StorePhone    string `json:"store_phone,omitempty"`
	TelegramID    int64  `json:"telegram_id"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Username      string `json:"username"`
	UserPhone     string `json:"user_phone"`
	StatusLabel   string `json:"status_label"`
	FormattedDate string `json:"formatted_date"`
}

// Get loads a reservation by numeric id or by order number ("#1234" or "1234")
func (s *ReservationService) Get(ctx context.Context, idOrNumber string) (*ReservationDetails, error) {
	ref := strings.TrimSpace(idOrNumber)
	q := s.db.WithContext(ctx).Preload("User").Preload("Items")

	var r models.Reservation
	var err error
	if strings.HasPrefix(ref, "#") {
		err = q.Where("order_number = ?", ref).Order("id DESC").First(&r).Error
	} else {
		var id uint
		if _, scanErr := fmt.Sscanf(ref, "%d", &id); scanErr != nil || fmt.Sprint(id) != ref {
			return nil, validationErrorf("invalid reservation reference %q", idOrNumber)
		}
		err = q.First(&r, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) && len(ref) == 4 {
			err = s.db.WithContext(ctx).Preload("User").Preload("Items").
				Where("order_number = ?", "#"+ref).Order("id DESC").First(&r).Error
		}
	}
	if err != nil {
		return nil, notFoundOr(err, "reservation")
	}
	return s.details(ctx, &r)
}

// GetByID loads a reservation by id
func (s *ReservationService) GetByID(ctx context.Context, id uint) (*ReservationDetails, error) {
	var r models.Reservation
	if err := s.db.WithContext(ctx).Preload("User").Preload("Items").First(&r, id).Error; err != nil {
		return nil, notFoundOr(err, "reservation")
	}
	return s.details(ctx, &r)
}

func (s *ReservationService) details(ctx context.Context, r *models.Reservation) (*ReservationDetails, error) {
	d := &ReservationDetails{
		Reservation:   *r,
		StatusLabel:   r.Status.Label(),
		FormattedDate: FormatRussianDate(r.CreatedAt.In(s.location)),
	}
	if r.User != nil {
		d.TelegramID = r.User.TelegramID
		d.FirstName = r.User.FirstName
		d.LastName = r.User.LastName
		d.Username = r.User.Username
		d.UserPhone = r.User.Phone
	}
	if r.StoreID != nil {
		var store models.Store
		if err := s.db.WithContext(ctx).First(&store, *r.StoreID).Error; err == nil {
			d.StoreName = store.Name
			d.StoreAddress = store.Address
			d.StorePhone = store.Phone
		}
	}

	if len(r.Items) > 0 {
		ids := make([]uint, 0, len(r.Items))
		for _, it := range r.Items {
			ids = append(ids, it.ProductID)
		}
		var products []models.Product
		if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
			return nil, fmt.Errorf("failed to load products: %w", err)
		}
		byID := make(map[uint]models.Product, len(products))
		for _, p := range products {
			byID[p.ID] = p
		}
		for i := range d.Items {
			if p, ok := byID[d.Items[i].ProductID]; ok {
				d.Items[i].Brand = p.Brand
				d.Items[i].ImageURL = p.ImageURL
			}
		}
	}
	return d, nil
}

var russianMonths = [...]string{
	"января", "февраля", "марта", "апреля", "мая", "июня",
	"июля", "августа", "сентября", "октября", "ноября", "декабря",
}

// FormatRussianDate renders t as "14 октября 2026, 15:04"
func FormatRussianDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return fmt.Sprintf("%d %s %d, %s", t.Day(), russianMonths[t.Month()-1], t.Year(), t.Format("15:04"))
}

// ListForUser returns a customer's reservations, newest first
func (s *ReservationService) ListForUser(ctx context.Context, telegramID int64, statuses []models.OrderStatus) ([]models.Reservation, error) {
	q := s.db.WithContext(ctx).Preload("Items").
		Joins("JOIN users ON users.id = reservations.user_id").
		Where("users.telegram_id = ?", telegramID)
	if len(statuses) > 0 {
		q = q.Where("reservations.status IN ?", statuses)
	}

	list := []models.Reservation{}
	if err := q.Order("reservations.created_at DESC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	return list, nil
}

// ListForStore returns a store's reservations. date ("2006-01-02", in the
// configured time zone) limits the result to orders created that day.
func (s *ReservationService) ListForStore(ctx context.Context, storeID uint, statuses []models.OrderStatus, date string) ([]models.Reservation, error) {
	q := s.db.WithContext(ctx).Preload("User").Preload("Items").Where("store_id = ?", storeID)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	if date != "" {
		day, err := time.ParseInLocation("2006-01-02", date, s.location)
		if err != nil {
			return nil, validationErrorf("date must be YYYY-MM-DD")
		}
		q = q.Where("created_at >= ? AND created_at < ?", day.UTC(), day.AddDate(0, 0, 1).UTC())
	}

	list := []models.Reservation{}
	if err := q.Order("pickup_time_from ASC, created_at DESC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	attachCustomers(list)
	return list, nil
}

// ListAll returns every reservation for the admin panel, newest first
func (s *ReservationService) ListAll(ctx context.Context, statuses []models.OrderStatus, limit int) ([]models.Reservation, error) {
	q := s.db.WithContext(ctx).Preload("User").Preload("Items")
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	list := []models.Reservation{}
	if err := q.Order("created_at DESC, id DESC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	attachCustomers(list)
	return list, nil
}

func attachCustomers(list []models.Reservation) {
	for i := range list {
		list[i].Customer = models.CustomerOf(list[i].User)
	}
}

// Scope selects which open orders a seller list shows
type Scope string

const (
	// ScopeToday lists open orders created today
	ScopeToday Scope = "today"
	// ScopeActive lists the newest open orders regardless of date
	ScopeActive Scope = "active"
)

const activeScopeLimit = 50

// OpenForStore lists a store's open orders for the seller bot
func (s *ReservationService) OpenForStore(ctx context.Context, storeID uint, scope Scope) ([]models.Reservation, error) {
	q := s.openQuery(ctx, storeID, scope)
	list := []models.Reservation{}
	var err error
	if scope == ScopeActive {
		err = q.Order("created_at DESC, id DESC").Limit(activeScopeLimit).Find(&list).Error
	} else {
		err = q.Order("pickup_time_from ASC, created_at ASC, id ASC").Find(&list).Error
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list open reservations: %w", err)
	}
	return list, nil
}

// CountOpenForStore counts what OpenForStore would return
func (s *ReservationService) CountOpenForStore(ctx context.Context, storeID uint, scope Scope) (int64, error) {
	var count int64
	if err := s.openQuery(ctx, storeID, scope).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count open reservations: %w", err)
	}
	if scope == ScopeActive && count > activeScopeLimit {
		count = activeScopeLimit
	}
	return count, nil
}

func (s *ReservationService) openQuery(ctx context.Context, storeID uint, scope Scope) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&models.Reservation{}).
		Where("store_id = ? AND status IN ?", storeID, s.flow.Open())
	if scope != ScopeActive {
		q = q.Where("created_at >= ?", s.startOfToday())
	}
	return q
}

func (s *ReservationService) startOfToday() time.Time {
	now := s.now().In(s.location)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location).UTC()
}

// StatusChange is a requested status and/or shipping info update.
// Operator is true for admin-token and bot callers; customers act with
// their TelegramID and may only cancel.
type StatusChange struct {
	Status       models.OrderStatus
	ShippingInfo *string
	TelegramID   int64
	Operator     bool
}

// UpdateStatus applies a status change permitted by the active flow
func (s *ReservationService) UpdateStatus(ctx context.Context, id uint, change StatusChange) (*models.Reservation, error) {
	if change.Status == "" && change.ShippingInfo == nil {
		return nil, validationErrorf("status or shipping_info is required")
	}
	if change.Status != "" && !s.flow.IsValid(change.Status) {
		return nil, fmt.Errorf("%w: %q, must be one of %v", ErrInvalidStatus, change.Status, s.flow.Statuses)
	}

	var r models.Reservation
	if err := s.db.WithContext(ctx).Preload("User").First(&r, id).Error; err != nil {
		return nil, notFoundOr(err, "reservation")
	}

	if !change.Operator {
		if change.Status != models.StatusCancelled || change.ShippingInfo != nil {
			return nil, fmt.Errorf("%w: customers may only cancel their orders", ErrForbidden)
		}
		if r.User == nil || change.TelegramID == 0 || r.User.TelegramID != change.TelegramID {
			return nil, fmt.Errorf("%w: you can only cancel your own orders", ErrForbidden)
		}
	}

	target := change.Status
	if target == "" {
		target = r.Status
	}
	if !s.flow.CanTransition(r.Status, target) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, target)
	}

	shipping := r.ShippingInfo
	if change.ShippingInfo != nil {
		shipping = strings.TrimSpace(*change.ShippingInfo)
	}
	if target == models.StatusShipped && shipping == "" && r.ShippingImageURL == "" {
		return nil, validationErrorf("shipping_info is required to mark an order shipped")
	}

	updates := map[string]interface{}{
		"status":        target,
		"shipping_info": shipping,
		"updated_at":    s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Model(&r).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update reservation: %w", err)
	}
	r.Status = target
	r.ShippingInfo = shipping

	if change.Status != "" {
		metrics.Get().StatusChanges.WithLabelValues(string(target)).Inc()
	}
	s.logger.Info("reservation status updated", "reservation_id", r.ID, "status", target, "operator", change.Operator)
	return &r, nil
}

// UpdateRecipient edits delivery details while the order is still awaiting
// payment. The total never changes.
func (s *ReservationService) UpdateRecipient(ctx context.Context, id uint, recipient Recipient) (*models.Reservation, error) {
	if !s.flow.Delivery {
		return nil, ErrNotSupported
	}
	if err := validateRecipient(&recipient); err != nil {
		return nil, err
	}

	var r models.Reservation
	if err := s.db.WithContext(ctx).First(&r, id).Error; err != nil {
		return nil, notFoundOr(err, "reservation")
	}
	if r.Status != models.StatusPending && r.Status != models.StatusPaymentCheck {
		return nil, fmt.Errorf("%w: recipient can only be changed before confirmation", ErrInvalidTransition)
	}

	updates := map[string]interface{}{
		"recipient_name":    strings.TrimSpace(recipient.FullName),
		"recipient_phone":   strings.TrimSpace(recipient.Phone),
		"recipient_city":    strings.TrimSpace(recipient.City),
		"recipient_address": strings.TrimSpace(recipient.Address),
		"recipient_postal":  strings.TrimSpace(recipient.PostalCode),
		"recipient_comment": strings.TrimSpace(recipient.Comment),
		"updated_at":        s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Model(&r).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update recipient: %w", err)
	}
	if err := s.db.WithContext(ctx).Preload("Items").First(&r, id).Error; err != nil {
		return nil, fmt.Errorf("failed to reload reservation: %w", err)
	}
	return &r, nil
}

// AttachReceipt stores a payment receipt, replaces any previous one and
// moves the order to payment_check.
func (s *ReservationService) AttachReceipt(ctx context.Context, id uint, fileHeader *multipart.FileHeader) (*models.Reservation, error) {
	if !s.flow.Receipts {
		return nil, ErrNotSupported
	}
	if err := utils.ValidateImageFile(fileHeader, utils.ReceiptRule); err != nil {
		return nil, err
	}

	var r models.Reservation
	if err := s.db.WithContext(ctx).First(&r, id).Error; err != nil {
		return nil, notFoundOr(err, "reservation")
	}
	if r.Status != models.StatusPending && r.Status != models.StatusPaymentCheck {
		return nil, fmt.Errorf("%w: receipts are accepted only before confirmation", ErrInvalidTransition)
	}

	key := fmt.Sprintf("receipts/receipt-%d-%s%s", r.ID, uuid.NewString(), utils.Extension(fileHeader.Filename))
	url, err := s.storage.Save(ctx, key, fileHeader)
	if err != nil {
		return nil, fmt.Errorf("failed to store receipt: %w", err)
	}

	previous := r.PaymentReceiptURL
	updates := map[string]interface{}{
		"payment_receipt_url": url,
		"status":              models.StatusPaymentCheck,
		"updated_at":          s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Model(&r).Updates(updates).Error; err != nil {
		s.removeFile(ctx, KeyFromURL(url), r.ID)
		return nil, fmt.Errorf("failed to save receipt: %w", err)
	}
	r.PaymentReceiptURL = url
	r.Status = models.StatusPaymentCheck

	if previous != "" && previous != url {
		s.removeFile(ctx, KeyFromURL(previous), r.ID)
	}
	metrics.Get().StatusChanges.WithLabelValues(string(models.StatusPaymentCheck)).Inc()
	return &r, nil
}

// AttachShippingImage stores a photo of the shipping label or tracking slip
func (s *ReservationService) AttachShippingImage(ctx context.Context, id uint, fileHeader *multipart.FileHeader) (*models.Reservation, error) {
	if !s.flow.Delivery {
		return nil, ErrNotSupported
	}
	if err := utils.ValidateImageFile(fileHeader, utils.ReceiptRule); err != nil {
		return nil, err
	}

	var r models.Reservation
	if err := s.db.WithContext(ctx).First(&r, id).Error; err != nil {
		return nil, notFoundOr(err, "reservation")
	}
	if s.flow.IsTerminal(r.Status) {
		return nil, fmt.Errorf("%w: order is already %s", ErrInvalidTransition, r.Status)
	}

	key := fmt.Sprintf("shipping/shipping-%d-%s%s", r.ID, uuid.NewString(), utils.Extension(fileHeader.Filename))
	url, err := s.storage.Save(ctx, key, fileHeader)
	if err != nil {
		return nil, fmt.Errorf("failed to store shipping image: %w", err)
	}

	previous := r.ShippingImageURL
	if err := s.db.WithContext(ctx).Model(&r).Updates(map[string]interface{}{
		"shipping_image_url": url,
		"updated_at":         s.now().UTC(),
	}).Error; err != nil {
		s.removeFile(ctx, KeyFromURL(url), r.ID)
		return nil, fmt.Errorf("failed to save shipping image: %w", err)
	}
	r.ShippingImageURL = url

	if previous != "" && previous != url {
		s.removeFile(ctx, KeyFromURL(previous), r.ID)
	}
	return &r, nil
}

// Delete hard-deletes a reservation with its items and uploaded files
func (s *ReservationService) Delete(ctx context.Context, id uint) error {
	var r models.Reservation
	if err := s.db.WithContext(ctx).First(&r, id).Error; err != nil {
		return notFoundOr(err, "reservation")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("reservation_id = ?", id).Delete(&models.ReservationItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Reservation{}, id).Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete reservation: %w", err)
	}

	s.removeFile(ctx, KeyFromURL(r.PaymentReceiptURL), id)
	s.removeFile(ctx, KeyFromURL(r.ShippingImageURL), id)
	s.logger.Info("reservation deleted", "reservation_id", id, "order_number", r.OrderNumber)
	return nil
}

func (s *ReservationService) removeFile(ctx context.Context, key string, reservationID uint) {
	if key == "" || s.storage == nil {
		return
	}
	if err := s.storage.Delete(ctx, key); err != nil {
		s.logger.Warn("failed to delete upload", "reservation_id", reservationID, "key", key, "error", err)
	}
}

// CancelExpired cancels pending and confirmed orders created before the
// start of the current day and returns how many were cancelled.
func (s *ReservationService) CancelExpired(ctx context.Context) (int64, error) {
	cutoff := s.startOfToday()
	res := s.db.WithContext(ctx).Model(&models.Reservation{}).
		Where("status IN ? AND created_at < ?", models.ExpirableStatuses, cutoff).
		Updates(map[string]interface{}{
			"status":     models.StatusCancelled,
			"updated_at": s.now().UTC(),
		})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to cancel expired reservations: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		metrics.Get().OrdersExpired.Add(float64(res.RowsAffected))
		s.logger.Info("cancelled expired reservations", "count", res.RowsAffected, "cutoff", cutoff)
	}
	return res.RowsAffected, nil
}
