package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Reservation is a customer order. Pickup orders carry a store and a pickup
// window; delivery orders carry the delivery method and recipient.
type Reservation struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	OrderNumber    string          `gorm:"size:16;not null;index" json:"order_number"`
	UserID         uint            `gorm:"not null;index" json:"user_id"`
	User           *User           `gorm:"foreignKey:UserID" json:"-"`
	Status         OrderStatus     `gorm:"size:32;not null;index" json:"status"`
	TotalPrice     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_price"`
	StoreID        *uint           `gorm:"index" json:"store_id"`
	PickupTimeFrom string          `json:"pickup_time_from,omitempty"`
	PickupTimeTo   string          `json:"pickup_time_to,omitempty"`

	DeliveryMethod    string          `json:"delivery_method,omitempty"`
	DeliveryPrice     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"delivery_price"`
	RecipientName     string          `json:"recipient_name,omitempty"`
	RecipientPhone    string          `json:"recipient_phone,omitempty"`
	RecipientCity     string          `json:"recipient_city,omitempty"`
	RecipientAddress  string          `json:"recipient_address,omitempty"`
	RecipientPostal   string          `json:"recipient_postal_code,omitempty"`
	RecipientComment  string          `gorm:"type:text" json:"recipient_comment,omitempty"`
	TelegramUsername  string          `json:"telegram_username,omitempty"`
	PaymentReceiptURL string          `json:"payment_receipt_url,omitempty"`
	ShippingInfo      string          `gorm:"type:text" json:"shipping_info,omitempty"`
	ShippingImageURL  string          `json:"shipping_image_url,omitempty"`

	Items     []ReservationItem `gorm:"foreignKey:ReservationID" json:"items,omitempty"`
	CreatedAt time.Time         `gorm:"index" json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`

	// Customer is filled from User for order lists
	Customer *Customer `gorm:"-" json:"customer,omitempty"`
}

// Customer is the part of a User shown next to an order. Bonus points and
// the discount code stay out of order responses.
type Customer struct {
	TelegramID int64  `json:"telegram_id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Username   string `json:"username"`
	Phone      string `json:"phone"`
}

// CustomerOf returns the public view of u, or nil
func CustomerOf(u *User) *Customer {
	if u == nil {
		return nil
	}
	return &Customer{
		TelegramID: u.TelegramID,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Username:   u.Username,
		Phone:      u.Phone,
	}
}

// TableName specifies the table name for the Reservation model
func (Reservation) TableName() string {
	return "reservations"
}

// ReservationItem is one order line. ProductID is deliberately not a foreign
// key and the name and unit price are snapshots, so product edits and
// deletes never alter past orders.
type ReservationItem struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	ReservationID uint            `gorm:"not null;index" json:"reservation_id"`
	ProductID     uint            `gorm:"not null;index" json:"product_id"`
	ProductName   string          `json:"product_name"`
	Quantity      int             `gorm:"not null" json:"quantity"`
	PriceAtTime   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price_at_time"`

	Brand    string `gorm:"-" json:"brand,omitempty"`
	ImageURL string `gorm:"-" json:"image_url,omitempty"`
}

// TableName specifies the table name for the ReservationItem model
func (ReservationItem) TableName() string {
	return "reservation_items"
}

// LineTotal is the unit price times quantity
func (i ReservationItem) LineTotal() decimal.Decimal {
	return i.PriceAtTime.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
