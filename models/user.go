package models

import (
	"time"
)

// User is a shop customer identified by their Telegram account
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	TelegramID   int64     `gorm:"uniqueIndex;not null" json:"telegram_id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Username     string    `json:"username"`
	Phone        string    `json:"phone"`
	BonusPoints  int       `gorm:"not null;default:0" json:"bonus_points"`
	DiscountCode string    `json:"discount_code"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}

// WelcomeBonusPoints are granted when a user is created
const WelcomeBonusPoints = 100
