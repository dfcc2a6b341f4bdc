package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/jaevor/go-nanoid"
	"github.com/vapecity/vapecity-api/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// discountCode generates the 6-digit codes staff type in at the till
var discountCode = mustDigits(6)

func mustDigits(n int) func() string {
	gen, err := nanoid.CustomASCII("0123456789", n)
	if err != nil {
		panic(fmt.Sprintf("discount code generator: %v", err))
	}
	return gen
}

// NewDiscountCode returns a fresh random 6-digit code
func NewDiscountCode() string {
	return discountCode()
}

// UserProfile is the Telegram profile data the mini-app sends
type UserProfile struct {
	FirstName string
	LastName  string
	Username  string
	Phone     string
}

// GetOrCreateUser returns the user with telegramID, creating it with the
// welcome bonus and a discount code on first contact.
func GetOrCreateUser(ctx context.Context, db *gorm.DB, telegramID int64, profile UserProfile) (*models.User, error) {
	var user models.User
	err := db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	user = models.User{
		TelegramID:   telegramID,
		FirstName:    profile.FirstName,
		LastName:     profile.LastName,
		Username:     profile.Username,
		Phone:        profile.Phone,
		BonusPoints:  models.WelcomeBonusPoints,
		DiscountCode: NewDiscountCode(),
	}
	// A concurrent first contact may have inserted the row already.
	res := db.WithContext(ctx).Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "telegram_id"}}, DoNothing: true}).Create(&user)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to create user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		if err := db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to look up user: %w", err)
		}
	}
	return &user, nil
}

// UpsertUserProfile creates the user or refreshes its profile fields. Empty
// fields leave the stored value untouched.
func UpsertUserProfile(ctx context.Context, db *gorm.DB, telegramID int64, profile UserProfile) (*models.User, error) {
	user, err := GetOrCreateUser(ctx, db, telegramID, profile)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if profile.FirstName != "" && profile.FirstName != user.FirstName {
		updates["first_name"] = profile.FirstName
	}
	if profile.LastName != "" && profile.LastName != user.LastName {
		updates["last_name"] = profile.LastName
	}
	if profile.Username != "" && profile.Username != user.Username {
		updates["username"] = profile.Username
	}
	if profile.Phone != "" && profile.Phone != user.Phone {
		updates["phone"] = profile.Phone
	}
	if len(updates) == 0 {
		return user, nil
	}

	if err := db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	if err := db.WithContext(ctx).First(user, user.ID).Error; err != nil {
		return nil, fmt.Errorf("failed to reload user: %w", err)
	}
	return user, nil
}

// RegenerateDiscountCode assigns a new discount code to an existing user
func RegenerateDiscountCode(ctx context.Context, db *gorm.DB, telegramID int64) (*models.User, error) {
	user, err := GetOrCreateUser(ctx, db, telegramID, UserProfile{})
	if err != nil {
		return nil, err
	}
	user.DiscountCode = NewDiscountCode()
	if err := db.WithContext(ctx).Model(user).Update("discount_code", user.DiscountCode).Error; err != nil {
		return nil, fmt.Errorf("failed to update discount code: %w", err)
	}
	return user, nil
}
