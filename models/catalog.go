package models

import (
	"regexp"
	"time"

	"github.com/shopspring/decimal"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// ValidSlug reports whether s is a lowercase URL-safe slug
func ValidSlug(s string) bool {
	return slugPattern.MatchString(s)
}

// Category groups products in the catalog
type Category struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Name      string `gorm:"not null" json:"name"`
	Slug      string `gorm:"uniqueIndex;not null" json:"slug"`
	Icon      string `json:"icon"`
	SortOrder int    `gorm:"not null;default:0" json:"sort_order"`
}

// TableName specifies the table name for the Category model
func (Category) TableName() string {
	return "categories"
}

// Store is a physical retail point with its own inventory
type Store struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"not null" json:"name"`
	Address      string    `gorm:"not null" json:"address"`
	Phone        string    `json:"phone"`
	WorkingHours string    `json:"working_hours"`
	IsActive     bool      `gorm:"not null" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName specifies the table name for the Store model
func (Store) TableName() string {
	return "stores"
}

// Product is a catalog item. Description holds HTML from the admin editor,
// sanitized on write.
type Product struct {
	ID          uint               `gorm:"primaryKey" json:"id"`
	Name        string             `gorm:"not null" json:"name"`
	Description string             `gorm:"type:text" json:"description"`
	Price       decimal.Decimal    `gorm:"type:decimal(12,2);not null" json:"price"`
	ImageURL    string             `json:"image_url"`
	CategoryID  *uint              `gorm:"index" json:"category_id"`
	Brand       string             `json:"brand"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
	Attributes  []ProductAttribute `gorm:"foreignKey:ProductID" json:"attributes,omitempty"`
}

// TableName specifies the table name for the Product model
func (Product) TableName() string {
	return "products"
}

// ProductAttribute is a free-form name/value pair, e.g. nicotine strength
type ProductAttribute struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	ProductID uint   `gorm:"not null;index" json:"product_id"`
	Name      string `gorm:"column:attribute_name;not null" json:"attribute_name"`
	Value     string `gorm:"column:attribute_value;not null" json:"attribute_value"`
}

// TableName specifies the table name for the ProductAttribute model
func (ProductAttribute) TableName() string {
	return "product_attributes"
}

// StoreInventory is the stock count of one product at one store
type StoreInventory struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	StoreID   uint      `gorm:"not null;uniqueIndex:idx_store_product" json:"store_id"`
	ProductID uint      `gorm:"not null;uniqueIndex:idx_store_product;index" json:"product_id"`
	Quantity  int       `gorm:"not null;default:0" json:"quantity"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for the StoreInventory model
func (StoreInventory) TableName() string {
	return "store_inventory"
}

// StoreSeller maps a store to a Telegram account that receives its order notifications
type StoreSeller struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	StoreID     uint      `gorm:"not null;uniqueIndex:idx_store_seller" json:"store_id"`
	TelegramID  int64     `gorm:"not null;uniqueIndex:idx_store_seller;index" json:"telegram_id"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName specifies the table name for the StoreSeller model
func (StoreSeller) TableName() string {
	return "store_sellers"
}

// Setting is a runtime key/value override, e.g. the seller bot token
type Setting struct {
	Key       string    `gorm:"primaryKey;size:64" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for the Setting model
func (Setting) TableName() string {
	return "settings"
}

// SettingBotToken is the settings key holding the seller bot token
const SettingBotToken = "bot_token"
