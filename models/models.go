package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func init() {
	// Prices go over the wire as JSON numbers, which is what the mini-app
	// and admin panel expect.
	decimal.MarshalJSONWithoutQuotes = true
}

// All returns every persisted model in migration order
func All() []interface{} {
	return []interface{}{
		&Category{},
		&Store{},
		&Product{},
		&ProductAttribute{},
		&StoreInventory{},
		&User{},
		&Reservation{},
		&ReservationItem{},
		&StoreSeller{},
		&Setting{},
	}
}

// Migrate creates or updates the schema for every model
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(All()...)
}
