package testutil

import (
	"bytes"
	"mime"
	"mime/multipart"
	"net/textproto"
	"os"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/vapecity/vapecity-api/config"
	"github.com/vapecity/vapecity-api/models"
	"gorm.io/gorm"
)

// RequireTestEnvironment ensures that tests are running in the test environment.
// This prevents accidental execution of tests against production or development databases.
// It will fail the test immediately if GO_ENV is not set to "test".
func RequireTestEnvironment(t *testing.T) {
	t.Helper()

	env := os.Getenv("GO_ENV")
	if env != "test" {
		t.Fatalf("SAFETY CHECK FAILED: Tests must run with GO_ENV=test to prevent data loss. Current GO_ENV=%q. Set GO_ENV=test before running tests.", env)
	}
}

// NewTestDB opens a fresh migrated in-memory sqlite database
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := config.OpenDatabase(":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := models.Migrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// CreateStore inserts an active store
func CreateStore(t *testing.T, db *gorm.DB, name string) models.Store {
	t.Helper()
	store := models.Store{Name: name, Address: name + " street 1", IsActive: true}
	if err := db.Create(&store).Error; err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return store
}

// CreateProduct inserts a product with the given price
func CreateProduct(t *testing.T, db *gorm.DB, name string, price int64) models.Product {
	t.Helper()
	product := models.Product{Name: name, Brand: "TestBrand", Price: decimal.NewFromInt(price)}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("Failed to create product: %v", err)
	}
	return product
}

// SetStock upserts an inventory row
func SetStock(t *testing.T, db *gorm.DB, storeID, productID uint, quantity int) {
	t.Helper()
	row := models.StoreInventory{StoreID: storeID, ProductID: productID, Quantity: quantity}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("Failed to set stock: %v", err)
	}
}

// CreateSeller maps a Telegram account to a store
func CreateSeller(t *testing.T, db *gorm.DB, storeID uint, telegramID int64) models.StoreSeller {
	t.Helper()
	seller := models.StoreSeller{StoreID: storeID, TelegramID: telegramID, Name: "Seller"}
	if err := db.Create(&seller).Error; err != nil {
		t.Fatalf("Failed to create seller: %v", err)
	}
	return seller
}

// MultipartFile builds a multipart body with a single file field
func MultipartFile(t *testing.T, field, filename, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := writer.CreatePart(h)
	if err != nil {
		t.Fatalf("Failed to create form part: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("Failed to write form part: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close multipart writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

// FileHeader builds a parsed multipart.FileHeader for service-level tests
func FileHeader(t *testing.T, filename, contentType string, content []byte) *multipart.FileHeader {
	t.Helper()
	body, ct := MultipartFile(t, "file", filename, contentType, content)

	_, params, err := mime.ParseMediaType(ct)
	if err != nil {
		t.Fatalf("Failed to parse content type: %v", err)
	}
	form, err := multipart.NewReader(body, params["boundary"]).ReadForm(int64(len(content)) + 1024)
	if err != nil {
		t.Fatalf("Failed to parse form: %v", err)
	}
	return form.File["file"][0]
}
