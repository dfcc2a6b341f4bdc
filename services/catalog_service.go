package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/vapecity/vapecity-api/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// DefaultProductLimit applies when the caller sends no limit
	DefaultProductLimit = 50
	// MaxProductLimit caps the limit query parameter
	MaxProductLimit = 200
)

// ProductFilter narrows the public product listing
type ProductFilter struct {
	CategorySlug string
	StoreID      uint
	Search       string
	Nicotine     string
	Limit        int
}

// ProductRow is a product joined with its category
type ProductRow struct {
	models.Product
	CategoryName string `json:"category_name"`
	CategorySlug string `json:"category_slug"`
	CategoryIcon string `json:"category_icon"`
	Quantity     *int   `json:"quantity,omitempty"`
}

// ClampLimit normalises a requested page size
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultProductLimit
	}
	if limit > MaxProductLimit {
		return MaxProductLimit
	}
	return limit
}

// ListProducts returns products matching filter, newest first
func ListProducts(ctx context.Context, db *gorm.DB, filter ProductFilter) ([]ProductRow, error) {
	q := db.WithContext(ctx).Table("products AS p").
		Select("p.*, c.name AS category_name, c.slug AS category_slug, c.icon AS category_icon").
		Joins("LEFT JOIN categories c ON c.id = p.category_id")

	if filter.CategorySlug != "" {
		q = q.Where("c.slug = ?", filter.CategorySlug)
	}
	if filter.StoreID != 0 {
		q = q.Joins("JOIN store_inventory si ON si.product_id = p.id AND si.store_id = ?", filter.StoreID).
			Where("si.quantity > 0").
			Select("p.*, c.name AS category_name, c.slug AS category_slug, c.icon AS category_icon, si.quantity AS quantity")
	}
	if filter.Search != "" {
		q = applySearch(q, filter.Search)
	}
	if filter.Nicotine != "" {
		q = q.Where("EXISTS (SELECT 1 FROM product_attributes pa WHERE pa.product_id = p.id AND pa.attribute_name = ? AND pa.attribute_value = ?)",
			"nicotine", filter.Nicotine)
	}

	var rows []ProductRow
	if err := q.Order("p.created_at DESC, p.id DESC").Limit(ClampLimit(filter.Limit)).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return rows, nil
}

// applySearch matches name or brand case-insensitively. sqlite's LOWER only
// folds ASCII, so for sqlite every case variant the admin is likely to type
// (as typed, lower, upper, capitalised) is matched instead.
func applySearch(q *gorm.DB, search string) *gorm.DB {
	if q.Dialector.Name() == "postgres" {
		pattern := "%" + search + "%"
		return q.Where("p.name ILIKE ? OR p.brand ILIKE ?", pattern, pattern)
	}

	variants := caseVariants(search)
	var clauses []string
	var args []interface{}
	for _, v := range variants {
		clauses = append(clauses, "p.name LIKE ? OR p.brand LIKE ?")
		args = append(args, "%"+v+"%", "%"+v+"%")
	}
	return q.Where(strings.Join(clauses, " OR "), args...)
}

func caseVariants(s string) []string {
	lower := strings.ToLower(s)
	candidates := []string{s, lower, strings.ToUpper(s), capitalize(lower)}

	seen := make(map[string]bool, len(candidates))
	out := candidates[:0]
	for _, c := range candidates {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// ProductStock is the quantity of one product at one store
type ProductStock struct {
	StoreID   uint   `json:"store_id"`
	StoreName string `json:"store_name"`
	Address   string `json:"address"`
	Quantity  int    `json:"quantity"`
}

// ProductDetails is a product page: the product, its attributes and the
// stores that have it in stock
type ProductDetails struct {
	ProductRow
	Attributes   []models.ProductAttribute `json:"attributes"`
	Availability []ProductStock            `json:"availability"`
}

// GetProductDetails loads one product for the product page
func GetProductDetails(ctx context.Context, db *gorm.DB, productID uint) (*ProductDetails, error) {
	var rows []ProductRow
	err := db.WithContext(ctx).Table("products AS p").
		Select("p.*, c.name AS category_name, c.slug AS category_slug, c.icon AS category_icon").
		Joins("LEFT JOIN categories c ON c.id = p.category_id").
		Where("p.id = ?", productID).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("product: %w", ErrNotFound)
	}

	d := &ProductDetails{
		ProductRow:   rows[0],
		Attributes:   []models.ProductAttribute{},
		Availability: []ProductStock{},
	}
	if err := db.WithContext(ctx).Where("product_id = ?", productID).Order("id").Find(&d.Attributes).Error; err != nil {
		return nil, fmt.Errorf("failed to load attributes: %w", err)
	}
	err = db.WithContext(ctx).Table("store_inventory AS si").
		Select("s.id AS store_id, s.name AS store_name, s.address, si.quantity").
		Joins("JOIN stores s ON s.id = si.store_id").
		Where("si.product_id = ? AND si.quantity > 0 AND s.is_active = ?", productID, true).
		Order("s.id").
		Scan(&d.Availability).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load availability: %w", err)
	}
	return d, nil
}

// StoreAvailability reports how much of a cart one store can serve
type StoreAvailability struct {
	StoreID        uint                    `json:"store_id"`
	StoreName      string                  `json:"store_name"`
	Address        string                  `json:"address"`
	AvailableCount int                     `json:"available_count"`
	TotalRequested int                     `json:"total_requested"`
	Products       []models.StoreInventory `json:"products"`
}

// CheckAvailability counts, for every active store, the distinct requested
// product ids that have a strictly positive inventory row there. Nothing is
// reserved or locked.
func CheckAvailability(ctx context.Context, db *gorm.DB, productIDs []uint) ([]StoreAvailability, error) {
	ids := distinct(productIDs)

	var stores []models.Store
	if err := db.WithContext(ctx).Where("is_active = ?", true).Order("id").Find(&stores).Error; err != nil {
		return nil, fmt.Errorf("failed to list stores: %w", err)
	}

	var stock []models.StoreInventory
	if len(ids) > 0 {
		if err := db.WithContext(ctx).Where("product_id IN ? AND quantity > 0", ids).Find(&stock).Error; err != nil {
			return nil, fmt.Errorf("failed to load inventory: %w", err)
		}
	}

	byStore := make(map[uint][]models.StoreInventory)
	for _, row := range stock {
		byStore[row.StoreID] = append(byStore[row.StoreID], row)
	}

	result := make([]StoreAvailability, 0, len(stores))
	for _, s := range stores {
		rows := byStore[s.ID]
		if rows == nil {
			rows = []models.StoreInventory{}
		}
		result = append(result, StoreAvailability{
			StoreID:        s.ID,
			StoreName:      s.Name,
			Address:        s.Address,
			AvailableCount: len(rows),
			TotalRequested: len(ids),
			Products:       rows,
		})
	}
	return result, nil
}

func distinct(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id != 0 && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// StoreStock is an inventory row joined with product data
type StoreStock struct {
	ProductID uint   `json:"product_id"`
	Name      string `json:"name"`
	Brand     string `json:"brand"`
	ImageURL  string `json:"image_url"`
	Quantity  int    `json:"quantity"`
}

// ListStoreStock returns a store's inventory; inStockOnly drops zero rows
func ListStoreStock(ctx context.Context, db *gorm.DB, storeID uint, inStockOnly bool) ([]StoreStock, error) {
	q := db.WithContext(ctx).Table("store_inventory AS si").
		Select("si.product_id, p.name, p.brand, p.image_url, si.quantity").
		Joins("JOIN products p ON p.id = si.product_id").
		Where("si.store_id = ?", storeID)
	if inStockOnly {
		q = q.Where("si.quantity > 0")
	}

	rows := []StoreStock{}
	if err := q.Order("p.name").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load inventory: %w", err)
	}
	return rows, nil
}

// ListStoreInventory returns every product with its quantity at the store,
// zero for products the store never stocked. Used by the admin stock editor.
func ListStoreInventory(ctx context.Context, db *gorm.DB, storeID uint) ([]StoreStock, error) {
	if err := requireExists(ctx, db, &models.Store{}, storeID); err != nil {
		return nil, err
	}

	rows := []StoreStock{}
	err := db.WithContext(ctx).Table("products AS p").
		Select("p.id AS product_id, p.name, p.brand, p.image_url, COALESCE(si.quantity, 0) AS quantity").
		Joins("LEFT JOIN store_inventory si ON si.product_id = p.id AND si.store_id = ?", storeID).
		Order("p.name").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load inventory: %w", err)
	}
	return rows, nil
}

// SetInventory upserts the quantity of a product at a store
func SetInventory(ctx context.Context, db *gorm.DB, storeID, productID uint, quantity int) (*models.StoreInventory, error) {
	if quantity < 0 {
		return nil, validationErrorf("quantity must not be negative")
	}
	if err := requireExists(ctx, db, &models.Store{}, storeID); err != nil {
		return nil, err
	}
	if err := requireExists(ctx, db, &models.Product{}, productID); err != nil {
		return nil, err
	}

	row := models.StoreInventory{StoreID: storeID, ProductID: productID, Quantity: quantity}
	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "store_id"}, {Name: "product_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"quantity", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return nil, fmt.Errorf("failed to update inventory: %w", err)
	}

	if err := db.WithContext(ctx).Where("store_id = ? AND product_id = ?", storeID, productID).First(&row).Error; err != nil {
		return nil, fmt.Errorf("failed to reload inventory: %w", err)
	}
	return &row, nil
}

// AttributeInput is one name/value pair from the admin editor
type AttributeInput struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ReplaceAttributes deletes every attribute of the product and inserts the
// given ones, skipping pairs with an empty name or value.
func ReplaceAttributes(ctx context.Context, db *gorm.DB, productID uint, attrs []AttributeInput) ([]models.ProductAttribute, error) {
	if err := requireExists(ctx, db, &models.Product{}, productID); err != nil {
		return nil, err
	}

	rows := make([]models.ProductAttribute, 0, len(attrs))
	for _, a := range attrs {
		name, value := strings.TrimSpace(a.Name), strings.TrimSpace(a.Value)
		if name == "" || value == "" {
			continue
		}
		rows = append(rows, models.ProductAttribute{ProductID: productID, Name: name, Value: value})
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", productID).Delete(&models.ProductAttribute{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to replace attributes: %w", err)
	}
	return rows, nil
}

// DeleteProduct removes a product with its inventory and attribute rows and
// its stored image. Reservation items keep their snapshot.
func DeleteProduct(ctx context.Context, db *gorm.DB, storage FileStorage, productID uint) error {
	var product models.Product
	if err := db.WithContext(ctx).First(&product, productID).Error; err != nil {
		return notFoundOr(err, "product")
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", productID).Delete(&models.StoreInventory{}).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", productID).Delete(&models.ProductAttribute{}).Error; err != nil {
			return err
		}
		return tx.Delete(&product).Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	if key := KeyFromURL(product.ImageURL); key != "" && storage != nil {
		if err := storage.Delete(ctx, key); err != nil {
			logger().Warn("failed to delete product image", "product_id", productID, "key", key, "error", err)
		}
	}
	return nil
}

// DeleteStore removes a store with its inventory and seller mappings.
// Reservations keep their store id.
func DeleteStore(ctx context.Context, db *gorm.DB, storeID uint) error {
	if err := requireExists(ctx, db, &models.Store{}, storeID); err != nil {
		return err
	}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("store_id = ?", storeID).Delete(&models.StoreInventory{}).Error; err != nil {
			return err
		}
		if err := tx.Where("store_id = ?", storeID).Delete(&models.StoreSeller{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Store{}, storeID).Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete store: %w", err)
	}
	return nil
}

// DeleteCategory removes a category and clears the reference on its products
func DeleteCategory(ctx context.Context, db *gorm.DB, categoryID uint) error {
	if err := requireExists(ctx, db, &models.Category{}, categoryID); err != nil {
		return err
	}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Product{}).Where("category_id = ?", categoryID).Update("category_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Category{}, categoryID).Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	return nil
}

func requireExists(ctx context.Context, db *gorm.DB, model interface{}, id uint) error {
	var count int64
	if err := db.WithContext(ctx).Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}

func notFoundOr(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("failed to load %s: %w", what, err)
}
