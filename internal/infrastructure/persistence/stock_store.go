package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/retailcore/backoffice/internal/domain/inventory"
	"github.com/retailcore/backoffice/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormStockStore implements inventory.StockStore with one autocommitted
// statement per call. It backs the saga ledger when the connection pool runs
// in statement mode and multi-statement transactions are unavailable.
type GormStockStore struct {
	db *gorm.DB
}

// NewGormStockStore creates a new GormStockStore
func NewGormStockStore(db *gorm.DB) *GormStockStore {
	return &GormStockStore{db: db.Session(&gorm.Session{SkipDefaultTransaction: true})}
}

// Quantity returns the current stock, PRODUCT_NOT_FOUND if the row is missing
func (s *GormStockStore) Quantity(ctx context.Context, productID uuid.UUID) (int, error) {
	return stockQuantity(s.db.WithContext(ctx), productID)
}

// DecrementIfAvailable runs the conditional UPDATE on its own
func (s *GormStockStore) DecrementIfAvailable(ctx context.Context, productID uuid.UUID, qty int) (bool, error) {
	result := s.db.WithContext(ctx).
		Model(&models.ProductModel{}).
		Where("id = ? AND stock_quantity >= ?", productID, qty).
		Update("stock_quantity", gorm.Expr("stock_quantity - ?", qty))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// Increment adds qty back
func (s *GormStockStore) Increment(ctx context.Context, productID uuid.UUID, qty int) error {
	return s.db.WithContext(ctx).
		Model(&models.ProductModel{}).
		Where("id = ?", productID).
		Update("stock_quantity", gorm.Expr("stock_quantity + ?", qty)).Error
}

// Ensure GormStockStore implements StockStore
var _ inventory.StockStore = (*GormStockStore)(nil)
