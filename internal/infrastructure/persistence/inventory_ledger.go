package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/retailcore/backoffice/internal/domain/inventory"
	"github.com/retailcore/backoffice/internal/domain/shared"
	"github.com/retailcore/backoffice/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormInventoryLedger implements inventory.Ledger on products.stock_quantity.
// Every decrement is a single conditional UPDATE; the row lock it takes
// serializes concurrent sales of the same product.
type GormInventoryLedger struct {
	db *gorm.DB
}

// NewGormInventoryLedger creates a new GormInventoryLedger
func NewGormInventoryLedger(db *gorm.DB) *GormInventoryLedger {
	return &GormInventoryLedger{db: db}
}

// CheckAvailability returns the current stock of a product
func (l *GormInventoryLedger) CheckAvailability(ctx context.Context, productID uuid.UUID) (int, error) {
	return stockQuantity(l.db.WithContext(ctx), productID)
}

// ReserveAndDecrement applies all lines in one transaction (a savepoint when
// the ledger is already bound to one). The first line that matches no row
// aborts the whole call with INSUFFICIENT_STOCK.
func (l *GormInventoryLedger) ReserveAndDecrement(ctx context.Context, lines []inventory.StockLine) error {
	normalized, err := inventory.NormalizeLines(lines)
	if err != nil {
		return err
	}

	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, line := range normalized {
			result := tx.Model(&models.ProductModel{}).
				Where("id = ? AND stock_quantity >= ?", line.ProductID, line.Quantity).
				Update("stock_quantity", gorm.Expr("stock_quantity - ?", line.Quantity))
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				available, err := stockQuantity(tx, line.ProductID)
				if err != nil {
					return err
				}
				return shared.NewInsufficientStockError(line.ProductID, available)
			}
		}
		return nil
	})
}

// stockQuantity reads the stock of one product, PRODUCT_NOT_FOUND if the row is missing
func stockQuantity(db *gorm.DB, productID uuid.UUID) (int, error) {
	var quantities []int
	if err := db.Model(&models.ProductModel{}).
		Where("id = ?", productID).
		Pluck("stock_quantity", &quantities).Error; err != nil {
		return 0, err
	}
	if len(quantities) == 0 {
		return 0, shared.NewProductNotFoundError(productID)
	}
	return quantities[0], nil
}

// Ensure GormInventoryLedger implements Ledger
var _ inventory.Ledger = (*GormInventoryLedger)(nil)
