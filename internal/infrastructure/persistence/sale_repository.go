package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/retailcore/backoffice/internal/domain/shared"
	"github.com/retailcore/backoffice/internal/domain/trade"
	"github.com/retailcore/backoffice/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormSaleRepository implements SaleRepository using GORM
type GormSaleRepository struct {
	db *gorm.DB
}

// NewGormSaleRepository creates a new GormSaleRepository
func NewGormSaleRepository(db *gorm.DB) *GormSaleRepository {
	return &GormSaleRepository{db: db}
}

// FindByID loads a sale with its items
func (r *GormSaleRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.Sale, error) {
	var model models.SaleModel
	if err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("product_code ASC") }).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// List returns a page of sales matching the filter
func (r *GormSaleRepository) List(ctx context.Context, filter trade.SaleFilter) ([]trade.Sale, int64, error) {
	filtered := func(db *gorm.DB) *gorm.DB {
		if filter.CustomerID != nil {
			db = db.Where("customer_id = ?", *filter.CustomerID)
		}
		if filter.Invoiced != nil {
			db = db.Where("invoiced = ?", *filter.Invoiced)
		}
		if filter.From != nil {
			db = db.Where("created_at >= ?", *filter.From)
		}
		if filter.To != nil {
			db = db.Where("created_at <= ?", *filter.To)
		}
		return db
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.SaleModel{}).Scopes(filtered).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.SaleModel
	if err := r.db.WithContext(ctx).
		Scopes(filtered).
		Preload("Items").
		Order(orderClause(filter.OrderBy, filter.OrderDir, SaleSortFields)).
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	sales := make([]trade.Sale, len(rows))
	for i := range rows {
		sales[i] = *rows[i].ToDomain()
	}
	return sales, total, nil
}

// Save inserts a new sale together with its items
func (r *GormSaleRepository) Save(ctx context.Context, sale *trade.Sale) error {
	return r.db.WithContext(ctx).Create(models.SaleModelFromDomain(sale)).Error
}

// MarkInvoiced writes every fiscal column in one UPDATE guarded by invoiced = false.
// When no row matches it tells a missing sale apart from one already invoiced.
func (r *GormSaleRepository) MarkInvoiced(ctx context.Context, id uuid.UUID, data trade.FiscalData) error {
	if data.InvoicedAt.IsZero() {
		data.InvoicedAt = time.Now()
	}
	var fiscalCols models.SaleModel
	fiscalCols.ApplyFiscal(data)

	result := r.db.WithContext(ctx).
		Model(&models.SaleModel{}).
		Where("id = ? AND invoiced = ?", id, false).
		Updates(map[string]any{
			"invoiced":             true,
			"voucher_type":         fiscalCols.VoucherType,
			"point_of_sale":        fiscalCols.PointOfSale,
			"voucher_number":       fiscalCols.VoucherNumber,
			"authorization_code":   fiscalCols.AuthorizationCode,
			"authorization_expiry": fiscalCols.AuthorizationExpiry,
			"invoiced_at":          fiscalCols.InvoicedAt,
			"updated_at":           data.InvoicedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&models.SaleModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return shared.ErrNotFound
	}
	return shared.ErrAlreadyInvoiced.WithDetail("sale_id", id.String())
}

// Discard deletes an uninvoiced sale and its items. Items go first so the
// call works without ON DELETE CASCADE and without a surrounding transaction.
func (r *GormSaleRepository) Discard(ctx context.Context, id uuid.UUID) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.SaleModel{}).
		Where("id = ? AND invoiced = ?", id, true).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return shared.ErrAlreadyInvoiced.WithDetail("sale_id", id.String())
	}

	if err := r.db.WithContext(ctx).Where("sale_id = ?", id).Delete(&models.SaleItemModel{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Where("id = ? AND invoiced = ?", id, false).
		Delete(&models.SaleModel{}).Error
}

// Ensure GormSaleRepository implements SaleRepository
var _ trade.SaleRepository = (*GormSaleRepository)(nil)
