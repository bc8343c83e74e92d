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

// GormQuoteRepository implements QuoteRepository using GORM
type GormQuoteRepository struct {
	db *gorm.DB
}

// NewGormQuoteRepository creates a new GormQuoteRepository
func NewGormQuoteRepository(db *gorm.DB) *GormQuoteRepository {
	return &GormQuoteRepository{db: db}
}

// FindByID loads a quote with its items
func (r *GormQuoteRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.Quote, error) {
	var model models.QuoteModel
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

// List returns a page of quotes matching the filter
func (r *GormQuoteRepository) List(ctx context.Context, filter trade.QuoteFilter) ([]trade.Quote, int64, error) {
	filtered := func(db *gorm.DB) *gorm.DB {
		if filter.CustomerID != nil {
			db = db.Where("customer_id = ?", *filter.CustomerID)
		}
		if filter.Status != "" {
			db = db.Where("status = ?", string(filter.Status))
		}
		return db
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.QuoteModel{}).Scopes(filtered).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.QuoteModel
	if err := r.db.WithContext(ctx).
		Scopes(filtered).
		Preload("Items").
		Order(orderClause(filter.OrderBy, filter.OrderDir, QuoteSortFields)).
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	quotes := make([]trade.Quote, len(rows))
	for i := range rows {
		quotes[i] = *rows[i].ToDomain()
	}
	return quotes, total, nil
}

// Save inserts a new quote together with its items
func (r *GormQuoteRepository) Save(ctx context.Context, quote *trade.Quote) error {
	return r.db.WithContext(ctx).Create(models.QuoteModelFromDomain(quote)).Error
}

// MarkConverted moves a pending quote to converted in one conditional UPDATE
func (r *GormQuoteRepository) MarkConverted(ctx context.Context, id, saleID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&models.QuoteModel{}).
		Where("id = ? AND status = ?", id, string(trade.QuoteStatusPending)).
		Updates(map[string]any{
			"status":            string(trade.QuoteStatusConverted),
			"converted_sale_id": saleID,
			"updated_at":        time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrInvalidState.WithDetail("quote_id", id.String())
	}
	return nil
}

// ExpirePending marks every pending quote whose window ended before now as expired
func (r *GormQuoteRepository) ExpirePending(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.QuoteModel{}).
		Where("status = ? AND expires_at < ?", string(trade.QuoteStatusPending), now).
		Updates(map[string]any{
			"status":     string(trade.QuoteStatusExpired),
			"updated_at": now,
		})
	return result.RowsAffected, result.Error
}

// Ensure GormQuoteRepository implements QuoteRepository
var _ trade.QuoteRepository = (*GormQuoteRepository)(nil)
