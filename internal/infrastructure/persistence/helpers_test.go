package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/retailcore/backoffice/internal/domain/catalog"
	"github.com/retailcore/backoffice/internal/domain/fiscal"
	"github.com/retailcore/backoffice/internal/domain/partner"
	"github.com/retailcore/backoffice/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an in-memory sqlite database with every table migrated.
// A single connection keeps the in-memory database shared and serializes
// concurrent transactions the way row locks would.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	return db
}

// seedProduct stores an active product with the given stock
func seedProduct(t *testing.T, db *gorm.DB, code string, price string, stock int) *catalog.Product {
	t.Helper()

	p, err := catalog.NewProduct(code, "Product "+code, decimal.RequireFromString(price))
	require.NoError(t, err)
	p.StockQuantity = stock
	p.MinStock = 2
	require.NoError(t, NewGormProductRepository(db).Save(context.Background(), p))
	return p
}

// seedCustomer stores an active customer
func seedCustomer(t *testing.T, db *gorm.DB) *partner.Customer {
	t.Helper()

	c, err := partner.NewCustomer("Kiosco Central", "20-12345678-9", fiscal.TaxConditionRegisteredTaxpayer)
	require.NoError(t, err)
	require.NoError(t, NewGormCustomerRepository(db).Save(context.Background(), c))
	return c
}

// stockOf reads the stock column directly
func stockOf(t *testing.T, db *gorm.DB, id uuid.UUID) int {
	t.Helper()

	var m models.ProductModel
	require.NoError(t, db.First(&m, "id = ?", id).Error)
	return m.StockQuantity
}
