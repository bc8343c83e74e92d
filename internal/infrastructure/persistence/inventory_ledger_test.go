package persistence

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/retailcore/backoffice/internal/domain/inventory"
	"github.com/retailcore/backoffice/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const conditionalDecrementSQL = `UPDATE "products" SET "stock_quantity"=stock_quantity - \$1,"updated_at"=\$2 WHERE .*id = \$3 AND stock_quantity >= \$4`

func TestGormInventoryLedger_ConditionalUpdateShape(t *testing.T) {
	t.Run("decrements inside one transaction", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		ledger := NewGormInventoryLedger(db.DB)
		id := uuid.New()

		mock.ExpectBegin()
		mock.ExpectExec(conditionalDecrementSQL).
			WithArgs(3, sqlmock.AnyArg(), id, 3).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := ledger.ReserveAndDecrement(context.Background(), []inventory.StockLine{{ProductID: id, Quantity: 3}})

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("zero rows reports the available quantity and rolls back", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		ledger := NewGormInventoryLedger(db.DB)
		id := uuid.New()

		mock.ExpectBegin()
		mock.ExpectExec(conditionalDecrementSQL).
			WithArgs(4, sqlmock.AnyArg(), id, 4).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT "stock_quantity" FROM "products" WHERE id = \$1`).
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows([]string{"stock_quantity"}).AddRow(2))
		mock.ExpectRollback()

		err := ledger.ReserveAndDecrement(context.Background(), []inventory.StockLine{{ProductID: id, Quantity: 4}})

		var domainErr *shared.DomainError
		require.True(t, errors.As(err, &domainErr))
		assert.Equal(t, shared.CodeInsufficientStock, domainErr.Code)
		assert.Equal(t, id.String(), domainErr.Details["product_id"])
		assert.Equal(t, 2, domainErr.Details["available"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row is product not found", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		ledger := NewGormInventoryLedger(db.DB)
		id := uuid.New()

		mock.ExpectBegin()
		mock.ExpectExec(conditionalDecrementSQL).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT "stock_quantity" FROM "products"`).
			WillReturnRows(sqlmock.NewRows([]string{"stock_quantity"}))
		mock.ExpectRollback()

		err := ledger.ReserveAndDecrement(context.Background(), []inventory.StockLine{{ProductID: id, Quantity: 1}})

		assert.ErrorIs(t, err, shared.ErrProductNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid lines never reach the database", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		ledger := NewGormInventoryLedger(db.DB)

		err := ledger.ReserveAndDecrement(context.Background(), []inventory.StockLine{{ProductID: uuid.New(), Quantity: 0}})

		assert.ErrorIs(t, err, shared.ErrValidation)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormInventoryLedger_AllOrNothing(t *testing.T) {
	db := newTestDB(t)
	ledger := NewGormInventoryLedger(db)
	ctx := context.Background()

	a := seedProduct(t, db, "A-1", "100", 10)
	b := seedProduct(t, db, "B-1", "50", 1)

	err := ledger.ReserveAndDecrement(ctx, []inventory.StockLine{
		{ProductID: a.ID, Quantity: 4},
		{ProductID: b.ID, Quantity: 2},
	})

	assert.ErrorIs(t, err, shared.ErrInsufficientStock)
	assert.Equal(t, 10, stockOf(t, db, a.ID))
	assert.Equal(t, 1, stockOf(t, db, b.ID))

	require.NoError(t, ledger.ReserveAndDecrement(ctx, []inventory.StockLine{
		{ProductID: a.ID, Quantity: 4},
		{ProductID: a.ID, Quantity: 2},
		{ProductID: b.ID, Quantity: 1},
	}))
	assert.Equal(t, 4, stockOf(t, db, a.ID))
	assert.Equal(t, 0, stockOf(t, db, b.ID))

	available, err := ledger.CheckAvailability(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, available)

	_, err = ledger.CheckAvailability(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrProductNotFound)
}

func TestGormInventoryLedger_ConcurrentOversell(t *testing.T) {
	db := newTestDB(t)
	ledger := NewGormInventoryLedger(db)
	p := seedProduct(t, db, "P-5", "10", 5)

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for _, qty := range []int{3, 4} {
		wg.Add(1)
		go func(q int) {
			defer wg.Done()
			results <- ledger.ReserveAndDecrement(context.Background(), []inventory.StockLine{{ProductID: p.ID, Quantity: q}})
		}(qty)
	}
	wg.Wait()
	close(results)

	var succeeded, rejected int
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, shared.ErrInsufficientStock)
		rejected++
	}

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, rejected)
	assert.Contains(t, []int{1, 2}, stockOf(t, db, p.ID))
}

func TestGormInventoryLedger_ConcurrentDisjointProducts(t *testing.T) {
	db := newTestDB(t)
	ledger := NewGormInventoryLedger(db)

	const workers = 8
	ids := make([]uuid.UUID, workers)
	for i := range ids {
		ids[i] = seedProduct(t, db, uuid.NewString()[:8], "10", 20).ID
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				assert.NoError(t, ledger.ReserveAndDecrement(context.Background(), []inventory.StockLine{{ProductID: id, Quantity: 3}}))
			}
		}(ids[i])
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, 5, stockOf(t, db, id))
	}
}
