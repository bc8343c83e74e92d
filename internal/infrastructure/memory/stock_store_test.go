package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	appinventory "github.com/retailcore/backoffice/internal/application/inventory"
	"github.com/retailcore/backoffice/internal/domain/inventory"
	"github.com/retailcore/backoffice/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStockStore_ConditionalDecrement(t *testing.T) {
	store := NewStockStore()
	ctx := context.Background()
	id := uuid.New()
	store.Set(id, 5)

	ok, err := store.DecrementIfAvailable(ctx, id, 3)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.DecrementIfAvailable(ctx, id, 3)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Increment(ctx, id, 1))
	qty, err := store.Quantity(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 3, qty)

	ok, err = store.DecrementIfAvailable(ctx, uuid.New(), 1)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.Quantity(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrProductNotFound)
}

func TestStockStore_SagaLedgerOversell(t *testing.T) {
	store := NewStockStore()
	ledger := appinventory.NewSagaLedger(store, nil)
	id := uuid.New()
	store.Set(id, 5)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, q := range []int{3, 4} {
		wg.Add(1)
		go func(q int) {
			defer wg.Done()
			errs <- ledger.ReserveAndDecrement(context.Background(), []inventory.StockLine{{ProductID: id, Quantity: q}})
		}(q)
	}
	wg.Wait()
	close(errs)

	failures := 0
	for err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, shared.ErrInsufficientStock)
			failures++
		}
	}
	assert.Equal(t, 1, failures)

	qty, err := store.Quantity(context.Background(), id)
	require.NoError(t, err)
	assert.Contains(t, []int{1, 2}, qty)
}
