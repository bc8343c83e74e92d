// Package memory holds process-local stores for single-node runs and tests.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/retailcore/backoffice/internal/domain/inventory"
	"github.com/retailcore/backoffice/internal/domain/shared"
)

// StockStore keeps product stock in a map. Each call holds the lock for its
// own row only, which is the contract SagaLedger is written against.
type StockStore struct {
	mu    sync.Mutex
	stock map[uuid.UUID]int
}

// NewStockStore creates an empty StockStore
func NewStockStore() *StockStore {
	return &StockStore{stock: make(map[uuid.UUID]int)}
}

// Set registers a product with the given quantity
func (s *StockStore) Set(productID uuid.UUID, qty int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stock[productID] = qty
}

// Quantity returns the current stock
func (s *StockStore) Quantity(ctx context.Context, productID uuid.UUID) (int, error) {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	qty, ok := s.stock[productID]
	if !ok {
		return 0, shared.NewProductNotFoundError(productID)
	}
	return qty, nil
}

// DecrementIfAvailable subtracts qty when enough stock remains
func (s *StockStore) DecrementIfAvailable(ctx context.Context, productID uuid.UUID, qty int) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.stock[productID]
	if !ok || current < qty {
		return false, nil
	}
	s.stock[productID] = current - qty
	return true, nil
}

// Increment adds qty back
func (s *StockStore) Increment(ctx context.Context, productID uuid.UUID, qty int) error {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.stock[productID]; !ok {
		return shared.NewProductNotFoundError(productID)
	}
	s.stock[productID] += qty
	return nil
}

var _ inventory.StockStore = (*StockStore)(nil)
