package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/retailcore/backoffice/internal/domain/catalog"
	"github.com/retailcore/backoffice/internal/domain/identity"
	"github.com/retailcore/backoffice/internal/domain/inventory"
)

// DefaultLowStockLimit caps the low-stock listing when no limit is given
const DefaultLowStockLimit = 100

// StockService answers stock queries
type StockService struct {
	gate        identity.Gate
	ledger      inventory.Ledger
	productRepo catalog.ProductRepository
}

// NewStockService creates a new StockService
func NewStockService(gate identity.Gate, ledger inventory.Ledger, productRepo catalog.ProductRepository) *StockService {
	return &StockService{
		gate:        gate,
		ledger:      ledger,
		productRepo: productRepo,
	}
}

// CheckAvailability returns the current stock of a product
func (s *StockService) CheckAvailability(ctx context.Context, actor identity.Actor, productID uuid.UUID) (*AvailabilityResponse, error) {
	if err := s.gate.Authorize(ctx, actor, identity.ActionStockRead); err != nil {
		return nil, err
	}

	qty, err := s.ledger.CheckAvailability(ctx, productID)
	if err != nil {
		return nil, err
	}
	return &AvailabilityResponse{ProductID: productID, Quantity: qty}, nil
}

// ListLowStock returns products at or below their minimum stock
func (s *StockService) ListLowStock(ctx context.Context, actor identity.Actor, limit int) ([]LowStockItemResponse, error) {
	if err := s.gate.Authorize(ctx, actor, identity.ActionStockRead); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > DefaultLowStockLimit {
		limit = DefaultLowStockLimit
	}

	products, err := s.productRepo.FindLowStock(ctx, limit)
	if err != nil {
		return nil, err
	}

	items := make([]LowStockItemResponse, 0, len(products))
	for i := range products {
		items = append(items, ToLowStockItemResponse(&products[i]))
	}
	return items, nil
}
