package catalog

import (
	"context"

	"github.com/google/uuid"
)

// ProductRepository is the read side of the catalog used by the order flow
type ProductRepository interface {
	// FindByID finds a product by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// FindByIDs finds multiple products by their IDs; missing IDs are simply absent
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error)

	// FindLowStock returns active products whose stock is at or below their minimum
	FindLowStock(ctx context.Context, limit int) ([]Product, error)

	// Save creates or updates a product
	Save(ctx context.Context, product *Product) error
}
