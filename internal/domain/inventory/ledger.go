// Package inventory holds the stock ledger port. Product stock is the only
// quantity it tracks; all mutations go through a Ledger.
package inventory

import (
	"bytes"
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/retailcore/backoffice/internal/domain/shared"
)

// StockLine is a requested quantity of one product
type StockLine struct {
	ProductID uuid.UUID
	Quantity  int
}

// Ledger is the authoritative stock counter per product.
//
// ReserveAndDecrement is all-or-nothing: each line is applied as a conditional
// update that only subtracts when enough stock remains. If any line matches no
// row, the call fails with an INSUFFICIENT_STOCK error naming that product and
// no decrement from the call remains visible.
type Ledger interface {
	// CheckAvailability returns the current stock of a product
	CheckAvailability(ctx context.Context, productID uuid.UUID) (int, error)

	// ReserveAndDecrement subtracts every line or none
	ReserveAndDecrement(ctx context.Context, lines []StockLine) error
}

// StockStore is a per-row stock store without multi-row transactions.
// Each call is atomic on its own.
type StockStore interface {
	// Quantity returns the current stock, or PRODUCT_NOT_FOUND
	Quantity(ctx context.Context, productID uuid.UUID) (int, error)

	// DecrementIfAvailable subtracts qty only when stock >= qty.
	// It returns false without error when the condition did not hold.
	DecrementIfAvailable(ctx context.Context, productID uuid.UUID, qty int) (bool, error)

	// Increment adds qty back
	Increment(ctx context.Context, productID uuid.UUID, qty int) error
}

// NormalizeLines validates quantities, merges lines of the same product and
// orders them by product id. A fixed order keeps concurrent multi-product
// decrements from locking rows in opposite order.
func NormalizeLines(lines []StockLine) ([]StockLine, error) {
	if len(lines) == 0 {
		return nil, shared.NewValidationError("items", "At least one item is required")
	}

	merged := make(map[uuid.UUID]int, len(lines))
	for _, l := range lines {
		if l.ProductID == uuid.Nil {
			return nil, shared.NewValidationError("product_id", "Product ID cannot be empty")
		}
		if l.Quantity <= 0 {
			return nil, shared.NewValidationError("quantity", "Quantity must be positive")
		}
		merged[l.ProductID] += l.Quantity
	}

	out := make([]StockLine, 0, len(merged))
	for id, qty := range merged {
		out = append(out, StockLine{ProductID: id, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].ProductID[:], out[j].ProductID[:]) < 0
	})
	return out, nil
}
