package trade

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/retailcore/backoffice/internal/domain/shared"
)

// SaleFilter narrows sale listings
type SaleFilter struct {
	shared.Filter
	CustomerID *uuid.UUID
	Invoiced   *bool
	From       *time.Time
	To         *time.Time
}

// SaleRepository persists sales and their items
type SaleRepository interface {
	// FindByID loads a sale with its items
	FindByID(ctx context.Context, id uuid.UUID) (*Sale, error)

	// List returns a page of sales, newest first
	List(ctx context.Context, filter SaleFilter) ([]Sale, int64, error)

	// Save inserts a new sale and its items
	Save(ctx context.Context, sale *Sale) error

	// MarkInvoiced writes all fiscal fields in one statement guarded by
	// invoiced = false. It returns ALREADY_INVOICED when no row matched.
	MarkInvoiced(ctx context.Context, id uuid.UUID, data FiscalData) error

	// Discard removes a sale that was never invoiced together with its
	// items. It is a no-op when no such sale exists.
	Discard(ctx context.Context, id uuid.UUID) error
}

// QuoteFilter narrows quote listings
type QuoteFilter struct {
	shared.Filter
	CustomerID *uuid.UUID
	Status     QuoteStatus
}

// QuoteRepository persists quotes and their items
type QuoteRepository interface {
	// FindByID loads a quote with its items
	FindByID(ctx context.Context, id uuid.UUID) (*Quote, error)

	// List returns a page of quotes, newest first
	List(ctx context.Context, filter QuoteFilter) ([]Quote, int64, error)

	// Save inserts a new quote and its items
	Save(ctx context.Context, quote *Quote) error

	// MarkConverted moves a pending quote to converted. It returns
	// INVALID_STATE when the quote was no longer pending.
	MarkConverted(ctx context.Context, id, saleID uuid.UUID) error

	// ExpirePending marks pending quotes whose window ended before now as expired
	ExpirePending(ctx context.Context, now time.Time) (int64, error)
}
