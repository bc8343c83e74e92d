package trade

import (
	"time"

	"github.com/google/uuid"
	"github.com/retailcore/backoffice/internal/domain/inventory"
	"github.com/retailcore/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AggregateTypeQuote is the aggregate type name for quotes
const AggregateTypeQuote = "Quote"

// Validity window limits, in days
const (
	DefaultValidityDays = 15
	MinValidityDays     = 1
	MaxValidityDays     = 365
)

// QuoteStatus represents the lifecycle of a quote
type QuoteStatus string

const (
	QuoteStatusPending   QuoteStatus = "pending"
	QuoteStatusConverted QuoteStatus = "converted"
	QuoteStatusExpired   QuoteStatus = "expired"
)

// IsValid checks if the status is a valid QuoteStatus
func (s QuoteStatus) IsValid() bool {
	switch s {
	case QuoteStatusPending, QuoteStatusConverted, QuoteStatusExpired:
		return true
	}
	return false
}

// Quote is a priced offer to a customer. It never touches stock and its
// items are fixed once created.
type Quote struct {
	shared.BaseAggregateRoot
	CustomerID      uuid.UUID
	Seller          Seller
	Notes           string
	ValidityDays    int
	Status          QuoteStatus
	ConvertedSaleID *uuid.UUID
	Items           []LineItem
	Subtotal        decimal.Decimal
	Total           decimal.Decimal
}

// NewQuote creates a pending quote. A zero validity uses the default window.
func NewQuote(seller Seller, customerID uuid.UUID, validityDays int, notes string, items []LineItem) (*Quote, error) {
	if seller.ID == uuid.Nil {
		return nil, shared.NewValidationError("seller_id", "Seller is required")
	}
	if customerID == uuid.Nil {
		return nil, shared.NewValidationError("customer_id", "Customer is required for a quote")
	}
	if validityDays == 0 {
		validityDays = DefaultValidityDays
	}
	if validityDays < MinValidityDays || validityDays > MaxValidityDays {
		return nil, shared.NewValidationError("validity_days", "Validity must be between 1 and 365 days")
	}
	if len(items) == 0 {
		return nil, shared.NewValidationError("items", "At least one item is required")
	}

	subtotal := sumSubtotals(items)
	quote := &Quote{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		CustomerID:        customerID,
		Seller:            seller,
		Notes:             notes,
		ValidityDays:      validityDays,
		Status:            QuoteStatusPending,
		Items:             items,
		Subtotal:          subtotal,
		Total:             subtotal,
	}

	quote.AddDomainEvent(NewQuoteCreatedEvent(quote))
	return quote, nil
}

// ExpiresAt returns the end of the validity window
func (q *Quote) ExpiresAt() time.Time {
	return q.CreatedAt.AddDate(0, 0, q.ValidityDays)
}

// Expired reports whether a pending quote is past its validity window
func (q *Quote) Expired(now time.Time) bool {
	return q.Status == QuoteStatusPending && now.After(q.ExpiresAt())
}

// StockLines returns the quantities a conversion would take from the ledger
func (q *Quote) StockLines() []inventory.StockLine {
	return stockLines(q.Items)
}

// ConvertToSale builds a sale carrying the quoted prices and marks the quote
// converted. Only a pending quote inside its validity window converts.
func (q *Quote) ConvertToSale(seller Seller, method PaymentMethod, now time.Time) (*Sale, error) {
	if q.Status != QuoteStatusPending {
		return nil, shared.ErrInvalidState.WithDetail("status", string(q.Status))
	}
	if q.Expired(now) {
		return nil, shared.ErrInvalidState.WithDetail("status", string(QuoteStatusExpired))
	}

	customerID := q.CustomerID
	sale, err := NewSale(seller, &customerID, method, q.Notes, copyItems(q.Items))
	if err != nil {
		return nil, err
	}

	saleID := sale.ID
	q.Status = QuoteStatusConverted
	q.ConvertedSaleID = &saleID
	q.Touch()
	return sale, nil
}
