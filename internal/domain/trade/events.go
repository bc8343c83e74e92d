package trade

import (
	"time"

	"github.com/google/uuid"
	"github.com/retailcore/backoffice/internal/domain/fiscal"
	"github.com/retailcore/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Event type constants
const (
	EventTypeSaleCreated   = "SaleCreated"
	EventTypeQuoteCreated  = "QuoteCreated"
	EventTypeInvoiceIssued = "InvoiceIssued"
)

// EventItem is the per-line payload carried in trade events
type EventItem struct {
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

func eventItems(items []LineItem) []EventItem {
	out := make([]EventItem, 0, len(items))
	for _, it := range items {
		out = append(out, EventItem{ProductID: it.ProductID, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	return out
}

// SaleCreatedEvent is raised when a sale is committed
type SaleCreatedEvent struct {
	shared.BaseDomainEvent
	CustomerID    *uuid.UUID      `json:"customer_id,omitempty"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Total         decimal.Decimal `json:"total"`
	Items         []EventItem     `json:"items"`
}

// NewSaleCreatedEvent creates a SaleCreated event
func NewSaleCreatedEvent(s *Sale) *SaleCreatedEvent {
	return &SaleCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSaleCreated, AggregateTypeSale, s.ID, s.Seller.ID),
		CustomerID:      s.CustomerID,
		PaymentMethod:   s.PaymentMethod,
		Total:           s.Total,
		Items:           eventItems(s.Items),
	}
}

// QuoteCreatedEvent is raised when a quote is stored
type QuoteCreatedEvent struct {
	shared.BaseDomainEvent
	CustomerID uuid.UUID       `json:"customer_id"`
	Total      decimal.Decimal `json:"total"`
	ExpiresAt  time.Time       `json:"expires_at"`
}

// NewQuoteCreatedEvent creates a QuoteCreated event
func NewQuoteCreatedEvent(q *Quote) *QuoteCreatedEvent {
	return &QuoteCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeQuoteCreated, AggregateTypeQuote, q.ID, q.Seller.ID),
		CustomerID:      q.CustomerID,
		Total:           q.Total,
		ExpiresAt:       q.ExpiresAt(),
	}
}

// InvoiceIssuedEvent is raised after the authority authorized a sale's voucher
type InvoiceIssuedEvent struct {
	shared.BaseDomainEvent
	VoucherType       fiscal.VoucherType `json:"voucher_type"`
	PointOfSale       int                `json:"point_of_sale"`
	VoucherNumber     int64              `json:"voucher_number"`
	AuthorizationCode string             `json:"authorization_code"`
	Total             decimal.Decimal    `json:"total"`
}

// NewInvoiceIssuedEvent creates an InvoiceIssued event from an invoiced sale
func NewInvoiceIssuedEvent(s *Sale, actorID uuid.UUID) *InvoiceIssuedEvent {
	e := &InvoiceIssuedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceIssued, AggregateTypeSale, s.ID, actorID),
		Total:           s.Total,
	}
	if s.Fiscal != nil {
		e.VoucherType = s.Fiscal.VoucherType
		e.PointOfSale = s.Fiscal.PointOfSale
		e.VoucherNumber = s.Fiscal.VoucherNumber
		e.AuthorizationCode = s.Fiscal.AuthorizationCode
	}
	return e
}
