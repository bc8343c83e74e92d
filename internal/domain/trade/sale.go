package trade

import (
	"time"

	"github.com/google/uuid"
	"github.com/retailcore/backoffice/internal/domain/fiscal"
	"github.com/retailcore/backoffice/internal/domain/inventory"
	"github.com/retailcore/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AggregateTypeSale is the aggregate type name for sales
const AggregateTypeSale = "Sale"

// PaymentMethod is how the buyer paid
type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "cash"
	PaymentMethodCard     PaymentMethod = "card"
	PaymentMethodTransfer PaymentMethod = "transfer"
)

// IsValid checks if the payment method is supported
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodTransfer:
		return true
	}
	return false
}

// Seller identifies the user recording a sale or quote
type Seller struct {
	ID   uuid.UUID
	Name string
}

// FiscalData is the authority's record of an invoiced sale
type FiscalData struct {
	VoucherType         fiscal.VoucherType
	PointOfSale         int
	VoucherNumber       int64
	AuthorizationCode   string
	AuthorizationExpiry time.Time
	InvoicedAt          time.Time
}

// Sale is a completed sale. Stock for its items was decremented in the same
// transaction that stored it. Fiscal data is set at most once.
type Sale struct {
	shared.BaseAggregateRoot
	CustomerID    *uuid.UUID
	Seller        Seller
	PaymentMethod PaymentMethod
	Notes         string
	Items         []LineItem
	Subtotal      decimal.Decimal
	Total         decimal.Decimal
	Invoiced      bool
	Fiscal        *FiscalData
}

// NewSale creates a sale from priced items
func NewSale(seller Seller, customerID *uuid.UUID, method PaymentMethod, notes string, items []LineItem) (*Sale, error) {
	if seller.ID == uuid.Nil {
		return nil, shared.NewValidationError("seller_id", "Seller is required")
	}
	if !method.IsValid() {
		return nil, shared.NewValidationError("payment_method", "Payment method must be cash, card or transfer")
	}
	if len(items) == 0 {
		return nil, shared.NewValidationError("items", "At least one item is required")
	}
	if customerID != nil && *customerID == uuid.Nil {
		customerID = nil
	}

	subtotal := sumSubtotals(items)
	sale := &Sale{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		CustomerID:        customerID,
		Seller:            seller,
		PaymentMethod:     method,
		Notes:             notes,
		Items:             items,
		Subtotal:          subtotal,
		Total:             subtotal,
	}

	sale.AddDomainEvent(NewSaleCreatedEvent(sale))
	return sale, nil
}

// StockLines returns the quantities to take from the ledger
func (s *Sale) StockLines() []inventory.StockLine {
	return stockLines(s.Items)
}

// TaxableLines returns each item's gross amount and rate for the VAT breakdown
func (s *Sale) TaxableLines() []fiscal.TaxableLine {
	lines := make([]fiscal.TaxableLine, 0, len(s.Items))
	for _, it := range s.Items {
		lines = append(lines, fiscal.TaxableLine{Gross: it.Subtotal, Rate: it.TaxRate})
	}
	return lines
}

// MarkInvoiced records the authority's authorization. It fails with
// ALREADY_INVOICED when fiscal data is already present.
func (s *Sale) MarkInvoiced(data FiscalData, actorID uuid.UUID) error {
	if s.Invoiced {
		return shared.ErrAlreadyInvoiced
	}
	if data.AuthorizationCode == "" {
		return shared.NewValidationError("authorization_code", "Authorization code is required")
	}
	if data.InvoicedAt.IsZero() {
		data.InvoicedAt = time.Now()
	}

	s.Invoiced = true
	s.Fiscal = &data
	s.Touch()
	s.AddDomainEvent(NewInvoiceIssuedEvent(s, actorID))
	return nil
}

// ItemCount returns the number of lines
func (s *Sale) ItemCount() int {
	return len(s.Items)
}
