package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/retailcore/backoffice/internal/domain/fiscal"
	"github.com/retailcore/backoffice/internal/domain/shared"
	"github.com/retailcore/backoffice/internal/domain/trade"
	"github.com/shopspring/decimal"
)

// SaleModel is the persistence model for the Sale aggregate root.
// Fiscal columns stay NULL until the sale is invoiced.
type SaleModel struct {
	BaseModel
	CustomerID          *uuid.UUID      `gorm:"type:uuid;index"`
	SellerID            uuid.UUID       `gorm:"type:uuid;not null;index"`
	SellerName          string          `gorm:"type:varchar(200)"`
	PaymentMethod       string          `gorm:"type:varchar(20);not null"`
	Notes               string          `gorm:"type:text"`
	Subtotal            decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Total               decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Invoiced            bool            `gorm:"not null;default:false;index"`
	VoucherType         *int            `gorm:"type:integer"`
	PointOfSale         *int            `gorm:"type:integer"`
	VoucherNumber       *int64          `gorm:"type:bigint"`
	AuthorizationCode   *string         `gorm:"type:varchar(20)"`
	AuthorizationExpiry *time.Time
	InvoicedAt          *time.Time
	Items               []SaleItemModel `gorm:"foreignKey:SaleID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (SaleModel) TableName() string {
	return "sales"
}

// ToDomain converts the persistence model to a domain Sale aggregate.
func (m *SaleModel) ToDomain() *trade.Sale {
	sale := &trade.Sale{
		BaseAggregateRoot: shared.BaseAggregateRoot{BaseEntity: m.BaseModel.ToDomain()},
		CustomerID:        m.CustomerID,
		Seller:            trade.Seller{ID: m.SellerID, Name: m.SellerName},
		PaymentMethod:     trade.PaymentMethod(m.PaymentMethod),
		Notes:             m.Notes,
		Subtotal:          m.Subtotal,
		Total:             m.Total,
		Invoiced:          m.Invoiced,
		Items:             make([]trade.LineItem, 0, len(m.Items)),
	}
	for _, item := range m.Items {
		sale.Items = append(sale.Items, item.ToDomain())
	}
	if m.Invoiced && m.AuthorizationCode != nil {
		sale.Fiscal = &trade.FiscalData{
			VoucherType:       fiscal.VoucherType(derefInt(m.VoucherType)),
			PointOfSale:       derefInt(m.PointOfSale),
			AuthorizationCode: *m.AuthorizationCode,
		}
		if m.VoucherNumber != nil {
			sale.Fiscal.VoucherNumber = *m.VoucherNumber
		}
		if m.AuthorizationExpiry != nil {
			sale.Fiscal.AuthorizationExpiry = *m.AuthorizationExpiry
		}
		if m.InvoicedAt != nil {
			sale.Fiscal.InvoicedAt = *m.InvoicedAt
		}
	}
	return sale
}

// FromDomain populates the persistence model from a domain Sale aggregate.
func (m *SaleModel) FromDomain(s *trade.Sale) {
	m.FromDomainBaseEntity(s.BaseEntity)
	m.CustomerID = s.CustomerID
	m.SellerID = s.Seller.ID
	m.SellerName = s.Seller.Name
	m.PaymentMethod = string(s.PaymentMethod)
	m.Notes = s.Notes
	m.Subtotal = s.Subtotal
	m.Total = s.Total
	m.Invoiced = s.Invoiced
	m.Items = make([]SaleItemModel, 0, len(s.Items))
	for _, item := range s.Items {
		m.Items = append(m.Items, SaleItemModelFromDomain(s.ID, item))
	}
	if s.Fiscal != nil {
		m.ApplyFiscal(*s.Fiscal)
	}
}

// ApplyFiscal sets the fiscal columns from authority data.
func (m *SaleModel) ApplyFiscal(data trade.FiscalData) {
	voucherType := int(data.VoucherType)
	pointOfSale := data.PointOfSale
	number := data.VoucherNumber
	code := data.AuthorizationCode
	expiry := data.AuthorizationExpiry
	invoicedAt := data.InvoicedAt

	m.VoucherType = &voucherType
	m.PointOfSale = &pointOfSale
	m.VoucherNumber = &number
	m.AuthorizationCode = &code
	m.AuthorizationExpiry = &expiry
	m.InvoicedAt = &invoicedAt
}

// SaleModelFromDomain creates a new persistence model from a domain Sale aggregate.
func SaleModelFromDomain(s *trade.Sale) *SaleModel {
	m := &SaleModel{}
	m.FromDomain(s)
	return m
}

// LineItemColumns is shared by sale and quote item tables
type LineItemColumns struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductCode string          `gorm:"type:varchar(50);not null"`
	ProductName string          `gorm:"type:varchar(200);not null"`
	Quantity    int             `gorm:"not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TaxRate     decimal.Decimal `gorm:"type:decimal(5,2);not null"`
	Subtotal    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

func (c LineItemColumns) toDomain() trade.LineItem {
	return trade.LineItem{
		ID:          c.ID,
		ProductID:   c.ProductID,
		ProductCode: c.ProductCode,
		ProductName: c.ProductName,
		Quantity:    c.Quantity,
		UnitPrice:   c.UnitPrice,
		TaxRate:     c.TaxRate,
		Subtotal:    c.Subtotal,
	}
}

func lineItemColumns(item trade.LineItem) LineItemColumns {
	return LineItemColumns{
		ID:          item.ID,
		ProductID:   item.ProductID,
		ProductCode: item.ProductCode,
		ProductName: item.ProductName,
		Quantity:    item.Quantity,
		UnitPrice:   item.UnitPrice,
		TaxRate:     item.TaxRate,
		Subtotal:    item.Subtotal,
	}
}

// SaleItemModel is the persistence model for a sale line item
type SaleItemModel struct {
	LineItemColumns `gorm:"embedded"`
	SaleID          uuid.UUID `gorm:"type:uuid;not null;index"`
}

// TableName returns the table name for GORM
func (SaleItemModel) TableName() string {
	return "sale_items"
}

// ToDomain converts the persistence model to a domain LineItem.
func (m *SaleItemModel) ToDomain() trade.LineItem {
	return m.LineItemColumns.toDomain()
}

// SaleItemModelFromDomain creates a sale item model for the given sale.
func SaleItemModelFromDomain(saleID uuid.UUID, item trade.LineItem) SaleItemModel {
	return SaleItemModel{LineItemColumns: lineItemColumns(item), SaleID: saleID}
}

// QuoteModel is the persistence model for the Quote aggregate root.
// ExpiresAt is stored so expiry can be evaluated in SQL.
type QuoteModel struct {
	BaseModel
	CustomerID      uuid.UUID        `gorm:"type:uuid;not null;index"`
	SellerID        uuid.UUID        `gorm:"type:uuid;not null"`
	SellerName      string           `gorm:"type:varchar(200)"`
	Notes           string           `gorm:"type:text"`
	ValidityDays    int              `gorm:"not null;default:15"`
	ExpiresAt       time.Time        `gorm:"not null;index"`
	Status          string           `gorm:"type:varchar(20);not null;default:'pending';index"`
	ConvertedSaleID *uuid.UUID       `gorm:"type:uuid"`
	Subtotal        decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	Total           decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	Items           []QuoteItemModel `gorm:"foreignKey:QuoteID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (QuoteModel) TableName() string {
	return "quotes"
}

// ToDomain converts the persistence model to a domain Quote aggregate.
func (m *QuoteModel) ToDomain() *trade.Quote {
	quote := &trade.Quote{
		BaseAggregateRoot: shared.BaseAggregateRoot{BaseEntity: m.BaseModel.ToDomain()},
		CustomerID:        m.CustomerID,
		Seller:            trade.Seller{ID: m.SellerID, Name: m.SellerName},
		Notes:             m.Notes,
		ValidityDays:      m.ValidityDays,
		Status:            trade.QuoteStatus(m.Status),
		ConvertedSaleID:   m.ConvertedSaleID,
		Subtotal:          m.Subtotal,
		Total:             m.Total,
		Items:             make([]trade.LineItem, 0, len(m.Items)),
	}
	for _, item := range m.Items {
		quote.Items = append(quote.Items, item.ToDomain())
	}
	return quote
}

// FromDomain populates the persistence model from a domain Quote aggregate.
func (m *QuoteModel) FromDomain(q *trade.Quote) {
	m.FromDomainBaseEntity(q.BaseEntity)
	m.CustomerID = q.CustomerID
	m.SellerID = q.Seller.ID
	m.SellerName = q.Seller.Name
	m.Notes = q.Notes
	m.ValidityDays = q.ValidityDays
	m.ExpiresAt = q.ExpiresAt()
	m.Status = string(q.Status)
	m.ConvertedSaleID = q.ConvertedSaleID
	m.Subtotal = q.Subtotal
	m.Total = q.Total
	m.Items = make([]QuoteItemModel, 0, len(q.Items))
	for _, item := range q.Items {
		m.Items = append(m.Items, QuoteItemModel{LineItemColumns: lineItemColumns(item), QuoteID: q.ID})
	}
}

// QuoteModelFromDomain creates a new persistence model from a domain Quote aggregate.
func QuoteModelFromDomain(q *trade.Quote) *QuoteModel {
	m := &QuoteModel{}
	m.FromDomain(q)
	return m
}

// QuoteItemModel is the persistence model for a quote line item
type QuoteItemModel struct {
	LineItemColumns `gorm:"embedded"`
	QuoteID         uuid.UUID `gorm:"type:uuid;not null;index"`
}

// TableName returns the table name for GORM
func (QuoteItemModel) TableName() string {
	return "quote_items"
}

// ToDomain converts the persistence model to a domain LineItem.
func (m *QuoteItemModel) ToDomain() trade.LineItem {
	return m.LineItemColumns.toDomain()
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
