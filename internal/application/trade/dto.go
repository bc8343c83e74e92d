package trade

import (
	"time"

	"github.com/google/uuid"
	"github.com/retailcore/backoffice/internal/domain/trade"
	"github.com/shopspring/decimal"
)

// ==================== Requests ====================

// ItemInput is one requested product and quantity
type ItemInput struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,gt=0"`
}

// CreateSaleRequest represents a request to record a sale
type CreateSaleRequest struct {
	CustomerID    *uuid.UUID  `json:"customer_id"`
	PaymentMethod string      `json:"payment_method" binding:"required,oneof=cash card transfer"`
	Notes         string      `json:"notes" binding:"max=500"`
	Items         []ItemInput `json:"items" binding:"required,min=1,dive"`
}

// CreateQuoteRequest represents a request to create a quote
type CreateQuoteRequest struct {
	CustomerID   uuid.UUID   `json:"customer_id" binding:"required"`
	ValidityDays int         `json:"validity_days" binding:"omitempty,min=1,max=365"`
	Notes        string      `json:"notes" binding:"max=500"`
	Items        []ItemInput `json:"items" binding:"required,min=1,dive"`
}

// ConvertQuoteRequest represents a request to turn a quote into a sale
type ConvertQuoteRequest struct {
	PaymentMethod string `json:"payment_method" binding:"required,oneof=cash card transfer"`
}

// SaleListFilter represents filter options for listing sales
type SaleListFilter struct {
	CustomerID *uuid.UUID `form:"customer_id"`
	Invoiced   *bool      `form:"invoiced"`
	From       *time.Time `form:"from" time_format:"2006-01-02"`
	To         *time.Time `form:"to" time_format:"2006-01-02"`
	Page       int        `form:"page" binding:"omitempty,min=1"`
	PageSize   int        `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// QuoteListFilter represents filter options for listing quotes
type QuoteListFilter struct {
	CustomerID *uuid.UUID `form:"customer_id"`
	Status     string     `form:"status" binding:"omitempty,oneof=pending converted expired"`
	Page       int        `form:"page" binding:"omitempty,min=1"`
	PageSize   int        `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// ==================== Responses ====================

// LineItemResponse represents a priced line
type LineItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductCode string          `json:"product_code"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// FiscalResponse represents the fiscal fields of an invoiced sale
type FiscalResponse struct {
	VoucherType         int       `json:"voucher_type"`
	VoucherTypeName     string    `json:"voucher_type_name"`
	PointOfSale         int       `json:"point_of_sale"`
	VoucherNumber       int64     `json:"voucher_number"`
	AuthorizationCode   string    `json:"authorization_code"`
	AuthorizationExpiry time.Time `json:"authorization_expiry"`
	InvoicedAt          time.Time `json:"invoiced_at"`
}

// SaleResponse represents a sale in API responses
type SaleResponse struct {
	ID            uuid.UUID          `json:"id"`
	CustomerID    *uuid.UUID         `json:"customer_id,omitempty"`
	SellerID      uuid.UUID          `json:"seller_id"`
	SellerName    string             `json:"seller_name"`
	PaymentMethod string             `json:"payment_method"`
	Notes         string             `json:"notes,omitempty"`
	Items         []LineItemResponse `json:"items"`
	Subtotal      decimal.Decimal    `json:"subtotal"`
	Total         decimal.Decimal    `json:"total"`
	Invoiced      bool               `json:"invoiced"`
	Fiscal        *FiscalResponse    `json:"fiscal,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// SaleListItemResponse represents a sale in list responses
type SaleListItemResponse struct {
	ID            uuid.UUID       `json:"id"`
	CustomerID    *uuid.UUID      `json:"customer_id,omitempty"`
	SellerName    string          `json:"seller_name"`
	PaymentMethod string          `json:"payment_method"`
	ItemCount     int             `json:"item_count"`
	Total         decimal.Decimal `json:"total"`
	Invoiced      bool            `json:"invoiced"`
	VoucherNumber *int64          `json:"voucher_number,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// QuoteResponse represents a quote in API responses
type QuoteResponse struct {
	ID              uuid.UUID          `json:"id"`
	CustomerID      uuid.UUID          `json:"customer_id"`
	SellerID        uuid.UUID          `json:"seller_id"`
	SellerName      string             `json:"seller_name"`
	Notes           string             `json:"notes,omitempty"`
	ValidityDays    int                `json:"validity_days"`
	ExpiresAt       time.Time          `json:"expires_at"`
	Status          string             `json:"status"`
	ConvertedSaleID *uuid.UUID         `json:"converted_sale_id,omitempty"`
	Items           []LineItemResponse `json:"items"`
	Subtotal        decimal.Decimal    `json:"subtotal"`
	Total           decimal.Decimal    `json:"total"`
	CreatedAt       time.Time          `json:"created_at"`
}

// ExpireQuotesResponse reports the result of an expiry sweep
type ExpireQuotesResponse struct {
	Expired int64 `json:"expired"`
}

// ==================== Converters ====================

func toLineItemResponses(items []trade.LineItem) []LineItemResponse {
	out := make([]LineItemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, LineItemResponse{
			ID:          it.ID,
			ProductID:   it.ProductID,
			ProductCode: it.ProductCode,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice.Round(2),
			TaxRate:     it.TaxRate,
			Subtotal:    it.Subtotal.Round(2),
		})
	}
	return out
}

// ToFiscalResponse converts fiscal data, returning nil when absent
func ToFiscalResponse(f *trade.FiscalData) *FiscalResponse {
	if f == nil {
		return nil
	}
	return &FiscalResponse{
		VoucherType:         int(f.VoucherType),
		VoucherTypeName:     f.VoucherType.String(),
		PointOfSale:         f.PointOfSale,
		VoucherNumber:       f.VoucherNumber,
		AuthorizationCode:   f.AuthorizationCode,
		AuthorizationExpiry: f.AuthorizationExpiry,
		InvoicedAt:          f.InvoicedAt,
	}
}

// ToSaleResponse converts a sale aggregate to its response
func ToSaleResponse(s *trade.Sale) SaleResponse {
	return SaleResponse{
		ID:            s.ID,
		CustomerID:    s.CustomerID,
		SellerID:      s.Seller.ID,
		SellerName:    s.Seller.Name,
		PaymentMethod: string(s.PaymentMethod),
		Notes:         s.Notes,
		Items:         toLineItemResponses(s.Items),
		Subtotal:      s.Subtotal.Round(2),
		Total:         s.Total.Round(2),
		Invoiced:      s.Invoiced,
		Fiscal:        ToFiscalResponse(s.Fiscal),
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

// ToSaleListItemResponse converts a sale to its list view
func ToSaleListItemResponse(s *trade.Sale) SaleListItemResponse {
	resp := SaleListItemResponse{
		ID:            s.ID,
		CustomerID:    s.CustomerID,
		SellerName:    s.Seller.Name,
		PaymentMethod: string(s.PaymentMethod),
		ItemCount:     s.ItemCount(),
		Total:         s.Total.Round(2),
		Invoiced:      s.Invoiced,
		CreatedAt:     s.CreatedAt,
	}
	if s.Fiscal != nil {
		n := s.Fiscal.VoucherNumber
		resp.VoucherNumber = &n
	}
	return resp
}

// ToQuoteResponse converts a quote aggregate to its response
func ToQuoteResponse(q *trade.Quote) QuoteResponse {
	return QuoteResponse{
		ID:              q.ID,
		CustomerID:      q.CustomerID,
		SellerID:        q.Seller.ID,
		SellerName:      q.Seller.Name,
		Notes:           q.Notes,
		ValidityDays:    q.ValidityDays,
		ExpiresAt:       q.ExpiresAt(),
		Status:          string(q.Status),
		ConvertedSaleID: q.ConvertedSaleID,
		Items:           toLineItemResponses(q.Items),
		Subtotal:        q.Subtotal.Round(2),
		Total:           q.Total.Round(2),
		CreatedAt:       q.CreatedAt,
	}
}
