package catalog

import (
	"strings"

	"github.com/retailcore/backoffice/internal/domain/fiscal"
	"github.com/retailcore/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Product represents a sellable item in the catalog.
// StockQuantity is owned by the inventory ledger and only read here.
type Product struct {
	shared.BaseEntity
	Code           string
	Barcode        string
	Name           string
	RetailPrice    decimal.Decimal
	WholesalePrice decimal.Decimal
	TaxRate        decimal.Decimal // VAT percentage included in the prices
	StockQuantity  int
	MinStock       int
	Active         bool
}

// NewProduct creates a new active product with no stock
func NewProduct(code, name string, retailPrice decimal.Decimal) (*Product, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, shared.NewValidationError("code", "Product code cannot be empty")
	}
	if len(code) > 50 {
		return nil, shared.NewValidationError("code", "Product code cannot exceed 50 characters")
	}
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewValidationError("name", "Product name cannot be empty")
	}
	if retailPrice.IsNegative() {
		return nil, shared.NewValidationError("retail_price", "Retail price cannot be negative")
	}

	return &Product{
		BaseEntity:     shared.NewBaseEntity(),
		Code:           strings.ToUpper(code),
		Name:           name,
		RetailPrice:    retailPrice,
		WholesalePrice: retailPrice,
		TaxRate:        fiscal.DefaultTaxRate,
		Active:         true,
	}, nil
}

// SetTaxRate sets the VAT rate; only rates the tax authority recognises are accepted
func (p *Product) SetTaxRate(rate decimal.Decimal) error {
	if _, err := fiscal.CategoryForRate(rate); err != nil {
		return shared.NewValidationError("tax_rate", err.Error())
	}
	p.TaxRate = rate
	p.Touch()
	return nil
}

// SetMinStock sets the low-stock alert threshold
func (p *Product) SetMinStock(minStock int) error {
	if minStock < 0 {
		return shared.NewValidationError("min_stock", "Minimum stock cannot be negative")
	}
	p.MinStock = minStock
	p.Touch()
	return nil
}

// IsBelowMinimum reports whether stock has reached the alert threshold
func (p *Product) IsBelowMinimum() bool {
	return p.StockQuantity <= p.MinStock
}
