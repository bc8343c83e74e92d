package trade

import (
	"github.com/google/uuid"
	"github.com/retailcore/backoffice/internal/domain/catalog"
	"github.com/retailcore/backoffice/internal/domain/fiscal"
	"github.com/retailcore/backoffice/internal/domain/inventory"
	"github.com/retailcore/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// LineItem is one priced line of a sale or quote. UnitPrice and TaxRate are
// copied from the catalog when the line is built and never change afterwards.
type LineItem struct {
	ID          uuid.UUID
	ProductID   uuid.UUID
	ProductCode string
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	TaxRate     decimal.Decimal
	Subtotal    decimal.Decimal
}

// NewLineItem prices a quantity of a product at its current retail price
func NewLineItem(product *catalog.Product, quantity int) (LineItem, error) {
	if product == nil {
		return LineItem{}, shared.NewValidationError("product_id", "Product is required")
	}
	if quantity <= 0 {
		return LineItem{}, shared.NewValidationError("quantity", "Quantity must be positive")
	}
	if !product.Active {
		return LineItem{}, shared.NewValidationError("product_id", "Product "+product.Code+" is not available for sale")
	}

	return newLineItem(product.ID, product.Code, product.Name, quantity, product.RetailPrice, product.TaxRate)
}

func newLineItem(productID uuid.UUID, code, name string, quantity int, unitPrice, taxRate decimal.Decimal) (LineItem, error) {
	if unitPrice.IsNegative() {
		return LineItem{}, shared.NewValidationError("unit_price", "Unit price cannot be negative")
	}
	if _, err := fiscal.CategoryForRate(taxRate); err != nil {
		return LineItem{}, shared.NewValidationError("tax_rate", err.Error())
	}

	return LineItem{
		ID:          uuid.New(),
		ProductID:   productID,
		ProductCode: code,
		ProductName: name,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		TaxRate:     taxRate,
		Subtotal:    unitPrice.Mul(decimal.NewFromInt(int64(quantity))),
	}, nil
}

// sumSubtotals adds the line subtotals
func sumSubtotals(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal)
	}
	return total
}

// stockLines converts items to ledger lines
func stockLines(items []LineItem) []inventory.StockLine {
	lines := make([]inventory.StockLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, inventory.StockLine{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return lines
}

// copyItems gives every line a fresh id, for lines carried from a quote into a sale
func copyItems(items []LineItem) []LineItem {
	out := make([]LineItem, len(items))
	for i, it := range items {
		it.ID = uuid.New()
		out[i] = it
	}
	return out
}
