package inventory

import (
	"github.com/google/uuid"
	"github.com/retailcore/backoffice/internal/domain/catalog"
)

// AvailabilityResponse is the stock of one product
type AvailabilityResponse struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// LowStockItemResponse is a product at or below its minimum stock
type LowStockItemResponse struct {
	ProductID     uuid.UUID `json:"product_id"`
	Code          string    `json:"code"`
	Name          string    `json:"name"`
	StockQuantity int       `json:"stock_quantity"`
	MinStock      int       `json:"min_stock"`
}

// ToLowStockItemResponse converts a product to its low-stock view
func ToLowStockItemResponse(p *catalog.Product) LowStockItemResponse {
	return LowStockItemResponse{
		ProductID:     p.ID,
		Code:          p.Code,
		Name:          p.Name,
		StockQuantity: p.StockQuantity,
		MinStock:      p.MinStock,
	}
}
