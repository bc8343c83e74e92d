package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	inventoryapp "github.com/retailcore/backoffice/internal/application/inventory"
	"github.com/retailcore/backoffice/internal/domain/identity"
	"github.com/retailcore/backoffice/internal/interfaces/http/dto"
)

// StockUseCases is what InventoryHandler needs from the stock service
type StockUseCases interface {
	CheckAvailability(ctx context.Context, actor identity.Actor, productID uuid.UUID) (*inventoryapp.AvailabilityResponse, error)
	ListLowStock(ctx context.Context, actor identity.Actor, limit int) ([]inventoryapp.LowStockItemResponse, error)
}

// InventoryHandler handles stock queries
type InventoryHandler struct {
	BaseHandler
	stock StockUseCases
}

// NewInventoryHandler creates a new InventoryHandler
func NewInventoryHandler(stock StockUseCases) *InventoryHandler {
	return &InventoryHandler{stock: stock}
}

// Availability godoc
// @ID           getProductAvailability
// @Summary      Current stock of a product
// @Tags         inventory
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Success      200 {object} dto.Response{data=inventoryapp.AvailabilityResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /inventory/products/{id}/availability [get]
func (h *InventoryHandler) Availability(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	productID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	availability, err := h.stock.CheckAvailability(c.Request.Context(), actor, productID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, availability)
}

// LowStock godoc
// @ID           listLowStock
// @Summary      Products at or below their minimum stock
// @Tags         inventory
// @Produce      json
// @Param        limit query int false "Maximum number of products" default(50) maximum(100)
// @Success      200 {object} dto.Response{data=[]inventoryapp.LowStockItemResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /inventory/low-stock [get]
func (h *InventoryHandler) LowStock(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > inventoryapp.DefaultLowStockLimit {
			h.ValidationError(c, []dto.ValidationDetail{{Field: "limit", Message: "Must be between 1 and " + strconv.Itoa(inventoryapp.DefaultLowStockLimit)}})
			return
		}
		limit = n
	}

	items, err := h.stock.ListLowStock(c.Request.Context(), actor, limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, items)
}
