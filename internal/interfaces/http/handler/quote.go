package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	tradeapp "github.com/retailcore/backoffice/internal/application/trade"
	"github.com/retailcore/backoffice/internal/domain/identity"
	"github.com/retailcore/backoffice/internal/interfaces/http/middleware"
)

// QuoteUseCases is what QuoteHandler needs from the quote service
type QuoteUseCases interface {
	CreateQuote(ctx context.Context, actor identity.Actor, req tradeapp.CreateQuoteRequest) (*tradeapp.QuoteResponse, error)
	ConvertQuote(ctx context.Context, actor identity.Actor, quoteID uuid.UUID, req tradeapp.ConvertQuoteRequest) (*tradeapp.SaleResponse, error)
	GetQuote(ctx context.Context, actor identity.Actor, quoteID uuid.UUID) (*tradeapp.QuoteResponse, error)
	ListQuotes(ctx context.Context, actor identity.Actor, filter tradeapp.QuoteListFilter) ([]tradeapp.QuoteResponse, int64, error)
	ExpireQuotes(ctx context.Context, actor identity.Actor) (*tradeapp.ExpireQuotesResponse, error)
}

// QuoteHandler handles quote endpoints
type QuoteHandler struct {
	BaseHandler
	quotes QuoteUseCases
}

// NewQuoteHandler creates a new QuoteHandler
func NewQuoteHandler(quotes QuoteUseCases) *QuoteHandler {
	return &QuoteHandler{quotes: quotes}
}

// Create godoc
// @ID           createQuote
// @Summary      Create a quote
// @Description  Freezes current prices for a customer without touching stock. validity_days defaults to 15 and must be within 1..365.
// @Tags         quotes
// @Accept       json
// @Produce      json
// @Param        request body tradeapp.CreateQuoteRequest true "Quote"
// @Success      201 {object} dto.Response{data=tradeapp.QuoteResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /quotes [post]
func (h *QuoteHandler) Create(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req tradeapp.CreateQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	quote, err := h.quotes.CreateQuote(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, quote)
}

// List godoc
// @ID           listQuotes
// @Summary      List quotes
// @Tags         quotes
// @Produce      json
// @Param        customer_id query string false "Customer ID" format(uuid)
// @Param        status      query string false "Status" Enums(pending, converted, expired)
// @Param        page        query int    false "Page" default(1)
// @Param        page_size   query int    false "Page size" default(20) maximum(100)
// @Success      200 {object} dto.Response{data=[]tradeapp.QuoteResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /quotes [get]
func (h *QuoteHandler) List(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var filter tradeapp.QuoteListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	quotes, total, err := h.quotes.ListQuotes(c.Request.Context(), actor, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, quotes, total, pageOrDefault(filter.Page), pageSizeOrDefault(filter.PageSize))
}

// Get godoc
// @ID           getQuote
// @Summary      Get a quote
// @Tags         quotes
// @Produce      json
// @Param        id path string true "Quote ID" format(uuid)
// @Success      200 {object} dto.Response{data=tradeapp.QuoteResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /quotes/{id} [get]
func (h *QuoteHandler) Get(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	quoteID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	quote, err := h.quotes.GetQuote(c.Request.Context(), actor, quoteID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, quote)
}

// Convert godoc
// @ID           convertQuote
// @Summary      Convert a pending quote into a sale
// @Description  Records a sale at the quoted prices, decrementing stock. Expired or already converted quotes are rejected.
// @Tags         quotes
// @Accept       json
// @Produce      json
// @Param        id      path string                       true "Quote ID" format(uuid)
// @Param        request body tradeapp.ConvertQuoteRequest true "Payment"
// @Success      201 {object} dto.Response{data=tradeapp.SaleResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /quotes/{id}/convert [post]
func (h *QuoteHandler) Convert(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	quoteID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var req tradeapp.ConvertQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	sale, err := h.quotes.ConvertQuote(c.Request.Context(), actor, quoteID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, sale)
}

// Expire godoc
// @ID           expireQuotes
// @Summary      Expire overdue quotes
// @Description  Marks every pending quote past its validity as expired. The same sweep also runs on a schedule.
// @Tags         quotes
// @Produce      json
// @Success      200 {object} dto.Response{data=tradeapp.ExpireQuotesResponse}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /quotes/expire [post]
func (h *QuoteHandler) Expire(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	result, err := h.quotes.ExpireQuotes(c.Request.Context(), actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
