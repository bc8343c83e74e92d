package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	fiscalapp "github.com/retailcore/backoffice/internal/application/fiscal"
	tradeapp "github.com/retailcore/backoffice/internal/application/trade"
	"github.com/retailcore/backoffice/internal/domain/identity"
	"github.com/retailcore/backoffice/internal/interfaces/http/middleware"
)

// SaleUseCases is what SaleHandler needs from the sale service
type SaleUseCases interface {
	CreateSale(ctx context.Context, actor identity.Actor, req tradeapp.CreateSaleRequest) (*tradeapp.SaleResponse, error)
	GetSale(ctx context.Context, actor identity.Actor, saleID uuid.UUID) (*tradeapp.SaleResponse, error)
	ListSales(ctx context.Context, actor identity.Actor, filter tradeapp.SaleListFilter) ([]tradeapp.SaleListItemResponse, int64, error)
}

// InvoiceUseCases is what the sale and fiscal handlers need from the invoice service
type InvoiceUseCases interface {
	IssueInvoice(ctx context.Context, actor identity.Actor, saleID uuid.UUID, req fiscalapp.IssueInvoiceRequest) (*fiscalapp.InvoiceResponse, error)
	VoucherLink(ctx context.Context, actor identity.Actor, saleID uuid.UUID) (*fiscalapp.VoucherLinkResponse, error)
	CheckAuthority(ctx context.Context, actor identity.Actor) (*fiscalapp.AuthorityHealthResponse, error)
}

// SaleHandler handles sale endpoints, including invoicing a sale
type SaleHandler struct {
	BaseHandler
	sales    SaleUseCases
	invoices InvoiceUseCases
}

// NewSaleHandler creates a new SaleHandler
func NewSaleHandler(sales SaleUseCases, invoices InvoiceUseCases) *SaleHandler {
	return &SaleHandler{sales: sales, invoices: invoices}
}

// Create godoc
// @ID           createSale
// @Summary      Record a sale
// @Description  Prices the items at their current catalog price, decrements stock and stores the sale in one transaction. Either every line is reserved or nothing changes.
// @Tags         sales
// @Accept       json
// @Produce      json
// @Param        request body tradeapp.CreateSaleRequest true "Sale"
// @Success      201 {object} dto.Response{data=tradeapp.SaleResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /sales [post]
func (h *SaleHandler) Create(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req tradeapp.CreateSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	sale, err := h.sales.CreateSale(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, sale)
}

// List godoc
// @ID           listSales
// @Summary      List sales
// @Tags         sales
// @Produce      json
// @Param        customer_id query string false "Customer ID" format(uuid)
// @Param        invoiced    query bool   false "Only invoiced (true) or pending (false) sales"
// @Param        from        query string false "Created on or after (YYYY-MM-DD)"
// @Param        to          query string false "Created before the end of (YYYY-MM-DD)"
// @Param        page        query int    false "Page" default(1)
// @Param        page_size   query int    false "Page size" default(20) maximum(100)
// @Success      200 {object} dto.Response{data=[]tradeapp.SaleListItemResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /sales [get]
func (h *SaleHandler) List(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var filter tradeapp.SaleListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	sales, total, err := h.sales.ListSales(c.Request.Context(), actor, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, sales, total, pageOrDefault(filter.Page), pageSizeOrDefault(filter.PageSize))
}

// Get godoc
// @ID           getSale
// @Summary      Get a sale
// @Tags         sales
// @Produce      json
// @Param        id path string true "Sale ID" format(uuid)
// @Success      200 {object} dto.Response{data=tradeapp.SaleResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /sales/{id} [get]
func (h *SaleHandler) Get(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	saleID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	sale, err := h.sales.GetSale(c.Request.Context(), actor, saleID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sale)
}

// IssueInvoice godoc
// @ID           issueInvoice
// @Summary      Issue the fiscal invoice of a sale
// @Description  Requests an authorization code from the tax authority and records it on the sale. A sale is invoiced at most once; a failed request leaves it untouched so it can be retried.
// @Tags         sales
// @Accept       json
// @Produce      json
// @Param        id      path string                        true  "Sale ID" format(uuid)
// @Param        request body fiscalapp.IssueInvoiceRequest false "Voucher type override"
// @Success      201 {object} dto.Response{data=fiscalapp.InvoiceResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /sales/{id}/invoice [post]
func (h *SaleHandler) IssueInvoice(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	saleID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var req fiscalapp.IssueInvoiceRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.HandleValidationError(c, err)
			return
		}
	}

	invoice, err := h.invoices.IssueInvoice(c.Request.Context(), actor, saleID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, invoice)
}

// VoucherLink godoc
// @ID           getSaleVoucher
// @Summary      Link to the archived voucher of an invoiced sale
// @Description  Returns a short-lived presigned URL of the voucher document kept in object storage.
// @Tags         sales
// @Produce      json
// @Param        id path string true "Sale ID" format(uuid)
// @Success      200 {object} dto.Response{data=fiscalapp.VoucherLinkResponse}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /sales/{id}/voucher [get]
func (h *SaleHandler) VoucherLink(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	saleID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	link, err := h.invoices.VoucherLink(c.Request.Context(), actor, saleID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, link)
}
