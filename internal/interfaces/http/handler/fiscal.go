package handler

import (
	"github.com/gin-gonic/gin"
)

// FiscalHandler exposes the state of the tax authority integration
type FiscalHandler struct {
	BaseHandler
	invoices InvoiceUseCases
}

// NewFiscalHandler creates a new FiscalHandler
func NewFiscalHandler(invoices InvoiceUseCases) *FiscalHandler {
	return &FiscalHandler{invoices: invoices}
}

// Health godoc
// @ID           getFiscalHealth
// @Summary      Tax authority reachability
// @Description  Queries the last authorized number of each voucher sequence. An unreachable authority is reported in the body with reachable=false, not as an error status.
// @Tags         fiscal
// @Produce      json
// @Success      200 {object} dto.Response{data=fiscalapp.AuthorityHealthResponse}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /fiscal/health [get]
func (h *FiscalHandler) Health(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	health, err := h.invoices.CheckAuthority(c.Request.Context(), actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, health)
}
