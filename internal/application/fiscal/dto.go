package fiscal

import (
	"time"

	"github.com/google/uuid"
	"github.com/retailcore/backoffice/internal/domain/fiscal"
	"github.com/shopspring/decimal"
)

// IssueInvoiceRequest optionally overrides the voucher type derived from the buyer
type IssueInvoiceRequest struct {
	VoucherType *int `json:"voucher_type" binding:"omitempty,oneof=1 6 11"`
}

// VATLineResponse is one rate category of the invoice breakdown
type VATLineResponse struct {
	CategoryID int             `json:"category_id"`
	Rate       decimal.Decimal `json:"rate"`
	Base       decimal.Decimal `json:"base"`
	Tax        decimal.Decimal `json:"tax"`
}

// InvoiceResponse represents an authorized invoice
type InvoiceResponse struct {
	SaleID              uuid.UUID         `json:"sale_id"`
	VoucherType         int               `json:"voucher_type"`
	VoucherTypeName     string            `json:"voucher_type_name"`
	PointOfSale         int               `json:"point_of_sale"`
	VoucherNumber       int64             `json:"voucher_number"`
	AuthorizationCode   string            `json:"authorization_code"`
	AuthorizationExpiry time.Time         `json:"authorization_expiry"`
	Net                 decimal.Decimal   `json:"net"`
	Tax                 decimal.Decimal   `json:"tax"`
	Total               decimal.Decimal   `json:"total"`
	VAT                 []VATLineResponse `json:"vat"`
}

// SequenceStatus is the last authorized number of one voucher sequence
type SequenceStatus struct {
	VoucherType       int    `json:"voucher_type"`
	VoucherTypeName   string `json:"voucher_type_name"`
	LastVoucherNumber int64  `json:"last_voucher_number"`
}

// AuthorityHealthResponse reports whether the tax authority answers
type AuthorityHealthResponse struct {
	Reachable   bool             `json:"reachable"`
	PointOfSale int              `json:"point_of_sale"`
	Sequences   []SequenceStatus `json:"sequences,omitempty"`
	Error       string           `json:"error,omitempty"`
	CheckedAt   time.Time        `json:"checked_at"`
}

// VoucherLinkResponse is a presigned link to an archived voucher document
type VoucherLinkResponse struct {
	SaleID    uuid.UUID `json:"sale_id"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

func toInvoiceResponse(saleID uuid.UUID, req fiscal.VoucherRequest, auth *fiscal.Authorization, totals fiscal.Totals) InvoiceResponse {
	vat := make([]VATLineResponse, 0, len(totals.Lines))
	for _, l := range totals.Lines {
		vat = append(vat, VATLineResponse{
			CategoryID: int(l.Category),
			Rate:       l.Rate,
			Base:       l.Base,
			Tax:        l.Tax,
		})
	}
	return InvoiceResponse{
		SaleID:              saleID,
		VoucherType:         int(req.VoucherType),
		VoucherTypeName:     req.VoucherType.String(),
		PointOfSale:         req.PointOfSale,
		VoucherNumber:       req.Number,
		AuthorizationCode:   auth.Code,
		AuthorizationExpiry: auth.Expiry,
		Net:                 totals.Net,
		Tax:                 totals.Tax,
		Total:               totals.Total,
		VAT:                 vat,
	}
}
