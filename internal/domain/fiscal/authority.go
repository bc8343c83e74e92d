package fiscal

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ConceptProducts marks a voucher as covering goods
const ConceptProducts = 1

// CurrencyPesos is the authority's code for the local currency
const CurrencyPesos = "PES"

// Authority is the external tax service. It is the only source of truth for
// voucher numbering per (point of sale, voucher type).
type Authority interface {
	// LastVoucherNumber returns the last number authorized for the sequence
	LastVoucherNumber(ctx context.Context, pointOfSale int, voucherType VoucherType) (int64, error)

	// SubmitVoucher requests authorization for a voucher
	SubmitVoucher(ctx context.Context, req VoucherRequest) (*Authorization, error)
}

// VATLine is one rate category in the request
type VATLine struct {
	CategoryID RateCategory    `json:"Id"`
	Base       decimal.Decimal `json:"BaseImp"`
	Amount     decimal.Decimal `json:"Importe"`
}

// VoucherRequest carries header totals, breakdown and buyer identity.
// All amounts are already rounded to 2 decimals.
type VoucherRequest struct {
	PointOfSale  int
	VoucherType  VoucherType
	Number       int64
	Concept      int
	DocType      DocType
	DocNumber    int64
	IssueDate    time.Time
	Total        decimal.Decimal
	Untaxed      decimal.Decimal
	Net          decimal.Decimal
	Exempt       decimal.Decimal
	Tax          decimal.Decimal
	OtherTaxes   decimal.Decimal
	Currency     string
	ExchangeRate decimal.Decimal
	VAT          []VATLine
}

// NewVoucherRequest assembles the request for a voucher number and a rounded breakdown
func NewVoucherRequest(pointOfSale int, voucherType VoucherType, number int64, buyer *Buyer, totals Totals, issueDate time.Time) VoucherRequest {
	docType, docNumber := buyer.Document()

	vat := make([]VATLine, 0, len(totals.Lines))
	for _, l := range totals.Lines {
		vat = append(vat, VATLine{
			CategoryID: l.Category,
			Base:       l.Base,
			Amount:     l.Tax,
		})
	}

	return VoucherRequest{
		PointOfSale:  pointOfSale,
		VoucherType:  voucherType,
		Number:       number,
		Concept:      ConceptProducts,
		DocType:      docType,
		DocNumber:    docNumber,
		IssueDate:    issueDate,
		Total:        totals.Total,
		Untaxed:      decimal.Zero,
		Net:          totals.Net,
		Exempt:       decimal.Zero,
		Tax:          totals.Tax,
		OtherTaxes:   decimal.Zero,
		Currency:     CurrencyPesos,
		ExchangeRate: decimal.NewFromInt(1),
		VAT:          vat,
	}
}

// Authorization is the authority's approval of a voucher
type Authorization struct {
	Code   string // CAE
	Expiry time.Time
}

// Rejection is returned by Authority implementations when the service
// answered but refused the voucher.
type Rejection struct {
	Code    string
	Message string
}

// Error implements the error interface
func (r *Rejection) Error() string {
	return "authority rejected voucher [" + r.Code + "]: " + r.Message
}
