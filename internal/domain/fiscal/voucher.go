// Package fiscal models electronic invoicing against the national tax authority:
// voucher types, buyer identification, VAT breakdown and the authority port.
package fiscal

import (
	"fmt"
	"strconv"
	"strings"
)

// VoucherType is the authority's numeric code for a voucher class
type VoucherType int

const (
	VoucherTypeFacturaA VoucherType = 1
	VoucherTypeFacturaB VoucherType = 6
	VoucherTypeFacturaC VoucherType = 11
)

// IsValid checks if the voucher type is one this system issues
func (t VoucherType) IsValid() bool {
	switch t {
	case VoucherTypeFacturaA, VoucherTypeFacturaB, VoucherTypeFacturaC:
		return true
	}
	return false
}

// String returns a display name for the voucher type
func (t VoucherType) String() string {
	switch t {
	case VoucherTypeFacturaA:
		return "Factura A"
	case VoucherTypeFacturaB:
		return "Factura B"
	case VoucherTypeFacturaC:
		return "Factura C"
	}
	return fmt.Sprintf("VoucherType(%d)", int(t))
}

// TaxCondition is the buyer's VAT registration status
type TaxCondition int

const (
	TaxConditionUnknown            TaxCondition = 0
	TaxConditionRegisteredTaxpayer TaxCondition = 1 // Responsable Inscripto
	TaxConditionExempt             TaxCondition = 4
	TaxConditionFinalConsumer      TaxCondition = 5
	TaxConditionSimplifiedTaxpayer TaxCondition = 6 // Monotributo
)

// IsValid checks if the condition is a known code
func (c TaxCondition) IsValid() bool {
	switch c {
	case TaxConditionRegisteredTaxpayer, TaxConditionExempt, TaxConditionFinalConsumer, TaxConditionSimplifiedTaxpayer:
		return true
	}
	return false
}

// DocType identifies the kind of buyer document sent to the authority
type DocType int

const (
	DocTypeCUIT         DocType = 80
	DocTypeUnidentified DocType = 99
)

// Buyer is the identity data the authority needs about the purchaser.
// A nil *Buyer is an unidentified final consumer.
type Buyer struct {
	Name         string
	TaxID        string // CUIT, digits only or with dashes
	TaxCondition TaxCondition
}

// IsRegisteredBusiness reports whether the buyer can receive a type A voucher
func (b *Buyer) IsRegisteredBusiness() bool {
	if b == nil {
		return false
	}
	return b.TaxCondition == TaxConditionRegisteredTaxpayer && NormalizeTaxID(b.TaxID) != ""
}

// Document returns the document type and number to report for the buyer
func (b *Buyer) Document() (DocType, int64) {
	if b == nil {
		return DocTypeUnidentified, 0
	}
	id := NormalizeTaxID(b.TaxID)
	if id == "" {
		return DocTypeUnidentified, 0
	}
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return DocTypeUnidentified, 0
	}
	return DocTypeCUIT, n
}

// NormalizeTaxID strips separators and returns the 11 CUIT digits, or "" if malformed
func NormalizeTaxID(taxID string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		if r == '-' || r == ' ' || r == '.' {
			return -1
		}
		return 'x'
	}, taxID)
	if len(digits) != 11 || strings.ContainsRune(digits, 'x') {
		return ""
	}
	return digits
}

// SelectVoucherType picks the voucher class from buyer identity:
// registered businesses get A, other identified buyers B, unidentified buyers C.
func SelectVoucherType(buyer *Buyer) VoucherType {
	switch {
	case buyer == nil:
		return VoucherTypeFacturaC
	case buyer.IsRegisteredBusiness():
		return VoucherTypeFacturaA
	default:
		return VoucherTypeFacturaB
	}
}
