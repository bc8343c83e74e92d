package partner

import (
	"strings"

	"github.com/retailcore/backoffice/internal/domain/fiscal"
	"github.com/retailcore/backoffice/internal/domain/shared"
)

// Customer is the read model of a buyer. Customer maintenance lives outside
// this service; the order and invoicing flows only look customers up.
type Customer struct {
	shared.BaseEntity
	Name         string
	TaxID        string
	TaxCondition fiscal.TaxCondition
	Email        string
	Phone        string
	Active       bool
}

// NewCustomer creates a new active customer
func NewCustomer(name, taxID string, condition fiscal.TaxCondition) (*Customer, error) {
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewValidationError("name", "Customer name cannot be empty")
	}
	if taxID != "" && fiscal.NormalizeTaxID(taxID) == "" {
		return nil, shared.NewValidationError("tax_id", "Tax ID must have 11 digits")
	}
	if condition == fiscal.TaxConditionUnknown {
		condition = fiscal.TaxConditionFinalConsumer
	}
	if !condition.IsValid() {
		return nil, shared.NewValidationError("tax_condition", "Unknown tax condition")
	}

	return &Customer{
		BaseEntity:   shared.NewBaseEntity(),
		Name:         name,
		TaxID:        fiscal.NormalizeTaxID(taxID),
		TaxCondition: condition,
		Active:       true,
	}, nil
}

// Deactivate blocks the customer from new quotes and sales
func (c *Customer) Deactivate() {
	c.Active = false
	c.Touch()
}

// Buyer returns the identity reported to the tax authority
func (c *Customer) Buyer() *fiscal.Buyer {
	return &fiscal.Buyer{
		Name:         c.Name,
		TaxID:        c.TaxID,
		TaxCondition: c.TaxCondition,
	}
}
