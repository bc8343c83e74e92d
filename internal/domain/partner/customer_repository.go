package partner

import (
	"context"

	"github.com/google/uuid"
)

// CustomerRepository is the read-only customer lookup
type CustomerRepository interface {
	// FindByID finds a customer by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Customer, error)

	// Save creates or updates a customer
	Save(ctx context.Context, customer *Customer) error
}
