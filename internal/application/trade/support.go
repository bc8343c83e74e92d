package trade

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/retailcore/backoffice/internal/domain/audit"
	"github.com/retailcore/backoffice/internal/domain/catalog"
	"github.com/retailcore/backoffice/internal/domain/identity"
	"github.com/retailcore/backoffice/internal/domain/partner"
	"github.com/retailcore/backoffice/internal/domain/shared"
	"github.com/retailcore/backoffice/internal/domain/trade"
	"go.uber.org/zap"
)

// priceItems resolves every requested product and freezes its current
// price into a line. Nothing is written here.
func priceItems(ctx context.Context, products catalog.ProductRepository, inputs []ItemInput) ([]trade.LineItem, error) {
	ids := make([]uuid.UUID, 0, len(inputs))
	seen := make(map[uuid.UUID]struct{}, len(inputs))
	for _, in := range inputs {
		if _, ok := seen[in.ProductID]; ok {
			continue
		}
		seen[in.ProductID] = struct{}{}
		ids = append(ids, in.ProductID)
	}

	found, err := products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*catalog.Product, len(found))
	for i := range found {
		byID[found[i].ID] = &found[i]
	}

	items := make([]trade.LineItem, 0, len(inputs))
	for _, in := range inputs {
		p, ok := byID[in.ProductID]
		if !ok {
			return nil, shared.NewProductNotFoundError(in.ProductID)
		}
		item, err := trade.NewLineItem(p, in.Quantity)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// requireActiveCustomer maps a missing customer to CUSTOMER_NOT_FOUND and a
// disabled one to CUSTOMER_INACTIVE
func requireActiveCustomer(ctx context.Context, customers partner.CustomerRepository, id uuid.UUID) (*partner.Customer, error) {
	c, err := customers.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewCustomerNotFoundError(id)
		}
		return nil, err
	}
	if !c.Active {
		return nil, shared.NewCustomerInactiveError(id)
	}
	return c, nil
}

func sellerOf(actor identity.Actor) trade.Seller {
	return trade.Seller{ID: actor.UserID, Name: actor.Name}
}

// afterCommit publishes the aggregate's events and records an audit entry.
// Both are best effort: the unit of work is already committed.
type afterCommit struct {
	publisher shared.EventPublisher
	recorder  audit.Recorder
	logger    *zap.Logger
}

func (a *afterCommit) publish(ctx context.Context, agg shared.AggregateRoot) {
	events := agg.PullDomainEvents()
	if a.publisher == nil || len(events) == 0 {
		return
	}
	if err := a.publisher.Publish(ctx, events...); err != nil {
		a.logger.Error("Failed to publish domain events",
			zap.String("aggregate_id", agg.GetID().String()),
			zap.Error(err),
		)
	}
}

func (a *afterCommit) record(ctx context.Context, entry audit.Entry) {
	if a.recorder == nil {
		return
	}
	a.recorder.Record(ctx, entry)
}
