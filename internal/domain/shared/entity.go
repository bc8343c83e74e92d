package shared

import (
	"time"

	"github.com/google/uuid"
)

// Entity is anything with an identity that outlives a request
type Entity interface {
	GetID() uuid.UUID
	GetCreatedAt() time.Time
}

// AggregateRoot is an entity that raises domain events. The events stay
// pending on the aggregate until the application layer has committed it.
type AggregateRoot interface {
	Entity
	AddDomainEvent(event DomainEvent)
	GetDomainEvents() []DomainEvent
	ClearDomainEvents()
	PullDomainEvents() []DomainEvent
}

// BaseEntity carries the identity and timestamps of products, customers,
// sales and quotes. Timestamps are UTC with microsecond precision so they
// survive a round trip through a timestamptz column unchanged.
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Timestamp normalizes t to the precision stored by the database
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// NewBaseEntity creates a base entity with a fresh ID
func NewBaseEntity() BaseEntity {
	now := Timestamp(time.Now())
	return BaseEntity{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
}

func (e *BaseEntity) GetID() uuid.UUID        { return e.ID }
func (e *BaseEntity) GetCreatedAt() time.Time { return e.CreatedAt }

// Touch marks the entity as modified
func (e *BaseEntity) Touch() {
	e.UpdatedAt = Timestamp(time.Now())
}

// BaseAggregateRoot adds the pending event list to BaseEntity
type BaseAggregateRoot struct {
	BaseEntity
	domainEvents []DomainEvent
}

// NewBaseAggregateRoot creates an aggregate with a fresh ID and no events
func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{BaseEntity: NewBaseEntity()}
}

func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.domainEvents = append(a.domainEvents, event)
}

func (a *BaseAggregateRoot) GetDomainEvents() []DomainEvent { return a.domainEvents }

func (a *BaseAggregateRoot) ClearDomainEvents() { a.domainEvents = nil }

// PullDomainEvents returns the pending events and clears them, so a retried
// publish never sends the same event twice.
func (a *BaseAggregateRoot) PullDomainEvents() []DomainEvent {
	events := a.domainEvents
	a.domainEvents = nil
	return events
}
