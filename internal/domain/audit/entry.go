// Package audit records who did what. Recording is fire-and-forget: a lost
// entry never fails the operation it describes.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Modules and actions used in audit entries
const (
	ModuleSales    = "sales"
	ModuleQuotes   = "quotes"
	ModuleInvoices = "invoices"

	ActionCreate  = "create"
	ActionConvert = "convert"
	ActionExpire  = "expire"
	ActionIssue   = "issue"
)

// Entry is one audit log line
type Entry struct {
	ID         uuid.UUID
	ActorID    uuid.UUID
	ActorName  string
	Action     string
	Module     string
	ResourceID *uuid.UUID
	Details    string
	OccurredAt time.Time
}

// NewEntry creates an entry stamped with the current time
func NewEntry(actorID uuid.UUID, actorName, action, module, details string) Entry {
	return Entry{
		ID:         uuid.New(),
		ActorID:    actorID,
		ActorName:  actorName,
		Action:     action,
		Module:     module,
		Details:    details,
		OccurredAt: time.Now(),
	}
}

// WithResource sets the id of the affected record
func (e Entry) WithResource(id uuid.UUID) Entry {
	e.ResourceID = &id
	return e
}

// Recorder accepts entries without blocking the caller
type Recorder interface {
	Record(ctx context.Context, entry Entry)
}

// Repository stores audit entries
type Repository interface {
	Save(ctx context.Context, entry *Entry) error
}
