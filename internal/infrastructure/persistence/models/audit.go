package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/retailcore/backoffice/internal/domain/audit"
)

// AuditLogModel is the persistence model for audit entries. Rows are append-only.
type AuditLogModel struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey"`
	ActorID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	ActorName  string     `gorm:"type:varchar(200)"`
	Action     string     `gorm:"type:varchar(50);not null"`
	Module     string     `gorm:"type:varchar(50);not null;index"`
	ResourceID *uuid.UUID `gorm:"type:uuid"`
	Details    string     `gorm:"type:text"`
	OccurredAt time.Time  `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (AuditLogModel) TableName() string {
	return "audit_logs"
}

// ToDomain converts the persistence model to a domain audit Entry.
func (m *AuditLogModel) ToDomain() audit.Entry {
	return audit.Entry{
		ID:         m.ID,
		ActorID:    m.ActorID,
		ActorName:  m.ActorName,
		Action:     m.Action,
		Module:     m.Module,
		ResourceID: m.ResourceID,
		Details:    m.Details,
		OccurredAt: m.OccurredAt,
	}
}

// AuditLogModelFromDomain creates a new persistence model from a domain audit Entry.
func AuditLogModelFromDomain(e *audit.Entry) *AuditLogModel {
	return &AuditLogModel{
		ID:         e.ID,
		ActorID:    e.ActorID,
		ActorName:  e.ActorName,
		Action:     e.Action,
		Module:     e.Module,
		ResourceID: e.ResourceID,
		Details:    e.Details,
		OccurredAt: e.OccurredAt,
	}
}

// AllModels lists every table managed by this module, in dependency order.
func AllModels() []any {
	return []any{
		&ProductModel{},
		&CustomerModel{},
		&SaleModel{},
		&SaleItemModel{},
		&QuoteModel{},
		&QuoteItemModel{},
		&AuditLogModel{},
	}
}
