package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/retailcore/backoffice/internal/domain/shared"
)

// BaseModel holds the identity and timestamp columns every table shares.
// The timestamp column types come from the dialect; the SQL migrations
// declare them TIMESTAMPTZ on PostgreSQL.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// ToDomain returns the row's identity as a domain BaseEntity. The driver
// hands timestamps back in the session zone; the domain keeps UTC.
func (m *BaseModel) ToDomain() shared.BaseEntity {
	return shared.BaseEntity{
		ID:        m.ID,
		CreatedAt: shared.Timestamp(m.CreatedAt),
		UpdatedAt: shared.Timestamp(m.UpdatedAt),
	}
}

// FromDomainBaseEntity copies the identity of e into the row
func (m *BaseModel) FromDomainBaseEntity(e shared.BaseEntity) {
	m.ID = e.ID
	m.CreatedAt = e.CreatedAt
	m.UpdatedAt = e.UpdatedAt
}
