package persistence

import (
	"context"

	"github.com/retailcore/backoffice/internal/domain/audit"
	"github.com/retailcore/backoffice/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormAuditRepository appends audit entries to audit_logs
type GormAuditRepository struct {
	db *gorm.DB
}

// NewGormAuditRepository creates a new GormAuditRepository
func NewGormAuditRepository(db *gorm.DB) *GormAuditRepository {
	return &GormAuditRepository{db: db}
}

// Save inserts one entry
func (r *GormAuditRepository) Save(ctx context.Context, entry *audit.Entry) error {
	return r.db.WithContext(ctx).Create(models.AuditLogModelFromDomain(entry)).Error
}

var _ audit.Repository = (*GormAuditRepository)(nil)
