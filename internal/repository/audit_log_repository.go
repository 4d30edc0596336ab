package repository

import (
	"context"
	"time"

	"storefront/internal/domain/model"
)

// AuditLogFilter narrows the audit log listing. Zero fields are ignored.
type AuditLogFilter struct {
	ActorUserID  string
	Action       *model.AuditAction
	ResourceType *model.AuditResourceType
	ResourceID   string
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
	Limit        int
	Offset       int
}

// AuditLogRepository saves and lists audit entries.
type AuditLogRepository interface {
// Create stores one entry.
	Create(ctx context.Context, log model.AuditLog) error
// List returns entries newest first.
	List(ctx context.Context, filter AuditLogFilter) ([]model.AuditLog, error)
}
