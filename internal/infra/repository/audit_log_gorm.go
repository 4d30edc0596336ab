package repository

import (
	"context"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
)

// audit_logs table row
type auditLogRecord struct {
	ID           string `gorm:"primaryKey;type:varchar(64)"`
	ActorUserID  string `gorm:"index;type:varchar(64);not null"`
	Action       string `gorm:"index;type:varchar(64);not null"`
	ResourceType string `gorm:"type:varchar(32);not null"`
	ResourceID   string `gorm:"index;type:varchar(64);not null"`
	BeforeJSON   string `gorm:"column:before_json;type:jsonb"`
	AfterJSON    string `gorm:"column:after_json;type:jsonb"`
	CreatedAt    time.Time
}

func (auditLogRecord) TableName() string { return "audit_logs" }

type auditLogGormRepository struct {
	db *gorm.DB
}

func NewAuditLogGormRepository(db *gorm.DB) repo.AuditLogRepository {
	return &auditLogGormRepository{db: db}
}

func (r *auditLogGormRepository) Create(ctx context.Context, log model.AuditLog) error {
	rec := auditLogRecord{
		ID:           log.ID,
		ActorUserID:  log.ActorUserID,
		Action:       string(log.Action),
		ResourceType: string(log.ResourceType),
		ResourceID:   log.ResourceID,
		BeforeJSON:   jsonOrNull(log.BeforeJSON),
		AfterJSON:    jsonOrNull(log.AfterJSON),
		CreatedAt:    log.CreatedAt,
	}
	return r.db.WithContext(ctx).Create(&rec).Error
}

func (r *auditLogGormRepository) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	q := r.db.WithContext(ctx).Model(&auditLogRecord{})

// filters
	if filter.ActorUserID != "" {
		q = q.Where("actor_user_id = ?", filter.ActorUserID)
	}
	if filter.Action != nil {
		q = q.Where("action = ?", string(*filter.Action))
	}
	if filter.ResourceType != nil {
		q = q.Where("resource_type = ?", string(*filter.ResourceType))
	}
	if filter.ResourceID != "" {
		q = q.Where("resource_id = ?", filter.ResourceID)
	}
	if filter.CreatedFrom != nil {
		q = q.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		q = q.Where("created_at <= ?", *filter.CreatedTo)
	}

// paging
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var recs []auditLogRecord
	if err := q.Order("created_at DESC").Limit(limit).Offset(filter.Offset).Find(&recs).Error; err != nil {
		return nil, err
	}

	logs := make([]model.AuditLog, 0, len(recs))
	for _, rec := range recs {
		logs = append(logs, model.AuditLog{
			ID:           rec.ID,
			ActorUserID:  rec.ActorUserID,
			Action:       model.AuditAction(rec.Action),
			ResourceType: model.AuditResourceType(rec.ResourceType),
			ResourceID:   rec.ResourceID,
			BeforeJSON:   rec.BeforeJSON,
			AfterJSON:    rec.AfterJSON,
			CreatedAt:    rec.CreatedAt,
		})
	}
	return logs, nil
}

// jsonb rejects the empty string.
func jsonOrNull(s string) string {
	if s == "" {
		return "null"
	}
	return s
}
