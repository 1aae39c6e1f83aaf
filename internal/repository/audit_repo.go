package repository

import (
	"context"
	"time"

	"stockledger/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditFilter defines filters for listing audit entries.
type AuditFilter struct {
	TenantID uuid.UUID
	ItemID   *uuid.UUID
	ActorID  string
	Action   model.AuditAction
	From     *time.Time
	To       *time.Time
	Page     int
	Limit    int
}

// AuditRepository is append-only: there is no update or delete.
type AuditRepository interface {
	CreateTx(tx *gorm.DB, e *model.AuditLogEntry) error
	List(ctx context.Context, filter AuditFilter) ([]model.AuditLogEntry, int64, error)
}

type auditRepo struct{ db *gorm.DB }

func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepo{db: db}
}

func (r *auditRepo) CreateTx(tx *gorm.DB, e *model.AuditLogEntry) error {
	return tx.Create(e).Error
}

func (r *auditRepo) List(ctx context.Context, filter AuditFilter) ([]model.AuditLogEntry, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.AuditLogEntry{}).
		Where("tenant_id = ?", filter.TenantID)
	if filter.ItemID != nil {
		q = q.Where("item_id = ?", *filter.ItemID)
	}
	if filter.ActorID != "" {
		q = q.Where("actor_id = ?", filter.ActorID)
	}
	if filter.Action != "" {
		q = q.Where("action = ?", filter.Action)
	}
	if filter.From != nil {
		q = q.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("created_at < ?", *filter.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, limit := NormalizePage(filter.Page, filter.Limit)
	var entries []model.AuditLogEntry
	err := q.Order("created_at DESC, id DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&entries).Error
	return entries, total, err
}

// NormalizePage clamps pagination input to page >= 1 and 1 <= limit <= 500.
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 500 {
		limit = 100
	}
	return page, limit
}
