package repository

import (
	"context"

	"stockledger/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PickingOrderFilter defines filters for listing picking orders.
type PickingOrderFilter struct {
	TenantID uuid.UUID
	Status   model.PickingStatus
	Page     int
	Limit    int
}

type PickingOrderRepository interface {
	// Create inserts the order together with its lines.
	Create(ctx context.Context, o *model.PickingOrder) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.PickingOrder, error)
	List(ctx context.Context, filter PickingOrderFilter) ([]model.PickingOrder, int64, error)

	// Used inside transactions: callers must pass the tx instance.

	// FindByIDForUpdateTx loads the order under a row lock, lines included.
	FindByIDForUpdateTx(tx *gorm.DB, tenantID, id uuid.UUID) (*model.PickingOrder, error)
	UpdateStatusTx(tx *gorm.DB, o *model.PickingOrder) error
	UpdateLineTx(tx *gorm.DB, l *model.PickingOrderLine) error
	DeleteTx(tx *gorm.DB, tenantID, id uuid.UUID) error

	DB() *gorm.DB
}

type pickingOrderRepo struct{ db *gorm.DB }

func NewPickingOrderRepository(db *gorm.DB) PickingOrderRepository {
	return &pickingOrderRepo{db: db}
}

func (r *pickingOrderRepo) DB() *gorm.DB { return r.db }

func orderedLines(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }

func (r *pickingOrderRepo) Create(ctx context.Context, o *model.PickingOrder) error {
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *pickingOrderRepo) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.PickingOrder, error) {
	var o model.PickingOrder
	err := r.db.WithContext(ctx).
		Preload("Lines", orderedLines).
		Preload("Lines.Item").
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Take(&o).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *pickingOrderRepo) List(ctx context.Context, filter PickingOrderFilter) ([]model.PickingOrder, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.PickingOrder{}).
		Where("tenant_id = ?", filter.TenantID)
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, limit := NormalizePage(filter.Page, filter.Limit)
	var orders []model.PickingOrder
	err := q.Preload("Lines", orderedLines).
		Preload("Lines.Item").
		Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&orders).Error
	return orders, total, err
}

func (r *pickingOrderRepo) FindByIDForUpdateTx(tx *gorm.DB, tenantID, id uuid.UUID) (*model.PickingOrder, error) {
	var o model.PickingOrder
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Take(&o).Error
	if err != nil {
		return nil, err
	}
	// Lines are read after the order lock; they only change under it.
	if err := tx.Where("picking_order_id = ?", o.ID).Order("position ASC").Find(&o.Lines).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *pickingOrderRepo) UpdateStatusTx(tx *gorm.DB, o *model.PickingOrder) error {
	return tx.Model(o).Updates(map[string]interface{}{
		"status":       o.Status,
		"completed_at": o.CompletedAt,
	}).Error
}

func (r *pickingOrderRepo) UpdateLineTx(tx *gorm.DB, l *model.PickingOrderLine) error {
	return tx.Model(l).Updates(map[string]interface{}{
		"item_id":         l.ItemID,
		"picked_quantity": l.PickedQuantity,
	}).Error
}

func (r *pickingOrderRepo) DeleteTx(tx *gorm.DB, tenantID, id uuid.UUID) error {
	res := tx.Where("tenant_id = ? AND id = ?", tenantID, id).Delete(&model.PickingOrder{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
