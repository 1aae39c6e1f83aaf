package repository

import (
	"context"

	"stockledger/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ItemRepository is the catalog lookup the ledger validates against.
// Every lookup is tenant-scoped: an item of another tenant is not found.
type ItemRepository interface {
	CreateTx(tx *gorm.DB, i *model.Item) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Item, error)
	FindByIDTx(tx *gorm.DB, tenantID, id uuid.UUID) (*model.Item, error)
	// DescribeLinesTx gives every picking line bound to the item the
	// label as its description, unless the line already carries one.
	DescribeLinesTx(tx *gorm.DB, id uuid.UUID, label string) error
	DeleteTx(tx *gorm.DB, tenantID, id uuid.UUID) error
}

type itemRepo struct{ db *gorm.DB }

func NewItemRepository(db *gorm.DB) ItemRepository { return &itemRepo{db: db} }

func (r *itemRepo) CreateTx(tx *gorm.DB, i *model.Item) error {
	return tx.Create(i).Error
}

func (r *itemRepo) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Item, error) {
	return r.FindByIDTx(r.db.WithContext(ctx), tenantID, id)
}

func (r *itemRepo) FindByIDTx(tx *gorm.DB, tenantID, id uuid.UUID) (*model.Item, error) {
	var i model.Item
	err := tx.Where("tenant_id = ? AND id = ?", tenantID, id).Take(&i).Error
	if err != nil {
		return nil, err
	}
	return &i, nil
}

func (r *itemRepo) DescribeLinesTx(tx *gorm.DB, id uuid.UUID, label string) error {
	return tx.Model(&model.PickingOrderLine{}).
		Where("item_id = ? AND description IS NULL", id).
		Update("description", label).Error
}

func (r *itemRepo) DeleteTx(tx *gorm.DB, tenantID, id uuid.UUID) error {
	res := tx.Where("tenant_id = ? AND id = ?", tenantID, id).Delete(&model.Item{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
