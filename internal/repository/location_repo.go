package repository

import (
	"context"

	"stockledger/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LocationRepository is the location lookup the ledger validates against.
type LocationRepository interface {
	Create(ctx context.Context, l *model.Location) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Location, error)
	FindByIDTx(tx *gorm.DB, tenantID, id uuid.UUID) (*model.Location, error)
	List(ctx context.Context, tenantID uuid.UUID) ([]model.Location, error)
	DeleteTx(tx *gorm.DB, tenantID, id uuid.UUID) error
}

type locationRepo struct{ db *gorm.DB }

func NewLocationRepository(db *gorm.DB) LocationRepository { return &locationRepo{db: db} }

func (r *locationRepo) Create(ctx context.Context, l *model.Location) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *locationRepo) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Location, error) {
	return r.FindByIDTx(r.db.WithContext(ctx), tenantID, id)
}

func (r *locationRepo) FindByIDTx(tx *gorm.DB, tenantID, id uuid.UUID) (*model.Location, error) {
	var l model.Location
	if err := tx.Where("tenant_id = ? AND id = ?", tenantID, id).Take(&l).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *locationRepo) List(ctx context.Context, tenantID uuid.UUID) ([]model.Location, error) {
	var locs []model.Location
	err := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Order("name ASC").Find(&locs).Error
	return locs, err
}

func (r *locationRepo) DeleteTx(tx *gorm.DB, tenantID, id uuid.UUID) error {
	res := tx.Where("tenant_id = ? AND id = ?", tenantID, id).Delete(&model.Location{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
