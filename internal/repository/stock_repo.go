package repository

import (
	"context"
	"errors"
	"sort"
	"time"

	"stockledger/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StockRepository is the data access contract for ledger rows.
// Services depend on this interface, not on the concrete GORM implementation,
// enabling clean unit testing via stubs.
type StockRepository interface {
	// Get returns the quantity for (item, location), 0 when no row exists.
	Get(ctx context.Context, itemID, locationID uuid.UUID) (int, error)
	ListByItem(ctx context.Context, itemID uuid.UUID) ([]model.StockEntry, error)
	ListByLocation(ctx context.Context, locationID uuid.UUID) ([]model.StockEntry, error)

	// Used inside transactions: callers must pass the tx instance.

	GetTx(tx *gorm.DB, key model.StockKey) (int, error)
	// LockTx creates any missing rows and takes row locks on every key in
	// StockKey order, returning the locked quantities.
	LockTx(tx *gorm.DB, keys []model.StockKey) (map[model.StockKey]int, error)
	// AdjustTx adds delta to the row unless the result would be negative.
	// applied is false (and nothing changes) when the guard rejects it.
	AdjustTx(tx *gorm.DB, key model.StockKey, delta int) (quantity int, applied bool, err error)
	HasPositiveStockTx(tx *gorm.DB, locationID uuid.UUID) (bool, error)

	// DB exposes the underlying *gorm.DB so services can open transactions.
	DB() *gorm.DB
}

type stockRepo struct{ db *gorm.DB }

func NewStockRepository(db *gorm.DB) StockRepository { return &stockRepo{db: db} }

func (r *stockRepo) DB() *gorm.DB { return r.db }

func (r *stockRepo) Get(ctx context.Context, itemID, locationID uuid.UUID) (int, error) {
	return r.GetTx(r.db.WithContext(ctx), model.StockKey{ItemID: itemID, LocationID: locationID})
}

func (r *stockRepo) GetTx(tx *gorm.DB, key model.StockKey) (int, error) {
	var e model.StockEntry
	err := tx.Where("item_id = ? AND location_id = ?", key.ItemID, key.LocationID).
		Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	return e.Quantity, err
}

func (r *stockRepo) ListByItem(ctx context.Context, itemID uuid.UUID) ([]model.StockEntry, error) {
	var entries []model.StockEntry
	err := r.db.WithContext(ctx).
		Preload("Location").
		Where("item_id = ? AND quantity > 0", itemID).
		Find(&entries).Error
	sortByLocationName(entries)
	return entries, err
}

func (r *stockRepo) ListByLocation(ctx context.Context, locationID uuid.UUID) ([]model.StockEntry, error) {
	var entries []model.StockEntry
	err := r.db.WithContext(ctx).
		Preload("Item").
		Where("location_id = ? AND quantity > 0", locationID).
		Find(&entries).Error
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Item.Label() < entries[j].Item.Label()
	})
	return entries, err
}

func (r *stockRepo) LockTx(tx *gorm.DB, keys []model.StockKey) (map[model.StockKey]int, error) {
	ordered := sortedUniqueKeys(keys)
	if len(ordered) == 0 {
		return map[model.StockKey]int{}, nil
	}

	rows := make([]model.StockEntry, 0, len(ordered))
	for _, k := range ordered {
		rows = append(rows, model.StockEntry{ItemID: k.ItemID, LocationID: k.LocationID})
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
		return nil, err
	}

	// One statement per key keeps the lock acquisition order explicit.
	locked := make(map[model.StockKey]int, len(ordered))
	for _, k := range ordered {
		var e model.StockEntry
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("item_id = ? AND location_id = ?", k.ItemID, k.LocationID).
			Take(&e).Error
		if err != nil {
			return nil, err
		}
		locked[k] = e.Quantity
	}
	return locked, nil
}

func (r *stockRepo) AdjustTx(tx *gorm.DB, key model.StockKey, delta int) (int, bool, error) {
	seed := model.StockEntry{ItemID: key.ItemID, LocationID: key.LocationID}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return 0, false, err
	}

	var updated []model.StockEntry
	res := tx.Model(&updated).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "quantity"}}}).
		Where("item_id = ? AND location_id = ? AND quantity + ? >= 0", key.ItemID, key.LocationID, delta).
		Updates(map[string]interface{}{
			"quantity":   gorm.Expr("quantity + ?", delta),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return 0, false, res.Error
	}
	if res.RowsAffected == 0 || len(updated) == 0 {
		return 0, false, nil
	}
	return updated[0].Quantity, true, nil
}

func (r *stockRepo) HasPositiveStockTx(tx *gorm.DB, locationID uuid.UUID) (bool, error) {
	var count int64
	err := tx.Model(&model.StockEntry{}).
		Where("location_id = ? AND quantity > 0", locationID).
		Count(&count).Error
	return count > 0, err
}

func sortedUniqueKeys(keys []model.StockKey) []model.StockKey {
	seen := make(map[model.StockKey]bool, len(keys))
	out := make([]model.StockKey, 0, len(keys))
	for _, k := range keys {
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

func sortByLocationName(entries []model.StockEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Location.Label() < entries[j].Location.Label()
	})
}
