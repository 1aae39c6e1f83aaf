package model

import (
	"bytes"
	"time"

	"github.com/google/uuid"
)

// StockEntry is the ledger's unit of storage: (item, location) -> quantity.
// Quantity never goes below zero; a zero row is logically absent but may
// persist. Rows are created lazily on the first movement into a location and
// are never deleted by the ledger itself.
type StockEntry struct {
	ItemID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	LocationID uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	Quantity   int       `gorm:"not null;default:0;check:chk_stock_entries_quantity,quantity >= 0"`
	UpdatedAt  time.Time

	// Deleting either side cascades to its stock rows.
	Item     *Item     `gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE"`
	Location *Location `gorm:"foreignKey:LocationID;constraint:OnDelete:CASCADE"`
}

// TableName overrides GORM's default pluralization.
func (StockEntry) TableName() string { return "stock_entries" }

// StockKey identifies one ledger row.
type StockKey struct {
	ItemID     uuid.UUID
	LocationID uuid.UUID
}

// Less orders keys by (item, location). Row locks are always taken in this
// order so concurrent mutators cannot deadlock on each other.
func (k StockKey) Less(o StockKey) bool {
	if c := bytes.Compare(k.ItemID[:], o.ItemID[:]); c != 0 {
		return c < 0
	}
	return bytes.Compare(k.LocationID[:], o.LocationID[:]) < 0
}
