package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Item is a catalog entry. It never carries a quantity: stock lives
// exclusively in StockEntry rows.
type Item struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TenantID  uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_items_tenant_sku,priority:1"`
	SKU       string          `gorm:"not null;uniqueIndex:idx_items_tenant_sku,priority:2"`
	Name      string          `gorm:"not null;index"`
	EAN       *string         `gorm:"index"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Label renders the item the way audit details refer to it.
func (i *Item) Label() string {
	if i == nil {
		return "unknown item"
	}
	return i.Name + " (" + i.SKU + ")"
}
