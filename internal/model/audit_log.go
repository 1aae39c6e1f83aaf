package model

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction is the kind of stock-affecting action an entry records.
type AuditAction string

const (
	AuditCreated          AuditAction = "created"
	AuditUpdated          AuditAction = "updated"
	AuditDeleted          AuditAction = "deleted"
	AuditQuantityAdjusted AuditAction = "quantity_adjusted"
	AuditPlaced           AuditAction = "placed"
	AuditWithdrawn        AuditAction = "withdrawn"
	AuditTransferred      AuditAction = "transferred"
	AuditWriteOff         AuditAction = "write_off"
	AuditPickingFulfilled AuditAction = "picking_fulfilled"
)

// Valid reports whether a is one of the known actions.
func (a AuditAction) Valid() bool {
	switch a {
	case AuditCreated, AuditUpdated, AuditDeleted, AuditQuantityAdjusted, AuditPlaced,
		AuditWithdrawn, AuditTransferred, AuditWriteOff, AuditPickingFulfilled:
		return true
	}
	return false
}

// AuditLogEntry is an immutable record of a stock-affecting action.
// Entries outlive the items they reference: ItemID becomes NULL when the item
// is deleted. Entries are never updated or deleted.
type AuditLogEntry struct {
	ID        uuid.UUID   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TenantID  uuid.UUID   `gorm:"type:uuid;not null;index:idx_audit_tenant_created,priority:1"`
	ActorID   string      `gorm:"not null;index"`
	ItemID    *uuid.UUID  `gorm:"type:uuid;index"`
	Action    AuditAction `gorm:"type:varchar(32);not null"`
	Detail    string      `gorm:"type:text;not null"`
	CreatedAt time.Time   `gorm:"index:idx_audit_tenant_created,priority:2"`

	Item *Item `gorm:"foreignKey:ItemID;constraint:OnDelete:SET NULL"`
}

// TableName overrides GORM's default pluralization.
func (AuditLogEntry) TableName() string { return "audit_log_entries" }
