package model

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PickingStatus is the lifecycle state of a PickingOrder.
type PickingStatus string

const (
	PickingNew        PickingStatus = "NEW"
	PickingInProgress PickingStatus = "IN_PROGRESS"
	PickingCompleted  PickingStatus = "COMPLETED"
	PickingCancelled  PickingStatus = "CANCELLED"
)

func (s PickingStatus) Valid() bool {
	switch s {
	case PickingNew, PickingInProgress, PickingCompleted, PickingCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further status change or fulfillment is allowed.
func (s PickingStatus) Terminal() bool {
	return s == PickingCompleted || s == PickingCancelled
}

// Fulfillable reports whether an order in this status may be fulfilled.
func (s PickingStatus) Fulfillable() bool {
	return s == PickingNew || s == PickingInProgress
}

// CanMoveTo reports whether an explicit status update from s to next is
// allowed. COMPLETED is reachable only through fulfillment.
func (s PickingStatus) CanMoveTo(next PickingStatus) bool {
	return !s.Terminal() && next.Valid() && next != PickingCompleted
}

// PickingOrder is a request to move material from SourceLocationID to
// DestinationLocationID, or, with no source, to receive newly acquired
// material at the destination.
type PickingOrder struct {
	ID                    uuid.UUID     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TenantID              uuid.UUID     `gorm:"type:uuid;not null;index:idx_picking_tenant_status,priority:1"`
	RequesterID           string        `gorm:"not null"`
	SourceLocationID      *uuid.UUID    `gorm:"type:uuid"`
	DestinationLocationID uuid.UUID     `gorm:"type:uuid;not null"`
	Notes                 string        `gorm:"type:text"`
	Status                PickingStatus `gorm:"type:varchar(20);not null;default:'NEW';index:idx_picking_tenant_status,priority:2"`
	CreatedAt             time.Time
	UpdatedAt             time.Time
	CompletedAt           *time.Time

	Lines []PickingOrderLine `gorm:"foreignKey:PickingOrderID;constraint:OnDelete:CASCADE"`
}

// IsTransfer reports the order shape: true when stock is debited from a
// source location, false for an acquisition.
func (o *PickingOrder) IsTransfer() bool { return o.SourceLocationID != nil }

// Line returns the order line with the given id.
func (o *PickingOrder) Line(id uuid.UUID) (*PickingOrderLine, bool) {
	for i := range o.Lines {
		if o.Lines[i].ID == id {
			return &o.Lines[i], true
		}
	}
	return nil, false
}

// PickingOrderLine is one requested unit of work. It starts either bound to a
// catalog item or as free text; a free-text line becomes bound when it is
// resolved during fulfillment and stays bound afterwards.
type PickingOrderLine struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	PickingOrderID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	Position          int        `gorm:"not null"`
	ItemID            *uuid.UUID `gorm:"type:uuid;index"`
	Description       *string    `gorm:"type:text"`
	RequestedQuantity int        `gorm:"not null;check:chk_picking_lines_requested,requested_quantity > 0"`
	PickedQuantity    *int

	Item *Item `gorm:"foreignKey:ItemID;constraint:OnDelete:SET NULL"`
}

// Resolved reports whether the line references a catalog item.
func (l *PickingOrderLine) Resolved() bool { return l.ItemID != nil }

// Bind resolves a free-text line to a catalog item. Binding is one-way.
func (l *PickingOrderLine) Bind(itemID uuid.UUID) {
	if l.ItemID == nil {
		id := itemID
		l.ItemID = &id
	}
}

// ── Requested lines ──────────────────────────────────────────────────────────

// RequestedLine is what a caller asks for when creating an order. It is
// either a CatalogLine or a DescribedLine, never both.
type RequestedLine interface {
	Quantity() int
	toLine(position int) PickingOrderLine
}

// CatalogLine requests a known catalog item.
type CatalogLine struct {
	ItemID uuid.UUID
	Qty    int
}

// DescribedLine requests material by free-text description.
type DescribedLine struct {
	Text string
	Qty  int
}

func (c CatalogLine) Quantity() int   { return c.Qty }
func (d DescribedLine) Quantity() int { return d.Qty }

func (c CatalogLine) toLine(position int) PickingOrderLine {
	id := c.ItemID
	return PickingOrderLine{Position: position, ItemID: &id, RequestedQuantity: c.Qty}
}

func (d DescribedLine) toLine(position int) PickingOrderLine {
	text := strings.TrimSpace(d.Text)
	return PickingOrderLine{Position: position, Description: &text, RequestedQuantity: d.Qty}
}

var (
	errEmptyDescription = errors.New("description must not be empty")
	errNonPositiveQty   = errors.New("requested quantity must be positive")
)

// NewPickingOrderLines converts requested lines into order lines, numbering
// them in request order.
func NewPickingOrderLines(requested []RequestedLine) ([]PickingOrderLine, error) {
	lines := make([]PickingOrderLine, 0, len(requested))
	for i, r := range requested {
		if r.Quantity() <= 0 {
			return nil, errNonPositiveQty
		}
		if d, ok := r.(DescribedLine); ok && strings.TrimSpace(d.Text) == "" {
			return nil, errEmptyDescription
		}
		lines = append(lines, r.toLine(i+1))
	}
	return lines, nil
}
