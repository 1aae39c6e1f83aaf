package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ── Movements ─────────────────────────────────────────────────────────────────

type PlaceStockRequest struct {
	ItemID     string `json:"item_id" validate:"required,uuid"`
	LocationID string `json:"location_id" validate:"required,uuid"`
	Quantity   int    `json:"quantity" validate:"required,gt=0"`
	Note       string `json:"note" validate:"max=500"`
}

type TransferStockRequest struct {
	ItemID         string `json:"item_id" validate:"required,uuid"`
	FromLocationID string `json:"from_location_id" validate:"required,uuid"`
	ToLocationID   string `json:"to_location_id" validate:"required,uuid"`
	Quantity       int    `json:"quantity" validate:"required,gt=0"`
	Note           string `json:"note" validate:"max=500"`
}

// WriteOffRequest differs from the other movements: the reason is mandatory.
type WriteOffRequest struct {
	ItemID     string `json:"item_id" validate:"required,uuid"`
	LocationID string `json:"location_id" validate:"required,uuid"`
	Quantity   int    `json:"quantity" validate:"required,gt=0"`
	Reason     string `json:"reason" validate:"required,max=500"`
}

// ── Stock breakdowns ──────────────────────────────────────────────────────────

type LocationQuantity struct {
	LocationID   string `json:"location_id"`
	LocationName string `json:"location_name"`
	Quantity     int    `json:"quantity"`
}

// ItemStockResponse is an item with every location that holds it.
type ItemStockResponse struct {
	ID        string             `json:"id"`
	SKU       string             `json:"sku"`
	Name      string             `json:"name"`
	EAN       *string            `json:"ean,omitempty"`
	Price     decimal.Decimal    `json:"price"`
	Total     int                `json:"total"`
	Locations []LocationQuantity `json:"locations"`
	AsOf      time.Time          `json:"as_of"`
}

type LocationStockLine struct {
	ItemID   string `json:"item_id"`
	SKU      string `json:"sku"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

type LocationStockResponse struct {
	LocationID string              `json:"location_id"`
	Name       string              `json:"name"`
	Kind       string              `json:"kind"`
	Items      []LocationStockLine `json:"items"`
}
