package dto

import "time"

// PickingLineRequest names either a catalog item or a free-text description,
// never both.
type PickingLineRequest struct {
	ItemID      *string `json:"item_id" validate:"omitempty,uuid"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	Quantity    int     `json:"quantity" validate:"required,gt=0"`
}

type CreatePickingOrderRequest struct {
	SourceLocationID      *string              `json:"source_location_id" validate:"omitempty,uuid"`
	DestinationLocationID string               `json:"destination_location_id" validate:"required,uuid"`
	Notes                 string               `json:"notes" validate:"max=2000"`
	Lines                 []PickingLineRequest `json:"lines" validate:"required,min=1,dive"`
}

type UpdatePickingStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=NEW IN_PROGRESS COMPLETED CANCELLED"`
}

type PickingOrderFilter struct {
	Status string `form:"status" validate:"omitempty,oneof=NEW IN_PROGRESS COMPLETED CANCELLED"`
	Page   int    `form:"page" validate:"gte=0"`
	Limit  int    `form:"limit" validate:"gte=0,lte=500"`
}

// FulfillLineRequest reports what was picked for one order line. ItemID
// resolves a free-text line to a catalog item.
type FulfillLineRequest struct {
	LineID         string  `json:"line_id" validate:"required,uuid"`
	PickedQuantity int     `json:"picked_quantity" validate:"gte=0"`
	ItemID         *string `json:"item_id" validate:"omitempty,uuid"`
}

type FulfillRequest struct {
	Lines []FulfillLineRequest `json:"lines" validate:"dive"`
}

type PickingLineResponse struct {
	ID                string  `json:"id"`
	Position          int     `json:"position"`
	ItemID            *string `json:"item_id"`
	ItemSKU           string  `json:"item_sku,omitempty"`
	ItemName          string  `json:"item_name,omitempty"`
	Description       *string `json:"description"`
	RequestedQuantity int     `json:"requested_quantity"`
	PickedQuantity    *int    `json:"picked_quantity"`
	Resolved          bool    `json:"resolved"`
}

type PickingOrderResponse struct {
	ID                    string                `json:"id"`
	RequesterID           string                `json:"requester_id"`
	SourceLocationID      *string               `json:"source_location_id"`
	DestinationLocationID string                `json:"destination_location_id"`
	Shape                 string                `json:"shape"`
	Notes                 string                `json:"notes"`
	Status                string                `json:"status"`
	CreatedAt             time.Time             `json:"created_at"`
	UpdatedAt             time.Time             `json:"updated_at"`
	CompletedAt           *time.Time            `json:"completed_at"`
	Lines                 []PickingLineResponse `json:"lines"`
}

type PickingOrderListResponse struct {
	Data  []PickingOrderResponse `json:"data"`
	Total int64                  `json:"total"`
	Page  int                    `json:"page"`
	Limit int                    `json:"limit"`
}

// FulfillResponse is the completed order plus the fresh stock breakdown of
// every item the fulfillment moved.
type FulfillResponse struct {
	Order PickingOrderResponse `json:"order"`
	Items []ItemStockResponse  `json:"items"`
}
