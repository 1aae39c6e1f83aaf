package dto

import "time"

// AuditQuery is bound from the query string of GET /v1/audit.
// From and To are RFC3339 timestamps; To is exclusive.
type AuditQuery struct {
	ItemID  string `form:"item_id" validate:"omitempty,uuid"`
	ActorID string `form:"actor_id" validate:"max=128"`
	Action  string `form:"action" validate:"omitempty,oneof=created updated deleted quantity_adjusted placed withdrawn transferred write_off picking_fulfilled"`
	From    string `form:"from" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	To      string `form:"to" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Page    int    `form:"page" validate:"gte=0"`
	Limit   int    `form:"limit" validate:"gte=0,lte=500"`
}

type AuditEntryResponse struct {
	ID        string    `json:"id"`
	ActorID   string    `json:"actor_id"`
	ItemID    *string   `json:"item_id"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}

type AuditListResponse struct {
	Data  []AuditEntryResponse `json:"data"`
	Total int64                `json:"total"`
	Page  int                  `json:"page"`
	Limit int                  `json:"limit"`
}
