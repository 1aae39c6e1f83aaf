package service

import (
	"context"
	"fmt"
	"time"

	"stockledger/internal/dto"
	"stockledger/internal/model"
	"stockledger/internal/repository"

	"gorm.io/gorm"
)

// AuditTrail is the append-only log of stock-affecting actions. Movements and
// fulfillment receive it by injection.
type AuditTrail interface {
	RecordTx(ctx context.Context, tx *gorm.DB, e *model.AuditLogEntry) error
	List(ctx context.Context, actor Actor, q dto.AuditQuery) (*dto.AuditListResponse, error)
}

type auditTrail struct {
	repo repository.AuditRepository
}

func NewAuditTrail(repo repository.AuditRepository) AuditTrail {
	return &auditTrail{repo: repo}
}

func (a *auditTrail) RecordTx(_ context.Context, tx *gorm.DB, e *model.AuditLogEntry) error {
	if !e.Action.Valid() {
		return fmt.Errorf("audit: unknown action %q", e.Action)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	return a.repo.CreateTx(tx, e)
}

func (a *auditTrail) List(ctx context.Context, actor Actor, q dto.AuditQuery) (*dto.AuditListResponse, error) {
	filter := repository.AuditFilter{
		TenantID: actor.TenantID,
		ActorID:  q.ActorID,
		Action:   model.AuditAction(q.Action),
		Page:     q.Page,
		Limit:    q.Limit,
	}
	if q.Action != "" && !filter.Action.Valid() {
		return nil, invalid("unknown audit action %q", q.Action)
	}
	if q.ItemID != "" {
		id, err := parseID("item_id", q.ItemID)
		if err != nil {
			return nil, err
		}
		filter.ItemID = &id
	}
	var err error
	if filter.From, err = parseTime("from", q.From); err != nil {
		return nil, err
	}
	if filter.To, err = parseTime("to", q.To); err != nil {
		return nil, err
	}

	entries, total, err := a.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	page, limit := repository.NormalizePage(q.Page, q.Limit)
	resp := &dto.AuditListResponse{
		Data:  make([]dto.AuditEntryResponse, 0, len(entries)),
		Total: total,
		Page:  page,
		Limit: limit,
	}
	for _, e := range entries {
		resp.Data = append(resp.Data, auditEntryToResponse(e))
	}
	return resp, nil
}

func parseTime(field, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, invalid("%s must be an RFC3339 timestamp", field)
	}
	return &t, nil
}

// newAuditEntry builds an entry for actor about item. item may be nil for
// actions that do not concern a single catalog item.
func newAuditEntry(actor Actor, item *model.Item, action model.AuditAction, detail string) *model.AuditLogEntry {
	e := &model.AuditLogEntry{
		TenantID: actor.TenantID,
		ActorID:  actor.UserID,
		Action:   action,
		Detail:   detail,
	}
	if item != nil {
		id := item.ID
		e.ItemID = &id
	}
	return e
}

func auditEntryToResponse(e model.AuditLogEntry) dto.AuditEntryResponse {
	r := dto.AuditEntryResponse{
		ID:        e.ID.String(),
		ActorID:   e.ActorID,
		Action:    string(e.Action),
		Detail:    e.Detail,
		CreatedAt: e.CreatedAt,
	}
	if e.ItemID != nil {
		s := e.ItemID.String()
		r.ItemID = &s
	}
	return r
}

// withNote appends a free-text note to an audit detail.
func withNote(detail, note string) string {
	if note == "" {
		return detail
	}
	return detail + ": " + note
}

