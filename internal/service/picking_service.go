package service

import (
	"context"
	"fmt"
	"strings"

	"stockledger/internal/dto"
	"stockledger/internal/model"
	"stockledger/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PickingService manages picking orders up to, but not including,
// fulfillment. Nothing here touches the ledger.
type PickingService interface {
	Create(ctx context.Context, actor Actor, req dto.CreatePickingOrderRequest) (*dto.PickingOrderResponse, error)
	Get(ctx context.Context, actor Actor, id uuid.UUID) (*dto.PickingOrderResponse, error)
	List(ctx context.Context, actor Actor, filter dto.PickingOrderFilter) (*dto.PickingOrderListResponse, error)
	// UpdateStatus moves an order between NEW, IN_PROGRESS and CANCELLED.
	// COMPLETED is only reachable through fulfillment.
	UpdateStatus(ctx context.Context, actor Actor, id uuid.UUID, req dto.UpdatePickingStatusRequest) (*dto.PickingOrderResponse, error)
	// Delete removes a NEW or CANCELLED order together with its lines.
	Delete(ctx context.Context, actor Actor, id uuid.UUID) error
}

type pickingService struct {
	orders    repository.PickingOrderRepository
	items     repository.ItemRepository
	locations repository.LocationRepository
}

func NewPickingService(
	orders repository.PickingOrderRepository,
	items repository.ItemRepository,
	locations repository.LocationRepository,
) PickingService {
	return &pickingService{orders: orders, items: items, locations: locations}
}

func (s *pickingService) Create(ctx context.Context, actor Actor, req dto.CreatePickingOrderRequest) (*dto.PickingOrderResponse, error) {
	destID, err := parseID("destination_location_id", req.DestinationLocationID)
	if err != nil {
		return nil, err
	}
	srcID, err := parseOptionalID("source_location_id", req.SourceLocationID)
	if err != nil {
		return nil, err
	}
	if srcID != nil && *srcID == destID {
		return nil, invalid("source and destination are the same location")
	}
	requested, err := requestedLines(req.Lines)
	if err != nil {
		return nil, err
	}
	lines, err := model.NewPickingOrderLines(requested)
	if err != nil {
		return nil, invalid("%v", err)
	}

	if _, err := s.locations.FindByID(ctx, actor.TenantID, destID); err != nil {
		return nil, notFound("destination location", err)
	}
	if srcID != nil {
		if _, err := s.locations.FindByID(ctx, actor.TenantID, *srcID); err != nil {
			return nil, notFound("source location", err)
		}
	}
	for _, l := range lines {
		if l.ItemID == nil {
			continue
		}
		if _, err := s.items.FindByID(ctx, actor.TenantID, *l.ItemID); err != nil {
			return nil, notFound(fmt.Sprintf("item on line %d", l.Position), err)
		}
	}

	order := &model.PickingOrder{
		TenantID:              actor.TenantID,
		RequesterID:           actor.UserID,
		SourceLocationID:      srcID,
		DestinationLocationID: destID,
		Notes:                 strings.TrimSpace(req.Notes),
		Status:                model.PickingNew,
		Lines:                 lines,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, err
	}
	return s.Get(ctx, actor, order.ID)
}

// requestedLines converts wire lines into the two-case line variant.
func requestedLines(in []dto.PickingLineRequest) ([]model.RequestedLine, error) {
	if len(in) == 0 {
		return nil, invalid("an order needs at least one line")
	}
	out := make([]model.RequestedLine, 0, len(in))
	for i, l := range in {
		hasItem := l.ItemID != nil && strings.TrimSpace(*l.ItemID) != ""
		hasText := l.Description != nil && strings.TrimSpace(*l.Description) != ""
		switch {
		case hasItem && hasText:
			return nil, invalid("line %d sets both item_id and description", i+1)
		case hasItem:
			id, err := parseID(fmt.Sprintf("lines[%d].item_id", i), *l.ItemID)
			if err != nil {
				return nil, err
			}
			out = append(out, model.CatalogLine{ItemID: id, Qty: l.Quantity})
		case hasText:
			out = append(out, model.DescribedLine{Text: *l.Description, Qty: l.Quantity})
		default:
			return nil, invalid("line %d needs an item_id or a description", i+1)
		}
	}
	return out, nil
}

func (s *pickingService) Get(ctx context.Context, actor Actor, id uuid.UUID) (*dto.PickingOrderResponse, error) {
	o, err := s.orders.FindByID(ctx, actor.TenantID, id)
	if err != nil {
		return nil, notFound("picking order", err)
	}
	resp := pickingOrderToResponse(o)
	return &resp, nil
}

func (s *pickingService) List(ctx context.Context, actor Actor, filter dto.PickingOrderFilter) (*dto.PickingOrderListResponse, error) {
	status := model.PickingStatus(filter.Status)
	if status != "" && !status.Valid() {
		return nil, invalid("unknown status %q", filter.Status)
	}
	orders, total, err := s.orders.List(ctx, repository.PickingOrderFilter{
		TenantID: actor.TenantID,
		Status:   status,
		Page:     filter.Page,
		Limit:    filter.Limit,
	})
	if err != nil {
		return nil, err
	}
	page, limit := repository.NormalizePage(filter.Page, filter.Limit)
	resp := &dto.PickingOrderListResponse{
		Data:  make([]dto.PickingOrderResponse, 0, len(orders)),
		Total: total,
		Page:  page,
		Limit: limit,
	}
	for i := range orders {
		resp.Data = append(resp.Data, pickingOrderToResponse(&orders[i]))
	}
	return resp, nil
}

func (s *pickingService) UpdateStatus(ctx context.Context, actor Actor, id uuid.UUID, req dto.UpdatePickingStatusRequest) (*dto.PickingOrderResponse, error) {
	next := model.PickingStatus(req.Status)
	err := runTx(ctx, s.orders.DB(), func(tx *gorm.DB) error {
		o, err := s.orders.FindByIDForUpdateTx(tx, actor.TenantID, id)
		if err != nil {
			return notFound("picking order", err)
		}
		if !o.Status.CanMoveTo(next) {
			return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, o.Status, req.Status)
		}
		if o.Status == next {
			return nil
		}
		o.Status = next
		return s.orders.UpdateStatusTx(tx, o)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, actor, id)
}

func (s *pickingService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	return runTx(ctx, s.orders.DB(), func(tx *gorm.DB) error {
		o, err := s.orders.FindByIDForUpdateTx(tx, actor.TenantID, id)
		if err != nil {
			return notFound("picking order", err)
		}
		if o.Status != model.PickingNew && o.Status != model.PickingCancelled {
			return fmt.Errorf("%w: cannot delete a %s order", ErrInvalidTransition, o.Status)
		}
		return notFound("picking order", s.orders.DeleteTx(tx, actor.TenantID, id))
	})
}

// ── Mapping ──────────────────────────────────────────────────────────────────

func pickingOrderToResponse(o *model.PickingOrder) dto.PickingOrderResponse {
	r := dto.PickingOrderResponse{
		ID:                    o.ID.String(),
		RequesterID:           o.RequesterID,
		DestinationLocationID: o.DestinationLocationID.String(),
		Shape:                 "acquisition",
		Notes:                 o.Notes,
		Status:                string(o.Status),
		CreatedAt:             o.CreatedAt,
		UpdatedAt:             o.UpdatedAt,
		CompletedAt:           o.CompletedAt,
		Lines:                 make([]dto.PickingLineResponse, 0, len(o.Lines)),
	}
	if o.IsTransfer() {
		src := o.SourceLocationID.String()
		r.SourceLocationID = &src
		r.Shape = "transfer"
	}
	for i := range o.Lines {
		l := &o.Lines[i]
		lr := dto.PickingLineResponse{
			ID:                l.ID.String(),
			Position:          l.Position,
			Description:       l.Description,
			RequestedQuantity: l.RequestedQuantity,
			PickedQuantity:    l.PickedQuantity,
			Resolved:          l.Resolved(),
		}
		if l.ItemID != nil {
			id := l.ItemID.String()
			lr.ItemID = &id
		}
		if l.Item != nil {
			lr.ItemSKU, lr.ItemName = l.Item.SKU, l.Item.Name
		}
		r.Lines = append(r.Lines, lr)
	}
	return r
}
