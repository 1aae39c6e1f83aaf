package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stockledger/internal/dto"
	"stockledger/internal/infra"
	"stockledger/internal/model"
	"stockledger/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// OrderLocker serializes fulfillments of the same order across processes.
// *infra.Locker implements it.
type OrderLocker interface {
	Obtain(ctx context.Context, key string) (release func(), err error)
}

// FulfillmentService completes picking orders against the ledger.
type FulfillmentService interface {
	// Fulfill applies the picked quantities of req to the order and marks it
	// COMPLETED. It is all-or-nothing: on any error the order keeps its
	// status and the ledger is unchanged.
	Fulfill(ctx context.Context, actor Actor, orderID uuid.UUID, req dto.FulfillRequest) (*dto.FulfillResponse, error)
}

type fulfillmentService struct {
	orders    repository.PickingOrderRepository
	items     repository.ItemRepository
	locations repository.LocationRepository
	ledger    LedgerService
	audit     AuditTrail
	stock     StockQueryService
	locker    OrderLocker
}

// NewFulfillmentService wires the engine. locker may be nil.
func NewFulfillmentService(
	orders repository.PickingOrderRepository,
	items repository.ItemRepository,
	locations repository.LocationRepository,
	ledger LedgerService,
	audit AuditTrail,
	stock StockQueryService,
	locker OrderLocker,
) FulfillmentService {
	return &fulfillmentService{
		orders: orders, items: items, locations: locations,
		ledger: ledger, audit: audit, stock: stock, locker: locker,
	}
}

// pickedLine is one validated input line.
type pickedLine struct {
	line   *model.PickingOrderLine
	item   *model.Item
	picked int
	bind   bool
}

func (s *fulfillmentService) Fulfill(ctx context.Context, actor Actor, orderID uuid.UUID, req dto.FulfillRequest) (*dto.FulfillResponse, error) {
	release, err := s.lockOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	defer release()

	// Once started, a fulfillment commits or rolls back on its own terms.
	ctx = context.WithoutCancel(ctx)

	var moved []uuid.UUID
	err = runTx(ctx, s.orders.DB(), func(tx *gorm.DB) error {
		order, err := s.orders.FindByIDForUpdateTx(tx, actor.TenantID, orderID)
		if err != nil {
			return notFound("picking order", err)
		}
		if !order.Status.Fulfillable() {
			return fmt.Errorf("%w: order is %s", ErrInvalidTransition, order.Status)
		}

		plan, err := s.resolve(tx, actor, order, req)
		if err != nil {
			return err
		}
		dest, err := s.locations.FindByIDTx(tx, actor.TenantID, order.DestinationLocationID)
		if err != nil {
			return notFound("destination location", err)
		}
		var src *model.Location
		if order.IsTransfer() {
			if src, err = s.locations.FindByIDTx(tx, actor.TenantID, *order.SourceLocationID); err != nil {
				return notFound("source location", err)
			}
		}

		if err := s.preflight(ctx, tx, order, plan); err != nil {
			return err
		}

		for _, p := range plan {
			if p.bind {
				p.line.Bind(p.item.ID)
			}
			picked := p.picked
			p.line.PickedQuantity = &picked
			if err := s.orders.UpdateLineTx(tx, p.line); err != nil {
				return err
			}
		}

		for _, p := range plan {
			if p.picked == 0 {
				continue
			}
			if err := s.move(ctx, tx, actor, order, src, dest, p); err != nil {
				return err
			}
			moved = append(moved, p.item.ID)
		}

		now := time.Now()
		order.Status = model.PickingCompleted
		order.CompletedAt = &now
		return s.orders.UpdateStatusTx(tx, order)
	})
	if err != nil {
		if errors.Is(err, ErrConflict) {
			log.Warn().Err(err).Str("order_id", orderID.String()).Msg("fulfillment: conflict")
		}
		return nil, err
	}

	moved = uniqueIDs(moved)
	log.Info().
		Str("order_id", orderID.String()).
		Str("actor", actor.UserID).
		Int("lines", len(req.Lines)).
		Int("items_moved", len(moved)).
		Msg("picking order fulfilled")

	return s.response(ctx, actor, orderID, moved)
}

func (s *fulfillmentService) lockOrder(ctx context.Context, orderID uuid.UUID) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	release, err := s.locker.Obtain(ctx, "lock:picking:"+orderID.String())
	if errors.Is(err, infra.ErrLockNotObtained) {
		return nil, fmt.Errorf("%w: order %s is being fulfilled", ErrConflict, orderID)
	}
	if err != nil {
		return nil, err
	}
	return release, nil
}

// resolve validates every input line against the order before anything is
// written. Free-text lines with nothing picked and no item are dropped.
func (s *fulfillmentService) resolve(tx *gorm.DB, actor Actor, order *model.PickingOrder, req dto.FulfillRequest) ([]pickedLine, error) {
	seen := make(map[uuid.UUID]bool, len(req.Lines))
	plan := make([]pickedLine, 0, len(req.Lines))
	for _, in := range req.Lines {
		lineID, err := parseID("line_id", in.LineID)
		if err != nil {
			return nil, err
		}
		if seen[lineID] {
			return nil, invalid("line %s appears more than once", lineID)
		}
		seen[lineID] = true
		if in.PickedQuantity < 0 {
			return nil, invalid("picked quantity must not be negative")
		}
		line, ok := order.Line(lineID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrLineNotFound, lineID)
		}
		resolving, err := parseOptionalID("item_id", in.ItemID)
		if err != nil {
			return nil, err
		}

		var itemID uuid.UUID
		switch {
		case line.Resolved():
			if resolving != nil && *resolving != *line.ItemID {
				return nil, invalid("line %d is already bound to another item", line.Position)
			}
			itemID = *line.ItemID
		case resolving != nil:
			itemID = *resolving
		case in.PickedQuantity == 0:
			continue
		default:
			return nil, fmt.Errorf("%w: line %d", ErrUnresolvedLine, line.Position)
		}

		item, err := s.items.FindByIDTx(tx, actor.TenantID, itemID)
		if err != nil {
			return nil, notFound(fmt.Sprintf("item for line %d", line.Position), err)
		}
		plan = append(plan, pickedLine{line: line, item: item, picked: in.PickedQuantity, bind: !line.Resolved()})
	}
	return plan, nil
}

// preflight locks every stock row the plan touches and checks the summed
// debits against the source before any mutation.
func (s *fulfillmentService) preflight(ctx context.Context, tx *gorm.DB, order *model.PickingOrder, plan []pickedLine) error {
	var keys []model.StockKey
	debits := make(map[model.StockKey]int)
	for _, p := range plan {
		if p.picked == 0 {
			continue
		}
		keys = append(keys, model.StockKey{ItemID: p.item.ID, LocationID: order.DestinationLocationID})
		if order.IsTransfer() {
			k := model.StockKey{ItemID: p.item.ID, LocationID: *order.SourceLocationID}
			keys = append(keys, k)
			debits[k] += p.picked
		}
	}
	if len(keys) == 0 {
		return nil
	}
	locked, err := s.ledger.LockTx(ctx, tx, keys...)
	if err != nil {
		return err
	}
	for _, k := range keys {
		need, ok := debits[k]
		if ok && locked[k] < need {
			return &InsufficientStockError{ItemID: k.ItemID, LocationID: k.LocationID, Available: locked[k], Requested: need}
		}
	}
	return nil
}

// move applies one picked line to the ledger and records it.
func (s *fulfillmentService) move(ctx context.Context, tx *gorm.DB, actor Actor, order *model.PickingOrder, src, dest *model.Location, p pickedLine) error {
	var detail string
	action := model.AuditPlaced
	if order.IsTransfer() {
		srcAfter, err := s.ledger.AdjustTx(ctx, tx, model.StockKey{ItemID: p.item.ID, LocationID: src.ID}, -p.picked)
		if err != nil {
			return err
		}
		destAfter, err := s.ledger.AdjustTx(ctx, tx, model.StockKey{ItemID: p.item.ID, LocationID: dest.ID}, p.picked)
		if err != nil {
			return err
		}
		action = model.AuditPickingFulfilled
		detail = fmt.Sprintf("Picked %d × %s from %s (%d→%d) to %s (%d→%d)",
			p.picked, p.item.Label(),
			src.Label(), srcAfter+p.picked, srcAfter,
			dest.Label(), destAfter-p.picked, destAfter)
	} else {
		destAfter, err := s.ledger.AdjustTx(ctx, tx, model.StockKey{ItemID: p.item.ID, LocationID: dest.ID}, p.picked)
		if err != nil {
			return err
		}
		detail = fmt.Sprintf("Received %d × %s into %s (%d→%d)",
			p.picked, p.item.Label(), dest.Label(), destAfter-p.picked, destAfter)
	}
	detail += fmt.Sprintf(" for picking order %s line %d", order.ID, p.line.Position)
	return s.audit.RecordTx(ctx, tx, newAuditEntry(actor, p.item, action, detail))
}

func (s *fulfillmentService) response(ctx context.Context, actor Actor, orderID uuid.UUID, moved []uuid.UUID) (*dto.FulfillResponse, error) {
	s.stock.Changed(ctx, actor.TenantID, moved...)

	order, err := s.orders.FindByID(ctx, actor.TenantID, orderID)
	if err != nil {
		return nil, notFound("picking order", err)
	}
	resp := &dto.FulfillResponse{
		Order: pickingOrderToResponse(order),
		Items: make([]dto.ItemStockResponse, 0, len(moved)),
	}
	for _, id := range moved {
		item, err := s.items.FindByID(ctx, actor.TenantID, id)
		if err != nil {
			return nil, notFound("item", err)
		}
		b, err := s.stock.Breakdown(ctx, item)
		if err != nil {
			return nil, err
		}
		resp.Items = append(resp.Items, *b)
	}
	return resp, nil
}
