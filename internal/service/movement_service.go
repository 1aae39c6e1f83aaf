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

// MovementService implements the three stock movements. Each one is a single
// transaction that writes exactly one audit entry and returns the item's
// fresh stock breakdown.
type MovementService interface {
	Place(ctx context.Context, actor Actor, req dto.PlaceStockRequest) (*dto.ItemStockResponse, error)
	Transfer(ctx context.Context, actor Actor, req dto.TransferStockRequest) (*dto.ItemStockResponse, error)
	WriteOff(ctx context.Context, actor Actor, req dto.WriteOffRequest) (*dto.ItemStockResponse, error)
}

type movementService struct {
	db        *gorm.DB
	ledger    LedgerService
	items     repository.ItemRepository
	locations repository.LocationRepository
	audit     AuditTrail
	stock     StockQueryService
}

func NewMovementService(
	db *gorm.DB,
	ledger LedgerService,
	items repository.ItemRepository,
	locations repository.LocationRepository,
	audit AuditTrail,
	stock StockQueryService,
) MovementService {
	return &movementService{db: db, ledger: ledger, items: items, locations: locations, audit: audit, stock: stock}
}

func (s *movementService) Place(ctx context.Context, actor Actor, req dto.PlaceStockRequest) (*dto.ItemStockResponse, error) {
	itemID, err := parseID("item_id", req.ItemID)
	if err != nil {
		return nil, err
	}
	locID, err := parseID("location_id", req.LocationID)
	if err != nil {
		return nil, err
	}
	if req.Quantity <= 0 {
		return nil, invalid("quantity must be positive")
	}
	note := strings.TrimSpace(req.Note)

	var item *model.Item
	err = runTx(ctx, s.db, func(tx *gorm.DB) error {
		var loc *model.Location
		var err error
		if item, loc, err = s.lookup(tx, actor, itemID, locID); err != nil {
			return err
		}
		after, err := s.ledger.AdjustTx(ctx, tx, model.StockKey{ItemID: itemID, LocationID: locID}, req.Quantity)
		if err != nil {
			return err
		}
		detail := fmt.Sprintf("Placed %d × %s at %s (%d→%d)",
			req.Quantity, item.Label(), loc.Label(), after-req.Quantity, after)
		return s.audit.RecordTx(ctx, tx, newAuditEntry(actor, item, model.AuditPlaced, withNote(detail, note)))
	})
	if err != nil {
		return nil, err
	}
	return s.committed(ctx, actor, item)
}

func (s *movementService) Transfer(ctx context.Context, actor Actor, req dto.TransferStockRequest) (*dto.ItemStockResponse, error) {
	itemID, err := parseID("item_id", req.ItemID)
	if err != nil {
		return nil, err
	}
	fromID, err := parseID("from_location_id", req.FromLocationID)
	if err != nil {
		return nil, err
	}
	toID, err := parseID("to_location_id", req.ToLocationID)
	if err != nil {
		return nil, err
	}
	if req.Quantity <= 0 {
		return nil, invalid("quantity must be positive")
	}
	if fromID == toID {
		return nil, invalid("source and destination are the same location")
	}
	note := strings.TrimSpace(req.Note)

	var item *model.Item
	err = runTx(ctx, s.db, func(tx *gorm.DB) error {
		var from, to *model.Location
		var err error
		if item, from, err = s.lookup(tx, actor, itemID, fromID); err != nil {
			return err
		}
		if to, err = s.locations.FindByIDTx(tx, actor.TenantID, toID); err != nil {
			return notFound("location", err)
		}

		fromKey := model.StockKey{ItemID: itemID, LocationID: fromID}
		toKey := model.StockKey{ItemID: itemID, LocationID: toID}
		locked, err := s.ledger.LockTx(ctx, tx, fromKey, toKey)
		if err != nil {
			return err
		}
		if locked[fromKey] < req.Quantity {
			return &InsufficientStockError{ItemID: itemID, LocationID: fromID, Available: locked[fromKey], Requested: req.Quantity}
		}

		fromAfter, err := s.ledger.AdjustTx(ctx, tx, fromKey, -req.Quantity)
		if err != nil {
			return err
		}
		toAfter, err := s.ledger.AdjustTx(ctx, tx, toKey, req.Quantity)
		if err != nil {
			return err
		}
		detail := fmt.Sprintf("Transferred %d × %s from %s (%d→%d) to %s (%d→%d)",
			req.Quantity, item.Label(),
			from.Label(), fromAfter+req.Quantity, fromAfter,
			to.Label(), toAfter-req.Quantity, toAfter)
		return s.audit.RecordTx(ctx, tx, newAuditEntry(actor, item, model.AuditTransferred, withNote(detail, note)))
	})
	if err != nil {
		return nil, err
	}
	return s.committed(ctx, actor, item)
}

func (s *movementService) WriteOff(ctx context.Context, actor Actor, req dto.WriteOffRequest) (*dto.ItemStockResponse, error) {
	itemID, err := parseID("item_id", req.ItemID)
	if err != nil {
		return nil, err
	}
	locID, err := parseID("location_id", req.LocationID)
	if err != nil {
		return nil, err
	}
	if req.Quantity <= 0 {
		return nil, invalid("quantity must be positive")
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, invalid("a write-off requires a reason")
	}

	var item *model.Item
	err = runTx(ctx, s.db, func(tx *gorm.DB) error {
		var loc *model.Location
		var err error
		if item, loc, err = s.lookup(tx, actor, itemID, locID); err != nil {
			return err
		}
		after, err := s.ledger.AdjustTx(ctx, tx, model.StockKey{ItemID: itemID, LocationID: locID}, -req.Quantity)
		if err != nil {
			return err
		}
		detail := fmt.Sprintf("Wrote off %d × %s at %s (%d→%d)",
			req.Quantity, item.Label(), loc.Label(), after+req.Quantity, after)
		return s.audit.RecordTx(ctx, tx, newAuditEntry(actor, item, model.AuditWriteOff, withNote(detail, reason)))
	})
	if err != nil {
		return nil, err
	}
	return s.committed(ctx, actor, item)
}

func (s *movementService) lookup(tx *gorm.DB, actor Actor, itemID, locID uuid.UUID) (*model.Item, *model.Location, error) {
	item, err := s.items.FindByIDTx(tx, actor.TenantID, itemID)
	if err != nil {
		return nil, nil, notFound("item", err)
	}
	loc, err := s.locations.FindByIDTx(tx, actor.TenantID, locID)
	if err != nil {
		return nil, nil, notFound("location", err)
	}
	return item, loc, nil
}

// committed runs the post-commit work and builds the response.
func (s *movementService) committed(ctx context.Context, actor Actor, item *model.Item) (*dto.ItemStockResponse, error) {
	s.stock.Changed(ctx, actor.TenantID, item.ID)
	return s.stock.Breakdown(ctx, item)
}
