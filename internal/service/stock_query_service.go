package service

import (
	"context"
	"errors"
	"time"

	"stockledger/internal/dto"
	"stockledger/internal/model"
	"stockledger/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ItemStockCache is the read-through cache in front of item breakdowns.
// *infra.StockCache implements it.
//
// Every Invalidate bumps a per-item generation. Writers read the generation
// before reading the ledger and store only if it is unchanged, so a
// breakdown computed before a committed movement never outlives it.
type ItemStockCache interface {
	Get(ctx context.Context, tenantID, itemID uuid.UUID, dest interface{}) bool
	// Generation returns the item's invalidation counter. ok is false when
	// the cache cannot answer; nothing may be stored then.
	Generation(ctx context.Context, tenantID, itemID uuid.UUID) (gen int64, ok bool)
	// SetIfGeneration stores v unless the item was invalidated after gen was
	// read. It reports whether v was stored.
	SetIfGeneration(ctx context.Context, tenantID, itemID uuid.UUID, gen int64, v interface{}) bool
	Invalidate(ctx context.Context, tenantID uuid.UUID, itemIDs ...uuid.UUID)
}

// StockQueryService is the read side of the ledger.
type StockQueryService interface {
	GetItemStock(ctx context.Context, actor Actor, itemID uuid.UUID) (*dto.ItemStockResponse, error)
	ListLocationStock(ctx context.Context, actor Actor, locationID uuid.UUID) (*dto.LocationStockResponse, error)
	// Breakdown reads the item's stock straight from the ledger.
	Breakdown(ctx context.Context, item *model.Item) (*dto.ItemStockResponse, error)
	// Refresh recomputes the cached breakdown of one item.
	Refresh(ctx context.Context, tenantID, itemID uuid.UUID) error
	// Changed must be called after a committed mutation touching itemIDs.
	Changed(ctx context.Context, tenantID uuid.UUID, itemIDs ...uuid.UUID)
}

type stockQueryService struct {
	stock     repository.StockRepository
	items     repository.ItemRepository
	locations repository.LocationRepository
	cache     ItemStockCache
	events    StockEvents
}

// NewStockQueryService wires the read side. cache and events may be nil.
func NewStockQueryService(
	stock repository.StockRepository,
	items repository.ItemRepository,
	locations repository.LocationRepository,
	cache ItemStockCache,
	events StockEvents,
) StockQueryService {
	return &stockQueryService{stock: stock, items: items, locations: locations, cache: cache, events: events}
}

func (s *stockQueryService) GetItemStock(ctx context.Context, actor Actor, itemID uuid.UUID) (*dto.ItemStockResponse, error) {
	if s.cache != nil {
		var cached dto.ItemStockResponse
		if s.cache.Get(ctx, actor.TenantID, itemID, &cached) {
			return &cached, nil
		}
	}
	gen, cacheable := s.generation(ctx, actor.TenantID, itemID)
	item, err := s.items.FindByID(ctx, actor.TenantID, itemID)
	if err != nil {
		return nil, notFound("item", err)
	}
	resp, err := s.Breakdown(ctx, item)
	if err != nil {
		return nil, err
	}
	if cacheable {
		s.cache.SetIfGeneration(ctx, actor.TenantID, itemID, gen, resp)
	}
	return resp, nil
}

// generation must be read before the ledger, never after.
func (s *stockQueryService) generation(ctx context.Context, tenantID, itemID uuid.UUID) (int64, bool) {
	if s.cache == nil {
		return 0, false
	}
	return s.cache.Generation(ctx, tenantID, itemID)
}

func (s *stockQueryService) ListLocationStock(ctx context.Context, actor Actor, locationID uuid.UUID) (*dto.LocationStockResponse, error) {
	loc, err := s.locations.FindByID(ctx, actor.TenantID, locationID)
	if err != nil {
		return nil, notFound("location", err)
	}
	entries, err := s.stock.ListByLocation(ctx, loc.ID)
	if err != nil {
		return nil, err
	}
	resp := &dto.LocationStockResponse{
		LocationID: loc.ID.String(),
		Name:       loc.Name,
		Kind:       loc.Kind,
		Items:      make([]dto.LocationStockLine, 0, len(entries)),
	}
	for _, e := range entries {
		if e.Quantity <= 0 {
			continue
		}
		line := dto.LocationStockLine{ItemID: e.ItemID.String(), Quantity: e.Quantity}
		if e.Item != nil {
			line.SKU, line.Name = e.Item.SKU, e.Item.Name
		}
		resp.Items = append(resp.Items, line)
	}
	return resp, nil
}

func (s *stockQueryService) Breakdown(ctx context.Context, item *model.Item) (*dto.ItemStockResponse, error) {
	entries, err := s.stock.ListByItem(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	resp := &dto.ItemStockResponse{
		ID:        item.ID.String(),
		SKU:       item.SKU,
		Name:      item.Name,
		EAN:       item.EAN,
		Price:     item.Price,
		Locations: make([]dto.LocationQuantity, 0, len(entries)),
		AsOf:      time.Now().UTC(),
	}
	for _, e := range entries {
		if e.Quantity <= 0 {
			continue
		}
		resp.Total += e.Quantity
		resp.Locations = append(resp.Locations, dto.LocationQuantity{
			LocationID:   e.LocationID.String(),
			LocationName: e.Location.Label(),
			Quantity:     e.Quantity,
		})
	}
	return resp, nil
}

func (s *stockQueryService) Refresh(ctx context.Context, tenantID, itemID uuid.UUID) error {
	gen, cacheable := s.generation(ctx, tenantID, itemID)
	item, err := s.items.FindByID(ctx, tenantID, itemID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Deleted since the job was queued; nothing left to cache.
		if s.cache != nil {
			s.cache.Invalidate(ctx, tenantID, itemID)
		}
		return nil
	}
	if err != nil {
		return err
	}
	resp, err := s.Breakdown(ctx, item)
	if err != nil {
		return err
	}
	// A newer refresh job is already queued when this one lost the race.
	if cacheable {
		s.cache.SetIfGeneration(ctx, tenantID, itemID, gen, resp)
	}
	return nil
}

func (s *stockQueryService) Changed(ctx context.Context, tenantID uuid.UUID, itemIDs ...uuid.UUID) {
	itemIDs = uniqueIDs(itemIDs)
	if len(itemIDs) == 0 {
		return
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, tenantID, itemIDs...)
	}
	if s.events != nil {
		s.events.StockChanged(ctx, tenantID, itemIDs...)
	}
}
