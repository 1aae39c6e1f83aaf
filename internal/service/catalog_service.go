package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"stockledger/internal/dto"
	"stockledger/internal/model"
	"stockledger/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CatalogService is the minimal item and location management the ledger
// needs in order to be usable on its own.
type CatalogService interface {
	CreateItem(ctx context.Context, actor Actor, req dto.CreateItemRequest) (*dto.ItemResponse, error)
	// DeleteItem removes the item and its stock rows. Audit entries about
	// the item survive with their item reference cleared. Picking lines
	// that referenced it keep the item label as their description.
	DeleteItem(ctx context.Context, actor Actor, id uuid.UUID) error
	CreateLocation(ctx context.Context, actor Actor, req dto.CreateLocationRequest) (*dto.LocationResponse, error)
	ListLocations(ctx context.Context, actor Actor) ([]dto.LocationResponse, error)
	// DeleteLocation fails with ErrLocationNotEmpty while any item has
	// positive stock there.
	DeleteLocation(ctx context.Context, actor Actor, id uuid.UUID) error
}

type catalogService struct {
	db        *gorm.DB
	items     repository.ItemRepository
	locations repository.LocationRepository
	stock     repository.StockRepository
	audit     AuditTrail
	query     StockQueryService
}

func NewCatalogService(
	db *gorm.DB,
	items repository.ItemRepository,
	locations repository.LocationRepository,
	stock repository.StockRepository,
	audit AuditTrail,
	query StockQueryService,
) CatalogService {
	return &catalogService{db: db, items: items, locations: locations, stock: stock, audit: audit, query: query}
}

func (s *catalogService) CreateItem(ctx context.Context, actor Actor, req dto.CreateItemRequest) (*dto.ItemResponse, error) {
	sku, name := strings.TrimSpace(req.SKU), strings.TrimSpace(req.Name)
	if sku == "" || name == "" {
		return nil, invalid("sku and name are required")
	}
	if req.Price.IsNegative() {
		return nil, invalid("price must not be negative")
	}
	item := &model.Item{
		TenantID: actor.TenantID,
		SKU:      sku,
		Name:     name,
		EAN:      req.EAN,
		Price:    req.Price,
	}
	err := runTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := s.items.CreateTx(tx, item); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: sku %q", ErrAlreadyExists, sku)
			}
			return err
		}
		detail := fmt.Sprintf("Created %s", item.Label())
		return s.audit.RecordTx(ctx, tx, newAuditEntry(actor, item, model.AuditCreated, detail))
	})
	if err != nil {
		return nil, err
	}
	return &dto.ItemResponse{
		ID:        item.ID.String(),
		SKU:       item.SKU,
		Name:      item.Name,
		EAN:       item.EAN,
		Price:     item.Price,
		CreatedAt: item.CreatedAt,
	}, nil
}

func (s *catalogService) DeleteItem(ctx context.Context, actor Actor, id uuid.UUID) error {
	err := runTx(ctx, s.db, func(tx *gorm.DB) error {
		item, err := s.items.FindByIDTx(tx, actor.TenantID, id)
		if err != nil {
			return notFound("item", err)
		}
		detail := fmt.Sprintf("Deleted %s", item.Label())
		if err := s.audit.RecordTx(ctx, tx, newAuditEntry(actor, item, model.AuditDeleted, detail)); err != nil {
			return err
		}
		if err := s.items.DescribeLinesTx(tx, id, item.Label()); err != nil {
			return err
		}
		return notFound("item", s.items.DeleteTx(tx, actor.TenantID, id))
	})
	if err != nil {
		return err
	}
	s.query.Changed(ctx, actor.TenantID, id)
	return nil
}

func (s *catalogService) CreateLocation(ctx context.Context, actor Actor, req dto.CreateLocationRequest) (*dto.LocationResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalid("name is required")
	}
	kind := req.Kind
	if kind == "" {
		kind = model.LocationWarehouse
	}
	loc := &model.Location{TenantID: actor.TenantID, Name: name, Kind: kind}
	if err := s.locations.Create(ctx, loc); err != nil {
		return nil, err
	}
	resp := locationToResponse(*loc)
	return &resp, nil
}

func (s *catalogService) ListLocations(ctx context.Context, actor Actor) ([]dto.LocationResponse, error) {
	locs, err := s.locations.List(ctx, actor.TenantID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.LocationResponse, 0, len(locs))
	for _, l := range locs {
		out = append(out, locationToResponse(l))
	}
	return out, nil
}

func (s *catalogService) DeleteLocation(ctx context.Context, actor Actor, id uuid.UUID) error {
	return runTx(ctx, s.db, func(tx *gorm.DB) error {
		if _, err := s.locations.FindByIDTx(tx, actor.TenantID, id); err != nil {
			return notFound("location", err)
		}
		busy, err := s.stock.HasPositiveStockTx(tx, id)
		if err != nil {
			return err
		}
		if busy {
			return ErrLocationNotEmpty
		}
		return notFound("location", s.locations.DeleteTx(tx, actor.TenantID, id))
	})
}

func locationToResponse(l model.Location) dto.LocationResponse {
	return dto.LocationResponse{ID: l.ID.String(), Name: l.Name, Kind: l.Kind, CreatedAt: l.CreatedAt}
}
