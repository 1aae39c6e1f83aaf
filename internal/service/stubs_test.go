package service_test

import (
	"context"
	"sort"
	"testing"
	"time"

	"stockledger/internal/dto"
	"stockledger/internal/model"
	"stockledger/internal/repository"
	"stockledger/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ── In-memory store ───────────────────────────────────────────────────────────

// memStore backs every stub repository. Reads hand out copies so that
// services only change state through repository calls, as with a real DB.
type memStore struct {
	items     map[uuid.UUID]model.Item
	locations map[uuid.UUID]model.Location
	stock     map[model.StockKey]int
	audit     []model.AuditLogEntry
	orders    map[uuid.UUID]model.PickingOrder
	lockCalls [][]model.StockKey
}

func newMemStore() *memStore {
	return &memStore{
		items:     make(map[uuid.UUID]model.Item),
		locations: make(map[uuid.UUID]model.Location),
		stock:     make(map[model.StockKey]int),
		orders:    make(map[uuid.UUID]model.PickingOrder),
	}
}

// ── Items ─────────────────────────────────────────────────────────────────────

type stubItemRepo struct{ s *memStore }

func (r stubItemRepo) CreateTx(_ *gorm.DB, i *model.Item) error {
	for _, other := range r.s.items {
		if other.TenantID == i.TenantID && other.SKU == i.SKU {
			return gorm.ErrDuplicatedKey
		}
	}
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	i.CreatedAt = time.Now()
	r.s.items[i.ID] = *i
	return nil
}

func (r stubItemRepo) FindByID(_ context.Context, tenantID, id uuid.UUID) (*model.Item, error) {
	return r.FindByIDTx(nil, tenantID, id)
}

func (r stubItemRepo) FindByIDTx(_ *gorm.DB, tenantID, id uuid.UUID) (*model.Item, error) {
	i, ok := r.s.items[id]
	if !ok || i.TenantID != tenantID {
		return nil, gorm.ErrRecordNotFound
	}
	return &i, nil
}

func (r stubItemRepo) DescribeLinesTx(_ *gorm.DB, id uuid.UUID, label string) error {
	for oid, o := range r.s.orders {
		for i := range o.Lines {
			if l := &o.Lines[i]; l.ItemID != nil && *l.ItemID == id && l.Description == nil {
				l.Description = &label
			}
		}
		r.s.orders[oid] = o
	}
	return nil
}

// DeleteTx emulates the ON DELETE clauses: stock rows go, audit and order
// line references are cleared.
func (r stubItemRepo) DeleteTx(_ *gorm.DB, tenantID, id uuid.UUID) error {
	i, ok := r.s.items[id]
	if !ok || i.TenantID != tenantID {
		return gorm.ErrRecordNotFound
	}
	delete(r.s.items, id)
	for k := range r.s.stock {
		if k.ItemID == id {
			delete(r.s.stock, k)
		}
	}
	for n := range r.s.audit {
		if e := &r.s.audit[n]; e.ItemID != nil && *e.ItemID == id {
			e.ItemID = nil
		}
	}
	for _, o := range r.s.orders {
		for i := range o.Lines {
			if l := &o.Lines[i]; l.ItemID != nil && *l.ItemID == id {
				l.ItemID = nil
			}
		}
	}
	return nil
}

var _ repository.ItemRepository = stubItemRepo{}

// ── Locations ─────────────────────────────────────────────────────────────────

type stubLocationRepo struct{ s *memStore }

func (r stubLocationRepo) Create(_ context.Context, l *model.Location) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	l.CreatedAt = time.Now()
	r.s.locations[l.ID] = *l
	return nil
}

func (r stubLocationRepo) FindByID(_ context.Context, tenantID, id uuid.UUID) (*model.Location, error) {
	return r.FindByIDTx(nil, tenantID, id)
}

func (r stubLocationRepo) FindByIDTx(_ *gorm.DB, tenantID, id uuid.UUID) (*model.Location, error) {
	l, ok := r.s.locations[id]
	if !ok || l.TenantID != tenantID {
		return nil, gorm.ErrRecordNotFound
	}
	return &l, nil
}

func (r stubLocationRepo) List(_ context.Context, tenantID uuid.UUID) ([]model.Location, error) {
	var out []model.Location
	for _, l := range r.s.locations {
		if l.TenantID == tenantID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r stubLocationRepo) DeleteTx(_ *gorm.DB, tenantID, id uuid.UUID) error {
	l, ok := r.s.locations[id]
	if !ok || l.TenantID != tenantID {
		return gorm.ErrRecordNotFound
	}
	delete(r.s.locations, id)
	for k := range r.s.stock {
		if k.LocationID == id {
			delete(r.s.stock, k)
		}
	}
	return nil
}

var _ repository.LocationRepository = stubLocationRepo{}

// ── Stock ─────────────────────────────────────────────────────────────────────

type stubStockRepo struct{ s *memStore }

func (r stubStockRepo) Get(_ context.Context, itemID, locationID uuid.UUID) (int, error) {
	return r.s.stock[model.StockKey{ItemID: itemID, LocationID: locationID}], nil
}

func (r stubStockRepo) GetTx(_ *gorm.DB, key model.StockKey) (int, error) {
	return r.s.stock[key], nil
}

func (r stubStockRepo) ListByItem(_ context.Context, itemID uuid.UUID) ([]model.StockEntry, error) {
	var out []model.StockEntry
	for k, q := range r.s.stock {
		if k.ItemID != itemID || q <= 0 {
			continue
		}
		loc := r.s.locations[k.LocationID]
		out = append(out, model.StockEntry{ItemID: k.ItemID, LocationID: k.LocationID, Quantity: q, Location: &loc})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Location.Name < out[j].Location.Name })
	return out, nil
}

func (r stubStockRepo) ListByLocation(_ context.Context, locationID uuid.UUID) ([]model.StockEntry, error) {
	var out []model.StockEntry
	for k, q := range r.s.stock {
		if k.LocationID != locationID || q <= 0 {
			continue
		}
		item := r.s.items[k.ItemID]
		out = append(out, model.StockEntry{ItemID: k.ItemID, LocationID: k.LocationID, Quantity: q, Item: &item})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Item.Label() < out[j].Item.Label() })
	return out, nil
}

func (r stubStockRepo) LockTx(_ *gorm.DB, keys []model.StockKey) (map[model.StockKey]int, error) {
	r.s.lockCalls = append(r.s.lockCalls, append([]model.StockKey(nil), keys...))
	out := make(map[model.StockKey]int, len(keys))
	for _, k := range keys {
		if _, ok := r.s.stock[k]; !ok {
			r.s.stock[k] = 0
		}
		out[k] = r.s.stock[k]
	}
	return out, nil
}

func (r stubStockRepo) AdjustTx(_ *gorm.DB, key model.StockKey, delta int) (int, bool, error) {
	q := r.s.stock[key]
	if q+delta < 0 {
		return 0, false, nil
	}
	r.s.stock[key] = q + delta
	return q + delta, true, nil
}

func (r stubStockRepo) HasPositiveStockTx(_ *gorm.DB, locationID uuid.UUID) (bool, error) {
	for k, q := range r.s.stock {
		if k.LocationID == locationID && q > 0 {
			return true, nil
		}
	}
	return false, nil
}

func (r stubStockRepo) DB() *gorm.DB { return nil }

var _ repository.StockRepository = stubStockRepo{}

// ── Audit ─────────────────────────────────────────────────────────────────────

type stubAuditRepo struct{ s *memStore }

func (r stubAuditRepo) CreateTx(_ *gorm.DB, e *model.AuditLogEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	r.s.audit = append(r.s.audit, *e)
	return nil
}

func (r stubAuditRepo) List(_ context.Context, f repository.AuditFilter) ([]model.AuditLogEntry, int64, error) {
	var out []model.AuditLogEntry
	for i := len(r.s.audit) - 1; i >= 0; i-- {
		e := r.s.audit[i]
		switch {
		case e.TenantID != f.TenantID,
			f.ItemID != nil && (e.ItemID == nil || *e.ItemID != *f.ItemID),
			f.ActorID != "" && e.ActorID != f.ActorID,
			f.Action != "" && e.Action != f.Action,
			f.From != nil && e.CreatedAt.Before(*f.From),
			f.To != nil && !e.CreatedAt.Before(*f.To):
			continue
		}
		out = append(out, e)
	}
	return out, int64(len(out)), nil
}

var _ repository.AuditRepository = stubAuditRepo{}

// ── Picking orders ────────────────────────────────────────────────────────────

type stubPickingRepo struct{ s *memStore }

func (r stubPickingRepo) copyOrder(o model.PickingOrder) *model.PickingOrder {
	o.Lines = append([]model.PickingOrderLine(nil), o.Lines...)
	for i := range o.Lines {
		if id := o.Lines[i].ItemID; id != nil {
			if item, ok := r.s.items[*id]; ok {
				o.Lines[i].Item = &item
			}
		}
	}
	return &o
}

func (r stubPickingRepo) Create(_ context.Context, o *model.PickingOrder) error {
	o.ID = uuid.New()
	o.CreatedAt, o.UpdatedAt = time.Now(), time.Now()
	for i := range o.Lines {
		o.Lines[i].ID = uuid.New()
		o.Lines[i].PickingOrderID = o.ID
	}
	r.s.orders[o.ID] = *r.copyOrder(*o)
	return nil
}

func (r stubPickingRepo) FindByID(_ context.Context, tenantID, id uuid.UUID) (*model.PickingOrder, error) {
	o, ok := r.s.orders[id]
	if !ok || o.TenantID != tenantID {
		return nil, gorm.ErrRecordNotFound
	}
	return r.copyOrder(o), nil
}

func (r stubPickingRepo) List(_ context.Context, f repository.PickingOrderFilter) ([]model.PickingOrder, int64, error) {
	var out []model.PickingOrder
	for _, o := range r.s.orders {
		if o.TenantID == f.TenantID && (f.Status == "" || o.Status == f.Status) {
			out = append(out, *r.copyOrder(o))
		}
	}
	return out, int64(len(out)), nil
}

func (r stubPickingRepo) FindByIDForUpdateTx(_ *gorm.DB, tenantID, id uuid.UUID) (*model.PickingOrder, error) {
	return r.FindByID(context.Background(), tenantID, id)
}

func (r stubPickingRepo) UpdateStatusTx(_ *gorm.DB, o *model.PickingOrder) error {
	stored := r.s.orders[o.ID]
	stored.Status = o.Status
	stored.CompletedAt = o.CompletedAt
	stored.UpdatedAt = time.Now()
	r.s.orders[o.ID] = stored
	return nil
}

func (r stubPickingRepo) UpdateLineTx(_ *gorm.DB, l *model.PickingOrderLine) error {
	stored := r.s.orders[l.PickingOrderID]
	for i := range stored.Lines {
		if stored.Lines[i].ID == l.ID {
			stored.Lines[i].ItemID = l.ItemID
			stored.Lines[i].PickedQuantity = l.PickedQuantity
		}
	}
	r.s.orders[l.PickingOrderID] = stored
	return nil
}

func (r stubPickingRepo) DeleteTx(_ *gorm.DB, tenantID, id uuid.UUID) error {
	o, ok := r.s.orders[id]
	if !ok || o.TenantID != tenantID {
		return gorm.ErrRecordNotFound
	}
	delete(r.s.orders, id)
	return nil
}

func (r stubPickingRepo) DB() *gorm.DB { return nil }

var _ repository.PickingOrderRepository = stubPickingRepo{}

// ── Post-commit collaborators ─────────────────────────────────────────────────

type recordedEvents struct {
	calls [][]uuid.UUID
}

func (e *recordedEvents) StockChanged(_ context.Context, _ uuid.UUID, itemIDs ...uuid.UUID) {
	e.calls = append(e.calls, itemIDs)
}

var _ service.StockEvents = (*recordedEvents)(nil)

type mapCache struct {
	entries     map[uuid.UUID]dto.ItemStockResponse
	gens        map[uuid.UUID]int64
	invalidated []uuid.UUID
	// beforeStore runs after the ledger was read and before the entry is
	// stored, to interleave a concurrent writer.
	beforeStore func()
}

func newMapCache() *mapCache {
	return &mapCache{
		entries: make(map[uuid.UUID]dto.ItemStockResponse),
		gens:    make(map[uuid.UUID]int64),
	}
}

func (c *mapCache) Get(_ context.Context, _, itemID uuid.UUID, dest interface{}) bool {
	v, ok := c.entries[itemID]
	if !ok {
		return false
	}
	*dest.(*dto.ItemStockResponse) = v
	return true
}

func (c *mapCache) Generation(_ context.Context, _, itemID uuid.UUID) (int64, bool) {
	return c.gens[itemID], true
}

func (c *mapCache) SetIfGeneration(_ context.Context, _, itemID uuid.UUID, gen int64, v interface{}) bool {
	if hook := c.beforeStore; hook != nil {
		c.beforeStore = nil
		hook()
	}
	if c.gens[itemID] != gen {
		return false
	}
	c.entries[itemID] = *v.(*dto.ItemStockResponse)
	return true
}

func (c *mapCache) Invalidate(_ context.Context, _ uuid.UUID, itemIDs ...uuid.UUID) {
	for _, id := range itemIDs {
		delete(c.entries, id)
		c.gens[id]++
		c.invalidated = append(c.invalidated, id)
	}
}

var _ service.ItemStockCache = (*mapCache)(nil)

// ── Fixture ───────────────────────────────────────────────────────────────────

type fixture struct {
	t      *testing.T
	store  *memStore
	actor  service.Actor
	events *recordedEvents
	cache  *mapCache

	audit       service.AuditTrail
	query       service.StockQueryService
	movements   service.MovementService
	picking     service.PickingService
	fulfillment service.FulfillmentService
	catalog     service.CatalogService
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithLocker(t, nil)
}

func newFixtureWithLocker(t *testing.T, locker service.OrderLocker) *fixture {
	s := newMemStore()
	items, locations := stubItemRepo{s}, stubLocationRepo{s}
	stock, orders := stubStockRepo{s}, stubPickingRepo{s}
	events, cache := &recordedEvents{}, newMapCache()

	audit := service.NewAuditTrail(stubAuditRepo{s})
	ledger := service.NewLedgerService(stock)
	query := service.NewStockQueryService(stock, items, locations, cache, events)

	return &fixture{
		t:           t,
		store:       s,
		actor:       service.Actor{TenantID: uuid.New(), UserID: "user-1"},
		events:      events,
		cache:       cache,
		audit:       audit,
		query:       query,
		movements:   service.NewMovementService(nil, ledger, items, locations, audit, query),
		picking:     service.NewPickingService(orders, items, locations),
		fulfillment: service.NewFulfillmentService(orders, items, locations, ledger, audit, query, locker),
		catalog:     service.NewCatalogService(nil, items, locations, stock, audit, query),
	}
}

func (f *fixture) addItem(sku, name string) model.Item {
	i := model.Item{ID: uuid.New(), TenantID: f.actor.TenantID, SKU: sku, Name: name, Price: decimal.NewFromInt(10)}
	f.store.items[i.ID] = i
	return i
}

func (f *fixture) addLocation(name string) model.Location {
	l := model.Location{ID: uuid.New(), TenantID: f.actor.TenantID, Name: name, Kind: model.LocationWarehouse}
	f.store.locations[l.ID] = l
	return l
}

func (f *fixture) setStock(item model.Item, loc model.Location, qty int) {
	f.store.stock[model.StockKey{ItemID: item.ID, LocationID: loc.ID}] = qty
}

func (f *fixture) stockOf(item model.Item, loc model.Location) int {
	return f.store.stock[model.StockKey{ItemID: item.ID, LocationID: loc.ID}]
}

func (f *fixture) auditActions() []model.AuditAction {
	out := make([]model.AuditAction, 0, len(f.store.audit))
	for _, e := range f.store.audit {
		out = append(out, e.Action)
	}
	return out
}

func strPtr(s string) *string { return &s }
