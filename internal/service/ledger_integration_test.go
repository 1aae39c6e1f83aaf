//go:build integration

package service_test

// Ledger and fulfillment against real Postgres + Redis via testcontainers.
// Run with: go test -tags integration ./internal/service/... -v

import (
	"context"
	"errors"
	"sync"
	"testing"

	"stockledger/internal/config"
	"stockledger/internal/dto"
	"stockledger/internal/infra"
	"stockledger/internal/model"
	"stockledger/internal/router"
	"stockledger/internal/service"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"gorm.io/gorm"
)

type ledgerEnv struct {
	db    *gorm.DB
	rdb   *redis.Client
	svcs  *router.Services
	actor service.Actor
}

func startLedgerEnv(t *testing.T) *ledgerEnv {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcPostgres.WithDatabase("stockledger_test"),
		tcPostgres.WithUsername("stockledger"),
		tcPostgres.WithPassword("stockledger"),
		tcPostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })
	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rdC, err := tcRedis.RunContainer(ctx, testcontainers.WithImage("redis:7-alpine"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })
	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := infra.NewDatabase(pgURL, infra.DatabaseOptions{MaxOpenConns: 20})
	require.NoError(t, err)
	rdb, err := infra.NewRedis(rdURL)
	require.NoError(t, err)

	cfg := &config.Config{StockCacheTTLSeconds: 60, OrderLockTTLSeconds: 10}
	return &ledgerEnv{
		db:    db,
		rdb:   rdb,
		svcs:  router.NewServices(cfg, db, rdb, nil),
		actor: service.Actor{TenantID: uuid.New(), UserID: "it-user"},
	}
}

func (e *ledgerEnv) location(t *testing.T, name string) string {
	t.Helper()
	loc, err := e.svcs.Catalog.CreateLocation(context.Background(), e.actor, dto.CreateLocationRequest{Name: name})
	require.NoError(t, err)
	return loc.ID
}

func (e *ledgerEnv) item(t *testing.T, sku, name string) string {
	t.Helper()
	it, err := e.svcs.Catalog.CreateItem(context.Background(), e.actor, dto.CreateItemRequest{
		SKU: sku, Name: name, Price: decimal.NewFromInt(1),
	})
	require.NoError(t, err)
	return it.ID
}

func TestIntegration_ConcurrentTransfersConserveStock(t *testing.T) {
	env := startLedgerEnv(t)
	ctx := context.Background()

	a, b := env.location(t, "A"), env.location(t, "B")
	item := env.item(t, "CL-5MM", "Cable clamp 5mm")
	_, err := env.svcs.Movements.Place(ctx, env.actor, dto.PlaceStockRequest{ItemID: item, LocationID: a, Quantity: 100})
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 40; i++ {
		from, to := a, b
		if i%3 == 0 {
			from, to = b, a
		}
		wg.Add(1)
		go func(from, to string) {
			defer wg.Done()
			_, err := env.svcs.Movements.Transfer(ctx, env.actor, dto.TransferStockRequest{
				ItemID: item, FromLocationID: from, ToLocationID: to, Quantity: 7,
			})
			switch {
			case err == nil:
				mu.Lock()
				succeeded++
				mu.Unlock()
			case errors.Is(err, service.ErrInsufficientStock), errors.Is(err, service.ErrConflict):
			default:
				t.Errorf("unexpected transfer error: %v", err)
			}
		}(from, to)
	}
	wg.Wait()

	var rows []model.StockEntry
	require.NoError(t, env.db.Where("item_id = ?", item).Find(&rows).Error)
	total := 0
	for _, r := range rows {
		assert.GreaterOrEqual(t, r.Quantity, 0)
		total += r.Quantity
	}
	assert.Equal(t, 100, total, "transfers never create or destroy stock")

	var audits int64
	require.NoError(t, env.db.Model(&model.AuditLogEntry{}).
		Where("item_id = ? AND action = ?", item, model.AuditTransferred).Count(&audits).Error)
	assert.Equal(t, int64(succeeded), audits, "one audit entry per committed transfer")
}

func TestIntegration_WriteOffGuardHoldsUnderContention(t *testing.T) {
	env := startLedgerEnv(t)
	ctx := context.Background()

	loc := env.location(t, "Van 1")
	item := env.item(t, "SW-1G", "Wall switch")
	_, err := env.svcs.Movements.Place(ctx, env.actor, dto.PlaceStockRequest{ItemID: item, LocationID: loc, Quantity: 10})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = env.svcs.Movements.WriteOff(ctx, env.actor, dto.WriteOffRequest{
				ItemID: item, LocationID: loc, Quantity: 3, Reason: "damaged",
			})
		}()
	}
	wg.Wait()

	var entry model.StockEntry
	require.NoError(t, env.db.Where("item_id = ? AND location_id = ?", item, loc).Take(&entry).Error)
	assert.Equal(t, 1, entry.Quantity, "only three write-offs of 3 fit into 10")
}

func TestIntegration_FulfillRunsOnce(t *testing.T) {
	env := startLedgerEnv(t)
	ctx := context.Background()

	src, dst := env.location(t, "Warehouse"), env.location(t, "Site")
	item := env.item(t, "BX-FLUSH", "Flush box")
	_, err := env.svcs.Movements.Place(ctx, env.actor, dto.PlaceStockRequest{ItemID: item, LocationID: src, Quantity: 20})
	require.NoError(t, err)

	order, err := env.svcs.Picking.Create(ctx, env.actor, dto.CreatePickingOrderRequest{
		SourceLocationID:      &src,
		DestinationLocationID: dst,
		Lines:                 []dto.PickingLineRequest{{ItemID: &item, Quantity: 6}},
	})
	require.NoError(t, err)
	req := dto.FulfillRequest{Lines: []dto.FulfillLineRequest{{LineID: order.Lines[0].ID, PickedQuantity: 6}}}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svcs.Fulfillment.Fulfill(ctx, env.actor, uuid.MustParse(order.ID), req)
			if err == nil {
				mu.Lock()
				success++
				mu.Unlock()
				return
			}
			if !errors.Is(err, service.ErrConflict) && !errors.Is(err, service.ErrInvalidTransition) {
				t.Errorf("unexpected fulfill error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, success)
	stock, err := env.svcs.Stock.GetItemStock(ctx, env.actor, uuid.MustParse(item))
	require.NoError(t, err)
	assert.Equal(t, 20, stock.Total)
	byLoc := map[string]int{}
	for _, l := range stock.Locations {
		byLoc[l.LocationID] = l.Quantity
	}
	assert.Equal(t, 14, byLoc[src])
	assert.Equal(t, 6, byLoc[dst])
}

func TestIntegration_StockCacheFollowsMutations(t *testing.T) {
	env := startLedgerEnv(t)
	ctx := context.Background()

	loc := env.location(t, "Shelf")
	item := env.item(t, "CB-NYM", "NYM cable")
	itemID := uuid.MustParse(item)

	first, err := env.svcs.Stock.GetItemStock(ctx, env.actor, itemID)
	require.NoError(t, err)
	assert.Equal(t, 0, first.Total)

	_, err = env.svcs.Movements.Place(ctx, env.actor, dto.PlaceStockRequest{ItemID: item, LocationID: loc, Quantity: 9})
	require.NoError(t, err)

	second, err := env.svcs.Stock.GetItemStock(ctx, env.actor, itemID)
	require.NoError(t, err)
	assert.Equal(t, 9, second.Total, "placement invalidates the cached breakdown")

	require.NoError(t, env.svcs.Stock.Refresh(ctx, env.actor.TenantID, itemID))
	n, err := env.rdb.Exists(ctx, "stock:"+env.actor.TenantID.String()+":"+item).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestIntegration_DeletedItemLeavesDescribedLine(t *testing.T) {
	env := startLedgerEnv(t)
	ctx := context.Background()

	dst := env.location(t, "Site")
	item := env.item(t, "CL-5", "Cable clip")
	order, err := env.svcs.Picking.Create(ctx, env.actor, dto.CreatePickingOrderRequest{
		DestinationLocationID: dst,
		Lines:                 []dto.PickingLineRequest{{ItemID: &item, Quantity: 3}},
	})
	require.NoError(t, err)

	require.NoError(t, env.svcs.Catalog.DeleteItem(ctx, env.actor, uuid.MustParse(item)))

	got, err := env.svcs.Picking.Get(ctx, env.actor, uuid.MustParse(order.ID))
	require.NoError(t, err)
	require.Len(t, got.Lines, 1)
	assert.Nil(t, got.Lines[0].ItemID)
	require.NotNil(t, got.Lines[0].Description)
	assert.Equal(t, "Cable clip (CL-5)", *got.Lines[0].Description)
}
