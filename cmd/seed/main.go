// cmd/seed loads a small demo catalog for one tenant: two locations, a few
// items, and some starting stock. Re-running reuses locations by name and
// skips items that already exist.
// Usage: go run ./cmd/seed -tenant <uuid>
package main

import (
	"context"
	"errors"
	"flag"
	"os"

	"stockledger/internal/config"
	"stockledger/internal/dto"
	"stockledger/internal/infra"
	"stockledger/internal/router"
	"stockledger/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type demoItem struct {
	sku, name string
	price     string
	qty       int
}

var demoItems = []demoItem{
	{"CL-5MM", "Cable clamp 5mm", "0.35", 400},
	{"CB-NYM-3X1.5", "NYM cable 3x1.5 (m)", "1.20", 250},
	{"SW-1G", "Wall switch, single gang", "4.90", 60},
	{"BX-FLUSH", "Flush junction box", "0.80", 120},
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	tenant := flag.String("tenant", "", "tenant id (random when empty)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	tenantID := uuid.New()
	if *tenant != "" {
		if tenantID, err = uuid.Parse(*tenant); err != nil {
			log.Fatal().Err(err).Msg("tenant must be a uuid")
		}
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL, infra.DatabaseOptions{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	// No Redis: the seed has no cache to keep warm and no worker to feed.
	svcs := router.NewServices(cfg, db, nil, nil)

	ctx := context.Background()
	actor := service.Actor{TenantID: tenantID, UserID: "seed"}

	warehouse := ensureLocation(ctx, svcs, actor, "Main warehouse", "warehouse")
	ensureLocation(ctx, svcs, actor, "Van 1", "vehicle")

	for _, d := range demoItems {
		item, err := svcs.Catalog.CreateItem(ctx, actor, dto.CreateItemRequest{
			SKU:   d.sku,
			Name:  d.name,
			Price: decimal.RequireFromString(d.price),
		})
		if errors.Is(err, service.ErrAlreadyExists) {
			log.Info().Str("sku", d.sku).Msg("item exists, skipping")
			continue
		}
		if err != nil {
			log.Fatal().Err(err).Str("sku", d.sku).Msg("create item")
		}
		_, err = svcs.Movements.Place(ctx, actor, dto.PlaceStockRequest{
			ItemID:     item.ID,
			LocationID: warehouse.ID,
			Quantity:   d.qty,
			Note:       "initial stock",
		})
		if err != nil {
			log.Fatal().Err(err).Str("sku", d.sku).Msg("place stock")
		}
	}
	log.Info().Str("tenant_id", tenantID.String()).Msg("seed complete")
}

func ensureLocation(ctx context.Context, svcs *router.Services, actor service.Actor, name, kind string) *dto.LocationResponse {
	existing, err := svcs.Catalog.ListLocations(ctx, actor)
	if err != nil {
		log.Fatal().Err(err).Msg("list locations")
	}
	for i := range existing {
		if existing[i].Name == name {
			return &existing[i]
		}
	}
	loc, err := svcs.Catalog.CreateLocation(ctx, actor, dto.CreateLocationRequest{Name: name, Kind: kind})
	if err != nil {
		log.Fatal().Err(err).Str("name", name).Msg("create location")
	}
	return loc
}
