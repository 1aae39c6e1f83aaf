package router

import (
	"time"

	"stockledger/internal/config"
	"stockledger/internal/handler"
	"stockledger/internal/infra"
	"stockledger/internal/middleware"
	"stockledger/internal/repository"
	"stockledger/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Services is the wired service layer. main also hands Stock.Refresh to the
// worker pool, so construction is split from route registration.
type Services struct {
	Stock       service.StockQueryService
	Movements   service.MovementService
	Audit       service.AuditTrail
	Picking     service.PickingService
	Fulfillment service.FulfillmentService
	Catalog     service.CatalogService
}

// NewServices wires repositories and services.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func NewServices(cfg *config.Config, db *gorm.DB, rdb *redis.Client, events service.StockEvents) *Services {
	// ── Repositories ─────────────────────────────────────────────────────────
	itemRepo := repository.NewItemRepository(db)
	locationRepo := repository.NewLocationRepository(db)
	stockRepo := repository.NewStockRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	pickingRepo := repository.NewPickingOrderRepository(db)

	// ── Infrastructure ───────────────────────────────────────────────────────
	cache := infra.NewStockCache(rdb, cfg.StockCacheTTL())
	locker := infra.NewLocker(rdb, cfg.OrderLockTTL())

	// ── Services ─────────────────────────────────────────────────────────────
	ledger := service.NewLedgerService(stockRepo)
	audit := service.NewAuditTrail(auditRepo)
	stock := service.NewStockQueryService(stockRepo, itemRepo, locationRepo, cache, events)

	return &Services{
		Stock:       stock,
		Movements:   service.NewMovementService(db, ledger, itemRepo, locationRepo, audit, stock),
		Audit:       audit,
		Picking:     service.NewPickingService(pickingRepo, itemRepo, locationRepo),
		Fulfillment: service.NewFulfillmentService(pickingRepo, itemRepo, locationRepo, ledger, audit, stock, locker),
		Catalog:     service.NewCatalogService(db, itemRepo, locationRepo, stockRepo, audit, stock),
	}
}

// New returns a configured Gin engine serving svcs.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, svcs *Services) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	r.Use(middleware.ErrorHandler())

	// ── Handlers ─────────────────────────────────────────────────────────────
	stockH := handler.NewStockHandler(svcs.Movements, svcs.Stock)
	pickingH := handler.NewPickingHandler(svcs.Picking, svcs.Fulfillment)
	auditH := handler.NewAuditHandler(svcs.Audit)
	catalogH := handler.NewCatalogHandler(svcs.Catalog)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb))

	operator := middleware.RequireRole(middleware.RoleOperator, middleware.RoleManager, middleware.RoleAdmin)
	manager := middleware.RequireRole(middleware.RoleManager, middleware.RoleAdmin)
	admin := middleware.RequireRole(middleware.RoleAdmin)

	// Rate limiting runs after auth so authenticated callers are keyed by
	// tenant and user rather than by IP.
	v1 := r.Group("/v1",
		middleware.JWTAuth(cfg.JWTSecret),
		middleware.RateLimiter(cfg.RateLimitPerMinute, time.Minute),
	)
	{
		stock := v1.Group("/stock")
		{
			stock.POST("/place", operator, stockH.Place)
			stock.POST("/transfer", operator, stockH.Transfer)
			stock.POST("/write-off", manager, stockH.WriteOff)
		}

		v1.GET("/items/:id/stock", operator, stockH.ItemStock)
		v1.GET("/locations/:id/stock", operator, stockH.LocationStock)

		v1.GET("/audit", manager, auditH.List)

		picking := v1.Group("/picking-orders")
		{
			picking.POST("", operator, pickingH.Create)
			picking.GET("", operator, pickingH.List)
			picking.GET("/:id", operator, pickingH.Get)
			picking.PATCH("/:id/status", operator, pickingH.UpdateStatus)
			picking.POST("/:id/fulfill", operator, pickingH.Fulfill)
			picking.DELETE("/:id", manager, pickingH.Delete)
		}

		items := v1.Group("/items", admin)
		{
			items.POST("", catalogH.CreateItem)
			items.DELETE("/:id", catalogH.DeleteItem)
		}

		v1.GET("/locations", operator, catalogH.ListLocations)
		locations := v1.Group("/locations", admin)
		{
			locations.POST("", catalogH.CreateLocation)
			locations.DELETE("/:id", catalogH.DeleteLocation)
		}
	}

	// Swagger UI, only outside production
	if !cfg.IsProduction() {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
