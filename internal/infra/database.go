package infra

import (
	"fmt"

	"stockledger/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DatabaseOptions tunes the connection pool.
type DatabaseOptions struct {
	MaxOpenConns int
	MaxIdleConns int
}

// NewDatabase establishes a GORM connection backed by pgx, migrates the ledger
// tables, then applies the idempotent SQL patches AutoMigrate cannot express
// (partial indexes, constraint backfills on existing tables).
func NewDatabase(dsn string, opts DatabaseOptions) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// RunMigrations creates / updates every table and applies the schema patches.
// Integration tests call it directly against a throwaway database.
func RunMigrations(db *gorm.DB) error {
	// Parents first: stock_entries and audit rows reference items/locations.
	if err := db.AutoMigrate(
		&model.Item{},
		&model.Location{},
		&model.StockEntry{},
		&model.AuditLogEntry{},
		&model.PickingOrder{},
		&model.PickingOrderLine{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	if err := applySchemaPatches(db); err != nil {
		return fmt.Errorf("schema patches: %w", err)
	}
	return nil
}

// applySchemaPatches runs idempotent DDL statements. Each statement is guarded
// by an existence check so re-running on an already-patched DB is a no-op.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		// Location stock listings only ever look at positive rows.
		{"partial index stock_entries positive", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_stock_entries_positive') THEN
    CREATE INDEX idx_stock_entries_positive
        ON stock_entries (location_id, item_id)
        WHERE quantity > 0;
  END IF;
END $$`},
		// Tables created before the check constraint existed on the model.
		{"non-negative quantity constraint", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint
                 WHERE conrelid = to_regclass('stock_entries')
                   AND conname = 'chk_stock_entries_quantity') THEN
    ALTER TABLE stock_entries
      ADD CONSTRAINT chk_stock_entries_quantity CHECK (quantity >= 0);
  END IF;
END $$`},
		{"audit filter index by item", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_audit_item_created') THEN
    CREATE INDEX idx_audit_item_created
        ON audit_log_entries (item_id, created_at DESC)
        WHERE item_id IS NOT NULL;
  END IF;
END $$`},
	}
	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}
