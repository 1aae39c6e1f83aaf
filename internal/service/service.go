package service

import (
	"context"
	"fmt"
	"strings"

	"stockledger/internal/infra"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Actor identifies the caller of a mutating operation. TenantID scopes every
// lookup; UserID is written verbatim into the audit trail.
type Actor struct {
	TenantID uuid.UUID
	UserID   string
}

// StockEvents receives post-commit notifications about items whose stock
// changed. Implementations must not block the caller.
type StockEvents interface {
	StockChanged(ctx context.Context, tenantID uuid.UUID, itemIDs ...uuid.UUID)
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
// Lock and serialization failures come back wrapped in ErrConflict.
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	err := db.WithContext(ctx).Transaction(fn)
	if infra.IsRetryable(err) {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}

func parseID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, invalid("%s is not a valid id", field)
	}
	return id, nil
}

func parseOptionalID(field string, raw *string) (*uuid.UUID, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	id, err := parseID(field, *raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// uniqueIDs keeps the first occurrence of every id, in order.
func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
