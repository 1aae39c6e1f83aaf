package infra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// StockCache is a best-effort Redis read-through cache for item stock
// breakdowns. A nil *StockCache (or one without a client) is a valid no-op
// cache, which is how unit tests run.
type StockCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStockCache(rdb *redis.Client, ttl time.Duration) *StockCache {
	return &StockCache{rdb: rdb, ttl: ttl}
}

// stockGenTTL bounds how long an untouched item's generation lives. Losing
// it only costs one skipped store.
const stockGenTTL = 24 * time.Hour

var errStaleGeneration = errors.New("stock cache: generation moved")

func stockCacheKey(tenantID, itemID uuid.UUID) string {
	return fmt.Sprintf("stock:%s:%s", tenantID, itemID)
}

func stockGenKey(tenantID, itemID uuid.UUID) string {
	return fmt.Sprintf("stock:gen:%s:%s", tenantID, itemID)
}

func (c *StockCache) enabled() bool { return c != nil && c.rdb != nil }

// Get decodes the cached breakdown into dest. It reports false on a miss or
// on any Redis / decoding error.
func (c *StockCache) Get(ctx context.Context, tenantID, itemID uuid.UUID, dest interface{}) bool {
	if !c.enabled() {
		return false
	}
	raw, err := c.rdb.Get(ctx, stockCacheKey(tenantID, itemID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Debug().Err(err).Str("item_id", itemID.String()).Msg("stock cache: get failed")
		}
		return false
	}
	return json.Unmarshal(raw, dest) == nil
}

// Generation returns the item's invalidation counter, 0 when it was never
// invalidated.
func (c *StockCache) Generation(ctx context.Context, tenantID, itemID uuid.UUID) (int64, bool) {
	if !c.enabled() {
		return 0, false
	}
	gen, err := c.rdb.Get(ctx, stockGenKey(tenantID, itemID)).Int64()
	if err == redis.Nil {
		return 0, true
	}
	if err != nil {
		log.Debug().Err(err).Str("item_id", itemID.String()).Msg("stock cache: generation read failed")
		return 0, false
	}
	return gen, true
}

// SetIfGeneration stores v for the item unless Invalidate ran since gen was
// read. The check and the write run in one WATCH/MULTI transaction.
func (c *StockCache) SetIfGeneration(ctx context.Context, tenantID, itemID uuid.UUID, gen int64, v interface{}) bool {
	if !c.enabled() {
		return false
	}
	b, err := json.Marshal(v)
	if err != nil {
		return false
	}
	genKey := stockGenKey(tenantID, itemID)
	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, genKey).Int64()
		if err != nil && err != redis.Nil {
			return err
		}
		if cur != gen {
			return errStaleGeneration
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, stockCacheKey(tenantID, itemID), b, c.ttl)
			return nil
		})
		return err
	}, genKey)
	switch {
	case err == nil:
		return true
	case errors.Is(err, errStaleGeneration), errors.Is(err, redis.TxFailedErr):
		log.Debug().Str("item_id", itemID.String()).Msg("stock cache: skipped stale breakdown")
	default:
		log.Debug().Err(err).Str("item_id", itemID.String()).Msg("stock cache: set failed")
	}
	return false
}

// Invalidate drops the cached breakdowns of the given items and bumps their
// generations, so breakdowns read before this call are never stored.
func (c *StockCache) Invalidate(ctx context.Context, tenantID uuid.UUID, itemIDs ...uuid.UUID) {
	if !c.enabled() || len(itemIDs) == 0 {
		return
	}
	keys := make([]string, 0, len(itemIDs))
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range itemIDs {
			key, genKey := stockCacheKey(tenantID, id), stockGenKey(tenantID, id)
			keys = append(keys, key)
			pipe.Incr(ctx, genKey)
			pipe.Expire(ctx, genKey, stockGenTTL)
			pipe.Del(ctx, key)
		}
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Strs("keys", keys).Msg("stock cache: invalidate failed")
	}
}
