package worker

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// StockRefreshPayload is the job body on QueueStockRefresh.
type StockRefreshPayload struct {
	TenantID uuid.UUID `json:"tenant_id"`
	ItemID   uuid.UUID `json:"item_id"`
}

// RefreshFunc recomputes and caches one item's stock breakdown.
type RefreshFunc func(ctx context.Context, tenantID, itemID uuid.UUID) error

// StockRefreshWorker rebuilds cached stock breakdowns after mutations.
type StockRefreshWorker struct {
	refresh RefreshFunc
}

func NewStockRefreshWorker(refresh RefreshFunc) *StockRefreshWorker {
	return &StockRefreshWorker{refresh: refresh}
}

func (w *StockRefreshWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var p StockRefreshPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.ItemID == uuid.Nil {
		// Retrying cannot fix a malformed payload.
		log.Error().Err(err).Str("payload", string(raw)).Msg("stock_refresh: invalid payload, dropped")
		return nil
	}
	if err := w.refresh(ctx, p.TenantID, p.ItemID); err != nil {
		return err
	}
	log.Debug().Str("item_id", p.ItemID.String()).Msg("stock_refresh: cache rebuilt")
	return nil
}
