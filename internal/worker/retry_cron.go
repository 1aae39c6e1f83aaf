package worker

// retry_cron.go
// Background goroutine that periodically moves dead stock refresh jobs back
// onto their queue. Refresh failures are almost always a Postgres or Redis
// outage, so a job that died during one usually succeeds on the next tick.

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const retryBatchSize = 10

// RetryCronOptions tunes the DLQ retry goroutine.
type RetryCronOptions struct {
	Interval time.Duration
	// MaxRequeues parks a job for manual inspection after this many trips
	// through the DLQ.
	MaxRequeues int
}

// StartRetryCron launches a goroutine that ticks every opts.Interval and
// requeues up to a batch of dead jobs. It stops when ctx is cancelled.
func StartRetryCron(ctx context.Context, rdb *redis.Client, opts RetryCronOptions) {
	if opts.Interval <= 0 {
		log.Info().Msg("retry_cron: disabled")
		return
	}
	go func() {
		ticker := time.NewTicker(opts.Interval)
		defer ticker.Stop()

		log.Info().Dur("interval", opts.Interval).Int("max_requeues", opts.MaxRequeues).Msg("retry_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("retry_cron: shutting down")
				return
			case <-ticker.C:
				processRetries(ctx, rdb, opts)
			}
		}
	}()
}

func processRetries(ctx context.Context, rdb *redis.Client, opts RetryCronOptions) int {
	moved, err := RequeueDLQ(ctx, rdb, QueueStockRefresh, retryBatchSize, opts.MaxRequeues)
	if err != nil {
		log.Error().Err(err).Int("moved", moved).Msg("retry_cron: failed to requeue dead jobs")
		return moved
	}
	if moved > 0 {
		log.Info().Int("count", moved).Str("queue", QueueStockRefresh).Msg("retry_cron: requeued dead jobs")
	}
	return moved
}
