package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const QueueStockRefresh = "jobs:stock_refresh"

const jobTypeStockRefresh = "stock_refresh"

// Job is the generic envelope for all async tasks.
type Job struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
	// Requeues counts how often the job came back out of the DLQ.
	Requeues int `json:"requeues,omitempty"`
}

// Handler processes one job payload. A returned error schedules a retry.
type Handler interface {
	Process(ctx context.Context, payload json.RawMessage) error
}

// WorkerHandlers maps job types to their handlers. Wired in main.
type WorkerHandlers struct {
	StockRefresh Handler
}

func (h *WorkerHandlers) lookup(jobType string) Handler {
	switch jobType {
	case jobTypeStockRefresh:
		return h.StockRefresh
	}
	return nil
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// StockChanged queues one cache refresh per item. It runs after commit, so
// enqueue failures are logged and dropped: the cache entry was already
// invalidated and will be rebuilt on the next read.
func (d *Dispatcher) StockChanged(ctx context.Context, tenantID uuid.UUID, itemIDs ...uuid.UUID) {
	if d == nil || d.rdb == nil {
		return
	}
	for _, id := range itemIDs {
		payload := StockRefreshPayload{TenantID: tenantID, ItemID: id}
		if err := d.enqueue(ctx, QueueStockRefresh, jobTypeStockRefresh, payload); err != nil {
			log.Warn().Err(err).Str("item_id", id.String()).Msg("dispatcher: failed to enqueue stock refresh")
		}
	}
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return push(ctx, d.rdb, queue, Job{Type: jobType, Payload: data})
}

func push(ctx context.Context, rdb *redis.Client, queue string, job Job) error {
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return rdb.LPush(ctx, queue, encoded).Err()
}

// PoolOptions tunes the worker pool.
type PoolOptions struct {
	Workers     int
	MaxAttempts int
}

// StartWorkerPool launches opts.Workers goroutines consuming the job queues.
// Each goroutine blocks on BRPOP, idle until a job arrives.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, handlers *WorkerHandlers, opts PoolOptions) {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	for i := 0; i < opts.Workers; i++ {
		go runWorker(ctx, rdb, handlers, opts.MaxAttempts, i)
	}
	log.Info().Int("workers", opts.Workers).Int("max_attempts", opts.MaxAttempts).Msg("worker pool started")
}

func runWorker(ctx context.Context, rdb *redis.Client, handlers *WorkerHandlers, maxAttempts, id int) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop, waits up to 5s then loops to check ctx
			result, err := rdb.BRPop(ctx, 5*time.Second, QueueStockRefresh).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					log.Warn().Err(err).Int("worker", id).Msg("worker: queue unavailable, backing off")
					pause(ctx, queueErrorBackoff)
				}
				continue
			}
			if len(result) < 2 {
				continue
			}
			processJob(ctx, rdb, handlers, maxAttempts, result[0], result[1])
		}
	}
}

// queueErrorBackoff keeps workers from spinning while Redis is unreachable.
var queueErrorBackoff = time.Second

func pause(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

var errUnknownJob = errors.New("no handler for job type")

func processJob(ctx context.Context, rdb *redis.Client, handlers *WorkerHandlers, maxAttempts int, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		return
	}

	err := runJob(ctx, handlers, job)
	if err == nil {
		return
	}
	job.Attempts++
	if errors.Is(err, errUnknownJob) || job.Attempts >= maxAttempts {
		SendToDLQ(ctx, rdb, queue, job, err.Error())
		return
	}
	log.Warn().Err(err).Str("type", job.Type).Int("attempts", job.Attempts).Msg("job failed, re-queued")
	if err := push(ctx, rdb, queue, job); err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("failed to re-queue job")
	}
}

// runJob gives the handler a few quick in-process attempts before the job
// goes back on the queue.
func runJob(ctx context.Context, handlers *WorkerHandlers, job Job) error {
	h := handlers.lookup(job.Type)
	if h == nil {
		return errUnknownJob
	}
	return withRetry(ctx, 3, func(int) error {
		return h.Process(ctx, job.Payload)
	})
}

// withRetry calls fn up to maxAttempts times with exponential backoff.
// Backoff schedule: attempt 1 = immediate, 2 = base, 3 = 2×base.
// Returns nil if any attempt succeeds; last error otherwise.
func withRetry(ctx context.Context, maxAttempts int, fn func(attempt int) error) error {
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		if i > 0 {
			wait := time.Duration(1<<uint(i-1)) * retryBase
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		if err := fn(i); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}

var retryBase = 200 * time.Millisecond
