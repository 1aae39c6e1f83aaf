package worker

// dlq.go: dead letter queue.
// Jobs that exhaust their attempts are parked here for manual inspection.
// Uses a Redis list per source queue: dlq:{original_queue}

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const DLQPrefix = "dlq:"

// DLQEntry wraps a failed job with metadata for debugging.
type DLQEntry struct {
	OriginalQueue string    `json:"original_queue"`
	Job           Job       `json:"job"`
	Reason        string    `json:"reason"`
	FailedAt      time.Time `json:"failed_at"`
}

// SendToDLQ parks job in the dead letter queue of queue.
func SendToDLQ(ctx context.Context, rdb *redis.Client, queue string, job Job, reason string) {
	entry := DLQEntry{
		OriginalQueue: queue,
		Job:           job,
		Reason:        reason,
		FailedAt:      time.Now().UTC(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("dlq: failed to marshal entry")
		return
	}

	dlqKey := DLQPrefix + queue
	if err := rdb.LPush(ctx, dlqKey, data).Err(); err != nil {
		log.Error().Err(err).Str("dlq_key", dlqKey).Msg("dlq: failed to push to DLQ")
		return
	}

	log.Warn().
		Str("queue", queue).
		Str("job_type", job.Type).
		Str("reason", reason).
		Int("attempts", job.Attempts).
		Msg("dlq: job moved to dead letter queue")
}

// DLQLength returns the number of entries in a DLQ for monitoring.
func DLQLength(ctx context.Context, rdb *redis.Client, queue string) (int64, error) {
	return rdb.LLen(ctx, DLQPrefix+queue).Result()
}

// RequeueDLQ moves up to n dead jobs back onto their original queue with a
// fresh attempt counter and returns how many were moved. Jobs already
// requeued maxRequeues times stay parked; maxRequeues <= 0 means no limit.
func RequeueDLQ(ctx context.Context, rdb *redis.Client, queue string, n, maxRequeues int) (int, error) {
	dlqKey := DLQPrefix + queue
	pending, err := rdb.LLen(ctx, dlqKey).Result()
	if err != nil {
		return 0, err
	}
	moved := 0
	// Each entry is visited at most once: parked ones rotate to the head.
	for visited := int64(0); visited < pending && moved < n; visited++ {
		raw, err := rdb.RPop(ctx, dlqKey).Result()
		if err == redis.Nil {
			break
		}
		if err != nil {
			return moved, err
		}
		var entry DLQEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			log.Error().Err(err).Msg("dlq: dropping unreadable entry")
			continue
		}
		if maxRequeues > 0 && entry.Job.Requeues >= maxRequeues {
			if err := rdb.LPush(ctx, dlqKey, raw).Err(); err != nil {
				return moved, err
			}
			continue
		}
		entry.Job.Attempts = 0
		entry.Job.Requeues++
		if err := push(ctx, rdb, entry.OriginalQueue, entry.Job); err != nil {
			return moved, err
		}
		moved++
	}
	return moved, nil
}
