package middleware

import (
	"net/http"
	"sync"
	"time"

	"stockledger/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// rateEntry tracks request counts for one client within a fixed window.
type rateEntry struct {
	count     int
	windowEnd time.Time
	mu        sync.Mutex
}

// rateTable is one limiter's state, keyed by client.
type rateTable struct {
	mu      sync.Mutex
	entries map[string]*rateEntry
}

func (t *rateTable) entry(key string) *rateEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[key]
	if !ok {
		e = &rateEntry{}
		t.entries[key] = e
	}
	return e
}

// purge drops expired windows and reports how many were removed.
func (t *rateTable) purge(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	purged := 0
	for k, e := range t.entries {
		e.mu.Lock()
		if now.After(e.windowEnd) {
			delete(t.entries, k)
			purged++
		}
		e.mu.Unlock()
	}
	return purged
}

// RateLimiter allows limit requests per window per client. Authenticated
// callers are keyed by tenant and user, anonymous ones by IP.
func RateLimiter(limit int, window time.Duration) gin.HandlerFunc {
	table := &rateTable{entries: make(map[string]*rateEntry)}
	go purgeExpiredEntries(table, window)

	return func(c *gin.Context) {
		entry := table.entry(clientKey(c))
		entry.mu.Lock()
		defer entry.mu.Unlock()

		now := time.Now()
		if now.After(entry.windowEnd) {
			entry.count = 0
			entry.windowEnd = now.Add(window)
		}

		entry.count++
		if entry.count > limit {
			c.Header("Retry-After", entry.windowEnd.UTC().Format(http.TimeFormat))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.NewRetryable(apierror.CodeRateLimited, "too many requests, try again shortly"))
			return
		}
		c.Next()
	}
}

func clientKey(c *gin.Context) string {
	if claims := GetClaims(c); claims != nil {
		return claims.TenantID + "/" + claims.UserID
	}
	return c.ClientIP()
}

// purgeExpiredEntries periodically removes expired entries to keep the map
// from growing with clients that never return.
func purgeExpiredEntries(table *rateTable, window time.Duration) {
	interval := 5 * window
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for now := range ticker.C {
		if purged := table.purge(now); purged > 0 {
			log.Debug().Int("entries_purged", purged).Msg("rate limiter entries purged")
		}
	}
}
