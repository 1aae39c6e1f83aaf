package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, 4, cfg.WorkerPoolSize)
	assert.Equal(t, 5, cfg.JobMaxAttempts)
	assert.Equal(t, 5*time.Minute, cfg.StockCacheTTL())
	assert.Equal(t, 30*time.Second, cfg.OrderLockTTL())
	assert.False(t, cfg.IsProduction())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9100")
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STOCK_CACHE_TTL_SECONDS", "10")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.Equal(t, 10*time.Second, cfg.StockCacheTTL())
}

func TestLoadRejectsDevSecretInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")

	_, err := Load()
	assert.ErrorIs(t, err, ErrInsecureJWTSecret)

	t.Setenv("JWT_SECRET", DevJWTSecret)
	_, err = Load()
	assert.ErrorIs(t, err, ErrInsecureJWTSecret)

	t.Setenv("JWT_SECRET", "rotated-2026")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "rotated-2026", cfg.JWTSecret)
}

func TestLoadKeepsDevSecretOutsideProduction(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DevJWTSecret, cfg.JWTSecret)
	assert.Equal(t, time.Minute, cfg.DLQRetryInterval())
	assert.Equal(t, 3, cfg.DLQMaxRequeues)
}
