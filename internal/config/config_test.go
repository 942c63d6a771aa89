package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "ticket-dashboard", cfg.App.Name)
	require.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	require.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
	require.Equal(t, "info", cfg.Logger.Level)

	require.Equal(t, 5000, cfg.Import.MaxRows)
	require.Equal(t, "M-", cfg.Import.SweepPrefix)
	require.Equal(t, "Service Support", cfg.Import.DefaultHandler)
	require.Equal(t, "System", cfg.Import.SystemHandler)
	require.Equal(t, time.Minute, cfg.Import.StatsCacheTTL())
	require.Equal(t, 100, cfg.Import.ActivityFeedSize)
}

func TestLoad_envOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("IMPORT_SWEEP_PREFIX", "X-")
	t.Setenv("IMPORT_DEFAULT_HANDLER", "Front Desk")
	t.Setenv("STATS_CACHE_TTL_SECONDS", "5")
	t.Setenv("REDIS_DB", "3")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:9090", cfg.App.Addr())
	require.Equal(t, "X-", cfg.Import.SweepPrefix)
	require.Equal(t, "Front Desk", cfg.Import.DefaultHandler)
	require.Equal(t, 5*time.Second, cfg.Import.StatsCacheTTL())
	require.Equal(t, 3, cfg.Redis.DB)
}

func TestLoad_invalidRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "not-a-number")
	_, err := Load()
	require.Error(t, err)
}

func TestLoad_malformedIntFallsBack(t *testing.T) {
	t.Setenv("IMPORT_MAX_ROWS", "many")
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 5000, cfg.Import.MaxRows)
}
