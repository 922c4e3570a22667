package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
	return dir
}

func TestLoadConfigDefaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("STORE_DRIVER", "")
	os.Unsetenv("STORE_DRIVER")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, DriverSQLite, cfg.StoreDriver)
	require.Equal(t, "medstock.db", cfg.SQLitePath)
	require.Equal(t, int64(10), cfg.LowStockThreshold)
	require.Equal(t, 90, cfg.ExpiryAlertDays)
	require.Equal(t, 30, cfg.ExpiringSoonDays)
	require.Equal(t, 15, cfg.DiscountWindowDays)
	require.Equal(t, 10*time.Minute, cfg.CacheTTL)
	require.False(t, cfg.IsProduction())
}

func TestLoadConfigReadsDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	t.Setenv("LOW_STOCK_THRESHOLD", "")
	os.Unsetenv("LOW_STOCK_THRESHOLD")
	t.Setenv("APP_ENV", "")
	os.Unsetenv("APP_ENV")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LOW_STOCK_THRESHOLD=25\nAPP_ENV=production\n"), 0o600))

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, int64(25), cfg.LowStockThreshold)
	require.True(t, cfg.IsProduction())
}

func TestLoadConfigEnvironmentWins(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("EXPIRY_ALERT_DAYS=60\n"), 0o600))
	t.Setenv("EXPIRY_ALERT_DAYS", "45")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, 45, cfg.ExpiryAlertDays)
}

func TestConfigValidate(t *testing.T) {
	base := Config{StoreDriver: DriverSQLite, SQLitePath: "medstock.db", RateLimitPerMinute: 120}
	require.NoError(t, base.Validate())

	cases := map[string]func(*Config){
		"unknown driver":  func(c *Config) { c.StoreDriver = "mysql" },
		"postgres no dsn": func(c *Config) { c.StoreDriver = DriverPostgres; c.PGDSN = "" },
		"sqlite no path":  func(c *Config) { c.SQLitePath = "" },
		"negative window": func(c *Config) { c.ExpiryAlertDays = -1 },
		"negative low":    func(c *Config) { c.LowStockThreshold = -5 },
		"zero rate limit": func(c *Config) { c.RateLimitPerMinute = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base
			mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestInventoryConfig(t *testing.T) {
	cfg := Config{LowStockThreshold: 5, ExpiryAlertDays: 60, ExpiringSoonDays: 20, DiscountWindowDays: 10}
	inv := cfg.InventoryConfig()
	require.Equal(t, int64(5), inv.LowStockThreshold)
	require.Equal(t, 60, inv.ExpiryAlertDays)
	require.Equal(t, 20, inv.ExpiringSoonDays)
	require.Equal(t, 10, inv.DiscountWindowDays)
	require.Equal(t, 5, inv.RecentTransactions)
}
