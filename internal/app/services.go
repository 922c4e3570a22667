package app

import (
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/medstock/medstock/internal/inventory"
	"github.com/medstock/medstock/internal/observability"
	"github.com/medstock/medstock/internal/platform/cache"
	"github.com/medstock/medstock/internal/shared"
)

// DashboardNamespace prefixes the versioned dashboard cache keys.
const DashboardNamespace = "medstock:dashboard"

// Inventory holds the assembled inventory service and its cache.
type Inventory struct {
	Service   *inventory.Service
	Dashboard *cache.Versioned
}

// BuildInventory assembles the inventory service on top of stores. A nil redis
// client disables the dashboard cache and idempotency keys.
func BuildInventory(cfg *Config, stores *Stores, client *redis.Client, metrics *observability.Metrics, logger *slog.Logger) Inventory {
	invCfg := cfg.InventoryConfig()
	invCfg.Logger = logger
	if metrics != nil {
		invCfg.Metrics = metrics
	}

	threshold := invCfg.LowStockThreshold
	if threshold <= 0 {
		threshold = inventory.DefaultServiceConfig().LowStockThreshold
	}
	var dashboard *cache.Versioned
	events := inventory.MultiHandler{inventory.LowStockNotifier{Threshold: threshold, Logger: logger}}
	if client != nil {
		dashboard = cache.NewVersioned(client, DashboardNamespace, cfg.CacheTTL)
		invCfg.Cache = dashboard
		invCfg.Idempotency = shared.NewIdempotencyStore(client, 0)
		events = append(events, inventory.CacheInvalidator{Cache: dashboard})
	}

	svc := inventory.NewService(stores.Inventory, shared.SystemClock{}, stores.Audit, events, invCfg)
	return Inventory{Service: svc, Dashboard: dashboard}
}
