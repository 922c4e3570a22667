package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/medstock/medstock/internal/inventory"
	"github.com/medstock/medstock/internal/platform/db"
	"github.com/medstock/medstock/internal/platform/sqlite"
	"github.com/medstock/medstock/internal/shared"
	"github.com/medstock/medstock/internal/suppliers"
)

// Stores bundles the persistence selected by STORE_DRIVER.
type Stores struct {
	Driver    string
	Inventory inventory.Store
	Suppliers suppliers.Repository
	Audit     inventory.AuditPort
	Ready     Pinger

	close func()
}

// Close releases the underlying connections.
func (s *Stores) Close() {
	if s != nil && s.close != nil {
		s.close()
	}
}

// OpenStores connects the configured backend and applies its schema.
func OpenStores(ctx context.Context, cfg *Config, logger *slog.Logger) (*Stores, error) {
	switch cfg.StoreDriver {
	case DriverPostgres:
		pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
		if err != nil {
			return nil, err
		}
		return &Stores{
			Driver:    DriverPostgres,
			Inventory: inventory.NewPostgresStore(pool),
			Suppliers: suppliers.NewRepository(pool),
			Audit:     shared.NewAuditLogger(pool),
			Ready:     PingFunc(pool.Ping),
			close:     pool.Close,
		}, nil
	case DriverSQLite:
		conn, err := sqlite.Connect(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &Stores{
			Driver:    DriverSQLite,
			Inventory: inventory.NewSQLiteStore(conn),
			Suppliers: suppliers.NewSQLiteRepository(conn),
			Audit:     shared.SlogAuditor{Logger: logger},
			Ready:     PingFunc(conn.PingContext),
			close: func() {
				if err := conn.Close(); err != nil && logger != nil {
					logger.Warn("sqlite close", slog.Any("error", err))
				}
			},
		}, nil
	default:
		return nil, fmt.Errorf("app: unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}
