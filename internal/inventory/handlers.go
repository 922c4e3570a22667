package inventory

import (
	"context"
	"errors"
	"log/slog"
)

// EventHandler receives committed ledger events, e.g. to invalidate caches.
type EventHandler interface {
	HandleStockChanged(ctx context.Context, evt StockChangedEvent) error
}

// Bumper invalidates a versioned cache.
type Bumper interface {
	Bump(ctx context.Context) error
}

// CacheInvalidator bumps the dashboard cache on every ledger write.
type CacheInvalidator struct {
	Cache Bumper
}

// HandleStockChanged implements EventHandler.
func (c CacheInvalidator) HandleStockChanged(ctx context.Context, _ StockChangedEvent) error {
	if c.Cache == nil {
		return nil
	}
	return c.Cache.Bump(ctx)
}

// MultiHandler fans an event out to every handler and joins their errors.
type MultiHandler []EventHandler

// HandleStockChanged implements EventHandler.
func (m MultiHandler) HandleStockChanged(ctx context.Context, evt StockChangedEvent) error {
	var errs []error
	for _, h := range m {
		if h == nil {
			continue
		}
		if err := h.HandleStockChanged(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LowStockNotifier logs a warning when a write leaves a medicine at or below
// the threshold.
type LowStockNotifier struct {
	Threshold int64
	Logger    *slog.Logger
}

// HandleStockChanged implements EventHandler.
func (n LowStockNotifier) HandleStockChanged(ctx context.Context, evt StockChangedEvent) error {
	if n.Logger == nil || evt.Deleted || evt.NewQuantity > n.Threshold {
		return nil
	}
	n.Logger.WarnContext(ctx, "medicine low on stock",
		slog.Int64("medicine_id", evt.MedicineID),
		slog.Int64("quantity", evt.NewQuantity),
		slog.Int64("threshold", n.Threshold),
	)
	return nil
}
