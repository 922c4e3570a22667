package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/medstock/medstock/internal/shared"
)

// GetMedicine returns one medicine classified against today.
func (s *Service) GetMedicine(ctx context.Context, id int64) (MedicineView, error) {
	med, err := s.repo.GetMedicine(ctx, id)
	if err != nil {
		return MedicineView{}, err
	}
	return Classify(med, s.clock.Today()), nil
}

// ListMedicines returns every medicine ordered by name.
func (s *Service) ListMedicines(ctx context.Context) ([]MedicineView, error) {
	meds, err := s.repo.ListMedicines(ctx)
	if err != nil {
		return nil, fmt.Errorf("inventory: list medicines: %w", err)
	}
	return ClassifyAll(meds, s.clock.Today()), nil
}

// ListExpiringWithin lists in-stock medicines expiring within windowDays of today.
func (s *Service) ListExpiringWithin(ctx context.Context, windowDays int) ([]MedicineView, error) {
	if windowDays < 0 {
		return nil, NewValidationError("days", "must be zero or more")
	}
	return s.expiringWithin(ctx, windowDays, s.clock.Today())
}

func (s *Service) expiringWithin(ctx context.Context, windowDays int, ref time.Time) ([]MedicineView, error) {
	meds, err := s.repo.ListInStock(ctx)
	if err != nil {
		return nil, fmt.Errorf("inventory: list in stock: %w", err)
	}
	return FilterExpiringWithin(meds, windowDays, ref), nil
}

// ListLowStock lists medicines at or below threshold units.
func (s *Service) ListLowStock(ctx context.Context, threshold int64) ([]MedicineView, error) {
	if threshold < 0 {
		return nil, NewValidationError("threshold", "must be zero or more")
	}
	meds, err := s.repo.ListLowStock(ctx, threshold)
	if err != nil {
		return nil, fmt.Errorf("inventory: list low stock: %w", err)
	}
	return ClassifyAll(meds, s.clock.Today()), nil
}

// DiscountOffers lists stock inside the discount window with its recommended
// markdown.
func (s *Service) DiscountOffers(ctx context.Context) ([]MedicineView, error) {
	views, err := s.ListExpiringWithin(ctx, s.cfg.DiscountWindowDays)
	if err != nil {
		return nil, err
	}
	for i := range views {
		views[i] = WithDiscount(views[i])
	}
	return views, nil
}

// Search matches query case-insensitively against name, description, category
// and manufacturer. An empty query lists everything.
func (s *Service) Search(ctx context.Context, query string) ([]MedicineView, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.ListMedicines(ctx)
	}
	meds, err := s.repo.SearchMedicines(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("inventory: search: %w", err)
	}
	return ClassifyAll(meds, s.clock.Today()), nil
}

// ListTransactions returns ledger entries, newest first.
func (s *Service) ListTransactions(ctx context.Context, filter TransactionFilter) ([]TransactionView, error) {
	if filter.Limit < 0 {
		return nil, NewValidationError("limit", "must be zero or more")
	}
	if filter.MedicineID != 0 {
		if _, err := s.repo.GetMedicine(ctx, filter.MedicineID); err != nil {
			return nil, err
		}
	}
	txns, err := s.repo.ListTransactions(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("inventory: list transactions: %w", err)
	}
	return txns, nil
}

// DashboardSummary aggregates the landing figures for today. Results are
// cached per date until the next ledger write bumps the cache version.
func (s *Service) DashboardSummary(ctx context.Context) (DashboardSummary, error) {
	ref := s.clock.Today()
	if s.cfg.Cache == nil {
		return s.buildSummary(ctx, ref)
	}
	key, err := s.cfg.Cache.BuildKey(ctx, "dashboard", ref.Format(shared.DateLayout))
	if err != nil {
		s.logger.WarnContext(ctx, "dashboard cache unavailable", slog.Any("error", err))
		return s.buildSummary(ctx, ref)
	}
	var summary DashboardSummary
	err = s.cfg.Cache.FetchJSON(ctx, key, &summary, func(ctx context.Context) (any, error) {
		return s.buildSummary(ctx, ref)
	})
	if err != nil {
		return DashboardSummary{}, err
	}
	return summary, nil
}

func (s *Service) buildSummary(ctx context.Context, ref time.Time) (DashboardSummary, error) {
	summary := DashboardSummary{ReferenceDate: ref.Format(shared.DateLayout)}
	var inStock []Medicine
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		total, err := s.repo.CountMedicines(gctx)
		if err != nil {
			return fmt.Errorf("inventory: count medicines: %w", err)
		}
		summary.TotalMedicines = total
		return nil
	})
	g.Go(func() error {
		meds, err := s.repo.ListInStock(gctx)
		if err != nil {
			return fmt.Errorf("inventory: list in stock: %w", err)
		}
		inStock = meds
		return nil
	})
	g.Go(func() error {
		low, err := s.repo.ListLowStock(gctx, s.cfg.LowStockThreshold)
		if err != nil {
			return fmt.Errorf("inventory: list low stock: %w", err)
		}
		summary.LowStockCount = len(low)
		return nil
	})
	g.Go(func() error {
		recent, err := s.repo.ListTransactions(gctx, TransactionFilter{Limit: s.cfg.RecentTransactions})
		if err != nil {
			return fmt.Errorf("inventory: recent transactions: %w", err)
		}
		summary.RecentTransactions = recent
		return nil
	})
	if err := g.Wait(); err != nil {
		return DashboardSummary{}, err
	}
	summary.ExpiringCount = len(FilterExpiringWithin(inStock, s.cfg.ExpiryAlertDays, ref))
	summary.ExpiringSoon = FilterExpiringWithin(inStock, s.cfg.ExpiringSoonDays, ref)
	return summary, nil
}

// VerifyLedger reports medicines whose stored quantity differs from the
// signed sum of their transactions.
func (s *Service) VerifyLedger(ctx context.Context) ([]LedgerDrift, error) {
	balances, err := s.repo.LedgerBalances(ctx)
	if err != nil {
		return nil, fmt.Errorf("inventory: ledger balances: %w", err)
	}
	drift := make([]LedgerDrift, 0)
	for _, b := range balances {
		if b.Quantity != b.LedgerSum {
			drift = append(drift, LedgerDrift(b))
		}
	}
	return drift, nil
}
