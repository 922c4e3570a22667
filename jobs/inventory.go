package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/medstock/medstock/internal/inventory"
	jobmetrics "github.com/medstock/medstock/internal/jobs"
)

// ExpiryReader is the slice of the inventory service used by the expiry scan.
type ExpiryReader interface {
	Config() inventory.ServiceConfig
	ListExpiringWithin(ctx context.Context, windowDays int) ([]inventory.MedicineView, error)
	DiscountOffers(ctx context.Context) ([]inventory.MedicineView, error)
}

// LedgerVerifier is the slice of the inventory service used by the ledger audit.
type LedgerVerifier interface {
	VerifyLedger(ctx context.Context) ([]inventory.LedgerDrift, error)
}

// RunRecorder counts task outcomes.
type RunRecorder interface {
	JobFinished(task string, err error)
}

// DriftRecorder publishes the ledger audit result.
type DriftRecorder interface {
	SetLedgerDrift(n int)
}

// ExpiryScanJob logs stock entering the expiry alert and discount windows and
// refreshes cached dashboards for the new day.
type ExpiryScanJob struct {
	Inventory ExpiryReader
	Cache     inventory.Bumper
	Metrics   *jobmetrics.Metrics
	Runs      RunRecorder
	Logger    *slog.Logger
}

// Handle executes the expiry scan.
func (j *ExpiryScanJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Inventory == nil {
		return errors.New("expiry scan: handler not configured")
	}
	payload, err := decodeScanPayload(t)
	if err != nil {
		return asynq.SkipRetry
	}
	tracker := j.Metrics.Track(TaskExpiryScan)
	defer func() {
		err = tracker.End(err)
		if j.Runs != nil {
			j.Runs.JobFinished(TaskExpiryScan, err)
		}
	}()

	logger := loggerOr(j.Logger).With(slog.String("task", TaskExpiryScan), slog.Time("scheduled_for", payload.ScheduledFor))
	start := time.Now()
	window := j.Inventory.Config().ExpiryAlertDays

	expiring, err := j.Inventory.ListExpiringWithin(ctx, window)
	if err != nil {
		logger.Error("expiry scan failed", slog.Any("error", err))
		return err
	}
	offers, err := j.Inventory.DiscountOffers(ctx)
	if err != nil {
		logger.Error("discount scan failed", slog.Any("error", err))
		return err
	}
	for _, v := range offers {
		logger.Warn("medicine eligible for discount",
			slog.Int64("medicine_id", v.ID),
			slog.String("name", v.Name),
			slog.String("expiry_date", v.ExpiryDate),
			slog.Int("days_left", deref(v.DaysLeft)),
			slog.Int("discount_percent", deref(v.DiscountPercent)),
		)
	}
	j.Metrics.SetFindings(TaskExpiryScan, "expiring", len(expiring))
	j.Metrics.SetFindings(TaskExpiryScan, "discount", len(offers))

	if j.Cache != nil {
		if bumpErr := j.Cache.Bump(ctx); bumpErr != nil {
			logger.Warn("dashboard cache bump failed", slog.Any("error", bumpErr))
		}
	}

	logger.Info("completed expiry scan",
		slog.Int("window_days", window),
		slog.Int("expiring", len(expiring)),
		slog.Int("discount_offers", len(offers)),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

// LedgerAuditJob checks every medicine against the signed sum of its
// transactions and reports any drift.
type LedgerAuditJob struct {
	Ledger  LedgerVerifier
	Drift   DriftRecorder
	Metrics *jobmetrics.Metrics
	Runs    RunRecorder
	Logger  *slog.Logger
}

// Handle executes the ledger audit.
func (j *LedgerAuditJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Ledger == nil {
		return errors.New("ledger audit: handler not configured")
	}
	payload, err := decodeScanPayload(t)
	if err != nil {
		return asynq.SkipRetry
	}
	tracker := j.Metrics.Track(TaskLedgerAudit)
	defer func() {
		err = tracker.End(err)
		if j.Runs != nil {
			j.Runs.JobFinished(TaskLedgerAudit, err)
		}
	}()

	logger := loggerOr(j.Logger).With(slog.String("task", TaskLedgerAudit), slog.Time("scheduled_for", payload.ScheduledFor))
	drift, err := j.Ledger.VerifyLedger(ctx)
	if err != nil {
		logger.Error("ledger audit failed", slog.Any("error", err))
		return err
	}
	if j.Drift != nil {
		j.Drift.SetLedgerDrift(len(drift))
	}
	j.Metrics.SetFindings(TaskLedgerAudit, "drift", len(drift))
	for _, d := range drift {
		logger.Error("ledger drift detected",
			slog.Int64("medicine_id", d.MedicineID),
			slog.String("name", d.Name),
			slog.Int64("quantity", d.Quantity),
			slog.Int64("ledger_sum", d.LedgerSum),
		)
	}
	logger.Info("completed ledger audit", slog.Int("drift", len(drift)))
	return nil
}

func loggerOr(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

func deref(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
