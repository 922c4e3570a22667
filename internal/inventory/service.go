package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/medstock/medstock/internal/shared"
)

// Store abstracts the ledger persistence used by Service.
type Store interface {
	WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error
	GetMedicine(ctx context.Context, id int64) (Medicine, error)
	ListMedicines(ctx context.Context) ([]Medicine, error)
	ListInStock(ctx context.Context) ([]Medicine, error)
	ListLowStock(ctx context.Context, threshold int64) ([]Medicine, error)
	SearchMedicines(ctx context.Context, query string) ([]Medicine, error)
	CountMedicines(ctx context.Context) (int64, error)
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]TransactionView, error)
	LedgerBalances(ctx context.Context) ([]LedgerBalance, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyPort guards replayed stock changes.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key, module string) error
}

// StockRecorder receives ledger counters.
type StockRecorder interface {
	StockChanged(txType string)
	StockRejected(reason string)
}

// DashboardCache memoises dashboard summaries.
type DashboardCache interface {
	BuildKey(ctx context.Context, parts ...string) (string, error)
	FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error
}

// ServiceConfig groups tunables and optional collaborators.
type ServiceConfig struct {
	LowStockThreshold  int64
	ExpiryAlertDays    int
	ExpiringSoonDays   int
	DiscountWindowDays int
	RecentTransactions int

	Idempotency IdempotencyPort
	Cache       DashboardCache
	Metrics     StockRecorder
	Logger      *slog.Logger
}

// DefaultServiceConfig returns the standard pharmacy thresholds.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		LowStockThreshold:  10,
		ExpiryAlertDays:    90,
		ExpiringSoonDays:   30,
		DiscountWindowDays: 15,
		RecentTransactions: 5,
	}
}

func (c ServiceConfig) withDefaults() ServiceConfig {
	def := DefaultServiceConfig()
	if c.LowStockThreshold <= 0 {
		c.LowStockThreshold = def.LowStockThreshold
	}
	if c.ExpiryAlertDays <= 0 {
		c.ExpiryAlertDays = def.ExpiryAlertDays
	}
	if c.ExpiringSoonDays <= 0 {
		c.ExpiringSoonDays = def.ExpiringSoonDays
	}
	if c.DiscountWindowDays <= 0 {
		c.DiscountWindowDays = def.DiscountWindowDays
	}
	if c.RecentTransactions <= 0 {
		c.RecentTransactions = def.RecentTransactions
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Service coordinates ledger writes and the read views derived from them.
type Service struct {
	repo     Store
	clock    shared.Clock
	audit    AuditPort
	events   EventHandler
	cfg      ServiceConfig
	validate *validator.Validate
	logger   *slog.Logger
}

// NewService builds Service. audit and events may be nil.
func NewService(repo Store, clock shared.Clock, audit AuditPort, events EventHandler, cfg ServiceConfig) *Service {
	if clock == nil {
		clock = shared.SystemClock{}
	}
	cfg = cfg.withDefaults()
	return &Service{
		repo:     repo,
		clock:    clock,
		audit:    audit,
		events:   events,
		cfg:      cfg,
		validate: newValidator(),
		logger:   cfg.Logger.With(slog.String("component", "inventory")),
	}
}

// Config exposes the effective configuration.
func (s *Service) Config() ServiceConfig {
	return s.cfg
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// CreateMedicine inserts a medicine and its opening ledger entry.
func (s *Service) CreateMedicine(ctx context.Context, input MedicineInput) (Medicine, error) {
	if err := s.validateInput(input); err != nil {
		return Medicine{}, err
	}
	med := input.apply(Medicine{CreatedAt: s.clock.Now()})
	opening := *input.Quantity
	var txn Transaction
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		// quantity starts at zero; the opening entry brings it up so the
		// ledger sum and the column agree from the first row.
		med.Quantity = 0
		id, err := tx.InsertMedicine(ctx, med)
		if err != nil {
			return fmt.Errorf("inventory: insert medicine: %w", err)
		}
		med.ID = id
		if opening == 0 {
			return nil
		}
		txn, err = s.reconcile(ctx, tx, med, opening, fmt.Sprintf("Initial stock of %s", med.Name))
		if err != nil {
			return err
		}
		med.Quantity = opening
		return nil
	})
	if err != nil {
		return Medicine{}, err
	}
	s.afterWrite(ctx, "inventory:create", med, txn, false)
	return med, nil
}

// ApplyChange adds or removes amount units in one atomic ledger write.
func (s *Service) ApplyChange(ctx context.Context, id int64, txType TransactionType, amount int64, note string) (Medicine, error) {
	if !txType.Valid() {
		s.reject("validation")
		return Medicine{}, NewValidationError("transaction_type", "must be add or remove")
	}
	if amount <= 0 {
		s.reject("validation")
		return Medicine{}, NewValidationError("quantity", "must be a positive integer")
	}
	var (
		med Medicine
		txn Transaction
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		current, err := tx.GetMedicineForUpdate(ctx, id)
		if err != nil {
			return err
		}
		delta := amount
		if txType == TransactionTypeRemove {
			if amount > current.Quantity {
				return &InsufficientStockError{MedicineID: id, Requested: amount, Available: current.Quantity}
			}
			delta = -amount
		} else if amount > math.MaxInt64-current.Quantity {
			return NewValidationError("quantity", "would overflow the stock quantity")
		}
		med = current
		txn, err = s.reconcile(ctx, tx, current, current.Quantity+delta, note)
		if err != nil {
			return err
		}
		med.Quantity = current.Quantity + delta
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInsufficientStock):
			s.reject("insufficient_stock")
		case errors.Is(err, ErrValidation):
			s.reject("validation")
		}
		return Medicine{}, err
	}
	s.afterWrite(ctx, "inventory:"+string(txType), med, txn, false)
	return med, nil
}

// ApplyChangeOnce is ApplyChange guarded by a client supplied idempotency key.
// A replayed key fails with shared.ErrIdempotencyConflict. The key is released
// when the change fails so the client may retry.
func (s *Service) ApplyChangeOnce(ctx context.Context, key string, id int64, txType TransactionType, amount int64, note string) (Medicine, error) {
	if key == "" || s.cfg.Idempotency == nil {
		return s.ApplyChange(ctx, id, txType, amount, note)
	}
	scoped := fmt.Sprintf("%d:%s", id, key)
	if err := s.cfg.Idempotency.CheckAndInsert(ctx, scoped, "inventory"); err != nil {
		if errors.Is(err, shared.ErrIdempotencyConflict) {
			s.reject("replay")
		}
		return Medicine{}, err
	}
	med, err := s.ApplyChange(ctx, id, txType, amount, note)
	if err != nil {
		_ = s.cfg.Idempotency.Delete(ctx, scoped, "inventory")
		return Medicine{}, err
	}
	return med, nil
}

// SetQuantity reconciles a manual quantity edit into at most one ledger entry.
func (s *Service) SetQuantity(ctx context.Context, id, newQuantity int64, note string) (Medicine, error) {
	if newQuantity < 0 {
		s.reject("validation")
		return Medicine{}, NewValidationError("quantity", "must be zero or more")
	}
	var (
		med     Medicine
		txn     Transaction
		changed bool
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		current, err := tx.GetMedicineForUpdate(ctx, id)
		if err != nil {
			return err
		}
		med = current
		if newQuantity == current.Quantity {
			return nil
		}
		if note == "" {
			note = fmt.Sprintf("Updated stock of %s", current.Name)
		}
		txn, err = s.reconcile(ctx, tx, current, newQuantity, note)
		if err != nil {
			return err
		}
		med.Quantity = newQuantity
		changed = true
		return nil
	})
	if err != nil {
		return Medicine{}, err
	}
	if changed {
		s.afterWrite(ctx, "inventory:set_quantity", med, txn, false)
	}
	return med, nil
}

// UpdateMedicine rewrites the descriptive fields and reconciles any quantity
// difference in the same store transaction.
func (s *Service) UpdateMedicine(ctx context.Context, id int64, input MedicineInput) (Medicine, error) {
	if err := s.validateInput(input); err != nil {
		return Medicine{}, err
	}
	var (
		med Medicine
		txn Transaction
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		current, err := tx.GetMedicineForUpdate(ctx, id)
		if err != nil {
			return err
		}
		med = input.apply(current)
		med.Quantity = current.Quantity
		if err := tx.UpdateMedicine(ctx, med); err != nil {
			return fmt.Errorf("inventory: update medicine: %w", err)
		}
		target := *input.Quantity
		if target == current.Quantity {
			return nil
		}
		txn, err = s.reconcile(ctx, tx, med, target, fmt.Sprintf("Updated stock of %s", med.Name))
		if err != nil {
			return err
		}
		med.Quantity = target
		return nil
	})
	if err != nil {
		return Medicine{}, err
	}
	s.afterWrite(ctx, "inventory:update", med, txn, false)
	return med, nil
}

// DeleteMedicine removes the medicine together with its ledger history.
func (s *Service) DeleteMedicine(ctx context.Context, id int64) error {
	var med Medicine
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		current, err := tx.GetMedicineForUpdate(ctx, id)
		if err != nil {
			return err
		}
		med = current
		return tx.DeleteMedicine(ctx, id)
	})
	if err != nil {
		return err
	}
	s.afterWrite(ctx, "inventory:delete", med, Transaction{}, true)
	return nil
}

// reconcile moves med to newQuantity through a single ReconcileStock call.
func (s *Service) reconcile(ctx context.Context, tx TxStore, med Medicine, newQuantity int64, note string) (Transaction, error) {
	diff := newQuantity - med.Quantity
	txn := Transaction{
		Code:       "TX-" + uuid.NewString(),
		MedicineID: med.ID,
		Type:       TransactionTypeAdd,
		Quantity:   diff,
		OccurredAt: s.clock.Now(),
		Note:       note,
	}
	if diff < 0 {
		txn.Type = TransactionTypeRemove
		txn.Quantity = -diff
	}
	id, err := tx.ReconcileStock(ctx, med.ID, newQuantity, txn)
	if err != nil {
		return Transaction{}, fmt.Errorf("inventory: reconcile stock: %w", err)
	}
	txn.ID = id
	return txn, nil
}

func (s *Service) afterWrite(ctx context.Context, action string, med Medicine, txn Transaction, deleted bool) {
	if txn.Type != "" && s.cfg.Metrics != nil {
		s.cfg.Metrics.StockChanged(string(txn.Type))
	}
	if s.audit != nil {
		meta := map[string]any{"name": med.Name, "quantity": med.Quantity}
		if txn.Code != "" {
			meta["transaction"] = txn.Code
			meta["delta"] = txn.SignedQuantity()
		}
		if err := s.audit.Record(ctx, shared.AuditLog{
			Action:   action,
			Entity:   "medicine",
			EntityID: fmt.Sprintf("%d", med.ID),
			Meta:     meta,
			At:       s.clock.Now(),
		}); err != nil {
			s.logger.WarnContext(ctx, "audit record failed", slog.String("action", action), slog.Any("error", err))
		}
	}
	if s.events != nil {
		evt := StockChangedEvent{
			MedicineID:  med.ID,
			Type:        txn.Type,
			Quantity:    txn.Quantity,
			NewQuantity: med.Quantity,
			Deleted:     deleted,
			OccurredAt:  s.clock.Now(),
		}
		if err := s.events.HandleStockChanged(ctx, evt); err != nil {
			s.logger.WarnContext(ctx, "stock event handler failed", slog.Int64("medicine_id", med.ID), slog.Any("error", err))
		}
	}
}

func (s *Service) reject(reason string) {
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.StockRejected(reason)
	}
}

func (s *Service) validateInput(input MedicineInput) error {
	fields := make(map[string]string)
	if err := s.validate.Struct(input); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			fields[fe.Field()] = validationMessage(fe)
		}
	}
	if strings.TrimSpace(input.Name) == "" && fields["name"] == "" {
		fields["name"] = "is required"
	}
	if input.Price != nil && input.Price.IsNegative() {
		fields["price"] = "must be zero or more"
	}
	if len(fields) > 0 {
		s.reject("validation")
		return &ValidationError{Fields: fields}
	}
	return nil
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return "must be zero or more"
	case "datetime":
		return "must be a YYYY-MM-DD date"
	case "max":
		return "is too long"
	default:
		return "is invalid"
	}
}

// apply copies the descriptive input fields onto m.
func (in MedicineInput) apply(m Medicine) Medicine {
	m.Name = strings.TrimSpace(in.Name)
	m.Description = in.Description
	m.Category = in.Category
	m.Manufacturer = in.Manufacturer
	m.BatchNumber = in.BatchNumber
	m.Unit = in.Unit
	m.PurchaseDate = in.PurchaseDate
	m.ExpiryDate = in.ExpiryDate
	m.Price = decimal.NullDecimal{}
	if in.Price != nil {
		m.Price = decimal.NewNullDecimal(in.Price.Round(2))
	}
	return m
}
