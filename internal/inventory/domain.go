package inventory

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType enumerates supported ledger movements.
type TransactionType string

const (
	// TransactionTypeAdd represents stock coming in.
	TransactionTypeAdd TransactionType = "add"
	// TransactionTypeRemove represents stock going out.
	TransactionTypeRemove TransactionType = "remove"
)

// ParseTransactionType converts user input into a TransactionType.
func ParseTransactionType(value string) (TransactionType, error) {
	switch TransactionType(strings.ToLower(strings.TrimSpace(value))) {
	case TransactionTypeAdd:
		return TransactionTypeAdd, nil
	case TransactionTypeRemove:
		return TransactionTypeRemove, nil
	}
	return "", NewValidationError("transaction_type", "must be add or remove")
}

// Valid reports whether t is one of the known kinds.
func (t TransactionType) Valid() bool {
	return t == TransactionTypeAdd || t == TransactionTypeRemove
}

// Medicine is a stocked item. Quantity is only changed through the Service.
type Medicine struct {
	ID           int64               `json:"id"`
	Name         string              `json:"name"`
	Description  string              `json:"description"`
	Category     string              `json:"category"`
	Manufacturer string              `json:"manufacturer"`
	BatchNumber  string              `json:"batch_number"`
	Quantity     int64               `json:"quantity"`
	Unit         string              `json:"unit"`
	PurchaseDate string              `json:"purchase_date"`
	ExpiryDate   string              `json:"expiry_date"`
	Price        decimal.NullDecimal `json:"price"`
	CreatedAt    time.Time           `json:"created_at"`
}

// Transaction is an append-only ledger entry.
type Transaction struct {
	ID         int64           `json:"id"`
	Code       string          `json:"code"`
	MedicineID int64           `json:"medicine_id"`
	Type       TransactionType `json:"transaction_type"`
	Quantity   int64           `json:"quantity"`
	OccurredAt time.Time       `json:"transaction_date"`
	Note       string          `json:"notes"`
}

// SignedQuantity returns the quantity delta the entry applies.
func (t Transaction) SignedQuantity() int64 {
	if t.Type == TransactionTypeRemove {
		return -t.Quantity
	}
	return t.Quantity
}

// TransactionView is a transaction joined with its medicine name.
type TransactionView struct {
	Transaction
	MedicineName string `json:"medicine_name"`
}

// MedicineView decorates a medicine with values derived from a reference date.
// Derived fields are always serialised, as null when undeterminable.
type MedicineView struct {
	Medicine
	DaysLeft        *int                `json:"days_left"`
	ExpiryStatus    string              `json:"expiry_status"`
	DiscountPercent *int                `json:"discount_percent"`
	DiscountedPrice decimal.NullDecimal `json:"discounted_price"`
}

// MedicineInput carries the fields accepted on create and edit.
type MedicineInput struct {
	Name         string           `json:"name" validate:"required"`
	Description  string           `json:"description" validate:"omitempty,max=2000"`
	Category     string           `json:"category" validate:"omitempty,max=120"`
	Manufacturer string           `json:"manufacturer" validate:"omitempty,max=200"`
	BatchNumber  string           `json:"batch_number" validate:"omitempty,max=120"`
	Quantity     *int64           `json:"quantity" validate:"required,gte=0"`
	Unit         string           `json:"unit" validate:"omitempty,max=60"`
	PurchaseDate string           `json:"purchase_date" validate:"omitempty,datetime=2006-01-02"`
	ExpiryDate   string           `json:"expiry_date" validate:"required,datetime=2006-01-02"`
	Price        *decimal.Decimal `json:"price" validate:"-"`
}

// TransactionFilter narrows ledger listings.
type TransactionFilter struct {
	MedicineID int64
	Limit      int
}

// StockChangeInput is the body of an explicit add/remove request.
type StockChangeInput struct {
	Type     string `json:"transaction_type"`
	Quantity int64  `json:"quantity"`
	Note     string `json:"notes"`
}

// LedgerBalance pairs a medicine's stored quantity with its ledger sum.
type LedgerBalance struct {
	MedicineID int64
	Name       string
	Quantity   int64
	LedgerSum  int64
}

// LedgerDrift reports a medicine whose quantity disagrees with its ledger.
type LedgerDrift struct {
	MedicineID int64 `json:"medicine_id"`
	Name       string `json:"name"`
	Quantity   int64 `json:"quantity"`
	LedgerSum  int64 `json:"ledger_sum"`
}

// DashboardSummary aggregates the landing page figures.
type DashboardSummary struct {
	ReferenceDate      string            `json:"reference_date"`
	TotalMedicines     int64             `json:"total_medicines"`
	ExpiringCount      int               `json:"expiring_medicines"`
	LowStockCount      int               `json:"low_stock_medicines"`
	RecentTransactions []TransactionView `json:"recent_transactions"`
	ExpiringSoon       []MedicineView    `json:"expiring_soon"`
}

var (
	// ErrValidation marks missing or malformed required input.
	ErrValidation = errors.New("inventory: validation failed")
	// ErrInsufficientStock marks a removal exceeding on-hand quantity.
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
	// ErrNotFound marks an operation on an absent medicine.
	ErrNotFound = errors.New("inventory: medicine not found")
)

// ValidationError lists offending fields.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError builds a single-field ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Fields[k])
	}
	return "inventory: validation failed: " + strings.Join(parts, "; ")
}

// Is matches ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// FieldErrors exposes the per-field messages to the HTTP layer.
func (e *ValidationError) FieldErrors() map[string]string {
	return e.Fields
}

// InsufficientStockError describes a rejected removal.
type InsufficientStockError struct {
	MedicineID int64
	Requested  int64
	Available  int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("inventory: cannot remove %d from medicine %d, only %d available", e.Requested, e.MedicineID, e.Available)
}

// Is matches ErrInsufficientStock.
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}
