package inventory

import "time"

// StockChangedEvent is emitted after a ledger write commits.
type StockChangedEvent struct {
	MedicineID  int64
	Type        TransactionType
	Quantity    int64
	NewQuantity int64
	Deleted     bool
	OccurredAt  time.Time
}
