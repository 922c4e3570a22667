package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/medstock/medstock/internal/platform/sqlite"
)

// SQLiteStore persists the ledger in a single SQLite file.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore constructs SQLiteStore.
func NewSQLiteStore(db *sqlx.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

type sqliteTxStore struct {
	tx *sqlx.Tx
}

type medicineRow struct {
	ID           int64               `db:"id"`
	Name         string              `db:"name"`
	Description  string              `db:"description"`
	Category     string              `db:"category"`
	Quantity     int64               `db:"quantity"`
	Unit         string              `db:"unit"`
	Manufacturer string              `db:"manufacturer"`
	BatchNumber  string              `db:"batch_number"`
	PurchaseDate string              `db:"purchase_date"`
	ExpiryDate   sql.NullString      `db:"expiry_date"`
	Price        decimal.NullDecimal `db:"price"`
	CreatedAt    string              `db:"created_at"`
}

func (r medicineRow) toDomain() Medicine {
	return Medicine{
		ID:           r.ID,
		Name:         r.Name,
		Description:  r.Description,
		Category:     r.Category,
		Manufacturer: r.Manufacturer,
		BatchNumber:  r.BatchNumber,
		Quantity:     r.Quantity,
		Unit:         r.Unit,
		PurchaseDate: r.PurchaseDate,
		ExpiryDate:   r.ExpiryDate.String,
		Price:        r.Price,
		CreatedAt:    sqlite.ParseTime(r.CreatedAt),
	}
}

type transactionRow struct {
	ID           int64  `db:"id"`
	Code         string `db:"code"`
	MedicineID   int64  `db:"medicine_id"`
	Type         string `db:"transaction_type"`
	Quantity     int64  `db:"quantity"`
	OccurredAt   string `db:"transaction_date"`
	Note         string `db:"notes"`
	MedicineName string `db:"medicine_name"`
}

type ledgerRow struct {
	MedicineID int64  `db:"id"`
	Name       string `db:"name"`
	Quantity   int64  `db:"quantity"`
	LedgerSum  int64  `db:"ledger_sum"`
}

const sqliteMedicineColumns = `id, name, description, category, quantity, unit, manufacturer, batch_number, purchase_date, expiry_date, price, created_at`

// WithTx runs fn in a write transaction. The connection pool is capped at one
// connection, so transactions are serialised.
func (r *SQLiteStore) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	if r == nil || r.db == nil {
		return errors.New("inventory repository not initialised")
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("inventory: begin tx: %w", err)
	}
	if err := fn(ctx, &sqliteTxStore{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("inventory: commit tx: %w", err)
	}
	return nil
}

func (r *SQLiteStore) GetMedicine(ctx context.Context, id int64) (Medicine, error) {
	return getMedicine(ctx, r.db, id)
}

func (r *SQLiteStore) ListMedicines(ctx context.Context) ([]Medicine, error) {
	return r.selectMedicines(ctx, `SELECT `+sqliteMedicineColumns+` FROM medicines ORDER BY name ASC, id ASC`)
}

func (r *SQLiteStore) ListInStock(ctx context.Context) ([]Medicine, error) {
	return r.selectMedicines(ctx, `SELECT `+sqliteMedicineColumns+` FROM medicines WHERE quantity > 0 ORDER BY id ASC`)
}

func (r *SQLiteStore) ListLowStock(ctx context.Context, threshold int64) ([]Medicine, error) {
	return r.selectMedicines(ctx, `SELECT `+sqliteMedicineColumns+` FROM medicines WHERE quantity <= ? ORDER BY quantity ASC, id ASC`, threshold)
}

// SearchMedicines folds case with the casefold() function registered by the
// sqlite platform package, since LIKE only folds ASCII.
func (r *SQLiteStore) SearchMedicines(ctx context.Context, query string) ([]Medicine, error) {
	pattern := likePattern(query)
	return r.selectMedicines(ctx, `SELECT `+sqliteMedicineColumns+` FROM medicines
WHERE casefold(name) LIKE casefold(?1) ESCAPE '\'
   OR casefold(description) LIKE casefold(?1) ESCAPE '\'
   OR casefold(category) LIKE casefold(?1) ESCAPE '\'
   OR casefold(manufacturer) LIKE casefold(?1) ESCAPE '\'
ORDER BY name ASC, id ASC`, pattern)
}

func (r *SQLiteStore) CountMedicines(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM medicines`)
	return total, err
}

func (r *SQLiteStore) ListTransactions(ctx context.Context, filter TransactionFilter) ([]TransactionView, error) {
	query := `SELECT t.id, t.code, t.medicine_id, t.transaction_type, t.quantity, t.transaction_date, t.notes, m.name AS medicine_name
FROM transactions t
JOIN medicines m ON m.id = t.medicine_id
WHERE (? = 0 OR t.medicine_id = ?)
ORDER BY t.transaction_date DESC, t.id DESC`
	args := []any{filter.MedicineID, filter.MedicineID}
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	var rows []transactionRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	views := make([]TransactionView, 0, len(rows))
	for _, row := range rows {
		views = append(views, TransactionView{
			Transaction: Transaction{
				ID:         row.ID,
				Code:       row.Code,
				MedicineID: row.MedicineID,
				Type:       TransactionType(row.Type),
				Quantity:   row.Quantity,
				OccurredAt: sqlite.ParseTime(row.OccurredAt),
				Note:       row.Note,
			},
			MedicineName: row.MedicineName,
		})
	}
	return views, nil
}

func (r *SQLiteStore) LedgerBalances(ctx context.Context) ([]LedgerBalance, error) {
	var rows []ledgerRow
	err := r.db.SelectContext(ctx, &rows, `SELECT m.id, m.name, m.quantity,
COALESCE(SUM(CASE WHEN t.transaction_type = 'add' THEN t.quantity ELSE -t.quantity END), 0) AS ledger_sum
FROM medicines m
LEFT JOIN transactions t ON t.medicine_id = m.id
GROUP BY m.id, m.name, m.quantity
ORDER BY m.id ASC`)
	if err != nil {
		return nil, err
	}
	balances := make([]LedgerBalance, 0, len(rows))
	for _, row := range rows {
		balances = append(balances, LedgerBalance(row))
	}
	return balances, nil
}

func (r *SQLiteStore) selectMedicines(ctx context.Context, query string, args ...any) ([]Medicine, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("inventory repository not initialised")
	}
	var rows []medicineRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	meds := make([]Medicine, 0, len(rows))
	for _, row := range rows {
		meds = append(meds, row.toDomain())
	}
	return meds, nil
}

func (r *sqliteTxStore) GetMedicineForUpdate(ctx context.Context, id int64) (Medicine, error) {
	return getMedicine(ctx, r.tx, id)
}

func (r *sqliteTxStore) InsertMedicine(ctx context.Context, m Medicine) (int64, error) {
	res, err := r.tx.ExecContext(ctx, `INSERT INTO medicines (name, description, category, quantity, unit, manufacturer, batch_number, purchase_date, expiry_date, price, created_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		m.Name, m.Description, m.Category, m.Quantity, m.Unit, m.Manufacturer, m.BatchNumber, m.PurchaseDate, m.ExpiryDate, nullPrice(m.Price), sqlite.FormatTime(m.CreatedAt))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *sqliteTxStore) UpdateMedicine(ctx context.Context, m Medicine) error {
	res, err := r.tx.ExecContext(ctx, `UPDATE medicines
SET name = ?, description = ?, category = ?, unit = ?, manufacturer = ?, batch_number = ?, purchase_date = ?, expiry_date = ?, price = ?
WHERE id = ?`,
		m.Name, m.Description, m.Category, m.Unit, m.Manufacturer, m.BatchNumber, m.PurchaseDate, m.ExpiryDate, nullPrice(m.Price), m.ID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *sqliteTxStore) ReconcileStock(ctx context.Context, medicineID, newQuantity int64, txn Transaction) (int64, error) {
	res, err := r.tx.ExecContext(ctx, `UPDATE medicines SET quantity = ? WHERE id = ?`, newQuantity, medicineID)
	if err != nil {
		return 0, err
	}
	if err := requireAffected(res); err != nil {
		return 0, err
	}
	res, err = r.tx.ExecContext(ctx, `INSERT INTO transactions (code, medicine_id, transaction_type, quantity, transaction_date, notes)
VALUES (?,?,?,?,?,?)`, txn.Code, medicineID, string(txn.Type), txn.Quantity, sqlite.FormatTime(txn.OccurredAt), txn.Note)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *sqliteTxStore) DeleteMedicine(ctx context.Context, id int64) error {
	if _, err := r.tx.ExecContext(ctx, `DELETE FROM transactions WHERE medicine_id = ?`, id); err != nil {
		return err
	}
	res, err := r.tx.ExecContext(ctx, `DELETE FROM medicines WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func getMedicine(ctx context.Context, q sqlx.QueryerContext, id int64) (Medicine, error) {
	var row medicineRow
	err := sqlx.GetContext(ctx, q, &row, `SELECT `+sqliteMedicineColumns+` FROM medicines WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Medicine{}, ErrNotFound
	}
	if err != nil {
		return Medicine{}, err
	}
	return row.toDomain(), nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
