package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// TxStore exposes the writes that must happen inside one store transaction.
type TxStore interface {
	GetMedicineForUpdate(ctx context.Context, id int64) (Medicine, error)
	InsertMedicine(ctx context.Context, m Medicine) (int64, error)
	UpdateMedicine(ctx context.Context, m Medicine) error
	// ReconcileStock sets the medicine quantity and appends the ledger entry
	// as a single unit. It returns the new transaction id.
	ReconcileStock(ctx context.Context, medicineID, newQuantity int64, txn Transaction) (int64, error)
	DeleteMedicine(ctx context.Context, id int64) error
}

// PostgresStore persists the ledger in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

type pgTxStore struct {
	tx pgx.Tx
}

const medicineColumns = `id, name, description, category, quantity, unit, manufacturer, batch_number, purchase_date, expiry_date, price::text, created_at`

// WithTx executes the callback inside repeatable-read transaction.
func (r *PostgresStore) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	if r == nil || r.pool == nil {
		return errors.New("inventory repository not initialised")
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("inventory: begin tx: %w", err)
	}
	if err := fn(ctx, &pgTxStore{tx: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("inventory: commit tx: %w", err)
	}
	return nil
}

func (r *PostgresStore) GetMedicine(ctx context.Context, id int64) (Medicine, error) {
	m, err := scanMedicine(r.pool.QueryRow(ctx, `SELECT `+medicineColumns+` FROM medicines WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Medicine{}, ErrNotFound
	}
	return m, err
}

func (r *PostgresStore) ListMedicines(ctx context.Context) ([]Medicine, error) {
	return r.queryMedicines(ctx, `SELECT `+medicineColumns+` FROM medicines ORDER BY name ASC, id ASC`)
}

func (r *PostgresStore) ListInStock(ctx context.Context) ([]Medicine, error) {
	return r.queryMedicines(ctx, `SELECT `+medicineColumns+` FROM medicines WHERE quantity > 0 ORDER BY id ASC`)
}

func (r *PostgresStore) ListLowStock(ctx context.Context, threshold int64) ([]Medicine, error) {
	return r.queryMedicines(ctx, `SELECT `+medicineColumns+` FROM medicines WHERE quantity <= $1 ORDER BY quantity ASC, id ASC`, threshold)
}

func (r *PostgresStore) SearchMedicines(ctx context.Context, query string) ([]Medicine, error) {
	pattern := likePattern(query)
	return r.queryMedicines(ctx, `SELECT `+medicineColumns+` FROM medicines
WHERE name ILIKE $1 ESCAPE '\' OR description ILIKE $1 ESCAPE '\' OR category ILIKE $1 ESCAPE '\' OR manufacturer ILIKE $1 ESCAPE '\'
ORDER BY name ASC, id ASC`, pattern)
}

func (r *PostgresStore) CountMedicines(ctx context.Context) (int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM medicines`).Scan(&total)
	return total, err
}

func (r *PostgresStore) ListTransactions(ctx context.Context, filter TransactionFilter) ([]TransactionView, error) {
	query := `SELECT t.id, t.code, t.medicine_id, t.transaction_type, t.quantity, t.transaction_date, t.notes, m.name
FROM transactions t
JOIN medicines m ON m.id = t.medicine_id
WHERE ($1::bigint = 0 OR t.medicine_id = $1)
ORDER BY t.transaction_date DESC, t.id DESC`
	args := []any{filter.MedicineID}
	if filter.Limit > 0 {
		query += ` LIMIT $2`
		args = append(args, filter.Limit)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	views := []TransactionView{}
	for rows.Next() {
		var v TransactionView
		if err := rows.Scan(&v.ID, &v.Code, &v.MedicineID, &v.Type, &v.Quantity, &v.OccurredAt, &v.Note, &v.MedicineName); err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

func (r *PostgresStore) LedgerBalances(ctx context.Context) ([]LedgerBalance, error) {
	rows, err := r.pool.Query(ctx, `SELECT m.id, m.name, m.quantity,
COALESCE(SUM(CASE WHEN t.transaction_type = 'add' THEN t.quantity ELSE -t.quantity END), 0)::bigint
FROM medicines m
LEFT JOIN transactions t ON t.medicine_id = m.id
GROUP BY m.id, m.name, m.quantity
ORDER BY m.id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	balances := []LedgerBalance{}
	for rows.Next() {
		var b LedgerBalance
		if err := rows.Scan(&b.MedicineID, &b.Name, &b.Quantity, &b.LedgerSum); err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

func (r *PostgresStore) queryMedicines(ctx context.Context, query string, args ...any) ([]Medicine, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("inventory repository not initialised")
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	meds := []Medicine{}
	for rows.Next() {
		m, err := scanMedicine(rows)
		if err != nil {
			return nil, err
		}
		meds = append(meds, m)
	}
	return meds, rows.Err()
}

func (r *pgTxStore) GetMedicineForUpdate(ctx context.Context, id int64) (Medicine, error) {
	m, err := scanMedicine(r.tx.QueryRow(ctx, `SELECT `+medicineColumns+` FROM medicines WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Medicine{}, ErrNotFound
	}
	return m, err
}

func (r *pgTxStore) InsertMedicine(ctx context.Context, m Medicine) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO medicines (name, description, category, quantity, unit, manufacturer, batch_number, purchase_date, expiry_date, price, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10::numeric,$11) RETURNING id`,
		m.Name, m.Description, m.Category, m.Quantity, m.Unit, m.Manufacturer, m.BatchNumber, m.PurchaseDate, m.ExpiryDate, nullPrice(m.Price), m.CreatedAt).Scan(&id)
	return id, err
}

func (r *pgTxStore) UpdateMedicine(ctx context.Context, m Medicine) error {
	tag, err := r.tx.Exec(ctx, `UPDATE medicines
SET name = $1, description = $2, category = $3, unit = $4, manufacturer = $5, batch_number = $6, purchase_date = $7, expiry_date = $8, price = $9::numeric
WHERE id = $10`,
		m.Name, m.Description, m.Category, m.Unit, m.Manufacturer, m.BatchNumber, m.PurchaseDate, m.ExpiryDate, nullPrice(m.Price), m.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgTxStore) ReconcileStock(ctx context.Context, medicineID, newQuantity int64, txn Transaction) (int64, error) {
	tag, err := r.tx.Exec(ctx, `UPDATE medicines SET quantity = $1 WHERE id = $2`, newQuantity, medicineID)
	if err != nil {
		return 0, err
	}
	if tag.RowsAffected() == 0 {
		return 0, ErrNotFound
	}
	var id int64
	err = r.tx.QueryRow(ctx, `INSERT INTO transactions (code, medicine_id, transaction_type, quantity, transaction_date, notes)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`, txn.Code, medicineID, string(txn.Type), txn.Quantity, txn.OccurredAt, txn.Note).Scan(&id)
	return id, err
}

func (r *pgTxStore) DeleteMedicine(ctx context.Context, id int64) error {
	if _, err := r.tx.Exec(ctx, `DELETE FROM transactions WHERE medicine_id = $1`, id); err != nil {
		return err
	}
	tag, err := r.tx.Exec(ctx, `DELETE FROM medicines WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanMedicine(row pgx.Row) (Medicine, error) {
	var m Medicine
	var price *string
	if err := row.Scan(&m.ID, &m.Name, &m.Description, &m.Category, &m.Quantity, &m.Unit, &m.Manufacturer, &m.BatchNumber, &m.PurchaseDate, &m.ExpiryDate, &price, &m.CreatedAt); err != nil {
		return Medicine{}, err
	}
	if price != nil {
		if d, err := decimal.NewFromString(*price); err == nil {
			m.Price = decimal.NewNullDecimal(d)
		}
	}
	return m, nil
}

func nullPrice(price decimal.NullDecimal) any {
	if !price.Valid {
		return nil
	}
	return price.Decimal.StringFixed(2)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(query string) string {
	return "%" + likeEscaper.Replace(query) + "%"
}
