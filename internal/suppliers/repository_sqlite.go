package suppliers

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/medstock/medstock/internal/platform/sqlite"
	"github.com/medstock/medstock/internal/shared"
)

type sqliteRepository struct {
	db *sqlx.DB
}

// NewSQLiteRepository returns the SQLite supplier repository.
func NewSQLiteRepository(db *sqlx.DB) Repository {
	return &sqliteRepository{db: db}
}

type supplierRow struct {
	ID            int64  `db:"id"`
	Name          string `db:"name"`
	ContactPerson string `db:"contact_person"`
	Phone         string `db:"phone"`
	Email         string `db:"email"`
	Address       string `db:"address"`
	CreatedAt     string `db:"created_at"`
}

func (r supplierRow) toDomain() Supplier {
	return Supplier{
		ID:            r.ID,
		Name:          r.Name,
		ContactPerson: r.ContactPerson,
		Phone:         r.Phone,
		Email:         r.Email,
		Address:       r.Address,
		CreatedAt:     sqlite.ParseTime(r.CreatedAt),
	}
}

func (r *sqliteRepository) List(ctx context.Context, filters ListFilters) ([]Supplier, int, error) {
	where := ``
	args := []any{}
	if filters.Search != "" {
		args = append(args, "%"+likeEscaper.Replace(filters.Search)+"%")
		where = ` WHERE casefold(name) LIKE casefold(?1) ESCAPE '\' OR casefold(contact_person) LIKE casefold(?1) ESCAPE '\' OR casefold(email) LIKE casefold(?1) ESCAPE '\'`
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM suppliers`+where, args...); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + supplierColumns + ` FROM suppliers` + where + ` ORDER BY ` + sortOrder(filters.SortBy, filters.SortDir)
	if filters.Limit > 0 {
		offset := shared.NewPagination(filters.Page, filters.Limit, 0).Offset()
		if len(args) > 0 {
			query += ` LIMIT ?2 OFFSET ?3`
		} else {
			query += ` LIMIT ?1 OFFSET ?2`
		}
		args = append(args, filters.Limit, offset)
	}

	var rows []supplierRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, err
	}
	suppliers := make([]Supplier, 0, len(rows))
	for _, row := range rows {
		suppliers = append(suppliers, row.toDomain())
	}
	return suppliers, total, nil
}

func (r *sqliteRepository) Get(ctx context.Context, id int64) (Supplier, error) {
	var row supplierRow
	err := r.db.GetContext(ctx, &row, `SELECT `+supplierColumns+` FROM suppliers WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Supplier{}, ErrNotFound
	}
	if err != nil {
		return Supplier{}, err
	}
	return row.toDomain(), nil
}

func (r *sqliteRepository) Create(ctx context.Context, supplier Supplier) (Supplier, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO suppliers (name, contact_person, phone, email, address, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		supplier.Name, supplier.ContactPerson, supplier.Phone, supplier.Email, supplier.Address, sqlite.FormatTime(supplier.CreatedAt))
	if err != nil {
		return Supplier{}, err
	}
	supplier.ID, err = res.LastInsertId()
	if err != nil {
		return Supplier{}, err
	}
	return supplier, nil
}

func (r *sqliteRepository) Update(ctx context.Context, id int64, supplier Supplier) error {
	res, err := r.db.ExecContext(ctx, `UPDATE suppliers SET name = ?, contact_person = ?, phone = ?, email = ?, address = ? WHERE id = ?`,
		supplier.Name, supplier.ContactPerson, supplier.Phone, supplier.Email, supplier.Address, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *sqliteRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM suppliers WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
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
