// Package sqlite opens the single-file SQLite backend.
package sqlite

import (
	"context"
	"database/sql/driver"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/text/cases"
	msqlite "modernc.org/sqlite"
)

// TimeLayout keeps timestamps lexically sortable in TEXT columns.
const TimeLayout = "2006-01-02 15:04:05.000000000"

var registerOnce sync.Once

// registerFunctions installs casefold(text), a Unicode-aware lower-casing
// used by case-insensitive searches.
func registerFunctions() error {
	var err error
	registerOnce.Do(func() {
		err = msqlite.RegisterDeterministicScalarFunction("casefold", 1, func(_ *msqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			switch v := args[0].(type) {
			case nil:
				return nil, nil
			case string:
				return cases.Fold().String(v), nil
			case []byte:
				return cases.Fold().String(string(v)), nil
			default:
				return v, nil
			}
		})
	})
	return err
}

// Connect opens a SQLite database using the provided DSN and applies the schema.
func Connect(ctx context.Context, dsn string) (*sqlx.DB, error) {
	if err := registerFunctions(); err != nil {
		return nil, fmt.Errorf("platform/sqlite: register functions: %w", err)
	}
	db, err := sqlx.ConnectContext(ctx, "sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("platform/sqlite: connect: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("platform/sqlite: enable foreign keys: %w", err)
	}
	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// FormatTime renders t in UTC using TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime reads a TimeLayout or RFC3339 timestamp; malformed values yield
// the zero time.
func ParseTime(value string) time.Time {
	for _, layout := range []string{TimeLayout, time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t
		}
	}
	return time.Time{}
}
