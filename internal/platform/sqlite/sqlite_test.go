package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConnectAppliesSchema(t *testing.T) {
	ctx := context.Background()
	db, err := Connect(ctx, ":memory:")
	require.NoError(t, err)
	defer db.Close()

	var tables []string
	require.NoError(t, db.SelectContext(ctx, &tables, `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`))
	require.Equal(t, []string{"medicines", "suppliers", "transactions"}, tables)

	require.NoError(t, Migrate(ctx, db))
}

func TestSchemaConstraints(t *testing.T) {
	ctx := context.Background()
	db, err := Connect(ctx, ":memory:")
	require.NoError(t, err)
	defer db.Close()

	now := FormatTime(time.Now())
	_, err = db.ExecContext(ctx, `INSERT INTO medicines (name, quantity, expiry_date, created_at) VALUES ('Aspirin', -1, '2025-01-01', ?)`, now)
	require.Error(t, err)

	_, err = db.ExecContext(ctx, `INSERT INTO transactions (code, medicine_id, transaction_type, quantity, transaction_date) VALUES ('TX-1', 999, 'add', 5, ?)`, now)
	require.Error(t, err, "foreign keys must be enforced")
}

func TestCasefold(t *testing.T) {
	ctx := context.Background()
	db, err := Connect(ctx, ":memory:")
	require.NoError(t, err)
	defer db.Close()

	var folded string
	require.NoError(t, db.GetContext(ctx, &folded, `SELECT casefold('Ibuprofen STRASSE')`))
	require.Equal(t, "ibuprofen strasse", folded)
}

func TestTimeRoundTrip(t *testing.T) {
	at := time.Date(2024, 3, 1, 14, 5, 9, 123, time.FixedZone("WIB", 7*60*60))
	formatted := FormatTime(at)
	require.Equal(t, "2024-03-01 07:05:09.000000123", formatted)
	require.True(t, at.Equal(ParseTime(formatted)))

	require.Equal(t, time.Date(2024, 3, 1, 7, 5, 9, 0, time.UTC), ParseTime("2024-03-01T07:05:09Z"))
	require.True(t, ParseTime("yesterday").IsZero())
}
