package shared

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestIdempotencyStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := NewIdempotencyStore(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.CheckAndInsert(ctx, "abc", "stock"))
	require.ErrorIs(t, store.CheckAndInsert(ctx, "abc", "stock"), ErrIdempotencyConflict)
	require.NoError(t, store.CheckAndInsert(ctx, "abc", "quantity"))
	require.True(t, mr.Exists("idempotency:stock:abc"))

	require.NoError(t, store.Delete(ctx, "abc", "stock"))
	require.NoError(t, store.CheckAndInsert(ctx, "abc", "stock"))

	mr.FastForward(2 * time.Minute)
	require.False(t, mr.Exists("idempotency:stock:abc"))

	require.Error(t, store.CheckAndInsert(ctx, "", "stock"))
	require.Error(t, store.CheckAndInsert(ctx, "abc", ""))

	var nilStore *IdempotencyStore
	require.Error(t, nilStore.CheckAndInsert(ctx, "abc", "stock"))
	require.NoError(t, nilStore.Delete(ctx, "abc", "stock"))
}

func TestClocks(t *testing.T) {
	at := time.Date(2024, 2, 29, 23, 30, 0, 0, time.FixedZone("UTC+2", 2*60*60))
	clock := FixedClock{At: at}
	require.Equal(t, time.Date(2024, 2, 29, 21, 30, 0, 0, time.UTC), clock.Now())
	require.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), clock.Today())

	late := FixedClock{At: time.Date(2024, 3, 1, 1, 0, 0, 0, time.FixedZone("UTC+7", 7*60*60))}
	require.Equal(t, time.Date(2024, 2, 29, 18, 0, 0, 0, time.UTC), late.Now())
	require.Equal(t, DateOf(late.Now()), late.Today())
	require.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), late.Today())

	today := SystemClock{}.Today()
	require.Zero(t, today.Hour())
	require.Equal(t, time.UTC, today.Location())
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-12-31")
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("31/12/2024")
	require.Error(t, err)
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(0, 0, 41)
	require.Equal(t, Pagination{Page: 1, PerPage: 20, Total: 41, TotalPages: 3}, p)
	require.Zero(t, p.Offset())
	require.Equal(t, 40, NewPagination(3, 20, 41).Offset())
}

func TestSlogAuditor(t *testing.T) {
	var buf bytes.Buffer
	auditor := SlogAuditor{Logger: slog.New(slog.NewTextHandler(&buf, nil))}
	ctx := context.Background()

	require.Error(t, auditor.Record(ctx, AuditLog{Action: "stock.add"}))
	require.NoError(t, auditor.Record(ctx, AuditLog{Action: "stock.add", Entity: "medicine", EntityID: "7"}))
	require.Contains(t, buf.String(), "entity_id=7")

	require.NoError(t, SlogAuditor{}.Record(ctx, AuditLog{Action: "a", Entity: "b", EntityID: "c"}))
}

func TestAuditLoggerRequiresPool(t *testing.T) {
	require.Error(t, NewAuditLogger(nil).Record(context.Background(), AuditLog{Action: "a", Entity: "b", EntityID: "c"}))
}
