package perf

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/medstock/medstock/internal/inventory"
	"github.com/medstock/medstock/internal/platform/cache"
	"github.com/medstock/medstock/internal/platform/sqlite"
	"github.com/medstock/medstock/internal/shared"
)

var refDate = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func newService(tb testing.TB, cached bool, medicines int) (*inventory.Service, []int64) {
	tb.Helper()
	ctx := context.Background()
	db, err := sqlite.Connect(ctx, ":memory:")
	require.NoError(tb, err)
	tb.Cleanup(func() { _ = db.Close() })

	cfg := inventory.DefaultServiceConfig()
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	if cached {
		mr := miniredis.RunT(tb)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		tb.Cleanup(func() { _ = client.Close() })
		cfg.Cache = cache.NewVersioned(client, "bench:dashboard", time.Minute)
	}
	svc := inventory.NewService(inventory.NewSQLiteStore(db), shared.FixedClock{At: refDate}, nil, nil, cfg)

	ids := make([]int64, 0, medicines)
	for i := 0; i < medicines; i++ {
		qty := int64(5 + i%50)
		med, err := svc.CreateMedicine(ctx, inventory.MedicineInput{
			Name:       fmt.Sprintf("Medicine %03d", i),
			Quantity:   &qty,
			ExpiryDate: refDate.AddDate(0, 0, i%120-10).Format(shared.DateLayout),
		})
		require.NoError(tb, err)
		ids = append(ids, med.ID)
	}
	return svc, ids
}

func TestDashboardLatencyTargets(t *testing.T) {
	if testing.Short() {
		t.Skip("latency sampling skipped in short mode")
	}
	scenarios := []struct {
		name      string
		cached    bool
		threshold time.Duration
	}{
		{name: "cached", cached: true, threshold: 250 * time.Millisecond},
		{name: "cold", cached: false, threshold: time.Second},
	}

	ctx := context.Background()
	for _, scenario := range scenarios {
		t.Run(scenario.name, func(t *testing.T) {
			svc, _ := newService(t, scenario.cached, 200)
			samples := make([]time.Duration, 0, 20)
			for i := 0; i < 20; i++ {
				start := time.Now()
				_, err := svc.DashboardSummary(ctx)
				require.NoError(t, err)
				samples = append(samples, time.Since(start))
			}
			p95 := percentile95(samples)
			if p95 > scenario.threshold {
				t.Fatalf("%s dashboard latency regression: p95=%s threshold=%s", scenario.name, p95, scenario.threshold)
			}
		})
	}
}

func TestPercentile95(t *testing.T) {
	require.Zero(t, percentile95(nil))
	samples := make([]time.Duration, 0, 20)
	for i := 20; i >= 1; i-- {
		samples = append(samples, time.Duration(i)*time.Millisecond)
	}
	require.Equal(t, 19*time.Millisecond, percentile95(samples))
}

func BenchmarkApplyChange(b *testing.B) {
	svc, ids := newService(b, false, 20)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := svc.ApplyChange(ctx, ids[i%len(ids)], inventory.TransactionTypeAdd, 1, ""); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDashboardSummary(b *testing.B) {
	for _, cached := range []bool{false, true} {
		b.Run(fmt.Sprintf("cached=%t", cached), func(b *testing.B) {
			svc, _ := newService(b, cached, 200)
			ctx := context.Background()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := svc.DashboardSummary(ctx); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkRecommend(b *testing.B) {
	price := decimal.NewNullDecimal(decimal.RequireFromString("18.75"))
	for i := 0; i < b.N; i++ {
		_ = inventory.Recommend(i%20-3, price)
	}
}

func percentile95(samples []time.Duration) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	index := int(float64(len(sorted)-1) * 0.95)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}
