package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/medstock/medstock/internal/inventory"
	"github.com/medstock/medstock/internal/observability"
	"github.com/medstock/medstock/internal/platform/httpx"
	"github.com/medstock/medstock/internal/platform/sqlite"
	"github.com/medstock/medstock/internal/shared"
	"github.com/medstock/medstock/internal/suppliers"
	"github.com/medstock/medstock/jobs"
)

func newTestApp(t *testing.T, ready Pinger) http.Handler {
	t.Helper()
	db, err := sqlite.Connect(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &Config{AppEnv: "development", StoreDriver: DriverSQLite, RateLimitPerMinute: 1000}
	metrics := observability.NewMetrics()
	invCfg := cfg.InventoryConfig()
	invCfg.Metrics = metrics
	invCfg.Logger = logger

	clock := shared.SystemClock{}
	inv := inventory.NewService(inventory.NewSQLiteStore(db), clock, shared.SlogAuditor{Logger: logger}, nil, invCfg)
	sup := suppliers.NewService(suppliers.NewSQLiteRepository(db), clock)

	return NewRouter(RouterParams{
		Logger:           logger,
		Config:           cfg,
		InventoryHandler: inventory.NewHandler(logger, inv),
		SupplierHandler:  suppliers.NewHandler(logger, sup),
		JobHandler:       jobs.NewHandler(nil, logger),
		Metrics:          metrics,
		Readiness:        ready,
	})
}

func call(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouterHealth(t *testing.T) {
	h := newTestApp(t, nil)

	rec := call(t, h, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	require.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = call(t, h, http.MethodGet, "/readyz", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = call(t, h, http.MethodGet, "/jobs/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRouterReadinessFailure(t *testing.T) {
	h := newTestApp(t, PingFunc(func(context.Context) error { return errors.New("connection refused") }))
	rec := call(t, h, http.MethodGet, "/readyz", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRouterMountsAPI(t *testing.T) {
	h := newTestApp(t, nil)
	expiry := time.Now().UTC().AddDate(1, 0, 0).Format(shared.DateLayout)

	rec := call(t, h, http.MethodPost, "/api/v1/medicines", `{"name":"Ibuprofen 400mg","quantity":100,"unit":"Tablets","expiry_date":"`+expiry+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = call(t, h, http.MethodGet, "/api/v1/dashboard", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var summary inventory.DashboardSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	require.EqualValues(t, 1, summary.TotalMedicines)
	require.Len(t, summary.RecentTransactions, 1)

	rec = call(t, h, http.MethodPost, "/api/v1/suppliers", `{"name":"MediSupply Co.","email":"orders@medisupply.example"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = call(t, h, http.MethodGet, "/api/v1/ledger/verify", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"consistent":true,"drift":[]}`, rec.Body.String())

	rec = call(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `medstock_stock_changes_total{type="add"} 1`)
	require.Contains(t, rec.Body.String(), "medstock_http_requests_total")
}

func TestRouterUnknownRoute(t *testing.T) {
	h := newTestApp(t, nil)
	rec := call(t, h, http.MethodGet, "/api/v2/medicines", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	require.Equal(t, "Not Found", problem.Title)
}
