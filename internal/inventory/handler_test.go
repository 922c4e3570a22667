package inventory

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/medstock/medstock/internal/platform/httpx"
	"github.com/medstock/medstock/internal/shared"
)

func newTestRouter(t *testing.T) (http.Handler, *memoryRepo) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := newMemoryRepo()
	svc := NewService(repo, testClock(), nil, nil, ServiceConfig{Idempotency: shared.NewIdempotencyStore(client, time.Hour)})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	NewHandler(logger, svc).MountRoutes(r)
	return r, repo
}

func doJSON(t *testing.T, h http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerMedicineLifecycle(t *testing.T) {
	h, repo := newTestRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/medicines", `{"name":"Paracetamol 500mg","quantity":150,"unit":"Tablets","expiry_date":"2025-03-01","price":"5.99"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.EqualValues(t, 1, created["id"])
	require.EqualValues(t, 365, created["days_left"])
	require.Contains(t, created, "discount_percent")
	require.Nil(t, created["discount_percent"])

	rec = doJSON(t, h, http.MethodPost, "/medicines/1/stock", `{"transaction_type":"remove","quantity":50,"notes":"Dispensed"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.EqualValues(t, 100, repo.medicines[1].Quantity)

	rec = doJSON(t, h, http.MethodPost, "/medicines/1/stock", `{"transaction_type":"remove","quantity":200}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	require.Equal(t, "Insufficient Stock", problem.Title)

	rec = doJSON(t, h, http.MethodPut, "/medicines/1/quantity", `{"quantity":90}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/medicines/1/transactions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var txns []TransactionView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &txns))
	require.Len(t, txns, 3)

	rec = doJSON(t, h, http.MethodDelete, "/medicines/1", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = doJSON(t, h, http.MethodGet, "/medicines/1", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerValidationProblem(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/medicines", `{"quantity":5,"expiry_date":"soon"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	require.Contains(t, problem.Errors, "name")
	require.Contains(t, problem.Errors, "expiry_date")

	rec = doJSON(t, h, http.MethodPost, "/medicines", `{"name":"x","bogus":true}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/medicines/abc", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/expiring?days=soon", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerIdempotentStockChange(t *testing.T) {
	h, repo := newTestRouter(t)
	rec := doJSON(t, h, http.MethodPost, "/medicines", `{"name":"Vitamin C","quantity":10,"expiry_date":"2024-06-01"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	body := `{"transaction_type":"add","quantity":5}`
	rec = doJSON(t, h, http.MethodPost, "/medicines/1/stock", body, IdempotencyHeader, "abc")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, h, http.MethodPost, "/medicines/1/stock", body, IdempotencyHeader, "abc")
	require.Equal(t, http.StatusConflict, rec.Code)
	require.EqualValues(t, 15, repo.medicines[1].Quantity)
}

func TestHandlerReadViews(t *testing.T) {
	h, _ := newTestRouter(t)
	for _, body := range []string{
		`{"name":"Soon","quantity":3,"expiry_date":"2024-03-05","price":20}`,
		`{"name":"Later","quantity":40,"expiry_date":"2024-05-20"}`,
	} {
		rec := doJSON(t, h, http.MethodPost, "/medicines", body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := doJSON(t, h, http.MethodGet, "/discount-offers", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var offers []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &offers))
	require.Len(t, offers, 1)
	require.EqualValues(t, 50, offers[0]["discount_percent"])
	require.Equal(t, "10", offers[0]["discounted_price"])

	rec = doJSON(t, h, http.MethodGet, "/expiring?days=90", "")
	var expiring []MedicineView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &expiring))
	require.Len(t, expiring, 2)

	rec = doJSON(t, h, http.MethodGet, "/low-stock", "")
	var low []MedicineView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &low))
	require.Len(t, low, 1)

	rec = doJSON(t, h, http.MethodGet, "/medicines/search?query=LATER", "")
	var hits []MedicineView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hits))
	require.Len(t, hits, 1)

	rec = doJSON(t, h, http.MethodGet, "/dashboard", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var summary DashboardSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	require.EqualValues(t, 2, summary.TotalMedicines)
	require.Len(t, summary.RecentTransactions, 2)

	rec = doJSON(t, h, http.MethodGet, "/ledger/verify", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"consistent":true`)

	rec = doJSON(t, h, http.MethodGet, "/transactions?limit=1", "")
	var txns []TransactionView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &txns))
	require.Len(t, txns, 1)
}

func TestHandlerExpiringDefaultsToAlertWindow(t *testing.T) {
	h, _ := newTestRouter(t)
	for _, body := range []string{
		`{"name":"Within alert window","quantity":12,"expiry_date":"` + expiryIn(60) + `"}`,
		`{"name":"Beyond alert window","quantity":12,"expiry_date":"` + expiryIn(120) + `"}`,
	} {
		rec := doJSON(t, h, http.MethodPost, "/medicines", body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := doJSON(t, h, http.MethodGet, "/expiring", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var expiring []MedicineView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &expiring))
	require.Len(t, expiring, 1)
	require.Equal(t, "Within alert window", expiring[0].Name)
	require.Equal(t, 60, *expiring[0].DaysLeft)
}
