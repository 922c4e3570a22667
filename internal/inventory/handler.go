package inventory

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/medstock/medstock/internal/platform/httpx"
	"github.com/medstock/medstock/internal/shared"
)

// IdempotencyHeader carries the client key for stock changes.
const IdempotencyHeader = "Idempotency-Key"

var errorRules = []httpx.Rule{
	{Target: ErrValidation, Status: http.StatusBadRequest, Title: "Validation Failed"},
	{Target: ErrNotFound, Status: http.StatusNotFound, Title: "Medicine Not Found"},
	{Target: ErrInsufficientStock, Status: http.StatusUnprocessableEntity, Title: "Insufficient Stock"},
	{Target: shared.ErrIdempotencyConflict, Status: http.StatusConflict, Title: "Duplicate Request"},
}

// Handler wires HTTP endpoints for the inventory module.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs inventory handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/medicines", func(r chi.Router) {
		r.Get("/", h.listMedicines)
		r.Post("/", h.createMedicine)
		r.Get("/search", h.search)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getMedicine)
			r.Put("/", h.updateMedicine)
			r.Delete("/", h.deleteMedicine)
			r.Post("/stock", h.applyChange)
			r.Put("/quantity", h.setQuantity)
			r.Get("/transactions", h.medicineTransactions)
		})
	})
	r.Get("/expiring", h.expiring)
	r.Get("/low-stock", h.lowStock)
	r.Get("/discount-offers", h.discountOffers)
	r.Get("/transactions", h.transactions)
	r.Get("/dashboard", h.dashboard)
	r.Get("/ledger/verify", h.verifyLedger)
}

func (h *Handler) listMedicines(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.ListMedicines(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, views)
}

func (h *Handler) createMedicine(w http.ResponseWriter, r *http.Request) {
	var input MedicineInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		h.fail(w, r, err)
		return
	}
	med, err := h.service.CreateMedicine(r.Context(), input)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, Classify(med, h.service.clock.Today()))
}

func (h *Handler) getMedicine(w http.ResponseWriter, r *http.Request) {
	id, ok := h.medicineID(w, r)
	if !ok {
		return
	}
	view, err := h.service.GetMedicine(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) updateMedicine(w http.ResponseWriter, r *http.Request) {
	id, ok := h.medicineID(w, r)
	if !ok {
		return
	}
	var input MedicineInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		h.fail(w, r, err)
		return
	}
	med, err := h.service.UpdateMedicine(r.Context(), id, input)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, Classify(med, h.service.clock.Today()))
}

func (h *Handler) deleteMedicine(w http.ResponseWriter, r *http.Request) {
	id, ok := h.medicineID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteMedicine(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) applyChange(w http.ResponseWriter, r *http.Request) {
	id, ok := h.medicineID(w, r)
	if !ok {
		return
	}
	var input StockChangeInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		h.fail(w, r, err)
		return
	}
	txType, err := ParseTransactionType(input.Type)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	med, err := h.service.ApplyChangeOnce(r.Context(), r.Header.Get(IdempotencyHeader), id, txType, input.Quantity, input.Note)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, Classify(med, h.service.clock.Today()))
}

type setQuantityRequest struct {
	Quantity *int64 `json:"quantity"`
	Note     string `json:"notes"`
}

func (h *Handler) setQuantity(w http.ResponseWriter, r *http.Request) {
	id, ok := h.medicineID(w, r)
	if !ok {
		return
	}
	var req setQuantityRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.Quantity == nil {
		h.fail(w, r, NewValidationError("quantity", "is required"))
		return
	}
	med, err := h.service.SetQuantity(r.Context(), id, *req.Quantity, req.Note)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, Classify(med, h.service.clock.Today()))
}

func (h *Handler) medicineTransactions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.medicineID(w, r)
	if !ok {
		return
	}
	limit, err := httpx.IntParam(r, "limit", 0)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	txns, err := h.service.ListTransactions(r.Context(), TransactionFilter{MedicineID: id, Limit: limit})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, txns)
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.Search(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, views)
}

func (h *Handler) expiring(w http.ResponseWriter, r *http.Request) {
	days, err := httpx.IntParam(r, "days", h.service.cfg.ExpiryAlertDays)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	views, err := h.service.ListExpiringWithin(r.Context(), days)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, views)
}

func (h *Handler) lowStock(w http.ResponseWriter, r *http.Request) {
	threshold, err := httpx.IntParam(r, "threshold", int(h.service.cfg.LowStockThreshold))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	views, err := h.service.ListLowStock(r.Context(), int64(threshold))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, views)
}

func (h *Handler) discountOffers(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.DiscountOffers(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, views)
}

func (h *Handler) transactions(w http.ResponseWriter, r *http.Request) {
	limit, err := httpx.IntParam(r, "limit", 0)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	medicineID, err := httpx.IntParam(r, "medicine_id", 0)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	txns, err := h.service.ListTransactions(r.Context(), TransactionFilter{MedicineID: int64(medicineID), Limit: limit})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, txns)
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.DashboardSummary(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) verifyLedger(w http.ResponseWriter, r *http.Request) {
	drift, err := h.service.VerifyLedger(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"consistent": len(drift) == 0, "drift": drift})
}

func (h *Handler) medicineID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.RespondError(w, NewValidationError("id", "must be a positive integer"), errorRules...)
		return 0, false
	}
	return id, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if h.logger != nil {
		h.logger.ErrorContext(r.Context(), "inventory request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	httpx.RespondError(w, err, errorRules...)
}
