package suppliers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/medstock/medstock/internal/platform/httpx"
	"github.com/medstock/medstock/internal/shared"
)

var errorRules = []httpx.Rule{
	{Target: ErrValidation, Status: http.StatusBadRequest, Title: "Validation Failed"},
	{Target: shared.ErrNotFound, Status: http.StatusNotFound, Title: "Supplier Not Found"},
}

// Handler exposes supplier CRUD as JSON.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the supplier handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	result, err := h.service.List(r.Context(), ListFilters{
		Page:    page,
		Limit:   limit,
		Search:  q.Get("search"),
		SortBy:  q.Get("sort"),
		SortDir: q.Get("dir"),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := supplierID(w, r)
	if !ok {
		return
	}
	sup, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sup)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var sup Supplier
	if err := httpx.DecodeJSON(r, &sup); err != nil {
		h.fail(w, r, err)
		return
	}
	created, err := h.service.Create(r.Context(), sup)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := supplierID(w, r)
	if !ok {
		return
	}
	var sup Supplier
	if err := httpx.DecodeJSON(r, &sup); err != nil {
		h.fail(w, r, err)
		return
	}
	updated, err := h.service.Update(r.Context(), id, sup)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := supplierID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func supplierID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.RespondError(w, &ValidationError{Fields: map[string]string{"id": "must be a positive integer"}}, errorRules...)
		return 0, false
	}
	return id, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if h.logger != nil {
		h.logger.WarnContext(r.Context(), "supplier request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	httpx.RespondError(w, err, errorRules...)
}
