package suppliers

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/medstock/medstock/internal/shared"
)

// Service manages supplier records.
type Service struct {
	repo      Repository
	clock     shared.Clock
	validator *validator.Validate
}

// NewService builds Service.
func NewService(repo Repository, clock shared.Clock) *Service {
	if clock == nil {
		clock = shared.SystemClock{}
	}
	return &Service{repo: repo, clock: clock, validator: newValidator()}
}

// List returns one page of suppliers.
func (s *Service) List(ctx context.Context, filters ListFilters) (Page, error) {
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.Limit < 1 {
		filters.Limit = 20
	}
	filters.Search = strings.TrimSpace(filters.Search)
	items, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return Page{}, err
	}
	return Page{Suppliers: items, Pagination: shared.NewPagination(filters.Page, filters.Limit, total)}, nil
}

// Get loads one supplier.
func (s *Service) Get(ctx context.Context, id int64) (Supplier, error) {
	if id <= 0 {
		return Supplier{}, ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

// Create validates and stores a new supplier.
func (s *Service) Create(ctx context.Context, sup Supplier) (Supplier, error) {
	sup = normalise(sup)
	if err := s.validate(sup); err != nil {
		return Supplier{}, err
	}
	sup.CreatedAt = s.clock.Now()
	return s.repo.Create(ctx, sup)
}

// Update rewrites the supplier's contact fields.
func (s *Service) Update(ctx context.Context, id int64, sup Supplier) (Supplier, error) {
	if id <= 0 {
		return Supplier{}, ErrNotFound
	}
	sup = normalise(sup)
	if err := s.validate(sup); err != nil {
		return Supplier{}, err
	}
	sup.ID = id
	if err := s.repo.Update(ctx, id, sup); err != nil {
		return Supplier{}, err
	}
	return s.repo.Get(ctx, id)
}

// Delete removes the supplier.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrNotFound
	}
	return s.repo.Delete(ctx, id)
}

func normalise(sup Supplier) Supplier {
	sup.Name = strings.TrimSpace(sup.Name)
	sup.ContactPerson = strings.TrimSpace(sup.ContactPerson)
	sup.Phone = strings.TrimSpace(sup.Phone)
	sup.Email = strings.TrimSpace(sup.Email)
	sup.Address = strings.TrimSpace(sup.Address)
	return sup
}
