package suppliers

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/medstock/medstock/internal/shared"
)

// Supplier is a contact-only record with no link to stock.
type Supplier struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name" validate:"required,max=200"`
	ContactPerson string    `json:"contact_person" validate:"omitempty,max=200"`
	Phone         string    `json:"phone" validate:"omitempty,max=40"`
	Email         string    `json:"email" validate:"omitempty,email"`
	Address       string    `json:"address" validate:"omitempty,max=500"`
	CreatedAt     time.Time `json:"created_at"`
}

// ListFilters narrows and pages supplier listings.
type ListFilters struct {
	Page    int
	Limit   int
	Search  string
	SortBy  string
	SortDir string
}

// Page is one page of suppliers.
type Page struct {
	Suppliers  []Supplier        `json:"suppliers"`
	Pagination shared.Pagination `json:"pagination"`
}

var (
	// ErrNotFound marks an absent supplier. It matches shared.ErrNotFound.
	ErrNotFound = fmt.Errorf("supplier %w", shared.ErrNotFound)
	// ErrValidation marks rejected supplier input.
	ErrValidation = errors.New("supplier: validation failed")
)

// ValidationError lists offending fields.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Fields[k])
	}
	return "supplier: validation failed: " + strings.Join(parts, "; ")
}

// Is matches ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// FieldErrors exposes the per-field messages to the HTTP layer.
func (e *ValidationError) FieldErrors() map[string]string {
	return e.Fields
}

func sortOrder(sortBy, sortDir string) string {
	dir := "ASC"
	if strings.EqualFold(sortDir, "desc") {
		dir = "DESC"
	}
	switch sortBy {
	case "created_at":
		return "created_at " + dir + ", id " + dir
	case "contact_person":
		return "contact_person " + dir + ", id " + dir
	default:
		return "name " + dir + ", id " + dir
	}
}
