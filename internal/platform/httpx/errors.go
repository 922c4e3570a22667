// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors for the transport layer.
var (
	ErrNotFound   = errors.New("resource not found")
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
)

// Rule maps a domain error to a problem status and title.
type Rule struct {
	Target error
	Status int
	Title  string
}

// FieldErrors is implemented by errors carrying per-field messages.
type FieldErrors interface {
	FieldErrors() map[string]string
}

var defaultRules = []Rule{
	{Target: ErrNotFound, Status: http.StatusNotFound, Title: "Not Found"},
	{Target: ErrValidation, Status: http.StatusBadRequest, Title: "Validation Failed"},
	{Target: ErrConflict, Status: http.StatusConflict, Title: "Conflict"},
}

// RespondError maps err to an RFC7807 response using rules first, then the
// package sentinels. Unmatched errors become a detail-less 500.
func RespondError(w http.ResponseWriter, err error, rules ...Rule) {
	for _, set := range [][]Rule{rules, defaultRules} {
		for _, rule := range set {
			if errors.Is(err, rule.Target) {
				problem := ProblemDetail{Title: rule.Title, Status: rule.Status, Detail: err.Error()}
				var fe FieldErrors
				if errors.As(err, &fe) {
					problem.Errors = fe.FieldErrors()
				}
				JSON(w, rule.Status, problem)
				return
			}
		}
	}
	Problem(w, http.StatusInternalServerError, "Internal Error", "")
}
