package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var errShortage = errors.New("shortage")

type fieldErr struct{}

func (fieldErr) Error() string { return "name is required" }

func (fieldErr) Is(target error) bool { return target == ErrValidation }

func (fieldErr) FieldErrors() map[string]string { return map[string]string{"name": "is required"} }

func TestRespondError(t *testing.T) {
	rules := []Rule{{Target: errShortage, Status: http.StatusUnprocessableEntity, Title: "Insufficient Stock"}}
	tests := []struct {
		name   string
		err    error
		status int
		title  string
		fields map[string]string
	}{
		{name: "custom rule", err: fmt.Errorf("remove: %w", errShortage), status: http.StatusUnprocessableEntity, title: "Insufficient Stock"},
		{name: "not found", err: ErrNotFound, status: http.StatusNotFound, title: "Not Found"},
		{name: "field errors", err: fieldErr{}, status: http.StatusBadRequest, title: "Validation Failed", fields: map[string]string{"name": "is required"}},
		{name: "conflict", err: ErrConflict, status: http.StatusConflict, title: "Conflict"},
		{name: "unmatched", err: errors.New("disk full"), status: http.StatusInternalServerError, title: "Internal Error"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			RespondError(rec, tc.err, rules...)
			require.Equal(t, tc.status, rec.Code)

			var problem ProblemDetail
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
			require.Equal(t, tc.title, problem.Title)
			require.Equal(t, tc.status, problem.Status)
			require.Equal(t, tc.fields, problem.Errors)
			if tc.status == http.StatusInternalServerError {
				require.Empty(t, problem.Detail)
			}
		})
	}
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Aspirin"}`))
	require.NoError(t, DecodeJSON(req, &dst))
	require.Equal(t, "Aspirin", dst.Name)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Aspirin","colour":"white"}`))
	require.ErrorIs(t, DecodeJSON(req, &dst), ErrValidation)
}

func TestIntParam(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=25&days=abc", nil)

	v, err := IntParam(req, "limit", 10)
	require.NoError(t, err)
	require.Equal(t, 25, v)

	v, err = IntParam(req, "missing", 10)
	require.NoError(t, err)
	require.Equal(t, 10, v)

	_, err = IntParam(req, "days", 30)
	require.ErrorIs(t, err, ErrValidation)
}

func TestProblemContentType(t *testing.T) {
	rec := httptest.NewRecorder()
	Problem(rec, http.StatusServiceUnavailable, "Store Unavailable", "ping failed")
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Body.String(), `"detail":"ping failed"`)
}
