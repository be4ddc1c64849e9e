package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/videorental/rental-lifecycle/internal/core/domain"
)

func TestHTTPErrorHandler_StatusMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: r1", domain.ErrRentalNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: m1", domain.ErrMovieNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: bob", domain.ErrClientNotFound), http.StatusNotFound},
		{domain.ErrForbidden, http.StatusForbidden},
		{fmt.Errorf("%w: 3 of 3", domain.ErrQuotaExceeded), http.StatusConflict},
		{fmt.Errorf("%w: m1", domain.ErrAlreadyLent), http.StatusConflict},
		{domain.ErrNotActive, http.StatusUnprocessableEntity},
		{domain.ErrNotPendingReturn, http.StatusUnprocessableEntity},
		{domain.ErrInvalidTransition, http.StatusUnprocessableEntity},
		{fmt.Errorf("%w: mongo down", domain.ErrUnavailable), http.StatusServiceUnavailable},
		{domain.ErrInvariantViolation, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
		{echo.NewHTTPError(http.StatusUnauthorized, "invalid token"), http.StatusUnauthorized},
	}

	h := NewHTTPErrorHandler(zerolog.Nop())
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)

			h(tt.err, c)

			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}
			var body errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if body.Error == "" {
				t.Fatalf("expected error message in body")
			}
		})
	}
}

func TestHTTPErrorHandler_HidesInternalDetail(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	NewHTTPErrorHandler(zerolog.Nop())(errors.New("pq: password=hunter2"), c)

	var body errorResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Error != "internal server error" {
		t.Fatalf("unexpected message: %q", body.Error)
	}
}
