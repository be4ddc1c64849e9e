package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/videorental/rental-lifecycle/internal/core/ports"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthHandler_Liveness(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	if err := NewHealthHandler(nil).Liveness(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestHealthHandler_Readiness(t *testing.T) {
	ok := pingerFunc(func(context.Context) error { return nil })
	down := pingerFunc(func(context.Context) error { return errors.New("connection refused") })

	tests := []struct {
		name       string
		deps       map[string]ports.Pinger
		wantCode   int
		wantStatus string
	}{
		{"all up", map[string]ports.Pinger{"mongodb": ok, "redis": ok}, http.StatusOK, "ok"},
		{"one down", map[string]ports.Pinger{"mongodb": ok, "redis": down}, http.StatusServiceUnavailable, "degraded"},
		{"no deps", nil, http.StatusOK, "ok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
			rec := httptest.NewRecorder()

			if err := NewHealthHandler(tt.deps).Readiness(e.NewContext(req, rec)); err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if rec.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d", tt.wantCode, rec.Code)
			}

			var resp readinessResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if resp.Status != tt.wantStatus || len(resp.Dependencies) != len(tt.deps) {
				t.Fatalf("unexpected response: %+v", resp)
			}
			if tt.name == "one down" && resp.Dependencies["redis"].Error != "connection refused" {
				t.Fatalf("expected redis error, got %+v", resp.Dependencies["redis"])
			}
		})
	}
}
