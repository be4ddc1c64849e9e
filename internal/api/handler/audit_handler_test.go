package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/videorental/rental-lifecycle/internal/core/domain"
)

type stubAuditService struct {
	historyFn func(ctx context.Context, caller domain.Caller, rentalID string) ([]domain.RentalEvent, error)
}

func (s *stubAuditService) Record(context.Context, domain.RentalEvent) error { return nil }

func (s *stubAuditService) History(ctx context.Context, caller domain.Caller, rentalID string) ([]domain.RentalEvent, error) {
	return s.historyFn(ctx, caller, rentalID)
}

func TestAuditHandler_History(t *testing.T) {
	e := newTestEcho()
	r := activeRental()
	h := NewAuditHandler(&stubAuditService{
		historyFn: func(ctx context.Context, caller domain.Caller, rentalID string) ([]domain.RentalEvent, error) {
			if rentalID != "r1" || caller.ID != "c1" {
				t.Fatalf("unexpected args: %+v %s", caller, rentalID)
			}
			rented := domain.NewRentalEvent(domain.EventRented, r, "c1", rentedAt)
			r.Status = domain.StatusPendingReturn
			requested := domain.NewRentalEvent(domain.EventReturnRequested, r, "c1", rentedAt.Add(1))
			return []domain.RentalEvent{rented, requested}, nil
		},
	})

	c, rec := newAuthedContext(e, http.MethodGet, "/v1/rentals/r1/events", "", "c1", domain.RoleUser)
	c.SetParamNames("rental_id")
	c.SetParamValues("r1")
	if err := h.History(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp rentalHistoryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.RentalID != "r1" || resp.ClientID != "c1" || resp.MovieID != "m1" {
		t.Fatalf("unexpected header: %+v", resp)
	}
	if len(resp.Events) != 2 || resp.Events[0].Type != "rented" || resp.Events[1].Status != "pending_return" {
		t.Fatalf("unexpected events: %+v", resp.Events)
	}
}

func TestAuditHandler_History_Forbidden(t *testing.T) {
	e := newTestEcho()
	h := NewAuditHandler(&stubAuditService{
		historyFn: func(context.Context, domain.Caller, string) ([]domain.RentalEvent, error) {
			return nil, domain.ErrForbidden
		},
	})

	c, _ := newAuthedContext(e, http.MethodGet, "/v1/rentals/r1/events", "", "c2", domain.RoleUser)
	c.SetParamNames("rental_id")
	c.SetParamValues("r1")
	if err := h.History(c); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}
