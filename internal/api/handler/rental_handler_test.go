package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/videorental/rental-lifecycle/internal/api/middleware"
	"github.com/videorental/rental-lifecycle/internal/core/domain"
	"github.com/videorental/rental-lifecycle/internal/core/ports"
)

type stubRentalService struct {
	rentFn           func(ctx context.Context, caller domain.Caller, movieID string) (*domain.Rental, error)
	adminRentFn      func(ctx context.Context, caller domain.Caller, input ports.AdminRentInput) (*domain.Rental, error)
	requestReturnFn  func(ctx context.Context, caller domain.Caller, rentalID string) (*domain.Rental, error)
	returnForMovieFn func(ctx context.Context, caller domain.Caller, movieID string) (*domain.Rental, error)
	approveFn        func(ctx context.Context, caller domain.Caller, rentalID string) (*domain.Rental, error)
	listMineFn       func(ctx context.Context, caller domain.Caller) ([]domain.RentalView, error)
	listPendingFn    func(ctx context.Context, caller domain.Caller) ([]domain.RentalView, error)
	listAllFn        func(ctx context.Context, caller domain.Caller, filter ports.ListRentalsFilter) ([]domain.RentalView, error)
	deleteFn         func(ctx context.Context, caller domain.Caller, rentalID string) error
	integrityFn      func(ctx context.Context, caller domain.Caller) (*domain.IntegrityReport, error)
}

func (s *stubRentalService) Rent(ctx context.Context, caller domain.Caller, movieID string) (*domain.Rental, error) {
	return s.rentFn(ctx, caller, movieID)
}

func (s *stubRentalService) AdminRent(ctx context.Context, caller domain.Caller, input ports.AdminRentInput) (*domain.Rental, error) {
	return s.adminRentFn(ctx, caller, input)
}

func (s *stubRentalService) RequestReturn(ctx context.Context, caller domain.Caller, rentalID string) (*domain.Rental, error) {
	return s.requestReturnFn(ctx, caller, rentalID)
}

func (s *stubRentalService) RequestReturnForMovie(ctx context.Context, caller domain.Caller, movieID string) (*domain.Rental, error) {
	return s.returnForMovieFn(ctx, caller, movieID)
}

func (s *stubRentalService) ApproveReturn(ctx context.Context, caller domain.Caller, rentalID string) (*domain.Rental, error) {
	return s.approveFn(ctx, caller, rentalID)
}

func (s *stubRentalService) ListMine(ctx context.Context, caller domain.Caller) ([]domain.RentalView, error) {
	return s.listMineFn(ctx, caller)
}

func (s *stubRentalService) ListPending(ctx context.Context, caller domain.Caller) ([]domain.RentalView, error) {
	return s.listPendingFn(ctx, caller)
}

func (s *stubRentalService) ListAll(ctx context.Context, caller domain.Caller, filter ports.ListRentalsFilter) ([]domain.RentalView, error) {
	return s.listAllFn(ctx, caller, filter)
}

func (s *stubRentalService) DeleteHistory(ctx context.Context, caller domain.Caller, rentalID string) error {
	return s.deleteFn(ctx, caller, rentalID)
}

func (s *stubRentalService) CheckIntegrity(ctx context.Context, caller domain.Caller) (*domain.IntegrityReport, error) {
	return s.integrityFn(ctx, caller)
}

var rentedAt = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func activeRental() *domain.Rental {
	return &domain.Rental{
		ID:                "r1",
		MovieID:           "m1",
		MovieTitle:        "Alien",
		ClientID:          "c1",
		RentalDate:        rentedAt,
		PlannedReturnDate: rentedAt.Add(48 * time.Hour),
		Status:            domain.StatusActive,
	}
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

// newAuthedContext builds a context as if Auth had already accepted the token.
func newAuthedContext(e *echo.Echo, method, target, body, clientID, role string) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if clientID != "" {
		c.Set(middleware.KeyClientID, clientID)
		c.Set(middleware.KeyRole, role)
	}
	return c, rec
}

func TestRentalHandler_Rent_Success(t *testing.T) {
	e := newTestEcho()
	stub := &stubRentalService{
		rentFn: func(ctx context.Context, caller domain.Caller, movieID string) (*domain.Rental, error) {
			if caller.ID != "c1" || caller.Role != domain.RoleUser || movieID != "m1" {
				t.Fatalf("unexpected args: %+v %s", caller, movieID)
			}
			return activeRental(), nil
		},
	}
	h := NewRentalHandler(stub)

	c, rec := newAuthedContext(e, http.MethodPost, "/v1/rentals", `{"movie_id":"m1"}`, "c1", domain.RoleUser)
	if err := h.Rent(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["id"] != "r1" || resp["status"] != "active" || resp["movie_title"] != "Alien" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
	if _, ok := resp["return_request_date"]; ok {
		t.Fatalf("return_request_date should be omitted on an active rental")
	}
	links, _ := resp["_links"].(map[string]any)
	if links["return"] != "/v1/rentals/r1/return" {
		t.Fatalf("expected return link, got %+v", links)
	}
	if _, ok := links["approve"]; ok {
		t.Fatalf("active rental must not expose approve link")
	}
}

func TestRentalHandler_Rent_MissingMovieID(t *testing.T) {
	e := newTestEcho()
	h := NewRentalHandler(&stubRentalService{
		rentFn: func(context.Context, domain.Caller, string) (*domain.Rental, error) {
			t.Fatalf("service must not be called")
			return nil, nil
		},
	})

	c, _ := newAuthedContext(e, http.MethodPost, "/v1/rentals", `{}`, "c1", domain.RoleUser)
	err := h.Rent(c)

	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 HTTPError, got %v", err)
	}
	if !strings.Contains(he.Message.(string), "movie_id is required") {
		t.Fatalf("unexpected message: %v", he.Message)
	}
}

func TestRentalHandler_Rent_NoClaims(t *testing.T) {
	e := newTestEcho()
	h := NewRentalHandler(&stubRentalService{})

	c, _ := newAuthedContext(e, http.MethodPost, "/v1/rentals", `{"movie_id":"m1"}`, "", "")
	err := h.Rent(c)

	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 HTTPError, got %v", err)
	}
}

func TestRentalHandler_Rent_ServiceErrorPassesThrough(t *testing.T) {
	e := newTestEcho()
	h := NewRentalHandler(&stubRentalService{
		rentFn: func(context.Context, domain.Caller, string) (*domain.Rental, error) {
			return nil, domain.ErrQuotaExceeded
		},
	})

	c, _ := newAuthedContext(e, http.MethodPost, "/v1/rentals", `{"movie_id":"m1"}`, "c1", domain.RoleUser)
	if err := h.Rent(c); !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
}

func TestRentalHandler_AdminRent(t *testing.T) {
	e := newTestEcho()
	h := NewRentalHandler(&stubRentalService{
		adminRentFn: func(ctx context.Context, caller domain.Caller, in ports.AdminRentInput) (*domain.Rental, error) {
			if !caller.IsAdmin() || in.MovieID != "m1" || in.ClientIdentifier != "Ana Lopez" {
				t.Fatalf("unexpected args: %+v %+v", caller, in)
			}
			r := activeRental()
			r.RentedBy = caller.ID
			return r, nil
		},
	})

	c, rec := newAuthedContext(e, http.MethodPost, "/v1/admin/rentals",
		`{"movie_id":"m1","client_identifier":"Ana Lopez"}`, "admin1", domain.RoleAdmin)
	if err := h.AdminRent(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"rented_by":"admin1"`) {
		t.Fatalf("expected rented_by in body: %s", rec.Body.String())
	}
}

func TestRentalHandler_RequestReturn(t *testing.T) {
	e := newTestEcho()
	requested := rentedAt.Add(time.Hour)
	h := NewRentalHandler(&stubRentalService{
		requestReturnFn: func(ctx context.Context, caller domain.Caller, rentalID string) (*domain.Rental, error) {
			if rentalID != "r1" {
				t.Fatalf("unexpected rental id %q", rentalID)
			}
			r := activeRental()
			r.Status = domain.StatusPendingReturn
			r.ReturnRequestDate = &requested
			return r, nil
		},
	})

	c, rec := newAuthedContext(e, http.MethodPost, "/v1/rentals/r1/return", "", "c1", domain.RoleUser)
	c.SetParamNames("rental_id")
	c.SetParamValues("r1")
	if err := h.RequestReturn(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp rentalResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Status != "pending_return" || resp.ReturnRequestDate == nil {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Links.Approve != "/v1/rentals/r1/approve" || resp.Links.Return != "" {
		t.Fatalf("unexpected links: %+v", resp.Links)
	}
}

func TestRentalHandler_RequestReturnForMovie(t *testing.T) {
	e := newTestEcho()
	var gotMovie string
	h := NewRentalHandler(&stubRentalService{
		returnForMovieFn: func(ctx context.Context, caller domain.Caller, movieID string) (*domain.Rental, error) {
			gotMovie = movieID
			return nil, domain.ErrNotActive
		},
	})

	c, _ := newAuthedContext(e, http.MethodPost, "/v1/movies/m9/return", "", "c1", domain.RoleUser)
	c.SetParamNames("movie_id")
	c.SetParamValues("m9")
	if err := h.RequestReturnForMovie(c); !errors.Is(err, domain.ErrNotActive) {
		t.Fatalf("expected ErrNotActive, got %v", err)
	}
	if gotMovie != "m9" {
		t.Fatalf("expected movie m9, got %q", gotMovie)
	}
}

func TestRentalHandler_ApproveReturn(t *testing.T) {
	e := newTestEcho()
	returned := rentedAt.Add(2 * time.Hour)
	h := NewRentalHandler(&stubRentalService{
		approveFn: func(ctx context.Context, caller domain.Caller, rentalID string) (*domain.Rental, error) {
			r := activeRental()
			r.Status = domain.StatusReturned
			r.ReturnRequestDate = &returned
			r.ActualReturnDate = &returned
			return r, nil
		},
	})

	c, rec := newAuthedContext(e, http.MethodPost, "/v1/rentals/r1/approve", "", "admin1", domain.RoleAdmin)
	c.SetParamNames("rental_id")
	c.SetParamValues("r1")
	if err := h.ApproveReturn(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"returned"`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestRentalHandler_ListMine(t *testing.T) {
	e := newTestEcho()
	h := NewRentalHandler(&stubRentalService{
		listMineFn: func(ctx context.Context, caller domain.Caller) ([]domain.RentalView, error) {
			return []domain.RentalView{{
				Rental:          *activeRental(),
				ClientFirstName: "Ana",
				ClientLastName:  "Lopez",
				ClientEmail:     "ana@example.com",
			}}, nil
		},
	})

	c, rec := newAuthedContext(e, http.MethodGet, "/v1/rentals/me", "", "c1", domain.RoleUser)
	if err := h.ListMine(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp listRentalsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Total != 1 || len(resp.Data) != 1 {
		t.Fatalf("expected one rental, got %+v", resp)
	}
	item := resp.Data[0]
	if item.ID != "r1" || item.Client.Email != "ana@example.com" {
		t.Fatalf("unexpected item: %+v", item)
	}
	if item.MovieGenres == nil {
		t.Fatalf("movie_genres must encode as an empty array")
	}
}

func TestRentalHandler_ListPending_Empty(t *testing.T) {
	e := newTestEcho()
	h := NewRentalHandler(&stubRentalService{
		listPendingFn: func(context.Context, domain.Caller) ([]domain.RentalView, error) {
			return nil, nil
		},
	})

	c, rec := newAuthedContext(e, http.MethodGet, "/v1/rentals/pending", "", "admin1", domain.RoleAdmin)
	if err := h.ListPending(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"data":[]`) {
		t.Fatalf("expected empty data array, got %s", rec.Body.String())
	}
}

func TestRentalHandler_ListAll_BindsFilter(t *testing.T) {
	e := newTestEcho()
	var got ports.ListRentalsFilter
	h := NewRentalHandler(&stubRentalService{
		listAllFn: func(ctx context.Context, caller domain.Caller, f ports.ListRentalsFilter) ([]domain.RentalView, error) {
			got = f
			return nil, nil
		},
	})

	c, _ := newAuthedContext(e, http.MethodGet,
		"/v1/admin/rentals?search=lopez&sort_by=clientName&sort_order=desc&status=active", "", "admin1", domain.RoleAdmin)
	if err := h.ListAll(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	want := ports.ListRentalsFilter{
		Search:   "lopez",
		Status:   domain.StatusActive,
		SortBy:   ports.SortByClientName,
		SortDesc: true,
	}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestRentalHandler_ListAll_DefaultsToNewestFirst(t *testing.T) {
	e := newTestEcho()
	var got []ports.ListRentalsFilter
	h := NewRentalHandler(&stubRentalService{
		listAllFn: func(ctx context.Context, caller domain.Caller, f ports.ListRentalsFilter) ([]domain.RentalView, error) {
			got = append(got, f)
			return nil, nil
		},
	})

	for _, target := range []string{"/v1/admin/rentals", "/v1/admin/rentals?sort_order=asc"} {
		c, _ := newAuthedContext(e, http.MethodGet, target, "", "admin1", domain.RoleAdmin)
		if err := h.ListAll(c); err != nil {
			t.Fatalf("handler error for %s: %v", target, err)
		}
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(got))
	}
	if !got[0].SortDesc || got[0].SortBy != "" {
		t.Fatalf("expected default descending rental date order, got %+v", got[0])
	}
	if got[1].SortDesc {
		t.Fatalf("expected ascending order when asked, got %+v", got[1])
	}
}

func TestRentalHandler_ListAll_InvalidSort(t *testing.T) {
	e := newTestEcho()
	h := NewRentalHandler(&stubRentalService{})

	c, _ := newAuthedContext(e, http.MethodGet, "/v1/admin/rentals?sort_by=price", "", "admin1", domain.RoleAdmin)
	err := h.ListAll(c)

	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 HTTPError, got %v", err)
	}
	if !strings.Contains(he.Message.(string), "sort_by must be one of: rentalDate, clientName, movieTitle") {
		t.Fatalf("unexpected message: %v", he.Message)
	}
}

func TestRentalHandler_DeleteHistory(t *testing.T) {
	e := newTestEcho()
	var deleted string
	h := NewRentalHandler(&stubRentalService{
		deleteFn: func(ctx context.Context, caller domain.Caller, rentalID string) error {
			deleted = rentalID
			return nil
		},
	})

	c, rec := newAuthedContext(e, http.MethodDelete, "/v1/rentals/r1", "", "c1", domain.RoleUser)
	c.SetParamNames("rental_id")
	c.SetParamValues("r1")
	if err := h.DeleteHistory(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNoContent || deleted != "r1" {
		t.Fatalf("expected 204 for r1, got %d for %q", rec.Code, deleted)
	}
}

func TestRentalHandler_CheckIntegrity(t *testing.T) {
	e := newTestEcho()
	h := NewRentalHandler(&stubRentalService{
		integrityFn: func(context.Context, domain.Caller) (*domain.IntegrityReport, error) {
			return &domain.IntegrityReport{
				CheckedAt:   rentedAt,
				OpenRentals: 2,
				Violations: []domain.Violation{{
					Kind:      domain.ViolationMovieMultipleOpen,
					MovieID:   "m1",
					RentalIDs: []string{"r1", "r2"},
					Detail:    "2 open rentals",
				}},
			}, nil
		},
	})

	c, rec := newAuthedContext(e, http.MethodGet, "/v1/admin/integrity", "", "admin1", domain.RoleAdmin)
	if err := h.CheckIntegrity(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp integrityResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Healthy || resp.OpenRentals != 2 || len(resp.Violations) != 1 {
		t.Fatalf("unexpected report: %+v", resp)
	}
	if resp.Violations[0].Kind != domain.ViolationMovieMultipleOpen {
		t.Fatalf("unexpected violation: %+v", resp.Violations[0])
	}
}
