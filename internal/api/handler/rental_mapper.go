package handler

import (
	"github.com/videorental/rental-lifecycle/internal/core/domain"
	"github.com/videorental/rental-lifecycle/internal/core/ports"
)

// --- Request → Service input ---

// toListFilter sorts newest first unless the caller asks for "asc".
func toListFilter(q listRentalsQuery) ports.ListRentalsFilter {
	return ports.ListRentalsFilter{
		Search:   q.Search,
		Status:   domain.RentalStatus(q.Status),
		SortBy:   q.SortBy,
		SortDesc: q.SortOrder != "asc",
	}
}

// --- Service result → HTTP response ---

func toRentalResponse(r *domain.Rental) rentalResponse {
	self := "/v1/rentals/" + r.ID
	links := rentalLinks{Self: self, Events: self + "/events"}
	switch r.Status {
	case domain.StatusActive:
		links.Return = self + "/return"
	case domain.StatusPendingReturn:
		links.Approve = self + "/approve"
	}

	return rentalResponse{
		ID:                r.ID,
		MovieID:           r.MovieID,
		MovieTitle:        r.MovieTitle,
		ClientID:          r.ClientID,
		RentedBy:          r.RentedBy,
		RentalDate:        r.RentalDate,
		PlannedReturnDate: r.PlannedReturnDate,
		ReturnRequestDate: r.ReturnRequestDate,
		ActualReturnDate:  r.ActualReturnDate,
		Status:            string(r.Status),
		Links:             links,
	}
}

func toListResponse(views []domain.RentalView) listRentalsResponse {
	data := make([]rentalViewResponse, 0, len(views))
	for i := range views {
		v := &views[i]
		genres := v.MovieGenres
		if genres == nil {
			genres = []string{}
		}
		data = append(data, rentalViewResponse{
			rentalResponse: toRentalResponse(&v.Rental),
			Client: clientSummaryResponse{
				FirstName: v.ClientFirstName,
				LastName:  v.ClientLastName,
				Email:     v.ClientEmail,
				Phone:     v.ClientPhone,
			},
			MovieGenres: genres,
		})
	}
	return listRentalsResponse{Data: data, Total: len(data)}
}

func toIntegrityResponse(r *domain.IntegrityReport) integrityResponse {
	violations := make([]violationResponse, 0, len(r.Violations))
	for _, v := range r.Violations {
		violations = append(violations, violationResponse{
			Kind:      v.Kind,
			MovieID:   v.MovieID,
			ClientID:  v.ClientID,
			RentalIDs: v.RentalIDs,
			Detail:    v.Detail,
		})
	}
	return integrityResponse{
		CheckedAt:   r.CheckedAt,
		OpenRentals: r.OpenRentals,
		Healthy:     r.Healthy(),
		Violations:  violations,
	}
}

func toHistoryResponse(rentalID string, events []domain.RentalEvent) rentalHistoryResponse {
	resp := rentalHistoryResponse{
		RentalID: rentalID,
		Events:   make([]rentalEventResponse, 0, len(events)),
	}
	for _, e := range events {
		resp.ClientID = e.ClientID
		resp.MovieID = e.MovieID
		resp.Events = append(resp.Events, rentalEventResponse{
			Type:       string(e.Type),
			Status:     string(e.Status),
			ActorID:    e.ActorID,
			OccurredAt: e.OccurredAt,
		})
	}
	return resp
}
