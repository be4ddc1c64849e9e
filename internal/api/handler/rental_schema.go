package handler

import "time"

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Request types ---

type rentRequest struct {
	MovieID string `json:"movie_id" validate:"required"`
}

type adminRentRequest struct {
	MovieID string `json:"movie_id" validate:"required"`
	// ClientIdentifier is a client id, an email or "first last".
	ClientIdentifier string `json:"client_identifier" validate:"required"`
}

type listRentalsQuery struct {
	Search    string `query:"search"`
	SortBy    string `query:"sort_by"    validate:"omitempty,oneof=rentalDate clientName movieTitle"`
	SortOrder string `query:"sort_order" validate:"omitempty,oneof=asc desc"`
	Status    string `query:"status"     validate:"omitempty,oneof=active pending_return returned"`
}

// --- Response types ---
// Transport-owned so the JSON contract is not coupled to domain changes.

type rentalLinks struct {
	Self    string `json:"self"`
	Return  string `json:"return,omitempty"`
	Approve string `json:"approve,omitempty"`
	Events  string `json:"events"`
}

type rentalResponse struct {
	ID                string      `json:"id"`
	MovieID           string      `json:"movie_id"`
	MovieTitle        string      `json:"movie_title"`
	ClientID          string      `json:"client_id"`
	RentedBy          string      `json:"rented_by,omitempty"`
	RentalDate        time.Time   `json:"rental_date"`
	PlannedReturnDate time.Time   `json:"planned_return_date"`
	ReturnRequestDate *time.Time  `json:"return_request_date,omitempty"`
	ActualReturnDate  *time.Time  `json:"actual_return_date,omitempty"`
	Status            string      `json:"status"`
	Links             rentalLinks `json:"_links"`
}

type clientSummaryResponse struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
}

// rentalViewResponse is the list item: the rental plus client and movie detail.
type rentalViewResponse struct {
	rentalResponse
	Client      clientSummaryResponse `json:"client"`
	MovieGenres []string              `json:"movie_genres"`
}

type listRentalsResponse struct {
	Data  []rentalViewResponse `json:"data"`
	Total int                  `json:"total"`
}

type violationResponse struct {
	Kind      string   `json:"kind"`
	MovieID   string   `json:"movie_id,omitempty"`
	ClientID  string   `json:"client_id,omitempty"`
	RentalIDs []string `json:"rental_ids,omitempty"`
	Detail    string   `json:"detail"`
}

type integrityResponse struct {
	CheckedAt   time.Time           `json:"checked_at"`
	OpenRentals int                 `json:"open_rentals"`
	Healthy     bool                `json:"healthy"`
	Violations  []violationResponse `json:"violations"`
}

type rentalEventResponse struct {
	Type       string    `json:"type"`
	Status     string    `json:"status"`
	ActorID    string    `json:"actor_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

type rentalHistoryResponse struct {
	RentalID string                `json:"rental_id"`
	ClientID string                `json:"client_id"`
	MovieID  string                `json:"movie_id"`
	Events   []rentalEventResponse `json:"events"`
}
