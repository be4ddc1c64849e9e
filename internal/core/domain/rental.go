package domain

import (
	"fmt"
	"slices"
	"time"
)

// RentalStatus represents the lifecycle state of a rental.
type RentalStatus string

const (
	StatusActive        RentalStatus = "active"
	StatusPendingReturn RentalStatus = "pending_return"
	StatusReturned      RentalStatus = "returned"
)

// validTransitions defines the allowed state machine transitions.
// There is no direct path from active to returned.
var validTransitions = map[RentalStatus][]RentalStatus{
	StatusActive:        {StatusPendingReturn},
	StatusPendingReturn: {StatusReturned},
}

// CanTransitionTo reports whether a transition from current status to next is valid.
func (s RentalStatus) CanTransitionTo(next RentalStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsOpen reports whether the status still holds the movie copy and a quota slot.
func (s RentalStatus) IsOpen() bool {
	return slices.Contains(OpenStatuses(), s)
}

// Valid reports whether s is one of the known statuses.
func (s RentalStatus) Valid() bool {
	switch s {
	case StatusActive, StatusPendingReturn, StatusReturned:
		return true
	}
	return false
}

// OpenStatuses lists the statuses counted against the ledger and the quota.
func OpenStatuses() []RentalStatus {
	return []RentalStatus{StatusActive, StatusPendingReturn}
}

// Rental is the core aggregate root.
type Rental struct {
	ID                string       `json:"id"`
	MovieID           string       `json:"movie_id"`
	ClientID          string       `json:"client_id"`
	MovieTitle        string       `json:"movie_title"`
	RentedBy          string       `json:"rented_by,omitempty"`
	RentalDate        time.Time    `json:"rental_date"`
	PlannedReturnDate time.Time    `json:"planned_return_date"`
	ReturnRequestDate *time.Time   `json:"return_request_date,omitempty"`
	ActualReturnDate  *time.Time   `json:"actual_return_date,omitempty"`
	Status            RentalStatus `json:"status"`
}

// NewRental builds an active rental starting at now.
func NewRental(id string, movie Movie, clientID string, now time.Time, period time.Duration) *Rental {
	return &Rental{
		ID:                id,
		MovieID:           movie.ID,
		ClientID:          clientID,
		MovieTitle:        movie.Title,
		RentalDate:        now,
		PlannedReturnDate: now.Add(period),
		Status:            StatusActive,
	}
}

// IsOpen reports whether the rental still holds its movie.
func (r *Rental) IsOpen() bool {
	return r.Status.IsOpen()
}

// RequestReturn moves an active rental to pending_return.
func (r *Rental) RequestReturn(now time.Time) error {
	if !r.Status.CanTransitionTo(StatusPendingReturn) {
		return fmt.Errorf("%w: rental %s is %s", ErrNotActive, r.ID, r.Status)
	}
	r.Status = StatusPendingReturn
	r.ReturnRequestDate = &now
	return nil
}

// ApproveReturn moves a pending rental to returned.
func (r *Rental) ApproveReturn(now time.Time) error {
	if !r.Status.CanTransitionTo(StatusReturned) {
		return fmt.Errorf("%w: rental %s is %s", ErrNotPendingReturn, r.ID, r.Status)
	}
	r.Status = StatusReturned
	r.ActualReturnDate = &now
	return nil
}

// CheckInvariants verifies that the date fields agree with the status.
func (r *Rental) CheckInvariants() error {
	if !r.Status.Valid() {
		return fmt.Errorf("%w: rental %s has unknown status %q", ErrInvariantViolation, r.ID, r.Status)
	}
	if (r.ActualReturnDate != nil) != (r.Status == StatusReturned) {
		return fmt.Errorf("%w: rental %s actual return date does not match status %s", ErrInvariantViolation, r.ID, r.Status)
	}
	if (r.ReturnRequestDate != nil) != (r.Status != StatusActive) {
		return fmt.Errorf("%w: rental %s return request date does not match status %s", ErrInvariantViolation, r.ID, r.Status)
	}
	return nil
}

// RentalView is a rental joined with the client and movie details shown in listings.
type RentalView struct {
	Rental
	ClientFirstName string   `json:"client_first_name"`
	ClientLastName  string   `json:"client_last_name"`
	ClientEmail     string   `json:"client_email"`
	ClientPhone     string   `json:"client_phone,omitempty"`
	MovieGenres     []string `json:"movie_genres,omitempty"`
}

// ClientName returns "first last".
func (v RentalView) ClientName() string {
	return v.ClientFirstName + " " + v.ClientLastName
}
