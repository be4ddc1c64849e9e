package domain

import "time"

// RentalEventType names a committed lifecycle change.
type RentalEventType string

const (
	EventRented          RentalEventType = "rented"
	EventReturnRequested RentalEventType = "return_requested"
	EventReturnApproved  RentalEventType = "return_approved"
	EventDeleted         RentalEventType = "deleted"
)

// RentalEvent is one entry of the rental audit trail.
type RentalEvent struct {
	RentalID   string          `json:"rental_id"`
	Type       RentalEventType `json:"type"`
	ClientID   string          `json:"client_id"`
	MovieID    string          `json:"movie_id"`
	ActorID    string          `json:"actor_id"`
	Status     RentalStatus    `json:"status"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// NewRentalEvent captures the current state of r as an audit event.
func NewRentalEvent(t RentalEventType, r *Rental, actorID string, at time.Time) RentalEvent {
	return RentalEvent{
		RentalID:   r.ID,
		Type:       t,
		ClientID:   r.ClientID,
		MovieID:    r.MovieID,
		ActorID:    actorID,
		Status:     r.Status,
		OccurredAt: at,
	}
}
