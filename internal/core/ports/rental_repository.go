package ports

import (
	"context"

	"github.com/videorental/rental-lifecycle/internal/core/domain"
)

// Sort keys accepted by ListAll.
const (
	SortByRentalDate = "rentalDate"
	SortByClientName = "clientName"
	SortByMovieTitle = "movieTitle"
)

// ListRentalsFilter carries the admin listing parameters.
type ListRentalsFilter struct {
	Search   string              // optional: case-insensitive substring over client name/email, movie title and id
	Status   domain.RentalStatus // optional: exact status
	SortBy   string              // one of the SortBy* keys; defaults to SortByRentalDate
	SortDesc bool
}

// RentalRepository defines persistence operations for rentals.
// Methods called with a context returned by Transactor.WithinTx take part in that transaction.
type RentalRepository interface {
	Create(ctx context.Context, r *domain.Rental) error
	// FindByID returns domain.ErrRentalNotFound when no rental has the id.
	// Inside a transaction the backend locks the row where it supports it.
	FindByID(ctx context.Context, id string) (*domain.Rental, error)
	// FindOpenByClientAndMovie returns the client's active or pending rental of the movie.
	FindOpenByClientAndMovie(ctx context.Context, clientID, movieID string) (*domain.Rental, error)

	ListByClient(ctx context.Context, clientID string) ([]domain.RentalView, error)
	// ListPendingReturn is sorted by return request date, newest first.
	ListPendingReturn(ctx context.Context) ([]domain.RentalView, error)
	ListAll(ctx context.Context, filter ListRentalsFilter) ([]domain.RentalView, error)
	ListOpen(ctx context.Context) ([]domain.Rental, error)

	CountOpenByClient(ctx context.Context, clientID string) (int, error)
	CountOpenByMovie(ctx context.Context, movieID string) (int, error)

	// SaveTransition persists r only if the stored status still equals from.
	// A lost race yields domain.ErrInvalidTransition.
	SaveTransition(ctx context.Context, r *domain.Rental, from domain.RentalStatus) error
	// DeleteReturned removes a returned rental; anything else yields domain.ErrRentalNotFound.
	DeleteReturned(ctx context.Context, id string) error
}
