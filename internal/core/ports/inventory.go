package ports

import (
	"context"

	"github.com/videorental/rental-lifecycle/internal/core/domain"
)

// MovieCatalog gives read access to the movie catalog.
type MovieCatalog interface {
	// FindMovie returns domain.ErrMovieNotFound when the id is unknown.
	FindMovie(ctx context.Context, id string) (*domain.Movie, error)
}

// InventoryLedger is the single source of truth for movie availability.
type InventoryLedger interface {
	IsAvailable(ctx context.Context, movieID string) (bool, error)
	// MarkLent fails with domain.ErrAlreadyLent or domain.ErrMovieNotFound.
	MarkLent(ctx context.Context, movieID string) error
	// MarkReturned fails with domain.ErrNotLent or domain.ErrMovieNotFound.
	MarkReturned(ctx context.Context, movieID string) error
	// ListLent returns the ids of every movie currently marked lent.
	ListLent(ctx context.Context) ([]string, error)
}
