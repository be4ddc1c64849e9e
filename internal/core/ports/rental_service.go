package ports

import (
	"context"

	"github.com/videorental/rental-lifecycle/internal/core/domain"
)

// AdminRentInput carries the parameters of a rental made by an administrator.
type AdminRentInput struct {
	MovieID string
	// ClientIdentifier is a client id, an email or a "first last" name.
	ClientIdentifier string
}

// RentalService defines the rental lifecycle use cases.
type RentalService interface {
	Rent(ctx context.Context, caller domain.Caller, movieID string) (*domain.Rental, error)
	AdminRent(ctx context.Context, caller domain.Caller, input AdminRentInput) (*domain.Rental, error)
	RequestReturn(ctx context.Context, caller domain.Caller, rentalID string) (*domain.Rental, error)
	RequestReturnForMovie(ctx context.Context, caller domain.Caller, movieID string) (*domain.Rental, error)
	ApproveReturn(ctx context.Context, caller domain.Caller, rentalID string) (*domain.Rental, error)
	ListMine(ctx context.Context, caller domain.Caller) ([]domain.RentalView, error)
	ListPending(ctx context.Context, caller domain.Caller) ([]domain.RentalView, error)
	ListAll(ctx context.Context, caller domain.Caller, filter ListRentalsFilter) ([]domain.RentalView, error)
	DeleteHistory(ctx context.Context, caller domain.Caller, rentalID string) error
	CheckIntegrity(ctx context.Context, caller domain.Caller) (*domain.IntegrityReport, error)
}
