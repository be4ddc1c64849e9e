package ports

import (
	"context"

	"github.com/videorental/rental-lifecycle/internal/core/domain"
)

// AuditRepository persists the rental audit trail.
type AuditRepository interface {
	InsertEvent(ctx context.Context, event *domain.RentalEvent) error
	// ListEvents returns the events of one rental, oldest first.
	ListEvents(ctx context.Context, rentalID string) ([]domain.RentalEvent, error)
}

// AuditPublisher hands committed events to the asynchronous audit writer.
type AuditPublisher interface {
	Publish(event domain.RentalEvent)
}

// AuditService records and reads audit events.
type AuditService interface {
	Record(ctx context.Context, event domain.RentalEvent) error
	History(ctx context.Context, caller domain.Caller, rentalID string) ([]domain.RentalEvent, error)
}
