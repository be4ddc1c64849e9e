package ports

import (
	"context"

	"github.com/videorental/rental-lifecycle/internal/core/domain"
)

// ClientDirectory looks clients up by the identifiers an administrator may type.
type ClientDirectory interface {
	// FindClientByID and FindClientByEmail return domain.ErrClientNotFound on a miss.
	FindClientByID(ctx context.Context, id string) (*domain.Client, error)
	FindClientByEmail(ctx context.Context, email string) (*domain.Client, error)
	// FindClientsByFullName matches "first last" case-insensitively and may return several clients.
	FindClientsByFullName(ctx context.Context, fullName string) ([]domain.Client, error)
}

// QuotaCounter keeps the per-client count of open rentals on the client record.
// Concurrent admissions for one client contend on that record.
type QuotaCounter interface {
	// AcquireSlot increments the counter unless it already reached limit,
	// in which case it fails with domain.ErrQuotaExceeded.
	AcquireSlot(ctx context.Context, clientID string, limit int) error
	ReleaseSlot(ctx context.Context, clientID string) error
	// ListCounted returns the clients whose counter is above zero, by id.
	ListCounted(ctx context.Context) ([]domain.Client, error)
}
