package service

import (
	"context"
	"fmt"

	"github.com/videorental/rental-lifecycle/internal/core/domain"
	"github.com/videorental/rental-lifecycle/internal/core/ports"
)

// QuotaGuard enforces the per-client ceiling of open rentals.
type QuotaGuard struct {
	rentals ports.RentalRepository
	counter ports.QuotaCounter
	limit   int
}

// NewQuotaGuard returns a guard admitting at most limit open rentals per client.
func NewQuotaGuard(rentals ports.RentalRepository, counter ports.QuotaCounter, limit int) *QuotaGuard {
	return &QuotaGuard{rentals: rentals, counter: counter, limit: limit}
}

// Limit returns the configured ceiling.
func (g *QuotaGuard) Limit() int {
	return g.limit
}

// Counted returns the clients whose counter claims at least one slot.
func (g *QuotaGuard) Counted(ctx context.Context) ([]domain.Client, error) {
	return g.counter.ListCounted(ctx)
}

// CanRent reports whether the client is below the ceiling, counting open rentals in storage.
func (g *QuotaGuard) CanRent(ctx context.Context, clientID string) (bool, error) {
	n, err := g.rentals.CountOpenByClient(ctx, clientID)
	if err != nil {
		return false, err
	}
	return n < g.limit, nil
}

// Admit checks the ceiling and claims a slot on the client's counter.
// It must run inside the rent transaction so a later failure gives the slot back.
func (g *QuotaGuard) Admit(ctx context.Context, clientID string) error {
	ok, err := g.CanRent(ctx, clientID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: client %s holds %d open rentals", domain.ErrQuotaExceeded, clientID, g.limit)
	}
	return g.counter.AcquireSlot(ctx, clientID, g.limit)
}

// Release gives back the slot held by a returned rental.
func (g *QuotaGuard) Release(ctx context.Context, clientID string) error {
	return g.counter.ReleaseSlot(ctx, clientID)
}
