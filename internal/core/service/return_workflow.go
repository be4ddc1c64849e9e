package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/videorental/rental-lifecycle/internal/core/domain"
	"github.com/videorental/rental-lifecycle/internal/core/ports"
)

// ReturnWorkflow drives the two-phase return: the client asks, an administrator approves.
// Both steps expect to run inside a transaction holding the rental's locks.
type ReturnWorkflow struct {
	rentals ports.RentalRepository
	ledger  ports.InventoryLedger
	quota   *QuotaGuard
	log     zerolog.Logger
}

func NewReturnWorkflow(rentals ports.RentalRepository, ledger ports.InventoryLedger, quota *QuotaGuard, logger zerolog.Logger) *ReturnWorkflow {
	return &ReturnWorkflow{rentals: rentals, ledger: ledger, quota: quota, log: logger}
}

// Request moves the caller's active rental to pending_return.
// The movie stays lent until an administrator approves.
func (w *ReturnWorkflow) Request(ctx context.Context, caller domain.Caller, r *domain.Rental, now time.Time) error {
	if !caller.Owns(r) {
		return fmt.Errorf("%w: rental %s belongs to another client", domain.ErrForbidden, r.ID)
	}
	if err := r.RequestReturn(now); err != nil {
		return err
	}
	return w.save(ctx, r, domain.StatusActive)
}

// Approve closes a pending rental, frees the movie and the client's quota slot.
func (w *ReturnWorkflow) Approve(ctx context.Context, caller domain.Caller, r *domain.Rental, now time.Time) error {
	if !caller.IsAdmin() {
		return fmt.Errorf("%w: only administrators approve returns", domain.ErrForbidden)
	}
	if err := r.ApproveReturn(now); err != nil {
		return err
	}
	if err := w.save(ctx, r, domain.StatusPendingReturn); err != nil {
		return err
	}

	if err := w.ledger.MarkReturned(ctx, r.MovieID); err != nil {
		if errors.Is(err, domain.ErrNotLent) {
			return fmt.Errorf("%w: movie %s of pending rental %s is not marked lent", domain.ErrInvariantViolation, r.MovieID, r.ID)
		}
		return err
	}

	// A deleted client has no counter left to give back; the movie still comes home.
	err := w.quota.Release(ctx, r.ClientID)
	if errors.Is(err, domain.ErrClientNotFound) {
		w.log.Error().
			Str("kind", domain.ViolationCounterDrift).
			Str("rental_id", r.ID).
			Str("client_id", r.ClientID).
			Msg("approved return for a missing client; no quota slot released")
		return nil
	}
	return err
}

func (w *ReturnWorkflow) save(ctx context.Context, r *domain.Rental, from domain.RentalStatus) error {
	err := w.rentals.SaveTransition(ctx, r, from)
	if errors.Is(err, domain.ErrInvalidTransition) {
		// the row changed under us despite the locks
		return fmt.Errorf("%w: rental %s left status %s concurrently", domain.ErrUnavailable, r.ID, from)
	}
	return err
}
