package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/videorental/rental-lifecycle/internal/core/domain"
	"github.com/videorental/rental-lifecycle/internal/core/ports"
)

type auditService struct {
	repo ports.AuditRepository
	log  zerolog.Logger
}

// NewAuditService returns an AuditService writing to repo.
func NewAuditService(repo ports.AuditRepository, log zerolog.Logger) ports.AuditService {
	return &auditService{repo: repo, log: log}
}

// Record validates and persists a single lifecycle event.
func (s *auditService) Record(ctx context.Context, event domain.RentalEvent) error {
	if event.RentalID == "" {
		return fmt.Errorf("record audit event: missing rental id")
	}
	switch event.Type {
	case domain.EventRented, domain.EventReturnRequested, domain.EventReturnApproved, domain.EventDeleted:
	default:
		return fmt.Errorf("record audit event: unknown type %q", event.Type)
	}

	if err := s.repo.InsertEvent(ctx, &event); err != nil {
		return fmt.Errorf("record audit event: %w", err)
	}

	s.log.Debug().
		Str("rental_id", event.RentalID).
		Str("type", string(event.Type)).
		Str("actor_id", event.ActorID).
		Msg("audit event recorded")
	return nil
}

// History returns the audit trail of one rental. Clients only see their own.
func (s *auditService) History(ctx context.Context, caller domain.Caller, rentalID string) ([]domain.RentalEvent, error) {
	events, err := s.repo.ListEvents(ctx, rentalID)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("%w: no history for rental %s", domain.ErrRentalNotFound, rentalID)
	}
	if !caller.IsAdmin() && events[0].ClientID != caller.ID {
		return nil, fmt.Errorf("%w: rental %s belongs to another client", domain.ErrForbidden, rentalID)
	}
	return events, nil
}
