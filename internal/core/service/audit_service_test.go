package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/videorental/rental-lifecycle/internal/core/domain"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubAuditRepo struct {
	insertErr error
	inserted  []domain.RentalEvent
}

func (r *stubAuditRepo) InsertEvent(_ context.Context, e *domain.RentalEvent) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.inserted = append(r.inserted, *e)
	return nil
}

func (r *stubAuditRepo) ListEvents(_ context.Context, rentalID string) ([]domain.RentalEvent, error) {
	var out []domain.RentalEvent
	for _, e := range r.inserted {
		if e.RentalID == rentalID {
			out = append(out, e)
		}
	}
	return out, nil
}

func auditEvent(t domain.RentalEventType) domain.RentalEvent {
	return domain.RentalEvent{
		RentalID:   "rental-1",
		Type:       t,
		ClientID:   "client-x",
		MovieID:    "dune",
		ActorID:    "client-x",
		Status:     domain.StatusActive,
		OccurredAt: time.Now().UTC(),
	}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestAuditService_Record_HappyPath(t *testing.T) {
	repo := &stubAuditRepo{}
	svc := NewAuditService(repo, zerolog.Nop())

	if err := svc.Record(context.Background(), auditEvent(domain.EventRented)); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(repo.inserted) != 1 {
		t.Fatalf("expected one event inserted, got %d", len(repo.inserted))
	}
}

func TestAuditService_Record_RejectsUnknownType(t *testing.T) {
	repo := &stubAuditRepo{}
	svc := NewAuditService(repo, zerolog.Nop())

	err := svc.Record(context.Background(), auditEvent("lost"))
	if err == nil {
		t.Fatal("expected error for unknown event type")
	}
	if len(repo.inserted) != 0 {
		t.Errorf("expected nothing inserted")
	}
}

func TestAuditService_Record_MissingRental(t *testing.T) {
	svc := NewAuditService(&stubAuditRepo{}, zerolog.Nop())

	e := auditEvent(domain.EventRented)
	e.RentalID = ""
	if err := svc.Record(context.Background(), e); err == nil {
		t.Fatal("expected error for missing rental id")
	}
}

func TestAuditService_Record_RepoError(t *testing.T) {
	boom := errors.New("mongo down")
	svc := NewAuditService(&stubAuditRepo{insertErr: boom}, zerolog.Nop())

	err := svc.Record(context.Background(), auditEvent(domain.EventRented))
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped repo error, got: %v", err)
	}
}

func TestAuditService_History(t *testing.T) {
	repo := &stubAuditRepo{}
	svc := NewAuditService(repo, zerolog.Nop())
	ctx := context.Background()
	_ = svc.Record(ctx, auditEvent(domain.EventRented))
	_ = svc.Record(ctx, auditEvent(domain.EventReturnRequested))

	events, err := svc.History(ctx, domain.Caller{ID: "client-x", Role: domain.RoleUser}, "rental-1")
	if err != nil {
		t.Fatalf("owner history: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}

	if _, err := svc.History(ctx, domain.Caller{ID: "admin-1", Role: domain.RoleAdmin}, "rental-1"); err != nil {
		t.Fatalf("admin history: %v", err)
	}

	_, err = svc.History(ctx, domain.Caller{ID: "client-y", Role: domain.RoleUser}, "rental-1")
	if !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got: %v", err)
	}

	_, err = svc.History(ctx, domain.Caller{ID: "admin-1", Role: domain.RoleAdmin}, "rental-404")
	if !errors.Is(err, domain.ErrRentalNotFound) {
		t.Errorf("expected ErrRentalNotFound, got: %v", err)
	}
}
