package postgres

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jackc/pgx/v5"

	"github.com/videorental/rental-lifecycle/internal/core/domain"
)

func (s *Store) FindClientByID(ctx context.Context, id string) (*domain.Client, error) {
	return s.findClient(ctx, goqu.Ex{colID: id}, id)
}

func (s *Store) FindClientByEmail(ctx context.Context, email string) (*domain.Client, error) {
	return s.findClient(ctx, goqu.Ex{colEmail: email}, email)
}

func (s *Store) findClient(ctx context.Context, where exp.Expression, key string) (*domain.Client, error) {
	sql, args, err := selectClientQuery(where)
	clients, err := s.clients(ctx, sql, args, err)
	if err != nil {
		return nil, err
	}
	if len(clients) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrClientNotFound, key)
	}
	return &clients[0], nil
}

func (s *Store) FindClientsByFullName(ctx context.Context, fullName string) ([]domain.Client, error) {
	sql, args, err := clientsByFullNameQuery(fullName)
	return s.clients(ctx, sql, args, err)
}

func (s *Store) clients(ctx context.Context, sql string, args []interface{}, buildErr error) ([]domain.Client, error) {
	if buildErr != nil {
		return nil, fmt.Errorf("find clients: build query: %w", buildErr)
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := s.q(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, classify("find clients", err)
	}
	clients, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Client, error) {
		var c domain.Client
		err := row.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Phone, &c.Role, &c.ActiveRentalsCount)
		return c, err
	})
	if err != nil {
		return nil, classify("find clients", err)
	}
	return clients, nil
}

func (s *Store) AcquireSlot(ctx context.Context, clientID string, limit int) error {
	sql, args, err := acquireSlotQuery(clientID, limit)
	n, err := s.exec(ctx, "acquire rental slot", sql, args, err)
	if err != nil || n == 1 {
		return err
	}
	c, err := s.FindClientByID(ctx, clientID)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: client %s counter at %d", domain.ErrQuotaExceeded, clientID, c.ActiveRentalsCount)
}

// ReleaseSlot decrements the counter, never below zero.
func (s *Store) ReleaseSlot(ctx context.Context, clientID string) error {
	sql, args, err := releaseSlotQuery(clientID)
	n, err := s.exec(ctx, "release rental slot", sql, args, err)
	if err != nil || n == 1 {
		return err
	}
	_, err = s.FindClientByID(ctx, clientID)
	return err
}

func (s *Store) ListCounted(ctx context.Context) ([]domain.Client, error) {
	sql, args, err := countedClientsQuery()
	return s.clients(ctx, sql, args, err)
}

// --- AuditRepository ---

func (s *Store) InsertEvent(ctx context.Context, e *domain.RentalEvent) error {
	sql, args, err := insertEventQuery(e)
	_, err = s.exec(ctx, "insert rental event", sql, args, err)
	return err
}

func (s *Store) ListEvents(ctx context.Context, rentalID string) ([]domain.RentalEvent, error) {
	sql, args, err := listEventsQuery(rentalID)
	if err != nil {
		return nil, fmt.Errorf("list rental events: build query: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := s.q(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, classify("list rental events", err)
	}
	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.RentalEvent, error) {
		var e domain.RentalEvent
		var typ, status string
		err := row.Scan(&e.RentalID, &typ, &e.ClientID, &e.MovieID, &e.ActorID, &status, &e.OccurredAt)
		e.Type = domain.RentalEventType(typ)
		e.Status = domain.RentalStatus(status)
		e.OccurredAt = e.OccurredAt.UTC()
		return e, err
	})
	if err != nil {
		return nil, classify("list rental events", err)
	}
	return events, nil
}
