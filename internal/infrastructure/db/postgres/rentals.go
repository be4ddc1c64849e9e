package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jackc/pgx/v5"

	"github.com/videorental/rental-lifecycle/internal/core/domain"
	"github.com/videorental/rental-lifecycle/internal/core/ports"
)

func scanRental(row pgx.Row, extra ...interface{}) (domain.Rental, error) {
	var r domain.Rental
	var status string
	dest := append([]interface{}{
		&r.ID, &r.MovieID, &r.ClientID, &r.MovieTitle, &r.RentedBy, &r.RentalDate,
		&r.PlannedReturnDate, &r.ReturnRequestDate, &r.ActualReturnDate, &status,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return r, err
	}
	r.Status = domain.RentalStatus(status)
	r.RentalDate = r.RentalDate.UTC()
	r.PlannedReturnDate = r.PlannedReturnDate.UTC()
	r.ReturnRequestDate = utcPtr(r.ReturnRequestDate)
	r.ActualReturnDate = utcPtr(r.ActualReturnDate)
	return r, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func (s *Store) Create(ctx context.Context, r *domain.Rental) error {
	sql, args, err := insertRentalQuery(r)
	_, err = s.exec(ctx, "insert rental", sql, args, err)
	return err
}

// FindByID locks the row when called inside a transaction.
func (s *Store) FindByID(ctx context.Context, id string) (*domain.Rental, error) {
	_, inTx := txFrom(ctx)
	return s.findRental(ctx, goqu.Ex{colID: id}, inTx, fmt.Sprintf("rental %s", id))
}

func (s *Store) FindOpenByClientAndMovie(ctx context.Context, clientID, movieID string) (*domain.Rental, error) {
	where := goqu.And(goqu.Ex{colClientID: clientID, colMovieID: movieID}, openStatus(colStatus))
	_, inTx := txFrom(ctx)
	return s.findRental(ctx, where, inTx, fmt.Sprintf("client %s holds no open rental of movie %s", clientID, movieID))
}

func (s *Store) findRental(ctx context.Context, where exp.Expression, forUpdate bool, what string) (*domain.Rental, error) {
	sql, args, err := selectRentalQuery(where, forUpdate)
	if err != nil {
		return nil, fmt.Errorf("find rental: build query: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	r, err := scanRental(s.q(ctx).QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrRentalNotFound, what)
		}
		return nil, classify("find rental", err)
	}
	return &r, nil
}

func (s *Store) ListByClient(ctx context.Context, clientID string) ([]domain.RentalView, error) {
	sql, args, err := clientViewsQuery(clientID)
	return s.views(ctx, sql, args, err)
}

func (s *Store) ListPendingReturn(ctx context.Context) ([]domain.RentalView, error) {
	sql, args, err := pendingViewsQuery()
	return s.views(ctx, sql, args, err)
}

func (s *Store) ListAll(ctx context.Context, f ports.ListRentalsFilter) ([]domain.RentalView, error) {
	sql, args, err := listViewsQuery(f)
	return s.views(ctx, sql, args, err)
}

func (s *Store) views(ctx context.Context, sql string, args []interface{}, buildErr error) ([]domain.RentalView, error) {
	if buildErr != nil {
		return nil, fmt.Errorf("list rentals: build query: %w", buildErr)
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := s.q(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, classify("list rentals", err)
	}
	defer rows.Close()

	out := make([]domain.RentalView, 0)
	for rows.Next() {
		var v domain.RentalView
		r, err := scanRental(rows, &v.ClientFirstName, &v.ClientLastName, &v.ClientEmail, &v.ClientPhone, &v.MovieGenres)
		if err != nil {
			return nil, classify("scan rental", err)
		}
		v.Rental = r
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list rentals", err)
	}
	return out, nil
}

func (s *Store) ListOpen(ctx context.Context) ([]domain.Rental, error) {
	sql, args, err := openRentalsQuery()
	if err != nil {
		return nil, fmt.Errorf("list open rentals: build query: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := s.q(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, classify("list open rentals", err)
	}
	defer rows.Close()

	var out []domain.Rental
	for rows.Next() {
		r, err := scanRental(rows)
		if err != nil {
			return nil, classify("scan rental", err)
		}
		out = append(out, r)
	}
	return out, classify("list open rentals", rows.Err())
}

func (s *Store) CountOpenByClient(ctx context.Context, clientID string) (int, error) {
	sql, args, err := countOpenQuery(colClientID, clientID)
	return s.count(ctx, "count client rentals", sql, args, err)
}

func (s *Store) CountOpenByMovie(ctx context.Context, movieID string) (int, error) {
	sql, args, err := countOpenQuery(colMovieID, movieID)
	return s.count(ctx, "count movie rentals", sql, args, err)
}

func (s *Store) SaveTransition(ctx context.Context, r *domain.Rental, from domain.RentalStatus) error {
	sql, args, err := saveTransitionQuery(r, from)
	n, err := s.exec(ctx, "save rental", sql, args, err)
	if err != nil || n == 1 {
		return err
	}

	found, err := s.exists(ctx, tableRentals, r.ID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s", domain.ErrRentalNotFound, r.ID)
	}
	return fmt.Errorf("%w: rental %s is no longer %s", domain.ErrInvalidTransition, r.ID, from)
}

func (s *Store) DeleteReturned(ctx context.Context, id string) error {
	sql, args, err := deleteReturnedQuery(id)
	n, err := s.exec(ctx, "delete rental", sql, args, err)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: no returned rental %s", domain.ErrRentalNotFound, id)
	}
	return nil
}
