package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/videorental/rental-lifecycle/internal/core/domain"
)

func (s *Store) FindMovie(ctx context.Context, id string) (*domain.Movie, error) {
	sql, args, err := selectMovieQuery(id)
	if err != nil {
		return nil, fmt.Errorf("find movie: build query: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var m domain.Movie
	if err := s.q(ctx).QueryRow(ctx, sql, args...).Scan(&m.ID, &m.Title, &m.Genres, &m.IsAvailable); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrMovieNotFound, id)
		}
		return nil, classify("find movie", err)
	}
	return &m, nil
}

func (s *Store) IsAvailable(ctx context.Context, movieID string) (bool, error) {
	m, err := s.FindMovie(ctx, movieID)
	if err != nil {
		return false, err
	}
	return m.IsAvailable, nil
}

func (s *Store) MarkLent(ctx context.Context, movieID string) error {
	return s.flip(ctx, movieID, true, domain.ErrAlreadyLent)
}

func (s *Store) MarkReturned(ctx context.Context, movieID string) error {
	return s.flip(ctx, movieID, false, domain.ErrNotLent)
}

func (s *Store) flip(ctx context.Context, movieID string, from bool, conflict error) error {
	sql, args, err := flipAvailabilityQuery(movieID, from)
	n, err := s.exec(ctx, "update movie availability", sql, args, err)
	if err != nil || n == 1 {
		return err
	}

	found, err := s.exists(ctx, tableMovies, movieID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s", domain.ErrMovieNotFound, movieID)
	}
	return fmt.Errorf("%w: movie %s", conflict, movieID)
}

func (s *Store) ListLent(ctx context.Context) ([]string, error) {
	sql, args, err := lentMoviesQuery()
	if err != nil {
		return nil, fmt.Errorf("list lent movies: build query: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := s.q(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, classify("list lent movies", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, classify("list lent movies", err)
	}
	return ids, nil
}
