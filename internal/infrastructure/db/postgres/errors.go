package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/videorental/rental-lifecycle/internal/core/domain"
)

const constraintOpenRental = "uniq_open_rental_per_movie"

var businessErrors = []error{
	domain.ErrQuotaExceeded,
	domain.ErrAlreadyLent,
	domain.ErrNotLent,
	domain.ErrInvalidTransition,
	domain.ErrForbidden,
	domain.ErrRentalNotFound,
	domain.ErrClientNotFound,
	domain.ErrMovieNotFound,
	domain.ErrNotActive,
	domain.ErrNotPendingReturn,
	domain.ErrInvariantViolation,
	domain.ErrUnavailable,
}

// classify maps pgx errors onto the domain taxonomy. Domain errors pass through.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, target := range businessErrors {
		if errors.Is(err, target) {
			return err
		}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgerrcode.UniqueViolation && pgErr.ConstraintName == constraintOpenRental:
			return fmt.Errorf("%w: %s: %w", domain.ErrAlreadyLent, op, err)
		case pgErr.Code == pgerrcode.SerializationFailure,
			pgErr.Code == pgerrcode.DeadlockDetected,
			pgErr.Code == pgerrcode.LockNotAvailable,
			pgErr.Code == pgerrcode.QueryCanceled,
			pgerrcode.IsConnectionException(pgErr.Code),
			pgerrcode.IsInsufficientResources(pgErr.Code),
			pgerrcode.IsOperatorIntervention(pgErr.Code):
			return fmt.Errorf("%w: %s: %w", domain.ErrUnavailable, op, err)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || pgconn.Timeout(err) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %s: %w", domain.ErrUnavailable, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
