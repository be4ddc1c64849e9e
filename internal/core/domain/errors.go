package domain

import "errors"

// Business-rule outcomes. Wrap with fmt.Errorf("%w: ...") to add detail.
var (
	ErrQuotaExceeded     = errors.New("active rental quota exceeded")
	ErrAlreadyLent       = errors.New("movie is already lent")
	ErrNotLent           = errors.New("movie is not lent")
	ErrNotActive         = errors.New("rental is not active")
	ErrNotPendingReturn  = errors.New("rental is not pending return")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrForbidden         = errors.New("access forbidden")
	ErrRentalNotFound    = errors.New("rental not found")
	ErrClientNotFound    = errors.New("client not found")
	ErrMovieNotFound     = errors.New("movie not found")
)

// ErrUnavailable marks storage or transport faults. The engine retries these once.
var ErrUnavailable = errors.New("storage unavailable")

// ErrInvariantViolation marks data that contradicts the rental invariants.
var ErrInvariantViolation = errors.New("rental invariant violated")
