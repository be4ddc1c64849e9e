package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/videorental/rental-lifecycle/internal/core/domain"
	"github.com/videorental/rental-lifecycle/internal/core/ports"
)

const (
	DefaultMaxActiveRentals = 3
	DefaultRentalPeriod     = 48 * time.Hour
)

// Policy holds the business constants of the rental engine.
type Policy struct {
	MaxActiveRentals int
	RentalPeriod     time.Duration
	// OperationTimeout bounds each lock+transaction attempt.
	OperationTimeout time.Duration
}

// Deps groups the storage ports the engine works on.
type Deps struct {
	Rentals    ports.RentalRepository
	Movies     ports.MovieCatalog
	Ledger     ports.InventoryLedger
	Clients    ports.ClientDirectory
	Quota      ports.QuotaCounter
	Transactor ports.Transactor
	Locker     ports.Locker
}

// StoreDeps fills Deps from a single storage backend and a locker.
func StoreDeps(store ports.Store, locker ports.Locker) Deps {
	return Deps{
		Rentals:    store,
		Movies:     store,
		Ledger:     store,
		Clients:    store,
		Quota:      store,
		Transactor: store,
		Locker:     locker,
	}
}

// Option customises a RentalService.
type Option func(*RentalService)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *RentalService) { s.now = now }
}

// WithIDGenerator replaces the uuid generator used for new rentals.
func WithIDGenerator(gen func() string) Option {
	return func(s *RentalService) { s.newID = gen }
}

// WithAuditPublisher sends committed lifecycle events to p.
func WithAuditPublisher(p ports.AuditPublisher) Option {
	return func(s *RentalService) { s.audit = p }
}

// WithMetrics records engine observations on m.
func WithMetrics(m ports.Metrics) Option {
	return func(s *RentalService) { s.metrics = m }
}

// WithRetryDelay sets the pause before retrying a storage fault.
func WithRetryDelay(d time.Duration) Option {
	return func(s *RentalService) { s.retry.baseDelay = d }
}

// RentalService is the rental lifecycle engine. Every state change runs as
// lock(movie, client) -> transaction -> unlock and is retried once on
// domain.ErrUnavailable.
type RentalService struct {
	rentals  ports.RentalRepository
	movies   ports.MovieCatalog
	ledger   ports.InventoryLedger
	clients  ports.ClientDirectory
	tx       ports.Transactor
	locker   ports.Locker
	quota    *QuotaGuard
	returns  *ReturnWorkflow
	resolver *ClientResolver
	audit    ports.AuditPublisher
	metrics  ports.Metrics
	policy   Policy
	retry    retryConfig
	now      func() time.Time
	newID    func() string
	log      zerolog.Logger
}

var _ ports.RentalService = (*RentalService)(nil)

func NewRentalService(deps Deps, policy Policy, logger zerolog.Logger, opts ...Option) *RentalService {
	if policy.MaxActiveRentals <= 0 {
		policy.MaxActiveRentals = DefaultMaxActiveRentals
	}
	if policy.RentalPeriod <= 0 {
		policy.RentalPeriod = DefaultRentalPeriod
	}

	quota := NewQuotaGuard(deps.Rentals, deps.Quota, policy.MaxActiveRentals)
	s := &RentalService{
		rentals:  deps.Rentals,
		movies:   deps.Movies,
		ledger:   deps.Ledger,
		clients:  deps.Clients,
		tx:       deps.Transactor,
		locker:   deps.Locker,
		quota:    quota,
		returns:  NewReturnWorkflow(deps.Rentals, deps.Ledger, quota, logger),
		resolver: NewClientResolver(deps.Clients),
		audit:    nopPublisher{},
		metrics:  ports.NopMetrics{},
		policy:   policy,
		retry:    defaultRetryConfig(),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
		log:      logger,
	}
	s.retry.attemptTimeout = policy.OperationTimeout

	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Rent lends movieID to the caller.
func (s *RentalService) Rent(ctx context.Context, caller domain.Caller, movieID string) (*domain.Rental, error) {
	if caller.ID == "" {
		return nil, fmt.Errorf("%w: caller has no client identity", domain.ErrForbidden)
	}
	return s.rent(ctx, "rent", caller, caller.ID, movieID)
}

// AdminRent lends movieID to the client named by input.ClientIdentifier.
// The resolved client's quota applies, not the administrator's.
func (s *RentalService) AdminRent(ctx context.Context, caller domain.Caller, input ports.AdminRentInput) (*domain.Rental, error) {
	if !caller.IsAdmin() {
		return nil, fmt.Errorf("%w: only administrators rent on behalf of clients", domain.ErrForbidden)
	}

	var client *domain.Client
	err := s.withRetry(ctx, "resolve_client", func(ctx context.Context) error {
		var err error
		client, err = s.resolver.Resolve(ctx, input.ClientIdentifier)
		return err
	})
	if err != nil {
		s.reject("admin_rent", err)
		return nil, err
	}

	return s.rent(ctx, "admin_rent", caller, client.ID, input.MovieID)
}

func (s *RentalService) rent(ctx context.Context, op string, caller domain.Caller, clientID, movieID string) (*domain.Rental, error) {
	start := time.Now()

	var rental *domain.Rental
	err := s.runLocked(ctx, op, lockKeys(movieID, clientID), func(ctx context.Context) error {
		rental = nil

		if err := s.quota.Admit(ctx, clientID); err != nil {
			return err
		}

		movie, err := s.movies.FindMovie(ctx, movieID)
		if err != nil {
			return err
		}

		available, err := s.ledger.IsAvailable(ctx, movieID)
		if err != nil {
			return err
		}
		if !available {
			return fmt.Errorf("%w: movie %s", domain.ErrAlreadyLent, movieID)
		}

		open, err := s.rentals.CountOpenByMovie(ctx, movieID)
		if err != nil {
			return err
		}
		if open > 0 {
			return fmt.Errorf("%w: movie %s is marked available but has %d open rentals", domain.ErrInvariantViolation, movieID, open)
		}

		if err := s.ledger.MarkLent(ctx, movieID); err != nil {
			return err
		}

		r := domain.NewRental(s.newID(), *movie, clientID, s.now(), s.policy.RentalPeriod)
		if clientID != caller.ID {
			r.RentedBy = caller.ID
		}
		if err := s.rentals.Create(ctx, r); err != nil {
			return err
		}
		rental = r
		return nil
	})
	s.observe(op, start, err)
	if err != nil {
		s.reject(op, err)
		return nil, err
	}

	s.metrics.RentalCreated(rental.RentedBy != "")
	s.publish(domain.EventRented, rental, caller.ID)
	s.log.Info().
		Str("rental_id", rental.ID).
		Str("movie_id", movieID).
		Str("client_id", clientID).
		Str("actor_id", caller.ID).
		Msg("movie rented")

	return rental, nil
}

// RequestReturn asks for the return of one of the caller's active rentals.
func (s *RentalService) RequestReturn(ctx context.Context, caller domain.Caller, rentalID string) (*domain.Rental, error) {
	start := time.Now()

	pre, err := s.lookup(ctx, rentalID)
	if err != nil {
		s.observe("request_return", start, err)
		return nil, err
	}
	if !caller.Owns(pre) {
		err = fmt.Errorf("%w: rental %s belongs to another client", domain.ErrForbidden, rentalID)
		s.observe("request_return", start, err)
		return nil, err
	}
	return s.requestReturn(ctx, start, caller, pre)
}

// RequestReturnForMovie asks for the return of the caller's open rental of movieID.
func (s *RentalService) RequestReturnForMovie(ctx context.Context, caller domain.Caller, movieID string) (*domain.Rental, error) {
	start := time.Now()

	var pre *domain.Rental
	err := s.withRetry(ctx, "find_open_rental", func(ctx context.Context) error {
		var err error
		pre, err = s.rentals.FindOpenByClientAndMovie(ctx, caller.ID, movieID)
		return err
	})
	if err != nil {
		s.observe("request_return", start, err)
		return nil, err
	}
	return s.requestReturn(ctx, start, caller, pre)
}

func (s *RentalService) requestReturn(ctx context.Context, start time.Time, caller domain.Caller, pre *domain.Rental) (*domain.Rental, error) {
	var out *domain.Rental
	err := s.runLocked(ctx, "request_return", lockKeys(pre.MovieID, pre.ClientID), func(ctx context.Context) error {
		r, err := s.rentals.FindByID(ctx, pre.ID)
		if err != nil {
			return err
		}
		if err := s.returns.Request(ctx, caller, r, s.now()); err != nil {
			return err
		}
		out = r
		return nil
	})
	s.observe("request_return", start, err)
	if err != nil {
		s.reject("request_return", err)
		return nil, err
	}

	s.metrics.ReturnRequested()
	s.publish(domain.EventReturnRequested, out, caller.ID)
	s.log.Info().Str("rental_id", out.ID).Str("client_id", out.ClientID).Msg("return requested")
	return out, nil
}

// ApproveReturn confirms a pending return and makes the movie available again.
func (s *RentalService) ApproveReturn(ctx context.Context, caller domain.Caller, rentalID string) (*domain.Rental, error) {
	start := time.Now()

	if !caller.IsAdmin() {
		err := fmt.Errorf("%w: only administrators approve returns", domain.ErrForbidden)
		s.observe("approve_return", start, err)
		return nil, err
	}

	pre, err := s.lookup(ctx, rentalID)
	if err != nil {
		s.observe("approve_return", start, err)
		return nil, err
	}

	var out *domain.Rental
	err = s.runLocked(ctx, "approve_return", lockKeys(pre.MovieID, pre.ClientID), func(ctx context.Context) error {
		r, err := s.rentals.FindByID(ctx, rentalID)
		if err != nil {
			return err
		}
		if err := s.returns.Approve(ctx, caller, r, s.now()); err != nil {
			return err
		}
		out = r
		return nil
	})
	s.observe("approve_return", start, err)
	if err != nil {
		s.reject("approve_return", err)
		return nil, err
	}

	s.metrics.ReturnApproved()
	s.publish(domain.EventReturnApproved, out, caller.ID)
	s.log.Info().
		Str("rental_id", out.ID).
		Str("movie_id", out.MovieID).
		Str("admin_id", caller.ID).
		Msg("return approved")
	return out, nil
}

// DeleteHistory removes one of the caller's returned rentals.
func (s *RentalService) DeleteHistory(ctx context.Context, caller domain.Caller, rentalID string) error {
	start := time.Now()

	pre, err := s.lookup(ctx, rentalID)
	if err != nil {
		s.observe("delete_history", start, err)
		return err
	}

	var deleted *domain.Rental
	err = s.runLocked(ctx, "delete_history", lockKeys(pre.MovieID, pre.ClientID), func(ctx context.Context) error {
		r, err := s.rentals.FindByID(ctx, rentalID)
		if err != nil {
			return err
		}
		if !caller.Owns(r) {
			return fmt.Errorf("%w: rental %s belongs to another client", domain.ErrForbidden, rentalID)
		}
		if r.Status != domain.StatusReturned {
			return fmt.Errorf("%w: rental %s is %s, only returned rentals can be deleted", domain.ErrForbidden, rentalID, r.Status)
		}
		if err := s.rentals.DeleteReturned(ctx, rentalID); err != nil {
			return err
		}
		deleted = r
		return nil
	})
	s.observe("delete_history", start, err)
	if err != nil {
		s.reject("delete_history", err)
		return err
	}

	s.publish(domain.EventDeleted, deleted, caller.ID)
	s.log.Info().Str("rental_id", rentalID).Str("client_id", caller.ID).Msg("rental deleted")
	return nil
}

// ListMine returns the caller's rentals.
func (s *RentalService) ListMine(ctx context.Context, caller domain.Caller) ([]domain.RentalView, error) {
	if caller.ID == "" {
		return nil, fmt.Errorf("%w: caller has no client identity", domain.ErrForbidden)
	}
	return s.list(ctx, "list_mine", func(ctx context.Context) ([]domain.RentalView, error) {
		return s.rentals.ListByClient(ctx, caller.ID)
	})
}

// ListPending returns the rentals waiting for return approval, newest request first.
func (s *RentalService) ListPending(ctx context.Context, caller domain.Caller) ([]domain.RentalView, error) {
	if !caller.IsAdmin() {
		return nil, fmt.Errorf("%w: pending returns are visible to administrators only", domain.ErrForbidden)
	}
	return s.list(ctx, "list_pending", s.rentals.ListPendingReturn)
}

// ListAll returns every rental matching filter.
func (s *RentalService) ListAll(ctx context.Context, caller domain.Caller, filter ports.ListRentalsFilter) ([]domain.RentalView, error) {
	if !caller.IsAdmin() {
		return nil, fmt.Errorf("%w: the rental register is visible to administrators only", domain.ErrForbidden)
	}
	switch filter.SortBy {
	case ports.SortByRentalDate, ports.SortByClientName, ports.SortByMovieTitle:
	default:
		filter.SortBy = ports.SortByRentalDate
	}
	return s.list(ctx, "list_all", func(ctx context.Context) ([]domain.RentalView, error) {
		return s.rentals.ListAll(ctx, filter)
	})
}

func (s *RentalService) list(ctx context.Context, op string, fn func(ctx context.Context) ([]domain.RentalView, error)) ([]domain.RentalView, error) {
	start := time.Now()

	var out []domain.RentalView
	err := s.withRetry(ctx, op, func(ctx context.Context) error {
		var err error
		out, err = fn(ctx)
		return err
	})
	s.observe(op, start, err)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.RentalView{}
	}
	return out, nil
}

// runLocked acquires the movie and client locks, runs fn in one transaction and
// releases the locks, retrying the whole unit once on a storage fault.
//
// Once the locks are held the caller can no longer cancel the unit; only the
// attempt deadline still applies.
func (s *RentalService) runLocked(ctx context.Context, op string, keys []string, fn func(ctx context.Context) error) error {
	return s.withRetry(ctx, op, func(ctx context.Context) error {
		unlock, err := s.locker.Lock(ctx, keys...)
		if err != nil {
			return err
		}
		defer unlock()
		if err := ctx.Err(); err != nil {
			return err
		}

		txCtx, cancel := admitted(ctx)
		defer cancel()
		return s.tx.WithinTx(txCtx, fn)
	})
}

// admitted detaches ctx from caller cancellation but keeps its deadline.
func admitted(ctx context.Context) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	if deadline, ok := ctx.Deadline(); ok {
		return context.WithDeadline(detached, deadline)
	}
	return detached, func() {}
}

func (s *RentalService) lookup(ctx context.Context, rentalID string) (*domain.Rental, error) {
	var r *domain.Rental
	err := s.withRetry(ctx, "find_rental", func(ctx context.Context) error {
		var err error
		r, err = s.rentals.FindByID(ctx, rentalID)
		return err
	})
	return r, err
}

func (s *RentalService) publish(t domain.RentalEventType, r *domain.Rental, actorID string) {
	s.audit.Publish(domain.NewRentalEvent(t, r, actorID, s.now()))
}

func (s *RentalService) observe(op string, start time.Time, err error) {
	s.metrics.OperationObserved(op, outcome(err), time.Since(start))
}

// reject logs a failed state change at a level matching its cause.
func (s *RentalService) reject(op string, err error) {
	reason := outcome(err)
	if op == "rent" || op == "admin_rent" {
		s.metrics.RentRejected(reason)
	}

	switch {
	case errors.Is(err, domain.ErrInvariantViolation):
		s.metrics.InvariantViolated(op)
		s.log.Error().Err(err).Str("op", op).Msg("rental invariant violated")
	case errors.Is(err, domain.ErrUnavailable):
		s.log.Error().Err(err).Str("op", op).Msg("storage unavailable")
	case reason == "error":
		s.log.Error().Err(err).Str("op", op).Msg("unexpected failure")
	default:
		s.log.Debug().Err(err).Str("op", op).Str("reason", reason).Msg("operation rejected")
	}
}

// outcome maps err to a short metric label.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, domain.ErrAlreadyLent):
		return "already_lent"
	case errors.Is(err, domain.ErrMovieNotFound):
		return "movie_not_found"
	case errors.Is(err, domain.ErrClientNotFound):
		return "client_not_found"
	case errors.Is(err, domain.ErrRentalNotFound):
		return "rental_not_found"
	case errors.Is(err, domain.ErrNotActive):
		return "not_active"
	case errors.Is(err, domain.ErrNotPendingReturn):
		return "not_pending_return"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	case errors.Is(err, domain.ErrInvariantViolation):
		return "invariant_violation"
	case errors.Is(err, domain.ErrUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}

func lockKeys(movieID, clientID string) []string {
	return []string{"movie:" + movieID, "client:" + clientID}
}

type nopPublisher struct{}

func (nopPublisher) Publish(domain.RentalEvent) {}
