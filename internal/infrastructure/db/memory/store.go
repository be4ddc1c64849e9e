// Package memory is an in-process storage backend. A transaction holds the
// store mutex for its whole duration and restores a snapshot on failure, so
// transactions are fully serialised.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/jinzhu/copier"

	"github.com/videorental/rental-lifecycle/internal/core/domain"
	"github.com/videorental/rental-lifecycle/internal/core/ports"
)

type state struct {
	Movies  map[string]domain.Movie
	Clients map[string]domain.Client
	Rentals map[string]domain.Rental
	Events  []domain.RentalEvent
}

// Store implements ports.Store in memory.
type Store struct {
	mu sync.Mutex
	st state
}

var _ ports.Store = (*Store)(nil)

type txKey struct{}

func NewStore() *Store {
	return &Store{st: state{
		Movies:  make(map[string]domain.Movie),
		Clients: make(map[string]domain.Client),
		Rentals: make(map[string]domain.Rental),
	}}
}

// AddMovie inserts or replaces a catalog entry.
func (s *Store) AddMovie(m domain.Movie) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.Genres = append([]string(nil), m.Genres...)
	s.st.Movies[m.ID] = m
}

// AddClient inserts or replaces a client record.
func (s *Store) AddClient(c domain.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.Clients[c.ID] = c
}

// WithinTx implements ports.Transactor. Nested calls join the outer transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var snapshot state
	if err := copier.CopyWithOption(&snapshot, &s.st, copier.Option{DeepCopy: true}); err != nil {
		return fmt.Errorf("memory snapshot: %w", err)
	}

	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.st = snapshot
		return err
	}
	if err := ctx.Err(); err != nil {
		s.st = snapshot
		return fmt.Errorf("%w: transaction aborted: %w", domain.ErrUnavailable, err)
	}
	return nil
}

// WithinSnapshot holds the store lock for the whole of fn.
func (s *Store) WithinSnapshot(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.WithinTx(ctx, fn)
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// do runs fn under the store mutex unless ctx already holds it.
func (s *Store) do(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrUnavailable, err)
	}
	if !s.inTx(ctx) {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	return fn()
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Close(context.Context) error {
	return nil
}

// --- MovieCatalog / InventoryLedger ---

func (s *Store) FindMovie(ctx context.Context, id string) (*domain.Movie, error) {
	var out *domain.Movie
	err := s.do(ctx, func() error {
		m, ok := s.st.Movies[id]
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrMovieNotFound, id)
		}
		m.Genres = append([]string(nil), m.Genres...)
		out = &m
		return nil
	})
	return out, err
}

func (s *Store) IsAvailable(ctx context.Context, movieID string) (bool, error) {
	m, err := s.FindMovie(ctx, movieID)
	if err != nil {
		return false, err
	}
	return m.IsAvailable, nil
}

func (s *Store) MarkLent(ctx context.Context, movieID string) error {
	return s.do(ctx, func() error {
		m, ok := s.st.Movies[movieID]
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrMovieNotFound, movieID)
		}
		if !m.IsAvailable {
			return fmt.Errorf("%w: movie %s", domain.ErrAlreadyLent, movieID)
		}
		m.IsAvailable = false
		s.st.Movies[movieID] = m
		return nil
	})
}

func (s *Store) MarkReturned(ctx context.Context, movieID string) error {
	return s.do(ctx, func() error {
		m, ok := s.st.Movies[movieID]
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrMovieNotFound, movieID)
		}
		if m.IsAvailable {
			return fmt.Errorf("%w: movie %s", domain.ErrNotLent, movieID)
		}
		m.IsAvailable = true
		s.st.Movies[movieID] = m
		return nil
	})
}

func (s *Store) ListLent(ctx context.Context) ([]string, error) {
	var out []string
	err := s.do(ctx, func() error {
		for id, m := range s.st.Movies {
			if !m.IsAvailable {
				out = append(out, id)
			}
		}
		return nil
	})
	sort.Strings(out)
	return out, err
}

// --- ClientDirectory / QuotaCounter ---

func (s *Store) FindClientByID(ctx context.Context, id string) (*domain.Client, error) {
	var out *domain.Client
	err := s.do(ctx, func() error {
		c, ok := s.st.Clients[id]
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrClientNotFound, id)
		}
		out = &c
		return nil
	})
	return out, err
}

func (s *Store) FindClientByEmail(ctx context.Context, email string) (*domain.Client, error) {
	var out *domain.Client
	err := s.do(ctx, func() error {
		for _, c := range s.st.Clients {
			if c.Email == email {
				out = &c
				return nil
			}
		}
		return fmt.Errorf("%w: %s", domain.ErrClientNotFound, email)
	})
	return out, err
}

func (s *Store) FindClientsByFullName(ctx context.Context, fullName string) ([]domain.Client, error) {
	var out []domain.Client
	err := s.do(ctx, func() error {
		for _, c := range s.st.Clients {
			if c.MatchesFullName(fullName) {
				out = append(out, c)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (s *Store) AcquireSlot(ctx context.Context, clientID string, limit int) error {
	return s.do(ctx, func() error {
		c, ok := s.st.Clients[clientID]
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrClientNotFound, clientID)
		}
		if c.ActiveRentalsCount >= limit {
			return fmt.Errorf("%w: client %s counter at %d", domain.ErrQuotaExceeded, clientID, c.ActiveRentalsCount)
		}
		c.ActiveRentalsCount++
		s.st.Clients[clientID] = c
		return nil
	})
}

func (s *Store) ReleaseSlot(ctx context.Context, clientID string) error {
	return s.do(ctx, func() error {
		c, ok := s.st.Clients[clientID]
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrClientNotFound, clientID)
		}
		if c.ActiveRentalsCount > 0 {
			c.ActiveRentalsCount--
		}
		s.st.Clients[clientID] = c
		return nil
	})
}

func (s *Store) ListCounted(ctx context.Context) ([]domain.Client, error) {
	var out []domain.Client
	err := s.do(ctx, func() error {
		for _, c := range s.st.Clients {
			if c.ActiveRentalsCount > 0 {
				out = append(out, c)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

// --- RentalRepository ---

func (s *Store) Create(ctx context.Context, r *domain.Rental) error {
	return s.do(ctx, func() error {
		if _, ok := s.st.Rentals[r.ID]; ok {
			return fmt.Errorf("memory: rental %s already exists", r.ID)
		}
		for _, other := range s.st.Rentals {
			if other.MovieID == r.MovieID && other.IsOpen() {
				return fmt.Errorf("%w: movie %s has open rental %s", domain.ErrAlreadyLent, r.MovieID, other.ID)
			}
		}
		s.st.Rentals[r.ID] = *r
		return nil
	})
}

func (s *Store) FindByID(ctx context.Context, id string) (*domain.Rental, error) {
	var out *domain.Rental
	err := s.do(ctx, func() error {
		r, ok := s.st.Rentals[id]
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrRentalNotFound, id)
		}
		out = &r
		return nil
	})
	return out, err
}

func (s *Store) FindOpenByClientAndMovie(ctx context.Context, clientID, movieID string) (*domain.Rental, error) {
	var out *domain.Rental
	err := s.do(ctx, func() error {
		for _, r := range s.st.Rentals {
			if r.ClientID == clientID && r.MovieID == movieID && r.IsOpen() {
				out = &r
				return nil
			}
		}
		return fmt.Errorf("%w: client %s holds no open rental of movie %s", domain.ErrRentalNotFound, clientID, movieID)
	})
	return out, err
}

func (s *Store) ListByClient(ctx context.Context, clientID string) ([]domain.RentalView, error) {
	views, err := s.views(ctx, func(r domain.Rental) bool { return r.ClientID == clientID })
	sortViews(views, ports.SortByRentalDate, true)
	return views, err
}

func (s *Store) ListPendingReturn(ctx context.Context) ([]domain.RentalView, error) {
	views, err := s.views(ctx, func(r domain.Rental) bool { return r.Status == domain.StatusPendingReturn })
	sort.SliceStable(views, func(i, j int) bool {
		return views[i].ReturnRequestDate.After(*views[j].ReturnRequestDate)
	})
	return views, err
}

func (s *Store) ListAll(ctx context.Context, f ports.ListRentalsFilter) ([]domain.RentalView, error) {
	views, err := s.views(ctx, func(r domain.Rental) bool {
		return f.Status == "" || r.Status == f.Status
	})
	if err != nil {
		return nil, err
	}

	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		matched := views[:0]
		for _, v := range views {
			if matchesSearch(v, q) {
				matched = append(matched, v)
			}
		}
		views = matched
	}

	sortViews(views, f.SortBy, f.SortDesc)
	return views, nil
}

func (s *Store) ListOpen(ctx context.Context) ([]domain.Rental, error) {
	var out []domain.Rental
	err := s.do(ctx, func() error {
		for _, r := range s.st.Rentals {
			if r.IsOpen() {
				out = append(out, r)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (s *Store) CountOpenByClient(ctx context.Context, clientID string) (int, error) {
	return s.count(ctx, func(r domain.Rental) bool { return r.ClientID == clientID && r.IsOpen() })
}

func (s *Store) CountOpenByMovie(ctx context.Context, movieID string) (int, error) {
	return s.count(ctx, func(r domain.Rental) bool { return r.MovieID == movieID && r.IsOpen() })
}

func (s *Store) SaveTransition(ctx context.Context, r *domain.Rental, from domain.RentalStatus) error {
	return s.do(ctx, func() error {
		cur, ok := s.st.Rentals[r.ID]
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrRentalNotFound, r.ID)
		}
		if cur.Status != from {
			return fmt.Errorf("%w: rental %s is %s, expected %s", domain.ErrInvalidTransition, r.ID, cur.Status, from)
		}
		s.st.Rentals[r.ID] = *r
		return nil
	})
}

func (s *Store) DeleteReturned(ctx context.Context, id string) error {
	return s.do(ctx, func() error {
		r, ok := s.st.Rentals[id]
		if !ok || r.Status != domain.StatusReturned {
			return fmt.Errorf("%w: no returned rental %s", domain.ErrRentalNotFound, id)
		}
		delete(s.st.Rentals, id)
		return nil
	})
}

// --- AuditRepository ---

func (s *Store) InsertEvent(ctx context.Context, event *domain.RentalEvent) error {
	return s.do(ctx, func() error {
		s.st.Events = append(s.st.Events, *event)
		return nil
	})
}

func (s *Store) ListEvents(ctx context.Context, rentalID string) ([]domain.RentalEvent, error) {
	var out []domain.RentalEvent
	err := s.do(ctx, func() error {
		for _, e := range s.st.Events {
			if e.RentalID == rentalID {
				out = append(out, e)
			}
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].OccurredAt.Before(out[j].OccurredAt) })
	return out, err
}

// --- helpers ---

func (s *Store) count(ctx context.Context, match func(domain.Rental) bool) (int, error) {
	n := 0
	err := s.do(ctx, func() error {
		for _, r := range s.st.Rentals {
			if match(r) {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (s *Store) views(ctx context.Context, match func(domain.Rental) bool) ([]domain.RentalView, error) {
	out := []domain.RentalView{}
	err := s.do(ctx, func() error {
		for _, r := range s.st.Rentals {
			if !match(r) {
				continue
			}
			v := domain.RentalView{Rental: r}
			if c, ok := s.st.Clients[r.ClientID]; ok {
				v.ClientFirstName = c.FirstName
				v.ClientLastName = c.LastName
				v.ClientEmail = c.Email
				v.ClientPhone = c.Phone
			}
			if m, ok := s.st.Movies[r.MovieID]; ok {
				v.MovieGenres = append([]string(nil), m.Genres...)
			}
			out = append(out, v)
		}
		return nil
	})
	return out, err
}

func matchesSearch(v domain.RentalView, q string) bool {
	fields := []string{v.ClientFirstName, v.ClientLastName, v.ClientName(), v.ClientEmail, v.MovieTitle, v.MovieID}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

// sortViews orders views by key with rental date and id as tie breakers.
func sortViews(views []domain.RentalView, key string, desc bool) {
	less := func(a, b domain.RentalView) bool {
		switch key {
		case ports.SortByClientName:
			if a.ClientFirstName != b.ClientFirstName {
				return a.ClientFirstName < b.ClientFirstName
			}
			if a.ClientLastName != b.ClientLastName {
				return a.ClientLastName < b.ClientLastName
			}
		case ports.SortByMovieTitle:
			if a.MovieTitle != b.MovieTitle {
				return a.MovieTitle < b.MovieTitle
			}
		}
		if !a.RentalDate.Equal(b.RentalDate) {
			return a.RentalDate.Before(b.RentalDate)
		}
		return a.ID < b.ID
	}
	sort.Slice(views, func(i, j int) bool {
		if desc {
			return less(views[j], views[i])
		}
		return less(views[i], views[j])
	})
}
