package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/videorental/rental-lifecycle/internal/core/domain"
)

// CheckIntegrity scans open rentals against the ledger and client counters.
// Findings are reported and logged, never repaired.
func (s *RentalService) CheckIntegrity(ctx context.Context, caller domain.Caller) (*domain.IntegrityReport, error) {
	if !caller.IsAdmin() {
		return nil, fmt.Errorf("%w: integrity checks are restricted to administrators", domain.ErrForbidden)
	}
	start := time.Now()

	var report *domain.IntegrityReport
	err := s.withRetry(ctx, "check_integrity", func(ctx context.Context) error {
		return s.tx.WithinSnapshot(ctx, func(ctx context.Context) error {
			var err error
			report, err = s.scan(ctx)
			return err
		})
	})
	s.observe("check_integrity", start, err)
	if err != nil {
		return nil, err
	}

	for _, v := range report.Violations {
		s.metrics.InvariantViolated(v.Kind)
		s.log.Error().
			Str("kind", v.Kind).
			Str("movie_id", v.MovieID).
			Str("client_id", v.ClientID).
			Strs("rental_ids", v.RentalIDs).
			Msg(v.Detail)
	}
	return report, nil
}

func (s *RentalService) scan(ctx context.Context) (*domain.IntegrityReport, error) {
	open, err := s.rentals.ListOpen(ctx)
	if err != nil {
		return nil, err
	}

	report := &domain.IntegrityReport{
		CheckedAt:   s.now(),
		OpenRentals: len(open),
		Violations:  []domain.Violation{},
	}

	byMovie := make(map[string][]string)
	byClient := make(map[string][]string)
	for i := range open {
		r := &open[i]
		byMovie[r.MovieID] = append(byMovie[r.MovieID], r.ID)
		byClient[r.ClientID] = append(byClient[r.ClientID], r.ID)
		if err := r.CheckInvariants(); err != nil {
			report.Violations = append(report.Violations, domain.Violation{
				Kind:      domain.ViolationRentalDates,
				MovieID:   r.MovieID,
				ClientID:  r.ClientID,
				RentalIDs: []string{r.ID},
				Detail:    err.Error(),
			})
		}
	}

	for _, movieID := range sortedKeys(byMovie) {
		ids := byMovie[movieID]
		if len(ids) > 1 {
			report.Violations = append(report.Violations, domain.Violation{
				Kind:      domain.ViolationMovieMultipleOpen,
				MovieID:   movieID,
				RentalIDs: ids,
				Detail:    fmt.Sprintf("movie has %d open rentals", len(ids)),
			})
		}

		available, err := s.ledger.IsAvailable(ctx, movieID)
		if err != nil && !errors.Is(err, domain.ErrMovieNotFound) {
			return nil, err
		}
		if available {
			report.Violations = append(report.Violations, domain.Violation{
				Kind:      domain.ViolationLedgerAvailable,
				MovieID:   movieID,
				RentalIDs: ids,
				Detail:    "movie is marked available while rented",
			})
		}
	}

	lent, err := s.ledger.ListLent(ctx)
	if err != nil {
		return nil, err
	}
	sort.Strings(lent)
	for _, movieID := range lent {
		if _, ok := byMovie[movieID]; !ok {
			report.Violations = append(report.Violations, domain.Violation{
				Kind:    domain.ViolationLedgerLentOrphan,
				MovieID: movieID,
				Detail:  "movie is marked lent without an open rental",
			})
		}
	}

	for _, clientID := range sortedKeys(byClient) {
		ids := byClient[clientID]
		if len(ids) > s.quota.Limit() {
			report.Violations = append(report.Violations, domain.Violation{
				Kind:      domain.ViolationClientOverQuota,
				ClientID:  clientID,
				RentalIDs: ids,
				Detail:    fmt.Sprintf("client holds %d open rentals, limit is %d", len(ids), s.quota.Limit()),
			})
		}

		c, err := s.clients.FindClientByID(ctx, clientID)
		if errors.Is(err, domain.ErrClientNotFound) {
			report.Violations = append(report.Violations, domain.Violation{
				Kind:      domain.ViolationCounterDrift,
				ClientID:  clientID,
				RentalIDs: ids,
				Detail:    "open rentals reference a missing client",
			})
			continue
		}
		if err != nil {
			return nil, err
		}
		if c.ActiveRentalsCount != len(ids) {
			report.Violations = append(report.Violations, domain.Violation{
				Kind:     domain.ViolationCounterDrift,
				ClientID: clientID,
				Detail:   fmt.Sprintf("counter says %d open rentals, store has %d", c.ActiveRentalsCount, len(ids)),
			})
		}
	}

	// Clients holding no open rental at all are invisible above.
	counted, err := s.quota.Counted(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range counted {
		if _, ok := byClient[c.ID]; ok {
			continue
		}
		report.Violations = append(report.Violations, domain.Violation{
			Kind:     domain.ViolationCounterDrift,
			ClientID: c.ID,
			Detail:   fmt.Sprintf("counter says %d open rentals, store has 0", c.ActiveRentalsCount),
		})
	}

	return report, nil
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
