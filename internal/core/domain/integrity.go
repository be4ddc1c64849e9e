package domain

import "time"

// Violation kinds reported by an integrity scan.
const (
	ViolationMovieMultipleOpen = "movie_multiple_open_rentals"
	ViolationClientOverQuota   = "client_over_quota"
	ViolationLedgerAvailable   = "ledger_available_with_open_rental"
	ViolationLedgerLentOrphan  = "ledger_lent_without_open_rental"
	ViolationCounterDrift      = "client_counter_drift"
	ViolationRentalDates       = "rental_dates_inconsistent"
)

// Violation describes one broken invariant found in stored data.
type Violation struct {
	Kind      string   `json:"kind"`
	MovieID   string   `json:"movie_id,omitempty"`
	ClientID  string   `json:"client_id,omitempty"`
	RentalIDs []string `json:"rental_ids,omitempty"`
	Detail    string   `json:"detail"`
}

// IntegrityReport is the result of scanning open rentals against the ledger.
type IntegrityReport struct {
	CheckedAt   time.Time   `json:"checked_at"`
	OpenRentals int         `json:"open_rentals"`
	Violations  []Violation `json:"violations"`
}

// Healthy reports whether the scan found nothing wrong.
func (r IntegrityReport) Healthy() bool {
	return len(r.Violations) == 0
}
