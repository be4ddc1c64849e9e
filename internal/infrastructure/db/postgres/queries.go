package postgres

import (
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/videorental/rental-lifecycle/internal/core/domain"
	"github.com/videorental/rental-lifecycle/internal/core/ports"
)

const (
	dialectPostgres = "postgres"

	tableRentals = "rentals"
	tableMovies  = "movies"
	tableClients = "clients"
	tableEvents  = "rental_events"

	colID                = "id"
	colMovieID           = "movie_id"
	colClientID          = "client_id"
	colMovieTitle        = "movie_title"
	colRentedBy          = "rented_by"
	colRentalDate        = "rental_date"
	colPlannedReturnDate = "planned_return_date"
	colReturnRequestDate = "return_request_date"
	colActualReturnDate  = "actual_return_date"
	colStatus            = "status"
	colIsAvailable       = "is_available"
	colActiveRentals     = "active_rentals_count"
	colEmail             = "email"
	colOccurredAt        = "occurred_at"
)

var (
	builder = goqu.Dialect(dialectPostgres)

	rentalCols = []interface{}{
		colID, colMovieID, colClientID, colMovieTitle, colRentedBy, colRentalDate,
		colPlannedReturnDate, colReturnRequestDate, colActualReturnDate, colStatus,
	}
	movieCols  = []interface{}{colID, "title", "genres", colIsAvailable}
	clientCols = []interface{}{colID, "first_name", "last_name", colEmail, "phone", "role", colActiveRentals}
	eventCols  = []interface{}{"rental_id", "type", colClientID, colMovieID, "actor_id", colStatus, colOccurredAt}
)

func openStatus(col string) exp.BooleanExpression {
	statuses := domain.OpenStatuses()
	vals := make([]interface{}, len(statuses))
	for i, st := range statuses {
		vals[i] = string(st)
	}
	return goqu.I(col).In(vals...)
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func rentalRecord(r *domain.Rental) goqu.Record {
	return goqu.Record{
		colID:                r.ID,
		colMovieID:           r.MovieID,
		colClientID:          r.ClientID,
		colMovieTitle:        r.MovieTitle,
		colRentedBy:          r.RentedBy,
		colRentalDate:        r.RentalDate.UTC(),
		colPlannedReturnDate: r.PlannedReturnDate.UTC(),
		colReturnRequestDate: nullableTime(r.ReturnRequestDate),
		colActualReturnDate:  nullableTime(r.ActualReturnDate),
		colStatus:            string(r.Status),
	}
}

func insertRentalQuery(r *domain.Rental) (string, []interface{}, error) {
	return builder.Insert(tableRentals).Rows(rentalRecord(r)).Prepared(true).ToSQL()
}

// selectRentalQuery locks the row when forUpdate is set, so a concurrent
// transition on the same rental waits for this transaction.
func selectRentalQuery(where exp.Expression, forUpdate bool) (string, []interface{}, error) {
	ds := builder.From(tableRentals).Select(rentalCols...).Where(where).Limit(1)
	if forUpdate {
		ds = ds.ForUpdate(exp.Wait)
	}
	return ds.Prepared(true).ToSQL()
}

func openRentalsQuery() (string, []interface{}, error) {
	return builder.From(tableRentals).
		Select(rentalCols...).
		Where(openStatus(colStatus)).
		Order(goqu.I(colID).Asc()).
		Prepared(true).ToSQL()
}

func countOpenQuery(col, value string) (string, []interface{}, error) {
	return builder.From(tableRentals).
		Select(goqu.COUNT(goqu.Star())).
		Where(goqu.Ex{col: value}, openStatus(colStatus)).
		Prepared(true).ToSQL()
}

// saveTransitionQuery updates the mutable columns only while the stored
// status still equals from.
func saveTransitionQuery(r *domain.Rental, from domain.RentalStatus) (string, []interface{}, error) {
	return builder.Update(tableRentals).
		Set(goqu.Record{
			colStatus:            string(r.Status),
			colPlannedReturnDate: r.PlannedReturnDate.UTC(),
			colReturnRequestDate: nullableTime(r.ReturnRequestDate),
			colActualReturnDate:  nullableTime(r.ActualReturnDate),
		}).
		Where(goqu.Ex{colID: r.ID, colStatus: string(from)}).
		Prepared(true).ToSQL()
}

func deleteReturnedQuery(id string) (string, []interface{}, error) {
	return builder.Delete(tableRentals).
		Where(goqu.Ex{colID: id, colStatus: string(domain.StatusReturned)}).
		Prepared(true).ToSQL()
}

func existsQuery(table, id string) (string, []interface{}, error) {
	return builder.From(table).
		Select(goqu.COUNT(goqu.Star())).
		Where(goqu.Ex{colID: id}).
		Prepared(true).ToSQL()
}

// viewDataset joins clients and movies onto rentals. Missing joins read as
// empty values.
func viewDataset() *goqu.SelectDataset {
	return builder.From(goqu.T(tableRentals).As("r")).
		LeftJoin(goqu.T(tableClients).As("c"), goqu.On(goqu.I("c.id").Eq(goqu.I("r.client_id")))).
		LeftJoin(goqu.T(tableMovies).As("m"), goqu.On(goqu.I("m.id").Eq(goqu.I("r.movie_id")))).
		Select(
			goqu.I("r.id"), goqu.I("r.movie_id"), goqu.I("r.client_id"), goqu.I("r.movie_title"),
			goqu.I("r.rented_by"), goqu.I("r.rental_date"), goqu.I("r.planned_return_date"),
			goqu.I("r.return_request_date"), goqu.I("r.actual_return_date"), goqu.I("r.status"),
			goqu.COALESCE(goqu.I("c.first_name"), "").As("client_first_name"),
			goqu.COALESCE(goqu.I("c.last_name"), "").As("client_last_name"),
			goqu.COALESCE(goqu.I("c.email"), "").As("client_email"),
			goqu.COALESCE(goqu.I("c.phone"), "").As("client_phone"),
			goqu.COALESCE(goqu.I("m.genres"), goqu.L("'{}'::text[]")).As("movie_genres"),
		)
}

func clientViewsQuery(clientID string) (string, []interface{}, error) {
	return viewDataset().
		Where(goqu.I("r.client_id").Eq(clientID)).
		Order(viewOrder(ports.SortByRentalDate, true)...).
		Prepared(true).ToSQL()
}

func pendingViewsQuery() (string, []interface{}, error) {
	return viewDataset().
		Where(goqu.I("r.status").Eq(string(domain.StatusPendingReturn))).
		Order(goqu.I("r.return_request_date").Desc(), goqu.I("r.id").Asc()).
		Prepared(true).ToSQL()
}

func listViewsQuery(f ports.ListRentalsFilter) (string, []interface{}, error) {
	ds := viewDataset()
	if f.Status != "" {
		ds = ds.Where(goqu.I("r.status").Eq(string(f.Status)))
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		pattern := "%" + escapeLike(search) + "%"
		ds = ds.Where(goqu.Or(
			goqu.I("r.movie_title").ILike(pattern),
			goqu.I("r.movie_id").ILike(pattern),
			goqu.I("c.first_name").ILike(pattern),
			goqu.I("c.last_name").ILike(pattern),
			goqu.I("c.email").ILike(pattern),
			goqu.L(`("c"."first_name" || ' ' || "c"."last_name")`).ILike(pattern),
		))
	}
	return ds.Order(viewOrder(f.SortBy, f.SortDesc)...).Prepared(true).ToSQL()
}

// viewOrder sorts by the requested key with rental date and id as tie breakers.
func viewOrder(by string, desc bool) []exp.OrderedExpression {
	dir := func(col string) exp.OrderedExpression {
		if desc {
			return goqu.I(col).Desc()
		}
		return goqu.I(col).Asc()
	}
	var order []exp.OrderedExpression
	switch by {
	case ports.SortByMovieTitle:
		order = append(order, dir("r.movie_title"))
	case ports.SortByClientName:
		order = append(order, dir("c.first_name"), dir("c.last_name"))
	}
	return append(order, dir("r.rental_date"), dir("r.id"))
}

// escapeLike escapes the LIKE wildcards so the search is a plain substring match.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func selectMovieQuery(id string) (string, []interface{}, error) {
	return builder.From(tableMovies).Select(movieCols...).Where(goqu.Ex{colID: id}).Prepared(true).ToSQL()
}

// flipAvailabilityQuery sets is_available to !from only when it currently equals from.
func flipAvailabilityQuery(id string, from bool) (string, []interface{}, error) {
	return builder.Update(tableMovies).
		Set(goqu.Record{colIsAvailable: !from}).
		Where(goqu.Ex{colID: id, colIsAvailable: from}).
		Prepared(true).ToSQL()
}

func lentMoviesQuery() (string, []interface{}, error) {
	return builder.From(tableMovies).
		Select(colID).
		Where(goqu.Ex{colIsAvailable: false}).
		Order(goqu.I(colID).Asc()).
		Prepared(true).ToSQL()
}

func selectClientQuery(where exp.Expression) (string, []interface{}, error) {
	return builder.From(tableClients).
		Select(clientCols...).
		Where(where).
		Order(goqu.I(colID).Asc()).
		Prepared(true).ToSQL()
}

func clientsByFullNameQuery(fullName string) (string, []interface{}, error) {
	name := strings.ToLower(strings.Join(strings.Fields(fullName), " "))
	return selectClientQuery(goqu.L(`lower("first_name" || ' ' || "last_name")`).Eq(name))
}

func countedClientsQuery() (string, []interface{}, error) {
	return selectClientQuery(goqu.I(colActiveRentals).Gt(0))
}

// acquireSlotQuery increments the counter only while it is below limit.
func acquireSlotQuery(clientID string, limit int) (string, []interface{}, error) {
	return builder.Update(tableClients).
		Set(goqu.Record{colActiveRentals: goqu.L(`"active_rentals_count" + 1`)}).
		Where(goqu.Ex{colID: clientID}, goqu.I(colActiveRentals).Lt(limit)).
		Prepared(true).ToSQL()
}

func releaseSlotQuery(clientID string) (string, []interface{}, error) {
	return builder.Update(tableClients).
		Set(goqu.Record{colActiveRentals: goqu.L(`"active_rentals_count" - 1`)}).
		Where(goqu.Ex{colID: clientID}, goqu.I(colActiveRentals).Gt(0)).
		Prepared(true).ToSQL()
}

func insertEventQuery(e *domain.RentalEvent) (string, []interface{}, error) {
	return builder.Insert(tableEvents).Rows(goqu.Record{
		"rental_id":   e.RentalID,
		"type":        string(e.Type),
		colClientID:   e.ClientID,
		colMovieID:    e.MovieID,
		"actor_id":    e.ActorID,
		colStatus:     string(e.Status),
		colOccurredAt: e.OccurredAt.UTC(),
	}).Prepared(true).ToSQL()
}

func listEventsQuery(rentalID string) (string, []interface{}, error) {
	return builder.From(tableEvents).
		Select(eventCols...).
		Where(goqu.Ex{"rental_id": rentalID}).
		Order(goqu.I(colOccurredAt).Asc(), goqu.I(colID).Asc()).
		Prepared(true).ToSQL()
}
