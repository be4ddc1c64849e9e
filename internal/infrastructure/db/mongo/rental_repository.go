package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/videorental/rental-lifecycle/internal/core/domain"
	"github.com/videorental/rental-lifecycle/internal/core/ports"
)

// mongoRental is the stored shape of a rental. Open mirrors the status so the
// partial unique index can cover active and pending rentals together.
type mongoRental struct {
	ID                string     `bson:"_id"`
	MovieID           string     `bson:"movie_id"`
	ClientID          string     `bson:"client_id"`
	MovieTitle        string     `bson:"movie_title"`
	RentedBy          string     `bson:"rented_by,omitempty"`
	RentalDate        time.Time  `bson:"rental_date"`
	PlannedReturnDate time.Time  `bson:"planned_return_date"`
	ReturnRequestDate *time.Time `bson:"return_request_date,omitempty"`
	ActualReturnDate  *time.Time `bson:"actual_return_date,omitempty"`
	Status            string     `bson:"status"`
	Open              bool       `bson:"open"`
}

type mongoRentalView struct {
	mongoRental `bson:",inline"`
	Client      *mongoClient `bson:"client,omitempty"`
	Movie       *mongoMovie  `bson:"movie,omitempty"`
}

func toMongoRental(r *domain.Rental) mongoRental {
	return mongoRental{
		ID:                r.ID,
		MovieID:           r.MovieID,
		ClientID:          r.ClientID,
		MovieTitle:        r.MovieTitle,
		RentedBy:          r.RentedBy,
		RentalDate:        r.RentalDate.UTC(),
		PlannedReturnDate: r.PlannedReturnDate.UTC(),
		ReturnRequestDate: utcPtr(r.ReturnRequestDate),
		ActualReturnDate:  utcPtr(r.ActualReturnDate),
		Status:            string(r.Status),
		Open:              r.IsOpen(),
	}
}

func (m mongoRental) toDomain() domain.Rental {
	return domain.Rental{
		ID:                m.ID,
		MovieID:           m.MovieID,
		ClientID:          m.ClientID,
		MovieTitle:        m.MovieTitle,
		RentedBy:          m.RentedBy,
		RentalDate:        m.RentalDate.UTC(),
		PlannedReturnDate: m.PlannedReturnDate.UTC(),
		ReturnRequestDate: utcPtr(m.ReturnRequestDate),
		ActualReturnDate:  utcPtr(m.ActualReturnDate),
		Status:            domain.RentalStatus(m.Status),
	}
}

func (m mongoRentalView) toDomain() domain.RentalView {
	v := domain.RentalView{Rental: m.mongoRental.toDomain()}
	if m.Client != nil {
		v.ClientFirstName = m.Client.FirstName
		v.ClientLastName = m.Client.LastName
		v.ClientEmail = m.Client.Email
		v.ClientPhone = m.Client.Phone
	}
	if m.Movie != nil {
		v.MovieGenres = m.Movie.Genres
	}
	return v
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// RentalRepository implements ports.RentalRepository using MongoDB.
type RentalRepository struct {
	col *mongo.Collection
}

func NewRentalRepository(db *mongo.Database) *RentalRepository {
	return &RentalRepository{col: db.Collection(collectionRentals)}
}

// Create inserts a new rental document.
func (r *RentalRepository) Create(ctx context.Context, rental *domain.Rental) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.InsertOne(ctx, toMongoRental(rental))
	return classify("insert rental", err)
}

func (r *RentalRepository) FindByID(ctx context.Context, id string) (*domain.Rental, error) {
	return r.findOne(ctx, bson.M{"_id": id}, fmt.Sprintf("rental %s", id))
}

func (r *RentalRepository) FindOpenByClientAndMovie(ctx context.Context, clientID, movieID string) (*domain.Rental, error) {
	filter := bson.M{"client_id": clientID, "movie_id": movieID, "open": true}
	return r.findOne(ctx, filter, fmt.Sprintf("client %s holds no open rental of movie %s", clientID, movieID))
}

func (r *RentalRepository) findOne(ctx context.Context, filter bson.M, what string) (*domain.Rental, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var m mongoRental
	if err := r.col.FindOne(ctx, filter).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", domain.ErrRentalNotFound, what)
		}
		return nil, classify("find rental", err)
	}
	out := m.toDomain()
	return &out, nil
}

func (r *RentalRepository) ListByClient(ctx context.Context, clientID string) ([]domain.RentalView, error) {
	return r.aggregate(ctx, clientRentalsPipeline(clientID))
}

func (r *RentalRepository) ListPendingReturn(ctx context.Context) ([]domain.RentalView, error) {
	return r.aggregate(ctx, pendingReturnsPipeline())
}

func (r *RentalRepository) ListAll(ctx context.Context, f ports.ListRentalsFilter) ([]domain.RentalView, error) {
	return r.aggregate(ctx, listAllPipeline(f))
}

func (r *RentalRepository) aggregate(ctx context.Context, pipeline mongo.Pipeline) ([]domain.RentalView, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, classify("aggregate rentals", err)
	}
	defer cur.Close(ctx)

	var docs []mongoRentalView
	if err := cur.All(ctx, &docs); err != nil {
		return nil, classify("decode rentals", err)
	}

	out := make([]domain.RentalView, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (r *RentalRepository) ListOpen(ctx context.Context) ([]domain.Rental, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{"open": true}, opts)
	if err != nil {
		return nil, classify("find open rentals", err)
	}
	defer cur.Close(ctx)

	var docs []mongoRental
	if err := cur.All(ctx, &docs); err != nil {
		return nil, classify("decode open rentals", err)
	}

	out := make([]domain.Rental, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (r *RentalRepository) CountOpenByClient(ctx context.Context, clientID string) (int, error) {
	return r.count(ctx, bson.M{"client_id": clientID, "open": true})
}

func (r *RentalRepository) CountOpenByMovie(ctx context.Context, movieID string) (int, error) {
	return r.count(ctx, bson.M{"movie_id": movieID, "open": true})
}

func (r *RentalRepository) count(ctx context.Context, filter bson.M) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return 0, classify("count rentals", err)
	}
	return int(n), nil
}

// SaveTransition replaces the rental only while its stored status is still from.
func (r *RentalRepository) SaveTransition(ctx context.Context, rental *domain.Rental, from domain.RentalStatus) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": rental.ID, "status": string(from)}, toMongoRental(rental))
	if err != nil {
		return classify("save rental", err)
	}
	if res.MatchedCount == 1 {
		return nil
	}

	n, err := r.col.CountDocuments(ctx, bson.M{"_id": rental.ID})
	if err != nil {
		return classify("save rental", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrRentalNotFound, rental.ID)
	}
	return fmt.Errorf("%w: rental %s is no longer %s", domain.ErrInvalidTransition, rental.ID, from)
}

func (r *RentalRepository) DeleteReturned(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id, "status": string(domain.StatusReturned)})
	if err != nil {
		return classify("delete rental", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%w: no returned rental %s", domain.ErrRentalNotFound, id)
	}
	return nil
}
