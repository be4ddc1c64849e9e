package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"github.com/videorental/rental-lifecycle/internal/core/ports"
)

const (
	collectionRentals = "rentals"
	collectionMovies  = "movies"
	collectionClients = "clients"
	collectionEvents  = "rental_events"
)

// Store bundles the MongoDB repositories behind ports.Store.
// Transactions need a replica set or sharded cluster.
type Store struct {
	*RentalRepository
	*MovieRepository
	*ClientRepository
	*AuditRepository

	client *mongo.Client
	db     *mongo.Database
}

var _ ports.Store = (*Store)(nil)

func NewStore(client *mongo.Client, db *mongo.Database) *Store {
	return &Store{
		RentalRepository: NewRentalRepository(db),
		MovieRepository:  NewMovieRepository(db),
		ClientRepository: NewClientRepository(db),
		AuditRepository:  NewAuditRepository(db),
		client:           client,
		db:               db,
	}
}

// WithinTx runs fn in a multi-document transaction. The driver retries fn on
// TransientTransactionError until ctx expires, so write conflicts between
// replicas resolve to a clean retry.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	sess, err := s.client.StartSession()
	if err != nil {
		return classify("start session", err)
	}
	defer sess.EndSession(context.WithoutCancel(ctx))

	txOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	}, txOpts)
	return classify("transaction", err)
}

// WithinSnapshot reuses the transaction path; its snapshot read concern gives
// every read in fn the same point in time.
func (s *Store) WithinSnapshot(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.WithinTx(ctx, fn)
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, nil); err != nil {
		return classify("ping", err)
	}
	return s.db.RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err()
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// EnsureIndexes creates the indexes the repositories rely on. The partial
// unique index on open rentals backs the one-open-rental-per-movie rule.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	rentals := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "movie_id", Value: 1}},
			Options: options.Index().
				SetName("uniq_open_rental_per_movie").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"open": true}),
		},
		{Keys: bson.D{{Key: "client_id", Value: 1}, {Key: "open", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "return_request_date", Value: -1}}},
		{Keys: bson.D{{Key: "rental_date", Value: -1}}},
	}
	if _, err := s.db.Collection(collectionRentals).Indexes().CreateMany(ctx, rentals); err != nil {
		return classify("rental indexes", err)
	}

	clients := []mongo.IndexModel{{Keys: bson.D{{Key: "email", Value: 1}}}}
	if _, err := s.db.Collection(collectionClients).Indexes().CreateMany(ctx, clients); err != nil {
		return classify("client indexes", err)
	}

	events := []mongo.IndexModel{{Keys: bson.D{{Key: "rental_id", Value: 1}, {Key: "occurred_at", Value: 1}}}}
	if _, err := s.db.Collection(collectionEvents).Indexes().CreateMany(ctx, events); err != nil {
		return classify("event indexes", err)
	}
	return nil
}
