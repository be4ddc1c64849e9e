package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/videorental/rental-lifecycle/internal/core/domain"
)

type mongoEvent struct {
	RentalID   string    `bson:"rental_id"`
	Type       string    `bson:"type"`
	ClientID   string    `bson:"client_id"`
	MovieID    string    `bson:"movie_id"`
	ActorID    string    `bson:"actor_id"`
	Status     string    `bson:"status"`
	OccurredAt time.Time `bson:"occurred_at"`
}

// AuditRepository implements ports.AuditRepository on the rental_events collection.
type AuditRepository struct {
	col *mongo.Collection
}

func NewAuditRepository(db *mongo.Database) *AuditRepository {
	return &AuditRepository{col: db.Collection(collectionEvents)}
}

func (r *AuditRepository) InsertEvent(ctx context.Context, e *domain.RentalEvent) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.InsertOne(ctx, mongoEvent{
		RentalID:   e.RentalID,
		Type:       string(e.Type),
		ClientID:   e.ClientID,
		MovieID:    e.MovieID,
		ActorID:    e.ActorID,
		Status:     string(e.Status),
		OccurredAt: e.OccurredAt.UTC(),
	})
	return classify("insert rental event", err)
}

func (r *AuditRepository) ListEvents(ctx context.Context, rentalID string) ([]domain.RentalEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "occurred_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{"rental_id": rentalID}, opts)
	if err != nil {
		return nil, classify("find rental events", err)
	}
	defer cur.Close(ctx)

	var docs []mongoEvent
	if err := cur.All(ctx, &docs); err != nil {
		return nil, classify("decode rental events", err)
	}

	events := make([]domain.RentalEvent, 0, len(docs))
	for _, d := range docs {
		events = append(events, domain.RentalEvent{
			RentalID:   d.RentalID,
			Type:       domain.RentalEventType(d.Type),
			ClientID:   d.ClientID,
			MovieID:    d.MovieID,
			ActorID:    d.ActorID,
			Status:     domain.RentalStatus(d.Status),
			OccurredAt: d.OccurredAt.UTC(),
		})
	}
	return events, nil
}
