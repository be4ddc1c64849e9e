package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/videorental/rental-lifecycle/internal/core/domain"
)

// mongoMovie keeps _id untyped because catalog documents may use ObjectIDs.
type mongoMovie struct {
	ID          interface{} `bson:"_id"`
	Title       string      `bson:"title"`
	Genres      []string    `bson:"genres,omitempty"`
	IsAvailable bool        `bson:"is_available"`
}

func (m mongoMovie) toDomain() domain.Movie {
	return domain.Movie{
		ID:          idString(m.ID),
		Title:       m.Title,
		Genres:      m.Genres,
		IsAvailable: m.IsAvailable,
	}
}

func idString(v interface{}) string {
	switch id := v.(type) {
	case primitive.ObjectID:
		return id.Hex()
	case string:
		return id
	default:
		return fmt.Sprint(id)
	}
}

// MovieRepository implements ports.MovieCatalog and ports.InventoryLedger.
type MovieRepository struct {
	col *mongo.Collection
}

func NewMovieRepository(db *mongo.Database) *MovieRepository {
	return &MovieRepository{col: db.Collection(collectionMovies)}
}

func (r *MovieRepository) FindMovie(ctx context.Context, id string) (*domain.Movie, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var m mongoMovie
	if err := r.col.FindOne(ctx, byID(id, nil)).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", domain.ErrMovieNotFound, id)
		}
		return nil, classify("find movie", err)
	}
	out := m.toDomain()
	out.ID = id
	return &out, nil
}

func (r *MovieRepository) IsAvailable(ctx context.Context, movieID string) (bool, error) {
	m, err := r.FindMovie(ctx, movieID)
	if err != nil {
		return false, err
	}
	return m.IsAvailable, nil
}

// MarkLent flips is_available to false only when it is currently true.
func (r *MovieRepository) MarkLent(ctx context.Context, movieID string) error {
	return r.flip(ctx, movieID, true, domain.ErrAlreadyLent)
}

// MarkReturned flips is_available back to true only when the movie is lent.
func (r *MovieRepository) MarkReturned(ctx context.Context, movieID string) error {
	return r.flip(ctx, movieID, false, domain.ErrNotLent)
}

func (r *MovieRepository) flip(ctx context.Context, movieID string, from bool, conflict error) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx,
		byID(movieID, bson.M{"is_available": from}),
		bson.M{"$set": bson.M{"is_available": !from}},
	)
	if err != nil {
		return classify("update movie availability", err)
	}
	if res.MatchedCount == 1 {
		return nil
	}

	n, err := r.col.CountDocuments(ctx, byID(movieID, nil))
	if err != nil {
		return classify("update movie availability", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrMovieNotFound, movieID)
	}
	return fmt.Errorf("%w: movie %s", conflict, movieID)
}

func (r *MovieRepository) ListLent(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().SetProjection(bson.M{"_id": 1}).SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{"is_available": false}, opts)
	if err != nil {
		return nil, classify("find lent movies", err)
	}
	defer cur.Close(ctx)

	var docs []struct {
		ID interface{} `bson:"_id"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, classify("decode lent movies", err)
	}

	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, idString(d.ID))
	}
	return out, nil
}
