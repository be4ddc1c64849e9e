package mongo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/videorental/rental-lifecycle/internal/core/domain"
)

type mongoClient struct {
	ID                 interface{} `bson:"_id"`
	FirstName          string      `bson:"first_name"`
	LastName           string      `bson:"last_name"`
	Email              string      `bson:"email"`
	Phone              string      `bson:"phone,omitempty"`
	Role               string      `bson:"role"`
	ActiveRentalsCount int         `bson:"active_rentals_count"`
}

func (m mongoClient) toDomain() domain.Client {
	return domain.Client{
		ID:                 idString(m.ID),
		FirstName:          m.FirstName,
		LastName:           m.LastName,
		Email:              m.Email,
		Phone:              m.Phone,
		Role:               m.Role,
		ActiveRentalsCount: m.ActiveRentalsCount,
	}
}

// ClientRepository implements ports.ClientDirectory and ports.QuotaCounter.
type ClientRepository struct {
	col *mongo.Collection
}

func NewClientRepository(db *mongo.Database) *ClientRepository {
	return &ClientRepository{col: db.Collection(collectionClients)}
}

func (r *ClientRepository) FindClientByID(ctx context.Context, id string) (*domain.Client, error) {
	return r.findOne(ctx, byID(id, nil), id)
}

func (r *ClientRepository) FindClientByEmail(ctx context.Context, email string) (*domain.Client, error) {
	return r.findOne(ctx, bson.M{"email": email}, email)
}

func (r *ClientRepository) findOne(ctx context.Context, filter bson.M, key string) (*domain.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var m mongoClient
	if err := r.col.FindOne(ctx, filter).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", domain.ErrClientNotFound, key)
		}
		return nil, classify("find client", err)
	}
	out := m.toDomain()
	return &out, nil
}

// FindClientsByFullName compares the lower-cased "first last" concatenation
// with the normalized input.
func (r *ClientRepository) FindClientsByFullName(ctx context.Context, fullName string) ([]domain.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	name := strings.ToLower(strings.Join(strings.Fields(fullName), " "))
	if name == "" {
		return nil, nil
	}
	filter := bson.M{"$expr": bson.M{"$eq": bson.A{
		bson.M{"$toLower": bson.M{"$concat": bson.A{"$first_name", " ", "$last_name"}}},
		name,
	}}}

	cur, err := r.col.Find(ctx, filter)
	if err != nil {
		return nil, classify("find clients by name", err)
	}
	defer cur.Close(ctx)

	var docs []mongoClient
	if err := cur.All(ctx, &docs); err != nil {
		return nil, classify("decode clients", err)
	}

	out := make([]domain.Client, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *ClientRepository) ListCounted(ctx context.Context) ([]domain.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, bson.M{"active_rentals_count": bson.M{"$gt": 0}})
	if err != nil {
		return nil, classify("find counted clients", err)
	}
	defer cur.Close(ctx)

	var docs []mongoClient
	if err := cur.All(ctx, &docs); err != nil {
		return nil, classify("decode counted clients", err)
	}

	out := make([]domain.Client, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// AcquireSlot increments active_rentals_count with a conditional update, so two
// admissions racing on one client cannot both pass the limit.
func (r *ClientRepository) AcquireSlot(ctx context.Context, clientID string, limit int) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	below := bson.M{"$or": bson.A{
		bson.M{"active_rentals_count": bson.M{"$lt": limit}},
		bson.M{"active_rentals_count": bson.M{"$exists": false}},
	}}
	res, err := r.col.UpdateOne(ctx, byID(clientID, below), bson.M{"$inc": bson.M{"active_rentals_count": 1}})
	if err != nil {
		return classify("acquire rental slot", err)
	}
	if res.MatchedCount == 1 {
		return nil
	}

	c, err := r.FindClientByID(ctx, clientID)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: client %s counter at %d", domain.ErrQuotaExceeded, clientID, c.ActiveRentalsCount)
}

// ReleaseSlot decrements the counter, never below zero.
func (r *ClientRepository) ReleaseSlot(ctx context.Context, clientID string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	positive := bson.M{"active_rentals_count": bson.M{"$gt": 0}}
	res, err := r.col.UpdateOne(ctx, byID(clientID, positive), bson.M{"$inc": bson.M{"active_rentals_count": -1}})
	if err != nil {
		return classify("release rental slot", err)
	}
	if res.MatchedCount == 1 {
		return nil
	}
	_, err = r.FindClientByID(ctx, clientID)
	return err
}
