package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/videorental/rental-lifecycle/internal/core/domain"
)

const labelTransientTransaction = "TransientTransactionError"

var businessErrors = []error{
	domain.ErrQuotaExceeded,
	domain.ErrAlreadyLent,
	domain.ErrNotLent,
	domain.ErrInvalidTransition,
	domain.ErrForbidden,
	domain.ErrRentalNotFound,
	domain.ErrClientNotFound,
	domain.ErrMovieNotFound,
	domain.ErrNotActive,
	domain.ErrNotPendingReturn,
	domain.ErrInvariantViolation,
	domain.ErrUnavailable,
}

// classify maps driver errors onto the domain taxonomy. Domain errors pass through.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, target := range businessErrors {
		if errors.Is(err, target) {
			return err
		}
	}

	switch {
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %s: %w", domain.ErrAlreadyLent, op, err)
	case mongo.IsNetworkError(err), mongo.IsTimeout(err),
		errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %s: %w", domain.ErrUnavailable, op, err)
	}

	var se mongo.ServerError
	if errors.As(err, &se) && se.HasErrorLabel(labelTransientTransaction) {
		return fmt.Errorf("%w: %s: %w", domain.ErrUnavailable, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// byID matches a document whose _id is either the raw string or, when id is
// hex, the equivalent ObjectID. Catalog records created outside this service
// commonly use ObjectIDs.
func byID(id string, extra bson.M) bson.M {
	filter := bson.M{"_id": id}
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		filter["_id"] = bson.M{"$in": bson.A{id, oid}}
	}
	for k, v := range extra {
		filter[k] = v
	}
	return filter
}
