package mongo

import (
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/videorental/rental-lifecycle/internal/core/domain"
	"github.com/videorental/rental-lifecycle/internal/core/ports"
)

// joinStages attach the renting client and the catalog movie to each rental.
// Catalog ids may be ObjectIDs, so _id is compared as a string.
func joinStages() []bson.D {
	return []bson.D{
		{{Key: "$lookup", Value: bson.M{
			"from": collectionClients,
			"let":  bson.M{"cid": "$client_id"},
			"pipeline": bson.A{
				bson.M{"$match": bson.M{"$expr": bson.M{"$eq": bson.A{bson.M{"$toString": "$_id"}, "$$cid"}}}},
				bson.M{"$limit": 1},
			},
			"as": "client",
		}}},
		{{Key: "$unwind", Value: bson.M{"path": "$client", "preserveNullAndEmptyArrays": true}}},
		{{Key: "$lookup", Value: bson.M{
			"from": collectionMovies,
			"let":  bson.M{"mid": "$movie_id"},
			"pipeline": bson.A{
				bson.M{"$match": bson.M{"$expr": bson.M{"$eq": bson.A{bson.M{"$toString": "$_id"}, "$$mid"}}}},
				bson.M{"$limit": 1},
			},
			"as": "movie",
		}}},
		{{Key: "$unwind", Value: bson.M{"path": "$movie", "preserveNullAndEmptyArrays": true}}},
	}
}

func clientRentalsPipeline(clientID string) mongo.Pipeline {
	p := mongo.Pipeline{{{Key: "$match", Value: bson.M{"client_id": clientID}}}}
	p = append(p, joinStages()...)
	return append(p, bson.D{{Key: "$sort", Value: sortSpec(ports.SortByRentalDate, true)}})
}

func pendingReturnsPipeline() mongo.Pipeline {
	p := mongo.Pipeline{{{Key: "$match", Value: bson.M{"status": string(domain.StatusPendingReturn)}}}}
	p = append(p, joinStages()...)
	return append(p, bson.D{{Key: "$sort", Value: bson.D{{Key: "return_request_date", Value: -1}, {Key: "_id", Value: 1}}}})
}

func listAllPipeline(f ports.ListRentalsFilter) mongo.Pipeline {
	var p mongo.Pipeline
	if f.Status != "" {
		p = append(p, bson.D{{Key: "$match", Value: bson.M{"status": string(f.Status)}}})
	}
	p = append(p, joinStages()...)
	if m := searchMatch(f.Search); m != nil {
		p = append(p, bson.D{{Key: "$match", Value: m}})
	}
	return append(p, bson.D{{Key: "$sort", Value: sortSpec(f.SortBy, f.SortDesc)}})
}

// searchMatch builds a case-insensitive substring match over the movie title
// and id and the client's names and email. Blank input matches everything.
func searchMatch(search string) bson.M {
	search = strings.TrimSpace(search)
	if search == "" {
		return nil
	}
	pattern := regexp.QuoteMeta(search)
	rx := bson.M{"$regex": pattern, "$options": "i"}

	fullName := bson.M{"$concat": bson.A{
		bson.M{"$ifNull": bson.A{"$client.first_name", ""}},
		" ",
		bson.M{"$ifNull": bson.A{"$client.last_name", ""}},
	}}

	return bson.M{"$or": bson.A{
		bson.M{"movie_title": rx},
		bson.M{"client.first_name": rx},
		bson.M{"client.last_name": rx},
		bson.M{"client.email": rx},
		bson.M{"movie_id": rx},
		bson.M{"$expr": bson.M{"$regexMatch": bson.M{
			"input":   fullName,
			"regex":   pattern,
			"options": "i",
		}}},
	}}
}

// sortSpec orders by the requested key with rental date and id as tie breakers.
func sortSpec(by string, desc bool) bson.D {
	dir := 1
	if desc {
		dir = -1
	}
	var spec bson.D
	switch by {
	case ports.SortByMovieTitle:
		spec = bson.D{{Key: "movie_title", Value: dir}}
	case ports.SortByClientName:
		spec = bson.D{{Key: "client.first_name", Value: dir}, {Key: "client.last_name", Value: dir}}
	}
	return append(spec, bson.E{Key: "rental_date", Value: dir}, bson.E{Key: "_id", Value: dir})
}
