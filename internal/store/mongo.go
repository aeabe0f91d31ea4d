package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/yumovie/backend/internal/apperr"
)

const (
	sharedListsCollection = "sharedwatchlists"
	watchlistCollection   = "watchlistitems"
	reviewsCollection     = "reviews"
)

// EnsureIndexes creates the unique indexes the application relies on as a
// backstop for its own duplicate checks.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	userMovie := mongo.IndexModel{
		Keys:    bson.D{{Key: "user", Value: 1}, {Key: "movie_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := db.Collection(watchlistCollection).Indexes().CreateOne(ctx, userMovie); err != nil {
		return fmt.Errorf("watchlist index: %w", err)
	}
	if _, err := db.Collection(reviewsCollection).Indexes().CreateOne(ctx, userMovie); err != nil {
		return fmt.Errorf("reviews index: %w", err)
	}
	members := mongo.IndexModel{Keys: bson.D{{Key: "members", Value: 1}}}
	if _, err := db.Collection(sharedListsCollection).Indexes().CreateOne(ctx, members); err != nil {
		return fmt.Errorf("shared lists index: %w", err)
	}
	return nil
}

// MongoPinger reports MongoDB reachability for health checks.
type MongoPinger struct {
	client *mongo.Client
}

func NewMongoPinger(client *mongo.Client) *MongoPinger {
	return &MongoPinger{client: client}
}

func (p *MongoPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx, readpref.Primary())
}

// objectID parses a hex id. Malformed ids can never match a document, so
// they are reported as not found.
func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, apperr.ErrRecordNotFound
	}
	return oid, nil
}

// mongoErr maps driver errors onto the apperr sentinels.
func mongoErr(err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return apperr.ErrRecordNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", apperr.ErrDuplicateKey, err)
	}
	return err
}

func newestFirst(field string) *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: field, Value: -1}})
}
