package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/yumovie/backend/internal/apperr"
	"github.com/yumovie/backend/internal/models"
)

// SharedListStore persists shared watchlists in MongoDB. Movies and members
// are embedded in the list document, so deleting a list removes everything.
type SharedListStore struct {
	col *mongo.Collection
}

func NewSharedListStore(db *mongo.Database) *SharedListStore {
	return &SharedListStore{col: db.Collection(sharedListsCollection)}
}

func (s *SharedListStore) Insert(ctx context.Context, list *models.SharedWatchlist) (string, error) {
	if list.CreatedAt.IsZero() {
		list.CreatedAt = time.Now()
	}
	if list.Movies == nil {
		list.Movies = []models.MovieEntry{}
	}
	res, err := s.col.InsertOne(ctx, list)
	if err != nil {
		return "", fmt.Errorf("mongo insert: %w", err)
	}
	oid := res.InsertedID.(primitive.ObjectID)
	list.ID = oid
	return oid.Hex(), nil
}

func (s *SharedListStore) ListByMember(ctx context.Context, userID string) ([]models.SharedWatchlist, error) {
	cur, err := s.col.Find(ctx, bson.M{"members": userID}, newestFirst("created_date"))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var lists []models.SharedWatchlist
	if err := cur.All(ctx, &lists); err != nil {
		return nil, err
	}
	return lists, nil
}

func (s *SharedListStore) GetByID(ctx context.Context, id string) (*models.SharedWatchlist, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var list models.SharedWatchlist
	if err := s.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&list); err != nil {
		return nil, mongoErr(err)
	}
	return &list, nil
}

// AddMember appends userID to members only if it is not already present.
// A missed match means either the list vanished or the user is a member.
func (s *SharedListStore) AddMember(ctx context.Context, id, userID string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	filter := bson.M{"_id": oid, "members": bson.M{"$ne": userID}}
	res, err := s.col.UpdateOne(ctx, filter, bson.M{"$push": bson.M{"members": userID}})
	if err != nil {
		return fmt.Errorf("mongo add member: %w", err)
	}
	if res.MatchedCount == 0 {
		return s.missReason(ctx, oid)
	}
	return nil
}

// AddMovie appends entry only if no movie with the same id is present.
func (s *SharedListStore) AddMovie(ctx context.Context, id string, entry models.MovieEntry) ([]models.MovieEntry, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	filter := bson.M{"_id": oid, "movies.movie_id": bson.M{"$ne": entry.MovieID}}
	res, err := s.col.UpdateOne(ctx, filter, bson.M{"$push": bson.M{"movies": entry}})
	if err != nil {
		return nil, fmt.Errorf("mongo add movie: %w", err)
	}
	if res.MatchedCount == 0 {
		return nil, s.missReason(ctx, oid)
	}
	list, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return list.Movies, nil
}

func (s *SharedListStore) Delete(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("mongo delete: %w", err)
	}
	if res.DeletedCount == 0 {
		return apperr.ErrRecordNotFound
	}
	return nil
}

func (s *SharedListStore) missReason(ctx context.Context, oid primitive.ObjectID) error {
	n, err := s.col.CountDocuments(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("mongo count: %w", err)
	}
	if n == 0 {
		return apperr.ErrRecordNotFound
	}
	return apperr.ErrDuplicateKey
}
