package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/yumovie/backend/internal/apperr"
	"github.com/yumovie/backend/internal/models"
)

// WatchlistStore persists personal watchlist items.
type WatchlistStore struct {
	col *mongo.Collection
}

func NewWatchlistStore(db *mongo.Database) *WatchlistStore {
	return &WatchlistStore{col: db.Collection(watchlistCollection)}
}

func (s *WatchlistStore) ListByUser(ctx context.Context, userID string) ([]models.WatchlistItem, error) {
	cur, err := s.col.Find(ctx, bson.M{"user": userID}, newestFirst("added_date"))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var items []models.WatchlistItem
	if err := cur.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *WatchlistStore) FindByUserMovie(ctx context.Context, userID, movieID string) (*models.WatchlistItem, error) {
	var item models.WatchlistItem
	err := s.col.FindOne(ctx, bson.M{"user": userID, "movie_id": movieID}).Decode(&item)
	if err != nil {
		return nil, mongoErr(err)
	}
	return &item, nil
}

func (s *WatchlistStore) Insert(ctx context.Context, item *models.WatchlistItem) error {
	if item.AddedAt.IsZero() {
		item.AddedAt = time.Now()
	}
	res, err := s.col.InsertOne(ctx, item)
	if err != nil {
		return fmt.Errorf("mongo insert: %w", mongoErr(err))
	}
	item.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (s *WatchlistStore) GetByID(ctx context.Context, id string) (*models.WatchlistItem, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var item models.WatchlistItem
	if err := s.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&item); err != nil {
		return nil, mongoErr(err)
	}
	return &item, nil
}

// Update sets status and score and returns the stored item.
func (s *WatchlistStore) Update(ctx context.Context, id string, status models.WatchStatus, score int) (*models.WatchlistItem, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{"$set": bson.M{"status": status, "score": score}}
	var item models.WatchlistItem
	if err := s.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&item); err != nil {
		return nil, mongoErr(err)
	}
	return &item, nil
}

func (s *WatchlistStore) Delete(ctx context.Context, id string) error {
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
