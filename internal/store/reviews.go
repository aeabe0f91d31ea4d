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

// ReviewStore persists movie reviews.
type ReviewStore struct {
	col *mongo.Collection
}

func NewReviewStore(db *mongo.Database) *ReviewStore {
	return &ReviewStore{col: db.Collection(reviewsCollection)}
}

func (s *ReviewStore) ListByMovie(ctx context.Context, movieID string) ([]models.Review, error) {
	return s.find(ctx, bson.M{"movie_id": movieID})
}

func (s *ReviewStore) ListAll(ctx context.Context) ([]models.Review, error) {
	return s.find(ctx, bson.M{})
}

func (s *ReviewStore) find(ctx context.Context, filter bson.M) ([]models.Review, error) {
	cur, err := s.col.Find(ctx, filter, newestFirst("date"))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var reviews []models.Review
	if err := cur.All(ctx, &reviews); err != nil {
		return nil, err
	}
	return reviews, nil
}

func (s *ReviewStore) FindByUserMovie(ctx context.Context, userID, movieID string) (*models.Review, error) {
	var r models.Review
	if err := s.col.FindOne(ctx, bson.M{"user": userID, "movie_id": movieID}).Decode(&r); err != nil {
		return nil, mongoErr(err)
	}
	return &r, nil
}

func (s *ReviewStore) GetByID(ctx context.Context, id string) (*models.Review, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var r models.Review
	if err := s.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&r); err != nil {
		return nil, mongoErr(err)
	}
	return &r, nil
}

func (s *ReviewStore) Insert(ctx context.Context, r *models.Review) error {
	if r.Date.IsZero() {
		r.Date = time.Now()
	}
	res, err := s.col.InsertOne(ctx, r)
	if err != nil {
		return fmt.Errorf("mongo insert: %w", mongoErr(err))
	}
	r.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (s *ReviewStore) Update(ctx context.Context, id string, rating int, text string) (*models.Review, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{"$set": bson.M{"rating": rating, "text": text}}
	var r models.Review
	if err := s.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&r); err != nil {
		return nil, mongoErr(err)
	}
	return &r, nil
}

func (s *ReviewStore) Delete(ctx context.Context, id string) error {
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

// DeleteByUser removes every review written by userID and reports how many.
func (s *ReviewStore) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	res, err := s.col.DeleteMany(ctx, bson.M{"user": userID})
	if err != nil {
		return 0, fmt.Errorf("mongo delete many: %w", err)
	}
	return res.DeletedCount, nil
}
