// Package review stores user ratings and reviews of catalog movies.
package review

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yumovie/backend/internal/apperr"
	"github.com/yumovie/backend/internal/models"
)

const (
	minRating = 1
	maxRating = 10
)

// ReviewStore persists reviews. Insert must report apperr.ErrDuplicateKey
// when the author already reviewed the movie.
type ReviewStore interface {
	ListByMovie(ctx context.Context, movieID string) ([]models.Review, error)
	FindByUserMovie(ctx context.Context, userID, movieID string) (*models.Review, error)
	Insert(ctx context.Context, r *models.Review) error
	Update(ctx context.Context, id string, rating int, text string) (*models.Review, error)
	Delete(ctx context.Context, id string) error
}

type Authors interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

type Service struct {
	reviews ReviewStore
	authors Authors
	log     logrus.FieldLogger
	now     func() time.Time
}

func NewService(reviews ReviewStore, authors Authors, log logrus.FieldLogger) *Service {
	return &Service{reviews: reviews, authors: authors, log: log, now: time.Now}
}

// ListForMovie returns every review of movieID, newest first.
func (s *Service) ListForMovie(ctx context.Context, movieID string) ([]models.Review, error) {
	reviews, err := s.reviews.ListByMovie(ctx, strings.TrimSpace(movieID))
	if err != nil {
		return nil, apperr.Internal("list reviews", err)
	}
	if reviews == nil {
		reviews = []models.Review{}
	}
	return reviews, nil
}

// Create posts requester's review of movieID. The author's current name is
// copied onto the review.
func (s *Service) Create(ctx context.Context, movieID, requester string, in models.ReviewInput) (*models.Review, error) {
	movieID = strings.TrimSpace(movieID)
	text, err := validate(movieID, in)
	if err != nil {
		return nil, err
	}

	author, err := s.authors.GetUserByID(ctx, requester)
	if errors.Is(err, apperr.ErrRecordNotFound) {
		return nil, apperr.NotFound("User not found")
	}
	if err != nil {
		return nil, apperr.Internal("load author", err)
	}

	_, err = s.reviews.FindByUserMovie(ctx, requester, movieID)
	if err == nil {
		return nil, apperr.Conflict("You have already reviewed this movie")
	}
	if !errors.Is(err, apperr.ErrRecordNotFound) {
		return nil, apperr.Internal("find review", err)
	}

	r := &models.Review{
		UserID:   requester,
		Username: author.Name,
		MovieID:  movieID,
		Rating:   in.Rating,
		Text:     text,
		Date:     s.now(),
	}
	if err := s.reviews.Insert(ctx, r); err != nil {
		if errors.Is(err, apperr.ErrDuplicateKey) {
			return nil, apperr.Conflict("You have already reviewed this movie")
		}
		return nil, apperr.Internal("insert review", err)
	}

	s.log.WithFields(logrus.Fields{"user_id": requester, "movie_id": movieID, "rating": in.Rating}).Info("review posted")
	return r, nil
}

// UpdateMine edits requester's review of movieID.
func (s *Service) UpdateMine(ctx context.Context, movieID, requester string, in models.ReviewInput) (*models.Review, error) {
	movieID = strings.TrimSpace(movieID)
	text, err := validate(movieID, in)
	if err != nil {
		return nil, err
	}
	mine, err := s.mine(ctx, movieID, requester)
	if err != nil {
		return nil, err
	}

	updated, err := s.reviews.Update(ctx, mine.ID.Hex(), in.Rating, text)
	if errors.Is(err, apperr.ErrRecordNotFound) {
		return nil, apperr.NotFound("Review not found")
	}
	if err != nil {
		return nil, apperr.Internal("update review", err)
	}
	return updated, nil
}

// DeleteMine removes requester's review of movieID.
func (s *Service) DeleteMine(ctx context.Context, movieID, requester string) error {
	mine, err := s.mine(ctx, strings.TrimSpace(movieID), requester)
	if err != nil {
		return err
	}
	err = s.reviews.Delete(ctx, mine.ID.Hex())
	if errors.Is(err, apperr.ErrRecordNotFound) {
		return apperr.NotFound("Review not found")
	}
	if err != nil {
		return apperr.Internal("delete review", err)
	}
	return nil
}

func (s *Service) mine(ctx context.Context, movieID, requester string) (*models.Review, error) {
	r, err := s.reviews.FindByUserMovie(ctx, requester, movieID)
	if errors.Is(err, apperr.ErrRecordNotFound) {
		return nil, apperr.NotFound("Review not found")
	}
	if err != nil {
		return nil, apperr.Internal("find review", err)
	}
	return r, nil
}

// validate checks the input and returns the trimmed text.
func validate(movieID string, in models.ReviewInput) (string, error) {
	if movieID == "" {
		return "", apperr.Validation("Movie id is required")
	}
	if in.Rating < minRating || in.Rating > maxRating {
		return "", apperr.Validation("Rating must be between 1 and 10")
	}
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return "", apperr.Validation("Review text is required")
	}
	return text, nil
}
