// Package watchlist manages each user's personal movie watchlist.
package watchlist

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yumovie/backend/internal/apperr"
	"github.com/yumovie/backend/internal/models"
)

const maxScore = 10

// ItemStore persists watchlist items. Insert must report
// apperr.ErrDuplicateKey when the user already has the movie.
type ItemStore interface {
	ListByUser(ctx context.Context, userID string) ([]models.WatchlistItem, error)
	FindByUserMovie(ctx context.Context, userID, movieID string) (*models.WatchlistItem, error)
	Insert(ctx context.Context, item *models.WatchlistItem) error
	GetByID(ctx context.Context, id string) (*models.WatchlistItem, error)
	Update(ctx context.Context, id string, status models.WatchStatus, score int) (*models.WatchlistItem, error)
	Delete(ctx context.Context, id string) error
}

type Service struct {
	items ItemStore
	log   logrus.FieldLogger
	now   func() time.Time
}

func NewService(items ItemStore, log logrus.FieldLogger) *Service {
	return &Service{items: items, log: log, now: time.Now}
}

// List returns requester's items, newest first.
func (s *Service) List(ctx context.Context, requester string) ([]models.WatchlistItem, error) {
	items, err := s.items.ListByUser(ctx, requester)
	if err != nil {
		return nil, apperr.Internal("list watchlist", err)
	}
	if items == nil {
		items = []models.WatchlistItem{}
	}
	return items, nil
}

// Add puts a movie on requester's watchlist. Status defaults to
// "Plan to Watch" and score to 0.
func (s *Service) Add(ctx context.Context, requester string, req models.WatchlistAdd) (*models.WatchlistItem, error) {
	movieID := strings.TrimSpace(req.MovieID)
	title := strings.TrimSpace(req.Title)
	if movieID == "" || title == "" {
		return nil, apperr.Validation("Movie id and title are required")
	}

	status := req.Status
	if status == "" {
		status = models.StatusPlanToWatch
	}
	score := 0
	if req.Score != nil {
		score = *req.Score
	}
	if err := validate(status, score); err != nil {
		return nil, err
	}

	_, err := s.items.FindByUserMovie(ctx, requester, movieID)
	if err == nil {
		return nil, apperr.Conflict("Item already in watchlist")
	}
	if !errors.Is(err, apperr.ErrRecordNotFound) {
		return nil, apperr.Internal("find watchlist item", err)
	}

	item := &models.WatchlistItem{
		UserID:     requester,
		MovieID:    movieID,
		Title:      title,
		PosterPath: req.PosterPath,
		Status:     status,
		Score:      score,
		AddedAt:    s.now(),
	}
	if err := s.items.Insert(ctx, item); err != nil {
		if errors.Is(err, apperr.ErrDuplicateKey) {
			return nil, apperr.Conflict("Item already in watchlist")
		}
		return nil, apperr.Internal("insert watchlist item", err)
	}

	s.log.WithFields(logrus.Fields{"user_id": requester, "movie_id": movieID}).Debug("watchlist item added")
	return item, nil
}

// Update changes status and/or score of an item owned by requester.
func (s *Service) Update(ctx context.Context, id, requester string, req models.WatchlistUpdate) (*models.WatchlistItem, error) {
	item, err := s.owned(ctx, id, requester)
	if err != nil {
		return nil, err
	}

	status, score := item.Status, item.Score
	if req.Status != "" {
		status = req.Status
	}
	if req.Score != nil {
		score = *req.Score
	}
	if err := validate(status, score); err != nil {
		return nil, err
	}

	updated, err := s.items.Update(ctx, id, status, score)
	if errors.Is(err, apperr.ErrRecordNotFound) {
		return nil, apperr.NotFound("Item not found")
	}
	if err != nil {
		return nil, apperr.Internal("update watchlist item", err)
	}
	return updated, nil
}

// Remove deletes an item owned by requester.
func (s *Service) Remove(ctx context.Context, id, requester string) error {
	if _, err := s.owned(ctx, id, requester); err != nil {
		return err
	}
	err := s.items.Delete(ctx, id)
	if errors.Is(err, apperr.ErrRecordNotFound) {
		return apperr.NotFound("Item not found")
	}
	if err != nil {
		return apperr.Internal("delete watchlist item", err)
	}
	return nil
}

func (s *Service) owned(ctx context.Context, id, requester string) (*models.WatchlistItem, error) {
	item, err := s.items.GetByID(ctx, id)
	if errors.Is(err, apperr.ErrRecordNotFound) {
		return nil, apperr.NotFound("Item not found")
	}
	if err != nil {
		return nil, apperr.Internal("load watchlist item", err)
	}
	if item.UserID != requester {
		return nil, apperr.Forbidden("User not authorized")
	}
	return item, nil
}

func validate(status models.WatchStatus, score int) error {
	if !status.Valid() {
		return apperr.Validation("Invalid status")
	}
	if score < 0 || score > maxScore {
		return apperr.Validation("Score must be between 0 and 10")
	}
	return nil
}
